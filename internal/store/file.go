package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/lacquerai/blocksmith/internal/block"
	"github.com/lacquerai/blocksmith/internal/tutorial"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

const manifestFile = "library.yaml"

var (
	blockSuffixes    = []string{".block.json", ".block.yaml", ".block.yml"}
	tutorialSuffixes = []string{".tutorial.json", ".tutorial.yaml", ".tutorial.yml"}
)

// Manifest describes a block library directory
type Manifest struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Description string `yaml:"description,omitempty"`
}

// fileRecord is the on-disk shape of a block definition. The definition may
// be a nested mapping in YAML files, so it is decoded generically and
// re-encoded as JSON.
type fileRecord struct {
	BlockName    string `json:"block_name" yaml:"block_name"`
	BlockType    string `json:"block_type" yaml:"block_type"`
	Category     string `json:"category" yaml:"category"`
	Colour       string `json:"colour" yaml:"colour"`
	Definition   any    `json:"definition" yaml:"definition"`
	CodeTemplate string `json:"code_template" yaml:"code_template"`
	CheckboxMode string `json:"checkbox_mode" yaml:"checkbox_mode"`
	Position     int    `json:"position" yaml:"position"`
}

// FileStore reads a library directory of *.block.{json,yaml} and
// *.tutorial.{json,yaml} files
type FileStore struct {
	dir        string
	constraint *semver.Constraints

	blocks    map[string]*blockEntry
	tutorials map[string]*tutorialEntry
	cacheMu   sync.RWMutex
}

type blockEntry struct {
	record   block.Record
	position int
	modTime  time.Time
}

type tutorialEntry struct {
	tutorial *tutorial.Tutorial
	modTime  time.Time
}

var _ Store = (*FileStore)(nil)

// NewFileStore opens a library directory. constraint, when non-empty, is a
// semver range the directory's library.yaml version must satisfy.
func NewFileStore(dir, constraint string) (*FileStore, error) {
	if dir == "" {
		dir = "."
	}

	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve library path: %w", err)
	}

	info, err := os.Stat(absDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("library directory not found: %s", absDir)
		}
		return nil, fmt.Errorf("failed to access library directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("library path is not a directory: %s", absDir)
	}

	s := &FileStore{
		dir:       absDir,
		blocks:    make(map[string]*blockEntry),
		tutorials: make(map[string]*tutorialEntry),
	}

	if constraint != "" {
		c, err := semver.NewConstraint(constraint)
		if err != nil {
			return nil, fmt.Errorf("invalid library version constraint %q: %w", constraint, err)
		}
		s.constraint = c
	}

	return s, nil
}

// Dir returns the absolute library directory
func (s *FileStore) Dir() string {
	return s.dir
}

// Manifest reads library.yaml. A missing manifest returns nil without error.
func (s *FileStore) Manifest() (*Manifest, error) {
	path := filepath.Join(s.dir, manifestFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", manifestFile, err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", manifestFile, err)
	}
	if m.Version != "" {
		if _, err := semver.NewVersion(m.Version); err != nil {
			return nil, fmt.Errorf("%s: invalid version %q: %w", manifestFile, m.Version, err)
		}
	}

	return &m, nil
}

// CheckVersion verifies the manifest against the configured constraint
func (s *FileStore) CheckVersion() error {
	if s.constraint == nil {
		return nil
	}

	m, err := s.Manifest()
	if err != nil {
		return err
	}
	if m == nil || m.Version == "" {
		return fmt.Errorf("library %s has no version but %s is required", s.dir, s.constraint)
	}

	v, err := semver.NewVersion(m.Version)
	if err != nil {
		return err
	}
	if !s.constraint.Check(v) {
		return fmt.Errorf("library %s version %s does not satisfy %s", m.Name, v, s.constraint)
	}
	return nil
}

// ListBlocks loads every block file ordered by position then name
func (s *FileStore) ListBlocks(ctx context.Context) ([]block.Record, error) {
	if err := s.CheckVersion(); err != nil {
		return nil, err
	}

	paths, err := s.glob(blockSuffixes)
	if err != nil {
		return nil, err
	}

	entries := make([]*blockEntry, 0, len(paths))
	seen := make(map[string]bool, len(paths))
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		entry, err := s.loadBlock(path)
		if err != nil {
			return nil, err
		}
		seen[path] = true
		entries = append(entries, entry)
	}
	s.pruneBlocks(seen)

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].position != entries[j].position {
			return entries[i].position < entries[j].position
		}
		return entries[i].record.BlockName < entries[j].record.BlockName
	})

	records := make([]block.Record, len(entries))
	for i, e := range entries {
		records[i] = e.record
	}
	return records, nil
}

// ListTutorials loads every tutorial file ordered by file name
func (s *FileStore) ListTutorials(ctx context.Context) ([]*tutorial.Tutorial, error) {
	paths, err := s.glob(tutorialSuffixes)
	if err != nil {
		return nil, err
	}

	tutorials := make([]*tutorial.Tutorial, 0, len(paths))
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if t, ok := s.tutorialFromCache(path); ok {
			tutorials = append(tutorials, t)
			continue
		}

		t, err := tutorial.LoadFile(path)
		if err != nil {
			return nil, err
		}

		if info, err := os.Stat(path); err == nil {
			s.cacheMu.Lock()
			s.tutorials[path] = &tutorialEntry{tutorial: t, modTime: info.ModTime()}
			s.cacheMu.Unlock()
		}
		tutorials = append(tutorials, t)
	}

	return tutorials, nil
}

// InvalidateCache drops a cached file, or the whole cache when path is empty
func (s *FileStore) InvalidateCache(path string) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()

	if path == "" {
		s.blocks = make(map[string]*blockEntry)
		s.tutorials = make(map[string]*tutorialEntry)
		return
	}
	delete(s.blocks, path)
	delete(s.tutorials, path)
}

// Close is a no-op for the file store
func (s *FileStore) Close() error {
	return nil
}

func (s *FileStore) loadBlock(path string) (*blockEntry, error) {
	if cached, ok := s.blockFromCache(path); ok {
		return cached, nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to access %s: %w", path, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var fr fileRecord
	if strings.HasSuffix(path, ".json") {
		err = json.Unmarshal(data, &fr)
	} else {
		err = yaml.Unmarshal(data, &fr)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	if fr.BlockName == "" {
		fr.BlockName = blockNameFromPath(path)
	}
	if fr.Definition == nil {
		return nil, fmt.Errorf("%s: definition is required", path)
	}

	definition, err := json.Marshal(fr.Definition)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to encode definition: %w", path, err)
	}

	entry := &blockEntry{
		record: block.Record{
			BlockName:    fr.BlockName,
			BlockType:    block.Kind(fr.BlockType),
			Category:     fr.Category,
			Colour:       fr.Colour,
			Definition:   definition,
			CodeTemplate: fr.CodeTemplate,
			CheckboxMode: block.CheckboxMode(fr.CheckboxMode),
		},
		position: fr.Position,
		modTime:  info.ModTime(),
	}

	s.cacheMu.Lock()
	s.blocks[path] = entry
	s.cacheMu.Unlock()

	log.Debug().Str("path", path).Str("block", fr.BlockName).Msg("Loaded block definition")

	return entry, nil
}

func (s *FileStore) blockFromCache(path string) (*blockEntry, bool) {
	s.cacheMu.RLock()
	entry, ok := s.blocks[path]
	s.cacheMu.RUnlock()
	if !ok {
		return nil, false
	}

	info, err := os.Stat(path)
	if err != nil || info.ModTime().After(entry.modTime) {
		s.InvalidateCache(path)
		return nil, false
	}
	return entry, true
}

func (s *FileStore) tutorialFromCache(path string) (*tutorial.Tutorial, bool) {
	s.cacheMu.RLock()
	entry, ok := s.tutorials[path]
	s.cacheMu.RUnlock()
	if !ok {
		return nil, false
	}

	info, err := os.Stat(path)
	if err != nil || info.ModTime().After(entry.modTime) {
		s.InvalidateCache(path)
		return nil, false
	}
	return entry.tutorial, true
}

func (s *FileStore) pruneBlocks(seen map[string]bool) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()

	for path := range s.blocks {
		if !seen[path] {
			delete(s.blocks, path)
		}
	}
}

func (s *FileStore) glob(suffixes []string) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read library directory: %w", err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if hasSuffix(e.Name(), suffixes) {
			paths = append(paths, filepath.Join(s.dir, e.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// IsLibraryFile reports whether a file name belongs to a block library
func IsLibraryFile(name string) bool {
	base := filepath.Base(name)
	return base == manifestFile || hasSuffix(base, blockSuffixes) || hasSuffix(base, tutorialSuffixes)
}

func hasSuffix(name string, suffixes []string) bool {
	for _, suffix := range suffixes {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return false
}

func blockNameFromPath(path string) string {
	base := filepath.Base(path)
	for _, suffix := range blockSuffixes {
		if strings.HasSuffix(base, suffix) {
			return strings.TrimSuffix(base, suffix)
		}
	}
	return base
}

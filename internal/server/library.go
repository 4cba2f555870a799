package server

import (
	"context"
	"fmt"
	"sync"

	"github.com/lacquerai/blocksmith/internal/block"
	"github.com/lacquerai/blocksmith/internal/codegen"
	"github.com/lacquerai/blocksmith/internal/registrar"
	"github.com/lacquerai/blocksmith/internal/store"
	"github.com/lacquerai/blocksmith/internal/toolbox"
	"github.com/lacquerai/blocksmith/internal/tutorial"
	"github.com/rs/zerolog/log"
)

// Library holds the registered block types, the toolbox built from them and
// the tutorials, as loaded from a store. Reload swaps all of it at once.
type Library struct {
	store store.Store

	registry  *block.Registry
	compiler  *codegen.Compiler
	tree      *toolbox.Tree
	theme     *toolbox.Theme
	tutorials []*tutorial.Tutorial
	skipped   int
	mu        sync.RWMutex
}

// LoadStats summarises a reload
type LoadStats struct {
	Blocks    int `json:"blocks"`
	Skipped   int `json:"skipped"`
	Tutorials int `json:"tutorials"`
}

// NewLibrary creates an empty library backed by st
func NewLibrary(st store.Store) *Library {
	registry := block.NewRegistry()
	tree := toolbox.Assemble(nil)
	return &Library{
		store:    st,
		registry: registry,
		compiler: codegen.NewCompiler(registry),
		tree:     tree,
		theme:    toolbox.BuildTheme(tree),
	}
}

// Reload reads the store into a fresh registry and swaps it in. Malformed
// block definitions are skipped; a store failure keeps the current library.
func (l *Library) Reload(ctx context.Context) (LoadStats, error) {
	records, err := l.store.ListBlocks(ctx)
	if err != nil {
		return LoadStats{}, fmt.Errorf("failed to list blocks: %w", err)
	}

	tutorials, err := l.store.ListTutorials(ctx)
	if err != nil {
		return LoadStats{}, fmt.Errorf("failed to list tutorials: %w", err)
	}

	registry := block.NewRegistry()
	n, _ := registrar.New(registry).RegisterAll(records)
	skipped := len(records) - n

	tree := toolbox.Assemble(registry.Schemas())

	l.mu.Lock()
	l.registry = registry
	l.compiler = codegen.NewCompiler(registry)
	l.tree = tree
	l.theme = toolbox.BuildTheme(tree)
	l.tutorials = tutorials
	l.skipped = skipped
	l.mu.Unlock()

	stats := LoadStats{Blocks: n, Skipped: skipped, Tutorials: len(tutorials)}

	log.Info().
		Int("blocks", stats.Blocks).
		Int("skipped", stats.Skipped).
		Int("tutorials", stats.Tutorials).
		Msg("Block library loaded")

	return stats, nil
}

// Registry returns the current registry
func (l *Library) Registry() *block.Registry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.registry
}

// Compiler returns a compiler bound to the current registry
func (l *Library) Compiler() *codegen.Compiler {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.compiler
}

// Current returns the registry and its compiler as one consistent pair
func (l *Library) Current() (*block.Registry, *codegen.Compiler) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.registry, l.compiler
}

// Toolbox returns the current toolbox tree and its theme
func (l *Library) Toolbox() (*toolbox.Tree, *toolbox.Theme) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.tree, l.theme
}

// Tutorials returns the loaded tutorials in store order
func (l *Library) Tutorials() []*tutorial.Tutorial {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]*tutorial.Tutorial(nil), l.tutorials...)
}

// Tutorial looks a tutorial up by id
func (l *Library) Tutorial(id string) (*tutorial.Tutorial, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, t := range l.tutorials {
		if t.ID == id {
			return t, true
		}
	}
	return nil, false
}

// Count returns the number of registered block types
func (l *Library) Count() int {
	return l.Registry().Len()
}

// Skipped returns how many definitions the last reload rejected
func (l *Library) Skipped() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.skipped
}

// Store returns the backing store
func (l *Library) Store() store.Store {
	return l.store
}

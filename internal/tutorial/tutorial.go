package tutorial

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Tutorial is an ordered list of steps
type Tutorial struct {
	ID          string `json:"id" yaml:"id"`
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Steps       []Step `json:"steps" yaml:"steps"`
}

// Step returns the step at index
func (t *Tutorial) Step(index int) (*Step, error) {
	if index < 0 || index >= len(t.Steps) {
		return nil, fmt.Errorf("tutorial %s has no step %d", t.ID, index)
	}
	return &t.Steps[index], nil
}

// Validate checks that the tutorial is usable
func (t *Tutorial) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("tutorial id is required")
	}
	if t.Title == "" {
		return fmt.Errorf("tutorial %s: title is required", t.ID)
	}
	for i, step := range t.Steps {
		if cfg := step.ExpectedConfig; cfg != nil && cfg.Type == "" {
			return fmt.Errorf("tutorial %s: steps[%d].expected_config.type is required", t.ID, i)
		}
		for typ, n := range step.ExpectedBlocks {
			if n < 0 {
				return fmt.Errorf("tutorial %s: steps[%d].expected_blocks.%s must not be negative", t.ID, i, typ)
			}
		}
	}
	return nil
}

// ParseYAML decodes a tutorial from YAML
func ParseYAML(data []byte) (*Tutorial, error) {
	var t Tutorial
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to parse tutorial YAML: %w", err)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

// ParseJSON decodes a tutorial from JSON
func ParseJSON(data []byte) (*Tutorial, error) {
	var t Tutorial
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to parse tutorial JSON: %w", err)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

// LoadFile reads a tutorial from a .json, .yaml or .yml file
func LoadFile(path string) (*Tutorial, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read tutorial %s: %w", path, err)
	}

	var t *Tutorial
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		t, err = ParseJSON(data)
	case ".yaml", ".yml":
		t, err = ParseYAML(data)
	default:
		return nil, fmt.Errorf("unsupported tutorial file extension: %s", path)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

package tutorial

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const tutorialYAML = `id: first-page
title: Your first page
description: Build a page with a heading and a link
steps:
  - title: Add a container
    instructions: Drag an element block onto the canvas.
  - title: Fill it
    expected_blocks:
      html_element: 1
      html_text: 2
  - title: Configure it
    expected_config:
      type: css_width
      fields:
        WIDTH: 12
      inputs:
        CONTENT:
          blockType: html_text
  - title: Check the code
    hint: Use a section tag
    expected_code_patterns:
      - "<section>"
      - regex: "<A HREF=\"[^\"]+\">"
        flags: i
`

func TestParseYAML(t *testing.T) {
	tut, err := ParseYAML([]byte(tutorialYAML))
	require.NoError(t, err)

	assert.Equal(t, "first-page", tut.ID)
	assert.Equal(t, "Your first page", tut.Title)
	require.Len(t, tut.Steps, 4)

	assert.False(t, tut.Steps[0].HasExpectations())
	assert.Equal(t, map[string]int{"html_element": 1, "html_text": 2}, tut.Steps[1].ExpectedBlocks)

	cfg := tut.Steps[2].ExpectedConfig
	require.NotNil(t, cfg)
	assert.Equal(t, "css_width", cfg.Type)
	assert.Equal(t, float64(12), cfg.Fields["WIDTH"], "integers compare like snapshot numbers")
	assert.Equal(t, "html_text", cfg.Inputs["CONTENT"].BlockType)

	patterns := tut.Steps[3].ExpectedCodePatterns
	require.Len(t, patterns, 2)
	assert.False(t, patterns[0].IsRegex())
	assert.Equal(t, "<section>", patterns[0].Literal)
	assert.True(t, patterns[1].IsRegex())
	assert.True(t, patterns[1].Matches(`<a href="/docs">docs</a>`))
	assert.Equal(t, "Use a section tag", tut.Steps[3].Hint)
}

func TestParseJSON(t *testing.T) {
	data := []byte(`{
		"id": "json-tutorial",
		"title": "From JSON",
		"steps": [
			{"expected_config": {"type": "css_width", "fields": {"WIDTH": 12}}},
			{"expected_code_patterns": ["<p>", {"regex": "^\\s*<div", "flags": "m"}]}
		]
	}`)

	tut, err := ParseJSON(data)
	require.NoError(t, err)
	require.Len(t, tut.Steps, 2)

	snap := mustSnapshot(t, pageSnapshot)
	assert.True(t, Validate(&tut.Steps[0], snap, ""))
	assert.True(t, Validate(&tut.Steps[1], snap, "<p>x</p>\n  <div>"))
	assert.False(t, Validate(&tut.Steps[1], snap, "<p>x</p> <div>"))
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		parse   func([]byte) (*Tutorial, error)
		data    string
		wantErr string
	}{
		{"missing id", ParseYAML, "title: x\n", "tutorial id is required"},
		{"missing title", ParseYAML, "id: x\n", "title is required"},
		{"config without type", ParseYAML, "id: x\ntitle: y\nsteps:\n  - expected_config:\n      fields: {A: b}\n", "expected_config.type is required"},
		{"negative count", ParseYAML, "id: x\ntitle: y\nsteps:\n  - expected_blocks: {a: -1}\n", "must not be negative"},
		{"bad regex", ParseYAML, "id: x\ntitle: y\nsteps:\n  - expected_code_patterns:\n      - regex: \"(\"\n", "invalid code pattern"},
		{"bad flag", ParseJSON, `{"id": "x", "title": "y", "steps": [{"expected_code_patterns": [{"regex": "a", "flags": "x"}]}]}`, "unsupported regex flag"},
		{"empty regex", ParseJSON, `{"id": "x", "title": "y", "steps": [{"expected_code_patterns": [{"flags": "i"}]}]}`, "regex must not be empty"},
		{"pattern wrong type", ParseJSON, `{"id": "x", "title": "y", "steps": [{"expected_code_patterns": [5]}]}`, "code pattern must be a string"},
		{"pattern list in yaml", ParseYAML, "id: x\ntitle: y\nsteps:\n  - expected_code_patterns:\n      - [a, b]\n", "code pattern must be a string"},
		{"malformed json", ParseJSON, `{`, "failed to parse tutorial JSON"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.parse([]byte(tt.data))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestPattern_Marshal(t *testing.T) {
	regex := mustRegex(t, "a+", "i")

	data, err := json.Marshal([]Pattern{Literal("x"), regex})
	require.NoError(t, err)
	assert.JSONEq(t, `["x", {"regex": "a+", "flags": "i"}]`, string(data))

	out, err := yaml.Marshal([]Pattern{Literal("x"), regex})
	require.NoError(t, err)

	var back []Pattern
	require.NoError(t, yaml.Unmarshal(out, &back))
	require.Len(t, back, 2)
	assert.Equal(t, "x", back[0].Literal)
	assert.Equal(t, "a+", back[1].Regex)
	assert.Equal(t, "i", back[1].Flags)
	assert.True(t, back[1].Matches("AAA"))
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "first.tutorial.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(tutorialYAML), 0o644))

	tut, err := LoadFile(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, "first-page", tut.ID)

	jsonPath := filepath.Join(dir, "second.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"id": "second", "title": "Second", "steps": []}`), 0o644))
	tut, err = LoadFile(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, "second", tut.ID)

	_, err = LoadFile(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	txtPath := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(txtPath, []byte("id: x"), 0o644))
	_, err = LoadFile(txtPath)
	assert.ErrorContains(t, err, "unsupported tutorial file extension")

	badPath := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(badPath, []byte("title: no id\n"), 0o644))
	_, err = LoadFile(badPath)
	assert.ErrorContains(t, err, badPath)
}

func TestTutorial_Step(t *testing.T) {
	tut := twoStepTutorial()

	step, err := tut.Step(1)
	require.NoError(t, err)
	assert.Equal(t, "Say hello", step.Title)

	_, err = tut.Step(2)
	assert.Error(t, err)
	_, err = tut.Step(-1)
	assert.Error(t, err)
}

// Package testhelper silences logging in tests and provides a small
// library of block definitions shared by package tests.
package testhelper

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/lacquerai/blocksmith/internal/block"
)

// Records returns a block library in the stored record format, in the
// order a schema store would list it
func Records() []block.Record {
	return []block.Record{
		{
			BlockName: "html_text",
			BlockType: block.KindHTML,
			Category:  "Text",
			Colour:    "#5B67A5",
			Definition: json.RawMessage(`{
				"type": "html_text",
				"message0": "text %1",
				"args0": [{"type": "field_input", "name": "TEXT", "text": "Hello World"}],
				"previousStatement": null,
				"nextStatement": null
			}`),
			CodeTemplate: `{TEXT}\n`,
		},
		{
			BlockName: "html_element",
			BlockType: block.KindHTML,
			Category:  "Structure",
			Colour:    "#A55B80",
			Definition: json.RawMessage(`{
				"type": "html_element",
				"message0": "element %1 %2",
				"args0": [
					{"type": "field_dropdown", "name": "TAG", "options": [["div", "div"], ["section", "section"], ["span", "span"]]},
					{"type": "input_statement", "name": "CONTENT"}
				],
				"previousStatement": null,
				"nextStatement": null
			}`),
			CodeTemplate: `<{TAG}>\n{CONTENT}</{TAG}>\n`,
		},
		{
			BlockName: "html_paragraph",
			BlockType: block.KindHTML,
			Category:  "Text",
			Colour:    "#5B67A5",
			Definition: json.RawMessage(`{
				"type": "html_paragraph",
				"message0": "paragraph %1",
				"args0": [{"type": "input_statement", "name": "BODY"}],
				"previousStatement": null,
				"nextStatement": null
			}`),
			CodeTemplate: `<p>{CONTENT}</p>\n`,
		},
		{
			BlockName: "html_link",
			BlockType: block.KindHTML,
			Category:  "Text",
			Colour:    "#5B67A5",
			Definition: json.RawMessage(`{
				"type": "html_link",
				"message0": "link %1 to %2",
				"args0": [
					{"type": "field_input", "name": "TEXT", "text": "click here"},
					{"type": "input_value", "name": "HREF", "check": "String"}
				],
				"previousStatement": null,
				"nextStatement": null,
				"inputsInline": true
			}`),
			CodeTemplate: `<a href="{HREF}">{TEXT}</a>\n`,
		},
		{
			BlockName: "html_url",
			BlockType: block.KindHTML,
			Category:  "Values",
			Colour:    "#5BA58C",
			Definition: json.RawMessage(`{
				"type": "html_url",
				"message0": "url %1",
				"args0": [{"type": "field_input", "name": "URL", "text": "https://example.com"}],
				"output": "String"
			}`),
			CodeTemplate: `{URL}`,
		},
		{
			BlockName: "html_input",
			BlockType: block.KindHTML,
			Category:  "Forms",
			Colour:    "#A5745B",
			Definition: json.RawMessage(`{
				"type": "html_input",
				"message0": "input %1 required %2",
				"args0": [
					{"type": "field_input", "name": "NAME", "text": "email"},
					{"type": "field_checkbox", "name": "REQUIRED", "checked": true}
				],
				"previousStatement": null,
				"nextStatement": null
			}`),
			CodeTemplate: `<input name="{NAME}" {REQUIRED}>\n`,
			CheckboxMode: block.CheckboxAttributeToken,
		},
		{
			BlockName: "css_rule",
			BlockType: block.KindCSS,
			Category:  "Selectors",
			Colour:    "#995BA5",
			Definition: json.RawMessage(`{
				"type": "css_rule",
				"message0": "rule %1 %2",
				"args0": [
					{"type": "field_input", "name": "SELECTOR", "text": "body"},
					{"type": "input_statement", "name": "DECLARATIONS"}
				],
				"previousStatement": null,
				"nextStatement": null
			}`),
			CodeTemplate: `{SELECTOR} {\n{DECLARATIONS}}\n`,
		},
		{
			BlockName: "css_property",
			BlockType: block.KindCSS,
			Category:  "Properties",
			Colour:    "#A5995B",
			Definition: json.RawMessage(`{
				"type": "css_property",
				"message0": "%1 : %2",
				"args0": [
					{"type": "field_dropdown", "name": "PROPERTY", "options": [["colour", "color"], ["margin", "margin"], ["padding", "padding"]]},
					{"type": "field_input", "name": "VALUE", "text": "black"}
				],
				"previousStatement": null,
				"nextStatement": null
			}`),
			CodeTemplate: `  {PROPERTY}: {VALUE};\n`,
		},
		{
			BlockName: "css_width",
			BlockType: block.KindCSS,
			Category:  "Layout",
			Colour:    "#5BA55B",
			Definition: json.RawMessage(`{
				"type": "css_width",
				"message0": "width %1 px",
				"args0": [{"type": "field_number", "name": "WIDTH", "value": 100, "min": 0}],
				"previousStatement": null,
				"nextStatement": null
			}`),
			CodeTemplate: `  width: {WIDTH}px;\n`,
		},
	}
}

// Schemas parses Records. It panics on a bad fixture.
func Schemas() []*block.Schema {
	records := Records()
	schemas := make([]*block.Schema, 0, len(records))
	for _, rec := range records {
		schema, err := block.ParseRecord(rec)
		if err != nil {
			panic(fmt.Sprintf("bad fixture %s: %v", rec.BlockName, err))
		}
		schemas = append(schemas, schema)
	}
	return schemas
}

// Schema returns the named fixture schema
func Schema(name string) *block.Schema {
	for _, s := range Schemas() {
		if s.Name == name {
			return s
		}
	}
	panic("unknown fixture " + name)
}

// WriteLibrary writes Records into dir as <name>.block.json files, keeping
// their order through the position field
func WriteLibrary(t testing.TB, dir string) {
	t.Helper()
	for i, rec := range Records() {
		var definition any
		if err := json.Unmarshal(rec.Definition, &definition); err != nil {
			t.Fatalf("bad fixture %s: %v", rec.BlockName, err)
		}

		data, err := json.MarshalIndent(map[string]any{
			"block_name":    rec.BlockName,
			"block_type":    rec.BlockType,
			"category":      rec.Category,
			"colour":        rec.Colour,
			"definition":    definition,
			"code_template": rec.CodeTemplate,
			"checkbox_mode": rec.CheckboxMode,
			"position":      i,
		}, "", "  ")
		if err != nil {
			t.Fatal(err)
		}

		path := filepath.Join(dir, rec.BlockName+".block.json")
		if err := os.WriteFile(path, data, 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

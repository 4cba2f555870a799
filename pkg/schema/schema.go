// Package schema provides access to blocksmith document schemas and metadata.
// This package enables third-party applications to introspect the files a
// block library is made of: block definitions, library manifests, guided
// tutorials and the workspace snapshots the editor exchanges with the
// code generator.
//
// The schema information is useful for:
//   - Building block editors with validation and autocompletion
//   - Linting block libraries in CI
//   - Generating documentation for the block definition format
//
// Example usage:
//
//	schema, err := GetSchema()
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	var blockSchema map[string]any
//	json.Unmarshal(schema.Block, &blockSchema)
//
//	for _, kind := range schema.ArgKinds {
//		fmt.Println(kind)
//	}
package schema

import (
	"encoding/json"
	"fmt"

	"github.com/lacquerai/blocksmith/internal/block"
	internalschema "github.com/lacquerai/blocksmith/internal/schema"
)

// SchemaOutput represents the complete schema information for a block
// library. Each document schema is a JSON Schema (draft 2020-12).
type SchemaOutput struct {
	// Block is the schema of a *.block.yaml or *.block.json file.
	Block json.RawMessage `json:"block"`
	// Manifest is the schema of a library's library.yaml.
	Manifest json.RawMessage `json:"manifest"`
	// Tutorial is the schema of a *.tutorial.yaml or *.tutorial.json file.
	Tutorial json.RawMessage `json:"tutorial"`
	// Snapshot is the schema of a serialized workspace.
	Snapshot json.RawMessage `json:"snapshot"`
	// ArgKinds lists the argument kinds a block definition may use.
	ArgKinds []string `json:"arg_kinds"`
	// Kinds lists the code kinds a block may generate.
	Kinds []string `json:"kinds"`
	// CheckboxModes lists the ways a checkbox field can render.
	CheckboxModes []string `json:"checkbox_modes"`
}

// GetSchema retrieves the complete schema information for blocksmith
// documents. It is the primary entry point for tooling that reads or writes
// block libraries.
//
// Returns:
//   - *SchemaOutput: the document schemas and the enumerations they use
//   - error: any error that occurred during schema generation
func GetSchema() (*SchemaOutput, error) {
	docs := make(map[string]json.RawMessage, 4)
	for _, name := range internalschema.Documents() {
		data, err := internalschema.NewSchema(name)
		if err != nil {
			return nil, fmt.Errorf("error creating %s schema: %w", name, err)
		}
		docs[name] = data
	}

	return &SchemaOutput{
		Block:    docs[internalschema.DocumentBlock],
		Manifest: docs[internalschema.DocumentManifest],
		Tutorial: docs[internalschema.DocumentTutorial],
		Snapshot: docs[internalschema.DocumentSnapshot],
		ArgKinds: []string{
			string(block.ArgTextField),
			string(block.ArgDropdownField),
			string(block.ArgColourField),
			string(block.ArgNumberField),
			string(block.ArgCheckboxField),
			string(block.ArgValueSlot),
			string(block.ArgStatementSlot),
			string(block.ArgDummy),
		},
		Kinds:         []string{string(block.KindHTML), string(block.KindCSS)},
		CheckboxModes: []string{string(block.CheckboxAttributeToken), string(block.CheckboxRawBoolean)},
	}, nil
}

package schema

import "github.com/invopop/jsonschema"

// BlockFile is a block definition stored in a block library directory as
// <name>.block.yaml or <name>.block.json
type BlockFile struct {
	// Unique block type name. Defaults to the file name without its .block suffix.
	BlockName string `json:"block_name,omitempty"`
	// Code kind the block generates; decides its toolbox section.
	BlockType string `json:"block_type" jsonschema:"enum=html,enum=css"`
	// Toolbox category the block is listed under.
	Category string `json:"category"`
	// Block colour as a hex string. Overrides the definition colour.
	Colour string `json:"colour,omitempty" jsonschema:"pattern=^#[0-9a-fA-F]{6}$"`
	// Visual definition of the block, as a mapping or a JSON string.
	Definition Definition `json:"definition"`
	// Template the block generates code from. {NAME} placeholders are
	// replaced with field values and connected child code.
	CodeTemplate string `json:"code_template"`
	// How checkbox fields render in code.
	CheckboxMode string `json:"checkbox_mode,omitempty" jsonschema:"enum=attribute_token,enum=raw_boolean"`
	// Display order within the library. Ties sort by name.
	Position int `json:"position,omitempty"`
}

// Definition describes the shape of a block: its label, arguments and
// connections
type Definition struct {
	// Block type name.
	Type string `json:"type"`
	// Label with %1, %2 ... placeholders, one per argument.
	Message0 string `json:"message0"`
	// Arguments in placeholder order.
	Args0 []Arg `json:"args0,omitempty"`
	// Types the block may follow. null accepts any type.
	PreviousStatement any `json:"previousStatement,omitempty"`
	// Types that may follow the block. null accepts any type.
	NextStatement any `json:"nextStatement,omitempty"`
	// Types the block's value satisfies. Output blocks plug into value slots.
	Output any `json:"output,omitempty"`
	// Render value slots inline.
	InputsInline bool `json:"inputsInline,omitempty"`
	// Colour as a hue or a hex string.
	Colour any `json:"colour,omitempty"`
	// Hover text.
	Tooltip string `json:"tooltip,omitempty"`
	// Documentation link.
	HelpURL string `json:"helpUrl,omitempty"`
	// Default checkbox rendering for the block.
	CheckboxMode string `json:"checkboxMode,omitempty" jsonschema:"enum=attribute_token,enum=raw_boolean"`
}

// Arg is one field or slot of a block
type Arg struct {
	// Argument kind.
	Type string `json:"type" jsonschema:"enum=field_input,enum=field_dropdown,enum=field_colour,enum=field_number,enum=field_checkbox,enum=input_value,enum=input_statement,enum=input_dummy"`
	// Name referenced by the code template. Required for everything but input_dummy.
	Name string `json:"name,omitempty"`
	// Default text of a field_input.
	Text string `json:"text,omitempty"`
	// Dropdown entries as [label, value] pairs.
	Options [][]string `json:"options,omitempty"`
	// Default of a field_number, or the hex default of a field_colour.
	Value any `json:"value,omitempty"`
	// Default of a field_colour.
	Colour string `json:"colour,omitempty"`
	// Default of a field_checkbox.
	Checked any `json:"checked,omitempty"`
	// Lower bound of a field_number.
	Min *float64 `json:"min,omitempty"`
	// Upper bound of a field_number.
	Max *float64 `json:"max,omitempty"`
	// Step of a field_number.
	Precision *float64 `json:"precision,omitempty"`
	// Accepted block types of a slot.
	Check any `json:"check,omitempty"`
}

// Manifest is the optional library.yaml of a block library directory
type Manifest struct {
	// Library name.
	Name string `json:"name"`
	// Semantic version checked against --require-library.
	Version string `json:"version"`
	// Free-form description.
	Description string `json:"description,omitempty"`
}

// TutorialFile is a guided tutorial stored as <name>.tutorial.yaml
type TutorialFile struct {
	// Unique tutorial id.
	ID string `json:"id"`
	// Display title.
	Title string `json:"title"`
	// Summary shown in tutorial listings.
	Description string `json:"description,omitempty"`
	// Ordered steps.
	Steps []TutorialStep `json:"steps"`
}

// TutorialStep is one step of a tutorial. Every expectation present must
// hold for the step to pass; a step without expectations passes once the
// workspace holds any block.
type TutorialStep struct {
	// Step title.
	Title string `json:"title,omitempty"`
	// What the learner should do.
	Instructions string `json:"instructions,omitempty"`
	// Extra help shown on request.
	Hint string `json:"hint,omitempty"`
	// Minimum number of blocks per type, counted across the whole workspace.
	ExpectedBlocks map[string]int `json:"expected_blocks,omitempty"`
	// Configuration of the first block of a type.
	ExpectedConfig *ConfigExpectation `json:"expected_config,omitempty"`
	// Literals or regular expressions the generated code must contain.
	ExpectedCodePatterns []CodePattern `json:"expected_code_patterns,omitempty"`
}

// ConfigExpectation checks the first block of a type in depth-first order
type ConfigExpectation struct {
	// Block type to find.
	Type string `json:"type"`
	// Field values compared without type coercion.
	Fields map[string]any `json:"fields,omitempty"`
	// Slots that must hold a block of the given type.
	Inputs map[string]InputExpectation `json:"inputs,omitempty"`
}

// InputExpectation names the block type a slot must hold
type InputExpectation struct {
	// Type of the connected block.
	BlockType string `json:"blockType"`
}

// CodePattern is a literal substring or a {regex, flags} object
type CodePattern struct{}

// JSONSchema describes the two accepted pattern forms
func (CodePattern) JSONSchema() *jsonschema.Schema {
	props := jsonschema.NewProperties()
	props.Set("regex", &jsonschema.Schema{Type: "string", Description: "Regular expression"})
	props.Set("flags", &jsonschema.Schema{Type: "string", Pattern: "^[gimsu]*$", Description: "Flags: i, m and s apply; g and u are ignored"})

	return &jsonschema.Schema{
		OneOf: []*jsonschema.Schema{
			{Type: "string", Description: "Literal substring"},
			{Type: "object", Properties: props, Required: []string{"regex"}, AdditionalProperties: jsonschema.FalseSchema},
		},
	}
}

// Snapshot is a serialized workspace
type Snapshot struct {
	// Top-level block list.
	Blocks *BlockList `json:"blocks,omitempty"`
}

// BlockList holds the root blocks of a snapshot in order
type BlockList struct {
	// Serialization version.
	LanguageVersion int `json:"languageVersion"`
	// Root blocks. Each may continue through next.
	Blocks []Node `json:"blocks"`
}

// Node is one serialized block
type Node struct {
	// Registered block type name.
	Type string `json:"type"`
	// Unique block id. Generated when absent.
	ID string `json:"id,omitempty"`
	// Canvas position.
	X float64 `json:"x,omitempty"`
	// Canvas position.
	Y float64 `json:"y,omitempty"`
	// Scalar field values by field name.
	Fields map[string]any `json:"fields,omitempty"`
	// Connected children by slot name.
	Inputs map[string]Connection `json:"inputs,omitempty"`
	// The block that follows this one.
	Next *Connection `json:"next,omitempty"`
}

// Connection links a slot or next connection to a block
type Connection struct {
	// Connected block.
	Block *Node `json:"block,omitempty"`
	// Placeholder block, used when no block is connected.
	Shadow *Node `json:"shadow,omitempty"`
}

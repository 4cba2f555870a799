package block

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Record is a block type definition as persisted by the schema store.
// Definition follows the widely used visual-block JSON convention
// (type, message0, args0, previousStatement, ...).
type Record struct {
	BlockName    string          `json:"block_name" yaml:"block_name"`
	BlockType    Kind            `json:"block_type" yaml:"block_type"`
	Category     string          `json:"category" yaml:"category"`
	Colour       string          `json:"colour,omitempty" yaml:"colour,omitempty"`
	Definition   json.RawMessage `json:"definition" yaml:"-"`
	CodeTemplate string          `json:"code_template" yaml:"code_template"`
	CheckboxMode CheckboxMode    `json:"checkbox_mode,omitempty" yaml:"checkbox_mode,omitempty"`
}

// definition mirrors the keys of the wire format that carry no null
// semantics. Connection keys are decoded separately because `null`
// means "accepts anything" while an absent key means "no connection".
type definition struct {
	Type         string            `json:"type"`
	Message      string            `json:"message0"`
	Args         []json.RawMessage `json:"args0"`
	InputsInline bool              `json:"inputsInline"`
	Colour       json.RawMessage   `json:"colour"`
	Tooltip      string            `json:"tooltip"`
	HelpURL      string            `json:"helpUrl"`
	CheckboxMode CheckboxMode      `json:"checkboxMode"`
}

type argDefinition struct {
	Type      ArgKind         `json:"type"`
	Name      string          `json:"name"`
	Text      *string         `json:"text"`
	Value     any             `json:"value"`
	Checked   any             `json:"checked"`
	Colour    *string         `json:"colour"`
	Default   any             `json:"default"`
	Options   [][]any         `json:"options"`
	Min       *float64        `json:"min"`
	Max       *float64        `json:"max"`
	Precision *float64        `json:"precision"`
	Check     json.RawMessage `json:"check"`
}

// ParseRecord converts a stored record into a Schema. Only decoding
// problems are reported here; structural rules are enforced by Validate.
func ParseRecord(rec Record) (*Schema, error) {
	raw, err := unwrapDefinition(rec.Definition)
	if err != nil {
		return nil, newMalformed(rec.BlockName, "definition", err.Error())
	}

	shape, def, err := parseDefinition(raw)
	if err != nil {
		return nil, newMalformed(rec.BlockName, "definition", err.Error())
	}

	name := rec.BlockName
	if name == "" {
		name = def.Type
	}

	mode := rec.CheckboxMode
	if mode == "" {
		mode = def.CheckboxMode
	}

	colour := rec.Colour
	if colour == "" {
		colour = colourString(def.Colour)
	}

	return &Schema{
		Name:         name,
		Kind:         Kind(strings.ToLower(string(rec.BlockType))),
		Category:     rec.Category,
		Colour:       colour,
		Shape:        *shape,
		CodeTemplate: rec.CodeTemplate,
		CheckboxMode: mode,
	}, nil
}

// ParseDefinition decodes a definition JSON object into a Shape
func ParseDefinition(raw []byte) (*Shape, error) {
	shape, _, err := parseDefinition(raw)
	return shape, err
}

func parseDefinition(raw []byte) (*Shape, *definition, error) {
	var def definition
	if err := json.Unmarshal(raw, &def); err != nil {
		return nil, nil, fmt.Errorf("invalid definition JSON: %w", err)
	}

	var keys map[string]json.RawMessage
	if err := json.Unmarshal(raw, &keys); err != nil {
		return nil, nil, fmt.Errorf("invalid definition JSON: %w", err)
	}

	shape := &Shape{
		Message: def.Message,
		Inline:  def.InputsInline,
		Tooltip: def.Tooltip,
		HelpURL: def.HelpURL,
	}

	for i, rawArg := range def.Args {
		arg, err := parseArg(rawArg)
		if err != nil {
			return nil, nil, fmt.Errorf("args0[%d]: %w", i, err)
		}
		shape.Args = append(shape.Args, arg)
	}

	var err error
	if shape.Connections.Previous, err = connectionTypes(keys, "previousStatement"); err != nil {
		return nil, nil, err
	}
	if shape.Connections.Next, err = connectionTypes(keys, "nextStatement"); err != nil {
		return nil, nil, err
	}
	if shape.Connections.Output, err = connectionTypes(keys, "output"); err != nil {
		return nil, nil, err
	}

	if def.Type == "" {
		if name, ok := keys["name"]; ok {
			if err := json.Unmarshal(name, &def.Type); err != nil {
				return nil, nil, fmt.Errorf("invalid name: %w", err)
			}
		}
	}

	return shape, &def, nil
}

func parseArg(raw json.RawMessage) (ArgSpec, error) {
	var def argDefinition
	if err := json.Unmarshal(raw, &def); err != nil {
		return ArgSpec{}, fmt.Errorf("invalid arg: %w", err)
	}

	arg := ArgSpec{
		Kind:      def.Type,
		Name:      def.Name,
		Min:       def.Min,
		Max:       def.Max,
		Precision: def.Precision,
	}

	switch def.Type {
	case ArgTextField:
		if def.Text != nil {
			arg.Default = *def.Text
		}
	case ArgColourField:
		if def.Colour != nil {
			arg.Default = *def.Colour
		}
	case ArgNumberField:
		if f, ok := toFloat(def.Value); ok {
			arg.Default = f
		}
	case ArgCheckboxField:
		if def.Checked != nil {
			arg.Default = truthy(def.Checked)
		}
	case ArgDropdownField:
		for j, opt := range def.Options {
			if len(opt) != 2 {
				return ArgSpec{}, fmt.Errorf("dropdown option %d must be a [label, value] pair", j)
			}
			arg.Options = append(arg.Options, Option{
				Label: fmt.Sprint(opt[0]),
				Value: fmt.Sprint(opt[1]),
			})
		}
	}

	if arg.Default == nil && def.Default != nil {
		arg.Default = def.Default
	}

	check, err := decodeTypes(def.Check)
	if err != nil {
		return ArgSpec{}, fmt.Errorf("invalid check: %w", err)
	}
	arg.Check = check

	return arg, nil
}

// connectionTypes returns nil when the key is absent and a (possibly empty)
// list of accepted types when it is present
func connectionTypes(keys map[string]json.RawMessage, key string) (*[]string, error) {
	raw, ok := keys[key]
	if !ok {
		return nil, nil
	}

	types, err := decodeTypes(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", key, err)
	}
	if types == nil {
		types = []string{}
	}
	return &types, nil
}

func decodeTypes(raw json.RawMessage) ([]string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}

	if raw[0] == '"' {
		var single string
		if err := json.Unmarshal(raw, &single); err != nil {
			return nil, err
		}
		if single == "" {
			return nil, nil
		}
		return []string{single}, nil
	}

	var list []string
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// unwrapDefinition accepts a definition stored either as a JSON object or
// as a JSON string containing the object, as text database columns do
func unwrapDefinition(raw json.RawMessage) ([]byte, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, fmt.Errorf("definition is required")
	}

	if raw[0] == '"' {
		var inner string
		if err := json.Unmarshal(raw, &inner); err != nil {
			return nil, fmt.Errorf("invalid definition string: %w", err)
		}
		raw = bytes.TrimSpace([]byte(inner))
	}

	if len(raw) == 0 || raw[0] != '{' {
		return nil, fmt.Errorf("definition must be a JSON object")
	}
	return raw, nil
}

func colourString(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	// hue values are numbers
	return string(raw)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

func truthy(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		return strings.EqualFold(b, "true")
	}
	return false
}

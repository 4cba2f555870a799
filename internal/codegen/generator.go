package codegen

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/lacquerai/blocksmith/internal/block"
)

// SchemaGenerator renders instances of one block type by filling the
// schema's code template
type SchemaGenerator struct {
	schema   *block.Schema
	template *Template
	// contentSlot is the statement slot that also fills {CONTENT}
	contentSlot string
}

var _ block.Generator = (*SchemaGenerator)(nil)

// NewGenerator builds the generator for a schema
func NewGenerator(schema *block.Schema) *SchemaGenerator {
	g := &SchemaGenerator{
		schema:   schema,
		template: ParseTemplate(schema.CodeTemplate),
	}

	for _, arg := range schema.Shape.NamedArgs() {
		if arg.Kind == block.ArgStatementSlot {
			g.contentSlot = arg.Name
			break
		}
	}

	return g
}

// Template returns the parsed code template
func (g *SchemaGenerator) Template() *Template {
	return g.template
}

// Generate renders inst. Statement blocks always end with a newline so a
// parent slot can concatenate them; value blocks are returned as atomic
// expressions.
func (g *SchemaGenerator) Generate(ctx block.GenContext, inst *block.Instance) (block.Code, error) {
	values := make(map[string]string, len(g.schema.Shape.Args)+1)

	for _, arg := range g.schema.Shape.NamedArgs() {
		var value string
		switch arg.Kind {
		case block.ArgCheckboxField:
			value = checkboxValue(g.schema.CheckboxMode, arg.Name, inst.Fields[arg.Name])
		case block.ArgTextField, block.ArgDropdownField, block.ArgColourField, block.ArgNumberField:
			value = FieldString(inst.Fields[arg.Name])
		case block.ArgValueSlot:
			value = ctx.ValueToCode(inst, arg.Name)
		case block.ArgStatementSlot:
			value = normalizeStatements(ctx.StatementToCode(inst, arg.Name))
			if arg.Name == g.contentSlot {
				if _, named := values[ContentAlias]; !named {
					values[ContentAlias] = value
				}
			}
		default:
			continue
		}
		values[arg.Name] = value
	}

	text := g.template.Render(values)

	if g.schema.IsValue() {
		return block.Code{Text: text, Order: block.PrecedenceAtomic, Value: true}, nil
	}

	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	return block.Code{Text: text}, nil
}

// normalizeStatements collapses trailing newlines of a slot's code to one
func normalizeStatements(code string) string {
	trimmed := strings.TrimRight(code, "\n")
	if trimmed == "" {
		return ""
	}
	return trimmed + "\n"
}

func checkboxValue(mode block.CheckboxMode, name string, v any) string {
	checked := isChecked(v)
	if mode == block.CheckboxAttributeToken {
		if checked {
			return strings.ToLower(name)
		}
		return ""
	}

	if checked {
		return "TRUE"
	}
	return "FALSE"
}

func isChecked(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		return strings.EqualFold(b, "true")
	}
	return false
}

// FieldString converts a field value to the text substituted into a template
func FieldString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case json.Number:
		return val.String()
	case bool:
		if val {
			return "TRUE"
		}
		return "FALSE"
	default:
		return fmt.Sprintf("%v", val)
	}
}

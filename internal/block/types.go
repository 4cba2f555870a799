package block

// Kind is the top-level toolbox grouping of a block type
type Kind string

const (
	KindHTML Kind = "html"
	KindCSS  Kind = "css"
)

// ArgKind identifies what an entry of a block's args list is
type ArgKind string

const (
	ArgTextField     ArgKind = "field_input"
	ArgDropdownField ArgKind = "field_dropdown"
	ArgColourField   ArgKind = "field_colour"
	ArgNumberField   ArgKind = "field_number"
	ArgCheckboxField ArgKind = "field_checkbox"
	ArgValueSlot     ArgKind = "input_value"
	ArgStatementSlot ArgKind = "input_statement"
	ArgDummy         ArgKind = "input_dummy"
)

// IsField reports whether the arg carries a field value
func (k ArgKind) IsField() bool {
	switch k {
	case ArgTextField, ArgDropdownField, ArgColourField, ArgNumberField, ArgCheckboxField:
		return true
	}
	return false
}

// IsSlot reports whether the arg accepts connected child blocks
func (k ArgKind) IsSlot() bool {
	return k == ArgValueSlot || k == ArgStatementSlot
}

// Known reports whether the kind is one this package understands
func (k ArgKind) Known() bool {
	return k.IsField() || k.IsSlot() || k == ArgDummy
}

// CheckboxMode selects how checkbox fields surface in generated code
type CheckboxMode string

const (
	// CheckboxAttributeToken inserts the lowercased field name when checked
	// and nothing when unchecked, e.g. `<input {REQUIRED}>`.
	CheckboxAttributeToken CheckboxMode = "attribute_token"
	// CheckboxRawBoolean inserts TRUE or FALSE.
	CheckboxRawBoolean CheckboxMode = "raw_boolean"
)

// Option is one dropdown entry, a [label, value] pair on the wire
type Option struct {
	Label string
	Value string
}

// ArgSpec describes one positional argument of a block's message
type ArgSpec struct {
	Kind      ArgKind
	Name      string
	Default   any
	Options   []Option // dropdown
	Min       *float64 // number
	Max       *float64 // number
	Precision *float64 // number
	Check     []string // accepted connection types for slots, empty accepts any
}

// Connections describes how instances chain and plug into slots.
// A nil pointer means the connection does not exist; an empty slice of
// types means it accepts anything.
type Connections struct {
	Previous *[]string
	Next     *[]string
	Output   *[]string
}

// HasOutput reports whether the block produces a value rather than a statement
func (c Connections) HasOutput() bool {
	return c.Output != nil
}

// Shape is the visual and interactive form of a block
type Shape struct {
	Message     string
	Args        []ArgSpec
	Connections Connections
	Inline      bool
	Tooltip     string
	HelpURL     string
}

// NamedArgs returns the args that have a name, in declaration order
func (s Shape) NamedArgs() []ArgSpec {
	named := make([]ArgSpec, 0, len(s.Args))
	for _, arg := range s.Args {
		if arg.Name != "" {
			named = append(named, arg)
		}
	}
	return named
}

// Arg looks up an arg by name
func (s Shape) Arg(name string) (ArgSpec, bool) {
	for _, arg := range s.Args {
		if arg.Name == name {
			return arg, true
		}
	}
	return ArgSpec{}, false
}

// Schema is a block type definition
type Schema struct {
	Name         string
	Kind         Kind
	Category     string
	Colour       string
	Shape        Shape
	CodeTemplate string
	CheckboxMode CheckboxMode
}

// IsValue reports whether instances of the schema plug into value slots
func (s *Schema) IsValue() bool {
	return s.Shape.Connections.HasOutput()
}

// HasCheckbox reports whether any arg is a checkbox field
func (s *Schema) HasCheckbox() bool {
	for _, arg := range s.Shape.Args {
		if arg.Kind == ArgCheckboxField {
			return true
		}
	}
	return false
}

// DefaultFields returns the initial field values of a fresh instance
func (s *Schema) DefaultFields() map[string]any {
	fields := make(map[string]any)
	for _, arg := range s.Shape.Args {
		if !arg.Kind.IsField() || arg.Name == "" {
			continue
		}

		switch {
		case arg.Default != nil:
			fields[arg.Name] = arg.Default
		case arg.Kind == ArgDropdownField && len(arg.Options) > 0:
			fields[arg.Name] = arg.Options[0].Value
		case arg.Kind == ArgCheckboxField:
			fields[arg.Name] = false
		case arg.Kind == ArgNumberField:
			fields[arg.Name] = float64(0)
		default:
			fields[arg.Name] = ""
		}
	}
	return fields
}

// Instance is one placed node in a workspace graph.
// Inputs holds the child of a value slot or the head of a statement
// slot's chain; statement chains continue through Next.
type Instance struct {
	ID     string
	Type   string
	Fields map[string]any
	Inputs map[string]*Instance
	// InputOrder keeps the order slots were connected in, for traversal.
	InputOrder []string
	Next       *Instance
	X, Y       float64
}

// SetInput connects child to the named slot, replacing any previous child
func (i *Instance) SetInput(slot string, child *Instance) {
	if i.Inputs == nil {
		i.Inputs = make(map[string]*Instance)
	}
	if _, exists := i.Inputs[slot]; !exists {
		i.InputOrder = append(i.InputOrder, slot)
	}
	i.Inputs[slot] = child
}

// Input returns the child connected to a slot
func (i *Instance) Input(slot string) *Instance {
	if i.Inputs == nil {
		return nil
	}
	return i.Inputs[slot]
}

// Chain returns the instance followed by every block linked through Next
func (i *Instance) Chain() []*Instance {
	var chain []*Instance
	for cur := i; cur != nil; cur = cur.Next {
		chain = append(chain, cur)
	}
	return chain
}

// Walk visits the instance, its inputs in connection order, then its next
// chain, depth first. Returning false from fn stops the walk.
func (i *Instance) Walk(fn func(*Instance) bool) bool {
	for cur := i; cur != nil; cur = cur.Next {
		if !fn(cur) {
			return false
		}
		for _, slot := range cur.InputOrder {
			child := cur.Inputs[slot]
			if child == nil {
				continue
			}
			if !child.Walk(fn) {
				return false
			}
		}
	}
	return true
}

// Precedence is the binding strength of value code. HTML and CSS fragments
// have no operators, so every value is atomic.
type Precedence int

const PrecedenceAtomic Precedence = 0

// Code is the output of generating a single block
type Code struct {
	Text  string
	Order Precedence
	Value bool
}

// GenContext gives generators access to child code without knowing how
// children are dispatched
type GenContext interface {
	// ValueToCode generates the child plugged into a value slot
	ValueToCode(inst *Instance, slot string) string
	// StatementToCode generates the chain connected to a statement slot
	StatementToCode(inst *Instance, slot string) string
}

// Generator renders one block instance of a specific type into source text
type Generator interface {
	Generate(ctx GenContext, inst *Instance) (Code, error)
}

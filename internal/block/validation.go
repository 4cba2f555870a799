package block

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// ErrMalformedSchema is wrapped by every schema validation failure
var ErrMalformedSchema = errors.New("malformed block schema")

// ValidationError represents a single problem found in a schema
type ValidationError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// Error implements the error interface
func (ve *ValidationError) Error() string {
	if ve.Path != "" {
		return fmt.Sprintf("%s: %s", ve.Path, ve.Message)
	}
	return ve.Message
}

// ValidationResult contains the results of schema validation
type ValidationResult struct {
	Valid  bool               `json:"valid"`
	Errors []*ValidationError `json:"errors,omitempty"`
}

// AddError adds a validation error
func (vr *ValidationResult) AddError(path, message string) {
	vr.Valid = false
	vr.Errors = append(vr.Errors, &ValidationError{
		Path:    path,
		Message: message,
	})
}

// AddFieldError adds a validation error for a specific field
func (vr *ValidationResult) AddFieldError(path, field, message string) {
	vr.Valid = false
	vr.Errors = append(vr.Errors, &ValidationError{
		Path:    path,
		Field:   field,
		Message: message,
	})
}

// HasErrors returns true if there are validation errors
func (vr *ValidationResult) HasErrors() bool {
	return len(vr.Errors) > 0
}

// MalformedSchemaError reports why a schema cannot be registered
type MalformedSchemaError struct {
	Name   string
	Errors []*ValidationError
}

func newMalformed(name, path, message string) *MalformedSchemaError {
	return &MalformedSchemaError{
		Name:   name,
		Errors: []*ValidationError{{Path: path, Message: message}},
	}
}

func (e *MalformedSchemaError) Error() string {
	messages := make([]string, 0, len(e.Errors))
	for _, err := range e.Errors {
		messages = append(messages, err.Error())
	}

	name := e.Name
	if name == "" {
		name = "<unnamed>"
	}
	return fmt.Sprintf("malformed block schema %q: %s", name, strings.Join(messages, "; "))
}

func (e *MalformedSchemaError) Unwrap() error {
	return ErrMalformedSchema
}

var (
	blockNamePattern  = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_\-]*$`)
	argNamePattern    = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	messageRefPattern = regexp.MustCompile(`%(\d+)`)
)

// Validate checks a schema for structural problems. The returned error is
// a *MalformedSchemaError, or nil when the schema can be registered.
func Validate(s *Schema) error {
	if s == nil {
		return newMalformed("", "", "schema is nil")
	}

	result := ValidateSchema(s)
	if !result.HasErrors() {
		return nil
	}
	return &MalformedSchemaError{Name: s.Name, Errors: result.Errors}
}

// ValidateSchema collects every structural problem of a schema
func ValidateSchema(s *Schema) *ValidationResult {
	result := &ValidationResult{Valid: true}

	if s.Name == "" {
		result.AddFieldError("", "name", "block name is required")
	} else if !blockNamePattern.MatchString(s.Name) {
		result.AddFieldError("", "name", fmt.Sprintf("invalid block name %q", s.Name))
	}

	switch s.Kind {
	case KindHTML, KindCSS:
	case "":
		result.AddFieldError("", "block_type", "block type is required")
	default:
		result.AddFieldError("", "block_type", fmt.Sprintf("unsupported block type %q (expected html or css)", s.Kind))
	}

	if strings.TrimSpace(s.Shape.Message) == "" {
		result.AddFieldError("definition", "message0", "message is required")
	}

	validateArgs(s, result)
	validateMessageRefs(s, result)

	if s.Shape.Connections.Output != nil && s.Shape.Connections.Previous != nil {
		result.AddError("definition", "a block cannot have both an output and a previous connection")
	}

	switch s.CheckboxMode {
	case "":
		if s.HasCheckbox() {
			result.AddFieldError("", "checkbox_mode", "checkbox fields require checkbox_mode (attribute_token or raw_boolean)")
		}
	case CheckboxAttributeToken, CheckboxRawBoolean:
	default:
		result.AddFieldError("", "checkbox_mode", fmt.Sprintf("unsupported checkbox mode %q", s.CheckboxMode))
	}

	return result
}

func validateArgs(s *Schema, result *ValidationResult) {
	seen := make(map[string]bool)
	for i, arg := range s.Shape.Args {
		path := fmt.Sprintf("definition.args0[%d]", i)

		if !arg.Kind.Known() {
			result.AddFieldError(path, "type", fmt.Sprintf("unknown arg type %q", arg.Kind))
			continue
		}

		if arg.Kind != ArgDummy && arg.Name == "" {
			result.AddFieldError(path, "name", fmt.Sprintf("%s requires a name", arg.Kind))
		}

		if arg.Name != "" {
			if !argNamePattern.MatchString(arg.Name) {
				result.AddFieldError(path, "name", fmt.Sprintf("invalid arg name %q", arg.Name))
			}
			if seen[arg.Name] {
				result.AddFieldError(path, "name", fmt.Sprintf("duplicate arg name %q", arg.Name))
			}
			seen[arg.Name] = true
		}

		switch arg.Kind {
		case ArgDropdownField:
			if len(arg.Options) == 0 {
				result.AddFieldError(path, "options", "dropdown requires at least one option")
			}
		case ArgNumberField:
			if arg.Min != nil && arg.Max != nil && *arg.Min > *arg.Max {
				result.AddFieldError(path, "min", "min must not exceed max")
			}
			if arg.Precision != nil && *arg.Precision < 0 {
				result.AddFieldError(path, "precision", "precision must not be negative")
			}
		}
	}
}

// validateMessageRefs checks that %n placeholders and args line up: every
// reference points at an arg and every arg is referenced exactly once
func validateMessageRefs(s *Schema, result *ValidationResult) {
	counts := make(map[int]int)
	for _, match := range messageRefPattern.FindAllStringSubmatch(s.Shape.Message, -1) {
		n, err := strconv.Atoi(match[1])
		if err != nil {
			continue
		}
		counts[n]++
	}

	refs := make([]int, 0, len(counts))
	for n := range counts {
		refs = append(refs, n)
	}
	sort.Ints(refs)

	for _, n := range refs {
		if n < 1 || n > len(s.Shape.Args) {
			result.AddFieldError("definition", "message0", fmt.Sprintf("%%%d does not match any arg (have %d)", n, len(s.Shape.Args)))
		} else if counts[n] > 1 {
			result.AddFieldError("definition", "message0", fmt.Sprintf("%%%d is referenced more than once", n))
		}
	}

	for i := range s.Shape.Args {
		if counts[i+1] == 0 {
			result.AddFieldError("definition", "message0", fmt.Sprintf("arg %d is not referenced in the message", i+1))
		}
	}
}

// Package tutorial decides whether a learner's workspace satisfies the
// expectations of a tutorial step and tracks progression through steps.
package tutorial

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Step is one stage of a tutorial. Every expectation that is present must
// hold for the step to pass; a step with none is satisfied by any
// non-empty workspace.
type Step struct {
	Title                string             `json:"title,omitempty" yaml:"title,omitempty"`
	Instructions         string             `json:"instructions,omitempty" yaml:"instructions,omitempty"`
	Hint                 string             `json:"hint,omitempty" yaml:"hint,omitempty"`
	ExpectedBlocks       map[string]int     `json:"expected_blocks,omitempty" yaml:"expected_blocks,omitempty"`
	ExpectedConfig       *ConfigExpectation `json:"expected_config,omitempty" yaml:"expected_config,omitempty"`
	ExpectedCodePatterns []Pattern          `json:"expected_code_patterns,omitempty" yaml:"expected_code_patterns,omitempty"`
}

// HasExpectations reports whether any matcher is declared
func (s *Step) HasExpectations() bool {
	return len(s.ExpectedBlocks) > 0 || s.ExpectedConfig != nil || len(s.ExpectedCodePatterns) > 0
}

// ConfigExpectation requires the first block of Type to carry the given
// field values and to have blocks of the given types in its inputs
type ConfigExpectation struct {
	Type   string                      `json:"type" yaml:"type"`
	Fields map[string]any              `json:"fields,omitempty" yaml:"fields,omitempty"`
	Inputs map[string]InputExpectation `json:"inputs,omitempty" yaml:"inputs,omitempty"`
}

// InputExpectation names the block type expected in a slot
type InputExpectation struct {
	BlockType string `json:"blockType" yaml:"blockType"`
}

// UnmarshalYAML converts integer field literals to float64 so they compare
// equal to numbers decoded from snapshot JSON
func (c *ConfigExpectation) UnmarshalYAML(value *yaml.Node) error {
	type plain ConfigExpectation
	var raw plain
	if err := value.Decode(&raw); err != nil {
		return err
	}
	*c = ConfigExpectation(raw)
	for k, v := range c.Fields {
		c.Fields[k] = normalizeLiteral(v)
	}
	return nil
}

func normalizeLiteral(v any) any {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case uint64:
		return float64(n)
	}
	return v
}

// Pattern is a code expectation: either a literal substring or a regular
// expression written as {regex, flags}
type Pattern struct {
	Literal string
	Regex   string
	Flags   string

	compiled *regexp.Regexp
}

// Literal builds a substring pattern
func Literal(s string) Pattern {
	return Pattern{Literal: s}
}

// Regex builds and compiles a regular expression pattern
func Regex(expr, flags string) (Pattern, error) {
	p := Pattern{Regex: expr, Flags: flags}
	if err := p.compile(); err != nil {
		return Pattern{}, err
	}
	return p, nil
}

// IsRegex reports whether the pattern is a regular expression
func (p Pattern) IsRegex() bool {
	return p.Regex != ""
}

// Matches reports whether code satisfies the pattern
func (p Pattern) Matches(code string) bool {
	if !p.IsRegex() {
		return strings.Contains(code, p.Literal)
	}
	re := p.compiled
	if re == nil {
		if err := p.compile(); err != nil {
			return false
		}
		re = p.compiled
	}
	return re.MatchString(code)
}

func (p Pattern) String() string {
	if p.IsRegex() {
		return "/" + p.Regex + "/" + p.Flags
	}
	return fmt.Sprintf("%q", p.Literal)
}

// compile translates flags to inline modifiers. The global flag has no
// meaning for a match test and is ignored.
func (p *Pattern) compile() error {
	var mods strings.Builder
	for _, f := range p.Flags {
		switch f {
		case 'i', 'm', 's':
			mods.WriteRune(f)
		case 'g', 'u':
		default:
			return fmt.Errorf("unsupported regex flag %q", f)
		}
	}

	expr := p.Regex
	if mods.Len() > 0 {
		expr = "(?" + mods.String() + ")" + expr
	}

	re, err := regexp.Compile(expr)
	if err != nil {
		return fmt.Errorf("invalid code pattern %q: %w", p.Regex, err)
	}
	p.compiled = re
	return nil
}

type regexPattern struct {
	Regex string `json:"regex" yaml:"regex"`
	Flags string `json:"flags,omitempty" yaml:"flags,omitempty"`
}

// UnmarshalJSON accepts either a string or a {regex, flags} object
func (p *Pattern) UnmarshalJSON(data []byte) error {
	var literal string
	if err := json.Unmarshal(data, &literal); err == nil {
		*p = Literal(literal)
		return nil
	}

	var rp regexPattern
	if err := json.Unmarshal(data, &rp); err != nil {
		return fmt.Errorf("code pattern must be a string or {regex, flags}: %w", err)
	}
	return p.fromRegex(rp)
}

// MarshalJSON writes literals as strings and regexes as objects
func (p Pattern) MarshalJSON() ([]byte, error) {
	if p.IsRegex() {
		return json.Marshal(regexPattern{Regex: p.Regex, Flags: p.Flags})
	}
	return json.Marshal(p.Literal)
}

// UnmarshalYAML accepts either a scalar or a {regex, flags} mapping
func (p *Pattern) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		*p = Literal(value.Value)
		return nil
	case yaml.MappingNode:
		var rp regexPattern
		if err := value.Decode(&rp); err != nil {
			return err
		}
		return p.fromRegex(rp)
	default:
		return fmt.Errorf("line %d: code pattern must be a string or {regex, flags}", value.Line)
	}
}

// MarshalYAML mirrors MarshalJSON
func (p Pattern) MarshalYAML() (any, error) {
	if p.IsRegex() {
		return regexPattern{Regex: p.Regex, Flags: p.Flags}, nil
	}
	return p.Literal, nil
}

func (p *Pattern) fromRegex(rp regexPattern) error {
	if rp.Regex == "" {
		return fmt.Errorf("code pattern regex must not be empty")
	}
	compiled, err := Regex(rp.Regex, rp.Flags)
	if err != nil {
		return err
	}
	*p = compiled
	return nil
}

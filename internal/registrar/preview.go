package registrar

import (
	"github.com/lacquerai/blocksmith/internal/block"
	"github.com/lacquerai/blocksmith/internal/codegen"
	"github.com/lacquerai/blocksmith/internal/workspace"
	"github.com/rs/zerolog/log"
)

// PreviewResult is the single instance rendered for a live-edited schema
type PreviewResult struct {
	Schema      *block.Schema        `json:"-"`
	Instance    *block.Instance      `json:"-"`
	Code        string               `json:"code"`
	Diagnostics []codegen.Diagnostic `json:"diagnostics,omitempty"`
}

// Previewer keeps exactly one ad-hoc block type registered while a schema
// is being edited. Each update replaces the previous type in one step, so
// repeated edits never accumulate registry entries.
type Previewer struct {
	registry *block.Registry
	compiler *codegen.Compiler
	current  string
	last     *PreviewResult
}

// NewPreviewer creates a previewer that registers into registry
func NewPreviewer(registry *block.Registry) *Previewer {
	return &Previewer{
		registry: registry,
		compiler: codegen.NewCompiler(registry),
	}
}

// Update registers schema in place of the previous preview type and
// renders one default instance of it. A malformed schema returns an error
// and keeps the previous preview.
func (p *Previewer) Update(schema *block.Schema) (*PreviewResult, error) {
	entry, err := NewEntry(schema)
	if err != nil {
		log.Debug().Err(err).Msg("Preview schema rejected")
		return nil, err
	}

	if err := p.registry.Replace(p.current, entry); err != nil {
		return nil, err
	}
	p.current = schema.Name

	inst := workspace.NewInstance(schema)
	code, diags := p.compiler.Generate(inst)

	p.last = &PreviewResult{
		Schema:      schema,
		Instance:    inst,
		Code:        code.Text,
		Diagnostics: diags,
	}
	return p.last, nil
}

// UpdateRecord parses a record and previews it
func (p *Previewer) UpdateRecord(rec block.Record) (*PreviewResult, error) {
	schema, err := block.ParseRecord(rec)
	if err != nil {
		return nil, err
	}
	return p.Update(schema)
}

// Current returns the name of the registered preview type, if any
func (p *Previewer) Current() string {
	return p.current
}

// Last returns the most recent successful preview
func (p *Previewer) Last() *PreviewResult {
	return p.last
}

// Discard unregisters the preview type
func (p *Previewer) Discard() {
	if p.current != "" {
		p.registry.Unregister(p.current)
	}
	p.current = ""
	p.last = nil
}

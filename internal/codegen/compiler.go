package codegen

import (
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/lacquerai/blocksmith/internal/block"
	"github.com/lacquerai/blocksmith/internal/workspace"
	"github.com/rs/zerolog/log"
)

// ErrDanglingTypeReference is wrapped when a graph node names a type that
// is not registered
var ErrDanglingTypeReference = errors.New("dangling block type reference")

// DanglingTypeReferenceError identifies the node whose type is unknown
type DanglingTypeReferenceError struct {
	BlockID string
	Type    string
}

func (e *DanglingTypeReferenceError) Error() string {
	return fmt.Sprintf("block %s references unregistered type %q", e.BlockID, e.Type)
}

func (e *DanglingTypeReferenceError) Unwrap() error {
	return ErrDanglingTypeReference
}

// Diagnostic records a subtree that compiled to nothing
type Diagnostic struct {
	BlockID   string `json:"block_id"`
	BlockType string `json:"block_type"`
	Message   string `json:"message"`
	Err       error  `json:"-"`
}

// Result is the output of compiling a workspace
type Result struct {
	Code        string       `json:"code"`
	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`
}

// Compiler turns block instances into source text using the generators
// installed in a registry. It keeps no state between calls.
type Compiler struct {
	registry *block.Registry
}

// NewCompiler creates a compiler bound to a registry
func NewCompiler(registry *block.Registry) *Compiler {
	return &Compiler{registry: registry}
}

// Compile concatenates the code of every root chain in root order
func (c *Compiler) Compile(ws *workspace.Workspace) string {
	return c.CompileWithDiagnostics(ws).Code
}

// CompileWithDiagnostics compiles the workspace and reports every subtree
// that was skipped
func (c *Compiler) CompileWithDiagnostics(ws *workspace.Workspace) Result {
	run := &pass{registry: c.registry}

	var out strings.Builder
	for _, root := range ws.Roots() {
		out.WriteString(run.chain(root))
	}

	return Result{Code: out.String(), Diagnostics: run.diagnostics}
}

// CompileByKind compiles html and css roots separately. A chain is filed
// under the kind of its first registered block; unregistered blocks are
// skipped with a diagnostic.
func (c *Compiler) CompileByKind(ws *workspace.Workspace) (map[block.Kind]string, []Diagnostic) {
	run := &pass{registry: c.registry}
	parts := make(map[block.Kind]*strings.Builder)

	for _, root := range ws.Roots() {
		code := run.chain(root)

		kind, ok := c.chainKind(root)
		if !ok {
			continue
		}
		if parts[kind] == nil {
			parts[kind] = &strings.Builder{}
		}
		parts[kind].WriteString(code)
	}

	out := make(map[block.Kind]string, len(parts))
	for kind, b := range parts {
		out[kind] = b.String()
	}
	return out, run.diagnostics
}

func (c *Compiler) chainKind(head *block.Instance) (block.Kind, bool) {
	for cur := head; cur != nil; cur = cur.Next {
		if schema, ok := c.registry.Schema(cur.Type); ok {
			return schema.Kind, true
		}
	}
	return "", false
}

// Document wraps the compiled workspace in a standalone HTML page with css
// roots in the head and html roots in the body
func (c *Compiler) Document(title string, ws *workspace.Workspace) (string, []Diagnostic) {
	parts, diags := c.CompileByKind(ws)

	var doc strings.Builder
	doc.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n")
	doc.WriteString("<title>" + html.EscapeString(title) + "</title>\n")
	if css := parts[block.KindCSS]; css != "" {
		doc.WriteString("<style>\n" + css + "</style>\n")
	}
	doc.WriteString("</head>\n<body>\n")
	doc.WriteString(parts[block.KindHTML])
	doc.WriteString("</body>\n</html>\n")

	return doc.String(), diags
}

// Generate renders a single instance without its next chain
func (c *Compiler) Generate(inst *block.Instance) (block.Code, []Diagnostic) {
	run := &pass{registry: c.registry}
	code := run.generate(inst)
	return code, run.diagnostics
}

// pass carries the diagnostics of one compilation
type pass struct {
	registry    *block.Registry
	diagnostics []Diagnostic
}

var _ block.GenContext = (*pass)(nil)

func (p *pass) ValueToCode(inst *block.Instance, slot string) string {
	child := inst.Input(slot)
	if child == nil {
		return ""
	}
	return p.generate(child).Text
}

func (p *pass) StatementToCode(inst *block.Instance, slot string) string {
	child := inst.Input(slot)
	if child == nil {
		return ""
	}
	return p.chain(child)
}

func (p *pass) chain(head *block.Instance) string {
	var out strings.Builder
	for cur := head; cur != nil; cur = cur.Next {
		out.WriteString(p.generate(cur).Text)
	}
	return out.String()
}

// generate dispatches to the instance's generator. Any failure inside the
// subtree is downgraded to empty output so siblings still compile.
func (p *pass) generate(inst *block.Instance) (code block.Code) {
	entry, ok := p.registry.Lookup(inst.Type)
	if !ok {
		p.fail(inst, &DanglingTypeReferenceError{BlockID: inst.ID, Type: inst.Type})
		return block.Code{}
	}

	defer func() {
		if r := recover(); r != nil {
			p.fail(inst, fmt.Errorf("generator for %q panicked: %v", inst.Type, r))
			code = block.Code{}
		}
	}()

	code, err := entry.Generator.Generate(p, inst)
	if err != nil {
		p.fail(inst, fmt.Errorf("generator for %q failed: %w", inst.Type, err))
		return block.Code{}
	}
	return code
}

func (p *pass) fail(inst *block.Instance, err error) {
	p.diagnostics = append(p.diagnostics, Diagnostic{
		BlockID:   inst.ID,
		BlockType: inst.Type,
		Message:   err.Error(),
		Err:       err,
	})

	log.Warn().
		Str("block_id", inst.ID).
		Str("block_type", inst.Type).
		Err(err).
		Msg("Skipping block subtree")
}

package codegen

import (
	"errors"
	"fmt"
	"testing"

	"github.com/lacquerai/blocksmith/internal/block"
	"github.com/lacquerai/blocksmith/internal/testhelper"
)

func newTestRegistry(t *testing.T) *block.Registry {
	t.Helper()

	registry := block.NewRegistry()
	for _, schema := range testhelper.Schemas() {
		if err := block.Validate(schema); err != nil {
			t.Fatalf("fixture %s is invalid: %v", schema.Name, err)
		}
		if err := registry.Register(&block.Entry{Schema: schema, Generator: NewGenerator(schema)}); err != nil {
			t.Fatalf("failed to register %s: %v", schema.Name, err)
		}
	}
	return registry
}

// builder hands out predictable ids so failures are easy to read
type builder struct {
	n int
}

func (b *builder) inst(typ string, fields map[string]any) *block.Instance {
	b.n++
	if fields == nil {
		fields = map[string]any{}
	}
	return &block.Instance{ID: fmt.Sprintf("%s_%d", typ, b.n), Type: typ, Fields: fields}
}

func (b *builder) text(s string) *block.Instance {
	return b.inst("html_text", map[string]any{"TEXT": s})
}

func chain(blocks ...*block.Instance) *block.Instance {
	for i := 0; i < len(blocks)-1; i++ {
		blocks[i].Next = blocks[i+1]
	}
	return blocks[0]
}

type panicGenerator struct{}

func (panicGenerator) Generate(block.GenContext, *block.Instance) (block.Code, error) {
	panic("template exploded")
}

type failingGenerator struct{}

func (failingGenerator) Generate(block.GenContext, *block.Instance) (block.Code, error) {
	return block.Code{}, errors.New("cannot render")
}

func registerStub(t *testing.T, registry *block.Registry, name string, gen block.Generator) {
	t.Helper()
	schema := &block.Schema{Name: name, Kind: block.KindHTML, Shape: block.Shape{Message: name}}
	if err := registry.Register(&block.Entry{Schema: schema, Generator: gen}); err != nil {
		t.Fatal(err)
	}
}

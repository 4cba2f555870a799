package workspace_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/lacquerai/blocksmith/internal/block"
	"github.com/lacquerai/blocksmith/internal/codegen"
	"github.com/lacquerai/blocksmith/internal/workspace"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func samplePage() *workspace.Workspace {
	ws := workspace.New()

	div := element("main", "section")
	div.X, div.Y = 20, 40
	link := &block.Instance{ID: "link", Type: "html_link", Fields: map[string]any{"TEXT": "docs"}}
	link.SetInput("HREF", &block.Instance{ID: "url", Type: "html_url", Fields: map[string]any{"URL": "/docs"}})
	div.SetInput("CONTENT", text("greeting", "Hello"))
	div.Input("CONTENT").Next = link
	ws.Add(div)

	rule := &block.Instance{ID: "rule", Type: "css_rule", Fields: map[string]any{"SELECTOR": "a"}}
	rule.SetInput("DECLARATIONS", &block.Instance{
		ID:     "width",
		Type:   "css_width",
		Fields: map[string]any{"WIDTH": float64(12)},
		Next: &block.Instance{
			ID:     "colour",
			Type:   "css_property",
			Fields: map[string]any{"PROPERTY": "color", "VALUE": "teal"},
		},
	})
	ws.Add(rule)

	ws.Add(&block.Instance{ID: "input", Type: "html_input", Fields: map[string]any{"NAME": "q", "REQUIRED": false}})
	return ws
}

func TestSerialize(t *testing.T) {
	snap := workspace.Serialize(samplePage())

	roots := snap.Roots()
	require.Len(t, roots, 3)
	assert.Equal(t, "html_element", roots[0].Type)
	assert.Equal(t, float64(20), roots[0].X)
	assert.Equal(t, "greeting", roots[0].Input("CONTENT").ID)
	assert.Equal(t, "link", roots[0].Input("CONTENT").Next.Block.ID)
	assert.Equal(t, "url", roots[0].Input("CONTENT").Next.Block.Input("HREF").ID)

	data, err := json.Marshal(snap)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), `{"blocks":{"languageVersion":0,"blocks":[{"type":"html_element","id":"main","x":20,"y":40,"fields":{"TAG":"section"},"inputs":{"CONTENT":{"block":`), string(data))
}

func TestRoundTrip(t *testing.T) {
	registry := newRegistry(t)
	compiler := codegen.NewCompiler(registry)
	original := samplePage()

	data, err := workspace.Marshal(original)
	require.NoError(t, err)

	restored, err := workspace.Unmarshal(data, registry)
	require.NoError(t, err)

	assert.Equal(t, compiler.Compile(original), compiler.Compile(restored))
	assert.Equal(t, original.Len(), restored.Len())

	again, err := workspace.Marshal(restored)
	require.NoError(t, err)
	assert.JSONEq(t, string(data), string(again))
}

func TestUnmarshal_PreservesInputOrder(t *testing.T) {
	registry := newRegistry(t)

	data := []byte(`{"blocks": {"languageVersion": 0, "blocks": [{
		"type": "html_link", "id": "l",
		"fields": {"TEXT": "x"},
		"inputs": {"HREF": {"block": {"type": "html_url", "id": "u", "fields": {"URL": "/"}}}}
	}, {
		"type": "css_rule", "id": "r",
		"inputs": {"DECLARATIONS": {"shadow": {"type": "css_width", "id": "w", "fields": {"WIDTH": 3}}}}
	}]}}`)

	ws, err := workspace.Unmarshal(data, registry)
	require.NoError(t, err)
	require.Len(t, ws.Roots(), 2)

	link := ws.Roots()[0]
	assert.Equal(t, []string{"HREF"}, link.InputOrder)
	assert.Equal(t, "u", link.Input("HREF").ID)

	rule := ws.Roots()[1]
	require.NotNil(t, rule.Input("DECLARATIONS"), "shadow blocks are read as blocks")
	assert.Equal(t, float64(3), rule.Input("DECLARATIONS").Fields["WIDTH"])

	assert.Equal(t, "<a href=\"/\">x</a>\n {\n  width: 3px;\n}\n", codegen.NewCompiler(registry).Compile(ws))
}

func TestUnmarshal_AssignsMissingIDs(t *testing.T) {
	registry := newRegistry(t)

	ws, err := workspace.Unmarshal([]byte(`{"blocks": {"blocks": [{"type": "html_text", "fields": {"TEXT": "a"}}]}}`), registry)
	require.NoError(t, err)
	assert.NotEmpty(t, ws.Roots()[0].ID)
}

func TestUnmarshal_Empty(t *testing.T) {
	registry := newRegistry(t)

	for _, data := range []string{`{}`, `{"blocks": {"languageVersion": 0, "blocks": []}}`} {
		ws, err := workspace.Unmarshal([]byte(data), registry)
		require.NoError(t, err)
		assert.True(t, ws.IsEmpty())
	}
}

func TestUnmarshal_Invalid(t *testing.T) {
	registry := newRegistry(t)

	tests := []struct {
		name    string
		data    string
		wantErr string
	}{
		{
			name:    "malformed json",
			data:    `{"blocks": `,
			wantErr: "malformed JSON",
		},
		{
			name:    "unknown type",
			data:    `{"blocks": {"blocks": [{"type": "html_text", "id": "a"}, {"type": "html_blink", "id": "b"}]}}`,
			wantErr: `blocks[1]: unknown block type "html_blink"`,
		},
		{
			name:    "unknown nested type",
			data:    `{"blocks": {"blocks": [{"type": "html_element", "id": "a", "inputs": {"CONTENT": {"block": {"type": "nope", "id": "b"}}}}]}}`,
			wantErr: `blocks[0].inputs.CONTENT: unknown block type "nope"`,
		},
		{
			name:    "unknown type in next chain",
			data:    `{"blocks": {"blocks": [{"type": "html_text", "id": "a", "next": {"block": {"type": "nope", "id": "b"}}}]}}`,
			wantErr: `blocks[0].next[1]: unknown block type "nope"`,
		},
		{
			name:    "null root block",
			data:    `{"blocks": {"blocks": [null]}}`,
			wantErr: "blocks[0]: block is null",
		},
		{
			name:    "missing type",
			data:    `{"blocks": {"blocks": [{"id": "a"}]}}`,
			wantErr: "block type is required",
		},
		{
			name:    "unknown slot",
			data:    `{"blocks": {"blocks": [{"type": "html_text", "id": "a", "inputs": {"BODY": {"block": {"type": "html_text", "id": "b"}}}}]}}`,
			wantErr: `block type "html_text" has no input "BODY"`,
		},
		{
			name:    "field used as slot",
			data:    `{"blocks": {"blocks": [{"type": "html_element", "id": "a", "inputs": {"TAG": {"block": {"type": "html_text", "id": "b"}}}}]}}`,
			wantErr: `has no input "TAG"`,
		},
		{
			name:    "duplicate id",
			data:    `{"blocks": {"blocks": [{"type": "html_text", "id": "a"}, {"type": "html_text", "id": "a"}]}}`,
			wantErr: `duplicate block id "a"`,
		},
		{
			name:    "structured field value",
			data:    `{"blocks": {"blocks": [{"type": "html_text", "id": "a", "fields": {"TEXT": {"nested": true}}}]}}`,
			wantErr: "field values must be scalars",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ws, err := workspace.Unmarshal([]byte(tt.data), registry)
			require.Error(t, err)
			assert.Nil(t, ws)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.True(t, errors.Is(err, workspace.ErrInvalidSnapshot))

			var invalid *workspace.InvalidSnapshotError
			assert.True(t, errors.As(err, &invalid))
		})
	}
}

func TestUnmarshal_TooDeep(t *testing.T) {
	registry := newRegistry(t)

	var sb strings.Builder
	depth := 600
	for i := 0; i < depth; i++ {
		fmt.Fprintf(&sb, `{"type": "html_element", "id": "e%d", "inputs": {"CONTENT": {"block": `, i)
	}
	sb.WriteString(`{"type": "html_text", "id": "leaf"}`)
	for i := 0; i < depth; i++ {
		sb.WriteString(`}}}`)
	}

	_, err := workspace.Unmarshal([]byte(`{"blocks": {"blocks": [`+sb.String()+`]}}`), registry)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nested too deeply")
}

func TestUnmarshal_LongChain(t *testing.T) {
	registry := newRegistry(t)

	length := 600
	var sb strings.Builder
	for i := 0; i < length; i++ {
		if i > 0 {
			sb.WriteString(`, "next": {"block": `)
		}
		fmt.Fprintf(&sb, `{"type": "html_text", "id": "t%d", "fields": {"TEXT": "x"}`, i)
	}
	sb.WriteString(`}`)
	sb.WriteString(strings.Repeat(`}}`, length-1))
	data := []byte(`{"blocks": {"blocks": [` + sb.String() + `]}}`)

	ws, err := workspace.Unmarshal(data, registry)
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("x\n", length), codegen.NewCompiler(registry).Compile(ws))

	snap, err := workspace.ParseSnapshot(data)
	require.NoError(t, err)
	count := 0
	snap.Walk(func(*workspace.Node) bool {
		count++
		return true
	})
	assert.Equal(t, length, count)
}

func TestUnmarshal_ChainErrorPath(t *testing.T) {
	registry := newRegistry(t)

	data := `{"blocks": {"blocks": [{"type": "html_text", "id": "a", "next": {"block": {"type": "html_text", "id": "b", "next": {"block": {"type": "nope", "id": "c"}}}}}]}}`
	_, err := workspace.Unmarshal([]byte(data), registry)
	require.Error(t, err)

	var invalid *workspace.InvalidSnapshotError
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, "blocks[0].next[2]", invalid.Path)
}

func TestLoad_KeepsWorkspaceOnFailure(t *testing.T) {
	registry := newRegistry(t)
	compiler := codegen.NewCompiler(registry)

	ws := samplePage()
	before := compiler.Compile(ws)

	bad, err := workspace.ParseSnapshot([]byte(`{"blocks": {"blocks": [{"type": "html_text", "id": "ok"}, {"type": "ghost", "id": "x"}]}}`))
	require.NoError(t, err)

	require.Error(t, ws.Load(bad, registry))
	assert.Equal(t, before, compiler.Compile(ws))

	good, err := workspace.ParseSnapshot([]byte(`{"blocks": {"blocks": [{"type": "html_text", "id": "ok", "fields": {"TEXT": "loaded"}}]}}`))
	require.NoError(t, err)
	require.NoError(t, ws.Load(good, registry))
	assert.Equal(t, "loaded\n", compiler.Compile(ws))
}

func TestSnapshot_Walk(t *testing.T) {
	snap := workspace.Serialize(samplePage())

	var ids []string
	snap.Walk(func(n *workspace.Node) bool {
		ids = append(ids, n.ID)
		return true
	})
	assert.Equal(t, []string{"main", "greeting", "link", "url", "rule", "width", "colour", "input"}, ids)

	var nilSnap *workspace.Snapshot
	assert.True(t, nilSnap.IsEmpty())
}

package workspace_test

import (
	"testing"

	"github.com/lacquerai/blocksmith/internal/block"
	"github.com/lacquerai/blocksmith/internal/registrar"
	"github.com/lacquerai/blocksmith/internal/testhelper"
	"github.com/lacquerai/blocksmith/internal/workspace"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRegistry(t *testing.T) *block.Registry {
	t.Helper()
	registry := block.NewRegistry()
	n, err := registrar.New(registry).RegisterAll(testhelper.Records())
	require.NoError(t, err)
	require.Equal(t, len(testhelper.Records()), n)
	return registry
}

func text(id, value string) *block.Instance {
	return &block.Instance{ID: id, Type: "html_text", Fields: map[string]any{"TEXT": value}}
}

func element(id, tag string) *block.Instance {
	return &block.Instance{ID: id, Type: "html_element", Fields: map[string]any{"TAG": tag}}
}

func TestNewInstance(t *testing.T) {
	schema := testhelper.Schema("html_element")

	a := workspace.NewInstance(schema)
	b := workspace.NewInstance(schema)

	assert.Equal(t, "html_element", a.Type)
	assert.Equal(t, map[string]any{"TAG": "div"}, a.Fields)
	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestWorkspace_AddFindLen(t *testing.T) {
	ws := workspace.New()
	assert.True(t, ws.IsEmpty())
	assert.Equal(t, 0, ws.Len())

	div := element("div", "div")
	ws.Add(div)
	require.NoError(t, ws.Connect("div", "CONTENT", text("t1", "a")))
	require.NoError(t, ws.Connect("div", "CONTENT", text("t2", "b")))
	ws.Add(text("t3", "c"))

	assert.False(t, ws.IsEmpty())
	assert.Equal(t, 4, ws.Len())
	assert.Len(t, ws.Roots(), 2)

	found, ok := ws.Find("t2")
	require.True(t, ok)
	assert.Equal(t, "b", found.Fields["TEXT"])
	assert.Equal(t, []*block.Instance{div.Input("CONTENT"), found}, div.Input("CONTENT").Chain(), "connect appends to the chain")

	_, ok = ws.Find("missing")
	assert.False(t, ok)

	assert.Error(t, ws.Connect("missing", "CONTENT", text("t4", "d")))
}

func TestWorkspace_Remove(t *testing.T) {
	build := func() *workspace.Workspace {
		ws := workspace.New()
		div := element("div", "div")
		div.Next = text("after", "x")
		ws.Add(div)
		_ = ws.Connect("div", "CONTENT", text("c1", "1"))
		_ = ws.Connect("div", "CONTENT", text("c2", "2"))
		_ = ws.Connect("div", "CONTENT", text("c3", "3"))
		ws.Add(text("solo", "s"))
		return ws
	}

	t.Run("root promotes its next block", func(t *testing.T) {
		ws := build()
		require.True(t, ws.Remove("div"))
		require.Len(t, ws.Roots(), 2)
		assert.Equal(t, "after", ws.Roots()[0].ID)
		assert.Equal(t, "solo", ws.Roots()[1].ID)
		assert.Equal(t, 2, ws.Len())
	})

	t.Run("middle of statement chain", func(t *testing.T) {
		ws := build()
		require.True(t, ws.Remove("c2"))
		div, _ := ws.Find("div")
		chain := div.Input("CONTENT").Chain()
		require.Len(t, chain, 2)
		assert.Equal(t, "c1", chain[0].ID)
		assert.Equal(t, "c3", chain[1].ID)
	})

	t.Run("head of statement chain", func(t *testing.T) {
		ws := build()
		require.True(t, ws.Remove("c1"))
		div, _ := ws.Find("div")
		assert.Equal(t, "c2", div.Input("CONTENT").ID)
	})

	t.Run("unknown id", func(t *testing.T) {
		ws := build()
		assert.False(t, ws.Remove("nope"))
		assert.Equal(t, 6, ws.Len())
	})
}

func TestWorkspace_Clear(t *testing.T) {
	ws := workspace.New()
	ws.Add(text("a", "a"))
	ws.Clear()
	assert.True(t, ws.IsEmpty())
	assert.Equal(t, 0, ws.Len())
}

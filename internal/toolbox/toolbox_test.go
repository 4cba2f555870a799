package toolbox

import (
	"encoding/json"
	"testing"

	"github.com/lacquerai/blocksmith/internal/block"
	"github.com/lacquerai/blocksmith/internal/testhelper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func schema(name string, kind block.Kind, category, colour string) *block.Schema {
	return &block.Schema{Name: name, Kind: kind, Category: category, Colour: colour}
}

func TestAssemble_GroupsByKindAndCategory(t *testing.T) {
	tree := Assemble([]*block.Schema{
		schema("a", block.KindHTML, "Text", "#111111"),
		schema("b", block.KindCSS, "Layout", "#222222"),
		schema("c", block.KindHTML, "Text", "#333333"),
	})

	assert.Equal(t, KindCategoryToolbox, tree.Kind)
	require.Len(t, tree.Contents, 2)

	html := tree.Contents[0]
	assert.Equal(t, "HTML", html.Name)
	require.Len(t, html.Contents, 1)
	assert.Equal(t, "Text", html.Contents[0].Name)
	assert.Equal(t, "#111111", html.Contents[0].Colour, "category takes its first block's colour")
	assert.Equal(t, []*Leaf{{Kind: KindBlock, Type: "a"}, {Kind: KindBlock, Type: "c"}}, html.Contents[0].Contents)

	css := tree.Contents[1]
	assert.Equal(t, "CSS", css.Name)
	require.Len(t, css.Contents, 1)
	assert.Equal(t, "Layout", css.Contents[0].Name)
	assert.Equal(t, []*Leaf{{Kind: KindBlock, Type: "b"}}, css.Contents[0].Contents)
}

func TestAssemble_FirstSeenCategoryOrder(t *testing.T) {
	tree := Assemble([]*block.Schema{
		schema("z1", block.KindHTML, "Zebra", ""),
		schema("a1", block.KindHTML, "Apple", ""),
		schema("z2", block.KindHTML, "Zebra", ""),
		schema("m1", block.KindHTML, "Mango", ""),
	})

	html, ok := tree.Section(block.KindHTML)
	require.True(t, ok)

	var names []string
	for _, c := range html.Contents {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"Zebra", "Apple", "Mango"}, names)
	assert.Equal(t, []string{"z1", "z2", "a1", "m1"}, tree.Types())
}

func TestAssemble_CategoriesNotMergedAcrossKinds(t *testing.T) {
	tree := Assemble([]*block.Schema{
		schema("html_box", block.KindHTML, "Box", ""),
		schema("css_box", block.KindCSS, "Box", ""),
	})

	html, _ := tree.Section(block.KindHTML)
	css, _ := tree.Section(block.KindCSS)

	htmlBox, ok := html.Category("Box")
	require.True(t, ok)
	cssBox, ok := css.Category("Box")
	require.True(t, ok)

	assert.Len(t, htmlBox.Contents, 1)
	assert.Len(t, cssBox.Contents, 1)
	assert.NotSame(t, htmlBox, cssBox)
}

func TestAssemble_OmitsEmptySections(t *testing.T) {
	tree := Assemble([]*block.Schema{schema("p", block.KindCSS, "Props", "")})
	require.Len(t, tree.Contents, 1)
	assert.Equal(t, "CSS", tree.Contents[0].Name)

	_, ok := tree.Section(block.KindHTML)
	assert.False(t, ok)

	empty := Assemble(nil)
	assert.Empty(t, empty.Contents)

	data, err := json.Marshal(empty)
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind": "categoryToolbox", "contents": []}`, string(data))
}

func TestAssemble_Pure(t *testing.T) {
	schemas := testhelper.Schemas()
	first := Assemble(schemas)
	second := Assemble(schemas)
	assert.Equal(t, first, second)
}

func TestAssemble_JSON(t *testing.T) {
	tree := Assemble([]*block.Schema{schema("html_text", block.KindHTML, "Text", "#5B67A5")})

	data, err := json.Marshal(tree)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"kind": "categoryToolbox",
		"contents": [{
			"kind": "category",
			"name": "HTML",
			"block_kind": "html",
			"contents": [{
				"kind": "category",
				"name": "Text",
				"colour": "#5B67A5",
				"contents": [{"kind": "block", "type": "html_text"}]
			}]
		}]
	}`, string(data))
}

func TestBuildTheme(t *testing.T) {
	tree := Assemble(testhelper.Schemas())
	theme := BuildTheme(tree)

	assert.Equal(t, CategoryStyle{Colour: "#5b67a5"}, theme.CategoryStyles["html_text"])
	assert.Equal(t, CategoryStyle{Colour: "#5ba55b"}, theme.CategoryStyles["css_layout"])
	assert.Len(t, theme.CategoryStyles, 7)

	noColour := Assemble([]*block.Schema{schema("x", block.KindHTML, "Form Controls", "")})
	assert.Equal(t, CategoryStyle{Colour: defaultColour}, BuildTheme(noColour).CategoryStyles["html_form_controls"])

	hue := Assemble([]*block.Schema{schema("x", block.KindCSS, "Hue", "230")})
	assert.Equal(t, "230", BuildTheme(hue).CategoryStyles["css_hue"].Colour)
}

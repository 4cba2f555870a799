// Package toolbox groups registered block types into the palette tree
// consumed by the visual editor.
package toolbox

import (
	"github.com/lacquerai/blocksmith/internal/block"
)

const (
	KindCategoryToolbox = "categoryToolbox"
	KindCategory        = "category"
	KindBlock           = "block"
)

// sections lists the top-level toolbox groups in display order
var sections = []struct {
	kind  block.Kind
	label string
}{
	{block.KindHTML, "HTML"},
	{block.KindCSS, "CSS"},
}

// Tree is the root of an assembled toolbox
type Tree struct {
	Kind     string     `json:"kind" yaml:"kind"`
	Contents []*Section `json:"contents" yaml:"contents"`
}

// Section holds the categories of a single block kind
type Section struct {
	Kind      string      `json:"kind" yaml:"kind"`
	Name      string      `json:"name" yaml:"name"`
	BlockKind block.Kind  `json:"block_kind" yaml:"block_kind"`
	Contents  []*Category `json:"contents" yaml:"contents"`
}

// Category is a named group of block types within a section
type Category struct {
	Kind     string  `json:"kind" yaml:"kind"`
	Name     string  `json:"name" yaml:"name"`
	Colour   string  `json:"colour,omitempty" yaml:"colour,omitempty"`
	Contents []*Leaf `json:"contents" yaml:"contents"`
}

// Leaf references one block type
type Leaf struct {
	Kind string `json:"kind" yaml:"kind"`
	Type string `json:"type" yaml:"type"`
}

// Assemble groups schemas by kind and then category. Categories keep the
// order they were first seen in, and same-named categories of different
// kinds stay separate. Sections without blocks are omitted.
func Assemble(schemas []*block.Schema) *Tree {
	tree := &Tree{Kind: KindCategoryToolbox, Contents: []*Section{}}

	for _, sec := range sections {
		section := &Section{Kind: KindCategory, Name: sec.label, BlockKind: sec.kind}
		index := make(map[string]*Category)

		for _, schema := range schemas {
			if schema.Kind != sec.kind {
				continue
			}

			cat, ok := index[schema.Category]
			if !ok {
				cat = &Category{
					Kind:   KindCategory,
					Name:   schema.Category,
					Colour: schema.Colour,
				}
				index[schema.Category] = cat
				section.Contents = append(section.Contents, cat)
			}
			cat.Contents = append(cat.Contents, &Leaf{Kind: KindBlock, Type: schema.Name})
		}

		if len(section.Contents) > 0 {
			tree.Contents = append(tree.Contents, section)
		}
	}

	return tree
}

// Section returns the section for a block kind, if present
func (t *Tree) Section(kind block.Kind) (*Section, bool) {
	for _, s := range t.Contents {
		if s.BlockKind == kind {
			return s, true
		}
	}
	return nil, false
}

// Category returns the named category of a section, if present
func (s *Section) Category(name string) (*Category, bool) {
	for _, c := range s.Contents {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

// Types returns every block type in the tree in display order
func (t *Tree) Types() []string {
	var types []string
	for _, s := range t.Contents {
		for _, c := range s.Contents {
			for _, l := range c.Contents {
				types = append(types, l.Type)
			}
		}
	}
	return types
}

package toolbox

import (
	"fmt"
	"strings"

	"github.com/stoewer/go-strcase"
)

// defaultColour is used for categories whose blocks declare no colour
const defaultColour = "#5b80a5"

// CategoryStyle is the theme entry the editor applies to one category
type CategoryStyle struct {
	Colour string `json:"colour" yaml:"colour"`
}

// Theme carries presentation hints for the editor surface
type Theme struct {
	CategoryStyles map[string]CategoryStyle `json:"categoryStyles" yaml:"categoryStyles"`
}

// StyleKey is the theme key of a category: the kind prefix followed by the
// category name in snake case, so "Text" under html becomes "html_text".
func StyleKey(section *Section, category *Category) string {
	return fmt.Sprintf("%s_%s", section.BlockKind, strcase.SnakeCase(category.Name))
}

// StyleFor derives the style of a category from its colour
func StyleFor(category *Category) CategoryStyle {
	return CategoryStyle{Colour: normalizeColour(category.Colour)}
}

// BuildTheme returns a style per category of the tree
func BuildTheme(tree *Tree) *Theme {
	theme := &Theme{CategoryStyles: make(map[string]CategoryStyle)}
	for _, section := range tree.Contents {
		for _, category := range section.Contents {
			theme.CategoryStyles[StyleKey(section, category)] = StyleFor(category)
		}
	}
	return theme
}

// normalizeColour keeps hex colours and hue numbers as given and falls
// back to the default for empty values
func normalizeColour(c string) string {
	c = strings.TrimSpace(c)
	if c == "" {
		return defaultColour
	}
	if strings.HasPrefix(c, "#") {
		return strings.ToLower(c)
	}
	return c
}

package style

import (
	"strings"

	"github.com/fatih/color"
	"github.com/sergi/go-diff/diffmatchpatch"
)

var (
	diffInsert = color.New(color.FgGreen)
	diffDelete = color.New(color.FgRed)
	diffEqual  = color.New(color.Faint)
)

// RenderDiff renders a line diff from expected to actual. Removed lines are
// prefixed with "-", added lines with "+" and unchanged lines with a space.
func RenderDiff(expected, actual string) string {
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(expected, actual)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	var out strings.Builder
	for _, d := range diffs {
		prefix, c := " ", diffEqual
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			prefix, c = "+", diffInsert
		case diffmatchpatch.DiffDelete:
			prefix, c = "-", diffDelete
		}

		for _, line := range splitLines(d.Text) {
			out.WriteString(c.Sprint(prefix + line))
			out.WriteString("\n")
		}
	}
	return out.String()
}

// Equal reports whether two code outputs match after trailing newline
// normalization
func Equal(expected, actual string) bool {
	return strings.TrimRight(expected, "\n") == strings.TrimRight(actual, "\n")
}

func splitLines(text string) []string {
	text = strings.TrimSuffix(text, "\n")
	return strings.Split(text, "\n")
}

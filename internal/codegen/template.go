package codegen

import (
	"strings"
)

// ContentAlias is the fixed placeholder that hand-authored templates use
// for the first statement slot of a block
const ContentAlias = "CONTENT"

// Template is a parsed code template. Placeholders are `{NAME}` tokens
// where NAME is an identifier; any other brace text is literal.
type Template struct {
	source   string
	segments []segment
}

type segment struct {
	text        string
	placeholder string
}

// Unescape turns the escaped newlines that stored templates carry into
// real newlines
func Unescape(src string) string {
	if !strings.Contains(src, `\`) {
		return src
	}
	r := strings.NewReplacer(`\r\n`, "\n", `\n`, "\n", `\t`, "\t")
	return r.Replace(src)
}

// ParseTemplate scans a template once and splits it into literal text and
// placeholder tokens
func ParseTemplate(src string) *Template {
	src = Unescape(src)
	t := &Template{source: src}

	var literal strings.Builder
	flush := func() {
		if literal.Len() > 0 {
			t.segments = append(t.segments, segment{text: literal.String()})
			literal.Reset()
		}
	}

	for i := 0; i < len(src); {
		if src[i] == '{' {
			if end := identEnd(src, i+1); end > i+1 && end < len(src) && src[end] == '}' {
				flush()
				t.segments = append(t.segments, segment{placeholder: src[i+1 : end]})
				i = end + 1
				continue
			}
		}
		literal.WriteByte(src[i])
		i++
	}
	flush()

	return t
}

// identEnd returns the index just past the identifier starting at i
func identEnd(s string, i int) int {
	j := i
	for j < len(s) {
		c := s[j]
		isLetter := c == '_' || (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
		isDigit := c >= '0' && c <= '9'
		if !isLetter && !(isDigit && j > i) {
			break
		}
		j++
	}
	return j
}

// Source returns the unescaped template text
func (t *Template) Source() string {
	return t.source
}

// Placeholders lists the distinct placeholder names in order of first use
func (t *Template) Placeholders() []string {
	seen := make(map[string]bool)
	var names []string
	for _, seg := range t.segments {
		if seg.placeholder != "" && !seen[seg.placeholder] {
			seen[seg.placeholder] = true
			names = append(names, seg.placeholder)
		}
	}
	return names
}

// Has reports whether the template references a placeholder
func (t *Template) Has(name string) bool {
	for _, seg := range t.segments {
		if seg.placeholder == name {
			return true
		}
	}
	return false
}

// Render substitutes placeholders in a single pass. Names missing from
// values are emitted verbatim, and substituted text is never rescanned.
func (t *Template) Render(values map[string]string) string {
	var out strings.Builder
	out.Grow(len(t.source))

	for _, seg := range t.segments {
		if seg.placeholder == "" {
			out.WriteString(seg.text)
			continue
		}

		if value, ok := values[seg.placeholder]; ok {
			out.WriteString(value)
		} else {
			out.WriteString("{" + seg.placeholder + "}")
		}
	}

	return out.String()
}

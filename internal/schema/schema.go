// Package schema generates JSON Schemas for the files blocksmith reads:
// block definitions, library manifests, tutorials and workspace snapshots.
package schema

import (
	"embed"
	"encoding/json"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"reflect"
	"sort"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/stoewer/go-strcase"
)

//go:embed types.go
var typesGoFile embed.FS

const (
	DocumentBlock    = "block"
	DocumentManifest = "manifest"
	DocumentTutorial = "tutorial"
	DocumentSnapshot = "snapshot"
)

var documents = map[string]any{
	DocumentBlock:    &BlockFile{},
	DocumentManifest: &Manifest{},
	DocumentTutorial: &TutorialFile{},
	DocumentSnapshot: &Snapshot{},
}

// CustomReflector names definitions in snake case and documents them from
// the comments in types.go
type CustomReflector struct {
	*jsonschema.Reflector
}

// NewCustomReflector creates a reflector for blocksmith documents
func NewCustomReflector() (*CustomReflector, error) {
	r := &CustomReflector{Reflector: &jsonschema.Reflector{
		Namer: func(t reflect.Type) string {
			return strcase.SnakeCase(t.Name())
		},
		ExpandedStruct: true,
	}}

	if err := r.extractGoComments(reflect.TypeOf(BlockFile{}).PkgPath()); err != nil {
		return nil, err
	}
	return r, nil
}

// Documents returns the names of the documents a schema exists for
func Documents() []string {
	names := make([]string, 0, len(documents))
	for name := range documents {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewSchema returns the indented JSON Schema of a document
func NewSchema(document string) ([]byte, error) {
	v, ok := documents[document]
	if !ok {
		return nil, fmt.Errorf("unknown document %q (want one of %s)", document, strings.Join(Documents(), ", "))
	}

	reflector, err := NewCustomReflector()
	if err != nil {
		return nil, err
	}

	s := reflector.Reflect(v)
	s.Title = "blocksmith " + document
	return json.MarshalIndent(s, "", "  ")
}

func (r *CustomReflector) extractGoComments(pkg string) error {
	commentMap := make(map[string]string)
	fset := token.NewFileSet()
	typesFile, err := typesGoFile.ReadFile("types.go")
	if err != nil {
		return err
	}

	f, err := parser.ParseFile(fset, "types.go", typesFile, parser.ParseComments)
	if err != nil {
		return err
	}

	gtxt := ""
	typ := ""
	ast.Inspect(f, func(n ast.Node) bool {
		switch x := n.(type) {
		case *ast.TypeSpec:
			typ = x.Name.String()
			if !ast.IsExported(typ) {
				typ = ""
			} else {
				txt := x.Doc.Text()
				if txt == "" && gtxt != "" {
					txt = gtxt
					gtxt = ""
				}

				commentMap[fmt.Sprintf("%s.%s", pkg, typ)] = strings.TrimSpace(txt)
			}
		case *ast.Field:
			txt := x.Doc.Text()
			if txt == "" {
				txt = x.Comment.Text()
			}
			if typ != "" && txt != "" {
				for _, n := range x.Names {
					if ast.IsExported(n.String()) {
						k := fmt.Sprintf("%s.%s.%s", pkg, typ, n)
						commentMap[k] = strings.TrimSpace(txt)
					}
				}
			}
		case *ast.GenDecl:
			// remember for the next type
			gtxt = x.Doc.Text()
		}
		return true
	})

	r.CommentMap = commentMap

	return nil
}

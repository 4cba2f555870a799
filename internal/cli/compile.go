package cli

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/lacquerai/blocksmith/internal/codegen"
	"github.com/lacquerai/blocksmith/internal/style"
	"github.com/lacquerai/blocksmith/internal/workspace"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	compileSplit  bool
	compileExpect string
)

// compileCmd represents the compile command
var compileCmd = &cobra.Command{
	Use:   "compile <snapshot.json|->",
	Short: "Compile a workspace snapshot to code",
	Long: `Compile a serialized workspace into the HTML and CSS its blocks generate.

Blocks whose type is missing from the library compile to nothing and are
reported as diagnostics. With --expect the output is compared against a file
and a diff is printed on mismatch.`,
	Example: `
  bsm compile page.json                      # Print the generated code
  bsm compile --split page.json              # Group code by kind (html, css)
  bsm compile --expect page.html page.json   # Fail when the output differs
  cat page.json | bsm compile -              # Read the snapshot from stdin`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCompile(cmd, args[0])
	},
}

func init() {
	rootCmd.AddCommand(compileCmd)

	compileCmd.Flags().BoolVar(&compileSplit, "split", false, "group the generated code by block kind")
	compileCmd.Flags().StringVar(&compileExpect, "expect", "", "file holding the expected code")
}

// CompileOutput is the structured result of the compile command
type CompileOutput struct {
	Code        string               `json:"code,omitempty" yaml:"code,omitempty"`
	ByKind      map[string]string    `json:"by_kind,omitempty" yaml:"by_kind,omitempty"`
	Diagnostics []codegen.Diagnostic `json:"diagnostics" yaml:"diagnostics"`
}

func runCompile(cmd *cobra.Command, path string) error {
	data, err := readInput(cmd, path)
	if err != nil {
		return err
	}

	library, err := loadLibrary(cmd)
	if err != nil {
		return err
	}
	defer library.Store().Close()

	registry, compiler := library.Current()
	ws, err := workspace.Unmarshal(data, registry)
	if err != nil {
		return err
	}

	out := CompileOutput{}
	if compileSplit {
		parts, diags := compiler.CompileByKind(ws)
		out.ByKind = make(map[string]string, len(parts))
		for kind, code := range parts {
			out.ByKind[string(kind)] = code
		}
		out.Diagnostics = diags
	} else {
		result := compiler.CompileWithDiagnostics(ws)
		out.Code = result.Code
		out.Diagnostics = result.Diagnostics
	}
	if out.Diagnostics == nil {
		out.Diagnostics = []codegen.Diagnostic{}
	}

	if compileExpect != "" {
		return expectCode(cmd, compileExpect, out)
	}

	w := cmd.OutOrStdout()
	switch viper.GetString("output") {
	case "json":
		style.PrintJSON(w, out)
	case "yaml":
		style.PrintYAML(w, out)
	default:
		printCode(w, out)
		printDiagnostics(cmd.ErrOrStderr(), out.Diagnostics)
	}
	return nil
}

func printCode(w io.Writer, out CompileOutput) {
	if out.ByKind == nil {
		fmt.Fprint(w, out.Code)
		return
	}

	kinds := make([]string, 0, len(out.ByKind))
	for kind := range out.ByKind {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)

	for _, kind := range kinds {
		fmt.Fprintf(w, "/* %s */\n%s", kind, out.ByKind[kind])
	}
}

func printDiagnostics(w io.Writer, diags []codegen.Diagnostic) {
	if viper.GetBool("quiet") {
		return
	}
	for _, d := range diags {
		style.Warning(w, fmt.Sprintf("%s (%s): %s", d.BlockID, d.BlockType, d.Message))
	}
}

// expectCode compares the generated code against a file and prints a diff
// when they differ
func expectCode(cmd *cobra.Command, path string, out CompileOutput) error {
	want, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read expected output: %w", err)
	}

	got := out.Code
	if out.ByKind != nil {
		var b strings.Builder
		printCode(&b, out)
		got = b.String()
	}

	if style.Equal(string(want), got) {
		if !viper.GetBool("quiet") {
			style.Success(cmd.OutOrStdout(), fmt.Sprintf("Output matches %s", path))
		}
		return nil
	}

	fmt.Fprint(cmd.OutOrStdout(), style.RenderDiff(string(want), got))
	return fmt.Errorf("generated code does not match %s", path)
}

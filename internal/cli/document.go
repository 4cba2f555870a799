package cli

import (
	"fmt"
	"os"

	"github.com/lacquerai/blocksmith/internal/style"
	"github.com/lacquerai/blocksmith/internal/workspace"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	documentTitle  string
	documentOutput string
)

// documentCmd represents the document command
var documentCmd = &cobra.Command{
	Use:   "document <snapshot.json|->",
	Short: "Render a workspace as a standalone HTML page",
	Long: `Compile a workspace and wrap it in a complete HTML document. CSS blocks
are placed in a <style> element in the head and HTML blocks form the body.`,
	Example: `
  bsm document page.json                          # Print the page
  bsm document --title "My Page" -o index.html page.json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDocument(cmd, args[0])
	},
}

func init() {
	rootCmd.AddCommand(documentCmd)

	documentCmd.Flags().StringVar(&documentTitle, "title", "Untitled Page", "page title")
	documentCmd.Flags().StringVarP(&documentOutput, "out", "o", "", "write the page to a file instead of stdout")
}

func runDocument(cmd *cobra.Command, path string) error {
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

	doc, diags := compiler.Document(documentTitle, ws)
	printDiagnostics(cmd.ErrOrStderr(), diags)

	if documentOutput == "" {
		fmt.Fprint(cmd.OutOrStdout(), doc)
		return nil
	}

	if err := os.WriteFile(documentOutput, []byte(doc), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", documentOutput, err)
	}
	if !viper.GetBool("quiet") {
		style.Success(cmd.OutOrStdout(), fmt.Sprintf("Wrote %s", documentOutput))
	}
	return nil
}

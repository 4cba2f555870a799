package cli

import (
	"fmt"
	"io"

	"github.com/lacquerai/blocksmith/internal/style"
	"github.com/lacquerai/blocksmith/internal/toolbox"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var toolboxTheme bool

// toolboxCmd represents the toolbox command
var toolboxCmd = &cobra.Command{
	Use:   "toolbox",
	Short: "Show the toolbox assembled from the block library",
	Long: `Group the block library into the editor toolbox: one section per code
kind, categories in the order blocks first mention them.`,
	Example: `
  bsm toolbox                    # Print the toolbox tree
  bsm toolbox --output json      # Toolbox definition for the editor
  bsm toolbox --theme --output json  # Category theme for the editor`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		library, err := loadLibrary(cmd)
		if err != nil {
			return err
		}
		defer library.Store().Close()

		tree, theme := library.Toolbox()

		var data any = tree
		if toolboxTheme {
			data = theme
		}

		w := cmd.OutOrStdout()
		switch viper.GetString("output") {
		case "json":
			style.PrintJSON(w, data)
		case "yaml":
			style.PrintYAML(w, data)
		default:
			if toolboxTheme {
				printTheme(w, tree)
			} else {
				printToolbox(w, tree)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(toolboxCmd)

	toolboxCmd.Flags().BoolVar(&toolboxTheme, "theme", false, "show the category theme instead of the tree")
}

func printToolbox(w io.Writer, tree *toolbox.Tree) {
	if len(tree.Contents) == 0 {
		style.Warning(w, "The block library is empty")
		return
	}

	for _, section := range tree.Contents {
		fmt.Fprintln(w, style.TitleStyle.Render(section.Name))
		for _, category := range section.Contents {
			fmt.Fprintf(w, "  %s %s\n", category.Name, style.Swatch(toolbox.StyleFor(category).Colour))
			for _, leaf := range category.Contents {
				fmt.Fprintf(w, "    %s\n", leaf.Type)
			}
		}
	}
}

func printTheme(w io.Writer, tree *toolbox.Tree) {
	rows := [][]string{}
	for _, section := range tree.Contents {
		for _, category := range section.Contents {
			rows = append(rows, []string{toolbox.StyleKey(section, category), toolbox.StyleFor(category).Colour})
		}
	}
	printTable(w, []string{"Style", "Colour"}, rows)
}

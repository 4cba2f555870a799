package cli

import (
	"fmt"

	"github.com/lacquerai/blocksmith/internal/schema"
	"github.com/lacquerai/blocksmith/internal/style"
	pkgschema "github.com/lacquerai/blocksmith/pkg/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// schemaCmd represents the schema command
var schemaCmd = &cobra.Command{
	Use:   "schema [block|manifest|tutorial|snapshot]",
	Short: "Print the JSON Schema of a blocksmith document",
	Long: `Print the JSON Schema of a library document. Without an argument every
schema is printed together with the argument kinds, code kinds and checkbox
modes blocks may use.`,
	Example: `
  bsm schema block > block.schema.json
  bsm schema --output yaml`,
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: schema.Documents(),
	RunE: func(cmd *cobra.Command, args []string) error {
		w := cmd.OutOrStdout()

		if len(args) == 1 {
			data, err := schema.NewSchema(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(w, string(data))
			return nil
		}

		out, err := pkgschema.GetSchema()
		if err != nil {
			return err
		}
		if viper.GetString("output") == "yaml" {
			style.PrintYAML(w, out)
		} else {
			style.PrintJSON(w, out)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(schemaCmd)
}

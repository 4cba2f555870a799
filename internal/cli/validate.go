package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/lacquerai/blocksmith/internal/block"
	"github.com/lacquerai/blocksmith/internal/registrar"
	"github.com/lacquerai/blocksmith/internal/style"
	"github.com/lacquerai/blocksmith/internal/tutorial"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var showAll bool

// validateCmd represents the validate command
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the block library and its tutorials",
	Long: `Validate every block definition and tutorial in the configured library.

This command checks:
- Definition JSON and argument kinds
- Message placeholders against the argument list
- Code template placeholders against named arguments
- Duplicate block names
- Tutorial structure and the block types tutorials refer to`,
	Example: `
  bsm validate                         # Validate ./blocks
  bsm validate --blocks ./library      # Validate another directory
  bsm validate --output json           # JSON output for CI/CD`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return validateLibrary(cmd)
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().BoolVar(&showAll, "show-all", false, "show all validation results, including successful ones")
}

// ValidationResult represents the result of validating one definition
type ValidationResult struct {
	Name     string        `json:"name" yaml:"name"`
	Kind     string        `json:"kind" yaml:"kind"`
	Valid    bool          `json:"valid" yaml:"valid"`
	Duration time.Duration `json:"duration_ms" yaml:"duration_ms"`
	Errors   []string      `json:"errors,omitempty" yaml:"errors,omitempty"`
	Warnings []string      `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// ValidationSummary represents the summary of all validation results
type ValidationSummary struct {
	Total    int                `json:"total" yaml:"total"`
	Valid    int                `json:"valid" yaml:"valid"`
	Invalid  int                `json:"invalid" yaml:"invalid"`
	Duration time.Duration      `json:"total_duration_ms" yaml:"total_duration_ms"`
	Results  []ValidationResult `json:"results" yaml:"results"`
}

func validateLibrary(cmd *cobra.Command) error {
	start := time.Now()
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	st, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	records, err := st.ListBlocks(ctx)
	if err != nil {
		return fmt.Errorf("failed to list blocks: %w", err)
	}

	reg := registrar.New(block.NewRegistry())
	results := make([]ValidationResult, 0, len(records))
	for _, rec := range records {
		results = append(results, validateRecord(reg, rec))
	}

	tutorials, err := st.ListTutorials(ctx)
	if err != nil {
		results = append(results, ValidationResult{
			Name:   "tutorials",
			Kind:   "tutorial",
			Errors: []string{err.Error()},
		})
	}
	for _, t := range tutorials {
		results = append(results, validateTutorial(reg.Registry(), t))
	}

	summary := ValidationSummary{
		Total:    len(results),
		Duration: time.Since(start),
		Results:  results,
	}
	for _, result := range results {
		if result.Valid {
			summary.Valid++
		} else {
			summary.Invalid++
		}
	}

	w := cmd.OutOrStdout()
	switch viper.GetString("output") {
	case "json":
		style.PrintJSON(w, summary)
	case "yaml":
		style.PrintYAML(w, summary)
	default:
		printValidationResults(w, summary)
		printValidationSummary(w, summary)
	}

	if summary.Invalid > 0 {
		return fmt.Errorf("%d of %d definition(s) failed validation", summary.Invalid, summary.Total)
	}
	return nil
}

func validateRecord(reg *registrar.Registrar, rec block.Record) ValidationResult {
	start := time.Now()
	result := ValidationResult{Name: rec.BlockName, Kind: "block", Valid: true}

	if err := reg.RegisterRecord(rec); err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, err.Error())
	}
	result.Duration = time.Since(start)

	log.Debug().
		Str("block", rec.BlockName).
		Bool("valid", result.Valid).
		Dur("duration", result.Duration).
		Msg("Validated block definition")

	return result
}

func validateTutorial(registry *block.Registry, t *tutorial.Tutorial) ValidationResult {
	start := time.Now()
	result := ValidationResult{Name: t.ID, Kind: "tutorial", Valid: true}

	if err := t.Validate(); err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, err.Error())
	}

	for i, step := range t.Steps {
		for typ := range step.ExpectedBlocks {
			if !registry.Has(typ) {
				result.Warnings = append(result.Warnings, fmt.Sprintf("steps[%d] expects unknown block type %s", i, typ))
			}
		}
		if cfg := step.ExpectedConfig; cfg != nil && cfg.Type != "" && !registry.Has(cfg.Type) {
			result.Warnings = append(result.Warnings, fmt.Sprintf("steps[%d] configures unknown block type %s", i, cfg.Type))
		}
	}
	result.Duration = time.Since(start)

	return result
}

func printValidationResults(w io.Writer, summary ValidationSummary) {
	if viper.GetBool("quiet") {
		return
	}

	for _, result := range summary.Results {
		label := fmt.Sprintf("%s %s %s", result.Kind, result.Name, style.DurationStyle.Render(fmt.Sprintf("(%v)", result.Duration)))
		if !result.Valid {
			style.Error(w, label)
			for _, msg := range result.Errors {
				fmt.Fprintf(w, "  %s\n", msg)
			}
		} else if showAll {
			style.Success(w, label)
		}
		for _, msg := range result.Warnings {
			fmt.Fprintf(w, "  %s %s\n", style.WarningIcon(), msg)
		}
	}
}

func printValidationSummary(w io.Writer, summary ValidationSummary) {
	if viper.GetBool("quiet") {
		return
	}

	fmt.Fprintf(w, "\n")
	if summary.Invalid == 0 {
		style.Success(w, fmt.Sprintf("All %d definition(s) are valid (%v)", summary.Total, summary.Duration))
	} else {
		style.Error(w, fmt.Sprintf("%d of %d definition(s) failed validation (%v)", summary.Invalid, summary.Total, summary.Duration))
	}

	if viper.GetBool("verbose") {
		fmt.Fprintf(w, "\nDetailed results:\n")
		headers := []string{"Name", "Kind", "Status", "Duration"}
		rows := make([][]string, len(summary.Results))

		for i, result := range summary.Results {
			status := "valid"
			if !result.Valid {
				status = "invalid"
			}
			rows[i] = []string{result.Name, result.Kind, status, result.Duration.String()}
		}

		printTable(w, headers, rows)
	}
}

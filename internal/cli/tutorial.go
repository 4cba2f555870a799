package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/lacquerai/blocksmith/internal/server"
	"github.com/lacquerai/blocksmith/internal/style"
	"github.com/lacquerai/blocksmith/internal/tutorial"
	"github.com/lacquerai/blocksmith/internal/workspace"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var tutorialCodeFile string

// tutorialCmd groups the tutorial subcommands
var tutorialCmd = &cobra.Command{
	Use:   "tutorial",
	Short: "Inspect tutorials and check workspaces against their steps",
}

var tutorialListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the tutorials in the library",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		library, err := loadLibrary(cmd)
		if err != nil {
			return err
		}
		defer library.Store().Close()

		tutorials := library.Tutorials()
		w := cmd.OutOrStdout()
		switch viper.GetString("output") {
		case "json":
			style.PrintJSON(w, tutorials)
		case "yaml":
			style.PrintYAML(w, tutorials)
		default:
			if len(tutorials) == 0 {
				style.Info(w, "No tutorials found")
				return nil
			}
			rows := make([][]string, len(tutorials))
			for i, t := range tutorials {
				rows[i] = []string{t.ID, t.Title, strconv.Itoa(len(t.Steps))}
			}
			printTable(w, []string{"ID", "Title", "Steps"}, rows)
		}
		return nil
	},
}

var tutorialCheckCmd = &cobra.Command{
	Use:   "check <tutorial> <step> <snapshot.json|->",
	Short: "Check a workspace against a tutorial step",
	Long: `Check whether a workspace satisfies a tutorial step. Steps are numbered
from 0. The generated code is compiled from the snapshot unless --code is
given.`,
	Example: `
  bsm tutorial check first-page 0 page.json
  bsm tutorial check first-page 1 page.json --code page.html`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		index, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("step must be a number: %s", args[1])
		}
		return runTutorialCheck(cmd, args[0], index, args[2])
	},
}

func init() {
	rootCmd.AddCommand(tutorialCmd)
	tutorialCmd.AddCommand(tutorialListCmd)
	tutorialCmd.AddCommand(tutorialCheckCmd)

	tutorialCheckCmd.Flags().StringVar(&tutorialCodeFile, "code", "", "file holding the generated code")
}

// StepReport is the structured result of checking a tutorial step
type StepReport struct {
	Tutorial string           `json:"tutorial" yaml:"tutorial"`
	Step     int              `json:"step" yaml:"step"`
	Title    string           `json:"title,omitempty" yaml:"title,omitempty"`
	Passed   bool             `json:"passed" yaml:"passed"`
	Checks   []tutorial.Check `json:"checks" yaml:"checks"`
}

func runTutorialCheck(cmd *cobra.Command, id string, index int, path string) error {
	data, err := readInput(cmd, path)
	if err != nil {
		return err
	}

	library, err := loadLibrary(cmd)
	if err != nil {
		return err
	}
	defer library.Store().Close()

	t, ok := library.Tutorial(id)
	if !ok {
		return fmt.Errorf("tutorial %s not found", id)
	}
	step, err := t.Step(index)
	if err != nil {
		return err
	}

	snap, err := workspace.ParseSnapshot(data)
	if err != nil {
		return err
	}

	code, err := stepCode(cmd, library, snap)
	if err != nil {
		return err
	}

	report := StepReport{
		Tutorial: id,
		Step:     index,
		Title:    step.Title,
		Passed:   tutorial.Validate(step, snap, code),
		Checks:   tutorial.Feedback(step, snap, code),
	}

	w := cmd.OutOrStdout()
	switch viper.GetString("output") {
	case "json":
		style.PrintJSON(w, report)
	case "yaml":
		style.PrintYAML(w, report)
	default:
		printStepReport(w, report, step)
	}

	if !report.Passed {
		return fmt.Errorf("step %d of %s is not complete", index, id)
	}
	return nil
}

func stepCode(cmd *cobra.Command, library *server.Library, snap *workspace.Snapshot) (string, error) {
	if tutorialCodeFile != "" {
		data, err := readInput(cmd, tutorialCodeFile)
		return string(data), err
	}

	registry, compiler := library.Current()
	ws, err := workspace.Deserialize(snap, registry)
	if err != nil {
		return "", err
	}
	return compiler.Compile(ws), nil
}

func printStepReport(w io.Writer, report StepReport, step *tutorial.Step) {
	title := fmt.Sprintf("%s step %d", report.Tutorial, report.Step)
	if report.Title != "" {
		title += ": " + report.Title
	}
	fmt.Fprintln(w, style.TitleStyle.Render(title))

	for _, check := range report.Checks {
		severity := "success"
		if !check.Passed {
			severity = "error"
		}
		fmt.Fprintf(w, "  %s %s\n", style.GetSeverityIcon(severity), check.Message)
	}

	if report.Passed {
		style.Success(w, "Step complete")
		return
	}
	if step.Hint != "" {
		fmt.Fprintf(w, "  %s\n", style.HintStyle.Render("Hint: "+step.Hint))
	}
}

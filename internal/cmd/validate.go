package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/rahul/crewplan/internal/plan"
	"github.com/rahul/crewplan/internal/render"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Check a saved project plan against the plan schema",
	Long: `Validate a project plan JSON document (use - for stdin). Schema
violations are listed and fail the command; consistency warnings, such as a
milestone naming an unknown task, are printed but do not.`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

var validateJSON bool

func init() {
	validateCmd.Flags().BoolVar(&validateJSON, "json", false, "Print the normalised plan as JSON")
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	var data []byte
	var err error
	if args[0] == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(args[0])
	}
	if err != nil {
		return fmt.Errorf("failed to read plan: %w", err)
	}

	p, err := plan.Decode(data)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, issue := range plan.CheckConsistency(p) {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", issue)
	}

	if validateJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(p)
	}
	tasks, milestones := plan.NewTables(p)
	fmt.Fprint(out, render.Tables(tasks, milestones))
	return nil
}

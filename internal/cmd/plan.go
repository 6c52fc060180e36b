package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rahul/crewplan/internal/agent"
	"github.com/rahul/crewplan/internal/plan"
	"github.com/rahul/crewplan/internal/render"
	"github.com/spf13/cobra"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Generate a project plan once and print it",
	Long: `Run the planning crew for one project and print the task and milestone
tables.

Any field value starting with @ is read from that file, e.g.
  crewplan plan --project-type Website --requirements @requirements.md`,
	Args: cobra.NoArgs,
	RunE: runPlan,
}

var (
	planDetails agent.ProjectDetails
	planJSON    bool // Output as JSON
	planVerbose bool
)

func init() {
	f := planCmd.Flags()
	f.StringVar(&planDetails.ProjectType, "project-type", "", "type of project, e.g. Website")
	f.StringVar(&planDetails.Industry, "industry", "", "industry the project serves")
	f.StringVar(&planDetails.ProjectObjectives, "objectives", "", "project objectives")
	f.StringVar(&planDetails.TeamMembers, "team", "", "team members and their roles")
	f.StringVar(&planDetails.ProjectRequirements, "requirements", "", "project requirements")
	f.BoolVar(&planJSON, "json", false, "Output the plan as JSON")
	f.BoolVarP(&planVerbose, "verbose", "v", false, "Print pipeline events to stderr")
	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, args []string) error {
	details, err := readDetails(planDetails)
	if err != nil {
		return err
	}

	events := io.Discard
	if planVerbose {
		events = cmd.ErrOrStderr()
	}
	a, err := setup(events)
	if err != nil {
		return err
	}
	defer a.close()

	tasks, milestones, err := a.service.Plan(cmd.Context(), "cli", details)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if planJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(plan.ProjectPlan{Tasks: tasks.Rows, Milestones: milestones.Rows})
	}
	fmt.Fprint(out, render.Tables(tasks, milestones))
	return nil
}

// readDetails replaces @file values with the file's contents.
func readDetails(d agent.ProjectDetails) (agent.ProjectDetails, error) {
	fields := []*string{&d.ProjectType, &d.Industry, &d.ProjectObjectives, &d.TeamMembers, &d.ProjectRequirements}
	for _, f := range fields {
		path, ok := strings.CutPrefix(*f, "@")
		if !ok {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return d, fmt.Errorf("failed to read %s: %w", path, err)
		}
		*f = strings.TrimSpace(string(data))
	}
	return d, nil
}

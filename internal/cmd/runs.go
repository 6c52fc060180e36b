package cmd

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/rahul/crewplan/internal/render"
	"github.com/rahul/crewplan/internal/store"
	"github.com/rahul/crewplan/pkg/config"
	"github.com/spf13/cobra"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent pipeline runs from the run log",
	Long: `Show the most recent runs recorded in the sqlite run log: status, which
stage failed, timings and token usage. Requires memory.type "sqlite".`,
	Args: cobra.NoArgs,
	RunE: runRuns,
}

var (
	runsLimit int
	runsJSON  bool
)

func init() {
	runsCmd.Flags().IntVarP(&runsLimit, "limit", "n", 10, "number of runs to show")
	runsCmd.Flags().BoolVar(&runsJSON, "json", false, "Output runs as JSON")
	rootCmd.AddCommand(runsCmd)
}

func runRuns(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if cfg.Memory.Type != "sqlite" {
		return fmt.Errorf("run log is disabled (memory.type is %q)", cfg.Memory.Type)
	}

	rl, err := store.NewRunLog(cfg.Memory.Path)
	if err != nil {
		return fmt.Errorf("failed to open run log: %w", err)
	}
	defer rl.Close()

	runs, err := rl.Recent(cmd.Context(), runsLimit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if runsJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(runs)
	}

	rows := make([][]string, len(runs))
	for i, r := range runs {
		var prompt, completion int
		for _, st := range r.Stages {
			prompt += st.PromptTokens
			completion += st.CompletionTokens
		}
		rows[i] = []string{
			r.ID,
			r.StartedAt.Format("2006-01-02 15:04:05"),
			r.Status,
			r.FailedStage,
			r.Elapsed.Round(time.Millisecond).String(),
			fmt.Sprintf("%d/%d", len(r.Stages), r.StageCount),
			strconv.Itoa(prompt) + "/" + strconv.Itoa(completion),
		}
	}
	fmt.Fprintln(out, render.Table([]string{"run", "started", "status", "failed stage", "elapsed", "stages", "tokens in/out"}, rows))
	return nil
}

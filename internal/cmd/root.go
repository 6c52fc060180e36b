package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "crewplan",
	Short: "Multi-agent project planner",
	Long: `Crewplan turns a short project description into a plan: a crew of LLM
agents breaks the project into tasks, estimates each one, and allocates the
team, returning a task table and a milestone table.`,
	SilenceUsage: true,
}

var cfgFile string

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is ./config.json)")
}

package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "foreman",
	Short: "Goal delegation engine for LLM worker pools",
	Long: `Foreman takes a high-level goal, asks a planner model to break it into
a dependency-ordered set of tasks, and executes those tasks against a
pool of named LLM workers.

Core behavior:
- Extracts a task plan from whatever text the planner returns
- Repairs malformed plans (unknown dependencies, cycles) with warnings
- Runs independent tasks in parallel, one task per worker at a time
- Retries failed tasks and substitutes fallback workers
- Skips tasks whose dependencies did not succeed
- Produces a per-task execution report`,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(workersCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

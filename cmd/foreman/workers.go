package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/mpratt/foreman/internal/config"
)

var workersPath string

var workersCmd = &cobra.Command{
	Use:   "workers",
	Short: "Show the worker roster",
	Long: `Show the workers the planner can assign tasks to, including each
worker's provider, model, and fallback chain.`,
	RunE: showWorkers,
}

func init() {
	workersCmd.Flags().StringVar(&workersPath, "workers", "", "Path to workers.yaml (default: search upward, then user config dir)")
}

func showWorkers(cmd *cobra.Command, args []string) error {
	path := workersPath
	if path == "" {
		path = config.FindRoster()
	}
	if path == "" {
		fmt.Println("No workers.yaml found; runs use a single built-in worker.")
		return nil
	}

	roster, err := config.LoadRoster(path)
	if err != nil {
		return err
	}

	fmt.Printf("roster: %s\n\n", path)
	for _, w := range roster.Workers {
		name := w.Name
		if name == roster.Default() {
			name = color.CyanString("%s (default)", name)
		}
		line := fmt.Sprintf("  %s  provider=%s", name, w.Provider)
		if w.Model != "" {
			line += "  model=" + w.Model
		}
		fmt.Println(line)
		if len(w.Fallbacks) > 0 {
			fmt.Printf("      fallbacks: %s\n", strings.Join(w.Fallbacks, " → "))
		}
	}
	return nil
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/fatih/color"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/spf13/cobra"

	"github.com/mpratt/foreman/internal/api"
	"github.com/mpratt/foreman/internal/config"
	"github.com/mpratt/foreman/internal/executor"
	"github.com/mpratt/foreman/internal/orchestrator"
	"github.com/mpratt/foreman/internal/planner"
	"github.com/mpratt/foreman/internal/worker"
	"github.com/mpratt/foreman/pkg/models"
)

var (
	runWorkersPath    string
	runPlanFile       string
	runMaxConcurrency int
	runMaxAttempts    int
	runTimeout        time.Duration
	runJSON           bool
	runDebugLog       string
)

var runCmd = &cobra.Command{
	Use:   "run <goal>",
	Short: "Delegate a goal to the worker pool",
	Long: `Delegate a goal: plan it, execute the tasks, and print the report.

The planner model proposes a task breakdown and each task is executed by
the worker it was assigned to. Workers are defined in workers.yaml; when
no roster exists a single built-in worker handles everything.

Use --plan to skip the planner and execute a task list from a JSON file,
which is useful for replaying a recorded plan or scripting runs.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runGoal,
}

func init() {
	runCmd.Flags().StringVar(&runWorkersPath, "workers", "", "Path to workers.yaml (default: search upward, then user config dir)")
	runCmd.Flags().StringVar(&runPlanFile, "plan", "", "Execute a plan from a JSON file instead of calling the planner")
	runCmd.Flags().IntVar(&runMaxConcurrency, "max-concurrency", 0, "Maximum tasks running at once (default from config)")
	runCmd.Flags().IntVar(&runMaxAttempts, "max-attempts", 0, "Attempt budget per task on its assigned worker (default from config)")
	runCmd.Flags().DurationVar(&runTimeout, "timeout", 0, "Per-attempt task timeout (default from config)")
	runCmd.Flags().BoolVar(&runJSON, "json", false, "Print the execution report as JSON")
	runCmd.Flags().StringVar(&runDebugLog, "debug-log", "", "Write the debug log to the given path (default: .foreman/logs/engine-debug.log)")
}

func runGoal(cmd *cobra.Command, args []string) error {
	goal := strings.Join(args, " ")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	applyFlagOverrides(cfg)

	roster, err := loadRoster(cfg)
	if err != nil {
		return err
	}

	needPlanner := runPlanFile == ""
	registry, anthropicClient, err := buildRegistry(cfg, roster, needPlanner)
	if err != nil {
		return err
	}

	var p planner.Planner
	if runPlanFile != "" {
		raw, err := os.ReadFile(runPlanFile)
		if err != nil {
			return fmt.Errorf("read plan file: %w", err)
		}
		p = planner.Static{Raw: string(raw)}
	} else {
		p = planner.NewClaude(anthropicClient, roster.Names())
	}

	var logger *orchestrator.DebugLogger
	if path := debugLogPath(cfg); path != "" {
		logger, err = orchestrator.NewDebugLogger(path)
		if err != nil {
			return fmt.Errorf("open debug log: %w", err)
		}
	} else if cwd, wdErr := os.Getwd(); wdErr == nil {
		logger = orchestrator.NewDebugLoggerForDir(cwd)
	} else {
		logger = orchestrator.NopLogger()
	}
	defer logger.Close()

	engine := orchestrator.New(registry, p,
		orchestrator.WithMaxConcurrency(cfg.Defaults.MaxConcurrency),
		orchestrator.WithDefaultWorker(roster.Default()),
		orchestrator.WithLogger(logger),
		orchestrator.WithPolicy(executor.Policy{
			Timeout:     cfg.Defaults.TaskTimeout,
			MaxAttempts: cfg.Defaults.MaxAttempts,
			Fallbacks:   roster.FallbackMap(),
		}),
		orchestrator.WithProgress(renderEvent),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := engine.Delegate(ctx, goal)
	if err != nil {
		printReport(report, anthropicClient)
		return err
	}

	if runJSON {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("encode report: %w", err)
		}
		fmt.Println(string(data))
		return nil
	}

	printReport(report, anthropicClient)
	return nil
}

// applyFlagOverrides layers command-line flags over the loaded config.
func applyFlagOverrides(cfg *config.Config) {
	if runMaxConcurrency > 0 {
		cfg.Defaults.MaxConcurrency = runMaxConcurrency
	}
	if runMaxAttempts > 0 {
		cfg.Defaults.MaxAttempts = runMaxAttempts
	}
	if runTimeout > 0 {
		cfg.Defaults.TaskTimeout = runTimeout
	}
}

func debugLogPath(cfg *config.Config) string {
	if runDebugLog != "" {
		return runDebugLog
	}
	return cfg.Logging.DebugLog
}

// loadRoster resolves the worker roster: the --workers flag, then the
// usual search paths, then a built-in single-worker roster.
func loadRoster(cfg *config.Config) (*config.Roster, error) {
	path := runWorkersPath
	if path == "" {
		path = config.FindRoster()
	}
	if path == "" {
		return &config.Roster{
			Workers: []config.WorkerConfig{
				{Name: cfg.Defaults.Worker, Provider: config.ProviderClaude},
			},
		}, nil
	}
	return config.LoadRoster(path)
}

// buildRegistry registers one worker per roster entry. Claude workers that
// share a model share one API client; OpenAI workers share one client.
// When needPlanner is set an Anthropic client is built even for an
// all-OpenAI roster, since the planner always speaks to Claude.
func buildRegistry(cfg *config.Config, roster *config.Roster, needPlanner bool) (*worker.Registry, *api.Client, error) {
	registry := worker.NewRegistry()

	claudeClients := map[string]*api.Client{}
	clientFor := func(model string) (*api.Client, error) {
		if model == "" {
			model = cfg.Anthropic.Model
		}
		if c, ok := claudeClients[model]; ok {
			return c, nil
		}
		c, err := api.NewClient(api.ClientConfig{
			Model:         anthropic.Model(model),
			APIKey:        cfg.Anthropic.APIKey,
			UseAWSBedrock: cfg.Anthropic.UseBedrock,
			AWSRegion:     cfg.Anthropic.AWSRegion,
			AWSProfile:    cfg.Anthropic.AWSProfile,
		})
		if err != nil {
			return nil, fmt.Errorf("create Anthropic client: %w", err)
		}
		claudeClients[model] = c
		return c, nil
	}

	var openaiClient *openai.Client
	getOpenAI := func() *openai.Client {
		if openaiClient == nil {
			var opts []option.RequestOption
			if key, err := config.GetOpenAIKey(cfg); err == nil {
				opts = append(opts, option.WithAPIKey(key))
			}
			c := openai.NewClient(opts...)
			openaiClient = &c
		}
		return openaiClient
	}

	for _, wc := range roster.Workers {
		switch wc.Provider {
		case config.ProviderClaude:
			client, err := clientFor(wc.Model)
			if err != nil {
				return nil, nil, err
			}
			var opts []worker.ClaudeOption
			if wc.System != "" {
				opts = append(opts, worker.WithClaudeSystem(wc.System))
			}
			registry.Register(wc.Name, worker.NewClaude(wc.Name, client, opts...))
		case config.ProviderOpenAI:
			opts := []worker.OpenAIOption{}
			if wc.Model != "" {
				opts = append(opts, worker.WithOpenAIModel(wc.Model))
			} else if cfg.OpenAI.Model != "" {
				opts = append(opts, worker.WithOpenAIModel(cfg.OpenAI.Model))
			}
			if wc.System != "" {
				opts = append(opts, worker.WithOpenAISystem(wc.System))
			}
			registry.Register(wc.Name, worker.NewOpenAI(wc.Name, getOpenAI(), opts...))
		case config.ProviderEcho:
			registry.Register(wc.Name, worker.NewEcho(wc.Name))
		}
	}

	var plannerClient *api.Client
	if needPlanner {
		var err error
		plannerClient, err = clientFor(cfg.Anthropic.Model)
		if err != nil {
			return nil, nil, err
		}
	} else if c, ok := claudeClients[cfg.Anthropic.Model]; ok {
		plannerClient = c
	}
	return registry, plannerClient, nil
}

// renderEvent prints run progress. Per-attempt failures show as retries;
// lifecycle events show the task moving through the state machine.
func renderEvent(ev orchestrator.Event) {
	switch {
	case ev.Attempt > 0 && ev.Status != models.TaskStatusSucceeded:
		color.Yellow("  ↻ task %s: attempt %d on %s %s", ev.TaskID, ev.Attempt, ev.Worker, ev.Status)
	case ev.Attempt > 0:
		// Successful attempts are reported by the terminal event.
	case ev.Status == models.TaskStatusRunning:
		color.Cyan("  → task %s running on %s", ev.TaskID, ev.Worker)
	case ev.Status == models.TaskStatusSucceeded:
		color.Green("  ✓ task %s succeeded (%s)", ev.TaskID, ev.Worker)
	case ev.Status == models.TaskStatusTimedOut:
		color.Red("  ✗ task %s timed out (%s)", ev.TaskID, ev.Worker)
	case ev.Status == models.TaskStatusFailed:
		color.Red("  ✗ task %s failed (%s)", ev.TaskID, ev.Worker)
	case ev.Status == models.TaskStatusSkipped:
		color.Yellow("  ⊘ task %s skipped", ev.TaskID)
	}
}

func printReport(report *models.ExecutionReport, client *api.Client) {
	if report == nil {
		return
	}

	fmt.Println()
	switch report.Overall {
	case models.OverallSuccess:
		color.Green("✓ %s", report.Overall)
	case models.OverallPartial:
		color.Yellow("◐ %s", report.Overall)
	default:
		color.Red("✗ %s", report.Overall)
	}
	fmt.Printf("goal: %s\n", report.Goal)
	fmt.Printf("duration: %s\n", report.Duration.Round(time.Millisecond))
	if report.Error != "" {
		color.Red("error: %s", report.Error)
	}

	if report.Plan != nil {
		fmt.Println()
		for _, task := range report.Plan.Tasks {
			line := fmt.Sprintf("[%s] %s (%s", task.Status, task.ID, task.Worker)
			if task.ExecutedBy != "" && task.ExecutedBy != task.Worker {
				line += " via " + task.ExecutedBy
			}
			line += ")"
			if task.Attempts > 1 {
				line += fmt.Sprintf(" after %d attempts", task.Attempts)
			}
			switch task.Status {
			case models.TaskStatusSucceeded:
				color.Green("%s", line)
			case models.TaskStatusSkipped:
				color.Yellow("%s", line)
			default:
				color.Red("%s", line)
			}
			if task.Error != "" {
				fmt.Printf("    %s\n", task.Error)
			}
		}

		if len(report.Plan.Warnings) > 0 {
			fmt.Println()
			for _, w := range report.Plan.Warnings {
				color.Yellow("warning: %s", w)
			}
		}
	}

	if client != nil {
		if in, out := client.Tracker().Total(); in+out > 0 {
			fmt.Printf("\ntokens: %d in, %d out (~$%.4f)\n", in, out, client.Tracker().Cost())
		}
	}
}

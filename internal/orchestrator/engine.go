package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/mpratt/foreman/internal/executor"
	"github.com/mpratt/foreman/internal/graph"
	"github.com/mpratt/foreman/internal/plan"
	"github.com/mpratt/foreman/internal/planner"
	"github.com/mpratt/foreman/internal/worker"
	"github.com/mpratt/foreman/pkg/models"
)

// Engine is the top-level coordinator for a delegation request. It asks the
// planner for a breakdown, parses it into a plan, builds the dependency
// graph, and drives tasks through workers until every task settles.
type Engine struct {
	registry       *worker.Registry
	planner        planner.Planner
	parser         *plan.Parser
	exec           *executor.Executor
	maxConcurrency int
	logger         *DebugLogger
	events         *emitter
}

// New creates an Engine over the given worker registry and planner.
func New(registry *worker.Registry, p planner.Planner, opts ...Option) *Engine {
	o := &engineOptions{
		maxConcurrency: DefaultMaxConcurrency,
		defaultWorker:  "general",
		logger:         NopLogger(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.maxConcurrency < 1 {
		o.maxConcurrency = 1
	}

	setPackageLogger(o.logger)

	e := &Engine{
		registry:       registry,
		planner:        p,
		parser:         plan.NewParser(o.defaultWorker),
		maxConcurrency: o.maxConcurrency,
		logger:         o.logger,
		events:         newEmitter(o.progress),
	}
	e.exec = executor.New(registry, o.policy,
		executor.WithAttemptCallback(func(taskID, workerName string, status models.TaskStatus, attempt int) {
			e.events.emit(taskID, workerName, status, attempt)
		}))
	return e
}

// Delegate runs one goal end to end and returns the execution report.
//
// Planning is nearly unkillable: a planner error or unusable output
// degrades to a synthetic single-task plan, and structural defects in the
// task list are repaired with warnings. The only fatal planning error is a
// duplicate task id, which yields a planning_failed report and a non-nil
// error.
func (e *Engine) Delegate(ctx context.Context, goal string) (*models.ExecutionReport, error) {
	startedAt := time.Now()
	e.logger.Log("delegate: goal %q", goal)

	raw, err := e.planner.Propose(ctx, goal)
	var plannerWarning string
	if err != nil {
		plannerWarning = fmt.Sprintf("planner error: %v", err)
		e.logger.Log("delegate: %s, falling back to synthetic plan", plannerWarning)
		raw = ""
	}

	pl := e.parser.Parse(goal, raw)
	if plannerWarning != "" {
		pl.Warnings = append([]string{plannerWarning}, pl.Warnings...)
	}

	g, buildErr := graph.Build(pl.Tasks)
	if buildErr != nil {
		e.logger.Log("delegate: plan rejected: %v", buildErr)
		return &models.ExecutionReport{
			Goal:      goal,
			Plan:      pl,
			Overall:   models.OverallPlanningFailed,
			Error:     buildErr.Error(),
			StartedAt: startedAt,
			Duration:  time.Since(startedAt),
		}, buildErr
	}
	pl.Warnings = append(pl.Warnings, g.Warnings()...)

	e.logger.Log("delegate: plan has %d tasks, %d edges, %d warnings",
		g.Size(), g.EdgeCount(), len(pl.Warnings))

	e.run(ctx, pl, g)

	report := buildReport(goal, pl, startedAt)
	e.logger.Log("delegate: finished %s in %s (%d succeeded, %d failed, %d timed out, %d skipped)",
		report.Overall, report.Duration,
		pl.CountByStatus(models.TaskStatusSucceeded),
		pl.CountByStatus(models.TaskStatusFailed),
		pl.CountByStatus(models.TaskStatusTimedOut),
		pl.CountByStatus(models.TaskStatusSkipped))
	return report, nil
}

// Registry exposes the engine's worker registry, mainly so callers can
// print the roster.
func (e *Engine) Registry() *worker.Registry {
	return e.registry
}

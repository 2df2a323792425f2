package orchestrator

import (
	"context"

	"github.com/mpratt/foreman/internal/executor"
	"github.com/mpratt/foreman/internal/graph"
	"github.com/mpratt/foreman/pkg/models"
)

// completion carries the result of one task's execution back to the
// scheduling loop.
type completion struct {
	task    *models.Task
	outcome executor.Outcome
	// heldSlot is true when the dispatch acquired the assigned worker's
	// slot and the loop must release it.
	heldSlot bool
}

// run drives the plan to completion. Task status is mutated only on this
// goroutine; executions run concurrently and report back over a channel, so
// tasks settle in completion order.
func (e *Engine) run(ctx context.Context, pl *models.Plan, g *graph.DependencyGraph) {
	completionCh := make(chan completion)
	running := 0

	for {
		e.skipDoomed(g)
		e.promoteReady(g)
		running += e.dispatch(ctx, g, completionCh, running)
		if running == 0 {
			return
		}

		c := <-completionCh
		running--
		e.settle(c, g)
	}
}

// skipDoomed marks tasks whose dependencies can no longer succeed as
// skipped, repeating until the cascade reaches a fixpoint so transitive
// dependents are skipped in the same pass.
func (e *Engine) skipDoomed(g *graph.DependencyGraph) {
	for {
		doomed := g.Doomed()
		if len(doomed) == 0 {
			return
		}
		for _, id := range doomed {
			task := g.Task(id)
			if task.Status == models.TaskStatusPending {
				task.Status = models.TaskStatusSkipped
				debugLog("[scheduler] skipping task %s: dependency did not succeed", id)
				e.events.emit(id, "", models.TaskStatusSkipped, 0)
			}
			g.MarkUnsatisfiable(id)
		}
	}
}

// promoteReady moves tasks whose dependencies have all succeeded from
// pending to ready.
func (e *Engine) promoteReady(g *graph.DependencyGraph) {
	for _, id := range g.Ready() {
		task := g.Task(id)
		if task.Status == models.TaskStatusPending {
			task.Status = models.TaskStatusReady
		}
	}
}

// dispatch starts as many ready tasks as the concurrency bound and worker
// slots allow, returning how many it started. A task whose worker is busy
// simply stays ready for a later pass. Tasks assigned to a worker the
// registry does not know are dispatched without a slot; the executor turns
// the missing worker into a failed attempt and consults fallbacks.
func (e *Engine) dispatch(ctx context.Context, g *graph.DependencyGraph, completionCh chan<- completion, running int) int {
	started := 0
	for _, id := range g.Ready() {
		if running+started >= e.maxConcurrency {
			break
		}
		task := g.Task(id)
		if task.Status != models.TaskStatusReady {
			continue
		}

		heldSlot := false
		if _, known := e.registry.Lookup(task.Worker); known {
			if !e.registry.TryAcquire(task.Worker) {
				debugLog("[scheduler] task %s waiting: worker %s is busy", id, task.Worker)
				continue
			}
			heldSlot = true
		}

		task.Status = models.TaskStatusRunning
		debugLog("[scheduler] dispatching task %s to worker %s", id, task.Worker)
		e.events.emit(task.ID, task.Worker, models.TaskStatusRunning, 0)

		started++
		go func(t *models.Task, held bool) {
			outcome := e.exec.Execute(ctx, t)
			completionCh <- completion{task: t, outcome: outcome, heldSlot: held}
		}(task, heldSlot)
	}
	return started
}

// settle applies an execution outcome to the task and the graph, releasing
// the worker slot the dispatch held.
func (e *Engine) settle(c completion, g *graph.DependencyGraph) {
	task := c.task
	if c.heldSlot {
		e.registry.Release(task.Worker)
	}

	task.Status = c.outcome.Status
	task.Attempts = c.outcome.Attempts
	task.Output = c.outcome.Output
	task.ExecutedBy = c.outcome.Worker
	task.Duration = c.outcome.Duration
	if c.outcome.Err != nil {
		task.Error = c.outcome.Err.Error()
	}

	if c.outcome.Status == models.TaskStatusSucceeded {
		g.MarkSucceeded(task.ID)
	} else {
		g.MarkUnsatisfiable(task.ID)
	}

	debugLog("[scheduler] task %s settled as %s after %d attempt(s) by %s",
		task.ID, task.Status, task.Attempts, task.ExecutedBy)
	e.events.emit(task.ID, c.outcome.Worker, task.Status, 0)
}

// Package executor runs a single task against a worker with timeout,
// retry, and fallback-worker semantics.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/mpratt/foreman/internal/worker"
	"github.com/mpratt/foreman/pkg/models"
)

const (
	// DefaultTimeout is the per-attempt deadline when none is configured.
	DefaultTimeout = 180 * time.Second
	// DefaultMaxAttempts is how many times the assigned worker is tried
	// before fallbacks are consulted.
	DefaultMaxAttempts = 2
)

// Policy controls retry, timeout, and fallback behavior for one execution.
type Policy struct {
	// Timeout is the hard deadline for a single attempt.
	Timeout time.Duration
	// MaxAttempts is the attempt budget on the assigned worker. The
	// assigned worker is always retried at least once before any fallback
	// is substituted.
	MaxAttempts int
	// Fallbacks maps a worker name to its ordered fallback chain. Each
	// fallback receives one attempt after the assigned worker's budget is
	// exhausted.
	Fallbacks map[string][]string
}

// withDefaults fills zero fields with package defaults.
func (p Policy) withDefaults() Policy {
	if p.Timeout <= 0 {
		p.Timeout = DefaultTimeout
	}
	if p.MaxAttempts < 1 {
		p.MaxAttempts = DefaultMaxAttempts
	}
	return p
}

// Outcome is the terminal result of executing one task.
type Outcome struct {
	// Status is succeeded, failed, or timed_out.
	Status models.TaskStatus
	// Output is the worker's text result on success.
	Output string
	// Err is the last error when the task did not succeed.
	Err error
	// Attempts is the total number of execution attempts made.
	Attempts int
	// Duration is the wall-clock time of the last attempt.
	Duration time.Duration
	// Worker names the worker whose attempt produced the terminal state.
	Worker string
}

// AttemptFunc observes every attempt: the per-attempt status is succeeded,
// failed, or timed_out, and attempt numbering is 1-based. This is the sole
// hook exposed to rendering layers.
type AttemptFunc func(taskID, workerName string, status models.TaskStatus, attempt int)

// Executor executes tasks against workers from a registry. It is stateless
// per call and safe for concurrent use.
type Executor struct {
	registry  *worker.Registry
	policy    Policy
	onAttempt AttemptFunc
}

// Option configures an Executor.
type Option func(*Executor)

// WithAttemptCallback registers the per-attempt progress callback.
func WithAttemptCallback(fn AttemptFunc) Option {
	return func(e *Executor) { e.onAttempt = fn }
}

// New creates an Executor over the given worker registry.
func New(registry *worker.Registry, policy Policy, opts ...Option) *Executor {
	e := &Executor{
		registry: registry,
		policy:   policy.withDefaults(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Policy returns the executor's effective policy.
func (e *Executor) Policy() Policy {
	return e.policy
}

// attemptSlot is one entry in the attempt schedule for a task.
type attemptSlot struct {
	workerName string
	// fallback is true when the worker differs from the task's assigned
	// worker; its registry slot must be acquired before running.
	fallback bool
}

// schedule builds the attempt order for a task: the assigned worker
// repeated MaxAttempts times, then each configured fallback once. The
// caller is assumed to already hold the assigned worker's slot.
func (e *Executor) schedule(assigned string) []attemptSlot {
	slots := make([]attemptSlot, 0, e.policy.MaxAttempts)
	for i := 0; i < e.policy.MaxAttempts; i++ {
		slots = append(slots, attemptSlot{workerName: assigned})
	}
	seen := map[string]bool{assigned: true}
	for _, fb := range e.policy.Fallbacks[assigned] {
		if seen[fb] {
			continue
		}
		seen[fb] = true
		slots = append(slots, attemptSlot{workerName: fb, fallback: true})
	}
	return slots
}

// Execute runs the task until it succeeds or its attempt schedule is
// exhausted. It never returns an error: failures are expressed in the
// outcome status, and nothing propagates up the call stack.
//
// The caller must hold the assigned worker's registry slot; fallback
// workers' slots are acquired here with a bounded wait so per-worker
// exclusivity also covers substituted workers.
func (e *Executor) Execute(ctx context.Context, task *models.Task) Outcome {
	outcome := Outcome{Worker: task.Worker}

	for _, slot := range e.schedule(task.Worker) {
		if ctx.Err() != nil {
			outcome.Status = models.TaskStatusFailed
			outcome.Err = ctx.Err()
			return outcome
		}

		w, ok := e.registry.Lookup(slot.workerName)
		if !ok {
			outcome.Attempts++
			outcome.Worker = slot.workerName
			outcome.Err = worker.NewError(slot.workerName, errors.New("not registered"))
			outcome.Status = models.TaskStatusFailed
			e.notify(task.ID, slot.workerName, models.TaskStatusFailed, outcome.Attempts)
			continue
		}

		if slot.fallback {
			if !e.claimFallback(ctx, slot.workerName) {
				log.Printf("[executor] task %s: fallback %s busy, skipping", task.ID, slot.workerName)
				continue
			}
		}

		status, output, dur, err := e.runOnce(ctx, w, slot.workerName, task.Description)

		if slot.fallback {
			e.registry.Release(slot.workerName)
		}

		outcome.Attempts++
		outcome.Duration = dur
		outcome.Worker = slot.workerName
		outcome.Status = status
		outcome.Err = err
		e.notify(task.ID, slot.workerName, status, outcome.Attempts)

		if status == models.TaskStatusSucceeded {
			outcome.Output = output
			outcome.Err = nil
			return outcome
		}
		log.Printf("[executor] task %s: attempt %d on %s %s: %v",
			task.ID, outcome.Attempts, slot.workerName, status, err)
	}

	if outcome.Attempts == 0 {
		// Schedule produced nothing runnable at all.
		outcome.Status = models.TaskStatusFailed
		if outcome.Err == nil {
			outcome.Err = fmt.Errorf("no runnable worker for task %s", task.ID)
		}
	}
	return outcome
}

// runOnce performs a single attempt under the per-attempt deadline. On
// timeout the attempt's goroutine is abandoned; the context it received is
// canceled so cooperative workers stop promptly, but siblings are never
// affected.
func (e *Executor) runOnce(ctx context.Context, w worker.Worker, name, description string) (models.TaskStatus, string, time.Duration, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, e.policy.Timeout)
	defer cancel()

	type result struct {
		output string
		err    error
	}
	done := make(chan result, 1)
	go func() {
		output, err := w.Run(attemptCtx, description)
		done <- result{output: output, err: err}
	}()

	start := time.Now()
	select {
	case res := <-done:
		dur := time.Since(start)
		if res.err != nil {
			if errors.Is(res.err, context.DeadlineExceeded) {
				return models.TaskStatusTimedOut, "", dur, worker.NewError(name, context.DeadlineExceeded)
			}
			return models.TaskStatusFailed, "", dur, res.err
		}
		return models.TaskStatusSucceeded, res.output, dur, nil
	case <-attemptCtx.Done():
		dur := time.Since(start)
		if errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
			return models.TaskStatusTimedOut, "", dur, worker.NewError(name, context.DeadlineExceeded)
		}
		return models.TaskStatusFailed, "", dur, attemptCtx.Err()
	}
}

// claimFallback acquires a fallback worker's slot, waiting at most one
// attempt timeout. Returns false when the slot could not be claimed in
// time, in which case the fallback is skipped.
func (e *Executor) claimFallback(ctx context.Context, name string) bool {
	waitCtx, cancel := context.WithTimeout(ctx, e.policy.Timeout)
	defer cancel()
	return e.registry.Acquire(waitCtx, name) == nil
}

func (e *Executor) notify(taskID, workerName string, status models.TaskStatus, attempt int) {
	if e.onAttempt != nil {
		e.onAttempt(taskID, workerName, status, attempt)
	}
}

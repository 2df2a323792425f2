package orchestrator

import (
	"sync"
	"time"

	"github.com/mpratt/foreman/pkg/models"
)

// Event describes one observable change in a delegation run. Terminal
// events (succeeded, failed, timed_out, skipped) are delivered in the order
// tasks actually settle, which is completion order, not plan order.
type Event struct {
	// TaskID identifies the task the event is about.
	TaskID string
	// Worker is the worker involved, empty for events with no worker
	// attached (a skip, for example).
	Worker string
	// Status is the task status the event reports.
	Status models.TaskStatus
	// Attempt is the 1-based attempt number for per-attempt events, zero
	// for lifecycle events.
	Attempt int
	// Timestamp is when the event was emitted.
	Timestamp time.Time
}

// ProgressFunc receives events as the run progresses. It is called from the
// engine's goroutines and must not block for long.
type ProgressFunc func(Event)

// emitter serializes event delivery so callers observe a consistent order
// even when attempts run concurrently.
type emitter struct {
	mu sync.Mutex
	fn ProgressFunc
}

func newEmitter(fn ProgressFunc) *emitter {
	return &emitter{fn: fn}
}

func (e *emitter) emit(taskID, worker string, status models.TaskStatus, attempt int) {
	if e == nil || e.fn == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.fn(Event{
		TaskID:    taskID,
		Worker:    worker,
		Status:    status,
		Attempt:   attempt,
		Timestamp: time.Now(),
	})
}

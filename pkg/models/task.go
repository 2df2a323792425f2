// Package models defines the shared data model for delegation runs.
package models

import "time"

// TaskStatus represents the current state of a task.
type TaskStatus string

const (
	// TaskStatusPending indicates the task is waiting on dependencies.
	TaskStatusPending TaskStatus = "pending"
	// TaskStatusReady indicates all dependencies succeeded and the task is
	// waiting for a free worker slot.
	TaskStatusReady TaskStatus = "ready"
	// TaskStatusRunning indicates the task is executing.
	TaskStatusRunning TaskStatus = "running"
	// TaskStatusSucceeded indicates the task completed successfully.
	TaskStatusSucceeded TaskStatus = "succeeded"
	// TaskStatusFailed indicates the task failed after retries.
	TaskStatusFailed TaskStatus = "failed"
	// TaskStatusTimedOut indicates the task exceeded its deadline on the
	// final attempt.
	TaskStatusTimedOut TaskStatus = "timed_out"
	// TaskStatusSkipped indicates the task was never executed because a
	// dependency did not succeed.
	TaskStatusSkipped TaskStatus = "skipped"
)

// Valid returns true if the status is a known value.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusReady, TaskStatusRunning,
		TaskStatusSucceeded, TaskStatusFailed, TaskStatusTimedOut, TaskStatusSkipped:
		return true
	default:
		return false
	}
}

// Terminal returns true if the status is final for a task.
func (s TaskStatus) Terminal() bool {
	switch s {
	case TaskStatusSucceeded, TaskStatusFailed, TaskStatusTimedOut, TaskStatusSkipped:
		return true
	default:
		return false
	}
}

// rank orders statuses along the state machine. A task's status only ever
// moves to a status with a strictly higher rank.
func (s TaskStatus) rank() int {
	switch s {
	case TaskStatusPending:
		return 0
	case TaskStatusReady:
		return 1
	case TaskStatusRunning:
		return 2
	case TaskStatusSucceeded, TaskStatusFailed, TaskStatusTimedOut, TaskStatusSkipped:
		return 3
	default:
		return -1
	}
}

// CanTransition reports whether moving from s to next is a legal forward
// transition. Skipped is reachable only from Pending; the other terminal
// states only from Running.
func (s TaskStatus) CanTransition(next TaskStatus) bool {
	if !s.Valid() || !next.Valid() || s.Terminal() {
		return false
	}
	if next == TaskStatusSkipped {
		return s == TaskStatusPending
	}
	if next.Terminal() {
		return s == TaskStatusRunning
	}
	return next.rank() == s.rank()+1
}

// Task is a unit of delegated work assigned to a named worker.
type Task struct {
	// ID is the planner-supplied identifier, unique within one plan.
	ID string `json:"id"`
	// Worker is the name of the worker that should execute this task.
	Worker string `json:"worker"`
	// Description is the free-text instruction passed to the worker.
	Description string `json:"description"`
	// DependsOn lists task IDs that must succeed before this task runs.
	DependsOn []string `json:"depends_on,omitempty"`
	// Status is the current state of the task.
	Status TaskStatus `json:"status"`
	// Attempts is the number of execution attempts made so far.
	Attempts int `json:"attempts,omitempty"`
	// Output is the text result on success.
	Output string `json:"output,omitempty"`
	// Error contains the failure reason when the task did not succeed.
	Error string `json:"error,omitempty"`
	// ExecutedBy names the worker whose attempt produced the terminal
	// state. It differs from Worker when a fallback was substituted.
	ExecutedBy string `json:"executed_by,omitempty"`
	// Duration is the wall-clock time of the last attempt.
	Duration time.Duration `json:"duration,omitempty"`
}

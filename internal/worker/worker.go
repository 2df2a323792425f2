// Package worker defines the worker collaborator interface and the named
// registry the scheduler dispatches through.
package worker

import (
	"context"
	"fmt"
)

// Worker executes a single task description and returns its text result.
// The engine looks workers up by name only and has no knowledge of what a
// worker actually does (LLM call, script execution, etc.).
type Worker interface {
	Run(ctx context.Context, description string) (string, error)
}

// Func adapts a plain function to the Worker interface. Used heavily in
// tests and for local echo workers.
type Func func(ctx context.Context, description string) (string, error)

// Run implements Worker.
func (f Func) Run(ctx context.Context, description string) (string, error) {
	return f(ctx, description)
}

// Error is a failure reported by a named worker.
type Error struct {
	// Worker is the name of the worker that failed.
	Worker string
	// Err is the underlying failure.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("worker %s: %v", e.Worker, e.Err)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError wraps err as a failure of the named worker.
func NewError(worker string, err error) *Error {
	return &Error{Worker: worker, Err: err}
}

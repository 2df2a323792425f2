package orchestrator

import (
	"github.com/mpratt/foreman/internal/executor"
)

// DefaultMaxConcurrency bounds how many tasks run at once when no limit is
// configured.
const DefaultMaxConcurrency = 4

// Option configures an Engine. Use With* functions to create Options.
type Option func(*engineOptions)

// engineOptions holds all optional configuration.
type engineOptions struct {
	maxConcurrency int
	policy         executor.Policy
	defaultWorker  string
	logger         *DebugLogger
	progress       ProgressFunc
}

// WithMaxConcurrency sets the maximum number of tasks running at once.
// Values below one are treated as one, so a single-slot pool still drains
// the whole plan.
func WithMaxConcurrency(n int) Option {
	return func(o *engineOptions) { o.maxConcurrency = n }
}

// WithPolicy sets the retry, timeout, and fallback policy for execution.
func WithPolicy(p executor.Policy) Option {
	return func(o *engineOptions) { o.policy = p }
}

// WithDefaultWorker sets the worker assigned to synthetic single-task plans
// when the planner's output cannot be parsed.
func WithDefaultWorker(name string) Option {
	return func(o *engineOptions) { o.defaultWorker = name }
}

// WithLogger sets the debug logger.
func WithLogger(l *DebugLogger) Option {
	return func(o *engineOptions) { o.logger = l }
}

// WithProgress registers a callback for run events.
func WithProgress(fn ProgressFunc) Option {
	return func(o *engineOptions) { o.progress = fn }
}

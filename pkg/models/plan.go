package models

import "time"

// Plan is an ordered collection of tasks produced by one planning call.
// The dependency structure is immutable once the plan is built; only task
// status, output, attempts, and timing mutate during execution.
type Plan struct {
	// Goal is the originating goal text the plan was produced for.
	Goal string `json:"goal"`
	// Tasks holds the plan's tasks in planner order.
	Tasks []*Task `json:"tasks"`
	// Warnings records non-fatal issues found while parsing or validating
	// the plan (dropped tasks, removed edges, broken cycles).
	Warnings []string `json:"warnings,omitempty"`
	// Synthetic is true when the plan is the single-task fallback produced
	// because no usable task list could be extracted.
	Synthetic bool `json:"synthetic,omitempty"`
	// CreatedAt is when the plan was built.
	CreatedAt time.Time `json:"created_at"`
}

// NewPlan creates a plan owning the given tasks.
func NewPlan(goal string, tasks []*Task) *Plan {
	return &Plan{
		Goal:      goal,
		Tasks:     tasks,
		CreatedAt: time.Now(),
	}
}

// Task returns the task with the given ID, or nil if not present.
func (p *Plan) Task(id string) *Task {
	for _, t := range p.Tasks {
		if t.ID == id {
			return t
		}
	}
	return nil
}

// CountByStatus returns how many tasks currently have the given status.
func (p *Plan) CountByStatus(status TaskStatus) int {
	n := 0
	for _, t := range p.Tasks {
		if t.Status == status {
			n++
		}
	}
	return n
}

// Settled returns true when every task has reached a terminal state.
func (p *Plan) Settled() bool {
	for _, t := range p.Tasks {
		if !t.Status.Terminal() {
			return false
		}
	}
	return true
}

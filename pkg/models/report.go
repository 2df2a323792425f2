package models

import "time"

// OverallStatus summarizes an entire delegation run.
type OverallStatus string

const (
	// OverallSuccess indicates every task succeeded.
	OverallSuccess OverallStatus = "success"
	// OverallPartial indicates a mix of succeeded and failed, timed out, or
	// skipped tasks.
	OverallPartial OverallStatus = "partial"
	// OverallPlanningFailed indicates no valid plan could be built at all.
	OverallPlanningFailed OverallStatus = "planning_failed"
)

// Valid returns true if the status is a known value.
func (s OverallStatus) Valid() bool {
	switch s {
	case OverallSuccess, OverallPartial, OverallPlanningFailed:
		return true
	default:
		return false
	}
}

// ExecutionReport is the final artifact of one delegation request.
type ExecutionReport struct {
	// Goal is the originating goal text.
	Goal string `json:"goal"`
	// Plan is the executed plan with final task states, in planner order.
	// Set even when planning failed, with no task executed.
	Plan *Plan `json:"plan,omitempty"`
	// Overall is the derived top-level status of the run.
	Overall OverallStatus `json:"overall"`
	// Error holds the planning failure reason when Overall is
	// planning_failed.
	Error string `json:"error,omitempty"`
	// StartedAt is when the delegation request began.
	StartedAt time.Time `json:"started_at"`
	// Duration is the wall-clock time of the whole run.
	Duration time.Duration `json:"duration"`
}

// Succeeded returns the tasks that reached succeeded state, in plan order.
func (r *ExecutionReport) Succeeded() []*Task {
	return r.tasksWith(TaskStatusSucceeded)
}

// Unsuccessful returns the tasks that terminated without succeeding, in
// plan order.
func (r *ExecutionReport) Unsuccessful() []*Task {
	if r.Plan == nil {
		return nil
	}
	var out []*Task
	for _, t := range r.Plan.Tasks {
		if t.Status.Terminal() && t.Status != TaskStatusSucceeded {
			out = append(out, t)
		}
	}
	return out
}

func (r *ExecutionReport) tasksWith(status TaskStatus) []*Task {
	if r.Plan == nil {
		return nil
	}
	var out []*Task
	for _, t := range r.Plan.Tasks {
		if t.Status == status {
			out = append(out, t)
		}
	}
	return out
}

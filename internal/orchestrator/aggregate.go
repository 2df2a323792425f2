package orchestrator

import (
	"time"

	"github.com/mpratt/foreman/pkg/models"
)

// buildReport derives the overall status from the settled plan. Success
// requires every task to have succeeded; anything less, including a plan
// where every task failed, is partial. Planning failures never reach this
// function.
func buildReport(goal string, pl *models.Plan, startedAt time.Time) *models.ExecutionReport {
	overall := models.OverallSuccess
	for _, t := range pl.Tasks {
		if t.Status != models.TaskStatusSucceeded {
			overall = models.OverallPartial
			break
		}
	}

	return &models.ExecutionReport{
		Goal:      goal,
		Plan:      pl,
		Overall:   overall,
		StartedAt: startedAt,
		Duration:  time.Since(startedAt),
	}
}

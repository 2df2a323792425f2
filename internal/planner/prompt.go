package planner

import (
	"fmt"
	"strings"
)

// planningSystem is the system prompt for the planning call.
const planningSystem = "You are a delegation planner. You break goals into small, independent subtasks and assign each to a named worker."

// planningPrompt is the prompt template for the breakdown request.
const planningPrompt = `Break this goal into a dependency-ordered set of subtasks assigned to named workers.

Goal:
%s

Available workers (assign every task to one of these names):
%s

Return ONLY a JSON object with this exact structure (no other text):
{
  "tasks": [
    {
      "task_id": "1",
      "agent": "worker name",
      "description": "Detailed instruction for the worker",
      "dependencies": ["task_id of prerequisite"]
    }
  ]
}

Guidelines:
- Tasks should be as independent as possible to allow parallel execution
- Only add dependencies when task A genuinely must complete before task B
- Each task should be completable by a single worker in one sitting
- Use an empty array [] for dependencies when there are none
- task_id values must be unique strings
- Never reference a task_id that is not in the list`

// buildPrompt fills the planning template for a goal and worker roster.
func buildPrompt(goal string, workers []string) string {
	roster := "- any"
	if len(workers) > 0 {
		roster = "- " + strings.Join(workers, "\n- ")
	}
	return fmt.Sprintf(planningPrompt, goal, roster)
}

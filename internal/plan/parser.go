// Package plan extracts a validated task list from raw planner output.
//
// Planner output is untrusted: the JSON payload may be wrapped in prose,
// fenced in markdown, truncated, or lightly malformed. The parser tries a
// series of extraction strategies and falls back to a synthetic single-task
// plan rather than failing, so delegation always has something to execute.
package plan

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"

	"github.com/mpratt/foreman/pkg/models"
)

// plannedTask is the JSON structure the planner returns for a single task.
// IDs arrive as strings or numbers depending on the model, so they are
// decoded raw and coerced afterwards.
type plannedTask struct {
	TaskID       json.RawMessage   `json:"task_id"`
	Agent        string            `json:"agent"`
	Description  string            `json:"description"`
	Dependencies []json.RawMessage `json:"dependencies"`
}

// planDocument is the canonical planner response shape.
type planDocument struct {
	Tasks []plannedTask `json:"tasks"`
}

// Parser turns raw planner text into a models.Plan.
type Parser struct {
	// defaultWorker is assigned to the synthetic fallback task when no
	// usable task list can be extracted.
	defaultWorker string
}

// NewParser creates a parser that assigns fallback tasks to defaultWorker.
func NewParser(defaultWorker string) *Parser {
	return &Parser{defaultWorker: defaultWorker}
}

// Parse extracts a plan from raw planner output. It never fails: when no
// strategy yields a non-empty task list, or field validation drops every
// task, it returns a synthetic single-task plan whose description is the
// original goal.
func (p *Parser) Parse(goal, raw string) *models.Plan {
	doc, warnings := p.extract(raw)
	if doc == nil || len(doc.Tasks) == 0 {
		return p.syntheticPlan(goal, warnings)
	}

	tasks, dropWarnings := validateTasks(doc.Tasks)
	warnings = append(warnings, dropWarnings...)
	if len(tasks) == 0 {
		warnings = append(warnings, "all parsed tasks failed field validation")
		return p.syntheticPlan(goal, warnings)
	}

	plan := models.NewPlan(goal, tasks)
	plan.Warnings = warnings
	return plan
}

// extract runs the extraction strategies in order and returns the first
// decodable document with a non-empty task list.
func (p *Parser) extract(raw string) (*planDocument, []string) {
	var warnings []string

	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, []string{"planner returned empty output"}
	}

	// Strategy 1: the whole trimmed text is the JSON object.
	if doc := decodeDocument(trimmed); doc != nil {
		return doc, nil
	}

	// Strategy 2: a fenced code block holds the JSON.
	candidate := fencedBlock(trimmed)
	if candidate != "" {
		if doc := decodeDocument(candidate); doc != nil {
			return doc, nil
		}
	}

	// Strategy 3: balanced {...} spans, searched inside the fence when one
	// carries prose of its own, otherwise in the raw text. Every span is
	// tried, so a decoy object in leading prose does not mask the payload.
	source := trimmed
	if candidate != "" {
		source = candidate
	}
	spans := balancedSpans(source)
	for _, span := range spans {
		if doc := decodeDocument(span); doc != nil {
			return doc, nil
		}
	}

	// Strategy 4: sanitize the candidates so far and retry each once.
	retries := spans
	if candidate != "" {
		retries = append(retries, candidate)
	}
	retries = append(retries, trimmed)
	for _, best := range retries {
		cleaned := sanitize(best)
		if cleaned == best {
			continue
		}
		if doc := decodeDocument(cleaned); doc != nil {
			warnings = append(warnings, "planner output required sanitization before parsing")
			return doc, warnings
		}
	}

	log.Printf("[plan] no extraction strategy succeeded on %d chars of planner output", len(raw))
	warnings = append(warnings, "planner output contained no parsable task list")
	return nil, warnings
}

// decodeDocument parses a candidate JSON string into a planDocument.
// Returns nil unless the candidate decodes and carries at least one task.
func decodeDocument(candidate string) *planDocument {
	var doc planDocument
	if err := json.Unmarshal([]byte(candidate), &doc); err != nil {
		return nil
	}
	if len(doc.Tasks) == 0 {
		return nil
	}
	return &doc
}

// validateTasks applies field-level validation. Tasks missing a worker or a
// description are dropped with a warning instead of failing the parse.
func validateTasks(planned []plannedTask) ([]*models.Task, []string) {
	var tasks []*models.Task
	var warnings []string

	for i, pt := range planned {
		agent := strings.TrimSpace(pt.Agent)
		description := strings.TrimSpace(pt.Description)
		if agent == "" || description == "" {
			warnings = append(warnings, fmt.Sprintf("dropped task %d: missing agent or description", i+1))
			continue
		}

		id := coerceID(pt.TaskID)
		if id == "" {
			id = uuid.New().String()
		}

		deps := make([]string, 0, len(pt.Dependencies))
		for _, d := range pt.Dependencies {
			if dep := coerceID(d); dep != "" {
				deps = append(deps, dep)
			}
		}
		if len(deps) == 0 {
			deps = nil
		}

		tasks = append(tasks, &models.Task{
			ID:          id,
			Worker:      agent,
			Description: description,
			DependsOn:   deps,
			Status:      models.TaskStatusPending,
		})
	}

	return tasks, warnings
}

// coerceID turns a raw JSON value (string or number) into a string id.
func coerceID(raw json.RawMessage) string {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return ""
	}
	if strings.HasPrefix(trimmed, `"`) {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return ""
		}
		return strings.TrimSpace(s)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return ""
	}
	return n.String()
}

// syntheticPlan builds the single-task fallback plan. This is deliberate
// policy: the engine must always produce an executable plan.
func (p *Parser) syntheticPlan(goal string, warnings []string) *models.Plan {
	log.Printf("[plan] falling back to synthetic single-task plan for goal %q", truncate(goal, 80))

	plan := models.NewPlan(goal, []*models.Task{{
		ID:          uuid.New().String(),
		Worker:      p.defaultWorker,
		Description: goal,
		Status:      models.TaskStatusPending,
	}})
	plan.Synthetic = true
	plan.Warnings = warnings
	return plan
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

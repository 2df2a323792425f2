package plan

import (
	"strings"
	"testing"

	"github.com/mpratt/foreman/pkg/models"
)

const calculatorJSON = `{"tasks":[` +
	`{"task_id":"1","agent":"nova","description":"write calc.py","dependencies":[]},` +
	`{"task_id":"2","agent":"quinn","description":"write tests","dependencies":["1"]}]}`

func TestParseBareJSON(t *testing.T) {
	p := NewParser("generalist")
	plan := p.Parse("build a calculator", calculatorJSON)

	if plan.Synthetic {
		t.Fatal("expected a parsed plan, got synthetic fallback")
	}
	if len(plan.Tasks) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(plan.Tasks))
	}

	first := plan.Tasks[0]
	if first.ID != "1" || first.Worker != "nova" || first.Description != "write calc.py" {
		t.Errorf("unexpected first task: %+v", first)
	}
	if len(first.DependsOn) != 0 {
		t.Errorf("expected no dependencies on first task, got %v", first.DependsOn)
	}

	second := plan.Tasks[1]
	if second.ID != "2" || second.Worker != "quinn" {
		t.Errorf("unexpected second task: %+v", second)
	}
	if len(second.DependsOn) != 1 || second.DependsOn[0] != "1" {
		t.Errorf("expected second task to depend on [1], got %v", second.DependsOn)
	}
	for _, task := range plan.Tasks {
		if task.Status != models.TaskStatusPending {
			t.Errorf("expected pending status, got %s", task.Status)
		}
	}
}

func TestParseWrappedInProseAndFence(t *testing.T) {
	wrapped := "Here is the breakdown you asked for:\n\n```json\n" + calculatorJSON + "\n```\n\nLet me know if you want changes."

	p := NewParser("generalist")
	bare := p.Parse("build a calculator", calculatorJSON)
	fenced := p.Parse("build a calculator", wrapped)

	if fenced.Synthetic {
		t.Fatal("expected fenced JSON to parse, got synthetic fallback")
	}
	if len(fenced.Tasks) != len(bare.Tasks) {
		t.Fatalf("fenced parse yielded %d tasks, bare parse %d", len(fenced.Tasks), len(bare.Tasks))
	}
	for i := range bare.Tasks {
		if fenced.Tasks[i].ID != bare.Tasks[i].ID ||
			fenced.Tasks[i].Worker != bare.Tasks[i].Worker ||
			fenced.Tasks[i].Description != bare.Tasks[i].Description {
			t.Errorf("task %d differs between bare and fenced parse: %+v vs %+v",
				i, bare.Tasks[i], fenced.Tasks[i])
		}
	}
}

func TestParseFenceWithoutLanguageTag(t *testing.T) {
	wrapped := "Plan follows.\n```\n" + calculatorJSON + "\n```"

	plan := NewParser("generalist").Parse("goal", wrapped)
	if plan.Synthetic || len(plan.Tasks) != 2 {
		t.Fatalf("expected 2 tasks from untagged fence, got synthetic=%v tasks=%d", plan.Synthetic, len(plan.Tasks))
	}
}

func TestParseBalancedSpanInProse(t *testing.T) {
	wrapped := "Thinking about it, the plan is " + calculatorJSON + " which should work well."

	plan := NewParser("generalist").Parse("goal", wrapped)
	if plan.Synthetic || len(plan.Tasks) != 2 {
		t.Fatalf("expected 2 tasks from embedded span, got synthetic=%v tasks=%d", plan.Synthetic, len(plan.Tasks))
	}
}

func TestParseStrayBraceBeforeJSON(t *testing.T) {
	wrapped := "Note: use { where needed. Here is the plan:\n" + calculatorJSON

	plan := NewParser("generalist").Parse("build a calculator", wrapped)
	if plan.Synthetic {
		t.Fatal("expected the embedded JSON plan to be extracted, got synthetic fallback")
	}
	if len(plan.Tasks) != 2 || plan.Tasks[0].Worker != "nova" || plan.Tasks[1].Worker != "quinn" {
		t.Fatalf("unexpected tasks: %+v", plan.Tasks)
	}
}

func TestParseDecoyObjectBeforeJSON(t *testing.T) {
	wrapped := "First {a note in braces} and then the plan " + calculatorJSON

	plan := NewParser("generalist").Parse("goal", wrapped)
	if plan.Synthetic || len(plan.Tasks) != 2 {
		t.Fatalf("expected the second span to decode, got synthetic=%v tasks=%d", plan.Synthetic, len(plan.Tasks))
	}
}

func TestParseBracesInsideStrings(t *testing.T) {
	raw := `{"tasks":[{"task_id":"1","agent":"nova","description":"emit {json} with } braces","dependencies":[]}]}`

	plan := NewParser("generalist").Parse("goal", "prefix text "+raw)
	if plan.Synthetic || len(plan.Tasks) != 1 {
		t.Fatalf("expected 1 task, got synthetic=%v tasks=%d", plan.Synthetic, len(plan.Tasks))
	}
	if !strings.Contains(plan.Tasks[0].Description, "{json}") {
		t.Errorf("description lost braces: %q", plan.Tasks[0].Description)
	}
}

func TestParseSanitizesTrailingCommasAndSmartQuotes(t *testing.T) {
	raw := "```json\n" +
		"{“tasks”: [{“task_id”: “1”, “agent”: “nova”, “description”: “write calc.py”, “dependencies”: [],},]}\n" +
		"```"

	plan := NewParser("generalist").Parse("goal", raw)
	if plan.Synthetic {
		t.Fatal("expected sanitization to recover the plan, got synthetic fallback")
	}
	if len(plan.Tasks) != 1 || plan.Tasks[0].Worker != "nova" {
		t.Fatalf("unexpected tasks after sanitization: %+v", plan.Tasks)
	}
	if len(plan.Warnings) == 0 {
		t.Error("expected a sanitization warning")
	}
}

func TestParseNumericIDsCoercedToStrings(t *testing.T) {
	raw := `{"tasks":[` +
		`{"task_id":1,"agent":"nova","description":"first","dependencies":[]},` +
		`{"task_id":2,"agent":"quinn","description":"second","dependencies":[1]}]}`

	plan := NewParser("generalist").Parse("goal", raw)
	if plan.Synthetic || len(plan.Tasks) != 2 {
		t.Fatalf("expected 2 tasks, got synthetic=%v tasks=%d", plan.Synthetic, len(plan.Tasks))
	}
	if plan.Tasks[0].ID != "1" {
		t.Errorf("expected numeric id coerced to %q, got %q", "1", plan.Tasks[0].ID)
	}
	if len(plan.Tasks[1].DependsOn) != 1 || plan.Tasks[1].DependsOn[0] != "1" {
		t.Errorf("expected numeric dependency coerced to [1], got %v", plan.Tasks[1].DependsOn)
	}
}

func TestParseUnparsableFallsBackToSyntheticPlan(t *testing.T) {
	inputs := []string{
		"",
		"I could not produce a breakdown, sorry.",
		"```json\n{\"tasks\": [\n```", // truncated fence
		`{"tasks": []}`,
		`{"unrelated": true}`,
	}

	for _, raw := range inputs {
		plan := NewParser("generalist").Parse("build a calculator", raw)
		if !plan.Synthetic {
			t.Errorf("input %q: expected synthetic plan", raw)
			continue
		}
		if len(plan.Tasks) != 1 {
			t.Errorf("input %q: expected 1 task, got %d", raw, len(plan.Tasks))
			continue
		}
		task := plan.Tasks[0]
		if task.Description != "build a calculator" {
			t.Errorf("input %q: expected goal as description, got %q", raw, task.Description)
		}
		if task.Worker != "generalist" {
			t.Errorf("input %q: expected default worker, got %q", raw, task.Worker)
		}
		if task.ID == "" {
			t.Errorf("input %q: expected a generated id", raw)
		}
	}
}

func TestParseDropsInvalidTasksWithWarnings(t *testing.T) {
	raw := `{"tasks":[` +
		`{"task_id":"1","agent":"","description":"no agent","dependencies":[]},` +
		`{"task_id":"2","agent":"nova","description":"","dependencies":[]},` +
		`{"task_id":"3","agent":"quinn","description":"valid","dependencies":[]}]}`

	plan := NewParser("generalist").Parse("goal", raw)
	if plan.Synthetic {
		t.Fatal("expected parsed plan with one surviving task")
	}
	if len(plan.Tasks) != 1 || plan.Tasks[0].ID != "3" {
		t.Fatalf("expected only task 3 to survive, got %+v", plan.Tasks)
	}
	if len(plan.Warnings) != 2 {
		t.Errorf("expected 2 drop warnings, got %v", plan.Warnings)
	}
}

func TestParseAllTasksInvalidFallsBack(t *testing.T) {
	raw := `{"tasks":[{"task_id":"1","agent":"","description":"","dependencies":[]}]}`

	plan := NewParser("generalist").Parse("the goal", raw)
	if !plan.Synthetic {
		t.Fatal("expected synthetic fallback when every task is dropped")
	}
	if plan.Tasks[0].Description != "the goal" {
		t.Errorf("expected goal as fallback description, got %q", plan.Tasks[0].Description)
	}
}

func TestParseMissingDependenciesDefaultsToEmpty(t *testing.T) {
	raw := `{"tasks":[{"task_id":"1","agent":"nova","description":"solo"}]}`

	plan := NewParser("generalist").Parse("goal", raw)
	if plan.Synthetic || len(plan.Tasks) != 1 {
		t.Fatalf("expected 1 task, got synthetic=%v tasks=%d", plan.Synthetic, len(plan.Tasks))
	}
	if len(plan.Tasks[0].DependsOn) != 0 {
		t.Errorf("expected empty dependencies, got %v", plan.Tasks[0].DependsOn)
	}
}

func TestFencedBlock(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"tagged", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"untagged", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"unclosed", "```json\n{\"a\":1}", ""},
		{"no fence", `{"a":1}`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := fencedBlock(tt.in); got != tt.want {
				t.Errorf("fencedBlock(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestBalancedSpan(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare object", `{"a":1}`, `{"a":1}`},
		{"embedded", `before {"a":{"b":2}} after`, `{"a":{"b":2}}`},
		{"brace in string", `x {"a":"}"} y`, `{"a":"}"}`},
		{"unbalanced", `{"a":1`, ""},
		{"no object", "plain text", ""},
		{"stray open brace first", `use { freely, then {"a":1}`, `{"a":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := balancedSpan(tt.in); got != tt.want {
				t.Errorf("balancedSpan(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestBalancedSpansReturnsEverySpan(t *testing.T) {
	spans := balancedSpans(`{decoy} prose {"a":1} more`)
	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %v", spans)
	}
	if spans[0] != `{decoy}` || spans[1] != `{"a":1}` {
		t.Errorf("unexpected spans: %v", spans)
	}
}

func TestSanitize(t *testing.T) {
	in := `{"a": [1, 2,], "b": "keep, this",}`
	want := `{"a": [1, 2], "b": "keep, this"}`
	if got := sanitize(in); got != want {
		t.Errorf("sanitize(%q) = %q, want %q", in, got, want)
	}
}

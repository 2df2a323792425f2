// Package planner defines the planning collaborator that proposes a task
// breakdown for a goal.
package planner

import (
	"context"
	"fmt"

	"github.com/mpratt/foreman/internal/api"
)

// Planner proposes a raw textual breakdown for a goal. The output is
// untrusted; the plan parser is responsible for extracting a usable task
// list from it. A Propose error is treated by the engine exactly like
// unparsable text.
type Planner interface {
	Propose(ctx context.Context, goal string) (string, error)
}

// Func adapts a plain function to the Planner interface.
type Func func(ctx context.Context, goal string) (string, error)

// Propose implements Planner.
func (f Func) Propose(ctx context.Context, goal string) (string, error) {
	return f(ctx, goal)
}

// Static is a Planner that always returns the same raw text. Useful for
// tests and for replaying recorded planner output.
type Static struct {
	Raw string
}

// Propose implements Planner.
func (s Static) Propose(ctx context.Context, goal string) (string, error) {
	return s.Raw, nil
}

// Claude is a Planner backed by the Anthropic API.
type Claude struct {
	client  *api.Client
	workers []string
}

// NewClaude creates a Claude-backed planner. The worker names are embedded
// in the prompt so the model assigns tasks to workers that actually exist.
func NewClaude(client *api.Client, workers []string) *Claude {
	return &Claude{client: client, workers: workers}
}

// Propose implements Planner.
func (c *Claude) Propose(ctx context.Context, goal string) (string, error) {
	prompt := buildPrompt(goal, c.workers)
	out, err := c.client.Complete(ctx, planningSystem, prompt)
	if err != nil {
		return "", fmt.Errorf("propose breakdown: %w", err)
	}
	return out, nil
}

var _ Planner = (*Claude)(nil)

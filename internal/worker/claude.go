package worker

import (
	"context"

	"github.com/mpratt/foreman/internal/api"
)

const defaultClaudeSystem = "You are a focused worker agent. Complete the assigned task and reply with the result only, no preamble."

// Claude is a Worker backed by the Anthropic API.
type Claude struct {
	name   string
	client *api.Client
	system string
}

// ClaudeOption configures a Claude worker.
type ClaudeOption func(*Claude)

// WithClaudeSystem overrides the worker's system prompt.
func WithClaudeSystem(system string) ClaudeOption {
	return func(c *Claude) { c.system = system }
}

// NewClaude creates an Anthropic-backed worker with the given name.
func NewClaude(name string, client *api.Client, opts ...ClaudeOption) *Claude {
	c := &Claude{
		name:   name,
		client: client,
		system: defaultClaudeSystem,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run implements Worker.
func (c *Claude) Run(ctx context.Context, description string) (string, error) {
	out, err := c.client.Complete(ctx, c.system, description)
	if err != nil {
		return "", NewError(c.name, err)
	}
	return out, nil
}

var _ Worker = (*Claude)(nil)

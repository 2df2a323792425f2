package worker

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
)

const defaultOpenAISystem = "You are a focused worker agent. Complete the assigned task and reply with the result only, no preamble."

// OpenAI is a Worker backed by the OpenAI Chat Completions API, so rosters
// can mix providers.
type OpenAI struct {
	name   string
	client *openai.Client
	model  string
	system string
}

// OpenAIOption configures an OpenAI worker.
type OpenAIOption func(*OpenAI)

// WithOpenAIModel overrides the default model.
func WithOpenAIModel(model string) OpenAIOption {
	return func(o *OpenAI) { o.model = model }
}

// WithOpenAISystem overrides the worker's system prompt.
func WithOpenAISystem(system string) OpenAIOption {
	return func(o *OpenAI) { o.system = system }
}

// NewOpenAI creates an OpenAI-backed worker with the given name. The client
// reads OPENAI_API_KEY from the environment when constructed via
// openai.NewClient().
func NewOpenAI(name string, client *openai.Client, opts ...OpenAIOption) *OpenAI {
	o := &OpenAI{
		name:   name,
		client: client,
		model:  openai.ChatModelGPT4oMini,
		system: defaultOpenAISystem,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run implements Worker.
func (o *OpenAI) Run(ctx context.Context, description string) (string, error) {
	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: o.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(o.system),
			openai.UserMessage(description),
		},
	})
	if err != nil {
		return "", NewError(o.name, fmt.Errorf("openai api: %w", err))
	}
	if len(resp.Choices) == 0 {
		return "", NewError(o.name, fmt.Errorf("openai api: no choices returned"))
	}
	return resp.Choices[0].Message.Content, nil
}

var _ Worker = (*OpenAI)(nil)

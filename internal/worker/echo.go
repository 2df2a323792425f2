package worker

import "context"

// Echo is a Worker that returns the task description unchanged. It backs
// offline runs and roster smoke tests where no API should be called.
type Echo struct {
	name string
}

// NewEcho creates an echo worker with the given name.
func NewEcho(name string) *Echo {
	return &Echo{name: name}
}

// Run implements Worker.
func (e *Echo) Run(ctx context.Context, description string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", NewError(e.name, err)
	}
	return description, nil
}

var _ Worker = (*Echo)(nil)

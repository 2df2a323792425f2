package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// WorkerProvider identifies which backend a worker talks to.
type WorkerProvider string

const (
	// ProviderClaude backs a worker with the Anthropic API.
	ProviderClaude WorkerProvider = "claude"
	// ProviderOpenAI backs a worker with the OpenAI API.
	ProviderOpenAI WorkerProvider = "openai"
	// ProviderEcho backs a worker that returns its input unchanged, for
	// offline runs.
	ProviderEcho WorkerProvider = "echo"
)

// Valid returns true if the provider is a known value.
func (p WorkerProvider) Valid() bool {
	return p == ProviderClaude || p == ProviderOpenAI || p == ProviderEcho
}

// WorkerConfig describes one worker in the roster file.
type WorkerConfig struct {
	// Name is the roster-unique worker name the planner assigns tasks to.
	Name string `yaml:"name"`
	// Provider selects the backend: claude, openai, or echo.
	Provider WorkerProvider `yaml:"provider"`
	// Model overrides the provider's default model.
	Model string `yaml:"model,omitempty"`
	// System overrides the worker's system prompt.
	System string `yaml:"system,omitempty"`
	// Fallbacks lists worker names substituted, in order, when this
	// worker's attempt budget is exhausted.
	Fallbacks []string `yaml:"fallbacks,omitempty"`
}

// Roster is the parsed workers.yaml file.
type Roster struct {
	Workers []WorkerConfig `yaml:"workers"`
	// DefaultWorker receives synthetic fallback tasks. Optional; the
	// first worker in the roster is used when unset.
	DefaultWorker string `yaml:"default_worker,omitempty"`
}

// LoadRoster reads and validates a roster file.
func LoadRoster(path string) (*Roster, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading roster: %w", err)
	}

	roster := &Roster{}
	if err := yaml.Unmarshal(data, roster); err != nil {
		return nil, fmt.Errorf("parsing roster %s: %w", path, err)
	}

	if err := roster.Validate(); err != nil {
		return nil, fmt.Errorf("roster %s: %w", path, err)
	}
	return roster, nil
}

// FindRoster searches for workers.yaml in the current directory, its
// parents, and the user config directory. Returns empty when none exists.
func FindRoster() string {
	cwd, err := os.Getwd()
	if err == nil {
		for {
			p := filepath.Join(cwd, "workers.yaml")
			if _, err := os.Stat(p); err == nil {
				return p
			}
			parent := filepath.Dir(cwd)
			if parent == cwd {
				break
			}
			cwd = parent
		}
	}

	p := filepath.Join(getUserConfigDir(), "workers.yaml")
	if _, err := os.Stat(p); err == nil {
		return p
	}
	return ""
}

// Validate checks roster invariants: at least one worker, unique names,
// known providers, and fallbacks that reference roster workers.
func (r *Roster) Validate() error {
	if len(r.Workers) == 0 {
		return fmt.Errorf("no workers defined")
	}

	names := make(map[string]bool, len(r.Workers))
	for _, w := range r.Workers {
		if w.Name == "" {
			return fmt.Errorf("worker with empty name")
		}
		if names[w.Name] {
			return fmt.Errorf("duplicate worker name %q", w.Name)
		}
		names[w.Name] = true
		if !w.Provider.Valid() {
			return fmt.Errorf("worker %q: unknown provider %q", w.Name, w.Provider)
		}
	}

	for _, w := range r.Workers {
		for _, fb := range w.Fallbacks {
			if !names[fb] {
				return fmt.Errorf("worker %q: fallback %q is not in the roster", w.Name, fb)
			}
			if fb == w.Name {
				return fmt.Errorf("worker %q: lists itself as a fallback", w.Name)
			}
		}
	}

	if r.DefaultWorker != "" && !names[r.DefaultWorker] {
		return fmt.Errorf("default worker %q is not in the roster", r.DefaultWorker)
	}
	return nil
}

// Default returns the worker synthetic tasks are assigned to.
func (r *Roster) Default() string {
	if r.DefaultWorker != "" {
		return r.DefaultWorker
	}
	return r.Workers[0].Name
}

// FallbackMap returns the worker-to-fallback-chain mapping for execution.
func (r *Roster) FallbackMap() map[string][]string {
	m := make(map[string][]string)
	for _, w := range r.Workers {
		if len(w.Fallbacks) > 0 {
			m[w.Name] = append([]string(nil), w.Fallbacks...)
		}
	}
	return m
}

// Names returns the roster's worker names in file order.
func (r *Roster) Names() []string {
	names := make([]string, 0, len(r.Workers))
	for _, w := range r.Workers {
		names = append(names, w.Name)
	}
	return names
}

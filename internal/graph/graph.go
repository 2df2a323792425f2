// Package graph provides the dependency graph used for task scheduling.
package graph

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/mpratt/foreman/pkg/models"
)

// ErrDuplicateTaskID indicates two tasks in one plan share an id. This is
// the one structural error that fails plan construction outright.
var ErrDuplicateTaskID = errors.New("duplicate task id")

// DependencyGraph is a directed graph of task dependencies. Tasks are
// nodes; an edge A -> B means A is blocked by B.
//
// Construction recovers from everything it can: dependency references to
// unknown tasks are dropped, and cycles are broken by removing the edge
// that closes them. Both are recorded as warnings. Only duplicate ids fail
// the build, because no coherent graph exists at all in that case.
type DependencyGraph struct {
	mu sync.RWMutex
	// nodes maps task ID to the task itself.
	nodes map[string]*models.Task
	// edges maps task ID to IDs of tasks it depends on.
	edges map[string][]string
	// order preserves planner task order for deterministic iteration.
	order []string
	// succeeded tracks tasks whose dependents may now proceed.
	succeeded map[string]bool
	// unsatisfiable tracks tasks that terminated without succeeding;
	// their dependents can never run.
	unsatisfiable map[string]bool
	// warnings records dropped edges and broken cycles.
	warnings []string
}

// Build constructs a dependency graph from the plan's tasks.
// Returns ErrDuplicateTaskID (wrapped with the offending id) when two tasks
// share an id; all other structural problems are repaired with a warning.
func Build(tasks []*models.Task) (*DependencyGraph, error) {
	g := &DependencyGraph{
		nodes:         make(map[string]*models.Task, len(tasks)),
		edges:         make(map[string][]string, len(tasks)),
		succeeded:     make(map[string]bool),
		unsatisfiable: make(map[string]bool),
	}

	for _, task := range tasks {
		if _, exists := g.nodes[task.ID]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateTaskID, task.ID)
		}
		g.nodes[task.ID] = task
		g.edges[task.ID] = nil
		g.order = append(g.order, task.ID)
	}

	for _, task := range tasks {
		for _, depID := range task.DependsOn {
			if depID == task.ID {
				g.warnings = append(g.warnings, fmt.Sprintf("task %s: dropped self-dependency", task.ID))
				continue
			}
			if _, exists := g.nodes[depID]; !exists {
				g.warnings = append(g.warnings, fmt.Sprintf("task %s: dropped dependency on unknown task %s", task.ID, depID))
				continue
			}
			g.edges[task.ID] = append(g.edges[task.ID], depID)
		}
	}

	g.breakCycles()

	return g, nil
}

// breakCycles removes the closing edge of every dependency cycle, recording
// a warning per removed edge. Partial progress is preferred to refusing the
// whole plan.
func (g *DependencyGraph) breakCycles() {
	for {
		from, to, found := g.findCycleEdge()
		if !found {
			return
		}
		g.removeEdge(from, to)
		g.warnings = append(g.warnings, fmt.Sprintf("broke dependency cycle by removing edge %s -> %s", from, to))
	}
}

// findCycleEdge runs DFS with a recursion stack and returns the back edge
// that closes the first cycle found.
func (g *DependencyGraph) findCycleEdge() (from, to string, found bool) {
	const (
		white = 0 // unvisited
		gray  = 1 // on the recursion stack
		black = 2 // done
	)
	colors := make(map[string]int, len(g.nodes))

	var visit func(id string) bool
	visit = func(id string) bool {
		colors[id] = gray
		for _, depID := range g.edges[id] {
			switch colors[depID] {
			case gray:
				from, to = id, depID
				return true
			case white:
				if visit(depID) {
					return true
				}
			}
		}
		colors[id] = black
		return false
	}

	for _, id := range g.order {
		if colors[id] == white {
			if visit(id) {
				return from, to, true
			}
		}
	}
	return "", "", false
}

func (g *DependencyGraph) removeEdge(from, to string) {
	deps := g.edges[from]
	for i, depID := range deps {
		if depID == to {
			g.edges[from] = append(deps[:i], deps[i+1:]...)
			return
		}
	}
}

// Warnings returns the structural warnings recorded during construction.
func (g *DependencyGraph) Warnings() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]string, len(g.warnings))
	copy(out, g.warnings)
	return out
}

// Ready returns, in planner order, the ids of tasks whose dependencies have
// all succeeded and which have not themselves reached a terminal state.
func (g *DependencyGraph) Ready() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var ready []string
	for _, id := range g.order {
		if g.succeeded[id] || g.unsatisfiable[id] {
			continue
		}
		satisfied := true
		for _, depID := range g.edges[id] {
			if !g.succeeded[depID] {
				satisfied = false
				break
			}
		}
		if satisfied {
			ready = append(ready, id)
		}
	}
	return ready
}

// Doomed returns, in planner order, the ids of tasks that are not yet
// terminal but have at least one dependency that can no longer succeed.
// Callers skip these and mark them unsatisfiable, which cascades to their
// own dependents on the next call.
func (g *DependencyGraph) Doomed() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var doomed []string
	for _, id := range g.order {
		if g.succeeded[id] || g.unsatisfiable[id] {
			continue
		}
		for _, depID := range g.edges[id] {
			if g.unsatisfiable[depID] {
				doomed = append(doomed, id)
				break
			}
		}
	}
	return doomed
}

// MarkSucceeded records that a task succeeded, unblocking its dependents.
func (g *DependencyGraph) MarkSucceeded(taskID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.succeeded[taskID] = true
}

// MarkUnsatisfiable records that a task terminated without succeeding.
// Its dependents will surface through Doomed.
func (g *DependencyGraph) MarkUnsatisfiable(taskID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.unsatisfiable[taskID] = true
}

// Task returns the task for the given id, or nil if not found.
func (g *DependencyGraph) Task(taskID string) *models.Task {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.nodes[taskID]
}

// Size returns the number of tasks in the graph.
func (g *DependencyGraph) Size() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

// Dependencies returns the surviving dependency ids for the given task.
func (g *DependencyGraph) Dependencies(taskID string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	deps := make([]string, len(g.edges[taskID]))
	copy(deps, g.edges[taskID])
	return deps
}

// Dependents returns the ids of tasks that depend on the given task,
// sorted for determinism.
func (g *DependencyGraph) Dependents(taskID string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var dependents []string
	for id, deps := range g.edges {
		for _, depID := range deps {
			if depID == taskID {
				dependents = append(dependents, id)
				break
			}
		}
	}
	sort.Strings(dependents)
	return dependents
}

// EdgeCount returns the total number of surviving dependency edges.
func (g *DependencyGraph) EdgeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n := 0
	for _, deps := range g.edges {
		n += len(deps)
	}
	return n
}

package worker

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Registry maps worker names to workers and enforces per-worker
// exclusivity: each named worker holds a one-token slot, so at most one
// task can be running against it at a time, system-wide.
//
// Slots are independent channel semaphores rather than a single global
// lock, so tasks on different workers proceed in parallel.
type Registry struct {
	mu      sync.RWMutex
	workers map[string]Worker
	slots   map[string]chan struct{}
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		workers: make(map[string]Worker),
		slots:   make(map[string]chan struct{}),
	}
}

// Register adds a named worker. Registering an existing name replaces the
// worker but keeps its slot, so exclusivity is preserved across swaps.
func (r *Registry) Register(name string, w Worker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.workers[name] = w
	if _, ok := r.slots[name]; !ok {
		slot := make(chan struct{}, 1)
		slot <- struct{}{}
		r.slots[name] = slot
	}
}

// Lookup returns the worker registered under name.
func (r *Registry) Lookup(name string) (Worker, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.workers[name]
	return w, ok
}

// Names returns the registered worker names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.workers))
	for name := range r.workers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered workers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.workers)
}

// TryAcquire claims the named worker's slot without blocking. Returns
// false when the worker is unknown or already busy.
func (r *Registry) TryAcquire(name string) bool {
	slot := r.slot(name)
	if slot == nil {
		return false
	}
	select {
	case <-slot:
		return true
	default:
		return false
	}
}

// Acquire claims the named worker's slot, waiting until the worker frees
// up or the context ends. Used when the executor substitutes a fallback
// worker that may be busy with another task.
func (r *Registry) Acquire(ctx context.Context, name string) error {
	slot := r.slot(name)
	if slot == nil {
		return fmt.Errorf("unknown worker %q", name)
	}
	select {
	case <-slot:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release returns the named worker's slot. Releasing an idle or unknown
// worker is a no-op.
func (r *Registry) Release(name string) {
	slot := r.slot(name)
	if slot == nil {
		return
	}
	select {
	case slot <- struct{}{}:
	default:
	}
}

// Busy reports whether the named worker's slot is currently held.
func (r *Registry) Busy(name string) bool {
	slot := r.slot(name)
	if slot == nil {
		return false
	}
	return len(slot) == 0
}

func (r *Registry) slot(name string) chan struct{} {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.slots[name]
}

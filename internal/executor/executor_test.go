package executor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mpratt/foreman/internal/worker"
	"github.com/mpratt/foreman/pkg/models"
)

func testTask(id, workerName string) *models.Task {
	return &models.Task{ID: id, Worker: workerName, Description: "do " + id}
}

// flaky fails its first n calls, then succeeds.
func flaky(n int, output string) worker.Worker {
	var mu sync.Mutex
	calls := 0
	return worker.Func(func(ctx context.Context, description string) (string, error) {
		mu.Lock()
		calls++
		c := calls
		mu.Unlock()
		if c <= n {
			return "", errors.New("transient")
		}
		return output, nil
	})
}

func alwaysFail(msg string) worker.Worker {
	return worker.Func(func(ctx context.Context, description string) (string, error) {
		return "", errors.New(msg)
	})
}

func sleeper(d time.Duration) worker.Worker {
	return worker.Func(func(ctx context.Context, description string) (string, error) {
		select {
		case <-time.After(d):
			return "slept", nil
		case <-ctx.Done():
			return "", ctx.Err()
		}
	})
}

func TestExecuteSucceedsFirstAttempt(t *testing.T) {
	r := worker.NewRegistry()
	r.Register("nova", flaky(0, "done"))

	e := New(r, Policy{Timeout: time.Second, MaxAttempts: 2})
	out := e.Execute(context.Background(), testTask("t1", "nova"))

	if out.Status != models.TaskStatusSucceeded {
		t.Fatalf("expected succeeded, got %s (%v)", out.Status, out.Err)
	}
	if out.Output != "done" || out.Attempts != 1 || out.Worker != "nova" {
		t.Errorf("unexpected outcome: %+v", out)
	}
}

func TestExecuteRetriesSameWorker(t *testing.T) {
	r := worker.NewRegistry()
	r.Register("nova", flaky(1, "second try"))

	e := New(r, Policy{Timeout: time.Second, MaxAttempts: 2})
	out := e.Execute(context.Background(), testTask("t1", "nova"))

	if out.Status != models.TaskStatusSucceeded {
		t.Fatalf("expected succeeded, got %s (%v)", out.Status, out.Err)
	}
	if out.Attempts != 2 {
		t.Errorf("expected 2 attempts, got %d", out.Attempts)
	}
	if out.Output != "second try" {
		t.Errorf("unexpected output: %q", out.Output)
	}
}

func TestExecuteFallsBackAfterBudget(t *testing.T) {
	r := worker.NewRegistry()
	r.Register("nova", alwaysFail("nova is down"))
	r.Register("quinn", flaky(0, "quinn saves it"))

	e := New(r, Policy{
		Timeout:     time.Second,
		MaxAttempts: 2,
		Fallbacks:   map[string][]string{"nova": {"quinn"}},
	})
	out := e.Execute(context.Background(), testTask("t1", "nova"))

	if out.Status != models.TaskStatusSucceeded {
		t.Fatalf("expected succeeded via fallback, got %s (%v)", out.Status, out.Err)
	}
	if out.Attempts != 3 {
		t.Errorf("expected 3 attempts (2 primary + 1 fallback), got %d", out.Attempts)
	}
	if out.Worker != "quinn" {
		t.Errorf("expected quinn to produce the result, got %s", out.Worker)
	}
	if out.Output != "quinn saves it" {
		t.Errorf("unexpected output: %q", out.Output)
	}
}

func TestExecuteExhaustsAndKeepsLastError(t *testing.T) {
	r := worker.NewRegistry()
	r.Register("nova", alwaysFail("boom"))

	e := New(r, Policy{Timeout: time.Second, MaxAttempts: 3})
	out := e.Execute(context.Background(), testTask("t1", "nova"))

	if out.Status != models.TaskStatusFailed {
		t.Fatalf("expected failed, got %s", out.Status)
	}
	if out.Attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", out.Attempts)
	}
	if out.Err == nil || out.Err.Error() != "boom" {
		t.Errorf("expected last error preserved, got %v", out.Err)
	}
}

func TestExecuteTimesOut(t *testing.T) {
	r := worker.NewRegistry()
	r.Register("nova", sleeper(time.Second))

	e := New(r, Policy{Timeout: 30 * time.Millisecond, MaxAttempts: 1})
	out := e.Execute(context.Background(), testTask("t1", "nova"))

	if out.Status != models.TaskStatusTimedOut {
		t.Fatalf("expected timed_out, got %s (%v)", out.Status, out.Err)
	}
	if !errors.Is(out.Err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded in chain, got %v", out.Err)
	}
	if out.Attempts != 1 {
		t.Errorf("expected 1 attempt, got %d", out.Attempts)
	}
}

func TestExecuteSkipsBusyFallback(t *testing.T) {
	r := worker.NewRegistry()
	r.Register("nova", alwaysFail("down"))
	r.Register("quinn", flaky(0, "never reached"))

	// Hold quinn's slot so the fallback wait cannot succeed.
	if !r.TryAcquire("quinn") {
		t.Fatal("setup: could not hold quinn's slot")
	}

	e := New(r, Policy{
		Timeout:     30 * time.Millisecond,
		MaxAttempts: 1,
		Fallbacks:   map[string][]string{"nova": {"quinn"}},
	})
	out := e.Execute(context.Background(), testTask("t1", "nova"))

	if out.Status != models.TaskStatusFailed {
		t.Fatalf("expected failed, got %s", out.Status)
	}
	if out.Attempts != 1 {
		t.Errorf("expected the busy fallback to be skipped, got %d attempts", out.Attempts)
	}
	// The held slot must remain held by the test, not released by a skip.
	if !r.Busy("quinn") {
		t.Error("expected quinn's slot to still be held")
	}
}

func TestExecuteFallbackReleasesSlot(t *testing.T) {
	r := worker.NewRegistry()
	r.Register("nova", alwaysFail("down"))
	r.Register("quinn", alwaysFail("also down"))

	e := New(r, Policy{
		Timeout:     time.Second,
		MaxAttempts: 1,
		Fallbacks:   map[string][]string{"nova": {"quinn"}},
	})
	e.Execute(context.Background(), testTask("t1", "nova"))

	if r.Busy("quinn") {
		t.Error("expected fallback slot to be released after its attempt")
	}
}

func TestExecuteUnknownPrimaryFallsBack(t *testing.T) {
	r := worker.NewRegistry()
	r.Register("quinn", flaky(0, "rescued"))

	e := New(r, Policy{
		Timeout:     time.Second,
		MaxAttempts: 1,
		Fallbacks:   map[string][]string{"ghost": {"quinn"}},
	})
	out := e.Execute(context.Background(), testTask("t1", "ghost"))

	if out.Status != models.TaskStatusSucceeded {
		t.Fatalf("expected fallback to rescue the task, got %s (%v)", out.Status, out.Err)
	}
	if out.Attempts != 2 {
		t.Errorf("expected 2 attempts (failed lookup + fallback), got %d", out.Attempts)
	}
	if out.Worker != "quinn" {
		t.Errorf("expected quinn, got %s", out.Worker)
	}
}

func TestExecuteCanceledContext(t *testing.T) {
	r := worker.NewRegistry()
	r.Register("nova", flaky(0, "unreachable"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := New(r, Policy{Timeout: time.Second, MaxAttempts: 2})
	out := e.Execute(ctx, testTask("t1", "nova"))

	if out.Status != models.TaskStatusFailed {
		t.Fatalf("expected failed, got %s", out.Status)
	}
	if !errors.Is(out.Err, context.Canceled) {
		t.Errorf("expected canceled error, got %v", out.Err)
	}
}

func TestExecuteReportsEveryAttempt(t *testing.T) {
	r := worker.NewRegistry()
	r.Register("nova", alwaysFail("down"))
	r.Register("quinn", flaky(0, "ok"))

	type event struct {
		worker  string
		status  models.TaskStatus
		attempt int
	}
	var mu sync.Mutex
	var events []event

	e := New(r, Policy{
		Timeout:     time.Second,
		MaxAttempts: 2,
		Fallbacks:   map[string][]string{"nova": {"quinn"}},
	}, WithAttemptCallback(func(taskID, workerName string, status models.TaskStatus, attempt int) {
		mu.Lock()
		events = append(events, event{worker: workerName, status: status, attempt: attempt})
		mu.Unlock()
	}))
	e.Execute(context.Background(), testTask("t1", "nova"))

	want := []event{
		{worker: "nova", status: models.TaskStatusFailed, attempt: 1},
		{worker: "nova", status: models.TaskStatusFailed, attempt: 2},
		{worker: "quinn", status: models.TaskStatusSucceeded, attempt: 3},
	}
	if len(events) != len(want) {
		t.Fatalf("expected %d attempt events, got %d: %v", len(want), len(events), events)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Errorf("event %d: expected %+v, got %+v", i, want[i], events[i])
		}
	}
}

func TestPolicyDefaults(t *testing.T) {
	p := Policy{}.withDefaults()
	if p.Timeout != DefaultTimeout {
		t.Errorf("expected default timeout, got %v", p.Timeout)
	}
	if p.MaxAttempts != DefaultMaxAttempts {
		t.Errorf("expected default max attempts, got %d", p.MaxAttempts)
	}
}

package coordinator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// recorder tracks operation start/finish times for ordering assertions.
type recorder struct {
	mu     sync.Mutex
	starts map[string]time.Time
	ends   map[string]time.Time
}

func newRecorder() *recorder {
	return &recorder{starts: make(map[string]time.Time), ends: make(map[string]time.Time)}
}

func (r *recorder) action(id string, delay time.Duration, err error) func(context.Context) (any, error) {
	return func(context.Context) (any, error) {
		r.mu.Lock()
		r.starts[id] = time.Now()
		r.mu.Unlock()
		time.Sleep(delay)
		r.mu.Lock()
		r.ends[id] = time.Now()
		r.mu.Unlock()
		return id, err
	}
}

func mustAdd(t *testing.T, c *Coordinator, op Operation) {
	t.Helper()
	if err := c.Add(op); err != nil {
		t.Fatal(err)
	}
}

func TestDependencyOrdering(t *testing.T) {
	c := New()
	rec := newRecorder()

	mustAdd(t, c, Operation{ID: "a", Action: rec.action("a", 30*time.Millisecond, nil)})
	mustAdd(t, c, Operation{ID: "b", DependsOn: []string{"a"}, Action: rec.action("b", 0, nil)})

	results, err := c.Execute(context.Background(), []string{"b"})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2 (dependency included)", len(results))
	}
	if rec.starts["b"].Before(rec.ends["a"]) {
		t.Error("b started before its dependency a settled")
	}
}

func TestIndependentOperationsRunConcurrently(t *testing.T) {
	c := New()
	rec := newRecorder()

	const delay = 50 * time.Millisecond
	mustAdd(t, c, Operation{ID: "x", Action: rec.action("x", delay, nil)})
	mustAdd(t, c, Operation{ID: "y", Action: rec.action("y", delay, nil)})

	start := time.Now()
	if _, err := c.Execute(context.Background(), []string{"x", "y"}); err != nil {
		t.Fatal(err)
	}
	// Serial execution would take at least 2*delay.
	if elapsed := time.Since(start); elapsed >= 2*delay {
		t.Errorf("independent operations took %v, expected concurrent execution", elapsed)
	}
}

func TestNormalFailureDoesNotAbortSiblings(t *testing.T) {
	c := New()
	rec := newRecorder()
	boom := errors.New("boom")

	mustAdd(t, c, Operation{ID: "bad", Action: rec.action("bad", 0, boom)})
	mustAdd(t, c, Operation{ID: "good", Action: rec.action("good", 20*time.Millisecond, nil)})

	results, err := c.Execute(context.Background(), []string{"bad", "good"})
	if err != nil {
		t.Fatalf("normal failure must not surface as error: %v", err)
	}

	byID := resultMap(results)
	if byID["bad"].OK() {
		t.Error("bad should have failed")
	}
	if !errors.Is(byID["bad"].Err, boom) {
		t.Errorf("failed result should carry the action error, got %v", byID["bad"].Err)
	}
	if !byID["good"].OK() {
		t.Errorf("sibling should have completed: %v", byID["good"].Err)
	}
}

func TestCriticalFailureStopsScheduling(t *testing.T) {
	c := New()
	rec := newRecorder()

	mustAdd(t, c, Operation{ID: "dirs", Critical: true, Action: rec.action("dirs", 0, errors.New("mkdir: permission denied"))})
	mustAdd(t, c, Operation{ID: "after", DependsOn: []string{"dirs"}, Action: rec.action("after", 0, nil)})

	results, err := c.Execute(context.Background(), []string{"after"})
	if err == nil {
		t.Fatal("critical failure must surface to the caller")
	}
	byID := resultMap(results)
	if _, ran := byID["after"]; ran {
		t.Error("dependent of a failed critical operation must not be scheduled")
	}
}

func TestPanicCapturedAsFailure(t *testing.T) {
	c := New()
	mustAdd(t, c, Operation{ID: "p", Action: func(context.Context) (any, error) {
		panic("unexpected")
	}})

	results, err := c.Execute(context.Background(), []string{"p"})
	if err != nil {
		t.Fatal(err)
	}
	if results[0].OK() {
		t.Error("panicking operation should settle as failed")
	}
}

func TestExecuteErrors(t *testing.T) {
	c := New()
	mustAdd(t, c, Operation{ID: "a", DependsOn: []string{"b"}, Action: noop})
	mustAdd(t, c, Operation{ID: "b", DependsOn: []string{"a"}, Action: noop})

	if _, err := c.Execute(context.Background(), []string{"a"}); err == nil {
		t.Error("want cycle error")
	}
	if _, err := c.Execute(context.Background(), []string{"missing"}); err == nil {
		t.Error("want unknown operation error")
	}
}

func TestAddValidation(t *testing.T) {
	c := New()
	if err := c.Add(Operation{ID: "", Action: noop}); err == nil {
		t.Error("want error for empty ID")
	}
	if err := c.Add(Operation{ID: "a"}); err == nil {
		t.Error("want error for nil action")
	}
	mustAdd(t, c, Operation{ID: "a", Action: noop})
	if err := c.Add(Operation{ID: "a", Action: noop}); err == nil {
		t.Error("want error for duplicate ID")
	}
}

func TestSettledResultsReusedUntilClear(t *testing.T) {
	c := New()
	var runs int
	var mu sync.Mutex
	counted := func(context.Context) (any, error) {
		mu.Lock()
		runs++
		mu.Unlock()
		return nil, nil
	}
	mustAdd(t, c, Operation{ID: "once", Action: counted})

	for i := 0; i < 2; i++ {
		if _, err := c.Execute(context.Background(), []string{"once"}); err != nil {
			t.Fatal(err)
		}
	}
	if runs != 1 {
		t.Errorf("action ran %d times across two executes, want 1", runs)
	}

	c.Clear()
	if _, err := c.Execute(context.Background(), []string{"once"}); err == nil {
		t.Error("operations should be dropped by Clear")
	}
}

func TestDependentRunsAfterNormalDependencyFailure(t *testing.T) {
	c := New()
	rec := newRecorder()

	mustAdd(t, c, Operation{ID: "flaky", Action: rec.action("flaky", 0, errors.New("fetch failed"))})
	mustAdd(t, c, Operation{ID: "report", DependsOn: []string{"flaky"}, Action: rec.action("report", 0, nil)})

	results, err := c.Execute(context.Background(), []string{"report"})
	if err != nil {
		t.Fatal(err)
	}
	byID := resultMap(results)
	if !byID["report"].OK() {
		t.Error("dependent of a tolerated failure should still run")
	}
}

func resultMap(results []Result) map[string]Result {
	m := make(map[string]Result, len(results))
	for _, r := range results {
		m[r.ID] = r
	}
	return m
}

func noop(context.Context) (any, error) { return nil, nil }

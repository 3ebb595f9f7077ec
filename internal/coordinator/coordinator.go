// Package coordinator runs named operations concurrently while honoring
// declared dependencies. Operation failures are captured as results rather
// than aborting sibling operations; a critical failure stops further
// scheduling and is surfaced to the caller.
package coordinator

import (
	"context"
	"fmt"
	"sync"

	"arbor/internal/logging"
)

// Operation is a unit of work with declared dependencies.
type Operation struct {
	// ID must be unique within a run.
	ID          string
	Description string
	// Critical marks failures that must abort the remainder of the run.
	Critical  bool
	DependsOn []string
	Action    func(ctx context.Context) (any, error)
}

// Result is the settled outcome of one operation.
type Result struct {
	ID       string
	Value    any
	Err      error
	Critical bool
}

// OK reports whether the operation settled successfully.
func (r Result) OK() bool { return r.Err == nil }

// Coordinator tracks added operations and their settled results for one
// run. Clear resets it for reuse.
type Coordinator struct {
	mu      sync.Mutex
	ops     map[string]Operation
	settled map[string]Result
}

// New creates an empty coordinator.
func New() *Coordinator {
	return &Coordinator{
		ops:     make(map[string]Operation),
		settled: make(map[string]Result),
	}
}

// Add registers an operation. The ID must not already be registered and the
// action must be non-nil; dependency validity is checked at Execute time.
func (c *Coordinator) Add(op Operation) error {
	if op.ID == "" {
		return fmt.Errorf("operation ID is empty")
	}
	if op.Action == nil {
		return fmt.Errorf("operation %q has no action", op.ID)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.ops[op.ID]; ok {
		return fmt.Errorf("operation %q already added", op.ID)
	}
	c.ops[op.ID] = op
	return nil
}

// Clear drops all operations and settled results.
func (c *Coordinator) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ops = make(map[string]Operation)
	c.settled = make(map[string]Result)
}

// Execute runs the requested operations plus their transitive dependencies.
// An operation starts only after all of its dependencies have settled;
// independent ready operations run concurrently in no guaranteed order.
//
// The returned slice holds one result per executed operation. A critical
// failure is additionally returned as the error; normal failures are only
// visible in the results. Results settled by an earlier Execute on the same
// coordinator are reused, not re-run.
func (c *Coordinator) Execute(ctx context.Context, ids []string) ([]Result, error) {
	closure, err := c.closure(ids)
	if err != nil {
		return nil, err
	}

	logger := logging.New("coordinator")

	pending := make(map[string]Operation)
	c.mu.Lock()
	for _, id := range closure {
		if _, done := c.settled[id]; !done {
			pending[id] = c.ops[id]
		}
	}
	c.mu.Unlock()

	running := 0
	done := make(chan Result)
	var criticalErr error

	launchReady := func() {
		for id, op := range pending {
			if !c.depsSettled(op) {
				continue
			}
			delete(pending, id)
			running++
			logger.Debug("operation started", "id", op.ID, "desc", op.Description)
			go func(op Operation) {
				done <- settle(ctx, op)
			}(op)
		}
	}

	launchReady()
	for running > 0 {
		res := <-done
		running--
		c.mu.Lock()
		c.settled[res.ID] = res
		c.mu.Unlock()

		if res.Err != nil {
			logger.Debug("operation failed", "id", res.ID, "critical", res.Critical, "error", res.Err)
		} else {
			logger.Debug("operation succeeded", "id", res.ID)
		}

		if res.Err != nil && res.Critical && criticalErr == nil {
			criticalErr = fmt.Errorf("critical operation %q: %w", res.ID, res.Err)
		}
		// In-flight operations settle naturally after a critical
		// failure; only new launches stop.
		if criticalErr == nil {
			launchReady()
		}
	}

	results := make([]Result, 0, len(closure))
	c.mu.Lock()
	for _, id := range closure {
		if res, ok := c.settled[id]; ok {
			results = append(results, res)
		}
	}
	c.mu.Unlock()
	return results, criticalErr
}

// settle runs the operation's action, converting a panic into a failed
// result so one misbehaving action cannot take down the run.
func settle(ctx context.Context, op Operation) (res Result) {
	res = Result{ID: op.ID, Critical: op.Critical}
	defer func() {
		if r := recover(); r != nil {
			res.Err = fmt.Errorf("operation %q panicked: %v", op.ID, r)
		}
	}()
	res.Value, res.Err = op.Action(ctx)
	return res
}

// depsSettled reports whether every dependency of op has settled.
func (c *Coordinator) depsSettled(op Operation) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, dep := range op.DependsOn {
		if _, ok := c.settled[dep]; !ok {
			return false
		}
	}
	return true
}

// closure resolves the transitive dependency closure of ids in a stable
// depth-first order, rejecting unknown ids and dependency cycles.
func (c *Coordinator) closure(ids []string) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	const (
		visiting = 1
		visited  = 2
	)
	state := make(map[string]int)
	var order []string

	var visit func(id string) error
	visit = func(id string) error {
		switch state[id] {
		case visited:
			return nil
		case visiting:
			return fmt.Errorf("dependency cycle through operation %q", id)
		}
		op, ok := c.ops[id]
		if !ok {
			return fmt.Errorf("unknown operation %q", id)
		}
		state[id] = visiting
		for _, dep := range op.DependsOn {
			if err := visit(dep); err != nil {
				return err
			}
		}
		state[id] = visited
		order = append(order, id)
		return nil
	}

	for _, id := range ids {
		if err := visit(id); err != nil {
			return nil, err
		}
	}
	return order, nil
}

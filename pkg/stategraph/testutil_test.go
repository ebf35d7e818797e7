package stategraph

import (
	"context"
)

// Test state types used across tests

// Counter is a simple state for testing incrementing.
type Counter struct {
	Value int `json:"value"`
}

// State is a more complex state for testing various scenarios.
type State struct {
	Step     int      `json:"step"`
	Progress []string `json:"progress"`
	Initial  string   `json:"initial"`
	Output   string   `json:"output"`
	Done     bool     `json:"done"`
	GoLeft   bool     `json:"go_left"`
}

// Helper node functions

// increment is a node that increments the counter.
func increment(ctx Context, s Counter) (Outcome[Counter], error) {
	s.Value++
	return Continue(s), nil
}

// passthrough returns the state unchanged.
func passthrough[S any](ctx Context, s S) (Outcome[S], error) {
	return Continue(s), nil
}

// makeTrackingNode creates a node that records its execution.
func makeTrackingNode(name string, tracker *[]string) NodeFunc[State] {
	return func(ctx Context, s State) (Outcome[State], error) {
		*tracker = append(*tracker, name)
		s.Progress = append(s.Progress, name)
		return Continue(s), nil
	}
}

// makeFailingNode creates a node that returns the given error.
func makeFailingNode(err error) NodeFunc[State] {
	return func(ctx Context, s State) (Outcome[State], error) {
		return Outcome[State]{}, err
	}
}

// makePanicNode creates a node that panics with the given value.
func makePanicNode(value any) NodeFunc[State] {
	return func(ctx Context, s State) (Outcome[State], error) {
		panic(value)
	}
}

// appendProgress merges Progress slices; everything else is last-writer-wins.
// Used by tests that need an accumulating reducer.
func appendProgress(current, incoming State) State {
	merged := incoming
	merged.Progress = append(append([]string(nil), current.Progress...), incoming.Progress...)
	return merged
}

// testCtx creates a simple test context.
func testCtx() Context {
	return NewContext(context.Background())
}

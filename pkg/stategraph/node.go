package stategraph

// START is the virtual source of the entry edge.
// It is never registered as a node; AddEdge(START, x) is equivalent to SetEntry(x).
const START = "__start__"

// END is the terminal node identifier.
// Use this as an edge target or router result to indicate the graph should terminate.
const END = "__end__"

// NodeFunc is the signature for all node functions.
// Nodes receive the execution context and current state, and return an
// Outcome: either an updated state that continues along declared edges,
// or a command that overrides ordinary edge resolution.
//
// The state parameter is passed by value. Nodes should derive and return
// a new state value, not rely on pointer mutation.
//
// Example:
//
//	func increment(ctx stategraph.Context, s Counter) (stategraph.Outcome[Counter], error) {
//	    s.Value++
//	    return stategraph.Continue(s), nil
//	}
type NodeFunc[S any] func(ctx Context, state S) (Outcome[S], error)

// RouterFunc determines the next node based on state.
// It is used for conditional edges where the next node depends on runtime state.
// Routers receive a read-only view of the merged state; they must not mutate it
// and must be pure functions of their input so repeated routing over unchanged
// state always selects the same target.
//
// The router should return a registered node ID or stategraph.END.
// Returning an empty string or an unknown node ID causes a RoutingError.
type RouterFunc[S any] func(ctx Context, state S) string

// Reducer merges a node's outcome into the current state.
// The engine never inspects state contents beyond calling the reducer and
// (de)serializing for checkpoints. The default reducer is last-writer-wins:
// the incoming value replaces the current one.
//
// Reducers must be associative over left-to-right application: merging a
// batch of deltas one at a time must equal merging them all at once.
type Reducer[S any] func(current, incoming S) S

// Cloner duplicates state for concurrent fan-out branches.
// The default cloner round-trips through JSON, which is correct for any
// state that is checkpoint-serializable. Provide a custom cloner when the
// state holds non-JSON values or when copy performance matters.
type Cloner[S any] func(state S) (S, error)

/*
Package stategraph provides an embeddable engine for stateful, graph-shaped
workflows.

# Overview

stategraph is a Go library for building and executing directed graphs where
nodes transform a shared state value and edges define control flow. Graphs
are built imperatively, compiled with full structural validation, and then
executed synchronously or as a lazy event stream. Runs can pause at human
approval points and resume later from durable checkpoints.

The library is inspired by LangGraph but built for Go with:
  - Type-safe generics for state management
  - Compile-time validation with all errors collected at once
  - Thread-keyed checkpointing with resume and time travel
  - OpenTelemetry integration for observability

# Basic Usage

Create a graph with nodes and edges, then compile and invoke:

	type State struct {
	    Input  string
	    Output string
	}

	func process(ctx stategraph.Context, s State) (stategraph.Outcome[State], error) {
	    s.Output = "Processed: " + s.Input
	    return stategraph.Continue(s), nil
	}

	func main() {
	    graph := stategraph.NewGraph[State]().
	        AddNode("process", process).
	        AddEdge(stategraph.START, "process").
	        AddEdge("process", stategraph.END)

	    compiled, err := graph.Compile()
	    if err != nil {
	        log.Fatal(err)
	    }

	    ctx := stategraph.NewContext(context.Background())
	    result, err := compiled.Invoke(ctx, State{Input: "hello"})
	    if err != nil {
	        log.Fatal(err)
	    }
	    fmt.Println(result.State.Output) // "Processed: hello"
	}

# Commands

A node controls flow dynamically by returning a command outcome instead of a
plain state delta:

	func triage(ctx stategraph.Context, s State) (stategraph.Outcome[State], error) {
	    if s.Urgent {
	        return stategraph.GotoWith("escalate", s), nil
	    }
	    return stategraph.Stop[State](), nil
	}

Goto overrides the node's declared edges for one step, Stop ends the run,
and Send dispatches several nodes in parallel on clones of the current
state, merging their results in registration order.

# Conditional Branching

Use conditional edges for decision points:

	graph.AddConditionalEdge("review", func(ctx stategraph.Context, s State) string {
	    if s.Approved {
	        return "publish"
	    }
	    return "revise"
	})

The router returns the ID of the next node. Routers returning unknown node
IDs fail the run with a RoutingError. Loops are legal and protected by a
fixed iteration ceiling of 100 node executions per invocation.

# Checkpointing and Resume

Compile with a checkpointer and key each run with a thread ID:

	store := checkpoint.NewMemoryStore()
	compiled, err := graph.Compile(stategraph.WithCheckpointer(store))

	result, err := compiled.Invoke(ctx, state,
	    stategraph.WithThreadID("thread-1"))

A checkpoint is written after every completed node. Invoking again with the
same thread ID resumes a paused run from its checkpointed next node, and
WithCheckpointID forks execution from any earlier point in history. Inspect
and edit a thread with GetState, GetStateHistory, and UpdateState.

# Interrupts

Pause runs for human review either structurally, at compile time:

	compiled, err := graph.Compile(
	    stategraph.WithCheckpointer(store),
	    stategraph.WithInterruptBefore("approve"))

or imperatively, from inside a node:

	func approve(ctx stategraph.Context, s State) (stategraph.Outcome[State], error) {
	    if s.Decision == "" {
	        return stategraph.Interrupt[State](map[string]any{
	            "question": "approve this plan?",
	        }), nil
	    }
	    return stategraph.Continue(s), nil
	}

Both pause the run with a checkpoint; UpdateState supplies the human input
and re-invoking the thread resumes.

# Streaming

Stream yields an event after each node instead of blocking until the end:

	for ev, err := range compiled.Stream(ctx, state, stategraph.ModeValues) {
	    if err != nil {
	        log.Fatal(err)
	    }
	    fmt.Println(ev.Node, ev.State)
	}

Execution is pull-based: breaking out of the loop stops the run.

# Error Handling

Errors include context about which node failed:

	result, err := compiled.Invoke(ctx, state)
	var nodeErr *stategraph.NodeError
	if errors.As(err, &nodeErr) {
	    log.Printf("node %s failed: %v", nodeErr.NodeID, nodeErr.Err)
	}

Panics in nodes are recovered and converted to PanicError with stack trace.
Compilation reports every structural problem at once via errors.Join; test
for individual causes with errors.Is.

# Thread Safety

  - Graph[S] is NOT safe for concurrent use during construction
  - CompiledGraph[S] IS safe for concurrent use (immutable)
  - Context IS safe for concurrent use
  - checkpoint.Store implementations are safe for concurrent use

# Subpackages

  - checkpoint: checkpoint storage (memory, SQLite, Redis)
  - config: file-driven configuration and backend wiring
  - humanloop: pending-interrupt inbox for approval workflows
  - observability: logging, metrics, and tracing helpers
  - prebuilt: ready-made multi-agent graph constructors
  - registry: named factory registration for storage backends
*/
package stategraph

// Package prebuilt provides ready-made graph constructors for common
// multi-agent orchestration shapes. All of them are plain consumers of the
// engine: they register nodes, declare edges, and compile, with no special
// hooks. Centralized (supervisor) and decentralized (swarm) coordination
// both fall out of nodes returning commands.
package prebuilt

import (
	"github.com/ridgewell/stategraph/pkg/stategraph"
)

// AsNode wraps an independently-compiled graph as a single node of a parent
// graph. The sub-graph runs to completion inside the parent's node slot; an
// interrupted sub-graph surfaces as an imperative interrupt of the parent,
// carrying the sub-graph's payload.
//
// The sub-invocation is unkeyed: sub-graph checkpointing would collide with
// the parent thread's sequence. Persist at the parent level instead.
func AsNode[S any](sub *stategraph.CompiledGraph[S]) stategraph.NodeFunc[S] {
	return func(ctx stategraph.Context, state S) (stategraph.Outcome[S], error) {
		result, err := sub.Invoke(ctx, state)
		if err != nil {
			return stategraph.Outcome[S]{}, err
		}
		if result.Interrupted {
			return stategraph.Interrupt[S](result.Payload), nil
		}
		return stategraph.Continue(result.State), nil
	}
}

// Node names used by the constructors.
const (
	DecideNode     = "decide"
	ActNode        = "act"
	SupervisorNode = "supervisor"
)

// AgentLoop builds the canonical two-node loop: decide inspects state and
// act performs pending work, cycling until hasWork reports false.
//
//	START -> decide --(hasWork)--> act -> decide
//	                 \--(done)---> END
//
// Runaway loops hit the engine's iteration ceiling, so hasWork does not
// need its own attempt counting to stay safe.
func AgentLoop[S any](
	decide stategraph.NodeFunc[S],
	act stategraph.NodeFunc[S],
	hasWork func(S) bool,
	opts ...stategraph.CompileOption,
) (*stategraph.CompiledGraph[S], error) {
	return stategraph.NewGraph[S]().
		AddNode(DecideNode, decide).
		AddNode(ActNode, act).
		AddEdge(stategraph.START, DecideNode).
		AddConditionalEdge(DecideNode, func(_ stategraph.Context, state S) string {
			if hasWork(state) {
				return ActNode
			}
			return stategraph.END
		}, map[string]string{"work": ActNode, "done": stategraph.END}).
		AddEdge(ActNode, DecideNode).
		Compile(opts...)
}

// Worker names one delegate of a supervisor. Wrap an independently-compiled
// graph with AsNode to use it as a worker.
type Worker[S any] struct {
	Name string
	Node stategraph.NodeFunc[S]
}

// Supervisor builds a hub-and-spoke graph: one coordinating node routes
// work into workers and every worker returns to the coordinator when done.
//
// The coordinator has no declared outgoing edges; it must route by
// command - Goto(worker) to delegate, Stop to finish. Returning a plain
// state update from the coordinator is a runtime routing error, which keeps
// the delegation decision explicit.
func Supervisor[S any](
	coordinator stategraph.NodeFunc[S],
	workers []Worker[S],
	opts ...stategraph.CompileOption,
) (*stategraph.CompiledGraph[S], error) {
	g := stategraph.NewGraph[S]().
		AddNode(SupervisorNode, coordinator).
		AddEdge(stategraph.START, SupervisorNode)

	for _, w := range workers {
		g.AddNode(w.Name, w.Node).
			AddEdge(w.Name, SupervisorNode)
	}

	return g.Compile(opts...)
}

// Agent names one peer of a swarm.
type Agent[S any] struct {
	Name string
	Node stategraph.NodeFunc[S]
}

// Swarm builds a peer-handoff graph with no central coordinator: agents
// hand control to one another directly with Goto and any agent may Stop.
// No edges are declared at all, so every transition is an imperative
// command; an agent returning a plain state update is a runtime routing
// error.
func Swarm[S any](
	entry string,
	agents []Agent[S],
	opts ...stategraph.CompileOption,
) (*stategraph.CompiledGraph[S], error) {
	g := stategraph.NewGraph[S]()
	for _, a := range agents {
		g.AddNode(a.Name, a.Node)
	}
	g.SetEntry(entry)

	return g.Compile(opts...)
}

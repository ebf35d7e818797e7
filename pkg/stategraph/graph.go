package stategraph

import (
	"strings"
	"sync"
)

// Graph is a mutable builder for creating execution graphs.
// Use NewGraph to create a new graph, then chain AddNode, AddEdge,
// and SetEntry calls to define the workflow.
//
// Graph is NOT thread-safe during building. Use a single goroutine
// to construct the graph, then call Compile() to create an immutable
// CompiledGraph that can be safely shared.
//
// Example:
//
//	graph := stategraph.NewGraph[MyState]().
//	    AddNode("fetch", fetchNode).
//	    AddNode("process", processNode).
//	    AddEdge("fetch", "process").
//	    AddEdge("process", stategraph.END).
//	    SetEntry("fetch")
//
//	compiled, err := graph.Compile()
type Graph[S any] struct {
	mu               sync.RWMutex
	nodes            map[string]NodeFunc[S]
	order            []string // registration order, for deterministic diagnostics
	edges            map[string][]string
	conditionalEdges map[string]RouterFunc[S]
	pathMaps         map[string]map[string]string
	entryPoint       string
	interruptBefore  map[string]bool
	interruptAfter   map[string]bool
	reducer          Reducer[S]
	cloner           Cloner[S]
	invalidNames     []string
}

// NewGraph creates a new graph builder for state type S.
// The type parameter S defines the state that flows through the graph.
func NewGraph[S any]() *Graph[S] {
	return &Graph[S]{
		nodes:            make(map[string]NodeFunc[S]),
		edges:            make(map[string][]string),
		conditionalEdges: make(map[string]RouterFunc[S]),
		pathMaps:         make(map[string]map[string]string),
		interruptBefore:  make(map[string]bool),
		interruptAfter:   make(map[string]bool),
	}
}

// AddNode registers a named node. Re-registering a name replaces the prior
// entry (last write wins). Returns the graph for method chaining.
//
// Empty, reserved (START/END), and whitespace-containing names are recorded
// and reported as part of the aggregate Compile() error.
//
// Panics if fn is nil.
func (g *Graph[S]) AddNode(id string, fn NodeFunc[S]) *Graph[S] {
	if fn == nil {
		panic("stategraph: node function cannot be nil")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if !validNodeName(id) {
		g.invalidNames = append(g.invalidNames, id)
		return g
	}

	if _, exists := g.nodes[id]; !exists {
		g.order = append(g.order, id)
	}
	g.nodes[id] = fn
	return g
}

// validNodeName reports whether id may name a node.
// START and END are sentinels and never registered.
func validNodeName(id string) bool {
	if id == "" {
		return false
	}
	idLower := strings.ToLower(id)
	if idLower == START || idLower == END || idLower == "start" || idLower == "end" {
		return false
	}
	return !strings.ContainsAny(id, " \t\n\r")
}

// AddEdge adds a fixed (unconditional) edge from one node to another.
// The target can be a node ID or stategraph.END; a source of stategraph.START
// sets the entry point instead of recording an edge.
// Returns the graph for method chaining.
//
// A node with two or more fixed edges is a concurrent fan-out: all targets
// are dispatched as a join barrier and must converge on a single join node,
// validated at Compile() time.
//
// Edge validation happens at Compile() time, not here.
// This allows edges to be added in any order.
func (g *Graph[S]) AddEdge(from, to string) *Graph[S] {
	g.mu.Lock()
	defer g.mu.Unlock()

	if from == START {
		g.entryPoint = to
		return g
	}
	g.edges[from] = append(g.edges[from], to)
	return g
}

// AddConditionalEdge adds a conditional edge where a RouterFunc determines
// the next node at runtime based on state. The optional path map labels the
// router's possible results (label -> node name); it is stored for
// introspection only and never consulted during routing.
// Returns the graph for method chaining.
//
// The router function should return a registered node ID or stategraph.END.
// Returning an empty string or unknown node ID causes a RoutingError at run
// time, since the result is data-dependent.
//
// A node has exactly one resolution strategy: a conditional edge and fixed
// edges on the same source are rejected at Compile() time.
func (g *Graph[S]) AddConditionalEdge(from string, router RouterFunc[S], pathMap ...map[string]string) *Graph[S] {
	if router == nil {
		panic("stategraph: router function cannot be nil")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.conditionalEdges[from] = router
	if len(pathMap) > 0 && pathMap[0] != nil {
		g.pathMaps[from] = pathMap[0]
	}
	return g
}

// SetEntry designates the entry point node, the target of the virtual
// START edge. This must be called (or AddEdge(START, x) used) before
// Compile(). Returns the graph for method chaining.
//
// Entry point validation happens at Compile() time.
func (g *Graph[S]) SetEntry(id string) *Graph[S] {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.entryPoint = id
	return g
}

// InterruptBefore marks nodes at which execution checkpoints and pauses
// before the node runs. Returns the graph for method chaining.
func (g *Graph[S]) InterruptBefore(ids ...string) *Graph[S] {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, id := range ids {
		g.interruptBefore[id] = true
	}
	return g
}

// InterruptAfter marks nodes after which execution checkpoints and pauses.
// Returns the graph for method chaining.
func (g *Graph[S]) InterruptAfter(ids ...string) *Graph[S] {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, id := range ids {
		g.interruptAfter[id] = true
	}
	return g
}

// WithReducer sets the merge function applied to every node outcome.
// The default reducer is last-writer-wins.
func (g *Graph[S]) WithReducer(r Reducer[S]) *Graph[S] {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.reducer = r
	return g
}

// WithCloner sets the duplication function used for fan-out branches.
// The default cloner round-trips state through JSON.
func (g *Graph[S]) WithCloner(c Cloner[S]) *Graph[S] {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.cloner = c
	return g
}

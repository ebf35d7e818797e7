package stategraph

import (
	"encoding/json"
	"fmt"

	"github.com/ridgewell/stategraph/pkg/stategraph/checkpoint"
)

// CompiledGraph is an immutable, executable graph.
// It is created by calling Compile() on a Graph builder.
//
// CompiledGraph is thread-safe and can be used concurrently for multiple
// Invoke() calls. The graph structure cannot be modified after compilation;
// concurrency safety falls out of immutability rather than locking.
type CompiledGraph[S any] struct {
	nodes            map[string]NodeFunc[S]
	edges            map[string][]string
	conditionalEdges map[string]RouterFunc[S]
	pathMaps         map[string]map[string]string
	entryPoint       string
	interruptBefore  map[string]bool
	interruptAfter   map[string]bool
	forkJoins        map[string]*forkJoin
	reducer          Reducer[S]
	cloner           Cloner[S]
	checkpointer     checkpoint.Store
}

// forkJoin describes a multi-edge fan-out: the barrier targets and the
// single join node all of them converge on.
type forkJoin struct {
	Targets []string
	Join    string
}

// WithCheckpointer injects a checkpoint store at compile time. The store is
// orthogonal to graph structure: any Store implementation plugs in without
// engine changes.
func WithCheckpointer(store checkpoint.Store) CompileOption {
	return func(t compileTarget) {
		t.setCheckpointer(store)
	}
}

func (cg *CompiledGraph[S]) setCheckpointer(store checkpoint.Store) {
	cg.checkpointer = store
}

// WithInterruptBefore pauses execution before each named node, writing a
// checkpoint so the thread can resume later. Equivalent to the builder's
// InterruptBefore method; unknown node IDs have no effect.
func WithInterruptBefore(ids ...string) CompileOption {
	return func(t compileTarget) {
		t.addInterruptBefore(ids...)
	}
}

// WithInterruptAfter pauses execution after each named node completes.
// Equivalent to the builder's InterruptAfter method; unknown node IDs have
// no effect.
func WithInterruptAfter(ids ...string) CompileOption {
	return func(t compileTarget) {
		t.addInterruptAfter(ids...)
	}
}

func (cg *CompiledGraph[S]) addInterruptBefore(ids ...string) {
	for _, id := range ids {
		cg.interruptBefore[id] = true
	}
}

func (cg *CompiledGraph[S]) addInterruptAfter(ids ...string) {
	for _, id := range ids {
		cg.interruptAfter[id] = true
	}
}

// EntryPoint returns the entry node ID.
func (cg *CompiledGraph[S]) EntryPoint() string {
	return cg.entryPoint
}

// NodeIDs returns all node identifiers in the graph.
// The order is not guaranteed.
func (cg *CompiledGraph[S]) NodeIDs() []string {
	ids := make([]string, 0, len(cg.nodes))
	for id := range cg.nodes {
		ids = append(ids, id)
	}
	return ids
}

// HasNode checks if a node exists in the graph.
func (cg *CompiledGraph[S]) HasNode(id string) bool {
	_, exists := cg.nodes[id]
	return exists
}

// Successors returns the node IDs reachable from the given node via fixed
// edges. Returns nil for END or unknown nodes. Does not include targets of
// conditional edges (those are runtime-determined).
func (cg *CompiledGraph[S]) Successors(id string) []string {
	if id == END {
		return nil
	}
	return cg.edges[id]
}

// IsConditional returns true if the node has a conditional edge.
func (cg *CompiledGraph[S]) IsConditional(id string) bool {
	_, exists := cg.conditionalEdges[id]
	return exists
}

// PathMap returns the introspection labels declared for a conditional edge,
// or nil if none were provided. Routing never consults the path map.
func (cg *CompiledGraph[S]) PathMap(id string) map[string]string {
	return cg.pathMaps[id]
}

// InterruptsBefore returns true if execution pauses before the given node.
func (cg *CompiledGraph[S]) InterruptsBefore(id string) bool {
	return cg.interruptBefore[id]
}

// InterruptsAfter returns true if execution pauses after the given node.
func (cg *CompiledGraph[S]) InterruptsAfter(id string) bool {
	return cg.interruptAfter[id]
}

// IsFanOut returns true if the node dispatches a multi-edge fan-out barrier.
func (cg *CompiledGraph[S]) IsFanOut(id string) bool {
	_, exists := cg.forkJoins[id]
	return exists
}

// Checkpointer returns the store injected at compile time, or nil.
func (cg *CompiledGraph[S]) Checkpointer() checkpoint.Store {
	return cg.checkpointer
}

// getNode returns the node function for the given ID.
// Used internally by the executor.
func (cg *CompiledGraph[S]) getNode(id string) (NodeFunc[S], bool) {
	fn, exists := cg.nodes[id]
	return fn, exists
}

// getRouter returns the router function for the given node.
// Used internally by the executor.
func (cg *CompiledGraph[S]) getRouter(id string) (RouterFunc[S], bool) {
	router, exists := cg.conditionalEdges[id]
	return router, exists
}

// jsonClone is the default Cloner: round-trip through JSON.
func jsonClone[S any](state S) (S, error) {
	data, err := json.Marshal(state)
	if err != nil {
		var zero S
		return zero, fmt.Errorf("clone state: marshal: %w", err)
	}

	var clone S
	if err := json.Unmarshal(data, &clone); err != nil {
		var zero S
		return zero, fmt.Errorf("clone state: unmarshal: %w", err)
	}
	return clone, nil
}

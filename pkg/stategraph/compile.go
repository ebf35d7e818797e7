package stategraph

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/ridgewell/stategraph/pkg/stategraph/checkpoint"
)

// Compile validates the graph and creates an executable CompiledGraph.
// Returns an error if validation fails; all violations are collected and
// joined together so a single diagnostic is actionable.
//
// Validation checks:
//  1. Entry point must be set and reference a registered node
//  2. Node names must not be empty, reserved, or contain whitespace
//  3. Edge sources must reference registered nodes
//  4. Edge targets must reference registered nodes or END
//  5. A node never mixes fixed edges with a conditional edge
//  6. Multi-edge fan-outs must converge on a single join node
//
// Unreachable nodes (not reachable from entry via declared edges) are
// logged as warnings but do not fail compilation: imperative commands can
// route to nodes no declared edge mentions.
func (g *Graph[S]) Compile(opts ...CompileOption) (*CompiledGraph[S], error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var errs []error

	for _, name := range g.invalidNames {
		errs = append(errs, fmt.Errorf("%w: %q", ErrInvalidNodeName, name))
	}

	if g.entryPoint == "" {
		errs = append(errs, ErrNoEntryPoint)
	} else if _, exists := g.nodes[g.entryPoint]; !exists {
		errs = append(errs, fmt.Errorf("%w: %s", ErrEntryNotFound, g.entryPoint))
	}

	for from, targets := range g.edges {
		if _, exists := g.nodes[from]; !exists {
			errs = append(errs, fmt.Errorf("%w: edge source '%s' does not exist", ErrNodeNotFound, from))
		}
		for _, to := range targets {
			if to != END {
				if _, exists := g.nodes[to]; !exists {
					errs = append(errs, fmt.Errorf("%w: edge target '%s' does not exist", ErrNodeNotFound, to))
				}
			}
		}
	}

	for from := range g.conditionalEdges {
		if _, exists := g.nodes[from]; !exists {
			errs = append(errs, fmt.Errorf("%w: conditional edge source '%s' does not exist", ErrNodeNotFound, from))
		}
		if len(g.edges[from]) > 0 {
			errs = append(errs, fmt.Errorf("%w: %s", ErrMixedEdgeKinds, from))
		}
	}

	forkJoins, fjErrs := g.resolveFanOuts()
	errs = append(errs, fjErrs...)

	g.warnUnreachableNodes()

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	cg := g.buildCompiledGraph()
	cg.forkJoins = forkJoins
	for _, opt := range opts {
		opt(cg)
	}
	return cg, nil
}

// resolveFanOuts validates that every multi-edge fan-out converges:
// each target must resolve through exactly one fixed edge, and all targets
// must agree on that successor (or END). The shared successor becomes the
// join node executed after the barrier merge.
func (g *Graph[S]) resolveFanOuts() (map[string]*forkJoin, []error) {
	forkJoins := make(map[string]*forkJoin)
	var errs []error

	for from, targets := range g.edges {
		if len(targets) < 2 {
			continue
		}

		join := ""
		ok := true
		for _, target := range targets {
			if target == END {
				errs = append(errs, fmt.Errorf("%w: %s has END among fan-out targets", ErrDivergentFanOut, from))
				ok = false
				break
			}
			if _, conditional := g.conditionalEdges[target]; conditional {
				errs = append(errs, fmt.Errorf("%w: fan-out target '%s' routes conditionally", ErrDivergentFanOut, target))
				ok = false
				break
			}
			succ := g.edges[target]
			if len(succ) != 1 {
				errs = append(errs, fmt.Errorf("%w: fan-out target '%s' must have exactly one outgoing edge", ErrDivergentFanOut, target))
				ok = false
				break
			}
			if join == "" {
				join = succ[0]
			} else if join != succ[0] {
				errs = append(errs, fmt.Errorf("%w: targets of %s join at both '%s' and '%s'", ErrDivergentFanOut, from, join, succ[0]))
				ok = false
				break
			}
		}

		if ok {
			forkJoins[from] = &forkJoin{Targets: append([]string(nil), targets...), Join: join}
		}
	}

	return forkJoins, errs
}

// warnUnreachableNodes logs warnings for nodes not reachable from entry.
func (g *Graph[S]) warnUnreachableNodes() {
	if g.entryPoint == "" {
		return
	}

	reachable := g.findReachableNodes()

	for _, nodeID := range g.order {
		if !reachable[nodeID] {
			slog.Warn("node is unreachable from entry via declared edges", "node_id", nodeID)
		}
	}
}

// findReachableNodes returns the set of nodes reachable from the entry point.
// Conditional edges can return any node ID at run time, so a conditional
// source makes every node reachable.
func (g *Graph[S]) findReachableNodes() map[string]bool {
	reachable := make(map[string]bool)

	if g.entryPoint == "" {
		return reachable
	}

	queue := []string{g.entryPoint}
	reachable[g.entryPoint] = true

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, target := range g.edges[current] {
			if target != END && !reachable[target] {
				reachable[target] = true
				queue = append(queue, target)
			}
		}

		if _, hasConditional := g.conditionalEdges[current]; hasConditional {
			for nodeID := range g.nodes {
				if !reachable[nodeID] {
					reachable[nodeID] = true
					queue = append(queue, nodeID)
				}
			}
		}
	}

	return reachable
}

// buildCompiledGraph creates the immutable CompiledGraph from the builder state.
func (g *Graph[S]) buildCompiledGraph() *CompiledGraph[S] {
	nodes := make(map[string]NodeFunc[S], len(g.nodes))
	for id, fn := range g.nodes {
		nodes[id] = fn
	}

	edges := make(map[string][]string, len(g.edges))
	for from, targets := range g.edges {
		edges[from] = append([]string(nil), targets...)
	}

	conditionalEdges := make(map[string]RouterFunc[S], len(g.conditionalEdges))
	for from, router := range g.conditionalEdges {
		conditionalEdges[from] = router
	}

	pathMaps := make(map[string]map[string]string, len(g.pathMaps))
	for from, pm := range g.pathMaps {
		copied := make(map[string]string, len(pm))
		for label, target := range pm {
			copied[label] = target
		}
		pathMaps[from] = copied
	}

	interruptBefore := make(map[string]bool, len(g.interruptBefore))
	for id := range g.interruptBefore {
		interruptBefore[id] = true
	}
	interruptAfter := make(map[string]bool, len(g.interruptAfter))
	for id := range g.interruptAfter {
		interruptAfter[id] = true
	}

	reducer := g.reducer
	if reducer == nil {
		reducer = func(_, incoming S) S { return incoming }
	}
	cloner := g.cloner
	if cloner == nil {
		cloner = jsonClone[S]
	}

	return &CompiledGraph[S]{
		nodes:            nodes,
		edges:            edges,
		conditionalEdges: conditionalEdges,
		pathMaps:         pathMaps,
		entryPoint:       g.entryPoint,
		interruptBefore:  interruptBefore,
		interruptAfter:   interruptAfter,
		reducer:          reducer,
		cloner:           cloner,
	}
}

// CompileOption configures the CompiledGraph at compile time.
// Options are type-erased so they don't need the graph's type parameter.
type CompileOption func(compileTarget)

// compileTarget is the surface compile options act on.
type compileTarget interface {
	setCheckpointer(store checkpoint.Store)
	addInterruptBefore(ids ...string)
	addInterruptAfter(ids ...string)
}

package stategraph

import (
	"context"
	"sync"
	"time"

	"github.com/ridgewell/stategraph/pkg/stategraph/observability"
)

type barrierResult[S any] struct {
	delta    S
	hasDelta bool
	err      error
}

// runBarrier executes every target on its own clone of the current state,
// waits for all of them, and merges each target's returned delta into the
// current state in registration order. Branch-local state never leaks: only
// what a target returns is merged, so the base state is counted once no
// matter how many branches ran. Targets run exactly one node each; a target
// that returns a command fails the barrier with ErrCommandInBarrier. The
// first failing target, in registration order, fails the whole barrier.
func (cg *CompiledGraph[S]) runBarrier(
	tracingCtx context.Context,
	ec *executionContext,
	from string,
	targets []string,
	state S,
	cfg *runConfig,
	emit emitFunc[S],
) (S, int, error) {
	for _, target := range targets {
		if !cg.HasNode(target) {
			return state, 0, &RoutingError{
				FromNode: from,
				Returned: target,
				Err:      ErrRouterTargetNotFound,
			}
		}
	}

	elapsed := observability.TimedOperation()

	if cfg.tracingEnabled {
		barrierCtx, span := cfg.spans.StartBarrierSpan(tracingCtx, from, len(targets))
		tracingCtx = barrierCtx
		defer func() {
			cfg.spans.EndSpanWithError(span, nil)
		}()
	}

	results := make([]barrierResult[S], len(targets))
	var wg sync.WaitGroup

	for i, target := range targets {
		branch, err := cg.cloner(state)
		if err != nil {
			return state, 0, &BarrierError{FromNode: from, Target: target, Err: err}
		}

		wg.Add(1)
		go func(i int, target string, branch S) {
			defer wg.Done()

			observability.LogNodeStart(cfg.logger, target)
			nodeStart := time.Now()
			outcome, err := cg.executeNode(ec, target, branch)
			nodeDuration := time.Since(nodeStart)
			cfg.metrics.RecordNodeExecution(tracingCtx, target, nodeDuration, err)

			if err != nil {
				results[i].err = err
				return
			}
			if outcome.IsCommand() {
				results[i].err = &NodeError{NodeID: target, Op: "barrier", Err: ErrCommandInBarrier}
				return
			}
			observability.LogNodeComplete(cfg.logger, target, float64(nodeDuration.Milliseconds()))
			results[i] = barrierResult[S]{delta: outcome.delta, hasDelta: outcome.hasDelta}
		}(i, target, branch)
	}

	wg.Wait()

	for i := range results {
		if results[i].err != nil {
			return state, 0, &BarrierError{FromNode: from, Target: targets[i], Err: results[i].err}
		}
	}

	// Merge order is registration order, independent of completion order.
	for i := range results {
		if results[i].hasDelta {
			state = cg.reducer(state, results[i].delta)
		}
	}

	if emit != nil {
		for i := range results {
			if !emit(targets[i], results[i].delta, results[i].hasDelta, state) {
				return state, len(targets), errStreamStopped
			}
		}
	}

	observability.LogBarrier(cfg.logger, from, len(targets), elapsed())
	return state, len(targets), nil
}

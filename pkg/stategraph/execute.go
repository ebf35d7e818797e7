package stategraph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/ridgewell/stategraph/pkg/stategraph/checkpoint"
	"github.com/ridgewell/stategraph/pkg/stategraph/observability"
	"go.opentelemetry.io/otel/trace"
)

// errStreamStopped signals that a stream consumer stopped pulling.
// It never escapes the package.
var errStreamStopped = errors.New("stream consumer stopped")

// emitFunc receives one completed node at a time during streaming.
// Returning false stops the run.
type emitFunc[S any] func(node string, delta S, hasDelta bool, full S) bool

// Invoke executes the graph with the given initial state and runs until the
// graph reaches END, pauses on an interrupt, or fails.
//
// When the graph was compiled with a checkpointer and WithThreadID is
// given, every completed node writes a checkpoint, and re-invoking with the
// same thread ID resumes a paused run from its checkpointed next node (the
// initial state argument is ignored on resumption; use UpdateState to feed
// input to the resumed node). Execution never replays from the entry point
// on resume, except when WithCheckpointID explicitly forks from an earlier
// point in history.
//
// On success, returns a RunResult that is either Complete or Interrupted.
// On error, the returned result carries the state at the point of failure.
func (cg *CompiledGraph[S]) Invoke(ctx Context, state S, opts ...RunOption) (RunResult[S], error) {
	return cg.invoke(ctx, state, opts, nil)
}

// invoke is the shared implementation behind Invoke and Stream.
func (cg *CompiledGraph[S]) invoke(ctx Context, state S, opts []RunOption, emit emitFunc[S]) (result RunResult[S], runErr error) {
	if ctx == nil {
		return RunResult[S]{State: state}, ErrNilContext
	}

	cfg := defaultRunConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.checkpointID != "" && cfg.threadID == "" {
		return RunResult[S]{State: state}, ErrThreadIDRequired
	}

	ec := asExecutionContext(ctx).withRun(cfg.threadID, cg.checkpointer)

	state, start, resuming, err := cg.loadResumePoint(ec, &cfg, state)
	if err != nil {
		return RunResult[S]{State: state}, err
	}
	if start == END {
		// Nothing left to execute: a fork from a final checkpoint, or a
		// resumption of a run that paused after its last node. The latter
		// finalizes the thread so later invocations start fresh.
		if resuming && cfg.checkpointID == "" {
			if _, err := cg.saveCheckpoint(ec, &cfg, END, state, END, false); err != nil {
				return RunResult[S]{State: state}, err
			}
		}
		return RunResult[S]{State: state}, nil
	}

	startTime := time.Now()
	observability.LogInvokeStart(cfg.logger, cfg.threadID)

	var tracingCtx context.Context = ec
	var invokeSpan trace.Span
	if cfg.tracingEnabled {
		tracingCtx, invokeSpan = cfg.spans.StartInvokeSpan(ec, "stategraph", cfg.threadID)
		defer func() {
			cfg.spans.EndSpanWithError(invokeSpan, runErr)
		}()
	}

	var nodeCount int
	result, nodeCount, runErr = cg.run(tracingCtx, ec, state, start, resuming, &cfg, emit)

	duration := time.Since(startTime)
	durationMs := float64(duration.Milliseconds())
	cfg.metrics.RecordInvocation(ec, runErr == nil, duration)

	switch {
	case runErr != nil:
		if errors.Is(runErr, errStreamStopped) {
			break
		}
		lastNode := ""
		var nodeErr *NodeError
		var limitErr *IterationLimitError
		var cancelErr *CancellationError
		if errors.As(runErr, &nodeErr) {
			lastNode = nodeErr.NodeID
		} else if errors.As(runErr, &limitErr) {
			lastNode = limitErr.LastNodeID
		} else if errors.As(runErr, &cancelErr) {
			lastNode = cancelErr.NodeID
		}
		observability.LogInvokeError(cfg.logger, cfg.threadID, runErr, durationMs, lastNode)
	case result.Interrupted:
		cfg.metrics.RecordInterrupt(ec, result.NextNode)
		observability.LogInvokeInterrupted(cfg.logger, cfg.threadID, result.NextNode)
	default:
		observability.LogInvokeComplete(cfg.logger, cfg.threadID, durationMs, nodeCount)
	}

	return result, runErr
}

// run drives the execution loop from a start node until END, a pause, or a
// failure. Returns the result, the number of node executions, and any error.
func (cg *CompiledGraph[S]) run(
	tracingCtx context.Context,
	ec *executionContext,
	state S,
	start string,
	resuming bool,
	cfg *runConfig,
	emit emitFunc[S],
) (RunResult[S], int, error) {
	current := start
	// A resumption is already past the pause point it checkpointed at.
	skipInterrupt := resuming
	executed := 0

	for current != END {
		if executed >= maxIterations {
			return RunResult[S]{State: state}, executed, &IterationLimitError{
				Limit:      maxIterations,
				LastNodeID: current,
				State:      state,
			}
		}

		if cg.interruptBefore[current] && !skipInterrupt {
			cpID, err := cg.saveCheckpoint(ec, cfg, current, state, current, true)
			if err != nil {
				return RunResult[S]{State: state}, executed, err
			}
			return RunResult[S]{State: state, Interrupted: true, NextNode: current, CheckpointID: cpID}, executed, nil
		}
		skipInterrupt = false

		// Check for cancellation before executing the node. A cancelled
		// invocation never writes a partial-node checkpoint.
		select {
		case <-ec.Done():
			return RunResult[S]{State: state}, executed, &CancellationError{
				NodeID: current,
				State:  state,
				Cause:  ec.Err(),
			}
		default:
		}

		observability.LogNodeStart(cfg.logger, current)

		nodeTracingCtx := tracingCtx
		var nodeSpan trace.Span
		if cfg.tracingEnabled {
			nodeTracingCtx, nodeSpan = cfg.spans.StartNodeSpan(tracingCtx, current)
		}

		nodeStart := time.Now()
		outcome, nodeErr := cg.executeNode(ec, current, state)
		nodeDuration := time.Since(nodeStart)

		cfg.metrics.RecordNodeExecution(nodeTracingCtx, current, nodeDuration, nodeErr)
		if cfg.tracingEnabled {
			cfg.spans.EndSpanWithError(nodeSpan, nodeErr)
		}

		if nodeErr != nil {
			observability.LogNodeError(cfg.logger, current, nodeErr)
			return RunResult[S]{State: state}, executed, nodeErr
		}
		observability.LogNodeComplete(cfg.logger, current, float64(nodeDuration.Milliseconds()))
		executed++

		next := ""
		var delta S
		hasDelta := false

		if outcome.cmd == nil {
			if outcome.hasDelta {
				state = cg.reducer(state, outcome.delta)
				delta, hasDelta = outcome.delta, true
			}
		} else {
			cmd := outcome.cmd
			switch cmd.kind {
			case cmdInterrupt:
				// The node's work is discarded; the checkpoint points back
				// at the node so it re-runs on resume.
				cpID, err := cg.saveCheckpoint(ec, cfg, current, state, current, true)
				if err != nil {
					return RunResult[S]{State: state}, executed, err
				}
				return RunResult[S]{
					State:        state,
					Interrupted:  true,
					Payload:      cmd.payload,
					NextNode:     current,
					CheckpointID: cpID,
				}, executed, nil

			case cmdStop:
				next = END

			case cmdGoto:
				if cmd.hasDelta {
					state = cg.reducer(state, cmd.delta)
					delta, hasDelta = cmd.delta, true
				}
				if cmd.target != END && !cg.HasNode(cmd.target) {
					return RunResult[S]{State: state}, executed, &RoutingError{
						FromNode: current,
						Returned: cmd.target,
						Err:      ErrRouterTargetNotFound,
					}
				}
				next = cmd.target

			case cmdApply:
				state = cg.reducer(state, cmd.delta)
				delta, hasDelta = cmd.delta, true

			case cmdSend:
				merged, n, err := cg.runBarrier(tracingCtx, ec, current, cmd.targets, state, cfg, emit)
				executed += n
				if err != nil {
					return RunResult[S]{State: state}, executed, err
				}
				state = merged
			}
		}

		if emit != nil {
			if !emit(current, delta, hasDelta, state) {
				return RunResult[S]{State: state}, executed, errStreamStopped
			}
		}

		if next == "" {
			if fj := cg.forkJoins[current]; fj != nil {
				merged, n, err := cg.runBarrier(tracingCtx, ec, current, fj.Targets, state, cfg, emit)
				executed += n
				if err != nil {
					return RunResult[S]{State: state}, executed, err
				}
				state = merged
				next = fj.Join
			} else {
				var routeErr error
				next, routeErr = cg.resolveNext(ec, state, current)
				if routeErr != nil {
					return RunResult[S]{State: state}, executed, routeErr
				}
			}
		}

		if cg.interruptAfter[current] {
			cpID, err := cg.saveCheckpoint(ec, cfg, current, state, next, true)
			if err != nil {
				return RunResult[S]{State: state}, executed, err
			}
			return RunResult[S]{State: state, Interrupted: true, NextNode: next, CheckpointID: cpID}, executed, nil
		}

		if _, err := cg.saveCheckpoint(ec, cfg, current, state, next, false); err != nil {
			return RunResult[S]{State: state}, executed, err
		}

		current = next
	}

	return RunResult[S]{State: state}, executed, nil
}

// executeNode executes a single node with panic recovery.
// Returns the outcome and any error (including wrapped panics).
func (cg *CompiledGraph[S]) executeNode(ec *executionContext, nodeID string, state S) (result Outcome[S], err error) {
	fn, exists := cg.getNode(nodeID)
	if !exists {
		// This shouldn't happen if compilation was successful.
		return Outcome[S]{}, &NodeError{
			NodeID: nodeID,
			Op:     "lookup",
			Err:    fmt.Errorf("node not found: %s", nodeID),
		}
	}

	nodeCtx := ec.withNodeID(nodeID)

	// Panic recovery
	defer func() {
		if r := recover(); r != nil {
			result = Outcome[S]{}
			err = &PanicError{
				NodeID: nodeID,
				Value:  r,
				Stack:  string(debug.Stack()),
			}
		}
	}()

	result, err = fn(nodeCtx, state)
	if err != nil {
		return Outcome[S]{}, &NodeError{
			NodeID: nodeID,
			Op:     "execute",
			Err:    err,
		}
	}

	return result, nil
}

// resolveNext determines the next node by ordinary edge resolution:
// a conditional router when declared, the single fixed edge otherwise.
// Multi-edge fan-outs are resolved by the caller through the join barrier.
func (cg *CompiledGraph[S]) resolveNext(ec *executionContext, state S, current string) (string, error) {
	if router, exists := cg.getRouter(current); exists {
		next := router(ec.withNodeID(current), state)

		if next == "" {
			return "", &RoutingError{
				FromNode: current,
				Returned: next,
				Err:      ErrRouterEmpty,
			}
		}
		if next != END && !cg.HasNode(next) {
			return "", &RoutingError{
				FromNode: current,
				Returned: next,
				Err:      ErrRouterTargetNotFound,
			}
		}
		return next, nil
	}

	targets := cg.edges[current]
	if len(targets) == 0 {
		return "", &RoutingError{
			FromNode: current,
			Err:      ErrNoOutgoingEdge,
		}
	}
	return targets[0], nil
}

// pausedMetaKey marks a checkpoint written by an interrupt pause rather
// than by node completion. Resumption uses it to tell a pause whose next
// node is END apart from a finished run.
const pausedMetaKey = "stategraph.paused"

// saveCheckpoint persists state plus the next node for the thread. A no-op
// when the graph has no checkpointer or the invocation is unkeyed. Pause
// checkpoints carry the pausedMetaKey marker.
// Failures are logged and swallowed unless WithFatalCheckpointFailures was
// given.
func (cg *CompiledGraph[S]) saveCheckpoint(ec *executionContext, cfg *runConfig, nodeID string, state S, nextNode string, paused bool) (string, error) {
	if cg.checkpointer == nil || cfg.threadID == "" {
		return "", nil
	}

	stateBytes, err := json.Marshal(state)
	if err != nil {
		if cfg.checkpointFatal {
			return "", &CheckpointError{NodeID: nodeID, Op: "serialize", Err: err}
		}
		observability.LogCheckpointError(cfg.logger, nodeID, "serialize", err)
		return "", nil
	}

	metadata := cfg.metadata
	if paused {
		metadata = make(map[string]string, len(cfg.metadata)+1)
		for k, v := range cfg.metadata {
			metadata[k] = v
		}
		metadata[pausedMetaKey] = "true"
	}

	cfg.sequence++
	cp := checkpoint.New(cfg.threadID, cfg.sequence, stateBytes, nextNode).
		WithParent(cfg.parentID).
		WithMetadata(metadata)

	if err := cg.checkpointer.Put(ec, cp); err != nil {
		cfg.sequence--
		if cfg.checkpointFatal {
			return "", &CheckpointError{NodeID: nodeID, Op: "put", Err: err}
		}
		observability.LogCheckpointError(cfg.logger, nodeID, "put", err)
		return "", nil
	}

	cfg.parentID = cp.ID
	observability.LogCheckpoint(cfg.logger, nodeID, len(stateBytes))
	cfg.metrics.RecordCheckpoint(ec, nodeID, int64(len(stateBytes)))

	return cp.ID, nil
}

// Package stategraph provides an embeddable graph-based workflow engine.
package stategraph

import (
	"errors"
	"fmt"
)

// Sentinel errors for graph building and compilation.
var (
	// ErrNoEntryPoint indicates SetEntry() was not called before Compile().
	ErrNoEntryPoint = errors.New("entry point not set")

	// ErrEntryNotFound indicates the entry point references a non-existent node.
	ErrEntryNotFound = errors.New("entry point node not found")

	// ErrNodeNotFound indicates an edge references a non-existent node.
	ErrNodeNotFound = errors.New("node not found")

	// ErrInvalidNodeName indicates a node was registered under an empty,
	// reserved, or whitespace-containing name.
	ErrInvalidNodeName = errors.New("invalid node name")

	// ErrMixedEdgeKinds indicates a node has both fixed edges and a
	// conditional edge. A node has exactly one resolution strategy.
	ErrMixedEdgeKinds = errors.New("node mixes fixed and conditional edges")

	// ErrDivergentFanOut indicates the targets of a multi-edge fan-out do
	// not converge on a single join node.
	ErrDivergentFanOut = errors.New("fan-out targets do not converge")
)

// Sentinel errors for execution.
var (
	// ErrNilContext indicates Invoke() was called with a nil context.
	ErrNilContext = errors.New("context cannot be nil")

	// ErrIterationLimit indicates the execution loop exceeded the fixed
	// iteration ceiling. It always marks an engine safety decision, never
	// node logic.
	ErrIterationLimit = errors.New("iteration limit exceeded")

	// ErrRouterEmpty indicates a router function returned an empty string.
	ErrRouterEmpty = errors.New("router returned empty string")

	// ErrRouterTargetNotFound indicates a router or Goto named a node that
	// is neither END nor registered.
	ErrRouterTargetNotFound = errors.New("routing target not registered")

	// ErrNoOutgoingEdge indicates ordinary resolution found no edge for a node.
	ErrNoOutgoingEdge = errors.New("no outgoing edge")

	// ErrCommandInBarrier indicates a fan-out target returned a command.
	// Barrier targets must return plain state continuations.
	ErrCommandInBarrier = errors.New("command returned inside fan-out barrier")
)

// Sentinel errors for checkpointing and resume.
var (
	// ErrNoCheckpointer indicates a state operation was attempted on a graph
	// compiled without a checkpointer.
	ErrNoCheckpointer = errors.New("no checkpointer configured")

	// ErrThreadIDRequired indicates checkpointing was requested without a thread ID.
	ErrThreadIDRequired = errors.New("thread ID required for checkpointing")

	// ErrNoCheckpoints indicates no checkpoints exist for the thread.
	ErrNoCheckpoints = errors.New("no checkpoints found for thread")

	// ErrSerializeState indicates state serialization failed.
	ErrSerializeState = errors.New("failed to serialize state")

	// ErrDeserializeState indicates state deserialization failed.
	ErrDeserializeState = errors.New("failed to deserialize state")

	// ErrInvalidResumeNode indicates a checkpoint points at a node that does
	// not exist in the graph.
	ErrInvalidResumeNode = errors.New("invalid resume node")
)

// NodeError wraps an opaque failure from a node's own operation.
// The engine only propagates it and aborts; it never interprets the cause.
type NodeError struct {
	// NodeID is the identifier of the node that failed.
	NodeID string
	// Op is the operation that failed (e.g., "execute").
	Op string
	// Err is the underlying error from the node.
	Err error
}

// Error implements the error interface.
func (e *NodeError) Error() string {
	return fmt.Sprintf("node %s: %s: %v", e.NodeID, e.Op, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *NodeError) Unwrap() error {
	return e.Err
}

// PanicError captures panic information from node execution.
// It includes the stack trace for debugging.
type PanicError struct {
	// NodeID is the identifier of the node that panicked.
	NodeID string
	// Value is the value passed to panic().
	Value any
	// Stack is the full stack trace at the point of panic.
	Stack string
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("node %s panicked: %v", e.NodeID, e.Value)
}

// RoutingError reports a routing decision that named an unusable target:
// a router returned an empty or unregistered name, or a Goto pointed at an
// unknown node. Detected at routing time, not compile time, since router
// results are data-dependent.
type RoutingError struct {
	// FromNode is the node whose routing failed.
	FromNode string
	// Returned is the target name that was produced.
	Returned string
	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *RoutingError) Error() string {
	return fmt.Sprintf("routing from %s to %q: %v", e.FromNode, e.Returned, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *RoutingError) Unwrap() error {
	return e.Err
}

// IterationLimitError reports that the execution loop hit the fixed safety
// ceiling. It is a circuit breaker against structurally buggy cycles, not a
// tunable workload parameter, and is always attributable to the engine
// rather than to node logic.
type IterationLimitError struct {
	// Limit is the fixed ceiling.
	Limit int
	// LastNodeID is the node that would have executed next.
	LastNodeID string
	// State is the state at termination (type-assert to the actual type).
	State any
}

// Error implements the error interface.
func (e *IterationLimitError) Error() string {
	return fmt.Sprintf("exceeded iteration limit (%d) at node %s", e.Limit, e.LastNodeID)
}

// Unwrap returns ErrIterationLimit for errors.Is support.
func (e *IterationLimitError) Unwrap() error {
	return ErrIterationLimit
}

// CancellationError captures the state when execution was cancelled.
// It preserves the state at the point of cancellation for recovery. No
// partial-node checkpoint is ever written; the last completed node's
// checkpoint remains the resumption point.
type CancellationError struct {
	// NodeID is the node that was about to execute.
	NodeID string
	// State is the state at cancellation (type-assert to the actual type).
	State any
	// Cause is context.Canceled or context.DeadlineExceeded.
	Cause error
}

// Error implements the error interface.
func (e *CancellationError) Error() string {
	return fmt.Sprintf("cancelled before node %s: %v", e.NodeID, e.Cause)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *CancellationError) Unwrap() error {
	return e.Cause
}

// CheckpointError wraps errors from checkpoint operations.
type CheckpointError struct {
	// NodeID is the node after which checkpointing failed.
	NodeID string
	// Op is the operation that failed ("serialize", "put", "load").
	Op string
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *CheckpointError) Error() string {
	return fmt.Sprintf("checkpoint %s at node %s: %v", e.Op, e.NodeID, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *CheckpointError) Unwrap() error {
	return e.Err
}

// BarrierError reports a failure inside a concurrent fan-out barrier.
type BarrierError struct {
	// FromNode is the dispatching node.
	FromNode string
	// Target is the first barrier target that failed.
	Target string
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *BarrierError) Error() string {
	return fmt.Sprintf("fan-out from %s (target %s): %v", e.FromNode, e.Target, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *BarrierError) Unwrap() error {
	return e.Err
}

package stategraph

import (
	"context"
	"log/slog"

	"github.com/ridgewell/stategraph/pkg/stategraph/checkpoint"
)

// Context provides execution context to nodes and routers.
// It extends context.Context with engine services and metadata.
//
// Context is immutable after creation. The executor creates derived contexts
// for each node with updated NodeID and enriched logger.
type Context interface {
	context.Context

	// Logger returns the configured logger, enriched with thread and node
	// context during execution. Never returns nil - defaults to
	// slog.Default() if not configured.
	Logger() *slog.Logger

	// Checkpointer returns the checkpoint store the graph was compiled
	// with, or nil if none was injected. Nodes should check for nil
	// before using.
	Checkpointer() checkpoint.Store

	// ThreadID returns the isolation unit for this logical run. The thread
	// identifier travels in run configuration, never inside the state value.
	// Empty when the invocation is unkeyed.
	ThreadID() string

	// NodeID returns the current node being executed.
	// Empty string before execution starts.
	NodeID() string
}

// executionContext is the internal implementation of Context.
type executionContext struct {
	context.Context

	logger       *slog.Logger
	checkpointer checkpoint.Store
	threadID     string
	nodeID       string
}

// Logger returns the configured logger.
func (c *executionContext) Logger() *slog.Logger {
	return c.logger
}

// Checkpointer returns the checkpoint store.
func (c *executionContext) Checkpointer() checkpoint.Store {
	return c.checkpointer
}

// ThreadID returns the thread identifier.
func (c *executionContext) ThreadID() string {
	return c.threadID
}

// NodeID returns the current node identifier.
func (c *executionContext) NodeID() string {
	return c.nodeID
}

// ContextOption configures a Context.
type ContextOption func(*executionContext)

// WithLogger sets the logger for the context.
// The logger is enriched with thread_id and node_id during execution.
func WithLogger(logger *slog.Logger) ContextOption {
	return func(c *executionContext) {
		c.logger = logger
	}
}

// NewContext creates an execution context from a standard context.
// The returned Context wraps the provided context.Context and adds
// engine services and metadata.
//
// Example:
//
//	ctx := stategraph.NewContext(context.Background(),
//	    stategraph.WithLogger(myLogger))
func NewContext(ctx context.Context, opts ...ContextOption) Context {
	ec := &executionContext{
		Context: ctx,
		logger:  slog.Default(),
	}

	for _, opt := range opts {
		opt(ec)
	}

	return ec
}

// asExecutionContext normalizes any Context to the internal implementation
// so the executor can derive per-node contexts.
func asExecutionContext(ctx Context) *executionContext {
	if ec, ok := ctx.(*executionContext); ok {
		return ec
	}
	return &executionContext{
		Context:      ctx,
		logger:       ctx.Logger(),
		checkpointer: ctx.Checkpointer(),
		threadID:     ctx.ThreadID(),
		nodeID:       ctx.NodeID(),
	}
}

// withRun returns a derived context carrying the run's thread and services.
func (c *executionContext) withRun(threadID string, store checkpoint.Store) *executionContext {
	return &executionContext{
		Context:      c.Context,
		logger:       c.logger,
		checkpointer: store,
		threadID:     threadID,
		nodeID:       c.nodeID,
	}
}

// withNodeID returns a new context with the given node ID set.
// Used internally by the executor to enrich the context per-node.
func (c *executionContext) withNodeID(nodeID string) *executionContext {
	return &executionContext{
		Context:      c.Context,
		logger:       c.logger.With("thread_id", c.threadID, "node_id", nodeID),
		checkpointer: c.checkpointer,
		threadID:     c.threadID,
		nodeID:       nodeID,
	}
}

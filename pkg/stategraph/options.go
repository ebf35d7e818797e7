package stategraph

import (
	"log/slog"

	"github.com/ridgewell/stategraph/pkg/stategraph/observability"
)

// maxIterations is the fixed execution ceiling: a circuit breaker against
// structurally buggy cycles, not a tunable workload parameter. It is
// deliberately non-configurable.
const maxIterations = 100

// runConfig holds per-invocation configuration.
type runConfig struct {
	threadID     string
	metadata     map[string]string
	checkpointID string

	logger          *slog.Logger
	metrics         observability.MetricsRecorder
	metricsEnabled  bool
	spans           observability.SpanManager
	tracingEnabled  bool
	checkpointFatal bool

	// checkpoint chain bookkeeping, owned by the in-flight call
	sequence int
	parentID string
}

// defaultRunConfig returns the default invocation configuration.
func defaultRunConfig() runConfig {
	return runConfig{
		metrics: observability.NoopMetrics{},
		spans:   observability.NoopSpanManager{},
	}
}

// RunOption configures execution behavior for a single invocation.
type RunOption func(*runConfig)

// WithThreadID keys the invocation to a logical thread. The thread is the
// isolation unit for checkpointing: re-invoking with the same thread ID
// resumes a paused run from its checkpointed next node. Required whenever
// the graph was compiled with a checkpointer and persistence is wanted.
func WithThreadID(id string) RunOption {
	return func(c *runConfig) {
		c.threadID = id
	}
}

// WithMetadata attaches caller metadata to every checkpoint written by this
// invocation.
func WithMetadata(md map[string]string) RunOption {
	return func(c *runConfig) {
		c.metadata = md
	}
}

// WithCheckpointID resumes from a specific historical checkpoint instead of
// the thread's latest, forking a new branch of history from that point
// (time-travel debugging). Requires WithThreadID.
func WithCheckpointID(id string) RunOption {
	return func(c *runConfig) {
		c.checkpointID = id
	}
}

// WithObservabilityLogger sets the logger used for run and node lifecycle
// events. Without it, lifecycle logging is suppressed.
func WithObservabilityLogger(logger *slog.Logger) RunOption {
	return func(c *runConfig) {
		c.logger = logger
	}
}

// WithMetrics enables or disables OpenTelemetry metrics for this invocation.
// Disabled by default.
func WithMetrics(enabled bool) RunOption {
	return func(c *runConfig) {
		c.metricsEnabled = enabled
		if enabled {
			c.metrics = observability.NewMetricsRecorder()
		} else {
			c.metrics = observability.NoopMetrics{}
		}
	}
}

// WithTracing enables or disables OpenTelemetry tracing for this invocation.
// Disabled by default.
func WithTracing(enabled bool) RunOption {
	return func(c *runConfig) {
		c.tracingEnabled = enabled
		if enabled {
			c.spans = observability.NewSpanManager()
		} else {
			c.spans = observability.NoopSpanManager{}
		}
	}
}

// WithFatalCheckpointFailures makes checkpoint put failures abort the
// invocation instead of logging and continuing.
func WithFatalCheckpointFailures() RunOption {
	return func(c *runConfig) {
		c.checkpointFatal = true
	}
}

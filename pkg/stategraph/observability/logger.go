// Package observability provides structured logging, metrics, and
// distributed tracing for stategraph executions.
//
// Features:
//   - Structured logging via slog (Go stdlib)
//   - Metrics via OpenTelemetry
//   - Tracing via OpenTelemetry
//
// All features are opt-in and have no-op implementations when disabled.
package observability

import (
	"log/slog"
	"time"
)

// EnrichLogger adds execution context to a logger.
// Returns a new logger with thread_id and node_id fields.
func EnrichLogger(logger *slog.Logger, threadID, nodeID string) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(
		slog.String("thread_id", threadID),
		slog.String("node_id", nodeID),
	)
}

// LogInvokeStart logs the start of a graph invocation.
func LogInvokeStart(logger *slog.Logger, threadID string) {
	if logger == nil {
		return
	}
	logger.Info("graph invocation starting",
		slog.String("thread_id", threadID),
	)
}

// LogInvokeComplete logs successful invocation completion.
func LogInvokeComplete(logger *slog.Logger, threadID string, durationMs float64, nodeCount int) {
	if logger == nil {
		return
	}
	logger.Info("graph invocation completed",
		slog.String("thread_id", threadID),
		slog.Float64("duration_ms", durationMs),
		slog.Int("nodes_executed", nodeCount),
	)
}

// LogInvokeInterrupted logs an invocation pausing on an interrupt.
func LogInvokeInterrupted(logger *slog.Logger, threadID, nextNode string) {
	if logger == nil {
		return
	}
	logger.Info("graph invocation interrupted",
		slog.String("thread_id", threadID),
		slog.String("next_node", nextNode),
	)
}

// LogInvokeError logs invocation failure.
func LogInvokeError(logger *slog.Logger, threadID string, err error, durationMs float64, lastNode string) {
	if logger == nil {
		return
	}
	logger.Error("graph invocation failed",
		slog.String("thread_id", threadID),
		slog.String("error", err.Error()),
		slog.Float64("duration_ms", durationMs),
		slog.String("last_node", lastNode),
	)
}

// LogNodeStart logs node execution start.
func LogNodeStart(logger *slog.Logger, nodeID string) {
	if logger == nil {
		return
	}
	logger.Debug("node starting",
		slog.String("node_id", nodeID),
	)
}

// LogNodeComplete logs successful node completion.
func LogNodeComplete(logger *slog.Logger, nodeID string, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Debug("node completed",
		slog.String("node_id", nodeID),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogNodeError logs node execution error.
func LogNodeError(logger *slog.Logger, nodeID string, err error) {
	if logger == nil {
		return
	}
	logger.Error("node failed",
		slog.String("node_id", nodeID),
		slog.String("error", err.Error()),
	)
}

// LogBarrier logs completion of a fan-out join barrier.
func LogBarrier(logger *slog.Logger, fromNode string, targets int, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Debug("fan-out barrier joined",
		slog.String("from_node", fromNode),
		slog.Int("targets", targets),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogCheckpoint logs checkpoint creation.
func LogCheckpoint(logger *slog.Logger, nodeID string, sizeBytes int) {
	if logger == nil {
		return
	}
	logger.Debug("checkpoint saved",
		slog.String("node_id", nodeID),
		slog.Int("size_bytes", sizeBytes),
	)
}

// LogCheckpointError logs checkpoint failure (non-fatal).
func LogCheckpointError(logger *slog.Logger, nodeID string, op string, err error) {
	if logger == nil {
		return
	}
	logger.Warn("checkpoint failed",
		slog.String("node_id", nodeID),
		slog.String("operation", op),
		slog.String("error", err.Error()),
	)
}

// TimedOperation measures the duration of an operation.
// Returns a function that, when called, returns the elapsed time in milliseconds.
func TimedOperation() func() float64 {
	start := time.Now()
	return func() float64 {
		return float64(time.Since(start).Milliseconds())
	}
}

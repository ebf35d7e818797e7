package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Tracer is the stategraph tracer instance.
// Uses the global OTel tracer provider.
var tracer = otel.Tracer("stategraph")

// SpanManager handles trace span lifecycle.
// Use NewSpanManager() for OTel tracing or NoopSpanManager{} when disabled.
type SpanManager interface {
	// StartInvokeSpan starts a span for an entire graph invocation.
	// Returns the context with span and the span itself.
	StartInvokeSpan(ctx context.Context, graphName, threadID string) (context.Context, trace.Span)

	// StartNodeSpan starts a span for a node execution.
	// The node span should be a child of the invocation span.
	StartNodeSpan(ctx context.Context, nodeID string) (context.Context, trace.Span)

	// StartBarrierSpan starts a span covering a fan-out join barrier.
	StartBarrierSpan(ctx context.Context, fromNode string, targets int) (context.Context, trace.Span)

	// EndSpanWithError completes a span, optionally recording an error.
	EndSpanWithError(span trace.Span, err error)

	// AddSpanEvent adds an event to the current span in context.
	AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue)
}

// otelSpanManager implements SpanManager using OpenTelemetry.
type otelSpanManager struct{}

// NewSpanManager returns a SpanManager that uses OpenTelemetry.
//
// The span manager uses the global OTel tracer provider. Configure the provider
// before calling this function:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetTracerProvider(yourProvider)
func NewSpanManager() SpanManager {
	return &otelSpanManager{}
}

// StartInvokeSpan starts a span for an entire graph invocation.
func (m *otelSpanManager) StartInvokeSpan(ctx context.Context, graphName, threadID string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "stategraph.invoke",
		trace.WithAttributes(
			attribute.String("graph.name", graphName),
			attribute.String("thread.id", threadID),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// StartNodeSpan starts a span for a node execution.
func (m *otelSpanManager) StartNodeSpan(ctx context.Context, nodeID string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "stategraph.node."+nodeID,
		trace.WithAttributes(
			attribute.String("node.id", nodeID),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// StartBarrierSpan starts a span covering a fan-out join barrier.
func (m *otelSpanManager) StartBarrierSpan(ctx context.Context, fromNode string, targets int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "stategraph.barrier",
		trace.WithAttributes(
			attribute.String("from.node", fromNode),
			attribute.Int("targets", targets),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// EndSpanWithError completes a span, optionally recording an error.
func (m *otelSpanManager) EndSpanWithError(span trace.Span, err error) {
	if span == nil {
		return
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// AddSpanEvent adds an event to the current span.
func (m *otelSpanManager) AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	if span == nil || !span.IsRecording() {
		return
	}
	span.AddEvent(name, trace.WithAttributes(attrs...))
}

package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// setupMetricsTest installs a test meter provider with a manual reader.
func setupMetricsTest(t *testing.T) (*sdkmetric.ManualReader, func()) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	originalProvider := otel.GetMeterProvider()
	otel.SetMeterProvider(provider)

	cleanup := func() {
		otel.SetMeterProvider(originalProvider)
		if err := provider.Shutdown(context.Background()); err != nil {
			t.Logf("Error shutting down meter provider: %v", err)
		}
	}
	return reader, cleanup
}

func collectMetrics(t *testing.T, reader *sdkmetric.ManualReader) *metricdata.ResourceMetrics {
	var rm metricdata.ResourceMetrics
	err := reader.Collect(context.Background(), &rm)
	require.NoError(t, err)
	return &rm
}

func findMetric(rm *metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func sumForNode(t *testing.T, m *metricdata.Metrics, nodeID string) int64 {
	t.Helper()
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "Expected Sum type")
	for _, dp := range sum.DataPoints {
		for _, attr := range dp.Attributes.ToSlice() {
			if attr.Key == "node_id" && attr.Value.AsString() == nodeID {
				return dp.Value
			}
		}
	}
	return 0
}

func TestNewMetricsRecorder(t *testing.T) {
	_, cleanup := setupMetricsTest(t)
	defer cleanup()

	recorder := NewMetricsRecorder()
	require.NotNil(t, recorder)

	_, isNoop := recorder.(NoopMetrics)
	assert.False(t, isNoop, "Expected real metrics recorder, got noop")
}

func TestRecordNodeExecution(t *testing.T) {
	reader, cleanup := setupMetricsTest(t)
	defer cleanup()

	m, err := newOtelMetrics()
	require.NoError(t, err)
	ctx := context.Background()

	t.Run("records execution count", func(t *testing.T) {
		m.RecordNodeExecution(ctx, "process", 50*time.Millisecond, nil)

		rm := collectMetrics(t, reader)
		metric := findMetric(rm, "stategraph.node.executions")
		require.NotNil(t, metric)
		assert.GreaterOrEqual(t, sumForNode(t, metric, "process"), int64(1))
	})

	t.Run("records latency", func(t *testing.T) {
		m.RecordNodeExecution(ctx, "transform", 100*time.Millisecond, nil)

		rm := collectMetrics(t, reader)
		metric := findMetric(rm, "stategraph.node.latency_ms")
		require.NotNil(t, metric)

		hist, ok := metric.Data.(metricdata.Histogram[float64])
		require.True(t, ok, "Expected Histogram type")
		require.NotEmpty(t, hist.DataPoints)
	})

	t.Run("records errors when present", func(t *testing.T) {
		m.RecordNodeExecution(ctx, "failing", 10*time.Millisecond, errors.New("node failed"))

		rm := collectMetrics(t, reader)
		metric := findMetric(rm, "stategraph.node.errors")
		require.NotNil(t, metric)
		assert.GreaterOrEqual(t, sumForNode(t, metric, "failing"), int64(1))
	})

	t.Run("no error metric without error", func(t *testing.T) {
		m.RecordNodeExecution(ctx, "healthy", 10*time.Millisecond, nil)

		rm := collectMetrics(t, reader)
		if metric := findMetric(rm, "stategraph.node.errors"); metric != nil {
			assert.Zero(t, sumForNode(t, metric, "healthy"))
		}
	})
}

func TestRecordInvocation(t *testing.T) {
	reader, cleanup := setupMetricsTest(t)
	defer cleanup()

	m, err := newOtelMetrics()
	require.NoError(t, err)
	ctx := context.Background()

	m.RecordInvocation(ctx, true, 200*time.Millisecond)
	m.RecordInvocation(ctx, false, 10*time.Millisecond)

	rm := collectMetrics(t, reader)

	metric := findMetric(rm, "stategraph.graph.invocations")
	require.NotNil(t, metric)
	sum, ok := metric.Data.(metricdata.Sum[int64])
	require.True(t, ok)

	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	assert.Equal(t, int64(2), total)

	latency := findMetric(rm, "stategraph.graph.latency_ms")
	require.NotNil(t, latency)
}

func TestRecordInterrupt(t *testing.T) {
	reader, cleanup := setupMetricsTest(t)
	defer cleanup()

	m, err := newOtelMetrics()
	require.NoError(t, err)

	m.RecordInterrupt(context.Background(), "gate")

	rm := collectMetrics(t, reader)
	metric := findMetric(rm, "stategraph.graph.interrupts")
	require.NotNil(t, metric)
	assert.Equal(t, int64(1), sumForNode(t, metric, "gate"))
}

func TestRecordCheckpoint(t *testing.T) {
	reader, cleanup := setupMetricsTest(t)
	defer cleanup()

	m, err := newOtelMetrics()
	require.NoError(t, err)

	m.RecordCheckpoint(context.Background(), "worker", 512)

	rm := collectMetrics(t, reader)
	metric := findMetric(rm, "stategraph.checkpoint.size_bytes")
	require.NotNil(t, metric)

	hist, ok := metric.Data.(metricdata.Histogram[int64])
	require.True(t, ok, "Expected Histogram type")
	require.NotEmpty(t, hist.DataPoints)
}

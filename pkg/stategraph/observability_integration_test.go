package stategraph

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridgewell/stategraph/pkg/stategraph/checkpoint"
)

// testLogHandler captures log records for testing.
type testLogHandler struct {
	buf   *bytes.Buffer
	level slog.Level
}

func newTestLogHandler() *testLogHandler {
	return &testLogHandler{
		buf:   &bytes.Buffer{},
		level: slog.LevelDebug,
	}
}

func (h *testLogHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *testLogHandler) Handle(_ context.Context, r slog.Record) error {
	data := map[string]any{
		"level": r.Level.String(),
		"msg":   r.Message,
	}
	r.Attrs(func(a slog.Attr) bool {
		data[a.Key] = a.Value.Any()
		return true
	})
	return json.NewEncoder(h.buf).Encode(data)
}

func (h *testLogHandler) WithAttrs([]slog.Attr) slog.Handler {
	return h
}

func (h *testLogHandler) WithGroup(string) slog.Handler {
	return h
}

func (h *testLogHandler) getRecords() []map[string]any {
	var records []map[string]any
	for _, line := range bytes.Split(h.buf.Bytes(), []byte("\n")) {
		if len(line) == 0 {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal(line, &m); err == nil {
			records = append(records, m)
		}
	}
	return records
}

func countByMsg(records []map[string]any) map[string]int {
	counts := make(map[string]int)
	for _, r := range records {
		if msg, ok := r["msg"].(string); ok {
			counts[msg]++
		}
	}
	return counts
}

func TestInvoke_WithObservabilityLogger(t *testing.T) {
	h := newTestLogHandler()
	logger := slog.New(h)

	compiled, err := NewGraph[Counter]().
		AddNode("inc1", increment).
		AddNode("inc2", increment).
		AddEdge(START, "inc1").
		AddEdge("inc1", "inc2").
		AddEdge("inc2", END).
		Compile()
	require.NoError(t, err)

	result, err := compiled.Invoke(testCtx(), Counter{},
		WithThreadID("t1"),
		WithObservabilityLogger(logger))
	require.NoError(t, err)
	assert.Equal(t, 2, result.State.Value)

	records := h.getRecords()
	require.NotEmpty(t, records)
	counts := countByMsg(records)

	assert.Equal(t, 1, counts["graph invocation starting"])
	assert.Equal(t, 1, counts["graph invocation completed"])
	assert.Equal(t, 2, counts["node starting"])
	assert.Equal(t, 2, counts["node completed"])

	for _, r := range records {
		if r["msg"] == "graph invocation completed" {
			assert.Equal(t, "t1", r["thread_id"])
			assert.Equal(t, float64(2), r["nodes_executed"])
		}
	}
}

func TestInvoke_WithObservabilityLogger_Error(t *testing.T) {
	h := newTestLogHandler()
	logger := slog.New(h)

	compiled, err := NewGraph[State]().
		AddNode("boom", makeFailingNode(errors.New("kaboom"))).
		AddEdge(START, "boom").
		AddEdge("boom", END).
		Compile()
	require.NoError(t, err)

	_, err = compiled.Invoke(testCtx(), State{}, WithObservabilityLogger(logger))
	require.Error(t, err)

	counts := countByMsg(h.getRecords())
	assert.Equal(t, 1, counts["node failed"])
	assert.Equal(t, 1, counts["graph invocation failed"])
	assert.Zero(t, counts["graph invocation completed"])

	for _, r := range h.getRecords() {
		if r["msg"] == "graph invocation failed" {
			assert.Equal(t, "boom", r["last_node"])
		}
	}
}

func TestInvoke_WithObservabilityLogger_Interrupted(t *testing.T) {
	h := newTestLogHandler()
	logger := slog.New(h)

	store := checkpoint.NewMemoryStore()
	defer store.Close()

	var tracker []string
	compiled, err := NewGraph[State]().
		AddNode("a", makeTrackingNode("a", &tracker)).
		AddNode("b", makeTrackingNode("b", &tracker)).
		AddEdge(START, "a").
		AddEdge("a", "b").
		AddEdge("b", END).
		Compile(WithCheckpointer(store), WithInterruptBefore("b"))
	require.NoError(t, err)

	result, err := compiled.Invoke(testCtx(), State{},
		WithThreadID("t1"),
		WithObservabilityLogger(logger))
	require.NoError(t, err)
	require.True(t, result.Interrupted)

	counts := countByMsg(h.getRecords())
	assert.Equal(t, 1, counts["graph invocation interrupted"])
	assert.GreaterOrEqual(t, counts["checkpoint saved"], 1)

	for _, r := range h.getRecords() {
		if r["msg"] == "graph invocation interrupted" {
			assert.Equal(t, "b", r["next_node"])
		}
	}
}

func TestInvoke_WithObservabilityLogger_Barrier(t *testing.T) {
	h := newTestLogHandler()
	logger := slog.New(h)

	compiled, err := NewGraph[State]().
		AddNode("dispatch", func(_ Context, s State) (Outcome[State], error) {
			return Send[State]("x", "y"), nil
		}).
		AddNode("x", passthrough[State]).
		AddNode("y", passthrough[State]).
		AddEdge(START, "dispatch").
		AddEdge("dispatch", END).
		Compile()
	require.NoError(t, err)

	_, err = compiled.Invoke(testCtx(), State{}, WithObservabilityLogger(logger))
	require.NoError(t, err)

	counts := countByMsg(h.getRecords())
	assert.Equal(t, 1, counts["fan-out barrier joined"])
	// dispatch plus the two barrier targets
	assert.Equal(t, 3, counts["node starting"])
}

func TestInvoke_NoLoggerConfigured(t *testing.T) {
	compiled, err := NewGraph[Counter]().
		AddNode("inc", increment).
		AddEdge(START, "inc").
		AddEdge("inc", END).
		Compile()
	require.NoError(t, err)

	// Absent logger must not panic or slow the happy path.
	result, err := compiled.Invoke(testCtx(), Counter{})
	require.NoError(t, err)
	assert.Equal(t, 1, result.State.Value)
}

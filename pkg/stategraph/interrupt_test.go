package stategraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridgewell/stategraph/pkg/stategraph/checkpoint"
)

// buildInterruptGraph builds A -> B -> END with interrupt_before=[B] and a
// memory checkpointer.
func buildInterruptGraph(t *testing.T, tracker *[]string) (*CompiledGraph[State], *checkpoint.MemoryStore) {
	t.Helper()
	store := checkpoint.NewMemoryStore()

	compiled, err := NewGraph[State]().
		AddNode("a", makeTrackingNode("a", tracker)).
		AddNode("b", makeTrackingNode("b", tracker)).
		AddEdge(START, "a").
		AddEdge("a", "b").
		AddEdge("b", END).
		Compile(WithCheckpointer(store), WithInterruptBefore("b"))
	require.NoError(t, err)
	return compiled, store
}

// TestInterruptBefore_PausesAndResumes covers the full pause/resume cycle:
// the first invocation stops before B, the second finishes it.
func TestInterruptBefore_PausesAndResumes(t *testing.T) {
	var executed []string
	compiled, _ := buildInterruptGraph(t, &executed)

	result, err := compiled.Invoke(testCtx(), State{}, WithThreadID("t1"))

	require.NoError(t, err)
	assert.True(t, result.Interrupted)
	assert.Equal(t, "b", result.NextNode)
	assert.NotEmpty(t, result.CheckpointID)
	assert.Equal(t, []string{"a"}, executed)

	// Re-invoking the same thread resumes at B; the initial state argument
	// is ignored.
	result, err = compiled.Invoke(testCtx(), State{Initial: "ignored"}, WithThreadID("t1"))

	require.NoError(t, err)
	assert.True(t, result.Complete())
	assert.Equal(t, []string{"a", "b"}, executed)
}

// TestInterruptBefore_UpdateStateVisible verifies an update_state call made
// while paused is observable as B's input on resume.
func TestInterruptBefore_UpdateStateVisible(t *testing.T) {
	var bSaw State
	store := checkpoint.NewMemoryStore()

	compiled, err := NewGraph[State]().
		AddNode("a", func(ctx Context, s State) (Outcome[State], error) {
			s.Progress = append(s.Progress, "a")
			return Continue(s), nil
		}).
		AddNode("b", func(ctx Context, s State) (Outcome[State], error) {
			bSaw = s
			return Continue(s), nil
		}).
		AddEdge(START, "a").
		AddEdge("a", "b").
		AddEdge("b", END).
		Compile(WithCheckpointer(store), WithInterruptBefore("b"))
	require.NoError(t, err)

	ctx := testCtx()
	result, err := compiled.Invoke(ctx, State{}, WithThreadID("t1"))
	require.NoError(t, err)
	require.True(t, result.Interrupted)

	err = compiled.UpdateState(ctx, "t1", State{Progress: result.State.Progress, Output: "human input"})
	require.NoError(t, err)

	result, err = compiled.Invoke(ctx, State{}, WithThreadID("t1"))
	require.NoError(t, err)
	assert.True(t, result.Complete())
	assert.Equal(t, "human input", bSaw.Output)
	assert.Equal(t, []string{"a"}, bSaw.Progress)
}

// TestInterruptAfter_PausesAfterNode verifies interrupt_after checkpoints
// once the node has run, pointing at its successor.
func TestInterruptAfter_PausesAfterNode(t *testing.T) {
	var executed []string
	store := checkpoint.NewMemoryStore()

	compiled, err := NewGraph[State]().
		AddNode("a", makeTrackingNode("a", &executed)).
		AddNode("b", makeTrackingNode("b", &executed)).
		AddEdge(START, "a").
		AddEdge("a", "b").
		AddEdge("b", END).
		Compile(WithCheckpointer(store), WithInterruptAfter("a"))
	require.NoError(t, err)

	result, err := compiled.Invoke(testCtx(), State{}, WithThreadID("t1"))

	require.NoError(t, err)
	assert.True(t, result.Interrupted)
	assert.Equal(t, "b", result.NextNode)
	assert.Equal(t, []string{"a"}, executed)

	result, err = compiled.Invoke(testCtx(), State{}, WithThreadID("t1"))
	require.NoError(t, err)
	assert.True(t, result.Complete())
	assert.Equal(t, []string{"a", "b"}, executed)
}

// TestInterruptAfter_FinalNodeResumesToCompletion verifies that a pause
// after the last node resumes by finishing the run with the checkpointed
// state. The node never replays, and the thread ends up completed.
func TestInterruptAfter_FinalNodeResumesToCompletion(t *testing.T) {
	runs := 0
	store := checkpoint.NewMemoryStore()

	compiled, err := NewGraph[State]().
		AddNode("a", func(ctx Context, s State) (Outcome[State], error) {
			runs++
			s.Progress = append(s.Progress, "a")
			return Continue(s), nil
		}).
		AddEdge(START, "a").
		AddEdge("a", END).
		Compile(WithCheckpointer(store), WithInterruptAfter("a"))
	require.NoError(t, err)

	ctx := testCtx()
	result, err := compiled.Invoke(ctx, State{}, WithThreadID("t1"))
	require.NoError(t, err)
	assert.True(t, result.Interrupted)
	assert.Equal(t, END, result.NextNode)
	require.Equal(t, 1, runs)

	result, err = compiled.Invoke(ctx, State{}, WithThreadID("t1"))
	require.NoError(t, err)
	assert.True(t, result.Complete())
	assert.Equal(t, []string{"a"}, result.State.Progress)
	assert.Equal(t, 1, runs, "the node must not re-execute on resume")

	// The thread is finished now; the latest snapshot says so, and another
	// invocation starts a fresh run instead of resuming.
	snap, err := compiled.GetState(ctx, "t1")
	require.NoError(t, err)
	assert.True(t, snap.Complete())

	result, err = compiled.Invoke(ctx, State{}, WithThreadID("t1"))
	require.NoError(t, err)
	assert.True(t, result.Interrupted, "a fresh run pauses after the node again")
	assert.Equal(t, 2, runs)
}

// TestImperativeInterrupt verifies a node pausing itself with a payload,
// then completing after the state satisfies it.
func TestImperativeInterrupt(t *testing.T) {
	store := checkpoint.NewMemoryStore()

	compiled, err := NewGraph[State]().
		AddNode("gate", func(ctx Context, s State) (Outcome[State], error) {
			if s.Output == "" {
				return Interrupt[State](map[string]any{"question": "proceed?"}), nil
			}
			s.Done = true
			return Continue(s), nil
		}).
		AddEdge(START, "gate").
		AddEdge("gate", END).
		Compile(WithCheckpointer(store))
	require.NoError(t, err)

	ctx := testCtx()
	result, err := compiled.Invoke(ctx, State{}, WithThreadID("t1"))

	require.NoError(t, err)
	assert.True(t, result.Interrupted)
	assert.Equal(t, "gate", result.NextNode, "interrupting node re-runs on resume")
	payload, ok := result.Payload.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "proceed?", payload["question"])

	// Satisfy the gate, then resume the same thread.
	require.NoError(t, compiled.UpdateState(ctx, "t1", State{Output: "yes"}))

	result, err = compiled.Invoke(ctx, State{}, WithThreadID("t1"))
	require.NoError(t, err)
	assert.True(t, result.Complete())
	assert.True(t, result.State.Done)
}

// TestResume_CompletedThreadStartsFresh verifies invoking a finished thread
// starts a new run from the entry point instead of resuming.
func TestResume_CompletedThreadStartsFresh(t *testing.T) {
	var executed []string
	store := checkpoint.NewMemoryStore()

	compiled, err := NewGraph[State]().
		AddNode("a", makeTrackingNode("a", &executed)).
		AddEdge(START, "a").
		AddEdge("a", END).
		Compile(WithCheckpointer(store))
	require.NoError(t, err)

	ctx := testCtx()
	_, err = compiled.Invoke(ctx, State{}, WithThreadID("t1"))
	require.NoError(t, err)
	_, err = compiled.Invoke(ctx, State{}, WithThreadID("t1"))
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "a"}, executed)

	// History keeps growing monotonically across runs.
	history, err := compiled.GetStateHistory(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Greater(t, history[1].Sequence, history[0].Sequence)
}

// TestTimeTravel_ForkFromHistoricalCheckpoint re-runs from an earlier
// checkpoint, forking a new branch of the thread's history.
func TestTimeTravel_ForkFromHistoricalCheckpoint(t *testing.T) {
	store := checkpoint.NewMemoryStore()

	compiled, err := NewGraph[Counter]().
		AddNode("a", increment).
		AddNode("b", increment).
		AddNode("c", increment).
		AddEdge(START, "a").
		AddEdge("a", "b").
		AddEdge("b", "c").
		AddEdge("c", END).
		Compile(WithCheckpointer(store))
	require.NoError(t, err)

	ctx := testCtx()
	result, err := compiled.Invoke(ctx, Counter{}, WithThreadID("t1"))
	require.NoError(t, err)
	require.Equal(t, 3, result.State.Value)

	history, err := compiled.GetStateHistory(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, history, 3)

	// Fork from after node A: state 1, next node "b".
	afterA := history[0]
	assert.Equal(t, "b", afterA.NextNode)

	forked, err := compiled.Invoke(ctx, Counter{},
		WithThreadID("t1"), WithCheckpointID(afterA.CheckpointID))
	require.NoError(t, err)

	assert.True(t, forked.Complete())
	assert.Equal(t, 3, forked.State.Value, "b and c re-run from the forked state")

	// The fork extended history rather than rewriting it.
	history, err = compiled.GetStateHistory(ctx, "t1")
	require.NoError(t, err)
	assert.Len(t, history, 5)
}

// TestInvoke_CheckpointIDRequiresThread verifies time travel without a
// thread ID is rejected.
func TestInvoke_CheckpointIDRequiresThread(t *testing.T) {
	var executed []string
	compiled, _ := buildInterruptGraph(t, &executed)

	_, err := compiled.Invoke(testCtx(), State{}, WithCheckpointID("cp-1"))
	assert.ErrorIs(t, err, ErrThreadIDRequired)
}

// TestInvoke_CheckpointsWrittenPerNode verifies one checkpoint per
// completed node plus the terminal record.
func TestInvoke_CheckpointsWrittenPerNode(t *testing.T) {
	store := checkpoint.NewMemoryStore()

	compiled, err := NewGraph[Counter]().
		AddNode("a", increment).
		AddNode("b", increment).
		AddEdge(START, "a").
		AddEdge("a", "b").
		AddEdge("b", END).
		Compile(WithCheckpointer(store))
	require.NoError(t, err)

	_, err = compiled.Invoke(testCtx(), Counter{}, WithThreadID("t1"))
	require.NoError(t, err)

	cps, err := store.List(testCtx(), "t1")
	require.NoError(t, err)
	require.Len(t, cps, 2)
	assert.Equal(t, "b", cps[0].NextNode)
	assert.Equal(t, END, cps[1].NextNode)
	assert.Equal(t, cps[0].ID, cps[1].ParentID, "checkpoints chain via parent ID")
}

// TestInvoke_NoThreadNoCheckpoints verifies unkeyed invocations never write.
func TestInvoke_NoThreadNoCheckpoints(t *testing.T) {
	var executed []string
	compiled, store := buildInterruptGraph(t, &executed)

	// No thread ID: the run still pauses at the structural interrupt but
	// persists nothing.
	result, err := compiled.Invoke(testCtx(), State{})
	require.NoError(t, err)
	assert.True(t, result.Interrupted)
	assert.Empty(t, result.CheckpointID)
	assert.Equal(t, 0, store.Len())
}

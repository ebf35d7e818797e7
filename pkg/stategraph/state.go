package stategraph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ridgewell/stategraph/pkg/stategraph/checkpoint"
)

// Snapshot is a typed view of one checkpoint in a thread's history.
type Snapshot[S any] struct {
	// State is the checkpointed state, deserialized.
	State S

	// NextNode is the node the thread resumes at. END means the run
	// finished at this point.
	NextNode string

	// CheckpointID identifies this snapshot for time travel.
	CheckpointID string

	// ParentID is the checkpoint this one was derived from, if any.
	ParentID string

	// Sequence orders snapshots within the thread, oldest first.
	Sequence int

	CreatedAt time.Time
	Metadata  map[string]string
}

// Complete reports whether the thread had finished at this snapshot.
func (s *Snapshot[S]) Complete() bool {
	return s.NextNode == END
}

// GetState returns the latest snapshot for a thread.
// Returns ErrNoCheckpoints if the thread has no history.
func (cg *CompiledGraph[S]) GetState(ctx context.Context, threadID string) (*Snapshot[S], error) {
	if cg.checkpointer == nil {
		return nil, ErrNoCheckpointer
	}
	if threadID == "" {
		return nil, ErrThreadIDRequired
	}

	cp, err := cg.checkpointer.Get(ctx, threadID, "")
	if err != nil {
		if errors.Is(err, checkpoint.ErrNotFound) {
			return nil, fmt.Errorf("thread %s: %w", threadID, ErrNoCheckpoints)
		}
		return nil, &CheckpointError{Op: "get", Err: err}
	}

	return cg.snapshotFrom(cp)
}

// GetStateHistory returns all snapshots for a thread, oldest first.
// Returns ErrNoCheckpoints if the thread has no history.
func (cg *CompiledGraph[S]) GetStateHistory(ctx context.Context, threadID string) ([]Snapshot[S], error) {
	if cg.checkpointer == nil {
		return nil, ErrNoCheckpointer
	}
	if threadID == "" {
		return nil, ErrThreadIDRequired
	}

	cps, err := cg.checkpointer.List(ctx, threadID)
	if err != nil {
		return nil, &CheckpointError{Op: "list", Err: err}
	}
	if len(cps) == 0 {
		return nil, fmt.Errorf("thread %s: %w", threadID, ErrNoCheckpoints)
	}

	history := make([]Snapshot[S], 0, len(cps))
	for _, cp := range cps {
		snap, err := cg.snapshotFrom(cp)
		if err != nil {
			return nil, err
		}
		history = append(history, *snap)
	}
	return history, nil
}

// UpdateState merges an update into the thread's latest checkpointed state
// using the graph's reducer and writes the result as a new checkpoint. The
// checkpoint keeps the latest NextNode, so a paused thread stays paused at
// the same node and the update is visible as that node's input on resume.
//
// A thread with no history is seeded with the update as its initial state,
// positioned at the graph's entry point.
func (cg *CompiledGraph[S]) UpdateState(ctx context.Context, threadID string, update S) error {
	if cg.checkpointer == nil {
		return ErrNoCheckpointer
	}
	if threadID == "" {
		return ErrThreadIDRequired
	}

	var (
		merged   S
		nextNode string
		sequence int
		parentID string
		metadata map[string]string
	)

	latest, err := cg.checkpointer.Get(ctx, threadID, "")
	switch {
	case errors.Is(err, checkpoint.ErrNotFound):
		merged = update
		nextNode = cg.entryPoint
		sequence = 1
	case err != nil:
		return &CheckpointError{Op: "get", Err: err}
	default:
		var current S
		if err := json.Unmarshal(latest.State, &current); err != nil {
			return fmt.Errorf("%w: %w", ErrDeserializeState, err)
		}
		merged = cg.reducer(current, update)
		nextNode = latest.NextNode
		sequence = latest.Sequence + 1
		parentID = latest.ID
		metadata = latest.Metadata
	}

	stateBytes, err := json.Marshal(merged)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSerializeState, err)
	}

	cp := checkpoint.New(threadID, sequence, stateBytes, nextNode).
		WithParent(parentID).
		WithMetadata(metadata)

	if err := cg.checkpointer.Put(ctx, cp); err != nil {
		return &CheckpointError{Op: "put", Err: err}
	}
	return nil
}

// snapshotFrom deserializes a checkpoint into a typed snapshot.
func (cg *CompiledGraph[S]) snapshotFrom(cp *checkpoint.Checkpoint) (*Snapshot[S], error) {
	var state S
	if err := json.Unmarshal(cp.State, &state); err != nil {
		return nil, fmt.Errorf("checkpoint %s: %w: %w", cp.ID, ErrDeserializeState, err)
	}
	return &Snapshot[S]{
		State:        state,
		NextNode:     cp.NextNode,
		CheckpointID: cp.ID,
		ParentID:     cp.ParentID,
		Sequence:     cp.Sequence,
		CreatedAt:    cp.Timestamp,
		Metadata:     cp.Metadata,
	}, nil
}

// loadResumePoint decides where an invocation starts: fresh from the entry
// point, resumed from the thread's latest checkpoint, or forked from an
// explicit checkpoint ID. It also positions the run config's sequence
// counter past the thread's existing history.
func (cg *CompiledGraph[S]) loadResumePoint(ctx context.Context, cfg *runConfig, initial S) (S, string, bool, error) {
	if cg.checkpointer == nil || cfg.threadID == "" {
		return initial, cg.entryPoint, false, nil
	}

	if cfg.checkpointID != "" {
		cp, err := cg.checkpointer.Get(ctx, cfg.threadID, cfg.checkpointID)
		if err != nil {
			return initial, "", false, &CheckpointError{Op: "get", Err: err}
		}
		var state S
		if err := json.Unmarshal(cp.State, &state); err != nil {
			return initial, "", false, fmt.Errorf("checkpoint %s: %w: %w", cp.ID, ErrDeserializeState, err)
		}
		// The fork continues the thread's sequence, not the ancestor's,
		// so history stays totally ordered.
		maxSeq, err := cg.maxSequence(ctx, cfg.threadID)
		if err != nil {
			return initial, "", false, err
		}
		cfg.sequence = maxSeq
		cfg.parentID = cp.ID
		if cp.NextNode != END && !cg.HasNode(cp.NextNode) {
			return initial, "", false, fmt.Errorf("%w: %q", ErrInvalidResumeNode, cp.NextNode)
		}
		return state, cp.NextNode, cp.Metadata[pausedMetaKey] == "true", nil
	}

	latest, err := cg.checkpointer.Get(ctx, cfg.threadID, "")
	if errors.Is(err, checkpoint.ErrNotFound) {
		return initial, cg.entryPoint, false, nil
	}
	if err != nil {
		return initial, "", false, &CheckpointError{Op: "get", Err: err}
	}

	cfg.sequence = latest.Sequence
	cfg.parentID = latest.ID

	paused := latest.Metadata[pausedMetaKey] == "true"

	if latest.NextNode == END || latest.NextNode == "" {
		if paused && latest.NextNode == END {
			// Paused after the final node. Resuming completes the run
			// with the checkpointed state rather than replaying from the
			// entry point.
			var state S
			if err := json.Unmarshal(latest.State, &state); err != nil {
				return initial, "", false, fmt.Errorf("checkpoint %s: %w: %w", latest.ID, ErrDeserializeState, err)
			}
			return state, END, true, nil
		}
		// Previous run completed; start a new run on the same thread.
		return initial, cg.entryPoint, false, nil
	}

	if !cg.HasNode(latest.NextNode) {
		return initial, "", false, fmt.Errorf("%w: %q", ErrInvalidResumeNode, latest.NextNode)
	}

	var state S
	if err := json.Unmarshal(latest.State, &state); err != nil {
		return initial, "", false, fmt.Errorf("checkpoint %s: %w: %w", latest.ID, ErrDeserializeState, err)
	}
	// A checkpoint that did not record a pause (one seeded by UpdateState,
	// or left by an aborted run) resumes at its next node without skipping
	// a structural interrupt declared there.
	return state, latest.NextNode, paused, nil
}

// maxSequence returns the highest sequence number in a thread's history.
func (cg *CompiledGraph[S]) maxSequence(ctx context.Context, threadID string) (int, error) {
	cps, err := cg.checkpointer.List(ctx, threadID)
	if err != nil {
		return 0, &CheckpointError{Op: "list", Err: err}
	}
	max := 0
	for _, cp := range cps {
		if cp.Sequence > max {
			max = cp.Sequence
		}
	}
	return max, nil
}

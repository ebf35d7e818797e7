// Package checkpoint provides persistent state snapshots for crash
// recovery, interrupt/resume, and time-travel debugging.
package checkpoint

import (
	"context"
	"errors"
)

// Store persists checkpoints keyed by thread identifier.
// Implementations must be safe for concurrent use; the engine isolates
// invocations by thread, so a slow backend stalls only the owning thread.
type Store interface {
	// Put stores a checkpoint. Put is idempotent for a repeated
	// (thread ID, checkpoint ID) pair: the data is replaced without
	// creating a duplicate ordering entry.
	Put(ctx context.Context, cp *Checkpoint) error

	// Get retrieves a checkpoint. An empty checkpointID selects the
	// highest-sequence checkpoint for the thread.
	// Returns ErrNotFound if no matching checkpoint exists.
	Get(ctx context.Context, threadID, checkpointID string) (*Checkpoint, error)

	// List returns all checkpoints for a thread ordered oldest to newest.
	// Returns an empty slice (not an error) if the thread has none.
	List(ctx context.Context, threadID string) ([]*Checkpoint, error)

	// DeleteThread removes all checkpoints for a thread.
	// Returns nil if the thread has no checkpoints.
	DeleteThread(ctx context.Context, threadID string) error

	// Close releases any resources (connections, files).
	Close() error
}

// Sentinel errors for checkpoint operations.
var (
	// ErrNotFound indicates a checkpoint doesn't exist.
	ErrNotFound = errors.New("checkpoint not found")

	// ErrStoreClosed indicates the store has been closed.
	ErrStoreClosed = errors.New("checkpoint store closed")
)

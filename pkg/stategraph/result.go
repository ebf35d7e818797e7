package stategraph

// RunResult is produced once per invocation: either a completed run or a
// paused one awaiting external input. It is not itself persisted; the
// checkpoint is the durable record.
type RunResult[S any] struct {
	// State is the accumulated state at completion or pause.
	State S

	// Interrupted is true when the run paused instead of completing.
	// An interrupted result is a successful-but-paused outcome, never an
	// error.
	Interrupted bool

	// Payload carries the value passed to an imperative Interrupt, if any.
	Payload any

	// NextNode is where resumption continues. Empty for completed runs.
	NextNode string

	// CheckpointID identifies the checkpoint written at the pause point,
	// when a checkpointer and thread were configured.
	CheckpointID string
}

// Complete reports whether the run finished rather than paused.
func (r RunResult[S]) Complete() bool {
	return !r.Interrupted
}

// StreamMode selects what each stream event carries.
type StreamMode int

const (
	// ModeValues emits the full accumulated state after each node.
	ModeValues StreamMode = iota

	// ModeUpdates emits only the delta the node just produced.
	ModeUpdates
)

// Event is one per-node emission from Stream.
type Event[S any] struct {
	// Node is the node that just completed.
	Node string

	// State is the accumulated state (ModeValues) or the node's delta
	// (ModeUpdates).
	State S
}

package checkpoint

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Version is the current checkpoint format version.
// Increment when making breaking changes to checkpoint structure.
const Version = 1

// Checkpoint is the persisted snapshot of execution state plus the next
// node to execute. It contains all information needed to resume a thread.
//
// (ThreadID, ID) pairs are unique; Sequence numbers are monotonically
// increasing per thread, giving a total order for latest and history
// queries. ParentID links a checkpoint to the one it was derived from,
// which makes forked (time-travel) branches traceable.
type Checkpoint struct {
	Version   int       `json:"version"`
	ThreadID  string    `json:"thread_id"`
	ID        string    `json:"checkpoint_id"`
	ParentID  string    `json:"parent_id,omitempty"`
	Sequence  int       `json:"sequence"`
	Timestamp time.Time `json:"timestamp"`

	// State is the serialized state value; the engine treats it as opaque.
	State json.RawMessage `json:"state"`

	// NextNode is where resumption continues. END marks a completed run.
	NextNode string `json:"next_node"`

	Metadata map[string]string `json:"metadata,omitempty"`
}

// New creates a checkpoint with a fresh identifier.
// State must already be serialized.
func New(threadID string, sequence int, state []byte, nextNode string) *Checkpoint {
	return &Checkpoint{
		Version:   Version,
		ThreadID:  threadID,
		ID:        uuid.New().String(),
		Sequence:  sequence,
		Timestamp: time.Now().UTC(),
		State:     state,
		NextNode:  nextNode,
	}
}

// WithParent sets the parent checkpoint ID.
func (c *Checkpoint) WithParent(parentID string) *Checkpoint {
	c.ParentID = parentID
	return c
}

// WithMetadata attaches caller-supplied metadata.
func (c *Checkpoint) WithMetadata(md map[string]string) *Checkpoint {
	c.Metadata = md
	return c
}

// Marshal serializes a checkpoint to JSON.
func (c *Checkpoint) Marshal() ([]byte, error) {
	return json.Marshal(c)
}

// Unmarshal deserializes a checkpoint from JSON.
func Unmarshal(data []byte) (*Checkpoint, error) {
	var c Checkpoint
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// Clone returns an independent copy of the checkpoint.
func (c *Checkpoint) Clone() *Checkpoint {
	cp := *c
	cp.State = make(json.RawMessage, len(c.State))
	copy(cp.State, c.State)
	if c.Metadata != nil {
		cp.Metadata = make(map[string]string, len(c.Metadata))
		for k, v := range c.Metadata {
			cp.Metadata[k] = v
		}
	}
	return &cp
}

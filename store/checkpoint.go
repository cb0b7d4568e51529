package store

import (
	"context"
	"errors"
	"maps"
	"time"
)

// End is the pending-node marker of a checkpoint whose run has completed.
const End = "END"

// ErrCheckpointNotFound is returned (wrapped) by Load when a thread has no checkpoint.
var ErrCheckpointNotFound = errors.New("checkpoint not found")

// Checkpoint is the persisted snapshot of one thread: its state and the node the
// run will continue from. A store keeps at most one checkpoint per thread.
type Checkpoint struct {
	ThreadID string         `json:"thread_id"`
	State    map[string]any `json:"state"`

	// PendingNode is the node to invoke on resume, or End once the run completed.
	PendingNode string `json:"pending_node"`

	// Step counts node invocations since the run started.
	Step int `json:"step"`

	// Version is the state version at save time.
	Version int `json:"version"`

	// InterruptValue is the value passed to Interrupt by the pending node, if any.
	InterruptValue any `json:"interrupt_value,omitempty"`

	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Completed reports whether the checkpoint belongs to a finished run.
func (c *Checkpoint) Completed() bool {
	return c.PendingNode == End
}

// Clone returns a copy whose State and Metadata maps can be modified independently.
// Values inside the maps are shared.
func (c *Checkpoint) Clone() *Checkpoint {
	if c == nil {
		return nil
	}
	out := *c
	out.State = maps.Clone(c.State)
	out.Metadata = maps.Clone(c.Metadata)
	return &out
}

// CheckpointStore defines the interface for checkpoint persistence.
// Implementations must be safe for concurrent use by distinct thread ids.
type CheckpointStore interface {
	// Save stores a checkpoint, replacing any previous checkpoint of the same thread.
	Save(ctx context.Context, checkpoint *Checkpoint) error

	// Load retrieves the checkpoint of a thread. It returns an error wrapping
	// ErrCheckpointNotFound when the thread has none.
	Load(ctx context.Context, threadID string) (*Checkpoint, error)

	// Delete removes the checkpoint of a thread. Deleting a missing thread is not an error.
	Delete(ctx context.Context, threadID string) error

	// List returns the ids of all threads with a checkpoint, sorted.
	List(ctx context.Context) ([]string, error)
}

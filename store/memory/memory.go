package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/smallnest/nodegraph/store"
)

// MemoryCheckpointStore keeps checkpoints in a map guarded by a RWMutex.
// Checkpoints are cloned on the way in and out, so callers never share maps
// with the store.
type MemoryCheckpointStore struct {
	mu          sync.RWMutex
	checkpoints map[string]*store.Checkpoint
}

var _ store.CheckpointStore = (*MemoryCheckpointStore)(nil)

// NewMemoryCheckpointStore creates a new in-memory checkpoint store
func NewMemoryCheckpointStore() *MemoryCheckpointStore {
	return &MemoryCheckpointStore{
		checkpoints: make(map[string]*store.Checkpoint),
	}
}

// Save stores a checkpoint, replacing the previous one of the thread
func (m *MemoryCheckpointStore) Save(_ context.Context, checkpoint *store.Checkpoint) error {
	if checkpoint == nil {
		return fmt.Errorf("checkpoint is nil")
	}
	if checkpoint.ThreadID == "" {
		return fmt.Errorf("checkpoint has no thread id")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkpoints[checkpoint.ThreadID] = checkpoint.Clone()
	return nil
}

// Load retrieves the checkpoint of a thread
func (m *MemoryCheckpointStore) Load(_ context.Context, threadID string) (*store.Checkpoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cp, ok := m.checkpoints[threadID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", store.ErrCheckpointNotFound, threadID)
	}
	return cp.Clone(), nil
}

// Delete removes the checkpoint of a thread
func (m *MemoryCheckpointStore) Delete(_ context.Context, threadID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.checkpoints, threadID)
	return nil
}

// List returns the sorted ids of all stored threads
func (m *MemoryCheckpointStore) List(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.checkpoints))
	for id := range m.checkpoints {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}

package file

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/smallnest/nodegraph/store"
)

const (
	fileExt   = ".json"
	tmpPrefix = ".checkpoint-"
)

// FileCheckpointStore writes one JSON document per thread into a directory.
// Writes go to a temporary file that is renamed into place, so a reader never
// observes a partially written checkpoint.
type FileCheckpointStore struct {
	dir   string
	codec *store.Codec
	mu    sync.RWMutex
}

var _ store.CheckpointStore = (*FileCheckpointStore)(nil)

// NewFileCheckpointStore creates a store rooted at dir, creating the directory if needed.
func NewFileCheckpointStore(dir string) (*FileCheckpointStore, error) {
	return NewFileCheckpointStoreWithCodec(dir, nil)
}

// NewFileCheckpointStoreWithCodec is NewFileCheckpointStore with a custom state codec.
func NewFileCheckpointStoreWithCodec(dir string, codec *store.Codec) (*FileCheckpointStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("checkpoint directory is empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create checkpoint directory: %w", err)
	}
	if codec == nil {
		codec = store.NewCodec(nil)
	}
	return &FileCheckpointStore{dir: dir, codec: codec}, nil
}

// fileName escapes threadID for use as a file name. A leading dot is escaped
// too, so checkpoint files never collide with hidden or temporary files.
func fileName(threadID string) string {
	name := url.PathEscape(threadID)
	if strings.HasPrefix(name, ".") {
		name = "%2E" + name[1:]
	}
	return name + fileExt
}

func (s *FileCheckpointStore) path(threadID string) string {
	return filepath.Join(s.dir, fileName(threadID))
}

// Save stores a checkpoint
func (s *FileCheckpointStore) Save(_ context.Context, checkpoint *store.Checkpoint) error {
	if checkpoint == nil || checkpoint.ThreadID == "" {
		return fmt.Errorf("checkpoint has no thread id")
	}

	data, err := s.codec.MarshalCheckpoint(checkpoint)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(s.dir, tmpPrefix+"*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write checkpoint: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to write checkpoint: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to set checkpoint permissions: %w", err)
	}
	if err := os.Rename(tmpName, s.path(checkpoint.ThreadID)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	return nil
}

// Load retrieves the checkpoint of a thread
func (s *FileCheckpointStore) Load(_ context.Context, threadID string) (*store.Checkpoint, error) {
	s.mu.RLock()
	data, err := os.ReadFile(s.path(threadID))
	s.mu.RUnlock()

	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", store.ErrCheckpointNotFound, threadID)
		}
		return nil, fmt.Errorf("failed to read checkpoint: %w", err)
	}
	return s.codec.UnmarshalCheckpoint(data)
}

// Delete removes the checkpoint of a thread
func (s *FileCheckpointStore) Delete(_ context.Context, threadID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path(threadID)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}
	return nil
}

// List returns the sorted ids of all stored threads
func (s *FileCheckpointStore) List(_ context.Context) ([]string, error) {
	s.mu.RLock()
	entries, err := os.ReadDir(s.dir)
	s.mu.RUnlock()
	if err != nil {
		return nil, fmt.Errorf("failed to list checkpoints: %w", err)
	}

	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, fileExt) {
			continue
		}
		id, err := url.PathUnescape(strings.TrimSuffix(name, fileExt))
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}

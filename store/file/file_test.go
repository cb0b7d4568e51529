package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/smallnest/nodegraph/store"
)

func TestFileCheckpointStore_New(t *testing.T) {
	t.Parallel()

	t.Run("creates directory if missing", func(t *testing.T) {
		t.Parallel()
		checkpointPath := filepath.Join(t.TempDir(), "checkpoints")

		s, err := NewFileCheckpointStore(checkpointPath)
		if err != nil {
			t.Fatalf("Failed to create store: %v", err)
		}
		if s == nil {
			t.Fatal("Store should not be nil")
		}

		if _, err := os.Stat(checkpointPath); os.IsNotExist(err) {
			t.Error("Directory should have been created")
		}
	})

	t.Run("rejects empty directory", func(t *testing.T) {
		t.Parallel()
		if _, err := NewFileCheckpointStore(""); err == nil {
			t.Error("Expected error for empty directory")
		}
	})
}

func TestFileCheckpointStore_SaveAndLoad(t *testing.T) {
	t.Parallel()

	s, err := NewFileCheckpointStore(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	ctx := context.Background()
	now := time.Now().UTC()

	cp := &store.Checkpoint{
		ThreadID:       "conversation/1",
		State:          map[string]any{"value": "ab", "turns": 2},
		PendingNode:    "tools",
		Step:           2,
		Version:        2,
		InterruptValue: "approve tool call?",
		Metadata:       map[string]any{"source": "interrupt"},
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.Save(ctx, cp); err != nil {
		t.Fatalf("Failed to save: %v", err)
	}

	loaded, err := s.Load(ctx, "conversation/1")
	if err != nil {
		t.Fatalf("Failed to load: %v", err)
	}
	if loaded.PendingNode != "tools" || loaded.Step != 2 || loaded.Version != 2 {
		t.Errorf("Unexpected checkpoint: %+v", loaded)
	}
	if loaded.State["value"] != "ab" || loaded.State["turns"] != 2 {
		t.Errorf("State not preserved: %v", loaded.State)
	}
	if loaded.InterruptValue != "approve tool call?" {
		t.Errorf("InterruptValue not preserved: %v", loaded.InterruptValue)
	}
	if !loaded.UpdatedAt.Equal(now) {
		t.Errorf("UpdatedAt not preserved: %v", loaded.UpdatedAt)
	}

	_, err = s.Load(ctx, "missing")
	if !errors.Is(err, store.ErrCheckpointNotFound) {
		t.Errorf("Expected ErrCheckpointNotFound, got %v", err)
	}
}

func TestFileCheckpointStore_Overwrite(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s, _ := NewFileCheckpointStore(dir)
	ctx := context.Background()

	_ = s.Save(ctx, &store.Checkpoint{ThreadID: "t", PendingNode: "node_b"})
	_ = s.Save(ctx, &store.Checkpoint{ThreadID: "t", PendingNode: store.End})

	loaded, err := s.Load(ctx, "t")
	if err != nil {
		t.Fatalf("Failed to load: %v", err)
	}
	if !loaded.Completed() {
		t.Errorf("Expected completed checkpoint, got pending %s", loaded.PendingNode)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("Expected exactly one file, got %d", len(entries))
	}
}

func TestFileCheckpointStore_ListAndDelete(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s, _ := NewFileCheckpointStore(dir)
	ctx := context.Background()

	for _, id := range []string{"b", "a/1", "c", ".cfg", ".."} {
		if err := s.Save(ctx, &store.Checkpoint{ThreadID: id}); err != nil {
			t.Fatalf("Failed to save %s: %v", id, err)
		}
	}
	// Hidden files in the directory are not checkpoints.
	if err := os.WriteFile(filepath.Join(dir, ".checkpoint-stale.json"), []byte("{}"), 0o644); err != nil {
		t.Fatalf("Failed to write stray file: %v", err)
	}

	ids, err := s.List(ctx)
	if err != nil {
		t.Fatalf("Failed to list: %v", err)
	}
	if fmt.Sprint(ids) != "[.. .cfg a/1 b c]" {
		t.Errorf("Unexpected ids: %v", ids)
	}
	if cp, err := s.Load(ctx, ".cfg"); err != nil || cp.ThreadID != ".cfg" {
		t.Errorf("Failed to load .cfg: %v", err)
	}
	if err := s.Delete(ctx, ".."); err != nil {
		t.Fatalf("Failed to delete ..: %v", err)
	}
	if err := s.Delete(ctx, ".cfg"); err != nil {
		t.Fatalf("Failed to delete .cfg: %v", err)
	}

	if err := s.Delete(ctx, "a/1"); err != nil {
		t.Fatalf("Failed to delete: %v", err)
	}
	if err := s.Delete(ctx, "a/1"); err != nil {
		t.Errorf("Second delete should be a no-op: %v", err)
	}

	ids, _ = s.List(ctx)
	if fmt.Sprint(ids) != "[b c]" {
		t.Errorf("Unexpected ids after delete: %v", ids)
	}
}

func TestFileCheckpointStore_Permissions(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s, _ := NewFileCheckpointStore(dir)
	if err := s.Save(context.Background(), &store.Checkpoint{ThreadID: "perm"}); err != nil {
		t.Fatalf("Failed to save: %v", err)
	}

	info, err := os.Stat(filepath.Join(dir, "perm.json"))
	if err != nil {
		t.Fatalf("Failed to stat: %v", err)
	}
	if info.Mode().Perm() != 0o644 {
		t.Errorf("Expected 0644, got %v", info.Mode().Perm())
	}
}

func TestFileCheckpointStore_Concurrent(t *testing.T) {
	t.Parallel()

	s, _ := NewFileCheckpointStore(t.TempDir())
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("thread-%d", i)
			for step := range 5 {
				if err := s.Save(ctx, &store.Checkpoint{ThreadID: id, Step: step}); err != nil {
					t.Errorf("Save failed: %v", err)
				}
			}
		}(i)
	}
	wg.Wait()

	ids, _ := s.List(ctx)
	if len(ids) != 20 {
		t.Fatalf("Expected 20 threads, got %d", len(ids))
	}
	cp, err := s.Load(ctx, "thread-3")
	if err != nil {
		t.Fatalf("Failed to load: %v", err)
	}
	if cp.Step != 4 {
		t.Errorf("Expected step 4, got %d", cp.Step)
	}
}

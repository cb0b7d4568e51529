package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/smallnest/nodegraph/store"
)

func TestMemoryCheckpointStore_New(t *testing.T) {
	t.Parallel()

	ms := NewMemoryCheckpointStore()

	if ms == nil {
		t.Fatal("Store should not be nil")
	}

	var _ store.CheckpointStore = ms
}

func TestMemoryCheckpointStore_BasicOperations(t *testing.T) {
	t.Parallel()

	t.Run("save and load", func(t *testing.T) {
		t.Parallel()

		ms := NewMemoryCheckpointStore()
		ctx := context.Background()

		cp := &store.Checkpoint{
			ThreadID:       "review-123",
			State:          map[string]any{"value": "a"},
			PendingNode:    "node_b",
			Step:           1,
			Version:        1,
			InterruptValue: "Do you want to go to C or D? Type C/D",
			UpdatedAt:      time.Now(),
			Metadata: map[string]any{
				"source": "interrupt",
			},
		}

		if err := ms.Save(ctx, cp); err != nil {
			t.Fatalf("Failed to save: %v", err)
		}

		loaded, err := ms.Load(ctx, cp.ThreadID)
		if err != nil {
			t.Fatalf("Failed to load: %v", err)
		}

		if loaded.ThreadID != cp.ThreadID {
			t.Errorf("ThreadID mismatch: got %s, want %s", loaded.ThreadID, cp.ThreadID)
		}
		if loaded.PendingNode != cp.PendingNode {
			t.Errorf("PendingNode mismatch: got %s, want %s", loaded.PendingNode, cp.PendingNode)
		}
		if loaded.State["value"] != "a" {
			t.Errorf("State mismatch: got %v", loaded.State)
		}
		if loaded.InterruptValue != cp.InterruptValue {
			t.Errorf("InterruptValue mismatch: got %v", loaded.InterruptValue)
		}
		if source, ok := loaded.Metadata["source"].(string); !ok || source != "interrupt" {
			t.Error("Metadata not preserved correctly")
		}
	})

	t.Run("load missing returns not found", func(t *testing.T) {
		t.Parallel()

		ms := NewMemoryCheckpointStore()

		_, err := ms.Load(context.Background(), "does-not-exist")
		if !errors.Is(err, store.ErrCheckpointNotFound) {
			t.Errorf("Expected ErrCheckpointNotFound, got %v", err)
		}
	})

	t.Run("save overwrites per thread", func(t *testing.T) {
		t.Parallel()

		ms := NewMemoryCheckpointStore()
		ctx := context.Background()

		_ = ms.Save(ctx, &store.Checkpoint{ThreadID: "t", PendingNode: "node_b", Version: 1})
		_ = ms.Save(ctx, &store.Checkpoint{ThreadID: "t", PendingNode: store.End, Version: 3})

		loaded, err := ms.Load(ctx, "t")
		if err != nil {
			t.Fatalf("Failed to load: %v", err)
		}
		if !loaded.Completed() || loaded.Version != 3 {
			t.Errorf("Expected completed v3, got %s v%d", loaded.PendingNode, loaded.Version)
		}

		ids, _ := ms.List(ctx)
		if len(ids) != 1 {
			t.Errorf("Expected one thread, got %v", ids)
		}
	})

	t.Run("stored checkpoint is isolated from caller", func(t *testing.T) {
		t.Parallel()

		ms := NewMemoryCheckpointStore()
		ctx := context.Background()

		cp := &store.Checkpoint{ThreadID: "t", State: map[string]any{"value": "a"}}
		_ = ms.Save(ctx, cp)
		cp.State["value"] = "mutated"

		loaded, _ := ms.Load(ctx, "t")
		if loaded.State["value"] != "a" {
			t.Errorf("Store shares map with caller: %v", loaded.State)
		}
		loaded.State["value"] = "mutated again"

		again, _ := ms.Load(ctx, "t")
		if again.State["value"] != "a" {
			t.Errorf("Store shares map with loader: %v", again.State)
		}
	})

	t.Run("invalid checkpoints are rejected", func(t *testing.T) {
		t.Parallel()

		ms := NewMemoryCheckpointStore()
		if err := ms.Save(context.Background(), nil); err == nil {
			t.Error("Expected error for nil checkpoint")
		}
		if err := ms.Save(context.Background(), &store.Checkpoint{}); err == nil {
			t.Error("Expected error for missing thread id")
		}
	})
}

func TestMemoryCheckpointStore_ListAndDelete(t *testing.T) {
	t.Parallel()

	ms := NewMemoryCheckpointStore()
	ctx := context.Background()

	for _, id := range []string{"c", "a", "b"} {
		if err := ms.Save(ctx, &store.Checkpoint{ThreadID: id}); err != nil {
			t.Fatalf("Failed to save %s: %v", id, err)
		}
	}

	ids, err := ms.List(ctx)
	if err != nil {
		t.Fatalf("Failed to list: %v", err)
	}
	if fmt.Sprint(ids) != "[a b c]" {
		t.Errorf("Expected sorted ids, got %v", ids)
	}

	if err := ms.Delete(ctx, "b"); err != nil {
		t.Fatalf("Failed to delete: %v", err)
	}
	if err := ms.Delete(ctx, "never-saved"); err != nil {
		t.Errorf("Deleting a missing thread should succeed: %v", err)
	}

	ids, _ = ms.List(ctx)
	if fmt.Sprint(ids) != "[a c]" {
		t.Errorf("Expected [a c], got %v", ids)
	}
}

func TestMemoryCheckpointStore_ThreadSafety(t *testing.T) {
	t.Parallel()

	ms := NewMemoryCheckpointStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			threadID := fmt.Sprintf("thread-%d", i)
			for step := range 10 {
				_ = ms.Save(ctx, &store.Checkpoint{
					ThreadID: threadID,
					State:    map[string]any{"step": step},
					Step:     step,
				})
				_, _ = ms.Load(ctx, threadID)
			}
		}(i)
	}
	wg.Wait()

	ids, _ := ms.List(ctx)
	if len(ids) != 50 {
		t.Fatalf("Expected 50 threads, got %d", len(ids))
	}
	cp, err := ms.Load(ctx, "thread-7")
	if err != nil {
		t.Fatalf("Failed to load: %v", err)
	}
	if cp.Step != 9 {
		t.Errorf("Expected last step 9, got %d", cp.Step)
	}
}

package graph

import (
	"context"
	"errors"
	"time"

	"github.com/smallnest/nodegraph/store"
)

// Checkpoint is an alias for store.Checkpoint
type Checkpoint = store.Checkpoint

// CheckpointStore is an alias for store.CheckpointStore
type CheckpointStore = store.CheckpointStore

// Halt reasons recorded under the "halt" metadata key of a checkpoint. They
// tell why the pending node has not run yet.
const (
	// HaltInterrupt: the pending node called Interrupt.
	HaltInterrupt = "interrupt"
	// HaltInterruptBefore: the pending node is an interrupt-before point.
	HaltInterruptBefore = "interrupt_before"
	// HaltStep: saved between two steps; the run did not get further.
	HaltStep = "step"
	// HaltComplete: the run reached END.
	HaltComplete = "complete"
)

const haltKey = "halt"

// haltReason reads the halt reason of cp. Checkpoints without one fall back
// to their "source" metadata.
func haltReason(cp *store.Checkpoint) string {
	if cp.Completed() {
		return HaltComplete
	}
	for _, key := range []string{haltKey, "source"} {
		switch v, _ := cp.Metadata[key].(string); v {
		case HaltInterrupt, HaltInterruptBefore, HaltStep:
			return v
		}
	}
	if cp.InterruptValue != nil {
		return HaltInterrupt
	}
	return HaltStep
}

// ThreadState is the persisted view of one thread.
type ThreadState struct {
	ThreadID string
	State    State

	// PendingNode is the node the next Resume starts from, or END.
	PendingNode string

	Status RunStatus

	// Halt is one of the Halt* reasons.
	Halt string

	Step           int
	InterruptValue any
	Metadata       map[string]any
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (r *Runner) load(ctx context.Context, threadID string) (*store.Checkpoint, error) {
	if threadID == "" {
		return nil, &NoCheckpointError{Reason: "thread id is empty"}
	}
	cp, err := r.store.Load(ctx, threadID)
	if err != nil {
		if errors.Is(err, store.ErrCheckpointNotFound) {
			return nil, &NoCheckpointError{ThreadID: threadID, Err: err}
		}
		return nil, err
	}
	return cp, nil
}

// loadResumable loads the checkpoint Resume continues from.
func (r *Runner) loadResumable(ctx context.Context, threadID string) (*store.Checkpoint, error) {
	cp, err := r.load(ctx, threadID)
	if err != nil {
		return nil, err
	}
	if cp.Completed() {
		return nil, &NoCheckpointError{ThreadID: threadID, Reason: "run already completed"}
	}
	if !r.graph.hasNode(cp.PendingNode) {
		return nil, &UnknownNodeError{Node: cp.PendingNode, Op: "resume"}
	}
	return cp, nil
}

// GetPendingNode returns the node a Resume of threadID would run first, or
// END when the thread's last run completed.
func (r *Runner) GetPendingNode(ctx context.Context, threadID string) (string, error) {
	cp, err := r.load(ctx, threadID)
	if err != nil {
		return "", err
	}
	return cp.PendingNode, nil
}

// GetState returns the persisted state of threadID.
func (r *Runner) GetState(ctx context.Context, threadID string) (*ThreadState, error) {
	cp, err := r.load(ctx, threadID)
	if err != nil {
		return nil, err
	}

	halt := haltReason(cp)
	var status RunStatus
	switch halt {
	case HaltComplete:
		status = StatusCompleted
	case HaltStep:
		status = StatusStopped
	default:
		status = StatusInterrupted
	}
	return &ThreadState{
		ThreadID:       cp.ThreadID,
		State:          restoreState(cp.State, cp.Version),
		PendingNode:    cp.PendingNode,
		Status:         status,
		Halt:           halt,
		Step:           cp.Step,
		InterruptValue: cp.InterruptValue,
		Metadata:       cp.Metadata,
		CreatedAt:      cp.CreatedAt,
		UpdatedAt:      cp.UpdatedAt,
	}, nil
}

// UpdateState merges values into the persisted state of threadID, using the
// graph's reducers, and keeps the pending node and halt reason. It lets a
// caller edit the state of an interrupted run before resuming it.
func (r *Runner) UpdateState(ctx context.Context, threadID string, values map[string]any) (State, error) {
	unlock := r.lockThread(threadID)
	defer unlock()

	cp, err := r.load(ctx, threadID)
	if err != nil {
		return State{}, err
	}

	state, err := restoreState(cp.State, cp.Version).MergeWith(values, r.graph.reducers)
	if err != nil {
		return State{}, err
	}

	cp.State = state.values
	cp.Version = state.version
	cp.UpdatedAt = r.now()
	if cp.Metadata == nil {
		cp.Metadata = make(map[string]any)
	}
	if _, ok := cp.Metadata[haltKey]; !ok {
		cp.Metadata[haltKey] = haltReason(cp)
	}
	cp.Metadata["source"] = "update"
	if err := r.store.Save(ctx, cp); err != nil {
		return State{}, err
	}
	return state, nil
}

// DeleteThread removes the checkpoint of threadID.
func (r *Runner) DeleteThread(ctx context.Context, threadID string) error {
	unlock := r.lockThread(threadID)
	defer unlock()
	return r.store.Delete(ctx, threadID)
}

// Threads lists the ids of all threads with a checkpoint.
func (r *Runner) Threads(ctx context.Context) ([]string, error) {
	return r.store.List(ctx)
}

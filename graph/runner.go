package graph

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/smallnest/nodegraph/log"
	"github.com/smallnest/nodegraph/store"
	"github.com/smallnest/nodegraph/store/memory"
)

// RunStatus is the state of a run after a call returns or a snapshot is taken.
type RunStatus int

const (
	// StatusRunning means more nodes will execute.
	StatusRunning RunStatus = iota
	// StatusInterrupted means the run halted and can be resumed.
	StatusInterrupted
	// StatusCompleted means the run reached END.
	StatusCompleted
	// StatusStopped describes a thread whose last run ended between two
	// steps without halting: a node failed, the context was cancelled or the
	// stream consumer stopped. Resume retries the pending node.
	StatusStopped
)

func (s RunStatus) String() string {
	switch s {
	case StatusRunning:
		return "running"
	case StatusInterrupted:
		return "interrupted"
	case StatusCompleted:
		return "completed"
	case StatusStopped:
		return "stopped"
	default:
		return fmt.Sprintf("RunStatus(%d)", int(s))
	}
}

// RunnerConfig configures a Runner.
type RunnerConfig struct {
	// Store persists checkpoints. Defaults to an in-memory store.
	Store store.CheckpointStore

	// Logger receives runner diagnostics. Defaults to log.NoOpLogger.
	Logger log.Logger

	// RecursionLimit bounds the number of nodes one call may execute.
	RecursionLimit int

	// ResumeKey, when set, stores the value passed to Resume in the state
	// under this key before the pending node runs.
	ResumeKey string

	// CheckpointEveryStep saves a checkpoint after every node of a fresh run,
	// not only when it halts or completes. Resumed runs always save every step.
	CheckpointEveryStep bool

	// Middleware wraps every node function, first entry outermost.
	Middleware []NodeMiddleware

	// Listeners receive node events in order.
	Listeners []Listener

	// GraphName is recorded under the "graph" metadata key of every checkpoint.
	GraphName string
}

// DefaultRunnerConfig returns a default runner configuration
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		Store:          memory.NewMemoryCheckpointStore(),
		Logger:         log.NoOpLogger{},
		RecursionLimit: 25,
	}
}

// Snapshot is one element of a run stream: either the result of a node
// (Status == StatusRunning) or the final element of the call.
type Snapshot struct {
	// Step counts nodes executed by the thread since its run started.
	Step int

	// Node is the node that just ran. Empty for the final snapshot.
	Node string

	// State after Node's update.
	State State

	// Next is the node that runs next, the pending node, or END.
	Next string

	Status RunStatus

	// InterruptValue is the value passed to Interrupt when the run halted in a node.
	InterruptValue any
}

// RunResult is the outcome of Invoke or Resume.
type RunResult struct {
	ThreadID       string
	Status         RunStatus
	State          State
	PendingNode    string
	InterruptValue any

	// Steps is the number of nodes executed by this call.
	Steps int
}

// Runner executes a CompiledGraph. It is safe for concurrent use: calls for
// the same thread id are serialized, distinct thread ids run concurrently.
type Runner struct {
	graph  *CompiledGraph
	config RunnerConfig
	logger log.Logger
	store  store.CheckpointStore
	funcs  map[string]NodeFunc
	now    func() time.Time

	locksMu sync.Mutex
	locks   map[string]*threadLock
}

// threadLock serializes the calls of one thread. It is dropped from
// Runner.locks once no call holds or waits for it.
type threadLock struct {
	mu   sync.Mutex
	refs int
}

// NewRunner creates a runner for g. Zero fields of config take their defaults.
func NewRunner(g *CompiledGraph, config RunnerConfig) *Runner {
	def := DefaultRunnerConfig()
	if config.Store == nil {
		config.Store = def.Store
	}
	if config.Logger == nil {
		config.Logger = def.Logger
	}
	if config.RecursionLimit <= 0 {
		config.RecursionLimit = def.RecursionLimit
	}

	r := &Runner{
		graph:  g,
		config: config,
		logger: config.Logger,
		store:  config.Store,
		funcs:  make(map[string]NodeFunc, len(g.nodes)),
		now:    func() time.Time { return time.Now().UTC() },
		locks:  make(map[string]*threadLock),
	}
	for name, node := range g.nodes {
		fn := node.Function
		for i := len(config.Middleware) - 1; i >= 0; i-- {
			fn = config.Middleware[i](name, fn)
		}
		r.funcs[name] = fn
	}
	return r
}

// Graph returns the compiled graph the runner executes.
func (r *Runner) Graph() *CompiledGraph {
	return r.graph
}

// Store returns the checkpoint store.
func (r *Runner) Store() store.CheckpointStore {
	return r.store
}

func (r *Runner) lockThread(threadID string) func() {
	if threadID == "" {
		return func() {}
	}
	r.locksMu.Lock()
	l, ok := r.locks[threadID]
	if !ok {
		l = &threadLock{}
		r.locks[threadID] = l
	}
	l.refs++
	r.locksMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		r.locksMu.Lock()
		if l.refs--; l.refs == 0 {
			delete(r.locks, threadID)
		}
		r.locksMu.Unlock()
	}
}

// Invoke starts a run from the entry point and executes it until it halts or
// completes. With an empty threadID nothing is checkpointed. A previous
// checkpoint of the thread is replaced when the run halts or completes.
func (r *Runner) Invoke(ctx context.Context, threadID string, initial State) (*RunResult, error) {
	return collect(threadID, r.Stream(ctx, threadID, initial))
}

// Resume continues a thread from its pending node. When the thread halted at an
// interrupt, value is made available to that node through ResumeValue and
// Interrupt. When its last run stopped after a failure, the pending node is
// retried as if the run had never stopped and value is ignored.
func (r *Runner) Resume(ctx context.Context, threadID string, value any) (*RunResult, error) {
	return collect(threadID, r.StreamResume(ctx, threadID, value))
}

// Stream is Invoke as a lazy sequence: one snapshot per executed node, then a
// final snapshot. The run advances only as the sequence is consumed; breaking
// out of the loop stops it. Ranging over the sequence again starts a new run.
//
// The thread stays locked while the sequence is consumed: calling UpdateState,
// DeleteThread or another run of the same thread from the loop body deadlocks.
func (r *Runner) Stream(ctx context.Context, threadID string, initial State) iter.Seq2[Snapshot, error] {
	return func(yield func(Snapshot, error) bool) {
		unlock := r.lockThread(threadID)
		defer unlock()

		r.execute(ctx, threadID, runStart{
			state:     restoreState(initial.values, 0),
			node:      r.graph.entryPoint,
			createdAt: r.now(),
		}, yield)
	}
}

// StreamResume is Resume as a lazy sequence. See Stream.
func (r *Runner) StreamResume(ctx context.Context, threadID string, value any) iter.Seq2[Snapshot, error] {
	return func(yield func(Snapshot, error) bool) {
		unlock := r.lockThread(threadID)
		defer unlock()

		cp, err := r.loadResumable(ctx, threadID)
		if err != nil {
			yield(Snapshot{}, err)
			return
		}

		halt := haltReason(cp)
		awaiting := halt == HaltInterrupt || halt == HaltInterruptBefore
		if !awaiting && value != nil {
			r.logger.Warn("thread %s: ignoring resume value, %s was not waiting for input", threadID, cp.PendingNode)
		}

		state := restoreState(cp.State, cp.Version)
		if awaiting && r.config.ResumeKey != "" && value != nil {
			state, err = state.MergeWith(map[string]any{r.config.ResumeKey: value}, r.graph.reducers)
			if err != nil {
				yield(Snapshot{}, err)
				return
			}
		}

		r.execute(ctx, threadID, runStart{
			state:       state,
			node:        cp.PendingNode,
			step:        cp.Step,
			resumed:     true,
			awaiting:    awaiting,
			resumeValue: value,
			createdAt:   cp.CreatedAt,
		}, yield)
	}
}

func collect(threadID string, seq iter.Seq2[Snapshot, error]) (*RunResult, error) {
	result := &RunResult{ThreadID: threadID}
	for snap, err := range seq {
		if err != nil {
			return nil, err
		}
		if snap.Status == StatusRunning {
			result.Steps++
			continue
		}
		result.Status = snap.Status
		result.State = snap.State
		result.PendingNode = snap.Next
		result.InterruptValue = snap.InterruptValue
	}
	return result, nil
}

type runStart struct {
	state       State
	node        string
	step        int
	resumed     bool
	awaiting    bool // the first node halted at an interrupt and receives resumeValue
	resumeValue any
	createdAt   time.Time
}

func (r *Runner) execute(ctx context.Context, threadID string, start runStart, yield func(Snapshot, error) bool) {
	runID := uuid.NewString()
	ctx = withThreadID(withRunID(ctx, runID), threadID)

	state := start.state
	current := start.node
	step := start.step
	executed := 0
	lastNode := ""
	saveEveryStep := start.resumed || r.config.CheckpointEveryStep

	cp := &store.Checkpoint{
		ThreadID:  threadID,
		CreatedAt: start.createdAt,
		Metadata:  map[string]any{"run_id": runID},
	}
	if r.config.GraphName != "" {
		cp.Metadata["graph"] = r.config.GraphName
	}
	save := func(pending, halt string, interruptValue any) error {
		if threadID == "" {
			return nil
		}
		cp.State = state.values
		cp.Version = state.version
		cp.PendingNode = pending
		cp.Step = step
		cp.InterruptValue = interruptValue
		cp.UpdatedAt = r.now()
		cp.Metadata["source"] = halt
		cp.Metadata[haltKey] = halt
		cp.Metadata["last_node"] = lastNode
		if err := r.store.Save(ctx, cp); err != nil {
			r.logger.Error("thread %s: failed to save checkpoint: %v", threadID, err)
			return fmt.Errorf("failed to save checkpoint: %w", err)
		}
		return nil
	}

	r.logger.Debug("thread %s: run %s starting at %s", threadID, runID, current)

	for {
		if current == END {
			if err := save(END, HaltComplete, nil); err != nil {
				yield(Snapshot{}, err)
				return
			}
			r.logger.Info("thread %s: run completed after %d steps", threadID, step)
			yield(Snapshot{Step: step, State: state, Next: END, Status: StatusCompleted}, nil)
			return
		}

		if err := ctx.Err(); err != nil {
			yield(Snapshot{}, err)
			return
		}

		firstResumed := start.awaiting && executed == 0
		if !firstResumed && r.graph.interruptBefore[current] {
			if err := save(current, HaltInterruptBefore, nil); err != nil {
				yield(Snapshot{}, err)
				return
			}
			r.logger.Info("thread %s: interrupted before %s", threadID, current)
			yield(Snapshot{Step: step, State: state, Next: current, Status: StatusInterrupted}, nil)
			return
		}

		if executed >= r.config.RecursionLimit {
			yield(Snapshot{}, fmt.Errorf("%w: %d steps without reaching END", ErrRecursionLimit, r.config.RecursionLimit))
			return
		}

		nodeCtx := ctx
		if firstResumed {
			nodeCtx = WithResumeValue(ctx, start.resumeValue)
		}

		notifyListeners(nodeCtx, r.logger, r.config.Listeners, NodeEventStart, current, state, nil)
		cmd, err := r.funcs[current](nodeCtx, state)

		if err != nil {
			var ni *NodeInterrupt
			if errors.As(err, &ni) {
				ni.Node = current
				notifyListeners(nodeCtx, r.logger, r.config.Listeners, NodeEventInterrupt, current, state, ni)
				if err := save(current, HaltInterrupt, ni.Value); err != nil {
					yield(Snapshot{}, err)
					return
				}
				r.logger.Info("thread %s: node %s interrupted: %v", threadID, current, ni.Value)
				yield(Snapshot{Step: step, State: state, Next: current, Status: StatusInterrupted, InterruptValue: ni.Value}, nil)
				return
			}

			nodeErr := &NodeError{Node: current, Err: err}
			notifyListeners(nodeCtx, r.logger, r.config.Listeners, NodeEventError, current, state, nodeErr)
			yield(Snapshot{}, nodeErr)
			return
		}

		next, newState, err := r.advance(ctx, current, cmd, state)
		if err != nil {
			notifyListeners(nodeCtx, r.logger, r.config.Listeners, NodeEventError, current, state, err)
			r.logger.Error("thread %s: %v", threadID, err)
			yield(Snapshot{}, err)
			return
		}

		state = newState
		step++
		executed++
		lastNode = current
		notifyListeners(nodeCtx, r.logger, r.config.Listeners, NodeEventComplete, current, state, nil)
		r.logger.Debug("thread %s: step %d %s -> %s", threadID, step, current, next)

		if saveEveryStep && next != END {
			if err := save(next, HaltStep, nil); err != nil {
				yield(Snapshot{}, err)
				return
			}
		}

		if !yield(Snapshot{Step: step, Node: current, State: state, Next: next, Status: StatusRunning}, nil) {
			return
		}
		current = next
	}
}

// advance merges cmd into state and resolves the next node. Nothing is
// committed when it fails.
func (r *Runner) advance(ctx context.Context, current string, cmd Command, state State) (string, State, error) {
	newState, err := state.MergeWith(cmd.Update, r.graph.reducers)
	if err != nil {
		return "", State{}, &NodeError{Node: current, Err: err}
	}
	next, err := r.graph.next(ctx, current, cmd, newState)
	if err != nil {
		return "", State{}, err
	}
	return next, newState, nil
}

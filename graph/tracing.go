package graph

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// TraceSpan represents one node execution with timing and outcome.
type TraceSpan struct {
	// ID is a unique identifier for this span
	ID string

	// RunID is the run the node belonged to
	RunID string

	// ThreadID is the thread of the run, empty for runs without checkpointing
	ThreadID string

	// NodeName is the name of the node being executed
	NodeName string

	// Event is the final event of the span: complete, error or interrupt.
	// It is NodeEventStart while the node is still running.
	Event NodeEvent

	// StartTime is when this span began
	StartTime time.Time

	// EndTime is when this span completed (zero for ongoing spans)
	EndTime time.Time

	// Duration is the total time taken (calculated when span ends)
	Duration time.Duration

	// StateVersion is the state version once the span ended
	StateVersion int

	// Error contains any error that occurred during execution
	Error error
}

// TraceHook defines the interface for trace event handlers
type TraceHook interface {
	// OnSpan is called when a span starts and again when it ends
	OnSpan(ctx context.Context, span TraceSpan)
}

// TraceHookFunc is a function adapter for TraceHook
type TraceHookFunc func(ctx context.Context, span TraceSpan)

// OnSpan implements the TraceHook interface
func (f TraceHookFunc) OnSpan(ctx context.Context, span TraceSpan) {
	f(ctx, span)
}

// Tracer is a Listener that records a span per node execution. Register it in
// RunnerConfig.Listeners. It is safe to share between runners.
type Tracer struct {
	mu    sync.Mutex
	hooks []TraceHook
	spans []*TraceSpan
	open  map[string]*TraceSpan
}

// NewTracer creates a new tracer instance
func NewTracer() *Tracer {
	return &Tracer{
		open: make(map[string]*TraceSpan),
	}
}

// AddHook registers a new trace hook
func (t *Tracer) AddHook(hook TraceHook) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.hooks = append(t.hooks, hook)
}

func spanKey(ctx context.Context, nodeName string) string {
	return RunID(ctx) + "/" + nodeName
}

// OnNodeEvent implements the Listener interface
func (t *Tracer) OnNodeEvent(ctx context.Context, event NodeEvent, nodeName string, state State, err error) {
	t.mu.Lock()
	var span *TraceSpan
	key := spanKey(ctx, nodeName)

	if event == NodeEventStart {
		span = &TraceSpan{
			ID:           uuid.NewString(),
			RunID:        RunID(ctx),
			ThreadID:     ThreadID(ctx),
			NodeName:     nodeName,
			Event:        NodeEventStart,
			StartTime:    time.Now(),
			StateVersion: state.Version(),
		}
		t.spans = append(t.spans, span)
		t.open[key] = span
	} else {
		span = t.open[key]
		if span == nil {
			t.mu.Unlock()
			return
		}
		delete(t.open, key)
		span.Event = event
		span.EndTime = time.Now()
		span.Duration = span.EndTime.Sub(span.StartTime)
		span.StateVersion = state.Version()
		span.Error = err
	}

	snapshot := *span
	hooks := slices.Clone(t.hooks)
	t.mu.Unlock()

	for _, hook := range hooks {
		hook.OnSpan(ctx, snapshot)
	}
}

// Spans returns copies of all recorded spans in start order.
func (t *Tracer) Spans() []TraceSpan {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]TraceSpan, len(t.spans))
	for i, s := range t.spans {
		out[i] = *s
	}
	return out
}

// Clear removes all collected spans
func (t *Tracer) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.spans = nil
	t.open = make(map[string]*TraceSpan)
}

package graph

import (
	"context"

	"github.com/smallnest/nodegraph/log"
)

// NodeEvent represents different types of node events
type NodeEvent string

const (
	// NodeEventStart indicates a node has started execution
	NodeEventStart NodeEvent = "start"

	// NodeEventComplete indicates a node has completed successfully
	NodeEventComplete NodeEvent = "complete"

	// NodeEventError indicates a node encountered an error
	NodeEventError NodeEvent = "error"

	// NodeEventInterrupt indicates a node called Interrupt and the run halted
	NodeEventInterrupt NodeEvent = "interrupt"
)

// Listener defines the interface for node event listeners.
// For NodeEventComplete, state is the state after the node's update was merged;
// for the other events it is the state the node was given.
type Listener interface {
	// OnNodeEvent is called when a node event occurs
	OnNodeEvent(ctx context.Context, event NodeEvent, nodeName string, state State, err error)
}

// ListenerFunc is a function adapter for Listener
type ListenerFunc func(ctx context.Context, event NodeEvent, nodeName string, state State, err error)

// OnNodeEvent implements the Listener interface
func (f ListenerFunc) OnNodeEvent(ctx context.Context, event NodeEvent, nodeName string, state State, err error) {
	f(ctx, event, nodeName, state, err)
}

// notifyListeners calls every listener in order. A panicking listener is
// logged and does not affect the run or the other listeners.
func notifyListeners(ctx context.Context, logger log.Logger, listeners []Listener, event NodeEvent, nodeName string, state State, err error) {
	for _, l := range listeners {
		func() {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("listener panicked on %s event for node %s: %v", event, nodeName, r)
				}
			}()
			l.OnNodeEvent(ctx, event, nodeName, state, err)
		}()
	}
}

// LoggingListener writes node events to a log.Logger.
type LoggingListener struct {
	logger       log.Logger
	includeState bool
}

// NewLoggingListener creates a listener logging through logger.
func NewLoggingListener(logger log.Logger) *LoggingListener {
	return &LoggingListener{logger: log.OrNoOp(logger)}
}

// WithState makes the listener include the state in completion messages.
func (l *LoggingListener) WithState(enabled bool) *LoggingListener {
	l.includeState = enabled
	return l
}

// OnNodeEvent implements the Listener interface
func (l *LoggingListener) OnNodeEvent(ctx context.Context, event NodeEvent, nodeName string, state State, err error) {
	thread := ThreadID(ctx)
	switch event {
	case NodeEventStart:
		l.logger.Debug("[thread %s] node %s started", thread, nodeName)
	case NodeEventComplete:
		if l.includeState {
			l.logger.Info("[thread %s] node %s completed, state v%d %s", thread, nodeName, state.Version(), state)
		} else {
			l.logger.Info("[thread %s] node %s completed", thread, nodeName)
		}
	case NodeEventInterrupt:
		l.logger.Warn("[thread %s] node %s interrupted: %v", thread, nodeName, err)
	case NodeEventError:
		l.logger.Error("[thread %s] node %s failed: %v", thread, nodeName, err)
	}
}

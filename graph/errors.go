package graph

import (
	"errors"
	"fmt"
	"strings"
)

// ErrRecursionLimit is returned (wrapped) when a single call executes more
// nodes than RunnerConfig.RecursionLimit allows.
var ErrRecursionLimit = errors.New("recursion limit reached")

// DuplicateNodeError is returned by AddNode when the name is already registered.
type DuplicateNodeError struct {
	Node string
}

func (e *DuplicateNodeError) Error() string {
	return fmt.Sprintf("node %q already exists", e.Node)
}

// UnknownNodeError is returned when an operation names a node that is not registered.
type UnknownNodeError struct {
	Node string
	// Op is the operation that referenced the node, e.g. "add_edge".
	Op string
}

func (e *UnknownNodeError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("unknown node %q", e.Node)
	}
	return fmt.Sprintf("%s: unknown node %q", e.Op, e.Node)
}

// GraphValidationError lists every problem found while building or compiling a graph.
type GraphValidationError struct {
	Problems []string
}

func (e *GraphValidationError) Error() string {
	return "graph validation failed: " + strings.Join(e.Problems, "; ")
}

// InvalidRouteError is returned when a router or a Goto command names a node
// the graph does not allow from the current node. The failing step is not committed.
type InvalidRouteError struct {
	From   string
	Target string
	// Declared lists the targets that were allowed.
	Declared []string
}

func (e *InvalidRouteError) Error() string {
	return fmt.Sprintf("invalid route from %q to %q (allowed: %s)",
		e.From, e.Target, strings.Join(e.Declared, ", "))
}

// NoCheckpointError is returned when a thread has nothing to resume or inspect.
type NoCheckpointError struct {
	ThreadID string
	Reason   string
	Err      error
}

func (e *NoCheckpointError) Error() string {
	reason := e.Reason
	if reason == "" && e.Err != nil {
		reason = e.Err.Error()
	}
	return fmt.Sprintf("no resumable checkpoint for thread %q: %s", e.ThreadID, reason)
}

func (e *NoCheckpointError) Unwrap() error {
	return e.Err
}

// NodeError wraps an error returned by a node function.
type NodeError struct {
	Node string
	Err  error
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("node %s: %v", e.Node, e.Err)
}

func (e *NodeError) Unwrap() error {
	return e.Err
}

// NodeInterrupt is returned when a node requests an interrupt (e.g. waiting for human input).
type NodeInterrupt struct {
	// Node is the name of the node that triggered the interrupt
	Node string
	// Value is the data/query provided by the interrupt
	Value any
}

func (e *NodeInterrupt) Error() string {
	return fmt.Sprintf("interrupt at node %s: %v", e.Node, e.Value)
}

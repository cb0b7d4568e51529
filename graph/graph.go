package graph

import (
	"context"
	"fmt"

	"github.com/smallnest/nodegraph/store"
)

// END is a special constant used to represent the end node in the graph.
const END = store.End

// NodeFunc is the function run by a node. It receives the current state and
// returns a Command describing the update to apply and where to go next.
type NodeFunc func(ctx context.Context, state State) (Command, error)

// Router picks the next node after a node with a conditional edge completes.
// It sees the state with the node's update already merged.
type Router func(ctx context.Context, state State) string

// Node represents a node in the graph.
type Node struct {
	// Name is the unique identifier for the node.
	Name string

	// Description describes the functionality of the node.
	Description string

	// Function is the function associated with the node.
	Function NodeFunc
}

// Edge represents an edge in the graph.
type Edge struct {
	// From is the name of the node from which the edge originates.
	From string

	// To is the name of the node to which the edge points.
	To string
}

// ConditionalEdge leaves From through a Router restricted to Targets.
// An empty Targets list allows any registered node.
type ConditionalEdge struct {
	From    string
	Router  Router
	Targets []string
}

// CommandKind tags the variant held by a Command.
type CommandKind int

const (
	// CommandUpdate merges Update and follows the node's outgoing edge.
	CommandUpdate CommandKind = iota
	// CommandGoto merges Update and continues at Goto, ignoring outgoing edges.
	CommandGoto
	// CommandComplete merges Update and ends the run.
	CommandComplete
)

func (k CommandKind) String() string {
	switch k {
	case CommandUpdate:
		return "update"
	case CommandGoto:
		return "goto"
	case CommandComplete:
		return "complete"
	default:
		return fmt.Sprintf("CommandKind(%d)", int(k))
	}
}

// Command is the value returned by a node. The zero Command is an empty update.
type Command struct {
	Kind   CommandKind
	Update map[string]any
	Goto   string
}

// Update returns a command that merges values and follows the outgoing edge.
func Update(values map[string]any) Command {
	return Command{Kind: CommandUpdate, Update: values}
}

// Goto returns a command that merges values and continues at next.
// Goto(END, values) is equivalent to Complete(values).
func Goto(next string, values map[string]any) Command {
	return Command{Kind: CommandGoto, Update: values, Goto: next}
}

// Complete returns a command that merges values and ends the run.
func Complete(values map[string]any) Command {
	return Command{Kind: CommandComplete, Update: values}
}

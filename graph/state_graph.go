package graph

import (
	"context"
	"fmt"
	"maps"
	"slices"
)

// StateGraph builds a graph of named nodes over a shared key/value State.
// It is a builder: configure it, then call Compile.
type StateGraph struct {
	// nodes is a map of node names to their corresponding Node objects
	nodes map[string]Node

	// order keeps node registration order for error messages
	order []string

	// edges holds the fixed edges, in insertion order
	edges []Edge

	// conditionalEdges holds the routers, in insertion order
	conditionalEdges []ConditionalEdge

	// entryPoint is the name of the entry point node in the graph
	entryPoint string

	// interruptBefore holds the nodes execution halts in front of
	interruptBefore map[string]bool

	// reducers merge specific state keys instead of overwriting them
	reducers map[string]Reducer
}

// NewStateGraph creates a new, empty StateGraph.
func NewStateGraph() *StateGraph {
	return &StateGraph{
		nodes:           make(map[string]Node),
		interruptBefore: make(map[string]bool),
		reducers:        make(map[string]Reducer),
	}
}

// AddNode adds a new node to the state graph with the given name, description and function.
func (g *StateGraph) AddNode(name string, description string, fn NodeFunc) error {
	if name == "" || name == END {
		return &GraphValidationError{Problems: []string{fmt.Sprintf("node name %q is reserved", name)}}
	}
	if fn == nil {
		return &GraphValidationError{Problems: []string{fmt.Sprintf("node %q has no function", name)}}
	}
	if _, ok := g.nodes[name]; ok {
		return &DuplicateNodeError{Node: name}
	}
	g.nodes[name] = Node{
		Name:        name,
		Description: description,
		Function:    fn,
	}
	g.order = append(g.order, name)
	return nil
}

// AddEdge adds a new edge to the state graph between the "from" and "to" nodes.
// The target is checked by Compile, so edges may point to nodes added later.
func (g *StateGraph) AddEdge(from, to string) error {
	if _, ok := g.nodes[from]; !ok {
		return &UnknownNodeError{Node: from, Op: "add_edge"}
	}
	g.edges = append(g.edges, Edge{From: from, To: to})
	return nil
}

// AddConditionalEdge adds a conditional edge where the target node is determined at runtime.
// The router must return one of targets or END; with no targets it may return any node.
func (g *StateGraph) AddConditionalEdge(from string, router Router, targets ...string) error {
	if _, ok := g.nodes[from]; !ok {
		return &UnknownNodeError{Node: from, Op: "add_conditional_edge"}
	}
	if router == nil {
		return &GraphValidationError{Problems: []string{fmt.Sprintf("conditional edge from %q has no router", from)}}
	}
	g.conditionalEdges = append(g.conditionalEdges, ConditionalEdge{
		From:    from,
		Router:  router,
		Targets: slices.Clone(targets),
	})
	return nil
}

// SetEntryPoint sets the entry point node name for the state graph.
func (g *StateGraph) SetEntryPoint(name string) error {
	if _, ok := g.nodes[name]; !ok {
		return &UnknownNodeError{Node: name, Op: "set_entry_point"}
	}
	g.entryPoint = name
	return nil
}

// MarkInterruptBefore makes execution halt before any of the named nodes runs.
func (g *StateGraph) MarkInterruptBefore(names ...string) error {
	for _, name := range names {
		if _, ok := g.nodes[name]; !ok {
			return &UnknownNodeError{Node: name, Op: "mark_interrupt_before"}
		}
	}
	for _, name := range names {
		g.interruptBefore[name] = true
	}
	return nil
}

// AddReducer sets the merge policy for one state key.
func (g *StateGraph) AddReducer(key string, reducer Reducer) {
	g.reducers[key] = reducer
}

// Compile validates the graph and returns an immutable CompiledGraph.
// All problems are reported together in a GraphValidationError.
func (g *StateGraph) Compile() (*CompiledGraph, error) {
	var problems []string

	if g.entryPoint == "" {
		problems = append(problems, "entry point not set")
	}

	outgoing := make(map[string]int)
	for _, e := range g.edges {
		outgoing[e.From]++
		if !g.isTarget(e.To) {
			problems = append(problems, fmt.Sprintf("edge %s -> %s: unknown target", e.From, e.To))
		}
	}
	for _, ce := range g.conditionalEdges {
		outgoing[ce.From]++
		for _, t := range ce.Targets {
			if !g.isTarget(t) {
				problems = append(problems, fmt.Sprintf("conditional edge from %s: unknown target %s", ce.From, t))
			}
		}
	}
	for _, name := range g.order {
		if n := outgoing[name]; n > 1 {
			problems = append(problems, fmt.Sprintf("node %s has %d outgoing edges, want at most one", name, n))
		}
	}

	if len(problems) > 0 {
		return nil, &GraphValidationError{Problems: problems}
	}

	cg := &CompiledGraph{
		nodes:           maps.Clone(g.nodes),
		edges:           make(map[string]string, len(g.edges)),
		routers:         make(map[string]ConditionalEdge, len(g.conditionalEdges)),
		entryPoint:      g.entryPoint,
		interruptBefore: maps.Clone(g.interruptBefore),
		reducers:        maps.Clone(g.reducers),
	}
	for _, e := range g.edges {
		cg.edges[e.From] = e.To
	}
	for _, ce := range g.conditionalEdges {
		ce.Targets = slices.Clone(ce.Targets)
		cg.routers[ce.From] = ce
	}
	return cg, nil
}

func (g *StateGraph) isTarget(name string) bool {
	if name == END {
		return true
	}
	_, ok := g.nodes[name]
	return ok
}

// CompiledGraph is a validated graph. It is safe for concurrent use and shared
// by every Runner built from it.
type CompiledGraph struct {
	nodes           map[string]Node
	edges           map[string]string
	routers         map[string]ConditionalEdge
	entryPoint      string
	interruptBefore map[string]bool
	reducers        map[string]Reducer
}

// EntryPoint returns the first node of every fresh run.
func (cg *CompiledGraph) EntryPoint() string {
	return cg.entryPoint
}

// Node returns the node registered under name.
func (cg *CompiledGraph) Node(name string) (Node, bool) {
	n, ok := cg.nodes[name]
	return n, ok
}

// NodeNames returns all node names, sorted.
func (cg *CompiledGraph) NodeNames() []string {
	return slices.Sorted(maps.Keys(cg.nodes))
}

// Edges returns the fixed edges, sorted by source.
func (cg *CompiledGraph) Edges() []Edge {
	out := make([]Edge, 0, len(cg.edges))
	for _, from := range slices.Sorted(maps.Keys(cg.edges)) {
		out = append(out, Edge{From: from, To: cg.edges[from]})
	}
	return out
}

// ConditionalEdges returns the conditional edges, sorted by source.
func (cg *CompiledGraph) ConditionalEdges() []ConditionalEdge {
	out := make([]ConditionalEdge, 0, len(cg.routers))
	for _, from := range slices.Sorted(maps.Keys(cg.routers)) {
		ce := cg.routers[from]
		ce.Targets = slices.Clone(ce.Targets)
		out = append(out, ce)
	}
	return out
}

// InterruptBefore returns the interrupt-before nodes, sorted.
func (cg *CompiledGraph) InterruptBefore() []string {
	return slices.Sorted(maps.Keys(cg.interruptBefore))
}

// IsInterruptBefore reports whether execution halts before name.
func (cg *CompiledGraph) IsInterruptBefore(name string) bool {
	return cg.interruptBefore[name]
}

func (cg *CompiledGraph) hasNode(name string) bool {
	_, ok := cg.nodes[name]
	return ok
}

// next resolves the node that follows from after it returned cmd. state is
// the state with cmd's update already merged.
func (cg *CompiledGraph) next(ctx context.Context, from string, cmd Command, state State) (string, error) {
	switch cmd.Kind {
	case CommandComplete:
		return END, nil

	case CommandGoto:
		if cmd.Goto == END || cg.hasNode(cmd.Goto) {
			return cmd.Goto, nil
		}
		return "", &InvalidRouteError{From: from, Target: cmd.Goto, Declared: cg.NodeNames()}

	case CommandUpdate:
	default:
		return "", fmt.Errorf("node %s returned unknown command kind %d", from, int(cmd.Kind))
	}

	if to, ok := cg.edges[from]; ok {
		return to, nil
	}

	ce, ok := cg.routers[from]
	if !ok {
		return END, nil
	}

	target := ce.Router(ctx, state)
	if target == END {
		return END, nil
	}
	if len(ce.Targets) == 0 {
		if cg.hasNode(target) {
			return target, nil
		}
		return "", &InvalidRouteError{From: from, Target: target, Declared: cg.NodeNames()}
	}
	if slices.Contains(ce.Targets, target) {
		return target, nil
	}
	return "", &InvalidRouteError{From: from, Target: target, Declared: slices.Clone(ce.Targets)}
}

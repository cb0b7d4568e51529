package graph

import (
	"fmt"
	"strings"
)

// MermaidOptions defines configuration for Mermaid diagram generation
type MermaidOptions struct {
	// Direction of the flowchart (e.g., "TD", "LR")
	Direction string
}

// DrawMermaid generates a Mermaid diagram representation of the graph
func (cg *CompiledGraph) DrawMermaid() string {
	return cg.DrawMermaidWithOptions(MermaidOptions{
		Direction: "TD",
	})
}

// DrawMermaidWithOptions generates a Mermaid diagram with custom options.
// Fixed edges are solid, router targets dashed, and interrupt-before nodes
// are drawn in orange.
func (cg *CompiledGraph) DrawMermaidWithOptions(opts MermaidOptions) string {
	var sb strings.Builder

	direction := opts.Direction
	if direction == "" {
		direction = "TD"
	}
	fmt.Fprintf(&sb, "flowchart %s\n", direction)

	sb.WriteString("    START([\"START\"])\n")
	for _, name := range cg.NodeNames() {
		fmt.Fprintf(&sb, "    %s[\"%s\"]\n", name, name)
	}
	sb.WriteString("    END([\"END\"])\n")

	fmt.Fprintf(&sb, "    START --> %s\n", cg.entryPoint)
	for _, e := range cg.Edges() {
		fmt.Fprintf(&sb, "    %s --> %s\n", e.From, e.To)
	}
	for _, ce := range cg.ConditionalEdges() {
		if len(ce.Targets) == 0 {
			fmt.Fprintf(&sb, "    %s -.-> %s_route((?))\n", ce.From, ce.From)
			continue
		}
		for _, t := range ce.Targets {
			fmt.Fprintf(&sb, "    %s -.-> %s\n", ce.From, t)
		}
	}

	sb.WriteString("    style START fill:#90EE90\n")
	sb.WriteString("    style END fill:#FFB6C1\n")
	fmt.Fprintf(&sb, "    style %s fill:#87CEEB\n", cg.entryPoint)
	for _, name := range cg.InterruptBefore() {
		fmt.Fprintf(&sb, "    style %s fill:#FFD580,stroke:#333,stroke-dasharray: 5 5\n", name)
	}

	return sb.String()
}

// DrawDOT generates a DOT (Graphviz) representation of the graph
func (cg *CompiledGraph) DrawDOT() string {
	var sb strings.Builder

	sb.WriteString("digraph G {\n")
	sb.WriteString("    rankdir=TD;\n")
	sb.WriteString("    node [shape=box];\n")
	sb.WriteString("    START [label=\"START\", shape=ellipse, style=filled, fillcolor=lightgreen];\n")
	sb.WriteString("    END [label=\"END\", shape=ellipse, style=filled, fillcolor=pink];\n")

	for _, name := range cg.NodeNames() {
		switch {
		case name == cg.entryPoint:
			fmt.Fprintf(&sb, "    %s [style=filled, fillcolor=lightblue];\n", name)
		case cg.interruptBefore[name]:
			fmt.Fprintf(&sb, "    %s [style=\"filled,dashed\", fillcolor=orange];\n", name)
		default:
			fmt.Fprintf(&sb, "    %s;\n", name)
		}
	}

	fmt.Fprintf(&sb, "    START -> %s;\n", cg.entryPoint)
	for _, e := range cg.Edges() {
		fmt.Fprintf(&sb, "    %s -> %s;\n", e.From, e.To)
	}
	for _, ce := range cg.ConditionalEdges() {
		for _, t := range ce.Targets {
			fmt.Fprintf(&sb, "    %s -> %s [style=dashed];\n", ce.From, t)
		}
	}

	sb.WriteString("}\n")
	return sb.String()
}

package main

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/smallnest/nodegraph/graph"
)

const (
	demoBranch  = "branch"
	demoApprove = "approve"
)

// demo is a graph shipped with graphctl.
type demo struct {
	name  string
	build func() (*graph.CompiledGraph, error)
}

var demos = map[string]demo{
	demoBranch:  {name: demoBranch, build: branchGraph},
	demoApprove: {name: demoApprove, build: approvalGraph},
}

// branchGraph asks, in node_b, whether to continue with node_c or node_d.
// The answer is supplied with "branch resume <thread> C|D".
func branchGraph() (*graph.CompiledGraph, error) {
	g := graph.NewStateGraph()

	nodes := []struct {
		name string
		desc string
		fn   graph.NodeFunc
	}{
		{"node_a", "append a", func(_ context.Context, s graph.State) (graph.Command, error) {
			return graph.Goto("node_b", map[string]any{"value": s.GetString("value") + "a"}), nil
		}},
		{"node_b", "ask for the next node", func(ctx context.Context, s graph.State) (graph.Command, error) {
			answer, err := graph.Interrupt(ctx, "Do you want to go to C or D? Type C/D")
			if err != nil {
				return graph.Command{}, err
			}
			update := map[string]any{"value": s.GetString("value") + "b"}
			switch strings.ToUpper(fmt.Sprint(answer)) {
			case "C":
				return graph.Goto("node_c", update), nil
			case "D":
				return graph.Goto("node_d", update), nil
			default:
				return graph.Command{}, fmt.Errorf("answer must be C or D, got %v", answer)
			}
		}},
		{"node_c", "append c", func(_ context.Context, s graph.State) (graph.Command, error) {
			return graph.Complete(map[string]any{"value": s.GetString("value") + "c"}), nil
		}},
		{"node_d", "append d", func(_ context.Context, s graph.State) (graph.Command, error) {
			return graph.Complete(map[string]any{"value": s.GetString("value") + "d"}), nil
		}},
	}
	for _, n := range nodes {
		if err := g.AddNode(n.name, n.desc, n.fn); err != nil {
			return nil, err
		}
	}
	if err := g.SetEntryPoint("node_a"); err != nil {
		return nil, err
	}
	return g.Compile()
}

// Messages are stored as []any of map[string]any so that they survive every
// checkpoint backend unchanged.
func message(role, content, toolCall string) map[string]any {
	m := map[string]any{"role": role, "content": content}
	if toolCall != "" {
		m["tool_call"] = toolCall
	}
	return m
}

func lastMessage(s graph.State) map[string]any {
	v, _ := s.Get("messages")
	msgs, _ := v.([]any)
	if len(msgs) == 0 {
		return nil
	}
	m, _ := msgs[len(msgs)-1].(map[string]any)
	return m
}

func field(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

// approvalGraph is a model/tools loop that halts before every tool call so a
// human can approve it. The model is a deterministic stand-in: it requests a
// search for a user question and answers from the tool result.
func approvalGraph() (*graph.CompiledGraph, error) {
	g := graph.NewStateGraph()
	g.AddReducer("messages", graph.AppendReducer)

	model := func(_ context.Context, s graph.State) (graph.Command, error) {
		last := lastMessage(s)
		var reply map[string]any
		switch field(last, "role") {
		case "user":
			reply = message("assistant", "", "search: "+field(last, "content"))
		case "tool":
			reply = message("assistant", "Based on the search: "+field(last, "content"), "")
		default:
			reply = message("assistant", "How can I help?", "")
		}
		return graph.Update(map[string]any{"messages": []any{reply}}), nil
	}

	tools := func(_ context.Context, s graph.State) (graph.Command, error) {
		call := field(lastMessage(s), "tool_call")
		query, ok := strings.CutPrefix(call, "search: ")
		if !ok {
			return graph.Command{}, fmt.Errorf("unsupported tool call %q", call)
		}
		result := fmt.Sprintf("no live data available for %q", query)
		return graph.Update(map[string]any{"messages": []any{message("tool", result, "")}}), nil
	}

	toolsRouter := func(_ context.Context, s graph.State) string {
		if field(lastMessage(s), "tool_call") != "" {
			return "tools"
		}
		return graph.END
	}

	if err := g.AddNode("model", "stand-in chat model", model); err != nil {
		return nil, err
	}
	if err := g.AddNode("tools", "search tool", tools); err != nil {
		return nil, err
	}
	if err := g.SetEntryPoint("model"); err != nil {
		return nil, err
	}
	if err := g.AddConditionalEdge("model", toolsRouter, "tools", graph.END); err != nil {
		return nil, err
	}
	if err := g.AddEdge("tools", "model"); err != nil {
		return nil, err
	}
	if err := g.MarkInterruptBefore("tools"); err != nil {
		return nil, err
	}
	return g.Compile()
}

func demoNames() []string {
	names := make([]string, 0, len(demos))
	for name := range demos {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

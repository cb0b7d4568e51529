package main

import (
	"context"
	"testing"

	"github.com/smallnest/nodegraph/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBranchGraph(t *testing.T) {
	ctx := context.Background()
	cg, err := branchGraph()
	require.NoError(t, err)
	r := graph.NewRunner(cg, graph.RunnerConfig{})

	res, err := r.Invoke(ctx, "1", graph.NewState(map[string]any{"value": ""}))
	require.NoError(t, err)
	assert.Equal(t, "node_b", res.PendingNode)

	res, err = r.Resume(ctx, "1", "C")
	require.NoError(t, err)
	assert.Equal(t, "abc", res.State.GetString("value"))
}

func TestApprovalGraph(t *testing.T) {
	ctx := context.Background()
	cg, err := approvalGraph()
	require.NoError(t, err)
	r := graph.NewRunner(cg, graph.RunnerConfig{})

	res, err := r.Invoke(ctx, "1", graph.NewState(map[string]any{
		"messages": []any{message("user", "weather?", "")},
	}))
	require.NoError(t, err)
	assert.Equal(t, graph.StatusInterrupted, res.Status)
	assert.Equal(t, "tools", res.PendingNode)
	assert.Equal(t, "search: weather?", field(lastMessage(res.State), "tool_call"))

	res, err = r.Resume(ctx, "1", nil)
	require.NoError(t, err)
	assert.Equal(t, graph.StatusCompleted, res.Status)
	assert.Equal(t, 2, res.Steps)

	v, _ := res.State.Get("messages")
	msgs := v.([]any)
	require.Len(t, msgs, 4)
	assert.Equal(t, "tool", field(msgs[2].(map[string]any), "role"))
	assert.Equal(t, `Based on the search: no live data available for "weather?"`, field(msgs[3].(map[string]any), "content"))
}

func TestDemoNames(t *testing.T) {
	assert.Equal(t, []string{"approve", "branch"}, demoNames())
}

package report

import (
	"context"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/smallnest/nodegraph/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func approvalGraph(t *testing.T) *graph.CompiledGraph {
	t.Helper()
	g := graph.NewStateGraph()
	require.NoError(t, g.AddNode("draft", "write a draft", func(_ context.Context, s graph.State) (graph.Command, error) {
		return graph.Update(map[string]any{"draft": "v1 | final"}), nil
	}))
	require.NoError(t, g.AddNode("review", "human review", func(ctx context.Context, s graph.State) (graph.Command, error) {
		ok, err := graph.Interrupt(ctx, "Approve the draft?")
		if err != nil {
			return graph.Command{}, err
		}
		return graph.Complete(map[string]any{"approved": ok}), nil
	}))
	require.NoError(t, g.AddEdge("draft", "review"))
	require.NoError(t, g.SetEntryPoint("draft"))
	require.NoError(t, g.MarkInterruptBefore("draft"))
	cg, err := g.Compile()
	require.NoError(t, err)
	return cg
}

func interruptedThread(t *testing.T, cg *graph.CompiledGraph, initial map[string]any) *graph.ThreadState {
	t.Helper()
	ctx := context.Background()
	r := graph.NewRunner(cg, graph.RunnerConfig{})

	_, err := r.Invoke(ctx, "t-1", graph.NewState(initial))
	require.NoError(t, err)
	_, err = r.Resume(ctx, "t-1", nil)
	require.NoError(t, err)

	ts, err := r.GetState(ctx, "t-1")
	require.NoError(t, err)
	return ts
}

func TestMarkdown(t *testing.T) {
	cg := approvalGraph(t)
	ts := interruptedThread(t, cg, map[string]any{"topic": "release"})

	md := Markdown(cg, ts)
	assert.Contains(t, md, "# Thread t-1")
	assert.Contains(t, md, "- **Status:** interrupted")
	assert.Contains(t, md, "- **Pending node:** review")
	assert.Contains(t, md, "> Approve the draft?")
	assert.Contains(t, md, `| draft | v1 \| final |`)
	assert.Contains(t, md, "| draft | write a draft | yes |")
	assert.Contains(t, md, "```mermaid\nflowchart TD\n")

	graphOnly := Markdown(cg, nil)
	assert.True(t, strings.HasPrefix(graphOnly, "# Graph\n"))
	assert.NotContains(t, graphOnly, "## State")
}

func TestHTML(t *testing.T) {
	cg := approvalGraph(t)
	ts := interruptedThread(t, cg, map[string]any{
		"topic": "release",
		"note":  `<script>alert("x")</script><b onclick="steal()">bold</b>`,
	})

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(HTML(cg, ts)))
	require.NoError(t, err)

	assert.Equal(t, "Thread t-1", strings.TrimSpace(doc.Find("h1").First().Text()))
	assert.Contains(t, doc.Find("blockquote").Text(), "Approve the draft?")
	assert.Equal(t, 2, doc.Find("table").Length())

	var keys []string
	doc.Find("table").First().Find("tbody tr").Each(func(_ int, row *goquery.Selection) {
		keys = append(keys, strings.TrimSpace(row.Find("td").First().Text()))
	})
	assert.Equal(t, []string{"draft", "note", "topic"}, keys)

	assert.Zero(t, doc.Find("script").Length())
	assert.Zero(t, doc.Find("[onclick]").Length())
	assert.Contains(t, doc.Find("pre code").Text(), "START --> draft")
}

func TestPage(t *testing.T) {
	cg := approvalGraph(t)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(Page(cg, nil)))
	require.NoError(t, err)
	assert.Equal(t, "graph", doc.Find("title").Text())
	assert.Equal(t, "Graph", strings.TrimSpace(doc.Find("h1").Text()))

	var nodes []string
	doc.Find("table tbody tr").Each(func(_ int, row *goquery.Selection) {
		nodes = append(nodes, strings.TrimSpace(row.Find("td").First().Text()))
	})
	assert.Equal(t, []string{"draft", "review"}, nodes)
}

func TestMarkdown_NodeNameIsEscaped(t *testing.T) {
	g := graph.NewStateGraph()
	require.NoError(t, g.AddNode("load|store", "multi\nline", func(context.Context, graph.State) (graph.Command, error) {
		return graph.Complete(nil), nil
	}))
	require.NoError(t, g.SetEntryPoint("load|store"))
	cg, err := g.Compile()
	require.NoError(t, err)

	md := Markdown(cg, nil)
	assert.Contains(t, md, `| load\|store | multi line |  |`)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(HTML(cg, nil)))
	require.NoError(t, err)
	rows := doc.Find("table tbody tr")
	require.Equal(t, 1, rows.Length())
	assert.Equal(t, 3, rows.First().Find("td").Length())
}

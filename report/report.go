// Package report renders a graph and the checkpoint of one of its threads as
// Markdown or sanitized HTML.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/microcosm-cc/bluemonday"
	"github.com/smallnest/nodegraph/graph"
)

// Markdown describes cg and, when ts is not nil, the thread state ts.
func Markdown(cg *graph.CompiledGraph, ts *graph.ThreadState) string {
	var sb strings.Builder

	if ts != nil {
		fmt.Fprintf(&sb, "# Thread %s\n\n", ts.ThreadID)
		fmt.Fprintf(&sb, "- **Status:** %s\n", ts.Status)
		fmt.Fprintf(&sb, "- **Pending node:** %s\n", ts.PendingNode)
		fmt.Fprintf(&sb, "- **Step:** %d\n", ts.Step)
		fmt.Fprintf(&sb, "- **State version:** %d\n", ts.State.Version())
		if !ts.UpdatedAt.IsZero() {
			fmt.Fprintf(&sb, "- **Updated:** %s\n", ts.UpdatedAt.Format(time.RFC3339))
		}
		sb.WriteString("\n")

		if ts.InterruptValue != nil {
			sb.WriteString("## Interrupt\n\n")
			fmt.Fprintf(&sb, "> %s\n\n", cell(ts.InterruptValue))
		}

		sb.WriteString("## State\n\n")
		if ts.State.Len() == 0 {
			sb.WriteString("_empty_\n\n")
		} else {
			sb.WriteString("| Key | Value |\n|---|---|\n")
			values := ts.State.Values()
			for _, k := range ts.State.Keys() {
				fmt.Fprintf(&sb, "| %s | %s |\n", cell(k), cell(values[k]))
			}
			sb.WriteString("\n")
		}
	} else {
		sb.WriteString("# Graph\n\n")
	}

	sb.WriteString("## Nodes\n\n| Node | Description | Interrupt before |\n|---|---|---|\n")
	for _, name := range cg.NodeNames() {
		node, _ := cg.Node(name)
		interrupt := ""
		if cg.IsInterruptBefore(name) {
			interrupt = "yes"
		}
		fmt.Fprintf(&sb, "| %s | %s | %s |\n", cell(name), cell(node.Description), interrupt)
	}

	sb.WriteString("\n## Graph\n\n```mermaid\n")
	sb.WriteString(cg.DrawMermaid())
	sb.WriteString("```\n")

	return sb.String()
}

// HTML renders Markdown(cg, ts) to an HTML fragment. The output is sanitized,
// so state values cannot inject markup.
func HTML(cg *graph.CompiledGraph, ts *graph.ThreadState) string {
	return string(render([]byte(Markdown(cg, ts))))
}

// Page wraps HTML(cg, ts) in a standalone document.
func Page(cg *graph.CompiledGraph, ts *graph.ThreadState) string {
	title := "graph"
	if ts != nil {
		title = "thread " + ts.ThreadID
	}
	var sb strings.Builder
	sb.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n")
	fmt.Fprintf(&sb, "<title>%s</title>\n", bluemonday.StrictPolicy().Sanitize(title))
	sb.WriteString("</head>\n<body>\n")
	sb.WriteString(HTML(cg, ts))
	sb.WriteString("</body>\n</html>\n")
	return sb.String()
}

func render(md []byte) []byte {
	extensions := parser.CommonExtensions | parser.AutoHeadingIDs
	p := parser.NewWithExtensions(extensions)
	doc := p.Parse(md)

	htmlFlags := html.CommonFlags | html.HrefTargetBlank
	renderer := html.NewRenderer(html.RendererOptions{Flags: htmlFlags})

	return bluemonday.UGCPolicy().SanitizeBytes(markdown.Render(doc, renderer))
}

// cell formats v for a single-line Markdown table cell.
func cell(v any) string {
	s := fmt.Sprint(v)
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}

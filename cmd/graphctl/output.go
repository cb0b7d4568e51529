package main

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/smallnest/nodegraph/graph"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Width(14)
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Italic(true)
	boxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

func statusStyle(s graph.RunStatus) lipgloss.Style {
	switch s {
	case graph.StatusCompleted:
		return okStyle
	case graph.StatusInterrupted:
		return warnStyle
	case graph.StatusStopped:
		return errStyle
	default:
		return mutedStyle
	}
}

func row(label, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(label), value)
}

func printSnapshot(w io.Writer, snap graph.Snapshot) {
	switch snap.Status {
	case graph.StatusRunning:
		fmt.Fprintf(w, "%s %s -> %s\n", titleStyle.Render(fmt.Sprintf("[%d] %s", snap.Step, snap.Node)), snap.State, snap.Next)
	case graph.StatusInterrupted:
		lines := []string{
			warnStyle.Render("interrupted"),
			row("pending", snap.Next),
			row("state", snap.State.String()),
		}
		if snap.InterruptValue != nil {
			lines = append(lines, row("question", fmt.Sprint(snap.InterruptValue)))
		}
		fmt.Fprintln(w, boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...)))
	case graph.StatusCompleted:
		fmt.Fprintln(w, boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
			okStyle.Render("completed"),
			row("steps", fmt.Sprint(snap.Step)),
			row("state", snap.State.String()),
		)))
	}
}

func printThread(w io.Writer, ts *graph.ThreadState) {
	lines := []string{
		titleStyle.Render("thread " + ts.ThreadID),
		row("status", statusStyle(ts.Status).Render(ts.Status.String())),
		row("pending", ts.PendingNode),
		row("step", fmt.Sprint(ts.Step)),
		row("version", fmt.Sprint(ts.State.Version())),
	}
	if name, ok := ts.Metadata["graph"].(string); ok {
		lines = append(lines, row("graph", name))
	}
	if !ts.UpdatedAt.IsZero() {
		lines = append(lines, row("updated", ts.UpdatedAt.Format(time.RFC3339)))
	}
	if ts.InterruptValue != nil {
		lines = append(lines, row("question", fmt.Sprint(ts.InterruptValue)))
	}
	values := ts.State.Values()
	for _, k := range ts.State.Keys() {
		lines = append(lines, row("  "+k, fmt.Sprint(values[k])))
	}
	fmt.Fprintln(w, boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...)))
}

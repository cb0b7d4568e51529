package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/smallnest/nodegraph/config"
	"github.com/smallnest/nodegraph/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeConfig writes a YAML config keeping checkpoints in a sqlite file under dir.
func writeConfig(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "graphctl.yaml")
	content := fmt.Sprintf(`store:
  backend: sqlite
  driver: sqlite
  path: %s
log:
  level: error
`, filepath.Join(dir, "checkpoints.db"))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

type harness struct {
	t      *testing.T
	config string
}

func (h harness) run(args ...string) (string, error) {
	var out bytes.Buffer
	err := run(context.Background(), append([]string{"-config", h.config, "-env="}, args...), &out)
	return out.String(), err
}

func (h harness) mustRun(args ...string) string {
	h.t.Helper()
	out, err := h.run(args...)
	require.NoError(h.t, err, "graphctl %s", strings.Join(args, " "))
	return out
}

func newHarness(t *testing.T) (harness, string) {
	dir := t.TempDir()
	return harness{t: t, config: writeConfig(t, dir)}, dir
}

func TestBranchDemo(t *testing.T) {
	h, dir := newHarness(t)

	out := h.mustRun("branch", "start", "t1")
	assert.Contains(t, out, "node_a")
	assert.Contains(t, out, "interrupted")
	assert.Contains(t, out, "Do you want to go to C or D? Type C/D")

	assert.Equal(t, "node_b\n", h.mustRun("pending", "t1"))

	out = h.mustRun("branch", "resume", "t1", "d")
	assert.Contains(t, out, "completed")
	assert.Contains(t, out, "{value: abd}")
	assert.Equal(t, "END\n", h.mustRun("pending", "t1"))

	out = h.mustRun("show", "t1")
	assert.Contains(t, out, "thread t1")
	assert.Contains(t, out, "abd")
	assert.Contains(t, out, "branch")

	reportPath := filepath.Join(dir, "t1.html")
	h.mustRun("report", "-o", reportPath, "t1")
	page, err := os.ReadFile(reportPath)
	require.NoError(t, err)
	assert.Contains(t, string(page), "<title>thread t1</title>")
	assert.Contains(t, string(page), "node_b")

	_, err = h.run("branch", "resume", "t1", "C")
	var noCp *graph.NoCheckpointError
	assert.ErrorAs(t, err, &noCp)
}

func TestBranchDemo_InvalidAnswerKeepsThread(t *testing.T) {
	h, _ := newHarness(t)
	h.mustRun("branch", "start", "t2")

	_, err := h.run("branch", "resume", "t2", "x")
	var nodeErr *graph.NodeError
	require.ErrorAs(t, err, &nodeErr)
	assert.Equal(t, "node_b", nodeErr.Node)

	assert.Equal(t, "node_b\n", h.mustRun("pending", "t2"))
	assert.Contains(t, h.mustRun("branch", "resume", "t2", "c"), "{value: abc}")
}

func TestApproveDemo(t *testing.T) {
	h, _ := newHarness(t)

	out := h.mustRun("approve", "start", "a1", "What is the weather in Chennai?")
	assert.Contains(t, out, "interrupted")
	assert.Equal(t, "tools\n", h.mustRun("pending", "a1"))

	h.mustRun("approve", "resume", "a1")
	assert.Equal(t, "END\n", h.mustRun("pending", "a1"))

	out = h.mustRun("show", "a1")
	assert.Contains(t, out, "Based on the search")
	assert.Contains(t, out, "Chennai")
}

func TestThreadsAndDelete(t *testing.T) {
	h, _ := newHarness(t)

	assert.Contains(t, h.mustRun("threads"), "no threads")

	h.mustRun("branch", "start", "b")
	h.mustRun("approve", "start", "a", "hello")
	assert.Equal(t, "a\nb\n", h.mustRun("threads"))

	assert.Contains(t, h.mustRun("delete", "a"), "deleted a")
	assert.Equal(t, "b\n", h.mustRun("threads"))

	_, err := h.run("pending", "a")
	var noCp *graph.NoCheckpointError
	assert.ErrorAs(t, err, &noCp)
}

func TestGraphCommand(t *testing.T) {
	h, _ := newHarness(t)

	out := h.mustRun("graph", "approve")
	assert.Contains(t, out, "flowchart TD")
	assert.Contains(t, out, "model -.-> tools")
	assert.Contains(t, out, "tools --> model")

	_, err := h.run("graph", "unknown")
	assert.ErrorContains(t, err, "unknown demo")
}

func TestUsageErrors(t *testing.T) {
	h, _ := newHarness(t)

	for _, args := range [][]string{
		{},
		{"bogus"},
		{"pending"},
		{"show", "a", "b"},
		{"branch", "start"},
		{"approve", "resume"},
		{"report"},
	} {
		_, err := h.run(args...)
		assert.ErrorIs(t, err, errUsage, "args %v", args)
	}
}

func TestLoadConfig(t *testing.T) {
	cfg, err := loadConfig("", "")
	require.NoError(t, err)
	assert.Equal(t, config.BackendFile, cfg.Store.ResolvedBackend())
	assert.Equal(t, defaultStoreDir, cfg.Store.Path)

	dbPath := filepath.Join(t.TempDir(), "threads.db")
	t.Setenv("NODEGRAPH_STORE_PATH", dbPath)
	cfg, err = loadConfig("", "")
	require.NoError(t, err)
	assert.Equal(t, config.BackendSqlite, cfg.Store.ResolvedBackend())
	assert.Equal(t, dbPath, cfg.Store.Path)

	_, err = loadConfig(filepath.Join(t.TempDir(), "missing.yaml"), "")
	assert.Error(t, err)
}

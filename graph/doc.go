// Package graph provides the node-graph construction and execution engine.
//
// A graph is a set of named nodes connected by fixed edges and conditional
// edges. Each node is a NodeFunc that reads an immutable State and returns a
// Command: an Update that follows the node's outgoing edge, a Goto that jumps
// to a named node, or a Complete that ends the run. Execution is sequential;
// exactly one node runs at a time within a thread.
//
// # Building
//
// StateGraph is the builder. Compile validates it and returns a CompiledGraph:
//
//	g := graph.NewStateGraph()
//	_ = g.AddNode("a", "first step", func(ctx context.Context, s graph.State) (graph.Command, error) {
//		return graph.Update(map[string]any{"trace": s.GetString("trace") + "a"}), nil
//	})
//	_ = g.AddNode("b", "second step", func(ctx context.Context, s graph.State) (graph.Command, error) {
//		return graph.Complete(map[string]any{"trace": s.GetString("trace") + "b"}), nil
//	})
//	_ = g.AddEdge("a", "b")
//	_ = g.SetEntryPoint("a")
//	compiled, err := g.Compile()
//
// # Running
//
// A Runner executes a CompiledGraph against a store.CheckpointStore. Runs are
// keyed by a thread id: when a run halts its state and pending node are saved,
// and Resume continues from there.
//
//	runner := graph.NewRunner(compiled, graph.RunnerConfig{Store: memory.NewMemoryCheckpointStore()})
//	res, err := runner.Invoke(ctx, "thread-1", graph.NewState(nil))
//
// Stream and StreamResume return the same run as an iter.Seq2 of Snapshots,
// advancing one node per iteration.
//
// # Interrupts
//
// A run halts in two ways: before a node marked with MarkInterruptBefore, or
// inside a node that calls Interrupt. In the second case the node is executed
// again on Resume, and Interrupt then returns the resume value.
//
// # Observability
//
// Listeners receive node start, complete, error and interrupt events. Tracer
// records them as spans, LoggingListener writes them to a log.Logger.
// NodeMiddleware such as WithRetry, WithTimeout and WithCircuitBreaker wrap
// node functions.
package graph

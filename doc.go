// Nodegraph runs workflows expressed as graphs of named nodes over a shared
// key/value state, with checkpoints that let a run halt and resume later.
//
// # Quick Start
//
// Install the package:
//
//	go get github.com/smallnest/nodegraph
//
// Basic example:
//
//	g := graph.NewStateGraph()
//	_ = g.AddNode("greet", "say hello", func(ctx context.Context, s graph.State) (graph.Command, error) {
//		return graph.Complete(map[string]any{"greeting": "hello " + s.GetString("name")}), nil
//	})
//	_ = g.SetEntryPoint("greet")
//	compiled, _ := g.Compile()
//
//	runner := graph.NewRunner(compiled, graph.DefaultRunnerConfig())
//	res, _ := runner.Invoke(ctx, "thread-1", graph.NewState(map[string]any{"name": "gopher"}))
//	fmt.Println(res.State)
//
// # Key Features
//
//   - Fixed edges, conditional edges and Goto commands
//   - Interrupt-before points and in-node Interrupt calls, resumed by thread id
//   - Per-key reducers for merging node updates
//   - Lazy, restartable streaming of snapshots with iter.Seq2
//   - Checkpoint stores for memory, files, SQLite, PostgreSQL and Redis
//   - Node middleware for retries, timeouts and circuit breaking
//   - Listeners, tracing, Mermaid/DOT diagrams and HTML thread reports
//
// # Package Structure
//
//	graph/           builder, compiled graph, runner, interrupts, listeners
//	store/           checkpoint model, value codec and type registry
//	store/memory     in-memory store
//	store/file       one JSON file per thread
//	store/sqlite     SQLite (mattn/go-sqlite3 or modernc.org/sqlite)
//	store/postgres   PostgreSQL via pgx
//	store/redis      Redis via go-redis
//	store/factory    opens a store from configuration
//	config/          YAML/HCL files, .env files and NODEGRAPH_* variables
//	log/             Logger interface and golog implementation
//	report/          Markdown and sanitized HTML reports of threads
//	cmd/graphctl     command line runner and inspector for the demo graphs
//
// # Configuration
//
// config.Load reads .yaml, .yml or .hcl files. Every field can be overridden
// with a NODEGRAPH_ variable, for example NODEGRAPH_STORE_BACKEND=redis or
// NODEGRAPH_LOG_LEVEL=debug.
//
// See the examples directory for interrupts, durable execution, reducers and
// each checkpoint backend.
package nodegraph // import "github.com/smallnest/nodegraph"

// Command graphctl runs the bundled demo graphs and inspects their checkpoints.
//
//	graphctl [-config file] [-env file] <command> [args]
//
// Commands:
//
//	threads                          list threads with a checkpoint
//	pending <thread>                 print the node a resume would run
//	show <thread>                    print the checkpoint of a thread
//	delete <thread>                  delete the checkpoint of a thread
//	report [-o file] <thread>        write an HTML report of a thread
//	graph <demo>                     print the Mermaid diagram of a demo graph
//	branch start <thread>            start the C/D branch demo
//	branch resume <thread> C|D       resume it with an answer
//	approve start <thread> <question> start the tool approval demo
//	approve resume <thread>          approve the pending tool call
//
// Without -config, checkpoints are kept in ./.nodegraph. NODEGRAPH_*
// variables and the -env file override configuration values.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"iter"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/smallnest/nodegraph/config"
	"github.com/smallnest/nodegraph/graph"
	"github.com/smallnest/nodegraph/log"
	"github.com/smallnest/nodegraph/report"
	"github.com/smallnest/nodegraph/store"
	"github.com/smallnest/nodegraph/store/factory"
)

const defaultStoreDir = ".nodegraph"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, errStyle.Render("error: "+err.Error()))
		os.Exit(1)
	}
}

var errUsage = errors.New("usage: graphctl [-config file] [-env file] <threads|pending|show|delete|report|graph|branch|approve> [args]")

func run(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("graphctl", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	configPath := fs.String("config", "", "configuration file (.yaml, .yml or .hcl)")
	envFile := fs.String("env", ".env", "dotenv file loaded before NODEGRAPH_* variables are read")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if fs.NArg() == 0 {
		return errUsage
	}

	cfg, err := loadConfig(*configPath, *envFile)
	if err != nil {
		return err
	}

	logger := log.NewDefaultLogger(cfg.LogLevel())
	st, closeStore, err := factory.Open(ctx, cfg.Store, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStore(); err != nil {
			logger.Warn("failed to close checkpoint store: %v", err)
		}
	}()

	app := &cli{cfg: cfg, store: st, logger: logger, out: out}
	cmd, rest := fs.Arg(0), fs.Args()[1:]
	switch cmd {
	case "threads":
		return app.threads(ctx)
	case "pending":
		return withThread(rest, func(thread string) error { return app.pending(ctx, thread) })
	case "show":
		return withThread(rest, func(thread string) error { return app.show(ctx, thread) })
	case "delete":
		return withThread(rest, func(thread string) error { return app.delete(ctx, thread) })
	case "report":
		return app.report(ctx, rest)
	case "graph":
		return app.drawGraph(rest)
	case demoBranch:
		return app.branch(ctx, rest)
	case demoApprove:
		return app.approve(ctx, rest)
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}
}

// loadConfig builds the configuration: file or defaults, then the env file
// and NODEGRAPH_* variables, then validation.
func loadConfig(path, envFile string) (*config.Config, error) {
	var cfg *config.Config
	if path == "" {
		// The backend stays empty so that NODEGRAPH_* variables can still
		// select another one by setting a dsn, an addr or a .db path.
		cfg = config.Default()
		cfg.Store.Path = defaultStoreDir
	} else {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return nil, err
		}
	}

	if envFile != "" {
		if err := config.LoadEnv(envFile); err != nil {
			return nil, err
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func withThread(args []string, fn func(thread string) error) error {
	if len(args) != 1 || args[0] == "" {
		return fmt.Errorf("%w: expected exactly one thread id", errUsage)
	}
	return fn(args[0])
}

type cli struct {
	cfg    *config.Config
	store  store.CheckpointStore
	logger *log.GologLogger
	out    io.Writer
}

func (c *cli) runner(d demo) (*graph.Runner, error) {
	cg, err := d.build()
	if err != nil {
		return nil, fmt.Errorf("failed to build %s graph: %w", d.name, err)
	}
	logger := c.logger.Named(d.name)
	return graph.NewRunner(cg, graph.RunnerConfig{
		Store:               c.store,
		Logger:              logger,
		RecursionLimit:      c.cfg.Runner.RecursionLimit,
		ResumeKey:           c.cfg.Runner.ResumeKey,
		CheckpointEveryStep: c.cfg.Runner.CheckpointEveryStep,
		Listeners:           []graph.Listener{graph.NewLoggingListener(logger)},
		GraphName:           d.name,
	}), nil
}

// inspect loads a thread and the demo graph that wrote it.
func (c *cli) inspect(ctx context.Context, thread string) (*graph.ThreadState, *graph.Runner, error) {
	r, err := c.runner(demos[demoBranch])
	if err != nil {
		return nil, nil, err
	}
	ts, err := r.GetState(ctx, thread)
	if err != nil {
		return nil, nil, err
	}
	if name, _ := ts.Metadata["graph"].(string); name != "" && name != demoBranch {
		d, ok := demos[name]
		if !ok {
			return nil, nil, fmt.Errorf("thread %s was written by unknown graph %q", thread, name)
		}
		if r, err = c.runner(d); err != nil {
			return nil, nil, err
		}
	}
	return ts, r, nil
}

func (c *cli) threads(ctx context.Context) error {
	ids, err := c.store.List(ctx)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		fmt.Fprintln(c.out, mutedStyle.Render("no threads"))
		return nil
	}
	for _, id := range ids {
		fmt.Fprintln(c.out, id)
	}
	return nil
}

func (c *cli) pending(ctx context.Context, thread string) error {
	_, r, err := c.inspect(ctx, thread)
	if err != nil {
		return err
	}
	node, err := r.GetPendingNode(ctx, thread)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.out, node)
	return nil
}

func (c *cli) show(ctx context.Context, thread string) error {
	ts, _, err := c.inspect(ctx, thread)
	if err != nil {
		return err
	}
	printThread(c.out, ts)
	return nil
}

func (c *cli) delete(ctx context.Context, thread string) error {
	if err := c.store.Delete(ctx, thread); err != nil {
		return err
	}
	fmt.Fprintln(c.out, okStyle.Render("deleted "+thread))
	return nil
}

func (c *cli) report(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("report", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	output := fs.String("o", "", "write the report to this file instead of stdout")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	return withThread(fs.Args(), func(thread string) error {
		ts, r, err := c.inspect(ctx, thread)
		if err != nil {
			return err
		}
		page := report.Page(r.Graph(), ts)
		if *output == "" {
			_, err := io.WriteString(c.out, page)
			return err
		}
		if err := os.WriteFile(*output, []byte(page), 0o644); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
		fmt.Fprintln(c.out, okStyle.Render("report written to "+*output))
		return nil
	})
}

func (c *cli) drawGraph(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: graph <%s>", errUsage, strings.Join(demoNames(), "|"))
	}
	d, ok := demos[args[0]]
	if !ok {
		return fmt.Errorf("unknown demo %q, want one of %s", args[0], strings.Join(demoNames(), ", "))
	}
	cg, err := d.build()
	if err != nil {
		return err
	}
	fmt.Fprint(c.out, cg.DrawMermaid())
	return nil
}

func (c *cli) branch(ctx context.Context, args []string) error {
	r, err := c.runner(demos[demoBranch])
	if err != nil {
		return err
	}
	switch {
	case len(args) == 2 && args[0] == "start":
		return c.stream(r.Stream(ctx, args[1], graph.NewState(map[string]any{"value": ""})))
	case len(args) == 3 && args[0] == "resume":
		return c.stream(r.StreamResume(ctx, args[1], strings.ToUpper(args[2])))
	default:
		return fmt.Errorf("%w: branch start <thread> | branch resume <thread> C|D", errUsage)
	}
}

func (c *cli) approve(ctx context.Context, args []string) error {
	r, err := c.runner(demos[demoApprove])
	if err != nil {
		return err
	}
	switch {
	case len(args) >= 3 && args[0] == "start":
		question := strings.Join(args[2:], " ")
		initial := graph.NewState(map[string]any{
			"messages": []any{message("user", question, "")},
		})
		return c.stream(r.Stream(ctx, args[1], initial))
	case len(args) == 2 && args[0] == "resume":
		return c.stream(r.StreamResume(ctx, args[1], nil))
	default:
		return fmt.Errorf("%w: approve start <thread> <question> | approve resume <thread>", errUsage)
	}
}

// stream prints every snapshot of a run as it is produced.
func (c *cli) stream(seq iter.Seq2[graph.Snapshot, error]) error {
	for snap, err := range seq {
		if err != nil {
			return err
		}
		printSnapshot(c.out, snap)
	}
	return nil
}

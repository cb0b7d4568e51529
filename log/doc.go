// Package log provides a simple, leveled logging interface for nodegraph.
//
// The runner, the checkpoint stores and graphctl log through the Logger
// interface. Loggers are always passed explicitly (for example through
// graph.RunnerConfig.Logger); there is no package-level default logger.
//
// # Log Levels
//
// The package supports five log levels, in order of increasing severity:
//
//   - LogLevelDebug: Detailed debugging information for development
//   - LogLevelInfo: General informational messages about normal operation
//   - LogLevelWarn: Warning messages for potentially problematic situations
//   - LogLevelError: Error messages for failures that need attention
//   - LogLevelNone: Disables all logging output
//
// # Example Usage
//
//	// golog-backed logger on stderr
//	logger := log.NewDefaultLogger(log.LogLevelInfo)
//	logger.Info("thread %s resumed at %s", threadID, node)
//
//	// Wrap an existing golog instance
//	g := golog.New()
//	g.SetPrefix("[ MyApp ] ")
//	logger2 := log.NewGologLogger(g)
//	logger2.SetLevel(log.LogLevelDebug)
//
//	// Level names from configuration
//	level, err := log.ParseLevel("warn")
//
// NoOpLogger discards everything and is what the runner uses when no logger is
// configured.
package log

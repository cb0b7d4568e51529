package log

import (
	"io"
	"sync/atomic"

	"github.com/kataras/golog"
)

const defaultPrefix = "[nodegraph] "

var gologLevels = [...]string{
	LogLevelDebug: "debug",
	LogLevelInfo:  "info",
	LogLevelWarn:  "warn",
	LogLevelError: "error",
	LogLevelNone:  "disable",
}

// GologLogger is a Logger backed by a kataras/golog instance. Loggers created
// with Named share their parent's golog instance and level.
type GologLogger struct {
	g     *golog.Logger
	level *atomic.Int32 // shared with Named children
	name  string
}

var _ Logger = (*GologLogger)(nil)

// NewGologLogger wraps an existing golog.Logger at LogLevelInfo.
func NewGologLogger(g *golog.Logger) *GologLogger {
	l := &GologLogger{g: g, level: new(atomic.Int32)}
	l.SetLevel(LogLevelInfo)
	return l
}

// NewDefaultLogger logs to stderr with the "[nodegraph] " prefix.
func NewDefaultLogger(level LogLevel) *GologLogger {
	l := NewGologLogger(golog.New().SetPrefix(defaultPrefix))
	l.SetLevel(level)
	return l
}

// NewCustomLogger is NewDefaultLogger writing to out.
func NewCustomLogger(out io.Writer, level LogLevel) *GologLogger {
	g := golog.New().SetPrefix(defaultPrefix)
	g.SetOutput(out)
	l := NewGologLogger(g)
	l.SetLevel(level)
	return l
}

// Named returns a logger that shares l's output and level and prefixes every
// message with "name: ". Names of nested loggers are joined with dots.
func (l *GologLogger) Named(name string) *GologLogger {
	if l.name != "" {
		name = l.name + "." + name
	}
	return &GologLogger{g: l.g, level: l.level, name: name}
}

func (l *GologLogger) logf(level LogLevel, printf func(string, ...any), format string, v []any) {
	if LogLevel(l.level.Load()) > level {
		return
	}
	if l.name != "" {
		format = l.name + ": " + format
	}
	printf(format, v...)
}

func (l *GologLogger) Debug(format string, v ...any) {
	l.logf(LogLevelDebug, l.g.Debugf, format, v)
}

func (l *GologLogger) Info(format string, v ...any) {
	l.logf(LogLevelInfo, l.g.Infof, format, v)
}

func (l *GologLogger) Warn(format string, v ...any) {
	l.logf(LogLevelWarn, l.g.Warnf, format, v)
}

func (l *GologLogger) Error(format string, v ...any) {
	l.logf(LogLevelError, l.g.Errorf, format, v)
}

// SetLevel changes the level of l and of every logger derived from it with
// Named. Unknown levels are treated as LogLevelNone.
func (l *GologLogger) SetLevel(level LogLevel) {
	if level < LogLevelDebug || level > LogLevelNone {
		level = LogLevelNone
	}
	l.level.Store(int32(level))
	l.g.SetLevel(gologLevels[level])
}

// GetLevel returns the current log level
func (l *GologLogger) GetLevel() LogLevel {
	return LogLevel(l.level.Load())
}

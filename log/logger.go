package log

import (
	"fmt"
	"strings"
)

// LogLevel represents logging severity
type LogLevel int

// Levels in order of increasing severity. A logger set to a level drops
// messages below it; LogLevelNone drops everything.
const (
	LogLevelDebug LogLevel = iota
	LogLevelInfo
	LogLevelWarn
	LogLevelError
	LogLevelNone
)

// Logger is the logging interface used by the runner, the stores and graphctl.
// Messages use fmt.Sprintf formatting.
type Logger interface {
	Debug(format string, v ...any)
	Info(format string, v ...any)
	Warn(format string, v ...any)
	Error(format string, v ...any)
}

// NoOpLogger discards every message.
type NoOpLogger struct{}

var _ Logger = NoOpLogger{}

func (NoOpLogger) Debug(string, ...any) {}
func (NoOpLogger) Info(string, ...any)  {}
func (NoOpLogger) Warn(string, ...any)  {}
func (NoOpLogger) Error(string, ...any) {}

var levelNames = [...]string{
	LogLevelDebug: "DEBUG",
	LogLevelInfo:  "INFO",
	LogLevelWarn:  "WARN",
	LogLevelError: "ERROR",
	LogLevelNone:  "NONE",
}

func (l LogLevel) String() string {
	if l >= 0 && int(l) < len(levelNames) {
		return levelNames[l]
	}
	return fmt.Sprintf("UNKNOWN(%d)", int(l))
}

// levelAliases maps lower-case names accepted by ParseLevel.
var levelAliases = map[string]LogLevel{
	"":        LogLevelInfo,
	"debug":   LogLevelDebug,
	"info":    LogLevelInfo,
	"warn":    LogLevelWarn,
	"warning": LogLevelWarn,
	"error":   LogLevelError,
	"none":    LogLevelNone,
	"off":     LogLevelNone,
	"disable": LogLevelNone,
}

// ParseLevel converts a level name such as "debug" or "WARN" into a LogLevel.
// An empty string yields LogLevelInfo.
func ParseLevel(s string) (LogLevel, error) {
	if level, ok := levelAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return level, nil
	}
	return LogLevelInfo, fmt.Errorf("unknown log level %q", s)
}

// OrNoOp returns l, or a NoOpLogger when l is nil.
func OrNoOp(l Logger) Logger {
	if l == nil {
		return NoOpLogger{}
	}
	return l
}

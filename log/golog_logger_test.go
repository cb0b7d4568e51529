package log

import (
	"bytes"
	"testing"

	"github.com/kataras/golog"
	"github.com/stretchr/testify/assert"
)

func TestNewGologLogger(t *testing.T) {
	logger := NewGologLogger(golog.New())

	assert.NotNil(t, logger)
	assert.Equal(t, LogLevelInfo, logger.GetLevel())
}

func TestGologLogger_LevelControl(t *testing.T) {
	logger := NewGologLogger(golog.New())

	logger.SetLevel(LogLevelDebug)
	assert.Equal(t, LogLevelDebug, logger.GetLevel())

	logger.SetLevel(LogLevelError)
	assert.Equal(t, LogLevelError, logger.GetLevel())

	logger.SetLevel(LogLevelNone)
	assert.Equal(t, LogLevelNone, logger.GetLevel())
}

func TestGologLogger_WritesFormattedMessages(t *testing.T) {
	var buf bytes.Buffer
	logger := NewCustomLogger(&buf, LogLevelDebug)

	logger.Info("thread %s halted before %s", "t-1", "human_review")

	assert.Contains(t, buf.String(), "thread t-1 halted before human_review")
	assert.Contains(t, buf.String(), "[nodegraph] ")
}

func TestGologLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewCustomLogger(&buf, LogLevelError)

	logger.Debug("filtered debug")
	logger.Info("filtered info")
	logger.Warn("filtered warn")
	assert.Empty(t, buf.String())

	logger.Error("kept %d", 1)
	assert.Contains(t, buf.String(), "kept 1")
}

func TestParseLevel(t *testing.T) {
	cases := map[string]LogLevel{
		"":        LogLevelInfo,
		"debug":   LogLevelDebug,
		"INFO":    LogLevelInfo,
		"warning": LogLevelWarn,
		"Error":   LogLevelError,
		"off":     LogLevelNone,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		assert.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("verbose")
	assert.Error(t, err)
}

func TestOrNoOp(t *testing.T) {
	assert.IsType(t, NoOpLogger{}, OrNoOp(nil))

	l := NewDefaultLogger(LogLevelWarn)
	assert.Same(t, l, OrNoOp(l))
	assert.Equal(t, "WARN", l.GetLevel().String())
}

func TestGologLogger_Named(t *testing.T) {
	var buf bytes.Buffer
	root := NewCustomLogger(&buf, LogLevelInfo)
	runner := root.Named("runner").Named("branch")

	runner.Info("resumed %s", "t-1")
	assert.Contains(t, buf.String(), "runner.branch: resumed t-1")

	root.SetLevel(LogLevelError)
	buf.Reset()
	runner.Warn("dropped")
	assert.Empty(t, buf.String())
	assert.Equal(t, LogLevelError, runner.GetLevel())
}

func TestLogLevelString(t *testing.T) {
	assert.Equal(t, "DEBUG", LogLevelDebug.String())
	assert.Equal(t, "NONE", LogLevelNone.String())
	assert.Equal(t, "UNKNOWN(9)", LogLevel(9).String())
}

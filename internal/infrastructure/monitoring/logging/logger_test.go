package logging

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/turtacn/datamigrate/internal/config"
)

func newObservedLogger(level zapcore.Level) (Logger, *observer.ObservedLogs) {
	core, logs := observer.New(level)
	return &zapLogger{z: zap.New(core)}, logs
}

func TestNewLogger_JSONFormat(t *testing.T) {
	l, err := NewLogger(config.LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, l)
}

func TestNewLogger_TextFormat(t *testing.T) {
	l, err := NewLogger(config.LogConfig{Level: "debug", Format: "text"})
	require.NoError(t, err)
	assert.NotNil(t, l)
}

func TestLogger_EmitsFields(t *testing.T) {
	l, logs := newObservedLogger(zapcore.DebugLevel)

	l.Info("run started",
		String("run_id", "abc"),
		Int("rows", 1007),
		Float64("rate", 96.5),
		Bool("fuzzy", true),
		Duration("elapsed", time.Second),
		Err(errors.New("boom")),
	)

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "run started", entry.Message)

	fields := entry.ContextMap()
	assert.Equal(t, "abc", fields["run_id"])
	assert.EqualValues(t, 1007, fields["rows"])
	assert.Equal(t, 96.5, fields["rate"])
	assert.Equal(t, true, fields["fuzzy"])
	assert.Equal(t, "boom", fields["error"])
}

func TestLogger_LevelFiltering(t *testing.T) {
	l, logs := newObservedLogger(zapcore.WarnLevel)

	l.Debug("hidden")
	l.Info("hidden")
	l.Warn("shown")
	l.Error("shown")

	assert.Equal(t, 2, logs.Len())
}

func TestLogger_WithAddsPersistentFields(t *testing.T) {
	l, logs := newObservedLogger(zapcore.DebugLevel)

	child := l.With(String("component", "dedup"))
	child.Info("first")
	child.Info("second")

	require.Equal(t, 2, logs.Len())
	for _, entry := range logs.All() {
		assert.Equal(t, "dedup", entry.ContextMap()["component"])
	}
}

func TestLogger_Named(t *testing.T) {
	l, logs := newObservedLogger(zapcore.DebugLevel)

	l.Named("worker").Info("consuming")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "worker", logs.All()[0].LoggerName)
}

func TestErr_NilError(t *testing.T) {
	f := Err(nil)
	assert.Equal(t, "error", f.Key)
	assert.Equal(t, "<nil>", f.Value)
}

func TestNopLogger_AllMethodsNoOp(t *testing.T) {
	l := NewNopLogger()
	l.Debug("msg")
	l.Info("msg", String("k", "v"))
	l.Warn("msg")
	l.Error("msg")
	assert.Equal(t, l, l.With(String("k", "v")))
	assert.Equal(t, l, l.Named("x"))
}

func TestDefault_SetAndGet(t *testing.T) {
	orig := Default()
	t.Cleanup(func() { SetDefault(orig) })

	l, _ := newObservedLogger(zapcore.DebugLevel)
	SetDefault(l)
	assert.Equal(t, l, Default())

	// nil is ignored
	SetDefault(nil)
	assert.Equal(t, l, Default())
}

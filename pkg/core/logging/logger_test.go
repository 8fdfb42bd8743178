package logging

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, zapcore.WarnLevel, ParseLevel(" warning "))
	assert.Equal(t, zapcore.ErrorLevel, ParseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel("verbose"))
}

func TestLogger_FieldsReachCore(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := NewLoggerFromCore(core).Named("valuation").With(String("run_id", "abc"))

	log.Warn("basis unavailable",
		String("basis", "stabilized"),
		Float64("cap_rate", 0),
		Int("cells", 25),
		Duration("took", time.Millisecond),
		Err(errors.New("cap rate is zero")),
	)

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, zapcore.WarnLevel, entry.Level)
	assert.Equal(t, "valuation", entry.LoggerName)

	ctx := entry.ContextMap()
	assert.Equal(t, "abc", ctx["run_id"])
	assert.Equal(t, "stabilized", ctx["basis"])
	assert.Equal(t, int64(25), ctx["cells"])
	assert.Equal(t, "cap rate is zero", ctx["error"])
}

func TestErr_Nil(t *testing.T) {
	assert.Equal(t, "<nil>", Err(nil).Value)
}

func TestNewLogger_Formats(t *testing.T) {
	for _, format := range []string{"json", "console", ""} {
		l, err := NewLogger(LogConfig{Level: "debug", Format: format})
		require.NoError(t, err, format)
		l.Debug("hello")
	}
}

func TestNopLogger(t *testing.T) {
	l := NewNopLogger().Named("x").With(Bool("k", true))
	l.Error("ignored")
	assert.NoError(t, l.Sync())
}

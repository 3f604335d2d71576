package logger

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observe(t *testing.T, detailed bool) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	restore := Use(zap.New(core), detailed)
	t.Cleanup(restore)
	return logs
}

func TestLevelsAndFields(t *testing.T) {
	logs := observe(t, false)
	ctx := context.Background()

	Debug(ctx, "hidden")
	Info(ctx, "Fetched price history", "symbol", "TCS.NS", "candles", 250)
	ErrorWithErr(ctx, "Fetch failed", errors.New("boom"), "symbol", "INFY.NS")

	entries := logs.All()
	require.Len(t, entries, 2)

	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, "Fetched price history", entries[0].Message)
	assert.Equal(t, "TCS.NS", entries[0].ContextMap()["symbol"])

	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
	assert.Equal(t, "boom", entries[1].ContextMap()["error"])
}

func TestDetailedLoggingEnablesDebug(t *testing.T) {
	logs := observe(t, true)
	Debug(context.Background(), "visible", "k", "v")
	assert.Equal(t, 1, logs.FilterMessage("visible").Len())
	assert.True(t, IsDebugEnabled())
}

func TestDecision(t *testing.T) {
	logs := observe(t, false)
	Decision(context.Background(), "HDFCBANK.NS", "Buy", 71.2, 64, "factors", 5)

	entries := logs.FilterMessage("Recommendation made").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "DECISION", fields["type"])
	assert.Equal(t, "Buy", fields["action"])
	assert.Equal(t, 71.2, fields["score"])
}

func TestOperationTimerEndWithError(t *testing.T) {
	logs := observe(t, false)
	op := StartOperation(context.Background(), "advisor.Analyze", "symbol", "SBIN.NS")
	op.EndWithError(errors.New("timeout"))

	entries := logs.FilterMessage("Operation failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "SBIN.NS", entries[0].ContextMap()["symbol"])
	assert.NotNil(t, op.GetContext())
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "WARN")
	t.Setenv("LOG_DETAILED", "true")

	cfg, err := LoadConfigFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "WARN", cfg.Level)
	assert.Equal(t, "json", cfg.Format)
	assert.True(t, cfg.DetailedLogging)
	assert.False(t, cfg.TracingEnabled)

	t.Setenv("LOG_DETAILED", "maybe")
	_, err = LoadConfigFromEnv()
	assert.Error(t, err)
}

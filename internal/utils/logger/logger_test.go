package logger

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewWritesToRotatingFile(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LogFile = filepath.Join(t.TempDir(), "engine.log")
	cfg.Development = true

	log, err := New(cfg)
	require.NoError(t, err)
	log.WithComponent("test").Info("hello")
	assert.NoError(t, log.Sync())
	assert.FileExists(t, cfg.LogFile)
}

func TestWithOperationAddsCorrelationID(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	base := zap.New(core)

	WithOperation(base, "launch").Info("step", Event(EventTxSent))
	WithOperation(base, "launch").Info("step")

	entries := logs.All()
	require.Len(t, entries, 2)
	first := entries[0].ContextMap()
	second := entries[1].ContextMap()
	assert.Equal(t, "launch", first["operation"])
	assert.Equal(t, EventTxSent, first["event"])
	assert.NotEmpty(t, first["correlation_id"])
	assert.NotEqual(t, first["correlation_id"], second["correlation_id"])
}

func TestTrackPerformance(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	end := TrackPerformance(zap.New(core), "quote")
	end()
	require.Equal(t, 2, logs.Len())
	assert.Contains(t, logs.All()[1].ContextMap(), "duration_ms")
}

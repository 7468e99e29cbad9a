package logutil

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestGetLogger_FromContext(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	ctx := WithLogger(context.Background(), zap.New(core))

	GetLogger(With(ctx, zap.String("run", "r1"))).Info("hello")

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "hello", entry.Message)
	assert.Equal(t, "r1", entry.ContextMap()["run"])
}

func TestGetLogger_FallsBackToGlobal(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	prev := GetLogger(context.Background())
	SetLogger(zap.New(core))
	t.Cleanup(func() { SetLogger(prev) })

	GetLogger(context.Background()).Info("global")
	assert.Equal(t, 1, logs.Len())
}

func TestInit_WritesFile(t *testing.T) {
	prev := GetLogger(context.Background())
	t.Cleanup(func() { SetLogger(prev) })

	path := filepath.Join(t.TempDir(), "import.log")
	logger := Init(Options{Level: "debug", File: path})
	logger.Debug("to file")
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "to file")
}

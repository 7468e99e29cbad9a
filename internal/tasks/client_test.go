package tasks

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mikestefanello/backlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdnh/anki-copycat-importer/internal/config"
)

func TestNewClient(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "tasks.db")

	cfg := DefaultConfig()
	cfg.Workers = 1

	client, err := NewClient(dbPath, cfg)
	require.NoError(t, err)
	require.NotNil(t, client)

	// Verify tasks database was created
	_, err = os.Stat(dbPath)
	assert.NoError(t, err, "tasks database should be created")

	err = client.Close()
	assert.NoError(t, err)
}

func TestClientStartStop(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "tasks.db")

	cfg := DefaultConfig()
	cfg.Workers = 1

	client, err := NewClient(dbPath, cfg)
	require.NoError(t, err)
	defer client.Close()

	// Start client in background
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go client.Start(ctx)

	// Give it time to start
	time.Sleep(50 * time.Millisecond)

	// Stop should complete successfully
	stopCtx, stopCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer stopCancel()

	success := client.Stop(stopCtx)
	assert.True(t, success, "stop should succeed gracefully")
}

// TestTask is a simple task for testing
type TestTask struct {
	Value string `json:"value"`
}

func (t TestTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "test_task",
		MaxAttempts: 1,
		Backoff:     time.Second,
		Timeout:     5 * time.Second,
	}
}

func TestTaskEnqueue(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "tasks.db")

	cfg := DefaultConfig()
	cfg.Workers = 1

	client, err := NewClient(dbPath, cfg)
	require.NoError(t, err)
	defer client.Close()

	// Create and register a test queue
	executed := make(chan string, 1)
	queue := backlite.NewQueue(func(ctx context.Context, task TestTask) error {
		executed <- task.Value
		return nil
	})
	client.Register(queue)

	// Start client
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go client.Start(ctx)

	// Enqueue a task
	ids, err := client.Add(TestTask{Value: "hello"}).Save()
	require.NoError(t, err)
	assert.Len(t, ids, 1)

	// Wait for task to be executed
	select {
	case val := <-executed:
		assert.Equal(t, "hello", val)
	case <-time.After(5 * time.Second):
		t.Fatal("task was not executed within timeout")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 1, cfg.Workers)
	assert.Equal(t, 2*time.Hour, cfg.TaskTimeout)
	assert.Equal(t, time.Hour, cfg.ReleaseAfter)
	assert.Equal(t, time.Hour, cfg.CleanupInterval)
	assert.Equal(t, 24*time.Hour, cfg.RetentionDuration)
}

func TestConfigFrom(t *testing.T) {
	cfg := ConfigFrom(config.Tasks{ReleaseAfter: 3 * time.Hour})

	assert.Equal(t, 3*time.Hour, cfg.ReleaseAfter)
	assert.Equal(t, time.Hour, cfg.CleanupInterval)
	assert.Equal(t, 1, cfg.Workers)
}

func TestImportTaskConfig(t *testing.T) {
	cfg := ImportTask{RunID: "r1"}.Config()

	assert.Equal(t, "import", cfg.Name)
	assert.Equal(t, 1, cfg.MaxAttempts)
	assert.Equal(t, 2*time.Hour, cfg.Timeout)
	assert.NotNil(t, cfg.Retention)
}

type runnerFunc func(ctx context.Context, runID string) error

func (f runnerFunc) Run(ctx context.Context, runID string) error { return f(ctx, runID) }

func TestImportProcessor(t *testing.T) {
	var got string
	process := ImportProcessor(runnerFunc(func(_ context.Context, id string) error {
		got = id
		return nil
	}))
	require.NoError(t, process(context.Background(), ImportTask{RunID: "r1"}))
	assert.Equal(t, "r1", got)

	process = ImportProcessor(runnerFunc(func(context.Context, string) error {
		return errors.New("run not found")
	}))
	assert.EqualError(t, process(context.Background(), ImportTask{RunID: "r2"}), "import run r2: run not found")

	assert.Error(t, ImportProcessor(nil)(context.Background(), ImportTask{}))
}

func TestEnqueueImport_RunsTask(t *testing.T) {
	client, err := NewClient(filepath.Join(t.TempDir(), "tasks.db"), DefaultConfig())
	require.NoError(t, err)
	defer client.Close()

	executed := make(chan string, 1)
	client.Register(NewImportQueue(runnerFunc(func(_ context.Context, id string) error {
		executed <- id
		return nil
	})))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go client.Start(ctx)

	require.NoError(t, client.EnqueueImport(ctx, "run-1"))

	select {
	case id := <-executed:
		assert.Equal(t, "run-1", id)
	case <-time.After(5 * time.Second):
		t.Fatal("import task was not executed within timeout")
	}
}

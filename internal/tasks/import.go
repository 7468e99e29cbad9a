package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/mikestefanello/backlite"
	"go.uber.org/zap"

	"github.com/abdnh/anki-copycat-importer/internal/logutil"
)

// ImportRunner executes a queued import run.
type ImportRunner interface {
	Run(ctx context.Context, runID string) error
}

// ImportTask runs one queued import. An import is never retried: a failed
// run is recorded and the user starts a new one.
type ImportTask struct {
	RunID string `json:"run_id"`
}

// Config returns the queue configuration for import tasks.
func (t ImportTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "import",
		MaxAttempts: 1,
		Backoff:     time.Minute,
		Timeout:     DefaultConfig().TaskTimeout,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// ImportProcessor creates a processor function for ImportTask.
func ImportProcessor(runner ImportRunner) backlite.QueueProcessor[ImportTask] {
	return func(ctx context.Context, task ImportTask) error {
		if runner == nil {
			return fmt.Errorf("import runner not configured")
		}
		ctx = logutil.With(ctx, zap.String("run_id", task.RunID))
		logutil.GetLogger(ctx).Info("processing import task")
		if err := runner.Run(ctx, task.RunID); err != nil {
			return fmt.Errorf("import run %s: %w", task.RunID, err)
		}
		return nil
	}
}

// NewImportQueue creates a backlite queue for import tasks.
func NewImportQueue(runner ImportRunner) backlite.Queue {
	return backlite.NewQueue(ImportProcessor(runner))
}

// EnqueueImport queues the import run runID. Client satisfies the enqueuer
// the import service hands runs to.
func (c *Client) EnqueueImport(_ context.Context, runID string) error {
	if _, err := c.Add(ImportTask{RunID: runID}).Save(); err != nil {
		return fmt.Errorf("failed to enqueue import: %w", err)
	}
	return nil
}

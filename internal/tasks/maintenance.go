package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mikestefanello/backlite"
	"go.uber.org/zap"

	"github.com/abdnh/anki-copycat-importer/internal/logutil"
)

const defaultRetentionDays = 30

// AuditEventCleaner deletes audit events older than a retention period.
type AuditEventCleaner interface {
	DeleteOldEvents(retention time.Duration) (int64, error)
}

// OrphanTagsCleaner deletes tags no note uses.
type OrphanTagsCleaner interface {
	DeleteOrphanTags() (int64, error)
}

// RunCleaner deletes finished import runs older than a cutoff.
type RunCleaner interface {
	DeleteFinishedRuns(before time.Time) (int64, error)
}

// Cleaners are the stores a MaintenanceTask prunes. Nil cleaners are
// skipped.
type Cleaners struct {
	Audit AuditEventCleaner
	Tags  OrphanTagsCleaner
	Runs  RunCleaner
}

// MaintenanceTask prunes old audit events and import runs and removes
// orphan tags.
type MaintenanceTask struct {
	AuditRetentionDays int `json:"audit_retention_days"`
	RunRetentionDays   int `json:"run_retention_days"`
}

// Config returns the queue configuration for maintenance tasks.
func (t MaintenanceTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "maintenance",
		MaxAttempts: 3,
		Backoff:     5 * time.Minute,
		Timeout:     2 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

func days(n int) time.Duration {
	if n <= 0 {
		n = defaultRetentionDays
	}
	return time.Duration(n) * 24 * time.Hour
}

// MaintenanceProcessor creates a processor function for MaintenanceTask.
// Every cleaner runs even when an earlier one fails.
func MaintenanceProcessor(c Cleaners) backlite.QueueProcessor[MaintenanceTask] {
	return func(ctx context.Context, task MaintenanceTask) error {
		log := logutil.GetLogger(ctx)
		var errs []error

		if c.Audit != nil {
			deleted, err := c.Audit.DeleteOldEvents(days(task.AuditRetentionDays))
			if err != nil {
				errs = append(errs, fmt.Errorf("cleanup audit events: %w", err))
			} else {
				log.Info("cleaned up audit events", zap.Int64("deleted", deleted))
			}
		}
		if c.Runs != nil {
			deleted, err := c.Runs.DeleteFinishedRuns(time.Now().Add(-days(task.RunRetentionDays)))
			if err != nil {
				errs = append(errs, fmt.Errorf("cleanup import runs: %w", err))
			} else {
				log.Info("cleaned up import runs", zap.Int64("deleted", deleted))
			}
		}
		if c.Tags != nil {
			deleted, err := c.Tags.DeleteOrphanTags()
			if err != nil {
				errs = append(errs, fmt.Errorf("cleanup orphan tags: %w", err))
			} else {
				log.Info("cleaned up orphan tags", zap.Int64("deleted", deleted))
			}
		}
		return errors.Join(errs...)
	}
}

// NewMaintenanceQueue creates a backlite queue for maintenance tasks.
func NewMaintenanceQueue(c Cleaners) backlite.Queue {
	return backlite.NewQueue(MaintenanceProcessor(c))
}

// EnqueueMaintenance queues one maintenance pass.
func (c *Client) EnqueueMaintenance(task MaintenanceTask) (string, error) {
	ids, err := c.Add(task).Save()
	if err != nil {
		return "", fmt.Errorf("failed to enqueue maintenance: %w", err)
	}
	return ids[0], nil
}

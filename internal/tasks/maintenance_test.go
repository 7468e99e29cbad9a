package tasks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCleaner struct {
	retention time.Duration
	before    time.Time
	tagsRun   bool
	err       error
}

func (f *fakeCleaner) DeleteOldEvents(retention time.Duration) (int64, error) {
	f.retention = retention
	return 2, f.err
}

func (f *fakeCleaner) DeleteOrphanTags() (int64, error) {
	f.tagsRun = true
	return 1, nil
}

func (f *fakeCleaner) DeleteFinishedRuns(before time.Time) (int64, error) {
	f.before = before
	return 3, nil
}

func TestMaintenanceTaskConfig(t *testing.T) {
	cfg := MaintenanceTask{}.Config()

	assert.Equal(t, "maintenance", cfg.Name)
	assert.Equal(t, 3, cfg.MaxAttempts)
	assert.Equal(t, 2*time.Minute, cfg.Timeout)
}

func TestMaintenanceProcessor(t *testing.T) {
	f := &fakeCleaner{}
	process := MaintenanceProcessor(Cleaners{Audit: f, Tags: f, Runs: f})

	require.NoError(t, process(context.Background(), MaintenanceTask{AuditRetentionDays: 7}))
	assert.Equal(t, 7*24*time.Hour, f.retention)
	assert.WithinDuration(t, time.Now().Add(-30*24*time.Hour), f.before, time.Minute)
	assert.True(t, f.tagsRun)
}

func TestMaintenanceProcessor_ContinuesAfterError(t *testing.T) {
	f := &fakeCleaner{err: errors.New("locked")}
	process := MaintenanceProcessor(Cleaners{Audit: f, Tags: f})

	err := process(context.Background(), MaintenanceTask{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cleanup audit events: locked")
	assert.True(t, f.tagsRun)
}

func TestMaintenanceProcessor_NoCleaners(t *testing.T) {
	assert.NoError(t, MaintenanceProcessor(Cleaners{})(context.Background(), MaintenanceTask{}))
}

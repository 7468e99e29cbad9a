// Package scheduler triggers periodic collection maintenance.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/abdnh/anki-copycat-importer/internal/logutil"
	"github.com/abdnh/anki-copycat-importer/internal/tasks"
)

// Enqueuer queues maintenance passes.
type Enqueuer interface {
	EnqueueMaintenance(task tasks.MaintenanceTask) (string, error)
}

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// ValidateSchedule checks a five-field cron expression.
func ValidateSchedule(schedule string) error {
	_, err := parser.Parse(schedule)
	return err
}

// MaintenanceScheduler enqueues a maintenance task on a cron schedule.
type MaintenanceScheduler struct {
	queue    Enqueuer
	schedule string
	task     tasks.MaintenanceTask

	cron       *cron.Cron
	entryID    cron.EntryID
	mu         sync.RWMutex
	isRunning  bool
	cancelFunc context.CancelFunc
}

func NewMaintenanceScheduler(queue Enqueuer, schedule string, task tasks.MaintenanceTask) *MaintenanceScheduler {
	return &MaintenanceScheduler{
		queue:    queue,
		schedule: schedule,
		task:     task,
		cron:     cron.New(cron.WithParser(parser)),
	}
}

// Start schedules the task. An empty schedule disables maintenance.
func (s *MaintenanceScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}
	log := logutil.GetLogger(ctx).Named("scheduler")
	if s.schedule == "" {
		log.Info("maintenance scheduler disabled")
		return nil
	}
	if err := ValidateSchedule(s.schedule); err != nil {
		return fmt.Errorf("invalid cron schedule '%s': %w", s.schedule, err)
	}

	entryID, err := s.cron.AddFunc(s.schedule, func() { s.enqueue(log) })
	if err != nil {
		return fmt.Errorf("failed to schedule maintenance: %w", err)
	}
	s.entryID = entryID

	var cancelCtx context.Context
	cancelCtx, s.cancelFunc = context.WithCancel(ctx)

	s.cron.Start()
	s.isRunning = true
	log.Info("maintenance scheduler started", zap.String("schedule", s.schedule), zap.Timep("next_run", s.nextRunLocked()))

	go func() {
		<-cancelCtx.Done()
		s.Stop()
	}()
	return nil
}

// Stop waits for a running job and stops the scheduler.
func (s *MaintenanceScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}
	<-s.cron.Stop().Done()
	s.cron.Remove(s.entryID)
	if s.cancelFunc != nil {
		s.cancelFunc()
	}
	s.isRunning = false
	s.cancelFunc = nil
}

// RunNow enqueues a maintenance pass immediately.
func (s *MaintenanceScheduler) RunNow() (string, error) {
	return s.queue.EnqueueMaintenance(s.task)
}

func (s *MaintenanceScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// NextRunTime returns when the next pass is queued, or nil when stopped.
func (s *MaintenanceScheduler) NextRunTime() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nextRunLocked()
}

func (s *MaintenanceScheduler) nextRunLocked() *time.Time {
	if !s.isRunning && s.entryID == 0 {
		return nil
	}
	for _, entry := range s.cron.Entries() {
		if entry.ID == s.entryID {
			t := entry.Next
			return &t
		}
	}
	return nil
}

func (s *MaintenanceScheduler) enqueue(log *zap.Logger) {
	id, err := s.queue.EnqueueMaintenance(s.task)
	if err != nil {
		log.Error("failed to enqueue maintenance", zap.Error(err))
		return
	}
	log.Info("maintenance enqueued", zap.String("task_id", id))
}

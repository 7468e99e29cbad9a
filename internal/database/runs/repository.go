// Package runs provides database operations for import run tracking.
//
// # Usage
//
//	repo := runs.NewRepository(db)
//	err := repo.CreateRun(&entities.ImportRun{ID: id, Source: "noji"})
package runs

import (
	"time"

	"gorm.io/gorm"

	"github.com/abdnh/anki-copycat-importer/internal/entities"
)

// Repository handles all import run database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new runs repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CreateRun saves a new run. Its status defaults to queued.
func (r *Repository) CreateRun(run *entities.ImportRun) error {
	if run.Status == "" {
		run.Status = entities.RunStatusQueued
	}
	return r.db.Create(run).Error
}

// GetRun retrieves a run by ID.
func (r *Repository) GetRun(id string) (*entities.ImportRun, error) {
	var run entities.ImportRun
	err := r.db.Where("id = ?", id).First(&run).Error
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// GetActiveRun retrieves the queued or running run, if any.
func (r *Repository) GetActiveRun() (*entities.ImportRun, error) {
	var run entities.ImportRun
	err := r.db.
		Where("status IN ?", []entities.RunStatus{entities.RunStatusQueued, entities.RunStatusRunning}).
		Order("created_at").
		First(&run).Error
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// StartRun marks a run as running.
func (r *Repository) StartRun(id string) error {
	return r.db.Model(&entities.ImportRun{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     entities.RunStatusRunning,
			"updated_at": time.Now(),
		}).Error
}

// UpdateProgress stores the latest progress report of a run.
func (r *Repository) UpdateProgress(id, label string, value, max int) error {
	return r.db.Model(&entities.ImportRun{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"label":      label,
			"value":      value,
			"max":        max,
			"updated_at": time.Now(),
		}).Error
}

// CompleteRun stores the outcome of a run.
func (r *Repository) CompleteRun(id string, status entities.RunStatus, cards int, warnings, errorMsg string) error {
	now := time.Now()
	return r.db.Model(&entities.ImportRun{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":       status,
			"cards":        cards,
			"warnings":     warnings,
			"error":        errorMsg,
			"label":        "",
			"updated_at":   now,
			"completed_at": now,
		}).Error
}

// FailUnfinishedRuns marks runs left queued or running by a previous
// process as failed. Returns the number of runs updated.
func (r *Repository) FailUnfinishedRuns(reason string) (int64, error) {
	now := time.Now()
	result := r.db.Model(&entities.ImportRun{}).
		Where("status IN ?", []entities.RunStatus{entities.RunStatusQueued, entities.RunStatusRunning}).
		Updates(map[string]any{
			"status":       entities.RunStatusFailed,
			"error":        reason,
			"updated_at":   now,
			"completed_at": now,
		})
	return result.RowsAffected, result.Error
}

// GetRecentRuns retrieves the latest runs, most recent first.
func (r *Repository) GetRecentRuns(limit int) ([]entities.ImportRun, error) {
	if limit <= 0 {
		limit = 20
	}
	var list []entities.ImportRun
	err := r.db.Order("created_at DESC").Limit(limit).Find(&list).Error
	return list, err
}

// DeleteFinishedRuns removes finished runs created before the cutoff.
func (r *Repository) DeleteFinishedRuns(before time.Time) (int64, error) {
	result := r.db.
		Where("status NOT IN ? AND created_at < ?", []entities.RunStatus{entities.RunStatusQueued, entities.RunStatusRunning}, before).
		Delete(&entities.ImportRun{})
	return result.RowsAffected, result.Error
}

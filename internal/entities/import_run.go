package entities

import (
	"time"
)

type RunStatus string

const (
	RunStatusQueued   RunStatus = "queued"
	RunStatusRunning  RunStatus = "running"
	RunStatusSuccess  RunStatus = "success"
	RunStatusFailed   RunStatus = "failed"
	RunStatusCanceled RunStatus = "canceled"
)

// Finished reports whether the run reached a final status.
func (s RunStatus) Finished() bool {
	return s == RunStatusSuccess || s == RunStatusFailed || s == RunStatusCanceled
}

// ImportRun tracks one import from the moment it is queued.
type ImportRun struct {
	ID          string     `gorm:"primaryKey;size:36" json:"id"`
	Source      string     `gorm:"index;size:50" json:"source"`
	Status      RunStatus  `gorm:"index;size:20" json:"status"`
	Request     string     `gorm:"type:text" json:"-"` // JSON encoded request
	Label       string     `gorm:"size:512" json:"label,omitempty"`
	Value       int        `json:"value"`
	Max         int        `json:"max"`
	Cards       int        `json:"cards"`
	Warnings    string     `gorm:"type:text" json:"-"` // newline separated
	Error       string     `gorm:"type:text" json:"error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

func (ImportRun) TableName() string {
	return "import_runs"
}

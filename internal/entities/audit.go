package entities

import "time"

type AuditEventType string

const (
	AuditEventImport   AuditEventType = "import"
	AuditEventSettings AuditEventType = "settings"
)

type AuditStatus string

const (
	AuditStatusSuccess  AuditStatus = "success"
	AuditStatusFailed   AuditStatus = "failed"
	AuditStatusCanceled AuditStatus = "canceled"
)

type AuditEvent struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	EventType   AuditEventType `gorm:"index;size:50" json:"event_type"`
	Action      string         `gorm:"size:100" json:"action"`      // e.g., "noji_import", "settings_update"
	Source      string         `gorm:"index;size:50" json:"source"` // import source, empty for other events
	RunID       string         `gorm:"index;size:36" json:"run_id,omitempty"`
	Description string         `gorm:"size:500" json:"description"` // Human-readable summary
	Cards       int            `json:"cards"`
	Warnings    int            `json:"warnings"`
	Metadata    string         `gorm:"type:text" json:"metadata,omitempty"` // JSON for extra data
	Status      AuditStatus    `gorm:"size:20" json:"status"`
	ErrorMsg    string         `gorm:"size:500" json:"error_msg,omitempty"`
	CreatedAt   time.Time      `gorm:"index" json:"created_at"`
}

func (AuditEvent) TableName() string {
	return "audit_events"
}

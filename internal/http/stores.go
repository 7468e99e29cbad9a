package http

import (
	"context"

	"github.com/abdnh/anki-copycat-importer/internal/database"
	"github.com/abdnh/anki-copycat-importer/internal/entities"
	"github.com/abdnh/anki-copycat-importer/internal/services"
	"github.com/abdnh/anki-copycat-importer/internal/settingsstore"
)

// ImportRunner starts and tracks imports.
type ImportRunner interface {
	Start(ctx context.Context, req services.Request) (string, error)
	Status(runID string) (services.Status, error)
	Cancel(runID string) error
	RecentRuns(limit int) ([]services.Status, error)
}

// ImporterSettings reads and changes the saved importer settings.
type ImporterSettings interface {
	GetImporterSettingsInfo() (settingsstore.ImporterSettingsInfo, error)
	UpdateImporterSettings(u settingsstore.ImporterSettingsUpdate) error
}

// AuditLog lists audit events and records settings changes.
type AuditLog interface {
	GetEvents(limit, offset int) ([]entities.AuditEvent, int64, error)
	GetImportEvents(source string, limit, offset int) ([]entities.AuditEvent, int64, error)
	LogSettings(ctx context.Context, action, description string)
}

// CollectionStats summarizes the target collection.
type CollectionStats interface {
	Counts(ctx context.Context) (database.Counts, error)
}

// MaintenanceTrigger queues a maintenance pass.
type MaintenanceTrigger interface {
	RunNow() (string, error)
}

package http

import (
	"github.com/abdnh/anki-copycat-importer/internal/auth"
	"github.com/abdnh/anki-copycat-importer/internal/database"
	"github.com/abdnh/anki-copycat-importer/internal/tasks"
)

// RouterConfig contains all dependencies and configuration needed
// to create the HTTP router.
type RouterConfig struct {
	// Core dependencies
	Database   *database.Database
	Imports    ImportRunner
	Settings   ImporterSettings
	Audit      AuditLog
	Collection CollectionStats

	// Authentication (optional)
	Auth *auth.Middleware

	// Uploads of AnkiApp files
	UploadDir     string
	MaxUploadSize int64

	// Task queue client and maintenance (optional)
	TaskClient  *tasks.Client
	Maintenance MaintenanceTrigger

	// Application info
	Version string
}

package interfaces

// This file contains compile-time interface implementation checks for
// dependencies wired across packages. Checks between a type and an
// interface of its own package stay next to the type.
//
// To verify all checks pass: go build ./internal/interfaces/...

import (
	"github.com/abdnh/anki-copycat-importer/internal/algoapp"
	"github.com/abdnh/anki-copycat-importer/internal/ankiapp"
	"github.com/abdnh/anki-copycat-importer/internal/audit"
	"github.com/abdnh/anki-copycat-importer/internal/collection"
	"github.com/abdnh/anki-copycat-importer/internal/database/runs"
	"github.com/abdnh/anki-copycat-importer/internal/database/tags"
	"github.com/abdnh/anki-copycat-importer/internal/http"
	"github.com/abdnh/anki-copycat-importer/internal/importers"
	"github.com/abdnh/anki-copycat-importer/internal/media"
	"github.com/abdnh/anki-copycat-importer/internal/noji"
	"github.com/abdnh/anki-copycat-importer/internal/scheduler"
	"github.com/abdnh/anki-copycat-importer/internal/services"
	"github.com/abdnh/anki-copycat-importer/internal/settingsstore"
	"github.com/abdnh/anki-copycat-importer/internal/tasks"
)

// =============================================================================
// Importers
// =============================================================================

var _ importers.Importer = (*ankiapp.Importer)(nil)
var _ importers.Importer = (*algoapp.Importer)(nil)
var _ importers.Importer = (*noji.Importer)(nil)

// Target collection
var _ importers.Collection = (*collection.Collection)(nil)
var _ media.Store = (*collection.Collection)(nil)

// Progress reporters
var _ importers.Progress = (*services.RunState)(nil)

// =============================================================================
// Import Service
// =============================================================================

var _ services.OptionsProvider = (*settingsstore.SettingsStore)(nil)
var _ services.ImportAuditor = (*audit.Service)(nil)
var _ services.Enqueuer = (*tasks.Client)(nil)

// =============================================================================
// Background Tasks
// =============================================================================

var _ tasks.ImportRunner = (*services.ImportService)(nil)
var _ tasks.AuditEventCleaner = (*audit.Service)(nil)
var _ tasks.OrphanTagsCleaner = (*tags.Repository)(nil)
var _ tasks.RunCleaner = (*runs.Repository)(nil)
var _ scheduler.Enqueuer = (*tasks.Client)(nil)

// =============================================================================
// HTTP API
// =============================================================================

var _ http.ImportRunner = (*services.ImportService)(nil)
var _ http.ImporterSettings = (*settingsstore.SettingsStore)(nil)
var _ http.AuditLog = (*audit.Service)(nil)
var _ http.CollectionStats = (*collection.Collection)(nil)
var _ http.MaintenanceTrigger = (*scheduler.MaintenanceScheduler)(nil)

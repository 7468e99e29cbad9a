package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/abdnh/anki-copycat-importer/internal/database/audit"
	"github.com/abdnh/anki-copycat-importer/internal/entities"
	"github.com/abdnh/anki-copycat-importer/internal/importers"
	"github.com/abdnh/anki-copycat-importer/internal/logutil"
)

// maxWarningsKept is the number of warnings stored in an import event's
// metadata.
const maxWarningsKept = 20

// Service provides high-level audit logging functionality.
type Service struct {
	repo *audit.Repository
}

// NewService creates a new audit service.
func NewService(repo *audit.Repository) *Service {
	return &Service{repo: repo}
}

// Log records a generic audit event.
func (s *Service) Log(event *entities.AuditEvent) error {
	return s.repo.LogEvent(event)
}

// logOrWarn records event and logs failures instead of returning them.
func (s *Service) logOrWarn(ctx context.Context, event *entities.AuditEvent) {
	if err := s.repo.LogEvent(event); err != nil {
		logutil.GetLogger(ctx).Error("failed to log audit event",
			zap.String("action", event.Action),
			zap.Error(err))
	}
}

// ImportStatus maps the result of an import to an audit status.
func ImportStatus(err error) entities.AuditStatus {
	switch {
	case err == nil:
		return entities.AuditStatusSuccess
	case errors.Is(err, importers.ErrCanceled):
		return entities.AuditStatusCanceled
	default:
		return entities.AuditStatusFailed
	}
}

// LogImport records the outcome of an import run.
func (s *Service) LogImport(ctx context.Context, runID, source string, count int, warnings []string, err error) {
	status := ImportStatus(err)
	event := &entities.AuditEvent{
		EventType: entities.AuditEventImport,
		Action:    source + "_import",
		Source:    source,
		RunID:     runID,
		Cards:     count,
		Warnings:  len(warnings),
		Status:    status,
	}

	switch status {
	case entities.AuditStatusSuccess:
		event.Description = fmt.Sprintf("Imported %d cards from %s", count, source)
	case entities.AuditStatusCanceled:
		event.Description = fmt.Sprintf("Import from %s canceled after %d cards", source, count)
	default:
		event.Description = fmt.Sprintf("Import from %s failed after %d cards", source, count)
		event.ErrorMsg = truncate(err.Error(), 500)
	}

	if len(warnings) > 0 {
		kept := warnings
		if len(kept) > maxWarningsKept {
			kept = kept[:maxWarningsKept]
		}
		metadata := map[string]any{"warnings": kept}
		if mdBytes, e := json.Marshal(metadata); e == nil {
			event.Metadata = string(mdBytes)
		}
	}

	s.logOrWarn(ctx, event)
}

// LogSettings records a settings change event.
func (s *Service) LogSettings(ctx context.Context, action, description string) {
	event := &entities.AuditEvent{
		EventType:   entities.AuditEventSettings,
		Action:      action,
		Description: description,
		Status:      entities.AuditStatusSuccess,
	}

	s.logOrWarn(ctx, event)
}

// GetEvents retrieves paginated audit events.
func (s *Service) GetEvents(limit, offset int) ([]entities.AuditEvent, int64, error) {
	return s.repo.GetEvents(limit, offset)
}

// GetImportEvents retrieves import events, of one source when source is not
// empty.
func (s *Service) GetImportEvents(source string, limit, offset int) ([]entities.AuditEvent, int64, error) {
	if source == "" {
		return s.repo.GetEventsByType(entities.AuditEventImport, limit, offset)
	}
	return s.repo.GetEventsBySource(source, limit, offset)
}

// DeleteOldEvents removes events older than the specified duration.
func (s *Service) DeleteOldEvents(retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention)
	return s.repo.DeleteOldEvents(cutoff)
}

// truncate shortens a string to max length.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

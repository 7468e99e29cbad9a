package http

import (
	"context"
	"sync"

	"github.com/abdnh/anki-copycat-importer/internal/database"
	"github.com/abdnh/anki-copycat-importer/internal/entities"
	"github.com/abdnh/anki-copycat-importer/internal/services"
	"github.com/abdnh/anki-copycat-importer/internal/settingsstore"
)

// StubImportRunner records started requests.
type StubImportRunner struct {
	mu        sync.Mutex
	Started   []services.Request
	StartErr  error
	Statuses  map[string]services.Status
	CancelErr error
	Canceled  []string
}

func (s *StubImportRunner) Start(_ context.Context, req services.Request) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.StartErr != nil {
		return "", s.StartErr
	}
	s.Started = append(s.Started, req)
	return "run-1", nil
}

func (s *StubImportRunner) Status(runID string) (services.Status, error) {
	if st, ok := s.Statuses[runID]; ok {
		return st, nil
	}
	return services.Status{}, services.ErrRunNotFound
}

func (s *StubImportRunner) Cancel(runID string) error {
	if s.CancelErr != nil {
		return s.CancelErr
	}
	if _, ok := s.Statuses[runID]; !ok {
		return services.ErrRunNotFound
	}
	s.Canceled = append(s.Canceled, runID)
	return nil
}

func (s *StubImportRunner) RecentRuns(int) ([]services.Status, error) {
	out := make([]services.Status, 0, len(s.Statuses))
	for _, st := range s.Statuses {
		out = append(out, st)
	}
	return out, nil
}

// StubSettings keeps the last update.
type StubSettings struct {
	Info    settingsstore.ImporterSettingsInfo
	Updated *settingsstore.ImporterSettingsUpdate
}

func (s *StubSettings) GetImporterSettingsInfo() (settingsstore.ImporterSettingsInfo, error) {
	return s.Info, nil
}

func (s *StubSettings) UpdateImporterSettings(u settingsstore.ImporterSettingsUpdate) error {
	s.Updated = &u
	if u.RemoteMedia != nil {
		s.Info.RemoteMedia = settingsstore.BoolInfo{Value: *u.RemoteMedia, Source: settingsstore.SourceDatabase}
	}
	return nil
}

// StubAudit records settings changes and serves fixed events.
type StubAudit struct {
	Events   []entities.AuditEvent
	Settings []string
	Source   string
}

func (s *StubAudit) GetEvents(limit, offset int) ([]entities.AuditEvent, int64, error) {
	return s.Events, int64(len(s.Events)), nil
}

func (s *StubAudit) GetImportEvents(source string, limit, offset int) ([]entities.AuditEvent, int64, error) {
	s.Source = source
	return s.Events, int64(len(s.Events)), nil
}

func (s *StubAudit) LogSettings(_ context.Context, action, description string) {
	s.Settings = append(s.Settings, action+": "+description)
}

type StubCollection struct {
	counts database.Counts
}

func (s StubCollection) Counts(context.Context) (database.Counts, error) {
	return s.counts, nil
}

package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/abdnh/anki-copycat-importer/internal/config"
	"github.com/abdnh/anki-copycat-importer/internal/database/runs"
	"github.com/abdnh/anki-copycat-importer/internal/entities"
	"github.com/abdnh/anki-copycat-importer/internal/importers"
	"github.com/abdnh/anki-copycat-importer/internal/logutil"
)

var (
	ErrImportRunning = errors.New("an import is already running")
	ErrRunNotFound   = errors.New("import run not found")
	ErrRunFinished   = errors.New("import run already finished")
)

// OptionsProvider returns the importer options snapshot of a source.
type OptionsProvider interface {
	ImporterOptions(source config.Source) (config.ImporterOptions, error)
}

// ImportAuditor records the outcome of import runs.
type ImportAuditor interface {
	LogImport(ctx context.Context, runID, source string, count int, warnings []string, err error)
}

// Enqueuer hands a queued run to a background worker, which calls Run.
type Enqueuer interface {
	EnqueueImport(ctx context.Context, runID string) error
}

// Result is the outcome of a finished run.
type Result struct {
	RunID    string
	Source   config.Source
	Cards    int
	Warnings []string
	Status   entities.RunStatus
	Err      error
}

// ImportService runs imports into the collection, one at a time. Runs are
// recorded in the database and audited.
type ImportService struct {
	runs       *runs.Repository
	settings   OptionsProvider
	auditor    ImportAuditor
	collection importers.Collection
	factories  map[config.Source]ImporterFactory
	dataDir    string
	enqueuer   Enqueuer
	now        func() time.Time

	mu     sync.Mutex
	active map[string]*RunState
}

type Option func(*ImportService)

// WithFactories replaces the importer factories.
func WithFactories(f map[config.Source]ImporterFactory) Option {
	return func(s *ImportService) { s.factories = f }
}

// WithDefaultDataDir sets the AnkiApp data folder imported when a request
// names no input.
func WithDefaultDataDir(dir string) Option {
	return func(s *ImportService) { s.dataDir = dir }
}

func NewImportService(db *gorm.DB, settings OptionsProvider, auditor ImportAuditor, collection importers.Collection, opts ...Option) *ImportService {
	s := &ImportService{
		runs:       runs.NewRepository(db),
		settings:   settings,
		auditor:    auditor,
		collection: collection,
		factories:  DefaultFactories(),
		now:        time.Now,
		active:     make(map[string]*RunState),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// SetEnqueuer makes Start hand runs to e. Without one, Start runs the import
// in a goroutine.
func (s *ImportService) SetEnqueuer(e Enqueuer) {
	s.mu.Lock()
	s.enqueuer = e
	s.mu.Unlock()
}

// Recover fails runs left unfinished by a previous process.
func (s *ImportService) Recover(ctx context.Context) error {
	n, err := s.runs.FailUnfinishedRuns("interrupted by a restart")
	if err != nil {
		return fmt.Errorf("failed to recover import runs: %w", err)
	}
	if n > 0 {
		logutil.GetLogger(ctx).Warn("marked interrupted import runs as failed", zap.Int64("count", n))
	}
	return nil
}

func (s *ImportService) withDefaults(req Request) Request {
	if req.Source == config.SourceAnkiApp && len(req.Paths) == 0 && s.dataDir != "" {
		req.Paths = []PathRequest{{Path: s.dataDir, Type: importers.DataDir.String()}}
	}
	return req
}

// register records a new run. ErrImportRunning is returned while another
// run is queued or running.
func (s *ImportService) register(req Request) (*RunState, error) {
	req = s.withDefaults(req)
	if err := req.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.active) > 0 {
		return nil, ErrImportRunning
	}
	if _, err := s.runs.GetActiveRun(); err == nil {
		return nil, ErrImportRunning
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check active runs: %w", err)
	}

	state := newRunState(uuid.NewString(), req, s.now())
	stored, err := json.Marshal(req.redacted())
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}
	err = s.runs.CreateRun(&entities.ImportRun{
		ID:        state.id,
		Source:    string(req.Source),
		Status:    entities.RunStatusQueued,
		Request:   string(stored),
		CreatedAt: state.created,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record import run: %w", err)
	}
	s.active[state.id] = state
	return state, nil
}

// Start queues an import and returns its run ID. The import runs in the
// background.
func (s *ImportService) Start(ctx context.Context, req Request) (string, error) {
	state, err := s.register(req)
	if err != nil {
		return "", err
	}
	log := logutil.GetLogger(ctx).With(zap.String("run_id", state.id), zap.String("source", string(req.Source)))

	s.mu.Lock()
	enqueuer := s.enqueuer
	s.mu.Unlock()

	if enqueuer != nil {
		if err := enqueuer.EnqueueImport(ctx, state.id); err != nil {
			s.finish(ctx, state, 0, nil, fmt.Errorf("failed to queue import: %w", err))
			return "", fmt.Errorf("failed to queue import: %w", err)
		}
		log.Info("import queued")
		return state.id, nil
	}

	runCtx := logutil.WithLogger(context.Background(), log)
	go func() {
		if err := s.Run(runCtx, state.id); err != nil {
			log.Error("import run failed to start", zap.Error(err))
		}
	}()
	log.Info("import started")
	return state.id, nil
}

// Run executes a queued run. The outcome of the import is recorded in the
// run; the returned error only reports runs that could not be executed.
func (s *ImportService) Run(ctx context.Context, runID string) error {
	s.mu.Lock()
	state, ok := s.active[runID]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	s.execute(ctx, state, state)
	return nil
}

// Execute runs req in the foreground, reporting to progress. It is the
// entry point of the command line.
func (s *ImportService) Execute(ctx context.Context, req Request, progress importers.Progress) (*Result, error) {
	if progress == nil {
		progress = importers.NopProgress{}
	}
	state, err := s.register(req)
	if err != nil {
		return nil, err
	}
	return s.execute(ctx, state, progress), nil
}

func (s *ImportService) execute(ctx context.Context, state *RunState, progress importers.Progress) *Result {
	req := state.request
	ctx = logutil.With(ctx, zap.String("run_id", state.id), zap.String("source", string(req.Source)))
	log := logutil.GetLogger(ctx)

	state.setStatus(entities.RunStatusRunning)
	if err := s.runs.StartRun(state.id); err != nil {
		log.Error("failed to mark run as running", zap.Error(err))
	}

	count, warnings, err := s.importWith(ctx, req, progress)
	if err != nil && !errors.Is(err, importers.ErrCanceled) {
		log.Error("import failed", zap.Error(err), zap.Int("cards", count))
	} else {
		log.Info("import finished", zap.Int("cards", count), zap.Int("warnings", len(warnings)), zap.Bool("canceled", err != nil))
	}
	return s.finish(ctx, state, count, warnings, err)
}

func (s *ImportService) importWith(ctx context.Context, req Request, progress importers.Progress) (int, []string, error) {
	opts, err := s.settings.ImporterOptions(req.Source)
	if err != nil {
		return 0, nil, err
	}
	req.apply(&opts)

	factory, ok := s.factories[req.Source]
	if !ok {
		return 0, nil, importers.Errorf("Unknown import source %q.", req.Source)
	}
	imp, err := factory(opts, req, s.collection, progress)
	if err != nil {
		return 0, nil, err
	}
	count, err := imp.Import(ctx)
	return count, imp.Warnings(), err
}

func runStatus(err error) entities.RunStatus {
	switch {
	case err == nil:
		return entities.RunStatusSuccess
	case errors.Is(err, importers.ErrCanceled):
		return entities.RunStatusCanceled
	default:
		return entities.RunStatusFailed
	}
}

func (s *ImportService) finish(ctx context.Context, state *RunState, count int, warnings []string, err error) *Result {
	status := runStatus(err)
	errMsg := ""
	if status == entities.RunStatusFailed {
		errMsg = err.Error()
	}
	if e := s.runs.CompleteRun(state.id, status, count, strings.Join(warnings, "\n"), errMsg); e != nil {
		logutil.GetLogger(ctx).Error("failed to record run outcome", zap.Error(e))
	}
	if s.auditor != nil {
		s.auditor.LogImport(ctx, state.id, string(state.request.Source), count, warnings, err)
	}

	for _, path := range state.request.TempFiles {
		if e := os.RemoveAll(path); e != nil {
			logutil.GetLogger(ctx).Warn("failed to remove upload", zap.String("path", path), zap.Error(e))
		}
	}

	state.setStatus(status)
	s.mu.Lock()
	delete(s.active, state.id)
	s.mu.Unlock()

	return &Result{
		RunID:    state.id,
		Source:   state.request.Source,
		Cards:    count,
		Warnings: warnings,
		Status:   status,
		Err:      err,
	}
}

// Status returns the state of a run: live progress while it is active,
// the recorded outcome afterwards.
func (s *ImportService) Status(runID string) (Status, error) {
	s.mu.Lock()
	state, ok := s.active[runID]
	s.mu.Unlock()
	if ok {
		return state.snapshot(), nil
	}
	run, err := s.runs.GetRun(runID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Status{}, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return Status{}, fmt.Errorf("failed to get run %s: %w", runID, err)
	}
	return statusFromRun(run), nil
}

// Cancel asks a queued or running import to stop.
func (s *ImportService) Cancel(runID string) error {
	s.mu.Lock()
	state, ok := s.active[runID]
	s.mu.Unlock()
	if ok {
		state.RequestCancel()
		return nil
	}
	if _, err := s.Status(runID); err != nil {
		return err
	}
	return ErrRunFinished
}

// RecentRuns returns the latest runs, most recent first.
func (s *ImportService) RecentRuns(limit int) ([]Status, error) {
	list, err := s.runs.GetRecentRuns(limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	out := make([]Status, len(list))
	for i := range list {
		out[i] = statusFromRun(&list[i])
	}
	return out, nil
}

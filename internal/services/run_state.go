package services

import (
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/abdnh/anki-copycat-importer/internal/entities"
	"github.com/abdnh/anki-copycat-importer/internal/importers"
)

// Status is the observable state of an import run.
type Status struct {
	ID          string             `json:"id"`
	Source      string             `json:"source"`
	Status      entities.RunStatus `json:"status"`
	Label       string             `json:"label,omitempty"`
	Value       int                `json:"value"`
	Max         int                `json:"max"`
	Cards       int                `json:"cards"`
	Warnings    []string           `json:"warnings"`
	Error       string             `json:"error,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
	CompletedAt *time.Time         `json:"completed_at,omitempty"`
}

func statusFromRun(run *entities.ImportRun) Status {
	st := Status{
		ID:          run.ID,
		Source:      run.Source,
		Status:      run.Status,
		Label:       run.Label,
		Value:       run.Value,
		Max:         run.Max,
		Cards:       run.Cards,
		Error:       run.Error,
		CreatedAt:   run.CreatedAt,
		CompletedAt: run.CompletedAt,
		Warnings:    []string{},
	}
	if run.Warnings != "" {
		st.Warnings = strings.Split(run.Warnings, "\n")
	}
	return st
}

// RunState is the in-memory state of a queued or running import. It is the
// progress reporter of the importer.
type RunState struct {
	id      string
	request Request
	created time.Time

	cancel atomic.Bool

	mu     sync.Mutex
	status entities.RunStatus
	label  string
	value  int
	max    int
}

func newRunState(id string, req Request, created time.Time) *RunState {
	return &RunState{id: id, request: req, created: created, status: entities.RunStatusQueued}
}

func (r *RunState) Update(label string, value, max int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.label = label
	r.value = value
	r.max = max
}

func (r *RunState) WantCancel() bool {
	return r.cancel.Load()
}

// RequestCancel asks the importer to stop at its next check.
func (r *RunState) RequestCancel() {
	r.cancel.Store(true)
}

func (r *RunState) setStatus(s entities.RunStatus) {
	r.mu.Lock()
	r.status = s
	r.mu.Unlock()
}

func (r *RunState) snapshot() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Status{
		ID:        r.id,
		Source:    string(r.request.Source),
		Status:    r.status,
		Label:     r.label,
		Value:     r.value,
		Max:       r.max,
		Warnings:  []string{},
		CreatedAt: r.created,
	}
}

var _ importers.Progress = (*RunState)(nil)

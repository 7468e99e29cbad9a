package importers

import "time"

// DefaultProgressInterval is the minimum time between two card progress
// updates.
const DefaultProgressInterval = 100 * time.Millisecond

// Progress receives status updates and is polled for cancellation. A zero
// max means the amount of work is unknown.
type Progress interface {
	Update(label string, value, max int)
	WantCancel() bool
}

// NopProgress ignores updates and never cancels.
type NopProgress struct{}

func (NopProgress) Update(string, int, int) {}
func (NopProgress) WantCancel() bool        { return false }

// Session wraps a Progress for one run: it turns cancellation requests into
// ErrCanceled and throttles frequent updates.
type Session struct {
	progress Progress
	interval time.Duration
	last     time.Time
	now      func() time.Time
}

func NewSession(p Progress, interval time.Duration) *Session {
	if p == nil {
		p = NopProgress{}
	}
	if interval <= 0 {
		interval = DefaultProgressInterval
	}
	return &Session{progress: p, interval: interval, now: time.Now}
}

// CheckCancel returns ErrCanceled if the user asked to stop.
func (s *Session) CheckCancel() error {
	if s.progress.WantCancel() {
		return ErrCanceled
	}
	return nil
}

// Step reports the start of a new state and checks for cancellation.
func (s *Session) Step(label string) error {
	s.progress.Update(label, 0, 0)
	s.last = s.now()
	return s.CheckCancel()
}

// Tick reports progress within a state. Updates closer together than the
// interval are dropped, except for the first and the last one.
func (s *Session) Tick(label string, value, max int) error {
	now := s.now()
	if value <= 1 || value >= max || now.Sub(s.last) >= s.interval {
		s.progress.Update(label, value, max)
		s.last = now
	}
	return s.CheckCancel()
}

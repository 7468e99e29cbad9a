package cli

import (
	"io"
	"os"
	"sync"
	"sync/atomic"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"

	"github.com/abdnh/anki-copycat-importer/internal/importers"
)

// progressReporter shows import progress as a bar on terminals and as log
// lines elsewhere. Cancellation is requested by RequestCancel.
type progressReporter struct {
	out         io.Writer
	log         *zap.Logger
	interactive bool
	canceled    atomic.Bool

	mu    sync.Mutex
	bar   *progressbar.ProgressBar
	label string
	max   int
}

func newProgressReporter(out io.Writer, log *zap.Logger) *progressReporter {
	return &progressReporter{out: out, log: log, interactive: isTerminal(out)}
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func (p *progressReporter) Update(label string, value, max int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.interactive {
		if label != p.label {
			p.log.Info(label, zap.Int("value", value), zap.Int("max", max))
		}
		p.label = label
		return
	}

	if p.bar == nil || max != p.max {
		p.finishBar()
		p.bar = p.newBar(max)
		p.max = max
	}
	if label != p.label {
		p.bar.Describe(label)
		p.label = label
	}
	if max > 0 {
		_ = p.bar.Set(value)
	} else {
		_ = p.bar.Add(1)
	}
}

func (p *progressReporter) newBar(max int) *progressbar.ProgressBar {
	if max <= 0 {
		max = -1
	}
	return progressbar.NewOptions(max,
		progressbar.OptionSetWriter(p.out),
		progressbar.OptionSetDescription(p.label),
		progressbar.OptionShowCount(),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionClearOnFinish(),
	)
}

func (p *progressReporter) finishBar() {
	if p.bar != nil {
		_ = p.bar.Finish()
		p.bar = nil
	}
}

// Finish clears the bar.
func (p *progressReporter) Finish() {
	p.mu.Lock()
	p.finishBar()
	p.mu.Unlock()
}

func (p *progressReporter) WantCancel() bool { return p.canceled.Load() }

func (p *progressReporter) RequestCancel() { p.canceled.Store(true) }

var _ importers.Progress = (*progressReporter)(nil)

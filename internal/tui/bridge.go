package tui

import (
	"bytes"
	"io"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	apperrors "github.com/agbru/integcalc/internal/errors"
	"github.com/agbru/integcalc/internal/format"
	"github.com/agbru/integcalc/internal/orchestration"
	"github.com/agbru/integcalc/internal/progress"
)

// programRef survives bubbletea's model copies so the bridge goroutines
// can always reach the running program.
type programRef struct {
	mu      sync.RWMutex
	program *tea.Program
}

func (r *programRef) SetProgram(p *tea.Program) {
	r.mu.Lock()
	r.program = p
	r.mu.Unlock()
}

// Send forwards msg to the program. It is a no-op before SetProgram.
func (r *programRef) Send(msg tea.Msg) {
	r.mu.RLock()
	p := r.program
	r.mu.RUnlock()
	if p != nil {
		p.Send(msg)
	}
}

// sender is the part of programRef the bridges need.
type sender interface {
	Send(msg tea.Msg)
}

// TUIProgressReporter turns iteration updates into ProgressMsg.
type TUIProgressReporter struct {
	ref           sender
	maxIterations int
}

var _ orchestration.ProgressReporter = (*TUIProgressReporter)(nil)

// DisplayProgress drains updates until the channel closes, then sends
// ProgressDoneMsg.
func (t *TUIProgressReporter) DisplayProgress(wg *sync.WaitGroup, updates <-chan progress.IterationUpdate, runs []string, _ io.Writer) {
	defer wg.Done()

	tracker := orchestration.NewConvergenceTracker(len(runs), t.maxIterations)
	if tracker == nil {
		orchestration.DrainChannel(updates)
		return
	}

	for u := range updates {
		tp := tracker.Update(u)
		name := ""
		if u.RunIndex >= 0 && u.RunIndex < len(runs) {
			name = runs[u.RunIndex]
		}
		t.ref.Send(ProgressMsg{
			Update:          tp.Update,
			Run:             name,
			Fraction:        tp.Fraction,
			AverageFraction: tp.AverageFraction,
			NextLevel:       tp.NextLevel,
		})
	}
	t.ref.Send(ProgressDoneMsg{})
}

// TUIResultPresenter sends results to the dashboard instead of stdout.
type TUIResultPresenter struct {
	ref sender
}

var (
	_ orchestration.ResultPresenter   = (*TUIResultPresenter)(nil)
	_ orchestration.DurationFormatter = (*TUIResultPresenter)(nil)
	_ orchestration.ErrorHandler      = (*TUIResultPresenter)(nil)
)

func (t *TUIResultPresenter) PresentComparisonTable(results []orchestration.RunResult, _ io.Writer) {
	t.ref.Send(ComparisonResultsMsg{Results: results})
}

func (t *TUIResultPresenter) PresentResult(result orchestration.RunResult, opts orchestration.PresentationOptions, _ io.Writer) {
	t.ref.Send(FinalResultMsg{
		Result:  result,
		Verbose: opts.Verbose,
		Details: opts.Details,
	})
}

func (t *TUIResultPresenter) FormatDuration(d time.Duration) string {
	return format.FormatExecutionDuration(d)
}

// HandleError reports err to the dashboard and returns its exit code.
func (t *TUIResultPresenter) HandleError(err error, duration time.Duration, _ io.Writer) int {
	t.ref.Send(ErrorMsg{Err: err, Duration: duration})
	return apperrors.ExitCodeFor(err)
}

// statusWriter forwards each complete, non-blank line written to it as a
// StatusLineMsg. It receives the session summary.
type statusWriter struct {
	ref sender
	mu  sync.Mutex
	buf bytes.Buffer
}

func (w *statusWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.buf.Write(p)
	for {
		line, err := w.buf.ReadString('\n')
		if err != nil {
			// Incomplete line: keep it for the next write.
			w.buf.Reset()
			w.buf.WriteString(line)
			break
		}
		if s := strings.TrimSpace(line); s != "" {
			w.ref.Send(StatusLineMsg{Line: s})
		}
	}
	return len(p), nil
}

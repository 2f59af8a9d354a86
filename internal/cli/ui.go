//go:generate mockgen -source=ui.go -destination=mocks/mock_ui.go -package=mocks

package cli

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/briandowns/spinner"

	"github.com/agbru/integcalc/internal/format"
	"github.com/agbru/integcalc/internal/orchestration"
	"github.com/agbru/integcalc/internal/progress"
	"github.com/agbru/integcalc/internal/ui"
)

const (
	// ProgressRefreshRate defines the refresh frequency of the spinner.
	ProgressRefreshRate = 200 * time.Millisecond
	// ProgressBarWidth defines the width in characters of the progress bar.
	ProgressBarWidth = 20
)

// Spinner is an interface that abstracts the behavior of a terminal spinner.
// This allows for the decoupling of the `DisplayProgress` function from a
// specific spinner implementation, facilitating easier testing and maintenance.
type Spinner interface {
	// Start begins the spinner animation.
	Start()
	// Stop halts the spinner animation.
	Stop()
	// UpdateSuffix sets the text that is displayed after the spinner.
	//
	// Parameters:
	//   - suffix: The text string to display.
	UpdateSuffix(suffix string)
}

// realSpinner adapts `spinner.Spinner` to the `Spinner` interface.
type realSpinner struct {
	s *spinner.Spinner
}

// Start begins the spinner animation.
func (rs *realSpinner) Start() {
	rs.s.Start()
}

// Stop halts the spinner animation.
func (rs *realSpinner) Stop() {
	rs.s.Stop()
}

// UpdateSuffix sets the text that is displayed after the spinner.
func (rs *realSpinner) UpdateSuffix(suffix string) {
	rs.s.Lock()
	rs.s.Suffix = suffix
	rs.s.Unlock()
}

var newSpinner = func(options ...spinner.Option) Spinner {
	s := spinner.New(spinner.CharSets[11], ProgressRefreshRate, options...)
	return &realSpinner{s}
}

// DisplayProgress shows a spinner whose suffix tracks the latest resolution
// level: the run, its iteration budget as a bar, the step count and the
// relative error between the last two estimates. With several runs the bar
// shows the average over all runs.
//
// It consumes updates until the channel is closed, then stops the spinner
// and calls wg.Done.
//
// Parameters:
//   - wg: Signalled when the display is complete.
//   - updates: Iteration updates from every run.
//   - runs: Run labels indexed by RunIndex.
//   - maxIterations: The iteration cap, used to scale the bar.
//   - out: The writer for the spinner.
func DisplayProgress(wg *sync.WaitGroup, updates <-chan progress.IterationUpdate, runs []string, maxIterations int, out io.Writer) {
	defer wg.Done()
	tracker := orchestration.NewConvergenceTracker(len(runs), maxIterations)
	if tracker == nil {
		orchestration.DrainChannel(updates)
		return
	}

	s := newSpinner(spinner.WithWriter(out))
	s.UpdateSuffix(" Starting...")
	s.Start()
	defer s.Stop()

	for u := range updates {
		tp := tracker.Update(u)
		s.UpdateSuffix(progressSuffix(tp, runs, tracker.IsMultiRun()))
	}
}

// progressSuffix renders one spinner line.
func progressSuffix(tp orchestration.TrackedProgress, runs []string, multi bool) string {
	u := tp.Update
	name := ""
	if u.RunIndex >= 0 && u.RunIndex < len(runs) {
		name = runs[u.RunIndex]
	}
	bar := tp.Fraction
	label := name
	if multi {
		bar = tp.AverageFraction
		label = fmt.Sprintf("%d runs, latest %s", len(runs), name)
	}
	return fmt.Sprintf(" %s [%s] level %d, %s steps, rel %s",
		label, progressBar(bar, ProgressBarWidth), u.Iteration,
		format.FormatSteps(u.Steps), format.FormatError(u.RelError))
}

// DisplayIterationLog prints one line per resolution level instead of a
// spinner: the estimate, the previous estimate, the absolute and relative
// differences and the step count. Runs are prefixed by their label when
// there are several.
func DisplayIterationLog(wg *sync.WaitGroup, updates <-chan progress.IterationUpdate, runs []string, out io.Writer) {
	defer wg.Done()
	prev := make(map[int]float64, len(runs))
	for u := range updates {
		p, ok := prev[u.RunIndex]
		prevStr := "-"
		if ok {
			prevStr = format.FormatEstimate(p)
		}
		prefix := ""
		if len(runs) > 1 && u.RunIndex >= 0 && u.RunIndex < len(runs) {
			prefix = fmt.Sprintf("%s[%s]%s ", ui.ColorBlue(), runs[u.RunIndex], ui.ColorReset())
		}
		fmt.Fprintf(out, "%s%s %s %s %s %d\n", prefix,
			format.FormatEstimate(u.Estimate), prevStr,
			format.FormatError(u.AbsError), format.FormatError(u.RelError), u.Steps)
		prev[u.RunIndex] = u.Estimate
	}
}

// progressBar generates a string representing a textual progress bar.
//
// Parameters:
//   - progress: The normalized progress value (0.0 to 1.0).
//   - length: The total character width of the progress bar.
//
// Returns:
//   - string: A string representation of the progress bar.
func progressBar(progress float64, length int) string {
	if progress > 1.0 {
		progress = 1.0
	}
	if progress < 0.0 {
		progress = 0.0
	}
	count := int(progress * float64(length))
	var builder strings.Builder
	builder.Grow(length)
	for i := 0; i < length; i++ {
		if i < count {
			builder.WriteRune('█')
		} else {
			builder.WriteRune('░')
		}
	}
	return builder.String()
}

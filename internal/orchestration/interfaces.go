package orchestration

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/agbru/integcalc/internal/integration"
	"github.com/agbru/integcalc/internal/progress"
	"github.com/agbru/integcalc/internal/quadrature"
)

// RunSpec identifies one planned integration: a sample policy and a trial
// number. Index is its position in the plan and its progress RunIndex.
type RunSpec struct {
	Index  int
	Policy quadrature.SamplePolicy
	Trial  int
}

// Name labels the run for tables and logs, e.g. "midpoint" or
// "corner #2" when several trials are planned.
func (s RunSpec) Name(trials int) string {
	if trials <= 1 {
		return s.Policy.String()
	}
	return fmt.Sprintf("%s #%d", s.Policy, s.Trial+1)
}

// RunResult is the outcome of one planned integration. It is the shared
// domain type between orchestration and presentation.
type RunResult struct {
	RunSpec
	// Name is the display label of the run.
	Name string
	// RunID uniquely identifies the run in logs and result files.
	RunID string
	// Result is the controller's last estimate. It is meaningful even when
	// Err is a NonConvergenceError.
	Result integration.Result
	// Workers is the number of goroutines used per resolution level.
	Workers int
	// Duration is the wall-clock time of Controller.Run.
	Duration time.Duration
	// Err is nil when the run converged.
	Err error
}

// Converged reports whether the run ended in StateConverged.
func (r RunResult) Converged() bool {
	return r.Err == nil && r.Result.State == integration.StateConverged
}

// PresentationOptions configures how results are presented to the user.
type PresentationOptions struct {
	Verbose bool
	Details bool
	Config  integration.Config
}

// Integrator is the part of integration.Controller the orchestrator uses.
type Integrator interface {
	Run(ctx context.Context, f quadrature.Integrand) (integration.Result, error)
}

// IntegratorFactory builds an Integrator for one run.
type IntegratorFactory func(cfg integration.Config, opts ...integration.Option) Integrator

// DefaultIntegratorFactory builds integration.Controller values.
func DefaultIntegratorFactory(cfg integration.Config, opts ...integration.Option) Integrator {
	return integration.NewController(cfg, opts...)
}

// ProgressReporter displays iteration updates while runs are in flight.
// Implementations handle the visual representation (spinner, dashboard) while
// the orchestration layer coordinates the runs.
type ProgressReporter interface {
	// DisplayProgress consumes updates until the channel is closed, then
	// calls wg.Done.
	//
	// Parameters:
	//   - wg: Signalled when display is complete.
	//   - updates: Iteration updates from every run.
	//   - runs: The run labels, indexed by RunIndex.
	//   - out: The writer for progress output.
	DisplayProgress(wg *sync.WaitGroup, updates <-chan progress.IterationUpdate, runs []string, out io.Writer)
}

// ProgressReporterFunc is a function adapter that implements ProgressReporter.
type ProgressReporterFunc func(wg *sync.WaitGroup, updates <-chan progress.IterationUpdate, runs []string, out io.Writer)

// DisplayProgress calls the underlying function.
func (f ProgressReporterFunc) DisplayProgress(wg *sync.WaitGroup, updates <-chan progress.IterationUpdate, runs []string, out io.Writer) {
	f(wg, updates, runs, out)
}

// NullProgressReporter drains the update channel without displaying
// anything. Used in quiet mode and tests.
type NullProgressReporter struct{}

// DisplayProgress drains the channel without output.
func (NullProgressReporter) DisplayProgress(wg *sync.WaitGroup, updates <-chan progress.IterationUpdate, _ []string, _ io.Writer) {
	defer wg.Done()
	DrainChannel(updates)
}

// ResultPresenter presents run results.
type ResultPresenter interface {
	// PresentComparisonTable displays one row per run.
	PresentComparisonTable(results []RunResult, out io.Writer)

	// PresentResult displays the selected run in detail.
	PresentResult(result RunResult, opts PresentationOptions, out io.Writer)
}

// DurationFormatter formats durations for display.
type DurationFormatter interface {
	FormatDuration(d time.Duration) string
}

// ErrorHandler reports a failed run and returns its exit code.
type ErrorHandler interface {
	HandleError(err error, duration time.Duration, out io.Writer) int
}

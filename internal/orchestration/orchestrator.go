package orchestration

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/agbru/integcalc/internal/config"
	apperrors "github.com/agbru/integcalc/internal/errors"
	"github.com/agbru/integcalc/internal/integration"
	"github.com/agbru/integcalc/internal/logging"
	"github.com/agbru/integcalc/internal/metrics"
	"github.com/agbru/integcalc/internal/progress"
	"github.com/agbru/integcalc/internal/quadrature"
)

// ProgressBufferMultiplier sizes the update channel per planned level so the
// controllers never have to drop an update for a slow display.
const ProgressBufferMultiplier = 2

// ExecuteOption configures ExecuteIntegrations.
type ExecuteOption func(*executeOptions)

type executeOptions struct {
	logger    logging.Logger
	recorder  *metrics.Recorder
	observers []progress.Observer
	factory   IntegratorFactory
	integrand quadrature.Integrand
}

// WithLogger routes controller and orchestration logs to l.
func WithLogger(l logging.Logger) ExecuteOption {
	return func(o *executeOptions) { o.logger = l }
}

// WithRecorder exports every run to a Prometheus recorder.
func WithRecorder(r *metrics.Recorder) ExecuteOption {
	return func(o *executeOptions) { o.recorder = r }
}

// WithObserver adds an observer notified of every iteration update.
func WithObserver(obs progress.Observer) ExecuteOption {
	return func(o *executeOptions) { o.observers = append(o.observers, obs) }
}

// WithIntegratorFactory replaces the controller constructor.
func WithIntegratorFactory(f IntegratorFactory) ExecuteOption {
	return func(o *executeOptions) { o.factory = f }
}

// WithIntegrand replaces the benchmark integrand.
func WithIntegrand(f quadrature.Integrand) ExecuteOption {
	return func(o *executeOptions) { o.integrand = f }
}

// PlanRuns expands the configuration into one RunSpec per policy and trial,
// policies in stable order and trials consecutive.
func PlanRuns(cfg config.AppConfig) ([]RunSpec, error) {
	policies, err := cfg.SamplePolicies()
	if err != nil {
		return nil, err
	}
	trials := cfg.Repeat
	if trials < 1 {
		trials = 1
	}
	runs := make([]RunSpec, 0, len(policies)*trials)
	for _, p := range policies {
		for t := 0; t < trials; t++ {
			runs = append(runs, RunSpec{Index: len(runs), Policy: p, Trial: t})
		}
	}
	return runs, nil
}

// RunNames returns the display label of every planned run.
func RunNames(runs []RunSpec, trials int) []string {
	names := make([]string, len(runs))
	for i, s := range runs {
		names[i] = s.Name(trials)
	}
	return names
}

// ExecuteIntegrations runs every planned integration and collects the results.
//
// Each sample policy gets its own goroutine; the trials of one policy run one
// after the other in that goroutine so their timings stay comparable. Results
// are written to index-owned slots and returned in plan order.
//
// Parameters:
//   - ctx: Cancels all runs between resolution levels.
//   - cfg: The application configuration. Workers must be resolved.
//   - reporter: Displays iteration updates (NullProgressReporter for quiet mode).
//   - out: The writer for progress output.
//   - opts: Logging, metrics and test hooks.
//
// Returns:
//   - []RunResult: One result per planned run, in plan order.
func ExecuteIntegrations(ctx context.Context, cfg config.AppConfig, reporter ProgressReporter, out io.Writer, opts ...ExecuteOption) []RunResult {
	o := executeOptions{factory: DefaultIntegratorFactory, integrand: quadrature.DeJong}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logging.NewNopLogger()
	}

	runs, err := PlanRuns(cfg)
	if err != nil {
		return []RunResult{{Name: cfg.Policy, Err: err}}
	}
	icfg := cfg.ToIntegrationConfig()

	updates := make(chan progress.IterationUpdate, len(runs)*(cfg.MaxIterations+1)*ProgressBufferMultiplier)
	var displayWg sync.WaitGroup
	displayWg.Add(1)
	go reporter.DisplayProgress(&displayWg, updates, RunNames(runs, cfg.Repeat), out)

	results := make([]RunResult, len(runs))
	byPolicy := groupByPolicy(runs)

	g, gctx := errgroup.WithContext(ctx)
	for _, group := range byPolicy {
		group := group
		subject := progress.NewSubject()
		subject.Register(progress.NewChannelObserver(updates))
		subject.Register(progress.NewLoggingObserver(o.logger))
		if o.recorder != nil {
			subject.Register(o.recorder.ObserverFor(group[0].Policy.String()))
		}
		for _, obs := range o.observers {
			subject.Register(obs)
		}

		g.Go(func() error {
			for _, run := range group {
				results[run.Index] = runOne(gctx, run, cfg, icfg, subject, o)
			}
			return nil
		})
	}
	_ = g.Wait()
	close(updates)
	displayWg.Wait()

	return results
}

func groupByPolicy(runs []RunSpec) [][]RunSpec {
	var groups [][]RunSpec
	index := map[quadrature.SamplePolicy]int{}
	for _, s := range runs {
		i, ok := index[s.Policy]
		if !ok {
			i = len(groups)
			index[s.Policy] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], s)
	}
	return groups
}

func runOne(ctx context.Context, run RunSpec, cfg config.AppConfig, icfg integration.Config, subject *progress.Subject, o executeOptions) RunResult {
	runID := uuid.NewString()
	name := run.Name(cfg.Repeat)
	logger := o.logger

	ctrlOpts := append(cfg.ControllerOptions(run.Policy),
		integration.WithLogger(logger),
		integration.WithRunIndex(run.Index),
		integration.WithProgress(subject.Freeze(run.Index)),
	)
	ctrl := o.factory(icfg, ctrlOpts...)

	logger.Debug("run starting",
		logging.String("run_id", runID),
		logging.String("run", name),
		logging.Int("workers", icfg.Workers))

	start := time.Now()
	res, err := ctrl.Run(ctx, o.integrand)
	duration := time.Since(start)

	if apperrors.IsContextError(err) {
		if errors.Is(err, context.DeadlineExceeded) {
			err = apperrors.WrapError(err, "%s", apperrors.TimeoutError{Operation: name, Limit: cfg.Timeout})
		}
		logger.Info("run interrupted",
			logging.String("run_id", runID),
			logging.String("run", name),
			logging.Err(err))
	}

	if o.recorder != nil {
		o.recorder.RecordRun(run.Policy.String(), res.State.String(), duration)
	}
	logger.Info("run finished",
		logging.String("run_id", runID),
		logging.String("run", name),
		logging.String("state", res.State.String()),
		logging.Duration("duration", duration))

	return RunResult{
		RunSpec:  run,
		Name:     name,
		RunID:    runID,
		Result:   res,
		Workers:  icfg.Workers,
		Duration: duration,
		Err:      err,
	}
}

// sortResults orders converged runs first, then by duration.
func sortResults(results []RunResult) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Converged() != results[j].Converged() {
			return results[i].Converged()
		}
		return results[i].Duration < results[j].Duration
	})
}

// FindBestResult returns the fastest converged run, or nil.
func FindBestResult(results []RunResult) *RunResult {
	var best *RunResult
	for i := range results {
		if !results[i].Converged() {
			continue
		}
		if best == nil || results[i].Duration < best.Duration {
			best = &results[i]
		}
	}
	return best
}

// TrialSpread returns, per policy, the spread max-min of the converged
// estimates. Policies with fewer than two converged trials are omitted.
func TrialSpread(results []RunResult) map[quadrature.SamplePolicy]float64 {
	lo := map[quadrature.SamplePolicy]float64{}
	hi := map[quadrature.SamplePolicy]float64{}
	count := map[quadrature.SamplePolicy]int{}
	for _, r := range results {
		if !r.Converged() {
			continue
		}
		v := r.Result.Estimate
		if count[r.Policy] == 0 {
			lo[r.Policy], hi[r.Policy] = v, v
		} else {
			lo[r.Policy] = math.Min(lo[r.Policy], v)
			hi[r.Policy] = math.Max(hi[r.Policy], v)
		}
		count[r.Policy]++
	}
	spread := map[quadrature.SamplePolicy]float64{}
	for p, n := range count {
		if n > 1 {
			spread[p] = hi[p] - lo[p]
		}
	}
	return spread
}

// AnalyzeComparisonResults sorts the results, presents them and derives the
// exit code.
//
// Trials of the same policy must agree within cfg.MatchTolerance; a larger
// spread is reported as a mismatch. Corner and midpoint estimates are not
// compared with each other since their discretisation errors differ.
//
// Parameters:
//   - results: The results to analyze. The slice is sorted in place.
//   - cfg: The application configuration.
//   - presenter: Formats the table and the selected result.
//   - handler: Reports the failure when no run converged.
//   - out: The writer for the summary report.
//
// Returns:
//   - int: An exit code indicating success (0) or the type of failure.
func AnalyzeComparisonResults(results []RunResult, cfg config.AppConfig, presenter ResultPresenter, handler ErrorHandler, out io.Writer) int {
	sortResults(results)

	if len(results) > 1 {
		presenter.PresentComparisonTable(results, out)
	}

	best := FindBestResult(results)
	if best == nil {
		if len(results) > 1 {
			fmt.Fprintf(out, "\nGlobal Status: Failure. No run converged.\n")
		}
		if len(results) == 0 {
			return apperrors.ExitErrorGeneric
		}
		first := results[0]
		if first.Result.State == integration.StateNonConvergence || first.Result.State == integration.StateNumericalInstability {
			presenter.PresentResult(first, PresentationOptions{Verbose: cfg.Verbose, Details: cfg.Details, Config: cfg.ToIntegrationConfig()}, out)
		}
		return handler.HandleError(first.Err, first.Duration, out)
	}

	for policy, spread := range TrialSpread(results) {
		if spread > cfg.MatchTolerance {
			fmt.Fprintf(out, "\nGlobal Status: CRITICAL ERROR! Trials of the %s policy disagree (spread %g > %g).\n",
				policy, spread, cfg.MatchTolerance)
			return apperrors.ExitErrorMismatch
		}
	}

	if len(results) > 1 {
		converged := 0
		for _, r := range results {
			if r.Converged() {
				converged++
			}
		}
		fmt.Fprintf(out, "\nGlobal Status: Success. %d of %d runs converged; trials are consistent.\n", converged, len(results))
	}
	presenter.PresentResult(*best, PresentationOptions{Verbose: cfg.Verbose, Details: cfg.Details, Config: cfg.ToIntegrationConfig()}, out)
	return apperrors.ExitSuccess
}

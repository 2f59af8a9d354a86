package orchestration

import (
	"bytes"
	"context"
	"errors"
	"io"
	"math"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/agbru/integcalc/internal/config"
	apperrors "github.com/agbru/integcalc/internal/errors"
	"github.com/agbru/integcalc/internal/integration"
	"github.com/agbru/integcalc/internal/metrics"
	"github.com/agbru/integcalc/internal/progress"
	"github.com/agbru/integcalc/internal/quadrature"
)

// MockResultPresenter records what it was asked to present.
type MockResultPresenter struct {
	tableCalls  int
	presented   []RunResult
	handledErrs []error
}

func (m *MockResultPresenter) PresentComparisonTable(results []RunResult, out io.Writer) {
	m.tableCalls++
}

func (m *MockResultPresenter) PresentResult(result RunResult, opts PresentationOptions, out io.Writer) {
	m.presented = append(m.presented, result)
}

func (m *MockResultPresenter) HandleError(err error, duration time.Duration, out io.Writer) int {
	m.handledErrs = append(m.handledErrs, err)
	return apperrors.ExitCodeFor(err)
}

// mockIntegrator returns a canned outcome.
type mockIntegrator struct {
	res   integration.Result
	err   error
	delay time.Duration
}

func (m mockIntegrator) Run(ctx context.Context, _ quadrature.Integrand) (integration.Result, error) {
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	return m.res, m.err
}

func unitConfig() config.AppConfig {
	return config.AppConfig{
		AbsTolerance:   1e-6,
		RelTolerance:   1e-6,
		Workers:        2,
		XMin:           0,
		XMax:           1,
		YMin:           0,
		YMax:           1,
		InitialSteps:   10,
		MaxIterations:  6,
		Policy:         "midpoint",
		OnInstability:  "abort",
		Repeat:         1,
		MatchTolerance: 0.01,
		Timeout:        time.Minute,
		LogFormat:      "json",
	}
}

func TestPlanRuns(t *testing.T) {
	t.Parallel()
	cfg := unitConfig()
	cfg.Policy = config.PolicyAll
	cfg.Repeat = 2

	specs, err := PlanRuns(cfg)
	if err != nil {
		t.Fatalf("PlanRuns: %v", err)
	}
	want := []string{"corner #1", "corner #2", "midpoint #1", "midpoint #2"}
	names := RunNames(specs, cfg.Repeat)
	if strings.Join(names, ",") != strings.Join(want, ",") {
		t.Errorf("names = %v, want %v", names, want)
	}
	for i, s := range specs {
		if s.Index != i {
			t.Errorf("run %d has index %d", i, s.Index)
		}
	}

	cfg.Policy = "simpson"
	if _, err := PlanRuns(cfg); !apperrors.IsConfigError(err) {
		t.Errorf("expected ConfigError for unknown policy, got %v", err)
	}
}

func TestExecuteIntegrations_RealController(t *testing.T) {
	t.Parallel()
	cfg := unitConfig()
	cfg.Policy = config.PolicyAll
	cfg.Repeat = 2

	var received atomic.Int64
	var seenRuns sync.Map
	reporter := ProgressReporterFunc(func(wg *sync.WaitGroup, updates <-chan progress.IterationUpdate, runs []string, _ io.Writer) {
		defer wg.Done()
		if len(runs) != 4 {
			t.Errorf("reporter got %d run names, want 4", len(runs))
		}
		for u := range updates {
			received.Add(1)
			seenRuns.Store(u.RunIndex, true)
		}
	})
	rec := metrics.NewRecorder()

	results := ExecuteIntegrations(context.Background(), cfg, reporter, io.Discard,
		WithIntegrand(quadrature.Constant(1)),
		WithRecorder(rec),
	)

	if len(results) != 4 {
		t.Fatalf("got %d results, want 4", len(results))
	}
	ids := map[string]bool{}
	for i, r := range results {
		if r.Index != i {
			t.Errorf("result %d carries index %d", i, r.Index)
		}
		if !r.Converged() {
			t.Errorf("%s did not converge: %v", r.Name, r.Err)
		}
		if math.Abs(r.Result.Estimate-1) > 1e-9 {
			t.Errorf("%s estimate = %v", r.Name, r.Result.Estimate)
		}
		if r.RunID == "" || ids[r.RunID] {
			t.Errorf("%s has empty or duplicate run id %q", r.Name, r.RunID)
		}
		ids[r.RunID] = true
		if r.Workers != 2 {
			t.Errorf("%s workers = %d", r.Name, r.Workers)
		}
	}
	if received.Load() < 8 {
		t.Errorf("reporter received %d updates, want at least two per run", received.Load())
	}
	for i := 0; i < 4; i++ {
		if _, ok := seenRuns.Load(i); !ok {
			t.Errorf("no update for run %d", i)
		}
	}
}

func TestExecuteIntegrations_MockFactory(t *testing.T) {
	t.Parallel()
	cfg := unitConfig()
	cfg.Policy = config.PolicyAll

	nonConv := apperrors.NonConvergenceError{Iterations: 6, Steps: 640}
	factory := func(icfg integration.Config, opts ...integration.Option) Integrator {
		// Corner is planned first and fails; midpoint converges.
		if len(opts) > 0 && integration.NewController(icfg, opts...).Policy() == quadrature.SampleCorner {
			return mockIntegrator{res: integration.Result{State: integration.StateNonConvergence}, err: nonConv}
		}
		return mockIntegrator{res: integration.Result{Estimate: 4, State: integration.StateConverged}}
	}

	results := ExecuteIntegrations(context.Background(), cfg, NullProgressReporter{}, io.Discard,
		WithIntegratorFactory(factory))

	if len(results) != 2 {
		t.Fatalf("got %d results", len(results))
	}
	if !errors.As(results[0].Err, new(apperrors.NonConvergenceError)) {
		t.Errorf("corner run error = %v", results[0].Err)
	}
	if !results[1].Converged() || results[1].Result.Estimate != 4 {
		t.Errorf("midpoint run = %+v", results[1])
	}
}

func TestExecuteIntegrations_InvalidPlan(t *testing.T) {
	t.Parallel()
	cfg := unitConfig()
	cfg.Policy = "trapezoid"
	results := ExecuteIntegrations(context.Background(), cfg, NullProgressReporter{}, io.Discard)
	if len(results) != 1 || !apperrors.IsConfigError(results[0].Err) {
		t.Fatalf("expected a single ConfigError result, got %+v", results)
	}
}

// TestExecuteIntegrations_SlowReporter checks that a display that never reads
// cannot block the controllers.
func TestExecuteIntegrations_SlowReporter(t *testing.T) {
	t.Parallel()
	cfg := unitConfig()
	release := make(chan struct{})
	reporter := ProgressReporterFunc(func(wg *sync.WaitGroup, updates <-chan progress.IterationUpdate, _ []string, _ io.Writer) {
		defer wg.Done()
		<-release
		DrainChannel(updates)
	})

	done := make(chan []RunResult, 1)
	go func() {
		done <- ExecuteIntegrations(context.Background(), cfg, reporter, io.Discard,
			WithIntegrand(quadrature.Constant(2)))
	}()

	// The controllers finish while the reporter is still blocked; only the
	// final join waits for it.
	time.Sleep(50 * time.Millisecond)
	close(release)
	select {
	case results := <-done:
		if !results[0].Converged() {
			t.Errorf("run did not converge: %v", results[0].Err)
		}
	case <-time.After(30 * time.Second):
		t.Fatal("ExecuteIntegrations deadlocked")
	}
}

func TestExecuteIntegrations_Cancelled(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	results := ExecuteIntegrations(ctx, unitConfig(), NullProgressReporter{}, io.Discard)
	if !errors.Is(results[0].Err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", results[0].Err)
	}
}

func TestExecuteIntegrations_DeadlineNamesRun(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()
	cfg := unitConfig()
	cfg.Timeout = time.Minute
	results := ExecuteIntegrations(ctx, cfg, NullProgressReporter{}, io.Discard)
	err := results[0].Err
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
	if !strings.Contains(err.Error(), "timed out after 1m0s") {
		t.Errorf("error should name the limit: %v", err)
	}
	if code := apperrors.ExitCodeFor(err); code != apperrors.ExitErrorTimeout {
		t.Errorf("ExitCodeFor = %d, want %d", code, apperrors.ExitErrorTimeout)
	}
}

func converged(policy quadrature.SamplePolicy, trial int, est float64, d time.Duration) RunResult {
	return RunResult{
		RunSpec:  RunSpec{Policy: policy, Trial: trial},
		Name:     policy.String(),
		Result:   integration.Result{Estimate: est, State: integration.StateConverged},
		Duration: d,
	}
}

func TestAnalyzeComparisonResults(t *testing.T) {
	t.Parallel()
	nonConv := RunResult{
		RunSpec:  RunSpec{Policy: quadrature.SampleCorner},
		Result:   integration.Result{State: integration.StateNonConvergence},
		Duration: time.Millisecond,
		Err:      apperrors.NonConvergenceError{Iterations: 10},
	}
	tests := []struct {
		name          string
		results       []RunResult
		wantCode      int
		wantTable     bool
		wantPresented int
		wantOut       string
	}{
		{
			name:          "single converged run",
			results:       []RunResult{converged(quadrature.SampleMidpoint, 0, 1, time.Second)},
			wantCode:      apperrors.ExitSuccess,
			wantPresented: 1,
		},
		{
			name: "consistent trials",
			results: []RunResult{
				converged(quadrature.SampleMidpoint, 0, 1.000, 3*time.Second),
				converged(quadrature.SampleMidpoint, 1, 1.005, time.Second),
				converged(quadrature.SampleCorner, 0, 7, 2*time.Second),
			},
			wantCode:      apperrors.ExitSuccess,
			wantTable:     true,
			wantPresented: 1,
			wantOut:       "3 of 3 runs converged",
		},
		{
			name: "disagreeing trials",
			results: []RunResult{
				converged(quadrature.SampleMidpoint, 0, 1.0, time.Second),
				converged(quadrature.SampleMidpoint, 1, 1.5, time.Second),
			},
			wantCode:  apperrors.ExitErrorMismatch,
			wantTable: true,
			wantOut:   "CRITICAL ERROR",
		},
		{
			name:          "partial failure",
			results:       []RunResult{nonConv, converged(quadrature.SampleMidpoint, 0, 2, time.Second)},
			wantCode:      apperrors.ExitSuccess,
			wantTable:     true,
			wantPresented: 1,
			wantOut:       "1 of 2 runs converged",
		},
		{
			name:          "no convergence",
			results:       []RunResult{nonConv},
			wantCode:      apperrors.ExitErrorNonConvergence,
			wantPresented: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var out bytes.Buffer
			p := &MockResultPresenter{}
			code := AnalyzeComparisonResults(tt.results, unitConfig(), p, p, &out)
			if code != tt.wantCode {
				t.Errorf("exit code = %d, want %d", code, tt.wantCode)
			}
			if (p.tableCalls > 0) != tt.wantTable {
				t.Errorf("table presented = %v, want %v", p.tableCalls > 0, tt.wantTable)
			}
			if len(p.presented) != tt.wantPresented {
				t.Errorf("presented %d results, want %d", len(p.presented), tt.wantPresented)
			}
			if tt.wantOut != "" && !strings.Contains(out.String(), tt.wantOut) {
				t.Errorf("output missing %q:\n%s", tt.wantOut, out.String())
			}
		})
	}
}

func TestAnalyzeComparisonResults_PresentsFastest(t *testing.T) {
	t.Parallel()
	results := []RunResult{
		converged(quadrature.SampleMidpoint, 0, 1, 3*time.Second),
		converged(quadrature.SampleCorner, 0, 2, time.Second),
	}
	p := &MockResultPresenter{}
	AnalyzeComparisonResults(results, unitConfig(), p, p, io.Discard)
	if len(p.presented) != 1 || p.presented[0].Policy != quadrature.SampleCorner {
		t.Errorf("expected the fastest (corner) run to be presented, got %+v", p.presented)
	}
	if results[0].Policy != quadrature.SampleCorner {
		t.Error("results should be sorted by duration")
	}
}

func TestTrialSpread(t *testing.T) {
	t.Parallel()
	spread := TrialSpread([]RunResult{
		converged(quadrature.SampleMidpoint, 0, 1, 0),
		converged(quadrature.SampleMidpoint, 1, 4, 0),
		converged(quadrature.SampleMidpoint, 2, 2, 0),
		converged(quadrature.SampleCorner, 0, 9, 0),
	})
	if spread[quadrature.SampleMidpoint] != 3 {
		t.Errorf("midpoint spread = %v, want 3", spread[quadrature.SampleMidpoint])
	}
	if _, ok := spread[quadrature.SampleCorner]; ok {
		t.Error("a single trial has no spread")
	}
}

// Package calibration measures how many workers per resolution level make a
// single level fastest on this machine and caches the answer in a JSON
// profile.
package calibration

import (
	"context"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/agbru/integcalc/internal/config"
	apperrors "github.com/agbru/integcalc/internal/errors"
	"github.com/agbru/integcalc/internal/integration"
	"github.com/agbru/integcalc/internal/logging"
	"github.com/agbru/integcalc/internal/quadrature"
)

const (
	// DefaultCalibrationSteps is the per-axis resolution timed for each
	// candidate: 640,000 cells of the benchmark integrand.
	DefaultCalibrationSteps = 800
	// DefaultCalibrationRepeats is the number of timings per candidate; the
	// fastest one is kept.
	DefaultCalibrationRepeats = 3
	// QuickCalibrationSteps is the per-axis resolution timed by
	// --auto-calibrate.
	QuickCalibrationSteps = 400
	// estimateAgreement is the relative difference above which two worker
	// counts are reported as disagreeing. Different partitions only change
	// the summation order.
	estimateAgreement = 1e-9
)

// Options configures a calibration run.
type Options struct {
	Domain     quadrature.Domain
	Policy     quadrature.SamplePolicy
	Integrand  quadrature.Integrand
	Steps      int
	Repeats    int
	Candidates []int
}

// DefaultOptions times the benchmark integrand over its usual domain.
func DefaultOptions() Options {
	return Options{
		Domain:     quadrature.DefaultDomain,
		Policy:     quadrature.SampleMidpoint,
		Integrand:  quadrature.DeJong,
		Steps:      DefaultCalibrationSteps,
		Repeats:    DefaultCalibrationRepeats,
		Candidates: GenerateWorkerCandidates(),
	}
}

// calibrationResult is one row of the calibration table.
type calibrationResult struct {
	Workers  int
	Duration time.Duration
	Estimate float64
	Err      error
}

// Calibrate times one resolution level for every candidate worker count and
// returns a profile naming the fastest one.
//
// Parameters:
//   - ctx: Checked before every timing.
//   - opts: The level to time and the candidates.
//
// Returns:
//   - *CalibrationProfile: The profile with OptimalWorkers and Timings set.
//   - []calibrationResult: One row per candidate, in candidate order.
//   - error: A ConfigError for invalid options, a CalculationError wrapping
//     ctx.Err() on cancellation, or an error if no candidate succeeded.
func Calibrate(ctx context.Context, opts Options) (*CalibrationProfile, []calibrationResult, error) {
	if opts.Repeats < 1 {
		opts.Repeats = 1
	}
	if len(opts.Candidates) == 0 {
		return nil, nil, apperrors.NewConfigError("no worker count to calibrate")
	}
	step, err := quadrature.StepsFor(opts.Domain, opts.Steps)
	if err != nil {
		return nil, nil, err
	}

	start := time.Now()
	integrator := integration.NewParallelIntegrator(integration.WithSamplePolicy(opts.Policy))
	results := make([]calibrationResult, 0, len(opts.Candidates))
	for _, workers := range opts.Candidates {
		res := calibrationResult{Workers: workers, Duration: math.MaxInt64}
		cfg := integration.Config{
			AbsTolerance: 0,
			RelTolerance: 0,
			Workers:      workers,
			Domain:       opts.Domain,
		}
		for i := 0; i < opts.Repeats; i++ {
			if err := ctx.Err(); err != nil {
				return nil, results, apperrors.CalculationError{Cause: err}
			}
			t0 := time.Now()
			v, err := integrator.Integrate(opts.Integrand, cfg, step)
			d := time.Since(t0)
			if err != nil {
				res.Err = err
				break
			}
			res.Estimate = v
			if d < res.Duration {
				res.Duration = d
			}
		}
		results = append(results, res)
	}

	profile := NewProfile()
	profile.CalibrationSteps = opts.Steps
	best := -1
	for i, r := range results {
		if r.Err != nil {
			continue
		}
		profile.Timings = append(profile.Timings, WorkerTiming{Workers: r.Workers, Duration: r.Duration, Estimate: r.Estimate})
		if best < 0 || r.Duration < results[best].Duration {
			best = i
		}
	}
	if best < 0 {
		return nil, results, fmt.Errorf("calibration failed for every worker count: %w", results[0].Err)
	}
	profile.OptimalWorkers = results[best].Workers
	profile.CalibrationTime = time.Since(start).Round(time.Millisecond).String()
	return profile, results, nil
}

// RunCalibration runs the calibration, prints the timing table and saves
// the profile to cfg.CalibrationProfile (or the default path).
//
// Parameters:
//   - ctx: Cancels the calibration between timings.
//   - cfg: Supplies the profile path.
//   - out: The writer for the table.
//   - logger: Receives the outcome.
//
// Returns:
//   - int: The exit code.
func RunCalibration(ctx context.Context, cfg config.AppConfig, out io.Writer, logger logging.Logger) int {
	return runCalibration(ctx, cfg, DefaultOptions(), out, logger)
}

func runCalibration(ctx context.Context, cfg config.AppConfig, opts Options, out io.Writer, logger logging.Logger) int {
	fmt.Fprintf(out, "--- Calibration ---\n")
	fmt.Fprintf(out, "Timing %d worker counts at %d steps per axis (%d repeats each)...\n",
		len(opts.Candidates), opts.Steps, opts.Repeats)

	profile, results, err := Calibrate(ctx, opts)
	if len(results) > 0 {
		best := 0
		if profile != nil {
			best = profile.OptimalWorkers
		}
		printCalibrationResults(out, results, best)
	}
	if err != nil {
		logger.Error("calibration failed", err)
		fmt.Fprintf(out, "Calibration failed: %v\n", err)
		return apperrors.ExitCodeFor(err)
	}

	path := cfg.CalibrationProfile
	if path == "" {
		path = GetDefaultProfilePath()
	}
	if err := profile.SaveProfile(path); err != nil {
		logger.Error("calibration profile not saved", err, logging.String("path", path))
		fmt.Fprintf(out, "Warning: %v\n", err)
	} else {
		logger.Info("calibration profile saved",
			logging.String("path", path),
			logging.Int("optimal_workers", profile.OptimalWorkers))
	}
	printCalibrationOutput(profile, path, out)
	return apperrors.ExitSuccess
}

// AutoCalibrate times the quick candidate set at a reduced resolution and
// sets cfg.Workers to the fastest count. The profile is saved so later runs
// pick it up through LoadCachedCalibration. On failure cfg is returned
// unchanged with false.
func AutoCalibrate(ctx context.Context, cfg config.AppConfig, logger logging.Logger) (config.AppConfig, bool) {
	opts := DefaultOptions()
	opts.Candidates = GenerateQuickWorkerCandidates()
	opts.Steps = QuickCalibrationSteps
	opts.Repeats = 1

	profile, _, err := Calibrate(ctx, opts)
	if err != nil {
		logger.Error("auto-calibration failed", err)
		return cfg, false
	}

	path := cfg.CalibrationProfile
	if path == "" {
		path = GetDefaultProfilePath()
	}
	if err := profile.SaveProfile(path); err != nil {
		logger.Error("calibration profile not saved", err, logging.String("path", path))
	}
	logger.Info("auto-calibration complete", logging.Int("optimal_workers", profile.OptimalWorkers))
	cfg.Workers = profile.OptimalWorkers
	return cfg, true
}

// LoadCachedCalibration fills in Workers from a cached profile when it is
// still "auto" and the profile matches this machine and is recent.
//
// Parameters:
//   - cfg: The configuration to update.
//   - path: The profile path; empty selects the default.
//
// Returns:
//   - config.AppConfig: The updated configuration.
//   - bool: Whether a profile was applied.
func LoadCachedCalibration(cfg config.AppConfig, path string) (config.AppConfig, bool) {
	if cfg.Workers != 0 {
		return cfg, false
	}
	if path == "" {
		path = GetDefaultProfilePath()
	}
	profile, err := loadProfile(path)
	if err != nil || !profile.IsValid() || profile.IsStale(DefaultMaxProfileAge) || profile.OptimalWorkers < 1 {
		return cfg, false
	}
	cfg.Workers = profile.OptimalWorkers
	return cfg, true
}

// agrees reports whether two estimates of the same level match up to
// summation-order rounding.
func agrees(a, b float64) bool {
	return quadrature.RelativeError(a, b) <= estimateAgreement
}

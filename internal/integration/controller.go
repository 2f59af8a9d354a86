package integration

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	apperrors "github.com/agbru/integcalc/internal/errors"
	"github.com/agbru/integcalc/internal/logging"
	"github.com/agbru/integcalc/internal/progress"
	"github.com/agbru/integcalc/internal/quadrature"
)

const tracerName = "github.com/agbru/integcalc/internal/integration"

// State is the controller's position in its refinement loop.
type State int

const (
	// StateRefining is the initial state; the loop is still doubling.
	StateRefining State = iota
	// StateConverged means two successive estimates met both tolerances.
	StateConverged
	// StateNonConvergence means the iteration cap was reached first.
	StateNonConvergence
	// StateNumericalInstability means a non-finite estimate ended the run.
	StateNumericalInstability
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateRefining:
		return "refining"
	case StateConverged:
		return "converged"
	case StateNonConvergence:
		return "non-convergence"
	case StateNumericalInstability:
		return "numerical-instability"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Estimate is one integral approximation tagged with its resolution.
type Estimate struct {
	Steps int
	Value float64
}

// Result is the outcome of Controller.Run. On NonConvergence or
// NumericalInstability it still carries the last estimate.
type Result struct {
	Estimate   float64
	AbsError   float64
	RelError   float64
	Iterations int
	Steps      int
	State      State
}

// Controller runs the adaptive refinement loop.
type Controller struct {
	cfg        Config
	opts       options
	integrator *ParallelIntegrator
}

// NewController creates a controller for cfg. Configuration is validated by
// Run, before any worker is started.
func NewController(cfg Config, opts ...Option) *Controller {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logging.NewNopLogger()
	}
	if o.tracer == nil {
		o.tracer = otel.Tracer(tracerName)
	}
	return &Controller{
		cfg:        cfg,
		opts:       o,
		integrator: NewParallelIntegrator(WithSamplePolicy(o.policy)),
	}
}

// Policy returns the kernel sample policy.
func (c *Controller) Policy() quadrature.SamplePolicy { return c.integrator.Policy() }

func (c *Controller) validate() error {
	if err := c.cfg.Validate(); err != nil {
		return err
	}
	if c.opts.initialSteps < 1 {
		return apperrors.NewConfigError("initial steps must be >= 1, got %d", c.opts.initialSteps)
	}
	if c.opts.maxIterations < 0 {
		return apperrors.NewConfigError("max iterations must be >= 0, got %d", c.opts.maxIterations)
	}
	if c.opts.initialSteps > c.opts.maxSteps {
		return apperrors.NewConfigError("initial steps must be <= %d, got %d", c.opts.maxSteps, c.opts.initialSteps)
	}
	return nil
}

// Run estimates the integral of f.
//
// It integrates at the initial resolution, then repeatedly doubles the step
// count per axis and compares the new estimate with the previous one. The run
// converges when both |a-b| <= AbsTolerance and the guarded relative
// difference <= RelTolerance. Otherwise the newer estimate becomes the
// baseline. ctx is only consulted between resolution levels.
//
// Parameters:
//   - ctx: Cancels the run between levels.
//   - f: The integrand.
//
// Returns:
//   - Result: The last estimate and its state.
//   - error: nil on convergence; a ConfigError, NonConvergenceError,
//     NumericalInstabilityError or a CalculationError wrapping ctx.Err().
func (c *Controller) Run(ctx context.Context, f quadrature.Integrand) (Result, error) {
	ctx, span := c.opts.tracer.Start(ctx, "integration.Run", trace.WithAttributes(
		attribute.Int("workers", c.cfg.Workers),
		attribute.String("policy", c.Policy().String()),
		attribute.Int("initial_steps", c.opts.initialSteps),
		attribute.Int("max_iterations", c.opts.maxIterations),
	))
	defer span.End()

	res, err := c.run(ctx, f)
	span.SetAttributes(
		attribute.String("state", res.State.String()),
		attribute.Int("iterations", res.Iterations),
		attribute.Int("steps", res.Steps),
		attribute.Float64("estimate", res.Estimate),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.opts.logger.Error("integration stopped", err,
			logging.String("state", res.State.String()),
			logging.Int("iterations", res.Iterations),
			logging.Int("steps", res.Steps))
		return res, err
	}
	span.SetStatus(codes.Ok, "")
	c.opts.logger.Info("integration converged",
		logging.Float64("estimate", res.Estimate),
		logging.Int("iterations", res.Iterations),
		logging.Int("steps", res.Steps),
		logging.Float64("abs_err", res.AbsError),
		logging.Float64("rel_err", res.RelError))
	return res, nil
}

func (c *Controller) run(ctx context.Context, f quadrature.Integrand) (Result, error) {
	res := Result{AbsError: math.NaN(), RelError: math.NaN(), State: StateRefining}
	if err := c.validate(); err != nil {
		return res, err
	}
	start := time.Now()

	steps := c.opts.initialSteps
	var prev Estimate
	for iter := 0; iter <= c.opts.maxIterations; iter++ {
		if err := ctx.Err(); err != nil {
			return res, apperrors.CalculationError{Cause: err}
		}
		if iter > 0 {
			if steps > c.opts.maxSteps/2 {
				break
			}
			steps *= 2
		}

		value, err := c.level(ctx, f, steps)
		if err != nil {
			return res, err
		}
		cur := Estimate{Steps: steps, Value: value}

		res.Estimate, res.Steps, res.Iterations = cur.Value, cur.Steps, iter
		res.AbsError, res.RelError = math.NaN(), math.NaN()
		if iter > 0 {
			res.AbsError = quadrature.AbsoluteError(cur.Value, prev.Value)
			res.RelError = quadrature.RelativeError(cur.Value, prev.Value)
		}
		c.notify(res, start)

		if !isFinite(cur.Value) {
			if c.opts.onInstability == InstabilityAbort || iter == c.opts.maxIterations {
				res.State = StateNumericalInstability
				return res, apperrors.NumericalInstabilityError{Iteration: iter, Steps: steps, Value: cur.Value}
			}
			prev = cur
			continue
		}

		if iter > 0 && isFinite(prev.Value) &&
			res.AbsError <= c.cfg.AbsTolerance && res.RelError <= c.cfg.RelTolerance {
			res.State = StateConverged
			return res, nil
		}
		prev = cur
	}

	if !isFinite(res.Estimate) {
		res.State = StateNumericalInstability
		return res, apperrors.NumericalInstabilityError{Iteration: res.Iterations, Steps: res.Steps, Value: res.Estimate}
	}
	res.State = StateNonConvergence
	return res, apperrors.NonConvergenceError{
		Iterations: res.Iterations,
		Steps:      res.Steps,
		AbsError:   res.AbsError,
		RelError:   res.RelError,
	}
}

// level computes one estimate at the given per-axis step count.
func (c *Controller) level(ctx context.Context, f quadrature.Integrand, steps int) (float64, error) {
	_, span := c.opts.tracer.Start(ctx, "integration.level", trace.WithAttributes(attribute.Int("steps", steps)))
	defer span.End()

	s, err := quadrature.StepsFor(c.cfg.Domain, steps)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return 0, err
	}
	v, err := c.integrator.Integrate(f, c.cfg, s)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, err
	}
	span.SetAttributes(attribute.Float64("estimate", v))
	return v, nil
}

func (c *Controller) notify(res Result, start time.Time) {
	u := progress.IterationUpdate{
		RunIndex:  c.opts.runIndex,
		Iteration: res.Iterations,
		Steps:     res.Steps,
		Estimate:  res.Estimate,
		AbsError:  res.AbsError,
		RelError:  res.RelError,
		Elapsed:   time.Since(start),
	}
	fields := []logging.Field{
		logging.Int("iteration", u.Iteration),
		logging.Int("steps", u.Steps),
		logging.Float64("estimate", u.Estimate),
	}
	if u.HasComparison() {
		fields = append(fields, logging.Float64("abs_err", u.AbsError), logging.Float64("rel_err", u.RelError))
	}
	c.opts.logger.Debug("resolution level done", fields...)
	if c.opts.progress != nil {
		c.opts.progress(u)
	}
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

package integration

import (
	"go.opentelemetry.io/otel/trace"

	"github.com/agbru/integcalc/internal/logging"
	"github.com/agbru/integcalc/internal/progress"
	"github.com/agbru/integcalc/internal/quadrature"
)

// InstabilityPolicy decides what happens when an estimate is NaN or infinite.
type InstabilityPolicy int

const (
	// InstabilityAbort stops the run at the first non-finite estimate.
	InstabilityAbort InstabilityPolicy = iota
	// InstabilityRefine keeps doubling the resolution, hoping the next level
	// steps around the singularity.
	InstabilityRefine
)

// String returns the policy's configuration name.
func (p InstabilityPolicy) String() string {
	if p == InstabilityRefine {
		return "refine"
	}
	return "abort"
}

// Option configures a Controller.
type Option func(*options)

type options struct {
	initialSteps  int
	maxIterations int
	policy        quadrature.SamplePolicy
	onInstability InstabilityPolicy
	logger        logging.Logger
	progress      progress.Callback
	tracer        trace.Tracer
	runIndex      int
	maxSteps      int
}

func defaultOptions() options {
	return options{
		initialSteps:  DefaultInitialSteps,
		maxIterations: DefaultMaxIterations,
		policy:        quadrature.SampleMidpoint,
		onInstability: InstabilityAbort,
		progress:      progress.NewNoOpObserver().Update,
		maxSteps:      MaxSteps,
	}
}

// WithInitialSteps sets the per-axis step count of the first estimate.
func WithInitialSteps(n int) Option {
	return func(o *options) { o.initialSteps = n }
}

// WithMaxIterations caps the number of resolution doublings.
func WithMaxIterations(n int) Option {
	return func(o *options) { o.maxIterations = n }
}

// WithPolicy selects the kernel sample position.
func WithPolicy(p quadrature.SamplePolicy) Option {
	return func(o *options) { o.policy = p }
}

// WithInstabilityPolicy selects the reaction to non-finite estimates.
func WithInstabilityPolicy(p InstabilityPolicy) Option {
	return func(o *options) { o.onInstability = p }
}

// WithLogger routes iteration and outcome logs to l.
func WithLogger(l logging.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithProgress registers a callback invoked after every estimate.
func WithProgress(cb progress.Callback) Option {
	return func(o *options) { o.progress = cb }
}

// WithObserver registers a single observer. It is a shorthand for
// WithProgress(o.Update).
func WithObserver(obs progress.Observer) Option {
	return func(o *options) {
		if obs != nil {
			o.progress = obs.Update
		}
	}
}

// WithTracer overrides the OpenTelemetry tracer. The global provider is used
// by default.
func WithTracer(t trace.Tracer) Option {
	return func(o *options) { o.tracer = t }
}

// WithRunIndex tags progress updates when several controllers run together.
func WithRunIndex(i int) Option {
	return func(o *options) { o.runIndex = i }
}

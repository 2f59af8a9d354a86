package integration

import (
	"github.com/agbru/integcalc/internal/parallel"
	"github.com/agbru/integcalc/internal/quadrature"
)

// IntegratorOption configures a ParallelIntegrator.
type IntegratorOption func(*ParallelIntegrator)

// WithSamplePolicy selects the kernel sample position. The default is
// quadrature.SampleMidpoint.
func WithSamplePolicy(p quadrature.SamplePolicy) IntegratorOption {
	return func(pi *ParallelIntegrator) { pi.policy = p }
}

// ParallelIntegrator computes one estimate at a fixed resolution by splitting
// the y axis across workers.
type ParallelIntegrator struct {
	policy quadrature.SamplePolicy
}

// NewParallelIntegrator creates an integrator.
func NewParallelIntegrator(opts ...IntegratorOption) *ParallelIntegrator {
	pi := &ParallelIntegrator{policy: quadrature.SampleMidpoint}
	for _, opt := range opts {
		opt(pi)
	}
	return pi
}

// Policy returns the sample policy used by the kernel.
func (pi *ParallelIntegrator) Policy() quadrature.SamplePolicy { return pi.policy }

// Integrate evaluates f over cfg.Domain with cell size s.
//
// The y axis is partitioned into cfg.Workers pieces and exactly cfg.Workers
// goroutines are started, each running the kernel over its own sub-domain and
// writing to its own slot. The call returns after every worker has finished.
// Slots are summed in index order, so identical inputs always produce the
// same bits regardless of completion order.
//
// Parameters:
//   - f: The integrand. It is shared read-only by all workers.
//   - cfg: The run configuration. Only Workers and Domain are used.
//   - s: The grid cell size.
//
// Returns:
//   - float64: The estimate.
//   - error: A ConfigError before any goroutine starts, or the first worker
//     error.
func (pi *ParallelIntegrator) Integrate(f quadrature.Integrand, cfg Config, s quadrature.StepSize) (float64, error) {
	if err := cfg.Validate(); err != nil {
		return 0, err
	}
	if err := s.Validate(); err != nil {
		return 0, err
	}
	pieces, err := quadrature.Partition(cfg.Domain.Y, cfg.Workers)
	if err != nil {
		return 0, err
	}

	slots := make([]float64, cfg.Workers)
	err = parallel.ForEach(cfg.Workers, func(i int) error {
		v, err := quadrature.Integrate(f, cfg.Domain.WithY(pieces[i]), s, pi.policy)
		if err != nil {
			return err
		}
		slots[i] = v
		return nil
	})
	if err != nil {
		return 0, err
	}

	var total float64
	for _, v := range slots {
		total += v
	}
	return total, nil
}

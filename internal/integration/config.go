package integration

import (
	"math"

	apperrors "github.com/agbru/integcalc/internal/errors"
	"github.com/agbru/integcalc/internal/quadrature"
)

const (
	// DefaultInitialSteps is the per-axis step count of the first estimate.
	DefaultInitialSteps = 100
	// DefaultMaxIterations bounds the number of resolution doublings.
	DefaultMaxIterations = 10
	// MaxSteps is the largest per-axis step count the controller will
	// integrate. A run whose next doubling would exceed it stops as
	// non-converged at the current level.
	MaxSteps = math.MaxInt32
)

// Config is the read-only description of one integration run. The core never
// mutates it.
type Config struct {
	// AbsTolerance is the largest accepted |a-b| between successive estimates.
	AbsTolerance float64
	// RelTolerance is the largest accepted |a-b|/max(|a|,|b|).
	RelTolerance float64
	// Workers is the number of goroutines per resolution level.
	Workers int
	// Domain is the integration rectangle.
	Domain quadrature.Domain
}

// Validate returns a ConfigError describing the first invalid field.
// Zero tolerances are accepted; they only converge when two estimates are
// bit-identical.
func (c Config) Validate() error {
	if c.Workers < 1 {
		return apperrors.NewConfigError("workers must be >= 1, got %d", c.Workers)
	}
	if math.IsNaN(c.AbsTolerance) || c.AbsTolerance < 0 {
		return apperrors.NewConfigError("absolute tolerance must be >= 0, got %g", c.AbsTolerance)
	}
	if math.IsNaN(c.RelTolerance) || c.RelTolerance < 0 {
		return apperrors.NewConfigError("relative tolerance must be >= 0, got %g", c.RelTolerance)
	}
	return c.Domain.Validate()
}

package quadrature

import (
	"fmt"
	"math"

	apperrors "github.com/agbru/integcalc/internal/errors"
)

// Interval is the half-open range [Low, High) along one axis.
type Interval struct {
	Low  float64
	High float64
}

// Width returns High - Low.
func (iv Interval) Width() float64 { return iv.High - iv.Low }

// Validate reports a ConfigError when the bounds are not finite or when
// Low is not strictly below High.
func (iv Interval) Validate(axis string) error {
	if math.IsNaN(iv.Low) || math.IsNaN(iv.High) || math.IsInf(iv.Low, 0) || math.IsInf(iv.High, 0) {
		return apperrors.NewConfigError("%s interval %s must have finite bounds", axis, iv)
	}
	if !(iv.Low < iv.High) {
		return apperrors.NewConfigError("%s interval %s must have low < high", axis, iv)
	}
	return nil
}

// String formats the interval as "[low, high)".
func (iv Interval) String() string {
	return fmt.Sprintf("[%g, %g)", iv.Low, iv.High)
}

// Domain is an integration rectangle.
type Domain struct {
	X Interval
	Y Interval
}

// Validate checks both axes.
func (d Domain) Validate() error {
	if err := d.X.Validate("x"); err != nil {
		return err
	}
	return d.Y.Validate("y")
}

// Area returns the rectangle's area.
func (d Domain) Area() float64 { return d.X.Width() * d.Y.Width() }

func (d Domain) String() string {
	return fmt.Sprintf("x %s × y %s", d.X, d.Y)
}

// WithY returns a copy of d whose y axis is replaced by y.
func (d Domain) WithY(y Interval) Domain {
	d.Y = y
	return d
}

// StepSize holds the grid cell dimensions used by the kernel.
type StepSize struct {
	DX float64
	DY float64
}

// Validate rejects non-positive or non-finite cell dimensions.
func (s StepSize) Validate() error {
	if !(s.DX > 0) || math.IsInf(s.DX, 0) {
		return apperrors.NewConfigError("step dx must be positive and finite, got %g", s.DX)
	}
	if !(s.DY > 0) || math.IsInf(s.DY, 0) {
		return apperrors.NewConfigError("step dy must be positive and finite, got %g", s.DY)
	}
	return nil
}

// StepsFor translates a resolution level (number of divisions per axis) into
// a StepSize for the given domain.
//
// Parameters:
//   - d: The full integration domain.
//   - steps: Number of grid divisions per axis.
//
// Returns:
//   - StepSize: The cell dimensions.
//   - error: A ConfigError if steps < 1 or the domain is invalid.
func StepsFor(d Domain, steps int) (StepSize, error) {
	if steps < 1 {
		return StepSize{}, apperrors.NewConfigError("step count must be >= 1, got %d", steps)
	}
	if err := d.Validate(); err != nil {
		return StepSize{}, err
	}
	n := float64(steps)
	return StepSize{DX: d.X.Width() / n, DY: d.Y.Width() / n}, nil
}

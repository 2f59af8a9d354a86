package quadrature

import apperrors "github.com/agbru/integcalc/internal/errors"

// Partition splits iv into n contiguous sub-intervals of equal width.
// Sub-interval i spans [Low + i*w, Low + (i+1)*w) with w = (High-Low)/n, and
// the last upper edge is clamped to High so the pieces reconstruct iv exactly.
//
// Parameters:
//   - iv: The interval to split.
//   - n: The number of pieces, one per worker.
//
// Returns:
//   - []Interval: The pieces in ascending order.
//   - error: A ConfigError if n < 1 or iv is invalid.
func Partition(iv Interval, n int) ([]Interval, error) {
	if n < 1 {
		return nil, apperrors.NewConfigError("partition count must be >= 1, got %d", n)
	}
	if err := iv.Validate("partitioned"); err != nil {
		return nil, err
	}

	w := iv.Width() / float64(n)
	parts := make([]Interval, n)
	for i := range parts {
		parts[i] = Interval{
			Low:  iv.Low + float64(i)*w,
			High: iv.Low + float64(i+1)*w,
		}
	}
	parts[n-1].High = iv.High
	return parts, nil
}

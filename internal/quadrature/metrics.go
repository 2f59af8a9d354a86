package quadrature

import "math"

// AbsoluteError returns |a - b|.
func AbsoluteError(a, b float64) float64 {
	return math.Abs(a - b)
}

// RelativeError returns |a - b| / max(|a|, |b|), or 0 when both are zero.
func RelativeError(a, b float64) float64 {
	den := math.Max(math.Abs(a), math.Abs(b))
	if den == 0 {
		return 0
	}
	return math.Abs(a-b) / den
}

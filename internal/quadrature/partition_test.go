package quadrature

import (
	"errors"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	apperrors "github.com/agbru/integcalc/internal/errors"
)

func TestPartition(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		iv   Interval
		n    int
		want []Interval
	}{
		{
			name: "single piece is the interval itself",
			iv:   Interval{Low: -50, High: 50},
			n:    1,
			want: []Interval{{Low: -50, High: 50}},
		},
		{
			name: "four equal pieces",
			iv:   Interval{Low: 0, High: 1},
			n:    4,
			want: []Interval{{0, 0.25}, {0.25, 0.5}, {0.5, 0.75}, {0.75, 1}},
		},
		{
			name: "negative bounds",
			iv:   Interval{Low: -4, High: -2},
			n:    2,
			want: []Interval{{-4, -3}, {-3, -2}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := Partition(tt.iv, tt.n)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d pieces, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("piece %d = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestPartition_Rejects(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		iv   Interval
		n    int
	}{
		{"zero pieces", Interval{Low: 0, High: 1}, 0},
		{"negative pieces", Interval{Low: 0, High: 1}, -3},
		{"zero width", Interval{Low: 5, High: 5}, 2},
		{"reversed bounds", Interval{Low: 1, High: 0}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Partition(tt.iv, tt.n)
			var cfgErr apperrors.ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected ConfigError, got %v", err)
			}
		})
	}
}

// TestPartition_LastEdgeClamped uses a width that does not divide evenly in
// binary floating point, where low + n*w would drift past or short of high.
func TestPartition_LastEdgeClamped(t *testing.T) {
	t.Parallel()
	iv := Interval{Low: 0.1, High: 0.7}
	parts, err := Partition(iv, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if parts[len(parts)-1].High != iv.High {
		t.Errorf("last high = %v, want exactly %v", parts[len(parts)-1].High, iv.High)
	}
}

// TestPartitionCoverage_PropertyBased checks that the pieces always start at
// Low, end exactly at High, and touch without gaps or overlaps.
func TestPartitionCoverage_PropertyBased(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("pieces reconstruct the interval", prop.ForAll(
		func(low, width float64, n int) bool {
			iv := Interval{Low: low, High: low + width}
			if !(iv.Low < iv.High) {
				return true
			}
			parts, err := Partition(iv, n)
			if err != nil || len(parts) != n {
				return false
			}
			if parts[0].Low != iv.Low || parts[n-1].High != iv.High {
				return false
			}
			for i := 0; i+1 < n; i++ {
				if parts[i].High != parts[i+1].Low {
					return false
				}
				if !(parts[i].Low < parts[i].High) {
					return false
				}
			}
			return true
		},
		gen.Float64Range(-1e6, 1e6),
		gen.Float64Range(1e-3, 1e4),
		gen.IntRange(1, 64),
	))

	properties.TestingRun(t)
}

package quadrature

// De Jong's fifth function (Shekel's foxholes): a 5x5 lattice of sharp wells
// spaced 16 apart, which makes it a stiff target for uniform grids.

// foxholes holds the lattice coordinates a1 (x) and a2 (y), i = 0..24.
var foxholes = func() (a [2][25]float64) {
	coords := [5]float64{-32, -16, 0, 16, 32}
	for i := 0; i < 25; i++ {
		a[0][i] = coords[i%5]
		a[1][i] = coords[i/5]
	}
	return a
}()

// DeJong evaluates (0.002 + Σ 1/(i + (x-a1_i)^6 + (y-a2_i)^6))^-1, i = 1..25.
func DeJong(x, y float64) float64 {
	sum := 0.002
	for i := 0; i < 25; i++ {
		dx := x - foxholes[0][i]
		dy := y - foxholes[1][i]
		dx2, dy2 := dx*dx, dy*dy
		sum += 1 / (float64(i+1) + dx2*dx2*dx2 + dy2*dy2*dy2)
	}
	return 1 / sum
}

// DefaultDomain is the square the benchmark is usually integrated over.
var DefaultDomain = Domain{
	X: Interval{Low: -50, High: 50},
	Y: Interval{Low: -50, High: 50},
}

// Constant returns an integrand that always evaluates to v.
func Constant(v float64) Integrand {
	return func(_, _ float64) float64 { return v }
}

// Product is the integrand x*y.
func Product(x, y float64) float64 { return x * y }

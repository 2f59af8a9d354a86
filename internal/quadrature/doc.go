// Package quadrature holds the sequential building blocks of the integrator:
// the rectangle types, the uniform-grid Riemann kernel, the axis partitioner,
// the successive-difference error metrics and the benchmark integrand.
//
// Everything here is a pure function of its inputs and safe to call from any
// number of goroutines at once.
package quadrature

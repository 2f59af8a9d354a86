// Package integration drives the parallel quadrature of a two-dimensional
// integrand. The ParallelIntegrator splits one resolution level across
// workers; the Controller doubles the resolution until two successive
// estimates agree within both the absolute and the relative tolerance.
package integration

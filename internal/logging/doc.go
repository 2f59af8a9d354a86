// Package logging provides a unified logging interface for the integrator.
// It abstracts the underlying logging implementation, allowing consistent logging
// across components while supporting multiple backends (zerolog JSON, tinted
// slog text, and the standard library logger).
package logging

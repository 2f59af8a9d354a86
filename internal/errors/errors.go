package apperrors

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Application exit codes define the standard exit statuses for the application.
// These codes are used to signal the outcome of the program execution to the OS.
const (
	ExitSuccess             = 0   // Indicates successful execution.
	ExitErrorGeneric        = 1   // Indicates a generic error.
	ExitErrorTimeout        = 2   // Indicates the operation timed out.
	ExitErrorMismatch       = 3   // Indicates trials of one sample policy disagree.
	ExitErrorConfig         = 4   // Indicates a configuration error.
	ExitErrorNonConvergence = 5   // Indicates the iteration cap was reached without convergence.
	ExitErrorInstability    = 6   // Indicates a non-finite estimate.
	ExitErrorCanceled       = 130 // Indicates the operation was canceled (e.g., SIGINT).
)

// ConfigError represents a configuration error, such as invalid flags,
// tolerances or domain bounds. It indicates that the integration cannot start
// and is always reported before any worker is spawned.
type ConfigError struct {
	// Message explains the specific configuration error.
	Message string
}

// Error returns the error message for a ConfigError.
func (e ConfigError) Error() string { return e.Message }

// NewConfigError creates a new ConfigError with a formatted message.
//
// Parameters:
//   - format: A format string (see fmt.Sprintf).
//   - a: Arguments to be formatted into the string.
//
// Returns:
//   - error: A new ConfigError instance containing the formatted message.
func NewConfigError(format string, a ...any) error {
	return ConfigError{Message: fmt.Sprintf(format, a...)}
}

// CalculationError encapsulates a calculation error while preserving the
// original cause.
type CalculationError struct {
	// Cause is the underlying error that triggered this calculation error.
	Cause error
}

// Error returns the error message from the underlying cause.
func (e CalculationError) Error() string { return e.Cause.Error() }

// Unwrap returns the original wrapped error, allowing for error chain
// inspection (e.g., using errors.Is or errors.As).
func (e CalculationError) Unwrap() error { return e.Cause }

// NonConvergenceError reports that the iteration cap was reached before two
// successive estimates satisfied both tolerance tests. It is a recoverable
// outcome: the caller decides whether to relax tolerances and retry.
type NonConvergenceError struct {
	// Iterations is the number of resolution doublings performed.
	Iterations int
	// Steps is the grid step count of the last estimate.
	Steps int
	// AbsError is the last absolute difference between successive estimates.
	AbsError float64
	// RelError is the last relative difference between successive estimates.
	RelError float64
}

// Error returns a formatted message describing the non-convergence.
func (e NonConvergenceError) Error() string {
	return fmt.Sprintf("did not converge after %d iterations (steps=%d, abs=%g, rel=%g)",
		e.Iterations, e.Steps, e.AbsError, e.RelError)
}

// NumericalInstabilityError reports that an estimate was NaN or infinite.
// The benchmark integrand has a denominator that can approach zero, so this
// is surfaced as a distinct outcome rather than a converged NaN.
type NumericalInstabilityError struct {
	// Iteration is the doubling index at which the value was observed.
	Iteration int
	// Steps is the grid step count that produced the value.
	Steps int
	// Value is the offending estimate.
	Value float64
}

// Error returns a formatted message describing the instability.
func (e NumericalInstabilityError) Error() string {
	return fmt.Sprintf("numerical instability: non-finite estimate %v at iteration %d (steps=%d)",
		e.Value, e.Iteration, e.Steps)
}

// TimeoutError represents a calculation timeout. It captures the operation
// name and the duration limit that was exceeded.
type TimeoutError struct {
	// Operation is the name of the operation that timed out.
	Operation string
	// Limit is the duration after which the operation was considered timed out.
	Limit time.Duration
}

// Error returns a formatted message describing the timeout.
func (e TimeoutError) Error() string {
	return fmt.Sprintf("operation %q timed out after %s", e.Operation, e.Limit)
}

// ValidationError represents an input validation failure. It identifies which
// field failed validation and provides a human-readable explanation.
type ValidationError struct {
	// Field is the name of the field that failed validation.
	Field string
	// Message explains the validation failure.
	Message string
}

// Error returns a formatted message describing the validation failure.
func (e ValidationError) Error() string {
	return fmt.Sprintf("validation error for %q: %s", e.Field, e.Message)
}

// WrapError wraps an error with additional context using fmt.Errorf and %w.
//
// Parameters:
//   - err: The error to wrap.
//   - format: A format string for the context message.
//   - args: Arguments for the format string.
//
// Returns:
//   - error: The wrapped error, or nil if err is nil.
func WrapError(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	message := fmt.Sprintf(format, args...)
	return fmt.Errorf("%s: %w", message, err)
}

// IsContextError checks if the error is a context cancellation or deadline exceeded error.
func IsContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// IsConfigError reports whether err carries a ConfigError anywhere in its chain.
func IsConfigError(err error) bool {
	var ce ConfigError
	return errors.As(err, &ce)
}

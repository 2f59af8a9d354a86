package apperrors

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"
)

// ColorProvider supplies the escape sequences used when reporting errors.
// A nil provider prints plain text.
type ColorProvider interface {
	Red() string
	Yellow() string
	Reset() string
}

// ExitCodeFor maps an error to the process exit code, without printing.
func ExitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var (
		cfgErr ConfigError
		ncErr  NonConvergenceError
		nsErr  NumericalInstabilityError
		tmErr  TimeoutError
	)
	switch {
	case errors.As(err, &cfgErr):
		return ExitErrorConfig
	case errors.As(err, &ncErr):
		return ExitErrorNonConvergence
	case errors.As(err, &nsErr):
		return ExitErrorInstability
	case errors.As(err, &tmErr), errors.Is(err, context.DeadlineExceeded):
		return ExitErrorTimeout
	case errors.Is(err, context.Canceled):
		return ExitErrorCanceled
	default:
		return ExitErrorGeneric
	}
}

// HandleCalculationError prints a human-readable description of err and
// returns the matching exit code.
//
// Parameters:
//   - err: The error returned by the integration run.
//   - duration: Time spent before the failure (0 if unknown).
//   - out: The writer for the message.
//   - colors: Optional color provider.
//
// Returns:
//   - int: The exit code for the process.
func HandleCalculationError(err error, duration time.Duration, out io.Writer, colors ColorProvider) int {
	if err == nil {
		return ExitSuccess
	}
	red, yellow, reset := "", "", ""
	if colors != nil {
		red, yellow, reset = colors.Red(), colors.Yellow(), colors.Reset()
	}

	code := ExitCodeFor(err)
	suffix := ""
	if duration > 0 {
		suffix = fmt.Sprintf(" after %s%s%s", yellow, duration, reset)
	}
	switch code {
	case ExitErrorTimeout:
		fmt.Fprintf(out, "%sTimeout%s: the integration did not finish%s.\n", red, reset, suffix)
	case ExitErrorCanceled:
		fmt.Fprintf(out, "%sCanceled%s: the integration was interrupted%s.\n", yellow, reset, suffix)
	case ExitErrorConfig:
		fmt.Fprintf(out, "%sConfiguration error%s: %v\n", red, reset, err)
	case ExitErrorNonConvergence:
		fmt.Fprintf(out, "%sNo convergence%s%s: %v\n", yellow, reset, suffix, err)
	case ExitErrorInstability:
		fmt.Fprintf(out, "%sNumerical instability%s%s: %v\n", red, reset, suffix, err)
	default:
		fmt.Fprintf(out, "%sError%s%s: %v\n", red, reset, suffix, err)
	}
	return code
}

// Package config parses the integcalc command line, environment and config
// files into an AppConfig.
package config

import (
	"flag"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	apperrors "github.com/agbru/integcalc/internal/errors"
	"github.com/agbru/integcalc/internal/integration"
	"github.com/agbru/integcalc/internal/quadrature"
)

// EnvPrefix is the prefix of every environment variable override.
const EnvPrefix = "INTEGCALC_"

// PolicyAll selects every sample policy for a side-by-side comparison.
const PolicyAll = "all"

// Default values for the command-line flags.
const (
	DefaultAbsTolerance   = 1.0
	DefaultRelTolerance   = 1e-6
	DefaultTimeout        = 5 * time.Minute
	DefaultPolicy         = "midpoint"
	DefaultOnInstability  = "abort"
	DefaultLogFormat      = "json"
	DefaultLogLevel       = "warn"
	DefaultRepeat         = 1
	DefaultMatchTolerance = 0.01
)

// AppConfig aggregates the application's configuration parameters.
type AppConfig struct {
	// AbsTolerance is the absolute convergence tolerance.
	AbsTolerance float64
	// RelTolerance is the relative convergence tolerance.
	RelTolerance float64
	// Workers is the number of goroutines per resolution level; 0 selects
	// a value from the calibration profile or the CPU count.
	Workers int
	// XMin, XMax, YMin and YMax bound the integration rectangle.
	XMin, XMax float64
	YMin, YMax float64
	// InitialSteps is the per-axis step count of the first estimate.
	InitialSteps int
	// MaxIterations caps the number of resolution doublings.
	MaxIterations int
	// Policy is "midpoint", "corner" or "all".
	Policy string
	// OnInstability is "abort" or "refine".
	OnInstability string
	// Repeat is the number of trials per policy.
	Repeat int
	// MatchTolerance is the largest accepted spread between trials.
	MatchTolerance float64
	// ConfigFile is an optional YAML, TOML or plain-text config file.
	ConfigFile string
	// OutputFile receives a result record when set.
	OutputFile string
	// Timeout bounds the whole run.
	Timeout time.Duration
	// Verbose prints every resolution level.
	Verbose bool
	// Details adds memory statistics to the result.
	Details bool
	// Quiet prints only the estimate.
	Quiet bool
	// TUI starts the interactive dashboard.
	TUI bool
	// NoColor disables ANSI colors.
	NoColor bool
	// Calibrate runs the worker-count calibration.
	Calibrate bool
	// AutoCalibrate runs a quick calibration before integrating when no
	// worker count is given and no cached profile applies.
	AutoCalibrate bool
	// CalibrationProfile is the path of the calibration JSON profile.
	CalibrationProfile string
	// LogFormat is "json" (zerolog), "text" (tint) or "plain" (log).
	LogFormat string
	// LogLevel is debug, info, warn or error.
	LogLevel string
	// MetricsAddr enables the Prometheus endpoint when non-empty.
	MetricsAddr string
	// Completion generates a shell completion script and exits.
	Completion string
	// Interactive starts the line-oriented session.
	Interactive bool
}

// Domain returns the configured integration rectangle.
func (c AppConfig) Domain() quadrature.Domain {
	return quadrature.Domain{
		X: quadrature.Interval{Low: c.XMin, High: c.XMax},
		Y: quadrature.Interval{Low: c.YMin, High: c.YMax},
	}
}

// SamplePolicies returns the policies selected by Policy, in a stable order.
func (c AppConfig) SamplePolicies() ([]quadrature.SamplePolicy, error) {
	if strings.EqualFold(c.Policy, PolicyAll) {
		return quadrature.Policies(), nil
	}
	p, err := quadrature.ParseSamplePolicy(strings.ToLower(c.Policy))
	if err != nil {
		return nil, err
	}
	return []quadrature.SamplePolicy{p}, nil
}

// InstabilityPolicy maps OnInstability to the controller setting.
func (c AppConfig) InstabilityPolicy() (integration.InstabilityPolicy, error) {
	switch strings.ToLower(c.OnInstability) {
	case "", "abort":
		return integration.InstabilityAbort, nil
	case "refine":
		return integration.InstabilityRefine, nil
	default:
		return 0, apperrors.NewConfigError("unknown instability policy %q (want abort or refine)", c.OnInstability)
	}
}

// ToIntegrationConfig builds the core configuration. Workers must already be
// resolved; a zero value falls back to EstimateOptimalWorkers.
func (c AppConfig) ToIntegrationConfig() integration.Config {
	workers := c.Workers
	if workers == 0 {
		workers = EstimateOptimalWorkers()
	}
	return integration.Config{
		AbsTolerance: c.AbsTolerance,
		RelTolerance: c.RelTolerance,
		Workers:      workers,
		Domain:       c.Domain(),
	}
}

// ControllerOptions returns the controller options derived from the
// configuration for the given sample policy.
func (c AppConfig) ControllerOptions(p quadrature.SamplePolicy) []integration.Option {
	onInstability, _ := c.InstabilityPolicy()
	return []integration.Option{
		integration.WithInitialSteps(c.InitialSteps),
		integration.WithMaxIterations(c.MaxIterations),
		integration.WithPolicy(p),
		integration.WithInstabilityPolicy(onInstability),
	}
}

// Validate checks the semantic consistency of the configuration.
//
// Returns:
//   - error: An apperrors.ConfigError describing the first problem, or nil.
func (c AppConfig) Validate() error {
	if math.IsNaN(c.AbsTolerance) || c.AbsTolerance < 0 {
		return apperrors.NewConfigError("--abs-err must be >= 0, got %g", c.AbsTolerance)
	}
	if math.IsNaN(c.RelTolerance) || c.RelTolerance < 0 {
		return apperrors.NewConfigError("--rel-err must be >= 0, got %g", c.RelTolerance)
	}
	if c.Workers < 0 {
		return apperrors.NewConfigError("--workers must be >= 0 (0 = auto), got %d", c.Workers)
	}
	if err := c.Domain().Validate(); err != nil {
		return err
	}
	if c.InitialSteps < 1 || c.InitialSteps > integration.MaxSteps {
		return apperrors.NewConfigError("--init-steps must be in [1, %d], got %d", integration.MaxSteps, c.InitialSteps)
	}
	if c.MaxIterations < 0 {
		return apperrors.NewConfigError("--max-iter must be >= 0, got %d", c.MaxIterations)
	}
	if _, err := c.SamplePolicies(); err != nil {
		return err
	}
	if _, err := c.InstabilityPolicy(); err != nil {
		return err
	}
	if c.Repeat < 1 {
		return apperrors.NewConfigError("--repeat must be >= 1, got %d", c.Repeat)
	}
	if math.IsNaN(c.MatchTolerance) || c.MatchTolerance < 0 {
		return apperrors.NewConfigError("--match-tol must be >= 0, got %g", c.MatchTolerance)
	}
	if c.Timeout <= 0 {
		return apperrors.NewConfigError("--timeout must be positive, got %s", c.Timeout)
	}
	switch c.LogFormat {
	case "json", "text", "plain":
	default:
		return apperrors.NewConfigError("--log-format must be json, text or plain, got %q", c.LogFormat)
	}
	switch c.Completion {
	case "", "bash", "zsh", "fish", "powershell":
	default:
		return apperrors.NewConfigError("--completion must be bash, zsh, fish or powershell, got %q", c.Completion)
	}
	if c.Quiet && c.TUI {
		return apperrors.NewConfigError("--quiet and --tui are mutually exclusive")
	}
	return nil
}

// ParseConfig parses the command-line arguments, applies the config file and
// environment overrides, and validates the result.
//
// Precedence, highest first: command-line flags, INTEGCALC_* environment
// variables, the config file, built-in defaults.
//
// Parameters:
//   - programName: The name used in usage output.
//   - args: The arguments, without the program name.
//   - errorWriter: Receives usage and flag errors.
//
// Returns:
//   - AppConfig: The parsed configuration.
//   - error: flag.ErrHelp when help was requested, a flag parse error, or an
//     apperrors.ConfigError.
func ParseConfig(programName string, args []string, errorWriter io.Writer) (AppConfig, error) {
	fs := flag.NewFlagSet(programName, flag.ContinueOnError)
	fs.SetOutput(errorWriter)
	fs.Usage = func() {
		fmt.Fprintf(errorWriter, "Usage: %s [options]\n\n", programName)
		fmt.Fprintln(errorWriter, "Estimates the double integral of De Jong's fifth function, doubling the grid")
		fmt.Fprintln(errorWriter, "resolution until successive estimates agree within both tolerances.")
		fmt.Fprintln(errorWriter, "\nOptions:")
		fs.PrintDefaults()
		fmt.Fprintf(errorWriter, "\nEvery option can also be set with %s<NAME>, e.g. %sABS_ERR=0.5.\n", EnvPrefix, EnvPrefix)
	}

	config := AppConfig{}
	fs.Float64Var(&config.AbsTolerance, "abs-err", DefaultAbsTolerance, "Absolute tolerance between successive estimates.")
	fs.Float64Var(&config.RelTolerance, "rel-err", DefaultRelTolerance, "Relative tolerance between successive estimates.")
	fs.IntVar(&config.Workers, "workers", 0, "Workers per resolution level (0 = auto).")
	fs.IntVar(&config.Workers, "threads", 0, "Workers per resolution level (alias for --workers).")
	fs.Float64Var(&config.XMin, "x-min", quadrature.DefaultDomain.X.Low, "Lower bound of the x axis.")
	fs.Float64Var(&config.XMax, "x-max", quadrature.DefaultDomain.X.High, "Upper bound of the x axis.")
	fs.Float64Var(&config.YMin, "y-min", quadrature.DefaultDomain.Y.Low, "Lower bound of the y axis.")
	fs.Float64Var(&config.YMax, "y-max", quadrature.DefaultDomain.Y.High, "Upper bound of the y axis.")
	fs.IntVar(&config.InitialSteps, "init-steps", integration.DefaultInitialSteps, "Grid divisions per axis of the first estimate.")
	fs.IntVar(&config.MaxIterations, "max-iter", integration.DefaultMaxIterations, "Maximum number of resolution doublings.")
	fs.StringVar(&config.Policy, "policy", DefaultPolicy, "Sample policy: 'midpoint', 'corner' or 'all' to compare both.")
	fs.StringVar(&config.OnInstability, "on-instability", DefaultOnInstability, "Reaction to a non-finite estimate: 'abort' or 'refine'.")
	fs.IntVar(&config.Repeat, "repeat", DefaultRepeat, "Number of trials per policy.")
	fs.Float64Var(&config.MatchTolerance, "match-tol", DefaultMatchTolerance, "Largest accepted spread between trials of one policy.")
	fs.StringVar(&config.ConfigFile, "config", "", "Config file (.yaml, .toml, key = value or the seven-number format).")
	fs.StringVar(&config.OutputFile, "output", "", "Append the result to this file.")
	fs.StringVar(&config.OutputFile, "o", "", "Append the result to this file (shorthand).")
	fs.DurationVar(&config.Timeout, "timeout", DefaultTimeout, "Maximum execution time.")
	fs.BoolVar(&config.Verbose, "v", false, "Print every resolution level (shorthand).")
	fs.BoolVar(&config.Verbose, "verbose", false, "Print every resolution level.")
	fs.BoolVar(&config.Details, "d", false, "Display memory statistics (shorthand).")
	fs.BoolVar(&config.Details, "details", false, "Display memory statistics.")
	fs.BoolVar(&config.Quiet, "q", false, "Print only the estimate (shorthand).")
	fs.BoolVar(&config.Quiet, "quiet", false, "Print only the estimate.")
	fs.BoolVar(&config.TUI, "tui", false, "Launch the interactive dashboard.")
	fs.BoolVar(&config.NoColor, "no-color", false, "Disable colored output.")
	fs.BoolVar(&config.Calibrate, "calibrate", false, "Time candidate worker counts and save the fastest.")
	fs.BoolVar(&config.AutoCalibrate, "auto-calibrate", false, "Run a quick calibration when --workers is auto.")
	fs.StringVar(&config.CalibrationProfile, "calibration-profile", "", "Path of the calibration profile.")
	fs.StringVar(&config.LogFormat, "log-format", DefaultLogFormat, "Log format: 'json', 'text' or 'plain'.")
	fs.StringVar(&config.LogLevel, "log-level", DefaultLogLevel, "Log level: debug, info, warn or error.")
	fs.StringVar(&config.MetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090).")
	fs.StringVar(&config.Completion, "completion", "", "Generate a completion script: bash, zsh, fish or powershell.")
	fs.BoolVar(&config.Interactive, "i", false, "Start an interactive session (shorthand).")
	fs.BoolVar(&config.Interactive, "interactive", false, "Start an interactive session.")

	if err := fs.Parse(args); err != nil {
		return AppConfig{}, err
	}
	if fs.NArg() > 0 && config.ConfigFile == "" {
		// A bare positional argument names the config file.
		config.ConfigFile = fs.Arg(0)
	}

	if !isFlagSet(fs, "config") && config.ConfigFile == "" {
		config.ConfigFile = getEnvString("CONFIG", "")
	}
	if config.ConfigFile != "" {
		fc, err := LoadFile(config.ConfigFile)
		if err != nil {
			return AppConfig{}, err
		}
		fc.applyTo(&config, fs)
	}

	applyEnvOverrides(&config, fs)

	config.Policy = strings.ToLower(config.Policy)
	config.OnInstability = strings.ToLower(config.OnInstability)
	config.LogFormat = strings.ToLower(config.LogFormat)

	if err := config.Validate(); err != nil {
		fmt.Fprintln(errorWriter, "Configuration error:", err)
		return AppConfig{}, err
	}
	return config, nil
}

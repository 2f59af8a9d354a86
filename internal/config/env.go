// This file contains environment variable utilities for configuration override.

package config

import (
	"flag"
	"os"
	"strconv"
	"strings"
	"time"
)

// ─────────────────────────────────────────────────────────────────────────────
// Environment Variable Utilities
// ─────────────────────────────────────────────────────────────────────────────

// getEnvString returns the value of the environment variable with the given key
// (prefixed with EnvPrefix), or the default value if not set.
func getEnvString(key, defaultVal string) string {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		return val
	}
	return defaultVal
}

// isFlagSet checks if a flag was explicitly set on the command line.
func isFlagSet(fs *flag.FlagSet, name string) bool {
	found := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

// isFlagSetAny checks if any of the specified flags were explicitly set.
// Aliased flags (-v/--verbose) are set through either name.
func isFlagSetAny(fs *flag.FlagSet, names ...string) bool {
	for _, name := range names {
		if isFlagSet(fs, name) {
			return true
		}
	}
	return false
}

// envOverride maps an env key (without the INTEGCALC_ prefix) to the CLI
// flag name(s) it corresponds to and a function that applies the env value.
// Unparsable values are ignored.
type envOverride struct {
	envKey string
	flags  []string
	apply  func(*AppConfig, string)
}

func setFloat(dst *float64) func(*AppConfig, string) {
	return func(_ *AppConfig, v string) {
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			*dst = parsed
		}
	}
}

func setInt(dst *int) func(*AppConfig, string) {
	return func(_ *AppConfig, v string) {
		if parsed, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			*dst = parsed
		}
	}
}

// envOverridesFor builds the override table bound to c's fields.
func envOverridesFor(c *AppConfig) []envOverride {
	return []envOverride{
		// Numeric overrides
		{"ABS_ERR", []string{"abs-err"}, setFloat(&c.AbsTolerance)},
		{"REL_ERR", []string{"rel-err"}, setFloat(&c.RelTolerance)},
		{"WORKERS", []string{"workers", "threads"}, setInt(&c.Workers)},
		{"X_MIN", []string{"x-min"}, setFloat(&c.XMin)},
		{"X_MAX", []string{"x-max"}, setFloat(&c.XMax)},
		{"Y_MIN", []string{"y-min"}, setFloat(&c.YMin)},
		{"Y_MAX", []string{"y-max"}, setFloat(&c.YMax)},
		{"INIT_STEPS", []string{"init-steps"}, setInt(&c.InitialSteps)},
		{"MAX_ITER", []string{"max-iter"}, setInt(&c.MaxIterations)},
		{"REPEAT", []string{"repeat"}, setInt(&c.Repeat)},
		{"MATCH_TOL", []string{"match-tol"}, setFloat(&c.MatchTolerance)},

		// Duration overrides
		{"TIMEOUT", []string{"timeout"}, func(c *AppConfig, v string) {
			if parsed, err := time.ParseDuration(v); err == nil {
				c.Timeout = parsed
			}
		}},

		// String overrides
		{"POLICY", []string{"policy"}, func(c *AppConfig, v string) { c.Policy = v }},
		{"ON_INSTABILITY", []string{"on-instability"}, func(c *AppConfig, v string) { c.OnInstability = v }},
		{"OUTPUT", []string{"output", "o"}, func(c *AppConfig, v string) { c.OutputFile = v }},
		{"CALIBRATION_PROFILE", []string{"calibration-profile"}, func(c *AppConfig, v string) { c.CalibrationProfile = v }},
		{"LOG_FORMAT", []string{"log-format"}, func(c *AppConfig, v string) { c.LogFormat = v }},
		{"LOG_LEVEL", []string{"log-level"}, func(c *AppConfig, v string) { c.LogLevel = v }},
		{"METRICS_ADDR", []string{"metrics-addr"}, func(c *AppConfig, v string) { c.MetricsAddr = v }},

		// Boolean overrides
		{"VERBOSE", []string{"v", "verbose"}, func(c *AppConfig, v string) { c.Verbose = parseBoolEnv(v, c.Verbose) }},
		{"DETAILS", []string{"d", "details"}, func(c *AppConfig, v string) { c.Details = parseBoolEnv(v, c.Details) }},
		{"QUIET", []string{"q", "quiet"}, func(c *AppConfig, v string) { c.Quiet = parseBoolEnv(v, c.Quiet) }},
		{"TUI", []string{"tui"}, func(c *AppConfig, v string) { c.TUI = parseBoolEnv(v, c.TUI) }},
		{"NO_COLOR", []string{"no-color"}, func(c *AppConfig, v string) { c.NoColor = parseBoolEnv(v, c.NoColor) }},
		{"CALIBRATE", []string{"calibrate"}, func(c *AppConfig, v string) { c.Calibrate = parseBoolEnv(v, c.Calibrate) }},
		{"AUTO_CALIBRATE", []string{"auto-calibrate"}, func(c *AppConfig, v string) { c.AutoCalibrate = parseBoolEnv(v, c.AutoCalibrate) }},
	}
}

// parseBoolEnv parses a boolean environment variable value.
// Accepts "true", "1", "yes" as true; "false", "0", "no" as false (case-insensitive).
// Returns defaultVal if the value is not recognized.
func parseBoolEnv(val string, defaultVal bool) bool {
	switch strings.ToLower(val) {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	}
	return defaultVal
}

// applyEnvOverrides applies environment variable values to the configuration
// for any flags that were not explicitly set on the command line.
//
// Supported environment variables (all prefixed with INTEGCALC_):
//   - ABS_ERR, REL_ERR, WORKERS, X_MIN, X_MAX, Y_MIN, Y_MAX, INIT_STEPS,
//     MAX_ITER, REPEAT, MATCH_TOL, TIMEOUT, POLICY, ON_INSTABILITY, OUTPUT,
//     CALIBRATION_PROFILE, LOG_FORMAT, LOG_LEVEL, METRICS_ADDR, VERBOSE,
//     DETAILS, QUIET, TUI, NO_COLOR, CALIBRATE, CONFIG
func applyEnvOverrides(config *AppConfig, fs *flag.FlagSet) {
	for _, o := range envOverridesFor(config) {
		if isFlagSetAny(fs, o.flags...) {
			continue
		}
		if val := os.Getenv(EnvPrefix + o.envKey); val != "" {
			o.apply(config, val)
		}
	}
}

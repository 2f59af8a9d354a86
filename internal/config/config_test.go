package config

import (
	"bytes"
	"errors"
	"flag"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	apperrors "github.com/agbru/integcalc/internal/errors"
	"github.com/agbru/integcalc/internal/integration"
	"github.com/agbru/integcalc/internal/quadrature"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestParseConfig_Defaults(t *testing.T) {
	t.Parallel()
	cfg, err := ParseConfig("integcalc", nil, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("ParseConfig: %v", err)
	}
	if cfg.AbsTolerance != DefaultAbsTolerance || cfg.RelTolerance != DefaultRelTolerance {
		t.Errorf("tolerances = %g/%g", cfg.AbsTolerance, cfg.RelTolerance)
	}
	if cfg.Domain() != quadrature.DefaultDomain {
		t.Errorf("Domain = %+v, want %+v", cfg.Domain(), quadrature.DefaultDomain)
	}
	if cfg.InitialSteps != integration.DefaultInitialSteps || cfg.MaxIterations != integration.DefaultMaxIterations {
		t.Errorf("steps/iterations = %d/%d", cfg.InitialSteps, cfg.MaxIterations)
	}
	if cfg.Workers != 0 || cfg.Policy != "midpoint" || cfg.Timeout != DefaultTimeout || cfg.Repeat != 1 {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}

func TestParseConfig_Flags(t *testing.T) {
	t.Parallel()
	args := []string{
		"--abs-err", "0.5", "--rel-err", "1e-4", "--threads", "3",
		"--x-min", "0", "--x-max", "1", "--y-min", "-1", "--y-max", "1",
		"--init-steps", "10", "--max-iter", "4", "--policy", "ALL",
		"--on-instability", "refine", "-v", "-o", "out.txt", "--timeout", "10s",
	}
	cfg, err := ParseConfig("integcalc", args, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("ParseConfig: %v", err)
	}
	if cfg.AbsTolerance != 0.5 || cfg.RelTolerance != 1e-4 || cfg.Workers != 3 {
		t.Errorf("numeric flags not applied: %+v", cfg)
	}
	if cfg.XMin != 0 || cfg.XMax != 1 || cfg.YMin != -1 || cfg.YMax != 1 {
		t.Errorf("domain flags not applied: %+v", cfg.Domain())
	}
	if !cfg.Verbose || cfg.OutputFile != "out.txt" || cfg.Timeout != 10*time.Second {
		t.Errorf("aliases not applied: %+v", cfg)
	}
	policies, err := cfg.SamplePolicies()
	if err != nil || len(policies) != 2 {
		t.Errorf("SamplePolicies = %v, %v", policies, err)
	}
	if p, _ := cfg.InstabilityPolicy(); p != integration.InstabilityRefine {
		t.Errorf("InstabilityPolicy = %v", p)
	}
}

func TestParseConfig_Help(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	_, err := ParseConfig("integcalc", []string{"--help"}, &buf)
	if !errors.Is(err, flag.ErrHelp) {
		t.Fatalf("expected flag.ErrHelp, got %v", err)
	}
	if !strings.Contains(buf.String(), "Usage: integcalc") {
		t.Errorf("usage output missing: %s", buf.String())
	}
}

func TestParseConfig_Rejections(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		args []string
	}{
		{"negative abs tolerance", []string{"--abs-err", "-1"}},
		{"negative workers", []string{"--workers", "-1"}},
		{"zero width x", []string{"--x-min", "5", "--x-max", "5"}},
		{"inverted y", []string{"--y-min", "1", "--y-max", "0"}},
		{"zero init steps", []string{"--init-steps", "0"}},
		{"negative max iter", []string{"--max-iter", "-1"}},
		{"unknown policy", []string{"--policy", "simpson"}},
		{"unknown instability policy", []string{"--on-instability", "retry"}},
		{"zero repeat", []string{"--repeat", "0"}},
		{"zero timeout", []string{"--timeout", "0s"}},
		{"bad log format", []string{"--log-format", "xml"}},
		{"bad completion", []string{"--completion", "tcsh"}},
		{"quiet with tui", []string{"--quiet", "--tui"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := ParseConfig("integcalc", tt.args, &bytes.Buffer{})
			if !apperrors.IsConfigError(err) {
				t.Fatalf("expected ConfigError, got %v", err)
			}
		})
	}
}

func TestLoadFile_Formats(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"positional", "config.txt", "0.001 1e-5\n4\n-10 10 -20 20\n"},
		{"key value", "integral.cfg", "# tolerances\nabs_err = 0.001\nrel_err=1e-5\nthreads = 4 # workers\n" +
			"x_start = -10\nx_end = 10\ny_start = -20\ny_end = 20\n"},
		{"yaml", "integral.yaml", "abs_err: 0.001\nrel_err: 1.0e-5\nthreads: 4\nx_start: -10\nx_end: 10\ny_start: -20\ny_end: 20\n"},
		{"toml", "integral.toml", "abs_err = 0.001\nrel_err = 1e-5\nthreads = 4\nx_start = -10.0\nx_end = 10.0\ny_start = -20.0\ny_end = 20.0\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			fc, err := LoadFile(writeFile(t, tt.file, tt.content))
			if err != nil {
				t.Fatalf("LoadFile: %v", err)
			}
			if fc.AbsErr == nil || *fc.AbsErr != 0.001 || fc.RelErr == nil || *fc.RelErr != 1e-5 {
				t.Errorf("tolerances not read: %+v", fc)
			}
			if fc.Threads == nil || *fc.Threads != 4 {
				t.Errorf("threads not read")
			}
			if *fc.XStart != -10 || *fc.XEnd != 10 || *fc.YStart != -20 || *fc.YEnd != 20 {
				t.Errorf("domain not read")
			}
			if fc.Policy != nil || fc.MaxIter != nil {
				t.Errorf("absent keys should stay nil")
			}
		})
	}
}

func TestLoadFile_Errors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"too few numbers", "c.txt", "0.1 0.1 4"},
		{"not a number", "c.txt", "0.1 0.1 four -1 1 -1 1"},
		{"unknown key", "c.cfg", "precision = 3\n"},
		{"missing equals", "c.cfg", "abs_err = 1\nthreads\n"},
		{"unknown yaml field", "c.yaml", "workers: 3\n"},
		{"unknown toml field", "c.toml", "workers = 3\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := LoadFile(writeFile(t, tt.file, tt.content))
			if !apperrors.IsConfigError(err) {
				t.Fatalf("expected ConfigError, got %v", err)
			}
		})
	}

	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); !apperrors.IsConfigError(err) {
		t.Errorf("missing file: expected ConfigError, got %v", err)
	}
}

func TestParseConfig_FileAndPositionalArgument(t *testing.T) {
	t.Parallel()
	path := writeFile(t, "run.cfg", "abs_err = 0.25\nthreads = 2\npolicy = corner\n")

	cfg, err := ParseConfig("integcalc", []string{"--threads", "6", path}, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("ParseConfig: %v", err)
	}
	if cfg.ConfigFile != path {
		t.Errorf("ConfigFile = %q", cfg.ConfigFile)
	}
	if cfg.AbsTolerance != 0.25 || cfg.Policy != "corner" {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if cfg.Workers != 6 {
		t.Errorf("flag should win over file: Workers = %d", cfg.Workers)
	}
}

// Environment tests mutate process state and cannot run in parallel.

func TestParseConfig_EnvPrecedence(t *testing.T) {
	path := writeFile(t, "run.yaml", "abs_err: 0.25\nrel_err: 0.01\nthreads: 2\n")
	t.Setenv(EnvPrefix+"CONFIG", path)
	t.Setenv(EnvPrefix+"REL_ERR", "0.002")
	t.Setenv(EnvPrefix+"WORKERS", "5")
	t.Setenv(EnvPrefix+"QUIET", "yes")
	t.Setenv(EnvPrefix+"TIMEOUT", "90s")

	cfg, err := ParseConfig("integcalc", []string{"--workers", "7"}, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("ParseConfig: %v", err)
	}
	if cfg.AbsTolerance != 0.25 {
		t.Errorf("file value lost: AbsTolerance = %g", cfg.AbsTolerance)
	}
	if cfg.RelTolerance != 0.002 {
		t.Errorf("env should override file: RelTolerance = %g", cfg.RelTolerance)
	}
	if cfg.Workers != 7 {
		t.Errorf("flag should override env: Workers = %d", cfg.Workers)
	}
	if !cfg.Quiet || cfg.Timeout != 90*time.Second {
		t.Errorf("env booleans/durations not applied: %+v", cfg)
	}
}

func TestParseConfig_InvalidEnvIgnored(t *testing.T) {
	t.Setenv(EnvPrefix+"MAX_ITER", "lots")
	cfg, err := ParseConfig("integcalc", nil, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("ParseConfig: %v", err)
	}
	if cfg.MaxIterations != integration.DefaultMaxIterations {
		t.Errorf("MaxIterations = %d", cfg.MaxIterations)
	}
}

func TestToIntegrationConfig(t *testing.T) {
	t.Parallel()
	cfg := AppConfig{AbsTolerance: 0.1, RelTolerance: 0.2, Workers: 3, XMin: 0, XMax: 1, YMin: 2, YMax: 4}
	ic := cfg.ToIntegrationConfig()
	if ic.Workers != 3 || ic.AbsTolerance != 0.1 || ic.RelTolerance != 0.2 {
		t.Errorf("ToIntegrationConfig = %+v", ic)
	}
	if ic.Domain.Y.Low != 2 || ic.Domain.Y.High != 4 {
		t.Errorf("Domain = %+v", ic.Domain)
	}

	cfg.Workers = 0
	if got := cfg.ToIntegrationConfig().Workers; got != EstimateOptimalWorkers() {
		t.Errorf("auto workers = %d, want %d", got, EstimateOptimalWorkers())
	}
	if err := cfg.ToIntegrationConfig().Validate(); err != nil {
		t.Errorf("resolved config should validate: %v", err)
	}
}

func TestEstimateOptimalWorkers(t *testing.T) {
	t.Parallel()
	w := EstimateOptimalWorkers()
	if w < 1 || w > runtime.NumCPU() && runtime.NumCPU() > 1 {
		t.Errorf("EstimateOptimalWorkers = %d with %d CPUs", w, runtime.NumCPU())
	}
	if got := ApplyAdaptiveWorkers(AppConfig{Workers: 9}).Workers; got != 9 {
		t.Errorf("explicit workers overwritten: %d", got)
	}
	if got := ApplyAdaptiveWorkers(AppConfig{}).Workers; got != w {
		t.Errorf("auto workers = %d, want %d", got, w)
	}
}

func TestFileConfigSet_ValidationError(t *testing.T) {
	t.Parallel()
	var fc FileConfig
	err := fc.set("threads", "many")
	var ve apperrors.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if ve.Field != "threads" {
		t.Errorf("Field = %q, want threads", ve.Field)
	}
	if err := fc.set("precision", "3"); !errors.As(err, &ve) || ve.Message != "unknown key" {
		t.Errorf("unknown key: got %v", err)
	}
}

func TestParseConfig_LargeIterationCapAccepted(t *testing.T) {
	t.Parallel()
	cfg, err := ParseConfig("integcalc", []string{"--max-iter", "64", "--workers", "1"}, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("ParseConfig: %v", err)
	}
	if cfg.MaxIterations != 64 {
		t.Errorf("MaxIterations = %d, want 64", cfg.MaxIterations)
	}
}

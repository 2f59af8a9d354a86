package e2e

import (
	"bytes"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

// buildBinary compiles cmd/integcalc into a temporary directory.
func buildBinary(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping e2e build in short mode")
	}

	binName := "integcalc"
	if runtime.GOOS == "windows" {
		binName += ".exe"
	}
	binPath := filepath.Join(t.TempDir(), binName)

	// go test runs in test/e2e; build from the module root.
	cmd := exec.Command("go", "build", "-o", binPath, "./cmd/integcalc")
	cmd.Dir = filepath.Join("..", "..")
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		t.Fatalf("failed to build integcalc: %v", err)
	}
	return binPath
}

func runBinary(t *testing.T, bin string, args ...string) (stdout, stderr string, code int) {
	t.Helper()
	cmd := exec.Command(bin, args...)
	cmd.Env = append(os.Environ(), "NO_COLOR=1", "HOME="+t.TempDir())
	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf

	err := cmd.Run()
	var exitErr *exec.ExitError
	switch {
	case err == nil:
	case errors.As(err, &exitErr):
		code = exitErr.ExitCode()
	default:
		t.Fatalf("failed to run integcalc: %v", err)
	}
	return outBuf.String(), errBuf.String(), code
}

// unitSquare keeps runs fast: De Jong's function is smooth on [0, 1)².
var unitSquare = []string{"--x-min", "0", "--x-max", "1", "--y-min", "0", "--y-max", "1", "--workers", "2"}

func TestCLI_E2E(t *testing.T) {
	bin := buildBinary(t)

	configFile := filepath.Join(t.TempDir(), "params.txt")
	if err := os.WriteFile(configFile, []byte("1e-3 1e-3 2 0 1 0 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		args     []string
		wantOut  string // case-insensitive substring of stdout+stderr
		wantCode int
	}{
		{
			name:     "Help",
			args:     []string{"--help"},
			wantOut:  "usage",
			wantCode: 0,
		},
		{
			name:     "Version",
			args:     []string{"--version"},
			wantOut:  "integcalc",
			wantCode: 0,
		},
		{
			name:     "Small Domain",
			args:     append([]string{"--abs-err", "1e-4", "--rel-err", "1e-4"}, unitSquare...),
			wantOut:  "Estimate:",
			wantCode: 0,
		},
		{
			name:     "Policy Comparison",
			args:     append([]string{"--abs-err", "1e-3", "--rel-err", "1e-3", "--policy", "all", "--repeat", "2"}, unitSquare...),
			wantOut:  "Global Status: Success",
			wantCode: 0,
		},
		{
			name:     "Positional Config File",
			args:     []string{configFile},
			wantOut:  "converged",
			wantCode: 0,
		},
		{
			name:     "Invalid Workers",
			args:     []string{"--workers", "-1"},
			wantOut:  "--workers must be >= 0",
			wantCode: 4,
		},
		{
			name:     "Unknown Policy",
			args:     []string{"--policy", "trapezoid"},
			wantOut:  "trapezoid",
			wantCode: 4,
		},
		{
			name:     "Non Convergence",
			args:     append([]string{"--abs-err", "0", "--rel-err", "0", "--max-iter", "1"}, unitSquare...),
			wantOut:  "No convergence",
			wantCode: 5,
		},
		{
			name:     "Timeout",
			args:     []string{"--timeout", "1ns", "--max-iter", "30", "--abs-err", "0", "--rel-err", "0"},
			wantOut:  "Timeout",
			wantCode: 2,
		},
		{
			name:     "Completion",
			args:     []string{"--completion", "bash"},
			wantOut:  "complete -F",
			wantCode: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stdout, stderr, code := runBinary(t, bin, tt.args...)
			if code != tt.wantCode {
				t.Errorf("exit code: got %d, want %d\nstdout:\n%s\nstderr:\n%s", code, tt.wantCode, stdout, stderr)
			}
			combined := strings.ToLower(stdout + stderr)
			if !strings.Contains(combined, strings.ToLower(tt.wantOut)) {
				t.Errorf("output missing %q\nstdout:\n%s\nstderr:\n%s", tt.wantOut, stdout, stderr)
			}
		})
	}
}

func TestCLI_E2E_Quiet(t *testing.T) {
	bin := buildBinary(t)

	args := append([]string{"--quiet", "--abs-err", "1e-3", "--rel-err", "1e-3"}, unitSquare...)
	stdout, stderr, code := runBinary(t, bin, args...)
	if code != 0 {
		t.Fatalf("exit code %d\nstderr:\n%s", code, stderr)
	}

	fields := strings.Fields(strings.TrimSpace(stdout))
	if len(fields) != 2 {
		t.Fatalf("expected 'estimate micros' on stdout, got %q", stdout)
	}
	if !strings.Contains(fields[0], ".") {
		t.Errorf("expected a decimal estimate, got %q", fields[0])
	}
}

func TestCLI_E2E_OutputFile(t *testing.T) {
	bin := buildBinary(t)

	outFile := filepath.Join(t.TempDir(), "results", "run.txt")
	args := append([]string{"--abs-err", "1e-3", "--rel-err", "1e-3", "--output", outFile}, unitSquare...)
	if _, stderr, code := runBinary(t, bin, args...); code != 0 {
		t.Fatalf("exit code %d\nstderr:\n%s", code, stderr)
	}

	data, err := os.ReadFile(outFile)
	if err != nil {
		t.Fatalf("expected result file: %v", err)
	}
	if !strings.Contains(string(data), "# Integration Result") {
		t.Errorf("unexpected result file:\n%s", data)
	}
}

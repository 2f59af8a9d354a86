package calibration

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/agbru/integcalc/internal/config"
	apperrors "github.com/agbru/integcalc/internal/errors"
	"github.com/agbru/integcalc/internal/logging"
	"github.com/agbru/integcalc/internal/quadrature"
)

func smallOptions() Options {
	return Options{
		Domain:     quadrature.Domain{X: quadrature.Interval{Low: 0, High: 1}, Y: quadrature.Interval{Low: 0, High: 1}},
		Policy:     quadrature.SampleMidpoint,
		Integrand:  quadrature.Product,
		Steps:      16,
		Repeats:    2,
		Candidates: []int{1, 2, 4},
	}
}

func TestCalibrate(t *testing.T) {
	t.Parallel()
	profile, results, err := Calibrate(context.Background(), smallOptions())
	if err != nil {
		t.Fatalf("Calibrate: %v", err)
	}
	if len(results) != 3 || len(profile.Timings) != 3 {
		t.Fatalf("got %d results and %d timings, want 3", len(results), len(profile.Timings))
	}
	found := false
	for _, r := range results {
		if r.Err != nil {
			t.Errorf("workers=%d failed: %v", r.Workers, r.Err)
		}
		// Midpoint sampling is exact for x*y.
		if !agrees(r.Estimate, 0.25) {
			t.Errorf("workers=%d estimate = %v, want 0.25", r.Workers, r.Estimate)
		}
		if r.Workers == profile.OptimalWorkers {
			found = true
		}
	}
	if !found {
		t.Errorf("OptimalWorkers %d is not a candidate", profile.OptimalWorkers)
	}
	if profile.CalibrationSteps != 16 || profile.CalibrationTime == "" {
		t.Errorf("profile metadata not set: %+v", profile)
	}
}

func TestCalibrate_InvalidOptions(t *testing.T) {
	t.Parallel()
	opts := smallOptions()
	opts.Candidates = nil
	if _, _, err := Calibrate(context.Background(), opts); !apperrors.IsConfigError(err) {
		t.Errorf("expected ConfigError for no candidates, got %v", err)
	}

	opts = smallOptions()
	opts.Steps = 0
	if _, _, err := Calibrate(context.Background(), opts); !apperrors.IsConfigError(err) {
		t.Errorf("expected ConfigError for zero steps, got %v", err)
	}

	opts = smallOptions()
	opts.Candidates = []int{0}
	if _, _, err := Calibrate(context.Background(), opts); err == nil {
		t.Error("expected an error when every candidate is invalid")
	}
}

func TestCalibrate_Canceled(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := Calibrate(ctx, smallOptions())
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestRunCalibration_SavesProfile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "profile.json")
	cfg := config.AppConfig{CalibrationProfile: path}

	var out bytes.Buffer
	code := runCalibration(context.Background(), cfg, smallOptions(), &out, logging.NewNopLogger())
	if code != apperrors.ExitSuccess {
		t.Fatalf("exit code = %d, output:\n%s", code, out.String())
	}
	for _, want := range []string{"Calibration Summary", "1 (sequential)", "(Optimal)", path} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out.String())
		}
	}
	if strings.Contains(out.String(), "estimate differs") {
		t.Errorf("worker counts should agree:\n%s", out.String())
	}

	loaded, err := loadProfile(path)
	if err != nil {
		t.Fatalf("profile not saved: %v", err)
	}
	if loaded.OptimalWorkers < 1 {
		t.Errorf("saved OptimalWorkers = %d", loaded.OptimalWorkers)
	}
}

func TestAutoCalibrate(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "auto.json")
	cfg := config.AppConfig{CalibrationProfile: path}

	got, ok := AutoCalibrate(context.Background(), cfg, logging.NewNopLogger())
	if !ok {
		t.Fatal("AutoCalibrate reported failure")
	}
	if got.Workers < 1 {
		t.Errorf("Workers = %d", got.Workers)
	}
	cached, loaded := LoadCachedCalibration(cfg, path)
	if !loaded || cached.Workers != got.Workers {
		t.Errorf("cached profile = %d (loaded %v), want %d", cached.Workers, loaded, got.Workers)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if same, ok := AutoCalibrate(ctx, cfg, logging.NewNopLogger()); ok || same.Workers != 0 {
		t.Errorf("canceled AutoCalibrate = (%d, %v), want (0, false)", same.Workers, ok)
	}
}

func TestLoadCachedCalibration(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	fresh := NewProfile()
	fresh.OptimalWorkers = 3
	freshPath := filepath.Join(dir, "fresh.json")
	if err := fresh.SaveProfile(freshPath); err != nil {
		t.Fatal(err)
	}

	stale := NewProfile()
	stale.OptimalWorkers = 5
	stale.CalibratedAt = time.Now().Add(-2 * DefaultMaxProfileAge)
	stalePath := filepath.Join(dir, "stale.json")
	if err := stale.SaveProfile(stalePath); err != nil {
		t.Fatal(err)
	}

	foreign := NewProfile()
	foreign.OptimalWorkers = 7
	foreign.NumCPU = 999
	foreignPath := filepath.Join(dir, "foreign.json")
	if err := foreign.SaveProfile(foreignPath); err != nil {
		t.Fatal(err)
	}

	badPath := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(badPath, []byte("{"), 0644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name        string
		workers     int
		path        string
		wantWorkers int
		wantApplied bool
	}{
		{"fresh profile", 0, freshPath, 3, true},
		{"explicit workers win", 2, freshPath, 2, false},
		{"stale profile", 0, stalePath, 0, false},
		{"other hardware", 0, foreignPath, 0, false},
		{"corrupt file", 0, badPath, 0, false},
		{"missing file", 0, filepath.Join(dir, "missing.json"), 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg, applied := LoadCachedCalibration(config.AppConfig{Workers: tt.workers}, tt.path)
			if applied != tt.wantApplied || cfg.Workers != tt.wantWorkers {
				t.Errorf("got workers=%d applied=%v, want %d/%v", cfg.Workers, applied, tt.wantWorkers, tt.wantApplied)
			}
		})
	}
}

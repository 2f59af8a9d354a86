// Package app wires configuration, logging, metrics and the presentation
// layers into the integcalc command.
package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/agbru/integcalc/internal/calibration"
	"github.com/agbru/integcalc/internal/cli"
	"github.com/agbru/integcalc/internal/config"
	apperrors "github.com/agbru/integcalc/internal/errors"
	"github.com/agbru/integcalc/internal/logging"
	"github.com/agbru/integcalc/internal/metrics"
	"github.com/agbru/integcalc/internal/orchestration"
	"github.com/agbru/integcalc/internal/quadrature"
	"github.com/agbru/integcalc/internal/server"
	"github.com/agbru/integcalc/internal/tui"
	"github.com/agbru/integcalc/internal/ui"
)

// Application represents the integcalc application instance.
type Application struct {
	Config    config.AppConfig
	ErrWriter io.Writer
	Logger    logging.Logger
	// Recorder is non-nil when --metrics-addr is set.
	Recorder *metrics.Recorder

	in            io.Reader
	executeOpts   []orchestration.ExecuteOption
	autoCalibrate bool
}

// AppOption configures an Application during construction.
type AppOption func(*Application)

// WithLogger replaces the logger built from --log-format and --log-level.
func WithLogger(l logging.Logger) AppOption {
	return func(a *Application) { a.Logger = l }
}

// WithInput sets the reader of the interactive session (stdin by default).
func WithInput(r io.Reader) AppOption {
	return func(a *Application) { a.in = r }
}

// WithExecuteOptions appends orchestration options to every run, e.g. a
// different integrand in tests.
func WithExecuteOptions(opts ...orchestration.ExecuteOption) AppOption {
	return func(a *Application) { a.executeOpts = append(a.executeOpts, opts...) }
}

// New creates a new Application instance by parsing command-line arguments.
//
// Parameters:
//   - args: The full argument vector, program name first.
//   - errWriter: Receives usage, configuration errors and logs.
//   - opts: Optional overrides.
//
// Returns:
//   - *Application: The configured application.
//   - error: A flag or configuration error (see IsHelpError).
func New(args []string, errWriter io.Writer, opts ...AppOption) (*Application, error) {
	app := &Application{ErrWriter: errWriter, in: os.Stdin}
	for _, opt := range opts {
		opt(app)
	}

	programName := "integcalc"
	var cmdArgs []string
	if len(args) > 0 {
		programName = args[0]
		cmdArgs = args[1:]
	}

	cfg, err := config.ParseConfig(programName, cmdArgs, errWriter)
	if err != nil {
		return nil, err
	}

	if app.Logger == nil {
		logW := errWriter
		if cfg.TUI {
			// The dashboard owns the terminal.
			logW = io.Discard
		}
		app.Logger = logging.New(logW, cfg.LogFormat, cfg.LogLevel, "integcalc", cfg.NoColor)
	}

	if withProfile, loaded := calibration.LoadCachedCalibration(cfg, cfg.CalibrationProfile); loaded {
		app.Logger.Debug("workers from calibration profile", logging.Int("workers", withProfile.Workers))
		cfg = withProfile
	} else {
		app.autoCalibrate = cfg.AutoCalibrate && cfg.Workers == 0
		cfg = config.ApplyAdaptiveWorkers(cfg)
	}

	if cfg.MetricsAddr != "" {
		app.Recorder = metrics.NewRecorder()
	}

	app.Config = cfg
	return app, nil
}

// Run executes the application based on the configured mode.
func (a *Application) Run(ctx context.Context, out io.Writer) int {
	if a.Config.Completion != "" {
		return a.runCompletion(out)
	}

	ui.InitTheme(a.Config.NoColor)

	if a.Config.Calibrate {
		return a.runCalibration(ctx, out)
	}
	if a.autoCalibrate {
		if updated, ok := calibration.AutoCalibrate(ctx, a.Config, a.Logger); ok {
			a.Config = updated
		}
	}

	return a.withMetricsServer(ctx, func(ctx context.Context) int {
		switch {
		case a.Config.TUI:
			return a.runTUI(ctx)
		case a.Config.Interactive:
			return a.runInteractive(ctx, out)
		default:
			return a.runCalculate(ctx, out)
		}
	})
}

func (a *Application) runCompletion(out io.Writer) int {
	policies := make([]string, 0, len(quadrature.Policies())+1)
	for _, p := range quadrature.Policies() {
		policies = append(policies, p.String())
	}
	policies = append(policies, config.PolicyAll)
	if err := cli.GenerateCompletion(out, a.Config.Completion, policies); err != nil {
		fmt.Fprintf(a.ErrWriter, "Error generating completion: %v\n", err)
		return apperrors.ExitErrorConfig
	}
	return apperrors.ExitSuccess
}

func (a *Application) runCalibration(ctx context.Context, out io.Writer) int {
	ctx, stopSignals := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stopSignals()
	return calibration.RunCalibration(ctx, a.Config, out, a.Logger)
}

// withMetricsServer runs fn, serving Prometheus metrics next to it when
// --metrics-addr is set. The server stops when fn returns.
func (a *Application) withMetricsServer(ctx context.Context, fn func(context.Context) int) int {
	if a.Recorder == nil {
		return fn(ctx)
	}

	srvCtx, stopServer := context.WithCancel(ctx)
	defer stopServer()

	g, gctx := errgroup.WithContext(srvCtx)
	srv := server.New(a.Config.MetricsAddr, a.Recorder, a.Logger)
	g.Go(func() error { return srv.Run(gctx) })
	a.Logger.Info("metrics server started", logging.String("addr", a.Config.MetricsAddr))

	code := fn(ctx)

	stopServer()
	if err := g.Wait(); err != nil {
		a.Logger.Error("metrics server failed", err, logging.String("addr", a.Config.MetricsAddr))
	}
	return code
}

// orchestrationOptions returns the logging, metrics and test hooks for
// orchestration.ExecuteIntegrations.
func (a *Application) orchestrationOptions() []orchestration.ExecuteOption {
	opts := []orchestration.ExecuteOption{orchestration.WithLogger(a.Logger)}
	if a.Recorder != nil {
		opts = append(opts, orchestration.WithRecorder(a.Recorder))
	}
	return append(opts, a.executeOpts...)
}

// lifecycle bounds ctx by --timeout and SIGINT/SIGTERM.
func (a *Application) lifecycle(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancelTimeout := context.WithTimeout(ctx, a.Config.Timeout)
	ctx, stopSignals := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	return ctx, func() {
		stopSignals()
		cancelTimeout()
	}
}

func (a *Application) runTUI(ctx context.Context) int {
	ctx, cancel := a.lifecycle(ctx)
	defer cancel()
	return tui.Run(ctx, a.Config, Version, a.orchestrationOptions()...)
}

// runInteractive starts the REPL. The timeout applies to each run, not to
// the session.
func (a *Application) runInteractive(ctx context.Context, out io.Writer) int {
	ctx, stopSignals := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stopSignals()

	repl := cli.NewREPL(a.Config, a.orchestrationOptions()...)
	repl.SetInput(a.in)
	repl.SetOutput(out)
	repl.Start(ctx)
	return apperrors.ExitSuccess
}

// IsHelpError checks if the error is a help flag error (--help was used).
func IsHelpError(err error) bool {
	return errors.Is(err, flag.ErrHelp)
}

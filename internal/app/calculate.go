package app

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/agbru/integcalc/internal/cli"
	apperrors "github.com/agbru/integcalc/internal/errors"
	"github.com/agbru/integcalc/internal/logging"
	"github.com/agbru/integcalc/internal/orchestration"
)

// runCalculate orchestrates the execution of the CLI integration command.
func (a *Application) runCalculate(ctx context.Context, out io.Writer) int {
	ctx, cancel := a.lifecycle(ctx)
	defer cancel()

	var runs []string
	if specs, err := orchestration.PlanRuns(a.Config); err == nil {
		runs = orchestration.RunNames(specs, a.Config.Repeat)
	}

	if !a.Config.Quiet {
		cli.PrintExecutionConfig(a.Config, out)
		cli.PrintExecutionMode(runs, out)
	}

	var reporter orchestration.ProgressReporter
	progressOut := out
	if a.Config.Quiet {
		progressOut = io.Discard
		reporter = orchestration.NullProgressReporter{}
	} else {
		reporter = cli.CLIProgressReporter{Verbose: a.Config.Verbose, MaxIterations: a.Config.MaxIterations}
	}

	a.Logger.Info("integration started",
		logging.String("domain", a.Config.Domain().String()),
		logging.String("policy", a.Config.Policy),
		logging.Int("workers", a.Config.Workers),
		logging.Int("runs", len(runs)))

	results := orchestration.ExecuteIntegrations(ctx, a.Config, reporter, progressOut, a.orchestrationOptions()...)

	outputCfg := cli.OutputConfig{
		OutputFile: a.Config.OutputFile,
		Quiet:      a.Config.Quiet,
		Verbose:    a.Config.Verbose,
		Details:    a.Config.Details,
	}
	return a.analyzeResultsWithOutput(results, outputCfg, out)
}

func (a *Application) analyzeResultsWithOutput(results []orchestration.RunResult, outputCfg cli.OutputConfig, out io.Writer) int {
	var exitCode int
	if outputCfg.Quiet {
		// Summary lines and errors go to stderr so stdout holds only the
		// estimate.
		qp := quietPresenter{out: out, errW: a.ErrWriter}
		exitCode = orchestration.AnalyzeComparisonResults(results, a.Config, qp, qp, a.ErrWriter)
	} else {
		p := cli.CLIResultPresenter{}
		exitCode = orchestration.AnalyzeComparisonResults(results, a.Config, p, p, out)
	}

	best := orchestration.FindBestResult(results)
	a.logOutcome(best, exitCode)
	if best == nil || exitCode != apperrors.ExitSuccess {
		return exitCode
	}

	if err := a.saveResultIfNeeded(*best, outputCfg, out); err != nil {
		return apperrors.ExitErrorGeneric
	}
	return exitCode
}

func (a *Application) logOutcome(best *orchestration.RunResult, exitCode int) {
	if best == nil {
		a.Logger.Info("integration finished without a converged run", logging.Int("exit_code", exitCode))
		return
	}
	a.Logger.Info("integration finished",
		logging.String("run", best.Name),
		logging.String("run_id", best.RunID),
		logging.Float64("estimate", best.Result.Estimate),
		logging.Float64("rel_error", best.Result.RelError),
		logging.Int("steps", best.Result.Steps),
		logging.Duration("duration", best.Duration),
		logging.Int("exit_code", exitCode))
}

func (a *Application) saveResultIfNeeded(res orchestration.RunResult, cfg cli.OutputConfig, out io.Writer) error {
	if cfg.OutputFile == "" {
		return nil
	}
	if err := cli.WriteResultToFile(res, cfg); err != nil {
		a.Logger.Error("result not saved", err, logging.String("path", cfg.OutputFile))
		fmt.Fprintf(a.ErrWriter, "Error saving result: %v\n", err)
		return err
	}
	if !cfg.Quiet {
		fmt.Fprintf(out, "\nResult saved to: %s\n", cfg.OutputFile)
	}
	return nil
}

// quietPresenter prints only the estimate line of the presented result.
type quietPresenter struct {
	out  io.Writer
	errW io.Writer
}

func (quietPresenter) PresentComparisonTable([]orchestration.RunResult, io.Writer) {}

func (q quietPresenter) PresentResult(r orchestration.RunResult, _ orchestration.PresentationOptions, _ io.Writer) {
	cli.DisplayQuietResult(q.out, r)
}

func (q quietPresenter) HandleError(err error, duration time.Duration, _ io.Writer) int {
	return apperrors.HandleCalculationError(err, duration, q.errW, nil)
}

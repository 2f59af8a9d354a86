package cli

import (
	"fmt"
	"io"
	"sync"
	"time"

	apperrors "github.com/agbru/integcalc/internal/errors"
	"github.com/agbru/integcalc/internal/format"
	"github.com/agbru/integcalc/internal/orchestration"
	"github.com/agbru/integcalc/internal/progress"
	"github.com/agbru/integcalc/internal/ui"
)

// CLIProgressReporter implements orchestration.ProgressReporter for CLI
// output: a spinner by default, or one line per resolution level when
// Verbose is set.
type CLIProgressReporter struct {
	Verbose       bool
	MaxIterations int
}

// Verify that CLIProgressReporter implements orchestration.ProgressReporter.
var _ orchestration.ProgressReporter = CLIProgressReporter{}

// DisplayProgress displays the progress of the running integrations.
func (r CLIProgressReporter) DisplayProgress(wg *sync.WaitGroup, updates <-chan progress.IterationUpdate, runs []string, out io.Writer) {
	if r.Verbose {
		DisplayIterationLog(wg, updates, runs, out)
		return
	}
	DisplayProgress(wg, updates, runs, r.MaxIterations, out)
}

// CLIResultPresenter implements orchestration.ResultPresenter for CLI output.
type CLIResultPresenter struct{}

// Verify interface compliance.
var (
	_ orchestration.ResultPresenter   = CLIResultPresenter{}
	_ orchestration.DurationFormatter = CLIResultPresenter{}
	_ orchestration.ErrorHandler      = CLIResultPresenter{}
)

// PresentComparisonTable displays one row per run: its label, estimate,
// relative error, duration and status. Uses manual padding to correctly
// handle ANSI color codes.
func (CLIResultPresenter) PresentComparisonTable(results []orchestration.RunResult, out io.Writer) {
	fmt.Fprintf(out, "\n--- Comparison Summary ---\n")

	headers := []string{"Run", "Estimate", "Rel error", "Duration"}
	rows := make([][]string, len(results))
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for i, res := range results {
		duration := format.FormatExecutionDuration(res.Duration)
		if res.Duration == 0 {
			duration = "< 1µs"
		}
		rows[i] = []string{res.Name, format.FormatEstimate(res.Result.Estimate), format.FormatError(res.Result.RelError), duration}
		for j, cell := range rows[i] {
			if n := len([]rune(cell)); n > widths[j] {
				widths[j] = n
			}
		}
	}

	for i, h := range headers {
		fmt.Fprintf(out, "%s%s%s%s   ", ui.ColorUnderline(), h, ui.ColorReset(), padRight("", widths[i]-len(h)))
	}
	fmt.Fprintf(out, "%sStatus%s\n", ui.ColorUnderline(), ui.ColorReset())

	colors := []func() string{ui.ColorBlue, ui.ColorGreen, ui.ColorCyan, ui.ColorYellow}
	for i, res := range results {
		for j, cell := range rows[i] {
			fmt.Fprintf(out, "%s%s%s%s   ", colors[j](), cell, ui.ColorReset(), padRight("", widths[j]-len([]rune(cell))))
		}
		var status string
		if res.Converged() {
			status = fmt.Sprintf("%s✅ Converged%s", ui.ColorGreen(), ui.ColorReset())
		} else {
			status = fmt.Sprintf("%s❌ %s (%v)%s", ui.ColorRed(), res.Result.State, res.Err, ui.ColorReset())
		}
		fmt.Fprintln(out, status)
	}
}

// padRight returns s followed by length spaces.
func padRight(s string, length int) string {
	if length <= 0 {
		return s
	}
	return s + fmt.Sprintf("%*s", length, "")
}

// PresentResult displays the selected run using DisplayResult.
func (CLIResultPresenter) PresentResult(result orchestration.RunResult, opts orchestration.PresentationOptions, out io.Writer) {
	DisplayResult(result, opts.Verbose, opts.Details, out)
}

// FormatDuration formats a duration for display using the CLI's standard
// duration formatting.
func (CLIResultPresenter) FormatDuration(d time.Duration) string {
	return format.FormatExecutionDuration(d)
}

// HandleError handles calculation errors and returns an appropriate exit code.
func (CLIResultPresenter) HandleError(err error, duration time.Duration, out io.Writer) int {
	return apperrors.HandleCalculationError(err, duration, out, CLIColorProvider{})
}

// CLIColorProvider supplies the current theme's colors to apperrors.
type CLIColorProvider struct{}

var _ apperrors.ColorProvider = CLIColorProvider{}

func (CLIColorProvider) Red() string    { return ui.ColorRed() }
func (CLIColorProvider) Yellow() string { return ui.ColorYellow() }
func (CLIColorProvider) Reset() string  { return ui.ColorReset() }

// DisplayMemoryStats shows memory statistics after a calculation.
func DisplayMemoryStats(heapAlloc, totalAlloc uint64, numGC uint32, pauseTotalNs uint64, out io.Writer) {
	fmt.Fprintf(out, "\nMemory Stats:\n")
	fmt.Fprintf(out, "  Heap in use:     %s\n", format.FormatBytes(heapAlloc))
	fmt.Fprintf(out, "  Total allocated: %s\n", format.FormatBytes(totalAlloc))
	fmt.Fprintf(out, "  GC cycles:       %d\n", numGC)
	fmt.Fprintf(out, "  GC pause total:  %.2fms\n", float64(pauseTotalNs)/1e6)
}

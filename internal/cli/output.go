// # Naming Conventions
//
// Functions in this package follow consistent naming patterns based on their behavior:
//
//   - Display* functions write formatted output to an [io.Writer].
//     They handle presentation logic and colorization.
//     Examples: [DisplayResult], [DisplayQuietResult], [DisplayProgress].
//
//   - Format* functions return a formatted string without performing I/O.
//     They are pure functions suitable for composition.
//     Examples: [FormatQuietResult].
//
//   - Write* functions write data to files on the filesystem.
//     They handle file creation, directory setup, and error handling.
//     Examples: [WriteResultToFile].

package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/agbru/integcalc/internal/format"
	"github.com/agbru/integcalc/internal/metrics"
	"github.com/agbru/integcalc/internal/orchestration"
	"github.com/agbru/integcalc/internal/ui"
)

// OutputConfig holds configuration for result output.
type OutputConfig struct {
	// OutputFile is the path of the result log (empty for no file output).
	OutputFile string
	// Quiet mode prints only the estimate and the time.
	Quiet bool
	// Verbose adds the run identity to the result.
	Verbose bool
	// Details adds the grid size and memory statistics.
	Details bool
}

// DisplayResult prints the outcome of one run: the estimate, the errors
// between the last two levels, the iteration count, the steps per axis and
// the time in microseconds.
//
// Parameters:
//   - r: The run to display.
//   - verbose: Adds the run identifier and worker count.
//   - details: Adds the grid size and memory statistics.
//   - out: The output writer.
func DisplayResult(r orchestration.RunResult, verbose, details bool, out io.Writer) {
	res := r.Result
	fmt.Fprintf(out, "\n--- Result ---\n")
	fmt.Fprintf(out, "Estimate:        %s%s%s\n", ui.ColorGreen(), format.FormatEstimate(res.Estimate), ui.ColorReset())
	fmt.Fprintf(out, "Absolute error:  %s\n", format.FormatError(res.AbsError))
	fmt.Fprintf(out, "Relative error:  %s\n", format.FormatError(res.RelError))
	fmt.Fprintf(out, "Iterations:      %d\n", res.Iterations)
	fmt.Fprintf(out, "Steps per axis:  %s\n", format.FormatSteps(res.Steps))
	fmt.Fprintf(out, "Time:            %s%s%s (%s)\n",
		ui.ColorYellow(), format.FormatMicroseconds(r.Duration), ui.ColorReset(),
		format.FormatExecutionDuration(r.Duration))
	fmt.Fprintf(out, "State:           %s\n", stateLabel(r))

	if verbose {
		fmt.Fprintf(out, "Run:             %s %s(%s)%s\n", r.Name, ui.ColorDim(), r.RunID, ui.ColorReset())
		fmt.Fprintf(out, "Workers:         %d\n", r.Workers)
	}
	if details {
		cells := uint64(res.Steps) * uint64(res.Steps)
		fmt.Fprintf(out, "\n%sDetailed run analysis%s\n", ui.ColorBold(), ui.ColorReset())
		fmt.Fprintf(out, "  Sample policy:   %s\n", r.Policy)
		fmt.Fprintf(out, "  Cells (last):    %s\n", format.FormatSteps(int(cells)))
		snap := metrics.NewMemoryCollector().Snapshot()
		DisplayMemoryStats(snap.HeapAlloc, snap.TotalAlloc, snap.NumGC, snap.PauseTotalNs, out)
	}
}

func stateLabel(r orchestration.RunResult) string {
	if r.Converged() {
		return ui.ColorGreen() + r.Result.State.String() + ui.ColorReset()
	}
	return ui.ColorRed() + r.Result.State.String() + ui.ColorReset()
}

// WriteResultToFile appends a result record to the configured log file.
// Several runs can share one file; each record carries its run identifier.
//
// Parameters:
//   - r: The run to record.
//   - config: Output configuration.
//
// Returns:
//   - error: An error if the file cannot be written.
func WriteResultToFile(r orchestration.RunResult, config OutputConfig) error {
	if config.OutputFile == "" {
		return nil
	}

	dir := filepath.Dir(config.OutputFile)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	file, err := os.OpenFile(config.OutputFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open output file: %w", err)
	}
	defer file.Close()

	res := r.Result
	fmt.Fprintf(file, "# Integration Result\n")
	fmt.Fprintf(file, "# Generated: %s\n", time.Now().Format(time.RFC3339))
	fmt.Fprintf(file, "# Run: %s %s\n", r.RunID, r.Name)
	fmt.Fprintf(file, "# Workers: %d\n", r.Workers)
	fmt.Fprintf(file, "# State: %s\n", res.State)
	fmt.Fprintf(file, "%s\n%s\n%s\n%d\n%d\n",
		format.FormatEstimate(res.Estimate), format.FormatError(res.AbsError),
		format.FormatError(res.RelError), res.Iterations, res.Steps)
	if _, err := fmt.Fprintf(file, "%d\n\n", r.Duration.Microseconds()); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return nil
}

// FormatQuietResult formats a result for quiet mode output: the estimate and
// the time in microseconds on one line, suitable for scripting.
func FormatQuietResult(r orchestration.RunResult) string {
	return fmt.Sprintf("%s %d", format.FormatEstimate(r.Result.Estimate), r.Duration.Microseconds())
}

// DisplayQuietResult outputs a result in quiet mode (minimal output).
func DisplayQuietResult(out io.Writer, r orchestration.RunResult) {
	fmt.Fprintln(out, FormatQuietResult(r))
}

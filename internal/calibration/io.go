package calibration

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/agbru/integcalc/internal/format"
	"github.com/agbru/integcalc/internal/ui"
)

// printCalibrationResults formats and prints the calibration results table.
// Estimates are compared with the first successful row.
func printCalibrationResults(out io.Writer, results []calibrationResult, bestWorkers int) {
	fmt.Fprintf(out, "\n--- Calibration Summary ---\n")
	tw := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintf(tw, "  %sWorkers%s      │ %sLevel Time%s\n", ui.ColorUnderline(), ui.ColorReset(), ui.ColorUnderline(), ui.ColorReset())
	fmt.Fprintf(tw, "  %s┼%s\n", strings.Repeat("─", 14), strings.Repeat("─", 25))

	var reference *calibrationResult
	for i := range results {
		res := results[i]
		label := fmt.Sprintf("%d", res.Workers)
		if res.Workers == 1 {
			label = "1 (sequential)"
		}
		durationStr := fmt.Sprintf("%sN/A%s", ui.ColorRed(), ui.ColorReset())
		if res.Err == nil {
			durationStr = format.FormatExecutionDuration(res.Duration)
			if res.Duration == 0 {
				durationStr = "< 1µs"
			}
		}
		note := ""
		if res.Err == nil {
			if reference == nil {
				reference = &results[i]
			} else if !agrees(res.Estimate, reference.Estimate) {
				note = fmt.Sprintf(" %s(estimate differs)%s", ui.ColorRed(), ui.ColorReset())
			}
			if res.Workers == bestWorkers {
				note += fmt.Sprintf(" %s(Optimal)%s", ui.ColorGreen(), ui.ColorReset())
			}
		}
		fmt.Fprintf(tw, "  %s%-12s%s │ %s%s%s%s\n", ui.ColorCyan(), label, ui.ColorReset(), ui.ColorYellow(), durationStr, ui.ColorReset(), note)
	}
	tw.Flush()
}

// printCalibrationOutput prints the saved profile.
func printCalibrationOutput(p *CalibrationProfile, path string, out io.Writer) {
	fmt.Fprintf(out, "\n%sCalibration%s: optimal workers=%s%d%s, saved to %s\n",
		ui.ColorGreen(), ui.ColorReset(),
		ui.ColorYellow(), p.OptimalWorkers, ui.ColorReset(), path)
}

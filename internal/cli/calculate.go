package cli

import (
	"fmt"
	"io"
	"runtime"
	"strings"

	"github.com/agbru/integcalc/internal/config"
	"github.com/agbru/integcalc/internal/sysmon"
	"github.com/agbru/integcalc/internal/ui"
)

// PrintExecutionConfig displays the current execution configuration to the
// user: the integration rectangle, tolerances, refinement budget, worker
// count and a description of the host.
//
// Parameters:
//   - cfg: The application configuration. Workers should be resolved.
//   - out: The writer for standard output.
func PrintExecutionConfig(cfg config.AppConfig, out io.Writer) {
	fmt.Fprintf(out, "--- Execution Configuration ---\n")
	fmt.Fprintf(out, "Integrating over %s%s%s (area %g) with a timeout of %s%s%s.\n",
		ui.ColorMagenta(), cfg.Domain(), ui.ColorReset(), cfg.Domain().Area(), ui.ColorYellow(), cfg.Timeout, ui.ColorReset())
	fmt.Fprintf(out, "Tolerances: abs=%s%g%s, rel=%s%g%s; %s%d%s initial steps, at most %s%d%s doublings.\n",
		ui.ColorCyan(), cfg.AbsTolerance, ui.ColorReset(),
		ui.ColorCyan(), cfg.RelTolerance, ui.ColorReset(),
		ui.ColorCyan(), cfg.InitialSteps, ui.ColorReset(),
		ui.ColorCyan(), cfg.MaxIterations, ui.ColorReset())
	fmt.Fprintf(out, "Workers: %s%d%s per level, on %s%d%s logical processors (%s), Go %s%s%s.\n",
		ui.ColorCyan(), cfg.Workers, ui.ColorReset(),
		ui.ColorCyan(), runtime.NumCPU(), ui.ColorReset(), sysmon.ModelName(),
		ui.ColorCyan(), runtime.Version(), ui.ColorReset())
	if feats := sysmon.CPUFeatures(); len(feats) > 0 {
		fmt.Fprintf(out, "CPU features: %s.\n", strings.Join(feats, ", "))
	}
}

// PrintExecutionMode displays the execution mode (single run vs comparison).
//
// Parameters:
//   - runs: The labels of the planned runs.
//   - out: The writer for standard output.
func PrintExecutionMode(runs []string, out io.Writer) {
	var modeDesc string
	switch len(runs) {
	case 0:
		modeDesc = "Nothing to run"
	case 1:
		modeDesc = fmt.Sprintf("Single integration with %s%s%s sampling",
			ui.ColorGreen(), runs[0], ui.ColorReset())
	default:
		modeDesc = fmt.Sprintf("Comparison of %d runs (%s)", len(runs), strings.Join(runs, ", "))
	}
	fmt.Fprintf(out, "Execution mode: %s.\n", modeDesc)
	fmt.Fprintf(out, "\n--- Starting Execution ---\n")
}

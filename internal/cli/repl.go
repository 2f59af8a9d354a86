package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/agbru/integcalc/internal/config"
	"github.com/agbru/integcalc/internal/orchestration"
	"github.com/agbru/integcalc/internal/quadrature"
	"github.com/agbru/integcalc/internal/ui"
)

// REPL is an interactive session that re-runs the integration with adjusted
// tolerances, worker count, domain or sample policy.
type REPL struct {
	cfg  config.AppConfig
	opts []orchestration.ExecuteOption
	in   io.Reader
	out  io.Writer
}

// NewREPL creates a new REPL instance starting from cfg. The execute options
// are passed to every run (logger, recorder, integrand).
func NewREPL(cfg config.AppConfig, opts ...orchestration.ExecuteOption) *REPL {
	if cfg.Workers == 0 {
		cfg.Workers = config.EstimateOptimalWorkers()
	}
	return &REPL{
		cfg:  cfg,
		opts: opts,
		in:   os.Stdin,
		out:  os.Stdout,
	}
}

// SetInput sets a custom input reader (useful for testing).
func (r *REPL) SetInput(in io.Reader) {
	r.in = in
}

// SetOutput sets a custom output writer (useful for testing).
func (r *REPL) SetOutput(out io.Writer) {
	r.out = out
}

// Config returns the session's current configuration.
func (r *REPL) Config() config.AppConfig {
	return r.cfg
}

// Start reads commands until "exit", EOF or ctx is done.
func (r *REPL) Start(ctx context.Context) {
	r.printBanner()
	r.printHelp()
	fmt.Fprintln(r.out)

	reader := bufio.NewReader(r.in)
	for ctx.Err() == nil {
		fmt.Fprint(r.out, ui.ColorGreen()+"integ> "+ui.ColorReset())

		input, err := reader.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(r.out, "\nGoodbye!")
				return
			}
			fmt.Fprintf(r.out, "%sRead error: %v%s\n", ui.ColorRed(), err, ui.ColorReset())
			continue
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		if !r.processCommand(ctx, input) {
			return
		}
	}
}

func (r *REPL) printBanner() {
	fmt.Fprintf(r.out, "\n%s╔══════════════════════════════════════════════════════════╗%s\n", ui.ColorCyan(), ui.ColorReset())
	fmt.Fprintf(r.out, "%s║%s     %s∬ Adaptive Integration - Interactive Mode%s            %s║%s\n",
		ui.ColorCyan(), ui.ColorReset(), ui.ColorBold(), ui.ColorReset(), ui.ColorCyan(), ui.ColorReset())
	fmt.Fprintf(r.out, "%s╚══════════════════════════════════════════════════════════╝%s\n\n", ui.ColorCyan(), ui.ColorReset())
}

func (r *REPL) printHelp() {
	fmt.Fprintf(r.out, "%sAvailable commands:%s\n", ui.ColorBold(), ui.ColorReset())
	cmds := [][2]string{
		{"run", "Integrate with the current settings"},
		{"abs <tol>", "Set the absolute tolerance"},
		{"rel <tol>", "Set the relative tolerance"},
		{"workers <n>", "Set the workers per level (0 = auto)"},
		{"policy <name>", "Set the sample policy (midpoint, corner, all)"},
		{"steps <n>", "Set the initial steps per axis"},
		{"iter <n>", "Set the maximum number of doublings"},
		{"x <min> <max>", "Set the x bounds"},
		{"y <min> <max>", "Set the y bounds"},
		{"status", "Display current configuration"},
		{"help", "Display this help"},
		{"exit", "Exit interactive mode"},
	}
	for _, c := range cmds {
		fmt.Fprintf(r.out, "  %s%-14s%s - %s\n", ui.ColorYellow(), c[0], ui.ColorReset(), c[1])
	}
}

// processCommand parses and executes a user command.
// Returns false if the REPL should exit.
func (r *REPL) processCommand(ctx context.Context, input string) bool {
	parts := strings.Fields(input)
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	var err error
	switch cmd {
	case "run", "r":
		r.run(ctx)
	case "abs":
		err = r.setFloat(args, &r.cfg.AbsTolerance)
	case "rel":
		err = r.setFloat(args, &r.cfg.RelTolerance)
	case "workers", "threads":
		err = r.setInt(args, &r.cfg.Workers)
	case "steps":
		err = r.setInt(args, &r.cfg.InitialSteps)
	case "iter":
		err = r.setInt(args, &r.cfg.MaxIterations)
	case "policy", "p":
		err = r.setPolicy(args)
	case "x":
		err = r.setBounds(args, &r.cfg.XMin, &r.cfg.XMax)
	case "y":
		err = r.setBounds(args, &r.cfg.YMin, &r.cfg.YMax)
	case "status", "st":
		r.cmdStatus()
	case "help", "h", "?":
		r.printHelp()
	case "exit", "quit", "q":
		fmt.Fprintf(r.out, "%sGoodbye!%s\n", ui.ColorGreen(), ui.ColorReset())
		return false
	default:
		fmt.Fprintf(r.out, "%sUnknown command: %s%s\n", ui.ColorRed(), cmd, ui.ColorReset())
		fmt.Fprintf(r.out, "Type %shelp%s to see available commands.\n", ui.ColorYellow(), ui.ColorReset())
	}
	if err != nil {
		fmt.Fprintf(r.out, "%s%v%s\n", ui.ColorRed(), err, ui.ColorReset())
	}
	return true
}

func (r *REPL) setFloat(args []string, dst *float64) error {
	if len(args) != 1 {
		return errors.New("usage: <command> <value>")
	}
	v, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return fmt.Errorf("invalid value: %s", args[0])
	}
	*dst = v
	return nil
}

func (r *REPL) setInt(args []string, dst *int) error {
	if len(args) != 1 {
		return errors.New("usage: <command> <value>")
	}
	v, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid value: %s", args[0])
	}
	*dst = v
	return nil
}

func (r *REPL) setBounds(args []string, lo, hi *float64) error {
	if len(args) != 2 {
		return errors.New("usage: x|y <min> <max>")
	}
	a, err1 := strconv.ParseFloat(args[0], 64)
	b, err2 := strconv.ParseFloat(args[1], 64)
	if err1 != nil || err2 != nil {
		return fmt.Errorf("invalid bounds: %s %s", args[0], args[1])
	}
	*lo, *hi = a, b
	return nil
}

func (r *REPL) setPolicy(args []string) error {
	if len(args) != 1 {
		return errors.New("usage: policy midpoint|corner|all")
	}
	name := strings.ToLower(args[0])
	if name != config.PolicyAll {
		if _, err := quadrature.ParseSamplePolicy(name); err != nil {
			return err
		}
	}
	r.cfg.Policy = name
	fmt.Fprintf(r.out, "Sample policy changed to: %s%s%s\n", ui.ColorGreen(), name, ui.ColorReset())
	return nil
}

// run validates the session's configuration and integrates with it. The
// resolution levels are printed as they complete.
func (r *REPL) run(ctx context.Context) {
	cfg := r.cfg
	if cfg.Workers == 0 {
		cfg.Workers = config.EstimateOptimalWorkers()
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(r.out, "%s%v%s\n", ui.ColorRed(), err, ui.ColorReset())
		return
	}

	runCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	fmt.Fprintf(r.out, "Integrating over %s%s%s with %s%s%s sampling...\n",
		ui.ColorMagenta(), cfg.Domain(), ui.ColorReset(), ui.ColorCyan(), cfg.Policy, ui.ColorReset())

	reporter := CLIProgressReporter{Verbose: true, MaxIterations: cfg.MaxIterations}
	results := orchestration.ExecuteIntegrations(runCtx, cfg, reporter, r.out, r.opts...)

	presenter := CLIResultPresenter{}
	if len(results) > 1 {
		presenter.PresentComparisonTable(results, r.out)
	}
	for _, res := range results {
		if !res.Converged() {
			presenter.HandleError(res.Err, res.Duration, r.out)
			continue
		}
		fmt.Fprintf(r.out, "  %s%-12s%s = %s%s%s in %s\n",
			ui.ColorYellow(), res.Name, ui.ColorReset(),
			ui.ColorGreen(), strconv.FormatFloat(res.Result.Estimate, 'f', 10, 64), ui.ColorReset(),
			presenter.FormatDuration(res.Duration))
	}
	fmt.Fprintln(r.out)
}

func (r *REPL) cmdStatus() {
	c := r.cfg
	fmt.Fprintf(r.out, "\n%sCurrent configuration:%s\n", ui.ColorBold(), ui.ColorReset())
	fmt.Fprintf(r.out, "  Domain:         %s%s%s\n", ui.ColorCyan(), c.Domain(), ui.ColorReset())
	fmt.Fprintf(r.out, "  Tolerances:     %sabs=%g rel=%g%s\n", ui.ColorCyan(), c.AbsTolerance, c.RelTolerance, ui.ColorReset())
	fmt.Fprintf(r.out, "  Workers:        %s%d%s\n", ui.ColorCyan(), c.Workers, ui.ColorReset())
	fmt.Fprintf(r.out, "  Policy:         %s%s%s\n", ui.ColorCyan(), c.Policy, ui.ColorReset())
	fmt.Fprintf(r.out, "  Initial steps:  %s%d%s\n", ui.ColorCyan(), c.InitialSteps, ui.ColorReset())
	fmt.Fprintf(r.out, "  Max iterations: %s%d%s\n", ui.ColorCyan(), c.MaxIterations, ui.ColorReset())
	fmt.Fprintf(r.out, "  Timeout:        %s%s%s\n", ui.ColorCyan(), c.Timeout, ui.ColorReset())
	fmt.Fprintln(r.out)
}

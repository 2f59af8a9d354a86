package cli

import (
	"fmt"
	"io"
	"strings"
)

// FlagCompletion describes a CLI flag for shell completion generation.
// Every generator reads flagRegistry, so a new flag only needs an entry there.
type FlagCompletion struct {
	Long      string   // long flag name without "--" (e.g., "abs-err")
	Short     string   // short flag without "-" (e.g., "q")
	Help      string   // description text
	Values    []string // suggested completion values (nil = boolean/no suggestions)
	ValueName string   // label for the value in zsh (e.g., "number", "duration")
	Section   string   // fish comment section
	IsFile    bool     // the flag takes a file path
	IsPolicy  bool     // values come from the sample policy list
}

var flagRegistry = []FlagCompletion{
	{Long: "help", Short: "h", Help: "Show help message", Section: "Help and version"},
	{Long: "version", Short: "V", Help: "Show version information", Section: "Help and version"},
	{Long: "abs-err", Help: "Absolute convergence tolerance", Values: []string{"1", "0.1", "0.01", "0.001"}, ValueName: "tolerance", Section: "Convergence"},
	{Long: "rel-err", Help: "Relative convergence tolerance", Values: []string{"1e-3", "1e-6", "1e-9"}, ValueName: "tolerance", Section: "Convergence"},
	{Long: "init-steps", Help: "Steps per axis of the first estimate", Values: []string{"50", "100", "200", "400"}, ValueName: "steps", Section: "Convergence"},
	{Long: "max-iter", Help: "Maximum number of resolution doublings", Values: []string{"5", "8", "10", "12"}, ValueName: "count", Section: "Convergence"},
	{Long: "policy", Help: "Sample policy", IsPolicy: true, ValueName: "policy", Section: "Convergence"},
	{Long: "on-instability", Help: "Reaction to a non-finite estimate", Values: []string{"abort", "refine"}, ValueName: "action", Section: "Convergence"},
	{Long: "x-min", Help: "Lower x bound", ValueName: "number", Section: "Domain"},
	{Long: "x-max", Help: "Upper x bound", ValueName: "number", Section: "Domain"},
	{Long: "y-min", Help: "Lower y bound", ValueName: "number", Section: "Domain"},
	{Long: "y-max", Help: "Upper y bound", ValueName: "number", Section: "Domain"},
	{Long: "workers", Help: "Goroutines per resolution level (0 = auto)", Values: []string{"0", "1", "2", "4", "8", "16"}, ValueName: "count", Section: "Execution"},
	{Long: "repeat", Help: "Trials per sample policy", Values: []string{"1", "3", "5", "10"}, ValueName: "count", Section: "Execution"},
	{Long: "match-tol", Help: "Largest accepted spread between trials", Values: []string{"0.01", "0.001"}, ValueName: "tolerance", Section: "Execution"},
	{Long: "timeout", Help: "Maximum execution time", Values: []string{"1m", "5m", "10m", "30m"}, ValueName: "duration", Section: "Execution"},
	{Long: "config", Help: "Configuration file", IsFile: true, ValueName: "file", Section: "Execution"},
	{Long: "calibrate", Help: "Run worker calibration", Section: "Calibration"},
	{Long: "auto-calibrate", Help: "Quick calibration when workers is auto", Section: "Calibration"},
	{Long: "calibration-profile", Help: "Calibration profile file", IsFile: true, ValueName: "file", Section: "Calibration"},
	{Short: "v", Help: "Print every resolution level", Section: "Output"},
	{Long: "details", Short: "d", Help: "Show run details", Section: "Output"},
	{Long: "output", Short: "o", Help: "Append the result to a file", IsFile: true, ValueName: "file", Section: "Output"},
	{Long: "quiet", Short: "q", Help: "Quiet mode for scripts", Section: "Output"},
	{Long: "no-color", Help: "Disable colors", Section: "Output"},
	{Long: "tui", Help: "Start the dashboard", Section: "Output"},
	{Long: "interactive", Short: "i", Help: "Start an interactive session", Section: "Output"},
	{Long: "log-format", Help: "Log format", Values: []string{"json", "text", "plain"}, ValueName: "format", Section: "Observability"},
	{Long: "log-level", Help: "Log level", Values: []string{"debug", "info", "warn", "error"}, ValueName: "level", Section: "Observability"},
	{Long: "metrics-addr", Help: "Prometheus listen address", Values: []string{":9090", "localhost:9090"}, ValueName: "address", Section: "Observability"},
	{Long: "completion", Help: "Generate completion script", Values: []string{"bash", "zsh", "fish", "powershell"}, ValueName: "shell", Section: "Completion"},
}

// GenerateCompletion generates a shell completion script for the specified shell.
//
// Parameters:
//   - out: The writer to output the completion script.
//   - shell: The shell type ("bash", "zsh", "fish", "powershell").
//   - policies: The sample policy names accepted by --policy.
//
// Returns:
//   - error: An error if the shell is not supported.
func GenerateCompletion(out io.Writer, shell string, policies []string) error {
	var script string
	switch shell {
	case "bash":
		script = bashCompletion(policies)
	case "zsh":
		script = zshCompletion(policies)
	case "fish":
		script = fishCompletion(policies)
	case "powershell", "ps":
		script = powerShellCompletion(policies)
	default:
		return fmt.Errorf("unsupported shell: %s (accepted values: bash, zsh, fish, powershell)", shell)
	}
	if _, err := fmt.Fprint(out, script); err != nil {
		return fmt.Errorf("completion %s generation failed: %w", shell, err)
	}
	return nil
}

// flagNames returns the flag's spellings with dashes, long form first.
func flagNames(f FlagCompletion) []string {
	var names []string
	if f.Long != "" {
		names = append(names, "--"+f.Long)
	}
	if f.Short != "" {
		names = append(names, "-"+f.Short)
	}
	return names
}

func bashCompletion(policies []string) string {
	var opts []string
	var cases strings.Builder
	var filePatterns []string
	for _, f := range flagRegistry {
		opts = append(opts, flagNames(f)...)
		var body string
		switch {
		case f.IsFile:
			filePatterns = append(filePatterns, flagNames(f)...)
			continue
		case f.IsPolicy:
			body = `COMPREPLY=( $(compgen -W "${policies}" -- "${cur}") )`
		case len(f.Values) > 0:
			body = fmt.Sprintf(`COMPREPLY=( $(compgen -W "%s" -- "${cur}") )`, strings.Join(f.Values, " "))
		default:
			continue
		}
		fmt.Fprintf(&cases, "        %s)\n            %s\n            return 0\n            ;;\n",
			strings.Join(flagNames(f), "|"), body)
	}
	if len(filePatterns) > 0 {
		fmt.Fprintf(&cases, "        %s)\n            COMPREPLY=( $(compgen -f -- \"${cur}\") )\n            return 0\n            ;;\n",
			strings.Join(filePatterns, "|"))
	}

	return fmt.Sprintf(`# Bash completion script for integcalc
# Add this to your ~/.bashrc or ~/.bash_completion

_integcalc_completions() {
    local cur prev opts policies
    COMPREPLY=()
    cur="${COMP_WORDS[COMP_CWORD]}"
    prev="${COMP_WORDS[COMP_CWORD-1]}"

    opts="%s"
    policies="%s all"

    case "${prev}" in
%s    esac

    if [[ "${cur}" == -* ]]; then
        COMPREPLY=( $(compgen -W "${opts}" -- "${cur}") )
        return 0
    fi
    COMPREPLY=( $(compgen -f -- "${cur}") )
}

complete -F _integcalc_completions integcalc
`, strings.Join(opts, " "), strings.Join(policies, " "), cases.String())
}

func zshCompletion(policies []string) string {
	args := make([]string, 0, len(flagRegistry)+1)
	for _, f := range flagRegistry {
		args = append(args, zshArgEntry(f))
	}
	args = append(args, "        '1:config file:_files'")

	return fmt.Sprintf(`#compdef integcalc

# Zsh completion script for integcalc
# Add this to your ~/.zshrc or place in $fpath

_integcalc() {
    local -a policies
    policies=(%s all)

    _arguments -s \
%s
}

_integcalc "$@"
`, strings.Join(policies, " "), strings.Join(args, " \\\n"))
}

// zshArgEntry formats a single FlagCompletion as a zsh _arguments entry.
func zshArgEntry(f FlagCompletion) string {
	valueSuffix := ""
	switch {
	case f.IsFile:
		valueSuffix = fmt.Sprintf(":%s:_files", f.ValueName)
	case f.IsPolicy:
		valueSuffix = fmt.Sprintf(":%s:($policies)", f.ValueName)
	case len(f.Values) > 0:
		valueSuffix = fmt.Sprintf(":%s:(%s)", f.ValueName, strings.Join(f.Values, " "))
	case f.ValueName != "":
		valueSuffix = fmt.Sprintf(":%s:", f.ValueName)
	}

	if f.Long != "" && f.Short != "" {
		return fmt.Sprintf("        '(-%s --%s)'{-%s,--%s}'[%s]%s'",
			f.Short, f.Long, f.Short, f.Long, f.Help, valueSuffix)
	}
	if f.Long != "" {
		return fmt.Sprintf("        '--%s[%s]%s'", f.Long, f.Help, valueSuffix)
	}
	return fmt.Sprintf("        '-%s[%s]%s'", f.Short, f.Help, valueSuffix)
}

func fishCompletion(policies []string) string {
	lines := []string{
		"# Fish completion script for integcalc",
		"# Add this to ~/.config/fish/completions/integcalc.fish",
		"",
	}
	policyList := strings.Join(policies, " ") + " all"
	section := ""
	for _, f := range flagRegistry {
		if f.Section != section {
			if section != "" {
				lines = append(lines, "")
			}
			section = f.Section
			lines = append(lines, "# "+section)
		}
		lines = append(lines, fishCompleteLine(f, policyList))
	}
	return strings.Join(lines, "\n") + "\n"
}

// fishCompleteLine formats a single FlagCompletion as a fish complete command.
func fishCompleteLine(f FlagCompletion, policyList string) string {
	parts := []string{"complete -c integcalc"}
	if f.Short != "" {
		parts = append(parts, "-s "+f.Short)
	}
	if f.Long != "" {
		parts = append(parts, "-l "+f.Long)
	}
	parts = append(parts, fmt.Sprintf("-d '%s'", f.Help))

	switch {
	case f.IsFile:
		parts = append(parts, "-rF")
	case f.IsPolicy:
		parts = append(parts, fmt.Sprintf("-xa '%s'", policyList))
	case len(f.Values) > 0:
		parts = append(parts, fmt.Sprintf("-xa '%s'", strings.Join(f.Values, " ")))
	case f.ValueName != "":
		parts = append(parts, "-x")
	}
	return strings.Join(parts, " ")
}

func powerShellCompletion(policies []string) string {
	var options []string
	for _, f := range flagRegistry {
		for _, name := range flagNames(f) {
			options = append(options, fmt.Sprintf("        @{Name = '%s'; Description = '%s' }", name, f.Help))
		}
	}

	quote := func(vals []string) string {
		q := make([]string, len(vals))
		for i, v := range vals {
			q[i] = "'" + v + "'"
		}
		return strings.Join(q, ", ")
	}

	var switches []string
	for _, f := range flagRegistry {
		vals := f.Values
		if f.IsPolicy {
			vals = append(append([]string(nil), policies...), "all")
		}
		if f.Long == "" || len(vals) == 0 {
			continue
		}
		switches = append(switches, fmt.Sprintf(`        '--%s' {
            @(%s) | Where-Object { $_ -like "$wordToComplete*" } | ForEach-Object {
                [System.Management.Automation.CompletionResult]::new($_, $_, 'ParameterValue', $_)
            }
            return
        }`, f.Long, quote(vals)))
	}

	return fmt.Sprintf(`# PowerShell completion script for integcalc
# Add this to your $PROFILE

Register-ArgumentCompleter -CommandName 'integcalc' -Native -ScriptBlock {
    param($wordToComplete, $commandAst, $cursorPosition)

    $options = @(
%s
    )

    $elements = $commandAst.CommandElements
    $prevElement = if ($elements.Count -gt 2) { $elements[-2].ToString() } else { '' }

    switch ($prevElement) {
%s
    }

    $options | Where-Object { $_.Name -like "$wordToComplete*" } | ForEach-Object {
        [System.Management.Automation.CompletionResult]::new($_.Name, $_.Name, 'ParameterName', $_.Description)
    }
}
`, strings.Join(options, "\n"), strings.Join(switches, "\n"))
}

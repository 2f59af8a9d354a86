package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/agbru/integcalc/internal/config"
	"github.com/agbru/integcalc/internal/format"
	"github.com/agbru/integcalc/internal/integration"
	"github.com/agbru/integcalc/internal/orchestration"
)

// maxLogEntries bounds the log so long sessions do not grow without limit.
const maxLogEntries = 1000

// LogsModel is the scrolling iteration log on the left of the dashboard.
type LogsModel struct {
	runs    []string
	entries []string
	// offset counts lines scrolled up from the tail; 0 follows new entries.
	offset int
	keymap KeyMap
	width  int
	height int
}

// NewLogsModel creates an empty log for the named runs.
func NewLogsModel(runs []string) LogsModel {
	return LogsModel{runs: runs, keymap: DefaultKeyMap()}
}

func (l *LogsModel) SetSize(w, h int) {
	l.width = w
	l.height = h
}

// Reset clears the entries and follows the tail again.
func (l *LogsModel) Reset() {
	l.entries = nil
	l.offset = 0
}

func (l *LogsModel) add(line string) {
	l.entries = append(l.entries, line)
	if len(l.entries) > maxLogEntries {
		l.entries = l.entries[len(l.entries)-maxLogEntries:]
	}
	if l.offset > 0 {
		// Keep the viewport on the same lines while scrolled back.
		l.offset++
	}
}

func (l *LogsModel) addStamped(line string) {
	l.add(logTimeStyle.Render(time.Now().Format("15:04:05")) + " " + line)
}

// AddExecutionConfig writes the session parameters at the top of the log.
func (l *LogsModel) AddExecutionConfig(cfg config.AppConfig) {
	l.add(panelTitleStyle.Render("Session"))
	l.add(fmt.Sprintf("  Domain:     %s", cfg.Domain()))
	l.add(fmt.Sprintf("  Tolerance:  abs %g, rel %g", cfg.AbsTolerance, cfg.RelTolerance))
	l.add(fmt.Sprintf("  Steps:      %s initial, %d doublings max", format.FormatSteps(cfg.InitialSteps), cfg.MaxIterations))
	l.add(fmt.Sprintf("  Workers:    %d", cfg.Workers))
	l.add(fmt.Sprintf("  Runs:       %s", strings.Join(l.runs, ", ")))
	l.add("")
}

// AddProgressEntry logs one resolution level.
func (l *LogsModel) AddProgressEntry(msg ProgressMsg) {
	u := msg.Update
	name := msg.Run
	if name == "" && u.RunIndex >= 0 && u.RunIndex < len(l.runs) {
		name = l.runs[u.RunIndex]
	}
	rel := "-"
	if u.HasComparison() {
		rel = format.FormatError(u.RelError)
	}
	l.addStamped(fmt.Sprintf("%s %s %s steps  %s  rel %s",
		logRunStyle.Render(fmt.Sprintf("%-12s", name)),
		logLevelStyle.Render(fmt.Sprintf("L%-2d", u.Iteration)),
		format.FormatSteps(u.Steps),
		format.FormatEstimate(u.Estimate),
		rel))
}

// AddResults logs the comparison of a multi-run session.
func (l *LogsModel) AddResults(results []orchestration.RunResult) {
	l.add("")
	l.add(panelTitleStyle.Render("Comparison"))
	for _, r := range results {
		status := logSuccessStyle.Render("converged")
		if !r.Converged() {
			status = logErrorStyle.Render(r.Result.State.String())
		}
		l.add(fmt.Sprintf("  %-12s %s  rel %s  %s  %s",
			r.Name,
			format.FormatEstimate(r.Result.Estimate),
			format.FormatError(r.Result.RelError),
			format.FormatExecutionDuration(r.Duration),
			status))
	}
}

// AddFinalResult logs the presented result.
func (l *LogsModel) AddFinalResult(msg FinalResultMsg) {
	r := msg.Result
	style := logSuccessStyle
	if r.Result.State != integration.StateConverged {
		style = logWarningStyle
	}
	l.add("")
	l.add(style.Render("Result: " + r.Result.State.String()))
	l.add(fmt.Sprintf("  Estimate:       %s", format.FormatEstimate(r.Result.Estimate)))
	l.add(fmt.Sprintf("  Absolute error: %s", format.FormatError(r.Result.AbsError)))
	l.add(fmt.Sprintf("  Relative error: %s", format.FormatError(r.Result.RelError)))
	l.add(fmt.Sprintf("  Iterations:     %d", r.Result.Iterations))
	l.add(fmt.Sprintf("  Steps per axis: %s", format.FormatSteps(r.Result.Steps)))
	l.add(fmt.Sprintf("  Time:           %s", format.FormatMicroseconds(r.Duration)))
	if msg.Verbose {
		l.add(fmt.Sprintf("  Run:            %s (%s)", r.Name, r.RunID))
		l.add(fmt.Sprintf("  Workers:        %d", r.Workers))
	}
}

// AddError logs a session failure.
func (l *LogsModel) AddError(msg ErrorMsg) {
	text := "unknown error"
	if msg.Err != nil {
		text = msg.Err.Error()
	}
	l.addStamped(logErrorStyle.Render(fmt.Sprintf("Error after %s: %s",
		format.FormatExecutionDuration(msg.Duration), text)))
}

// AddStatus logs a summary line as is.
func (l *LogsModel) AddStatus(line string) {
	l.add(line)
}

func (l LogsModel) visibleLines() int {
	return max(l.height-2, 1)
}

// Update scrolls the log.
func (l *LogsModel) Update(msg tea.KeyMsg) {
	page := l.visibleLines()
	switch {
	case key.Matches(msg, l.keymap.Up):
		l.offset++
	case key.Matches(msg, l.keymap.Down):
		l.offset--
	case key.Matches(msg, l.keymap.PageUp):
		l.offset += page
	case key.Matches(msg, l.keymap.PageDown):
		l.offset -= page
	}
	l.clampOffset()
}

func (l *LogsModel) clampOffset() {
	maxOffset := max(len(l.entries)-l.visibleLines(), 0)
	l.offset = min(max(l.offset, 0), maxOffset)
}

// window returns the entries visible in n lines.
func (l LogsModel) window(n int) []string {
	end := len(l.entries) - l.offset
	if end < 0 {
		end = 0
	}
	start := max(end-n, 0)
	return l.entries[start:end]
}

func (l LogsModel) View() string {
	return l.renderToHeight(l.height)
}

// renderToHeight renders the panel with an outer height of h.
func (l LogsModel) renderToHeight(h int) string {
	inner := max(h-2, 1)
	lines := l.window(inner)
	return panelStyle.
		Width(max(l.width-2, 0)).
		Height(inner).
		MaxHeight(h).
		Render(strings.Join(lines, "\n"))
}

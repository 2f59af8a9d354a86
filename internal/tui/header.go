package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/agbru/integcalc/internal/format"
)

// HeaderModel renders the title bar: name, version, elapsed time and the
// integration domain.
type HeaderModel struct {
	startTime time.Time
	endTime   time.Time
	version   string
	domain    string
	width     int
}

// NewHeaderModel creates a header whose timer starts now.
func NewHeaderModel(version, domain string) HeaderModel {
	return HeaderModel{
		startTime: time.Now(),
		version:   version,
		domain:    domain,
	}
}

// SetDone freezes the timer.
func (h *HeaderModel) SetDone() {
	h.endTime = time.Now()
}

// Reset restarts the timer.
func (h *HeaderModel) Reset() {
	h.startTime = time.Now()
	h.endTime = time.Time{}
}

func (h *HeaderModel) SetWidth(w int) {
	h.width = w
}

// Elapsed returns the frozen duration once done, the running one otherwise.
func (h HeaderModel) Elapsed() time.Duration {
	if !h.endTime.IsZero() {
		return h.endTime.Sub(h.startTime)
	}
	return time.Since(h.startTime)
}

func (h HeaderModel) View() string {
	name := "integcalc monitor"
	if h.version != "" && h.version != "dev" {
		name += " " + h.version
	}
	pipe := versionStyle.Render(" | ")
	left := titleStyle.Render(name) + pipe +
		elapsedStyle.Render("Elapsed: "+format.FormatExecutionDuration(h.Elapsed()))

	right := ""
	if h.domain != "" {
		right = versionStyle.Render(fmt.Sprintf("∬ %s", h.domain))
	}

	gap := h.width - 2 - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		// Too narrow for the domain.
		right = ""
		gap = max(h.width-2-lipgloss.Width(left), 0)
	}

	return headerStyle.Width(h.width).Render(left + strings.Repeat(" ", gap) + right)
}

package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/agbru/integcalc/internal/format"
)

// MetricsModel shows runtime memory and evaluation throughput.
type MetricsModel struct {
	heapAlloc    uint64
	heapSys      uint64
	numGC        uint32
	pauseTotalNs uint64
	numGoroutine int
	// cellRate is a smoothed count of grid cells evaluated per second.
	cellRate   float64
	levels     int
	lastUpdate time.Time
	workers    int
	width      int
	height     int
}

func NewMetricsModel(workers int) MetricsModel {
	return MetricsModel{
		lastUpdate: time.Now(),
		workers:    workers,
	}
}

func (m *MetricsModel) SetSize(w, h int) {
	m.width = w
	m.height = h
}

// UpdateMemStats stores a runtime memory reading.
func (m *MetricsModel) UpdateMemStats(msg MemStatsMsg) {
	m.heapAlloc = msg.HeapAlloc
	m.heapSys = msg.HeapSys
	m.numGC = msg.NumGC
	m.pauseTotalNs = msg.PauseTotalNs
	m.numGoroutine = msg.NumGoroutine
}

// UpdateProgress folds one level into the throughput estimate. A level at
// n steps per axis evaluates n² cells.
func (m *MetricsModel) UpdateProgress(msg ProgressMsg) {
	m.levels++
	now := time.Now()
	dt := now.Sub(m.lastUpdate).Seconds()
	if dt <= 0.001 {
		return
	}
	cells := float64(msg.Update.Steps) * float64(msg.Update.Steps)
	instant := cells / dt
	if m.cellRate > 0 {
		m.cellRate = 0.7*m.cellRate + 0.3*instant
	} else {
		m.cellRate = instant
	}
	m.lastUpdate = now
}

func (m MetricsModel) View() string {
	var rows strings.Builder

	pipe := metricLabelStyle.Render(" | ")
	fmt.Fprintf(&rows, "  %s %s%s%s %s",
		metricLabelStyle.Render("Heap:"),
		metricValueStyle.Render(format.FormatBytes(m.heapAlloc)+" / "+format.FormatBytes(m.heapSys)),
		pipe,
		metricLabelStyle.Render("GC:"),
		metricValueStyle.Render(fmt.Sprintf("%d (%.1fms)", m.numGC, float64(m.pauseTotalNs)/1e6)))

	colWidth := (m.width - 6) / 2
	left := []string{
		formatMetricCol("Throughput:", formatRate(m.cellRate)+" cells/s", colWidth),
		formatMetricCol("Levels:", fmt.Sprintf("%d", m.levels), colWidth),
	}
	right := []string{
		formatMetricCol("Goroutines:", fmt.Sprintf("%d", m.numGoroutine), colWidth),
		formatMetricCol("Workers:", fmt.Sprintf("%d", m.workers), colWidth),
	}
	for i := range left {
		rows.WriteString("\n")
		rows.WriteString(left[i])
		rows.WriteString(right[i])
	}

	return panelStyle.
		Width(max(m.width-2, 0)).
		Height(max(m.height-2, 0)).
		Render(rows.String())
}

func formatMetricCol(label, value string, colWidth int) string {
	cell := fmt.Sprintf(" %s %s",
		metricLabelStyle.Render(fmt.Sprintf("%-12s", label)),
		metricValueStyle.Render(value))
	if visible := lipgloss.Width(cell); visible < colWidth {
		cell += strings.Repeat(" ", colWidth-visible)
	}
	return cell
}

// formatRate renders v with a k/M/G suffix.
func formatRate(v float64) string {
	switch {
	case v >= 1e9:
		return fmt.Sprintf("%.2fG", v/1e9)
	case v >= 1e6:
		return fmt.Sprintf("%.2fM", v/1e6)
	case v >= 1e3:
		return fmt.Sprintf("%.2fk", v/1e3)
	default:
		return fmt.Sprintf("%.0f", v)
	}
}

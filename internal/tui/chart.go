package tui

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/agbru/integcalc/internal/format"
)

const (
	// maxDigits is the top of the convergence chart: a float64 carries
	// about 16 significant decimal digits.
	maxDigits = 16.0
	// sparklineLabelWidth is the room taken by borders, padding and the
	// "CPU 100.0% " label next to a sparkline.
	sparklineLabelWidth = 17
	// minSparklineHeight hides the CPU/MEM sparklines on short terminals.
	minSparklineHeight = 10
)

// ChartModel plots the number of agreeing digits between successive levels
// (−log10 of the relative error) together with CPU and memory sparklines.
type ChartModel struct {
	digits          *RingBuffer
	cpuHistory      *RingBuffer
	memHistory      *RingBuffer
	targetDigits    float64
	averageProgress float64
	nextLevel       time.Duration
	done            bool
	elapsed         time.Duration
	width           int
	height          int
}

func NewChartModel() ChartModel {
	return ChartModel{
		digits:     NewRingBuffer(64),
		cpuHistory: NewRingBuffer(32),
		memHistory: NewRingBuffer(32),
	}
}

// SetTarget marks the digits a relative tolerance asks for.
func (c *ChartModel) SetTarget(relTolerance float64) {
	c.targetDigits = digitsOf(relTolerance)
}

// SetSize updates dimensions and resizes the history buffers to the
// columns available.
func (c *ChartModel) SetSize(w, h int) {
	c.width = w
	c.height = h
	if n := w - sparklineLabelWidth; n > 0 {
		c.cpuHistory.Resize(n)
		c.memHistory.Resize(n)
	}
	if n := (w - 4) * 2; n > 0 {
		c.digits.Resize(n)
	}
}

// digitsOf converts a relative error to agreeing decimal digits in
// [0, maxDigits]. An exact agreement counts as maxDigits.
func digitsOf(rel float64) float64 {
	if math.IsNaN(rel) {
		return 0
	}
	if rel <= 0 {
		return maxDigits
	}
	return math.Min(math.Max(-math.Log10(rel), 0), maxDigits)
}

// AddDataPoint records one level. First levels carry no error and only move
// the progress bar.
func (c *ChartModel) AddDataPoint(msg ProgressMsg) {
	c.averageProgress = msg.AverageFraction
	c.nextLevel = msg.NextLevel
	if msg.Update.HasComparison() {
		c.digits.Push(digitsOf(msg.Update.RelError))
	}
}

// UpdateSysStats records a CPU/memory sample in percent.
func (c *ChartModel) UpdateSysStats(cpu, mem float64) {
	c.cpuHistory.Push(cpu)
	c.memHistory.Push(mem)
}

// SetDone freezes the chart with the session duration.
func (c *ChartModel) SetDone(elapsed time.Duration) {
	c.done = true
	c.elapsed = elapsed
}

// Reset clears every series for a restarted session.
func (c *ChartModel) Reset() {
	c.digits.Reset()
	c.cpuHistory.Reset()
	c.memHistory.Reset()
	c.averageProgress = 0
	c.nextLevel = 0
	c.done = false
	c.elapsed = 0
}

// renderProgressBar shows the share of the iteration budget used so far.
// Returns "" when the panel is too narrow.
func (c ChartModel) renderProgressBar() string {
	barWidth := c.width - 14
	if barWidth < 4 {
		return ""
	}
	p := math.Min(math.Max(c.averageProgress, 0), 1)
	filled := int(p * float64(barWidth))
	return fmt.Sprintf(" %s%s %5.1f%%",
		chartBarStyle.Render(strings.Repeat("█", filled)),
		chartEmptyStyle.Render(strings.Repeat("░", barWidth-filled)),
		p*100)
}

func (c ChartModel) View() string {
	var b strings.Builder
	b.WriteString(panelTitleStyle.Render(" Convergence"))

	current := "-"
	if c.digits.Len() > 0 {
		current = fmt.Sprintf("%.1f", c.digits.Last())
	}
	fmt.Fprintf(&b, "\n %s %s",
		metricLabelStyle.Render("Digits:"),
		metricValueStyle.Render(fmt.Sprintf("%s / %.1f", current, c.targetDigits)))

	showSparklines := c.height >= minSparklineHeight
	chartRows := c.height - 7
	if showSparklines {
		chartRows -= 2
	}
	if chartRows > 0 && c.digits.Len() > 0 {
		for _, row := range RenderBrailleChart(c.digits.Slice(), maxDigits, max(c.width-4, 1), chartRows) {
			b.WriteString("\n ")
			b.WriteString(digitsLineStyle.Render(row))
		}
	}

	if bar := c.renderProgressBar(); bar != "" {
		b.WriteString("\n")
		b.WriteString(bar)
	}

	if c.done {
		fmt.Fprintf(&b, "\n %s %s", metricLabelStyle.Render("Done in"),
			metricValueStyle.Render(format.FormatExecutionDuration(c.elapsed)))
	} else {
		fmt.Fprintf(&b, "\n %s %s", metricLabelStyle.Render("Next level:"),
			metricValueStyle.Render("~"+format.FormatExecutionDuration(c.nextLevel)))
	}

	if showSparklines {
		fmt.Fprintf(&b, "\n %s %s",
			metricLabelStyle.Render(fmt.Sprintf("CPU %5.1f%%", c.cpuHistory.Last())),
			cpuSparklineStyle.Render(RenderSparkline(c.cpuHistory.Slice())))
		fmt.Fprintf(&b, "\n %s %s",
			metricLabelStyle.Render(fmt.Sprintf("MEM %5.1f%%", c.memHistory.Last())),
			memSparklineStyle.Render(RenderSparkline(c.memHistory.Slice())))
	}

	return panelStyle.
		Width(max(c.width-2, 0)).
		Height(max(c.height-2, 0)).
		Render(b.String())
}

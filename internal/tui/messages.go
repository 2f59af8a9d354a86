package tui

import (
	"time"

	"github.com/agbru/integcalc/internal/metrics"
	"github.com/agbru/integcalc/internal/orchestration"
	"github.com/agbru/integcalc/internal/progress"
)

// ProgressMsg carries one resolution level of one run.
type ProgressMsg struct {
	Update          progress.IterationUpdate
	Run             string
	Fraction        float64
	AverageFraction float64
	NextLevel       time.Duration
}

// ProgressDoneMsg signals that the progress channel was closed.
type ProgressDoneMsg struct{}

// ComparisonResultsMsg carries the sorted results of a multi-run session.
type ComparisonResultsMsg struct {
	Results []orchestration.RunResult
}

// FinalResultMsg carries the result selected for presentation.
type FinalResultMsg struct {
	Result  orchestration.RunResult
	Verbose bool
	Details bool
}

// ErrorMsg reports a failed session.
type ErrorMsg struct {
	Err      error
	Duration time.Duration
}

// TickMsg drives periodic sampling.
type TickMsg time.Time

// MemStatsMsg carries a runtime memory reading.
type MemStatsMsg struct {
	metrics.MemorySnapshot
	NumGoroutine int
}

// SysStatsMsg carries system-wide CPU and memory usage.
type SysStatsMsg struct {
	CPUPercent float64
	MemPercent float64
}

// CalculationCompleteMsg is sent once the session has been analysed.
type CalculationCompleteMsg struct {
	ExitCode   int
	Generation uint64
}

// ContextCancelledMsg is sent when the session context is done.
type ContextCancelledMsg struct {
	Err        error
	Generation uint64
}

// StatusLineMsg carries one line of the session summary.
type StatusLineMsg struct {
	Line string
}

package orchestration

import (
	"time"

	"github.com/agbru/integcalc/internal/progress"
)

// levelCostFactor is the expected cost ratio between successive levels:
// doubling the steps per axis quadruples the number of cells.
const levelCostFactor = 4

// ConvergenceTracker keeps the latest update of every run. Both the CLI and
// the TUI use it to avoid duplicating the bookkeeping.
type ConvergenceTracker struct {
	latest        []progress.IterationUpdate
	seen          []bool
	levelDuration []time.Duration
	maxIterations int
}

// NewConvergenceTracker creates a tracker for numRuns runs capped at
// maxIterations doublings each. Returns nil if numRuns <= 0.
func NewConvergenceTracker(numRuns, maxIterations int) *ConvergenceTracker {
	if numRuns <= 0 {
		return nil
	}
	return &ConvergenceTracker{
		latest:        make([]progress.IterationUpdate, numRuns),
		seen:          make([]bool, numRuns),
		levelDuration: make([]time.Duration, numRuns),
		maxIterations: maxIterations,
	}
}

// TrackedProgress is the tracker's view after one update.
type TrackedProgress struct {
	// Update is the update just processed.
	Update progress.IterationUpdate
	// Fraction is the run's position in its iteration budget (0.0 to 1.0).
	Fraction float64
	// AverageFraction averages Fraction over every run.
	AverageFraction float64
	// NextLevel estimates how long the run's next level will take.
	NextLevel time.Duration
}

// Update records u and returns the aggregated view. Updates for unknown run
// indices are returned unaggregated.
func (t *ConvergenceTracker) Update(u progress.IterationUpdate) TrackedProgress {
	i := u.RunIndex
	if i < 0 || i >= len(t.latest) {
		return TrackedProgress{Update: u}
	}
	if t.seen[i] {
		t.levelDuration[i] = u.Elapsed - t.latest[i].Elapsed
	} else {
		t.levelDuration[i] = u.Elapsed
	}
	t.latest[i] = u
	t.seen[i] = true
	return TrackedProgress{
		Update:          u,
		Fraction:        t.fraction(i),
		AverageFraction: t.AverageFraction(),
		NextLevel:       t.levelDuration[i] * levelCostFactor,
	}
}

func (t *ConvergenceTracker) fraction(i int) float64 {
	if !t.seen[i] {
		return 0
	}
	if t.maxIterations <= 0 {
		return 1
	}
	f := float64(t.latest[i].Iteration) / float64(t.maxIterations)
	if f > 1 {
		f = 1
	}
	return f
}

// AverageFraction returns the mean iteration-budget fraction across runs.
func (t *ConvergenceTracker) AverageFraction() float64 {
	var sum float64
	for i := range t.latest {
		sum += t.fraction(i)
	}
	return sum / float64(len(t.latest))
}

// Latest returns the most recent update of run i and whether one was seen.
func (t *ConvergenceTracker) Latest(i int) (progress.IterationUpdate, bool) {
	if i < 0 || i >= len(t.latest) {
		return progress.IterationUpdate{}, false
	}
	return t.latest[i], t.seen[i]
}

// NumRuns returns the number of runs being tracked.
func (t *ConvergenceTracker) NumRuns() int {
	return len(t.latest)
}

// IsMultiRun returns true if tracking more than one run.
func (t *ConvergenceTracker) IsMultiRun() bool {
	return len(t.latest) > 1
}

// DrainChannel reads all updates from the channel without processing.
func DrainChannel(updates <-chan progress.IterationUpdate) {
	for range updates {
	}
}

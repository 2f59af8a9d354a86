// Package progress carries per-iteration updates from the convergence
// controller to whoever is watching: the CLI spinner, the TUI, the metrics
// recorder or a logger.
package progress

import (
	"math"
	"sync"
	"time"

	"github.com/agbru/integcalc/internal/logging"
)

// IterationUpdate describes one estimate produced by the controller.
type IterationUpdate struct {
	// RunIndex identifies the controller when several run side by side.
	RunIndex int
	// Iteration is the number of doublings performed so far (0 for the
	// first estimate).
	Iteration int
	// Steps is the grid step count per axis that produced Estimate.
	Steps int
	// Estimate is the integral approximation at this resolution.
	Estimate float64
	// AbsError and RelError compare Estimate with the previous one. Both are
	// NaN for the first estimate.
	AbsError float64
	RelError float64
	// Elapsed is the wall-clock time since the run started.
	Elapsed time.Duration
}

// HasComparison reports whether the update carries error metrics.
func (u IterationUpdate) HasComparison() bool {
	return !math.IsNaN(u.AbsError) && !math.IsNaN(u.RelError)
}

// Callback receives updates for a single run.
type Callback func(IterationUpdate)

// Observer receives updates from a Subject.
type Observer interface {
	Update(u IterationUpdate)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(IterationUpdate)

// Update calls f(u).
func (f ObserverFunc) Update(u IterationUpdate) { f(u) }

// Subject fans updates out to registered observers.
type Subject struct {
	mu        sync.RWMutex
	observers []Observer
}

// NewSubject creates an empty Subject.
func NewSubject() *Subject {
	return &Subject{}
}

// Register adds an observer. Nil observers are ignored.
func (s *Subject) Register(o Observer) {
	if o == nil {
		return
	}
	s.mu.Lock()
	s.observers = append(s.observers, o)
	s.mu.Unlock()
}

// Len returns the number of registered observers.
func (s *Subject) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.observers)
}

// Notify sends u to every registered observer, in registration order.
func (s *Subject) Notify(u IterationUpdate) {
	s.mu.RLock()
	snapshot := s.observers
	s.mu.RUnlock()
	for _, o := range snapshot {
		o.Update(u)
	}
}

// Freeze returns a Callback bound to the observers registered right now and
// stamping every update with runIndex. Observers registered later are not
// notified through it.
func (s *Subject) Freeze(runIndex int) Callback {
	s.mu.RLock()
	snapshot := make([]Observer, len(s.observers))
	copy(snapshot, s.observers)
	s.mu.RUnlock()

	return func(u IterationUpdate) {
		u.RunIndex = runIndex
		for _, o := range snapshot {
			o.Update(u)
		}
	}
}

// ChannelObserver forwards updates to a channel without ever blocking the
// controller; updates are dropped when the channel is full.
type ChannelObserver struct {
	ch chan<- IterationUpdate
}

// NewChannelObserver creates a ChannelObserver.
func NewChannelObserver(ch chan<- IterationUpdate) *ChannelObserver {
	return &ChannelObserver{ch: ch}
}

// Update implements Observer.
func (c *ChannelObserver) Update(u IterationUpdate) {
	select {
	case c.ch <- u:
	default:
	}
}

// LoggingObserver logs each update at debug level.
type LoggingObserver struct {
	logger logging.Logger
}

// NewLoggingObserver creates a LoggingObserver.
func NewLoggingObserver(logger logging.Logger) *LoggingObserver {
	return &LoggingObserver{logger: logger}
}

// Update implements Observer.
func (l *LoggingObserver) Update(u IterationUpdate) {
	fields := []logging.Field{
		logging.Int("run", u.RunIndex),
		logging.Int("iteration", u.Iteration),
		logging.Int("steps", u.Steps),
		logging.Float64("estimate", u.Estimate),
		logging.Duration("elapsed", u.Elapsed),
	}
	if u.HasComparison() {
		fields = append(fields, logging.Float64("abs_err", u.AbsError), logging.Float64("rel_err", u.RelError))
	}
	l.logger.Debug("estimate", fields...)
}

// NoOpObserver discards updates.
type NoOpObserver struct{}

// NewNoOpObserver creates a NoOpObserver.
func NewNoOpObserver() NoOpObserver { return NoOpObserver{} }

// Update implements Observer.
func (NoOpObserver) Update(IterationUpdate) {}

package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/agbru/integcalc/internal/progress"
)

const namespace = "integcalc"

// Recorder exports integration progress on a private Prometheus registry.
// Each Recorder owns its registry, so several can coexist in tests.
type Recorder struct {
	registry *prometheus.Registry

	levels   *prometheus.CounterVec
	estimate *prometheus.GaugeVec
	relError *prometheus.GaugeVec
	absError *prometheus.GaugeVec
	steps    *prometheus.GaugeVec
	runs     *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewRecorder creates a Recorder with Go runtime and process collectors
// registered alongside the integration metrics.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		levels: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "levels_total",
			Help:      "Resolution levels integrated.",
		}, []string{"policy"}),
		estimate: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "estimate",
			Help:      "Latest integral estimate.",
		}, []string{"policy"}),
		relError: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "relative_error",
			Help:      "Relative difference between the two latest estimates.",
		}, []string{"policy"}),
		absError: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "absolute_error",
			Help:      "Absolute difference between the two latest estimates.",
		}, []string{"policy"}),
		steps: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "steps",
			Help:      "Grid divisions per axis of the latest estimate.",
		}, []string{"policy"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Completed integration runs by final state.",
		}, []string{"policy", "state"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall-clock duration of integration runs.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"policy"}),
	}
	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.levels, r.estimate, r.relError, r.absError, r.steps, r.runs, r.duration,
	)
	return r
}

// Registry exposes the registry so other components can add collectors.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// ObserverFor returns a progress.Observer recording updates under policy.
func (r *Recorder) ObserverFor(policy string) progress.Observer {
	return progress.ObserverFunc(func(u progress.IterationUpdate) {
		r.levels.WithLabelValues(policy).Inc()
		r.estimate.WithLabelValues(policy).Set(u.Estimate)
		r.steps.WithLabelValues(policy).Set(float64(u.Steps))
		if u.HasComparison() {
			r.absError.WithLabelValues(policy).Set(u.AbsError)
			r.relError.WithLabelValues(policy).Set(u.RelError)
		}
	})
}

// RecordRun records the outcome of one run.
func (r *Recorder) RecordRun(policy, state string, d time.Duration) {
	r.runs.WithLabelValues(policy, state).Inc()
	r.duration.WithLabelValues(policy).Observe(d.Seconds())
}

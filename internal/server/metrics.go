package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/agbru/integcalc/internal/metrics"
)

// Metrics tracks the server's own HTTP traffic and serves the recorder's
// registry.
type Metrics struct {
	activeRequests prometheus.Gauge
	requestsTotal  *prometheus.CounterVec
	handler        http.Handler
}

// NewMetrics registers the HTTP metrics on the recorder's registry.
func NewMetrics(rec *metrics.Recorder) *Metrics {
	m := &Metrics{
		activeRequests: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "integcalc",
			Name:      "active_requests",
			Help:      "HTTP requests currently being served.",
		}),
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "integcalc",
			Name:      "requests_total",
			Help:      "HTTP requests served by path.",
		}, []string{"path"}),
		handler: rec.Handler(),
	}
	rec.Registry().MustRegister(m.activeRequests, m.requestsTotal)
	return m
}

// IncrementActiveRequests marks a request as started.
func (m *Metrics) IncrementActiveRequests() { m.activeRequests.Inc() }

// DecrementActiveRequests marks a request as finished.
func (m *Metrics) DecrementActiveRequests() { m.activeRequests.Dec() }

// CountRequest counts a request for path.
func (m *Metrics) CountRequest(path string) { m.requestsTotal.WithLabelValues(path).Inc() }

// WritePrometheus writes the exposition to w.
func (m *Metrics) WritePrometheus(w http.ResponseWriter, r *http.Request) {
	m.handler.ServeHTTP(w, r)
}

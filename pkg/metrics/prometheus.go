package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder implements domain repository.Metrics using Prometheus.
type Recorder struct {
	backendCalls   *prometheus.CounterVec
	backendLatency *prometheus.HistogramVec
	events         *prometheus.CounterVec
	errorsTotal    *prometheus.CounterVec
	activeSessions prometheus.Gauge
}

var (
	defaultRecorder *Recorder
	defaultOnce     sync.Once
)

// New returns the process-wide recorder registered on the default registry.
func New() *Recorder {
	defaultOnce.Do(func() {
		defaultRecorder = NewWithRegistry(prometheus.DefaultRegisterer)
	})
	return defaultRecorder
}

// NewWithRegistry creates a recorder whose collectors are registered on reg.
func NewWithRegistry(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		backendCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portfoliodash_backend_calls_total",
				Help: "Calls to the portfolio backend by endpoint and outcome",
			},
			[]string{"endpoint", "outcome"},
		),
		backendLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "portfoliodash_backend_call_duration_seconds",
				Help:    "Duration of backend calls in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 180},
			},
			[]string{"endpoint"},
		),
		events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portfoliodash_dashboard_events_total",
				Help: "Dashboard events handled, by kind",
			},
			[]string{"kind"},
		),
		errorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portfoliodash_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		activeSessions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "portfoliodash_logged_in_sessions",
				Help: "Sessions that logged in minus sessions that logged out",
			},
		),
	}
	if reg != nil {
		reg.MustRegister(r.backendCalls, r.backendLatency, r.events, r.errorsTotal, r.activeSessions)
	}
	return r
}

// RecordBackendCall records one backend round trip. outcome is ok, degraded or failed.
func (r *Recorder) RecordBackendCall(endpoint, outcome string, d time.Duration) {
	r.backendCalls.WithLabelValues(endpoint, outcome).Inc()
	r.backendLatency.WithLabelValues(endpoint).Observe(d.Seconds())
}

// RecordEvent counts a dashboard event.
func (r *Recorder) RecordEvent(kind string) {
	r.events.WithLabelValues(kind).Inc()
	switch kind {
	case "login_ok":
		r.activeSessions.Inc()
	case "logout":
		r.activeSessions.Dec()
	}
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

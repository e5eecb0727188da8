package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus collectors for registration administration.
type Metrics struct {
	Transitions         *prometheus.CounterVec
	Rollbacks           *prometheus.CounterVec
	VerificationToggles *prometheus.CounterVec
	BulkRegistrations   *prometheus.CounterVec
	QueryLatency        *prometheus.HistogramVec
	BoardSize           prometheus.Gauge
	HTTPRequests        *prometheus.HistogramVec
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		Transitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "uiso_registration_transitions_total",
			Help: "Single status transitions, labeled by target status and outcome",
		}, []string{"target", "outcome"}),
		Rollbacks: f.NewCounterVec(prometheus.CounterOpts{
			Name: "uiso_optimistic_rollbacks_total",
			Help: "Optimistic updates reverted after a failed write, labeled by operation",
		}, []string{"operation"}),
		VerificationToggles: f.NewCounterVec(prometheus.CounterOpts{
			Name: "uiso_verification_toggles_total",
			Help: "Verification flag writes, labeled by document and outcome",
		}, []string{"document", "outcome"}),
		BulkRegistrations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "uiso_bulk_registrations_total",
			Help: "Registrations touched by bulk status changes, labeled by outcome",
		}, []string{"outcome"}),
		QueryLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "uiso_registration_query_latency_seconds",
			Help:    "Latency of registration queries, labeled by sort strategy",
			Buckets: prometheus.DefBuckets,
		}, []string{"sort"}),
		BoardSize: f.NewGauge(prometheus.GaugeOpts{
			Name: "uiso_board_registrations",
			Help: "Registrations currently held in the working set",
		}),
		HTTPRequests: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "uiso_http_request_duration_seconds",
			Help:    "HTTP request latency, labeled by method, route and status code",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "code"}),
	}
}

func (m *Metrics) ObserveTransition(target, outcome string) {
	m.Transitions.WithLabelValues(target, outcome).Inc()
}

func (m *Metrics) IncrementRollbacks(operation string) {
	m.Rollbacks.WithLabelValues(operation).Inc()
}

func (m *Metrics) ObserveVerification(document, outcome string) {
	m.VerificationToggles.WithLabelValues(document, outcome).Inc()
}

func (m *Metrics) AddBulk(outcome string, n int) {
	m.BulkRegistrations.WithLabelValues(outcome).Add(float64(n))
}

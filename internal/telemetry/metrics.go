package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "warmano"

// Metrics holds the gateway's Prometheus collectors. A nil *Metrics is valid
// and records nothing, which keeps call sites free of nil checks in tests.
type Metrics struct {
	registry *prometheus.Registry

	remoteCalls    *prometheus.HistogramVec
	bookings       *prometheus.CounterVec
	degradations   *prometheus.CounterVec
	fallbacks      *prometheus.CounterVec
	rejectedByRate prometheus.Counter
}

// NewMetrics creates the collectors on a fresh registry that also carries
// the Go runtime and process collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,
		remoteCalls: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "odoo",
			Name:      "call_duration_seconds",
			Help:      "Latency of XML-RPC calls to the business backend.",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 15},
		}, []string{"model", "method", "outcome"}),
		bookings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "booking",
			Name:      "outcomes_total",
			Help:      "Booking runs by final outcome.",
		}, []string{"outcome"}),
		degradations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "booking",
			Name:      "degradations_total",
			Help:      "Best-effort booking steps that failed.",
		}, []string{"step"}),
		fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "crm",
			Name:      "lookup_fallbacks_total",
			Help:      "Remote id lookups that fell back to a configured id.",
		}, []string{"lookup"}),
		rejectedByRate: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the per-client rate limiter.",
		}),
	}
	reg.MustRegister(m.remoteCalls, m.bookings, m.degradations, m.fallbacks, m.rejectedByRate)
	return m
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveRemoteCall records the latency of one backend call.
func (m *Metrics) ObserveRemoteCall(model, method, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.remoteCalls.WithLabelValues(model, method, outcome).Observe(d.Seconds())
}

// BookingOutcome counts a finished booking run.
func (m *Metrics) BookingOutcome(outcome string) {
	if m == nil {
		return
	}
	m.bookings.WithLabelValues(outcome).Inc()
}

// Degradation counts a failed best-effort step.
func (m *Metrics) Degradation(step string) {
	if m == nil {
		return
	}
	m.degradations.WithLabelValues(step).Inc()
}

// LookupFallback counts the use of a configured fallback id.
func (m *Metrics) LookupFallback(lookup string) {
	if m == nil {
		return
	}
	m.fallbacks.WithLabelValues(lookup).Inc()
}

// RateLimited counts a request rejected by the rate limiter.
func (m *Metrics) RateLimited() {
	if m == nil {
		return
	}
	m.rejectedByRate.Inc()
}

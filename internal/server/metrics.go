package server

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/rkalmar/mandate/internal/pipeline"
)

// Metrics collects guard server counters for Prometheus export.
type Metrics struct {
	registry    *prometheus.Registry
	requests    *prometheus.CounterVec
	aborts      *prometheus.CounterVec
	rateLimited prometheus.Counter
}

// NewMetrics creates and registers the server's counters on a private
// registry, so tests can construct multiple servers in one process.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mandate_hook_requests_total",
			Help: "Pipeline hook invocations by lifecycle hook.",
		}, []string{"hook"}),
		aborts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mandate_hook_aborts_total",
			Help: "Pipeline aborts by lifecycle hook and retryability.",
		}, []string{"hook", "retryable"}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mandate_rate_limited_total",
			Help: "Requests rejected by the per-client rate limiter.",
		}),
	}

	reg.MustRegister(m.requests, m.aborts, m.rateLimited)
	return m
}

// ObserveHook records one pipeline invocation and its outcome.
func (m *Metrics) ObserveHook(hook string, res pipeline.Result) {
	m.requests.WithLabelValues(hook).Inc()
	if res.Aborted {
		retryable := "false"
		if res.Retryable {
			retryable = "true"
		}
		m.aborts.WithLabelValues(hook, retryable).Inc()
	}
}

// ObserveRateLimited records one rate-limited rejection.
func (m *Metrics) ObserveRateLimited() {
	m.rateLimited.Inc()
}

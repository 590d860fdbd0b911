// Package metrics exposes pipeline counters in the Prometheus format.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Job and query outcomes
const (
	OutcomeSuccess     = "success"
	OutcomeFailed      = "failed"
	OutcomeTimeout     = "timeout"
	OutcomeRateLimited = "rate_limited"
	OutcomeInvalid     = "invalid"
	OutcomeError       = "error"
)

// Metrics owns a private registry so tests can create as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	jobRuns        *prometheus.CounterVec
	jobDuration    *prometheus.HistogramVec
	listingQueries *prometheus.CounterVec
}

// New registers the pipeline collectors plus the Go and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		jobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pipeline_job_runs_total",
			Help: "Enrichment job invocations by job and outcome.",
		}, []string{"job", "outcome"}),
		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pipeline_job_duration_seconds",
			Help:    "Wall-clock duration of enrichment job invocations.",
			Buckets: []float64{0.5, 1, 5, 15, 30, 60, 120, 300, 600},
		}, []string{"job"}),
		listingQueries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pipeline_listing_queries_total",
			Help: "Listing store reads by mode and outcome.",
		}, []string{"mode", "outcome"}),
	}

	reg.MustRegister(
		m.jobRuns,
		m.jobDuration,
		m.listingQueries,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveJob records one job invocation.
func (m *Metrics) ObserveJob(job, outcome string, d time.Duration) {
	m.jobRuns.WithLabelValues(job, outcome).Inc()
	if outcome != OutcomeRateLimited {
		m.jobDuration.WithLabelValues(job).Observe(d.Seconds())
	}
}

// ObserveQuery records one listing read.
func (m *Metrics) ObserveQuery(mode, outcome string) {
	m.listingQueries.WithLabelValues(mode, outcome).Inc()
}

// Handler serves the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry is exposed for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

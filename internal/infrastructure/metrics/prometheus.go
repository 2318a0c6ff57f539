// Package metrics exposes Prometheus collectors for queries, caches,
// HTTP requests and scheduled jobs.
package metrics

import (
	"errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/snapclash/snapclash-hub/internal/application/query"
	"github.com/snapclash/snapclash-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// PROMETHEUS METRICS
// ══════════════════════════════════════════════════════════════════════════════

const namespace = "snapclash"

// Outcome labels.
const (
	OutcomeSuccess  = "success"
	OutcomeInvalid  = "invalid"
	OutcomeNotFound = "not_found"
	OutcomeCorrupt  = "corrupt"
	OutcomeError    = "error"
)

// Metrics holds every collector of the service. Collectors are registered
// in the registry passed to New, so several instances can coexist in tests.
type Metrics struct {
	registry *prometheus.Registry

	queryDuration *prometheus.HistogramVec
	queryTotal    *prometheus.CounterVec
	cacheTotal    *prometheus.CounterVec

	httpDuration *prometheus.HistogramVec
	httpTotal    *prometheus.CounterVec
	httpInFlight prometheus.Gauge

	jobDuration *prometheus.HistogramVec
	jobTotal    *prometheus.CounterVec
	jobLastRun  *prometheus.GaugeVec
}

// New creates the collectors and registers them in reg.
// A nil reg creates a fresh registry.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		queryDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "query_duration_seconds",
				Help:      "Execution time of read queries.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"query"},
		),
		queryTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "queries_total",
				Help:      "Total number of read queries by outcome.",
			},
			[]string{"query", "outcome"},
		),
		cacheTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "leaderboard_cache_lookups_total",
				Help:      "Leaderboard cache lookups by view and result.",
			},
			[]string{"view", "result"},
		),

		httpDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		httpTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests.",
			},
			[]string{"method", "route", "code"},
		),
		httpInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "http_requests_in_flight",
				Help:      "Number of HTTP requests being served.",
			},
		),

		jobDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "job_duration_seconds",
				Help:      "Execution time of scheduled jobs.",
				Buckets:   []float64{0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"job"},
		),
		jobTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "job_runs_total",
				Help:      "Total number of scheduled job runs by outcome.",
			},
			[]string{"job", "outcome"},
		),
		jobLastRun: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "job_last_success_timestamp_seconds",
				Help:      "Unix time of the last successful job run.",
			},
			[]string{"job"},
		),
	}
}

// Registry returns the registry the collectors live in.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveQuery records a finished read query.
func (m *Metrics) ObserveQuery(name string, duration time.Duration, err error) {
	m.queryDuration.WithLabelValues(name).Observe(duration.Seconds())
	m.queryTotal.WithLabelValues(name, Outcome(err)).Inc()
}

// ObserveCache records a leaderboard cache lookup.
func (m *Metrics) ObserveCache(view string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheTotal.WithLabelValues(view, result).Inc()
}

// ObserveHTTP records a served HTTP request.
func (m *Metrics) ObserveHTTP(method, route string, code int, duration time.Duration) {
	m.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
	m.httpTotal.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
}

// InFlight tracks a request being served. Call the returned func when done.
func (m *Metrics) InFlight() func() {
	m.httpInFlight.Inc()
	return m.httpInFlight.Dec
}

// ObserveJob records a scheduled job run.
func (m *Metrics) ObserveJob(name string, duration time.Duration, err error) {
	m.jobDuration.WithLabelValues(name).Observe(duration.Seconds())
	m.jobTotal.WithLabelValues(name, Outcome(err)).Inc()
	if err == nil {
		m.jobLastRun.WithLabelValues(name).SetToCurrentTime()
	}
}

// Outcome maps an error to a low-cardinality label value.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case shared.IsCorruptData(err):
		return OutcomeCorrupt
	case shared.IsValidation(err):
		return OutcomeInvalid
	case shared.IsNotFound(err), errors.Is(err, shared.ErrNoActiveTemplates):
		return OutcomeNotFound
	default:
		return OutcomeError
	}
}

var _ query.Recorder = (*Metrics)(nil)

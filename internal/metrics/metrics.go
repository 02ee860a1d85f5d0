// Package metrics exposes Prometheus collectors for bulk processing.
package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "descriptai"

// Chunk outcomes.
const (
	OutcomeSuccess  = "success"
	OutcomeFailed   = "failed"
	OutcomeRejected = "rejected"
)

// Metrics holds the service collectors. A nil *Metrics records nothing.
type Metrics struct {
	registry         *prometheus.Registry
	jobsCreated      *prometheus.CounterVec
	jobsFinalized    *prometheus.CounterVec
	chunks           *prometheus.CounterVec
	chunkDuration    *prometheus.HistogramVec
	creditsDebited   prometheus.Counter
	creditsExhausted prometheus.Counter
	rateLimited      *prometheus.CounterVec
	sqlStatements    *prometheus.CounterVec
	sqlDuration      *prometheus.HistogramVec
}

// New registers all collectors on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		jobsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bulk_jobs_created_total",
			Help:      "Bulk jobs accepted by the upload gate.",
		}, []string{"kind"}),
		jobsFinalized: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bulk_jobs_finalized_total",
			Help:      "Bulk jobs moved to a terminal status.",
		}, []string{"status"}),
		chunks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_total",
			Help:      "Processed chunk calls by kind and outcome.",
		}, []string{"kind", "outcome"}),
		chunkDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "chunk_duration_seconds",
			Help:      "Wall time of chunk processing including model calls.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32},
		}, []string{"kind"}),
		creditsDebited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "credits_debited_total",
			Help:      "Credits consumed by successful items.",
		}),
		creditsExhausted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "credits_exhausted_total",
			Help:      "Successful items whose credit debit was rejected.",
		}),
		rateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Requests rejected with 429 by scope.",
		}, []string{"scope"}),
		sqlStatements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sql_statements_total",
			Help:      "Statements run through the SQL runner by marker and result.",
		}, []string{"marker", "result"}),
		sqlDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sql_statement_duration_seconds",
			Help:      "Statement latency by marker.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 1},
		}, []string{"marker"}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.jobsCreated,
		m.jobsFinalized,
		m.chunks,
		m.chunkDuration,
		m.creditsDebited,
		m.creditsExhausted,
		m.rateLimited,
		m.sqlStatements,
		m.sqlDuration,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) JobCreated(kind string) {
	if m == nil {
		return
	}
	m.jobsCreated.WithLabelValues(kind).Inc()
}

func (m *Metrics) JobFinalized(status string) {
	if m == nil {
		return
	}
	m.jobsFinalized.WithLabelValues(status).Inc()
}

func (m *Metrics) ObserveChunk(kind, outcome string, took time.Duration) {
	if m == nil {
		return
	}
	m.chunks.WithLabelValues(kind, outcome).Inc()
	m.chunkDuration.WithLabelValues(kind).Observe(took.Seconds())
}

func (m *Metrics) CreditDebited() {
	if m == nil {
		return
	}
	m.creditsDebited.Inc()
}

func (m *Metrics) CreditExhausted() {
	if m == nil {
		return
	}
	m.creditsExhausted.Inc()
}

func (m *Metrics) RateLimited(scope string) {
	if m == nil {
		return
	}
	m.rateLimited.WithLabelValues(scope).Inc()
}

// ObserveSQL matches infra.SQLRunner.Observe. Empty single-row lookups count
// as "empty", not as errors.
func (m *Metrics) ObserveSQL(marker string, took time.Duration, err error) {
	if m == nil {
		return
	}
	result := "ok"
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		result = "empty"
	case err != nil:
		result = "error"
	}
	m.sqlStatements.WithLabelValues(marker, result).Inc()
	m.sqlDuration.WithLabelValues(marker).Observe(took.Seconds())
}

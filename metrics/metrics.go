// Package metrics provides Prometheus metrics for retrieval
package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/poiesic/policyrag/core"
	"github.com/poiesic/policyrag/graph"
	"github.com/poiesic/policyrag/index"
	"github.com/poiesic/policyrag/rerank"
	"github.com/poiesic/policyrag/search"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "policyrag"

// Stage labels for StageDuration.
const (
	StageDense  = "dense"
	StageRerank = "rerank"
	StageGraph  = "graph"
	StageTotal  = "total"
)

var stageBuckets = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60}

// Metrics holds all Prometheus metrics for the retrieval service
type Metrics struct {
	// Query metrics
	QueriesTotal    *prometheus.CounterVec
	QueryErrors     *prometheus.CounterVec
	ResultsTotal    prometheus.Counter
	StageDuration   *prometheus.HistogramVec
	RerankFallbacks *prometheus.CounterVec
	GraphChains     prometheus.Histogram

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Index metrics
	IndexChunks  prometheus.Gauge
	IndexTriples prometheus.Gauge
}

// New creates all metrics and registers them with reg.
// A nil reg leaves the metrics unregistered.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	m := &Metrics{}

	m.QueriesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queries_total",
			Help:      "Total number of retrieval queries",
		},
		[]string{"variant"},
	)

	m.QueryErrors = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "query_errors_total",
			Help:      "Total number of failed retrieval queries",
		},
		[]string{"kind"},
	)

	m.ResultsTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "results_total",
			Help:      "Total number of results returned",
		},
	)

	m.StageDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of retrieval stages in seconds",
			Buckets:   stageBuckets,
		},
		[]string{"stage"},
	)

	m.RerankFallbacks = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rerank_fallbacks_total",
			Help:      "Total number of queries that kept dense order because reranking failed",
		},
		[]string{"reason"},
	)

	m.GraphChains = factory.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "graph_chains",
			Help:      "Number of chains returned by graph beam search",
			Buckets:   prometheus.LinearBuckets(0, 1, 6),
		},
	)

	m.HTTPRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"route", "status"},
	)

	m.HTTPRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	m.IndexChunks = factory.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "index_chunks",
			Help:      "Number of chunks in the served index",
		},
	)

	m.IndexTriples = factory.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "index_triples",
			Help:      "Number of triples in the served index",
		},
	)

	return m
}

// RecordHTTPRequest records an HTTP request with its status
func (m *Metrics) RecordHTTPRequest(route string, status string, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(route, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(route).Observe(duration.Seconds())
}

// UpdateIndexStats publishes the size of the served index.
func (m *Metrics) UpdateIndexStats(manifest *core.Manifest) {
	if manifest == nil {
		return
	}
	m.IndexChunks.Set(float64(manifest.ChunkCount))
	m.IndexTriples.Set(float64(manifest.TripleCount))
}

// Monitor returns a SearchMonitor that records every query into m.
func (m *Metrics) Monitor() search.SearchMonitor {
	return &monitor{m: m}
}

type monitor struct {
	m *Metrics
}

var _ search.SearchMonitor = (*monitor)(nil)

func (mon *monitor) Start(_ string, variant core.Variant) {
	mon.m.QueriesTotal.WithLabelValues(variant.String()).Inc()
}

func (mon *monitor) AfterDense(_ []core.RankedCandidate, elapsed time.Duration) {
	mon.m.StageDuration.WithLabelValues(StageDense).Observe(elapsed.Seconds())
}

func (mon *monitor) AfterRerank(_ []core.RankedCandidate, fallback error, elapsed time.Duration) {
	mon.m.StageDuration.WithLabelValues(StageRerank).Observe(elapsed.Seconds())
	if fallback != nil {
		mon.m.RerankFallbacks.WithLabelValues(rerank.Reason(fallback)).Inc()
	}
}

func (mon *monitor) AfterGraph(chains []graph.Chain, _ []int, elapsed time.Duration) {
	mon.m.StageDuration.WithLabelValues(StageGraph).Observe(elapsed.Seconds())
	mon.m.GraphChains.Observe(float64(len(chains)))
}

func (mon *monitor) AfterFusion(_ []core.RankedCandidate) {}

func (mon *monitor) Finish(results []core.Result, err error, elapsed time.Duration) {
	mon.m.StageDuration.WithLabelValues(StageTotal).Observe(elapsed.Seconds())
	if err != nil {
		mon.m.QueryErrors.WithLabelValues(errorKind(err)).Inc()
		return
	}
	mon.m.ResultsTotal.Add(float64(len(results)))
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, search.ErrEmbeddingFailed):
		return "embedding"
	case errors.Is(err, index.ErrVariantMissing):
		return "variant"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "other"
	}
}

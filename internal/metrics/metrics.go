// internal/metrics/metrics.go
// Package metrics holds the Prometheus collectors shared by the build
// pipeline, the query engine and the dashboard.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	QueriesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "geoassist_queries_total",
		Help: "Answered queries by front end and resolved intent",
	}, []string{"frontend", "intent"})
	QueryDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "geoassist_query_duration_ms",
		Help:    "Query answer latency in milliseconds",
		Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000, 5000},
	}, []string{"intent"})
	SemanticFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "geoassist_semantic_failures_total",
		Help: "Semantic fallback lookups that returned no snippets because of an error",
	})
	SamplingFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "geoassist_sampling_failures_total",
		Help: "Districts whose raster sample produced no data, by layer and reason",
	}, []string{"layer", "reason"})
	DistrictsBuiltTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "geoassist_districts_built_total",
		Help: "District records produced by the build pipeline",
	})
	EmbeddingRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "geoassist_embedding_requests_total",
		Help: "Embedding requests by provider and outcome",
	}, []string{"provider", "status"})
	EmbeddingDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "geoassist_embedding_duration_ms",
		Help:    "Embedding call duration in milliseconds",
		Buckets: []float64{5, 10, 20, 50, 100, 200, 500, 1000, 5000},
	}, []string{"provider"})
)

func init() {
	prometheus.MustRegister(QueriesTotal)
	prometheus.MustRegister(QueryDurationMs)
	prometheus.MustRegister(SemanticFailuresTotal)
	prometheus.MustRegister(SamplingFailuresTotal)
	prometheus.MustRegister(DistrictsBuiltTotal)
	prometheus.MustRegister(EmbeddingRequestsTotal)
	prometheus.MustRegister(EmbeddingDurationMs)
}

// ObserveQuery records one answered query.
func ObserveQuery(frontend, intent string, started time.Time) {
	QueriesTotal.WithLabelValues(frontend, intent).Inc()
	QueryDurationMs.WithLabelValues(intent).Observe(float64(time.Since(started).Microseconds()) / 1000)
}

// Handler exposes every registered collector in the Prometheus text format.
func Handler() http.Handler { return promhttp.Handler() }

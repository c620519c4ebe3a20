// Package metrics exposes Prometheus counters for the query pipeline and
// ingestion path.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry      *prometheus.Registry
	queriesTotal  *prometheus.CounterVec
	queryDuration prometheus.Histogram
	chunksIndexed prometheus.Counter
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		queriesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "knowd_queries_total",
			Help: "Answered queries by channel, detected intent and status.",
		}, []string{"channel", "intent", "status"}),
		queryDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "knowd_query_duration_seconds",
			Help:    "End-to-end query pipeline latency.",
			Buckets: prometheus.DefBuckets,
		}),
		chunksIndexed: factory.NewCounter(prometheus.CounterOpts{
			Name: "knowd_chunks_indexed_total",
			Help: "Chunks inserted into the vector index.",
		}),
	}
}

func (m *Metrics) ObserveQuery(channel, intent, status string, seconds float64) {
	if m == nil {
		return
	}
	m.queriesTotal.WithLabelValues(channel, intent, status).Inc()
	m.queryDuration.Observe(seconds)
}

func (m *Metrics) AddChunksIndexed(n int) {
	if m == nil {
		return
	}
	m.chunksIndexed.Add(float64(n))
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

package oracle

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus metrics for the oracle.
type Metrics struct {
	queryDuration  prometheus.Histogram
	queriesTotal   *prometheus.CounterVec
	poolPrice      *prometheus.GaugeVec
	aggregatePrice *prometheus.GaugeVec
	lifecycleTotal *prometheus.CounterVec
}

// NewMetrics creates and registers the metrics for the oracle.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		queryDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "oracle_price_query_duration_seconds",
			Help:    "Time taken to decode and aggregate one price query.",
			Buckets: prometheus.DefBuckets,
		}),
		queriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "oracle_price_queries_total",
			Help: "Total number of price queries, labeled by result.",
		}, []string{"result"}),
		poolPrice: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "oracle_pool_price",
			Help: "Last decimal price read from a registry slot.",
		}, []string{"token_mint", "slot", "protocol"}),
		aggregatePrice: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "oracle_aggregate_price",
			Help: "Last truncated average price of a registry.",
		}, []string{"token_mint"}),
		lifecycleTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "oracle_lifecycle_operations_total",
			Help: "Total number of registry lifecycle operations, labeled by operation and result.",
		}, []string{"operation", "result"}),
	}
	reg.MustRegister(m.queryDuration, m.queriesTotal, m.poolPrice, m.aggregatePrice, m.lifecycleTotal)
	return m
}

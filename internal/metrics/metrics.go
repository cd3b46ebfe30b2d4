// Package metrics holds the prometheus collectors for ranking and catalog activity.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the storefront collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Latency of a ranking call, by profile
	RankLatency *prometheus.HistogramVec

	// Total ranking calls, by profile
	RankRequests *prometheus.CounterVec

	// Results appended by the rating backfill, by profile
	RankBackfilled *prometheus.CounterVec

	// Searches that returned nothing
	SearchZeroResults prometheus.Counter

	// Products in the current catalog snapshot
	CatalogProducts prometheus.Gauge
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RankLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "storefront_rank_latency_seconds",
			Help:    "Latency of ranking calls",
			Buckets: prometheus.DefBuckets,
		}, []string{"profile"}),
		RankRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_rank_requests_total",
			Help: "Total number of ranking calls",
		}, []string{"profile"}),
		RankBackfilled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_rank_backfilled_total",
			Help: "How many results were filled in by rating instead of relevance",
		}, []string{"profile"}),
		SearchZeroResults: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "storefront_search_zero_results_total",
			Help: "Total number of searches with no results",
		}),
		CatalogProducts: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "storefront_catalog_products",
			Help: "Number of products in the current catalog",
		}),
	}
	reg.MustRegister(
		m.RankLatency,
		m.RankRequests,
		m.RankBackfilled,
		m.SearchZeroResults,
		m.CatalogProducts,
	)
	return m
}

// ObserveRank records one ranking call.
func (m *Metrics) ObserveRank(profile string, elapsed time.Duration, backfilled int) {
	if m == nil {
		return
	}
	m.RankRequests.WithLabelValues(profile).Inc()
	m.RankLatency.WithLabelValues(profile).Observe(elapsed.Seconds())
	if backfilled > 0 {
		m.RankBackfilled.WithLabelValues(profile).Add(float64(backfilled))
	}
}

// ZeroResults records a search that matched nothing.
func (m *Metrics) ZeroResults() {
	if m == nil {
		return
	}
	m.SearchZeroResults.Inc()
}

// SetCatalogSize records the size of the current catalog.
func (m *Metrics) SetCatalogSize(n int) {
	if m == nil {
		return
	}
	m.CatalogProducts.Set(float64(n))
}

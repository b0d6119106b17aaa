// Package metrics exposes operational Prometheus counters for the
// resolution hot path.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Redirect outcomes partitioned by terminal state.
	RedirectsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "linkcut_redirects_total",
			Help: "Total number of resolution requests by outcome",
		},
		[]string{"outcome"}, // redirected | not_found | expired
	)

	// Cache effectiveness on the resolution path.
	CacheHitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "linkcut_cache_hits_total",
			Help: "Resolution requests served from the cache",
		},
	)
	CacheMissesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "linkcut_cache_misses_total",
			Help: "Resolution requests that fell through to the store",
		},
	)
	CacheErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "linkcut_cache_errors_total",
			Help: "Cache operations that failed and were absorbed",
		},
	)

	LinksCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "linkcut_links_created_total",
			Help: "Total number of links created",
		},
	)

	StatsQueueDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "linkcut_stats_jobs_dropped_total",
			Help: "Click accounting jobs dropped because the queue was full",
		},
	)
)

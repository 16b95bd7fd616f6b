package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks cache hits by layer.
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seo_cache_hits_total",
			Help: "Total number of function response cache hits",
		},
		[]string{"layer"},
	)

	// CacheMisses tracks cache misses.
	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "seo_cache_misses_total",
			Help: "Total number of function response cache misses",
		},
	)

	// CacheSize tracks bytes written to the cache by layer.
	CacheSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "seo_cache_size_bytes",
			Help: "Bytes written to the function response cache",
		},
		[]string{"layer"},
	)

	// CacheErrors tracks cache operation errors.
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seo_cache_errors_total",
			Help: "Total number of cache operation errors",
		},
		[]string{"operation"}, // "get", "set", "delete"
	)

	// CacheSkipped tracks responses not stored, by reason.
	CacheSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seo_cache_skipped_total",
			Help: "Total number of function responses not cached",
		},
		[]string{"reason"},
	)
)

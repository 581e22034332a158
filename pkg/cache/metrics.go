package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks ids answered from the cache
	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "release_cache_hits_total",
			Help: "Total number of attribute cache hits",
		},
	)

	// CacheMisses tracks ids not present in the cache
	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "release_cache_misses_total",
			Help: "Total number of attribute cache misses",
		},
	)

	// CacheEntries tracks the number of entries held in memory
	CacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "release_cache_entries",
			Help: "Current number of attribute cache entries",
		},
	)

	// CacheFlushes tracks completed snapshot writes
	CacheFlushes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "release_cache_flushes_total",
			Help: "Total number of attribute cache snapshot writes",
		},
	)

	// CacheErrors tracks cache operation errors
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "release_cache_errors_total",
			Help: "Total number of cache operation errors",
		},
		[]string{"operation"}, // "load", "flush"
	)
)

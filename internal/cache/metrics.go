package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Hits counts reads served from the cache without touching storage.
	Hits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bookbase_cache_hits_total",
			Help: "Total number of response cache hits",
		},
	)

	// Misses counts reads that fell through to storage.
	Misses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bookbase_cache_misses_total",
			Help: "Total number of response cache misses",
		},
	)

	// Errors counts failed cache operations by kind. A failed get or set is
	// swallowed and treated as a miss; the counter is the only trace of it
	// besides the log.
	Errors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookbase_cache_errors_total",
			Help: "Total number of cache operation errors",
		},
		[]string{"operation"}, // "get", "set", "delete", "keys"
	)
)

package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	HitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ordersync_cache_hits_total",
		Help: "Total number of cache hits",
	}, []string{"cache"})

	MissesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ordersync_cache_misses_total",
		Help: "Total number of cache misses",
	}, []string{"cache"})

	SetsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ordersync_cache_sets_total",
		Help: "Total number of accepted cache writes",
	}, []string{"cache"})

	DroppedSetsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ordersync_cache_dropped_sets_total",
		Help: "Total number of cache writes rejected by the admission policy",
	}, []string{"cache"})
)

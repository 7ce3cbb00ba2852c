package metadata

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	CacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ordersync_metadata_cache_hits_total",
		Help: "Total number of token descriptors served from the metadata cache",
	})

	RegistryHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ordersync_metadata_registry_hits_total",
		Help: "Total number of token descriptors resolved from the registry",
	})

	DiscoveryTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ordersync_metadata_discovery_total",
		Help: "Total number of discovery calls by result",
	}, []string{"result"}) // success, error, unknown, panic

	DiscoverySkippedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ordersync_metadata_discovery_skipped_total",
		Help: "Total number of resolutions skipped because discovery for the token was already in flight",
	})

	DiscoveryDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ordersync_metadata_discovery_duration_seconds",
		Help:    "Duration of token discovery calls",
		Buckets: prometheus.DefBuckets,
	})

	RegistrySize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ordersync_metadata_registry_size",
		Help: "Number of tokens in the loaded registry",
	})

	CacheSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ordersync_metadata_cache_size",
		Help: "Number of resolved token descriptors held in the metadata cache",
	})
)

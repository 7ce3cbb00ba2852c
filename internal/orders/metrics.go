package orders

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	FetchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ordersync_orders_fetch_duration_seconds",
		Help:    "Duration of order page fetches",
		Buckets: prometheus.DefBuckets,
	})

	FetchErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ordersync_orders_fetch_errors_total",
		Help: "Total number of failed order page fetches",
	})

	DuplicatesDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ordersync_orders_duplicates_dropped_total",
		Help: "Total number of orders dropped for repeating an identifier within a page",
	})

	EnrichDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ordersync_orders_enrich_duration_seconds",
		Help:    "Duration of page enrichment",
		Buckets: prometheus.DefBuckets,
	})

	PlaceholdersTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ordersync_orders_placeholders_total",
		Help: "Total number of placeholder descriptors attached to orders",
	})

	TransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ordersync_orders_transitions_total",
		Help: "Total number of detected order status transitions",
	}, []string{"from", "to"})

	UnexpectedTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ordersync_orders_unexpected_transitions_total",
		Help: "Total number of detected status changes outside the order lifecycle",
	}, []string{"from", "to"})
)

package reconcile

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	CyclesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ordersync_reconcile_cycles_total",
		Help: "Total number of applied sync cycles by result",
	}, []string{"result"})

	CycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ordersync_reconcile_cycle_duration_seconds",
		Help:    "Duration of successful sync cycles",
		Buckets: prometheus.DefBuckets,
	})

	StaleDiscardsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ordersync_reconcile_stale_discards_total",
		Help: "Total number of cycle results discarded because a newer cycle was dispatched",
	})
)

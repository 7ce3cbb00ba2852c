package execution

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ActionsTotal tracks order actions by outcome.
	ActionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ordersync_execution_actions_total",
			Help: "Total number of order actions by action and result",
		},
		[]string{"action", "result"},
	)

	// RollbacksTotal tracks optimistic updates that were undone.
	RollbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ordersync_execution_rollbacks_total",
			Help: "Total number of optimistic updates rolled back",
		},
		[]string{"action"},
	)

	// ActionDuration tracks action service latency.
	ActionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ordersync_execution_action_duration_seconds",
		Help:    "Duration of order action calls",
		Buckets: prometheus.DefBuckets,
	}, []string{"action"})

	// InFlightActions tracks running actions.
	InFlightActions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ordersync_execution_in_flight_actions",
		Help: "Number of order actions currently in flight",
	})
)

package notify

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	NotificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ordersync_notify_notifications_total",
		Help: "Total number of delivered transition notifications by sink",
	}, []string{"sink"})

	NotifyErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ordersync_notify_errors_total",
		Help: "Total number of failed transition notifications by sink",
	}, []string{"sink"})

	ConnectedClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ordersync_notify_websocket_clients",
		Help: "Number of connected websocket subscribers",
	})

	SlowClientsDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ordersync_notify_websocket_slow_clients_dropped_total",
		Help: "Total number of websocket clients disconnected for a full send buffer",
	})
)

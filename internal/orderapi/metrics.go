package orderapi

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ordersync_orderapi_requests_total",
		Help: "Total number of order API requests by endpoint and status",
	}, []string{"endpoint", "status"})

	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ordersync_orderapi_request_duration_seconds",
		Help:    "Order API request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})
)

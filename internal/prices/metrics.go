package prices

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var LookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "ordersync_prices_lookups_total",
	Help: "Total number of uncached price lookups by result",
}, []string{"result"})

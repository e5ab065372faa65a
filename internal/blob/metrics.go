package blob

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var operationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "lqt",
		Subsystem: "blob",
		Name:      "operations_total",
		Help:      "Document store operations by backend and result.",
	},
	[]string{"op", "backend", "result"},
)

func observe(op, backend, result string) {
	operationsTotal.WithLabelValues(op, backend, result).Inc()
}

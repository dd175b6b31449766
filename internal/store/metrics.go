package store

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	operationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "profile_memory",
			Name:      "store_operations_total",
			Help:      "Record store operations by backend and operation.",
		},
		[]string{"backend", "op"},
	)

	operationFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "profile_memory",
			Name:      "store_operation_failures_total",
			Help:      "Record store operations that returned an error.",
		},
		[]string{"backend", "op"},
	)

	cacheHitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "profile_memory",
			Name:      "store_cache_hits_total",
			Help:      "Collection reads served from the decoded-record cache.",
		},
	)
)

func observe(backend, op string, err error) {
	operationsTotal.WithLabelValues(backend, op).Inc()
	if err != nil {
		operationFailuresTotal.WithLabelValues(backend, op).Inc()
	}
}

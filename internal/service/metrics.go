package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	degradedReadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "profile_memory",
			Name:      "degraded_reads_total",
			Help:      "Reads that failed and were answered with an empty result.",
		},
		[]string{"op"},
	)

	rememberedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "profile_memory",
			Name:      "remembered_total",
			Help:      "Records stored, by category.",
		},
		[]string{"category"},
	)
)

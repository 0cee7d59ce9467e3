// Package cache provides Prometheus metrics for semantic cache monitoring.
package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// LookupsTotal counts cache lookups by result.
	// Labels: result (hit, miss, error)
	LookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "semstore",
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Total number of semantic cache lookups by result",
		},
		[]string{"result"},
	)

	// PutsTotal counts cache writes.
	PutsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "semstore",
			Subsystem: "cache",
			Name:      "puts_total",
			Help:      "Total number of semantic cache writes",
		},
	)

	// RemovalsTotal counts entries removed by near-exact vector match.
	RemovalsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "semstore",
			Subsystem: "cache",
			Name:      "removals_total",
			Help:      "Total number of single-entry cache removals",
		},
	)

	// ClearedEntriesTotal counts entries removed by full cache clears.
	ClearedEntriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "semstore",
			Subsystem: "cache",
			Name:      "cleared_entries_total",
			Help:      "Total number of entries removed by cache clears",
		},
	)
)

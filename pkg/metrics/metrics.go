// Package metrics provides Prometheus metrics for the bramble service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// LinksTotal tracks link writes by outcome (created, failed, rolled_back)
	LinksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bramble",
			Subsystem: "links",
			Name:      "writes_total",
			Help:      "Total number of link write attempts by outcome",
		},
		[]string{"tenant_id", "outcome"},
	)

	// OrphanedLinksTotal tracks forward edges stranded by a failed rollback.
	// This is the only integrity violation the writer can produce; it must
	// never grow silently.
	OrphanedLinksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bramble",
			Subsystem: "links",
			Name:      "orphaned_total",
			Help:      "Total number of orphaned forward links left by failed rollbacks",
		},
		[]string{"tenant_id"},
	)

	// AutoLinkRunsTotal tracks auto-link runs by gate outcome
	AutoLinkRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bramble",
			Subsystem: "autolink",
			Name:      "runs_total",
			Help:      "Total number of auto-link runs by gate outcome",
		},
		[]string{"tenant_id", "gate"},
	)

	// SuggestMatchesDuration tracks match aggregation latency
	SuggestMatchesDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "bramble",
			Subsystem: "matching",
			Name:      "suggest_duration_seconds",
			Help:      "Duration of match suggestion requests in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"tenant_id"},
	)

	// MessagesConsumedTotal tracks inbound messages consumed from Kafka
	MessagesConsumedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bramble",
			Subsystem: "ingest",
			Name:      "messages_total",
			Help:      "Total number of inbound message events consumed by status",
		},
		[]string{"status"},
	)
)

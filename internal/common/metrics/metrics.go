// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SectionMerges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intake_section_merges_total",
			Help: "Total number of draft section merges applied",
		},
		[]string{"section"},
	)

	OffersComputed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intake_offers_computed_total",
			Help: "Total number of risk score computations by outcome",
		},
		[]string{"outcome"},
	)

	GuardDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intake_guard_decisions_total",
			Help: "Total number of submission guard decisions",
		},
		[]string{"decision"},
	)

	Submissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intake_submissions_total",
			Help: "Total number of submit attempts by result",
		},
		[]string{"result"},
	)

	SnapshotWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intake_snapshot_writes_total",
			Help: "Total number of durable snapshot writes by result",
		},
		[]string{"result"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "intake_request_duration_seconds",
			Help: "Duration of HTTP request handling in seconds",
		},
		[]string{"route", "method"},
	)
)

package session

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Resolution outcomes.
const (
	outcomeOverride    = "override"
	outcomeFound       = "found"
	outcomeFallback    = "fallback"
	outcomeNoRole      = "no_role"
	outcomeUnavailable = "unavailable"
)

// Gate decisions.
const (
	decisionAllow        = "allow"
	decisionRequireLogin = "require_login"
	decisionLanding      = "landing"
	decisionMalformed    = "malformed_cookie"
)

var (
	// ResolutionsTotal counts role resolutions by outcome.
	ResolutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "staffhub",
			Subsystem: "session",
			Name:      "resolutions_total",
			Help:      "Total number of role resolutions",
		},
		[]string{"outcome"},
	)

	// LookupDuration measures profile lookups made during resolution.
	LookupDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "staffhub",
			Subsystem: "session",
			Name:      "lookup_duration_seconds",
			Help:      "Duration of profile lookups in seconds",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5},
		},
	)

	// GateDecisionsTotal counts route gate decisions.
	GateDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "staffhub",
			Subsystem: "session",
			Name:      "gate_decisions_total",
			Help:      "Total number of route gate decisions",
		},
		[]string{"decision"},
	)
)

func recordResolution(outcome string) {
	ResolutionsTotal.WithLabelValues(outcome).Inc()
}

func recordGateDecision(decision string) {
	GateDecisionsTotal.WithLabelValues(decision).Inc()
}

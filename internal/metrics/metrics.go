// Package metrics exposes Prometheus collectors for the HTTP layer and the
// onboarding workflows.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "onboardhub"

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_in_flight",
			Help:      "Number of HTTP requests currently being processed",
		},
	)

	// DuplicateRequestsTotal counts mutating requests rejected while an identical one was running.
	DuplicateRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "duplicate_requests_total",
			Help:      "Mutating requests rejected as duplicates of an in-flight request",
		},
		[]string{"path"},
	)
)

// Invite metrics
var (
	InviteCodesGenerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "invite",
			Name:      "codes_generated_total",
			Help:      "Invite codes generated, by granted role",
		},
		[]string{"role"},
	)

	// InviteRedemptions counts redemption attempts by result.
	InviteRedemptions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "invite",
			Name:      "redemptions_total",
			Help:      "Invite code redemption attempts",
		},
		[]string{"result"}, // success, not_found, already_member, error
	)

	InvitationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "invite",
			Name:      "invitations_total",
			Help:      "Email invitations recorded, by delivery result",
		},
		[]string{"delivery"}, // skipped, sent, failed
	)

	ExpiredPurged = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "invite",
			Name:      "expired_purged_total",
			Help:      "Expired invite codes and invitations deleted by the janitor",
		},
		[]string{"kind"}, // invite_code, invitation, system_log
	)
)

// Course metrics
var (
	CourseGenerations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "course",
			Name:      "generations_total",
			Help:      "Course generation runs by outcome",
		},
		[]string{"outcome"}, // populated, fallback, format_error, failed
	)

	GeneratorDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "course",
			Name:      "generator_duration_seconds",
			Help:      "Latency of external generator calls",
			Buckets:   []float64{.5, 1, 2.5, 5, 10, 20, 40, 80},
		},
		[]string{"provider"},
	)

	SSEClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "course",
			Name:      "sse_clients",
			Help:      "Connected course event subscribers",
		},
	)
)

// BuildInfo exposes build information.
var BuildInfo = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "build_info",
		Help:      "Build information",
	},
	[]string{"version"},
)

func SetBuildInfo(version string) {
	BuildInfo.WithLabelValues(version).Set(1)
}

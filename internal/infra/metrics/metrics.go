// Package metrics provides Prometheus metrics for kickoff.
// Counters, gauges and histograms for point awards, achievements,
// persistence, sessions, health and rate limiting.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ─── Engagement ─────────────────────────────────────────────────────────────

// PointsAwarded tracks positive points granted, including achievement bonuses.
var PointsAwarded = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "kickoff",
	Name:      "points_awarded_total",
	Help:      "Total positive points awarded.",
})

// ActivitiesTracked tracks accepted activity increments.
var ActivitiesTracked = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "kickoff",
	Name:      "activities_tracked_total",
	Help:      "Total tracked activities by type.",
}, []string{"activity"})

// AchievementsUnlocked tracks first-time achievement unlocks.
var AchievementsUnlocked = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "kickoff",
	Name:      "achievements_unlocked_total",
	Help:      "Total achievements unlocked by id.",
}, []string{"achievement"})

// LevelUps tracks upward level crossings by the level reached.
var LevelUps = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "kickoff",
	Name:      "level_ups_total",
	Help:      "Total level-ups by level reached.",
}, []string{"level"})

// SessionsActive tracks engines held in memory.
var SessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "kickoff",
	Name:      "sessions_active",
	Help:      "Number of user engines loaded in memory.",
})

// ─── Persistence ────────────────────────────────────────────────────────────

// PersistFailures tracks failed store writes by operation (save, journal, flush).
var PersistFailures = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "kickoff",
	Name:      "persist_failures_total",
	Help:      "Total failed persistence operations.",
}, []string{"op"})

// PersistFlushLatency tracks write-behind flush duration.
var PersistFlushLatency = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: "kickoff",
	Name:      "persist_flush_seconds",
	Help:      "Write-behind flush duration in seconds.",
	Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
})

// PersistQueueDepth tracks snapshots waiting to be flushed.
var PersistQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "kickoff",
	Name:      "persist_queue_depth",
	Help:      "Number of user snapshots awaiting write-behind flush.",
})

// BreakerState tracks circuit breaker state (0=closed, 1=open, 2=half-open).
var BreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "kickoff",
	Name:      "breaker_state",
	Help:      "Circuit breaker state (0=closed, 1=open, 2=half-open).",
}, []string{"breaker"})

// BreakerTrips tracks how often a breaker opened.
var BreakerTrips = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "kickoff",
	Name:      "breaker_trips_total",
	Help:      "Total circuit breaker trips.",
}, []string{"breaker"})

// ─── Health ─────────────────────────────────────────────────────────────────

// HealthCheckStatus tracks health check results (1=healthy, 0=unhealthy).
var HealthCheckStatus = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "kickoff",
	Name:      "health_check_status",
	Help:      "Health check result per component (1=healthy, 0=unhealthy).",
}, []string{"check"})

// HealthRecoveries tracks auto-recovery attempts.
var HealthRecoveries = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "kickoff",
	Name:      "health_recoveries_total",
	Help:      "Total auto-recovery attempts per check.",
}, []string{"check"})

// ─── API ────────────────────────────────────────────────────────────────────

// RateLimited tracks requests rejected by the per-client limiter.
var RateLimited = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "kickoff",
	Name:      "rate_limited_total",
	Help:      "Total requests rejected by the rate limiter.",
})

// LiveSubscribers tracks open live-notification websockets.
var LiveSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "kickoff",
	Name:      "live_subscribers",
	Help:      "Number of open live notification connections.",
})

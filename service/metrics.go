package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("guardian")

var activitiesRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "guardian_activities_recorded_total",
	Help: "Number of activities recorded, by activity type",
}, []string{"type"})

var activitiesRejected = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "guardian_activities_rejected_total",
	Help: "Number of activities rejected, by reason",
}, []string{"reason"})

var pointsAwarded = promauto.NewCounter(prometheus.CounterOpts{
	Name: "guardian_points_awarded_total",
	Help: "Total points credited, including badge and promotion points",
})

var badgesAwarded = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "guardian_badges_awarded_total",
	Help: "Number of badges awarded, by badge",
}, []string{"badge"})

var rankPromotions = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "guardian_rank_promotions_total",
	Help: "Number of rank promotions, by new rank",
}, []string{"rank"})

var outcomesVerified = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "guardian_outcomes_verified_total",
	Help: "Number of enforcement outcomes verified, by outcome type",
}, []string{"outcome"})

var leaderboardRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "guardian_leaderboard_requests_total",
	Help: "Number of leaderboard requests, by cache result",
}, []string{"cache"})

var leaderboardDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "guardian_leaderboard_build_duration_seconds",
	Help:    "Time to aggregate and rank a leaderboard on a cache miss",
	Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
})

var profileRepairs = promauto.NewCounter(prometheus.CounterOpts{
	Name: "guardian_profile_repairs_total",
	Help: "Number of cached profiles rewritten after drifting from the activity log",
})

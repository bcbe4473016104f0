package handler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sessionsStartedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "game_sessions_started_total",
		Help: "Total number of game sessions started.",
	})

	locationSubmissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "game_location_submissions_total",
			Help: "Total number of location submissions by outcome.",
		},
		[]string{"outcome"},
	)

	sessionsFinishedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "game_sessions_finished_total",
		Help: "Total number of game sessions completed.",
	})

	sessionsAbandonedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "game_sessions_abandoned_total",
		Help: "Total number of game sessions abandoned by the player.",
	})

	statsRecordedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "game_stats_recorded_total",
		Help: "Total number of post-game ratings recorded.",
	})
)

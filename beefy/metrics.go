package beefy

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	submissionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "beefy_submissions_total",
		Help: "The total number of submitted commitments by verification result.",
	}, []string{"result"})
	latestBeefyBlock = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "beefy_latest_block",
		Help: "The latest relay chain block accepted as final.",
	})
	currentValidatorSetID = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "beefy_current_validator_set_id",
		Help: "The id of the validator set currently signing commitments.",
	})
	historyCacheHit = promauto.NewCounter(prometheus.CounterOpts{
		Name: "beefy_history_cache_hit",
		Help: "The total number of historical commitments served from cache.",
	})
	historyCacheMiss = promauto.NewCounter(prometheus.CounterOpts{
		Name: "beefy_history_cache_miss",
		Help: "The total number of historical commitments verified from scratch.",
	})
)

func recordState(state *State) {
	latestBeefyBlock.Set(float64(state.LatestBeefyBlock))
	currentValidatorSetID.Set(float64(state.CurrentValidatorSet.ID))
}

// Package metrics holds the Prometheus collectors for reward draws, chest
// sessions and avatar asset loading.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	Draws = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reward_draws_total",
			Help: "Reward draws by mode and resulting rarity",
		},
		[]string{"mode", "rarity"},
	)
	EmptyDraws = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reward_draws_empty_total",
			Help: "Draws that found nothing left to unlock",
		},
		[]string{"mode"},
	)
	RewardsUnlocked = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rewards_unlocked_total",
			Help: "Newly persisted unlocked rewards by rarity",
		},
		[]string{"rarity"},
	)
	PersistFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "reward_persist_failures_total",
			Help: "Chest bundles that could not be stored",
		},
	)
	ChestsOpened = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chest_sessions_opened_total",
			Help: "Chest sessions started by trigger",
		},
		[]string{"trigger"},
	)
	ActiveChests = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "chest_sessions_active",
			Help: "Chest sessions currently in memory",
		},
	)
	AssetLoads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "avatar_asset_loads_total",
			Help: "Avatar asset fetches by result",
		},
		[]string{"result"},
	)
	AssetLoadSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "avatar_asset_load_seconds",
			Help:    "Time spent fetching and decoding one avatar asset",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 3},
		},
	)
	AvatarRenders = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "avatar_renders_total",
			Help: "Rendered avatar images",
		},
	)
)

func init() {
	prometheus.MustRegister(Draws)
	prometheus.MustRegister(EmptyDraws)
	prometheus.MustRegister(RewardsUnlocked)
	prometheus.MustRegister(PersistFailures)
	prometheus.MustRegister(ChestsOpened)
	prometheus.MustRegister(ActiveChests)
	prometheus.MustRegister(AssetLoads)
	prometheus.MustRegister(AssetLoadSeconds)
	prometheus.MustRegister(AvatarRenders)
}

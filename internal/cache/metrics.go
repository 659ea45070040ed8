package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	tierHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cards_cache_hits_total",
		Help: "Cache hits by tier",
	}, []string{"tier"})

	cacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cards_cache_misses_total",
		Help: "Lookups that missed every cache tier",
	})

	tierPromotions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cards_cache_promotions_total",
		Help: "Entries copied into a faster tier after a hit in a slower one",
	}, []string{"tier"})

	tierErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cards_cache_tier_errors_total",
		Help: "Tier operation failures",
	}, []string{"tier", "op"})
)

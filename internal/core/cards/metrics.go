package cards

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Resolution sources reported by cards_resolve_total. Cache tiers report
// under their tier name.
const (
	sourceStore    = "store"
	sourceFetch    = "fetch"
	sourceFallback = "fallback"
)

var (
	resolveTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cards_resolve_total",
		Help: "Card resolutions by where the result came from.",
	}, []string{"source"})

	fetchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cards_fetch_total",
		Help: "Remote page fetches by outcome.",
	}, []string{"outcome"})

	fetchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "cards_fetch_duration_seconds",
		Help:    "Time spent fetching remote pages.",
		Buckets: prometheus.DefBuckets,
	})
)

package cache

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the cache-layer-specific Prometheus collectors: per-layer
// hit/miss counts, promotions, and L2 compaction activity. Engine-wide
// resolve metrics live in infrastructure/metrics; these are scoped to the
// cache's own internal behavior.
type Metrics struct {
	HitsTotal       *prometheus.CounterVec
	MissesTotal     prometheus.Counter
	PromotionsTotal *prometheus.CounterVec
	CompactionsTotal prometheus.Counter
	L2Bytes         prometheus.Gauge
}

// NewMetrics registers a Metrics instance against registerer.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		HitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "actorcore_cache_layer_hits_total",
				Help: "Cache hits, by layer (l1, l2, l3)",
			},
			[]string{"layer"},
		),
		MissesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "actorcore_cache_layer_misses_total",
			Help: "Resolves that missed every configured cache layer",
		}),
		PromotionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "actorcore_cache_layer_promotions_total",
				Help: "Entries copied up to a faster layer after a lower-layer hit",
			},
			[]string{"from_layer", "to_layer"},
		),
		CompactionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "actorcore_cache_l2_compactions_total",
			Help: "Number of times the L2 log file was compacted",
		}),
		L2Bytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "actorcore_cache_l2_bytes",
			Help: "Current size of the L2 log file in bytes",
		}),
	}
	if registerer != nil {
		registerer.MustRegister(m.HitsTotal, m.MissesTotal, m.PromotionsTotal, m.CompactionsTotal, m.L2Bytes)
	}
	return m
}

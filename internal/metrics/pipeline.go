package metrics

import "github.com/prometheus/client_golang/prometheus"

// Pipeline metrics are registered explicitly from main (no init()) so tests
// can construct cache and sync services without touching the default
// registry.
var (
	// QueryCacheTotal counts query-cache lookups by result ("hit"/"miss").
	QueryCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "feedrank",
			Name:      "query_cache_total",
			Help:      "Query cache lookups by result (hit/miss)",
		},
		[]string{"result"},
	)

	// SyncedContentsTotal counts content records upserted by sync runs.
	SyncedContentsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "feedrank",
			Name:      "synced_contents_total",
			Help:      "Content records upserted by sync",
		},
	)

	// ProviderFailuresTotal counts provider fetches that contributed nothing.
	ProviderFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "feedrank",
			Name:      "provider_failures_total",
			Help:      "Provider fetch failures by provider name",
		},
		[]string{"provider"},
	)
)

// RegisterPipelineMetrics registers cache and sync metrics with the default
// registry.
func RegisterPipelineMetrics() {
	prometheus.MustRegister(QueryCacheTotal)
	prometheus.MustRegister(SyncedContentsTotal)
	prometheus.MustRegister(ProviderFailuresTotal)
}

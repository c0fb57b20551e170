package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Extractor metrics
	FetchRequestsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "steam_fetch_requests_total",
		Help: "The total number of HTTP requests issued against the Steam API",
	})
	FetchRateLimitedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "steam_fetch_rate_limited_total",
		Help: "The total number of 429 responses received from the Steam API",
	})
	FetchFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "steam_fetch_failures_total",
		Help: "The total number of fetch calls that returned a failure after retries",
	})
	RawRowsAppendedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "steam_raw_rows_appended_total",
		Help: "The total number of snapshot rows appended to the raw store",
	}, []string{"kind"})
	MetadataSoftMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "steam_metadata_soft_misses_total",
		Help: "The total number of appdetails lookups that returned success=false",
	})
	MetadataCacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "steam_metadata_cache_hits_total",
		Help: "The total number of metadata lookups served from the cache",
	})

	// Reconciler metrics
	TrustedUpsertsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "steam_trusted_upserts_total",
		Help: "The total number of rows upserted into the trusted store",
	}, []string{"kind"})
	TrustedUpsertErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "steam_trusted_upsert_errors_total",
		Help: "The total number of per-row upsert failures skipped during reconciliation",
	}, []string{"kind"})
	ReconcileLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "steam_reconcile_latency_seconds",
		Help:    "Latency of one raw-to-trusted reconciliation pass per entity kind",
		Buckets: prometheus.DefBuckets,
	})
)

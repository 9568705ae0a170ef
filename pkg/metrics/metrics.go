package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Cache read results
const (
	CacheHit     = "hit"
	CacheMiss    = "miss"
	CacheExpired = "expired"
	CacheCorrupt = "corrupt"
)

var (
	// Cache metrics
	CacheReadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "karatekonnect_cache_reads_total",
			Help: "Total number of local cache reads by result",
		},
		[]string{"result"},
	)

	CacheWriteFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "karatekonnect_cache_write_failures_total",
			Help: "Total number of cache writes that could not be persisted",
		},
	)

	StaleFallbacksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "karatekonnect_stale_fallbacks_total",
			Help: "Total number of reads served from a stale cache after a remote failure",
		},
	)

	// Remote store metrics
	RemoteRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "karatekonnect_remote_requests_total",
			Help: "Total number of remote store requests by operation and status",
		},
		[]string{"operation", "status"},
	)

	RemoteRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "karatekonnect_remote_request_duration_seconds",
			Help:    "Remote store request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// Roster metrics
	UpdatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "karatekonnect_updates_total",
			Help: "Total number of document updates by result",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(CacheReadsTotal)
	prometheus.MustRegister(CacheWriteFailuresTotal)
	prometheus.MustRegister(StaleFallbacksTotal)
	prometheus.MustRegister(RemoteRequestsTotal)
	prometheus.MustRegister(RemoteRequestDuration)
	prometheus.MustRegister(UpdatesTotal)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// NewServeMux serves /metrics, /health, /ready and /live
func NewServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	mux.HandleFunc("/health", HealthHandler())
	mux.HandleFunc("/ready", ReadyHandler())
	mux.HandleFunc("/live", LivenessHandler())
	return mux
}

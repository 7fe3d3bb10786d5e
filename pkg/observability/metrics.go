// Package observability exposes Prometheus instrumentation for the cache
// rebuild path.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// CacheMetrics counts the outcomes of incremental cache rebuilds, labelled
// by cache id.
type CacheMetrics struct {
	Hits            *prometheus.CounterVec
	Misses          *prometheus.CounterVec
	StaleRecomputes *prometheus.CounterVec
	Evictions       *prometheus.CounterVec
	BuilderFailures *prometheus.CounterVec
}

// NewCacheMetrics creates cache counters registered on the given registerer.
func NewCacheMetrics(reg prometheus.Registerer) *CacheMetrics {
	m := &CacheMetrics{
		Hits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "blamecore",
			Subsystem: "cache",
			Name:      "hits_total",
			Help:      "Artifacts whose cached row was fresh and reused.",
		}, []string{"cache_id"}),
		Misses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "blamecore",
			Subsystem: "cache",
			Name:      "misses_total",
			Help:      "Artifacts with no cached row, requiring a build.",
		}, []string{"cache_id"}),
		StaleRecomputes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "blamecore",
			Subsystem: "cache",
			Name:      "stale_recomputes_total",
			Help:      "Cached rows overwritten because the artifact moved forward in time.",
		}, []string{"cache_id"}),
		Evictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "blamecore",
			Subsystem: "cache",
			Name:      "evictions_total",
			Help:      "Cached rows dropped because the revision newly failed.",
		}, []string{"cache_id"}),
		BuilderFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "blamecore",
			Subsystem: "cache",
			Name:      "builder_failures_total",
			Help:      "Row builds skipped because the builder returned a recoverable error.",
		}, []string{"cache_id"}),
	}

	reg.MustRegister(m.Hits, m.Misses, m.StaleRecomputes, m.Evictions, m.BuilderFailures)

	return m
}

// MetricsHandler returns an http.Handler serving the /metrics scrape
// endpoint for the given registry.
func MetricsHandler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

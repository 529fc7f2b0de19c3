package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	loadHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "codexmonitor_cache_load_hits_total",
		Help: "Cache blob loads that hydrated state.",
	})
	loadMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "codexmonitor_cache_load_misses_total",
		Help: "Cache blob loads treated as absent (missing, undecodable or expired).",
	})
	evictions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "codexmonitor_cache_thread_evictions_total",
		Help: "Thread entries evicted from the MRU set.",
	})
	writeFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "codexmonitor_cache_write_failures_total",
		Help: "Best-effort cache writes that failed and were swallowed.",
	})
)

// Package metrics declares the Prometheus collectors of the service.
//
// Collectors are registered with the default registry at init through
// promauto; /metrics exposes them with promhttp.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Cache lookup results.
const (
	CacheHit     = "hit"
	CacheMiss    = "miss"
	CacheStale   = "stale"
	CacheCorrupt = "corrupt"
	CacheError   = "error"
)

// Source load outcomes.
const (
	LoadOK     = "ok"
	LoadFailed = "failed"
	LoadEmpty  = "empty"
)

var (
	CacheRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "evsubsidy_cache_requests_total",
		Help: "Cache lookups by result (hit, miss, stale, corrupt, error)",
	}, []string{"result"})

	SourceLoads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "evsubsidy_source_loads_total",
		Help: "Dataset load attempts by source and outcome",
	}, []string{"source", "outcome"})

	SourceLoadDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "evsubsidy_source_load_duration_seconds",
		Help:    "Latency of dataset loads per source",
		Buckets: []float64{0.001, 0.005, 0.025, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"source"})

	Calculations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "evsubsidy_calculations_total",
		Help: "Subsidy calculations by price tier",
	}, []string{"tier"})

	DatasetVehicles = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "evsubsidy_dataset_vehicles",
		Help: "Vehicles in the active dataset",
	})

	DatasetOverrides = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "evsubsidy_dataset_overrides",
		Help: "Vehicle-region subsidy entries in the active dataset",
	})
)

// Handler returns the HTTP handler exposing the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

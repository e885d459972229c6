package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jengzang/permit-map-backend-go/internal/aggregation"
	"github.com/jengzang/permit-map-backend-go/internal/models"
)

var (
	RebuildsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "permitmap_rebuilds_total",
		Help: "Total full aggregation rebuilds by resulting state",
	}, []string{"state"})
	RebuildDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "permitmap_rebuild_duration_ms",
		Help:    "Full aggregation rebuild duration in milliseconds",
		Buckets: []float64{0.1, 0.5, 1, 5, 10, 20, 50, 100, 200, 500},
	})
	StaleResponsesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "permitmap_stale_responses_total",
		Help: "Total points responses discarded for an outdated request generation",
	})
	DroppedRecordsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "permitmap_dropped_records_total",
		Help: "Total raw records dropped for missing or non-finite coordinates",
	})
	FetchFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "permitmap_fetch_failures_total",
		Help: "Total upstream fetch failures by source",
	}, []string{"source"})
	GeoCacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "permitmap_geo_cache_hits_total",
		Help: "Total geography feed cache hits",
	})
	GeoCacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "permitmap_geo_cache_misses_total",
		Help: "Total geography feed cache misses",
	})
	ActiveSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "permitmap_active_sessions",
		Help: "Number of open map view sessions",
	})
)

func init() {
	prometheus.MustRegister(RebuildsTotal)
	prometheus.MustRegister(RebuildDurationMs)
	prometheus.MustRegister(StaleResponsesTotal)
	prometheus.MustRegister(DroppedRecordsTotal)
	prometheus.MustRegister(FetchFailuresTotal)
	prometheus.MustRegister(GeoCacheHitsTotal)
	prometheus.MustRegister(GeoCacheMissesTotal)
	prometheus.MustRegister(ActiveSessions)
}

// CoordinatorHooks reports coordinator events to the registered collectors
func CoordinatorHooks() aggregation.Hooks {
	return aggregation.Hooks{
		OnRebuild: func(state models.RebuildState, elapsed time.Duration) {
			RebuildsTotal.WithLabelValues(string(state)).Inc()
			RebuildDurationMs.Observe(float64(elapsed.Microseconds()) / 1000)
		},
		OnStale: func(got, current uint64) {
			StaleResponsesTotal.Inc()
		},
		OnDropped: func(n int) {
			DroppedRecordsTotal.Add(float64(n))
		},
	}
}

// FetchFailed counts one failed fetch of source
func FetchFailed(source models.Source) {
	FetchFailuresTotal.WithLabelValues(string(source)).Inc()
}

// Handler exposes the registered collectors for scraping
func Handler() http.Handler { return promhttp.Handler() }

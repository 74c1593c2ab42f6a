package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// TracksProcessed counts per-track outcomes of dispatch runs.
	TracksProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vibecast_tracks_processed_total",
		Help: "The total number of tracks processed by the dispatch pipeline",
	}, []string{"outcome"}) // outcome: queued, failed, skipped

	// Runs counts whole pipeline invocations.
	Runs = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vibecast_runs_total",
		Help: "The total number of dispatch pipeline runs",
	}, []string{"result"}) // result: ok, error

	// TrackDispatchDuration observes how long one track takes end to end.
	TrackDispatchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "vibecast_track_dispatch_seconds",
		Help:    "Duration of single-track dispatch processing.",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
	})
)

// Handler returns the HTTP handler exposing the metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mediashelf",
		Name:      "http_requests_total",
		Help:      "Total HTTP requests by method, route and status code.",
	}, []string{"method", "route", "status"})

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "mediashelf",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration in seconds.",
		Buckets:   []float64{0.005, 0.02, 0.05, 0.1, 0.3, 1, 3, 10, 30, 120},
	}, []string{"method", "route"})

	StreamedBytesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "mediashelf",
		Name:      "streamed_bytes_total",
		Help:      "Total bytes written by the range streaming engine.",
	})

	SubtitleStreamsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mediashelf",
		Name:      "subtitle_streams_total",
		Help:      "Subtitle streams handled by the extraction pipeline, by outcome.",
	}, []string{"status"})

	SubtitleExtractDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "mediashelf",
		Name:      "subtitle_extract_duration_seconds",
		Help:      "Duration of a single ffmpeg subtitle extraction.",
		Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 180},
	})

	ProbeCacheTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mediashelf",
		Name:      "probe_cache_total",
		Help:      "Probe cache lookups by result (hit, miss, error).",
	}, []string{"result"})

	PrewarmRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mediashelf",
		Name:      "prewarm_runs_total",
		Help:      "Background extraction runs triggered by the directory watcher.",
	}, []string{"result"})
)

// Register adds every collector to reg.
func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		StreamedBytesTotal,
		SubtitleStreamsTotal,
		SubtitleExtractDuration,
		ProbeCacheTotal,
		PrewarmRunsTotal,
	)
}

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ghosthub_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ghosthub_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ghosthub_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Transcode orchestrator metrics
var (
	TranscodeJobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ghosthub_transcode_jobs_total",
			Help: "Total number of transcode jobs by outcome",
		},
		[]string{"status"}, // "started", "reused", "ready", "error", "cancelled", "start_failed"
	)

	TranscodeJobsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ghosthub_transcode_jobs_active",
			Help: "Number of transcode jobs currently tracked in the registry",
		},
	)

	PollTicksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ghosthub_poll_ticks_total",
			Help: "Total number of job status poll ticks issued",
		},
	)

	PollLoopsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ghosthub_poll_loops_active",
			Help: "Number of status poll loops currently running",
		},
	)

	PlaybackRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ghosthub_playback_requests_total",
			Help: "Total number of playback URL resolutions",
		},
		[]string{"transcoded"}, // "true" or "false"
	)

	PlaybackFallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ghosthub_playback_fallbacks_total",
			Help: "Playback requests that wanted transcoding but fell back to the original URL",
		},
		[]string{"reason"}, // "unavailable", "disabled", "start_failed", "wait_failed"
	)

	BatchJobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ghosthub_batch_jobs_total",
			Help: "Total number of batch transcode jobs by outcome",
		},
		[]string{"status"}, // "queued", "downloaded", "failed"
	)
)

// Playback cache metrics
var (
	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ghosthub_playback_cache_hits_total",
			Help: "Total number of playback cache hits",
		},
	)

	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ghosthub_playback_cache_misses_total",
			Help: "Total number of playback cache misses",
		},
	)

	CacheEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ghosthub_playback_cache_evictions_total",
			Help: "Total number of playback cache entries evicted",
		},
	)

	CacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ghosthub_playback_cache_entries",
			Help: "Number of entries currently in the playback cache",
		},
	)
)

// Job history database metrics
var (
	DBQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ghosthub_db_queries_total",
			Help: "Total number of job history database queries",
		},
		[]string{"operation", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ghosthub_db_query_duration_seconds",
			Help:    "Job history database query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)
)

// Event hub metrics
var (
	EventClientsConnected = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ghosthub_event_clients_connected",
			Help: "Number of websocket clients subscribed to progress events",
		},
	)

	EventsBroadcastTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ghosthub_events_broadcast_total",
			Help: "Total number of progress events broadcast to websocket clients",
		},
		[]string{"event"},
	)
)

// Application info metric
var (
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ghosthub_app_info",
			Help: "Application information",
		},
		[]string{"version", "commit", "go_version"},
	)
)

// SetAppInfo sets the application info metric
func SetAppInfo(version, commit, goVersion string) {
	AppInfo.WithLabelValues(version, commit, goVersion).Set(1)
}

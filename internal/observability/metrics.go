package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce              sync.Once
	apiRequestsTotal          *prometheus.CounterVec
	apiLatencySeconds         *prometheus.HistogramVec
	apiErrorsTotal            *prometheus.CounterVec
	changeLogsRecordedTotal   *prometheus.CounterVec
	notificationsFanoutTotal  *prometheus.CounterVec
	notificationsPublished    *prometheus.CounterVec
	notificationStreamsActive prometheus.Gauge
	highlightCacheRequests    *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used by the service.
func RegisterMetrics() {
	registerOnce.Do(func() {
		apiRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "railrules_api_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		apiLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "railrules_api_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		apiErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "railrules_api_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		changeLogsRecordedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "railrules_changelogs_recorded_total",
			Help: "Change log entries persisted, by entity type and action.",
		}, []string{"entity_type", "action"})

		notificationsFanoutTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "railrules_notification_fanout_total",
			Help: "Per-recipient notification fan-out outcomes.",
		}, []string{"status"})

		notificationsPublished = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "railrules_notifications_published_total",
			Help: "Notifications delivered to live subscribers, by type.",
		}, []string{"type"})

		notificationStreamsActive = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "railrules_notification_streams_active",
			Help: "Open SSE and websocket notification streams.",
		})

		highlightCacheRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "railrules_highlight_cache_requests_total",
			Help: "Highlight state cache lookups, by result.",
		}, []string{"result"})

		prometheus.MustRegister(
			apiRequestsTotal,
			apiLatencySeconds,
			apiErrorsTotal,
			changeLogsRecordedTotal,
			notificationsFanoutTotal,
			notificationsPublished,
			notificationStreamsActive,
			highlightCacheRequests,
		)
	})
}

// APIRequests exposes the counter for API requests.
func APIRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return apiRequestsTotal
}

// APILatency exposes the latency histogram for API requests.
func APILatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return apiLatencySeconds
}

// APIErrors exposes the counter for API error responses.
func APIErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return apiErrorsTotal
}

// ChangeLogsRecorded exposes the change log counter.
func ChangeLogsRecorded() *prometheus.CounterVec {
	RegisterMetrics()
	return changeLogsRecordedTotal
}

// NotificationFanout exposes the per-recipient fan-out counter.
func NotificationFanout() *prometheus.CounterVec {
	RegisterMetrics()
	return notificationsFanoutTotal
}

// NotificationsPublishedTotal exposes the live delivery counter.
func NotificationsPublishedTotal() *prometheus.CounterVec {
	RegisterMetrics()
	return notificationsPublished
}

// NotificationStreamsActive exposes the open stream gauge.
func NotificationStreamsActive() prometheus.Gauge {
	RegisterMetrics()
	return notificationStreamsActive
}

// HighlightCacheRequests exposes the highlight cache hit/miss counter.
func HighlightCacheRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return highlightCacheRequests
}

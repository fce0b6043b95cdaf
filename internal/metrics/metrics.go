// Package metrics provides Prometheus metrics collection for the sortline service.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestDuration tracks HTTP request duration by method, path, and status code.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status_code"},
	)

	// HTTPRequestTotal tracks total HTTP requests by method, path, and status code.
	HTTPRequestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status_code"},
	)

	// ScansTotal tracks processed scans by outcome (match, extra_item, error, queued).
	ScansTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scans_total",
			Help: "Total number of processed scans by outcome",
		},
		[]string{"outcome"},
	)

	// ScanDuration tracks scan reconciliation duration.
	ScanDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scan_duration_seconds",
			Help:    "Scan reconciliation duration in seconds",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		},
	)

	// UndoOperationsTotal tracks undo operations.
	UndoOperationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "undo_operations_total",
			Help: "Total number of undo operations",
		},
	)

	// PutAsideQueueDepth tracks items currently parked per job.
	PutAsideQueueDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "putaside_queue_depth",
			Help: "Items currently in the put-aside queue",
		},
		[]string{"job_id"},
	)

	// CheckSessionsTotal tracks CheckCount sessions by final status.
	CheckSessionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "check_sessions_total",
			Help: "Total number of check count sessions by status",
		},
		[]string{"status"},
	)

	// CheckDiscrepanciesTotal tracks discrepancies found by type.
	CheckDiscrepanciesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "check_discrepancies_total",
			Help: "Total number of check count discrepancies by type",
		},
		[]string{"type"},
	)

	// BroadcastEventsTotal tracks deltas delivered to observers.
	BroadcastEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "broadcast_events_total",
			Help: "Total number of state deltas published to observers",
		},
		[]string{"type"},
	)

	// BroadcastDroppedTotal tracks deltas dropped for slow subscribers.
	BroadcastDroppedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "broadcast_dropped_total",
			Help: "Total number of deltas dropped because a subscriber was too slow",
		},
	)

	// CacheOperationsTotal tracks snapshot cache operations by result.
	CacheOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_operations_total",
			Help: "Total number of cache operations by type and result",
		},
		[]string{"operation", "result"},
	)

	// BroadcastSubscribers tracks current observer count per job.
	BroadcastSubscribers = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "broadcast_subscribers",
			Help: "Current number of subscribers per job",
		},
		[]string{"job_id"},
	)
)

// PrometheusMiddleware returns a Gin middleware that collects HTTP metrics.
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		c.Next()

		duration := time.Since(start).Seconds()
		statusCode := strconv.Itoa(c.Writer.Status())
		method := c.Request.Method

		HTTPRequestDuration.WithLabelValues(method, path, statusCode).Observe(duration)
		HTTPRequestTotal.WithLabelValues(method, path, statusCode).Inc()
	}
}

// RecordScan records metrics for one processed scan.
func RecordScan(duration time.Duration, outcome string) {
	ScanDuration.Observe(duration.Seconds())
	ScansTotal.WithLabelValues(outcome).Inc()
}

// RecordUndo records one undo operation.
func RecordUndo() {
	UndoOperationsTotal.Inc()
}

// RecordCheckSession records a check session reaching a final status.
func RecordCheckSession(status string) {
	CheckSessionsTotal.WithLabelValues(status).Inc()
}

// RecordCheckDiscrepancy records one discrepancy found during a check pass.
func RecordCheckDiscrepancy(discrepancyType string) {
	CheckDiscrepanciesTotal.WithLabelValues(discrepancyType).Inc()
}

// RecordCacheOperation records one cache operation outcome.
func RecordCacheOperation(operation, result string) {
	CacheOperationsTotal.WithLabelValues(operation, result).Inc()
}

// RecordBroadcast records one delta published to observers.
func RecordBroadcast(eventType string) {
	BroadcastEventsTotal.WithLabelValues(eventType).Inc()
}

// RecordBroadcastDrop records one delta dropped for a slow subscriber.
func RecordBroadcastDrop() {
	BroadcastDroppedTotal.Inc()
}

// SetPutAsideDepth updates the queue depth gauge for a job.
func SetPutAsideDepth(jobID string, depth int) {
	PutAsideQueueDepth.WithLabelValues(jobID).Set(float64(depth))
}

// SetSubscriberCount updates the observer gauge for a job.
func SetSubscriberCount(jobID string, count int) {
	BroadcastSubscribers.WithLabelValues(jobID).Set(float64(count))
}

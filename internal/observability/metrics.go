// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Dedup metrics
	SpinsSeen      prometheus.Counter
	SpinsAccepted  prometheus.Counter
	SpinsRejected  *prometheus.CounterVec
	MalformedInput prometheus.Counter
	TablesTracked  prometheus.Gauge
	Signatures     *prometheus.GaugeVec

	// Strategy metrics
	Transitions *prometheus.CounterVec
	Outcomes    *prometheus.CounterVec

	// Polling metrics
	PollLatency  *prometheus.HistogramVec
	PollErrors   *prometheus.CounterVec
	WSReconnects prometheus.Counter

	// Sink and stats metrics
	SinkErrors        *prometheus.CounterVec
	StatsQueueDropped prometheus.Counter
	StatsFlushes      *prometheus.CounterVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulPoll prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "roulette_tracker"
	}

	return &Metrics{
		// Dedup metrics
		SpinsSeen: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dedup",
			Name:      "candidates_seen_total",
			Help:      "Total number of raw values received from sources",
		}),
		SpinsAccepted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dedup",
			Name:      "spins_accepted_total",
			Help:      "Total number of values accepted as new spins",
		}),
		SpinsRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dedup",
			Name:      "spins_rejected_total",
			Help:      "Total number of duplicate values suppressed by check",
		}, []string{"check"}),
		MalformedInput: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dedup",
			Name:      "malformed_values_total",
			Help:      "Total number of non-numeric or out-of-range values skipped",
		}),
		TablesTracked: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "dedup",
			Name:      "tables_tracked",
			Help:      "Number of tables held in memory",
		}),
		Signatures: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "dedup",
			Name:      "signatures_remembered",
			Help:      "Spin signatures still inside the update interval, per table",
		}, []string{"table"}),

		// Strategy metrics
		Transitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "strategy",
			Name:      "transitions_total",
			Help:      "Total number of strategy transitions",
		}, []string{"from", "to"}),
		Outcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "strategy",
			Name:      "outcomes_total",
			Help:      "Total number of strategy wins and losses",
		}, []string{"outcome"}),

		// Polling metrics
		PollLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "poll_latency_seconds",
			Help:      "Source poll latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"source"}),
		PollErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "poll_errors_total",
			Help:      "Total number of failed source polls",
		}, []string{"source"}),
		WSReconnects: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "ws_reconnects_total",
			Help:      "Total number of WebSocket reconnect attempts",
		}),

		// Sink and stats metrics
		SinkErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sink",
			Name:      "errors_total",
			Help:      "Total number of event sink failures by event type",
		}, []string{"event"}),
		StatsQueueDropped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stats",
			Name:      "queue_dropped_total",
			Help:      "Total number of events dropped because the stats queue was full",
		}),
		StatsFlushes: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stats",
			Name:      "flushes_total",
			Help:      "Total number of stats snapshot flushes by status",
		}, []string{"status"}),

		// Database metrics
		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		// Health metrics
		LastSuccessfulPoll: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_poll_timestamp",
			Help:      "Unix timestamp of last successful poll",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordSpinSeen increments the raw candidates counter.
func RecordSpinSeen() {
	DefaultMetrics.SpinsSeen.Inc()
}

// RecordSpinAccepted increments the accepted spins counter.
func RecordSpinAccepted() {
	DefaultMetrics.SpinsAccepted.Inc()
}

// RecordSpinRejected records a suppressed duplicate by the check that caught it.
func RecordSpinRejected(check string) {
	DefaultMetrics.SpinsRejected.WithLabelValues(check).Inc()
}

// RecordMalformed increments the malformed values counter.
func RecordMalformed() {
	DefaultMetrics.MalformedInput.Inc()
}

// SetTablesTracked updates the tracked tables gauge.
func SetTablesTracked(n int) {
	DefaultMetrics.TablesTracked.Set(float64(n))
}

// SetSignaturesRemembered updates the remembered signatures gauge for a table.
func SetSignaturesRemembered(table string, n int) {
	DefaultMetrics.Signatures.WithLabelValues(table).Set(float64(n))
}

// RecordTransition records a strategy state change.
func RecordTransition(from, to string) {
	DefaultMetrics.Transitions.WithLabelValues(from, to).Inc()
}

// RecordOutcome records a strategy win or loss.
func RecordOutcome(outcome string) {
	DefaultMetrics.Outcomes.WithLabelValues(outcome).Inc()
}

// RecordPoll records a source poll.
func RecordPoll(source string, seconds float64, err error) {
	DefaultMetrics.PollLatency.WithLabelValues(source).Observe(seconds)
	if err != nil {
		DefaultMetrics.PollErrors.WithLabelValues(source).Inc()
		return
	}
	DefaultMetrics.LastSuccessfulPoll.SetToCurrentTime()
}

// RecordWSReconnect increments the reconnect counter.
func RecordWSReconnect() {
	DefaultMetrics.WSReconnects.Inc()
}

// RecordSinkError records an event sink failure.
func RecordSinkError(event string) {
	DefaultMetrics.SinkErrors.WithLabelValues(event).Inc()
}

// RecordStatsDropped increments the dropped stats events counter.
func RecordStatsDropped() {
	DefaultMetrics.StatsQueueDropped.Inc()
}

// RecordStatsFlush records a stats flush.
func RecordStatsFlush(err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	DefaultMetrics.StatsFlushes.WithLabelValues(status).Inc()
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

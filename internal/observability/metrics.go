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
	// Ingestion metrics
	TokensCreated    prometheus.Counter
	TradesObserved   prometheus.Counter
	TokensInserted   prometheus.Counter
	MigrationsSeen   prometheus.Counter
	EventErrors      *prometheus.CounterVec
	PendingTokens    prometheus.Gauge
	HighestSlotSeen  prometheus.Gauge
	WSMessageLatency prometheus.Histogram

	// Analytics metrics
	AnalyticsQueries  *prometheus.CounterVec
	AnalyticsDuration *prometheus.HistogramVec
	GroupsComputed    prometheus.Counter
	PlansSimulated    prometheus.Counter

	// Reporting metrics
	ReportsGenerated *prometheus.CounterVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulIngestion prometheus.Gauge
	LastSuccessfulQuery     prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "migdbquery"
	}

	return &Metrics{
		// Ingestion metrics
		TokensCreated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "tokens_created_total",
			Help:      "Total number of token create events observed",
		}),
		TradesObserved: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "trades_observed_total",
			Help:      "Total number of trade events observed",
		}),
		TokensInserted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "tokens_inserted_total",
			Help:      "Total number of token records inserted into storage",
		}),
		MigrationsSeen: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "migrations_total",
			Help:      "Total number of token migrations observed",
		}),
		EventErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "event_errors_total",
			Help:      "Total number of event processing errors by event kind",
		}, []string{"event_kind"}),
		PendingTokens: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "pending_tokens",
			Help:      "Current number of tokens awaiting bundle completion",
		}),
		HighestSlotSeen: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "highest_slot_seen",
			Help:      "Highest Solana slot number seen",
		}),
		WSMessageLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "ws_message_latency_seconds",
			Help:      "WebSocket message processing latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}),

		// Analytics metrics
		AnalyticsQueries: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analytics",
			Name:      "queries_total",
			Help:      "Total number of analytics queries by operation and status",
		}, []string{"operation", "status"}),
		AnalyticsDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "analytics",
			Name:      "query_duration_seconds",
			Help:      "Analytics query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		GroupsComputed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analytics",
			Name:      "groups_computed_total",
			Help:      "Total number of groups computed",
		}),
		PlansSimulated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analytics",
			Name:      "threshold_plans_simulated_total",
			Help:      "Total number of threshold plans simulated",
		}),

		// Reporting metrics
		ReportsGenerated: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reporting",
			Name:      "reports_generated_total",
			Help:      "Total number of reports generated by format",
		}, []string{"format"}),

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
		LastSuccessfulIngestion: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_ingestion_timestamp",
			Help:      "Unix timestamp of last successful record insertion",
		}),
		LastSuccessfulQuery: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_query_timestamp",
			Help:      "Unix timestamp of last successful analytics query",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordTokenCreated increments the token create events counter.
func RecordTokenCreated() {
	DefaultMetrics.TokensCreated.Inc()
}

// RecordTradeObserved increments the trade events counter.
func RecordTradeObserved() {
	DefaultMetrics.TradesObserved.Inc()
}

// RecordTokenInserted records a successful record insertion.
func RecordTokenInserted() {
	DefaultMetrics.TokensInserted.Inc()
	DefaultMetrics.LastSuccessfulIngestion.SetToCurrentTime()
}

// RecordMigration increments the migrations counter.
func RecordMigration() {
	DefaultMetrics.MigrationsSeen.Inc()
}

// RecordEventError records an event processing error.
func RecordEventError(eventKind string) {
	DefaultMetrics.EventErrors.WithLabelValues(eventKind).Inc()
}

// UpdatePendingTokens updates the pending token gauge.
func UpdatePendingTokens(n int) {
	DefaultMetrics.PendingTokens.Set(float64(n))
}

// UpdateHighestSlot updates the highest slot seen gauge.
func UpdateHighestSlot(slot int64) {
	DefaultMetrics.HighestSlotSeen.Set(float64(slot))
}

// RecordAnalyticsQuery records an analytics query outcome.
func RecordAnalyticsQuery(operation, status string, seconds float64) {
	DefaultMetrics.AnalyticsQueries.WithLabelValues(operation, status).Inc()
	DefaultMetrics.AnalyticsDuration.WithLabelValues(operation).Observe(seconds)
	if status == "ok" {
		DefaultMetrics.LastSuccessfulQuery.SetToCurrentTime()
	}
}

// RecordGroupsComputed adds to the groups computed counter.
func RecordGroupsComputed(n int) {
	DefaultMetrics.GroupsComputed.Add(float64(n))
}

// RecordPlansSimulated adds to the threshold plans counter.
func RecordPlansSimulated(n int) {
	DefaultMetrics.PlansSimulated.Add(float64(n))
}

// RecordReportGenerated increments the reports counter for a format.
func RecordReportGenerated(format string) {
	DefaultMetrics.ReportsGenerated.WithLabelValues(format).Inc()
}

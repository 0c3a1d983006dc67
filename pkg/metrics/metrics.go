package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector provides application metrics collection
type Collector struct {
	registry prometheus.Gatherer

	// API Metrics
	APIRequestsTotal   *prometheus.CounterVec
	APIRequestDuration *prometheus.HistogramVec
	APIErrorsTotal     *prometheus.CounterVec

	// Report Metrics
	RecordsLoadedTotal  *prometheus.CounterVec
	RecordsDroppedTotal *prometheus.CounterVec
	RecordsPrepared     prometheus.Gauge
	SummaryRows         *prometheus.GaugeVec
	StageDuration       *prometheus.HistogramVec
	ReportErrorsTotal   *prometheus.CounterVec
	LastRunTimestamp    prometheus.Gauge

	// Database Metrics
	DBQueryDuration  *prometheus.HistogramVec
	DBConnectionPool *prometheus.GaugeVec
	DBErrorsTotal    *prometheus.CounterVec
	PublishedRows    prometheus.Counter
}

// NewCollector creates a collector registered on a fresh registry.
// Use NewCollectorWith to register on prometheus.DefaultRegisterer.
func NewCollector(namespace string) *Collector {
	reg := prometheus.NewRegistry()
	return NewCollectorWith(namespace, reg, reg)
}

// NewCollectorWith creates a collector registered on reg and gathered from g
func NewCollectorWith(namespace string, reg prometheus.Registerer, g prometheus.Gatherer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		registry: g,

		APIRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "api_requests_total",
				Help:      "Total number of API requests by endpoint, method, and status",
			},
			[]string{"endpoint", "method", "status"},
		),

		APIRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "api_request_duration_seconds",
				Help:      "API request duration in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.02, 0.05, 0.1, 0.2, 0.5, 1.0, 2.0, 5.0},
			},
			[]string{"endpoint"},
		),

		APIErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "api_errors_total",
				Help:      "Total number of API errors by type",
			},
			[]string{"error_type", "endpoint"},
		),

		RecordsLoadedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "records_loaded_total",
				Help:      "Rows read from the workbook by sheet",
			},
			[]string{"sheet"},
		),

		RecordsDroppedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "records_dropped_total",
				Help:      "Rows dropped during preparation by reason",
			},
			[]string{"reason"}, // "unmapped", "duplicate"
		),

		RecordsPrepared: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "records_prepared",
				Help:      "Climb records left after join and deduplication in the last run",
			},
		),

		SummaryRows: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "summary_rows",
				Help:      "Summary rows produced in the last run by activity type",
			},
			[]string{"activity_type"},
		),

		StageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "stage_duration_seconds",
				Help:      "Duration of report stages in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
			},
			[]string{"stage"},
		),

		ReportErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "report_errors_total",
				Help:      "Total number of fatal report errors by type",
			},
			[]string{"error_type"},
		),

		LastRunTimestamp: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_run_timestamp_seconds",
				Help:      "Unix time of the last completed report run",
			},
		),

		DBQueryDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "db_query_duration_seconds",
				Help:      "Database query duration in seconds by query type",
				Buckets:   []float64{0.001, 0.002, 0.005, 0.01, 0.02, 0.05, 0.1, 0.2, 0.5},
			},
			[]string{"query_type"},
		),

		DBConnectionPool: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "db_connection_pool",
				Help:      "Database connection pool statistics",
			},
			[]string{"state"}, // "in_use", "idle", "total"
		),

		DBErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "db_errors_total",
				Help:      "Total number of database errors by type",
			},
			[]string{"error_type"},
		),

		PublishedRows: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "published_rows_total",
				Help:      "Summary rows upserted into the statistics store",
			},
		),
	}
}

// Timer provides timing functionality for operations
type Timer struct {
	start    time.Time
	observer prometheus.Observer
}

// NewTimer creates a new timer
func (c *Collector) NewTimer(histogram prometheus.Observer) *Timer {
	return &Timer{
		start:    time.Now(),
		observer: histogram,
	}
}

// ObserveDuration records the elapsed time since timer creation
func (t *Timer) ObserveDuration() time.Duration {
	duration := time.Since(t.start)
	if t.observer != nil {
		t.observer.Observe(duration.Seconds())
	}
	return duration
}

// StageTimer starts a timer on the stage duration histogram
func (c *Collector) StageTimer(stage string) *Timer {
	return c.NewTimer(c.StageDuration.WithLabelValues(stage))
}

// RecordAPIRequest increments API request counter
func (c *Collector) RecordAPIRequest(endpoint, method, status string) {
	c.APIRequestsTotal.WithLabelValues(endpoint, method, status).Inc()
}

// RecordAPIError increments API error counter
func (c *Collector) RecordAPIError(errorType, endpoint string) {
	c.APIErrorsTotal.WithLabelValues(errorType, endpoint).Inc()
}

// RecordReportError increments the fatal report error counter
func (c *Collector) RecordReportError(errorType string) {
	c.ReportErrorsTotal.WithLabelValues(errorType).Inc()
}

// RecordDBError increments database error counter
func (c *Collector) RecordDBError(errorType string) {
	c.DBErrorsTotal.WithLabelValues(errorType).Inc()
}

// UpdateDBConnectionPool updates database connection pool metrics
func (c *Collector) UpdateDBConnectionPool(inUse, idle, total int) {
	c.DBConnectionPool.WithLabelValues("in_use").Set(float64(inUse))
	c.DBConnectionPool.WithLabelValues("idle").Set(float64(idle))
	c.DBConnectionPool.WithLabelValues("total").Set(float64(total))
}

// Gatherer exposes the registry the collector was registered on
func (c *Collector) Gatherer() prometheus.Gatherer {
	return c.registry
}

// WriteTextfile dumps all gathered metrics in the text exposition format,
// for pickup by the node_exporter textfile collector
func (c *Collector) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, c.registry)
}

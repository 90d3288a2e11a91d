package prometheus

import (
	"fmt"
	"time"
)

// AppMetrics holds all application metrics.
type AppMetrics struct {
	// HTTP layer
	HTTPRequestsTotal   CounterVec
	HTTPRequestDuration HistogramVec
	HTTPActiveRequests  GaugeVec

	// Migration runs
	RunsTotal           CounterVec
	RunDuration         HistogramVec
	RowsProcessedTotal  CounterVec
	DuplicatesFound     CounterVec
	ActiveRuns          GaugeVec

	// Deduplication
	DedupComparisonsTotal CounterVec
	DedupDuration         HistogramVec
	DedupGroupSize        HistogramVec

	// Profiling and cleaning
	ProfilesTotal    CounterVec
	ProfileDuration  HistogramVec
	CellsCleanedTotal CounterVec

	// Reporting
	ReportsTotal   CounterVec
	ReportDuration HistogramVec

	// Worker / queue
	JobsConsumedTotal CounterVec
	JobRetriesTotal   CounterVec
	JobQueueDepth     GaugeVec

	// Infrastructure
	DBQueryDuration   HistogramVec
	CacheHitsTotal    CounterVec
	CacheMissesTotal  CounterVec
	StorageOpDuration HistogramVec

	// System health
	HealthCheckStatus GaugeVec
	ErrorsTotal       CounterVec
}

// Default buckets
var (
	DefaultHTTPDurationBuckets = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
	DefaultRunDurationBuckets  = []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800, 3600}
	DefaultDBDurationBuckets   = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 5}
	DefaultGroupSizeBuckets    = []float64{2, 3, 5, 10, 25, 50, 100}
)

// NewAppMetrics registers all metrics and returns the AppMetrics struct.
func NewAppMetrics(collector MetricsCollector) *AppMetrics {
	m := &AppMetrics{}

	// HTTP
	m.HTTPRequestsTotal = collector.RegisterCounter("http_requests_total", "Total HTTP requests", "method", "path", "status_code")
	m.HTTPRequestDuration = collector.RegisterHistogram("http_request_duration_seconds", "HTTP request duration", DefaultHTTPDurationBuckets, "method", "path")
	m.HTTPActiveRequests = collector.RegisterGauge("http_active_requests", "Active HTTP requests", "method", "path")

	// Migration runs
	m.RunsTotal = collector.RegisterCounter("migration_runs_total", "Migration runs", "mode", "status")
	m.RunDuration = collector.RegisterHistogram("migration_run_duration_seconds", "Migration run duration", DefaultRunDurationBuckets, "mode")
	m.RowsProcessedTotal = collector.RegisterCounter("migration_rows_total", "Rows processed by migrations", "direction")
	m.DuplicatesFound = collector.RegisterCounter("migration_duplicates_total", "Duplicate rows detected", "kind")
	m.ActiveRuns = collector.RegisterGauge("migration_active_runs", "Currently executing migration runs")

	// Deduplication
	m.DedupComparisonsTotal = collector.RegisterCounter("dedup_comparisons_total", "Pairwise similarity comparisons", "metric")
	m.DedupDuration = collector.RegisterHistogram("dedup_duration_seconds", "Duplicate detection duration", DefaultRunDurationBuckets, "kind")
	m.DedupGroupSize = collector.RegisterHistogram("dedup_group_size", "Size of detected duplicate groups", DefaultGroupSizeBuckets, "action")

	// Profiling and cleaning
	m.ProfilesTotal = collector.RegisterCounter("profiles_total", "Dataset profiles generated", "status")
	m.ProfileDuration = collector.RegisterHistogram("profile_duration_seconds", "Dataset profiling duration", DefaultHTTPDurationBuckets, "columns")
	m.CellsCleanedTotal = collector.RegisterCounter("cells_cleaned_total", "Cells modified by cleaning", "strategy")

	// Reporting
	m.ReportsTotal = collector.RegisterCounter("reports_total", "Reports generated", "format", "status")
	m.ReportDuration = collector.RegisterHistogram("report_duration_seconds", "Report generation duration", DefaultHTTPDurationBuckets, "format")

	// Worker
	m.JobsConsumedTotal = collector.RegisterCounter("jobs_consumed_total", "Migration jobs consumed", "topic", "status")
	m.JobRetriesTotal = collector.RegisterCounter("job_retries_total", "Migration job retries", "topic", "reason")
	m.JobQueueDepth = collector.RegisterGauge("job_queue_depth", "Pending migration jobs", "topic")

	// Infrastructure
	m.DBQueryDuration = collector.RegisterHistogram("db_query_duration_seconds", "Database query duration", DefaultDBDurationBuckets, "operation")
	m.CacheHitsTotal = collector.RegisterCounter("cache_hits_total", "Cache hits", "cache")
	m.CacheMissesTotal = collector.RegisterCounter("cache_misses_total", "Cache misses", "cache")
	m.StorageOpDuration = collector.RegisterHistogram("storage_op_duration_seconds", "Object storage operation duration", DefaultHTTPDurationBuckets, "operation", "bucket")

	// System health
	m.HealthCheckStatus = collector.RegisterGauge("health_check_status", "Health check status (1=up, 0=down)", "component")
	m.ErrorsTotal = collector.RegisterCounter("errors_total", "Total errors", "component", "code")

	return m
}

// Helpers

func RecordHTTPRequest(metrics *AppMetrics, method, path string, statusCode int, duration time.Duration) {
	status := fmt.Sprintf("%d", statusCode)
	metrics.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	metrics.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

func RecordRun(metrics *AppMetrics, mode, status string, duration time.Duration, sourceRows, duplicates int64) {
	metrics.RunsTotal.WithLabelValues(mode, status).Inc()
	metrics.RunDuration.WithLabelValues(mode).Observe(duration.Seconds())
	metrics.RowsProcessedTotal.WithLabelValues("source").Add(float64(sourceRows))
	metrics.DuplicatesFound.WithLabelValues("target").Add(float64(duplicates))
}

func RecordDBQuery(metrics *AppMetrics, operation string, duration time.Duration, err error) {
	metrics.DBQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if err != nil {
		metrics.ErrorsTotal.WithLabelValues("postgres", "query_error").Inc()
	}
}

func RecordCacheAccess(metrics *AppMetrics, cache string, hit bool) {
	if hit {
		metrics.CacheHitsTotal.WithLabelValues(cache).Inc()
	} else {
		metrics.CacheMissesTotal.WithLabelValues(cache).Inc()
	}
}

func RecordError(metrics *AppMetrics, component, code string) {
	metrics.ErrorsTotal.WithLabelValues(component, code).Inc()
}

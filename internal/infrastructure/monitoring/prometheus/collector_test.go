package prometheus

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/datamigrate/internal/infrastructure/monitoring/logging"
)

func newTestCollector(t *testing.T) MetricsCollector {
	t.Helper()
	c, err := NewMetricsCollector(CollectorConfig{
		Namespace: "test",
		Subsystem: "unit",
	}, logging.NewNopLogger())
	require.NoError(t, err)
	return c
}

func scrapeMetrics(t *testing.T, collector MetricsCollector) string {
	t.Helper()
	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	collector.Handler().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	return w.Body.String()
}

func TestNewMetricsCollector_EmptyNamespaceFails(t *testing.T) {
	_, err := NewMetricsCollector(CollectorConfig{Subsystem: "unit"}, logging.NewNopLogger())
	assert.Error(t, err)
}

func TestRegisterCounter_IncrementAndScrape(t *testing.T) {
	c := newTestCollector(t)

	vec := c.RegisterCounter("runs_total", "runs", "status")
	vec.WithLabelValues("completed").Inc()
	vec.WithLabelValues("completed").Add(2)

	out := scrapeMetrics(t, c)
	assert.Contains(t, out, "test_unit_runs_total")
	assert.Contains(t, out, `status="completed"`)
	assert.Contains(t, out, "3")
}

func TestRegisterGauge_SetValue(t *testing.T) {
	c := newTestCollector(t)

	vec := c.RegisterGauge("active_runs", "active runs")
	vec.WithLabelValues().Set(5)

	out := scrapeMetrics(t, c)
	assert.Contains(t, out, "test_unit_active_runs 5")
}

func TestRegisterHistogram_Observations(t *testing.T) {
	c := newTestCollector(t)

	vec := c.RegisterHistogram("run_duration_seconds", "duration", []float64{1, 10}, "mode")
	vec.WithLabelValues("skip").Observe(0.5)
	vec.WithLabelValues("skip").Observe(5)

	out := scrapeMetrics(t, c)
	assert.Contains(t, out, "test_unit_run_duration_seconds_bucket")
	assert.Contains(t, out, "test_unit_run_duration_seconds_count")
}

func TestRegister_DuplicateNameReturnsExisting(t *testing.T) {
	c := newTestCollector(t)

	first := c.RegisterCounter("dupe_total", "dupe", "k")
	second := c.RegisterCounter("dupe_total", "dupe", "k")

	first.WithLabelValues("a").Inc()
	second.WithLabelValues("a").Inc()

	out := scrapeMetrics(t, c)
	assert.Contains(t, out, "test_unit_dupe_total")
	assert.Contains(t, out, "2")
}

func TestRegister_TypeMismatchReturnsNoop(t *testing.T) {
	c := newTestCollector(t)

	c.RegisterCounter("mixed_total", "counter", "k")
	gauge := c.RegisterGauge("mixed_total", "gauge", "k")

	// Must not panic even though the name is already taken by a counter.
	gauge.WithLabelValues("a").Set(1)
}

func TestNewAppMetrics_RegistersEverything(t *testing.T) {
	c := newTestCollector(t)
	m := NewAppMetrics(c)

	RecordHTTPRequest(m, "GET", "/api/v1/runs", 200, 25*time.Millisecond)
	RecordRun(m, "skip", "completed", 3*time.Second, 1007, 35)
	RecordCacheAccess(m, "run_status", true)
	RecordCacheAccess(m, "run_status", false)
	RecordError(m, "worker", "MIG_003")
	RecordDBQuery(m, "insert_run", 2*time.Millisecond, nil)

	out := scrapeMetrics(t, c)
	assert.Contains(t, out, "test_unit_http_requests_total")
	assert.Contains(t, out, "test_unit_migration_runs_total")
	assert.Contains(t, out, "test_unit_migration_rows_total")
	assert.Contains(t, out, "test_unit_cache_hits_total")
	assert.Contains(t, out, "test_unit_errors_total")
}

func TestTimer_ObserveDuration(t *testing.T) {
	c := newTestCollector(t)
	vec := c.RegisterHistogram("timed_seconds", "timed", nil, "op")

	timer := NewTimer(vec.WithLabelValues("load"))
	time.Sleep(time.Millisecond)
	timer.ObserveDuration()

	out := scrapeMetrics(t, c)
	assert.Contains(t, out, "test_unit_timed_seconds_count")

	// nil histogram must not panic
	(&Timer{}).ObserveDuration()
}

package metrics_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retracehq/retrace/blob"
	"github.com/retracehq/retrace/metrics"
)

func scrape(t *testing.T, c *metrics.Collector) string {
	t.Helper()
	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func TestNewCollector(t *testing.T) {
	t.Parallel()

	collector := metrics.NewCollector()
	require.NotNil(t, collector)

	body := scrape(t, collector)
	assert.Contains(t, body, "go_goroutines")
	assert.Contains(t, body, "retrace_ingest_bytes_total 0")
}

func TestCollector_ObserveRequest(t *testing.T) {
	t.Parallel()

	collector := metrics.NewCollector()
	collector.ObserveRequest("/api/sessions", http.MethodGet, http.StatusOK, 25*time.Millisecond)
	collector.ObserveRequest("/api/sessions", http.MethodGet, http.StatusOK, 30*time.Millisecond)
	collector.ObserveRequest("/api/sessions", http.MethodPost, http.StatusCreated, 5*time.Millisecond)

	body := scrape(t, collector)
	assert.Contains(t, body, `retrace_http_requests_total{method="GET",route="/api/sessions",status="200"} 2`)
	assert.Contains(t, body, `retrace_http_requests_total{method="POST",route="/api/sessions",status="201"} 1`)
	assert.Contains(t, body, `retrace_http_request_duration_seconds_count{method="GET",route="/api/sessions"} 2`)
}

func TestCollector_ObserveOp(t *testing.T) {
	t.Parallel()

	collector := metrics.NewCollector()

	// The store consumes the collector through its stats interface.
	var stats blob.Stats = collector
	stats.ObserveOp("put", blob.ModeMemory, nil, time.Millisecond)
	stats.ObserveOp("read", blob.ModeRemote, errors.New("boom"), time.Millisecond)

	body := scrape(t, collector)
	assert.Contains(t, body, `retrace_blob_ops_total{mode="memory",op="put",outcome="ok"} 1`)
	assert.Contains(t, body, `retrace_blob_ops_total{mode="remote",op="read",outcome="error"} 1`)
	assert.Contains(t, body, `retrace_blob_op_duration_seconds_count{mode="memory",op="put"} 1`)
}

func TestCollector_AddIngestBytes(t *testing.T) {
	t.Parallel()

	collector := metrics.NewCollector()
	collector.AddIngestBytes(100)
	collector.AddIngestBytes(24)

	body := scrape(t, collector)
	assert.Contains(t, body, "retrace_ingest_bytes_total 124")
}

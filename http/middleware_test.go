package http_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	retracehttp "github.com/retracehq/retrace/http"
	"github.com/retracehq/retrace/metrics"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
}

func TestBearerAuth_PublicAccess(t *testing.T) {
	// Empty token = public access
	wrapped := retracehttp.BearerAuth("")(okHandler())

	req := httptest.NewRequest("POST", "/api/sessions", nil)
	rec := httptest.NewRecorder()

	wrapped.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestBearerAuth_ValidToken(t *testing.T) {
	wrapped := retracehttp.BearerAuth("ingest-key")(okHandler())

	req := httptest.NewRequest("POST", "/api/sessions", nil)
	req.Header.Set("Authorization", "Bearer ingest-key")
	rec := httptest.NewRecorder()

	wrapped.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestBearerAuth_MissingToken(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	})
	wrapped := retracehttp.BearerAuth("ingest-key")(handler)

	req := httptest.NewRequest("POST", "/api/sessions", nil)
	rec := httptest.NewRecorder()

	wrapped.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "unauthorized")
}

func TestBearerAuth_WrongToken(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	})
	wrapped := retracehttp.BearerAuth("ingest-key")(handler)

	req := httptest.NewRequest("POST", "/api/sessions", nil)
	req.Header.Set("Authorization", "Bearer wrong-key")
	rec := httptest.NewRecorder()

	wrapped.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestBearerAuth_MalformedHeader(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	})
	wrapped := retracehttp.BearerAuth("ingest-key")(handler)

	req := httptest.NewRequest("POST", "/api/sessions", nil)
	req.Header.Set("Authorization", "ingest-key")
	rec := httptest.NewRecorder()

	wrapped.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func adminHash(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func TestBasicAuth_NotConfigured(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	})
	wrapped := retracehttp.BasicAuth("", "")(handler)

	req := httptest.NewRequest("GET", "/api/blobs", nil)
	rec := httptest.NewRecorder()

	wrapped.ServeHTTP(rec, req)

	// Unconfigured admin routes stay invisible
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBasicAuth_ValidCredentials(t *testing.T) {
	wrapped := retracehttp.BasicAuth("admin", adminHash(t, "s3cret"))(okHandler())

	req := httptest.NewRequest("GET", "/api/blobs", nil)
	req.SetBasicAuth("admin", "s3cret")
	rec := httptest.NewRecorder()

	wrapped.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestBasicAuth_NoCredentials(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	})
	wrapped := retracehttp.BasicAuth("admin", adminHash(t, "s3cret"))(handler)

	req := httptest.NewRequest("GET", "/api/blobs", nil)
	rec := httptest.NewRecorder()

	wrapped.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Header().Get("WWW-Authenticate"), "Basic")
}

func TestBasicAuth_WrongPassword(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	})
	wrapped := retracehttp.BasicAuth("admin", adminHash(t, "s3cret"))(handler)

	req := httptest.NewRequest("GET", "/api/blobs", nil)
	req.SetBasicAuth("admin", "nope")
	rec := httptest.NewRecorder()

	wrapped.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestBasicAuth_WrongUsername(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	})
	wrapped := retracehttp.BasicAuth("admin", adminHash(t, "s3cret"))(handler)

	req := httptest.NewRequest("GET", "/api/blobs", nil)
	req.SetBasicAuth("root", "s3cret")
	rec := httptest.NewRecorder()

	wrapped.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMetricsMiddleware_RecordsRequests(t *testing.T) {
	collector := metrics.NewCollector()
	wrapped := retracehttp.Metrics(collector)(okHandler())

	req := httptest.NewRequest("GET", "/api/health", nil)
	rec := httptest.NewRecorder()

	wrapped.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	scrape := httptest.NewRecorder()
	collector.Handler().ServeHTTP(scrape, httptest.NewRequest("GET", "/metrics", nil))
	// Outside a chi router the raw path is the route label
	assert.Contains(t, scrape.Body.String(), `retrace_http_requests_total{method="GET",route="/api/health",status="200"} 1`)
}

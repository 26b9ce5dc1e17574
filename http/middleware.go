package http

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/crypto/bcrypt"

	"github.com/retracehq/retrace/metrics"
)

// BearerAuth creates middleware that enforces a static bearer token,
// compared in constant time. Pass an empty token to disable the check
// (public access).
func BearerAuth(token string) func(http.Handler) http.Handler {
	if token == "" {
		return func(next http.Handler) http.Handler {
			return next
		}
	}

	expected := []byte(token)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || subtle.ConstantTimeCompare([]byte(got), expected) != 1 {
				WriteError(w, http.StatusUnauthorized, "unauthorized", "Missing or invalid bearer token")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// BasicAuth creates middleware that enforces HTTP basic auth against a
// bcrypt password hash. With no credentials configured the gated routes
// answer 404, so they stay invisible until explicitly set up.
func BasicAuth(username, passwordHash string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if username == "" || passwordHash == "" {
				WriteError(w, http.StatusNotFound, "not_found", "Resource not found")
				return
			}

			user, pass, ok := r.BasicAuth()
			if !ok ||
				subtle.ConstantTimeCompare([]byte(user), []byte(username)) != 1 ||
				bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(pass)) != nil {
				w.Header().Set("WWW-Authenticate", `Basic realm="retrace admin"`)
				WriteError(w, http.StatusUnauthorized, "unauthorized", "Unauthorized")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// Metrics creates middleware recording one observation per request. The
// route label is the matched chi pattern, so /api/sessions/{id} stays one
// series no matter the id.
func Metrics(collector *metrics.Collector) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			route := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			collector.ObserveRequest(route, r.Method, status, time.Since(start))
		})
	}
}

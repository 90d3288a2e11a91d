package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/turtacn/datamigrate/internal/infrastructure/monitoring/prometheus"
)

// Metrics records request counts and latencies per route.  The chi route
// pattern is used as the path label so /api/v1/runs/{runID} stays one
// series regardless of the run ID.
func Metrics(metrics *prometheus.AppMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if metrics == nil {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			wrapped := newWrappedResponseWriter(w)
			next.ServeHTTP(wrapped, r)

			path := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					path = pattern
				}
			}
			prometheus.RecordHTTPRequest(metrics, r.Method, path, wrapped.statusCode, time.Since(start))
		})
	}
}

// Package http assembles the migration API's route tree and server.
package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/turtacn/datamigrate/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/datamigrate/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/datamigrate/internal/interfaces/http/handlers"
	"github.com/turtacn/datamigrate/internal/interfaces/http/middleware"
)

// RouterConfig aggregates the handlers and middleware that make up the
// route tree.  Nil handlers leave their routes unregistered, so a minimal
// server (health only) is a valid configuration.
type RouterConfig struct {
	HealthHandler  *handlers.HealthHandler
	ToolHandler    *handlers.ToolHandler
	MessageHandler *handlers.MessageHandler
	RunHandler     *handlers.RunHandler
	EventHub       *handlers.EventHub

	CORS      *middleware.CORSConfig
	RateLimit middleware.RateLimiter

	Logger           logging.Logger
	Metrics          *prometheus.AppMetrics
	MetricsCollector prometheus.MetricsCollector
}

// NewRouter builds the complete route tree.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	if cfg.CORS != nil {
		r.Use(middleware.CORS(*cfg.CORS))
	}
	if cfg.Logger != nil {
		r.Use(middleware.RequestLogging(cfg.Logger, middleware.DefaultLoggingConfig()))
	}
	if cfg.Metrics != nil {
		r.Use(middleware.Metrics(cfg.Metrics))
	}
	if cfg.RateLimit != nil {
		r.Use(middleware.RateLimit(cfg.RateLimit, middleware.DefaultRateLimitConfig()))
	}

	if cfg.HealthHandler != nil {
		r.Get("/healthz", cfg.HealthHandler.Liveness)
		r.Get("/readyz", cfg.HealthHandler.Readiness)
	}
	if cfg.MetricsCollector != nil {
		r.Handle("/metrics", cfg.MetricsCollector.Handler())
	}

	// chi panics when a request routes into a mux with no handlers, so the
	// API group is only mounted when something registers under it.
	if cfg.ToolHandler == nil && cfg.MessageHandler == nil && cfg.RunHandler == nil && cfg.EventHub == nil {
		return r
	}

	r.Route("/api/v1", func(api chi.Router) {
		if cfg.ToolHandler != nil {
			api.Get("/tools", cfg.ToolHandler.List)
			api.Post("/tools/{agent}/{tool}/run", cfg.ToolHandler.Run)
		}
		if cfg.MessageHandler != nil {
			api.Post("/messages", cfg.MessageHandler.Route)
		}
		if cfg.RunHandler != nil {
			api.Route("/runs", func(runs chi.Router) {
				runs.Post("/", cfg.RunHandler.Create)
				runs.Route("/{runID}", func(item chi.Router) {
					item.Get("/", cfg.RunHandler.Get)
					item.Get("/report", cfg.RunHandler.GetReport)
					item.Get("/reports", cfg.RunHandler.ListReports)
				})
			})
		}
		if cfg.EventHub != nil {
			api.Get("/events", cfg.EventHub.Stream)
		}
	})

	return r
}

package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hyperengineering/lifequality/internal/ratelimit"
)

// RouterConfig carries the policies applied to the document routes.
type RouterConfig struct {
	Password      string
	AllowedOrigin string
	Limiter       ratelimit.Limiter
}

// NewRouter creates a new router with all routes configured
func NewRouter(h *Handler, cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware (all routes)
	r.Use(middleware.RequestID)
	r.Use(LoggingMiddleware)
	r.Use(RecoveryMiddleware)

	// Public routes
	r.Get("/health", h.Health)
	r.Handle("/metrics", promhttp.Handler())

	// Document routes: CORS preflight short-circuits before the limiter,
	// and auth runs before the handlers' method dispatch.
	r.Group(func(r chi.Router) {
		r.Use(CORSMiddleware(cfg.AllowedOrigin))
		r.Use(RateLimitMiddleware(cfg.Limiter))
		r.Use(AuthMiddleware(cfg.Password))
		r.HandleFunc("/api/ratings", h.Ratings)
		r.HandleFunc("/api/sync", h.Sync)
	})

	return r
}

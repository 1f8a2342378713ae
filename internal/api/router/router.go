package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/radiology-assistant/internal/dashboard"
	httpmiddleware "github.com/wolfman30/radiology-assistant/internal/http/middleware"
	"github.com/wolfman30/radiology-assistant/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	Dashboard          *dashboard.Handler
	Hub                *dashboard.Hub
	MetricsHandler     http.Handler
	RateLimiter        *httpmiddleware.RateLimiter
	CORSAllowedOrigins []string
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public endpoints (health checks, metrics, live display)
	r.Group(func(public chi.Router) {
		public.Get("/health", cfg.Dashboard.Health)
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
		if cfg.Hub != nil {
			public.Handle("/ws", cfg.Hub)
		}
	})

	// Clinician and dashboard API
	var api http.Handler = middleware.Compress(5)(cfg.Dashboard.Routes())
	if cfg.RateLimiter != nil {
		api = cfg.RateLimiter.Middleware(api)
	}
	r.Mount("/api", api)

	return r
}

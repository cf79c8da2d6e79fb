package router

import (
	"net/http"

	"fishbot-economy-api/internal/handler"
	"fishbot-economy-api/internal/metrics"
	"fishbot-economy-api/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

// Config holds the configuration for creating a router.
type Config struct {
	Handler        *handler.Handler
	EconomyHandler *handler.EconomyHandler
	AdminHandler   *handler.AdminHandler
	// LoginKey guards the admin routes. Empty disables them.
	LoginKey string
	// Metrics serves /metrics when set.
	Metrics http.Handler
}

// New creates and configures the HTTP router.
func New(cfg Config) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware stack (applies to ALL routes)
	r.Use(middleware.Recovery)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging)
	r.Use(metrics.InstrumentHandler)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID", middleware.LoginKeyHeader},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	if cfg.Handler != nil {
		r.Get("/api/status", cfg.Handler.Status)
	}
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics)
	}

	r.Route("/api/v1", func(r chi.Router) {
		if cfg.Handler != nil {
			r.Get("/health", cfg.Handler.Health)
			r.Get("/ready", cfg.Handler.Ready)
		}

		if cfg.EconomyHandler != nil {
			r.Get("/catalog", cfg.EconomyHandler.Catalog)
			r.Route("/users/{user_id}", func(r chi.Router) {
				r.Post("/join", cfg.EconomyHandler.Join)
				r.Get("/balance", cfg.EconomyHandler.Balance)
				r.Get("/inventory", cfg.EconomyHandler.Inventory)
				r.Post("/daily", cfg.EconomyHandler.Daily)
				r.Post("/buy", cfg.EconomyHandler.Buy)
				r.Post("/sell", cfg.EconomyHandler.Sell)
			})
		}

		// Admin endpoints
		if cfg.AdminHandler != nil {
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireLoginKey(cfg.LoginKey))
				r.Route("/admin", func(r chi.Router) {
					r.Get("/stats", cfg.AdminHandler.GetStats)
					r.Post("/catalog/reload", cfg.AdminHandler.ReloadCatalog)
					r.Post("/checkpoint", cfg.AdminHandler.Checkpoint)
				})
			})
		}
	})

	return r
}

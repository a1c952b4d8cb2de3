package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/mediguard/driftai/internal/api/handlers"
	"github.com/mediguard/driftai/internal/api/middleware"
	"github.com/mediguard/driftai/internal/config"
)

// NewRouter creates the HTTP router with all API routes.
func NewRouter(cfg *config.Config, h *handlers.Handlers) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Compress(5))
	r.Use(middleware.Logger)
	r.Use(middleware.Telemetry)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id", "X-Trace-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health & info
	r.Get("/health", healthHandler)
	r.Get("/version", versionHandler(cfg))

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		// Analysis
		r.Post("/analyze", h.Analyze)
		r.Post("/analyze/quick", h.AnalyzeQuick)
		r.Post("/analyze/metrics", h.AnalyzeMetrics)
		r.Post("/chat", h.Chat)
		r.Get("/pipeline/status", h.PipelineStatus)
		r.Post("/search", h.SearchHealth)

		// User data
		r.Route("/users/{userId}", func(r chi.Router) {
			r.Route("/checks", func(r chi.Router) {
				r.Get("/", h.ListChecks)
				r.Post("/", h.CreateCheck)
			})
			r.Route("/context", func(r chi.Router) {
				r.Get("/", h.GetUserContext)
				r.Put("/", h.PutUserContext)
			})
			r.Route("/profile", func(r chi.Router) {
				r.Get("/", h.GetUserProfile)
				r.Put("/", h.PutUserProfile)
			})
		})
	})

	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "healthy",
		"service": "mediguard-driftai",
	})
}

func versionHandler(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{
			"version": cfg.Version,
		})
	}
}

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// healthCheckTimeout bounds the database ping performed by the health endpoint.
const healthCheckTimeout = 2 * time.Second

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Health check (no auth required)
		r.Get("/health", s.handleHealth)

		// Auth endpoints (no auth required)
		r.Post("/auth/login", s.handleLogin)

		// Read endpoints are open; the data is public transit metadata.
		r.Route("/regions", func(r chi.Router) {
			r.Get("/", s.handleListRegions)
			r.Get("/{id}", s.handleGetRegion)
		})
		r.Route("/region_bounds", func(r chi.Router) {
			r.Get("/", s.handleListBounds)
			r.Get("/{id}", s.handleGetBounds)
		})
		r.Route("/preferences", func(r chi.Router) {
			r.Get("/", s.handleListPreferences)
			r.Get("/{key}", s.handleGetPreference)
		})

		// WebSocket (auth via single-use ticket, validated in handler)
		r.Get("/ws", s.handleWebSocket)

		// Mutating routes require a bearer token when a JWT secret is
		// configured; with no secret the guard is permissive.
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.Post("/auth/ws-ticket", s.handleWSTicket)

			r.Route("/regions", func(r chi.Router) {
				r.Post("/", s.handleCreateRegion)

				r.Route("/{id}", func(r chi.Router) {
					r.Put("/", s.handleUpsertRegion)
					r.Patch("/", s.handleUpdateRegion)
					r.Delete("/", s.handleDeleteRegion)
					r.Put("/bounds", s.handleReplaceRegionBounds)
				})
			})

			r.Route("/region_bounds", func(r chi.Router) {
				r.Post("/", s.handleCreateBounds)
				r.Patch("/{id}", s.handleUpdateBounds)
				r.Delete("/{id}", s.handleDeleteBounds)
			})

			r.Route("/preferences", func(r chi.Router) {
				r.Put("/", s.handleSetPreferences)
				r.Put("/{key}", s.handleSetPreference)
				r.Delete("/{key}", s.handleDeletePreference)
			})

			r.Post("/catalog/sync", s.handleCatalogSync)
		})
	})

	return r
}

// handleHealth returns the server health status, including a database ping.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	dbStatus := "ok"
	status := http.StatusOK
	if err := s.db.HealthCheck(ctx); err != nil {
		dbStatus = err.Error()
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, map[string]any{
		"status":   statusWord(status == http.StatusOK),
		"version":  s.version,
		"database": dbStatus,
	})
}

func statusWord(healthy bool) string {
	if healthy {
		return "ok"
	}
	return "degraded"
}

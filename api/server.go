/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the chi router and middleware stack and wires both API surfaces
  to the handler.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for status widgets

ROUTES:
  POST /           Legacy tagged-JSON protocol
  /api/*           REST mirror (see handlers.go)

SECURITY NOTE:
  No authentication. The daemon is meant to listen on a local interface and
  serve one user's session.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	// Legacy tagged protocol
	r.Post("/", h.HandleTagged)

	// REST mirror
	r.Route("/api", func(r chi.Router) {
		r.Get("/info", h.GetInfo)
		r.Get("/info/changed", h.GetInfoChanged)

		r.Route("/timer", func(r chi.Router) {
			r.Post("/unlock", h.UnlockTimer)
			r.Post("/lock", h.LockTimer)
		})

		r.Route("/requirements", func(r chi.Router) {
			r.Post("/", h.AddRequirement)
			r.Post("/{id}/complete", h.CompleteRequirement)
		})

		r.Post("/deactivate", h.Deactivate)
		r.Get("/report/today", h.GetTodayReport)
	})

	return r
}

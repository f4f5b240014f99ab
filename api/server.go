/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. RealIP:     Client address behind the warehouse proxy
  3. Logger:     Request logging
  4. Recoverer:  Panic recovery (500 instead of crash)
  5. CORS:       Cross-origin requests for the launch frontend

ROUTE GROUPS:
  /api/calculations     Compensation calculations
  /api/tasklogs/*       Task export validation
  /api/tiers/*          Activity tier catalog
  /api/kpis             KPI catalog
  /api/users/*          Worker profiles and launch history
  /api/scenarios/*      Demo scenarios
  /healthz              Liveness and database check

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/serve.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RouterOptions tunes the router for the environment it runs in.
type RouterOptions struct {
	AllowedOrigins []string
	AccessLog      bool
}

// DefaultRouterOptions allows the local frontend dev servers.
func DefaultRouterOptions() RouterOptions {
	return RouterOptions{
		AllowedOrigins: []string{"http://localhost:5173", "http://localhost:8080"},
		AccessLog:      true,
	}
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	if opts.AccessLog {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/healthz", h.Health)

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Post("/calculations", h.Calculate)

		r.Route("/tasklogs", func(r chi.Router) {
			r.Post("/validate", h.ValidateTaskLog)
		})

		// Catalog routes
		r.Route("/tiers", func(r chi.Router) {
			r.Get("/", h.ListTiers)
			r.Post("/", h.SaveActivityTiers)
			r.Get("/{activity}", h.GetActivityTiers)
			r.Delete("/{activity}", h.DeleteActivityTiers)
		})

		r.Route("/kpis", func(r chi.Router) {
			r.Get("/", h.ListKPIs)
			r.Post("/", h.SaveKPI)
		})

		// User routes
		r.Route("/users", func(r chi.Router) {
			r.Get("/", h.ListUsers)
			r.Post("/", h.SaveUser)
			r.Get("/{id}", h.GetUser)
			r.Get("/{id}/launches", h.ListLaunches)
		})

		// Scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
			r.Post("/reset", h.ResetDatabase)
		})
	})

	return r
}

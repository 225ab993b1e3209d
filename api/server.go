/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logging:    Structured access log with a request-scoped logger
  3. Metrics:    Request latency per route
  4. Recoverer:  Panic recovery (500 instead of crash)
  5. CORS:       Cross-origin requests for frontends

ROUTE GROUPS:
  /api/budgets/*        Budgets, categories and period edits
  /api/scenarios/*      Demo scenarios
  /healthz              Liveness
  /metrics              Prometheus metrics

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/warp/budget-engine/logging"
)

// RouterOptions configures NewRouter.
type RouterOptions struct {
	AllowedOrigins []string
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(logging.Middleware(h.Logger))
	r.Use(h.Metrics.Middleware)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/healthz", h.Healthz)
	r.Method(http.MethodGet, "/metrics", h.Metrics.Handler())

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Route("/budgets", func(r chi.Router) {
			r.Get("/", h.ListBudgets)
			r.Post("/", h.CreateBudget)
			r.Post("/import", h.ImportBudget)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetBudget)
				r.Delete("/", h.DeleteBudget)
				r.Get("/summary", h.GetSummary)

				r.Post("/categories", h.CreateCategory)
				r.Route("/categories/{cid}", func(r chi.Router) {
					r.Get("/", h.GetCategory)
					r.Delete("/", h.DeleteCategory)
					r.Put("/recurrence", h.UpdateRecurrence)
					r.Put("/nominal", h.UpdateNominal)
					r.Put("/periods/{index}/truncate", h.UpdateTruncate)
					r.Put("/periods/{index}/actual", h.UpdateActual)
				})
			})
		})

		// Scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
			r.Post("/reset", h.ResetDatabase)
		})
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<!DOCTYPE html>
<html>
<head><title>Budget Engine</title></head>
<body style="font-family: system-ui; max-width: 800px; margin: 50px auto; padding: 20px;">
<h1>Budget Engine API</h1>
<h2>API Endpoints</h2>
<ul>
<li><a href="/api/budgets">/api/budgets</a> - List budgets</li>
<li><a href="/api/scenarios">/api/scenarios</a> - List scenarios</li>
<li><a href="/metrics">/metrics</a> - Prometheus metrics</li>
</ul>
</body>
</html>`))
	})

	return r
}

/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:   Unique ID per request, echoed in error bodies
  2. RealIP:      Client address behind a proxy
  3. requestLog:  One structured slog line per request
  4. Recoverer:   Panic recovery (500 instead of crash)
  5. RequestSize: Body cap (1 MiB)
  6. CORS:        Cross-origin requests for the frontend

ROUTE GROUPS:
  /api/clients/*       Clients, schedules, fees
  /api/installments/*  Installment status and dispatch flag
  /api/dispatch/*      Profit-sharing report and settlement
  /api/expenses/*      Shared expenses and the deduction log
  /api/leads/*         Inbound leads
  /api/contacts/*      Contacts, pipeline, conversion
  /api/setter/stats    Close rates and setter commissions by source
  /api/scenarios/*     Demo scenarios
  /*                   Static files (frontend)

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

const maxBodyBytes = 1 << 20

// NewRouter creates a new router with all routes configured. An empty
// allowedOrigins list allows any origin.
func NewRouter(h *Handler, allowedOrigins []string) *chi.Mux {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLog(h.Logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestSize(maxBodyBytes))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: !containsWildcard(allowedOrigins),
		MaxAge:           300,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Client routes
		r.Route("/clients", func(r chi.Router) {
			r.Get("/", h.ListClients)
			r.Post("/", h.CreateClient)
			r.Get("/{id}", h.GetClient)
			r.Put("/{id}", h.UpdateClient)
			r.Delete("/{id}", h.DeleteClient)
			r.Post("/{id}/schedule", h.GenerateSchedule)
			r.Delete("/{id}/schedule", h.DeleteSchedule)
			r.Get("/{id}/fees", h.GetClientFees)
		})

		// Installment routes
		r.Route("/installments", func(r chi.Router) {
			r.Put("/{id}/status", h.SetInstallmentStatus)
			r.Put("/{id}/dispatched", h.SetInstallmentDispatched)
		})

		// Dispatch routes
		r.Route("/dispatch", func(r chi.Router) {
			r.Get("/", h.GetDispatch)
			r.Post("/settle", h.SettleDispatch)
		})

		// Expense routes
		r.Route("/expenses", func(r chi.Router) {
			r.Get("/", h.ListExpenses)
			r.Post("/", h.CreateExpense)
			r.Get("/{id}", h.GetExpense)
			r.Put("/{id}", h.UpdateExpense)
			r.Delete("/{id}", h.DeleteExpense)
			r.Put("/{id}/deducted", h.SetExpenseDeducted)
			r.Post("/{id}/deductions", h.DeductExpense)
			r.Delete("/{id}/deductions/{period}", h.UndeductExpense)
		})
		r.Get("/deductions", h.ListDeductions)
		r.Post("/deductions/monthly", h.TriggerMonthlyDeductions)

		// Lead routes
		r.Route("/leads", func(r chi.Router) {
			r.Get("/", h.ListLeads)
			r.Post("/", h.CreateLead)
			r.Delete("/{id}", h.DeleteLead)
		})

		// Contact routes
		r.Route("/contacts", func(r chi.Router) {
			r.Get("/", h.ListContacts)
			r.Post("/", h.CreateContact)
			r.Get("/{id}", h.GetContact)
			r.Put("/{id}", h.UpdateContact)
			r.Delete("/{id}", h.DeleteContact)
			r.Get("/{id}/pipeline", h.GetPipelineHistory)
			r.Post("/{id}/pipeline", h.ChangePipelineStatus)
			r.Post("/{id}/convert", h.ConvertContact)
		})
		r.Put("/pipeline/{id}/notes", h.UpdatePipelineNotes)
		r.Get("/setter/stats", h.GetSetterStats)

		r.Get("/summary", h.GetSummary)
		r.Get("/dashboard", h.GetDashboard)
		r.Get("/rates", h.GetRates)

		// Scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
			r.Post("/reset", h.ResetDatabase)
		})
	})

	// Serve static files (frontend build)
	staticDir := "./web/dist"
	if _, err := os.Stat(staticDir); os.IsNotExist(err) {
		// Try relative to executable
		exe, _ := os.Executable()
		staticDir = filepath.Join(filepath.Dir(exe), "web", "dist")
	}

	if _, err := os.Stat(staticDir); err == nil {
		fileServer := http.FileServer(http.Dir(staticDir))
		r.Get("/*", func(w http.ResponseWriter, r *http.Request) {
			fullPath := filepath.Join(staticDir, filepath.Clean(r.URL.Path))
			if _, err := os.Stat(fullPath); os.IsNotExist(err) {
				// SPA routing: serve index.html
				http.ServeFile(w, r, filepath.Join(staticDir, "index.html"))
				return
			}
			fileServer.ServeHTTP(w, r)
		})
	} else {
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			w.Write([]byte(`<!DOCTYPE html>
<html>
<head><title>CRM Engine</title></head>
<body style="font-family: system-ui; max-width: 800px; margin: 50px auto; padding: 20px;">
<h1>CRM Engine API</h1>
<p>No frontend build found in web/dist.</p>
<ul>
<li><a href="/api/clients">/api/clients</a> - Clients and schedules</li>
<li><a href="/api/dispatch">/api/dispatch</a> - Profit sharing</li>
<li><a href="/api/contacts">/api/contacts</a> - Contacts</li>
<li><a href="/api/scenarios">/api/scenarios</a> - Demo scenarios</li>
</ul>
</body>
</html>`))
		})
	}

	return r
}

// requestLog logs method, path, status and duration for each request.
func requestLog(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			level := slog.LevelInfo
			if status >= http.StatusInternalServerError {
				level = slog.LevelError
			}
			logger.Log(r.Context(), level, "http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", status,
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}

func containsWildcard(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}

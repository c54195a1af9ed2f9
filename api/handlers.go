/*
handlers.go - HTTP API handlers for the CRM billing engine

PURPOSE:
  Exposes the billing and crm services via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to the services.

ENDPOINTS:
  Clients (clients.go):
    GET    /api/clients                      List clients with schedules
    POST   /api/clients                      Create client (optionally with schedule)
    GET    /api/clients/{id}                 Client detail
    PUT    /api/clients/{id}                 Update client
    DELETE /api/clients/{id}                 Delete client and schedule
    POST   /api/clients/{id}/schedule        (Re)generate schedule
    DELETE /api/clients/{id}/schedule        Drop schedule
    GET    /api/clients/{id}/fees            Fee breakdown per installment
    PUT    /api/installments/{id}/status     pending / in_transit / paid
    PUT    /api/installments/{id}/dispatched Set dispatched flag
    GET    /api/dispatch?period=YYYY-MM      Profit-sharing report
    POST   /api/dispatch/settle              Mark installments dispatched

  Expenses (expenses.go):
    GET|POST /api/expenses, GET|PUT|DELETE /api/expenses/{id}
    PUT    /api/expenses/{id}/deducted
    POST   /api/expenses/{id}/deductions     Deduct for a month
    DELETE /api/expenses/{id}/deductions/{period}
    GET    /api/deductions?period=YYYY-MM
    POST   /api/deductions/monthly           Deduct recurring expenses (scheduler.go)

  CRM (crm.go):
    /api/leads, /api/contacts, /api/contacts/{id}/pipeline,
    /api/pipeline/{id}/notes, /api/contacts/{id}/convert

  Misc:
    GET    /api/summary                      Billing KPIs
    GET    /api/dashboard                    CRM counters
    GET    /api/rates                        Rate book (JSON)
    /api/scenarios/*                         Demo scenarios (scenarios.go)

ERROR HANDLING:
  Errors are returned as JSON {error, details, request_id} with status:
  - 400: Validation errors, invalid input
  - 404: Record not found
  - 409: Conflict (schedule exists, duplicate deduction, already converted)
  - 500: Internal errors (logged)

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/warp/crm-engine/billing"
	"github.com/warp/crm-engine/crm"
	"github.com/warp/crm-engine/factory"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Store is what the API needs from persistence: the crm store plus a wipe
// used by the demo scenarios.
type Store interface {
	crm.TxStore
	Reset(ctx context.Context) error
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store   Store
	Billing *billing.Service
	CRM     *crm.Service
	Rates   *billing.RateBook
	Factory *factory.RateFactory
	Logger  *slog.Logger

	// Track currently loaded scenario
	mu              sync.Mutex
	currentScenario string
}

// NewHandler creates a handler and the services it fronts. A nil rate book
// selects the built-in rates.
func NewHandler(store Store, rates *billing.RateBook, logger *slog.Logger) *Handler {
	if rates == nil {
		rates = billing.DefaultRateBook()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		Store:   store,
		Billing: billing.NewService(store, rates, logger),
		CRM:     crm.NewService(store, rates, logger),
		Rates:   rates,
		Factory: factory.NewRateFactory(),
		Logger:  logger,
	}
}

// =============================================================================
// SUMMARY, DASHBOARD, RATES
// =============================================================================

// GetSummary returns the billing KPIs.
// GET /api/summary
func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	s, err := h.Billing.Summary(r.Context())
	if err != nil {
		h.fail(w, r, "Failed to compute summary", err)
		return
	}
	writeJSON(w, http.StatusOK, toSummaryDTO(*s))
}

// GetDashboard returns the CRM counters.
// GET /api/dashboard
func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.CRM.Dashboard(r.Context())
	if err != nil {
		h.fail(w, r, "Failed to build dashboard", err)
		return
	}
	dto := DashboardDTO{
		Leads:    d.Leads,
		Contacts: d.Contacts,
		Clients:  d.Clients,
		Revenue:  d.Revenue,
		Pipeline: make(map[string]int, len(d.Pipeline)),
	}
	for status, n := range d.Pipeline {
		dto.Pipeline[string(status)] = n
	}
	writeJSON(w, http.StatusOK, dto)
}

// GetRates returns the rate book in its JSON file format.
// GET /api/rates
func (h *Handler) GetRates(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Factory.ToJSON(h.Rates))
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, message string, err error) {
	resp := ErrorResponse{Error: message, RequestID: middleware.GetReqID(r.Context())}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// statusFor maps service errors to HTTP statuses.
func statusFor(err error) int {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case crm.IsNotFound(err):
		return http.StatusNotFound
	case crm.IsConflict(err):
		return http.StatusConflict
	case crm.IsClientError(err), errors.As(err, &syntaxErr), errors.As(err, &typeErr):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err with the status it maps to. Server errors are logged.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, message string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.Logger.ErrorContext(r.Context(), message,
			"error", err, "request_id", middleware.GetReqID(r.Context()))
	}
	writeError(w, r, status, message, err)
}

// decode reads a JSON body. An empty body leaves v untouched.
func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: %v", billing.ErrInvalidInput, err)
	}
	return nil
}

func parsePeriodParam(r *http.Request, key string) (*billing.Period, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return nil, nil
	}
	p, err := billing.ParsePeriod(raw)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func parseBoolParam(r *http.Request, key string) *bool {
	switch r.URL.Query().Get(key) {
	case "true", "1", "yes":
		v := true
		return &v
	case "false", "0", "no":
		v := false
		return &v
	}
	return nil
}

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/warp/crm-engine/billing"
)

// ListExpenses returns expenses, filtered by ?search=, ?type= and ?deducted=.
// GET /api/expenses
func (h *Handler) ListExpenses(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := billing.ExpenseFilter{
		Search:   q.Get("search"),
		Deducted: parseBoolParam(r, "deducted"),
	}
	if raw := q.Get("type"); raw != "" {
		t, err := billing.ParseExpenseType(raw)
		if err != nil {
			h.fail(w, r, "Invalid expense type", err)
			return
		}
		filter.Type = t
	}

	expenses, err := h.Billing.ListExpenses(r.Context(), filter)
	if err != nil {
		h.fail(w, r, "Failed to list expenses", err)
		return
	}
	dtos := make([]ExpenseDTO, 0, len(expenses))
	for _, e := range expenses {
		dtos = append(dtos, toExpenseDTO(e))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// POST /api/expenses
func (h *Handler) CreateExpense(w http.ResponseWriter, r *http.Request) {
	var req ExpenseRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, "Invalid request body", err)
		return
	}
	e, err := h.Billing.CreateExpense(r.Context(), req.toExpense(""))
	if err != nil {
		h.fail(w, r, "Failed to create expense", err)
		return
	}
	writeJSON(w, http.StatusCreated, toExpenseDTO(*e))
}

// GET /api/expenses/{id}
func (h *Handler) GetExpense(w http.ResponseWriter, r *http.Request) {
	e, err := h.Billing.GetExpense(r.Context(), billing.ExpenseID(chi.URLParam(r, "id")))
	if err != nil {
		h.fail(w, r, "Failed to get expense", err)
		return
	}
	writeJSON(w, http.StatusOK, toExpenseDTO(*e))
}

// UpdateExpense replaces an expense. The deducted flag is kept; it only
// changes through PUT /api/expenses/{id}/deducted.
// PUT /api/expenses/{id}
func (h *Handler) UpdateExpense(w http.ResponseWriter, r *http.Request) {
	var req ExpenseRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, "Invalid request body", err)
		return
	}
	id := billing.ExpenseID(chi.URLParam(r, "id"))
	updated, err := h.Billing.UpdateExpense(r.Context(), req.toExpense(id))
	if err != nil {
		h.fail(w, r, "Failed to update expense", err)
		return
	}
	writeJSON(w, http.StatusOK, toExpenseDTO(*updated))
}

// DELETE /api/expenses/{id}
func (h *Handler) DeleteExpense(w http.ResponseWriter, r *http.Request) {
	if err := h.Billing.DeleteExpense(r.Context(), billing.ExpenseID(chi.URLParam(r, "id"))); err != nil {
		h.fail(w, r, "Failed to delete expense", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PUT /api/expenses/{id}/deducted
func (h *Handler) SetExpenseDeducted(w http.ResponseWriter, r *http.Request) {
	var req DeductedRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, "Invalid request body", err)
		return
	}
	e, err := h.Billing.SetExpenseDeducted(r.Context(), billing.ExpenseID(chi.URLParam(r, "id")), req.Deducted)
	if err != nil {
		h.fail(w, r, "Failed to update expense", err)
		return
	}
	writeJSON(w, http.StatusOK, toExpenseDTO(*e))
}

// =============================================================================
// DEDUCTION LOG
// =============================================================================

// DeductExpense records the expense as deducted for a month. A second
// deduction for the same month is a conflict.
// POST /api/expenses/{id}/deductions
func (h *Handler) DeductExpense(w http.ResponseWriter, r *http.Request) {
	var req DeductionRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, "Invalid request body", err)
		return
	}
	period, err := billing.ParsePeriod(req.Period)
	if err != nil {
		h.fail(w, r, "Invalid period", err)
		return
	}
	d, err := h.Billing.DeductExpense(r.Context(), billing.ExpenseID(chi.URLParam(r, "id")), period)
	if err != nil {
		h.fail(w, r, "Failed to deduct expense", err)
		return
	}
	writeJSON(w, http.StatusCreated, toDeductionDTO(*d))
}

// DELETE /api/expenses/{id}/deductions/{period}
func (h *Handler) UndeductExpense(w http.ResponseWriter, r *http.Request) {
	period, err := billing.ParsePeriod(chi.URLParam(r, "period"))
	if err != nil {
		h.fail(w, r, "Invalid period", err)
		return
	}
	if err := h.Billing.UndeductExpense(r.Context(), billing.ExpenseID(chi.URLParam(r, "id")), period); err != nil {
		h.fail(w, r, "Failed to remove deduction", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListDeductions returns the deduction log, optionally for one month.
// GET /api/deductions
func (h *Handler) ListDeductions(w http.ResponseWriter, r *http.Request) {
	period, err := parsePeriodParam(r, "period")
	if err != nil {
		h.fail(w, r, "Invalid period", err)
		return
	}
	log, err := h.Billing.ListDeductions(r.Context(), billing.DeductionFilter{
		ExpenseID: billing.ExpenseID(r.URL.Query().Get("expense_id")),
		Period:    period,
	})
	if err != nil {
		h.fail(w, r, "Failed to list deductions", err)
		return
	}
	dtos := make([]DeductionDTO, 0, len(log))
	for _, d := range log {
		dtos = append(dtos, toDeductionDTO(d))
	}
	writeJSON(w, http.StatusOK, dtos)
}

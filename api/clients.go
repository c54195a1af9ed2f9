package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/warp/crm-engine/billing"
)

// =============================================================================
// CLIENT HANDLERS
// =============================================================================

// ListClients returns clients with their schedules, filtered by ?search=
// on name or email.
// GET /api/clients
func (h *Handler) ListClients(w http.ResponseWriter, r *http.Request) {
	filter := billing.ClientFilter{Search: r.URL.Query().Get("search")}
	details, err := h.Billing.ListClients(r.Context(), filter)
	if err != nil {
		h.fail(w, r, "Failed to list clients", err)
		return
	}
	dtos := make([]ClientDTO, 0, len(details))
	for _, d := range details {
		dtos = append(dtos, toClientDTO(d))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateClient creates a client. With generate_schedule the installments are
// built in the same call, amount_paid counting as already received.
// POST /api/clients
func (h *Handler) CreateClient(w http.ResponseWriter, r *http.Request) {
	var req ClientRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, "Invalid request body", err)
		return
	}

	var initial *Amount
	if req.GenerateSchedule {
		initial = &req.AmountPaid
	}
	detail, err := h.Billing.CreateClient(r.Context(), req.toClient(""), optional(initial))
	if err != nil {
		h.fail(w, r, "Failed to create client", err)
		return
	}
	writeJSON(w, http.StatusCreated, toClientDTO(*detail))
}

// GetClient returns one client with its schedule.
// GET /api/clients/{id}
func (h *Handler) GetClient(w http.ResponseWriter, r *http.Request) {
	detail, err := h.Billing.GetClient(r.Context(), billing.ClientID(chi.URLParam(r, "id")))
	if err != nil {
		h.fail(w, r, "Failed to get client", err)
		return
	}
	writeJSON(w, http.StatusOK, toClientDTO(*detail))
}

// UpdateClient replaces a client's editable fields.
// PUT /api/clients/{id}
func (h *Handler) UpdateClient(w http.ResponseWriter, r *http.Request) {
	var req ClientRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, "Invalid request body", err)
		return
	}
	c := req.toClient(billing.ClientID(chi.URLParam(r, "id")))
	detail, err := h.Billing.UpdateClient(r.Context(), c, req.RegenerateSchedule)
	if err != nil {
		h.fail(w, r, "Failed to update client", err)
		return
	}
	writeJSON(w, http.StatusOK, toClientDTO(*detail))
}

// DeleteClient removes a client and its schedule.
// DELETE /api/clients/{id}
func (h *Handler) DeleteClient(w http.ResponseWriter, r *http.Request) {
	if err := h.Billing.DeleteClient(r.Context(), billing.ClientID(chi.URLParam(r, "id"))); err != nil {
		h.fail(w, r, "Failed to delete client", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// SCHEDULE HANDLERS
// =============================================================================

// GenerateSchedule builds the installment schedule of a client. Replacing
// an existing schedule requires "confirm": true.
// POST /api/clients/{id}/schedule
func (h *Handler) GenerateSchedule(w http.ResponseWriter, r *http.Request) {
	var req ScheduleRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, "Invalid request body", err)
		return
	}
	detail, err := h.Billing.GenerateSchedule(r.Context(), billing.ClientID(chi.URLParam(r, "id")),
		billing.ScheduleRequest{AlreadyPaid: optional(req.AlreadyPaid), Confirm: req.Confirm})
	if err != nil {
		h.fail(w, r, "Failed to generate schedule", err)
		return
	}
	writeJSON(w, http.StatusOK, toClientDTO(*detail))
}

// DeleteSchedule drops every installment of a client.
// DELETE /api/clients/{id}/schedule
func (h *Handler) DeleteSchedule(w http.ResponseWriter, r *http.Request) {
	if err := h.Billing.DeleteSchedule(r.Context(), billing.ClientID(chi.URLParam(r, "id"))); err != nil {
		h.fail(w, r, "Failed to delete schedule", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetClientFees returns the fee breakdown of each installment of a client.
// GET /api/clients/{id}/fees
func (h *Handler) GetClientFees(w http.ResponseWriter, r *http.Request) {
	lines, err := h.Billing.ClientFees(r.Context(), billing.ClientID(chi.URLParam(r, "id")))
	if err != nil {
		h.fail(w, r, "Failed to compute fees", err)
		return
	}
	writeJSON(w, http.StatusOK, toFeeLineDTOs(lines))
}

// =============================================================================
// INSTALLMENT HANDLERS
// =============================================================================

// SetInstallmentStatus moves an installment between pending, in_transit and
// paid. The client's amount paid follows.
// PUT /api/installments/{id}/status
func (h *Handler) SetInstallmentStatus(w http.ResponseWriter, r *http.Request) {
	var req InstallmentStatusRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, "Invalid request body", err)
		return
	}
	status, err := billing.ParseInstallmentStatus(req.Status)
	if err != nil {
		h.fail(w, r, "Invalid status", err)
		return
	}
	inst, client, err := h.Billing.SetInstallmentStatus(r.Context(),
		billing.InstallmentID(chi.URLParam(r, "id")), status)
	if err != nil {
		h.fail(w, r, "Failed to update installment", err)
		return
	}
	writeJSON(w, http.StatusOK, InstallmentUpdateDTO{
		Installment:      toInstallmentDTO(*inst),
		ClientAmountPaid: client.AmountPaid,
		ClientDispatched: client.IsDispatched,
	})
}

// SetInstallmentDispatched sets or clears the dispatched flag.
// PUT /api/installments/{id}/dispatched
func (h *Handler) SetInstallmentDispatched(w http.ResponseWriter, r *http.Request) {
	var req DispatchedRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, "Invalid request body", err)
		return
	}
	inst, err := h.Billing.SetInstallmentDispatched(r.Context(),
		billing.InstallmentID(chi.URLParam(r, "id")), req.Dispatched)
	if err != nil {
		h.fail(w, r, "Failed to update installment", err)
		return
	}
	writeJSON(w, http.StatusOK, toInstallmentDTO(*inst))
}

// =============================================================================
// DISPATCH HANDLERS
// =============================================================================

// GetDispatch returns the profit-sharing report over paid, undispatched
// installments. With ?period=YYYY-MM the expenses deducted for that month
// are taken off the pool.
// GET /api/dispatch
func (h *Handler) GetDispatch(w http.ResponseWriter, r *http.Request) {
	period, err := parsePeriodParam(r, "period")
	if err != nil {
		h.fail(w, r, "Invalid period", err)
		return
	}
	report, err := h.Billing.DispatchReport(r.Context(), billing.DispatchQuery{Period: period})
	if err != nil {
		h.fail(w, r, "Failed to compute dispatch", err)
		return
	}
	writeJSON(w, http.StatusOK, toDispatchReportDTO(*report, period))
}

// SettleDispatch marks installments dispatched. An empty list settles every
// paid, undispatched installment.
// POST /api/dispatch/settle
func (h *Handler) SettleDispatch(w http.ResponseWriter, r *http.Request) {
	var req SettleRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, "Invalid request body", err)
		return
	}
	ids := make([]billing.InstallmentID, 0, len(req.InstallmentIDs))
	for _, id := range req.InstallmentIDs {
		ids = append(ids, billing.InstallmentID(id))
	}
	n, err := h.Billing.SettleDispatch(r.Context(), ids)
	if err != nil {
		h.fail(w, r, "Failed to settle dispatch", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"settled": n})
}

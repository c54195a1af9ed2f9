package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/warp/crm-engine/billing"
	"github.com/warp/crm-engine/crm"
)

// =============================================================================
// LEADS
// =============================================================================

// GET /api/leads
func (h *Handler) ListLeads(w http.ResponseWriter, r *http.Request) {
	leads, err := h.CRM.ListLeads(r.Context())
	if err != nil {
		h.fail(w, r, "Failed to list leads", err)
		return
	}
	dtos := make([]LeadDTO, 0, len(leads))
	for _, l := range leads {
		dtos = append(dtos, toLeadDTO(l))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateLead records an inbound lead (form, DM, etc).
// POST /api/leads
func (h *Handler) CreateLead(w http.ResponseWriter, r *http.Request) {
	var req LeadRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, "Invalid request body", err)
		return
	}
	l, err := h.CRM.CreateLead(r.Context(), crm.Lead{
		Name:        req.Name,
		Email:       req.Email,
		Phone:       req.Phone,
		Provenance:  crm.Provenance(req.Provenance),
		SocialMedia: req.SocialMedia,
		Message:     req.Message,
		Source:      req.Source,
	})
	if err != nil {
		h.fail(w, r, "Failed to create lead", err)
		return
	}
	writeJSON(w, http.StatusCreated, toLeadDTO(*l))
}

// DELETE /api/leads/{id}
func (h *Handler) DeleteLead(w http.ResponseWriter, r *http.Request) {
	if err := h.CRM.DeleteLead(r.Context(), crm.LeadID(chi.URLParam(r, "id"))); err != nil {
		h.fail(w, r, "Failed to delete lead", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// CONTACTS
// =============================================================================

// ListContacts returns contacts, filtered by ?status=, ?pipeline_status=,
// ?source= (comma separated) and ?search=.
// GET /api/contacts
func (h *Handler) ListContacts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := crm.ContactFilter{Search: q.Get("search"), Sources: parseSources(q.Get("source"))}
	if raw := q.Get("status"); raw != "" {
		s, err := crm.ParseContactStatus(raw)
		if err != nil {
			h.fail(w, r, "Invalid contact status", err)
			return
		}
		filter.Status = s
	}
	if raw := q.Get("pipeline_status"); raw != "" {
		ps, err := crm.ParsePipelineStatus(raw)
		if err != nil {
			h.fail(w, r, "Invalid pipeline status", err)
			return
		}
		filter.PipelineStatus = ps
	}

	contacts, err := h.CRM.ListContacts(r.Context(), filter)
	if err != nil {
		h.fail(w, r, "Failed to list contacts", err)
		return
	}
	dtos := make([]ContactDTO, 0, len(contacts))
	for _, c := range contacts {
		dtos = append(dtos, toContactDTO(c))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// POST /api/contacts
func (h *Handler) CreateContact(w http.ResponseWriter, r *http.Request) {
	var req ContactRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, "Invalid request body", err)
		return
	}
	c, err := h.CRM.CreateContact(r.Context(), req.toContact(""))
	if err != nil {
		h.fail(w, r, "Failed to create contact", err)
		return
	}
	writeJSON(w, http.StatusCreated, toContactDTO(*c))
}

// GET /api/contacts/{id}
func (h *Handler) GetContact(w http.ResponseWriter, r *http.Request) {
	c, err := h.CRM.GetContact(r.Context(), crm.ContactID(chi.URLParam(r, "id")))
	if err != nil {
		h.fail(w, r, "Failed to get contact", err)
		return
	}
	writeJSON(w, http.StatusOK, toContactDTO(*c))
}

// PUT /api/contacts/{id}
func (h *Handler) UpdateContact(w http.ResponseWriter, r *http.Request) {
	var req ContactRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, "Invalid request body", err)
		return
	}
	c, err := h.CRM.UpdateContact(r.Context(), req.toContact(crm.ContactID(chi.URLParam(r, "id"))))
	if err != nil {
		h.fail(w, r, "Failed to update contact", err)
		return
	}
	writeJSON(w, http.StatusOK, toContactDTO(*c))
}

// DELETE /api/contacts/{id}
func (h *Handler) DeleteContact(w http.ResponseWriter, r *http.Request) {
	if err := h.CRM.DeleteContact(r.Context(), crm.ContactID(chi.URLParam(r, "id"))); err != nil {
		h.fail(w, r, "Failed to delete contact", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// PIPELINE
// =============================================================================

// ChangePipelineStatus moves a contact to a new pipeline stage and appends
// the move to its history. r1_scheduled and r2_scheduled need their date.
// POST /api/contacts/{id}/pipeline
func (h *Handler) ChangePipelineStatus(w http.ResponseWriter, r *http.Request) {
	var req PipelineChangeRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, "Invalid request body", err)
		return
	}
	entry, err := h.CRM.ChangePipelineStatus(r.Context(), crm.ContactID(chi.URLParam(r, "id")), crm.PipelineChange{
		Status: crm.PipelineStatus(req.Status),
		Notes:  req.Notes,
		R1Date: req.R1Date,
		R2Date: req.R2Date,
	})
	if err != nil {
		h.fail(w, r, "Failed to change pipeline status", err)
		return
	}
	writeJSON(w, http.StatusCreated, toPipelineEntryDTO(*entry))
}

// GET /api/contacts/{id}/pipeline
func (h *Handler) GetPipelineHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := h.CRM.PipelineHistory(r.Context(), crm.ContactID(chi.URLParam(r, "id")))
	if err != nil {
		h.fail(w, r, "Failed to get pipeline history", err)
		return
	}
	dtos := make([]PipelineEntryDTO, 0, len(entries))
	for _, e := range entries {
		dtos = append(dtos, toPipelineEntryDTO(e))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// PUT /api/pipeline/{id}/notes
func (h *Handler) UpdatePipelineNotes(w http.ResponseWriter, r *http.Request) {
	var req NotesRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, "Invalid request body", err)
		return
	}
	entry, err := h.CRM.UpdatePipelineNotes(r.Context(), crm.PipelineEntryID(chi.URLParam(r, "id")), req.Notes)
	if err != nil {
		h.fail(w, r, "Failed to update notes", err)
		return
	}
	writeJSON(w, http.StatusOK, toPipelineEntryDTO(*entry))
}

// ConvertContact turns a contact into a billing client with a generated
// schedule. A contact converts once.
// POST /api/contacts/{id}/convert
func (h *Handler) ConvertContact(w http.ResponseWriter, r *http.Request) {
	var req ConversionRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, "Invalid request body", err)
		return
	}
	conv, err := h.CRM.ConvertToClient(r.Context(), crm.ContactID(chi.URLParam(r, "id")), req.toDomain())
	if err != nil {
		h.fail(w, r, "Failed to convert contact", err)
		return
	}
	detail := billing.ClientDetail{
		Client:       conv.Client,
		Installments: conv.Installments,
		AmountPaid:   billing.EffectiveAmountPaid(conv.Client, conv.Installments),
	}
	writeJSON(w, http.StatusCreated, ConversionDTO{
		Contact: toContactDTO(conv.Contact),
		Client:  toClientDTO(detail),
	})
}

// =============================================================================
// SETTERS
// =============================================================================

// GetSetterStats returns close rates and setter commissions for the
// contacts of ?source= (comma separated, all contacts when absent).
// GET /api/setter/stats
func (h *Handler) GetSetterStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.CRM.SetterStats(r.Context(), parseSources(r.URL.Query().Get("source")), time.Now())
	if err != nil {
		h.fail(w, r, "Failed to compute setter stats", err)
		return
	}
	writeJSON(w, http.StatusOK, toSetterStatsDTO(*stats))
}

// parseSources splits "s-l-n,s-l-b" into its sources; "linkedin" expands
// to every LinkedIn source and "all" or "" means no filter.
func parseSources(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		switch part {
		case "", "all":
		case "linkedin":
			out = append(out, crm.LinkedInSources...)
		default:
			out = append(out, part)
		}
	}
	return out
}

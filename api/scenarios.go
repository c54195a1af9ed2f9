/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the database with realistic
	data for demos. Each scenario goes through the billing and crm services,
	so the data obeys the same rules as data entered through the API.

AVAILABLE SCENARIOS:

	first-clients: Three clients across payment methods and platforms
	month-close:   Paid installments, shared expenses, monthly deductions
	sales-pipeline: Leads and contacts at every pipeline stage, one converted

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "month-close"}

ADDING NEW SCENARIOS:
 1. Add to 'scenarios' slice with ID, name, description
 2. Create loader function: loadXxxScenario(ctx)
 3. Add it to the loaders map

NOTE:

	Scenarios reset the database. Only use in development/demo environments.
*/
package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/warp/crm-engine/billing"
	"github.com/warp/crm-engine/crm"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

// DefaultScenario is loaded by SeedDemo.
const DefaultScenario = "month-close"

var scenarios = []ScenarioDTO{
	{
		ID:          "first-clients",
		Name:        "First Clients",
		Description: "One-shot, 3x and 4x deals on Mollie, GoCardless and Revolut",
	},
	{
		ID:          "month-close",
		Name:        "Month Close",
		Description: "Paid installments, a setter commission and expenses deducted this month",
	},
	{
		ID:          "sales-pipeline",
		Name:        "Sales Pipeline",
		Description: "Leads and contacts across the pipeline, one converted to a client",
	},
}

func (h *Handler) loaders() map[string]func(context.Context) error {
	return map[string]func(context.Context) error{
		"first-clients":  h.loadFirstClientsScenario,
		"month-close":    h.loadMonthCloseScenario,
		"sales-pipeline": h.loadSalesPipelineScenario,
	}
}

// ListScenarios returns available scenarios.
// GET /api/scenarios
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
// GET /api/scenarios/current
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentScenario
	h.mu.Unlock()

	if current == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, ScenarioDTO{ID: current, Name: current})
}

// LoadScenario wipes the database and loads a predefined scenario.
// POST /api/scenarios/load
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, "Invalid request body", err)
		return
	}
	if _, ok := h.loaders()[req.ScenarioID]; !ok {
		writeError(w, r, http.StatusBadRequest, "Unknown scenario", nil)
		return
	}
	if err := h.Seed(r.Context(), req.ScenarioID); err != nil {
		h.fail(w, r, "Failed to load scenario", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

// ResetDatabase wipes every table.
// POST /api/scenarios/reset
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.Store.Reset(r.Context()); err != nil {
		h.fail(w, r, "Failed to reset database", err)
		return
	}
	h.currentScenario = ""
	h.Logger.InfoContext(r.Context(), "database reset")
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// Seed resets the store and loads the named scenario.
func (h *Handler) Seed(ctx context.Context, scenarioID string) error {
	load, ok := h.loaders()[scenarioID]
	if !ok {
		return fmt.Errorf("%w: unknown scenario %q", billing.ErrInvalidInput, scenarioID)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.Store.Reset(ctx); err != nil {
		return fmt.Errorf("failed to reset database: %w", err)
	}
	h.currentScenario = ""
	if err := load(ctx); err != nil {
		return fmt.Errorf("scenario %s: %w", scenarioID, err)
	}
	h.currentScenario = scenarioID
	h.Logger.InfoContext(ctx, "scenario loaded", "scenario", scenarioID)
	return nil
}

// SeedDemo loads DefaultScenario when the store holds no client yet.
func (h *Handler) SeedDemo(ctx context.Context) error {
	existing, err := h.Store.ListClients(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		h.Logger.InfoContext(ctx, "demo seed skipped, store not empty", "clients", len(existing))
		return nil
	}
	return h.Seed(ctx, DefaultScenario)
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func eur(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func (h *Handler) loadFirstClientsScenario(ctx context.Context) error {
	paid := eur(1500)
	if _, err := h.Billing.CreateClient(ctx, billing.Client{
		ID:              "client-001",
		Name:            "Camille Martin",
		Email:           "camille@example.com",
		DealAmount:      eur(1500),
		PaymentMethod:   billing.PaymentOneShot,
		BillingPlatform: billing.PlatformMollie,
		ClosedBy:        billing.MemberA,
	}, &paid); err != nil {
		return err
	}

	deposit := eur(1000)
	if _, err := h.Billing.CreateClient(ctx, billing.Client{
		ID:              "client-002",
		Name:            "Lucas Bernard",
		Email:           "lucas@example.com",
		DealAmount:      eur(3000),
		PaymentMethod:   billing.Payment3x,
		BillingPlatform: billing.PlatformGoCardless,
		ClosedBy:        billing.MemberB,
	}, &deposit); err != nil {
		return err
	}

	none := decimal.Zero
	_, err := h.Billing.CreateClient(ctx, billing.Client{
		ID:              "client-003",
		Name:            "Emma Petit",
		Email:           "emma@example.com",
		DealAmount:      eur(4000),
		PaymentMethod:   billing.Payment4x,
		BillingPlatform: billing.PlatformRevolut,
		ClosedBy:        billing.MemberC,
		Notes:           "Starts next month",
	}, &none)
	return err
}

func (h *Handler) loadMonthCloseScenario(ctx context.Context) error {
	if err := h.loadFirstClientsScenario(ctx); err != nil {
		return err
	}

	// A setter-sourced deal with a custom split; first two installments in.
	first := eur(1200)
	detail, err := h.Billing.CreateClient(ctx, billing.Client{
		ID:                  "client-004",
		Name:                "Hugo Laurent",
		Email:               "hugo@example.com",
		DealAmount:          eur(2400),
		PaymentMethod:       billing.Payment2x,
		BillingPlatform:     billing.PlatformMollie,
		ClosedBy:            billing.MemberA,
		Setter:              billing.MemberC,
		SetterCommissionPct: decimal.NewFromInt(10),
		Distribution: billing.Distribution{
			billing.MemberA: decimal.NewFromInt(50),
			billing.MemberB: decimal.NewFromInt(30),
			billing.MemberC: decimal.NewFromInt(20),
		},
	}, &first)
	if err != nil {
		return err
	}
	for _, inst := range detail.Installments {
		if inst.Status != billing.StatusPaid {
			if _, _, err := h.Billing.SetInstallmentStatus(ctx, inst.ID, billing.StatusPaid); err != nil {
				return err
			}
		}
	}

	// Second 3x installment collected.
	lucas, err := h.Billing.GetClient(ctx, "client-002")
	if err != nil {
		return err
	}
	if len(lucas.Installments) > 1 {
		if _, _, err := h.Billing.SetInstallmentStatus(ctx, lucas.Installments[1].ID, billing.StatusPaid); err != nil {
			return err
		}
	}

	period := h.Billing.Now().Period()
	expenses := []billing.Expense{
		{ID: "expense-001", Name: "Video hosting", Amount: eur(49), Type: billing.ExpenseMonthly, Category: "software", PaidBy: billing.MemberA},
		{ID: "expense-002", Name: "Ads campaign", Amount: eur(600), Type: billing.ExpenseOneShot, Category: "marketing", PaidBy: billing.MemberB},
		{ID: "expense-003", Name: "Accountant", Amount: eur(150), Type: billing.ExpenseMonthly, Category: "admin"},
	}
	for _, e := range expenses {
		if _, err := h.Billing.CreateExpense(ctx, e); err != nil {
			return err
		}
	}
	for _, id := range []billing.ExpenseID{"expense-001", "expense-002"} {
		if _, err := h.Billing.DeductExpense(ctx, id, period); err != nil {
			return err
		}
	}
	return nil
}

func (h *Handler) loadSalesPipelineScenario(ctx context.Context) error {
	leads := []crm.Lead{
		{ID: "lead-001", Name: "Jade Moreau", Email: "jade@example.com", Provenance: crm.ProvenanceTally, Message: "Interested in the coaching program", Source: crm.SourceSetterInbound},
		{ID: "lead-002", Name: "Louis Simon", Email: "louis@example.com", Provenance: crm.ProvenanceDM, SocialMedia: "@louis.simon", Source: crm.SourceLinkedInNetwork},
		{ID: "lead-003", Name: "Chloe Michel", Email: "chloe@example.com", Provenance: crm.ProvenanceSkool, Source: crm.SourceLinkedInInbound},
	}
	for _, l := range leads {
		if _, err := h.CRM.CreateLead(ctx, l); err != nil {
			return err
		}
	}

	today := h.Billing.Now()
	contacts := []struct {
		contact crm.Contact
		moves   []crm.PipelineChange
	}{
		{
			contact: crm.Contact{ID: "contact-001", Name: "Jade Moreau", Email: "jade@example.com",
				JobStatus: crm.JobEmployee, Setter: billing.MemberC, Closer: billing.MemberA},
			moves: []crm.PipelineChange{
				{Status: crm.PipelineR1Scheduled, R1Date: today.AddDays(-10)},
				{Status: crm.PipelineR1Done, Notes: "Good fit"},
				{Status: crm.PipelineQualified},
				{Status: crm.PipelineR2Scheduled, R2Date: today.AddDays(-3)},
				{Status: crm.PipelineR2Done},
				{Status: crm.PipelineClosedWon, Notes: "Signed 3x"},
			},
		},
		{
			contact: crm.Contact{ID: "contact-002", Name: "Louis Simon", Email: "louis@example.com",
				JobStatus: crm.JobSelfEmployed, Setter: billing.MemberC, Closer: billing.MemberB},
			moves: []crm.PipelineChange{
				{Status: crm.PipelineR1Scheduled, R1Date: today.AddDays(2), Notes: "Call booked from DM"},
			},
		},
		{
			contact: crm.Contact{ID: "contact-003", Name: "Chloe Michel", Email: "chloe@example.com",
				JobStatus: crm.JobStudent, Status: crm.ContactNoBudget},
			moves: []crm.PipelineChange{
				{Status: crm.PipelineR1Scheduled, R1Date: today.AddDays(-5)},
				{Status: crm.PipelineNotQualified, Notes: "No budget this year"},
			},
		},
	}
	for _, c := range contacts {
		if _, err := h.CRM.CreateContact(ctx, c.contact); err != nil {
			return err
		}
		for _, m := range c.moves {
			if _, err := h.CRM.ChangePipelineStatus(ctx, c.contact.ID, m); err != nil {
				return err
			}
		}
	}

	_, err := h.CRM.ConvertToClient(ctx, "contact-001", crm.ConversionRequest{
		DealAmount:      eur(3600),
		PaymentMethod:   billing.Payment3x,
		BillingPlatform: billing.PlatformGoCardless,
	})
	return err
}

package api_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/crm-engine/api"
)

func TestScenarios_AllLoad(t *testing.T) {
	router, h := newTestAPI(t)

	rec := do(t, router, http.MethodGet, "/api/scenarios", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decodeBody[[]api.ScenarioDTO](t, rec)
	require.NotEmpty(t, list)

	for _, s := range list {
		t.Run(s.ID, func(t *testing.T) {
			require.NoError(t, h.Seed(context.Background(), s.ID))

			rec := do(t, router, http.MethodGet, "/api/scenarios/current", nil)
			assert.Equal(t, s.ID, decodeBody[api.ScenarioDTO](t, rec).ID)
		})
	}
}

func TestScenario_MonthClose(t *testing.T) {
	router, _ := newTestAPI(t)

	// WHEN: Loading the month-close scenario
	rec := do(t, router, http.MethodPost, "/api/scenarios/load", map[string]any{"scenario_id": "month-close"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// THEN: Four clients, two expenses deducted for the current month
	rec = do(t, router, http.MethodGet, "/api/clients", nil)
	assert.Len(t, decodeBody[[]api.ClientDTO](t, rec), 4)

	rec = do(t, router, http.MethodGet, "/api/deductions?period=2026-03", nil)
	assert.Len(t, decodeBody[[]api.DeductionDTO](t, rec), 2)

	rec = do(t, router, http.MethodGet, "/api/dispatch?period=2026-03", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	report := decodeBody[api.DispatchReportDTO](t, rec)
	assertDecimal(t, "649", report.DeductedTotal)
	assert.True(t, report.TotalToShare.IsPositive())
	assertDecimal(t, "240", report.SetterFees)
}

func TestScenario_SalesPipeline(t *testing.T) {
	router, _ := newTestAPI(t)

	rec := do(t, router, http.MethodPost, "/api/scenarios/load", map[string]any{"scenario_id": "sales-pipeline"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, router, http.MethodGet, "/api/dashboard", nil)
	dash := decodeBody[api.DashboardDTO](t, rec)
	assert.Equal(t, 3, dash.Leads)
	assert.Equal(t, 3, dash.Contacts)
	assert.Equal(t, 1, dash.Clients)
	assert.Equal(t, 1, dash.Pipeline["closed_won"])
	assert.Equal(t, 1, dash.Pipeline["not_qualified"])

	rec = do(t, router, http.MethodGet, "/api/contacts/contact-001/pipeline", nil)
	assert.Len(t, decodeBody[[]api.PipelineEntryDTO](t, rec), 6)
}

func TestLoadScenario_Unknown(t *testing.T) {
	router, _ := newTestAPI(t)

	rec := do(t, router, http.MethodPost, "/api/scenarios/load", map[string]any{"scenario_id": "nope"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestResetDatabase(t *testing.T) {
	router, h := newTestAPI(t)
	require.NoError(t, h.Seed(context.Background(), "first-clients"))

	rec := do(t, router, http.MethodPost, "/api/scenarios/reset", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, router, http.MethodGet, "/api/clients", nil)
	assert.Empty(t, decodeBody[[]api.ClientDTO](t, rec))
	rec = do(t, router, http.MethodGet, "/api/scenarios/current", nil)
	assert.Equal(t, "null", trimNewline(rec.Body.String()))
}

func TestSeedDemo_SkipsNonEmptyStore(t *testing.T) {
	router, h := newTestAPI(t)
	ctx := context.Background()

	// GIVEN: A store with one client
	createClient(t, router, map[string]any{"name": "Existing", "deal_amount": 100})

	// WHEN: Seeding the demo
	require.NoError(t, h.SeedDemo(ctx))

	// THEN: Nothing was loaded
	rec := do(t, router, http.MethodGet, "/api/clients", nil)
	assert.Len(t, decodeBody[[]api.ClientDTO](t, rec), 1)

	// An empty store gets the default scenario
	require.NoError(t, h.Store.Reset(ctx))
	require.NoError(t, h.SeedDemo(ctx))
	rec = do(t, router, http.MethodGet, "/api/scenarios/current", nil)
	assert.Equal(t, api.DefaultScenario, decodeBody[api.ScenarioDTO](t, rec).ID)
}

func trimNewline(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}

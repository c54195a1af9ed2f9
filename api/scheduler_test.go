package api_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/crm-engine/api"
)

func TestDeductionScheduler_RunNowIsIdempotent(t *testing.T) {
	router, h := newTestAPI(t)

	// GIVEN: One monthly and one one-shot expense
	for _, body := range []map[string]any{
		{"name": "Hosting", "amount": 49, "type": "monthly"},
		{"name": "Laptop", "amount": 1200, "type": "one_shot"},
	} {
		rec := do(t, router, http.MethodPost, "/api/expenses", body)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	scheduler := api.NewDeductionScheduler(h)

	// WHEN: Running twice in the same month
	assert.Equal(t, 1, scheduler.RunNow(context.Background()))
	assert.Equal(t, 0, scheduler.RunNow(context.Background()))

	// THEN: Only the monthly expense is in the log, once
	rec := do(t, router, http.MethodGet, "/api/deductions?period=2026-03", nil)
	log := decodeBody[[]api.DeductionDTO](t, rec)
	require.Len(t, log, 1)
}

func TestDeductionScheduler_StartStop(t *testing.T) {
	_, h := newTestAPI(t)
	scheduler := api.NewDeductionScheduler(h)

	scheduler.Start()
	scheduler.Stop()
	// Stopping twice is safe
	scheduler.Stop()

	disabled := api.NewDeductionScheduler(h)
	disabled.Enabled = false
	disabled.Start()
	disabled.Stop()
}

func TestTriggerMonthlyDeductions(t *testing.T) {
	router, _ := newTestAPI(t)
	rec := do(t, router, http.MethodPost, "/api/expenses", map[string]any{
		"name": "Accountant", "amount": 150, "type": "monthly", "date": "2026-02-01",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// A month before the expense started deducts nothing
	rec = do(t, router, http.MethodPost, "/api/deductions/monthly", map[string]any{"period": "2026-01"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.EqualValues(t, 0, decodeBody[map[string]any](t, rec)["deducted"])

	rec = do(t, router, http.MethodPost, "/api/deductions/monthly", map[string]any{"period": "2026-02"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, decodeBody[map[string]any](t, rec)["deducted"])

	// No period means the current month
	rec = do(t, router, http.MethodPost, "/api/deductions/monthly", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody[map[string]any](t, rec)
	assert.Equal(t, "2026-03", body["period"])
	assert.EqualValues(t, 1, body["deducted"])
}

package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/crm-engine/billing"
	"github.com/warp/crm-engine/crm"
	"github.com/warp/crm-engine/store/memory"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestWithTxRollsBack(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	require.NoError(t, st.SaveClient(ctx, billing.Client{ID: "c1", Name: "Before"}))

	// WHEN: A transaction writes then fails
	boom := errors.New("boom")
	err := st.WithTx(ctx, func(tx billing.Store) error {
		require.NoError(t, tx.SaveClient(ctx, billing.Client{ID: "c1", Name: "After"}))
		require.NoError(t, tx.SaveClient(ctx, billing.Client{ID: "c2", Name: "New"}))
		cs := tx.(crm.Store)
		require.NoError(t, cs.SaveLead(ctx, crm.Lead{ID: "l1"}))
		return boom
	})

	// THEN: Nothing it wrote survives
	assert.ErrorIs(t, err, boom)
	got, err := st.GetClient(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "Before", got.Name)
	missing, err := st.GetClient(ctx, "c2")
	require.NoError(t, err)
	assert.Nil(t, missing)
	lead, err := st.GetLead(ctx, "l1")
	require.NoError(t, err)
	assert.Nil(t, lead)
}

func TestReturnedRecordsAreCopies(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	require.NoError(t, st.SaveClient(ctx, billing.Client{
		ID: "c1", Distribution: billing.Distribution{billing.MemberA: dec("100")},
	}))

	got, err := st.GetClient(ctx, "c1")
	require.NoError(t, err)
	got.Distribution[billing.MemberA] = dec("0")

	again, err := st.GetClient(ctx, "c1")
	require.NoError(t, err)
	assert.True(t, again.Distribution[billing.MemberA].Equal(dec("100")))
}

func TestInstallmentFiltersAndOrder(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	require.NoError(t, st.InsertInstallments(ctx, []billing.Installment{
		{ID: "i2", ClientID: "c1", Position: 2, DueDate: billing.NewDate(2026, 2, 1), Status: billing.StatusPending},
		{ID: "i1", ClientID: "c1", Position: 1, DueDate: billing.NewDate(2026, 1, 1), Status: billing.StatusPaid},
		{ID: "i3", ClientID: "c2", Position: 1, DueDate: billing.NewDate(2026, 1, 1), Status: billing.StatusPaid, IsDispatched: true},
	}))

	all, err := st.ListInstallments(ctx, billing.InstallmentFilter{ClientID: "c1"})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, billing.InstallmentID("i1"), all[0].ID)

	no := false
	pending, err := st.ListInstallments(ctx, billing.InstallmentFilter{Status: billing.StatusPaid, Dispatched: &no})
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, billing.InstallmentID("i1"), pending[0].ID)

	assert.ErrorIs(t, st.UpdateInstallment(ctx, billing.Installment{ID: "nope"}), billing.ErrInstallmentNotFound)

	require.NoError(t, st.DeleteInstallments(ctx, "c1"))
	all, err = st.ListInstallments(ctx, billing.InstallmentFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestExpensesAndDeductions(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	now := time.Now()
	require.NoError(t, st.SaveExpense(ctx, billing.Expense{ID: "e1", Name: "Hosting", Category: "Infra", Type: billing.ExpenseMonthly, Date: billing.NewDate(2026, 1, 1), CreatedAt: now}))
	require.NoError(t, st.SaveExpense(ctx, billing.Expense{ID: "e2", Name: "Laptop", Type: billing.ExpenseOneShot, Date: billing.NewDate(2026, 2, 1), IsDeducted: true, CreatedAt: now}))

	// Newest first, search covers the category
	all, err := st.ListExpenses(ctx, billing.ExpenseFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, billing.ExpenseID("e2"), all[0].ID)

	found, err := st.ListExpenses(ctx, billing.ExpenseFilter{Search: "infra"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, billing.ExpenseID("e1"), found[0].ID)

	yes := true
	flagged, err := st.ListExpenses(ctx, billing.ExpenseFilter{Deducted: &yes})
	require.NoError(t, err)
	require.Len(t, flagged, 1)
	assert.Equal(t, billing.ExpenseID("e2"), flagged[0].ID)

	jan := billing.Period{Year: 2026, Month: time.January}
	feb := billing.Period{Year: 2026, Month: time.February}
	require.NoError(t, st.InsertDeduction(ctx, billing.Deduction{ID: "d2", ExpenseID: "e1", Period: feb}))
	require.NoError(t, st.InsertDeduction(ctx, billing.Deduction{ID: "d1", ExpenseID: "e1", Period: jan}))
	assert.ErrorIs(t, st.InsertDeduction(ctx, billing.Deduction{ID: "d3", ExpenseID: "e1", Period: jan}), billing.ErrDuplicateDeduction)

	log, err := st.ListDeductions(ctx, billing.DeductionFilter{ExpenseID: "e1"})
	require.NoError(t, err)
	require.Len(t, log, 2)
	assert.Equal(t, jan, log[0].Period)

	require.NoError(t, st.DeleteDeduction(ctx, "e1", jan))
	log, err = st.ListDeductions(ctx, billing.DeductionFilter{Period: &jan})
	require.NoError(t, err)
	assert.Empty(t, log)
}

func TestLeadsContactsPipeline(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	require.NoError(t, st.SaveLead(ctx, crm.Lead{ID: "l1", Email: "Jane@Example.com"}))
	require.NoError(t, st.SaveContact(ctx, crm.Contact{ID: "c1", LeadID: "l1", Name: "Jane", Source: "s-i"}))

	bySource, err := st.ListContacts(ctx, crm.ContactFilter{Sources: []string{"s-l-n"}})
	require.NoError(t, err)
	assert.Empty(t, bySource)
	bySource, err = st.ListContacts(ctx, crm.ContactFilter{Sources: []string{"s-l-n", "s-i"}})
	require.NoError(t, err)
	assert.Len(t, bySource, 1)

	lead, err := st.FindLeadByEmail(ctx, " jane@example.com")
	require.NoError(t, err)
	require.NotNil(t, lead)
	assert.Equal(t, crm.LeadID("l1"), lead.ID)
	none, err := st.FindLeadByEmail(ctx, "")
	require.NoError(t, err)
	assert.Nil(t, none)

	require.NoError(t, st.AppendPipelineEntry(ctx, crm.PipelineEntry{ID: "p1", ContactID: "c1", Status: crm.PipelineR1Done}))

	// A failed transaction does not leak a notes edit
	err = st.WithTx(ctx, func(tx billing.Store) error {
		require.NoError(t, tx.(crm.Store).UpdatePipelineNotes(ctx, "p1", "edited"))
		return errors.New("abort")
	})
	require.Error(t, err)
	entry, err := st.GetPipelineEntry(ctx, "p1")
	require.NoError(t, err)
	assert.Empty(t, entry.Notes)

	assert.ErrorIs(t, st.UpdatePipelineNotes(ctx, "nope", "x"), crm.ErrPipelineEntryNotFound)

	// Deleting the lead unlinks the contact
	require.NoError(t, st.DeleteLead(ctx, "l1"))
	c, err := st.GetContact(ctx, "c1")
	require.NoError(t, err)
	assert.Empty(t, c.LeadID)

	// Deleting the contact drops its history
	require.NoError(t, st.DeleteContact(ctx, "c1"))
	history, err := st.ListPipelineEntries(ctx, "c1")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestReset(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	require.NoError(t, st.SaveClient(ctx, billing.Client{ID: "c1"}))
	require.NoError(t, st.SaveLead(ctx, crm.Lead{ID: "l1"}))

	require.NoError(t, st.Reset(ctx))

	clients, err := st.ListClients(ctx)
	require.NoError(t, err)
	assert.Empty(t, clients)
	leads, err := st.ListLeads(ctx)
	require.NoError(t, err)
	assert.Empty(t, leads)
}

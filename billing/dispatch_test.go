package billing_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/crm-engine/billing"
)

func dispatchInput(insts []billing.Installment, clients ...billing.Client) billing.DispatchInput {
	in := billing.DispatchInput{
		Installments:       insts,
		Clients:            make(map[billing.ClientID]billing.Client),
		ClientInstallments: make(map[billing.ClientID][]billing.Installment),
	}
	for _, c := range clients {
		in.Clients[c.ID] = c
	}
	for _, inst := range insts {
		in.ClientInstallments[inst.ClientID] = append(in.ClientInstallments[inst.ClientID], inst)
	}
	return in
}

func payout(t *testing.T, r billing.DispatchReport, m billing.TeamMember) billing.MemberPayout {
	t.Helper()
	for _, p := range r.Members {
		if p.Member == m {
			return p
		}
	}
	t.Fatalf("no payout for %s", m)
	return billing.MemberPayout{}
}

func TestAggregateDispatch_PoolAndReimbursements(t *testing.T) {
	// GIVEN: One paid installment of 1000 on Mollie, an unpaid one and a
	// dispatched one that must both be ignored
	client := billing.Client{ID: "c1", DealAmount: dec("2500"), BillingPlatform: billing.PlatformMollie}
	paid := installment("i1", 1, "1000", start)
	unpaid := installment("i2", 2, "1000", start.AddDays(30))
	unpaid.Status = billing.StatusInTransit
	done := installment("i3", 3, "500", start.AddDays(60))
	done.IsDispatched = true

	in := dispatchInput([]billing.Installment{paid, unpaid, done}, client)
	in.DeductedExpenses = []billing.Expense{
		{ID: "e1", Amount: dec("100"), PaidBy: billing.MemberB},
	}

	// WHEN
	report := billing.AggregateDispatch(in, billing.DefaultRateBook())

	// THEN: pool = (980 - 100) * 0.70 = 616
	require.Len(t, report.Lines, 1)
	assertDec(t, "1000", report.GrossTotal)
	assertDec(t, "20", report.PlatformFees)
	assertDec(t, "980", report.NetTotal)
	assertDec(t, "100", report.DeductedTotal)
	assertDec(t, "616", report.TotalToShare)

	a := payout(t, report, billing.MemberA)
	assertDec(t, "205.3128", a.Share)
	assertDec(t, "0", a.Reimbursement)

	b := payout(t, report, billing.MemberB)
	assertDec(t, "100", b.Reimbursement)
	assertDec(t, "305.3128", b.Total)

	c := payout(t, report, billing.MemberC)
	assertDec(t, "205.3744", c.Share)
}

func TestAggregateDispatch_PoolClampsAtZero(t *testing.T) {
	// GIVEN: Expenses larger than the profit
	client := billing.Client{ID: "c1", DealAmount: dec("100"), BillingPlatform: billing.PlatformMollie}
	in := dispatchInput([]billing.Installment{installment("i1", 1, "100", start)}, client)
	in.DeductedExpenses = []billing.Expense{
		{ID: "e1", Amount: dec("500"), PaidBy: billing.MemberA},
	}

	report := billing.AggregateDispatch(in, billing.DefaultRateBook())

	// THEN: Nobody gets a share but the payer is still reimbursed
	assertDec(t, "0", report.TotalToShare)
	a := payout(t, report, billing.MemberA)
	assertDec(t, "0", a.Share)
	assertDec(t, "500", a.Total)
}

func TestAggregateDispatch_Empty(t *testing.T) {
	report := billing.AggregateDispatch(dispatchInput(nil), billing.DefaultRateTable())

	assert.Empty(t, report.Lines)
	assertDec(t, "0", report.TotalToShare)
	assert.Len(t, report.Members, 3)
	assert.Equal(t, billing.DefaultRateTable().DefaultDistribution, report.Distribution)
}

func TestAggregateDispatch_RepresentativeDistribution(t *testing.T) {
	// GIVEN: The first listed client has its own split
	custom := billing.Distribution{billing.MemberA: dec("50"), billing.MemberB: dec("50")}
	first := billing.Client{ID: "c1", DealAmount: dec("1000"), Distribution: custom}
	second := billing.Client{ID: "c2", DealAmount: dec("1000")}
	i1 := installment("i1", 1, "1000", start)
	i2 := installment("i2", 1, "1000", start)
	i2.ClientID = "c2"

	report := billing.AggregateDispatch(dispatchInput([]billing.Installment{i1, i2}, first, second), billing.DefaultRateBook())

	// THEN: The whole pool follows the first client's split
	assert.Equal(t, custom, report.Distribution)
	assertDec(t, "1372", report.TotalToShare) // (980 + 980) * 0.70
	assertDec(t, "686", payout(t, report, billing.MemberA).Share)
	assertDec(t, "0", payout(t, report, billing.MemberC).Share)
}

func TestAggregateDispatch_MembersOverride(t *testing.T) {
	client := billing.Client{ID: "c1", DealAmount: dec("1000")}
	in := dispatchInput([]billing.Installment{installment("i1", 1, "1000", start)}, client)
	in.Members = []billing.TeamMember{billing.MemberA}

	report := billing.AggregateDispatch(in, billing.DefaultRateBook())

	require.Len(t, report.Members, 1)
	assert.Equal(t, billing.MemberA, report.Members[0].Member)
}

func TestPendingInstallments(t *testing.T) {
	paid := installment("i1", 1, "10", start)
	pending := installment("i2", 2, "10", start)
	pending.Status = billing.StatusPending
	dispatched := installment("i3", 3, "10", start)
	dispatched.IsDispatched = true

	got := billing.PendingInstallments([]billing.Installment{paid, pending, dispatched})
	require.Len(t, got, 1)
	assert.Equal(t, billing.InstallmentID("i1"), got[0].ID)
}

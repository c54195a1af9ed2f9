/*
dispatch.go - Partner payout aggregation

PURPOSE:
  Collects every paid installment not yet dispatched, nets out fees and the
  deducted expenses, and splits what remains among the partners. Whoever
  advanced a deducted expense gets it back on top of their share.

POOL:
  totalToShare = max(0, (sum(gross - platform - setter) - deducted) * share)

  The clamp keeps the pool at zero when deductions exceed profit; the
  reimbursements are still paid in that case.

DISTRIBUTION:
  The split of the first listed installment's client is used for the whole
  pool, falling back to the roster default. Per-client splits are visible in
  the per-line breakdown (FeeBreakdown.PerMember).

SEE ALSO:
  - fees.go: Per-installment breakdown
  - service.go: Loads the inputs and settles the dispatch
*/
package billing

import (
	"github.com/shopspring/decimal"
)

// DispatchInput is everything AggregateDispatch needs.
type DispatchInput struct {
	// Installments to dispatch. Entries that are not paid, or already
	// dispatched, are ignored.
	Installments []Installment

	Clients map[ClientID]Client

	// ClientInstallments is every installment per client, used to find
	// which installment carries the setter fee.
	ClientInstallments map[ClientID][]Installment

	DeductedExpenses []Expense

	// Members overrides the roster of the current rate table.
	Members []TeamMember
}

// DispatchLine is one installment in the report.
type DispatchLine struct {
	Installment Installment
	Client      Client
	Fees        FeeBreakdown
}

// MemberPayout is what one partner receives.
type MemberPayout struct {
	Member        TeamMember
	Percentage    decimal.Decimal
	Share         decimal.Decimal
	Reimbursement decimal.Decimal
	Total         decimal.Decimal
}

// DispatchReport is the result of AggregateDispatch.
type DispatchReport struct {
	Lines         []DispatchLine
	GrossTotal    decimal.Decimal
	PlatformFees  decimal.Decimal
	SetterFees    decimal.Decimal
	NetTotal      decimal.Decimal // gross minus fees
	DeductedTotal decimal.Decimal
	TotalToShare  decimal.Decimal
	Distribution  Distribution
	Members       []MemberPayout
	RatesVersion  string
}

// AggregateDispatch computes the partner pool and payouts.
func AggregateDispatch(in DispatchInput, rates Rates) DispatchReport {
	current := rates.Current()
	report := DispatchReport{
		GrossTotal:    decimal.Zero,
		PlatformFees:  decimal.Zero,
		SetterFees:    decimal.Zero,
		NetTotal:      decimal.Zero,
		DeductedTotal: decimal.Zero,
		RatesVersion:  current.Version,
	}

	var representative *Client
	for _, inst := range in.Installments {
		if !inst.Status.IsPaid() || inst.IsDispatched {
			continue
		}
		client := in.Clients[inst.ClientID]
		if representative == nil {
			c := client
			representative = &c
		}
		siblings := in.ClientInstallments[inst.ClientID]
		fees := ComputeFees(inst, client, siblings, rates.For(inst.DueDate))

		report.Lines = append(report.Lines, DispatchLine{Installment: inst, Client: client, Fees: fees})
		report.GrossTotal = report.GrossTotal.Add(fees.Gross)
		report.PlatformFees = report.PlatformFees.Add(fees.PlatformFee)
		report.SetterFees = report.SetterFees.Add(fees.SetterFee)
		report.NetTotal = report.NetTotal.Add(fees.Net)
	}

	reimbursements := make(map[TeamMember]decimal.Decimal)
	for _, e := range in.DeductedExpenses {
		report.DeductedTotal = report.DeductedTotal.Add(e.Amount)
		reimbursements[e.PaidBy] = reimbursements[e.PaidBy].Add(e.Amount)
	}

	pool := report.NetTotal.Sub(report.DeductedTotal).Mul(current.DistributableShare)
	if pool.IsNegative() {
		pool = decimal.Zero
	}
	report.TotalToShare = pool

	dist := current.DefaultDistribution
	if representative != nil {
		dist = ResolveDistribution(*representative, current)
	}
	report.Distribution = dist

	members := in.Members
	if len(members) == 0 {
		members = current.Roster
	}
	for _, m := range members {
		pct := dist[m]
		share := pool.Mul(pct).Div(hundred)
		reimb := reimbursements[m]
		report.Members = append(report.Members, MemberPayout{
			Member:        m,
			Percentage:    pct,
			Share:         share,
			Reimbursement: reimb,
			Total:         share.Add(reimb),
		})
	}
	return report
}

// PendingInstallments filters the paid installments that still await dispatch.
func PendingInstallments(insts []Installment) []Installment {
	var out []Installment
	for _, inst := range insts {
		if inst.Status.IsPaid() && !inst.IsDispatched {
			out = append(out, inst)
		}
	}
	return out
}

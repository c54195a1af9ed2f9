package billing

import (
	"github.com/shopspring/decimal"
)

// Summary holds the headline figures of the billing view.
type Summary struct {
	SignedRevenue     decimal.Decimal // sum of deal amounts
	Collected         decimal.Decimal // sum of paid installments
	Outstanding       decimal.Decimal
	TotalExpenses     decimal.Decimal
	SetterCommissions decimal.Decimal
	NetBenefit        decimal.Decimal

	ClientCount       int
	InstallmentCount  int
	PendingDispatch   int
	PendingDispatchCA decimal.Decimal
}

// Summarize computes the KPIs. Clients are counted once even if listed twice.
func Summarize(clients []Client, insts []Installment, expenses []Expense) Summary {
	s := Summary{
		SignedRevenue:     decimal.Zero,
		Collected:         decimal.Zero,
		TotalExpenses:     decimal.Zero,
		SetterCommissions: decimal.Zero,
		PendingDispatchCA: decimal.Zero,
	}

	seen := make(map[ClientID]bool, len(clients))
	for _, c := range clients {
		if seen[c.ID] {
			continue
		}
		seen[c.ID] = true
		s.ClientCount++
		s.SignedRevenue = s.SignedRevenue.Add(c.DealAmount)
		s.SetterCommissions = s.SetterCommissions.Add(c.SetterCommission())
	}

	for _, inst := range insts {
		s.InstallmentCount++
		if !inst.Status.IsPaid() {
			continue
		}
		s.Collected = s.Collected.Add(inst.Amount)
		if !inst.IsDispatched {
			s.PendingDispatch++
			s.PendingDispatchCA = s.PendingDispatchCA.Add(inst.Amount)
		}
	}

	for _, e := range expenses {
		s.TotalExpenses = s.TotalExpenses.Add(e.Amount)
	}

	s.Outstanding = s.SignedRevenue.Sub(s.Collected)
	if s.Outstanding.IsNegative() {
		s.Outstanding = decimal.Zero
	}
	s.NetBenefit = s.Collected.Sub(s.TotalExpenses).Sub(s.SetterCommissions)
	return s
}

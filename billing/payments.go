package billing

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// AMOUNT PAID BOOKKEEPING
// =============================================================================

// PaidDelta is the change to a client's amount paid when inst moves to next:
// +amount when it becomes paid, -amount when it stops being paid, else 0.
func PaidDelta(inst Installment, next InstallmentStatus) decimal.Decimal {
	wasPaid := inst.Status.IsPaid()
	isPaid := next.IsPaid()
	switch {
	case !wasPaid && isPaid:
		return inst.Amount
	case wasPaid && !isPaid:
		return inst.Amount.Neg()
	default:
		return decimal.Zero
	}
}

// SumPaid totals the paid installments.
func SumPaid(insts []Installment) decimal.Decimal {
	total := decimal.Zero
	for _, inst := range insts {
		if inst.Status.IsPaid() {
			total = total.Add(inst.Amount)
		}
	}
	return total
}

// SumAmounts totals every installment regardless of status.
func SumAmounts(insts []Installment) decimal.Decimal {
	total := decimal.Zero
	for _, inst := range insts {
		total = total.Add(inst.Amount)
	}
	return total
}

// EffectiveAmountPaid is what the client has paid so far: the paid
// installments when a schedule exists, the stored amount otherwise.
func EffectiveAmountPaid(c Client, insts []Installment) decimal.Decimal {
	if len(insts) > 0 {
		return SumPaid(insts)
	}
	return c.AmountPaid
}

// AllDispatched reports whether every installment has been dispatched.
// A client without installments is not dispatched.
func AllDispatched(insts []Installment) bool {
	if len(insts) == 0 {
		return false
	}
	for _, inst := range insts {
		if !inst.IsDispatched {
			return false
		}
	}
	return true
}

// NextDueDate is the earliest due date among pending installments, or the
// zero Date when nothing is pending.
func NextDueDate(insts []Installment) Date {
	var next Date
	for _, i := range insts {
		if i.Status != StatusPending {
			continue
		}
		if next.IsZero() || i.DueDate.Before(next) {
			next = i.DueDate
		}
	}
	return next
}

/*
schedule.go - Installment schedule generation

PURPOSE:
  Turns a deal (amount, payment method, amount already collected) into the
  list of installments the client owes. The caller persists the result; this
  file never touches a store.

RULES:
  one_shot: a single installment of the full deal, due on the start date,
            paid when the amount already collected covers the deal.
  2x/3x/4x: installment 1 carries what was already collected (possibly 0)
            and is paid. The balance is split evenly over the remaining
            installments, due every 30 days after the start date.

ROUNDING:
  Each split is rounded to cents and the last installment absorbs the
  residue, so the amounts always add up to the deal exactly.

  deal=100, 4x, already paid=0:
    [0 (paid), 33.33, 33.33, 33.34]

SEE ALSO:
  - service.go: Regenerates schedules inside a store transaction
  - payments.go: Amount-paid bookkeeping on status changes
*/
package billing

import (
	"github.com/shopspring/decimal"
)

// InstallmentInterval is the gap between two scheduled installments.
const InstallmentInterval = 30

// ScheduleInput describes the deal to schedule.
type ScheduleInput struct {
	DealAmount  decimal.Decimal
	Method      PaymentMethod
	AlreadyPaid decimal.Decimal
	Start       Date
}

// GenerateSchedule produces the installments for a deal. The returned
// installments carry Position, Amount, DueDate and Status; IDs and ClientID
// are left for the caller to assign.
func GenerateSchedule(in ScheduleInput) ([]Installment, error) {
	n, err := in.Method.Installments()
	if err != nil {
		return nil, &ValidationError{Field: "payment_method", Err: err}
	}
	if in.DealAmount.IsNegative() {
		return nil, &ValidationError{Field: "deal_amount", Err: ErrNegativeAmount}
	}
	if in.AlreadyPaid.IsNegative() {
		return nil, &ValidationError{Field: "already_paid", Err: ErrNegativeAmount}
	}
	start := in.Start
	if start.IsZero() {
		start = Today()
	}

	if n == 1 {
		status := StatusPending
		if in.AlreadyPaid.GreaterThanOrEqual(in.DealAmount) {
			status = StatusPaid
		}
		return []Installment{{
			Position: 1,
			Amount:   in.DealAmount,
			DueDate:  start,
			Status:   status,
		}}, nil
	}

	if in.AlreadyPaid.GreaterThan(in.DealAmount) {
		return nil, &ValidationError{Field: "already_paid", Err: ErrOverpaid}
	}

	plan := make([]Installment, 0, n)
	plan = append(plan, Installment{
		Position: 1,
		Amount:   in.AlreadyPaid,
		DueDate:  start,
		Status:   StatusPaid,
	})

	remaining := in.DealAmount.Sub(in.AlreadyPaid)
	parts := SplitEvenly(remaining, n-1)
	for i, amount := range parts {
		plan = append(plan, Installment{
			Position: i + 2,
			Amount:   amount,
			DueDate:  start.AddDays(InstallmentInterval * (i + 1)),
			Status:   StatusPending,
		})
	}
	return plan, nil
}

// SplitEvenly divides total into n cent-rounded parts; the last part takes
// whatever rounding left over.
func SplitEvenly(total decimal.Decimal, n int) []decimal.Decimal {
	if n <= 0 {
		return nil
	}
	each := total.Div(decimal.NewFromInt(int64(n))).Round(2)
	parts := make([]decimal.Decimal, n)
	allocated := decimal.Zero
	for i := 0; i < n-1; i++ {
		parts[i] = each
		allocated = allocated.Add(each)
	}
	parts[n-1] = total.Sub(allocated)
	return parts
}

// DefaultInitialPayment is what a converting contact is assumed to pay up
// front: one even share of the deal, rounded to cents.
func DefaultInitialPayment(deal decimal.Decimal, method PaymentMethod) (decimal.Decimal, error) {
	n, err := method.Installments()
	if err != nil {
		return decimal.Zero, err
	}
	return deal.Div(decimal.NewFromInt(int64(n))).Round(2), nil
}

/*
Package billing provides the client billing and commission engine.

PURPOSE:
  This package holds the records the CRM bills against (clients, installments,
  expenses, deduction log entries) and the pure calculators that work on them:
  schedule generation, fee computation, dispatch aggregation and summary KPIs.
  Persistence and HTTP live elsewhere; everything here operates on plain values.

KEY CONCEPTS IN THIS FILE (types.go):
  - Client: a closed deal with its payment configuration and commission split
  - Installment: one scheduled cash event of a client
  - Expense / Deduction: shared costs and their per-month deduction log
  - TeamMember / Distribution: who shares the profit and in which proportion

DESIGN PRINCIPLES:
  1. Precision: every amount is a decimal.Decimal, never a float
  2. Type Safety: distinct ID types prevent mixing clients and installments
  3. Purity: calculators take their inputs explicitly (including rates and dates)

USAGE:
  client := billing.Client{
      DealAmount:      decimal.NewFromInt(1000),
      PaymentMethod:   billing.Payment3x,
      BillingPlatform: billing.PlatformMollie,
  }
  plan, err := billing.GenerateSchedule(billing.ScheduleInput{...})

SEE ALSO:
  - schedule.go: Installment schedule generation
  - fees.go: Platform/setter fee computation
  - dispatch.go: Profit pool aggregation
  - rates.go: Versioned business constants
*/
package billing

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type ClientID string
type InstallmentID string
type ExpenseID string
type DeductionID string

func NewClientID() ClientID           { return ClientID(uuid.NewString()) }
func NewInstallmentID() InstallmentID { return InstallmentID(uuid.NewString()) }
func NewExpenseID() ExpenseID         { return ExpenseID(uuid.NewString()) }
func NewDeductionID() DeductionID     { return DeductionID(uuid.NewString()) }

// =============================================================================
// ENUMERATIONS
// =============================================================================

// PaymentMethod is the number of installments a deal is paid in.
type PaymentMethod string

const (
	PaymentOneShot PaymentMethod = "one_shot"
	Payment2x      PaymentMethod = "2x"
	Payment3x      PaymentMethod = "3x"
	Payment4x      PaymentMethod = "4x"
)

// Installments returns the installment count for the method.
func (m PaymentMethod) Installments() (int, error) {
	switch m {
	case PaymentOneShot:
		return 1, nil
	case Payment2x:
		return 2, nil
	case Payment3x:
		return 3, nil
	case Payment4x:
		return 4, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidPaymentMethod, string(m))
}

// ParsePaymentMethod accepts the canonical values plus the hyphenated
// "one-shot" and "1x" spellings used by older exports.
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "one_shot", "one-shot", "oneshot", "1x":
		return PaymentOneShot, nil
	case "2x":
		return Payment2x, nil
	case "3x":
		return Payment3x, nil
	case "4x":
		return Payment4x, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidPaymentMethod, s)
}

// BillingPlatform is the payment processor that collects a client's money.
type BillingPlatform string

const (
	PlatformMollie     BillingPlatform = "mollie"
	PlatformGoCardless BillingPlatform = "gocardless"
	PlatformRevolut    BillingPlatform = "revolut"

	DefaultPlatform = PlatformMollie
)

// ParseBillingPlatform is case-insensitive; empty input selects DefaultPlatform.
func ParseBillingPlatform(s string) (BillingPlatform, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return DefaultPlatform, nil
	case "mollie":
		return PlatformMollie, nil
	case "gocardless":
		return PlatformGoCardless, nil
	case "revolut":
		return PlatformRevolut, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidPlatform, s)
}

// InstallmentStatus tracks an installment's cash collection.
type InstallmentStatus string

const (
	StatusPending   InstallmentStatus = "pending"
	StatusInTransit InstallmentStatus = "in_transit"
	StatusPaid      InstallmentStatus = "paid"
)

func (s InstallmentStatus) IsPaid() bool { return s == StatusPaid }

func ParseInstallmentStatus(s string) (InstallmentStatus, error) {
	switch InstallmentStatus(strings.ToLower(strings.TrimSpace(s))) {
	case StatusPending:
		return StatusPending, nil
	case StatusInTransit, "in-transit":
		return StatusInTransit, nil
	case StatusPaid:
		return StatusPaid, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
}

// ExpenseType distinguishes recurring costs from one-off purchases.
type ExpenseType string

const (
	ExpenseOneShot ExpenseType = "one_shot"
	ExpenseMonthly ExpenseType = "monthly"
)

func ParseExpenseType(s string) (ExpenseType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "one_shot", "one-shot", "":
		return ExpenseOneShot, nil
	case "monthly":
		return ExpenseMonthly, nil
	}
	return "", fmt.Errorf("%w: expense type %q", ErrInvalidInput, s)
}

// =============================================================================
// TEAM
// =============================================================================

// TeamMember identifies a partner who receives a share of the profit.
type TeamMember string

// Distribution maps each member to a percentage (0-100) of distributable profit.
type Distribution map[TeamMember]decimal.Decimal

// Sum returns the total of all percentages.
func (d Distribution) Sum() decimal.Decimal {
	total := decimal.Zero
	for _, pct := range d {
		total = total.Add(pct)
	}
	return total
}

// Members returns the members of d ordered by roster position, then by name
// for members the roster does not list.
func (d Distribution) Members(roster []TeamMember) []TeamMember {
	seen := make(map[TeamMember]bool, len(d))
	out := make([]TeamMember, 0, len(d))
	for _, m := range roster {
		if _, ok := d[m]; ok && !seen[m] {
			out = append(out, m)
			seen[m] = true
		}
	}
	var extra []TeamMember
	for m := range d {
		if !seen[m] {
			extra = append(extra, m)
		}
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i] < extra[j] })
	return append(out, extra...)
}

// Clone returns an independent copy.
func (d Distribution) Clone() Distribution {
	if d == nil {
		return nil
	}
	out := make(Distribution, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// =============================================================================
// RECORDS
// =============================================================================

// Client is a closed deal. It is created when a contact converts to a sale.
type Client struct {
	ID                  ClientID
	ContactID           string
	Name                string
	Email               string
	Phone               string
	DealAmount          decimal.Decimal
	AmountPaid          decimal.Decimal
	PaymentMethod       PaymentMethod
	BillingPlatform     BillingPlatform
	ClosedBy            TeamMember
	Setter              TeamMember
	SetterCommissionPct decimal.Decimal
	Distribution        Distribution
	IsDispatched        bool
	Notes               string
	CreatedAt           time.Time
}

// HasSetterCommission reports whether a setter fee applies to this client.
func (c Client) HasSetterCommission() bool { return c.SetterCommissionPct.IsPositive() }

// SetterCommission is the one-time setter fee, sized on the whole deal.
func (c Client) SetterCommission() decimal.Decimal {
	if !c.HasSetterCommission() {
		return decimal.Zero
	}
	return c.DealAmount.Mul(c.SetterCommissionPct).Div(hundred)
}

// Installment is one scheduled payment of a client.
type Installment struct {
	ID           InstallmentID
	ClientID     ClientID
	Position     int // 1-based order within the schedule
	Amount       decimal.Decimal
	DueDate      Date
	Status       InstallmentStatus
	IsDispatched bool
	CreatedAt    time.Time
}

// Expense is a shared cost. Deducted expenses reduce the dispatch pool and are
// reimbursed to whoever paid them.
type Expense struct {
	ID         ExpenseID
	Name       string
	Amount     decimal.Decimal
	Type       ExpenseType
	Date       Date
	Category   string
	PaidBy     TeamMember
	IsDeducted bool
	CreatedAt  time.Time
}

// Deduction records that an expense was deducted for a given month.
type Deduction struct {
	ID        DeductionID
	ExpenseID ExpenseID
	Period    Period
	CreatedAt time.Time
}

var hundred = decimal.NewFromInt(100)

/*
rates.go - Versioned business constants

PURPOSE:
  Platform fee percentages, the distributable share of net profit and the
  partner roster used to be literals scattered through the billing code.
  They now live in a RateTable. A RateBook keeps every version so an
  installment is always priced with the rates in force on its due date.

STRUCTURE:
  RateTable: one version of the constants, effective from a date
  RateBook:  ordered set of versions, resolves the table for a date
  Rates:     what calculators need (RateTable and RateBook both satisfy it)

DEFAULTS:
  mollie 2%, revolut 2%, gocardless 1%, distributable share 0.70,
  three partners splitting 33.33 / 33.33 / 33.34.

SEE ALSO:
  - factory/rates.go: JSON representation of a rate book
  - fees.go: Consumes a RateTable
*/
package billing

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// Default roster members.
const (
	MemberA TeamMember = "member_a"
	MemberB TeamMember = "member_b"
	MemberC TeamMember = "member_c"
)

// RateTable is one version of the billing constants.
type RateTable struct {
	Version       string
	EffectiveFrom Date

	// PlatformFees maps each platform to its fee percentage (2 means 2%).
	PlatformFees map[BillingPlatform]decimal.Decimal

	// DistributableShare is the fraction of net profit shared among partners.
	DistributableShare decimal.Decimal

	Roster              []TeamMember
	DefaultDistribution Distribution
}

// DefaultRateTable returns the built-in rates, version v1.
func DefaultRateTable() RateTable {
	return RateTable{
		Version:       "v1",
		EffectiveFrom: NewDate(2024, 1, 1),
		PlatformFees: map[BillingPlatform]decimal.Decimal{
			PlatformMollie:     decimal.NewFromInt(2),
			PlatformRevolut:    decimal.NewFromInt(2),
			PlatformGoCardless: decimal.NewFromInt(1),
		},
		DistributableShare: decimal.RequireFromString("0.70"),
		Roster:             []TeamMember{MemberA, MemberB, MemberC},
		DefaultDistribution: Distribution{
			MemberA: decimal.RequireFromString("33.33"),
			MemberB: decimal.RequireFromString("33.33"),
			MemberC: decimal.RequireFromString("33.34"),
		},
	}
}

// PlatformFeeRate returns the fee fraction for p. Unknown platforms are billed
// at the default platform's rate.
func (rt RateTable) PlatformFeeRate(p BillingPlatform) decimal.Decimal {
	pct, ok := rt.PlatformFees[p]
	if !ok {
		pct = rt.PlatformFees[DefaultPlatform]
	}
	return pct.Div(hundred)
}

// IsMember reports whether m belongs to the roster.
func (rt RateTable) IsMember(m TeamMember) bool {
	for _, r := range rt.Roster {
		if r == m {
			return true
		}
	}
	return false
}

// Validate checks the table is usable.
func (rt RateTable) Validate() error {
	if rt.Version == "" {
		return &ValidationError{Field: "version", Err: ErrInvalidInput}
	}
	if rt.DistributableShare.IsNegative() || rt.DistributableShare.GreaterThan(decimal.NewFromInt(1)) {
		return &ValidationError{Field: "distributable_share", Err: ErrInvalidInput}
	}
	for p, pct := range rt.PlatformFees {
		if pct.IsNegative() {
			return &ValidationError{Field: "platform_fees." + string(p), Err: ErrNegativeAmount}
		}
	}
	if _, ok := rt.PlatformFees[DefaultPlatform]; !ok {
		return &ValidationError{Field: "platform_fees." + string(DefaultPlatform), Err: ErrInvalidInput}
	}
	if len(rt.Roster) == 0 {
		return &ValidationError{Field: "roster", Err: ErrInvalidInput}
	}
	return ValidateDistribution(rt.DefaultDistribution, rt.Roster)
}

// For returns the table itself so a single RateTable satisfies Rates.
func (rt RateTable) For(Date) RateTable { return rt }

// Current returns the table itself.
func (rt RateTable) Current() RateTable { return rt }

// =============================================================================
// RATE BOOK
// =============================================================================

// Rates resolves the constants to apply.
type Rates interface {
	// For returns the table in force on d.
	For(d Date) RateTable
	// Current returns the most recent table.
	Current() RateTable
}

// RateBook is an ordered history of rate tables.
type RateBook struct {
	tables []RateTable
}

// NewRateBook validates and orders the given tables by EffectiveFrom.
func NewRateBook(tables ...RateTable) (*RateBook, error) {
	if len(tables) == 0 {
		return nil, fmt.Errorf("%w: rate book needs at least one table", ErrInvalidInput)
	}
	sorted := make([]RateTable, len(tables))
	copy(sorted, tables)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].EffectiveFrom.Before(sorted[j].EffectiveFrom)
	})
	seen := make(map[string]bool, len(sorted))
	for _, t := range sorted {
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("rate table %q: %w", t.Version, err)
		}
		if seen[t.Version] {
			return nil, fmt.Errorf("%w: duplicate rate version %q", ErrInvalidInput, t.Version)
		}
		seen[t.Version] = true
	}
	return &RateBook{tables: sorted}, nil
}

// DefaultRateBook holds only DefaultRateTable.
func DefaultRateBook() *RateBook {
	return &RateBook{tables: []RateTable{DefaultRateTable()}}
}

// For returns the latest table effective on or before d. Dates earlier than
// every table resolve to the oldest one.
func (b *RateBook) For(d Date) RateTable {
	chosen := b.tables[0]
	for _, t := range b.tables[1:] {
		if t.EffectiveFrom.After(d) {
			break
		}
		chosen = t
	}
	return chosen
}

func (b *RateBook) Current() RateTable {
	return b.tables[len(b.tables)-1]
}

// Tables returns every version, oldest first.
func (b *RateBook) Tables() []RateTable {
	out := make([]RateTable, len(b.tables))
	copy(out, b.tables)
	return out
}

/*
fees.go - Per-installment fee and commission breakdown

PURPOSE:
  Computes, for one installment, what the payment platform keeps, what the
  setter earns, and what is left for the partners.

FORMULAS (percentages come from the RateTable):
  platform fee   = gross * platform rate
  setter fee     = deal * setter pct / 100, first installment of the client only
  net            = gross - platform fee - setter fee
  distributable  = net * distributable share
  member amount  = distributable * member pct / 100

  The setter fee is sized on the whole deal but charged once, on the
  installment with the earliest due date (ties broken by position, then ID).

EXAMPLE:
  Mollie, gross 500, no setter:
    platform 10, net 490, distributable 343

SEE ALSO:
  - dispatch.go: Aggregates breakdowns into the partner pool
  - rates.go: RateTable
*/
package billing

import (
	"sort"

	"github.com/shopspring/decimal"
)

// FeeBreakdown is the result of ComputeFees.
type FeeBreakdown struct {
	Gross              decimal.Decimal
	PlatformFee        decimal.Decimal
	SetterFee          decimal.Decimal
	Net                decimal.Decimal // gross minus fees
	NetForDistribution decimal.Decimal
	PerMember          []MemberAmount
	RatesVersion       string
}

// MemberAmount is one partner's part of an installment.
type MemberAmount struct {
	Member     TeamMember
	Percentage decimal.Decimal
	Amount     decimal.Decimal
}

// ComputeFees breaks down one installment. all is every installment of the
// client; inst is considered part of it whether listed or not. It only
// serves to find the first one.
func ComputeFees(inst Installment, client Client, all []Installment, rt RateTable) FeeBreakdown {
	gross := inst.Amount
	platformFee := gross.Mul(rt.PlatformFeeRate(client.BillingPlatform))

	setterFee := decimal.Zero
	if client.HasSetterCommission() && IsFirstInstallment(inst, all) {
		setterFee = client.SetterCommission()
	}

	net := gross.Sub(platformFee).Sub(setterFee)
	distributable := net.Mul(rt.DistributableShare)

	dist := ResolveDistribution(client, rt)
	var perMember []MemberAmount
	for _, m := range dist.Members(rt.Roster) {
		pct := dist[m]
		amount := distributable.Mul(pct).Div(hundred)
		if !amount.IsPositive() {
			continue
		}
		perMember = append(perMember, MemberAmount{Member: m, Percentage: pct, Amount: amount})
	}

	return FeeBreakdown{
		Gross:              gross,
		PlatformFee:        platformFee,
		SetterFee:          setterFee,
		Net:                net,
		NetForDistribution: distributable,
		PerMember:          perMember,
		RatesVersion:       rt.Version,
	}
}

// FirstInstallment returns the chronologically first installment of the set.
func FirstInstallment(all []Installment) (Installment, bool) {
	if len(all) == 0 {
		return Installment{}, false
	}
	sorted := SortByDueDate(all)
	return sorted[0], true
}

// IsFirstInstallment reports whether inst comes first among all, counting
// inst itself even when all omits it. An empty set means inst is the
// client's only installment.
func IsFirstInstallment(inst Installment, all []Installment) bool {
	if !containsInstallment(all, inst) {
		all = append(append(make([]Installment, 0, len(all)+1), all...), inst)
	}
	first, _ := FirstInstallment(all)
	return sameInstallment(first, inst)
}

func containsInstallment(all []Installment, inst Installment) bool {
	for _, other := range all {
		if sameInstallment(other, inst) {
			return true
		}
	}
	return false
}

func sameInstallment(a, b Installment) bool {
	if a.ID != "" || b.ID != "" {
		return a.ID == b.ID
	}
	return a.Position == b.Position && a.DueDate.Equal(b.DueDate)
}

// SortByDueDate returns a copy ordered by due date, then position, then ID.
func SortByDueDate(insts []Installment) []Installment {
	sorted := make([]Installment, len(insts))
	copy(sorted, insts)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if !a.DueDate.Equal(b.DueDate) {
			return a.DueDate.Before(b.DueDate)
		}
		if a.Position != b.Position {
			return a.Position < b.Position
		}
		return a.ID < b.ID
	})
	return sorted
}

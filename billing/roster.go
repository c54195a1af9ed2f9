package billing

import (
	"sort"

	"github.com/shopspring/decimal"
)

// distributionTolerance absorbs splits like 33.33/33.33/33.33.
var distributionTolerance = decimal.RequireFromString("0.01")

// ValidateDistribution checks that d only names roster members, has no
// negative percentage and sums to 100 within one hundredth.
func ValidateDistribution(d Distribution, roster []TeamMember) error {
	if len(d) == 0 {
		return &DistributionError{Reason: "empty"}
	}
	known := make(map[TeamMember]bool, len(roster))
	for _, m := range roster {
		known[m] = true
	}
	var unknown []TeamMember
	for m, pct := range d {
		if !known[m] {
			unknown = append(unknown, m)
		}
		if pct.IsNegative() {
			return &DistributionError{Reason: "negative percentage for " + string(m)}
		}
	}
	if len(unknown) > 0 {
		sort.Slice(unknown, func(i, j int) bool { return unknown[i] < unknown[j] })
		return &DistributionError{Unknown: unknown}
	}
	sum := d.Sum()
	if sum.Sub(hundred).Abs().GreaterThan(distributionTolerance) {
		return &DistributionError{Sum: sum}
	}
	return nil
}

// ResolveDistribution returns the client's own split, or the rate table's
// default when the client has none.
func ResolveDistribution(c Client, rt RateTable) Distribution {
	if len(c.Distribution) > 0 {
		return c.Distribution
	}
	return rt.DefaultDistribution
}

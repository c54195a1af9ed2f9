package billing_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/crm-engine/billing"
)

// assertDec compares decimals by value so 343 and 343.000 are equal.
func assertDec(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	assert.Truef(t, dec(want).Equal(got), "expected %s, got %s %v", want, got, msgAndArgs)
}

func installment(id string, pos int, amount string, due billing.Date) billing.Installment {
	return billing.Installment{
		ID:       billing.InstallmentID(id),
		ClientID: "c1",
		Position: pos,
		Amount:   dec(amount),
		DueDate:  due,
		Status:   billing.StatusPaid,
	}
}

func TestComputeFees_MollieNoSetter(t *testing.T) {
	// GIVEN: A 500 installment collected by Mollie, default split
	client := billing.Client{ID: "c1", DealAmount: dec("500"), BillingPlatform: billing.PlatformMollie}
	inst := installment("i1", 1, "500", start)

	// WHEN
	fees := billing.ComputeFees(inst, client, []billing.Installment{inst}, billing.DefaultRateTable())

	// THEN: platform 10, net 490, distributable 343
	assertDec(t, "500", fees.Gross)
	assertDec(t, "10", fees.PlatformFee)
	assertDec(t, "0", fees.SetterFee)
	assertDec(t, "490", fees.Net)
	assertDec(t, "343", fees.NetForDistribution)
	assert.Equal(t, "v1", fees.RatesVersion)

	require.Len(t, fees.PerMember, 3)
	assert.Equal(t, billing.MemberA, fees.PerMember[0].Member)
	assertDec(t, "114.3219", fees.PerMember[0].Amount)
	assertDec(t, "114.3562", fees.PerMember[2].Amount)
}

func TestComputeFees_GoCardlessWithSetter(t *testing.T) {
	// GIVEN: A one-shot 500 deal on GoCardless with a 10% setter
	client := billing.Client{
		ID: "c1", DealAmount: dec("500"),
		BillingPlatform: billing.PlatformGoCardless, SetterCommissionPct: dec("10"),
	}
	inst := installment("i1", 1, "500", start)

	// WHEN
	fees := billing.ComputeFees(inst, client, []billing.Installment{inst}, billing.DefaultRateTable())

	// THEN: platform 5, setter 50, distributable 311.5
	assertDec(t, "5", fees.PlatformFee)
	assertDec(t, "50", fees.SetterFee)
	assertDec(t, "445", fees.Net)
	assertDec(t, "311.5", fees.NetForDistribution)
}

func TestComputeFees_SameInputSameResult(t *testing.T) {
	client := billing.Client{
		ID: "c1", DealAmount: dec("1200"),
		BillingPlatform: billing.PlatformRevolut, SetterCommissionPct: dec("15"),
	}
	all := []billing.Installment{
		installment("i1", 1, "400", start),
		installment("i2", 2, "800", start.AddDays(30)),
	}

	for _, inst := range all {
		first := billing.ComputeFees(inst, client, all, billing.DefaultRateTable())
		second := billing.ComputeFees(inst, client, all, billing.DefaultRateTable())

		assertDec(t, first.PlatformFee.String(), second.PlatformFee, inst.ID)
		assertDec(t, first.SetterFee.String(), second.SetterFee, inst.ID)
		assertDec(t, first.NetForDistribution.String(), second.NetForDistribution, inst.ID)
		require.Len(t, second.PerMember, len(first.PerMember))
		for i := range first.PerMember {
			assert.Equal(t, first.PerMember[i].Member, second.PerMember[i].Member)
			assertDec(t, first.PerMember[i].Amount.String(), second.PerMember[i].Amount, inst.ID)
		}
	}
}

func TestComputeFees_FirstInstallmentMissingFromSet(t *testing.T) {
	// GIVEN: The earliest installment, with only a later one listed
	client := billing.Client{ID: "c1", DealAmount: dec("1000"), SetterCommissionPct: dec("10")}
	first := installment("i1", 1, "500", start)
	later := installment("i2", 2, "500", start.AddDays(30))

	// WHEN
	fees := billing.ComputeFees(first, client, []billing.Installment{later}, billing.DefaultRateTable())
	laterFees := billing.ComputeFees(later, client, []billing.Installment{later}, billing.DefaultRateTable())

	// THEN: The setter fee still lands on the earliest one
	assertDec(t, "100", fees.SetterFee)
	assertDec(t, "0", laterFees.SetterFee, "only i2 listed")
}

func TestComputeFees_PlatformRates(t *testing.T) {
	tests := []struct {
		platform billing.BillingPlatform
		wantFee  string
	}{
		{billing.PlatformMollie, "20"},
		{billing.PlatformRevolut, "20"},
		{billing.PlatformGoCardless, "10"},
		{"stripe", "20"}, // unknown platforms use the default rate
	}
	for _, tt := range tests {
		t.Run(string(tt.platform), func(t *testing.T) {
			client := billing.Client{ID: "c1", DealAmount: dec("1000"), BillingPlatform: tt.platform}
			inst := installment("i1", 1, "1000", start)
			fees := billing.ComputeFees(inst, client, nil, billing.DefaultRateTable())
			assertDec(t, tt.wantFee, fees.PlatformFee)
		})
	}
}

func TestComputeFees_SetterOnFirstInstallmentOnly(t *testing.T) {
	// GIVEN: 2400 deal in two installments, setter at 10%
	client := billing.Client{
		ID:                  "c1",
		DealAmount:          dec("2400"),
		BillingPlatform:     billing.PlatformMollie,
		Setter:              billing.MemberC,
		SetterCommissionPct: dec("10"),
	}
	first := installment("i1", 1, "1200", start)
	second := installment("i2", 2, "1200", start.AddDays(30))
	all := []billing.Installment{second, first}
	rt := billing.DefaultRateTable()

	// WHEN
	f1 := billing.ComputeFees(first, client, all, rt)
	f2 := billing.ComputeFees(second, client, all, rt)

	// THEN: The whole 240 lands on the first installment
	assertDec(t, "240", f1.SetterFee)
	assertDec(t, "936", f1.Net) // 1200 - 24 - 240
	assertDec(t, "0", f2.SetterFee)
	assertDec(t, "1176", f2.Net)
}

func TestComputeFees_SetterTieBreak(t *testing.T) {
	client := billing.Client{ID: "c1", DealAmount: dec("1000"), SetterCommissionPct: dec("5")}

	// Same due date: lower position wins
	a := installment("b-id", 1, "500", start)
	b := installment("a-id", 2, "500", start)
	all := []billing.Installment{b, a}
	rt := billing.DefaultRateTable()
	assertDec(t, "50", billing.ComputeFees(a, client, all, rt).SetterFee)
	assertDec(t, "0", billing.ComputeFees(b, client, all, rt).SetterFee)

	// Same due date and position: lower ID wins
	c := installment("a", 1, "500", start)
	d := installment("b", 1, "500", start)
	all = []billing.Installment{d, c}
	assertDec(t, "50", billing.ComputeFees(c, client, all, rt).SetterFee)
	assertDec(t, "0", billing.ComputeFees(d, client, all, rt).SetterFee)
}

func TestComputeFees_CustomDistribution(t *testing.T) {
	// GIVEN: A split that leaves member_c at zero
	client := billing.Client{
		ID:              "c1",
		DealAmount:      dec("1000"),
		BillingPlatform: billing.PlatformGoCardless,
		Distribution: billing.Distribution{
			billing.MemberA: dec("60"),
			billing.MemberB: dec("40"),
			billing.MemberC: dec("0"),
		},
	}
	inst := installment("i1", 1, "1000", start)

	fees := billing.ComputeFees(inst, client, nil, billing.DefaultRateTable())

	// THEN: 990 net, 693 distributable, zero shares omitted
	assertDec(t, "693", fees.NetForDistribution)
	require.Len(t, fees.PerMember, 2)
	assert.Equal(t, billing.MemberA, fees.PerMember[0].Member)
	assertDec(t, "415.8", fees.PerMember[0].Amount)
	assert.Equal(t, billing.MemberB, fees.PerMember[1].Member)
	assertDec(t, "277.2", fees.PerMember[1].Amount)
}

func TestSortByDueDate_DoesNotMutate(t *testing.T) {
	later := installment("i2", 2, "1", start.AddDays(30))
	earlier := installment("i1", 1, "1", start)
	in := []billing.Installment{later, earlier}

	sorted := billing.SortByDueDate(in)

	assert.Equal(t, billing.InstallmentID("i1"), sorted[0].ID)
	assert.Equal(t, billing.InstallmentID("i2"), in[0].ID)

	first, ok := billing.FirstInstallment(in)
	assert.True(t, ok)
	assert.Equal(t, billing.InstallmentID("i1"), first.ID)

	_, ok = billing.FirstInstallment(nil)
	assert.False(t, ok)
}

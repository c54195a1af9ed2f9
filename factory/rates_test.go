package factory_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/crm-engine/billing"
	"github.com/warp/crm-engine/factory"
)

func TestParseRateBook_Versions(t *testing.T) {
	// GIVEN two versions where gocardless gets cheaper in 2025
	jsonStr := `{
		"tables": [
			{"version": "v2", "effective_from": "2025-01-01", "platform_fees": {"mollie": 2, "revolut": "2", "gocardless": "0.5"}},
			{"version": "v1", "effective_from": "2024-01-01"}
		]
	}`

	// WHEN parsed
	book, err := factory.NewRateFactory().ParseRateBook(jsonStr)
	require.NoError(t, err)

	// THEN tables are ordered and resolved by date
	tables := book.Tables()
	require.Len(t, tables, 2)
	assert.Equal(t, "v1", tables[0].Version)
	assert.Equal(t, "v2", book.Current().Version)

	old := book.For(billing.NewDate(2024, 6, 1))
	assert.True(t, old.PlatformFeeRate(billing.PlatformGoCardless).Equal(decimal.RequireFromString("0.01")))

	recent := book.For(billing.NewDate(2025, 6, 1))
	assert.True(t, recent.PlatformFeeRate(billing.PlatformGoCardless).Equal(decimal.RequireFromString("0.005")))

	// Omitted fields inherit the defaults.
	assert.True(t, recent.DistributableShare.Equal(decimal.RequireFromString("0.70")))
	assert.Len(t, recent.Roster, 3)
}

func TestParseRateBook_CustomRosterGetsEvenSplit(t *testing.T) {
	jsonStr := `{"tables": [{"version": "v1", "effective_from": "2024-01-01", "roster": ["ana", "ben"]}]}`

	book, err := factory.NewRateFactory().ParseRateBook(jsonStr)
	require.NoError(t, err)

	rt := book.Current()
	assert.True(t, rt.IsMember("ana"))
	assert.False(t, rt.IsMember(billing.MemberA))
	assert.True(t, rt.DefaultDistribution["ana"].Equal(decimal.NewFromInt(50)))
	assert.True(t, rt.DefaultDistribution["ben"].Equal(decimal.NewFromInt(50)))
}

func TestParseRateBook_Rejects(t *testing.T) {
	f := factory.NewRateFactory()

	tests := []struct {
		name string
		json string
	}{
		{"malformed", `{"tables": [`},
		{"empty", `{"tables": []}`},
		{"bad date", `{"tables": [{"version": "v1", "effective_from": "01/01/2024"}]}`},
		{"unknown platform", `{"tables": [{"version": "v1", "platform_fees": {"paypal": 3}}]}`},
		{"share above one", `{"tables": [{"version": "v1", "distributable_share": 1.5}]}`},
		{"split not 100", `{"tables": [{"version": "v1", "default_distribution": {"member_a": 60, "member_b": 30}}]}`},
		{"duplicate version", `{"tables": [{"version": "v1", "effective_from": "2024-01-01"}, {"version": "v1", "effective_from": "2025-01-01"}]}`},
		{"missing version", `{"tables": [{"effective_from": "2024-01-01"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.ParseRateBook(tt.json)
			assert.Error(t, err)
		})
	}
}

func TestDefaultRateBookJSON_RoundTrip(t *testing.T) {
	f := factory.NewRateFactory()

	book, err := f.ParseRateBook(factory.DefaultRateBookJSON())
	require.NoError(t, err)

	want := billing.DefaultRateTable()
	got := book.Current()
	assert.Equal(t, want.Version, got.Version)
	assert.True(t, want.EffectiveFrom.Equal(got.EffectiveFrom))
	assert.Equal(t, want.Roster, got.Roster)
	for p, pct := range want.PlatformFees {
		assert.True(t, got.PlatformFees[p].Equal(pct), "platform %s", p)
	}
	for m, pct := range want.DefaultDistribution {
		assert.True(t, got.DefaultDistribution[m].Equal(pct), "member %s", m)
	}
}

package billing

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount reads a user-typed number. Anything that does not parse
// yields zero rather than an error: "", "abc" and "  " all become 0.
// Comma decimal separators ("12,5") and spaces used as thousands separators
// ("1 200,50") are accepted. When both ',' and '.' appear, the last one is
// the decimal separator: "1.200,50" and "1,200.50" are both 1200.50.
func ParseAmount(s string) decimal.Decimal {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero
	}
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, "\u00a0", "")
	s = strings.TrimSuffix(s, "%")
	s = strings.TrimSuffix(s, "€")
	comma, dot := strings.LastIndex(s, ","), strings.LastIndex(s, ".")
	switch {
	case comma > dot:
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	default:
		s = strings.ReplaceAll(s, ",", "")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// Round2 rounds to cents.
func Round2(d decimal.Decimal) decimal.Decimal { return d.Round(2) }

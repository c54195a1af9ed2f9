/*
Package factory provides JSON to Go rate book conversion.

PURPOSE:
  Converts JSON rate definitions into billing.RateTable and billing.RateBook
  values. Fee percentages, the distributable share and the partner roster
  change over time; the factory lets operators publish a new version as a
  JSON file without a code change.

JSON SCHEMA:
  {
    "tables": [
      {
        "version": "v1",
        "effective_from": "2024-01-01",
        "platform_fees": {"mollie": "2", "revolut": "2", "gocardless": "1"},
        "distributable_share": "0.70",
        "roster": ["member_a", "member_b", "member_c"],
        "default_distribution": {
          "member_a": "33.33",
          "member_b": "33.33",
          "member_c": "33.34"
        }
      }
    ]
  }

  Amounts may be written as JSON strings or numbers.

KEY FEATURES:
  - Validates every table (through billing.NewRateBook)
  - Missing fields inherit from billing.DefaultRateTable
  - Round-trips: ToJSON(ParseRateBook(x)) describes the same book

USAGE:
  f := factory.NewRateFactory()
  book, err := f.ParseRateBook(jsonString)

  svc := billing.NewService(store, book, logger)

SEE ALSO:
  - billing/rates.go: RateTable and RateBook
  - cmd/server/main.go: Loads RATES_FILE through this package
*/
package factory

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/shopspring/decimal"

	"github.com/warp/crm-engine/billing"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// RateBookJSON is the JSON representation of a rate book.
type RateBookJSON struct {
	Tables []RateTableJSON `json:"tables"`
}

// RateTableJSON is the JSON representation of one rate version.
type RateTableJSON struct {
	Version             string                     `json:"version"`
	EffectiveFrom       string                     `json:"effective_from"` // YYYY-MM-DD
	PlatformFees        map[string]decimal.Decimal `json:"platform_fees,omitempty"`
	DistributableShare  *decimal.Decimal           `json:"distributable_share,omitempty"`
	Roster              []string                   `json:"roster,omitempty"`
	DefaultDistribution map[string]decimal.Decimal `json:"default_distribution,omitempty"`
}

// =============================================================================
// RATE FACTORY
// =============================================================================

// RateFactory converts JSON rate books to billing types.
type RateFactory struct{}

// NewRateFactory creates a new rate factory.
func NewRateFactory() *RateFactory {
	return &RateFactory{}
}

// ParseRateBook parses a JSON string into a validated RateBook.
func (f *RateFactory) ParseRateBook(jsonStr string) (*billing.RateBook, error) {
	var bj RateBookJSON
	if err := json.Unmarshal([]byte(jsonStr), &bj); err != nil {
		return nil, fmt.Errorf("failed to parse rate book JSON: %w", err)
	}
	return f.FromJSON(bj)
}

// LoadRateBook reads and parses a rate book file.
func (f *RateFactory) LoadRateBook(path string) (*billing.RateBook, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rate book: %w", err)
	}
	return f.ParseRateBook(string(raw))
}

// FromJSON converts RateBookJSON to a RateBook.
func (f *RateFactory) FromJSON(bj RateBookJSON) (*billing.RateBook, error) {
	if len(bj.Tables) == 0 {
		return nil, fmt.Errorf("%w: rate book has no tables", billing.ErrInvalidInput)
	}

	tables := make([]billing.RateTable, 0, len(bj.Tables))
	for _, tj := range bj.Tables {
		rt, err := f.TableFromJSON(tj)
		if err != nil {
			return nil, err
		}
		tables = append(tables, rt)
	}
	return billing.NewRateBook(tables...)
}

// TableFromJSON converts one RateTableJSON. Omitted fields fall back to the
// default table's values.
func (f *RateFactory) TableFromJSON(tj RateTableJSON) (billing.RateTable, error) {
	rt := billing.DefaultRateTable()
	rt.Version = tj.Version

	if tj.EffectiveFrom != "" {
		d, err := billing.ParseDate(tj.EffectiveFrom)
		if err != nil {
			return billing.RateTable{}, fmt.Errorf("rate table %q: invalid effective_from: %w", tj.Version, err)
		}
		rt.EffectiveFrom = d
	}

	if len(tj.PlatformFees) > 0 {
		fees, err := parsePlatformFees(tj.PlatformFees)
		if err != nil {
			return billing.RateTable{}, fmt.Errorf("rate table %q: %w", tj.Version, err)
		}
		rt.PlatformFees = fees
	}

	if tj.DistributableShare != nil {
		rt.DistributableShare = *tj.DistributableShare
	}

	if len(tj.Roster) > 0 {
		rt.Roster = parseRoster(tj.Roster)
		// A custom roster without a custom split gets an even one.
		if len(tj.DefaultDistribution) == 0 {
			rt.DefaultDistribution = evenDistribution(rt.Roster)
		}
	}

	if len(tj.DefaultDistribution) > 0 {
		rt.DefaultDistribution = parseDistribution(tj.DefaultDistribution)
	}

	return rt, nil
}

// ToJSON converts a RateBook to RateBookJSON.
func (f *RateFactory) ToJSON(book *billing.RateBook) RateBookJSON {
	var bj RateBookJSON
	for _, rt := range book.Tables() {
		bj.Tables = append(bj.Tables, f.TableToJSON(rt))
	}
	return bj
}

// TableToJSON converts a RateTable to RateTableJSON.
func (f *RateFactory) TableToJSON(rt billing.RateTable) RateTableJSON {
	share := rt.DistributableShare
	tj := RateTableJSON{
		Version:             rt.Version,
		EffectiveFrom:       rt.EffectiveFrom.String(),
		PlatformFees:        make(map[string]decimal.Decimal, len(rt.PlatformFees)),
		DistributableShare:  &share,
		DefaultDistribution: make(map[string]decimal.Decimal, len(rt.DefaultDistribution)),
	}
	for p, pct := range rt.PlatformFees {
		tj.PlatformFees[string(p)] = pct
	}
	for _, m := range rt.Roster {
		tj.Roster = append(tj.Roster, string(m))
	}
	for m, pct := range rt.DefaultDistribution {
		tj.DefaultDistribution[string(m)] = pct
	}
	return tj
}

// DefaultRateBookJSON returns the default rate book as indented JSON.
func DefaultRateBookJSON() string {
	f := NewRateFactory()
	out, _ := json.MarshalIndent(f.ToJSON(billing.DefaultRateBook()), "", "  ")
	return string(out)
}

// =============================================================================
// PARSING HELPERS
// =============================================================================

func parsePlatformFees(raw map[string]decimal.Decimal) (map[billing.BillingPlatform]decimal.Decimal, error) {
	fees := make(map[billing.BillingPlatform]decimal.Decimal, len(raw))
	for name, pct := range raw {
		p, err := billing.ParseBillingPlatform(name)
		if err != nil {
			return nil, err
		}
		fees[p] = pct
	}
	return fees, nil
}

func parseRoster(raw []string) []billing.TeamMember {
	out := make([]billing.TeamMember, 0, len(raw))
	for _, m := range raw {
		out = append(out, billing.TeamMember(m))
	}
	return out
}

func parseDistribution(raw map[string]decimal.Decimal) billing.Distribution {
	d := make(billing.Distribution, len(raw))
	for m, pct := range raw {
		d[billing.TeamMember(m)] = pct
	}
	return d
}

// evenDistribution splits 100% across the roster; the last member takes
// the rounding residue.
func evenDistribution(roster []billing.TeamMember) billing.Distribution {
	parts := billing.SplitEvenly(decimal.NewFromInt(100), len(roster))
	d := make(billing.Distribution, len(roster))
	for i, m := range roster {
		d[m] = parts[i]
	}
	return d
}

package billing_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/warp/crm-engine/billing"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "0"},
		{"   ", "0"},
		{"abc", "0"},
		{"1500", "1500"},
		{"12,5", "12.5"},
		{"1 200,50", "1200.5"},
		{"3 000,00 €", "3000"},
		{"1,234.56", "1234.56"},
		{"1.200,50", "1200.5"},
		{"1.234,50 €", "1234.5"},
		{"1,200.50", "1200.5"},
		{"1.200.000,75", "1200000.75"},
		{"10%", "10"},
		{"-42.1", "-42.1"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := billing.ParseAmount(tt.in); !got.Equal(dec(tt.want)) {
				t.Errorf("ParseAmount(%q): expected %s, got %s", tt.in, tt.want, got)
			}
		})
	}
}

func TestParseEnums(t *testing.T) {
	if m, err := billing.ParsePaymentMethod("One-Shot"); err != nil || m != billing.PaymentOneShot {
		t.Errorf("expected one_shot, got %s (%v)", m, err)
	}
	if _, err := billing.ParsePaymentMethod("6x"); err == nil {
		t.Error("expected error for 6x")
	}
	if p, err := billing.ParseBillingPlatform(""); err != nil || p != billing.DefaultPlatform {
		t.Errorf("expected default platform, got %s (%v)", p, err)
	}
	if p, err := billing.ParseBillingPlatform("GoCardless"); err != nil || p != billing.PlatformGoCardless {
		t.Errorf("expected gocardless, got %s (%v)", p, err)
	}
	if _, err := billing.ParseBillingPlatform("paypal"); !billing.IsClientError(err) {
		t.Errorf("expected client error, got %v", err)
	}
	if s, err := billing.ParseInstallmentStatus("in-transit"); err != nil || s != billing.StatusInTransit {
		t.Errorf("expected in_transit, got %s (%v)", s, err)
	}
	if e, err := billing.ParseExpenseType(""); err != nil || e != billing.ExpenseOneShot {
		t.Errorf("expected one_shot default, got %s (%v)", e, err)
	}
}

func TestParsePeriod(t *testing.T) {
	p, err := billing.ParsePeriod("2026-02")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.String() != "2026-02" {
		t.Errorf("expected 2026-02, got %s", p)
	}
	if p.Start().String() != "2026-02-01" || p.End().String() != "2026-02-28" {
		t.Errorf("unexpected bounds %s..%s", p.Start(), p.End())
	}
	if !p.Contains(billing.NewDate(2026, 2, 28)) || p.Contains(billing.NewDate(2026, 3, 1)) {
		t.Error("Contains is off by a day")
	}

	for _, bad := range []string{"", "2026", "2026-13", "02-2026"} {
		if _, err := billing.ParsePeriod(bad); !billing.IsClientError(err) {
			t.Errorf("ParsePeriod(%q): expected client error, got %v", bad, err)
		}
	}
}

func TestDate_JSON(t *testing.T) {
	type wrapper struct {
		Due billing.Date `json:"due"`
	}

	out, err := json.Marshal(wrapper{Due: billing.NewDate(2026, 3, 10)})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != `{"due":"2026-03-10"}` {
		t.Errorf("unexpected JSON %s", out)
	}

	out, _ = json.Marshal(wrapper{})
	if string(out) != `{"due":null}` {
		t.Errorf("zero date should be null, got %s", out)
	}

	var w wrapper
	if err := json.Unmarshal([]byte(`{"due":"2026-03-10T18:30:00Z"}`), &w); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !w.Due.Equal(billing.NewDate(2026, 3, 10)) {
		t.Errorf("expected 2026-03-10, got %s", w.Due)
	}
	if err := json.Unmarshal([]byte(`{"due":"10/03/2026"}`), &w); err == nil {
		t.Error("expected error for unsupported layout")
	}
}

func TestDate_AddDaysAcrossMonths(t *testing.T) {
	d := billing.DateOf(time.Date(2026, 1, 31, 23, 59, 0, 0, time.UTC))
	if got := d.AddDays(30).String(); got != "2026-03-02" {
		t.Errorf("expected 2026-03-02, got %s", got)
	}
	if d.Period().String() != "2026-01" {
		t.Errorf("expected period 2026-01, got %s", d.Period())
	}
}

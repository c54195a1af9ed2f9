package crm

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Acquisition sources worked by the setters.
const (
	SourceSetterInbound   = "s-i"
	SourceLinkedInNetwork = "s-l-n"
	SourceLinkedInBoost   = "s-l-b"
	SourceLinkedInInbound = "s-l-i"
)

// LinkedInSources groups the LinkedIn channels reported together.
var LinkedInSources = []string{SourceLinkedInNetwork, SourceLinkedInBoost, SourceLinkedInInbound}

// SourceStats counts contacts of one acquisition source.
type SourceStats struct {
	Total  int
	Closed int
	Rate   decimal.Decimal // closed / total, in percent
}

// SetterStats is the setter board: close rates over the selected sources
// and the setter commissions earned on the clients they brought in.
type SetterStats struct {
	SourceStats
	BySource        map[string]SourceStats
	TotalCommission decimal.Decimal
	MonthCommission decimal.Decimal // clients created in the current month
}

func closeRate(closed, total int) decimal.Decimal {
	if total == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(closed)).Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(int64(total))).Round(2)
}

// SetterStats computes the setter board for contacts whose source is in
// sources, or for every contact when sources is empty.
func (s *Service) SetterStats(ctx context.Context, sources []string, now time.Time) (*SetterStats, error) {
	contacts, err := s.Store.ListContacts(ctx, ContactFilter{Sources: sources})
	if err != nil {
		return nil, err
	}
	clients, err := s.Store.ListClients(ctx)
	if err != nil {
		return nil, err
	}

	stats := &SetterStats{
		BySource:        make(map[string]SourceStats),
		TotalCommission: decimal.Zero,
		MonthCommission: decimal.Zero,
	}
	sourceOf := make(map[string]string, len(contacts))
	for _, c := range contacts {
		sourceOf[string(c.ID)] = c.Source
		src := stats.BySource[c.Source]
		src.Total++
		stats.Total++
		if c.Status == ContactClosed {
			src.Closed++
			stats.Closed++
		}
		stats.BySource[c.Source] = src
	}
	stats.Rate = closeRate(stats.Closed, stats.Total)
	for name, src := range stats.BySource {
		src.Rate = closeRate(src.Closed, src.Total)
		stats.BySource[name] = src
	}

	year, month, _ := now.Date()
	for _, c := range clients {
		if !c.HasSetterCommission() {
			continue
		}
		if _, ok := sourceOf[c.ContactID]; !ok {
			continue
		}
		commission := c.SetterCommission()
		stats.TotalCommission = stats.TotalCommission.Add(commission)
		if y, m, _ := c.CreatedAt.In(now.Location()).Date(); y == year && m == month {
			stats.MonthCommission = stats.MonthCommission.Add(commission)
		}
	}
	return stats, nil
}

package crm_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/crm-engine/billing"
	"github.com/warp/crm-engine/crm"
	"github.com/warp/crm-engine/store/memory"
)

var today = billing.NewDate(2026, 3, 10)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newService(t *testing.T) *crm.Service {
	t.Helper()
	svc := crm.NewService(memory.New(), billing.DefaultRateBook(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	svc.Now = func() billing.Date { return today }
	return svc
}

func createContact(t *testing.T, svc *crm.Service, c crm.Contact) *crm.Contact {
	t.Helper()
	out, err := svc.CreateContact(context.Background(), c)
	require.NoError(t, err)
	return out
}

// =============================================================================
// LEADS & CONTACTS
// =============================================================================

func TestCreateLead(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	lead, err := svc.CreateLead(ctx, crm.Lead{Name: " Jane ", Email: " Jane@Example.COM ", Provenance: "Tally"})
	require.NoError(t, err)
	assert.Equal(t, "Jane", lead.Name)
	assert.Equal(t, "jane@example.com", lead.Email)
	assert.Equal(t, crm.ProvenanceTally, lead.Provenance)

	// Unknown channel and empty identity are rejected
	_, err = svc.CreateLead(ctx, crm.Lead{Name: "x", Provenance: "fax"})
	assert.True(t, crm.IsClientError(err))
	_, err = svc.CreateLead(ctx, crm.Lead{})
	assert.True(t, crm.IsClientError(err))

	leads, err := svc.ListLeads(ctx)
	require.NoError(t, err)
	assert.Len(t, leads, 1)

	require.NoError(t, svc.DeleteLead(ctx, lead.ID))
	assert.ErrorIs(t, svc.DeleteLead(ctx, lead.ID), crm.ErrLeadNotFound)
}

func TestCreateContact_LinksLeadByEmail(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	lead, err := svc.CreateLead(ctx, crm.Lead{Name: "Jane", Email: "jane@example.com", Provenance: crm.ProvenanceDM})
	require.NoError(t, err)

	// WHEN: A contact shares the lead's email, in another case
	c := createContact(t, svc, crm.Contact{Name: "Jane Doe", Email: "JANE@example.com"})

	// THEN: It is linked and defaults are applied
	assert.Equal(t, lead.ID, c.LeadID)
	assert.Equal(t, crm.ContactCallScheduled, c.Status)
	assert.Equal(t, crm.JobOther, c.JobStatus)
	assert.Equal(t, crm.PipelineProspect, c.PipelineStatus)

	// Deleting the lead keeps the contact, unlinked
	require.NoError(t, svc.DeleteLead(ctx, lead.ID))
	got, err := svc.GetContact(ctx, c.ID)
	require.NoError(t, err)
	assert.Empty(t, got.LeadID)
}

func TestCreateContact_Validation(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		contact crm.Contact
	}{
		{"empty name", crm.Contact{Name: "  "}},
		{"bad status", crm.Contact{Name: "x", Status: "ghosted"}},
		{"bad job", crm.Contact{Name: "x", JobStatus: "astronaut"}},
		{"bad pipeline", crm.Contact{Name: "x", PipelineStatus: "r3_done"}},
		{"unknown setter", crm.Contact{Name: "x", Setter: "stranger"}},
		{"unknown closer", crm.Contact{Name: "x", Closer: "stranger"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateContact(ctx, tt.contact)
			assert.True(t, crm.IsClientError(err), "got %v", err)
		})
	}
}

func TestUpdateContact_KeepsPipelineStatus(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	c := createContact(t, svc, crm.Contact{Name: "Jane"})
	_, err := svc.ChangePipelineStatus(ctx, c.ID, crm.PipelineChange{Status: crm.PipelineR1Done})
	require.NoError(t, err)

	update := *c
	update.Name = "Jane Doe"
	update.PipelineStatus = crm.PipelineClosedWon
	got, err := svc.UpdateContact(ctx, update)
	require.NoError(t, err)

	assert.Equal(t, "Jane Doe", got.Name)
	assert.Equal(t, crm.PipelineR1Done, got.PipelineStatus)

	_, err = svc.UpdateContact(ctx, crm.Contact{ID: "missing", Name: "x"})
	assert.ErrorIs(t, err, crm.ErrContactNotFound)
}

func TestListContacts_Filters(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	createContact(t, svc, crm.Contact{Name: "Alice", Email: "alice@example.com", Status: crm.ContactNoShow})
	createContact(t, svc, crm.Contact{Name: "Bob", Phone: "+33 6 12"})

	got, err := svc.ListContacts(ctx, crm.ContactFilter{Status: crm.ContactNoShow})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Alice", got[0].Name)

	got, err = svc.ListContacts(ctx, crm.ContactFilter{Search: "6 12"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Bob", got[0].Name)

	got, err = svc.ListContacts(ctx, crm.ContactFilter{PipelineStatus: crm.PipelineProspect})
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestCreateContact_InheritsLeadSource(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	lead, err := svc.CreateLead(ctx, crm.Lead{Name: "Jane", Email: "jane@example.com", Source: " S-L-N "})
	require.NoError(t, err)
	assert.Equal(t, crm.SourceLinkedInNetwork, lead.Source)

	// WHEN: A contact with no source is linked to the lead
	linked := createContact(t, svc, crm.Contact{Name: "Jane", Email: "jane@example.com"})
	// and another one brings its own
	own := createContact(t, svc, crm.Contact{Name: "Sam", Source: crm.SourceSetterInbound})

	// THEN
	assert.Equal(t, crm.SourceLinkedInNetwork, linked.Source)
	assert.Equal(t, crm.SourceSetterInbound, own.Source)

	got, err := svc.ListContacts(ctx, crm.ContactFilter{Sources: crm.LinkedInSources})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, linked.ID, got[0].ID)

	got, err = svc.ListContacts(ctx, crm.ContactFilter{Sources: []string{crm.SourceSetterInbound, crm.SourceLinkedInNetwork}})
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

// =============================================================================
// PIPELINE
// =============================================================================

func TestChangePipelineStatus(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	c := createContact(t, svc, crm.Contact{Name: "Jane"})
	call := billing.NewDate(2026, 3, 14)

	// GIVEN: Scheduling a first call without a date
	_, err := svc.ChangePipelineStatus(ctx, c.ID, crm.PipelineChange{Status: crm.PipelineR1Scheduled})

	// THEN: Rejected
	assert.ErrorIs(t, err, crm.ErrMissingMeetingDate)
	assert.True(t, crm.IsClientError(err))

	// WHEN: With a date
	entry, err := svc.ChangePipelineStatus(ctx, c.ID, crm.PipelineChange{
		Status: crm.PipelineR1Scheduled, R1Date: call, Notes: "  found on skool ",
	})
	require.NoError(t, err)
	assert.Equal(t, "found on skool", entry.Notes)

	// THEN: The contact moved and its call date is set
	got, err := svc.GetContact(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, crm.PipelineR1Scheduled, got.PipelineStatus)
	assert.True(t, got.CallDate.Equal(call))

	// r2 needs its own date
	_, err = svc.ChangePipelineStatus(ctx, c.ID, crm.PipelineChange{Status: crm.PipelineR2Scheduled, R1Date: call})
	assert.ErrorIs(t, err, crm.ErrMissingMeetingDate)

	_, err = svc.ChangePipelineStatus(ctx, c.ID, crm.PipelineChange{Status: "r9"})
	assert.ErrorIs(t, err, crm.ErrInvalidPipelineStatus)

	_, err = svc.ChangePipelineStatus(ctx, "missing", crm.PipelineChange{Status: crm.PipelineR1Done})
	assert.ErrorIs(t, err, crm.ErrContactNotFound)

	history, err := svc.PipelineHistory(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, entry.ID, history[0].ID)
}

func TestUpdatePipelineNotes(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	c := createContact(t, svc, crm.Contact{Name: "Jane"})
	entry, err := svc.ChangePipelineStatus(ctx, c.ID, crm.PipelineChange{Status: crm.PipelineQualified})
	require.NoError(t, err)

	updated, err := svc.UpdatePipelineNotes(ctx, entry.ID, " budget confirmed ")
	require.NoError(t, err)
	assert.Equal(t, "budget confirmed", updated.Notes)

	history, err := svc.PipelineHistory(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "budget confirmed", history[0].Notes)

	_, err = svc.UpdatePipelineNotes(ctx, "missing", "x")
	assert.True(t, crm.IsNotFound(err))
}

func TestPipelineStatusOrdering(t *testing.T) {
	assert.Equal(t, 1, crm.PipelineProspect.Stage())
	assert.Equal(t, 7, crm.PipelineClosedWon.Stage())
	assert.Equal(t, 0, crm.PipelineClosedLost.Stage())
	assert.True(t, crm.PipelineNotQualified.IsTerminal())
	assert.False(t, crm.PipelineR2Done.IsTerminal())

	ps, err := crm.ParsePipelineStatus("")
	require.NoError(t, err)
	assert.Equal(t, crm.PipelineProspect, ps)
}

// =============================================================================
// CONVERSION
// =============================================================================

func TestConvertToClient(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	c := createContact(t, svc, crm.Contact{
		Name: "Jane", Email: "jane@example.com", Setter: billing.MemberC, Closer: billing.MemberA,
	})

	// WHEN: Converting a 3x deal of 3600 with no explicit first payment
	conv, err := svc.ConvertToClient(ctx, c.ID, crm.ConversionRequest{
		DealAmount:      dec("3600"),
		PaymentMethod:   billing.Payment3x,
		BillingPlatform: billing.PlatformGoCardless,
	})
	require.NoError(t, err)

	// THEN: The client inherits the contact and pays one share up front
	assert.Equal(t, string(c.ID), conv.Client.ContactID)
	assert.Equal(t, "Jane", conv.Client.Name)
	assert.Equal(t, billing.MemberA, conv.Client.ClosedBy)
	assert.Equal(t, billing.MemberC, conv.Client.Setter)
	assert.True(t, conv.Client.SetterCommissionPct.Equal(crm.DefaultSetterPct))
	assert.True(t, conv.Client.AmountPaid.Equal(dec("1200")))
	require.Len(t, conv.Installments, 3)
	assert.Equal(t, crm.ContactClosed, conv.Contact.Status)

	// A contact converts once
	_, err = svc.ConvertToClient(ctx, c.ID, crm.ConversionRequest{DealAmount: dec("100")})
	assert.ErrorIs(t, err, crm.ErrAlreadyConverted)
	assert.True(t, crm.IsConflict(err))

	d, err := svc.Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, d.Clients)
	assert.True(t, d.Revenue.Equal(dec("3600")))
}

func TestConvertToClient_ExplicitTermsAndRollback(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	c := createContact(t, svc, crm.Contact{Name: "Bob"})

	// An overpaid 2x deal fails and leaves the contact untouched
	over := dec("500")
	_, err := svc.ConvertToClient(ctx, c.ID, crm.ConversionRequest{
		DealAmount: dec("400"), PaymentMethod: billing.Payment2x, InitialPayment: &over,
	})
	assert.ErrorIs(t, err, billing.ErrOverpaid)
	got, err := svc.GetContact(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, crm.ContactCallScheduled, got.Status)

	// No setter means no commission unless given
	zero := dec("0")
	conv, err := svc.ConvertToClient(ctx, c.ID, crm.ConversionRequest{
		DealAmount: dec("1000"), InitialPayment: &zero,
		Distribution: billing.Distribution{billing.MemberA: dec("100")},
	})
	require.NoError(t, err)
	assert.False(t, conv.Client.HasSetterCommission())
	assert.Equal(t, billing.PaymentOneShot, conv.Client.PaymentMethod)
	require.Len(t, conv.Installments, 1)
	assert.Equal(t, billing.StatusPending, conv.Installments[0].Status)

	_, err = svc.ConvertToClient(ctx, "missing", crm.ConversionRequest{DealAmount: dec("1")})
	assert.ErrorIs(t, err, crm.ErrContactNotFound)
	_, err = svc.ConvertToClient(ctx, c.ID, crm.ConversionRequest{PaymentMethod: "7x"})
	assert.True(t, crm.IsClientError(err))
}

// =============================================================================
// SETTER STATS
// =============================================================================

func TestSetterStats(t *testing.T) {
	store := memory.New()
	svc := crm.NewService(store, billing.DefaultRateBook(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	svc.Now = func() billing.Date { return today }
	ctx := context.Background()
	now := time.Now()

	// GIVEN: Contacts from the inbound setter channel and from LinkedIn
	inbound := createContact(t, svc, crm.Contact{Name: "Ines", Source: crm.SourceSetterInbound, Setter: billing.MemberC})
	network := createContact(t, svc, crm.Contact{Name: "Nico", Source: crm.SourceLinkedInNetwork, Setter: billing.MemberC})
	createContact(t, svc, crm.Contact{Name: "Nora", Source: crm.SourceLinkedInNetwork})
	boost := createContact(t, svc, crm.Contact{Name: "Bart", Source: crm.SourceLinkedInBoost, Status: crm.ContactClosed})
	createContact(t, svc, crm.Contact{Name: "Walk-in"})

	// Inbound: 1000 at the default 10% = 100 this month
	_, err := svc.ConvertToClient(ctx, inbound.ID, crm.ConversionRequest{DealAmount: dec("1000")})
	require.NoError(t, err)
	// Network: 3000 at 20% = 600 this month
	pct := dec("20")
	_, err = svc.ConvertToClient(ctx, network.ID, crm.ConversionRequest{DealAmount: dec("3000"), SetterCommissionPct: &pct})
	require.NoError(t, err)
	// Boost: 1000 at 10% = 100, signed two months ago
	require.NoError(t, store.SaveClient(ctx, billing.Client{
		ID: "old", ContactID: string(boost.ID), Name: "Bart", DealAmount: dec("1000"),
		SetterCommissionPct: dec("10"), CreatedAt: now.AddDate(0, -2, 0),
	}))

	// WHEN: Looking at the LinkedIn board
	stats, err := svc.SetterStats(ctx, crm.LinkedInSources, now)
	require.NoError(t, err)

	// THEN: Nico and Bart closed out of three
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 2, stats.Closed)
	assert.True(t, stats.Rate.Equal(dec("66.67")), "got %s", stats.Rate)
	require.Len(t, stats.BySource, 2)
	assert.Equal(t, 2, stats.BySource[crm.SourceLinkedInNetwork].Total)
	assert.True(t, stats.BySource[crm.SourceLinkedInNetwork].Rate.Equal(dec("50")))
	assert.True(t, stats.BySource[crm.SourceLinkedInBoost].Rate.Equal(dec("100")))
	assert.True(t, stats.TotalCommission.Equal(dec("700")), "got %s", stats.TotalCommission)
	assert.True(t, stats.MonthCommission.Equal(dec("600")), "got %s", stats.MonthCommission)

	// The inbound board only sees Ines
	stats, err = svc.SetterStats(ctx, []string{crm.SourceSetterInbound}, now)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Total)
	assert.True(t, stats.Rate.Equal(dec("100")))
	assert.True(t, stats.TotalCommission.Equal(dec("100")))
	assert.True(t, stats.MonthCommission.Equal(dec("100")))

	// No filter covers every contact
	stats, err = svc.SetterStats(ctx, nil, now)
	require.NoError(t, err)
	assert.Equal(t, 5, stats.Total)
	assert.Equal(t, 3, stats.Closed)
	assert.True(t, stats.Rate.Equal(dec("60")))
	assert.True(t, stats.TotalCommission.Equal(dec("800")))
}

func TestSetterStats_Empty(t *testing.T) {
	svc := newService(t)

	stats, err := svc.SetterStats(context.Background(), crm.LinkedInSources, time.Now())

	require.NoError(t, err)
	assert.Zero(t, stats.Total)
	assert.True(t, stats.Rate.IsZero())
	assert.True(t, stats.TotalCommission.IsZero())
	assert.Empty(t, stats.BySource)
}

func TestDashboard_PipelineCounts(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	_, err := svc.CreateLead(ctx, crm.Lead{Name: "Lead"})
	require.NoError(t, err)
	a := createContact(t, svc, crm.Contact{Name: "A"})
	createContact(t, svc, crm.Contact{Name: "B"})
	_, err = svc.ChangePipelineStatus(ctx, a.ID, crm.PipelineChange{Status: crm.PipelineNotQualified})
	require.NoError(t, err)

	d, err := svc.Dashboard(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, d.Leads)
	assert.Equal(t, 2, d.Contacts)
	assert.Zero(t, d.Clients)
	assert.Equal(t, 1, d.Pipeline[crm.PipelineProspect])
	assert.Equal(t, 1, d.Pipeline[crm.PipelineNotQualified])

	require.NoError(t, svc.DeleteContact(ctx, a.ID))
	assert.ErrorIs(t, svc.DeleteContact(ctx, a.ID), crm.ErrContactNotFound)
}

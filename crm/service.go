package crm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/crm-engine/billing"
)

// =============================================================================
// SERVICE
// =============================================================================

type Service struct {
	Store  TxStore
	Rates  billing.Rates
	Now    func() billing.Date
	Logger *slog.Logger
}

func NewService(store TxStore, rates billing.Rates, logger *slog.Logger) *Service {
	if rates == nil {
		rates = billing.DefaultRateBook()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{Store: store, Rates: rates, Now: billing.Today, Logger: logger}
}

func (s *Service) today() billing.Date {
	if s.Now == nil {
		return billing.Today()
	}
	return s.Now()
}

// =============================================================================
// LEADS
// =============================================================================

func (s *Service) CreateLead(ctx context.Context, l Lead) (*Lead, error) {
	if l.ID == "" {
		l.ID = NewLeadID()
	}
	l.Name = strings.TrimSpace(l.Name)
	l.Email = normalizeEmail(l.Email)
	l.Source = normalizeSource(l.Source)
	if l.Name == "" && l.Email == "" {
		return nil, &billing.ValidationError{Field: "name", Err: billing.ErrInvalidInput}
	}
	p, err := ParseProvenance(string(l.Provenance))
	if err != nil {
		return nil, &billing.ValidationError{Field: "provenance", Err: err}
	}
	l.Provenance = p
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now().UTC()
	}
	if err := s.Store.SaveLead(ctx, l); err != nil {
		return nil, fmt.Errorf("failed to save lead: %w", err)
	}
	s.Logger.InfoContext(ctx, "lead created", "lead_id", l.ID, "provenance", l.Provenance)
	return &l, nil
}

func (s *Service) ListLeads(ctx context.Context) ([]Lead, error) {
	return s.Store.ListLeads(ctx)
}

func (s *Service) DeleteLead(ctx context.Context, id LeadID) error {
	l, err := s.Store.GetLead(ctx, id)
	if err != nil {
		return err
	}
	if l == nil {
		return ErrLeadNotFound
	}
	return s.Store.DeleteLead(ctx, id)
}

// =============================================================================
// CONTACTS
// =============================================================================

func (s *Service) prepareContact(c *Contact) error {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return &billing.ValidationError{Field: "name", Err: billing.ErrInvalidInput}
	}
	c.Email = normalizeEmail(c.Email)
	c.Source = normalizeSource(c.Source)

	status, err := ParseContactStatus(string(c.Status))
	if err != nil {
		return &billing.ValidationError{Field: "status", Err: err}
	}
	c.Status = status
	job, err := ParseJobStatus(string(c.JobStatus))
	if err != nil {
		return &billing.ValidationError{Field: "job_status", Err: err}
	}
	c.JobStatus = job
	ps, err := ParsePipelineStatus(string(c.PipelineStatus))
	if err != nil {
		return &billing.ValidationError{Field: "pipeline_status", Err: err}
	}
	c.PipelineStatus = ps

	roster := s.Rates.Current()
	if c.Setter != "" && !roster.IsMember(c.Setter) {
		return &billing.ValidationError{Field: "setter", Err: fmt.Errorf("%w: unknown member %q", billing.ErrInvalidInput, c.Setter)}
	}
	if c.Closer != "" && !roster.IsMember(c.Closer) {
		return &billing.ValidationError{Field: "closer", Err: fmt.Errorf("%w: unknown member %q", billing.ErrInvalidInput, c.Closer)}
	}
	return nil
}

// CreateContact stores a new contact. A contact without an explicit lead is
// linked to the lead sharing its email, if any.
func (s *Service) CreateContact(ctx context.Context, c Contact) (*Contact, error) {
	if c.ID == "" {
		c.ID = NewContactID()
	}
	if err := s.prepareContact(&c); err != nil {
		return nil, err
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}

	if c.LeadID == "" && c.Email != "" {
		lead, err := s.Store.FindLeadByEmail(ctx, c.Email)
		if err != nil {
			return nil, err
		}
		if lead != nil {
			c.LeadID = lead.ID
			if c.Source == "" {
				c.Source = lead.Source
			}
		}
	}

	if err := s.Store.SaveContact(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to save contact: %w", err)
	}
	s.Logger.InfoContext(ctx, "contact created", "contact_id", c.ID, "lead_id", c.LeadID)
	return &c, nil
}

// UpdateContact replaces a contact's editable fields. The pipeline status is
// only changed through ChangePipelineStatus.
func (s *Service) UpdateContact(ctx context.Context, c Contact) (*Contact, error) {
	existing, err := s.Store.GetContact(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, ErrContactNotFound
	}
	c.CreatedAt = existing.CreatedAt
	c.PipelineStatus = existing.PipelineStatus
	if c.LeadID == "" {
		c.LeadID = existing.LeadID
	}
	if err := s.prepareContact(&c); err != nil {
		return nil, err
	}
	if err := s.Store.SaveContact(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to save contact: %w", err)
	}
	return &c, nil
}

func (s *Service) GetContact(ctx context.Context, id ContactID) (*Contact, error) {
	c, err := s.Store.GetContact(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrContactNotFound
	}
	return c, nil
}

func (s *Service) ListContacts(ctx context.Context, filter ContactFilter) ([]Contact, error) {
	return s.Store.ListContacts(ctx, filter)
}

func (s *Service) DeleteContact(ctx context.Context, id ContactID) error {
	return withTx(ctx, s.Store, func(st Store) error {
		c, err := st.GetContact(ctx, id)
		if err != nil {
			return err
		}
		if c == nil {
			return ErrContactNotFound
		}
		return st.DeleteContact(ctx, id)
	})
}

// =============================================================================
// PIPELINE
// =============================================================================

// ChangePipelineStatus records a status change in the contact's history and
// moves the contact, atomically.
func (s *Service) ChangePipelineStatus(ctx context.Context, id ContactID, change PipelineChange) (*PipelineEntry, error) {
	ps, err := ParsePipelineStatus(string(change.Status))
	if err != nil {
		return nil, err
	}
	change.Status = ps
	if err := change.Validate(); err != nil {
		return nil, err
	}

	entry := PipelineEntry{
		ID:        NewPipelineEntryID(),
		ContactID: id,
		Status:    change.Status,
		Notes:     strings.TrimSpace(change.Notes),
		R1Date:    change.R1Date,
		R2Date:    change.R2Date,
		CreatedAt: time.Now().UTC(),
	}
	err = withTx(ctx, s.Store, func(st Store) error {
		c, err := st.GetContact(ctx, id)
		if err != nil {
			return err
		}
		if c == nil {
			return ErrContactNotFound
		}
		if err := st.AppendPipelineEntry(ctx, entry); err != nil {
			return fmt.Errorf("failed to append pipeline entry: %w", err)
		}
		c.PipelineStatus = change.Status
		switch change.Status {
		case PipelineR1Scheduled:
			c.CallDate = change.R1Date
		case PipelineR2Scheduled:
			c.CallDate = change.R2Date
		}
		return st.SaveContact(ctx, *c)
	})
	if err != nil {
		return nil, err
	}
	s.Logger.InfoContext(ctx, "pipeline status changed", "contact_id", id, "status", change.Status)
	return &entry, nil
}

func (s *Service) UpdatePipelineNotes(ctx context.Context, id PipelineEntryID, notes string) (*PipelineEntry, error) {
	var out *PipelineEntry
	err := withTx(ctx, s.Store, func(st Store) error {
		e, err := st.GetPipelineEntry(ctx, id)
		if err != nil {
			return err
		}
		if e == nil {
			return ErrPipelineEntryNotFound
		}
		e.Notes = strings.TrimSpace(notes)
		if err := st.UpdatePipelineNotes(ctx, id, e.Notes); err != nil {
			return err
		}
		out = e
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) PipelineHistory(ctx context.Context, id ContactID) ([]PipelineEntry, error) {
	c, err := s.Store.GetContact(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrContactNotFound
	}
	return s.Store.ListPipelineEntries(ctx, id)
}

// =============================================================================
// CONVERSION - Contact to billing client
// =============================================================================

// DefaultSetterPct applies when a contact with a setter converts and no
// percentage is given.
var DefaultSetterPct = decimal.NewFromInt(10)

// ConversionRequest carries the deal terms agreed with the contact.
type ConversionRequest struct {
	DealAmount      decimal.Decimal
	PaymentMethod   billing.PaymentMethod
	BillingPlatform billing.BillingPlatform
	ClosedBy        billing.TeamMember

	// InitialPayment defaults to one even share of the deal.
	InitialPayment *decimal.Decimal
	// SetterCommissionPct defaults to DefaultSetterPct when the contact has
	// a setter, 0 otherwise.
	SetterCommissionPct *decimal.Decimal
	Distribution        billing.Distribution
	Notes               string
}

// Conversion is the outcome of ConvertToClient.
type Conversion struct {
	Contact      Contact
	Client       billing.Client
	Installments []billing.Installment
}

// ConvertToClient turns a contact into a billing client with its schedule
// and marks the contact closed, in one transaction.
func (s *Service) ConvertToClient(ctx context.Context, id ContactID, req ConversionRequest) (*Conversion, error) {
	if req.PaymentMethod == "" {
		req.PaymentMethod = billing.PaymentOneShot
	}
	method, err := billing.ParsePaymentMethod(string(req.PaymentMethod))
	if err != nil {
		return nil, &billing.ValidationError{Field: "payment_method", Err: err}
	}

	var out *Conversion
	err = withTx(ctx, s.Store, func(st Store) error {
		contact, err := st.GetContact(ctx, id)
		if err != nil {
			return err
		}
		if contact == nil {
			return ErrContactNotFound
		}
		clients, err := st.ListClients(ctx)
		if err != nil {
			return err
		}
		for _, c := range clients {
			if c.ContactID == string(id) {
				return ErrAlreadyConverted
			}
		}

		initial := req.InitialPayment
		if initial == nil {
			d, err := billing.DefaultInitialPayment(req.DealAmount, method)
			if err != nil {
				return err
			}
			initial = &d
		}
		setterPct := decimal.Zero
		if req.SetterCommissionPct != nil {
			setterPct = *req.SetterCommissionPct
		} else if contact.Setter != "" {
			setterPct = DefaultSetterPct
		}
		closedBy := req.ClosedBy
		if closedBy == "" {
			closedBy = contact.Closer
		}

		client := billing.Client{
			ContactID:           string(contact.ID),
			Name:                contact.Name,
			Email:               contact.Email,
			Phone:               contact.Phone,
			DealAmount:          req.DealAmount,
			PaymentMethod:       method,
			BillingPlatform:     req.BillingPlatform,
			ClosedBy:            closedBy,
			Setter:              contact.Setter,
			SetterCommissionPct: setterPct,
			Distribution:        req.Distribution.Clone(),
			Notes:               req.Notes,
		}
		if err := billing.PrepareClient(&client, s.Rates.Current(), time.Now()); err != nil {
			return err
		}
		saved, plan, err := billing.InsertSchedule(ctx, st, client, *initial, s.today())
		if err != nil {
			return err
		}

		contact.Status = ContactClosed
		if err := st.SaveContact(ctx, *contact); err != nil {
			return fmt.Errorf("failed to save contact: %w", err)
		}
		out = &Conversion{Contact: *contact, Client: saved, Installments: plan}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.Logger.InfoContext(ctx, "contact converted",
		"contact_id", id, "client_id", out.Client.ID, "deal_amount", out.Client.DealAmount.String())
	return out, nil
}

// =============================================================================
// DASHBOARD
// =============================================================================

// Dashboard holds the home page counters.
type Dashboard struct {
	Leads    int
	Contacts int
	Clients  int
	Revenue  decimal.Decimal // sum of deal amounts
	Pipeline map[PipelineStatus]int
}

func (s *Service) Dashboard(ctx context.Context) (*Dashboard, error) {
	leads, err := s.Store.ListLeads(ctx)
	if err != nil {
		return nil, err
	}
	contacts, err := s.Store.ListContacts(ctx, ContactFilter{})
	if err != nil {
		return nil, err
	}
	clients, err := s.Store.ListClients(ctx)
	if err != nil {
		return nil, err
	}

	d := &Dashboard{
		Leads:    len(leads),
		Contacts: len(contacts),
		Clients:  len(clients),
		Revenue:  decimal.Zero,
		Pipeline: make(map[PipelineStatus]int),
	}
	for _, c := range clients {
		d.Revenue = d.Revenue.Add(c.DealAmount)
	}
	for _, c := range contacts {
		d.Pipeline[c.PipelineStatus]++
	}
	return d, nil
}

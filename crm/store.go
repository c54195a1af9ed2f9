package crm

import (
	"context"

	"github.com/warp/crm-engine/billing"
)

// ContactFilter narrows ListContacts. Search matches name, email or phone.
// Sources keeps contacts whose source is one of the listed values.
type ContactFilter struct {
	Status         ContactStatus
	PipelineStatus PipelineStatus
	Sources        []string
	Search         string
}

// Store extends billing.Store with CRM records. Every concrete store
// implements both, so a billing transaction can be asserted to a crm.Store.
type Store interface {
	billing.Store

	SaveLead(ctx context.Context, l Lead) error
	GetLead(ctx context.Context, id LeadID) (*Lead, error)
	// FindLeadByEmail matches case-insensitively; (nil, nil) when none.
	FindLeadByEmail(ctx context.Context, email string) (*Lead, error)
	// ListLeads returns leads newest first.
	ListLeads(ctx context.Context) ([]Lead, error)
	DeleteLead(ctx context.Context, id LeadID) error

	SaveContact(ctx context.Context, c Contact) error
	GetContact(ctx context.Context, id ContactID) (*Contact, error)
	// ListContacts returns contacts newest first.
	ListContacts(ctx context.Context, filter ContactFilter) ([]Contact, error)
	DeleteContact(ctx context.Context, id ContactID) error

	AppendPipelineEntry(ctx context.Context, e PipelineEntry) error
	GetPipelineEntry(ctx context.Context, id PipelineEntryID) (*PipelineEntry, error)
	// ListPipelineEntries returns a contact's history, oldest first.
	ListPipelineEntries(ctx context.Context, contactID ContactID) ([]PipelineEntry, error)
	UpdatePipelineNotes(ctx context.Context, id PipelineEntryID, notes string) error
}

// TxStore is a Store whose transactions hand out a billing.Store that also
// satisfies Store.
type TxStore interface {
	Store
	WithTx(ctx context.Context, fn func(billing.Store) error) error
}

// withTx runs fn with the transactional view asserted to a crm Store.
func withTx(ctx context.Context, st TxStore, fn func(Store) error) error {
	return st.WithTx(ctx, func(bs billing.Store) error {
		cs, ok := bs.(Store)
		if !ok {
			return billing.ErrStoreRequired
		}
		return fn(cs)
	})
}

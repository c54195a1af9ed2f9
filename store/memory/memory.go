// Package memory provides an in-memory crm.TxStore (for tests and demos).
package memory

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/warp/crm-engine/billing"
	"github.com/warp/crm-engine/crm"
)

// =============================================================================
// MEMORY STORE
// =============================================================================

type Memory struct {
	mu sync.RWMutex
	d  *data
}

type deductionKey struct {
	ExpenseID billing.ExpenseID
	Period    billing.Period
}

type data struct {
	clients      map[billing.ClientID]billing.Client
	installments map[billing.InstallmentID]billing.Installment
	expenses     map[billing.ExpenseID]billing.Expense
	deductions   map[deductionKey]billing.Deduction
	leads        map[crm.LeadID]crm.Lead
	contacts     map[crm.ContactID]crm.Contact
	pipeline     map[crm.ContactID][]crm.PipelineEntry
}

func newData() *data {
	return &data{
		clients:      make(map[billing.ClientID]billing.Client),
		installments: make(map[billing.InstallmentID]billing.Installment),
		expenses:     make(map[billing.ExpenseID]billing.Expense),
		deductions:   make(map[deductionKey]billing.Deduction),
		leads:        make(map[crm.LeadID]crm.Lead),
		contacts:     make(map[crm.ContactID]crm.Contact),
		pipeline:     make(map[crm.ContactID][]crm.PipelineEntry),
	}
}

var (
	_ crm.TxStore = (*Memory)(nil)
	_ crm.Store   = (*view)(nil)
)

func New() *Memory {
	return &Memory{d: newData()}
}

// Reset drops every record.
func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.d = newData()
	return nil
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// WithTx executes fn within a transaction.
// For memory store, this is simulated with a snapshot + rollback on error.
func (m *Memory) WithTx(ctx context.Context, fn func(billing.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.d.clone()
	if err := fn(&view{d: m.d}); err != nil {
		m.d = snapshot
		return err
	}
	return nil
}

func (d *data) clone() *data {
	c := newData()
	for k, v := range d.clients {
		v.Distribution = v.Distribution.Clone()
		c.clients[k] = v
	}
	for k, v := range d.installments {
		c.installments[k] = v
	}
	for k, v := range d.expenses {
		c.expenses[k] = v
	}
	for k, v := range d.deductions {
		c.deductions[k] = v
	}
	for k, v := range d.leads {
		c.leads[k] = v
	}
	for k, v := range d.contacts {
		c.contacts[k] = v
	}
	for k, v := range d.pipeline {
		c.pipeline[k] = append([]crm.PipelineEntry(nil), v...)
	}
	return c
}

// =============================================================================
// LOCKED ACCESSORS
// =============================================================================

func (m *Memory) read(fn func(*view) error) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return fn(&view{d: m.d})
}

func (m *Memory) write(fn func(*view) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(&view{d: m.d})
}

func (m *Memory) SaveClient(ctx context.Context, c billing.Client) error {
	return m.write(func(v *view) error { return v.SaveClient(ctx, c) })
}

func (m *Memory) GetClient(ctx context.Context, id billing.ClientID) (out *billing.Client, err error) {
	err = m.read(func(v *view) error { out, err = v.GetClient(ctx, id); return err })
	return out, err
}

func (m *Memory) ListClients(ctx context.Context) (out []billing.Client, err error) {
	err = m.read(func(v *view) error { out, err = v.ListClients(ctx); return err })
	return out, err
}

func (m *Memory) DeleteClient(ctx context.Context, id billing.ClientID) error {
	return m.write(func(v *view) error { return v.DeleteClient(ctx, id) })
}

func (m *Memory) InsertInstallments(ctx context.Context, insts []billing.Installment) error {
	return m.write(func(v *view) error { return v.InsertInstallments(ctx, insts) })
}

func (m *Memory) GetInstallment(ctx context.Context, id billing.InstallmentID) (out *billing.Installment, err error) {
	err = m.read(func(v *view) error { out, err = v.GetInstallment(ctx, id); return err })
	return out, err
}

func (m *Memory) ListInstallments(ctx context.Context, f billing.InstallmentFilter) (out []billing.Installment, err error) {
	err = m.read(func(v *view) error { out, err = v.ListInstallments(ctx, f); return err })
	return out, err
}

func (m *Memory) UpdateInstallment(ctx context.Context, inst billing.Installment) error {
	return m.write(func(v *view) error { return v.UpdateInstallment(ctx, inst) })
}

func (m *Memory) DeleteInstallments(ctx context.Context, clientID billing.ClientID) error {
	return m.write(func(v *view) error { return v.DeleteInstallments(ctx, clientID) })
}

func (m *Memory) SaveExpense(ctx context.Context, e billing.Expense) error {
	return m.write(func(v *view) error { return v.SaveExpense(ctx, e) })
}

func (m *Memory) GetExpense(ctx context.Context, id billing.ExpenseID) (out *billing.Expense, err error) {
	err = m.read(func(v *view) error { out, err = v.GetExpense(ctx, id); return err })
	return out, err
}

func (m *Memory) ListExpenses(ctx context.Context, f billing.ExpenseFilter) (out []billing.Expense, err error) {
	err = m.read(func(v *view) error { out, err = v.ListExpenses(ctx, f); return err })
	return out, err
}

func (m *Memory) DeleteExpense(ctx context.Context, id billing.ExpenseID) error {
	return m.write(func(v *view) error { return v.DeleteExpense(ctx, id) })
}

func (m *Memory) InsertDeduction(ctx context.Context, d billing.Deduction) error {
	return m.write(func(v *view) error { return v.InsertDeduction(ctx, d) })
}

func (m *Memory) DeleteDeduction(ctx context.Context, id billing.ExpenseID, p billing.Period) error {
	return m.write(func(v *view) error { return v.DeleteDeduction(ctx, id, p) })
}

func (m *Memory) ListDeductions(ctx context.Context, f billing.DeductionFilter) (out []billing.Deduction, err error) {
	err = m.read(func(v *view) error { out, err = v.ListDeductions(ctx, f); return err })
	return out, err
}

func (m *Memory) SaveLead(ctx context.Context, l crm.Lead) error {
	return m.write(func(v *view) error { return v.SaveLead(ctx, l) })
}

func (m *Memory) GetLead(ctx context.Context, id crm.LeadID) (out *crm.Lead, err error) {
	err = m.read(func(v *view) error { out, err = v.GetLead(ctx, id); return err })
	return out, err
}

func (m *Memory) FindLeadByEmail(ctx context.Context, email string) (out *crm.Lead, err error) {
	err = m.read(func(v *view) error { out, err = v.FindLeadByEmail(ctx, email); return err })
	return out, err
}

func (m *Memory) ListLeads(ctx context.Context) (out []crm.Lead, err error) {
	err = m.read(func(v *view) error { out, err = v.ListLeads(ctx); return err })
	return out, err
}

func (m *Memory) DeleteLead(ctx context.Context, id crm.LeadID) error {
	return m.write(func(v *view) error { return v.DeleteLead(ctx, id) })
}

func (m *Memory) SaveContact(ctx context.Context, c crm.Contact) error {
	return m.write(func(v *view) error { return v.SaveContact(ctx, c) })
}

func (m *Memory) GetContact(ctx context.Context, id crm.ContactID) (out *crm.Contact, err error) {
	err = m.read(func(v *view) error { out, err = v.GetContact(ctx, id); return err })
	return out, err
}

func (m *Memory) ListContacts(ctx context.Context, f crm.ContactFilter) (out []crm.Contact, err error) {
	err = m.read(func(v *view) error { out, err = v.ListContacts(ctx, f); return err })
	return out, err
}

func (m *Memory) DeleteContact(ctx context.Context, id crm.ContactID) error {
	return m.write(func(v *view) error { return v.DeleteContact(ctx, id) })
}

func (m *Memory) AppendPipelineEntry(ctx context.Context, e crm.PipelineEntry) error {
	return m.write(func(v *view) error { return v.AppendPipelineEntry(ctx, e) })
}

func (m *Memory) GetPipelineEntry(ctx context.Context, id crm.PipelineEntryID) (out *crm.PipelineEntry, err error) {
	err = m.read(func(v *view) error { out, err = v.GetPipelineEntry(ctx, id); return err })
	return out, err
}

func (m *Memory) ListPipelineEntries(ctx context.Context, id crm.ContactID) (out []crm.PipelineEntry, err error) {
	err = m.read(func(v *view) error { out, err = v.ListPipelineEntries(ctx, id); return err })
	return out, err
}

func (m *Memory) UpdatePipelineNotes(ctx context.Context, id crm.PipelineEntryID, notes string) error {
	return m.write(func(v *view) error { return v.UpdatePipelineNotes(ctx, id, notes) })
}

// =============================================================================
// VIEW - Unlocked access, used directly inside WithTx
// =============================================================================

type view struct {
	d *data
}

func (v *view) SaveClient(_ context.Context, c billing.Client) error {
	c.Distribution = c.Distribution.Clone()
	v.d.clients[c.ID] = c
	return nil
}

func (v *view) GetClient(_ context.Context, id billing.ClientID) (*billing.Client, error) {
	c, ok := v.d.clients[id]
	if !ok {
		return nil, nil
	}
	c.Distribution = c.Distribution.Clone()
	return &c, nil
}

func (v *view) ListClients(_ context.Context) ([]billing.Client, error) {
	out := make([]billing.Client, 0, len(v.d.clients))
	for _, c := range v.d.clients {
		c.Distribution = c.Distribution.Clone()
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (v *view) DeleteClient(_ context.Context, id billing.ClientID) error {
	delete(v.d.clients, id)
	return nil
}

func (v *view) InsertInstallments(_ context.Context, insts []billing.Installment) error {
	for _, inst := range insts {
		v.d.installments[inst.ID] = inst
	}
	return nil
}

func (v *view) GetInstallment(_ context.Context, id billing.InstallmentID) (*billing.Installment, error) {
	inst, ok := v.d.installments[id]
	if !ok {
		return nil, nil
	}
	return &inst, nil
}

func (v *view) ListInstallments(_ context.Context, f billing.InstallmentFilter) ([]billing.Installment, error) {
	var out []billing.Installment
	for _, inst := range v.d.installments {
		if f.ClientID != "" && inst.ClientID != f.ClientID {
			continue
		}
		if f.Status != "" && inst.Status != f.Status {
			continue
		}
		if f.Dispatched != nil && inst.IsDispatched != *f.Dispatched {
			continue
		}
		out = append(out, inst)
	}
	return billing.SortByDueDate(out), nil
}

func (v *view) UpdateInstallment(_ context.Context, inst billing.Installment) error {
	if _, ok := v.d.installments[inst.ID]; !ok {
		return billing.ErrInstallmentNotFound
	}
	v.d.installments[inst.ID] = inst
	return nil
}

func (v *view) DeleteInstallments(_ context.Context, clientID billing.ClientID) error {
	for id, inst := range v.d.installments {
		if inst.ClientID == clientID {
			delete(v.d.installments, id)
		}
	}
	return nil
}

func (v *view) SaveExpense(_ context.Context, e billing.Expense) error {
	v.d.expenses[e.ID] = e
	return nil
}

func (v *view) GetExpense(_ context.Context, id billing.ExpenseID) (*billing.Expense, error) {
	e, ok := v.d.expenses[id]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (v *view) ListExpenses(_ context.Context, f billing.ExpenseFilter) ([]billing.Expense, error) {
	search := strings.ToLower(strings.TrimSpace(f.Search))
	var out []billing.Expense
	for _, e := range v.d.expenses {
		if f.Type != "" && e.Type != f.Type {
			continue
		}
		if f.Deducted != nil && e.IsDeducted != *f.Deducted {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(e.Name), search) &&
			!strings.Contains(strings.ToLower(e.Category), search) {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (v *view) DeleteExpense(_ context.Context, id billing.ExpenseID) error {
	delete(v.d.expenses, id)
	return nil
}

func (v *view) InsertDeduction(_ context.Context, d billing.Deduction) error {
	k := deductionKey{ExpenseID: d.ExpenseID, Period: d.Period}
	if _, ok := v.d.deductions[k]; ok {
		return billing.ErrDuplicateDeduction
	}
	v.d.deductions[k] = d
	return nil
}

func (v *view) DeleteDeduction(_ context.Context, id billing.ExpenseID, p billing.Period) error {
	delete(v.d.deductions, deductionKey{ExpenseID: id, Period: p})
	return nil
}

func (v *view) ListDeductions(_ context.Context, f billing.DeductionFilter) ([]billing.Deduction, error) {
	var out []billing.Deduction
	for k, d := range v.d.deductions {
		if f.ExpenseID != "" && k.ExpenseID != f.ExpenseID {
			continue
		}
		if f.Period != nil && k.Period != *f.Period {
			continue
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].Period, out[j].Period
		if a.Year != b.Year {
			return a.Year < b.Year
		}
		if a.Month != b.Month {
			return a.Month < b.Month
		}
		return out[i].ExpenseID < out[j].ExpenseID
	})
	return out, nil
}

func (v *view) SaveLead(_ context.Context, l crm.Lead) error {
	v.d.leads[l.ID] = l
	return nil
}

func (v *view) GetLead(_ context.Context, id crm.LeadID) (*crm.Lead, error) {
	l, ok := v.d.leads[id]
	if !ok {
		return nil, nil
	}
	return &l, nil
}

func (v *view) FindLeadByEmail(_ context.Context, email string) (*crm.Lead, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, nil
	}
	leads, _ := v.ListLeads(context.Background())
	for _, l := range leads {
		if strings.ToLower(l.Email) == email {
			return &l, nil
		}
	}
	return nil, nil
}

func (v *view) ListLeads(_ context.Context) ([]crm.Lead, error) {
	out := make([]crm.Lead, 0, len(v.d.leads))
	for _, l := range v.d.leads {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (v *view) DeleteLead(_ context.Context, id crm.LeadID) error {
	delete(v.d.leads, id)
	for cid, c := range v.d.contacts {
		if c.LeadID == id {
			c.LeadID = ""
			v.d.contacts[cid] = c
		}
	}
	return nil
}

func (v *view) SaveContact(_ context.Context, c crm.Contact) error {
	v.d.contacts[c.ID] = c
	return nil
}

func (v *view) GetContact(_ context.Context, id crm.ContactID) (*crm.Contact, error) {
	c, ok := v.d.contacts[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (v *view) ListContacts(_ context.Context, f crm.ContactFilter) ([]crm.Contact, error) {
	search := strings.ToLower(strings.TrimSpace(f.Search))
	var out []crm.Contact
	for _, c := range v.d.contacts {
		if f.Status != "" && c.Status != f.Status {
			continue
		}
		if f.PipelineStatus != "" && c.PipelineStatus != f.PipelineStatus {
			continue
		}
		if len(f.Sources) > 0 && !slices.Contains(f.Sources, c.Source) {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(c.Name), search) &&
			!strings.Contains(strings.ToLower(c.Email), search) &&
			!strings.Contains(strings.ToLower(c.Phone), search) {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (v *view) DeleteContact(_ context.Context, id crm.ContactID) error {
	delete(v.d.contacts, id)
	delete(v.d.pipeline, id)
	return nil
}

func (v *view) AppendPipelineEntry(_ context.Context, e crm.PipelineEntry) error {
	v.d.pipeline[e.ContactID] = append(v.d.pipeline[e.ContactID], e)
	return nil
}

func (v *view) GetPipelineEntry(_ context.Context, id crm.PipelineEntryID) (*crm.PipelineEntry, error) {
	for _, entries := range v.d.pipeline {
		for _, e := range entries {
			if e.ID == id {
				return &e, nil
			}
		}
	}
	return nil, nil
}

func (v *view) ListPipelineEntries(_ context.Context, id crm.ContactID) ([]crm.PipelineEntry, error) {
	return append([]crm.PipelineEntry(nil), v.d.pipeline[id]...), nil
}

func (v *view) UpdatePipelineNotes(_ context.Context, id crm.PipelineEntryID, notes string) error {
	for cid, entries := range v.d.pipeline {
		for i := range entries {
			if entries[i].ID == id {
				v.d.pipeline[cid][i].Notes = notes
				return nil
			}
		}
	}
	return crm.ErrPipelineEntryNotFound
}

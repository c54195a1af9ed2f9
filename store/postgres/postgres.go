// Package postgres implements crm.TxStore on PostgreSQL through a pgx pool.
//
// The schema mirrors store/sqlite with native types: NUMERIC for money,
// DATE for calendar days, TIMESTAMPTZ for audit times and JSONB for the
// commission distribution.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/warp/crm-engine/billing"
	"github.com/warp/crm-engine/crm"
)

var (
	_ crm.TxStore = (*Store)(nil)
	_ crm.Store   = (*queries)(nil)
)

// NewPool parses the URL, opens a pool and pings it.
func NewPool(ctx context.Context, url string) (*pgxpool.Pool, error) {
	if url == "" {
		return nil, fmt.Errorf("DATABASE_URL not set")
	}

	config, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("unable to parse DATABASE_URL: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	return pool, nil
}

// querier is satisfied by *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

type queries struct {
	q querier
}

// Store implements crm.TxStore.
type Store struct {
	queries
	pool *pgxpool.Pool
}

// New wraps an open pool and applies the schema.
func New(ctx context.Context, pool *pgxpool.Pool) (*Store, error) {
	s := &Store{queries: queries{q: pool}, pool: pool}
	if err := s.migrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

// Open is NewPool followed by New.
func Open(ctx context.Context, url string) (*Store, error) {
	pool, err := NewPool(ctx, url)
	if err != nil {
		return nil, err
	}
	s, err := New(ctx, pool)
	if err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

const schema = `
CREATE TABLE IF NOT EXISTS clients (
	id TEXT PRIMARY KEY,
	contact_id TEXT NOT NULL DEFAULT '',
	name TEXT NOT NULL DEFAULT '',
	email TEXT NOT NULL DEFAULT '',
	phone TEXT NOT NULL DEFAULT '',
	deal_amount NUMERIC(14,2) NOT NULL,
	amount_paid NUMERIC(14,2) NOT NULL,
	payment_method TEXT NOT NULL,
	billing_platform TEXT NOT NULL,
	closed_by TEXT NOT NULL DEFAULT '',
	setter TEXT NOT NULL DEFAULT '',
	setter_commission_pct NUMERIC(7,4) NOT NULL DEFAULT 0,
	distribution JSONB NOT NULL DEFAULT '{}',
	is_dispatched BOOLEAN NOT NULL DEFAULT FALSE,
	notes TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_clients_contact ON clients(contact_id);

CREATE TABLE IF NOT EXISTS installments (
	id TEXT PRIMARY KEY,
	client_id TEXT NOT NULL REFERENCES clients(id) ON DELETE CASCADE,
	position INTEGER NOT NULL,
	amount NUMERIC(14,2) NOT NULL,
	due_date DATE NOT NULL,
	status TEXT NOT NULL DEFAULT 'pending',
	is_dispatched BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_installments_client_due ON installments(client_id, due_date, position);
CREATE INDEX IF NOT EXISTS idx_installments_dispatch ON installments(status, is_dispatched);

CREATE TABLE IF NOT EXISTS expenses (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	amount NUMERIC(14,2) NOT NULL,
	type TEXT NOT NULL,
	date DATE NOT NULL,
	category TEXT NOT NULL DEFAULT '',
	paid_by TEXT NOT NULL DEFAULT '',
	is_deducted BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_expenses_date ON expenses(date DESC);

CREATE TABLE IF NOT EXISTS expense_deductions (
	id TEXT PRIMARY KEY,
	expense_id TEXT NOT NULL REFERENCES expenses(id) ON DELETE CASCADE,
	year INTEGER NOT NULL,
	month INTEGER NOT NULL CHECK (month BETWEEN 1 AND 12),
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (expense_id, year, month)
);

CREATE TABLE IF NOT EXISTS leads (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL DEFAULT '',
	email TEXT NOT NULL DEFAULT '',
	phone TEXT NOT NULL DEFAULT '',
	provenance TEXT NOT NULL DEFAULT 'other',
	social_media TEXT NOT NULL DEFAULT '',
	message TEXT NOT NULL DEFAULT '',
	source TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_leads_email ON leads(LOWER(email));

CREATE TABLE IF NOT EXISTS contacts (
	id TEXT PRIMARY KEY,
	lead_id TEXT REFERENCES leads(id) ON DELETE SET NULL,
	name TEXT NOT NULL,
	email TEXT NOT NULL DEFAULT '',
	phone TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL,
	job_status TEXT NOT NULL DEFAULT 'other',
	pipeline_status TEXT NOT NULL DEFAULT 'prospect',
	setter TEXT NOT NULL DEFAULT '',
	closer TEXT NOT NULL DEFAULT '',
	call_date DATE,
	notes TEXT NOT NULL DEFAULT '',
	source TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_contacts_source ON contacts(source);

CREATE TABLE IF NOT EXISTS pipeline_history (
	id TEXT PRIMARY KEY,
	seq BIGSERIAL,
	contact_id TEXT NOT NULL REFERENCES contacts(id) ON DELETE CASCADE,
	status TEXT NOT NULL,
	notes TEXT NOT NULL DEFAULT '',
	r1_date DATE,
	r2_date DATE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_pipeline_contact ON pipeline_history(contact_id, created_at, seq);
`

func (s *Store) migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, schema)
	return err
}

// Reset truncates every table.
func (s *Store) Reset(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		TRUNCATE TABLE pipeline_history, contacts, leads,
			expense_deductions, expenses, installments, clients CASCADE`)
	return err
}

// WithTx runs fn inside a transaction. A non-nil error from fn rolls back.
func (s *Store) WithTx(ctx context.Context, fn func(billing.Store) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&queries{q: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// ── Helpers ──────────────────────────────────────────────────────────────────

type scanner interface {
	Scan(dest ...any) error
}

func dateArg(d billing.Date) any {
	if d.IsZero() {
		return nil
	}
	return d.StdTime()
}

func dateFrom(t *time.Time) billing.Date {
	if t == nil {
		return billing.Date{}
	}
	return billing.DateOf(*t)
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func createdAt(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// ── Clients ──────────────────────────────────────────────────────────────────

const clientColumns = `id, contact_id, name, email, phone, deal_amount, amount_paid,
	payment_method, billing_platform, closed_by, setter, setter_commission_pct,
	distribution, is_dispatched, notes, created_at`

func (s *queries) SaveClient(ctx context.Context, c billing.Client) error {
	dist, err := json.Marshal(c.Distribution)
	if err != nil {
		return fmt.Errorf("failed to encode distribution: %w", err)
	}
	_, err = s.q.Exec(ctx, `
		INSERT INTO clients (`+clientColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (id) DO UPDATE SET
			contact_id = EXCLUDED.contact_id,
			name = EXCLUDED.name,
			email = EXCLUDED.email,
			phone = EXCLUDED.phone,
			deal_amount = EXCLUDED.deal_amount,
			amount_paid = EXCLUDED.amount_paid,
			payment_method = EXCLUDED.payment_method,
			billing_platform = EXCLUDED.billing_platform,
			closed_by = EXCLUDED.closed_by,
			setter = EXCLUDED.setter,
			setter_commission_pct = EXCLUDED.setter_commission_pct,
			distribution = EXCLUDED.distribution,
			is_dispatched = EXCLUDED.is_dispatched,
			notes = EXCLUDED.notes
	`, string(c.ID), c.ContactID, c.Name, c.Email, c.Phone, c.DealAmount, c.AmountPaid,
		string(c.PaymentMethod), string(c.BillingPlatform), string(c.ClosedBy), string(c.Setter),
		c.SetterCommissionPct, dist, c.IsDispatched, c.Notes, createdAt(c.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to save client: %w", err)
	}
	return nil
}

func scanClient(row scanner) (*billing.Client, error) {
	var c billing.Client
	var id, method, platform, closedBy, setter string
	var dist []byte
	err := row.Scan(&id, &c.ContactID, &c.Name, &c.Email, &c.Phone, &c.DealAmount, &c.AmountPaid,
		&method, &platform, &closedBy, &setter, &c.SetterCommissionPct,
		&dist, &c.IsDispatched, &c.Notes, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	c.ID = billing.ClientID(id)
	c.PaymentMethod = billing.PaymentMethod(method)
	c.BillingPlatform = billing.BillingPlatform(platform)
	c.ClosedBy = billing.TeamMember(closedBy)
	c.Setter = billing.TeamMember(setter)
	if len(dist) > 0 {
		if err := json.Unmarshal(dist, &c.Distribution); err != nil {
			return nil, fmt.Errorf("failed to decode distribution: %w", err)
		}
	}
	return &c, nil
}

func (s *queries) GetClient(ctx context.Context, id billing.ClientID) (*billing.Client, error) {
	c, err := scanClient(s.q.QueryRow(ctx, "SELECT "+clientColumns+" FROM clients WHERE id = $1", string(id)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get client: %w", err)
	}
	return c, nil
}

func (s *queries) ListClients(ctx context.Context) ([]billing.Client, error) {
	rows, err := s.q.Query(ctx, "SELECT "+clientColumns+" FROM clients ORDER BY created_at DESC, id")
	if err != nil {
		return nil, fmt.Errorf("failed to query clients: %w", err)
	}
	defer rows.Close()

	var clients []billing.Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan client: %w", err)
		}
		clients = append(clients, *c)
	}
	return clients, rows.Err()
}

func (s *queries) DeleteClient(ctx context.Context, id billing.ClientID) error {
	_, err := s.q.Exec(ctx, "DELETE FROM clients WHERE id = $1", string(id))
	return err
}

// ── Installments ─────────────────────────────────────────────────────────────

const installmentColumns = `id, client_id, position, amount, due_date, status, is_dispatched, created_at`

func (s *queries) InsertInstallments(ctx context.Context, insts []billing.Installment) error {
	batch := &pgx.Batch{}
	for _, inst := range insts {
		batch.Queue("INSERT INTO installments ("+installmentColumns+") VALUES ($1, $2, $3, $4, $5, $6, $7, $8)",
			string(inst.ID), string(inst.ClientID), inst.Position, inst.Amount,
			dateArg(inst.DueDate), string(inst.Status), inst.IsDispatched, createdAt(inst.CreatedAt))
	}
	if batch.Len() == 0 {
		return nil
	}
	// On the pool the batch runs in one implicit transaction.
	if err := s.q.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to insert installments: %w", err)
	}
	return nil
}

func scanInstallment(row scanner) (*billing.Installment, error) {
	var inst billing.Installment
	var id, clientID, status string
	var due time.Time
	if err := row.Scan(&id, &clientID, &inst.Position, &inst.Amount, &due, &status, &inst.IsDispatched, &inst.CreatedAt); err != nil {
		return nil, err
	}
	inst.ID = billing.InstallmentID(id)
	inst.ClientID = billing.ClientID(clientID)
	inst.DueDate = billing.DateOf(due)
	inst.Status = billing.InstallmentStatus(status)
	return &inst, nil
}

func (s *queries) GetInstallment(ctx context.Context, id billing.InstallmentID) (*billing.Installment, error) {
	inst, err := scanInstallment(s.q.QueryRow(ctx, "SELECT "+installmentColumns+" FROM installments WHERE id = $1", string(id)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get installment: %w", err)
	}
	return inst, nil
}

func (s *queries) ListInstallments(ctx context.Context, f billing.InstallmentFilter) ([]billing.Installment, error) {
	var conds []string
	var args []any
	if f.ClientID != "" {
		args = append(args, string(f.ClientID))
		conds = append(conds, fmt.Sprintf("client_id = $%d", len(args)))
	}
	if f.Status != "" {
		args = append(args, string(f.Status))
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if f.Dispatched != nil {
		args = append(args, *f.Dispatched)
		conds = append(conds, fmt.Sprintf("is_dispatched = $%d", len(args)))
	}

	rows, err := s.q.Query(ctx,
		"SELECT "+installmentColumns+" FROM installments"+where(conds)+" ORDER BY due_date, position, id", args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query installments: %w", err)
	}
	defer rows.Close()

	var insts []billing.Installment
	for rows.Next() {
		inst, err := scanInstallment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan installment: %w", err)
		}
		insts = append(insts, *inst)
	}
	return insts, rows.Err()
}

func where(conds []string) string {
	if len(conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(conds, " AND ")
}

func (s *queries) UpdateInstallment(ctx context.Context, inst billing.Installment) error {
	tag, err := s.q.Exec(ctx, `
		UPDATE installments
		SET position = $1, amount = $2, due_date = $3, status = $4, is_dispatched = $5
		WHERE id = $6`,
		inst.Position, inst.Amount, dateArg(inst.DueDate), string(inst.Status), inst.IsDispatched, string(inst.ID))
	if err != nil {
		return fmt.Errorf("failed to update installment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return billing.ErrInstallmentNotFound
	}
	return nil
}

func (s *queries) DeleteInstallments(ctx context.Context, clientID billing.ClientID) error {
	_, err := s.q.Exec(ctx, "DELETE FROM installments WHERE client_id = $1", string(clientID))
	return err
}

// ── Expenses ─────────────────────────────────────────────────────────────────

const expenseColumns = `id, name, amount, type, date, category, paid_by, is_deducted, created_at`

func (s *queries) SaveExpense(ctx context.Context, e billing.Expense) error {
	_, err := s.q.Exec(ctx, `
		INSERT INTO expenses (`+expenseColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			amount = EXCLUDED.amount,
			type = EXCLUDED.type,
			date = EXCLUDED.date,
			category = EXCLUDED.category,
			paid_by = EXCLUDED.paid_by,
			is_deducted = EXCLUDED.is_deducted
	`, string(e.ID), e.Name, e.Amount, string(e.Type), dateArg(e.Date), e.Category,
		string(e.PaidBy), e.IsDeducted, createdAt(e.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to save expense: %w", err)
	}
	return nil
}

func scanExpense(row scanner) (*billing.Expense, error) {
	var e billing.Expense
	var id, typ, paidBy string
	var date time.Time
	if err := row.Scan(&id, &e.Name, &e.Amount, &typ, &date, &e.Category, &paidBy, &e.IsDeducted, &e.CreatedAt); err != nil {
		return nil, err
	}
	e.ID = billing.ExpenseID(id)
	e.Type = billing.ExpenseType(typ)
	e.Date = billing.DateOf(date)
	e.PaidBy = billing.TeamMember(paidBy)
	return &e, nil
}

func (s *queries) GetExpense(ctx context.Context, id billing.ExpenseID) (*billing.Expense, error) {
	e, err := scanExpense(s.q.QueryRow(ctx, "SELECT "+expenseColumns+" FROM expenses WHERE id = $1", string(id)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}
	return e, nil
}

func (s *queries) ListExpenses(ctx context.Context, f billing.ExpenseFilter) ([]billing.Expense, error) {
	var conds []string
	var args []any
	if search := strings.TrimSpace(f.Search); search != "" {
		args = append(args, "%"+strings.ToLower(search)+"%")
		conds = append(conds, fmt.Sprintf("(LOWER(name) LIKE $%d OR LOWER(category) LIKE $%d)", len(args), len(args)))
	}
	if f.Type != "" {
		args = append(args, string(f.Type))
		conds = append(conds, fmt.Sprintf("type = $%d", len(args)))
	}
	if f.Deducted != nil {
		args = append(args, *f.Deducted)
		conds = append(conds, fmt.Sprintf("is_deducted = $%d", len(args)))
	}

	rows, err := s.q.Query(ctx,
		"SELECT "+expenseColumns+" FROM expenses"+where(conds)+" ORDER BY date DESC, created_at DESC", args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query expenses: %w", err)
	}
	defer rows.Close()

	var expenses []billing.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		expenses = append(expenses, *e)
	}
	return expenses, rows.Err()
}

func (s *queries) DeleteExpense(ctx context.Context, id billing.ExpenseID) error {
	_, err := s.q.Exec(ctx, "DELETE FROM expenses WHERE id = $1", string(id))
	return err
}

// ── Deduction log ────────────────────────────────────────────────────────────

func (s *queries) InsertDeduction(ctx context.Context, d billing.Deduction) error {
	_, err := s.q.Exec(ctx,
		"INSERT INTO expense_deductions (id, expense_id, year, month, created_at) VALUES ($1, $2, $3, $4, $5)",
		string(d.ID), string(d.ExpenseID), d.Period.Year, int(d.Period.Month), createdAt(d.CreatedAt))
	if isUniqueViolation(err) {
		return billing.ErrDuplicateDeduction
	}
	if err != nil {
		return fmt.Errorf("failed to insert deduction: %w", err)
	}
	return nil
}

func (s *queries) DeleteDeduction(ctx context.Context, expenseID billing.ExpenseID, p billing.Period) error {
	_, err := s.q.Exec(ctx,
		"DELETE FROM expense_deductions WHERE expense_id = $1 AND year = $2 AND month = $3",
		string(expenseID), p.Year, int(p.Month))
	return err
}

func (s *queries) ListDeductions(ctx context.Context, f billing.DeductionFilter) ([]billing.Deduction, error) {
	var conds []string
	var args []any
	if f.ExpenseID != "" {
		args = append(args, string(f.ExpenseID))
		conds = append(conds, fmt.Sprintf("expense_id = $%d", len(args)))
	}
	if f.Period != nil {
		args = append(args, f.Period.Year, int(f.Period.Month))
		conds = append(conds, fmt.Sprintf("year = $%d AND month = $%d", len(args)-1, len(args)))
	}

	rows, err := s.q.Query(ctx,
		"SELECT id, expense_id, year, month, created_at FROM expense_deductions"+where(conds)+
			" ORDER BY year, month, expense_id", args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query deductions: %w", err)
	}
	defer rows.Close()

	var out []billing.Deduction
	for rows.Next() {
		var d billing.Deduction
		var id, expenseID string
		var month int
		if err := rows.Scan(&id, &expenseID, &d.Period.Year, &month, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan deduction: %w", err)
		}
		d.ID = billing.DeductionID(id)
		d.ExpenseID = billing.ExpenseID(expenseID)
		d.Period.Month = time.Month(month)
		out = append(out, d)
	}
	return out, rows.Err()
}

// ── Leads ────────────────────────────────────────────────────────────────────

const leadColumns = `id, name, email, phone, provenance, social_media, message, source, created_at`

func (s *queries) SaveLead(ctx context.Context, l crm.Lead) error {
	_, err := s.q.Exec(ctx, `
		INSERT INTO leads (`+leadColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			email = EXCLUDED.email,
			phone = EXCLUDED.phone,
			provenance = EXCLUDED.provenance,
			social_media = EXCLUDED.social_media,
			message = EXCLUDED.message,
			source = EXCLUDED.source
	`, string(l.ID), l.Name, l.Email, l.Phone, string(l.Provenance), l.SocialMedia, l.Message, l.Source, createdAt(l.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to save lead: %w", err)
	}
	return nil
}

func scanLead(row scanner) (*crm.Lead, error) {
	var l crm.Lead
	var id, provenance string
	if err := row.Scan(&id, &l.Name, &l.Email, &l.Phone, &provenance, &l.SocialMedia, &l.Message, &l.Source, &l.CreatedAt); err != nil {
		return nil, err
	}
	l.ID = crm.LeadID(id)
	l.Provenance = crm.Provenance(provenance)
	return &l, nil
}

func (s *queries) GetLead(ctx context.Context, id crm.LeadID) (*crm.Lead, error) {
	l, err := scanLead(s.q.QueryRow(ctx, "SELECT "+leadColumns+" FROM leads WHERE id = $1", string(id)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get lead: %w", err)
	}
	return l, nil
}

func (s *queries) FindLeadByEmail(ctx context.Context, email string) (*crm.Lead, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, nil
	}
	l, err := scanLead(s.q.QueryRow(ctx,
		"SELECT "+leadColumns+" FROM leads WHERE LOWER(email) = $1 ORDER BY created_at DESC LIMIT 1", email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find lead: %w", err)
	}
	return l, nil
}

func (s *queries) ListLeads(ctx context.Context) ([]crm.Lead, error) {
	rows, err := s.q.Query(ctx, "SELECT "+leadColumns+" FROM leads ORDER BY created_at DESC, id")
	if err != nil {
		return nil, fmt.Errorf("failed to query leads: %w", err)
	}
	defer rows.Close()

	var leads []crm.Lead
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan lead: %w", err)
		}
		leads = append(leads, *l)
	}
	return leads, rows.Err()
}

func (s *queries) DeleteLead(ctx context.Context, id crm.LeadID) error {
	_, err := s.q.Exec(ctx, "DELETE FROM leads WHERE id = $1", string(id))
	return err
}

// ── Contacts ─────────────────────────────────────────────────────────────────

const contactColumns = `id, lead_id, name, email, phone, status, job_status, pipeline_status,
	setter, closer, call_date, notes, source, created_at`

func (s *queries) SaveContact(ctx context.Context, c crm.Contact) error {
	_, err := s.q.Exec(ctx, `
		INSERT INTO contacts (`+contactColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (id) DO UPDATE SET
			lead_id = EXCLUDED.lead_id,
			name = EXCLUDED.name,
			email = EXCLUDED.email,
			phone = EXCLUDED.phone,
			status = EXCLUDED.status,
			job_status = EXCLUDED.job_status,
			pipeline_status = EXCLUDED.pipeline_status,
			setter = EXCLUDED.setter,
			closer = EXCLUDED.closer,
			call_date = EXCLUDED.call_date,
			notes = EXCLUDED.notes,
			source = EXCLUDED.source
	`, string(c.ID), nullable(string(c.LeadID)), c.Name, c.Email, c.Phone,
		string(c.Status), string(c.JobStatus), string(c.PipelineStatus),
		string(c.Setter), string(c.Closer), dateArg(c.CallDate), c.Notes, c.Source, createdAt(c.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to save contact: %w", err)
	}
	return nil
}

func scanContact(row scanner) (*crm.Contact, error) {
	var c crm.Contact
	var leadID *string
	var callDate *time.Time
	var id, status, job, pipeline, setter, closer string
	if err := row.Scan(&id, &leadID, &c.Name, &c.Email, &c.Phone, &status, &job, &pipeline,
		&setter, &closer, &callDate, &c.Notes, &c.Source, &c.CreatedAt); err != nil {
		return nil, err
	}
	c.ID = crm.ContactID(id)
	if leadID != nil {
		c.LeadID = crm.LeadID(*leadID)
	}
	c.Status = crm.ContactStatus(status)
	c.JobStatus = crm.JobStatus(job)
	c.PipelineStatus = crm.PipelineStatus(pipeline)
	c.Setter = billing.TeamMember(setter)
	c.Closer = billing.TeamMember(closer)
	c.CallDate = dateFrom(callDate)
	return &c, nil
}

func (s *queries) GetContact(ctx context.Context, id crm.ContactID) (*crm.Contact, error) {
	c, err := scanContact(s.q.QueryRow(ctx, "SELECT "+contactColumns+" FROM contacts WHERE id = $1", string(id)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get contact: %w", err)
	}
	return c, nil
}

func (s *queries) ListContacts(ctx context.Context, f crm.ContactFilter) ([]crm.Contact, error) {
	var conds []string
	var args []any
	if f.Status != "" {
		args = append(args, string(f.Status))
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if f.PipelineStatus != "" {
		args = append(args, string(f.PipelineStatus))
		conds = append(conds, fmt.Sprintf("pipeline_status = $%d", len(args)))
	}
	if len(f.Sources) > 0 {
		args = append(args, f.Sources)
		conds = append(conds, fmt.Sprintf("source = ANY($%d)", len(args)))
	}
	if search := strings.TrimSpace(f.Search); search != "" {
		args = append(args, "%"+strings.ToLower(search)+"%")
		n := len(args)
		conds = append(conds, fmt.Sprintf("(LOWER(name) LIKE $%d OR LOWER(email) LIKE $%d OR LOWER(phone) LIKE $%d)", n, n, n))
	}

	rows, err := s.q.Query(ctx,
		"SELECT "+contactColumns+" FROM contacts"+where(conds)+" ORDER BY created_at DESC, id", args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query contacts: %w", err)
	}
	defer rows.Close()

	var contacts []crm.Contact
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan contact: %w", err)
		}
		contacts = append(contacts, *c)
	}
	return contacts, rows.Err()
}

func (s *queries) DeleteContact(ctx context.Context, id crm.ContactID) error {
	_, err := s.q.Exec(ctx, "DELETE FROM contacts WHERE id = $1", string(id))
	return err
}

// ── Pipeline history ─────────────────────────────────────────────────────────

const pipelineColumns = `id, contact_id, status, notes, r1_date, r2_date, created_at`

func (s *queries) AppendPipelineEntry(ctx context.Context, e crm.PipelineEntry) error {
	_, err := s.q.Exec(ctx,
		"INSERT INTO pipeline_history ("+pipelineColumns+") VALUES ($1, $2, $3, $4, $5, $6, $7)",
		string(e.ID), string(e.ContactID), string(e.Status), e.Notes,
		dateArg(e.R1Date), dateArg(e.R2Date), createdAt(e.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to append pipeline entry: %w", err)
	}
	return nil
}

func scanPipelineEntry(row scanner) (*crm.PipelineEntry, error) {
	var e crm.PipelineEntry
	var id, contactID, status string
	var r1, r2 *time.Time
	if err := row.Scan(&id, &contactID, &status, &e.Notes, &r1, &r2, &e.CreatedAt); err != nil {
		return nil, err
	}
	e.ID = crm.PipelineEntryID(id)
	e.ContactID = crm.ContactID(contactID)
	e.Status = crm.PipelineStatus(status)
	e.R1Date = dateFrom(r1)
	e.R2Date = dateFrom(r2)
	return &e, nil
}

func (s *queries) GetPipelineEntry(ctx context.Context, id crm.PipelineEntryID) (*crm.PipelineEntry, error) {
	e, err := scanPipelineEntry(s.q.QueryRow(ctx,
		"SELECT "+pipelineColumns+" FROM pipeline_history WHERE id = $1", string(id)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get pipeline entry: %w", err)
	}
	return e, nil
}

func (s *queries) ListPipelineEntries(ctx context.Context, contactID crm.ContactID) ([]crm.PipelineEntry, error) {
	rows, err := s.q.Query(ctx,
		"SELECT "+pipelineColumns+" FROM pipeline_history WHERE contact_id = $1 ORDER BY created_at, seq",
		string(contactID))
	if err != nil {
		return nil, fmt.Errorf("failed to query pipeline history: %w", err)
	}
	defer rows.Close()

	var entries []crm.PipelineEntry
	for rows.Next() {
		e, err := scanPipelineEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pipeline entry: %w", err)
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

func (s *queries) UpdatePipelineNotes(ctx context.Context, id crm.PipelineEntryID, notes string) error {
	tag, err := s.q.Exec(ctx, "UPDATE pipeline_history SET notes = $1 WHERE id = $2", notes, string(id))
	if err != nil {
		return fmt.Errorf("failed to update pipeline notes: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return crm.ErrPipelineEntryNotFound
	}
	return nil
}

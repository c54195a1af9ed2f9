/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements crm.TxStore (and therefore billing.TxStore) using SQLite.
  store/postgres carries the same schema for server deployments.

INTERFACES IMPLEMENTED:
  billing.Store:   Clients, installments, expenses, deduction log
  crm.Store:       Leads, contacts, pipeline history
  crm.TxStore:     WithTx for atomic multi-record changes

KEY TABLES:
  clients:            Closed deals with payment and commission settings
  installments:       Scheduled payments (cascade-deleted with their client)
  expenses:           Shared costs
  expense_deductions: Per-month deduction log, unique per (expense, month)
  leads, contacts:    Prospects
  pipeline_history:   Append-only log of pipeline status changes

STORAGE FORMATS:
  Amounts are stored as decimal strings (never REAL) to keep cents exact.
  Calendar dates are YYYY-MM-DD, timestamps RFC3339 with nanoseconds.

CONCURRENCY:
  The pool is capped at one connection. SQLite serializes writers anyway,
  and ":memory:" databases only exist on the connection that created them.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/crm.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New() with idempotent CREATE ... IF NOT EXISTS.

SEE ALSO:
  - billing/store.go, crm/store.go: Interface definitions
  - store/memory/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/crm-engine/billing"
	"github.com/warp/crm-engine/crm"
)

var (
	_ crm.TxStore = (*Store)(nil)
	_ crm.Store   = (*queries)(nil)
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	queries
	db *sql.DB
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type queries struct {
	q querier
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	store := &Store{queries: queries{q: db}, db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS clients (
		id TEXT PRIMARY KEY,
		contact_id TEXT NOT NULL DEFAULT '',
		name TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT '',
		phone TEXT NOT NULL DEFAULT '',
		deal_amount TEXT NOT NULL,
		amount_paid TEXT NOT NULL,
		payment_method TEXT NOT NULL,
		billing_platform TEXT NOT NULL,
		closed_by TEXT NOT NULL DEFAULT '',
		setter TEXT NOT NULL DEFAULT '',
		setter_commission_pct TEXT NOT NULL DEFAULT '0',
		distribution_json TEXT NOT NULL DEFAULT '{}',
		is_dispatched BOOLEAN NOT NULL DEFAULT FALSE,
		notes TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_clients_contact
		ON clients(contact_id);

	CREATE TABLE IF NOT EXISTS installments (
		id TEXT PRIMARY KEY,
		client_id TEXT NOT NULL REFERENCES clients(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		amount TEXT NOT NULL,
		due_date TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		is_dispatched BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TEXT NOT NULL
	);

	-- Schedule lookups (hot path: client detail, fee breakdown)
	CREATE INDEX IF NOT EXISTS idx_installments_client_due
		ON installments(client_id, due_date, position);

	-- Dispatch view: paid and not yet dispatched
	CREATE INDEX IF NOT EXISTS idx_installments_dispatch
		ON installments(status, is_dispatched);

	CREATE TABLE IF NOT EXISTS expenses (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		amount TEXT NOT NULL,
		type TEXT NOT NULL,
		date TEXT NOT NULL,
		category TEXT NOT NULL DEFAULT '',
		paid_by TEXT NOT NULL DEFAULT '',
		is_deducted BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_expenses_date
		ON expenses(date DESC);

	CREATE TABLE IF NOT EXISTS expense_deductions (
		id TEXT PRIMARY KEY,
		expense_id TEXT NOT NULL REFERENCES expenses(id) ON DELETE CASCADE,
		year INTEGER NOT NULL,
		month INTEGER NOT NULL,
		created_at TEXT NOT NULL,
		UNIQUE(expense_id, year, month)
	);

	CREATE INDEX IF NOT EXISTS idx_deductions_period
		ON expense_deductions(year, month);

	CREATE TABLE IF NOT EXISTS leads (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT '',
		phone TEXT NOT NULL DEFAULT '',
		provenance TEXT NOT NULL DEFAULT 'other',
		social_media TEXT NOT NULL DEFAULT '',
		message TEXT NOT NULL DEFAULT '',
		source TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_leads_email
		ON leads(email);

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
		call_date TEXT NOT NULL DEFAULT '',
		notes TEXT NOT NULL DEFAULT '',
		source TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_contacts_status
		ON contacts(status);

	CREATE INDEX IF NOT EXISTS idx_contacts_source
		ON contacts(source);

	CREATE TABLE IF NOT EXISTS pipeline_history (
		id TEXT PRIMARY KEY,
		contact_id TEXT NOT NULL REFERENCES contacts(id) ON DELETE CASCADE,
		status TEXT NOT NULL,
		notes TEXT NOT NULL DEFAULT '',
		r1_date TEXT NOT NULL DEFAULT '',
		r2_date TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_pipeline_contact
		ON pipeline_history(contact_id, created_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Reset deletes every row. Used by the demo scenario loader.
func (s *Store) Reset(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{
		"pipeline_history", "contacts", "leads",
		"expense_deductions", "expenses", "installments", "clients",
	} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to reset %s: %w", table, err)
		}
	}
	return tx.Commit()
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// WithTx executes a function within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(store billing.Store) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&queries{q: sqlTx}); err != nil {
		return err
	}

	return sqlTx.Commit()
}

// =============================================================================
// ENCODING HELPERS
// =============================================================================

func formatTime(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

func formatDate(d billing.Date) string {
	if d.IsZero() {
		return ""
	}
	return d.String()
}

func parseDate(s string) billing.Date {
	if s == "" {
		return billing.Date{}
	}
	d, err := billing.ParseDate(s)
	if err != nil {
		return billing.Date{}
	}
	return d
}

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

type scanner interface {
	Scan(dest ...any) error
}

// =============================================================================
// CLIENT STORE
// =============================================================================

const clientColumns = `id, contact_id, name, email, phone, deal_amount, amount_paid,
	payment_method, billing_platform, closed_by, setter, setter_commission_pct,
	distribution_json, is_dispatched, notes, created_at`

// SaveClient inserts or updates a client. It never deletes the row, so the
// client's installments survive an update.
func (s *queries) SaveClient(ctx context.Context, c billing.Client) error {
	dist, err := json.Marshal(c.Distribution)
	if err != nil {
		return fmt.Errorf("failed to encode distribution: %w", err)
	}

	query := `
		INSERT INTO clients (` + clientColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			contact_id = excluded.contact_id,
			name = excluded.name,
			email = excluded.email,
			phone = excluded.phone,
			deal_amount = excluded.deal_amount,
			amount_paid = excluded.amount_paid,
			payment_method = excluded.payment_method,
			billing_platform = excluded.billing_platform,
			closed_by = excluded.closed_by,
			setter = excluded.setter,
			setter_commission_pct = excluded.setter_commission_pct,
			distribution_json = excluded.distribution_json,
			is_dispatched = excluded.is_dispatched,
			notes = excluded.notes
	`
	_, err = s.q.ExecContext(ctx, query,
		string(c.ID), c.ContactID, c.Name, c.Email, c.Phone,
		c.DealAmount.String(), c.AmountPaid.String(),
		string(c.PaymentMethod), string(c.BillingPlatform),
		string(c.ClosedBy), string(c.Setter), c.SetterCommissionPct.String(),
		string(dist), c.IsDispatched, c.Notes, formatTime(c.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save client: %w", err)
	}
	return nil
}

func scanClient(row scanner) (*billing.Client, error) {
	var c billing.Client
	var id, method, platform, closedBy, setter string
	var deal, paid, setterPct, dist, createdAt string
	err := row.Scan(&id, &c.ContactID, &c.Name, &c.Email, &c.Phone, &deal, &paid,
		&method, &platform, &closedBy, &setter, &setterPct,
		&dist, &c.IsDispatched, &c.Notes, &createdAt)
	if err != nil {
		return nil, err
	}
	c.ID = billing.ClientID(id)
	c.DealAmount = parseDecimal(deal)
	c.AmountPaid = parseDecimal(paid)
	c.PaymentMethod = billing.PaymentMethod(method)
	c.BillingPlatform = billing.BillingPlatform(platform)
	c.ClosedBy = billing.TeamMember(closedBy)
	c.Setter = billing.TeamMember(setter)
	c.SetterCommissionPct = parseDecimal(setterPct)
	if dist != "" {
		if err := json.Unmarshal([]byte(dist), &c.Distribution); err != nil {
			return nil, fmt.Errorf("failed to decode distribution: %w", err)
		}
	}
	c.CreatedAt = parseTime(createdAt)
	return &c, nil
}

// GetClient retrieves a client by ID.
func (s *queries) GetClient(ctx context.Context, id billing.ClientID) (*billing.Client, error) {
	row := s.q.QueryRowContext(ctx, "SELECT "+clientColumns+" FROM clients WHERE id = ?", string(id))
	c, err := scanClient(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get client: %w", err)
	}
	return c, nil
}

// ListClients returns all clients, newest first.
func (s *queries) ListClients(ctx context.Context) ([]billing.Client, error) {
	rows, err := s.q.QueryContext(ctx, "SELECT "+clientColumns+" FROM clients ORDER BY created_at DESC, id")
	if err != nil {
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}
	defer rows.Close()

	var clients []billing.Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, err
		}
		clients = append(clients, *c)
	}
	return clients, rows.Err()
}

// DeleteClient removes a client (its installments cascade).
func (s *queries) DeleteClient(ctx context.Context, id billing.ClientID) error {
	_, err := s.q.ExecContext(ctx, "DELETE FROM clients WHERE id = ?", string(id))
	return err
}

// =============================================================================
// INSTALLMENT STORE
// =============================================================================

const installmentColumns = `id, client_id, position, amount, due_date, status, is_dispatched, created_at`

// InsertInstallments writes a batch. Run it inside WithTx for atomicity.
func (s *queries) InsertInstallments(ctx context.Context, insts []billing.Installment) error {
	for _, inst := range insts {
		_, err := s.q.ExecContext(ctx,
			"INSERT INTO installments ("+installmentColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
			string(inst.ID), string(inst.ClientID), inst.Position, inst.Amount.String(),
			formatDate(inst.DueDate), string(inst.Status), inst.IsDispatched, formatTime(inst.CreatedAt),
		)
		if err != nil {
			return fmt.Errorf("failed to insert installment: %w", err)
		}
	}
	return nil
}

func scanInstallment(row scanner) (*billing.Installment, error) {
	var inst billing.Installment
	var id, clientID, amount, due, status, createdAt string
	if err := row.Scan(&id, &clientID, &inst.Position, &amount, &due, &status, &inst.IsDispatched, &createdAt); err != nil {
		return nil, err
	}
	inst.ID = billing.InstallmentID(id)
	inst.ClientID = billing.ClientID(clientID)
	inst.Amount = parseDecimal(amount)
	inst.DueDate = parseDate(due)
	inst.Status = billing.InstallmentStatus(status)
	inst.CreatedAt = parseTime(createdAt)
	return &inst, nil
}

func (s *queries) GetInstallment(ctx context.Context, id billing.InstallmentID) (*billing.Installment, error) {
	row := s.q.QueryRowContext(ctx, "SELECT "+installmentColumns+" FROM installments WHERE id = ?", string(id))
	inst, err := scanInstallment(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get installment: %w", err)
	}
	return inst, nil
}

func (s *queries) ListInstallments(ctx context.Context, f billing.InstallmentFilter) ([]billing.Installment, error) {
	query := "SELECT " + installmentColumns + " FROM installments WHERE 1=1"
	var args []any
	if f.ClientID != "" {
		query += " AND client_id = ?"
		args = append(args, string(f.ClientID))
	}
	if f.Status != "" {
		query += " AND status = ?"
		args = append(args, string(f.Status))
	}
	if f.Dispatched != nil {
		query += " AND is_dispatched = ?"
		args = append(args, *f.Dispatched)
	}
	query += " ORDER BY due_date, position, id"

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list installments: %w", err)
	}
	defer rows.Close()

	var insts []billing.Installment
	for rows.Next() {
		inst, err := scanInstallment(rows)
		if err != nil {
			return nil, err
		}
		insts = append(insts, *inst)
	}
	return insts, rows.Err()
}

func (s *queries) UpdateInstallment(ctx context.Context, inst billing.Installment) error {
	res, err := s.q.ExecContext(ctx, `
		UPDATE installments
		SET position = ?, amount = ?, due_date = ?, status = ?, is_dispatched = ?
		WHERE id = ?`,
		inst.Position, inst.Amount.String(), formatDate(inst.DueDate),
		string(inst.Status), inst.IsDispatched, string(inst.ID),
	)
	if err != nil {
		return fmt.Errorf("failed to update installment: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return billing.ErrInstallmentNotFound
	}
	return nil
}

func (s *queries) DeleteInstallments(ctx context.Context, clientID billing.ClientID) error {
	_, err := s.q.ExecContext(ctx, "DELETE FROM installments WHERE client_id = ?", string(clientID))
	return err
}

// =============================================================================
// EXPENSE STORE
// =============================================================================

const expenseColumns = `id, name, amount, type, date, category, paid_by, is_deducted, created_at`

func (s *queries) SaveExpense(ctx context.Context, e billing.Expense) error {
	query := `
		INSERT INTO expenses (` + expenseColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			amount = excluded.amount,
			type = excluded.type,
			date = excluded.date,
			category = excluded.category,
			paid_by = excluded.paid_by,
			is_deducted = excluded.is_deducted
	`
	_, err := s.q.ExecContext(ctx, query,
		string(e.ID), e.Name, e.Amount.String(), string(e.Type), formatDate(e.Date),
		e.Category, string(e.PaidBy), e.IsDeducted, formatTime(e.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save expense: %w", err)
	}
	return nil
}

func scanExpense(row scanner) (*billing.Expense, error) {
	var e billing.Expense
	var id, amount, typ, date, paidBy, createdAt string
	if err := row.Scan(&id, &e.Name, &amount, &typ, &date, &e.Category, &paidBy, &e.IsDeducted, &createdAt); err != nil {
		return nil, err
	}
	e.ID = billing.ExpenseID(id)
	e.Amount = parseDecimal(amount)
	e.Type = billing.ExpenseType(typ)
	e.Date = parseDate(date)
	e.PaidBy = billing.TeamMember(paidBy)
	e.CreatedAt = parseTime(createdAt)
	return &e, nil
}

func (s *queries) GetExpense(ctx context.Context, id billing.ExpenseID) (*billing.Expense, error) {
	row := s.q.QueryRowContext(ctx, "SELECT "+expenseColumns+" FROM expenses WHERE id = ?", string(id))
	e, err := scanExpense(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}
	return e, nil
}

func (s *queries) ListExpenses(ctx context.Context, f billing.ExpenseFilter) ([]billing.Expense, error) {
	query := "SELECT " + expenseColumns + " FROM expenses WHERE 1=1"
	var args []any
	if search := strings.TrimSpace(f.Search); search != "" {
		query += " AND (LOWER(name) LIKE ? OR LOWER(category) LIKE ?)"
		pattern := "%" + strings.ToLower(search) + "%"
		args = append(args, pattern, pattern)
	}
	if f.Type != "" {
		query += " AND type = ?"
		args = append(args, string(f.Type))
	}
	if f.Deducted != nil {
		query += " AND is_deducted = ?"
		args = append(args, *f.Deducted)
	}
	query += " ORDER BY date DESC, created_at DESC"

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	defer rows.Close()

	var expenses []billing.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		expenses = append(expenses, *e)
	}
	return expenses, rows.Err()
}

func (s *queries) DeleteExpense(ctx context.Context, id billing.ExpenseID) error {
	_, err := s.q.ExecContext(ctx, "DELETE FROM expenses WHERE id = ?", string(id))
	return err
}

// =============================================================================
// DEDUCTION LOG
// =============================================================================

func (s *queries) InsertDeduction(ctx context.Context, d billing.Deduction) error {
	_, err := s.q.ExecContext(ctx,
		"INSERT INTO expense_deductions (id, expense_id, year, month, created_at) VALUES (?, ?, ?, ?, ?)",
		string(d.ID), string(d.ExpenseID), d.Period.Year, int(d.Period.Month), formatTime(d.CreatedAt),
	)
	if isUniqueViolation(err) {
		return billing.ErrDuplicateDeduction
	}
	if err != nil {
		return fmt.Errorf("failed to insert deduction: %w", err)
	}
	return nil
}

func (s *queries) DeleteDeduction(ctx context.Context, expenseID billing.ExpenseID, p billing.Period) error {
	_, err := s.q.ExecContext(ctx,
		"DELETE FROM expense_deductions WHERE expense_id = ? AND year = ? AND month = ?",
		string(expenseID), p.Year, int(p.Month),
	)
	return err
}

func (s *queries) ListDeductions(ctx context.Context, f billing.DeductionFilter) ([]billing.Deduction, error) {
	query := "SELECT id, expense_id, year, month, created_at FROM expense_deductions WHERE 1=1"
	var args []any
	if f.ExpenseID != "" {
		query += " AND expense_id = ?"
		args = append(args, string(f.ExpenseID))
	}
	if f.Period != nil {
		query += " AND year = ? AND month = ?"
		args = append(args, f.Period.Year, int(f.Period.Month))
	}
	query += " ORDER BY year, month, expense_id"

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list deductions: %w", err)
	}
	defer rows.Close()

	var out []billing.Deduction
	for rows.Next() {
		var d billing.Deduction
		var id, expenseID, createdAt string
		var month int
		if err := rows.Scan(&id, &expenseID, &d.Period.Year, &month, &createdAt); err != nil {
			return nil, err
		}
		d.ID = billing.DeductionID(id)
		d.ExpenseID = billing.ExpenseID(expenseID)
		d.Period.Month = time.Month(month)
		d.CreatedAt = parseTime(createdAt)
		out = append(out, d)
	}
	return out, rows.Err()
}

// =============================================================================
// LEAD STORE
// =============================================================================

const leadColumns = `id, name, email, phone, provenance, social_media, message, source, created_at`

func (s *queries) SaveLead(ctx context.Context, l crm.Lead) error {
	query := `
		INSERT INTO leads (` + leadColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			email = excluded.email,
			phone = excluded.phone,
			provenance = excluded.provenance,
			social_media = excluded.social_media,
			message = excluded.message,
			source = excluded.source
	`
	_, err := s.q.ExecContext(ctx, query,
		string(l.ID), l.Name, l.Email, l.Phone, string(l.Provenance),
		l.SocialMedia, l.Message, l.Source, formatTime(l.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save lead: %w", err)
	}
	return nil
}

func scanLead(row scanner) (*crm.Lead, error) {
	var l crm.Lead
	var id, provenance, createdAt string
	if err := row.Scan(&id, &l.Name, &l.Email, &l.Phone, &provenance, &l.SocialMedia, &l.Message, &l.Source, &createdAt); err != nil {
		return nil, err
	}
	l.ID = crm.LeadID(id)
	l.Provenance = crm.Provenance(provenance)
	l.CreatedAt = parseTime(createdAt)
	return &l, nil
}

func (s *queries) GetLead(ctx context.Context, id crm.LeadID) (*crm.Lead, error) {
	l, err := scanLead(s.q.QueryRowContext(ctx, "SELECT "+leadColumns+" FROM leads WHERE id = ?", string(id)))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get lead: %w", err)
	}
	return l, nil
}

func (s *queries) FindLeadByEmail(ctx context.Context, email string) (*crm.Lead, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, nil
	}
	l, err := scanLead(s.q.QueryRowContext(ctx,
		"SELECT "+leadColumns+" FROM leads WHERE LOWER(email) = ? ORDER BY created_at DESC LIMIT 1", email))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find lead: %w", err)
	}
	return l, nil
}

func (s *queries) ListLeads(ctx context.Context) ([]crm.Lead, error) {
	rows, err := s.q.QueryContext(ctx, "SELECT "+leadColumns+" FROM leads ORDER BY created_at DESC, id")
	if err != nil {
		return nil, fmt.Errorf("failed to list leads: %w", err)
	}
	defer rows.Close()

	var leads []crm.Lead
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, *l)
	}
	return leads, rows.Err()
}

func (s *queries) DeleteLead(ctx context.Context, id crm.LeadID) error {
	_, err := s.q.ExecContext(ctx, "DELETE FROM leads WHERE id = ?", string(id))
	return err
}

// =============================================================================
// CONTACT STORE
// =============================================================================

const contactColumns = `id, lead_id, name, email, phone, status, job_status, pipeline_status,
	setter, closer, call_date, notes, source, created_at`

func (s *queries) SaveContact(ctx context.Context, c crm.Contact) error {
	query := `
		INSERT INTO contacts (` + contactColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			lead_id = excluded.lead_id,
			name = excluded.name,
			email = excluded.email,
			phone = excluded.phone,
			status = excluded.status,
			job_status = excluded.job_status,
			pipeline_status = excluded.pipeline_status,
			setter = excluded.setter,
			closer = excluded.closer,
			call_date = excluded.call_date,
			notes = excluded.notes,
			source = excluded.source
	`
	_, err := s.q.ExecContext(ctx, query,
		string(c.ID), nullable(string(c.LeadID)), c.Name, c.Email, c.Phone,
		string(c.Status), string(c.JobStatus), string(c.PipelineStatus),
		string(c.Setter), string(c.Closer), formatDate(c.CallDate), c.Notes, c.Source, formatTime(c.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save contact: %w", err)
	}
	return nil
}

func scanContact(row scanner) (*crm.Contact, error) {
	var c crm.Contact
	var leadID sql.NullString
	var id, status, job, pipeline, setter, closer, callDate, createdAt string
	if err := row.Scan(&id, &leadID, &c.Name, &c.Email, &c.Phone, &status, &job, &pipeline,
		&setter, &closer, &callDate, &c.Notes, &c.Source, &createdAt); err != nil {
		return nil, err
	}
	c.ID = crm.ContactID(id)
	c.LeadID = crm.LeadID(leadID.String)
	c.Status = crm.ContactStatus(status)
	c.JobStatus = crm.JobStatus(job)
	c.PipelineStatus = crm.PipelineStatus(pipeline)
	c.Setter = billing.TeamMember(setter)
	c.Closer = billing.TeamMember(closer)
	c.CallDate = parseDate(callDate)
	c.CreatedAt = parseTime(createdAt)
	return &c, nil
}

func (s *queries) GetContact(ctx context.Context, id crm.ContactID) (*crm.Contact, error) {
	c, err := scanContact(s.q.QueryRowContext(ctx, "SELECT "+contactColumns+" FROM contacts WHERE id = ?", string(id)))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get contact: %w", err)
	}
	return c, nil
}

func (s *queries) ListContacts(ctx context.Context, f crm.ContactFilter) ([]crm.Contact, error) {
	query := "SELECT " + contactColumns + " FROM contacts WHERE 1=1"
	var args []any
	if f.Status != "" {
		query += " AND status = ?"
		args = append(args, string(f.Status))
	}
	if f.PipelineStatus != "" {
		query += " AND pipeline_status = ?"
		args = append(args, string(f.PipelineStatus))
	}
	if len(f.Sources) > 0 {
		query += " AND source IN (?" + strings.Repeat(", ?", len(f.Sources)-1) + ")"
		for _, src := range f.Sources {
			args = append(args, src)
		}
	}
	if search := strings.TrimSpace(f.Search); search != "" {
		query += " AND (LOWER(name) LIKE ? OR LOWER(email) LIKE ? OR LOWER(phone) LIKE ?)"
		pattern := "%" + strings.ToLower(search) + "%"
		args = append(args, pattern, pattern, pattern)
	}
	query += " ORDER BY created_at DESC, id"

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list contacts: %w", err)
	}
	defer rows.Close()

	var contacts []crm.Contact
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		contacts = append(contacts, *c)
	}
	return contacts, rows.Err()
}

func (s *queries) DeleteContact(ctx context.Context, id crm.ContactID) error {
	_, err := s.q.ExecContext(ctx, "DELETE FROM contacts WHERE id = ?", string(id))
	return err
}

// =============================================================================
// PIPELINE HISTORY
// =============================================================================

const pipelineColumns = `id, contact_id, status, notes, r1_date, r2_date, created_at`

func (s *queries) AppendPipelineEntry(ctx context.Context, e crm.PipelineEntry) error {
	_, err := s.q.ExecContext(ctx,
		"INSERT INTO pipeline_history ("+pipelineColumns+") VALUES (?, ?, ?, ?, ?, ?, ?)",
		string(e.ID), string(e.ContactID), string(e.Status), e.Notes,
		formatDate(e.R1Date), formatDate(e.R2Date), formatTime(e.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to append pipeline entry: %w", err)
	}
	return nil
}

func scanPipelineEntry(row scanner) (*crm.PipelineEntry, error) {
	var e crm.PipelineEntry
	var id, contactID, status, r1, r2, createdAt string
	if err := row.Scan(&id, &contactID, &status, &e.Notes, &r1, &r2, &createdAt); err != nil {
		return nil, err
	}
	e.ID = crm.PipelineEntryID(id)
	e.ContactID = crm.ContactID(contactID)
	e.Status = crm.PipelineStatus(status)
	e.R1Date = parseDate(r1)
	e.R2Date = parseDate(r2)
	e.CreatedAt = parseTime(createdAt)
	return &e, nil
}

func (s *queries) GetPipelineEntry(ctx context.Context, id crm.PipelineEntryID) (*crm.PipelineEntry, error) {
	e, err := scanPipelineEntry(s.q.QueryRowContext(ctx,
		"SELECT "+pipelineColumns+" FROM pipeline_history WHERE id = ?", string(id)))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pipeline entry: %w", err)
	}
	return e, nil
}

func (s *queries) ListPipelineEntries(ctx context.Context, contactID crm.ContactID) ([]crm.PipelineEntry, error) {
	rows, err := s.q.QueryContext(ctx,
		"SELECT "+pipelineColumns+" FROM pipeline_history WHERE contact_id = ? ORDER BY created_at, rowid",
		string(contactID))
	if err != nil {
		return nil, fmt.Errorf("failed to list pipeline history: %w", err)
	}
	defer rows.Close()

	var entries []crm.PipelineEntry
	for rows.Next() {
		e, err := scanPipelineEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

func (s *queries) UpdatePipelineNotes(ctx context.Context, id crm.PipelineEntryID, notes string) error {
	res, err := s.q.ExecContext(ctx, "UPDATE pipeline_history SET notes = ? WHERE id = ?", notes, string(id))
	if err != nil {
		return fmt.Errorf("failed to update pipeline notes: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return crm.ErrPipelineEntryNotFound
	}
	return nil
}

/*
store.go - Persistence interface for billing records

PURPOSE:
  Defines the interface between the billing services and the database.
  Implementations exist for SQLite, PostgreSQL and memory.

KEY INTERFACES:
  Store:   CRUD on clients, installments, expenses and the deduction log
  TxStore: Store plus WithTx for atomic multi-record changes

LOOKUPS:
  Get* methods return (nil, nil) when the record does not exist. Services
  turn that into the matching ErrXxxNotFound.

ATOMICITY:
  Regenerating a schedule deletes and re-inserts installments; changing an
  installment status updates the installment and its client. Both happen
  inside WithTx so a failure leaves the previous state untouched.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go
  - store/postgres/postgres.go
  - store/memory/memory.go

SEE ALSO:
  - service.go: Uses TxStore
  - crm/store.go: Extends Store with leads, contacts and pipeline history
*/
package billing

import "context"

// =============================================================================
// STORE
// =============================================================================

// InstallmentFilter narrows ListInstallments. Zero values match everything.
type InstallmentFilter struct {
	ClientID   ClientID
	Status     InstallmentStatus
	Dispatched *bool
}

// ExpenseFilter narrows ListExpenses. Search matches name or category,
// case-insensitively.
type ExpenseFilter struct {
	Search   string
	Type     ExpenseType
	Deducted *bool
}

// DeductionFilter narrows ListDeductions.
type DeductionFilter struct {
	ExpenseID ExpenseID
	Period    *Period
}

type Store interface {
	// SaveClient inserts or replaces a client.
	SaveClient(ctx context.Context, c Client) error
	GetClient(ctx context.Context, id ClientID) (*Client, error)
	// ListClients returns clients newest first.
	ListClients(ctx context.Context) ([]Client, error)
	DeleteClient(ctx context.Context, id ClientID) error

	// InsertInstallments persists a batch. Either all rows are written or none.
	InsertInstallments(ctx context.Context, insts []Installment) error
	GetInstallment(ctx context.Context, id InstallmentID) (*Installment, error)
	// ListInstallments returns matches ordered by due date, then position.
	ListInstallments(ctx context.Context, filter InstallmentFilter) ([]Installment, error)
	UpdateInstallment(ctx context.Context, inst Installment) error
	// DeleteInstallments removes every installment of a client.
	DeleteInstallments(ctx context.Context, clientID ClientID) error

	// SaveExpense inserts or replaces an expense.
	SaveExpense(ctx context.Context, e Expense) error
	GetExpense(ctx context.Context, id ExpenseID) (*Expense, error)
	// ListExpenses returns matches ordered by date, newest first.
	ListExpenses(ctx context.Context, filter ExpenseFilter) ([]Expense, error)
	DeleteExpense(ctx context.Context, id ExpenseID) error

	// InsertDeduction fails with ErrDuplicateDeduction when the expense is
	// already deducted for the period.
	InsertDeduction(ctx context.Context, d Deduction) error
	DeleteDeduction(ctx context.Context, expenseID ExpenseID, period Period) error
	ListDeductions(ctx context.Context, filter DeductionFilter) ([]Deduction, error)
}

// =============================================================================
// TRANSACTIONAL STORE
// =============================================================================

// TxStore wraps Store with transaction support.
type TxStore interface {
	Store

	// WithTx executes fn within a transaction.
	// If fn returns error, transaction is rolled back.
	// If fn returns nil, transaction is committed.
	WithTx(ctx context.Context, fn func(Store) error) error
}

package billing

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SERVICE - Billing operations with transactional guarantees
// =============================================================================

type Service struct {
	Store  TxStore
	Rates  Rates
	Now    func() Date
	Logger *slog.Logger
}

// NewService wires a Service with the current date as clock. A nil logger
// falls back to slog.Default().
func NewService(store TxStore, rates Rates, logger *slog.Logger) *Service {
	if rates == nil {
		rates = DefaultRateBook()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{Store: store, Rates: rates, Now: Today, Logger: logger}
}

func (s *Service) today() Date {
	if s.Now == nil {
		return Today()
	}
	return s.Now()
}

// ClientDetail is a client with its schedule.
type ClientDetail struct {
	Client       Client
	Installments []Installment
	AmountPaid   decimal.Decimal // effective amount paid
	NextDueDate  Date            // zero when nothing is pending
}

func newClientDetail(c Client, insts []Installment) *ClientDetail {
	return &ClientDetail{
		Client:       c,
		Installments: insts,
		AmountPaid:   EffectiveAmountPaid(c, insts),
		NextDueDate:  NextDueDate(insts),
	}
}

// ClientFilter narrows ListClients. Search matches name or email,
// case-insensitively.
type ClientFilter struct {
	Search string
}

func (f ClientFilter) matches(c Client) bool {
	search := strings.ToLower(strings.TrimSpace(f.Search))
	if search == "" {
		return true
	}
	return strings.Contains(strings.ToLower(c.Name), search) ||
		strings.Contains(strings.ToLower(c.Email), search)
}

// =============================================================================
// CLIENT PREPARATION - shared with crm conversion
// =============================================================================

// PrepareClient fills defaults and validates a client before it is stored.
func PrepareClient(c *Client, rt RateTable, now time.Time) error {
	if c.ID == "" {
		c.ID = NewClientID()
	}
	c.Name = strings.TrimSpace(c.Name)
	c.Email = strings.TrimSpace(c.Email)

	if c.PaymentMethod == "" {
		c.PaymentMethod = PaymentOneShot
	}
	method, err := ParsePaymentMethod(string(c.PaymentMethod))
	if err != nil {
		return &ValidationError{Field: "payment_method", Err: err}
	}
	c.PaymentMethod = method

	platform, err := ParseBillingPlatform(string(c.BillingPlatform))
	if err != nil {
		return &ValidationError{Field: "billing_platform", Err: err}
	}
	c.BillingPlatform = platform

	if c.DealAmount.IsNegative() {
		return &ValidationError{Field: "deal_amount", Err: ErrNegativeAmount}
	}
	if c.AmountPaid.IsNegative() {
		return &ValidationError{Field: "amount_paid", Err: ErrNegativeAmount}
	}
	if c.SetterCommissionPct.IsNegative() {
		return &ValidationError{Field: "setter_commission_percentage", Err: ErrNegativeAmount}
	}
	if c.SetterCommissionPct.GreaterThan(hundred) {
		return &ValidationError{Field: "setter_commission_percentage", Err: ErrInvalidInput}
	}

	if len(c.Distribution) == 0 {
		c.Distribution = rt.DefaultDistribution.Clone()
	}
	if err := ValidateDistribution(c.Distribution, rt.Roster); err != nil {
		return &ValidationError{Field: "commission_distribution", Err: err}
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now.UTC()
	}
	return nil
}

// InsertSchedule generates a schedule for c, stamps it with IDs and writes it
// through st. It returns the stored installments and the client with its
// amount paid synced to the paid installments. Callers run it inside WithTx.
func InsertSchedule(ctx context.Context, st Store, c Client, alreadyPaid decimal.Decimal, start Date) (Client, []Installment, error) {
	plan, err := GenerateSchedule(ScheduleInput{
		DealAmount:  c.DealAmount,
		Method:      c.PaymentMethod,
		AlreadyPaid: alreadyPaid,
		Start:       start,
	})
	if err != nil {
		return c, nil, err
	}
	now := time.Now().UTC()
	for i := range plan {
		plan[i].ID = NewInstallmentID()
		plan[i].ClientID = c.ID
		plan[i].CreatedAt = now
	}
	c.AmountPaid = SumPaid(plan)
	c.IsDispatched = false
	if err := st.SaveClient(ctx, c); err != nil {
		return c, nil, fmt.Errorf("failed to save client: %w", err)
	}
	if err := st.InsertInstallments(ctx, plan); err != nil {
		return c, nil, fmt.Errorf("failed to insert installments: %w", err)
	}
	return c, plan, nil
}

// =============================================================================
// CLIENTS
// =============================================================================

// CreateClient stores a new client. When initial is set a schedule is
// generated in the same transaction, with initial as the amount already paid.
func (s *Service) CreateClient(ctx context.Context, c Client, initial *decimal.Decimal) (*ClientDetail, error) {
	if err := PrepareClient(&c, s.Rates.Current(), time.Now()); err != nil {
		return nil, err
	}

	var detail *ClientDetail
	err := s.Store.WithTx(ctx, func(st Store) error {
		if err := st.SaveClient(ctx, c); err != nil {
			return fmt.Errorf("failed to save client: %w", err)
		}
		if initial == nil {
			detail = newClientDetail(c, nil)
			return nil
		}
		saved, plan, err := InsertSchedule(ctx, st, c, *initial, s.today())
		if err != nil {
			return err
		}
		detail = newClientDetail(saved, plan)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.Logger.InfoContext(ctx, "client created",
		"client_id", c.ID, "deal_amount", c.DealAmount.String(), "installments", len(detail.Installments))
	return detail, nil
}

// UpdateClient replaces the editable fields of a client. When the payment
// method changed and regenerate is set, the schedule is rebuilt in the same
// transaction from the amount paid so far.
func (s *Service) UpdateClient(ctx context.Context, c Client, regenerate bool) (*ClientDetail, error) {
	var detail *ClientDetail
	err := s.Store.WithTx(ctx, func(st Store) error {
		existing, err := st.GetClient(ctx, c.ID)
		if err != nil {
			return err
		}
		if existing == nil {
			return ErrClientNotFound
		}
		insts, err := st.ListInstallments(ctx, InstallmentFilter{ClientID: c.ID})
		if err != nil {
			return err
		}

		c.CreatedAt = existing.CreatedAt
		c.IsDispatched = existing.IsDispatched
		if c.ContactID == "" {
			c.ContactID = existing.ContactID
		}
		if len(insts) > 0 {
			c.AmountPaid = existing.AmountPaid
		}
		if err := PrepareClient(&c, s.Rates.Current(), time.Now()); err != nil {
			return err
		}

		methodChanged := existing.PaymentMethod != c.PaymentMethod
		if methodChanged && regenerate {
			paid := EffectiveAmountPaid(*existing, insts)
			if err := st.DeleteInstallments(ctx, c.ID); err != nil {
				return fmt.Errorf("failed to delete installments: %w", err)
			}
			saved, plan, err := InsertSchedule(ctx, st, c, paid, s.today())
			if err != nil {
				return err
			}
			detail = newClientDetail(saved, plan)
			return nil
		}

		if err := st.SaveClient(ctx, c); err != nil {
			return fmt.Errorf("failed to save client: %w", err)
		}
		detail = newClientDetail(c, insts)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.Logger.InfoContext(ctx, "client updated", "client_id", c.ID, "regenerate", regenerate)
	return detail, nil
}

func (s *Service) GetClient(ctx context.Context, id ClientID) (*ClientDetail, error) {
	c, err := s.Store.GetClient(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrClientNotFound
	}
	insts, err := s.Store.ListInstallments(ctx, InstallmentFilter{ClientID: id})
	if err != nil {
		return nil, err
	}
	return newClientDetail(*c, insts), nil
}

// ListClients returns the clients matching filter with their schedules.
func (s *Service) ListClients(ctx context.Context, filter ClientFilter) ([]ClientDetail, error) {
	clients, err := s.Store.ListClients(ctx)
	if err != nil {
		return nil, err
	}
	insts, err := s.Store.ListInstallments(ctx, InstallmentFilter{})
	if err != nil {
		return nil, err
	}
	byClient := groupByClient(insts)

	out := make([]ClientDetail, 0, len(clients))
	for _, c := range clients {
		if !filter.matches(c) {
			continue
		}
		out = append(out, *newClientDetail(c, byClient[c.ID]))
	}
	return out, nil
}

// DeleteClient removes the client and its installments.
func (s *Service) DeleteClient(ctx context.Context, id ClientID) error {
	err := s.Store.WithTx(ctx, func(st Store) error {
		c, err := st.GetClient(ctx, id)
		if err != nil {
			return err
		}
		if c == nil {
			return ErrClientNotFound
		}
		if err := st.DeleteInstallments(ctx, id); err != nil {
			return fmt.Errorf("failed to delete installments: %w", err)
		}
		return st.DeleteClient(ctx, id)
	})
	if err != nil {
		return err
	}
	s.Logger.InfoContext(ctx, "client deleted", "client_id", id)
	return nil
}

// =============================================================================
// SCHEDULE
// =============================================================================

// ScheduleRequest parameterizes GenerateSchedule.
type ScheduleRequest struct {
	// AlreadyPaid defaults to the client's effective amount paid.
	AlreadyPaid *decimal.Decimal
	// Confirm must be set to replace an existing schedule.
	Confirm bool
}

// GenerateSchedule (re)builds a client's installments. Replacing an existing
// schedule is destructive and requires req.Confirm.
func (s *Service) GenerateSchedule(ctx context.Context, id ClientID, req ScheduleRequest) (*ClientDetail, error) {
	var detail *ClientDetail
	err := s.Store.WithTx(ctx, func(st Store) error {
		c, err := st.GetClient(ctx, id)
		if err != nil {
			return err
		}
		if c == nil {
			return ErrClientNotFound
		}
		existing, err := st.ListInstallments(ctx, InstallmentFilter{ClientID: id})
		if err != nil {
			return err
		}
		if len(existing) > 0 && !req.Confirm {
			return ErrScheduleExists
		}

		paid := EffectiveAmountPaid(*c, existing)
		if req.AlreadyPaid != nil {
			paid = *req.AlreadyPaid
		}
		if len(existing) > 0 {
			if err := st.DeleteInstallments(ctx, id); err != nil {
				return fmt.Errorf("failed to delete installments: %w", err)
			}
		}
		saved, plan, err := InsertSchedule(ctx, st, *c, paid, s.today())
		if err != nil {
			return err
		}
		detail = newClientDetail(saved, plan)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.Logger.InfoContext(ctx, "schedule generated",
		"client_id", id, "installments", len(detail.Installments), "replaced", req.Confirm)
	return detail, nil
}

// DeleteSchedule removes every installment of a client. The stored amount
// paid is kept so the effective amount paid survives.
func (s *Service) DeleteSchedule(ctx context.Context, id ClientID) error {
	err := s.Store.WithTx(ctx, func(st Store) error {
		c, err := st.GetClient(ctx, id)
		if err != nil {
			return err
		}
		if c == nil {
			return ErrClientNotFound
		}
		return st.DeleteInstallments(ctx, id)
	})
	if err != nil {
		return err
	}
	s.Logger.InfoContext(ctx, "schedule deleted", "client_id", id)
	return nil
}

// =============================================================================
// INSTALLMENT STATUS & DISPATCH
// =============================================================================

// SetInstallmentStatus moves an installment to status and adjusts the
// client's amount paid accordingly, atomically.
func (s *Service) SetInstallmentStatus(ctx context.Context, id InstallmentID, status InstallmentStatus) (*Installment, *Client, error) {
	status, err := ParseInstallmentStatus(string(status))
	if err != nil {
		return nil, nil, &ValidationError{Field: "status", Err: err}
	}

	var inst *Installment
	var client *Client
	err = s.Store.WithTx(ctx, func(st Store) error {
		i, err := st.GetInstallment(ctx, id)
		if err != nil {
			return err
		}
		if i == nil {
			return ErrInstallmentNotFound
		}
		c, err := st.GetClient(ctx, i.ClientID)
		if err != nil {
			return err
		}
		if c == nil {
			return ErrClientNotFound
		}

		delta := PaidDelta(*i, status)
		i.Status = status
		if !status.IsPaid() {
			i.IsDispatched = false
		}
		if err := st.UpdateInstallment(ctx, *i); err != nil {
			return fmt.Errorf("failed to update installment: %w", err)
		}
		siblings, err := st.ListInstallments(ctx, InstallmentFilter{ClientID: c.ID})
		if err != nil {
			return err
		}
		dispatched := AllDispatched(siblings)
		if !delta.IsZero() || dispatched != c.IsDispatched {
			c.AmountPaid = c.AmountPaid.Add(delta)
			c.IsDispatched = dispatched
			if err := st.SaveClient(ctx, *c); err != nil {
				return fmt.Errorf("failed to save client: %w", err)
			}
		}
		inst, client = i, c
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	s.Logger.InfoContext(ctx, "installment status changed",
		"installment_id", id, "client_id", inst.ClientID, "status", status)
	return inst, client, nil
}

// SetInstallmentDispatched sets (not toggles) the dispatched flag and
// refreshes the client's flag. Setting the current value is a no-op.
func (s *Service) SetInstallmentDispatched(ctx context.Context, id InstallmentID, dispatched bool) (*Installment, error) {
	var inst *Installment
	err := s.Store.WithTx(ctx, func(st Store) error {
		i, err := st.GetInstallment(ctx, id)
		if err != nil {
			return err
		}
		if i == nil {
			return ErrInstallmentNotFound
		}
		if i.IsDispatched == dispatched {
			inst = i
			return nil
		}
		i.IsDispatched = dispatched
		if err := st.UpdateInstallment(ctx, *i); err != nil {
			return fmt.Errorf("failed to update installment: %w", err)
		}
		if err := refreshClientDispatched(ctx, st, i.ClientID); err != nil {
			return err
		}
		inst = i
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.Logger.InfoContext(ctx, "installment dispatch set", "installment_id", id, "dispatched", dispatched)
	return inst, nil
}

// SettleDispatch marks paid installments as dispatched. An empty ids list
// settles every pending one. It returns how many were marked.
func (s *Service) SettleDispatch(ctx context.Context, ids []InstallmentID) (int, error) {
	marked := 0
	err := s.Store.WithTx(ctx, func(st Store) error {
		var targets []Installment
		if len(ids) == 0 {
			no := false
			pending, err := st.ListInstallments(ctx, InstallmentFilter{Status: StatusPaid, Dispatched: &no})
			if err != nil {
				return err
			}
			targets = pending
		} else {
			seen := make(map[InstallmentID]bool, len(ids))
			for _, id := range ids {
				if seen[id] {
					continue
				}
				seen[id] = true
				i, err := st.GetInstallment(ctx, id)
				if err != nil {
					return err
				}
				if i == nil {
					return fmt.Errorf("%w: %s", ErrInstallmentNotFound, id)
				}
				targets = append(targets, *i)
			}
		}

		touched := make(map[ClientID]bool)
		for _, i := range targets {
			if !i.Status.IsPaid() || i.IsDispatched {
				continue
			}
			i.IsDispatched = true
			if err := st.UpdateInstallment(ctx, i); err != nil {
				return fmt.Errorf("failed to update installment: %w", err)
			}
			touched[i.ClientID] = true
			marked++
		}
		for clientID := range touched {
			if err := refreshClientDispatched(ctx, st, clientID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.Logger.InfoContext(ctx, "dispatch settled", "installments", marked)
	return marked, nil
}

func refreshClientDispatched(ctx context.Context, st Store, id ClientID) error {
	c, err := st.GetClient(ctx, id)
	if err != nil {
		return err
	}
	if c == nil {
		return ErrClientNotFound
	}
	insts, err := st.ListInstallments(ctx, InstallmentFilter{ClientID: id})
	if err != nil {
		return err
	}
	all := AllDispatched(insts)
	if c.IsDispatched == all {
		return nil
	}
	c.IsDispatched = all
	if err := st.SaveClient(ctx, *c); err != nil {
		return fmt.Errorf("failed to save client: %w", err)
	}
	return nil
}

// =============================================================================
// FEES & DISPATCH REPORT
// =============================================================================

// ClientFees returns the fee breakdown of each installment of a client.
func (s *Service) ClientFees(ctx context.Context, id ClientID) ([]DispatchLine, error) {
	detail, err := s.GetClient(ctx, id)
	if err != nil {
		return nil, err
	}
	lines := make([]DispatchLine, 0, len(detail.Installments))
	for _, inst := range detail.Installments {
		fees := ComputeFees(inst, detail.Client, detail.Installments, s.Rates.For(inst.DueDate))
		lines = append(lines, DispatchLine{Installment: inst, Client: detail.Client, Fees: fees})
	}
	return lines, nil
}

// DispatchQuery selects which deductions apply. With a period, the deduction
// log for that month is used; without, the expenses' deducted flag.
type DispatchQuery struct {
	Period *Period
}

// DispatchReport aggregates every paid, undispatched installment.
func (s *Service) DispatchReport(ctx context.Context, q DispatchQuery) (*DispatchReport, error) {
	no := false
	pending, err := s.Store.ListInstallments(ctx, InstallmentFilter{Status: StatusPaid, Dispatched: &no})
	if err != nil {
		return nil, err
	}

	clients := make(map[ClientID]Client)
	siblings := make(map[ClientID][]Installment)
	for _, inst := range pending {
		if _, ok := clients[inst.ClientID]; ok {
			continue
		}
		c, err := s.Store.GetClient(ctx, inst.ClientID)
		if err != nil {
			return nil, err
		}
		if c == nil {
			continue
		}
		all, err := s.Store.ListInstallments(ctx, InstallmentFilter{ClientID: inst.ClientID})
		if err != nil {
			return nil, err
		}
		clients[c.ID] = *c
		siblings[c.ID] = all
	}

	deducted, err := s.DeductedExpenses(ctx, q.Period)
	if err != nil {
		return nil, err
	}

	report := AggregateDispatch(DispatchInput{
		Installments:       pending,
		Clients:            clients,
		ClientInstallments: siblings,
		DeductedExpenses:   deducted,
	}, s.Rates)
	return &report, nil
}

// =============================================================================
// EXPENSES
// =============================================================================

func (s *Service) prepareExpense(e *Expense) error {
	if e.ID == "" {
		e.ID = NewExpenseID()
	}
	e.Name = strings.TrimSpace(e.Name)
	if e.Name == "" {
		return &ValidationError{Field: "name", Err: ErrInvalidInput}
	}
	if e.Amount.IsNegative() {
		return &ValidationError{Field: "amount", Err: ErrNegativeAmount}
	}
	t, err := ParseExpenseType(string(e.Type))
	if err != nil {
		return &ValidationError{Field: "type", Err: err}
	}
	e.Type = t
	if e.Date.IsZero() {
		e.Date = s.today()
	}
	if e.PaidBy != "" && !s.Rates.Current().IsMember(e.PaidBy) {
		return &ValidationError{Field: "paid_by", Err: fmt.Errorf("%w: unknown member %q", ErrInvalidInput, e.PaidBy)}
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	return nil
}

func (s *Service) CreateExpense(ctx context.Context, e Expense) (*Expense, error) {
	if err := s.prepareExpense(&e); err != nil {
		return nil, err
	}
	if err := s.Store.SaveExpense(ctx, e); err != nil {
		return nil, fmt.Errorf("failed to save expense: %w", err)
	}
	s.Logger.InfoContext(ctx, "expense created", "expense_id", e.ID, "amount", e.Amount.String())
	return &e, nil
}

func (s *Service) UpdateExpense(ctx context.Context, e Expense) (*Expense, error) {
	err := s.Store.WithTx(ctx, func(st Store) error {
		existing, err := st.GetExpense(ctx, e.ID)
		if err != nil {
			return err
		}
		if existing == nil {
			return ErrExpenseNotFound
		}
		e.CreatedAt = existing.CreatedAt
		e.IsDeducted = existing.IsDeducted
		if err := s.prepareExpense(&e); err != nil {
			return err
		}
		return st.SaveExpense(ctx, e)
	})
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *Service) GetExpense(ctx context.Context, id ExpenseID) (*Expense, error) {
	e, err := s.Store.GetExpense(ctx, id)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, ErrExpenseNotFound
	}
	return e, nil
}

func (s *Service) ListExpenses(ctx context.Context, filter ExpenseFilter) ([]Expense, error) {
	return s.Store.ListExpenses(ctx, filter)
}

// DeleteExpense removes an expense and its deduction history.
func (s *Service) DeleteExpense(ctx context.Context, id ExpenseID) error {
	return s.Store.WithTx(ctx, func(st Store) error {
		e, err := st.GetExpense(ctx, id)
		if err != nil {
			return err
		}
		if e == nil {
			return ErrExpenseNotFound
		}
		log, err := st.ListDeductions(ctx, DeductionFilter{ExpenseID: id})
		if err != nil {
			return err
		}
		for _, d := range log {
			if err := st.DeleteDeduction(ctx, id, d.Period); err != nil {
				return fmt.Errorf("failed to delete deduction: %w", err)
			}
		}
		return st.DeleteExpense(ctx, id)
	})
}

// SetExpenseDeducted sets the expense's standing deducted flag.
func (s *Service) SetExpenseDeducted(ctx context.Context, id ExpenseID, deducted bool) (*Expense, error) {
	var out *Expense
	err := s.Store.WithTx(ctx, func(st Store) error {
		e, err := st.GetExpense(ctx, id)
		if err != nil {
			return err
		}
		if e == nil {
			return ErrExpenseNotFound
		}
		e.IsDeducted = deducted
		if err := st.SaveExpense(ctx, *e); err != nil {
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

// DeductExpense records the expense as deducted for the period.
func (s *Service) DeductExpense(ctx context.Context, id ExpenseID, period Period) (*Deduction, error) {
	if _, err := NewPeriod(period.Year, period.Month); err != nil {
		return nil, err
	}
	d := Deduction{ID: NewDeductionID(), ExpenseID: id, Period: period, CreatedAt: time.Now().UTC()}
	err := s.Store.WithTx(ctx, func(st Store) error {
		e, err := st.GetExpense(ctx, id)
		if err != nil {
			return err
		}
		if e == nil {
			return ErrExpenseNotFound
		}
		return st.InsertDeduction(ctx, d)
	})
	if err != nil {
		return nil, err
	}
	s.Logger.InfoContext(ctx, "expense deducted", "expense_id", id, "period", period.String())
	return &d, nil
}

// UndeductExpense removes the deduction of the expense for the period.
func (s *Service) UndeductExpense(ctx context.Context, id ExpenseID, period Period) error {
	return s.Store.WithTx(ctx, func(st Store) error {
		existing, err := st.ListDeductions(ctx, DeductionFilter{ExpenseID: id, Period: &period})
		if err != nil {
			return err
		}
		if len(existing) == 0 {
			return ErrDeductionNotFound
		}
		return st.DeleteDeduction(ctx, id, period)
	})
}

// DeductMonthlyExpenses records a deduction for period for every monthly
// expense started on or before the end of that month. Months already
// deducted are skipped, so running it twice is harmless. It returns how many
// deductions were added.
func (s *Service) DeductMonthlyExpenses(ctx context.Context, period Period) (int, error) {
	if _, err := NewPeriod(period.Year, period.Month); err != nil {
		return 0, err
	}
	added := 0
	err := s.Store.WithTx(ctx, func(st Store) error {
		monthly, err := st.ListExpenses(ctx, ExpenseFilter{Type: ExpenseMonthly})
		if err != nil {
			return err
		}
		for _, e := range monthly {
			if e.Date.After(period.End()) {
				continue
			}
			existing, err := st.ListDeductions(ctx, DeductionFilter{ExpenseID: e.ID, Period: &period})
			if err != nil {
				return err
			}
			if len(existing) > 0 {
				continue
			}
			d := Deduction{ID: NewDeductionID(), ExpenseID: e.ID, Period: period, CreatedAt: time.Now().UTC()}
			if err := st.InsertDeduction(ctx, d); err != nil {
				return fmt.Errorf("failed to deduct %s: %w", e.ID, err)
			}
			added++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if added > 0 {
		s.Logger.InfoContext(ctx, "monthly expenses deducted", "period", period.String(), "count", added)
	}
	return added, nil
}

// ListDeductions returns the deduction log.
func (s *Service) ListDeductions(ctx context.Context, filter DeductionFilter) ([]Deduction, error) {
	return s.Store.ListDeductions(ctx, filter)
}

// DeductedExpenses returns the expenses deducted for period, or the ones
// flagged as deducted when period is nil.
func (s *Service) DeductedExpenses(ctx context.Context, period *Period) ([]Expense, error) {
	if period == nil {
		yes := true
		return s.Store.ListExpenses(ctx, ExpenseFilter{Deducted: &yes})
	}
	log, err := s.Store.ListDeductions(ctx, DeductionFilter{Period: period})
	if err != nil {
		return nil, err
	}
	var out []Expense
	for _, d := range log {
		e, err := s.Store.GetExpense(ctx, d.ExpenseID)
		if err != nil {
			return nil, err
		}
		if e != nil {
			out = append(out, *e)
		}
	}
	return out, nil
}

// =============================================================================
// SUMMARY
// =============================================================================

func (s *Service) Summary(ctx context.Context) (*Summary, error) {
	clients, err := s.Store.ListClients(ctx)
	if err != nil {
		return nil, err
	}
	insts, err := s.Store.ListInstallments(ctx, InstallmentFilter{})
	if err != nil {
		return nil, err
	}
	expenses, err := s.Store.ListExpenses(ctx, ExpenseFilter{})
	if err != nil {
		return nil, err
	}
	sum := Summarize(clients, insts, expenses)
	return &sum, nil
}

func groupByClient(insts []Installment) map[ClientID][]Installment {
	out := make(map[ClientID][]Installment)
	for _, inst := range insts {
		out[inst.ClientID] = append(out[inst.ClientID], inst)
	}
	return out
}

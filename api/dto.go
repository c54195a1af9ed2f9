/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the billing and crm models from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

MONEY:
  Responses carry amounts as decimal strings ("1234.50") so no precision is
  lost in JavaScript clients. Requests accept numbers or strings; strings go
  through billing.ParseAmount, so "1 234,50 €" is understood.

TYPES:
  Clients:     ClientDTO, InstallmentDTO, ClientRequest, ScheduleRequest
  Fees:        FeeLineDTO, DispatchReportDTO
  Expenses:    ExpenseDTO, ExpenseRequest, DeductionDTO
  CRM:         LeadDTO, ContactDTO, PipelineEntryDTO, ConversionRequest
  Misc:        SummaryDTO, DashboardDTO, SetterStatsDTO, ErrorResponse

VALIDATION:
  Validation is done in the services, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/rates.go: RateBookJSON type
*/
package api

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/crm-engine/billing"
	"github.com/warp/crm-engine/crm"
)

// =============================================================================
// AMOUNT
// =============================================================================

// Amount is a request-side decimal that accepts JSON numbers and strings.
type Amount decimal.Decimal

func (a *Amount) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*a = Amount(billing.ParseAmount(s))
		return nil
	}
	d, err := decimal.NewFromString(string(b))
	if err != nil {
		return &billing.ValidationError{Field: "amount", Err: billing.ErrInvalidInput}
	}
	*a = Amount(d)
	return nil
}

func (a Amount) Decimal() decimal.Decimal { return decimal.Decimal(a) }

func optional(a *Amount) *decimal.Decimal {
	if a == nil {
		return nil
	}
	d := a.Decimal()
	return &d
}

func toDistribution(in map[string]Amount) billing.Distribution {
	if len(in) == 0 {
		return nil
	}
	d := make(billing.Distribution, len(in))
	for m, pct := range in {
		d[billing.TeamMember(m)] = pct.Decimal()
	}
	return d
}

func fromDistribution(d billing.Distribution) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(d))
	for m, pct := range d {
		out[string(m)] = pct
	}
	return out
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

// =============================================================================
// CLIENTS
// =============================================================================

// InstallmentDTO represents one scheduled payment.
type InstallmentDTO struct {
	ID           string          `json:"id"`
	ClientID     string          `json:"client_id"`
	Position     int             `json:"position"`
	Amount       decimal.Decimal `json:"amount"`
	DueDate      billing.Date    `json:"due_date"`
	Status       string          `json:"status"`
	IsDispatched bool            `json:"is_dispatched"`
}

func toInstallmentDTO(i billing.Installment) InstallmentDTO {
	return InstallmentDTO{
		ID:           string(i.ID),
		ClientID:     string(i.ClientID),
		Position:     i.Position,
		Amount:       i.Amount,
		DueDate:      i.DueDate,
		Status:       string(i.Status),
		IsDispatched: i.IsDispatched,
	}
}

func toInstallmentDTOs(insts []billing.Installment) []InstallmentDTO {
	out := make([]InstallmentDTO, 0, len(insts))
	for _, i := range insts {
		out = append(out, toInstallmentDTO(i))
	}
	return out
}

// ClientDTO represents a client and, when loaded, its schedule.
type ClientDTO struct {
	ID                  string                     `json:"id"`
	ContactID           string                     `json:"contact_id,omitempty"`
	Name                string                     `json:"name"`
	Email               string                     `json:"email"`
	Phone               string                     `json:"phone"`
	DealAmount          decimal.Decimal            `json:"deal_amount"`
	AmountPaid          decimal.Decimal            `json:"amount_paid"`
	Remaining           decimal.Decimal            `json:"remaining"`
	PaymentMethod       string                     `json:"payment_method"`
	BillingPlatform     string                     `json:"billing_platform"`
	ClosedBy            string                     `json:"closed_by,omitempty"`
	Setter              string                     `json:"setter,omitempty"`
	SetterCommissionPct decimal.Decimal            `json:"setter_commission_percentage"`
	SetterCommission    decimal.Decimal            `json:"setter_commission"`
	Distribution        map[string]decimal.Decimal `json:"commission_distribution"`
	IsDispatched        bool                       `json:"is_dispatched"`
	Notes               string                     `json:"notes"`
	CreatedAt           string                     `json:"created_at,omitempty"`
	NextDueDate         billing.Date               `json:"next_due_date"`
	Installments        []InstallmentDTO           `json:"installments"`
}

func toClientDTO(d billing.ClientDetail) ClientDTO {
	c := d.Client
	remaining := c.DealAmount.Sub(d.AmountPaid)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}
	return ClientDTO{
		ID:                  string(c.ID),
		ContactID:           c.ContactID,
		Name:                c.Name,
		Email:               c.Email,
		Phone:               c.Phone,
		DealAmount:          c.DealAmount,
		AmountPaid:          d.AmountPaid,
		Remaining:           remaining,
		PaymentMethod:       string(c.PaymentMethod),
		BillingPlatform:     string(c.BillingPlatform),
		ClosedBy:            string(c.ClosedBy),
		Setter:              string(c.Setter),
		SetterCommissionPct: c.SetterCommissionPct,
		SetterCommission:    c.SetterCommission(),
		Distribution:        fromDistribution(c.Distribution),
		IsDispatched:        c.IsDispatched,
		Notes:               c.Notes,
		CreatedAt:           formatTime(c.CreatedAt),
		NextDueDate:         d.NextDueDate,
		Installments:        toInstallmentDTOs(d.Installments),
	}
}

// ClientRequest is the body of client create and update.
type ClientRequest struct {
	Name                string            `json:"name"`
	Email               string            `json:"email"`
	Phone               string            `json:"phone"`
	DealAmount          Amount            `json:"deal_amount"`
	AmountPaid          Amount            `json:"amount_paid"`
	PaymentMethod       string            `json:"payment_method"`
	BillingPlatform     string            `json:"billing_platform"`
	ClosedBy            string            `json:"closed_by"`
	Setter              string            `json:"setter"`
	SetterCommissionPct *Amount           `json:"setter_commission_percentage"`
	Distribution        map[string]Amount `json:"commission_distribution"`
	Notes               string            `json:"notes"`

	// GenerateSchedule builds installments on create, counting AmountPaid
	// as already received.
	GenerateSchedule bool `json:"generate_schedule"`
	// RegenerateSchedule rebuilds installments on update when the payment
	// method changed.
	RegenerateSchedule bool `json:"regenerate_schedule"`
}

func (r ClientRequest) toClient(id billing.ClientID) billing.Client {
	c := billing.Client{
		ID:              id,
		Name:            r.Name,
		Email:           r.Email,
		Phone:           r.Phone,
		DealAmount:      r.DealAmount.Decimal(),
		AmountPaid:      r.AmountPaid.Decimal(),
		PaymentMethod:   billing.PaymentMethod(r.PaymentMethod),
		BillingPlatform: billing.BillingPlatform(r.BillingPlatform),
		ClosedBy:        billing.TeamMember(r.ClosedBy),
		Setter:          billing.TeamMember(r.Setter),
		Distribution:    toDistribution(r.Distribution),
		Notes:           r.Notes,
	}
	if r.SetterCommissionPct != nil {
		c.SetterCommissionPct = r.SetterCommissionPct.Decimal()
	}
	return c
}

// ScheduleRequest is the body of POST /clients/{id}/schedule.
type ScheduleRequest struct {
	AlreadyPaid *Amount `json:"already_paid"`
	Confirm     bool    `json:"confirm"`
}

// InstallmentStatusRequest is the body of PUT /installments/{id}/status.
type InstallmentStatusRequest struct {
	Status string `json:"status"`
}

// DispatchedRequest is the body of PUT /installments/{id}/dispatched.
type DispatchedRequest struct {
	Dispatched bool `json:"dispatched"`
}

// InstallmentUpdateDTO is returned after a status change.
type InstallmentUpdateDTO struct {
	Installment      InstallmentDTO  `json:"installment"`
	ClientAmountPaid decimal.Decimal `json:"client_amount_paid"`
	ClientDispatched bool            `json:"client_is_dispatched"`
}

// =============================================================================
// FEES & DISPATCH
// =============================================================================

// MemberAmountDTO is one partner's slice of an installment.
type MemberAmountDTO struct {
	Member     string          `json:"member"`
	Percentage decimal.Decimal `json:"percentage"`
	Amount     decimal.Decimal `json:"amount"`
}

// FeeLineDTO is the fee breakdown of one installment.
type FeeLineDTO struct {
	InstallmentID      string            `json:"installment_id"`
	ClientID           string            `json:"client_id"`
	ClientName         string            `json:"client_name"`
	DueDate            billing.Date      `json:"due_date"`
	Status             string            `json:"status"`
	Gross              decimal.Decimal   `json:"gross"`
	PlatformFee        decimal.Decimal   `json:"platform_fee"`
	SetterFee          decimal.Decimal   `json:"setter_fee"`
	Net                decimal.Decimal   `json:"net"`
	NetForDistribution decimal.Decimal   `json:"net_for_distribution"`
	PerMember          []MemberAmountDTO `json:"per_member"`
	RatesVersion       string            `json:"rates_version"`
}

func toFeeLineDTO(l billing.DispatchLine) FeeLineDTO {
	dto := FeeLineDTO{
		InstallmentID:      string(l.Installment.ID),
		ClientID:           string(l.Client.ID),
		ClientName:         l.Client.Name,
		DueDate:            l.Installment.DueDate,
		Status:             string(l.Installment.Status),
		Gross:              l.Fees.Gross,
		PlatformFee:        l.Fees.PlatformFee,
		SetterFee:          l.Fees.SetterFee,
		Net:                l.Fees.Net,
		NetForDistribution: l.Fees.NetForDistribution,
		PerMember:          make([]MemberAmountDTO, 0, len(l.Fees.PerMember)),
		RatesVersion:       l.Fees.RatesVersion,
	}
	for _, m := range l.Fees.PerMember {
		dto.PerMember = append(dto.PerMember, MemberAmountDTO{
			Member: string(m.Member), Percentage: m.Percentage, Amount: m.Amount,
		})
	}
	return dto
}

func toFeeLineDTOs(lines []billing.DispatchLine) []FeeLineDTO {
	out := make([]FeeLineDTO, 0, len(lines))
	for _, l := range lines {
		out = append(out, toFeeLineDTO(l))
	}
	return out
}

// MemberPayoutDTO is what one partner receives from a dispatch.
type MemberPayoutDTO struct {
	Member        string          `json:"member"`
	Percentage    decimal.Decimal `json:"percentage"`
	Share         decimal.Decimal `json:"share"`
	Reimbursement decimal.Decimal `json:"reimbursement"`
	Total         decimal.Decimal `json:"total"`
}

// DispatchReportDTO is the monthly profit-sharing view.
type DispatchReportDTO struct {
	Period        string                     `json:"period,omitempty"`
	Lines         []FeeLineDTO               `json:"lines"`
	GrossTotal    decimal.Decimal            `json:"gross_total"`
	PlatformFees  decimal.Decimal            `json:"platform_fees"`
	SetterFees    decimal.Decimal            `json:"setter_fees"`
	NetTotal      decimal.Decimal            `json:"net_total"`
	DeductedTotal decimal.Decimal            `json:"deducted_total"`
	TotalToShare  decimal.Decimal            `json:"total_to_share"`
	Distribution  map[string]decimal.Decimal `json:"distribution"`
	Members       []MemberPayoutDTO          `json:"members"`
	RatesVersion  string                     `json:"rates_version"`
}

func toDispatchReportDTO(r billing.DispatchReport, period *billing.Period) DispatchReportDTO {
	dto := DispatchReportDTO{
		Lines:         toFeeLineDTOs(r.Lines),
		GrossTotal:    r.GrossTotal,
		PlatformFees:  r.PlatformFees,
		SetterFees:    r.SetterFees,
		NetTotal:      r.NetTotal,
		DeductedTotal: r.DeductedTotal,
		TotalToShare:  r.TotalToShare,
		Distribution:  fromDistribution(r.Distribution),
		Members:       make([]MemberPayoutDTO, 0, len(r.Members)),
		RatesVersion:  r.RatesVersion,
	}
	if period != nil {
		dto.Period = period.String()
	}
	for _, m := range r.Members {
		dto.Members = append(dto.Members, MemberPayoutDTO{
			Member:        string(m.Member),
			Percentage:    m.Percentage,
			Share:         m.Share,
			Reimbursement: m.Reimbursement,
			Total:         m.Total,
		})
	}
	return dto
}

// SettleRequest is the body of POST /dispatch/settle. No IDs settles all.
type SettleRequest struct {
	InstallmentIDs []string `json:"installment_ids"`
}

// =============================================================================
// EXPENSES
// =============================================================================

// ExpenseDTO represents a shared expense.
type ExpenseDTO struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Amount     decimal.Decimal `json:"amount"`
	Type       string          `json:"type"`
	Date       billing.Date    `json:"date"`
	Category   string          `json:"category"`
	PaidBy     string          `json:"paid_by,omitempty"`
	IsDeducted bool            `json:"is_deducted"`
	CreatedAt  string          `json:"created_at,omitempty"`
}

func toExpenseDTO(e billing.Expense) ExpenseDTO {
	return ExpenseDTO{
		ID:         string(e.ID),
		Name:       e.Name,
		Amount:     e.Amount,
		Type:       string(e.Type),
		Date:       e.Date,
		Category:   e.Category,
		PaidBy:     string(e.PaidBy),
		IsDeducted: e.IsDeducted,
		CreatedAt:  formatTime(e.CreatedAt),
	}
}

// ExpenseRequest is the body of expense create and update.
type ExpenseRequest struct {
	Name     string       `json:"name"`
	Amount   Amount       `json:"amount"`
	Type     string       `json:"type"`
	Date     billing.Date `json:"date"`
	Category string       `json:"category"`
	PaidBy   string       `json:"paid_by"`
}

func (r ExpenseRequest) toExpense(id billing.ExpenseID) billing.Expense {
	return billing.Expense{
		ID:       id,
		Name:     r.Name,
		Amount:   r.Amount.Decimal(),
		Type:     billing.ExpenseType(r.Type),
		Date:     r.Date,
		Category: r.Category,
		PaidBy:   billing.TeamMember(r.PaidBy),
	}
}

// DeductedRequest is the body of PUT /expenses/{id}/deducted.
type DeductedRequest struct {
	Deducted bool `json:"deducted"`
}

// DeductionRequest is the body of POST /expenses/{id}/deductions.
type DeductionRequest struct {
	Period string `json:"period"` // YYYY-MM
}

// DeductionDTO is one entry of the deduction log.
type DeductionDTO struct {
	ID        string `json:"id"`
	ExpenseID string `json:"expense_id"`
	Period    string `json:"period"`
	CreatedAt string `json:"created_at,omitempty"`
}

func toDeductionDTO(d billing.Deduction) DeductionDTO {
	return DeductionDTO{
		ID:        string(d.ID),
		ExpenseID: string(d.ExpenseID),
		Period:    d.Period.String(),
		CreatedAt: formatTime(d.CreatedAt),
	}
}

// SummaryDTO carries the billing KPIs.
type SummaryDTO struct {
	SignedRevenue     decimal.Decimal `json:"signed_revenue"`
	Collected         decimal.Decimal `json:"collected"`
	Outstanding       decimal.Decimal `json:"outstanding"`
	TotalExpenses     decimal.Decimal `json:"total_expenses"`
	SetterCommissions decimal.Decimal `json:"setter_commissions"`
	NetBenefit        decimal.Decimal `json:"net_benefit"`
	ClientCount       int             `json:"client_count"`
	InstallmentCount  int             `json:"installment_count"`
	PendingDispatch   int             `json:"pending_dispatch"`
	PendingDispatchCA decimal.Decimal `json:"pending_dispatch_amount"`
}

func toSummaryDTO(s billing.Summary) SummaryDTO {
	return SummaryDTO{
		SignedRevenue:     s.SignedRevenue,
		Collected:         s.Collected,
		Outstanding:       s.Outstanding,
		TotalExpenses:     s.TotalExpenses,
		SetterCommissions: s.SetterCommissions,
		NetBenefit:        s.NetBenefit,
		ClientCount:       s.ClientCount,
		InstallmentCount:  s.InstallmentCount,
		PendingDispatch:   s.PendingDispatch,
		PendingDispatchCA: s.PendingDispatchCA,
	}
}

// =============================================================================
// CRM
// =============================================================================

// LeadDTO represents an inbound lead.
type LeadDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	Provenance  string `json:"provenance"`
	SocialMedia string `json:"social_media"`
	Message     string `json:"message"`
	Source      string `json:"source"`
	CreatedAt   string `json:"created_at,omitempty"`
}

func toLeadDTO(l crm.Lead) LeadDTO {
	return LeadDTO{
		ID:          string(l.ID),
		Name:        l.Name,
		Email:       l.Email,
		Phone:       l.Phone,
		Provenance:  string(l.Provenance),
		SocialMedia: l.SocialMedia,
		Message:     l.Message,
		Source:      l.Source,
		CreatedAt:   formatTime(l.CreatedAt),
	}
}

// LeadRequest is the body of POST /leads.
type LeadRequest struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	Provenance  string `json:"provenance"`
	SocialMedia string `json:"social_media"`
	Message     string `json:"message"`
	Source      string `json:"source"`
}

// ContactDTO represents a prospect being worked.
type ContactDTO struct {
	ID             string       `json:"id"`
	LeadID         string       `json:"lead_id,omitempty"`
	Name           string       `json:"name"`
	Email          string       `json:"email"`
	Phone          string       `json:"phone"`
	Status         string       `json:"status"`
	JobStatus      string       `json:"job_status"`
	PipelineStatus string       `json:"pipeline_status"`
	PipelineStage  int          `json:"pipeline_stage"`
	Setter         string       `json:"setter,omitempty"`
	Closer         string       `json:"closer,omitempty"`
	CallDate       billing.Date `json:"call_date"`
	Notes          string       `json:"notes"`
	Source         string       `json:"source"`
	CreatedAt      string       `json:"created_at,omitempty"`
}

func toContactDTO(c crm.Contact) ContactDTO {
	return ContactDTO{
		ID:             string(c.ID),
		LeadID:         string(c.LeadID),
		Name:           c.Name,
		Email:          c.Email,
		Phone:          c.Phone,
		Status:         string(c.Status),
		JobStatus:      string(c.JobStatus),
		PipelineStatus: string(c.PipelineStatus),
		PipelineStage:  c.PipelineStatus.Stage(),
		Setter:         string(c.Setter),
		Closer:         string(c.Closer),
		CallDate:       c.CallDate,
		Notes:          c.Notes,
		Source:         c.Source,
		CreatedAt:      formatTime(c.CreatedAt),
	}
}

// ContactRequest is the body of contact create and update.
type ContactRequest struct {
	LeadID    string       `json:"lead_id"`
	Name      string       `json:"name"`
	Email     string       `json:"email"`
	Phone     string       `json:"phone"`
	Status    string       `json:"status"`
	JobStatus string       `json:"job_status"`
	Setter    string       `json:"setter"`
	Closer    string       `json:"closer"`
	CallDate  billing.Date `json:"call_date"`
	Notes     string       `json:"notes"`
	Source    string       `json:"source"`
}

func (r ContactRequest) toContact(id crm.ContactID) crm.Contact {
	return crm.Contact{
		ID:        id,
		LeadID:    crm.LeadID(r.LeadID),
		Name:      r.Name,
		Email:     r.Email,
		Phone:     r.Phone,
		Status:    crm.ContactStatus(r.Status),
		JobStatus: crm.JobStatus(r.JobStatus),
		Setter:    billing.TeamMember(r.Setter),
		Closer:    billing.TeamMember(r.Closer),
		CallDate:  r.CallDate,
		Notes:     r.Notes,
		Source:    r.Source,
	}
}

// PipelineEntryDTO is one step of a contact's pipeline history.
type PipelineEntryDTO struct {
	ID        string       `json:"id"`
	ContactID string       `json:"contact_id"`
	Status    string       `json:"status"`
	Notes     string       `json:"notes"`
	R1Date    billing.Date `json:"r1_date"`
	R2Date    billing.Date `json:"r2_date"`
	CreatedAt string       `json:"created_at,omitempty"`
}

func toPipelineEntryDTO(e crm.PipelineEntry) PipelineEntryDTO {
	return PipelineEntryDTO{
		ID:        string(e.ID),
		ContactID: string(e.ContactID),
		Status:    string(e.Status),
		Notes:     e.Notes,
		R1Date:    e.R1Date,
		R2Date:    e.R2Date,
		CreatedAt: formatTime(e.CreatedAt),
	}
}

// PipelineChangeRequest is the body of POST /contacts/{id}/pipeline.
type PipelineChangeRequest struct {
	Status string       `json:"status"`
	Notes  string       `json:"notes"`
	R1Date billing.Date `json:"r1_date"`
	R2Date billing.Date `json:"r2_date"`
}

// NotesRequest is the body of PUT /pipeline/{id}/notes.
type NotesRequest struct {
	Notes string `json:"notes"`
}

// ConversionRequest is the body of POST /contacts/{id}/convert.
type ConversionRequest struct {
	DealAmount          Amount            `json:"deal_amount"`
	PaymentMethod       string            `json:"payment_method"`
	BillingPlatform     string            `json:"billing_platform"`
	ClosedBy            string            `json:"closed_by"`
	InitialPayment      *Amount           `json:"initial_payment"`
	SetterCommissionPct *Amount           `json:"setter_commission_percentage"`
	Distribution        map[string]Amount `json:"commission_distribution"`
	Notes               string            `json:"notes"`
}

func (r ConversionRequest) toDomain() crm.ConversionRequest {
	return crm.ConversionRequest{
		DealAmount:          r.DealAmount.Decimal(),
		PaymentMethod:       billing.PaymentMethod(r.PaymentMethod),
		BillingPlatform:     billing.BillingPlatform(r.BillingPlatform),
		ClosedBy:            billing.TeamMember(r.ClosedBy),
		InitialPayment:      optional(r.InitialPayment),
		SetterCommissionPct: optional(r.SetterCommissionPct),
		Distribution:        toDistribution(r.Distribution),
		Notes:               r.Notes,
	}
}

// ConversionDTO is returned by a successful conversion.
type ConversionDTO struct {
	Contact ContactDTO `json:"contact"`
	Client  ClientDTO  `json:"client"`
}

// DashboardDTO carries the home page counters.
type DashboardDTO struct {
	Leads    int             `json:"leads"`
	Contacts int             `json:"contacts"`
	Clients  int             `json:"clients"`
	Revenue  decimal.Decimal `json:"revenue"`
	Pipeline map[string]int  `json:"pipeline"`
}

// SourceStatsDTO counts the contacts of one acquisition source.
type SourceStatsDTO struct {
	Total  int             `json:"total"`
	Closed int             `json:"closed"`
	Rate   decimal.Decimal `json:"rate"`
}

// SetterStatsDTO is the setter board.
type SetterStatsDTO struct {
	SourceStatsDTO
	BySource        map[string]SourceStatsDTO `json:"by_source"`
	TotalCommission decimal.Decimal           `json:"total_commission"`
	MonthCommission decimal.Decimal           `json:"month_commission"`
}

func toSetterStatsDTO(s crm.SetterStats) SetterStatsDTO {
	dto := SetterStatsDTO{
		SourceStatsDTO:  SourceStatsDTO(s.SourceStats),
		BySource:        make(map[string]SourceStatsDTO, len(s.BySource)),
		TotalCommission: s.TotalCommission,
		MonthCommission: s.MonthCommission,
	}
	for name, src := range s.BySource {
		dto.BySource[name] = SourceStatsDTO(src)
	}
	return dto
}

// =============================================================================
// SCENARIOS & ERRORS
// =============================================================================

// ScenarioDTO describes a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoadScenarioRequest is the body of POST /scenarios/load.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error     string `json:"error"`
	Details   string `json:"details,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

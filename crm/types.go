/*
Package crm provides lead intake, contact management and the sales pipeline.

PURPOSE:
  Leads arrive from forms and social channels. A lead becomes a contact once
  someone engages with it; the contact then moves through the pipeline
  (discovery call, qualification, closing call). A won contact is converted
  into a billing client with its first installment schedule.

KEY TYPES:
  Lead:          Raw inbound prospect (form answer, DM, community signup)
  Contact:       Prospect being worked by the team
  PipelineEntry: One status change of a contact, with its notes and dates

SEE ALSO:
  - pipeline.go: Pipeline statuses and transition rules
  - service.go: Operations, including conversion to a billing client
  - billing/types.go: Client and Installment
*/
package crm

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/warp/crm-engine/billing"
)

type LeadID string
type ContactID string
type PipelineEntryID string

func NewLeadID() LeadID                   { return LeadID(uuid.NewString()) }
func NewContactID() ContactID             { return ContactID(uuid.NewString()) }
func NewPipelineEntryID() PipelineEntryID { return PipelineEntryID(uuid.NewString()) }

// =============================================================================
// LEADS
// =============================================================================

// Provenance is where a lead came from.
type Provenance string

const (
	ProvenanceTally Provenance = "tally"
	ProvenanceDM    Provenance = "dm"
	ProvenanceSkool Provenance = "skool"
	ProvenanceOther Provenance = "other"
)

func ParseProvenance(s string) (Provenance, error) {
	switch Provenance(strings.ToLower(strings.TrimSpace(s))) {
	case ProvenanceTally:
		return ProvenanceTally, nil
	case ProvenanceDM:
		return ProvenanceDM, nil
	case ProvenanceSkool:
		return ProvenanceSkool, nil
	case ProvenanceOther, "":
		return ProvenanceOther, nil
	}
	return "", fmt.Errorf("%w: provenance %q", billing.ErrInvalidInput, s)
}

type Lead struct {
	ID          LeadID
	Name        string
	Email       string
	Phone       string
	Provenance  Provenance
	SocialMedia string // handle on the channel the lead came through
	Message     string
	Source      string // acquisition channel, carried over to the contact
	CreatedAt   time.Time
}

// =============================================================================
// CONTACTS
// =============================================================================

// ContactStatus is the follow-up state shown on the contact board.
type ContactStatus string

const (
	ContactCallScheduled   ContactStatus = "call_scheduled"
	ContactToRecontact     ContactStatus = "to_recontact"
	ContactClosed          ContactStatus = "closed"
	ContactAwaitingPayment ContactStatus = "awaiting_payment"
	ContactAwaitingReply   ContactStatus = "awaiting_reply"
	ContactNoShow          ContactStatus = "no_show"
	ContactNoBudget        ContactStatus = "no_budget"
)

var contactStatuses = []ContactStatus{
	ContactCallScheduled, ContactToRecontact, ContactClosed, ContactAwaitingPayment,
	ContactAwaitingReply, ContactNoShow, ContactNoBudget,
}

func ParseContactStatus(s string) (ContactStatus, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ContactCallScheduled, nil
	}
	for _, cs := range contactStatuses {
		if string(cs) == s {
			return cs, nil
		}
	}
	return "", fmt.Errorf("%w: contact status %q", billing.ErrInvalidInput, s)
}

// JobStatus is the contact's professional situation.
type JobStatus string

const (
	JobEmployee     JobStatus = "employee"
	JobSelfEmployed JobStatus = "self_employed"
	JobEntrepreneur JobStatus = "entrepreneur"
	JobStudent      JobStatus = "student"
	JobUnemployed   JobStatus = "unemployed"
	JobOther        JobStatus = "other"
)

func ParseJobStatus(s string) (JobStatus, error) {
	switch JobStatus(strings.ToLower(strings.TrimSpace(s))) {
	case JobEmployee:
		return JobEmployee, nil
	case JobSelfEmployed:
		return JobSelfEmployed, nil
	case JobEntrepreneur:
		return JobEntrepreneur, nil
	case JobStudent:
		return JobStudent, nil
	case JobUnemployed:
		return JobUnemployed, nil
	case JobOther, "":
		return JobOther, nil
	}
	return "", fmt.Errorf("%w: job status %q", billing.ErrInvalidInput, s)
}

type Contact struct {
	ID             ContactID
	LeadID         LeadID // empty when the contact did not come from a lead
	Name           string
	Email          string
	Phone          string
	Status         ContactStatus
	JobStatus      JobStatus
	PipelineStatus PipelineStatus
	Setter         billing.TeamMember
	Closer         billing.TeamMember
	CallDate       billing.Date
	Notes          string
	Source         string // acquisition channel: s-i, linkedin, ...
	CreatedAt      time.Time
}

// PipelineEntry is one status change in a contact's history.
type PipelineEntry struct {
	ID        PipelineEntryID
	ContactID ContactID
	Status    PipelineStatus
	Notes     string
	R1Date    billing.Date // first call, set for r1_scheduled
	R2Date    billing.Date // closing call, set for r2_scheduled
	CreatedAt time.Time
}

func normalizeSource(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// normalizeEmail is the form emails are compared in.
func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

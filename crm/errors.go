package crm

import (
	"errors"
	"fmt"

	"github.com/warp/crm-engine/billing"
)

var (
	ErrLeadNotFound          = errors.New("lead not found")
	ErrContactNotFound       = errors.New("contact not found")
	ErrPipelineEntryNotFound = errors.New("pipeline entry not found")

	// ErrMissingMeetingDate is returned when scheduling a call without a date.
	ErrMissingMeetingDate = errors.New("meeting date required")

	ErrInvalidPipelineStatus = errors.New("invalid pipeline status")

	// ErrAlreadyConverted is returned when converting a contact that already
	// has a client.
	ErrAlreadyConverted = errors.New("contact already converted to a client")
)

// MissingMeetingDateError names the date a scheduling stage needs.
type MissingMeetingDateError struct {
	Status PipelineStatus
	Field  string
}

func (e *MissingMeetingDateError) Error() string {
	return fmt.Sprintf("%s requires %s", e.Status, e.Field)
}

func (e *MissingMeetingDateError) Unwrap() error {
	return ErrMissingMeetingDate
}

// IsClientError extends billing.IsClientError with CRM validation errors.
func IsClientError(err error) bool {
	return billing.IsClientError(err) ||
		errors.Is(err, ErrMissingMeetingDate) ||
		errors.Is(err, ErrInvalidPipelineStatus)
}

// IsNotFound extends billing.IsNotFound with CRM records.
func IsNotFound(err error) bool {
	return billing.IsNotFound(err) ||
		errors.Is(err, ErrLeadNotFound) ||
		errors.Is(err, ErrContactNotFound) ||
		errors.Is(err, ErrPipelineEntryNotFound)
}

// IsConflict extends billing.IsConflict.
func IsConflict(err error) bool {
	return billing.IsConflict(err) || errors.Is(err, ErrAlreadyConverted)
}

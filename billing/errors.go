/*
errors.go - Centralized error types for the billing engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  The crm package and the HTTP layer wrap or map these errors.

ERROR CATEGORIES:
  1. Validation errors - Rejected input (negative amounts, bad enums, bad splits)
  2. Lookup errors - Referenced record does not exist
  3. Conflict errors - Operation clashes with existing state

USAGE:
  if errors.Is(err, billing.ErrScheduleExists) {
      // ask the operator to confirm regeneration
  }

SEE ALSO:
  - service.go: Returns these errors
  - api/handlers.go: Maps them to HTTP status codes
*/
package billing

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidInput is the umbrella for malformed values.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNegativeAmount is returned when a money amount is below zero.
	ErrNegativeAmount = errors.New("amount must not be negative")

	// ErrOverpaid is returned when the amount already paid exceeds the deal
	// for a multi-installment schedule.
	ErrOverpaid = errors.New("amount already paid exceeds deal amount")

	ErrInvalidPaymentMethod = errors.New("invalid payment method")
	ErrInvalidPlatform      = errors.New("invalid billing platform")
	ErrInvalidStatus        = errors.New("invalid installment status")

	// ErrInvalidDistribution is returned when a commission split does not add
	// up to 100% or names someone outside the roster.
	ErrInvalidDistribution = errors.New("invalid commission distribution")

	// ErrScheduleExists is returned when generating a schedule for a client that
	// already has one, without confirmation.
	ErrScheduleExists = errors.New("schedule already exists")

	// ErrDuplicateDeduction is returned when an expense is deducted twice for
	// the same month.
	ErrDuplicateDeduction = errors.New("expense already deducted for period")

	ErrClientNotFound      = errors.New("client not found")
	ErrInstallmentNotFound = errors.New("installment not found")
	ErrExpenseNotFound     = errors.New("expense not found")
	ErrDeductionNotFound   = errors.New("deduction not found")

	// ErrStoreRequired is returned when an operation requires a specific store capability.
	ErrStoreRequired = errors.New("operation requires extended store interface")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError names the offending field.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// DistributionError provides details about a rejected commission split.
type DistributionError struct {
	Sum     decimal.Decimal
	Unknown []TeamMember
	Reason  string
}

func (e *DistributionError) Error() string {
	if len(e.Unknown) > 0 {
		return fmt.Sprintf("invalid commission distribution: unknown members %v", e.Unknown)
	}
	if e.Reason != "" {
		return "invalid commission distribution: " + e.Reason
	}
	return fmt.Sprintf("invalid commission distribution: percentages sum to %s, want 100", e.Sum.StringFixed(2))
}

func (e *DistributionError) Unwrap() error {
	return ErrInvalidDistribution
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrNegativeAmount) ||
		errors.Is(err, ErrOverpaid) ||
		errors.Is(err, ErrInvalidPaymentMethod) ||
		errors.Is(err, ErrInvalidPlatform) ||
		errors.Is(err, ErrInvalidStatus) ||
		errors.Is(err, ErrInvalidDistribution)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrClientNotFound) ||
		errors.Is(err, ErrInstallmentNotFound) ||
		errors.Is(err, ErrExpenseNotFound) ||
		errors.Is(err, ErrDeductionNotFound)
}

// IsConflict returns true if the operation clashes with existing state.
func IsConflict(err error) bool {
	return errors.Is(err, ErrScheduleExists) ||
		errors.Is(err, ErrDuplicateDeduction)
}

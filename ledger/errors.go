/*
errors.go - Centralized error types for the ledger engine

PURPOSE:
  All sentinel errors in one place for consistency and discoverability.
  The billing package and the HTTP layer match on these with errors.Is.

ERROR CATEGORIES:
  1. Not-found errors - missing student records
  2. Validation errors - rejected before any ledger mutation
  3. Conflict errors - idempotency guards firing on retries

USAGE:
  if errors.Is(err, ledger.ErrAlreadyBilled) {
      // expected on batch re-runs, count as skipped
  }

SEE ALSO:
  - ledger.go: Uses these errors
  - api/handlers.go: Maps categories to HTTP status codes
*/
package ledger

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrStudentNotFound is returned when no billing profile exists for the id.
	ErrStudentNotFound = errors.New("student not found")

	// ErrStudentExists is returned when enrolling an id that already has a profile.
	ErrStudentExists = errors.New("student already configured")

	// ErrStudentInactive is returned when mutating the ledger of a checked-out
	// or deactivated student.
	ErrStudentInactive = errors.New("student billing is inactive")

	// ErrNonPositiveAmount is returned when a payment or fee amount is <= 0.
	ErrNonPositiveAmount = errors.New("amount must be positive")

	// ErrMissingFeeConfiguration is returned when a student has no usable
	// monthly fee and therefore cannot be billed.
	ErrMissingFeeConfiguration = errors.New("missing fee configuration")

	// ErrDuplicateIdempotencyKey is returned when an entry with the same
	// idempotency key already exists. Expected behavior for retries.
	ErrDuplicateIdempotencyKey = errors.New("duplicate idempotency key")

	// ErrAlreadyBilled is returned when an invoice already exists for the
	// (student, period) pair. The generator counts this as skipped.
	ErrAlreadyBilled = errors.New("invoice already exists for period")

	// ErrAlreadyCheckedOut is returned on duplicate checkout attempts.
	ErrAlreadyCheckedOut = errors.New("student already checked out")

	// ErrInvalidPeriod is returned when a billing period is malformed.
	ErrInvalidPeriod = errors.New("invalid billing period")

	// ErrBackdatedEntry is returned when an append would place an entry
	// before the student's latest recorded entry. The stamped balance chain
	// runs over date order, so appends must not go backwards in time.
	ErrBackdatedEntry = errors.New("entry predates the latest ledger entry")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError reports why an input was rejected before any mutation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NonPositiveAmountError reports the offending amount.
type NonPositiveAmountError struct {
	Field  string
	Amount decimal.Decimal
}

func (e *NonPositiveAmountError) Error() string {
	return fmt.Sprintf("%s must be positive, got %s", e.Field, e.Amount)
}

func (e *NonPositiveAmountError) Unwrap() error { return ErrNonPositiveAmount }

// BackdatedEntryError reports the conflicting effective dates.
type BackdatedEntryError struct {
	StudentID StudentID
	Date      time.Time
	LastDate  time.Time
}

func (e *BackdatedEntryError) Error() string {
	return fmt.Sprintf("student %s: entry dated %s predates latest entry dated %s",
		e.StudentID, e.Date.Format("2006-01-02"), e.LastDate.Format("2006-01-02"))
}

func (e *BackdatedEntryError) Unwrap() error { return ErrBackdatedEntry }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrStudentNotFound)
}

// IsConflict returns true if the error is an idempotency or state conflict
// that a retrying caller should treat as a no-op, not a failure.
func IsConflict(err error) bool {
	return errors.Is(err, ErrDuplicateIdempotencyKey) ||
		errors.Is(err, ErrAlreadyBilled) ||
		errors.Is(err, ErrAlreadyCheckedOut) ||
		errors.Is(err, ErrStudentExists)
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	var ve *ValidationError
	return errors.Is(err, ErrNonPositiveAmount) ||
		errors.Is(err, ErrMissingFeeConfiguration) ||
		errors.Is(err, ErrStudentInactive) ||
		errors.Is(err, ErrInvalidPeriod) ||
		errors.Is(err, ErrBackdatedEntry) ||
		errors.As(err, &ve)
}

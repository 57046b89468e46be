/*
Package ledger provides the core student account engine.

PURPOSE:
  This package contains the types and algorithms for maintaining a student's
  financial history: immutable ledger entries, derived balances, and the
  oldest-debt-first allocation of payments against invoices. It knows nothing
  about HTTP, proration policy, or batch billing - those live in the billing
  package and call down into this one.

KEY CONCEPTS IN THIS FILE (types.go):
  - Entry: An immutable ledger record carrying a debit or a credit
  - EntryType: Invoice, Payment, Discount, Adjustment, Refund, Penalty
  - BalanceType: Outstanding (student owes), Advance (hostel owes), Nil

DESIGN PRINCIPLES:
  1. Immutability: Entries are never modified, only superseded by new entries
  2. Precision: Uses decimal.Decimal so money never drifts
  3. Derivation: Balance is always computable from the full entry history;
     the Balance field stamped on each entry is a convenience, not the truth

USAGE:
  entry := ledger.Entry{
      StudentID: "std-101",
      Type:      ledger.EntryPayment,
      Credit:    decimal.NewFromInt(5000),
  }

SEE ALSO:
  - balance.go: Balance derivation from entries
  - allocation.go: Oldest-debt-first payment allocation
  - ledger.go: Append-only persistence wrapper
*/
package ledger

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type StudentID string
type EntryID string

// =============================================================================
// ENTRY TYPES
// =============================================================================

type EntryType string

const (
	EntryInvoice    EntryType = "invoice"    // Monthly or prorated charge (debit)
	EntryPayment    EntryType = "payment"    // Money received from student (credit)
	EntryDiscount   EntryType = "discount"   // Fee waiver (credit)
	EntryAdjustment EntryType = "adjustment" // Manual correction (either side)
	EntryRefund     EntryType = "refund"     // Money returned to student (credit)
	EntryPenalty    EntryType = "penalty"    // Fine or late fee (debit)
)

// IsDebit reports whether this entry type normally carries a debit amount.
// Adjustments may carry either side and return false from both predicates.
func (t EntryType) IsDebit() bool {
	return t == EntryInvoice || t == EntryPenalty
}

// IsCredit reports whether this entry type normally carries a credit amount.
func (t EntryType) IsCredit() bool {
	return t == EntryPayment || t == EntryDiscount || t == EntryRefund
}

// =============================================================================
// BALANCE CLASSIFICATION
// =============================================================================

type BalanceType string

const (
	BalanceOutstanding BalanceType = "outstanding" // signed balance > 0: student owes hostel
	BalanceAdvance     BalanceType = "advance"     // signed balance < 0: hostel owes student
	BalanceNil         BalanceType = "nil"         // exactly zero
)

// Classify converts a signed running total into the stored (absolute value,
// classification) pair. Decimal arithmetic keeps totals exact, so Nil is an
// exact zero compare.
func Classify(signed decimal.Decimal) (decimal.Decimal, BalanceType) {
	switch signed.Sign() {
	case 1:
		return signed, BalanceOutstanding
	case -1:
		return signed.Neg(), BalanceAdvance
	default:
		return decimal.Zero, BalanceNil
	}
}

// =============================================================================
// ENTRY - Immutable record of one financial event
// =============================================================================

type Entry struct {
	ID          EntryID
	StudentID   StudentID
	Date        time.Time // effective date of the transaction
	Type        EntryType
	Description string
	ReferenceID string // e.g. transaction/cheque number, invoice id

	// Exactly one of Debit/Credit is normally non-zero.
	Debit  decimal.Decimal
	Credit decimal.Decimal

	// Running balance after this entry, in absolute value, with its
	// classification. Stamped on append; derived, never authoritative.
	Balance     decimal.Decimal
	BalanceType BalanceType

	IdempotencyKey string
	CreatedAt      time.Time
}

// Signed returns the entry's effect on the running total: debit - credit.
func (e Entry) Signed() decimal.Decimal {
	return e.Debit.Sub(e.Credit)
}

// Validate checks that the entry's amounts sit on the side its type demands:
// debit-typed entries carry a positive Debit and no Credit, credit-typed the
// reverse, and an adjustment carries exactly one positive side.
func (e Entry) Validate() error {
	if e.Debit.IsNegative() || e.Credit.IsNegative() {
		return &ValidationError{Field: "amount", Reason: "debit and credit must not be negative"}
	}
	switch {
	case e.Type.IsDebit():
		if !e.Debit.IsPositive() || !e.Credit.IsZero() {
			return &ValidationError{Field: string(e.Type), Reason: "must carry a debit amount only"}
		}
	case e.Type.IsCredit():
		if !e.Credit.IsPositive() || !e.Debit.IsZero() {
			return &ValidationError{Field: string(e.Type), Reason: "must carry a credit amount only"}
		}
	case e.Type == EntryAdjustment:
		if e.Debit.IsPositive() == e.Credit.IsPositive() {
			return &ValidationError{Field: string(e.Type), Reason: "must carry exactly one of debit or credit"}
		}
	default:
		return &ValidationError{Field: "type", Reason: fmt.Sprintf("unknown entry type %q", e.Type)}
	}
	return nil
}

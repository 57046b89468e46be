/*
payments.go - Payment recording

PURPOSE:
  Records money received from a student as a Payment ledger entry and
  returns the recalculated balance. Validation happens before any mutation;
  invalid payments are rejected with a specific reason, never coerced.

ALLOCATION:
  The ledger keeps only the net effect of a payment. Oldest-debt-first
  allocation against specific invoices is derived on read (ledger.Allocate),
  so allocation is implicit FIFO with per-invoice standing still queryable.
*/
package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hostelhq/ledger-engine/ledger"
)

// PaymentInput describes one payment to record.
type PaymentInput struct {
	Amount    decimal.Decimal
	Method    string // e.g. "cash", "esewa", "bank_transfer"
	Reference string // optional transaction/cheque number
	Notes     string

	// Date is the effective date; zero means now. It must not predate the
	// student's latest ledger entry (ledger.ErrBackdatedEntry otherwise).
	Date time.Time
}

// RecordPayment validates the payment, appends a Payment entry, and returns
// the entry together with the re-derived balance.
func (e *Engine) RecordPayment(ctx context.Context, id ledger.StudentID, in PaymentInput) (*ledger.Entry, ledger.Balance, error) {
	if !in.Amount.IsPositive() {
		return nil, ledger.Balance{}, &ledger.NonPositiveAmountError{Field: "amount", Amount: in.Amount}
	}

	unlock := e.lockStudent(id)
	defer unlock()

	profile, err := e.requireProfile(ctx, id)
	if err != nil {
		return nil, ledger.Balance{}, err
	}
	if !profile.Billable() {
		return nil, ledger.Balance{}, fmt.Errorf("student %s: %w", id, ledger.ErrStudentInactive)
	}

	when := in.Date
	if when.IsZero() {
		when = time.Now().UTC()
	}

	description := "Payment received"
	if in.Method != "" {
		description = fmt.Sprintf("Payment received via %s", in.Method)
	}
	if in.Notes != "" {
		description += " - " + in.Notes
	}

	entry := ledger.Entry{
		ID:          ledger.EntryID(uuid.NewString()),
		StudentID:   id,
		Date:        when,
		Type:        ledger.EntryPayment,
		Description: description,
		ReferenceID: in.Reference,
		Debit:       decimal.Zero,
		Credit:      in.Amount,
	}

	lg := ledger.New(e.store)
	if err := lg.Append(ctx, entry); err != nil {
		return nil, ledger.Balance{}, err
	}

	calc := ledger.BalanceCalculator{Store: e.store}
	balance, err := calc.Balance(ctx, id)
	if err != nil {
		return nil, ledger.Balance{}, err
	}
	entry.Balance = balance.Amount
	entry.BalanceType = balance.Type

	return &entry, balance, nil
}

// RecordDiscount appends a Discount credit, reducing what the student owes.
// A zero asOf means now.
func (e *Engine) RecordDiscount(ctx context.Context, id ledger.StudentID, amount decimal.Decimal, reason string, asOf time.Time) (*ledger.Entry, error) {
	if !amount.IsPositive() {
		return nil, &ledger.NonPositiveAmountError{Field: "amount", Amount: amount}
	}

	unlock := e.lockStudent(id)
	defer unlock()

	profile, err := e.requireProfile(ctx, id)
	if err != nil {
		return nil, err
	}
	if !profile.Billable() {
		return nil, fmt.Errorf("student %s: %w", id, ledger.ErrStudentInactive)
	}

	if asOf.IsZero() {
		asOf = time.Now().UTC()
	}
	entry := ledger.Entry{
		ID:          ledger.EntryID(uuid.NewString()),
		StudentID:   id,
		Date:        asOf,
		Type:        ledger.EntryDiscount,
		Description: reason,
		Credit:      amount,
	}
	if err := ledger.New(e.store).Append(ctx, entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

/*
checkout.go - Settlement preview and atomic checkout

PURPOSE:
  Combines outstanding invoices, advance balance, and exit-month proration
  into one net settlement, then (on ProcessCheckout) zeroes the account,
  deactivates the profile, and releases the bed - atomically.

SETTLEMENT:
  NetAmount = TotalDues - AdvanceBalance + ProratedCharge - ProratedRefund
  Status: AMOUNT_DUE (> 0), REFUND_DUE (< 0), SETTLED (exactly 0).

PRORATION CASES for the exit month:
  1. Month was billed in full (monthly invoice, or a day-1 enrollment
     charge covering the whole month): refund the unused days.
  2. Exit month is a mid-month enrollment month: the prorated enrollment
     charge already covered the stay; no refund (month was not paid in
     full) and no further charge.
  3. Month was never billed: charge the days used.

ATOMICITY:
  ProcessCheckout writes the proration entry, the settlement entry, and the
  profile flip in one store transaction, with the bed release inside the
  boundary. Any failure rolls everything back - there is no half-checked-out
  state. A second checkout attempt is rejected as ErrAlreadyCheckedOut,
  which callers treat as an informative no-op.
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

// =============================================================================
// PREVIEW - Pure computation, no mutation
// =============================================================================

// CheckoutPreview computes the settlement a checkout on the given day would
// produce. Read-only; safe to call repeatedly from the UI.
func (e *Engine) CheckoutPreview(ctx context.Context, id ledger.StudentID, asOf time.Time) (*Settlement, error) {
	if asOf.IsZero() {
		asOf = time.Now().UTC()
	}
	profile, err := e.requireProfile(ctx, id)
	if err != nil {
		return nil, err
	}
	if profile.IsCheckedOut {
		return nil, fmt.Errorf("student %s: %w", id, ledger.ErrAlreadyCheckedOut)
	}
	return e.computeSettlement(ctx, e.store, profile, asOf)
}

func (e *Engine) computeSettlement(ctx context.Context, store Store, profile *Profile, asOf time.Time) (*Settlement, error) {
	entries, err := store.LoadByStudent(ctx, profile.StudentID)
	if err != nil {
		return nil, err
	}
	alloc := ledger.Allocate(entries)

	s := &Settlement{
		StudentID:           profile.StudentID,
		AsOf:                asOf,
		OutstandingInvoices: alloc.Outstanding(),
		TotalDues:           alloc.TotalOutstanding,
		AdvanceBalance:      alloc.AdvanceBalance,
		ProratedRefund:      decimal.Zero,
		ProratedCharge:      decimal.Zero,
	}

	exitPeriod := ledger.PeriodOf(asOf)
	proration := Prorate(profile.MonthlyFee(), asOf, ProrateCheckout)

	invoiced, err := store.GetInvoice(ctx, profile.StudentID, exitPeriod)
	if err != nil {
		return nil, err
	}

	// A day-1 enrollment charged the full monthly fee, so the exit month was
	// billed in full even though no MonthlyInvoice record exists for it.
	enrolledThisMonth := exitPeriod.Contains(profile.ConfigurationDate)
	billedInFull := invoiced != nil || (enrolledThisMonth && profile.ConfigurationDate.Day() == 1)

	switch {
	case billedInFull:
		// Full month billed; refund the unused remainder.
		s.ProratedRefund = proration.Refund
		if proration.Refund.IsPositive() {
			s.ProrationNote = fmt.Sprintf("refund for %d unused days of %s", proration.DaysInMonth-proration.Days, exitPeriod)
		} else {
			s.ProrationNote = proration.Note
		}
	case enrolledThisMonth:
		// Mid-month enrollment: the prorated enrollment charge already covers
		// the stay and the month was never paid in full, so no refund.
		s.ProrationNote = "exit month covered by enrollment charge: no refund"
	default:
		// Month never billed: charge only the days used.
		s.ProratedCharge = proration.Amount
		s.ProrationNote = fmt.Sprintf("charge for %d of %d days used in %s", proration.Days, proration.DaysInMonth, exitPeriod)
	}

	s.NetAmount = s.TotalDues.Sub(s.AdvanceBalance).Add(s.ProratedCharge).Sub(s.ProratedRefund)
	s.Status = settlementStatus(s.NetAmount)
	return s, nil
}

// =============================================================================
// PROCESS - Atomic checkout
// =============================================================================

// ProcessCheckout settles the account and deactivates the student:
//  1. Appends the exit-month proration entry (charge or refund).
//  2. Appends one settlement entry bringing the balance to exactly zero
//     (a Payment collected for AMOUNT_DUE, an Adjustment recording the
//     payout for REFUND_DUE, nothing when already SETTLED).
//  3. Flips the profile to Inactive/checked-out and releases the bed.
//
// All of it commits together or not at all.
func (e *Engine) ProcessCheckout(ctx context.Context, id ledger.StudentID, asOf time.Time) (*Settlement, error) {
	if asOf.IsZero() {
		asOf = time.Now().UTC()
	}
	unlock := e.lockStudent(id)
	defer unlock()

	profile, err := e.requireProfile(ctx, id)
	if err != nil {
		return nil, err
	}
	if profile.IsCheckedOut {
		return nil, fmt.Errorf("student %s: %w", id, ledger.ErrAlreadyCheckedOut)
	}

	var settlement *Settlement
	err = e.store.WithTx(ctx, func(tx Store) error {
		s, err := e.computeSettlement(ctx, tx, profile, asOf)
		if err != nil {
			return err
		}
		settlement = s

		var entries []ledger.Entry
		if s.ProratedCharge.IsPositive() {
			entries = append(entries, ledger.Entry{
				ID:             ledger.EntryID(uuid.NewString()),
				StudentID:      id,
				Date:           asOf,
				Type:           ledger.EntryInvoice,
				Description:    fmt.Sprintf("Checkout charge: %s", s.ProrationNote),
				Debit:          s.ProratedCharge,
				IdempotencyKey: fmt.Sprintf("checkout-charge-%s", id),
			})
		}
		if s.ProratedRefund.IsPositive() {
			entries = append(entries, ledger.Entry{
				ID:             ledger.EntryID(uuid.NewString()),
				StudentID:      id,
				Date:           asOf,
				Type:           ledger.EntryRefund,
				Description:    fmt.Sprintf("Checkout refund: %s", s.ProrationNote),
				Credit:         s.ProratedRefund,
				IdempotencyKey: fmt.Sprintf("checkout-refund-%s", id),
			})
		}

		switch s.Status {
		case SettlementAmountDue:
			entries = append(entries, ledger.Entry{
				ID:             ledger.EntryID(uuid.NewString()),
				StudentID:      id,
				Date:           asOf,
				Type:           ledger.EntryPayment,
				Description:    "Final settlement payment at checkout",
				Credit:         s.NetAmount,
				IdempotencyKey: fmt.Sprintf("checkout-settle-%s", id),
			})
		case SettlementRefundDue:
			// Paying the surplus back to the student debits the account to
			// exactly zero.
			entries = append(entries, ledger.Entry{
				ID:             ledger.EntryID(uuid.NewString()),
				StudentID:      id,
				Date:           asOf,
				Type:           ledger.EntryAdjustment,
				Description:    "Advance balance refunded to student at checkout",
				Debit:          s.NetAmount.Neg(),
				IdempotencyKey: fmt.Sprintf("checkout-settle-%s", id),
			})
		}

		if err := ledger.New(tx).AppendAll(ctx, entries); err != nil {
			return err
		}
		if err := tx.MarkCheckedOut(ctx, id, asOf); err != nil {
			return err
		}
		// Bed release sits inside the boundary: if room management rejects
		// the release, the whole checkout rolls back.
		return e.releaser.ReleaseBed(ctx, id)
	})
	if err != nil {
		return nil, err
	}

	return settlement, nil
}

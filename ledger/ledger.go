/*
ledger.go - Append-only entry log

PURPOSE:
  The Ledger is the immutable record of all student balance changes. Every
  invoice, payment, discount, adjustment, refund, and penalty is recorded
  here. Balance is always computed by replaying entries - the Balance field
  stamped on each row is a display convenience that can be regenerated.

CRITICAL INVARIANTS:
  1. APPEND-ONLY: No Update, No Delete. EVER.
  2. IMMUTABLE: Once written, entries cannot be modified
  3. AUDITABLE: over date-then-insertion order,
     balance(n) == balance(n-1) + debit(n) - credit(n)
  4. IDEMPOTENT: Same idempotency key = same entry (no duplicates)
  5. MONOTONE: a new entry's effective date is never earlier than the
     student's latest entry. Backdating would desynchronize the stamped
     balances from the date-ordered history, so it is rejected.

CORRECTIONS:
  A mistaken charge is not edited. A new Adjustment or Refund entry is
  appended; both remain in the ledger and the history stays replayable.

SEE ALSO:
  - store.go: Low-level persistence interface
  - balance.go: Balance derivation
*/
package ledger

import (
	"context"
	"time"
)

// =============================================================================
// LEDGER - Append-only entry log with running-balance stamping
// =============================================================================

type Ledger struct {
	Store Store
}

func New(store Store) *Ledger {
	return &Ledger{Store: store}
}

// Append records an entry, stamping the running balance after it.
// Fails with ErrDuplicateIdempotencyKey if the entry was already recorded,
// and with ErrBackdatedEntry if the entry is dated before the latest one.
//
// Callers that mutate a student's ledger must hold that student's lock
// (billing package) so the read-compute-append sequence does not interleave.
func (l *Ledger) Append(ctx context.Context, e Entry) error {
	if err := e.Validate(); err != nil {
		return err
	}
	if e.IdempotencyKey != "" {
		exists, err := l.Store.Exists(ctx, e.IdempotencyKey)
		if err != nil {
			return err
		}
		if exists {
			return ErrDuplicateIdempotencyKey
		}
	}

	history, err := l.Store.LoadByStudent(ctx, e.StudentID)
	if err != nil {
		return err
	}
	if err := checkNotBackdated(history, e); err != nil {
		return err
	}

	running := SignedSum(history).Add(e.Signed())
	e.Balance, e.BalanceType = Classify(running)
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	return l.Store.Append(ctx, e)
}

// AppendAll records entries in order, each stamped with the balance after it.
// The entries must belong to the same student; persistence is atomic when the
// underlying store supports batches.
func (l *Ledger) AppendAll(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}

	for _, e := range entries {
		if err := e.Validate(); err != nil {
			return err
		}
		if e.IdempotencyKey == "" {
			continue
		}
		exists, err := l.Store.Exists(ctx, e.IdempotencyKey)
		if err != nil {
			return err
		}
		if exists {
			return ErrDuplicateIdempotencyKey
		}
	}

	history, err := l.Store.LoadByStudent(ctx, entries[0].StudentID)
	if err != nil {
		return err
	}
	for i, e := range entries {
		if err := checkNotBackdated(history, e); err != nil {
			return err
		}
		if i > 0 && e.Date.Before(entries[i-1].Date) {
			return &BackdatedEntryError{StudentID: e.StudentID, Date: e.Date, LastDate: entries[i-1].Date}
		}
	}

	running := SignedSum(history)
	now := time.Now().UTC()
	stamped := make([]Entry, len(entries))
	for i, e := range entries {
		running = running.Add(e.Signed())
		e.Balance, e.BalanceType = Classify(running)
		if e.CreatedAt.IsZero() {
			e.CreatedAt = now
		}
		stamped[i] = e
	}

	return l.Store.AppendBatch(ctx, stamped)
}

// Entries returns a student's full history, chronologically. Read-only.
func (l *Ledger) Entries(ctx context.Context, id StudentID) ([]Entry, error) {
	return l.Store.LoadByStudent(ctx, id)
}

// checkNotBackdated enforces invariant 5 against the stored history. The
// history is date-ordered, so only the last entry matters.
func checkNotBackdated(history []Entry, e Entry) error {
	if len(history) == 0 {
		return nil
	}
	last := history[len(history)-1]
	if e.Date.Before(last.Date) {
		return &BackdatedEntryError{StudentID: e.StudentID, Date: e.Date, LastDate: last.Date}
	}
	return nil
}

/*
allocation.go - Oldest-debt-first payment allocation

PURPOSE:
  Answers "which invoices are still unpaid, and by how much?". Credits are
  applied to debit entries in FIFO order: the oldest Invoice/Penalty debit
  is cleared first, and any credit exceeding total debits becomes the
  student's advance balance.

MODEL:
  Allocation is derived on demand from the entry history rather than kept
  in a separate table. The ledger stays the single source of truth and
  per-invoice standing can never drift from it.

INVARIANTS:
  - sum(standing.Paid) + AdvanceBalance == total credits
  - sum(standing.Outstanding) - AdvanceBalance == signed balance
  - A standing is Settled exactly when its Outstanding is zero

SEE ALSO:
  - balance.go: Net balance (this file explains its composition)
  - billing/checkout.go: Uses standings for settlement previews
*/
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// INVOICE STANDING - Per-debit paid/outstanding state
// =============================================================================

// InvoiceStanding reports how much of one debit entry remains unpaid after
// FIFO allocation of all credits.
type InvoiceStanding struct {
	EntryID     EntryID
	Type        EntryType
	Date        time.Time
	Description string
	Amount      decimal.Decimal
	Paid        decimal.Decimal
	Outstanding decimal.Decimal
	Settled     bool
}

// Allocation is the result of applying every credit to the debit history.
type Allocation struct {
	Standings []InvoiceStanding

	// TotalOutstanding is the sum of unpaid debit remainders.
	TotalOutstanding decimal.Decimal

	// AdvanceBalance is credit left over after all debits are cleared.
	AdvanceBalance decimal.Decimal
}

// Outstanding returns only the standings that still carry unpaid amounts.
func (a Allocation) Outstanding() []InvoiceStanding {
	var open []InvoiceStanding
	for _, s := range a.Standings {
		if !s.Settled {
			open = append(open, s)
		}
	}
	return open
}

// =============================================================================
// ALLOCATOR
// =============================================================================

// Allocate walks the entries in (date, insertion) order, opening a standing
// for every debit and draining credits into the oldest open standing first.
// The entries must already be chronologically ordered, as returned by
// Store.LoadByStudent.
func Allocate(entries []Entry) Allocation {
	var standings []InvoiceStanding
	credit := decimal.Zero // unapplied credit carried forward

	for _, e := range entries {
		if e.Debit.IsPositive() {
			s := InvoiceStanding{
				EntryID:     e.ID,
				Type:        e.Type,
				Date:        e.Date,
				Description: e.Description,
				Amount:      e.Debit,
				Paid:        decimal.Zero,
				Outstanding: e.Debit,
			}
			// A pre-existing advance pays the new debit immediately.
			if credit.IsPositive() {
				applied := decimal.Min(credit, s.Outstanding)
				s.Paid = s.Paid.Add(applied)
				s.Outstanding = s.Outstanding.Sub(applied)
				s.Settled = s.Outstanding.IsZero()
				credit = credit.Sub(applied)
			}
			standings = append(standings, s)
		}

		if e.Credit.IsPositive() {
			remaining := e.Credit
			for i := range standings {
				if !remaining.IsPositive() {
					break
				}
				if standings[i].Outstanding.IsPositive() {
					applied := decimal.Min(remaining, standings[i].Outstanding)
					standings[i].Paid = standings[i].Paid.Add(applied)
					standings[i].Outstanding = standings[i].Outstanding.Sub(applied)
					standings[i].Settled = standings[i].Outstanding.IsZero()
					remaining = remaining.Sub(applied)
				}
			}
			credit = credit.Add(remaining)
		}
	}

	total := decimal.Zero
	for _, s := range standings {
		total = total.Add(s.Outstanding)
	}

	return Allocation{
		Standings:        standings,
		TotalOutstanding: total,
		AdvanceBalance:   credit,
	}
}

/*
balance.go - Balance derivation

PURPOSE:
  Computes a student's balance from the entry history. This answers the
  central question "how much does this student owe (or hold in advance)?"

KEY INSIGHT:
  The authoritative balance is the signed sum of ALL debits minus credits
  over the full history. The per-entry Balance column is derived and never
  consulted here, so a corrupted stamp can never corrupt the account.

CLASSIFICATION:
  sum > 0  -> Outstanding (student owes hostel)
  sum < 0  -> Advance (hostel owes student)
  sum == 0 -> Nil

SEE ALSO:
  - allocation.go: Which specific invoices the outstanding sum consists of
*/
package ledger

import (
	"context"

	"github.com/shopspring/decimal"
)

// =============================================================================
// BALANCE - Derived account state
// =============================================================================

// Balance is a student's derived account state.
type Balance struct {
	StudentID StudentID

	// Absolute current balance and its classification.
	Amount decimal.Decimal
	Type   BalanceType

	// Component sums over the full history.
	TotalDebits  decimal.Decimal
	TotalCredits decimal.Decimal
}

// Signed returns the balance as a signed value: positive means Outstanding.
func (b Balance) Signed() decimal.Decimal {
	return b.TotalDebits.Sub(b.TotalCredits)
}

// SignedSum returns the signed total of the given entries: debits - credits.
// Order-independent.
func SignedSum(entries []Entry) decimal.Decimal {
	sum := decimal.Zero
	for _, e := range entries {
		sum = sum.Add(e.Signed())
	}
	return sum
}

// ComputeBalance derives the balance from an entry history.
func ComputeBalance(id StudentID, entries []Entry) Balance {
	debits := decimal.Zero
	credits := decimal.Zero
	for _, e := range entries {
		debits = debits.Add(e.Debit)
		credits = credits.Add(e.Credit)
	}

	amount, kind := Classify(debits.Sub(credits))
	return Balance{
		StudentID:    id,
		Amount:       amount,
		Type:         kind,
		TotalDebits:  debits,
		TotalCredits: credits,
	}
}

// =============================================================================
// BALANCE CALCULATOR - Store-backed derivation
// =============================================================================

type BalanceCalculator struct {
	Store Store
}

// Balance loads the full history and derives the current balance.
func (c *BalanceCalculator) Balance(ctx context.Context, id StudentID) (Balance, error) {
	entries, err := c.Store.LoadByStudent(ctx, id)
	if err != nil {
		return Balance{}, err
	}
	return ComputeBalance(id, entries), nil
}

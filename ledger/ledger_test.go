package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hostelhq/ledger-engine/ledger"
	"github.com/hostelhq/ledger-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestLedger(t *testing.T) (*ledger.Ledger, *sqlite.Store) {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return ledger.New(store), store
}

func invoiceEntry(student string, date time.Time, amount int64, key string) ledger.Entry {
	return ledger.Entry{
		ID:             ledger.EntryID("entry-" + key),
		StudentID:      ledger.StudentID(student),
		Date:           date,
		Type:           ledger.EntryInvoice,
		Description:    "Monthly invoice",
		Debit:          decimal.NewFromInt(amount),
		IdempotencyKey: key,
	}
}

func paymentEntry(student string, date time.Time, amount int64, key string) ledger.Entry {
	return ledger.Entry{
		ID:             ledger.EntryID("entry-" + key),
		StudentID:      ledger.StudentID(student),
		Date:           date,
		Type:           ledger.EntryPayment,
		Description:    "Payment received",
		Credit:         decimal.NewFromInt(amount),
		IdempotencyKey: key,
	}
}

// =============================================================================
// BALANCE STAMPING TESTS
// =============================================================================

func TestLedger_Append_StampsRunningBalance(t *testing.T) {
	// GIVEN: An empty ledger
	// WHEN: An invoice, a partial payment, and an overpayment are appended
	// THEN: Each entry carries the running balance after itself

	lg, store := newTestLedger(t)
	ctx := context.Background()
	jan := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, lg.Append(ctx, invoiceEntry("std-1", jan, 15000, "inv-1")))
	require.NoError(t, lg.Append(ctx, paymentEntry("std-1", jan.AddDate(0, 0, 5), 10000, "pay-1")))
	require.NoError(t, lg.Append(ctx, paymentEntry("std-1", jan.AddDate(0, 0, 9), 8000, "pay-2")))

	entries, err := store.LoadByStudent(ctx, "std-1")
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.True(t, entries[0].Balance.Equal(decimal.NewFromInt(15000)))
	assert.Equal(t, ledger.BalanceOutstanding, entries[0].BalanceType)

	assert.True(t, entries[1].Balance.Equal(decimal.NewFromInt(5000)))
	assert.Equal(t, ledger.BalanceOutstanding, entries[1].BalanceType)

	// Overpayment flips the account into advance, stored as absolute value.
	assert.True(t, entries[2].Balance.Equal(decimal.NewFromInt(3000)))
	assert.Equal(t, ledger.BalanceAdvance, entries[2].BalanceType)
}

func TestLedger_Append_DuplicateIdempotencyKey_Rejected(t *testing.T) {
	// GIVEN: An entry with idempotency key "inv-1" already appended
	// WHEN: A second entry reuses the key
	// THEN: The append is rejected and the ledger is unchanged

	lg, store := newTestLedger(t)
	ctx := context.Background()
	jan := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, lg.Append(ctx, invoiceEntry("std-1", jan, 15000, "inv-1")))

	dup := invoiceEntry("std-1", jan, 15000, "inv-1")
	dup.ID = "entry-other"
	err := lg.Append(ctx, dup)

	assert.ErrorIs(t, err, ledger.ErrDuplicateIdempotencyKey)
	assert.True(t, ledger.IsConflict(err))

	entries, err := store.LoadByStudent(ctx, "std-1")
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestLedger_AppendAll_StampsSequentially(t *testing.T) {
	// GIVEN: An enrollment charge and an advance payment in one batch
	// WHEN: Both are appended atomically
	// THEN: The second entry's balance reflects the first

	lg, store := newTestLedger(t)
	ctx := context.Background()
	jan := time.Date(2026, time.January, 15, 0, 0, 0, 0, time.UTC)

	batch := []ledger.Entry{
		invoiceEntry("std-1", jan, 8000, "enroll-std-1"),
		paymentEntry("std-1", jan, 8000, "enroll-advance-std-1"),
	}
	require.NoError(t, lg.AppendAll(ctx, batch))

	entries, err := store.LoadByStudent(ctx, "std-1")
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, ledger.BalanceOutstanding, entries[0].BalanceType)
	assert.True(t, entries[1].Balance.IsZero())
	assert.Equal(t, ledger.BalanceNil, entries[1].BalanceType)
}

// =============================================================================
// BALANCE DERIVATION TESTS
// =============================================================================

func TestBalanceCalculator_DerivesFromFullHistory(t *testing.T) {
	lg, store := newTestLedger(t)
	ctx := context.Background()
	jan := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, lg.Append(ctx, invoiceEntry("std-1", jan, 15000, "inv-1")))
	require.NoError(t, lg.Append(ctx, invoiceEntry("std-1", jan.AddDate(0, 1, 0), 15000, "inv-2")))
	require.NoError(t, lg.Append(ctx, paymentEntry("std-1", jan.AddDate(0, 1, 5), 20000, "pay-1")))

	calc := ledger.BalanceCalculator{Store: store}
	balance, err := calc.Balance(ctx, "std-1")
	require.NoError(t, err)

	assert.True(t, balance.Amount.Equal(decimal.NewFromInt(10000)))
	assert.Equal(t, ledger.BalanceOutstanding, balance.Type)
	assert.True(t, balance.TotalDebits.Equal(decimal.NewFromInt(30000)))
	assert.True(t, balance.TotalCredits.Equal(decimal.NewFromInt(20000)))
}

func TestBalanceCalculator_EmptyHistory_Nil(t *testing.T) {
	_, store := newTestLedger(t)

	calc := ledger.BalanceCalculator{Store: store}
	balance, err := calc.Balance(context.Background(), "std-unknown")
	require.NoError(t, err)

	assert.True(t, balance.Amount.IsZero())
	assert.Equal(t, ledger.BalanceNil, balance.Type)
}

func TestClassify(t *testing.T) {
	amount, typ := ledger.Classify(decimal.NewFromInt(500))
	assert.True(t, amount.Equal(decimal.NewFromInt(500)))
	assert.Equal(t, ledger.BalanceOutstanding, typ)

	amount, typ = ledger.Classify(decimal.NewFromInt(-500))
	assert.True(t, amount.Equal(decimal.NewFromInt(500)))
	assert.Equal(t, ledger.BalanceAdvance, typ)

	amount, typ = ledger.Classify(decimal.Zero)
	assert.True(t, amount.IsZero())
	assert.Equal(t, ledger.BalanceNil, typ)
}

// =============================================================================
// DATE ORDERING TESTS
// =============================================================================

func TestLedger_Append_Backdated_Rejected(t *testing.T) {
	// GIVEN: An invoice dated January 10
	// WHEN: A payment dated January 5 is appended afterwards
	// THEN: Rejected, and the stored history is untouched

	lg, store := newTestLedger(t)
	ctx := context.Background()
	jan10 := time.Date(2026, time.January, 10, 0, 0, 0, 0, time.UTC)

	require.NoError(t, lg.Append(ctx, invoiceEntry("std-1", jan10, 15000, "inv-1")))

	err := lg.Append(ctx, paymentEntry("std-1", jan10.AddDate(0, 0, -5), 5000, "pay-1"))
	assert.ErrorIs(t, err, ledger.ErrBackdatedEntry)
	assert.True(t, ledger.IsClientError(err))

	var dated *ledger.BackdatedEntryError
	require.ErrorAs(t, err, &dated)
	assert.True(t, dated.LastDate.Equal(jan10))

	entries, err := store.LoadByStudent(ctx, "std-1")
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestLedger_AppendAll_OutOfOrderBatch_Rejected(t *testing.T) {
	lg, store := newTestLedger(t)
	ctx := context.Background()
	jan := time.Date(2026, time.January, 10, 0, 0, 0, 0, time.UTC)

	err := lg.AppendAll(ctx, []ledger.Entry{
		invoiceEntry("std-1", jan, 15000, "inv-1"),
		paymentEntry("std-1", jan.AddDate(0, 0, -2), 5000, "pay-1"),
	})
	assert.ErrorIs(t, err, ledger.ErrBackdatedEntry)

	entries, err := store.LoadByStudent(ctx, "std-1")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestLedger_StampedBalances_ChainOverDateOrder(t *testing.T) {
	// GIVEN: Entries appended on distinct days across two months
	// WHEN: The history is read back in date order
	// THEN: Every stamped balance equals the previous one plus the entry's
	//       signed effect

	lg, store := newTestLedger(t)
	ctx := context.Background()
	jan10 := time.Date(2026, time.January, 10, 0, 0, 0, 0, time.UTC)

	require.NoError(t, lg.Append(ctx, invoiceEntry("std-1", jan10, 15000, "inv-1")))
	require.NoError(t, lg.Append(ctx, paymentEntry("std-1", jan10.AddDate(0, 0, 8), 9000, "pay-1")))
	require.NoError(t, lg.Append(ctx, invoiceEntry("std-1", jan10.AddDate(0, 0, 22), 15000, "inv-2")))
	require.NoError(t, lg.Append(ctx, paymentEntry("std-1", jan10.AddDate(0, 0, 30), 25000, "pay-2")))

	entries, err := store.LoadByStudent(ctx, "std-1")
	require.NoError(t, err)
	require.Len(t, entries, 4)

	running := decimal.Zero
	for i, e := range entries {
		running = running.Add(e.Signed())
		want, wantType := ledger.Classify(running)
		assert.True(t, e.Balance.Equal(want), "entry %d: stamped %s, chain %s", i, e.Balance, want)
		assert.Equal(t, wantType, e.BalanceType, "entry %d", i)
	}
	assert.True(t, running.Equal(ledger.SignedSum(entries)))
}

// =============================================================================
// ENTRY VALIDATION TESTS
// =============================================================================

func TestEntry_Validate(t *testing.T) {
	jan := time.Date(2026, time.January, 10, 0, 0, 0, 0, time.UTC)

	invoice := invoiceEntry("std-1", jan, 15000, "inv-1")
	assert.NoError(t, invoice.Validate())

	payment := paymentEntry("std-1", jan, 5000, "pay-1")
	assert.NoError(t, payment.Validate())

	// An invoice carrying a credit is malformed.
	crossed := invoice
	crossed.Credit = decimal.NewFromInt(100)
	assert.Error(t, crossed.Validate())

	// A payment carrying a debit is malformed.
	crossed = payment
	crossed.Debit = decimal.NewFromInt(100)
	assert.Error(t, crossed.Validate())

	// Negative amounts never pass.
	negative := invoice
	negative.Debit = decimal.NewFromInt(-100)
	assert.Error(t, negative.Validate())

	// Adjustments take exactly one side.
	adjustment := ledger.Entry{
		StudentID: "std-1",
		Date:      jan,
		Type:      ledger.EntryAdjustment,
		Debit:     decimal.NewFromInt(500),
	}
	assert.NoError(t, adjustment.Validate())

	adjustment.Credit = decimal.NewFromInt(500)
	assert.Error(t, adjustment.Validate())

	empty := ledger.Entry{StudentID: "std-1", Date: jan, Type: ledger.EntryAdjustment}
	assert.Error(t, empty.Validate())

	unknown := ledger.Entry{StudentID: "std-1", Date: jan, Type: "wire", Debit: decimal.NewFromInt(100)}
	assert.Error(t, unknown.Validate())
}

func TestLedger_Append_MalformedEntry_Rejected(t *testing.T) {
	lg, store := newTestLedger(t)
	ctx := context.Background()
	jan := time.Date(2026, time.January, 10, 0, 0, 0, 0, time.UTC)

	bad := invoiceEntry("std-1", jan, 15000, "inv-1")
	bad.Credit = decimal.NewFromInt(100)

	err := lg.Append(ctx, bad)
	assert.Error(t, err)
	assert.True(t, ledger.IsClientError(err))

	entries, err := store.LoadByStudent(ctx, "std-1")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

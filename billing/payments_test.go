package billing_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hostelhq/ledger-engine/billing"
	"github.com/hostelhq/ledger-engine/ledger"
)

// =============================================================================
// PAYMENT RECORDING TESTS
// =============================================================================

func TestRecordPayment_ReducesOutstanding(t *testing.T) {
	// GIVEN: A student owing 8225.81 from enrollment
	// WHEN: 5000 is paid
	// THEN: The returned entry and balance both reflect 3225.81 outstanding

	engine, _ := newTestEngine(t)
	ctx := context.Background()
	jan15 := time.Date(2026, time.January, 15, 0, 0, 0, 0, time.UTC)

	_, _, err := engine.Enroll(ctx, enrollInput("std-1", "15000", jan15))
	require.NoError(t, err)

	entry, balance, err := engine.RecordPayment(ctx, "std-1", billing.PaymentInput{
		Amount:    decimal.NewFromInt(5000),
		Method:    "esewa",
		Reference: "txn-991",
		Date:      jan15.AddDate(0, 0, 3),
	})
	require.NoError(t, err)

	assert.Equal(t, ledger.EntryPayment, entry.Type)
	assert.True(t, entry.Credit.Equal(decimal.NewFromInt(5000)))
	assert.Equal(t, "txn-991", entry.ReferenceID)
	assert.Contains(t, entry.Description, "esewa")

	want := decimal.RequireFromString("3225.81")
	assert.True(t, entry.Balance.Equal(want), "got %s", entry.Balance)
	assert.True(t, balance.Amount.Equal(want))
	assert.Equal(t, ledger.BalanceOutstanding, balance.Type)
}

func TestRecordPayment_NonPositiveAmount_Rejected(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()
	jan15 := time.Date(2026, time.January, 15, 0, 0, 0, 0, time.UTC)

	_, _, err := engine.Enroll(ctx, enrollInput("std-1", "15000", jan15))
	require.NoError(t, err)

	_, _, err = engine.RecordPayment(ctx, "std-1", billing.PaymentInput{Amount: decimal.Zero})
	assert.ErrorIs(t, err, ledger.ErrNonPositiveAmount)
	assert.True(t, ledger.IsClientError(err))

	_, _, err = engine.RecordPayment(ctx, "std-1", billing.PaymentInput{Amount: decimal.NewFromInt(-100)})
	assert.ErrorIs(t, err, ledger.ErrNonPositiveAmount)
}

func TestRecordPayment_Backdated_Rejected(t *testing.T) {
	// GIVEN: An enrollment charge dated January 15
	// WHEN: A payment arrives with an effective date before it
	// THEN: Rejected, since the stamped balance chain runs over date order

	engine, _ := newTestEngine(t)
	ctx := context.Background()
	jan15 := time.Date(2026, time.January, 15, 0, 0, 0, 0, time.UTC)

	_, _, err := engine.Enroll(ctx, enrollInput("std-1", "15000", jan15))
	require.NoError(t, err)

	_, _, err = engine.RecordPayment(ctx, "std-1", billing.PaymentInput{
		Amount: decimal.NewFromInt(1000),
		Date:   jan15.AddDate(0, 0, -3),
	})
	assert.ErrorIs(t, err, ledger.ErrBackdatedEntry)
	assert.True(t, ledger.IsClientError(err))
}

func TestRecordPayment_UnknownStudent_NotFound(t *testing.T) {
	engine, _ := newTestEngine(t)

	_, _, err := engine.RecordPayment(context.Background(), "std-ghost", billing.PaymentInput{
		Amount: decimal.NewFromInt(1000),
	})
	assert.ErrorIs(t, err, ledger.ErrStudentNotFound)
}

func TestRecordPayment_CheckedOutStudent_Rejected(t *testing.T) {
	// A checked-out account is closed; late payments need a new workflow,
	// not a silent append.

	engine, _ := newTestEngine(t)
	ctx := context.Background()
	jan15 := time.Date(2026, time.January, 15, 0, 0, 0, 0, time.UTC)

	_, _, err := engine.Enroll(ctx, enrollInput("std-1", "15000", jan15))
	require.NoError(t, err)

	_, err = engine.ProcessCheckout(ctx, "std-1", time.Date(2026, time.January, 20, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	_, _, err = engine.RecordPayment(ctx, "std-1", billing.PaymentInput{
		Amount: decimal.NewFromInt(1000),
	})
	assert.ErrorIs(t, err, ledger.ErrStudentInactive)
}

// =============================================================================
// DISCOUNT TESTS
// =============================================================================

func TestRecordDiscount_CreditsTheLedger(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()
	jan1 := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)

	_, _, err := engine.Enroll(ctx, enrollInput("std-1", "15000", jan1))
	require.NoError(t, err)

	entry, err := engine.RecordDiscount(ctx, "std-1", decimal.NewFromInt(2000), "scholarship", jan1.AddDate(0, 0, 3))
	require.NoError(t, err)
	assert.Equal(t, ledger.EntryDiscount, entry.Type)

	balance, err := engine.Balance(ctx, "std-1")
	require.NoError(t, err)
	assert.True(t, balance.Amount.Equal(decimal.NewFromInt(13000)))
}

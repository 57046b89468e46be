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
// MONTHLY GENERATION TESTS
// =============================================================================

func TestGenerateMonthlyInvoices_ChargesFullFee(t *testing.T) {
	// GIVEN: Two students enrolled in January
	// WHEN: The February batch runs
	// THEN: Both get a full-fee invoice dated the 1st, due the 10th

	engine, store := newTestEngine(t)
	ctx := context.Background()
	jan := time.Date(2026, time.January, 10, 0, 0, 0, 0, time.UTC)

	_, _, err := engine.Enroll(ctx, enrollInput("std-1", "15000", jan))
	require.NoError(t, err)
	_, _, err = engine.Enroll(ctx, enrollInput("std-2", "12000", jan))
	require.NoError(t, err)

	feb := ledger.Period{Year: 2026, Month: time.February}
	result, err := engine.GenerateMonthlyInvoices(ctx, billing.GenerateInput{Period: feb})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Generated)
	assert.Equal(t, 0, result.Skipped)
	assert.Equal(t, 0, result.Failed)
	assert.True(t, result.TotalAmount.Equal(decimal.NewFromInt(27000)))
	assert.Equal(t, time.Date(2026, time.February, 10, 0, 0, 0, 0, time.UTC), result.DueDate)

	entries, err := store.LoadByStudent(ctx, "std-1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	last := entries[len(entries)-1]
	assert.Equal(t, ledger.EntryInvoice, last.Type)
	assert.True(t, last.Debit.Equal(decimal.NewFromInt(15000)))
	assert.Equal(t, feb.Start(), last.Date)

	invoices, err := store.ListInvoices(ctx, feb)
	require.NoError(t, err)
	assert.Len(t, invoices, 2)
}

func TestGenerateMonthlyInvoices_EnrollmentMonth_Skipped(t *testing.T) {
	// GIVEN: A student whose configuration date falls inside the target
	//        period, including one on its very last day
	// WHEN: That period's batch runs
	// THEN: They are skipped; the enrollment advance covers the month

	engine, _ := newTestEngine(t)
	ctx := context.Background()

	_, _, err := engine.Enroll(ctx, enrollInput("std-mid", "15000",
		time.Date(2026, time.February, 15, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, err)
	_, _, err = engine.Enroll(ctx, enrollInput("std-last", "15000",
		time.Date(2026, time.February, 28, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, err)

	feb := ledger.Period{Year: 2026, Month: time.February}
	result, err := engine.GenerateMonthlyInvoices(ctx, billing.GenerateInput{Period: feb})
	require.NoError(t, err)

	assert.Equal(t, 0, result.Generated)
	assert.Equal(t, 2, result.Skipped)
	for _, skip := range result.Skips {
		assert.Equal(t, "enrollment advance covers this period", skip.Reason)
	}

	// The following month bills normally.
	mar := ledger.Period{Year: 2026, Month: time.March}
	result, err = engine.GenerateMonthlyInvoices(ctx, billing.GenerateInput{Period: mar})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Generated)
}

func TestGenerateMonthlyInvoices_Rerun_Idempotent(t *testing.T) {
	// GIVEN: A completed February batch
	// WHEN: The same batch runs again
	// THEN: Every student is skipped and the ledger gains nothing

	engine, store := newTestEngine(t)
	ctx := context.Background()
	jan := time.Date(2026, time.January, 10, 0, 0, 0, 0, time.UTC)

	_, _, err := engine.Enroll(ctx, enrollInput("std-1", "15000", jan))
	require.NoError(t, err)

	feb := ledger.Period{Year: 2026, Month: time.February}
	first, err := engine.GenerateMonthlyInvoices(ctx, billing.GenerateInput{Period: feb})
	require.NoError(t, err)
	require.Equal(t, 1, first.Generated)

	second, err := engine.GenerateMonthlyInvoices(ctx, billing.GenerateInput{Period: feb})
	require.NoError(t, err)
	assert.Equal(t, 0, second.Generated)
	assert.Equal(t, 1, second.Skipped)
	assert.Equal(t, "already billed for this period", second.Skips[0].Reason)

	entries, err := store.LoadByStudent(ctx, "std-1")
	require.NoError(t, err)
	assert.Len(t, entries, 2) // enrollment + one February invoice
}

func TestGenerateMonthlyInvoices_MissingFee_FailsOnlyThatStudent(t *testing.T) {
	// GIVEN: One healthy profile and one saved without any fee
	// WHEN: The batch runs
	// THEN: The healthy student is billed and the broken one is reported,
	//       without aborting the run

	engine, store := newTestEngine(t)
	ctx := context.Background()
	jan := time.Date(2026, time.January, 10, 0, 0, 0, 0, time.UTC)

	_, _, err := engine.Enroll(ctx, enrollInput("std-ok", "15000", jan))
	require.NoError(t, err)

	// Bypass Enroll validation to simulate a legacy profile with no fee.
	require.NoError(t, store.SaveProfile(ctx, billing.Profile{
		StudentID:         "std-broken",
		Name:              "No Fee",
		BaseMonthlyFee:    decimal.Zero,
		ConfigurationDate: jan,
		Status:            billing.StatusActive,
	}))

	feb := ledger.Period{Year: 2026, Month: time.February}
	result, err := engine.GenerateMonthlyInvoices(ctx, billing.GenerateInput{Period: feb})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Generated)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, ledger.StudentID("std-broken"), result.Failures[0].StudentID)
	assert.Contains(t, result.Failures[0].Err, "fee configuration")
}

func TestGenerateMonthlyInvoices_CheckedOutStudent_Excluded(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()
	jan := time.Date(2026, time.January, 10, 0, 0, 0, 0, time.UTC)

	_, _, err := engine.Enroll(ctx, enrollInput("std-1", "15000", jan))
	require.NoError(t, err)
	_, err = engine.ProcessCheckout(ctx, "std-1", time.Date(2026, time.January, 20, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	feb := ledger.Period{Year: 2026, Month: time.February}
	result, err := engine.GenerateMonthlyInvoices(ctx, billing.GenerateInput{Period: feb})
	require.NoError(t, err)

	assert.Equal(t, 0, result.Generated)
	assert.Equal(t, 0, result.Skipped)
}

func TestGenerateMonthlyInvoices_InvalidPeriod_Rejected(t *testing.T) {
	engine, _ := newTestEngine(t)

	_, err := engine.GenerateMonthlyInvoices(context.Background(), billing.GenerateInput{
		Period: ledger.Period{Year: 2026, Month: 13},
	})
	assert.ErrorIs(t, err, ledger.ErrInvalidPeriod)
}

func TestGenerateMonthlyInvoices_CustomDueDate(t *testing.T) {
	engine, store := newTestEngine(t)
	ctx := context.Background()
	jan := time.Date(2026, time.January, 10, 0, 0, 0, 0, time.UTC)

	_, _, err := engine.Enroll(ctx, enrollInput("std-1", "15000", jan))
	require.NoError(t, err)

	due := time.Date(2026, time.February, 5, 0, 0, 0, 0, time.UTC)
	feb := ledger.Period{Year: 2026, Month: time.February}
	result, err := engine.GenerateMonthlyInvoices(ctx, billing.GenerateInput{Period: feb, DueDate: due})
	require.NoError(t, err)
	assert.Equal(t, due, result.DueDate)

	inv, err := store.GetInvoice(ctx, "std-1", feb)
	require.NoError(t, err)
	require.NotNil(t, inv)
	assert.Equal(t, due, inv.DueDate)
}

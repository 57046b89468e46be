/*
generator.go - Monthly invoice batch

PURPOSE:
  Generates the month's invoices for every active, billing-configured
  student. The batch mutates shared financial state, so its primary
  observable contract is the run manifest: generated/skipped/failed counts,
  the total amount, and per-student failure records.

SKIP RULES (advance-payment model):
  1. The student's configuration date falls inside the target month: the
     enrollment advance already covered this exact month. Skipped.
  2. An invoice already exists for (student, period): the unique index fires
     and the student is counted as already billed, never double-invoiced.
     This makes interrupted batches safely resumable.

FAILURE ISOLATION:
  One student's failure (e.g. missing fee configuration) is recorded in the
  manifest and processing continues. The batch never aborts.

CONCURRENCY:
  Students are processed by a bounded worker pool. Each student's work runs
  under that student's lock and inside its own store transaction.
*/
package billing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/hostelhq/ledger-engine/ledger"
)

// =============================================================================
// RUN MANIFEST
// =============================================================================

// GenerateInput selects the billing period for a batch run.
type GenerateInput struct {
	Period ledger.Period

	// DueDate defaults to the 10th of the target month.
	DueDate time.Time
}

// SkipRecord explains why one student was not invoiced.
type SkipRecord struct {
	StudentID ledger.StudentID
	Name      string
	Reason    string
}

// FailureRecord reports one student whose invoice could not be created.
type FailureRecord struct {
	StudentID ledger.StudentID
	Name      string
	Err       string
}

// GenerateResult is the batch run manifest.
type GenerateResult struct {
	Period      ledger.Period
	DueDate     time.Time
	Generated   int
	Skipped     int
	Failed      int
	TotalAmount decimal.Decimal
	Invoices    []Invoice
	Skips       []SkipRecord
	Failures    []FailureRecord
}

// =============================================================================
// GENERATOR
// =============================================================================

// GenerateMonthlyInvoices runs the batch for the target period. Regular
// monthly cycles charge the full monthly fee; proration only applies at the
// enrollment and checkout boundaries.
func (e *Engine) GenerateMonthlyInvoices(ctx context.Context, in GenerateInput) (*GenerateResult, error) {
	if !in.Period.Valid() {
		return nil, fmt.Errorf("period %s: %w", in.Period, ledger.ErrInvalidPeriod)
	}

	dueDate := in.DueDate
	if dueDate.IsZero() {
		dueDate = time.Date(in.Period.Year, in.Period.Month, 10, 0, 0, 0, 0, time.UTC)
	}

	students, err := e.store.ListActiveProfiles(ctx)
	if err != nil {
		return nil, err
	}

	result := &GenerateResult{
		Period:      in.Period,
		DueDate:     dueDate,
		TotalAmount: decimal.Zero,
	}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	for _, student := range students {
		student := student
		g.Go(func() error {
			invoice, skip, err := e.generateFor(gctx, student, in.Period, dueDate)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				result.Failed++
				result.Failures = append(result.Failures, FailureRecord{
					StudentID: student.StudentID,
					Name:      student.Name,
					Err:       err.Error(),
				})
			case skip != "":
				result.Skipped++
				result.Skips = append(result.Skips, SkipRecord{
					StudentID: student.StudentID,
					Name:      student.Name,
					Reason:    skip,
				})
			default:
				result.Generated++
				result.TotalAmount = result.TotalAmount.Add(invoice.Amount)
				result.Invoices = append(result.Invoices, *invoice)
			}
			// Per-student failures never abort the batch.
			return nil
		})
	}
	g.Wait()

	return result, nil
}

// generateFor invoices one student. A non-empty skip reason means the
// student was intentionally not billed.
func (e *Engine) generateFor(ctx context.Context, student Profile, period ledger.Period, dueDate time.Time) (*Invoice, string, error) {
	unlock := e.lockStudent(student.StudentID)
	defer unlock()

	// Advance-payment rule: the enrollment advance covers the configuration
	// month in full, including a configuration date on its last day.
	if period.Contains(student.ConfigurationDate) {
		return nil, "enrollment advance covers this period", nil
	}

	fee := student.MonthlyFee()
	if !fee.IsPositive() {
		return nil, "", fmt.Errorf("student %s: %w", student.StudentID, ledger.ErrMissingFeeConfiguration)
	}

	existing, err := e.store.GetInvoice(ctx, student.StudentID, period)
	if err != nil {
		return nil, "", err
	}
	if existing != nil {
		return nil, "already billed for this period", nil
	}

	invoice := Invoice{
		ID:          uuid.NewString(),
		StudentID:   student.StudentID,
		Period:      period,
		Amount:      fee,
		DueDate:     dueDate,
		GeneratedAt: time.Now().UTC(),
	}
	entry := ledger.Entry{
		ID:             ledger.EntryID(uuid.NewString()),
		StudentID:      student.StudentID,
		Date:           period.Start(),
		Type:           ledger.EntryInvoice,
		Description:    fmt.Sprintf("Monthly invoice %s", period),
		ReferenceID:    invoice.ID,
		Debit:          fee,
		IdempotencyKey: fmt.Sprintf("invoice-%s-%s", student.StudentID, period),
	}

	err = e.store.WithTx(ctx, func(tx Store) error {
		if err := tx.SaveInvoice(ctx, invoice); err != nil {
			return err
		}
		return ledger.New(tx).Append(ctx, entry)
	})
	if err != nil {
		// The unique index and the idempotency key both guard re-runs;
		// either firing means the period is already billed.
		if errors.Is(err, ledger.ErrAlreadyBilled) || errors.Is(err, ledger.ErrDuplicateIdempotencyKey) {
			return nil, "already billed for this period", nil
		}
		return nil, "", err
	}

	return &invoice, "", nil
}

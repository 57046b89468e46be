/*
engine.go - Billing engine wiring and student enrollment

PURPOSE:
  The Engine owns the store, the per-student locks, and the collaborator
  hooks (bed release). All ledger-mutating operations go through it so the
  read-compute-append sequence for one student never interleaves.

CONCURRENCY DISCIPLINE:
  Mutations are serialized per student: two payments, or a payment racing a
  checkout, for the same student take the same lock. Different students are
  independent and run in parallel.

SEE ALSO:
  - payments.go: Payment recording
  - generator.go: Monthly invoice batch
  - checkout.go: Settlement preview and atomic checkout
*/
package billing

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hostelhq/ledger-engine/ledger"
)

// =============================================================================
// COLLABORATORS
// =============================================================================

// BedReleaser is notified when a checkout completes so room/bed management
// (not owned by this engine) can free the bed. It runs inside the checkout
// transaction: an error here rolls the whole checkout back.
type BedReleaser interface {
	ReleaseBed(ctx context.Context, id ledger.StudentID) error
}

// NopBedReleaser is used when no room management integration is configured.
type NopBedReleaser struct{}

func (NopBedReleaser) ReleaseBed(ctx context.Context, id ledger.StudentID) error { return nil }

// =============================================================================
// ENGINE
// =============================================================================

type Engine struct {
	store    Store
	releaser BedReleaser

	// workers bounds the monthly generator's concurrency.
	workers int

	locks sync.Map // ledger.StudentID -> *sync.Mutex
}

// NewEngine creates a billing engine over the given store. A nil releaser
// defaults to NopBedReleaser.
func NewEngine(store Store, releaser BedReleaser) *Engine {
	if releaser == nil {
		releaser = NopBedReleaser{}
	}
	return &Engine{
		store:    store,
		releaser: releaser,
		workers:  4,
	}
}

// Store exposes the underlying store for read-only callers (API listings).
func (e *Engine) Store() Store { return e.store }

// lockStudent serializes ledger mutations for one student.
// Returns the unlock function.
func (e *Engine) lockStudent(id ledger.StudentID) func() {
	v, _ := e.locks.LoadOrStore(id, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// Balance derives a student's current balance from the full entry history.
func (e *Engine) Balance(ctx context.Context, id ledger.StudentID) (ledger.Balance, error) {
	if _, err := e.requireProfile(ctx, id); err != nil {
		return ledger.Balance{}, err
	}
	calc := ledger.BalanceCalculator{Store: e.store}
	return calc.Balance(ctx, id)
}

// Statement returns a student's entries together with the FIFO allocation
// of payments against invoices.
func (e *Engine) Statement(ctx context.Context, id ledger.StudentID) ([]ledger.Entry, ledger.Allocation, error) {
	if _, err := e.requireProfile(ctx, id); err != nil {
		return nil, ledger.Allocation{}, err
	}
	entries, err := e.store.LoadByStudent(ctx, id)
	if err != nil {
		return nil, ledger.Allocation{}, err
	}
	return entries, ledger.Allocate(entries), nil
}

// StatementRange is Statement scoped to entries dated within [from, to]
// inclusive. The allocation still replays the full history, so standings and
// totals match Statement regardless of the window.
func (e *Engine) StatementRange(ctx context.Context, id ledger.StudentID, from, to time.Time) ([]ledger.Entry, ledger.Allocation, error) {
	if _, err := e.requireProfile(ctx, id); err != nil {
		return nil, ledger.Allocation{}, err
	}
	full, err := e.store.LoadByStudent(ctx, id)
	if err != nil {
		return nil, ledger.Allocation{}, err
	}
	ranged, err := e.store.LoadRange(ctx, id, from, to)
	if err != nil {
		return nil, ledger.Allocation{}, err
	}
	return ranged, ledger.Allocate(full), nil
}

func (e *Engine) requireProfile(ctx context.Context, id ledger.StudentID) (*Profile, error) {
	p, err := e.store.GetProfile(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("student %s: %w", id, ledger.ErrStudentNotFound)
	}
	return p, nil
}

// =============================================================================
// ENROLLMENT
// =============================================================================

// EnrollmentInput configures billing for a student joining the hostel.
type EnrollmentInput struct {
	StudentID ledger.StudentID
	Name      string

	BaseMonthlyFee decimal.Decimal
	LaundryFee     decimal.Decimal
	FoodFee        decimal.Decimal

	// ConfigurationDate is the join date billing starts from.
	// Zero means today.
	ConfigurationDate time.Time

	// AdvancePayment, when positive, is recorded as the enrollment payment
	// against the prorated first charge.
	AdvancePayment decimal.Decimal
}

// Enroll creates a billing profile and charges the prorated remainder of the
// join month. The charge, the optional advance payment, and the profile are
// written in one transaction.
//
// EDGE CASE: joining on day 1 charges the full monthly fee.
func (e *Engine) Enroll(ctx context.Context, in EnrollmentInput) (*Profile, Proration, error) {
	if in.StudentID == "" {
		return nil, Proration{}, &ledger.ValidationError{Field: "student_id", Reason: "required"}
	}
	if in.Name == "" {
		return nil, Proration{}, &ledger.ValidationError{Field: "name", Reason: "required"}
	}
	if in.BaseMonthlyFee.IsNegative() || in.LaundryFee.IsNegative() || in.FoodFee.IsNegative() {
		return nil, Proration{}, &ledger.ValidationError{Field: "fees", Reason: "must not be negative"}
	}
	if in.AdvancePayment.IsNegative() {
		return nil, Proration{}, &ledger.NonPositiveAmountError{Field: "advance_payment", Amount: in.AdvancePayment}
	}

	when := in.ConfigurationDate
	if when.IsZero() {
		when = time.Now().UTC().Truncate(24 * time.Hour)
	}

	profile := Profile{
		StudentID:         in.StudentID,
		Name:              in.Name,
		BaseMonthlyFee:    in.BaseMonthlyFee,
		LaundryFee:        in.LaundryFee,
		FoodFee:           in.FoodFee,
		ConfigurationDate: when,
		Status:            StatusActive,
		CreatedAt:         time.Now().UTC(),
	}
	if !profile.MonthlyFee().IsPositive() {
		return nil, Proration{}, fmt.Errorf("student %s: %w", in.StudentID, ledger.ErrMissingFeeConfiguration)
	}

	unlock := e.lockStudent(in.StudentID)
	defer unlock()

	existing, err := e.store.GetProfile(ctx, in.StudentID)
	if err != nil {
		return nil, Proration{}, err
	}
	if existing != nil {
		return nil, Proration{}, fmt.Errorf("student %s: %w", in.StudentID, ledger.ErrStudentExists)
	}

	proration := Prorate(profile.MonthlyFee(), when, ProrateEnrollment)

	entries := []ledger.Entry{{
		ID:             ledger.EntryID(uuid.NewString()),
		StudentID:      in.StudentID,
		Date:           when,
		Type:           ledger.EntryInvoice,
		Description:    fmt.Sprintf("Enrollment charge %s (%d of %d days)", ledger.PeriodOf(when), proration.Days, proration.DaysInMonth),
		Debit:          proration.Amount,
		Credit:         decimal.Zero,
		IdempotencyKey: fmt.Sprintf("enroll-%s", in.StudentID),
	}}
	if in.AdvancePayment.IsPositive() {
		entries = append(entries, ledger.Entry{
			ID:             ledger.EntryID(uuid.NewString()),
			StudentID:      in.StudentID,
			Date:           when,
			Type:           ledger.EntryPayment,
			Description:    "Enrollment advance payment",
			Debit:          decimal.Zero,
			Credit:         in.AdvancePayment,
			IdempotencyKey: fmt.Sprintf("enroll-advance-%s", in.StudentID),
		})
	}

	err = e.store.WithTx(ctx, func(tx Store) error {
		if err := tx.SaveProfile(ctx, profile); err != nil {
			return err
		}
		return ledger.New(tx).AppendAll(ctx, entries)
	})
	if err != nil {
		return nil, Proration{}, err
	}

	return &profile, proration, nil
}

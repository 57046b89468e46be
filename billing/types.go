/*
Package billing implements hostel billing policy on top of the ledger:
student billing profiles, partial-month proration, the monthly invoice
batch, payment recording, and checkout settlement.

KEY CONCEPTS IN THIS FILE (types.go):
  - Profile: A student's fee configuration and billing lifecycle state
  - Invoice: One generated monthly charge, unique per (student, period)
  - Settlement: The derived net reconciliation computed at checkout

LIFECYCLE:
  A Profile is created at enrollment with Status Active. It transitions to
  Inactive exactly once, at checkout. Invoices are created by the monthly
  generator and never duplicated for the same period.

SEE ALSO:
  - proration.go: Partial-month math
  - generator.go: Monthly invoice batch
  - checkout.go: Settlement computation
*/
package billing

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hostelhq/ledger-engine/ledger"
)

// =============================================================================
// STUDENT BILLING PROFILE
// =============================================================================

type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// Profile is a student's billing configuration.
//
// INVARIANT: MonthlyFee() = BaseMonthlyFee + LaundryFee + FoodFee. Proration
// and invoice generation must always charge this composite, never a component.
type Profile struct {
	StudentID ledger.StudentID
	Name      string

	BaseMonthlyFee decimal.Decimal
	LaundryFee     decimal.Decimal
	FoodFee        decimal.Decimal

	// ConfigurationDate is when billing was activated - the date the
	// enrollment advance payment is recorded against. The monthly generator
	// skips the month this date falls in.
	ConfigurationDate time.Time

	Status       Status
	IsCheckedOut bool
	CheckoutDate *time.Time

	CreatedAt time.Time
}

// MonthlyFee returns the composite monthly charge.
func (p Profile) MonthlyFee() decimal.Decimal {
	return p.BaseMonthlyFee.Add(p.LaundryFee).Add(p.FoodFee)
}

// Billable reports whether the student can receive new charges or payments.
func (p Profile) Billable() bool {
	return p.Status == StatusActive && !p.IsCheckedOut
}

// =============================================================================
// MONTHLY INVOICE
// =============================================================================

// Invoice is one generated monthly charge. At most one exists per
// (StudentID, Period); the store enforces this with a unique index.
type Invoice struct {
	ID          string
	StudentID   ledger.StudentID
	Period      ledger.Period
	Amount      decimal.Decimal
	DueDate     time.Time
	GeneratedAt time.Time
}

// =============================================================================
// CHECKOUT SETTLEMENT - Derived, never persisted as its own entity
// =============================================================================

type SettlementStatus string

const (
	SettlementAmountDue SettlementStatus = "AMOUNT_DUE"
	SettlementRefundDue SettlementStatus = "REFUND_DUE"
	SettlementSettled   SettlementStatus = "SETTLED"
)

// Settlement is the net financial reconciliation computed at checkout.
//
//	NetAmount = TotalDues - AdvanceBalance + ProratedCharge - ProratedRefund
//
// Status is SETTLED iff NetAmount is exactly zero; AMOUNT_DUE and REFUND_DUE
// follow the sign.
type Settlement struct {
	StudentID ledger.StudentID
	AsOf      time.Time

	OutstandingInvoices []ledger.InvoiceStanding
	TotalDues           decimal.Decimal
	AdvanceBalance      decimal.Decimal

	ProratedRefund decimal.Decimal
	ProratedCharge decimal.Decimal
	ProrationNote  string

	NetAmount decimal.Decimal // signed: > 0 student pays, < 0 hostel refunds
	Status    SettlementStatus
}

func settlementStatus(net decimal.Decimal) SettlementStatus {
	switch net.Sign() {
	case 1:
		return SettlementAmountDue
	case -1:
		return SettlementRefundDue
	default:
		return SettlementSettled
	}
}

// =============================================================================
// STORE - Full persistence surface for the billing services
// =============================================================================

// ProfileStore persists billing profiles.
type ProfileStore interface {
	SaveProfile(ctx context.Context, p Profile) error
	GetProfile(ctx context.Context, id ledger.StudentID) (*Profile, error)
	ListProfiles(ctx context.Context) ([]Profile, error)
	ListActiveProfiles(ctx context.Context) ([]Profile, error)

	// MarkCheckedOut flips an active profile to Inactive/checked-out.
	// Returns ErrAlreadyCheckedOut if the flip already happened and
	// ErrStudentNotFound if the profile does not exist.
	MarkCheckedOut(ctx context.Context, id ledger.StudentID, at time.Time) error
}

// InvoiceStore persists monthly invoices with the (student, period)
// uniqueness guard.
type InvoiceStore interface {
	// SaveInvoice returns ErrAlreadyBilled when an invoice already exists
	// for the student and period.
	SaveInvoice(ctx context.Context, inv Invoice) error
	GetInvoice(ctx context.Context, id ledger.StudentID, p ledger.Period) (*Invoice, error)
	ListInvoices(ctx context.Context, p ledger.Period) ([]Invoice, error)
	ListInvoicesByStudent(ctx context.Context, id ledger.StudentID) ([]Invoice, error)
}

// Store is everything the billing engine needs from persistence. WithTx runs
// fn against a transactional view of the same surface: all writes inside fn
// commit together or not at all.
type Store interface {
	ledger.Store
	ProfileStore
	InvoiceStore

	WithTx(ctx context.Context, fn func(Store) error) error
}

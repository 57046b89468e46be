/*
proration.go - Partial-month charge and refund math

PURPOSE:
  Computes the prorated amounts for the two billing boundaries:
  - Enrollment mid-month: charge for the join day through month end
  - Checkout mid-month: charge for days used, refund for the remainder

ROUNDING:
  The daily rate stays unrounded; rounding to 2 decimal places happens once,
  on the final amount. Rounding per day would accumulate drift.

EDGE CASES:
  - Enrollment on day 1: full month charged (exactly the monthly fee)
  - Checkout on the last day: full month used, zero refund
  - Refund <= 0: reported as zero with an explanatory note
*/
package billing

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hostelhq/ledger-engine/ledger"
)

// =============================================================================
// PRORATION
// =============================================================================

type ProrationMode string

const (
	// ProrateEnrollment charges the join day through the end of the month.
	ProrateEnrollment ProrationMode = "enrollment"

	// ProrateCheckout charges the days used and refunds the remainder when
	// the month was already paid in full.
	ProrateCheckout ProrationMode = "checkout"
)

// Proration is the result of a partial-month calculation.
type Proration struct {
	Mode        ProrationMode
	Date        time.Time
	DaysInMonth int

	// Days covered by Amount: days remaining (enrollment) or days used
	// (checkout), inclusive of the reference day.
	Days int

	// DailyRate is monthlyFee / DaysInMonth, unrounded.
	DailyRate decimal.Decimal

	// Amount is the prorated charge, rounded to 2 decimal places.
	Amount decimal.Decimal

	// Refund is monthlyFee - Amount for checkout mode, floored at zero.
	// Zero for enrollment mode.
	Refund decimal.Decimal

	Note string
}

// Prorate computes the partial-month amount for the given fee and date.
// The month length comes from the reference date's actual calendar month,
// including leap-year February.
func Prorate(monthlyFee decimal.Decimal, date time.Time, mode ProrationMode) Proration {
	daysInMonth := ledger.DaysInMonth(date)
	day := date.Day()
	dailyRate := monthlyFee.Div(decimal.NewFromInt(int64(daysInMonth)))

	p := Proration{
		Mode:        mode,
		Date:        date,
		DaysInMonth: daysInMonth,
		DailyRate:   dailyRate,
	}

	switch mode {
	case ProrateCheckout:
		p.Days = day
		if day == daysInMonth {
			// Full month used; avoid a rounded rate re-sum drifting off the fee.
			p.Amount = monthlyFee
			p.Refund = decimal.Zero
			p.Note = "checkout on the last day of the month: no refund"
			return p
		}
		p.Amount = dailyRate.Mul(decimal.NewFromInt(int64(day))).Round(2)
		p.Refund = monthlyFee.Sub(p.Amount)
		if p.Refund.Sign() <= 0 {
			p.Refund = decimal.Zero
			p.Note = "days used cover the full monthly fee: no refund"
		}
		return p

	default: // ProrateEnrollment
		p.Days = daysInMonth - day + 1
		if day == 1 {
			p.Amount = monthlyFee
			p.Note = "enrollment on day 1: full month charged"
			return p
		}
		p.Amount = dailyRate.Mul(decimal.NewFromInt(int64(p.Days))).Round(2)
		p.Note = fmt.Sprintf("prorated for %d of %d days", p.Days, daysInMonth)
		return p
	}
}

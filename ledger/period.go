package ledger

import (
	"fmt"
	"time"
)

// =============================================================================
// PERIOD - A billing month
// =============================================================================

// Period identifies one billing month. Invoices are unique per
// (StudentID, Period) and the advance-payment skip rule operates on it.
type Period struct {
	Month time.Month
	Year  int
}

// PeriodOf returns the period containing the given date.
func PeriodOf(t time.Time) Period {
	return Period{Month: t.Month(), Year: t.Year()}
}

// Valid reports whether the period is a real calendar month.
func (p Period) Valid() bool {
	return p.Month >= time.January && p.Month <= time.December && p.Year > 0
}

// Start returns the first instant of the period (UTC midnight, day 1).
func (p Period) Start() time.Time {
	return time.Date(p.Year, p.Month, 1, 0, 0, 0, 0, time.UTC)
}

// End returns the last day of the period at UTC midnight.
func (p Period) End() time.Time {
	return p.Start().AddDate(0, 1, -1)
}

// Days returns the number of calendar days in the period's month,
// respecting month length and leap years.
func (p Period) Days() int {
	return p.End().Day()
}

// Contains reports whether the date falls inside the period.
func (p Period) Contains(t time.Time) bool {
	return t.Year() == p.Year && t.Month() == p.Month
}

// Next returns the following billing month.
func (p Period) Next() Period {
	return PeriodOf(p.Start().AddDate(0, 1, 0))
}

// Previous returns the preceding billing month.
func (p Period) Previous() Period {
	return PeriodOf(p.Start().AddDate(0, -1, 0))
}

func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}

// DaysInMonth returns the calendar day count of the month containing t.
func DaysInMonth(t time.Time) int {
	return PeriodOf(t).Days()
}

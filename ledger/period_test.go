package ledger_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/hostelhq/ledger-engine/ledger"
)

func TestPeriod_Days(t *testing.T) {
	assert.Equal(t, 31, ledger.Period{Year: 2026, Month: time.January}.Days())
	assert.Equal(t, 28, ledger.Period{Year: 2026, Month: time.February}.Days())
	assert.Equal(t, 29, ledger.Period{Year: 2028, Month: time.February}.Days())
	assert.Equal(t, 30, ledger.Period{Year: 2026, Month: time.April}.Days())
}

func TestPeriod_Contains(t *testing.T) {
	p := ledger.Period{Year: 2026, Month: time.March}

	assert.True(t, p.Contains(time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)))
	assert.True(t, p.Contains(time.Date(2026, time.March, 31, 23, 59, 0, 0, time.UTC)))
	assert.False(t, p.Contains(time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC)))
	assert.False(t, p.Contains(time.Date(2025, time.March, 15, 0, 0, 0, 0, time.UTC)))
}

func TestPeriod_NextPrevious_YearBoundary(t *testing.T) {
	dec := ledger.Period{Year: 2026, Month: time.December}
	jan := ledger.Period{Year: 2027, Month: time.January}

	assert.Equal(t, jan, dec.Next())
	assert.Equal(t, dec, jan.Previous())
}

func TestPeriod_String(t *testing.T) {
	assert.Equal(t, "2026-03", ledger.Period{Year: 2026, Month: time.March}.String())
}

func TestPeriod_Valid(t *testing.T) {
	assert.True(t, ledger.Period{Year: 2026, Month: time.June}.Valid())
	assert.False(t, ledger.Period{Year: 0, Month: time.June}.Valid())
	assert.False(t, ledger.Period{Year: 2026, Month: 13}.Valid())
}

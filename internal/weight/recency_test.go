package weight

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecencyAtZeroAge(t *testing.T) {
	now := 1700000000.0
	assert.Equal(t, 1.0, Recency(now, now, 180))
}

func TestRecencyZeroHalfLifeIsNoDecay(t *testing.T) {
	now := 1700000000.0
	when := now - 10*secondsPerDay
	assert.Equal(t, 1.0, Recency(now, when, 0))
	assert.Equal(t, 1.0, Recency(now, when, -5))
}

func TestRecencyHalfLifeHalvesAtHalfLife(t *testing.T) {
	now := 1700000000.0
	when := now - 365*secondsPerDay
	got := Recency(now, when, 365)
	assert.InDelta(t, 0.5, got, 1e-9)
}

func TestRecencyMonotoneNonIncreasing(t *testing.T) {
	now := 1700000000.0
	earlier := Recency(now, now-30*secondsPerDay, 180)
	later := Recency(now, now-10*secondsPerDay, 180)
	assert.LessOrEqual(t, earlier, later)
}

func TestRecencyFutureClampsToZeroAge(t *testing.T) {
	now := 1700000000.0
	future := now + 100*secondsPerDay
	assert.Equal(t, 1.0, Recency(now, future, 180))
}

func TestMoneyAndPreciseFormatting(t *testing.T) {
	assert.Equal(t, "1.00", Money(1.0))
	assert.Equal(t, "0.50", Money(0.5))
	assert.Equal(t, "0.333333", Precise(1.0/3.0))
}

package economy

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestLimiterSwingClamp(t *testing.T) {
	l := NewLimiter(nil)

	// Candidate 125 against current 100 stops at +10%.
	got := l.Apply("iron", d("125"), d("100"), d("100"))
	assert.True(t, got.Equal(d("110")), "got %s", got)

	// Symmetric on the way down.
	got = l.Apply("iron", d("70"), d("100"), d("100"))
	assert.True(t, got.Equal(d("90")), "got %s", got)

	// Within the swing the candidate passes through.
	got = l.Apply("iron", d("105"), d("100"), d("100"))
	assert.True(t, got.Equal(d("105")), "got %s", got)
}

func TestLimiterAbsoluteBand(t *testing.T) {
	l := NewLimiter(nil)

	// Current sits near the widened ceiling; the band wins over the swing.
	got := l.Apply("iron", d("400"), d("355"), d("100"))
	assert.True(t, got.Equal(d("360")), "got %s", got)

	// And near the widened floor.
	got = l.Apply("iron", d("30"), d("42"), d("100"))
	assert.True(t, got.Equal(d("40")), "got %s", got)
}

func TestLimiterUnitFloor(t *testing.T) {
	l := NewLimiter(nil)

	// A dirt-cheap item can never price below one currency unit.
	got := l.Apply("dirt", d("0.20"), d("1.00"), d("2.00"))
	assert.True(t, got.Equal(d("1.00")), "got %s", got)
}

func TestLimiterRounding(t *testing.T) {
	l := NewLimiter(nil)

	got := l.Apply("iron", d("104.567"), d("100"), d("100"))
	assert.True(t, got.Equal(d("104.57")), "got %s", got)
}

func TestLimiterFirstPriceSkipsSwing(t *testing.T) {
	l := NewLimiter(nil)

	// Zero current price means no previous cycle to clamp against.
	got := l.Apply("iron", d("250"), decimal.Zero, d("100"))
	assert.True(t, got.Equal(d("250")), "got %s", got)
}

func TestLimiterRoundTripStability(t *testing.T) {
	l := NewLimiter(nil)

	// An in-band, within-swing price passes through unchanged, so repeated
	// limiting cannot drift.
	price := d("104.25")
	for i := 0; i < 5; i++ {
		price = l.Apply("iron", price, price, d("100"))
	}
	assert.True(t, price.Equal(d("104.25")), "got %s", price)
}

func TestLimiterFallback(t *testing.T) {
	l := NewLimiter(nil)

	// Broken base price keeps the last known good price.
	got := l.Apply("broken", d("125"), d("104.567"), decimal.Zero)
	assert.True(t, got.Equal(d("104.57")), "got %s", got)

	got = l.Fallback(d("0.50"))
	assert.True(t, got.Equal(d("1")), "floor at one unit, got %s", got)
}

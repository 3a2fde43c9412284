package economy

import (
	"context"
	"math"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Bo-sung/mineconomy/internal/presence"
)

// Pressure values are clamped to this range. Zero means "no signal".
const (
	PressureFloor = -1.0
	PressureCeil  = 2.0
)

// Quote-side adjustments: NPCs sell to players at a markup and buy back at
// a markdown. Quotes stay inside the same widened band the limiter enforces.
var (
	buyMarkup    = decimal.RequireFromString("1.05")
	sellMarkdown = decimal.RequireFromString("0.95")
)

// Engine turns windowed trade volume into market pressure and candidate
// prices.
type Engine struct {
	window   *VolumeWindow
	presence presence.Provider
	now      func() time.Time
	logger   *zap.Logger
}

func NewEngine(window *VolumeWindow, p presence.Provider, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{window: window, presence: p, now: time.Now, logger: logger}
}

// SetClock replaces the engine's clock. Test hook.
func (e *Engine) SetClock(now func() time.Time) { e.now = now }

// pressureOf projects the current 10-minute slice to an hourly-equivalent
// rate and compares it against the trailing hour. Positive means the last
// slice traded faster than the hourly average. Zero trailing volume is no
// signal, not infinite demand.
func pressureOf(currentBucket, trailingHour float64) float64 {
	if trailingHour <= 0 {
		return 0
	}
	p := currentBucket*trailingBuckets/trailingHour - 1
	return clamp(p, PressureFloor, PressureCeil)
}

// DemandPressure measures how hot recent weighted buy volume runs relative
// to its trailing-hour baseline.
func (e *Engine) DemandPressure(ctx context.Context, itemID string) (float64, error) {
	cur, trail, err := e.readVolumes(ctx, itemID)
	if err != nil {
		return 0, err
	}
	return pressureOf(cur.Buy, trail.Buy), nil
}

// SupplyPressure is the sell-side mirror of DemandPressure.
func (e *Engine) SupplyPressure(ctx context.Context, itemID string) (float64, error) {
	cur, trail, err := e.readVolumes(ctx, itemID)
	if err != nil {
		return 0, err
	}
	return pressureOf(cur.Sell, trail.Sell), nil
}

// MarketPressure computes the full pressure record for an item. The online
// count is annotation only; a failed read leaves it zero.
func (e *Engine) MarketPressure(ctx context.Context, itemID string) (PressureRecord, error) {
	cur, trail, err := e.readVolumes(ctx, itemID)
	if err != nil {
		return PressureRecord{}, err
	}

	rec := PressureRecord{
		ItemID:     itemID,
		Demand:     pressureOf(cur.Buy, trail.Buy),
		Supply:     pressureOf(cur.Sell, trail.Sell),
		ComputedAt: e.now(),
	}
	rec.Net = rec.Demand - rec.Supply

	online, err := e.presence.OnlineCount(ctx)
	if err != nil {
		e.logger.Warn("online count unavailable for pressure record",
			zap.String("item", itemID), zap.Error(err))
	} else {
		rec.OnlineCount = online
	}
	return rec, nil
}

// CandidatePrice applies net pressure, scaled by the cycle's correction
// factors, to the base price. Quote-side adjustment and limiting happen
// afterwards.
func (e *Engine) CandidatePrice(basePrice decimal.Decimal, netPressure, populationFactor, timeFactor float64) (decimal.Decimal, error) {
	multiplier := 1 + netPressure*populationFactor*timeFactor
	if math.IsNaN(multiplier) || math.IsInf(multiplier, 0) {
		return decimal.Decimal{}, ErrInvalidCandidate
	}
	return basePrice.Mul(decimal.NewFromFloat(multiplier)), nil
}

// QuotePrice applies the per-side spread to the published price: +5% when
// the NPC sells to the player (the player's buy side), -5% when it buys
// back. The spread could otherwise push a price sitting at a band edge out
// of bounds, so the quote is re-clamped to the widened band, floored at one
// unit, and rounded like any published price.
func QuotePrice(price, basePrice decimal.Decimal, side Side) decimal.Decimal {
	q := price.Mul(buyMarkup)
	if side == Sell {
		q = price.Mul(sellMarkdown)
	}
	if basePrice.Sign() > 0 {
		q = clampDecimal(q, basePrice.Mul(bandFloorRatio), basePrice.Mul(bandCeilRatio))
	}
	return decimal.Max(q, unitPrice).Round(priceScale)
}

func (e *Engine) readVolumes(ctx context.Context, itemID string) (cur, trail Volumes, err error) {
	cur, err = e.window.CurrentBucket(ctx, itemID)
	if err != nil {
		return Volumes{}, Volumes{}, err
	}
	trail, err = e.window.TrailingHour(ctx, itemID)
	if err != nil {
		return Volumes{}, Volumes{}, err
	}
	return cur, trail, nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

package economy

import (
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// priceScale is the currency's minor-unit precision.
const priceScale = 2

var (
	swingFloorRatio = decimal.RequireFromString("0.90")
	swingCeilRatio  = decimal.RequireFromString("1.10")

	// The absolute band is the nominal 50%-300% band widened by 20% on
	// each edge. The swing clamp is the primary limiter; the wide band is
	// a backstop that avoids abrupt clipping at the nominal edges.
	bandFloorRatio = decimal.RequireFromString("0.40")
	bandCeilRatio  = decimal.RequireFromString("3.60")

	// No price ever drops below one currency unit.
	unitPrice = decimal.NewFromInt(1)
)

// Limiter clamps candidate prices so that no single cycle moves a price by
// more than 10% and nothing ever leaves the widened absolute band.
type Limiter struct {
	logger *zap.Logger
}

func NewLimiter(logger *zap.Logger) *Limiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Limiter{logger: logger}
}

// Apply limits a candidate price against the current price and the item's
// base price. When currentPrice is zero (first price ever) the swing clamp
// is skipped. A nonsensical base price falls back to the last known good
// price so an item is never left without a valid one.
func (l *Limiter) Apply(itemID string, candidatePrice, currentPrice, basePrice decimal.Decimal) decimal.Decimal {
	if basePrice.Sign() <= 0 {
		l.logger.Error("non-positive base price, keeping current price",
			zap.String("item", itemID), zap.String("base", basePrice.String()))
		return l.Fallback(currentPrice)
	}

	price := candidatePrice
	if currentPrice.Sign() > 0 {
		price = clampDecimal(price, currentPrice.Mul(swingFloorRatio), currentPrice.Mul(swingCeilRatio))
	}
	price = clampDecimal(price, basePrice.Mul(bandFloorRatio), basePrice.Mul(bandCeilRatio))
	price = decimal.Max(price, unitPrice)
	return price.Round(priceScale)
}

// Fallback returns the last known good price, rounded and floored at one
// currency unit.
func (l *Limiter) Fallback(currentPrice decimal.Decimal) decimal.Decimal {
	return decimal.Max(currentPrice, unitPrice).Round(priceScale)
}

func clampDecimal(v, lo, hi decimal.Decimal) decimal.Decimal {
	return decimal.Min(decimal.Max(v, lo), hi)
}

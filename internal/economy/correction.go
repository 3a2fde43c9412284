package economy

import (
	"context"
	"errors"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/Bo-sung/mineconomy/internal/presence"
)

// MaxPopulationCorrection caps the thin-population amplifier.
const MaxPopulationCorrection = 2.0

// DefaultServerCapacity is the fallback when the capacity setting cannot
// be fetched.
const DefaultServerCapacity = 100

// PopulationCorrection dampens per-trade impact when the server is busy and
// amplifies it (capped) when it is nearly empty. Monotonically decreasing
// in the online count.
func PopulationCorrection(onlineCount, serverCapacity int) float64 {
	if onlineCount <= 0 {
		return MaxPopulationCorrection
	}
	return math.Min(MaxPopulationCorrection, float64(serverCapacity)*0.5/float64(onlineCount))
}

// TimeOfDayWeight maps the wall clock to an activity weight. The bands
// overlap; evaluation order resolves them, and that order is load-bearing:
// weekday hours 14-17 take the 0.6 daytime weight, never 0.8, and the 0.8
// band only ever fires for hours 6-8. Pinned by tests.
func TimeOfDayWeight(now time.Time) float64 {
	hour := now.Hour()
	wd := now.Weekday()
	weekend := wd == time.Saturday || wd == time.Sunday

	switch {
	case (hour >= 18 && hour <= 23) || weekend:
		return 1.0
	case hour >= 9 && hour <= 17:
		return 0.6
	case (hour >= 14 && hour <= 17) || (hour >= 6 && hour <= 8):
		return 0.8
	default:
		return 0.3
	}
}

// SessionWeight maps a player's session length to a weight. Unknown players
// get the minimum.
func SessionWeight(sessionDuration time.Duration) float64 {
	minutes := sessionDuration.Minutes()
	switch {
	case minutes >= 120:
		return 1.0
	case minutes >= 30:
		return 0.8
	case minutes >= 10:
		return 0.6
	default:
		return 0.3
	}
}

// CycleFactors are the correction factors computed once per recomputation
// cycle and shared read-only across every item in that cycle.
type CycleFactors struct {
	Population  float64
	TimeOfDay   float64
	OnlineCount int
	Capacity    int
	ComputedAt  time.Time
}

// Calculator derives correction factors from the presence and settings
// collaborators. Collaborator failures degrade to neutral defaults rather
// than failing the caller.
type Calculator struct {
	presence presence.Provider
	settings *SettingsCache
	now      func() time.Time
	logger   *zap.Logger
}

func NewCalculator(p presence.Provider, settings *SettingsCache, logger *zap.Logger) *Calculator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Calculator{presence: p, settings: settings, now: time.Now, logger: logger}
}

// SetClock replaces the calculator's clock. Test hook.
func (c *Calculator) SetClock(now func() time.Time) { c.now = now }

// CycleFactors computes the shared per-cycle factors. A failed online-count
// read yields the neutral population factor 1.0.
func (c *Calculator) CycleFactors(ctx context.Context) CycleFactors {
	now := c.now()
	capacity := c.settings.ServerCapacity(ctx)

	cf := CycleFactors{
		Population: 1.0,
		TimeOfDay:  TimeOfDayWeight(now),
		Capacity:   capacity,
		ComputedAt: now,
	}

	online, err := c.presence.OnlineCount(ctx)
	if err != nil {
		c.logger.Warn("online count unavailable, using neutral population factor", zap.Error(err))
		return cf
	}
	cf.OnlineCount = online
	cf.Population = PopulationCorrection(online, capacity)
	return cf
}

// SessionWeightFor looks up a player's session and maps it to a weight.
// No session means a brand-new player (minimum weight); a storage failure
// degrades to the neutral weight 1.0.
func (c *Calculator) SessionWeightFor(ctx context.Context, playerID string) float64 {
	start, err := c.presence.SessionStart(ctx, playerID)
	if errors.Is(err, presence.ErrNoSession) {
		return SessionWeight(0)
	}
	if err != nil {
		c.logger.Warn("session lookup failed, using neutral session weight",
			zap.String("player", playerID), zap.Error(err))
		return 1.0
	}
	return SessionWeight(c.now().Sub(start))
}

// TradeWeight is the combined correction applied to a trade's quantity at
// the moment it happens.
func (c *Calculator) TradeWeight(ctx context.Context, playerID string) float64 {
	cf := c.CycleFactors(ctx)
	return cf.Population * cf.TimeOfDay * c.SessionWeightFor(ctx, playerID)
}

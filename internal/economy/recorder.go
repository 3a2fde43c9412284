package economy

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Bo-sung/mineconomy/pkg/metrics"
)

// TradeRecorder is the trading path's entry point into the volume window.
// Recording is best-effort: a cache outage is logged and swallowed so the
// originating trade never blocks or fails on it.
type TradeRecorder struct {
	window  *VolumeWindow
	factors *Calculator
	logger  *zap.Logger
}

func NewTradeRecorder(window *VolumeWindow, factors *Calculator, logger *zap.Logger) *TradeRecorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TradeRecorder{window: window, factors: factors, logger: logger}
}

// RecordTrade weights the trade quantity by the correction factors in
// effect at this moment and records it into the current bucket.
func (r *TradeRecorder) RecordTrade(ctx context.Context, itemID, playerID string, side Side, quantity int64) error {
	if quantity <= 0 {
		return fmt.Errorf("trade quantity must be positive, got %d", quantity)
	}
	if side != Buy && side != Sell {
		return fmt.Errorf("unknown trade side %q", side)
	}

	weight := r.factors.TradeWeight(ctx, playerID)
	if err := r.window.RecordTrade(ctx, itemID, side, quantity, weight); err != nil {
		r.logger.Warn("trade volume recording failed, trade proceeds unrecorded",
			zap.String("item", itemID),
			zap.String("player", playerID),
			zap.String("side", string(side)),
			zap.Int64("quantity", quantity),
			zap.Error(err),
		)
		return nil
	}

	metrics.TradesRecorded.WithLabelValues(string(side)).Inc()
	return nil
}

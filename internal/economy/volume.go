package economy

import (
	"context"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/Bo-sung/mineconomy/internal/keys"
	"github.com/Bo-sung/mineconomy/internal/store"
)

// bucketTTL is set once when a bucket is created and never renewed, so a
// bucket disappears exactly one hour after its first trade.
const bucketTTL = time.Hour

// trailingBuckets is the current bucket plus five prior ones, covering the
// trailing hour.
const trailingBuckets = 6

const (
	fieldBuy          = "buy"
	fieldSell         = "sell"
	fieldWeightedBuy  = "weighted_buy"
	fieldWeightedSell = "weighted_sell"
)

// Volumes is a weighted buy/sell pair.
type Volumes struct {
	Buy  float64
	Sell float64
}

// VolumeWindow maintains per-item trade volume in fixed 10-minute buckets
// with automatic expiry. Fixed-width, fixed-count windows keep recomputation
// cost flat per item and need no persisted cursor: correctness depends only
// on wall-clock bucket alignment.
type VolumeWindow struct {
	store  store.Store
	keys   keys.Schema
	now    func() time.Time
	logger *zap.Logger
}

func NewVolumeWindow(st store.Store, schema keys.Schema, logger *zap.Logger) *VolumeWindow {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VolumeWindow{store: st, keys: schema, now: time.Now, logger: logger}
}

// SetClock replaces the window's clock. Test hook.
func (w *VolumeWindow) SetClock(now func() time.Time) { w.now = now }

// RecordTrade increments the raw and weighted counters of the bucket
// covering now. The expiry is anchored at bucket creation via ExpireNX.
func (w *VolumeWindow) RecordTrade(ctx context.Context, itemID string, side Side, quantity int64, weight float64) error {
	key := w.keys.TradeBucket(itemID, w.now())

	rawField, weightedField := fieldBuy, fieldWeightedBuy
	if side == Sell {
		rawField, weightedField = fieldSell, fieldWeightedSell
	}

	if err := w.store.HIncrByFloat(ctx, key, rawField, float64(quantity)); err != nil {
		return storeErr("record trade "+itemID, err)
	}
	if err := w.store.HIncrByFloat(ctx, key, weightedField, float64(quantity)*weight); err != nil {
		return storeErr("record trade "+itemID, err)
	}
	if _, err := w.store.ExpireNX(ctx, key, bucketTTL); err != nil {
		return storeErr("expire bucket "+itemID, err)
	}
	return nil
}

// CurrentBucket returns the weighted volumes of the bucket covering now.
// A missing bucket reads as zero.
func (w *VolumeWindow) CurrentBucket(ctx context.Context, itemID string) (Volumes, error) {
	return w.readBucket(ctx, w.keys.TradeBucket(itemID, w.now()))
}

// TrailingHour sums the weighted volumes of the six most recent buckets,
// tolerating missing buckets as zero.
func (w *VolumeWindow) TrailingHour(ctx context.Context, itemID string) (Volumes, error) {
	var total Volumes
	ts := w.now()
	for i := 0; i < trailingBuckets; i++ {
		v, err := w.readBucket(ctx, w.keys.TradeBucket(itemID, ts))
		if err != nil {
			return Volumes{}, err
		}
		total.Buy += v.Buy
		total.Sell += v.Sell
		ts = ts.Add(-keys.BucketWidth)
	}
	return total, nil
}

// PurgeExpired reclaims buckets older than the trailing hour and returns
// how many were removed. The store's own TTL already expires buckets; this
// is an opportunistic backstop, and purging already-gone keys is a no-op.
func (w *VolumeWindow) PurgeExpired(ctx context.Context) (int, error) {
	found, err := w.store.ScanKeys(ctx, w.keys.TradeBucketPattern())
	if err != nil {
		return 0, storeErr("scan buckets", err)
	}

	cutoff := keys.BucketStart(w.now().UTC()).Add(-bucketTTL)
	var stale []string
	for _, key := range found {
		ts, err := w.keys.ParseBucketTime(key)
		if err != nil {
			w.logger.Warn("skipping malformed bucket key", zap.String("key", key))
			continue
		}
		if ts.Before(cutoff) {
			stale = append(stale, key)
		}
	}
	if len(stale) == 0 {
		return 0, nil
	}

	n, err := w.store.Del(ctx, stale...)
	if err != nil {
		return 0, storeErr("purge buckets", err)
	}
	return int(n), nil
}

func (w *VolumeWindow) readBucket(ctx context.Context, key string) (Volumes, error) {
	fields, err := w.store.HGetAll(ctx, key)
	if err != nil {
		return Volumes{}, storeErr("read bucket", err)
	}
	return Volumes{
		Buy:  parseFloatField(fields, fieldWeightedBuy),
		Sell: parseFloatField(fields, fieldWeightedSell),
	}, nil
}

func parseFloatField(fields map[string]string, name string) float64 {
	raw, ok := fields[name]
	if !ok {
		return 0
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0
	}
	return v
}

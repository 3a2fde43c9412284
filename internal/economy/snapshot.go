package economy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Bo-sung/mineconomy/internal/catalog"
	"github.com/Bo-sung/mineconomy/internal/store"
)

// ItemSnapshot is the monitoring view of one item.
type ItemSnapshot struct {
	PriceRecord
	Pressure      PressureRecord `json:"pressure"`
	CurrentBucket Volumes        `json:"current_bucket"`
	TrailingHour  Volumes        `json:"trailing_hour"`
}

// Snapshot is a point-in-time view of the whole market for the monitoring
// client. Purely an aggregation; no pricing logic lives here.
type Snapshot struct {
	TakenAt time.Time      `json:"taken_at"`
	Factors CycleFactors   `json:"factors"`
	Items   []ItemSnapshot `json:"items"`
}

// SnapshotBuilder assembles market snapshots from the catalog, the price
// book, and the volume window.
type SnapshotBuilder struct {
	catalog catalog.Catalog
	book    *Book
	window  *VolumeWindow
	factors *Calculator
	now     func() time.Time
	logger  *zap.Logger
}

func NewSnapshotBuilder(cat catalog.Catalog, book *Book, window *VolumeWindow, factors *Calculator, logger *zap.Logger) *SnapshotBuilder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SnapshotBuilder{
		catalog: cat,
		book:    book,
		window:  window,
		factors: factors,
		now:     time.Now,
		logger:  logger,
	}
}

// SetClock replaces the builder's clock. Test hook.
func (b *SnapshotBuilder) SetClock(now func() time.Time) { b.now = now }

// Build assembles the snapshot. Items missing a price or pressure record
// appear with zero values rather than failing the whole view.
func (b *SnapshotBuilder) Build(ctx context.Context) (Snapshot, error) {
	items, err := b.catalog.ActiveItems(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to fetch active items: %w", err)
	}

	snap := Snapshot{
		TakenAt: b.now(),
		Factors: b.factors.CycleFactors(ctx),
		Items:   make([]ItemSnapshot, 0, len(items)),
	}

	for _, item := range items {
		is := ItemSnapshot{}
		is.ItemID = item.ID
		is.BasePrice = item.BasePrice

		if rec, err := b.book.Price(ctx, item.ID); err == nil {
			is.PriceRecord = rec
		} else if !errors.Is(err, store.ErrNotFound) {
			return Snapshot{}, err
		}
		if rec, err := b.book.Pressure(ctx, item.ID); err == nil {
			is.Pressure = rec
		} else if !errors.Is(err, store.ErrNotFound) {
			return Snapshot{}, err
		}

		cur, err := b.window.CurrentBucket(ctx, item.ID)
		if err != nil {
			return Snapshot{}, err
		}
		trail, err := b.window.TrailingHour(ctx, item.ID)
		if err != nil {
			return Snapshot{}, err
		}
		is.CurrentBucket = cur
		is.TrailingHour = trail

		snap.Items = append(snap.Items, is)
	}
	return snap, nil
}

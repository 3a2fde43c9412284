package economy

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Bo-sung/mineconomy/internal/keys"
	"github.com/Bo-sung/mineconomy/internal/store"
)

// PressureTTL bounds how long a pressure record is considered fresh.
const PressureTTL = 15 * time.Minute

// Side distinguishes the two trade directions.
type Side string

const (
	Buy  Side = "buy"
	Sell Side = "sell"
)

// PriceRecord is the published price of one item. Overwritten in place each
// cycle that moves the price; no history is kept here.
type PriceRecord struct {
	ItemID    string          `json:"item_id"`
	Price     decimal.Decimal `json:"price"`
	BasePrice decimal.Decimal `json:"base_price"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// PressureRecord is the last computed market pressure of one item.
type PressureRecord struct {
	ItemID      string    `json:"item_id"`
	Demand      float64   `json:"demand"`
	Supply      float64   `json:"supply"`
	Net         float64   `json:"net"`
	OnlineCount int       `json:"online_count"`
	ComputedAt  time.Time `json:"computed_at"`
}

// Book reads and writes price and pressure records in the cache store.
type Book struct {
	store store.Store
	keys  keys.Schema
}

func NewBook(st store.Store, schema keys.Schema) *Book {
	return &Book{store: st, keys: schema}
}

// Price returns the current price record for an item. store.ErrNotFound
// means no price has been published yet.
func (b *Book) Price(ctx context.Context, itemID string) (PriceRecord, error) {
	val, err := b.store.Get(ctx, b.keys.Price(itemID))
	if errors.Is(err, store.ErrNotFound) {
		return PriceRecord{}, err
	}
	if err != nil {
		return PriceRecord{}, storeErr("read price "+itemID, err)
	}
	var rec PriceRecord
	if err := json.Unmarshal([]byte(val), &rec); err != nil {
		return PriceRecord{}, corruptErr("decode price "+itemID, err)
	}
	return rec, nil
}

// PutPrice publishes a price record. Price keys carry no TTL.
func (b *Book) PutPrice(ctx context.Context, rec PriceRecord) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	if err := b.store.Set(ctx, b.keys.Price(rec.ItemID), string(raw), 0); err != nil {
		return storeErr("write price "+rec.ItemID, err)
	}
	return nil
}

// Pressure returns the last pressure record for an item. store.ErrNotFound
// means the record expired or was never written.
func (b *Book) Pressure(ctx context.Context, itemID string) (PressureRecord, error) {
	val, err := b.store.Get(ctx, b.keys.Pressure(itemID))
	if errors.Is(err, store.ErrNotFound) {
		return PressureRecord{}, err
	}
	if err != nil {
		return PressureRecord{}, storeErr("read pressure "+itemID, err)
	}
	var rec PressureRecord
	if err := json.Unmarshal([]byte(val), &rec); err != nil {
		return PressureRecord{}, corruptErr("decode pressure "+itemID, err)
	}
	return rec, nil
}

// PutPressure stores a pressure record with the freshness TTL.
func (b *Book) PutPressure(ctx context.Context, rec PressureRecord) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	if err := b.store.Set(ctx, b.keys.Pressure(rec.ItemID), string(raw), PressureTTL); err != nil {
		return storeErr("write pressure "+rec.ItemID, err)
	}
	return nil
}

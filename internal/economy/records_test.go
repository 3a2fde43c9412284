package economy

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Bo-sung/mineconomy/internal/keys"
	"github.com/Bo-sung/mineconomy/internal/store"
)

func newTestBook(t *testing.T) (*Book, *store.MemoryStore, keys.Schema) {
	t.Helper()
	mem := store.NewMemoryStore()
	schema := keys.NewSchema("t")
	return NewBook(mem, schema), mem, schema
}

func TestBookFailureTaxonomy(t *testing.T) {
	ctx := context.Background()
	book, mem, schema := newTestBook(t)

	// Absent key: signal absence, not an outage.
	_, err := book.Price(ctx, "iron")
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = book.Pressure(ctx, "iron")
	assert.ErrorIs(t, err, store.ErrNotFound)

	// A record that exists but does not parse is corrupt, not a store
	// outage; the two classes stay distinguishable.
	require.NoError(t, mem.Set(ctx, schema.Price("iron"), "not-json", 0))
	_, err = book.Price(ctx, "iron")
	assert.ErrorIs(t, err, ErrCorruptRecord)
	assert.NotErrorIs(t, err, ErrStoreUnavailable)
	assert.NotErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, mem.Set(ctx, schema.Pressure("iron"), "{broken", PressureTTL))
	_, err = book.Pressure(ctx, "iron")
	assert.ErrorIs(t, err, ErrCorruptRecord)
	assert.NotErrorIs(t, err, ErrStoreUnavailable)

	// An unreachable store is the transient class.
	mem.Fail(errors.New("cache down"))
	_, err = book.Price(ctx, "iron")
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.NotErrorIs(t, err, ErrCorruptRecord)
}

func TestBookRoundTrip(t *testing.T) {
	ctx := context.Background()
	book, _, _ := newTestBook(t)

	want := PriceRecord{
		ItemID:    "iron",
		Price:     decimal.RequireFromString("112.50"),
		BasePrice: decimal.NewFromInt(100),
		UpdatedAt: time.Date(2024, 1, 6, 20, 0, 0, 0, time.UTC),
	}
	require.NoError(t, book.PutPrice(ctx, want))

	got, err := book.Price(ctx, "iron")
	require.NoError(t, err)
	assert.Equal(t, want.ItemID, got.ItemID)
	assert.True(t, got.Price.Equal(want.Price))
	assert.True(t, got.BasePrice.Equal(want.BasePrice))
	assert.True(t, got.UpdatedAt.Equal(want.UpdatedAt))
}

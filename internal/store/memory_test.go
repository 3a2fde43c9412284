package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreGetSet(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_, err := s.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Set(ctx, "k", "v", 0))
	val, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", val)
}

func TestMemoryStoreTTL(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	now := time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC)
	s.SetClock(func() time.Time { return now })

	require.NoError(t, s.Set(ctx, "k", "v", time.Minute))

	now = now.Add(59 * time.Second)
	_, err := s.Get(ctx, "k")
	require.NoError(t, err)

	now = now.Add(2 * time.Second)
	_, err = s.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreExpireNX(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	now := time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC)
	s.SetClock(func() time.Time { return now })

	// No TTL on a missing key.
	ok, err := s.ExpireNX(ctx, "h", time.Hour)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.HIncrByFloat(ctx, "h", "buy", 1))
	ok, err = s.ExpireNX(ctx, "h", time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)

	// Second call must not renew the TTL.
	now = now.Add(30 * time.Minute)
	ok, err = s.ExpireNX(ctx, "h", time.Hour)
	require.NoError(t, err)
	assert.False(t, ok)

	now = now.Add(31 * time.Minute)
	fields, err := s.HGetAll(ctx, "h")
	require.NoError(t, err)
	assert.Empty(t, fields)
}

func TestMemoryStoreHashAndSets(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.HIncrByFloat(ctx, "h", "buy", 2.5))
	require.NoError(t, s.HIncrByFloat(ctx, "h", "buy", 1.5))
	fields, err := s.HGetAll(ctx, "h")
	require.NoError(t, err)
	assert.Equal(t, "4", fields["buy"])

	require.NoError(t, s.SAdd(ctx, "set", "a", "b"))
	require.NoError(t, s.SAdd(ctx, "set", "b"))
	n, err := s.SCard(ctx, "set")
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	require.NoError(t, s.SRem(ctx, "set", "a"))
	n, err = s.SCard(ctx, "set")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestMemoryStoreScanAndDel(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.HIncrByFloat(ctx, "trades_10min:iron:202403051200", "buy", 1))
	require.NoError(t, s.HIncrByFloat(ctx, "trades_10min:iron:202403051210", "buy", 1))
	require.NoError(t, s.Set(ctx, "price:iron", "{}", 0))

	found, err := s.ScanKeys(ctx, "trades_10min:*")
	require.NoError(t, err)
	assert.Len(t, found, 2)

	n, err := s.Del(ctx, found...)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	// Deleting already-gone keys is a no-op.
	n, err = s.Del(ctx, found...)
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)
}

func TestMemoryStoreFailureInjection(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	boom := errors.New("cache down")
	s.Fail(boom)

	assert.ErrorIs(t, s.Ping(ctx), boom)
	_, err := s.Get(ctx, "k")
	assert.ErrorIs(t, err, boom)

	s.Fail(nil)
	assert.NoError(t, s.Ping(ctx))
}

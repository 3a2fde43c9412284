package economy

import (
	"context"
	"errors"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/Bo-sung/mineconomy/internal/keys"
	"github.com/Bo-sung/mineconomy/internal/store"
)

const (
	settingTTL            = time.Hour
	serverCapacitySetting = "server_capacity"
)

// SettingsCache reads server settings through the cache with a static
// fallback, so a cache outage never blocks factor computation.
type SettingsCache struct {
	store    store.Store
	keys     keys.Schema
	capacity int
	logger   *zap.Logger
}

func NewSettingsCache(st store.Store, schema keys.Schema, fallbackCapacity int, logger *zap.Logger) *SettingsCache {
	if fallbackCapacity <= 0 {
		fallbackCapacity = DefaultServerCapacity
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SettingsCache{store: st, keys: schema, capacity: fallbackCapacity, logger: logger}
}

// ServerCapacity returns the cached capacity setting, warming the cache on
// a miss and falling back to the configured value on any failure.
func (s *SettingsCache) ServerCapacity(ctx context.Context) int {
	key := s.keys.Config(serverCapacitySetting)
	val, err := s.store.Get(ctx, key)
	if err == nil {
		if n, perr := strconv.Atoi(val); perr == nil && n > 0 {
			return n
		}
		s.logger.Warn("malformed capacity setting in cache", zap.String("value", val))
		return s.capacity
	}
	if errors.Is(err, store.ErrNotFound) {
		if werr := s.store.Set(ctx, key, strconv.Itoa(s.capacity), settingTTL); werr != nil {
			s.logger.Warn("failed to warm capacity setting", zap.Error(werr))
		}
		return s.capacity
	}
	s.logger.Warn("capacity setting unavailable, using fallback",
		zap.Int("fallback", s.capacity), zap.Error(err))
	return s.capacity
}

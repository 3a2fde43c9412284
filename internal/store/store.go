// Package store abstracts the shared key-value cache behind an injectable
// interface so the economy engine can run against Redis in production and an
// in-memory fake in tests.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound reports that a key does not exist. Callers use it to tell
// signal absence apart from transport failure.
var ErrNotFound = errors.New("store: key not found")

// Store is the cache surface the engine depends on. TTL zero means the key
// never expires.
type Store interface {
	// Ping reports whether the store is reachable. Used as the scheduler's
	// pre-flight health check.
	Ping(ctx context.Context) error

	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) (int64, error)

	// HGetAll returns all fields of a hash, or an empty map when the key
	// does not exist.
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HIncrByFloat(ctx context.Context, key, field string, incr float64) error

	// ExpireNX sets a TTL only if the key has none yet. Returns false when
	// a TTL was already present. Keeps bucket expiry anchored at creation.
	ExpireNX(ctx context.Context, key string, ttl time.Duration) (bool, error)

	SAdd(ctx context.Context, key string, members ...string) error
	SRem(ctx context.Context, key string, members ...string) error
	SCard(ctx context.Context, key string) (int64, error)

	// ScanKeys returns every key matching the glob pattern.
	ScanKeys(ctx context.Context, pattern string) ([]string, error)

	Close() error
}

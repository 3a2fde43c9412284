package store

import (
	"context"
	"path"
	"strconv"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store used by tests and local development.
// Expiry is evaluated lazily against the injected clock, so tests can step
// time forward deterministically.
type MemoryStore struct {
	mu sync.Mutex

	strings map[string]string
	hashes  map[string]map[string]float64
	sets    map[string]map[string]struct{}
	expiry  map[string]time.Time

	now func() time.Time

	// failure, when set, is returned by every operation. Simulates an
	// unreachable cache.
	failure error
}

// NewMemoryStore returns an empty MemoryStore on the real clock.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		strings: make(map[string]string),
		hashes:  make(map[string]map[string]float64),
		sets:    make(map[string]map[string]struct{}),
		expiry:  make(map[string]time.Time),
		now:     time.Now,
	}
}

// SetClock replaces the store's clock.
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Fail makes every subsequent operation return err. Pass nil to recover.
func (s *MemoryStore) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failure = err
}

func (s *MemoryStore) expired(key string) bool {
	if exp, ok := s.expiry[key]; ok && !s.now().Before(exp) {
		delete(s.strings, key)
		delete(s.hashes, key)
		delete(s.sets, key)
		delete(s.expiry, key)
		return true
	}
	return false
}

func (s *MemoryStore) exists(key string) bool {
	if s.expired(key) {
		return false
	}
	if _, ok := s.strings[key]; ok {
		return true
	}
	if _, ok := s.hashes[key]; ok {
		return true
	}
	_, ok := s.sets[key]
	return ok
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failure
}

func (s *MemoryStore) Get(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failure != nil {
		return "", s.failure
	}
	if s.expired(key) {
		return "", ErrNotFound
	}
	val, ok := s.strings[key]
	if !ok {
		return "", ErrNotFound
	}
	return val, nil
}

func (s *MemoryStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failure != nil {
		return s.failure
	}
	s.strings[key] = value
	if ttl > 0 {
		s.expiry[key] = s.now().Add(ttl)
	} else {
		delete(s.expiry, key)
	}
	return nil
}

func (s *MemoryStore) Del(ctx context.Context, keys ...string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failure != nil {
		return 0, s.failure
	}
	var n int64
	for _, key := range keys {
		if s.exists(key) {
			n++
		}
		delete(s.strings, key)
		delete(s.hashes, key)
		delete(s.sets, key)
		delete(s.expiry, key)
	}
	return n, nil
}

func (s *MemoryStore) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failure != nil {
		return nil, s.failure
	}
	out := make(map[string]string)
	if s.expired(key) {
		return out, nil
	}
	for field, val := range s.hashes[key] {
		out[field] = strconv.FormatFloat(val, 'f', -1, 64)
	}
	return out, nil
}

func (s *MemoryStore) HIncrByFloat(ctx context.Context, key, field string, incr float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failure != nil {
		return s.failure
	}
	s.expired(key)
	h, ok := s.hashes[key]
	if !ok {
		h = make(map[string]float64)
		s.hashes[key] = h
	}
	h[field] += incr
	return nil
}

func (s *MemoryStore) ExpireNX(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failure != nil {
		return false, s.failure
	}
	if !s.exists(key) {
		return false, nil
	}
	if _, ok := s.expiry[key]; ok {
		return false, nil
	}
	s.expiry[key] = s.now().Add(ttl)
	return true, nil
}

func (s *MemoryStore) SAdd(ctx context.Context, key string, members ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failure != nil {
		return s.failure
	}
	s.expired(key)
	set, ok := s.sets[key]
	if !ok {
		set = make(map[string]struct{})
		s.sets[key] = set
	}
	for _, m := range members {
		set[m] = struct{}{}
	}
	return nil
}

func (s *MemoryStore) SRem(ctx context.Context, key string, members ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failure != nil {
		return s.failure
	}
	if s.expired(key) {
		return nil
	}
	for _, m := range members {
		delete(s.sets[key], m)
	}
	return nil
}

func (s *MemoryStore) SCard(ctx context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failure != nil {
		return 0, s.failure
	}
	if s.expired(key) {
		return 0, nil
	}
	return int64(len(s.sets[key])), nil
}

func (s *MemoryStore) ScanKeys(ctx context.Context, pattern string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failure != nil {
		return nil, s.failure
	}
	var keys []string
	for key := range s.strings {
		keys = s.appendMatch(keys, pattern, key)
	}
	for key := range s.hashes {
		keys = s.appendMatch(keys, pattern, key)
	}
	for key := range s.sets {
		keys = s.appendMatch(keys, pattern, key)
	}
	return keys, nil
}

func (s *MemoryStore) appendMatch(keys []string, pattern, key string) []string {
	if s.expired(key) {
		return keys
	}
	if ok, _ := path.Match(pattern, key); ok {
		keys = append(keys, key)
	}
	return keys
}

func (s *MemoryStore) Close() error { return nil }

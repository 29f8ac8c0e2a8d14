package limiter

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"
)

const memoryCleanupInterval = time.Minute

type memoryValue struct {
	data      string
	expiresAt time.Time // zero means no expiration
}

func (v memoryValue) expired(now time.Time) bool {
	return !v.expiresAt.IsZero() && now.After(v.expiresAt)
}

type memoryZSet struct {
	members   map[string]float64
	expiresAt time.Time
}

func (z *memoryZSet) expired(now time.Time) bool {
	return !z.expiresAt.IsZero() && now.After(z.expiresAt)
}

// memoryStore is an in-process Store for single-replica deployments and
// tests. A background loop sweeps expired entries so idle keys do not
// accumulate.
type memoryStore struct {
	mu     sync.RWMutex
	values map[string]memoryValue
	zsets  map[string]*memoryZSet

	stopOnce sync.Once
	stop     chan struct{}
}

// NewMemoryStore returns an in-process store.
func NewMemoryStore() Store {
	s := &memoryStore{
		values: make(map[string]memoryValue),
		zsets:  make(map[string]*memoryZSet),
		stop:   make(chan struct{}),
	}
	go s.cleanupLoop()
	return s
}

func (s *memoryStore) cleanupLoop() {
	ticker := time.NewTicker(memoryCleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.sweep(time.Now())
		}
	}
}

func (s *memoryStore) sweep(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, v := range s.values {
		if v.expired(now) {
			delete(s.values, key)
		}
	}
	for key, z := range s.zsets {
		if z.expired(now) {
			delete(s.zsets, key)
		}
	}
}

func (s *memoryStore) Get(ctx context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	if !ok || v.expired(time.Now()) {
		return "", ErrKeyNotFound
	}
	return v.data, nil
}

func (s *memoryStore) Set(ctx context.Context, key, value string, expiration time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := memoryValue{data: value}
	if expiration > 0 {
		v.expiresAt = time.Now().Add(expiration)
	}
	s.values[key] = v
	return nil
}

func (s *memoryStore) GetInt64(ctx context.Context, key string) (int64, error) {
	raw, err := s.Get(ctx, key)
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (s *memoryStore) SetInt64(ctx context.Context, key string, value int64, expiration time.Duration) error {
	return s.Set(ctx, key, strconv.FormatInt(value, 10), expiration)
}

func (s *memoryStore) Incr(ctx context.Context, key string) (int64, error) {
	return s.IncrBy(ctx, key, 1)
}

func (s *memoryStore) IncrBy(ctx context.Context, key string, delta int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	var current int64
	v, live := s.values[key]
	if live && v.expired(now) {
		v = memoryValue{}
		live = false
	}
	if live {
		n, err := strconv.ParseInt(v.data, 10, 64)
		if err != nil {
			return 0, err
		}
		current = n
	}
	current += delta

	v.data = strconv.FormatInt(current, 10)
	s.values[key] = v
	return current, nil
}

func (s *memoryStore) Expire(ctx context.Context, key string, expiration time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	expiresAt := time.Now().Add(expiration)
	if v, ok := s.values[key]; ok {
		v.expiresAt = expiresAt
		s.values[key] = v
		return nil
	}
	if z, ok := s.zsets[key]; ok {
		z.expiresAt = expiresAt
		return nil
	}
	return ErrKeyNotFound
}

func (s *memoryStore) TTL(ctx context.Context, key string) (time.Duration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := time.Now()
	if v, ok := s.values[key]; ok && !v.expired(now) {
		if v.expiresAt.IsZero() {
			return -1, nil
		}
		return v.expiresAt.Sub(now), nil
	}
	if z, ok := s.zsets[key]; ok && !z.expired(now) {
		if z.expiresAt.IsZero() {
			return -1, nil
		}
		return z.expiresAt.Sub(now), nil
	}
	return 0, ErrKeyNotFound
}

func (s *memoryStore) Del(ctx context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.values, key)
		delete(s.zsets, key)
	}
	return nil
}

func (s *memoryStore) Exists(ctx context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	now := time.Now()
	if v, ok := s.values[key]; ok && !v.expired(now) {
		return true, nil
	}
	if z, ok := s.zsets[key]; ok && !z.expired(now) {
		return true, nil
	}
	return false, nil
}

func (s *memoryStore) ZAdd(ctx context.Context, key string, score float64, member string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	z, ok := s.zsets[key]
	if !ok || z.expired(time.Now()) {
		z = &memoryZSet{members: make(map[string]float64)}
		s.zsets[key] = z
	}
	z.members[member] = score
	return nil
}

func (s *memoryStore) ZRemRangeByScore(ctx context.Context, key string, min, max float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	z, ok := s.zsets[key]
	if !ok || z.expired(time.Now()) {
		return nil
	}
	for member, score := range z.members {
		if score >= min && score <= max {
			delete(z.members, member)
		}
	}
	return nil
}

func (s *memoryStore) ZCount(ctx context.Context, key string, min, max float64) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	z, ok := s.zsets[key]
	if !ok || z.expired(time.Now()) {
		return 0, nil
	}
	var count int64
	for _, score := range z.members {
		if score >= min && score <= max {
			count++
		}
	}
	return count, nil
}

func (s *memoryStore) ZMinScore(ctx context.Context, key string) (float64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	z, ok := s.zsets[key]
	if !ok || z.expired(time.Now()) || len(z.members) == 0 {
		return 0, false, nil
	}
	scores := make([]float64, 0, len(z.members))
	for _, score := range z.members {
		scores = append(scores, score)
	}
	sort.Float64s(scores)
	return scores[0], true, nil
}

func (s *memoryStore) Close() error {
	s.stopOnce.Do(func() {
		close(s.stop)
	})
	return nil
}

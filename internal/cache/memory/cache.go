// Package memory implements the domain cache interfaces with in-process TTL
// maps. It backs single-node deployments where Redis is not configured, and
// the catalog cache in all deployments that prefer process-local search
// state.
package memory

import (
	"context"
	"sync"
	"time"
)

// store is a TTL map. Expired entries are dropped lazily on read and swept
// by an optional background GC. The clock is injectable for tests.
type store[V any] struct {
	mu      sync.RWMutex
	entries map[string]entry[V]
	ttl     time.Duration
	now     func() time.Time
}

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

func newStore[V any](ttl time.Duration) *store[V] {
	return &store[V]{
		entries: make(map[string]entry[V]),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (s *store[V]) set(key string, v V) {
	s.mu.Lock()
	s.entries[key] = entry[V]{value: v, expiresAt: s.now().Add(s.ttl)}
	s.mu.Unlock()
}

func (s *store[V]) get(key string) (V, bool) {
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok || s.now().After(e.expiresAt) {
		var zero V
		return zero, false
	}
	return e.value, true
}

func (s *store[V]) delete(key string) {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
}

// sweep removes all expired entries.
func (s *store[V]) sweep() {
	now := s.now()
	s.mu.Lock()
	for key, e := range s.entries {
		if now.After(e.expiresAt) {
			delete(s.entries, key)
		}
	}
	s.mu.Unlock()
}

// runGC sweeps at the given interval until ctx is done.
func (s *store[V]) runGC(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

// Package memory is the in-process cache.Store.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/pario-ai/reviewd/pkg/cache"
)

type item struct {
	value     []byte
	expiresAt time.Time
}

func (it *item) expired(now time.Time) bool {
	if it.expiresAt.IsZero() {
		return false
	}
	return !now.Before(it.expiresAt)
}

// Store keeps entries in a map guarded by a RWMutex.
type Store struct {
	mu    sync.RWMutex
	items map[string]*item
	now   func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces time.Now, for deterministic expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New creates an empty Store.
func New(opts ...Option) *Store {
	s := &Store{
		items: make(map[string]*item),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the value for key unless it is missing or expired.
func (s *Store) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	it, ok := s.items[key]
	if !ok || it.expired(s.now()) {
		return nil, false, nil
	}
	return it.value, true, nil
}

// Set stores value for ttl. A zero ttl never expires.
func (s *Store) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = s.now().Add(ttl)
	}
	s.items[key] = &item{value: value, expiresAt: expiresAt}
	return nil
}

// Len returns the number of stored items, expired ones included.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Cleanup drops expired items.
func (s *Store) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for key, it := range s.items {
		if it.expired(now) {
			delete(s.items, key)
		}
	}
}

var _ cache.Store = (*Store)(nil)

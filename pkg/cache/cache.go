// Package cache holds the fixed-key, fixed-TTL entries the service keeps
// between requests and the Store contract their backends implement.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Store is a byte-oriented key/value store with per-key expiry.
type Store interface {
	// Get returns the value for key. Expired or missing keys report false.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores value under key for ttl.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Entry binds a typed value to a single key and TTL of a Store.
type Entry[T any] struct {
	store Store
	key   string
	ttl   time.Duration
}

// NewEntry creates an Entry. Values are JSON-encoded in the store.
func NewEntry[T any](store Store, key string, ttl time.Duration) *Entry[T] {
	return &Entry[T]{store: store, key: key, ttl: ttl}
}

// Key returns the store key of the entry.
func (e *Entry[T]) Key() string { return e.key }

// TTL returns the time-to-live applied on every Set.
func (e *Entry[T]) TTL() time.Duration { return e.ttl }

// Get returns the current value and whether it is present and unexpired.
func (e *Entry[T]) Get(ctx context.Context) (T, bool, error) {
	var zero T
	data, ok, err := e.store.Get(ctx, e.key)
	if err != nil {
		return zero, false, fmt.Errorf("cache get %s: %w", e.key, err)
	}
	if !ok {
		return zero, false, nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return zero, false, fmt.Errorf("cache decode %s: %w", e.key, err)
	}
	return v, true, nil
}

// Set overwrites the entry and restarts its TTL.
func (e *Entry[T]) Set(ctx context.Context, v T) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("cache encode %s: %w", e.key, err)
	}
	if err := e.store.Set(ctx, e.key, data, e.ttl); err != nil {
		return fmt.Errorf("cache set %s: %w", e.key, err)
	}
	return nil
}

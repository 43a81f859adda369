// Package redis is a cache.Store backed by a redis server, letting several
// reviewd replicas share one review list.
package redis

import (
	"bytes"
	"compress/gzip"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pario-ai/reviewd/pkg/cache"
	"github.com/pario-ai/reviewd/pkg/config"
)

// Store stores gzip-compressed values under a key prefix.
type Store struct {
	client *redis.Client
	prefix string
}

// New creates a Store from configuration. The connection is lazy.
func New(cfg config.RedisConfig) *Store {
	opts := &redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}

	if cfg.TLS {
		opts.TLSConfig = &tls.Config{
			MinVersion: tls.VersionTLS12,
		}
	}

	return NewWithClient(redis.NewClient(opts), cfg.Prefix)
}

// NewWithClient wraps an existing client.
func NewWithClient(client *redis.Client, prefix string) *Store {
	return &Store{client: client, prefix: prefix}
}

func (s *Store) key(key string) string {
	if s.prefix == "" {
		return key
	}
	return fmt.Sprintf("%s:%s", s.prefix, key)
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Get returns the value for key. Expiry is enforced by redis.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := s.client.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	} else if err != nil {
		return nil, false, err
	}

	decompressed, err := decompress(val)
	if err != nil {
		return nil, false, fmt.Errorf("failed to decompress: %w", err)
	}
	if decompressed == nil {
		return nil, false, nil
	}
	return decompressed, true, nil
}

// Set stores value with a server-side TTL.
func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	compressed, err := compress(value)
	if err != nil {
		return fmt.Errorf("failed to compress: %w", err)
	}
	return s.client.Set(ctx, s.key(key), compressed, ttl).Err()
}

// Close closes the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}

func compress(data []byte) ([]byte, error) {
	var b bytes.Buffer
	w := gzip.NewWriter(&b)
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

func decompress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

var _ cache.Store = (*Store)(nil)

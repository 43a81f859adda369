package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/pario-ai/reviewd/pkg/cache"
	"github.com/pario-ai/reviewd/pkg/models"
)

// Cache is a cache.Store backed by SQLite.
type Cache struct {
	db  *sql.DB
	now func() time.Time
}

const createCacheTable = `
CREATE TABLE IF NOT EXISTS cache_entries (
	cache_key TEXT PRIMARY KEY,
	value BLOB NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	expires_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS cache_counters (
	name TEXT PRIMARY KEY,
	value INTEGER NOT NULL DEFAULT 0
);
INSERT OR IGNORE INTO cache_counters (name, value) VALUES ('hits', 0), ('misses', 0);
`

// New opens (and migrates) the cache database at dbPath.
func New(dbPath string) (*Cache, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}

	if _, err := db.Exec(createCacheTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate cache db: %w", err)
	}

	return &Cache{db: db, now: time.Now}, nil
}

// Get retrieves a cached value. Missing and expired keys report false.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	var expiresAt int64

	err := c.db.QueryRowContext(ctx,
		`SELECT value, expires_at FROM cache_entries WHERE cache_key = ?`,
		key,
	).Scan(&value, &expiresAt)

	if errors.Is(err, sql.ErrNoRows) {
		c.count(ctx, "misses")
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache get: %w", err)
	}

	if c.now().UnixMilli() >= expiresAt {
		c.count(ctx, "misses")
		return nil, false, nil
	}

	c.count(ctx, "hits")
	return value, true, nil
}

// count bumps a lookup counter. Counters live in the database so every
// process opening the same file sees the same totals. A failed update only
// loses the count, never the lookup.
func (c *Cache) count(ctx context.Context, name string) {
	_, _ = c.db.ExecContext(ctx,
		`UPDATE cache_counters SET value = value + 1 WHERE name = ?`, name)
}

// Set stores a value, replacing any previous one.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	now := c.now().UTC()
	_, err := c.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO cache_entries (cache_key, value, created_at, expires_at)
		 VALUES (?, ?, ?, ?)`,
		key, value, now, now.Add(ttl).UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("cache put: %w", err)
	}
	return nil
}

// Stats returns the entry count and the lookup totals recorded by every
// process that used this database.
func (c *Cache) Stats() (models.CacheStats, error) {
	var stats models.CacheStats
	err := c.db.QueryRow(`SELECT
		(SELECT COUNT(*) FROM cache_entries),
		(SELECT value FROM cache_counters WHERE name = 'hits'),
		(SELECT value FROM cache_counters WHERE name = 'misses')`,
	).Scan(&stats.Entries, &stats.Hits, &stats.Misses)
	if err != nil {
		return models.CacheStats{}, fmt.Errorf("cache stats: %w", err)
	}
	return stats, nil
}

// Clear removes cache entries. If expiredOnly is true, only expired entries are removed.
func (c *Cache) Clear(expiredOnly bool) error {
	var err error
	if expiredOnly {
		_, err = c.db.Exec(`DELETE FROM cache_entries WHERE expires_at <= ?`, c.now().UnixMilli())
	} else {
		_, err = c.db.Exec(`DELETE FROM cache_entries`)
	}
	if err != nil {
		return fmt.Errorf("cache clear: %w", err)
	}
	return nil
}

// Close releases the database connection.
func (c *Cache) Close() error {
	return c.db.Close()
}

var _ cache.Store = (*Cache)(nil)

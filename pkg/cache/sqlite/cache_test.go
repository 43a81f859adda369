package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "cache_test.db")
	c, err := New(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestSetAndGet(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	if err := c.Set(ctx, "reviews", []byte(`[{"author":"Jane"}]`), time.Hour); err != nil {
		t.Fatal(err)
	}

	data, ok, err := c.Get(ctx, "reviews")
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected cache hit")
	}
	if string(data) != `[{"author":"Jane"}]` {
		t.Errorf("unexpected value: %s", data)
	}

	_, ok, err = c.Get(ctx, "tokens")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("expected cache miss for unknown key")
	}
}

func TestOverwrite(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	_ = c.Set(ctx, "reviews", []byte("first"), time.Hour)
	_ = c.Set(ctx, "reviews", []byte("second"), time.Hour)

	data, ok, _ := c.Get(ctx, "reviews")
	if !ok || string(data) != "second" {
		t.Errorf("expected last write to win, got %q (hit=%v)", data, ok)
	}
}

func TestTTLExpiration(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	if err := c.Set(ctx, "reviews", []byte("data"), time.Minute); err != nil {
		t.Fatal(err)
	}

	now = now.Add(59 * time.Second)
	if _, ok, _ := c.Get(ctx, "reviews"); !ok {
		t.Error("expected hit before TTL")
	}

	now = now.Add(time.Second)
	if _, ok, _ := c.Get(ctx, "reviews"); ok {
		t.Error("expected cache miss after TTL expiration")
	}
}

func TestStats(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	_ = c.Set(ctx, "h1", []byte("data"), time.Hour)
	c.Get(ctx, "h1") // hit
	c.Get(ctx, "h2") // miss

	stats, err := c.Stats()
	if err != nil {
		t.Fatal(err)
	}
	if stats.Entries != 1 {
		t.Errorf("expected 1 entry, got %d", stats.Entries)
	}
	if stats.Hits != 1 {
		t.Errorf("expected 1 hit, got %d", stats.Hits)
	}
	if stats.Misses != 1 {
		t.Errorf("expected 1 miss, got %d", stats.Misses)
	}
}

func TestClear(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	_ = c.Set(ctx, "h1", []byte("data"), time.Hour)
	_ = c.Set(ctx, "h2", []byte("data"), time.Hour)

	if err := c.Clear(false); err != nil {
		t.Fatal(err)
	}

	stats, _ := c.Stats()
	if stats.Entries != 0 {
		t.Errorf("expected 0 entries after clear, got %d", stats.Entries)
	}
}

func TestClearExpiredOnly(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()
	now := time.Now()
	c.now = func() time.Time { return now }

	_ = c.Set(ctx, "short", []byte("data"), time.Second)
	_ = c.Set(ctx, "long", []byte("data"), time.Hour)

	now = now.Add(time.Minute)
	if err := c.Clear(true); err != nil {
		t.Fatal(err)
	}

	stats, _ := c.Stats()
	if stats.Entries != 1 {
		t.Errorf("expected 1 entry after clearing expired, got %d", stats.Entries)
	}
	if _, ok, _ := c.Get(ctx, "long"); !ok {
		t.Error("unexpired entry should survive")
	}
}

func TestStatsSurviveReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "cache_test.db")
	ctx := context.Background()

	serving, err := New(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	_ = serving.Set(ctx, "reviews", []byte("data"), time.Hour)
	serving.Get(ctx, "reviews") // hit
	serving.Get(ctx, "reviews") // hit
	serving.Get(ctx, "tokens")  // miss
	if err := serving.Close(); err != nil {
		t.Fatal(err)
	}

	// A second process (the stats command) opens the same file.
	reader, err := New(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	defer reader.Close()

	stats, err := reader.Stats()
	if err != nil {
		t.Fatal(err)
	}
	if stats.Entries != 1 || stats.Hits != 2 || stats.Misses != 1 {
		t.Errorf("expected 1 entry, 2 hits, 1 miss; got %+v", stats)
	}
}

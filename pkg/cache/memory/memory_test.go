package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func TestStore_SetAndGet(t *testing.T) {
	tests := []struct {
		name    string
		ttl     time.Duration
		advance time.Duration
		wantOK  bool
	}{
		{name: "fresh entry", ttl: time.Hour, advance: 0, wantOK: true},
		{name: "just before expiry", ttl: time.Hour, advance: time.Hour - time.Nanosecond, wantOK: true},
		{name: "at expiry", ttl: time.Hour, advance: time.Hour, wantOK: false},
		{name: "after expiry", ttl: time.Hour, advance: 2 * time.Hour, wantOK: false},
		{name: "zero ttl never expires", ttl: 0, advance: 1000 * time.Hour, wantOK: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
			s := New(WithClock(clock.Now))
			ctx := context.Background()

			require.NoError(t, s.Set(ctx, "k", []byte("v"), tt.ttl))
			clock.Advance(tt.advance)

			got, ok, err := s.Get(ctx, "k")
			require.NoError(t, err)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, []byte("v"), got)
			} else {
				assert.Nil(t, got)
			}
		})
	}
}

func TestStore_GetMissing(t *testing.T) {
	s := New()
	got, ok, err := s.Get(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, got)
}

func TestStore_OverwriteRestartsTTL(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	s := New(WithClock(clock.Now))
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "k", []byte("first"), time.Minute))
	clock.Advance(50 * time.Second)
	require.NoError(t, s.Set(ctx, "k", []byte("second"), time.Minute))
	clock.Advance(50 * time.Second)

	got, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("second"), got)
}

func TestStore_Cleanup(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	s := New(WithClock(clock.Now))
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "short", []byte("1"), time.Second))
	require.NoError(t, s.Set(ctx, "long", []byte("2"), time.Hour))
	clock.Advance(time.Minute)

	assert.Equal(t, 2, s.Len())
	s.Cleanup()
	assert.Equal(t, 1, s.Len())

	_, ok, _ := s.Get(ctx, "long")
	assert.True(t, ok)
}

package reviews

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pario-ai/reviewd/pkg/budget"
	"github.com/pario-ai/reviewd/pkg/cache"
	"github.com/pario-ai/reviewd/pkg/cache/memory"
	"github.com/pario-ai/reviewd/pkg/models"
	"github.com/pario-ai/reviewd/pkg/upstream"
)

type fakeSource struct {
	calls     atomic.Int32
	accounts  atomic.Int32
	tokens    []string
	mu        sync.Mutex
	reviews   []models.Review
	err       error
	release   chan struct{}
	locations []models.Location
}

func (f *fakeSource) ListAccounts(context.Context, models.TokenSet) ([]models.Account, error) {
	f.accounts.Add(1)
	return []models.Account{{Name: "accounts/1"}, {Name: "accounts/2"}}, nil
}

func (f *fakeSource) ListLocations(_ context.Context, _ models.TokenSet, account string) ([]models.Location, error) {
	return f.locations, nil
}

func (f *fakeSource) ListReviews(_ context.Context, ts models.TokenSet, account, location string) ([]models.Review, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.tokens = append(f.tokens, ts.AccessToken)
	f.mu.Unlock()
	if f.release != nil {
		<-f.release
	}
	return f.reviews, f.err
}

type fakeTracker struct {
	mu      sync.Mutex
	records []models.FetchRecord
}

func (t *fakeTracker) Record(_ context.Context, rec models.FetchRecord) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.records = append(t.records, rec)
	return nil
}

func (t *fakeTracker) Recent(context.Context, int) ([]models.FetchRecord, error) { return nil, nil }

func (t *fakeTracker) CountSince(context.Context, time.Time, models.FetchOutcome) (int64, error) {
	return 0, nil
}

func (t *fakeTracker) Summary(context.Context) (models.FetchSummary, error) {
	return models.FetchSummary{}, nil
}

func (t *fakeTracker) Close() error { return nil }

type budgetFunc func(context.Context) error

func (f budgetFunc) Check(ctx context.Context) error { return f(ctx) }

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	svc     *Service
	source  *fakeSource
	tokens  *cache.Entry[models.TokenSet]
	tracker *fakeTracker
	clock   *fakeClock
}

func newFixture(t *testing.T, mutate func(*Config)) *fixture {
	t.Helper()
	clock := &fakeClock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
	store := memory.New(memory.WithClock(clock.Now))
	source := &fakeSource{
		reviews: []models.Review{
			{Reviewer: &models.Reviewer{DisplayName: "Jane"}, StarRating: "FIVE", Comment: "Great", CreateTime: "2024-01-01T00:00:00Z"},
			{StarRating: "TWO", CreateTime: "2024-01-02T00:00:00Z"},
		},
		locations: []models.Location{{Name: "locations/9"}},
	}
	f := &fixture{
		source:  source,
		tokens:  cache.NewEntry[models.TokenSet](store, "tokens", 24*time.Hour),
		tracker: &fakeTracker{},
		clock:   clock,
	}
	cfg := Config{
		Source:   source,
		Tokens:   f.tokens,
		Reviews:  cache.NewEntry[[]models.ReviewRecord](store, "reviews", 6*time.Hour),
		Resolver: StaticResolver{Target: Target{Account: "accounts/1", Location: "locations/9"}},
		Tracker:  f.tracker,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	svc, err := New(cfg)
	require.NoError(t, err)
	f.svc = svc
	return f
}

func (f *fixture) authorize(t *testing.T, access string) {
	t.Helper()
	require.NoError(t, f.tokens.Set(context.Background(), models.TokenSet{AccessToken: access, RefreshToken: "r"}))
}

func TestNewValidation(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)

	_, err = New(Config{Source: &fakeSource{}})
	assert.Error(t, err)

	_, err = New(Config{Source: &fakeSource{}, Tokens: cache.NewEntry[models.TokenSet](memory.New(), "t", time.Hour)})
	assert.Error(t, err)
}

func TestFetchNotAuthorized(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.svc.GetReviews(context.Background())
	require.Error(t, err)

	var nae *NotAuthorizedError
	assert.True(t, errors.As(err, &nae))
	assert.Equal(t, int32(0), f.source.calls.Load(), "no upstream call without a token")
	assert.Empty(t, f.tracker.records)
}

func TestFetchTokenExpired(t *testing.T) {
	f := newFixture(t, nil)
	f.authorize(t, "tok-1")
	f.clock.Advance(24 * time.Hour)

	_, err := f.svc.GetReviews(context.Background())
	assert.ErrorIs(t, err, ErrNotAuthorized)
	assert.Equal(t, int32(0), f.source.calls.Load())
}

func TestFetchCachesResult(t *testing.T) {
	f := newFixture(t, nil)
	f.authorize(t, "tok-1")
	ctx := context.Background()

	first, err := f.svc.Fetch(ctx)
	require.NoError(t, err)
	assert.False(t, first.Cached)
	assert.Equal(t, []models.ReviewRecord{
		{Author: "Jane", Rating: "FIVE", Comment: "Great", CreateTime: "2024-01-01T00:00:00Z"},
		{Author: AnonymousAuthor, Rating: "TWO", CreateTime: "2024-01-02T00:00:00Z"},
	}, first.Reviews)

	second, err := f.svc.Fetch(ctx)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Reviews, second.Reviews)
	assert.Equal(t, int32(1), f.source.calls.Load())

	require.Len(t, f.tracker.records, 1)
	rec := f.tracker.records[0]
	assert.Equal(t, models.FetchOK, rec.Outcome)
	assert.Equal(t, 2, rec.ReviewCount)
	assert.Equal(t, "accounts/1", rec.Account)
	assert.Equal(t, "locations/9", rec.Location)
}

func TestFetchCacheHitWithoutToken(t *testing.T) {
	f := newFixture(t, nil)
	f.authorize(t, "tok-1")
	ctx := context.Background()

	_, err := f.svc.Fetch(ctx)
	require.NoError(t, err)

	// Token expires before the review list does.
	f.clock.Advance(3 * time.Hour)
	require.NoError(t, f.tokens.Set(ctx, models.TokenSet{}))

	res, err := f.svc.Fetch(ctx)
	require.NoError(t, err)
	assert.True(t, res.Cached)
	assert.Equal(t, int32(1), f.source.calls.Load())
}

func TestFetchRefreshesAfterTTL(t *testing.T) {
	f := newFixture(t, nil)
	f.authorize(t, "tok-1")
	ctx := context.Background()

	_, err := f.svc.Fetch(ctx)
	require.NoError(t, err)

	f.clock.Advance(6*time.Hour - time.Second)
	_, err = f.svc.Fetch(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(1), f.source.calls.Load())

	// Re-authorize so the token outlives the review list.
	f.authorize(t, "tok-2")
	f.clock.Advance(time.Second)
	res, err := f.svc.Fetch(ctx)
	require.NoError(t, err)
	assert.False(t, res.Cached)
	assert.Equal(t, int32(2), f.source.calls.Load())
	assert.Equal(t, []string{"tok-1", "tok-2"}, f.source.tokens, "latest token is used")
}

func TestFetchUpstreamError(t *testing.T) {
	f := newFixture(t, nil)
	f.authorize(t, "tok-1")
	f.source.err = &upstream.APIError{StatusCode: 401, Status: "UNAUTHENTICATED", Message: "expired"}
	ctx := context.Background()

	_, err := f.svc.Fetch(ctx)
	var ufe *UpstreamFetchError
	require.True(t, errors.As(err, &ufe))
	assert.True(t, upstream.IsUnauthorized(err))

	// Failures are not cached.
	_, err = f.svc.Fetch(ctx)
	require.Error(t, err)
	assert.Equal(t, int32(2), f.source.calls.Load())

	require.Len(t, f.tracker.records, 2)
	assert.Equal(t, models.FetchError, f.tracker.records[0].Outcome)
	assert.Contains(t, f.tracker.records[0].Error, "expired")
}

func TestFetchBudgetExceeded(t *testing.T) {
	f := newFixture(t, func(c *Config) {
		c.Budget = budgetFunc(func(context.Context) error { return budget.ErrBudgetExceeded })
	})
	f.authorize(t, "tok-1")

	_, err := f.svc.Fetch(context.Background())
	var ufe *UpstreamFetchError
	require.True(t, errors.As(err, &ufe))
	assert.ErrorIs(t, err, budget.ErrBudgetExceeded)
	assert.Equal(t, int32(0), f.source.calls.Load())
	assert.Empty(t, f.tracker.records)
}

func TestFetchDynamicResolver(t *testing.T) {
	f := newFixture(t, func(c *Config) { c.Resolver = nil })
	f.authorize(t, "tok-1")

	_, err := f.svc.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), f.source.accounts.Load())
	require.Len(t, f.tracker.records, 1)
	assert.Equal(t, "accounts/1", f.tracker.records[0].Account)
	assert.Equal(t, "locations/9", f.tracker.records[0].Location)
}

func TestFetchConcurrentMissesShareCall(t *testing.T) {
	f := newFixture(t, nil)
	f.authorize(t, "tok-1")
	f.source.release = make(chan struct{})

	const n = 8
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.GetReviews(context.Background())
			errs <- err
		}()
	}

	time.Sleep(50 * time.Millisecond)
	close(f.source.release)
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, int32(1), f.source.calls.Load())
}

// Package reviews gates and memoizes the upstream review listing.
package reviews

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/pario-ai/reviewd/pkg/models"
	"github.com/pario-ai/reviewd/pkg/tracker"
	"github.com/pario-ai/reviewd/pkg/upstream"
)

// TokenReader reads the stored TokenSet.
type TokenReader interface {
	Get(ctx context.Context) (models.TokenSet, bool, error)
}

// ReviewStore is the TTL entry holding the last fetched review list.
type ReviewStore interface {
	Get(ctx context.Context) ([]models.ReviewRecord, bool, error)
	Set(ctx context.Context, records []models.ReviewRecord) error
}

// Budget is consulted before every upstream fetch.
type Budget interface {
	Check(ctx context.Context) error
}

// Config wires a Service. Tracker and Budget are optional.
type Config struct {
	Source   upstream.Source
	Tokens   TokenReader
	Reviews  ReviewStore
	Resolver Resolver
	Tracker  tracker.Tracker
	Budget   Budget
	Logger   *slog.Logger
}

// Result is a review list and whether it came from the cache.
type Result struct {
	Reviews []models.ReviewRecord
	Cached  bool
}

// Service serves the cached review list, refreshing it from upstream on a
// miss when a token is available.
type Service struct {
	source   upstream.Source
	tokens   TokenReader
	reviews  ReviewStore
	resolver Resolver
	tracker  tracker.Tracker
	budget   Budget
	logger   *slog.Logger
	now      func() time.Time

	group singleflight.Group
}

// New validates cfg and creates a Service.
func New(cfg Config) (*Service, error) {
	if cfg.Source == nil {
		return nil, fmt.Errorf("review source is required")
	}
	if cfg.Tokens == nil {
		return nil, fmt.Errorf("token reader is required")
	}
	if cfg.Reviews == nil {
		return nil, fmt.Errorf("review store is required")
	}

	resolver := cfg.Resolver
	if resolver == nil {
		resolver = DynamicResolver{Source: cfg.Source}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		source:   cfg.Source,
		tokens:   cfg.Tokens,
		reviews:  cfg.Reviews,
		resolver: resolver,
		tracker:  cfg.Tracker,
		budget:   cfg.Budget,
		logger:   logger,
		now:      time.Now,
	}, nil
}

// GetReviews returns the review list.
func (s *Service) GetReviews(ctx context.Context) ([]models.ReviewRecord, error) {
	res, err := s.Fetch(ctx)
	return res.Reviews, err
}

// Fetch returns the cached list if it is fresh. Otherwise it requires a
// stored token (ErrNotAuthorized without one), lists the reviews upstream,
// caches the projection and returns it. Upstream failures are returned as
// *UpstreamFetchError.
func (s *Service) Fetch(ctx context.Context) (Result, error) {
	records, ok, err := s.reviews.Get(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "review cache read failed", slog.Any("error", err))
	} else if ok {
		return Result{Reviews: records, Cached: true}, nil
	}

	ts, ok, err := s.tokens.Get(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("read token: %w", err)
	}
	if !ok || !ts.Valid() {
		return Result{}, ErrNotAuthorized
	}

	// Concurrent misses share one upstream call. The shared call must not
	// die with whichever request started it.
	v, err, shared := s.group.Do("reviews", func() (any, error) {
		return s.refresh(context.WithoutCancel(ctx), ts)
	})
	if err != nil {
		return Result{}, err
	}
	if shared {
		s.logger.DebugContext(ctx, "joined in-flight review fetch")
	}
	return Result{Reviews: v.([]models.ReviewRecord)}, nil
}

func (s *Service) refresh(ctx context.Context, ts models.TokenSet) ([]models.ReviewRecord, error) {
	if s.budget != nil {
		if err := s.budget.Check(ctx); err != nil {
			s.logger.WarnContext(ctx, "upstream fetch refused", slog.Any("error", err))
			return nil, &UpstreamFetchError{Err: err}
		}
	}

	start := s.now()
	rec := models.FetchRecord{CreatedAt: start.UTC()}

	raw, err := s.list(ctx, ts, &rec)
	rec.LatencyMs = s.now().Sub(start).Milliseconds()
	if err != nil {
		rec.Outcome = models.FetchError
		rec.Error = err.Error()
		s.record(ctx, rec)
		s.logger.ErrorContext(ctx, "upstream review fetch failed",
			slog.String("account", rec.Account),
			slog.String("location", rec.Location),
			slog.Bool("unauthorized", upstream.IsUnauthorized(err)),
			slog.Any("error", err),
		)
		return nil, &UpstreamFetchError{Err: err}
	}

	records := FormatAll(raw)
	if err := s.reviews.Set(ctx, records); err != nil {
		s.logger.WarnContext(ctx, "cache reviews failed", slog.Any("error", err))
	}

	rec.Outcome = models.FetchOK
	rec.ReviewCount = len(records)
	s.record(ctx, rec)
	s.logger.InfoContext(ctx, "reviews refreshed",
		slog.String("location", rec.Location),
		slog.Int("count", len(records)),
		slog.Int64("latency_ms", rec.LatencyMs),
	)
	return records, nil
}

func (s *Service) list(ctx context.Context, ts models.TokenSet, rec *models.FetchRecord) ([]models.Review, error) {
	target, err := s.resolver.Resolve(ctx, ts)
	if err != nil {
		return nil, fmt.Errorf("resolve location: %w", err)
	}
	rec.Account, rec.Location = target.Account, target.Location
	return s.source.ListReviews(ctx, ts, target.Account, target.Location)
}

func (s *Service) record(ctx context.Context, rec models.FetchRecord) {
	if s.tracker == nil {
		return
	}
	if err := s.tracker.Record(ctx, rec); err != nil {
		s.logger.WarnContext(ctx, "record fetch failed", slog.Any("error", err))
	}
}

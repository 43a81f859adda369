package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/pario-ai/reviewd/pkg/audit"
	"github.com/pario-ai/reviewd/pkg/budget"
	"github.com/pario-ai/reviewd/pkg/cache"
	"github.com/pario-ai/reviewd/pkg/cache/memory"
	redisstore "github.com/pario-ai/reviewd/pkg/cache/redis"
	sqlitecache "github.com/pario-ai/reviewd/pkg/cache/sqlite"
	"github.com/pario-ai/reviewd/pkg/config"
	"github.com/pario-ai/reviewd/pkg/models"
	"github.com/pario-ai/reviewd/pkg/oauth"
	"github.com/pario-ai/reviewd/pkg/proxy"
	"github.com/pario-ai/reviewd/pkg/reviews"
	"github.com/pario-ai/reviewd/pkg/tracker"
	"github.com/pario-ai/reviewd/pkg/upstream"
)

const (
	tokensKey  = "tokens"
	reviewsKey = "reviews"
)

// app holds the wired service and everything that must be closed with it.
type app struct {
	server  *proxy.Server
	memory  *memory.Store
	closers []func() error
}

func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	return errors.Join(errs...)
}

// sweepMemory drops expired in-memory entries until ctx is done.
func (a *app) sweepMemory(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.memory.Cleanup()
		}
	}
}

// newManager builds the authorization manager over the token entry.
func newManager(cfg *config.Config, tokens oauth.TokenStore, logger *slog.Logger) (*oauth.Manager, error) {
	return oauth.New(cfg.OAuth, tokens, oauth.Options{
		HTTPClient: &http.Client{Timeout: cfg.Upstream.Timeout},
		Logger:     logger.With(slog.String("component", "oauth")),
	})
}

// newReviewStore opens the configured backend for the review list entry.
// Tokens never leave the in-memory store.
func newReviewStore(ctx context.Context, cfg *config.Config, mem *memory.Store, logger *slog.Logger) (cache.Store, func() error, error) {
	switch cfg.Cache.Backend {
	case config.BackendSQLite:
		c, err := sqlitecache.New(cfg.Cache.DBPath)
		if err != nil {
			return nil, nil, fmt.Errorf("init sqlite cache: %w", err)
		}
		return c, c.Close, nil
	case config.BackendRedis:
		s := redisstore.New(cfg.Cache.Redis)
		if err := s.Ping(ctx); err != nil {
			_ = s.Close()
			return nil, nil, fmt.Errorf("connect redis %s: %w", cfg.Cache.Redis.Addr, err)
		}
		logger.Info("review cache on redis", slog.String("addr", cfg.Cache.Redis.Addr))
		return s, s.Close, nil
	default:
		return mem, func() error { return nil }, nil
	}
}

// buildApp wires configuration into a ready-to-serve proxy.Server.
func buildApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{memory: memory.New()}
	fail := func(err error) (*app, error) {
		_ = a.Close()
		return nil, err
	}

	tokens := cache.NewEntry[models.TokenSet](a.memory, tokensKey, cfg.Cache.TokenTTL)

	store, closeStore, err := newReviewStore(ctx, cfg, a.memory, logger)
	if err != nil {
		return fail(err)
	}
	a.closers = append(a.closers, closeStore)
	reviewEntry := cache.NewEntry[[]models.ReviewRecord](store, reviewsKey, cfg.Cache.ReviewsTTL)

	manager, err := newManager(cfg, tokens, logger)
	if err != nil {
		return fail(err)
	}

	client, err := upstream.NewClient(upstream.Config{
		AccountManagementURL: cfg.Upstream.AccountManagementURL,
		BusinessInfoURL:      cfg.Upstream.BusinessInfoURL,
		ReviewsURL:           cfg.Upstream.ReviewsURL,
		PageSize:             cfg.Upstream.PageSize,
		Tokens:               manager,
		Logger:               logger.With(slog.String("component", "upstream")),
	})
	if err != nil {
		return fail(err)
	}

	var tr tracker.Tracker
	if cfg.Tracker.Enabled {
		t, err := tracker.New(cfg.Tracker.DBPath)
		if err != nil {
			return fail(fmt.Errorf("init tracker: %w", err))
		}
		a.closers = append(a.closers, t.Close)
		tr = t
	}

	var enforcer reviews.Budget
	if cfg.Budget.Enabled && tr != nil {
		enforcer = budget.New(cfg.Budget.Policies, tr)
	}

	svc, err := reviews.New(reviews.Config{
		Source:   client,
		Tokens:   tokens,
		Reviews:  reviewEntry,
		Resolver: reviews.NewResolver(cfg.Upstream.AccountID, cfg.Upstream.LocationID, client),
		Tracker:  tr,
		Budget:   enforcer,
		Logger:   logger.With(slog.String("component", "reviews")),
	})
	if err != nil {
		return fail(err)
	}

	var access proxy.AccessLog
	if cfg.Audit.Enabled {
		l, err := audit.New(cfg.Audit)
		if err != nil {
			return fail(fmt.Errorf("init audit log: %w", err))
		}
		a.closers = append(a.closers, l.Close)
		access = l
	}

	a.server = proxy.New(cfg, manager, svc, access, logger)
	return a, nil
}

// Package proxy is the HTTP boundary of reviewd: the authorization routes and
// the cached review endpoint.
package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/pario-ai/reviewd/pkg/config"
	"github.com/pario-ai/reviewd/pkg/models"
	"github.com/pario-ai/reviewd/pkg/reviews"
)

// CacheHeader reports whether /reviews was answered from the cache.
const CacheHeader = "X-Reviewd-Cache"

// Authorizer runs the authorization-code flow.
type Authorizer interface {
	AuthorizationURL() string
	Exchange(ctx context.Context, code string) (models.TokenSet, error)
}

// ReviewFetcher returns the current review list.
type ReviewFetcher interface {
	Fetch(ctx context.Context) (reviews.Result, error)
}

// AccessLog receives one entry per served request.
type AccessLog interface {
	Log(ctx context.Context, entry models.AccessEntry) error
}

// Server is the reviewd HTTP service.
type Server struct {
	cfg     *config.Config
	auth    Authorizer
	reviews ReviewFetcher
	access  AccessLog
	logger  *slog.Logger
	mux     *http.ServeMux
	handler http.Handler
}

// New creates a Server. access and logger may be nil.
func New(cfg *config.Config, auth Authorizer, rf ReviewFetcher, access AccessLog, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:     cfg,
		auth:    auth,
		reviews: rf,
		access:  access,
		logger:  logger,
		mux:     http.NewServeMux(),
	}
	s.mux.HandleFunc("GET /{$}", s.handleBanner)
	s.mux.HandleFunc("GET /auth", s.handleAuth)
	s.mux.HandleFunc("GET /oauth2callback", s.handleCallback)
	s.mux.HandleFunc("GET /reviews", s.handleReviews)

	s.handler = s.withRequestID(s.withAccessLog(s.withCORS(s.mux)))
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// ListenAndServe starts the server with graceful shutdown support.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("reviewd listening", slog.String("addr", s.cfg.Listen))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleBanner(w http.ResponseWriter, _ *http.Request) {
	writeText(w, http.StatusOK, s.cfg.Banner)
}

func (s *Server) handleAuth(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, s.auth.AuthorizationURL(), http.StatusFound)
}

func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		writeText(w, http.StatusBadRequest, "no code")
		return
	}

	if _, err := s.auth.Exchange(r.Context(), code); err != nil {
		s.logger.ErrorContext(r.Context(), "authorization failed",
			slog.String("request_id", RequestID(r.Context())),
			slog.Any("error", err),
		)
		writeText(w, http.StatusInternalServerError, "Auth failed")
		return
	}
	writeText(w, http.StatusOK, "Authorization successful. You can close this tab.")
}

func (s *Server) handleReviews(w http.ResponseWriter, r *http.Request) {
	res, err := s.reviews.Fetch(r.Context())
	if err != nil {
		var nae *reviews.NotAuthorizedError
		if errors.As(err, &nae) {
			writeText(w, http.StatusUnauthorized, "Not authorized")
			return
		}
		s.logger.ErrorContext(r.Context(), "fetch reviews failed",
			slog.String("request_id", RequestID(r.Context())),
			slog.Any("error", err),
		)
		writeText(w, http.StatusInternalServerError, "Error fetching reviews")
		return
	}

	body, err := json.Marshal(res.Reviews)
	if err != nil {
		writeText(w, http.StatusInternalServerError, "Error fetching reviews")
		return
	}

	cache := "miss"
	if res.Cached {
		cache = "hit"
	}
	w.Header().Set(CacheHeader, cache)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func writeText(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(code)
	_, _ = w.Write([]byte(message))
}

// Package oauth drives the three-legged OAuth2 handshake with the business
// profile authorization server and owns the stored TokenSet.
package oauth

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/pario-ai/reviewd/pkg/config"
	"github.com/pario-ai/reviewd/pkg/models"
)

// TokenStore holds the current TokenSet.
type TokenStore interface {
	Get(ctx context.Context) (models.TokenSet, bool, error)
	Set(ctx context.Context, ts models.TokenSet) error
}

// Options are optional Manager dependencies.
type Options struct {
	// HTTPClient is used for token exchange and as the base of upstream clients.
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Manager builds consent URLs, exchanges codes and hands out bearer clients.
type Manager struct {
	oauth  *oauth2.Config
	tokens TokenStore
	base   *http.Client
	logger *slog.Logger
}

// New creates a Manager. Client id, secret and redirect URL are required.
func New(cfg config.OAuthConfig, tokens TokenStore, opts Options) (*Manager, error) {
	if cfg.ClientID == "" {
		return nil, fmt.Errorf("oauth client id is required")
	}
	if cfg.ClientSecret == "" {
		return nil, fmt.Errorf("oauth client secret is required")
	}
	if cfg.RedirectURL == "" {
		return nil, fmt.Errorf("oauth redirect url is required")
	}
	if tokens == nil {
		return nil, fmt.Errorf("token store is required")
	}

	endpoint := google.Endpoint
	if cfg.AuthURL != "" {
		endpoint.AuthURL = cfg.AuthURL
	}
	if cfg.TokenURL != "" {
		endpoint.TokenURL = cfg.TokenURL
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Manager{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     endpoint,
			Scopes:       []string{config.BusinessManageScope},
		},
		tokens: tokens,
		base:   opts.HTTPClient,
		logger: logger,
	}, nil
}

// AuthorizationURL returns the consent screen URL. Offline access and a
// forced consent prompt make the server issue a refresh token every time.
func (m *Manager) AuthorizationURL() string {
	return m.oauth.AuthCodeURL("", oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// Exchange trades an authorization code for a TokenSet and stores it,
// replacing any previous one.
func (m *Manager) Exchange(ctx context.Context, code string) (models.TokenSet, error) {
	if code == "" {
		return models.TokenSet{}, &AuthExchangeError{Reason: "missing code"}
	}

	tok, err := m.oauth.Exchange(m.withBase(ctx), code)
	if err != nil {
		return models.TokenSet{}, &AuthExchangeError{Reason: "token endpoint rejected code", Err: err}
	}

	ts := fromOAuth2(tok)
	if !ts.Valid() {
		return models.TokenSet{}, &AuthExchangeError{Reason: "empty access token"}
	}
	if err := m.tokens.Set(ctx, ts); err != nil {
		return models.TokenSet{}, fmt.Errorf("store token: %w", err)
	}

	m.logger.InfoContext(ctx, "authorization stored",
		slog.Bool("refresh_token", ts.RefreshToken != ""),
		slog.Time("expiry", ts.Expiry),
	)
	return ts, nil
}

// Token returns the stored TokenSet, if any.
func (m *Manager) Token(ctx context.Context) (models.TokenSet, bool, error) {
	return m.tokens.Get(ctx)
}

// HTTPClient returns a client that sends ts as a bearer token. The token is
// never refreshed; an expired token surfaces as an upstream rejection.
func (m *Manager) HTTPClient(ctx context.Context, ts models.TokenSet) *http.Client {
	c := oauth2.NewClient(m.withBase(ctx), oauth2.StaticTokenSource(toOAuth2(ts)))
	if m.base != nil {
		// oauth2 only keeps the base transport.
		c.Timeout = m.base.Timeout
	}
	return c
}

func (m *Manager) withBase(ctx context.Context) context.Context {
	if m.base == nil {
		return ctx
	}
	return context.WithValue(ctx, oauth2.HTTPClient, m.base)
}

func fromOAuth2(tok *oauth2.Token) models.TokenSet {
	return models.TokenSet{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
		Expiry:       tok.Expiry,
	}
}

func toOAuth2(ts models.TokenSet) *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  ts.AccessToken,
		RefreshToken: ts.RefreshToken,
		TokenType:    ts.TokenType,
		Expiry:       ts.Expiry,
	}
}

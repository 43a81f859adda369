// Package upstream talks to the Google Business Profile APIs on behalf of an
// explicitly supplied TokenSet.
package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/pario-ai/reviewd/pkg/audit"
	"github.com/pario-ai/reviewd/pkg/models"
)

// maxResponseBytes caps how much of an upstream body is read.
var maxResponseBytes int64 = 8 << 20

// Source lists the accounts, locations and reviews visible to a token.
type Source interface {
	ListAccounts(ctx context.Context, ts models.TokenSet) ([]models.Account, error)
	ListLocations(ctx context.Context, ts models.TokenSet, account string) ([]models.Location, error)
	ListReviews(ctx context.Context, ts models.TokenSet, account, location string) ([]models.Review, error)
}

// TokenClient returns an HTTP client that authenticates with ts.
type TokenClient interface {
	HTTPClient(ctx context.Context, ts models.TokenSet) *http.Client
}

// Config configures a Client.
type Config struct {
	AccountManagementURL string
	BusinessInfoURL      string
	ReviewsURL           string
	PageSize             int
	Tokens               TokenClient
	Logger               *slog.Logger
}

// Client implements Source over the REST endpoints.
type Client struct {
	accountsURL string
	infoURL     string
	reviewsURL  string
	pageSize    int
	tokens      TokenClient
	logger      *slog.Logger
}

// NewClient validates cfg and creates a Client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Tokens == nil {
		return nil, fmt.Errorf("token client is required")
	}
	for name, raw := range map[string]string{
		"account management": cfg.AccountManagementURL,
		"business info":      cfg.BusinessInfoURL,
		"reviews":            cfg.ReviewsURL,
	} {
		if _, err := url.ParseRequestURI(raw); err != nil {
			return nil, fmt.Errorf("invalid %s url %q: %w", name, raw, err)
		}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		accountsURL: strings.TrimSuffix(cfg.AccountManagementURL, "/"),
		infoURL:     strings.TrimSuffix(cfg.BusinessInfoURL, "/"),
		reviewsURL:  strings.TrimSuffix(cfg.ReviewsURL, "/"),
		pageSize:    cfg.PageSize,
		tokens:      cfg.Tokens,
		logger:      logger,
	}, nil
}

// ListAccounts returns the accounts the token can manage.
func (c *Client) ListAccounts(ctx context.Context, ts models.TokenSet) ([]models.Account, error) {
	var resp models.ListAccountsResponse
	if err := c.get(ctx, ts, c.accountsURL+"/accounts", nil, &resp); err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	return resp.Accounts, nil
}

// ListLocations returns the locations of an account.
func (c *Client) ListLocations(ctx context.Context, ts models.TokenSet, account string) ([]models.Location, error) {
	query := url.Values{"readMask": {"name,title"}}
	var resp models.ListLocationsResponse
	if err := c.get(ctx, ts, c.infoURL+"/"+AccountName(account)+"/locations", query, &resp); err != nil {
		return nil, fmt.Errorf("list locations: %w", err)
	}
	return resp.Locations, nil
}

// ListReviews returns the first page of reviews of a location, newest first.
func (c *Client) ListReviews(ctx context.Context, ts models.TokenSet, account, location string) ([]models.Review, error) {
	query := url.Values{"orderBy": {"updateTime desc"}}
	if c.pageSize > 0 {
		query.Set("pageSize", strconv.Itoa(c.pageSize))
	}
	var resp models.ListReviewsResponse
	if err := c.get(ctx, ts, c.reviewsURL+"/"+ReviewsParent(account, location)+"/reviews", query, &resp); err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	return resp.Reviews, nil
}

func (c *Client) get(ctx context.Context, ts models.TokenSet, rawURL string, query url.Values, out any) error {
	if len(query) > 0 {
		rawURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	logURL := audit.RedactURL(rawURL)
	c.logger.DebugContext(ctx, "upstream request", slog.String("url", logURL))

	resp, err := c.tokens.HTTPClient(ctx, ts).Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if int64(len(body)) > maxResponseBytes {
		return fmt.Errorf("upstream response exceeds %d bytes", maxResponseBytes)
	}

	c.logger.DebugContext(ctx, "upstream response",
		slog.String("url", logURL),
		slog.Int("status", resp.StatusCode),
		slog.Int("bytes", len(body)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp.StatusCode, body)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return &ResponseParseError{Body: body, Err: err}
	}
	return nil
}

func decodeAPIError(statusCode int, body []byte) error {
	var envelope struct {
		Error *APIError `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error != nil {
		envelope.Error.StatusCode = statusCode
		return envelope.Error
	}
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = http.StatusText(statusCode)
	}
	return &APIError{StatusCode: statusCode, Message: msg}
}

// AccountName normalises an account id to "accounts/{id}".
func AccountName(id string) string {
	if strings.HasPrefix(id, "accounts/") {
		return id
	}
	return "accounts/" + id
}

// LocationName normalises a location id to "locations/{id}".
func LocationName(id string) string {
	if i := strings.Index(id, "locations/"); i >= 0 {
		return id[i:]
	}
	return "locations/" + id
}

// ReviewsParent builds "accounts/{a}/locations/{l}" as the reviews API expects.
func ReviewsParent(account, location string) string {
	if strings.HasPrefix(location, "accounts/") {
		return location
	}
	return AccountName(account) + "/" + LocationName(location)
}

var _ Source = (*Client)(nil)

package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pario-ai/reviewd/pkg/models"
)

type bearerTransport struct {
	token string
	base  http.RoundTripper
}

func (t *bearerTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	r = r.Clone(r.Context())
	r.Header.Set("Authorization", "Bearer "+t.token)
	return t.base.RoundTrip(r)
}

type staticTokens struct{}

func (staticTokens) HTTPClient(_ context.Context, ts models.TokenSet) *http.Client {
	return &http.Client{Transport: &bearerTransport{token: ts.AccessToken, base: http.DefaultTransport}}
}

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	c, err := NewClient(Config{
		AccountManagementURL: srv.URL + "/acct/v1",
		BusinessInfoURL:      srv.URL + "/info/v1/",
		ReviewsURL:           srv.URL + "/v4",
		PageSize:             20,
		Tokens:               staticTokens{},
	})
	require.NoError(t, err)
	return c
}

func TestNewClientValidation(t *testing.T) {
	_, err := NewClient(Config{})
	assert.Error(t, err, "missing token client")

	_, err = NewClient(Config{Tokens: staticTokens{}, AccountManagementURL: "::bad", BusinessInfoURL: "http://x", ReviewsURL: "http://x"})
	assert.Error(t, err, "bad url")
}

func TestListAccountsLocationsReviews(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		paths = append(paths, r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/acct/v1/accounts":
			_ = json.NewEncoder(w).Encode(models.ListAccountsResponse{Accounts: []models.Account{{Name: "accounts/111"}}})
		case "/info/v1/accounts/111/locations":
			assert.Equal(t, "name,title", r.URL.Query().Get("readMask"))
			_ = json.NewEncoder(w).Encode(models.ListLocationsResponse{Locations: []models.Location{{Name: "locations/222"}}})
		case "/v4/accounts/111/locations/222/reviews":
			assert.Equal(t, "20", r.URL.Query().Get("pageSize"))
			assert.Equal(t, "updateTime desc", r.URL.Query().Get("orderBy"))
			_, _ = w.Write([]byte(`{"reviews":[{"reviewer":{"displayName":"Jane"},"starRating":"FIVE","createTime":"2024-01-01T00:00:00Z"}],"totalReviewCount":1}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	ctx := context.Background()
	ts := models.TokenSet{AccessToken: "tok-1"}

	accounts, err := c.ListAccounts(ctx, ts)
	require.NoError(t, err)
	require.Len(t, accounts, 1)

	locations, err := c.ListLocations(ctx, ts, accounts[0].Name)
	require.NoError(t, err)
	require.Len(t, locations, 1)

	reviews, err := c.ListReviews(ctx, ts, accounts[0].Name, locations[0].Name)
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	assert.Equal(t, "Jane", reviews[0].Reviewer.DisplayName)
	assert.Equal(t, "FIVE", reviews[0].StarRating)

	assert.Equal(t, []string{
		"/acct/v1/accounts",
		"/info/v1/accounts/111/locations",
		"/v4/accounts/111/locations/222/reviews",
	}, paths)
}

func TestAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"code":401,"message":"Request had invalid authentication credentials.","status":"UNAUTHENTICATED"}}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	_, err := c.ListReviews(context.Background(), models.TokenSet{AccessToken: "expired"}, "1", "2")
	require.Error(t, err)

	var ae *APIError
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, http.StatusUnauthorized, ae.StatusCode)
	assert.Equal(t, "UNAUTHENTICATED", ae.Status)
	assert.True(t, IsUnauthorized(err))
}

func TestAPIErrorPlainBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	_, err := c.ListAccounts(context.Background(), models.TokenSet{AccessToken: "t"})

	var ae *APIError
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, http.StatusBadGateway, ae.StatusCode)
	assert.Equal(t, "Bad Gateway", ae.Message)
	assert.False(t, IsUnauthorized(err))
}

func TestMalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>oops</html>`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	_, err := c.ListAccounts(context.Background(), models.TokenSet{AccessToken: "t"})

	var pe *ResponseParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, []byte(`<html>oops</html>`), pe.Body)
}

func TestOversizedResponse(t *testing.T) {
	prev := maxResponseBytes
	maxResponseBytes = 64
	t.Cleanup(func() { maxResponseBytes = prev })

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"accounts":[{"name":"accounts/` + strings.Repeat("1", 128) + `"}]}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	_, err := c.ListAccounts(context.Background(), models.TokenSet{AccessToken: "t"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds 64 bytes")
}

func TestNames(t *testing.T) {
	tests := []struct {
		account, location, want string
	}{
		{"111", "222", "accounts/111/locations/222"},
		{"accounts/111", "locations/222", "accounts/111/locations/222"},
		{"accounts/111", "accounts/111/locations/222", "accounts/111/locations/222"},
		{"111", "locations/222", "accounts/111/locations/222"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ReviewsParent(tt.account, tt.location))
	}
	assert.Equal(t, "locations/9", LocationName("accounts/1/locations/9"))
}

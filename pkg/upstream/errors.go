package upstream

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError is a non-2xx response from a business profile API.
type APIError struct {
	StatusCode int    `json:"code"`
	Status     string `json:"status"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("upstream error: [%d %s] %s", e.StatusCode, e.Status, e.Message)
	}
	return fmt.Sprintf("upstream error: [%d] %s", e.StatusCode, e.Message)
}

// IsUnauthorized reports whether err is an upstream rejection of the
// bearer token (expired, revoked or missing scope).
func IsUnauthorized(err error) bool {
	var ae *APIError
	if errors.As(err, &ae) {
		return ae.StatusCode == http.StatusUnauthorized || ae.StatusCode == http.StatusForbidden
	}
	return false
}

// ResponseParseError is returned when a response body is not the expected JSON.
type ResponseParseError struct {
	Body []byte
	Err  error
}

func (e *ResponseParseError) Error() string {
	return fmt.Sprintf("failed to parse response: %v", e.Err)
}

func (e *ResponseParseError) Unwrap() error {
	return e.Err
}

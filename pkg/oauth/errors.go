package oauth

import "fmt"

// AuthExchangeError is returned when an authorization code cannot be
// exchanged: missing, expired, reused, malformed or rejected.
type AuthExchangeError struct {
	Reason string
	Err    error
}

func (e *AuthExchangeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("auth exchange failed: %s: %v", e.Reason, e.Err)
	}
	return "auth exchange failed: " + e.Reason
}

func (e *AuthExchangeError) Unwrap() error {
	return e.Err
}

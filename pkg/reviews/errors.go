package reviews

import "fmt"

// NotAuthorizedError reports that no usable token is stored. The caller has
// to complete the authorization flow first.
type NotAuthorizedError struct{}

func (*NotAuthorizedError) Error() string {
	return "not authorized: visit the authorize endpoint first"
}

// ErrNotAuthorized is the NotAuthorizedError returned by the Service.
var ErrNotAuthorized error = &NotAuthorizedError{}

// UpstreamFetchError wraps any failure of the upstream review listing.
type UpstreamFetchError struct {
	Err error
}

func (e *UpstreamFetchError) Error() string {
	return fmt.Sprintf("upstream fetch failed: %v", e.Err)
}

func (e *UpstreamFetchError) Unwrap() error {
	return e.Err
}

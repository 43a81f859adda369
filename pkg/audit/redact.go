package audit

import (
	"net/url"
	"strings"
)

const redactedValue = "***"

var sensitiveQueryKeys = map[string]struct{}{
	"access_token":  {},
	"authorization": {},
	"client_secret": {},
	"code":          {},
	"id_token":      {},
	"refresh_token": {},
	"secret":        {},
	"token":         {},
}

// RedactURL replaces the values of sensitive query parameters with "***".
// Unparseable input is returned unchanged.
func RedactURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.RawQuery == "" {
		return rawURL
	}
	parsed.RawQuery = RedactQuery(parsed.Query()).Encode()
	return parsed.String()
}

// RedactQuery returns a copy of query with sensitive values replaced.
func RedactQuery(query url.Values) url.Values {
	out := make(url.Values, len(query))
	for key, values := range query {
		if !isSensitiveQueryKey(key) {
			out[key] = append([]string(nil), values...)
			continue
		}
		redacted := make([]string, len(values))
		for i := range redacted {
			redacted[i] = redactedValue
		}
		out[key] = redacted
	}
	return out
}

func isSensitiveQueryKey(key string) bool {
	_, ok := sensitiveQueryKeys[strings.ToLower(key)]
	return ok
}

package store

import (
	"net/http"

	"github.com/simaofelgueirasJM/flipper/internal/model"
)

// RedactedValue replaces the value of sensitive headers.
const RedactedValue = "[REDACTED]"

var sensitiveHeaders = map[string]struct{}{
	"Authorization":       {},
	"Proxy-Authorization": {},
	"Cookie":              {},
	"Set-Cookie":          {},
	"X-Api-Key":           {},
	"X-Auth-Token":        {},
}

// RedactHeaders returns a copy of headers with sensitive values replaced.
// Entries keep their names and positions.
func RedactHeaders(headers []model.Header) []model.Header {
	out := make([]model.Header, len(headers))
	for i, h := range headers {
		out[i] = h
		if _, ok := sensitiveHeaders[http.CanonicalHeaderKey(h.Name)]; ok {
			out[i].Value = RedactedValue
		}
	}
	return out
}

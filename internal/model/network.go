package model

import (
	"net/http"
	"sort"
	"time"
)

// Header is one captured header entry. Captured header lists keep repeated
// names as separate entries.
type Header struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// RequestInfo is the snapshot of an outbound request taken before it is sent.
type RequestInfo struct {
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
	Method    string    `json:"method"`
	URL       string    `json:"url"`
	Headers   []Header  `json:"headers"`
	// Body is nil when the request carried no body.
	Body []byte `json:"body,omitempty"`
}

// ResponseInfo is the snapshot of the response matching a RequestInfo.
type ResponseInfo struct {
	RequestID  string    `json:"request_id"`
	Timestamp  time.Time `json:"timestamp"`
	StatusCode int       `json:"status_code"`
	Headers    []Header  `json:"headers"`
	Body       []byte    `json:"body,omitempty"`
	// BodyError holds the read failure when the body could not be captured.
	// Body is nil whenever BodyError is set.
	BodyError string `json:"body_error,omitempty"`
}

// Transaction pairs a captured request with its response, if one arrived.
type Transaction struct {
	Request  RequestInfo   `json:"request"`
	Response *ResponseInfo `json:"response,omitempty"`
}

// Duration is the time between capture of the request and the response.
// It is zero while the response is missing.
func (t Transaction) Duration() time.Duration {
	if t.Response == nil {
		return 0
	}
	return t.Response.Timestamp.Sub(t.Request.Timestamp)
}

// FlattenHeaders converts an http.Header into an ordered list of entries.
// Names are emitted in sorted order; values of a repeated name keep their
// original order and each becomes its own entry.
func FlattenHeaders(h http.Header) []Header {
	if len(h) == 0 {
		return []Header{}
	}
	names := make([]string, 0, len(h))
	n := 0
	for name, vs := range h {
		names = append(names, name)
		n += len(vs)
	}
	sort.Strings(names)

	out := make([]Header, 0, n)
	for _, name := range names {
		for _, v := range h[name] {
			out = append(out, Header{Name: name, Value: v})
		}
	}
	return out
}

// HeaderValues returns every value recorded for name (case-insensitive).
func HeaderValues(headers []Header, name string) []string {
	canon := http.CanonicalHeaderKey(name)
	var out []string
	for _, h := range headers {
		if http.CanonicalHeaderKey(h.Name) == canon {
			out = append(out, h.Value)
		}
	}
	return out
}

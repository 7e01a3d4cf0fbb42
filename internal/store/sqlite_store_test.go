package store_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/simaofelgueirasJM/flipper/internal/logging"
	"github.com/simaofelgueirasJM/flipper/internal/model"
	"github.com/simaofelgueirasJM/flipper/internal/store"
)

func newTestStore(t *testing.T, cfg *store.Config) *store.SQLiteStore {
	t.Helper()
	if cfg == nil {
		cfg = &store.Config{}
	}
	cfg.StoragePath = t.TempDir()
	s, err := store.NewSQLiteStore(logging.NopLogger{}, cfg)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

var baseTime = time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC)

func request(id, method, url string, offset time.Duration, body []byte) model.RequestInfo {
	return model.RequestInfo{
		RequestID: id,
		Timestamp: baseTime.Add(offset),
		Method:    method,
		URL:       url,
		Headers:   []model.Header{{Name: "Accept", Value: "*/*"}},
		Body:      body,
	}
}

func TestNewSQLiteStore_Validation(t *testing.T) {
	t.Parallel()
	if _, err := store.NewSQLiteStore(nil, &store.Config{StoragePath: t.TempDir()}); !errors.Is(err, store.ErrNilLogger) {
		t.Errorf("expected ErrNilLogger, got %v", err)
	}
	if _, err := store.NewSQLiteStore(logging.NopLogger{}, &store.Config{}); !errors.Is(err, store.ErrNoStorage) {
		t.Errorf("expected ErrNoStorage, got %v", err)
	}
}

func TestSQLiteStore_SaveAndGetTransaction(t *testing.T) {
	t.Parallel()
	s := newTestStore(t, nil)
	ctx := context.Background()

	req := request("tx-1", "POST", "http://x/y", 0, []byte(`{"a":1}`))
	if err := s.SaveRequest(ctx, req); err != nil {
		t.Fatalf("SaveRequest: %v", err)
	}
	resp := model.ResponseInfo{
		RequestID:  "tx-1",
		Timestamp:  baseTime.Add(40 * time.Millisecond),
		StatusCode: 201,
		Headers: []model.Header{
			{Name: "Content-Type", Value: "application/json"},
			{Name: "X-Trace", Value: "1"},
			{Name: "X-Trace", Value: "2"},
		},
		Body: []byte(`{"ok":true}`),
	}
	if err := s.SaveResponse(ctx, resp); err != nil {
		t.Fatalf("SaveResponse: %v", err)
	}

	tx, err := s.Get(ctx, "tx-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if tx.Request.Method != "POST" || tx.Request.URL != "http://x/y" {
		t.Errorf("unexpected request: %+v", tx.Request)
	}
	if string(tx.Request.Body) != `{"a":1}` {
		t.Errorf("unexpected request body %q", tx.Request.Body)
	}
	if !tx.Request.Timestamp.Equal(req.Timestamp) {
		t.Errorf("timestamp round trip: got %v want %v", tx.Request.Timestamp, req.Timestamp)
	}
	if tx.Response == nil {
		t.Fatal("expected response")
	}
	if tx.Response.StatusCode != 201 || string(tx.Response.Body) != `{"ok":true}` {
		t.Errorf("unexpected response: %+v", tx.Response)
	}
	if got := model.HeaderValues(tx.Response.Headers, "X-Trace"); len(got) != 2 || got[0] != "1" || got[1] != "2" {
		t.Errorf("repeated header lost: %v", got)
	}
	if tx.Duration() != 40*time.Millisecond {
		t.Errorf("unexpected duration %v", tx.Duration())
	}
}

func TestSQLiteStore_NilVersusEmptyBody(t *testing.T) {
	t.Parallel()
	s := newTestStore(t, nil)
	ctx := context.Background()

	if err := s.SaveRequest(ctx, request("nil", "GET", "http://x/a", 0, nil)); err != nil {
		t.Fatalf("SaveRequest: %v", err)
	}
	if err := s.SaveRequest(ctx, request("empty", "POST", "http://x/b", 0, []byte{})); err != nil {
		t.Fatalf("SaveRequest: %v", err)
	}

	tx, err := s.Get(ctx, "nil")
	if err != nil {
		t.Fatalf("Get nil: %v", err)
	}
	if tx.Request.Body != nil {
		t.Errorf("expected nil body, got %q", tx.Request.Body)
	}
	if tx.Response != nil {
		t.Errorf("expected no response yet")
	}

	tx, err = s.Get(ctx, "empty")
	if err != nil {
		t.Fatalf("Get empty: %v", err)
	}
	if tx.Request.Body == nil || len(tx.Request.Body) != 0 {
		t.Errorf("expected empty non-nil body, got %#v", tx.Request.Body)
	}
}

func TestSQLiteStore_GetUnknown(t *testing.T) {
	t.Parallel()
	s := newTestStore(t, nil)
	if _, err := s.Get(context.Background(), "nope"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSQLiteStore_BodyErrorRoundTrip(t *testing.T) {
	t.Parallel()
	s := newTestStore(t, nil)
	ctx := context.Background()

	s.ReportRequest(request("e1", "GET", "http://x/y", 0, nil))
	s.ReportResponse(model.ResponseInfo{RequestID: "e1", Timestamp: baseTime, StatusCode: 200, BodyError: "unexpected EOF"})

	tx, err := s.Get(ctx, "e1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if tx.Response.BodyError != "unexpected EOF" || tx.Response.Body != nil {
		t.Errorf("unexpected response: %+v", tx.Response)
	}
}

func TestSQLiteStore_RedactsSensitiveHeaders(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	req := request("r1", "GET", "http://x/y", 0, nil)
	req.Headers = append(req.Headers,
		model.Header{Name: "Authorization", Value: "Bearer secret"},
		model.Header{Name: "cookie", Value: "sid=1"})

	redacting := newTestStore(t, nil)
	if err := redacting.SaveRequest(ctx, req); err != nil {
		t.Fatalf("SaveRequest: %v", err)
	}
	tx, _ := redacting.Get(ctx, "r1")
	if got := model.HeaderValues(tx.Request.Headers, "Authorization"); got[0] != store.RedactedValue {
		t.Errorf("expected redacted Authorization, got %v", got)
	}
	if got := model.HeaderValues(tx.Request.Headers, "Cookie"); got[0] != store.RedactedValue {
		t.Errorf("expected redacted Cookie, got %v", got)
	}
	if got := model.HeaderValues(tx.Request.Headers, "Accept"); got[0] != "*/*" {
		t.Errorf("non-sensitive header changed: %v", got)
	}

	off := false
	plain := newTestStore(t, &store.Config{RedactSensitiveHeaders: &off})
	if err := plain.SaveRequest(ctx, req); err != nil {
		t.Fatalf("SaveRequest: %v", err)
	}
	tx, _ = plain.Get(ctx, "r1")
	if got := model.HeaderValues(tx.Request.Headers, "Authorization"); got[0] != "Bearer secret" {
		t.Errorf("expected raw Authorization with redaction off, got %v", got)
	}
	if req.Headers[1].Value != "Bearer secret" {
		t.Error("redaction mutated the caller's record")
	}
}

func TestSQLiteStore_MaxBodyBytes(t *testing.T) {
	t.Parallel()
	s := newTestStore(t, &store.Config{MaxBodyBytes: 3})
	ctx := context.Background()
	if err := s.SaveRequest(ctx, request("big", "POST", "http://x/y", 0, []byte("abcdef"))); err != nil {
		t.Fatalf("SaveRequest: %v", err)
	}
	tx, _ := s.Get(ctx, "big")
	if string(tx.Request.Body) != "abc" {
		t.Errorf("expected truncated body, got %q", tx.Request.Body)
	}
}

func TestSQLiteStore_ListFiltersAndOrder(t *testing.T) {
	t.Parallel()
	s := newTestStore(t, nil)
	ctx := context.Background()

	reqs := []model.RequestInfo{
		request("a", "GET", "http://api.example.com/1", 1*time.Second, nil),
		request("b", "POST", "http://api.example.com/2", 2*time.Second, nil),
		request("c", "GET", "http://other.test/3", 3*time.Second, nil),
		request("d", "GET", "http://bücher.example/4", 4*time.Second, nil),
	}
	for _, r := range reqs {
		if err := s.SaveRequest(ctx, r); err != nil {
			t.Fatalf("SaveRequest %s: %v", r.RequestID, err)
		}
	}

	ids := func(txs []*model.Transaction) string {
		out := ""
		for _, tx := range txs {
			out += tx.Request.RequestID
		}
		return out
	}

	tests := []struct {
		name string
		opts store.ListOptions
		want string
	}{
		{"all newest first", store.ListOptions{}, "dcba"},
		{"limit", store.ListOptions{Limit: 2}, "dc"},
		{"host", store.ListOptions{Host: "API.example.com"}, "ba"},
		{"method", store.ListOptions{Method: "post"}, "b"},
		{"host and method", store.ListOptions{Host: "api.example.com", Method: "GET"}, "a"},
		{"unicode host", store.ListOptions{Host: "xn--bcher-kva.example"}, "d"},
		{"unicode host typed natively", store.ListOptions{Host: "BÜCHER.example"}, "d"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.List(ctx, tt.opts)
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if ids(got) != tt.want {
				t.Errorf("got %q, want %q", ids(got), tt.want)
			}
		})
	}
}

func TestSQLiteStore_Clear(t *testing.T) {
	t.Parallel()
	s := newTestStore(t, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		id := fmt.Sprintf("id-%d", i)
		s.ReportRequest(request(id, "POST", "http://x/y", time.Duration(i), []byte(id)))
		s.ReportResponse(model.ResponseInfo{RequestID: id, Timestamp: baseTime, StatusCode: 200, Body: []byte("ok")})
	}
	if err := s.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	got, err := s.List(ctx, store.ListOptions{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty store, got %d", len(got))
	}
}

func TestSQLiteStore_DiffBodies(t *testing.T) {
	t.Parallel()
	s := newTestStore(t, nil)
	ctx := context.Background()

	for _, r := range []struct{ id, body string }{
		{"v1", `{"name":"alice","role":"user"}`},
		{"v2", `{"name":"alice","role":"admin"}`},
	} {
		s.ReportRequest(request(r.id, "GET", "http://x/me", 0, nil))
		s.ReportResponse(model.ResponseInfo{RequestID: r.id, Timestamp: baseTime, StatusCode: 200, Body: []byte(r.body)})
	}
	s.ReportRequest(request("pending", "GET", "http://x/me", 0, nil))

	res, err := s.DiffBodies(ctx, "v1", "v2")
	if err != nil {
		t.Fatalf("DiffBodies: %v", err)
	}
	var added, removed string
	for _, c := range res.Chunks {
		switch c.Type {
		case "added":
			added += c.Content
		case "removed":
			removed += c.Content
		}
	}
	if added != "admin" || removed != "user" {
		t.Errorf("unexpected diff: added=%q removed=%q (%+v)", added, removed, res.Chunks)
	}

	if _, err := s.DiffBodies(ctx, "v1", "pending"); !errors.Is(err, store.ErrNoResponse) {
		t.Errorf("expected ErrNoResponse, got %v", err)
	}
	if _, err := s.DiffBodies(ctx, "v1", "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

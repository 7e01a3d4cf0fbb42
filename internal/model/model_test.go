package model_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/simaofelgueirasJM/flipper/internal/model"
)

func TestFlattenHeaders_KeepsDuplicatesInOrder(t *testing.T) {
	t.Parallel()
	h := http.Header{}
	h.Add("Set-Cookie", "a=1")
	h.Add("Set-Cookie", "b=2")
	h.Add("Accept", "*/*")

	got := model.FlattenHeaders(h)
	want := []model.Header{
		{Name: "Accept", Value: "*/*"},
		{Name: "Set-Cookie", Value: "a=1"},
		{Name: "Set-Cookie", Value: "b=2"},
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d entries, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("entry %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestFlattenHeaders_Empty(t *testing.T) {
	t.Parallel()
	got := model.FlattenHeaders(nil)
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", got)
	}
}

func TestHeaderValues_CaseInsensitive(t *testing.T) {
	t.Parallel()
	headers := []model.Header{
		{Name: "Set-Cookie", Value: "a=1"},
		{Name: "set-cookie", Value: "b=2"},
		{Name: "Accept", Value: "*/*"},
	}
	got := model.HeaderValues(headers, "SET-COOKIE")
	if len(got) != 2 || got[0] != "a=1" || got[1] != "b=2" {
		t.Fatalf("unexpected values: %v", got)
	}
}

func TestRect_Geometry(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name        string
		outer       model.Rect
		inner       model.Rect
		wantContain bool
	}{
		{"nested", model.NewRect(0, 0, 100, 100), model.NewRect(10, 10, 90, 90), true},
		{"same", model.NewRect(0, 0, 10, 10), model.NewRect(0, 0, 10, 10), true},
		{"overflow", model.NewRect(0, 0, 10, 10), model.NewRect(5, 5, 15, 8), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.outer.Contains(tt.inner); got != tt.wantContain {
				t.Errorf("Contains = %v, want %v", got, tt.wantContain)
			}
		})
	}

	r := model.NewRect(10, 20, 40, 70)
	if r.Width() != 30 || r.Height() != 50 {
		t.Errorf("unexpected size %dx%d", r.Width(), r.Height())
	}
	if r.Empty() || !model.NewRect(5, 5, 5, 9).Empty() {
		t.Error("Empty misreported")
	}
}

func TestBoundsSet_Nested(t *testing.T) {
	t.Parallel()
	b := model.BoundsSet{
		Margin:  model.NewRect(0, 0, 100, 100),
		Padding: model.NewRect(5, 5, 95, 95),
		Content: model.NewRect(10, 10, 90, 90),
	}
	if !b.Nested() {
		t.Error("expected nested bounds")
	}
	b.Content = model.NewRect(0, 0, 100, 100)
	if b.Nested() {
		t.Error("content larger than padding should not be nested")
	}
}

func TestTransaction_Duration(t *testing.T) {
	t.Parallel()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tx := model.Transaction{Request: model.RequestInfo{Timestamp: start}}
	if tx.Duration() != 0 {
		t.Errorf("expected zero duration without response")
	}
	tx.Response = &model.ResponseInfo{Timestamp: start.Add(250 * time.Millisecond)}
	if tx.Duration() != 250*time.Millisecond {
		t.Errorf("unexpected duration %v", tx.Duration())
	}
}

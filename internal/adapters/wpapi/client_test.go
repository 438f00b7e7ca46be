package wpapi_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"review_blocks/internal/adapters/wpapi"
	"review_blocks/internal/domain"
)

func TestClient_GetRowsPage_RetriesThenSuccess(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch atomic.AddInt32(&hits, 1) {
		case 1:
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
		case 2:
			w.WriteHeader(500)
		default:
			if r.URL.Path != "/fields/12/client_testimonials" || r.URL.Query().Get("page") != "1" {
				t.Errorf("unexpected request %s", r.URL)
			}
			if r.Header.Get("Authorization") != "Bearer test-key" {
				t.Errorf("missing auth header")
			}
			_ = json.NewEncoder(w).Encode(map[string]any{
				"rows": []any{map[string]any{"reviewer_name": "Jo", "rating_number": 4}},
			})
		}
	}))
	defer ts.Close()

	cl, err := wpapi.New(ts.URL, "test-key", 100) // high RPS for tests
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	got, err := cl.GetRowsPage(ctx, "12", "client_testimonials", 1)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(got.Rows) != 1 || got.Rows[0]["rating_number"] != json.Number("4") {
		t.Fatalf("unexpected payload: %+v", got)
	}
	if atomic.LoadInt32(&hits) < 3 {
		t.Fatalf("expected at least 3 calls due to retries, got %d", hits)
	}
}

func TestClient_OpenRows_404(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	defer ts.Close()

	cl, err := wpapi.New(ts.URL, "", 100)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err = cl.OpenRows(ctx, "option", "faq_acf_repeater")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestClient_Unauthorized(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer ts.Close()

	cl, _ := wpapi.New(ts.URL, "bad", 100)
	_, err := cl.GetTerm(context.Background(), "faq_category", 3)
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestCursor_WalksPages(t *testing.T) {
	pages := map[string]wpapi.RowsPage{
		"1": {Rows: []domain.RawRow{{"faq_question": "A"}, {"faq_question": "B"}}, HasMore: true},
		"2": {Rows: []domain.RawRow{{"faq_question": "C"}}},
	}
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		p, ok := pages[r.URL.Query().Get("page")]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(p)
	}))
	defer ts.Close()

	cl, _ := wpapi.New(ts.URL, "", 100)
	ctx := context.Background()
	cur, err := cl.OpenRows(ctx, "7", "faq_acf_repeater")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	var got []string
	for cur.Next(ctx) {
		got = append(got, cur.Row()["faq_question"].(string))
	}
	if err := cur.Err(); err != nil {
		t.Fatalf("cursor err: %v", err)
	}
	if len(got) != 3 || got[0] != "A" || got[2] != "C" {
		t.Fatalf("unexpected rows: %v", got)
	}
	if n := atomic.LoadInt32(&hits); n != 2 {
		t.Fatalf("expected 2 page requests, got %d", n)
	}
}

func TestCursor_EmptyPageEndsWalk(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&hits, 1)
		p := wpapi.RowsPage{HasMore: true}
		if n == 1 {
			p.Rows = []domain.RawRow{{"faq_question": "A"}}
		}
		_ = json.NewEncoder(w).Encode(p)
	}))
	defer ts.Close()

	cl, _ := wpapi.New(ts.URL, "", 100)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	cur, err := cl.OpenRows(ctx, "7", "faq_acf_repeater")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	var got int
	for cur.Next(ctx) {
		got++
	}
	if err := cur.Err(); err != nil {
		t.Fatalf("cursor err: %v", err)
	}
	if got != 1 {
		t.Fatalf("expected 1 row, got %d", got)
	}
	if n := atomic.LoadInt32(&hits); n != 2 {
		t.Fatalf("expected 2 page requests, got %d", n)
	}
}

func TestNew_RequiresBase(t *testing.T) {
	if _, err := wpapi.New("", "k", 1); err == nil {
		t.Fatalf("expected error for empty base")
	}
}

//go:build integration || !unit

package integration

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"review_blocks/internal/adapters/htmlrender"
	redisad "review_blocks/internal/adapters/redis"
	"review_blocks/internal/adapters/rowsource"
	"review_blocks/internal/adapters/wpapi"
	"review_blocks/internal/app"
	"review_blocks/internal/domain"
	"review_blocks/internal/shared"
)

// fakeFieldsAPI serves the testimonials repeater in pages of two rows and
// the FAQ taxonomy. Everything else is 404.
func fakeFieldsAPI(t *testing.T, termHits *int32) *httptest.Server {
	t.Helper()
	rows := []map[string]any{
		{"reviewer_name": "Ann", "review_body": "First", "rating_number": 5},
		{"reviewer_name": "Ben", "review_body": "Second", "review_category": 7},
		{"reviewer_name": "Cal", "review_body": "Third", "review_category": 7},
		{"reviewer_name": "Dee", "review_body": "Fourth"},
		{"reviewer_name": "Eve", "review_body": "Fifth"},
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/fields/option/client_testimonials", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		page := 1
		if p := r.URL.Query().Get("page"); p == "2" {
			page = 2
		} else if p == "3" {
			page = 3
		}
		lo := (page - 1) * 2
		hi := min(lo+2, len(rows))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"rows": rows[lo:hi], "has_more": hi < len(rows)})
	})
	mux.HandleFunc("/terms/testimonial_category/7", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(termHits, 1)
		_ = json.NewEncoder(w).Encode(map[string]any{"slug": "online", "name": "Online"})
	})
	mux.HandleFunc("/", http.NotFound)
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func TestCursorSource_TestimonialsFromFieldsAPI(t *testing.T) {
	var termHits int32
	api := fakeFieldsAPI(t, &termHits)
	client, err := wpapi.New(api.URL, "secret", 50)
	require.NoError(t, err)

	mr := miniredis.RunT(t)
	cache := redisad.NewFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	terms := redisad.NewCachedTermStore(client, cache, time.Minute)

	blocks := shared.DefaultBlocks()
	render := app.NewRenderService(blocks,
		rowsource.NewFactory(nil, client, blocks.OptionsObject),
		terms, htmlrender.MustNew())
	ctx := context.Background()

	o := render.RenderTestimonials(ctx, domain.RenderContext{}, app.ShortcodeAtts{Limit: 0, Order: app.OrderAsc})
	require.Equal(t, domain.OutcomeRendered, o.Kind)
	for _, name := range []string{"Ann", "Ben", "Cal", "Dee", "Eve"} {
		assert.Contains(t, o.HTML, name)
	}
	assert.Less(t, strings.Index(o.HTML, "Ann"), strings.Index(o.HTML, "Eve"))

	o = render.RenderTestimonials(ctx, domain.RenderContext{}, app.ShortcodeAtts{Limit: 5, Order: app.OrderDesc, Category: "online"})
	require.Equal(t, domain.OutcomeRendered, o.Kind)
	assert.Contains(t, o.HTML, "Cal")
	assert.NotContains(t, o.HTML, "Ann")
	assert.Less(t, strings.Index(o.HTML, "Cal"), strings.Index(o.HTML, "Ben"))

	// one remote lookup per pass at most, and the second pass hits the cache
	assert.Equal(t, int32(1), atomic.LoadInt32(&termHits))
	assert.True(t, mr.Exists(domain.TermCacheKey("testimonial_category", 7)))
}

func TestCursorSource_FallsBackToAttributes(t *testing.T) {
	var termHits int32
	api := fakeFieldsAPI(t, &termHits)
	client, err := wpapi.New(api.URL, "secret", 50)
	require.NoError(t, err)

	blocks := shared.DefaultBlocks()
	render := app.NewRenderService(blocks,
		rowsource.NewFactory(nil, client, blocks.OptionsObject),
		nil, htmlrender.MustNew())

	// the FAQ repeater is unknown to the API; the block carries its own rows
	b := domain.Block{Name: blocks.FAQ.Name, Attrs: map[string]any{
		rowsource.AttrData: map[string]any{
			"faq_acf_repeater": []any{
				map[string]any{"faq_question": "From attributes?", "faq_answer": "Yes."},
			},
		},
	}}
	o := render.RenderBlock(context.Background(), domain.RenderContext{PageID: 9, Permalink: "https://shop.test/p/"}, b)
	require.Equal(t, domain.OutcomeRendered, o.Kind)
	assert.Contains(t, o.HTML, "From attributes?")
}

func TestCursorSource_UnauthorizedIsUnavailable(t *testing.T) {
	var termHits int32
	api := fakeFieldsAPI(t, &termHits)
	client, err := wpapi.New(api.URL, "wrong", 50)
	require.NoError(t, err)

	blocks := shared.DefaultBlocks()
	render := app.NewRenderService(blocks,
		rowsource.NewFactory(nil, client, blocks.OptionsObject),
		nil, htmlrender.MustNew())

	o := render.RenderTestimonials(context.Background(), domain.RenderContext{Editor: true}, app.DefaultShortcodeAtts())
	assert.Equal(t, domain.Placeholder(app.NoticeReviewsUnavailable), o)
}

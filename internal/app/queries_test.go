package app_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"review_blocks/internal/adapters/htmlrender"
	"review_blocks/internal/app"
	"review_blocks/internal/domain"
)

func TestPageService_GetPageUsesCache(t *testing.T) {
	repo := newFakePages(helpPage(domain.Block{Name: blocks.FAQ.Name}))
	cache := newMemCache()
	svc := app.NewPageService(repo, cache, time.Minute, nil)

	p1, err := svc.GetPage(context.Background(), 7)
	require.NoError(t, err)
	p2, err := svc.GetPage(context.Background(), 7)
	require.NoError(t, err)

	assert.Equal(t, p1, p2)
	assert.Equal(t, 1, repo.reads)
	assert.Equal(t, 1, cache.hits)

	_, err = svc.GetPage(context.Background(), 404)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPageService_NilCache(t *testing.T) {
	repo := newFakePages(helpPage())
	svc := app.NewPageService(repo, nil, time.Minute, nil)
	for i := 0; i < 2; i++ {
		_, err := svc.GetPage(context.Background(), 7)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, repo.reads)
}

func TestPageService_RenderPage(t *testing.T) {
	render := app.NewRenderService(blocks, &fakeSources{rows: map[string][]domain.RawRow{
		"faq_acf_repeater":    faqRows(),
		"client_testimonials": reviewRows(),
	}}, catalog(), htmlrender.MustNew())

	page := helpPage(
		domain.Block{Name: "core/paragraph"},
		domain.Block{Name: blocks.Reviews.Name},
		domain.Block{Name: "core/group", InnerBlocks: []domain.Block{{Name: blocks.FAQ.Name, Anchor: "help"}}},
	)
	svc := app.NewPageService(newFakePages(page), nil, 0, render)

	out, err := svc.RenderPage(context.Background(), 7, false)
	require.NoError(t, err)

	assert.Equal(t, int64(7), out.PageID)
	require.Len(t, out.Blocks, 2)
	assert.Equal(t, blocks.Reviews.Name, out.Blocks[0].Name)
	assert.Equal(t, "review-list", out.Blocks[0].Anchor)
	assert.Equal(t, "rendered", out.Blocks[0].Outcome)
	assert.Equal(t, "help", out.Blocks[1].Anchor)
	assert.Equal(t, out.Blocks[0].HTML+out.Blocks[1].HTML, out.HTML)

	doc := parse(t, out.HTML)
	assert.Equal(t, 1, doc.Find(".review-list").Length())
	assert.Equal(t, 1, doc.Find(".faq-list#help").Length())

	require.Len(t, out.Graph, 2)
	assert.Equal(t, permalink+"#review-list", out.Graph[0]["@id"])
	assert.Equal(t, permalink+"#help", out.Graph[1]["@id"])
}

func TestPageService_RenderPageFetchesEachBlockOnce(t *testing.T) {
	src := &fakeSources{rows: map[string][]domain.RawRow{
		"faq_acf_repeater":    faqRows(),
		"client_testimonials": reviewRows(),
	}}
	rec := newCountingRecorder()
	render := app.NewRenderService(blocks, src, catalog(), htmlrender.MustNew(), app.WithRecorder(rec))

	// the same anchor twice yields one schema group
	page := helpPage(
		domain.Block{Name: blocks.FAQ.Name, Anchor: "help"},
		domain.Block{Name: blocks.Reviews.Name},
		domain.Block{Name: blocks.FAQ.Name, Anchor: "help"},
	)
	svc := app.NewPageService(newFakePages(page), nil, 0, render)

	out, err := svc.RenderPage(context.Background(), 7, false)
	require.NoError(t, err)

	require.Len(t, out.Blocks, 3)
	assert.Len(t, src.seen, 3, "one row fetch per block")
	require.Len(t, out.Graph, 2)
	assert.Equal(t, permalink+"#help", out.Graph[0]["@id"])
	assert.Equal(t, permalink+"#review-list", out.Graph[1]["@id"])
	assert.Equal(t, 1, rec.schema["faq/skipped"])
}

func TestPageService_RenderPageEditorSeesNotices(t *testing.T) {
	render := app.NewRenderService(blocks, &fakeSources{}, nil, htmlrender.MustNew())
	svc := app.NewPageService(newFakePages(helpPage(domain.Block{Name: blocks.FAQ.Name})), nil, 0, render)

	public, err := svc.RenderPage(context.Background(), 7, false)
	require.NoError(t, err)
	assert.Empty(t, public.HTML)
	require.Len(t, public.Blocks, 1)
	assert.Equal(t, "empty", public.Blocks[0].Outcome)

	editor, err := svc.RenderPage(context.Background(), 7, true)
	require.NoError(t, err)
	assert.Contains(t, editor.HTML, app.NoticeFaqUnavailable)
	assert.Equal(t, "placeholder", editor.Blocks[0].Outcome)
	assert.Empty(t, editor.Graph)
}

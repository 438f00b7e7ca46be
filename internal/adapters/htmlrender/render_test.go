package htmlrender_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"review_blocks/internal/adapters/htmlrender"
	"review_blocks/internal/domain"
)

func pfloat(f float64) *float64 { return &f }
func pstr(s string) *string     { return &s }

func parse(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func TestFaqList_DOMContract(t *testing.T) {
	r := htmlrender.MustNew()
	recs := []domain.FaqRecord{
		{
			Question:   "Do you ship?",
			Answer:     `<p>Yes, <strong>worldwide</strong>.</p><script>alert(1)</script>`,
			Categories: []domain.Category{{Slug: "shipping", Label: "Shipping"}, {Slug: "cakes", Label: "Cakes"}},
		},
		{
			Question:   "Gluten free?",
			Answer:     "<p>Some.</p>",
			Categories: []domain.Category{{Slug: "cakes", Label: "Cakes"}},
		},
	}

	out, err := r.FaqList("faq", recs)
	require.NoError(t, err)
	doc := parse(t, out)

	sec := doc.Find("section.faq-list")
	require.Equal(t, 1, sec.Length())
	id, _ := sec.Attr("id")
	assert.Equal(t, "faq", id)

	items := doc.Find(".faq-list__items .faq-list__item")
	require.Equal(t, 2, items.Length())
	cats, _ := items.First().Attr("data-cats")
	assert.Equal(t, "shipping|cakes", cats)
	assert.Equal(t, "Do you ship?", items.First().Find(".faq-list__question").Text())
	assert.Equal(t, 1, items.First().Find(".faq-list__answer strong").Length())
	assert.Zero(t, doc.Find("script").Length(), "answer markup must be sanitized")

	var opts []string
	doc.Find(".faq-list__filter option").Each(func(_ int, s *goquery.Selection) {
		v, _ := s.Attr("value")
		opts = append(opts, v+"="+s.Text())
	})
	assert.Equal(t, []string{"=All", "shipping=Shipping", "cakes=Cakes"}, opts)

	assert.Equal(t, 1, doc.Find("input.faq-list__search").Length())
	count := doc.Find(".faq-list__count")
	live, _ := count.Attr("aria-live")
	assert.Equal(t, "polite", live)
	assert.Equal(t, "2 FAQs", count.Text())
}

func TestReviewList_RatingAndAuthor(t *testing.T) {
	r := htmlrender.MustNew()
	out, err := r.ReviewList("review-list", []domain.ReviewRecord{
		{ID: "jo-1", Name: "Jo", Location: "Leeds", Body: "Great!\nWould order again.", Title: "Lovely", Rating: pfloat(4.5), SourceURL: pstr("https://example.test/r/1")},
		{ID: "al-2", Name: "Al <b>", Body: "Fine"},
	})
	require.NoError(t, err)
	doc := parse(t, out)

	items := doc.Find("article.review-list__item")
	require.Equal(t, 2, items.Length())

	first := items.First()
	id, _ := first.Attr("id")
	assert.Equal(t, "jo-1", id)
	assert.Equal(t, 2, first.Find(".review-list__body").Length())
	rating := first.Find(".review-list__rating")
	label, _ := rating.Attr("aria-label")
	assert.Equal(t, "Rated 4.5 out of 5", label)
	assert.Equal(t, "– 4.5/5", strings.TrimSpace(rating.Text()))
	href, _ := first.Find("a.review-list__source").Attr("href")
	assert.Equal(t, "https://example.test/r/1", href)

	second := items.Eq(1)
	assert.Zero(t, second.Find(".review-list__rating").Length())
	assert.Equal(t, "Al <b>", second.Find(".review-list__name").Text(), "names are escaped")
}

func TestTestimonials_Stars(t *testing.T) {
	r := htmlrender.MustNew()
	out, err := r.Testimonials([]domain.ReviewRecord{{ID: "x", Name: "Jo", Location: "York", Body: "Yum", Rating: pfloat(3.7)}})
	require.NoError(t, err)
	doc := parse(t, out)
	assert.Equal(t, "★★★", doc.Find(".testimonials__stars").Text())
	assert.Equal(t, "Jo (York)", doc.Find(".testimonials__author").Text())
}

func TestNotice(t *testing.T) {
	out := htmlrender.MustNew().Notice("No FAQs to display yet.")
	doc := parse(t, out)
	assert.Equal(t, "No FAQs to display yet.", doc.Find(".block-notice__text").Text())
}

func TestHelpers(t *testing.T) {
	assert.Equal(t, "1 FAQ", htmlrender.CountText(1))
	assert.Equal(t, "0 FAQs", htmlrender.CountText(0))
	assert.Equal(t, "5.0", htmlrender.FormatRating(5))
	assert.Equal(t, "", htmlrender.Stars(0.5))
}

func TestPage_EmbedsGraph(t *testing.T) {
	r := htmlrender.MustNew()
	body, err := r.FaqList("faq", []domain.FaqRecord{{Question: "Q?", Answer: "<p>A</p>"}})
	require.NoError(t, err)

	out, err := r.Page("Help & support", body, []map[string]any{{"@type": "FAQPage", "name": "</script><b>"}}, "/assets/faq-filter.js")
	require.NoError(t, err)
	doc := parse(t, out)

	assert.Equal(t, "Help & support", doc.Find("title").Text())
	assert.Equal(t, 1, doc.Find("body .faq-list").Length())
	assert.Equal(t, "/assets/faq-filter.js", doc.Find("script[src]").AttrOr("src", ""))

	var ld map[string]any
	require.NoError(t, json.Unmarshal([]byte(doc.Find(`script[type="application/ld+json"]`).Text()), &ld))
	graph := ld["@graph"].([]any)
	assert.Equal(t, "</script><b>", graph[0].(map[string]any)["name"])

	bare, err := r.Page("x", "", nil, "")
	require.NoError(t, err)
	assert.NotContains(t, bare, "ld+json")
	assert.NotContains(t, bare, "<script")
}

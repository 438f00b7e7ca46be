// Package htmlrender produces the accessible markup for FAQ and review
// blocks. The DOM classes here are the contract the filter controller
// relies on.
package htmlrender

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"math"
	"strconv"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"review_blocks/internal/domain"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// CatSeparator joins category slugs in data-cats.
const CatSeparator = "|"

type Renderer struct {
	tmpl   *template.Template
	policy *bluemonday.Policy
}

func New() (*Renderer, error) {
	t, err := template.ParseFS(templateFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &Renderer{tmpl: t, policy: bluemonday.UGCPolicy()}, nil
}

// MustNew panics on template errors; the templates are embedded, so this
// only fails on a broken build.
func MustNew() *Renderer {
	r, err := New()
	if err != nil {
		panic(err)
	}
	return r
}

type faqItem struct {
	Question string
	Answer   template.HTML
	Cats     string
}

type faqView struct {
	Anchor     string
	Categories []domain.Category
	Count      string
	Items      []faqItem
}

func (r *Renderer) FaqList(anchor string, recs []domain.FaqRecord) (string, error) {
	v := faqView{Anchor: anchor, Count: CountText(len(recs))}
	seen := map[string]bool{}
	for _, rec := range recs {
		for _, c := range rec.Categories {
			if !seen[c.Slug] {
				seen[c.Slug] = true
				v.Categories = append(v.Categories, c)
			}
		}
		v.Items = append(v.Items, faqItem{
			Question: rec.Question,
			Answer:   template.HTML(r.policy.Sanitize(rec.Answer)),
			Cats:     strings.Join(rec.CategorySlugs(), CatSeparator),
		})
	}
	return r.exec("faq_list", v)
}

type reviewItem struct {
	ID         string
	Title      string
	Paragraphs []string
	Name       string
	Location   string
	Author     string
	Rating     string
	Stars      string
	URL        string
	Cats       string
}

func toReviewItem(rec domain.ReviewRecord) reviewItem {
	it := reviewItem{
		ID:         rec.ID,
		Title:      rec.Title,
		Paragraphs: strings.Split(rec.Body, "\n"),
		Name:       rec.Name,
		Location:   rec.Location,
		Author:     rec.AuthorLabel(),
		Cats:       strings.Join(rec.CategorySlugs(), CatSeparator),
	}
	if rec.Rating != nil {
		it.Rating = FormatRating(*rec.Rating)
		it.Stars = Stars(*rec.Rating)
	}
	if rec.SourceURL != nil {
		it.URL = *rec.SourceURL
	}
	return it
}

type reviewView struct {
	Anchor string
	Items  []reviewItem
}

func (r *Renderer) ReviewList(anchor string, recs []domain.ReviewRecord) (string, error) {
	v := reviewView{Anchor: anchor}
	for _, rec := range recs {
		v.Items = append(v.Items, toReviewItem(rec))
	}
	return r.exec("review_list", v)
}

func (r *Renderer) Testimonials(recs []domain.ReviewRecord) (string, error) {
	items := make([]reviewItem, 0, len(recs))
	for _, rec := range recs {
		items = append(items, toReviewItem(rec))
	}
	return r.exec("testimonials", items)
}

func (r *Renderer) Notice(msg string) string {
	out, err := r.exec("notice", msg)
	if err != nil {
		return ""
	}
	return out
}

type pageView struct {
	Title  string
	Body   template.HTML
	Graph  template.JS
	Script string
}

// Page wraps rendered block markup into a standalone document. graph, when
// non-empty, is embedded as a JSON-LD script; body must already be
// rendered by this package.
func (r *Renderer) Page(title, body string, graph []map[string]any, script string) (string, error) {
	v := pageView{Title: title, Body: template.HTML(body), Script: script}
	if len(graph) > 0 {
		raw, err := json.Marshal(map[string]any{"@context": "https://schema.org", "@graph": graph})
		if err != nil {
			return "", fmt.Errorf("encode graph: %w", err)
		}
		// json.Marshal already escapes <, > and &
		v.Graph = template.JS(raw)
	}
	return r.exec("page", v)
}

func (r *Renderer) exec(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}

// CountText is the live-region label for n visible FAQs.
func CountText(n int) string {
	if n == 1 {
		return "1 FAQ"
	}
	return strconv.Itoa(n) + " FAQs"
}

// FormatRating prints a rating with one decimal ("4.0", "4.5").
func FormatRating(f float64) string {
	return strconv.FormatFloat(f, 'f', 1, 64)
}

// Stars repeats a star glyph once per whole rating point.
func Stars(f float64) string {
	n := int(math.Floor(f))
	if n < 0 {
		n = 0
	}
	return strings.Repeat("★", n)
}

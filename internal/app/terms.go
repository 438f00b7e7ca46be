package app

import (
	"context"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"review_blocks/internal/domain"
)

// ParseTermRefs tags a raw categories value at the boundary. It accepts a
// single reference or a list of mixed ones: numeric ids (numbers or digit
// strings), objects with slug/name, and free text.
func ParseTermRefs(v any) []domain.TermRef {
	var out []domain.TermRef
	var walk func(any)
	walk = func(v any) {
		switch t := v.(type) {
		case nil:
		case []any:
			for _, it := range t {
				walk(it)
			}
		case []string:
			for _, it := range t {
				walk(it)
			}
		case []int:
			for _, it := range t {
				walk(it)
			}
		case []int64:
			for _, it := range t {
				walk(it)
			}
		case []float64:
			for _, it := range t {
				walk(it)
			}
		case domain.Category:
			out = append(out, domain.TermRef{Kind: domain.ObjectRef, Slug: t.Slug, Label: t.Label})
		case domain.Term:
			out = append(out, domain.TermRef{Kind: domain.ObjectRef, Slug: t.Slug, Label: t.Name})
		case map[string]any:
			if ref, ok := objectRef(t); ok {
				out = append(out, ref)
			}
		case domain.RawRow:
			walk(map[string]any(t))
		case string:
			s := strings.TrimSpace(t)
			if s == "" {
				return
			}
			if id, err := strconv.ParseInt(s, 10, 64); err == nil && id > 0 {
				out = append(out, domain.TermRef{Kind: domain.NumericRef, ID: id})
				return
			}
			out = append(out, domain.TermRef{Kind: domain.TextRef, Text: t})
		default:
			if id, ok := integral(t); ok {
				out = append(out, domain.TermRef{Kind: domain.NumericRef, ID: id})
			}
		}
	}
	walk(v)
	return out
}

func objectRef(m map[string]any) (domain.TermRef, bool) {
	slug := strings.TrimSpace(stringish(m["slug"]))
	label := strings.TrimSpace(stringish(m["name"]))
	if label == "" {
		label = strings.TrimSpace(stringish(m["label"]))
	}
	if slug != "" || label != "" {
		return domain.TermRef{Kind: domain.ObjectRef, Slug: slug, Label: label}, true
	}
	for _, k := range []string{"term_id", "id", "value"} {
		if id, ok := integral(m[k]); ok {
			return domain.TermRef{Kind: domain.NumericRef, ID: id}, true
		}
	}
	return domain.TermRef{}, false
}

// integral accepts whole positive numbers only.
func integral(v any) (int64, bool) {
	var f float64
	switch t := v.(type) {
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case float64:
		f = t
	case json.Number:
		n, err := t.Float64()
		if err != nil {
			return 0, false
		}
		f = n
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		if err != nil {
			return 0, false
		}
		f = float64(n)
	default:
		return 0, false
	}
	if f <= 0 || f != math.Trunc(f) {
		return 0, false
	}
	return int64(f), true
}

// TermResolver turns tagged references into {slug,label} pairs.
type TermResolver struct {
	store    domain.TermStore
	taxonomy string
	log      zerolog.Logger
}

func NewTermResolver(store domain.TermStore, taxonomy string) *TermResolver {
	return &TermResolver{store: store, taxonomy: taxonomy, log: log.Logger}
}

// Resolve returns categories in encounter order, deduplicated by slug with
// the first label winning. Numeric ids the store cannot resolve are dropped.
func (r *TermResolver) Resolve(ctx context.Context, refs []domain.TermRef) []domain.Category {
	return r.resolve(ctx, refs, map[int64]*domain.Term{})
}

func (r *TermResolver) resolve(ctx context.Context, refs []domain.TermRef, memo map[int64]*domain.Term) []domain.Category {
	if len(refs) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(refs))
	out := make([]domain.Category, 0, len(refs))
	add := func(slug, label string) {
		if slug == "" {
			return
		}
		if _, dup := seen[slug]; dup {
			return
		}
		seen[slug] = struct{}{}
		if label == "" {
			label = slug
		}
		out = append(out, domain.Category{Slug: slug, Label: label})
	}

	for _, ref := range refs {
		switch ref.Kind {
		case domain.NumericRef:
			t := r.lookup(ctx, ref.ID, memo)
			if t == nil {
				continue
			}
			slug := Slugify(t.Slug)
			if slug == "" {
				slug = Slugify(t.Name)
			}
			add(slug, strings.TrimSpace(t.Name))
		case domain.ObjectRef:
			slug := Slugify(ref.Slug)
			if slug == "" {
				slug = Slugify(ref.Label)
			}
			add(slug, strings.TrimSpace(ref.Label))
		case domain.TextRef:
			add(Slugify(ref.Text), PlainText(ref.Text))
		}
	}
	return out
}

func (r *TermResolver) lookup(ctx context.Context, id int64, memo map[int64]*domain.Term) *domain.Term {
	if t, ok := memo[id]; ok {
		return t
	}
	if r.store == nil {
		memo[id] = nil
		return nil
	}
	t, err := r.store.GetTerm(ctx, r.taxonomy, id)
	if err != nil {
		r.log.Debug().Err(err).Int64("term_id", id).Str("taxonomy", r.taxonomy).Msg("term dropped")
		memo[id] = nil
		return nil
	}
	memo[id] = &t
	return &t
}

// ResolveFaqs fills Categories on every record. One memo is shared across
// the records so a repeated id costs one store lookup per pass.
func (r *TermResolver) ResolveFaqs(ctx context.Context, recs []domain.FaqRecord) {
	memo := map[int64]*domain.Term{}
	for i := range recs {
		recs[i].Categories = r.resolve(ctx, recs[i].CategoryRefs, memo)
	}
}

func (r *TermResolver) ResolveReviews(ctx context.Context, recs []domain.ReviewRecord) {
	memo := map[int64]*domain.Term{}
	for i := range recs {
		recs[i].Categories = r.resolve(ctx, recs[i].CategoryRefs, memo)
	}
}

// FilterFrom derives a category filter from raw include/exclude values of
// any supported reference shape.
func (r *TermResolver) FilterFrom(ctx context.Context, include, exclude any) domain.CategoryFilter {
	memo := map[int64]*domain.Term{}
	return domain.CategoryFilter{
		Include: slugs(r.resolve(ctx, ParseTermRefs(include), memo)),
		Exclude: slugs(r.resolve(ctx, ParseTermRefs(exclude), memo)),
	}
}

func slugs(cs []domain.Category) []string {
	if len(cs) == 0 {
		return nil
	}
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.Slug
	}
	return out
}

package app

import (
	"context"
	"fmt"
	"strings"

	"review_blocks/internal/domain"
)

// Fixture is an import payload: the taxonomy terms, repeater values and
// pages a content store needs to render blocks offline.
type Fixture struct {
	Terms  []domain.Term  `json:"terms" yaml:"terms"`
	Fields []FieldFixture `json:"fields" yaml:"fields"`
	Pages  []domain.Page  `json:"pages" yaml:"pages"`
}

type FieldFixture struct {
	Object string          `json:"object" yaml:"object"`
	Field  string          `json:"field" yaml:"field"`
	Rows   []domain.RawRow `json:"rows" yaml:"rows"`
}

type ImportStats struct {
	Terms  int
	Fields int
	Pages  int
}

type ImportService struct {
	repo  domain.ContentWriter
	cache domain.Cache
}

func NewImportService(r domain.ContentWriter, cache domain.Cache) *ImportService {
	return &ImportService{repo: r, cache: cache}
}

// Import writes terms first so numeric category references on the rows
// resolve as soon as the rows land, then field values, then pages.
// Caches for everything written are evicted.
func (s *ImportService) Import(ctx context.Context, fx Fixture) (ImportStats, error) {
	var st ImportStats
	for _, t := range fx.Terms {
		if t.ID <= 0 || strings.TrimSpace(t.Taxonomy) == "" {
			return st, fmt.Errorf("term %q: id and taxonomy are required", t.Slug)
		}
		if t.Slug == "" {
			t.Slug = Slugify(t.Name)
		}
		if err := s.repo.UpsertTerm(ctx, t); err != nil {
			return st, err
		}
		s.evict(ctx, domain.TermCacheKey(t.Taxonomy, t.ID))
		st.Terms++
	}

	for _, f := range fx.Fields {
		if f.Object == "" || f.Field == "" {
			return st, fmt.Errorf("field fixture: object and field are required")
		}
		if err := s.repo.UpsertFieldRows(ctx, f.Object, f.Field, f.Rows); err != nil {
			return st, err
		}
		st.Fields++
	}

	for _, p := range fx.Pages {
		if p.ID <= 0 {
			return st, fmt.Errorf("page %q: id is required", p.Permalink)
		}
		if err := s.repo.UpsertPage(ctx, p); err != nil {
			return st, err
		}
		s.evict(ctx, domain.PageCacheKey(p.ID))
		st.Pages++
	}
	return st, nil
}

func (s *ImportService) evict(ctx context.Context, key string) {
	if s.cache != nil {
		_ = s.cache.Del(ctx, key)
	}
}

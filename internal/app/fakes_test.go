package app_test

import (
	"context"
	"sync"

	"review_blocks/internal/domain"
	"review_blocks/internal/shared"
)

type fakeTerms struct {
	mu    sync.Mutex
	terms map[int64]domain.Term
	calls map[int64]int
}

func newFakeTerms(ts ...domain.Term) *fakeTerms {
	f := &fakeTerms{terms: map[int64]domain.Term{}, calls: map[int64]int{}}
	for _, t := range ts {
		f.terms[t.ID] = t
	}
	return f
}

func (f *fakeTerms) GetTerm(_ context.Context, taxonomy string, id int64) (domain.Term, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[id]++
	t, ok := f.terms[id]
	if !ok || t.Taxonomy != taxonomy {
		return domain.Term{}, domain.ErrNotFound
	}
	return t, nil
}

func (f *fakeTerms) Calls(id int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[id]
}

// fakeSources serves rows keyed by repeater name. A nil entry means the
// source is unavailable.
type fakeSources struct {
	rows map[string][]domain.RawRow
	err  error
	seen []domain.Block
}

func (f *fakeSources) For(b domain.Block, _ domain.RenderContext, fields shared.FieldBinding) domain.RowSource {
	f.seen = append(f.seen, b)
	return domain.RowSourceFunc(func(context.Context) ([]domain.RawRow, error) {
		if f.err != nil {
			return nil, f.err
		}
		rows, ok := f.rows[fields.Repeater]
		if !ok || rows == nil {
			return nil, domain.ErrSourceUnavailable
		}
		return rows, nil
	})
}

type countingRecorder struct {
	mu      sync.Mutex
	renders map[string]int
	dropped map[string]int
	schema  map[string]int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{renders: map[string]int{}, dropped: map[string]int{}, schema: map[string]int{}}
}

func (r *countingRecorder) Render(kind, outcome string) {
	r.mu.Lock()
	r.renders[kind+"/"+outcome]++
	r.mu.Unlock()
}

func (r *countingRecorder) RowsDropped(kind string, n int) {
	r.mu.Lock()
	r.dropped[kind] += n
	r.mu.Unlock()
}

func (r *countingRecorder) SchemaGroup(kind, result string) {
	r.mu.Lock()
	r.schema[kind+"/"+result]++
	r.mu.Unlock()
}

type memCache struct {
	mu   sync.Mutex
	data map[string]any
	gets int
	hits int
}

func newMemCache() *memCache { return &memCache{data: map[string]any{}} }

func (c *memCache) Get(_ context.Context, key string, dst any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	v, ok := c.data[key]
	if !ok {
		return false, nil
	}
	c.hits++
	switch d := dst.(type) {
	case *domain.Page:
		*d = v.(domain.Page)
	case *domain.Term:
		*d = v.(domain.Term)
	}
	return true, nil
}

func (c *memCache) Set(_ context.Context, key string, v any, _ int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = v
	return nil
}

func (c *memCache) Del(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

type fakePages struct {
	mu     sync.Mutex
	pages  map[int64]domain.Page
	terms  []domain.Term
	fields map[string][]domain.RawRow
	reads  int
}

func newFakePages(ps ...domain.Page) *fakePages {
	f := &fakePages{pages: map[int64]domain.Page{}, fields: map[string][]domain.RawRow{}}
	for _, p := range ps {
		f.pages[p.ID] = p
	}
	return f
}

func (f *fakePages) GetPage(_ context.Context, id int64) (domain.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	p, ok := f.pages[id]
	if !ok {
		return domain.Page{}, domain.ErrNotFound
	}
	return p, nil
}

func (f *fakePages) ListPageIDs(_ context.Context, limit int) ([]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []int64
	for id := range f.pages {
		out = append(out, id)
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakePages) UpsertTerm(_ context.Context, t domain.Term) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.terms = append(f.terms, t)
	return nil
}

func (f *fakePages) UpsertFieldRows(_ context.Context, object, field string, rows []domain.RawRow) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fields[object+"/"+field] = rows
	return nil
}

func (f *fakePages) UpsertPage(_ context.Context, p domain.Page) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pages[p.ID] = p
	return nil
}

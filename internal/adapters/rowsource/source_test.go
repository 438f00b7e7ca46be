package rowsource_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"review_blocks/internal/adapters/rowsource"
	"review_blocks/internal/domain"
	"review_blocks/internal/shared"
)

// ---- fakes ----

type fakeFields struct {
	rows  map[string][]domain.RawRow // key: object + "/" + field
	err   error
	calls []string
}

func (f *fakeFields) GetRows(ctx context.Context, object, field string) ([]domain.RawRow, error) {
	f.calls = append(f.calls, object)
	if f.err != nil {
		return nil, f.err
	}
	rows, ok := f.rows[object+"/"+field]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return rows, nil
}

type sliceCursor struct {
	rows []domain.RawRow
	i    int
	err  error
}

func (c *sliceCursor) Next(ctx context.Context) bool {
	if c.i >= len(c.rows) {
		return false
	}
	c.i++
	return true
}
func (c *sliceCursor) Row() domain.RawRow { return c.rows[c.i-1] }
func (c *sliceCursor) Err() error         { return c.err }

type fakeOpener struct {
	rows map[string][]domain.RawRow
}

func (o *fakeOpener) OpenRows(ctx context.Context, object, field string) (domain.RowCursor, error) {
	rows, ok := o.rows[object+"/"+field]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &sliceCursor{rows: rows}, nil
}

// ---- tests ----

func TestDirectSource_PageThenOptions(t *testing.T) {
	store := &fakeFields{rows: map[string][]domain.RawRow{
		"option/client_testimonials": {{"reviewer_name": "Jo"}},
	}}
	src := rowsource.NewDirectSource(store, "client_testimonials", "12", "option")

	rows, err := src.FetchRows(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []domain.RawRow{{"reviewer_name": "Jo"}}, rows)
	assert.Equal(t, []string{"12", "option"}, store.calls)
}

func TestDirectSource_NoStoreIsUnavailable(t *testing.T) {
	_, err := rowsource.NewDirectSource(nil, "f", "option").FetchRows(context.Background())
	assert.True(t, errors.Is(err, domain.ErrSourceUnavailable))
}

func TestCursorSource_Drains(t *testing.T) {
	op := &fakeOpener{rows: map[string][]domain.RawRow{
		"5/faq_acf_repeater": {{"faq_question": "A"}, {"faq_question": "B"}},
	}}
	rows, err := rowsource.NewCursorSource(op, "faq_acf_repeater", "5", "option").FetchRows(context.Background())
	require.NoError(t, err)
	assert.Len(t, rows, 2)
	assert.Equal(t, "B", rows[1]["faq_question"])
}

func TestChain_FirstNonEmptyWins(t *testing.T) {
	empty := domain.RowSourceFunc(func(context.Context) ([]domain.RawRow, error) { return nil, nil })
	down := domain.RowSourceFunc(func(context.Context) ([]domain.RawRow, error) {
		return nil, domain.ErrSourceUnavailable
	})
	broken := domain.RowSourceFunc(func(context.Context) ([]domain.RawRow, error) {
		return nil, errors.New("boom")
	})
	full := domain.RowSourceFunc(func(context.Context) ([]domain.RawRow, error) {
		return []domain.RawRow{{"name": "x"}}, nil
	})
	never := domain.RowSourceFunc(func(context.Context) ([]domain.RawRow, error) {
		t.Fatal("source after a non-empty one must not be called")
		return nil, nil
	})

	rows, err := rowsource.NewChain(down, broken, empty, full, never).FetchRows(context.Background())
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestChain_AllUnavailable(t *testing.T) {
	down := domain.RowSourceFunc(func(context.Context) ([]domain.RawRow, error) {
		return nil, domain.ErrSourceUnavailable
	})
	broken := domain.RowSourceFunc(func(context.Context) ([]domain.RawRow, error) {
		return nil, errors.New("boom")
	})
	_, err := rowsource.NewChain(down, broken).FetchRows(context.Background())
	assert.True(t, errors.Is(err, domain.ErrSourceUnavailable))
}

func TestChain_AvailableButEmpty(t *testing.T) {
	empty := domain.RowSourceFunc(func(context.Context) ([]domain.RawRow, error) { return nil, nil })
	rows, err := rowsource.NewChain(empty).FetchRows(context.Background())
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestAttributeSource_Shapes(t *testing.T) {
	bind := shared.DefaultBlocks().Reviews.Fields

	cases := []struct {
		name string
		data any
		want []domain.RawRow
	}{
		{
			name: "nested list",
			data: map[string]any{"client_testimonials": []any{
				map[string]any{"reviewer_name": "Jo"},
				"garbage",
			}},
			want: []domain.RawRow{{"reviewer_name": "Jo"}},
		},
		{
			name: "field key rows",
			data: map[string]any{"field_client_testimonials": map[string]any{
				"row-1":  map[string]any{"reviewer_name": "B"},
				"row-0":  map[string]any{"reviewer_name": "A"},
				"row-10": map[string]any{"reviewer_name": "C"},
			}},
			want: []domain.RawRow{{"reviewer_name": "A"}, {"reviewer_name": "B"}, {"reviewer_name": "C"}},
		},
		{
			name: "flattened",
			data: map[string]any{
				"client_testimonials":                 "2",
				"client_testimonials_0_reviewer_name": "A",
				"client_testimonials_0_review_body":   "one",
				"client_testimonials_1_reviewer_name": "B",
				"unrelated":                           "x",
			},
			want: []domain.RawRow{
				{"reviewer_name": "A", "review_body": "one"},
				{"reviewer_name": "B"},
			},
		},
		{
			name: "bare list",
			data: []any{map[string]any{"reviewer_name": "Z"}},
			want: []domain.RawRow{{"reviewer_name": "Z"}},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			src := rowsource.NewAttributeSource(map[string]any{rowsource.AttrData: tc.data}, bind)
			got, err := src.FetchRows(context.Background())
			require.NoError(t, err)
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Fatalf("rows mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestAttributeSource_NoData(t *testing.T) {
	src := rowsource.NewAttributeSource(map[string]any{"anchor": "x"}, shared.DefaultBlocks().FAQ.Fields)
	_, err := src.FetchRows(context.Background())
	assert.True(t, errors.Is(err, domain.ErrSourceUnavailable))
}

func TestAttributeSource_FlattenedCountIsBounded(t *testing.T) {
	bind := shared.DefaultBlocks().Reviews.Fields
	two := func(count any) map[string]any {
		return map[string]any{
			"client_testimonials":                 count,
			"client_testimonials_0_reviewer_name": "A",
			"client_testimonials_1_reviewer_name": "B",
		}
	}

	cases := []struct {
		name string
		data map[string]any
		want []domain.RawRow
	}{
		{name: "huge float", data: two(float64(1e19))},
		{name: "fractional", data: two(1.5)},
		{name: "negative", data: two(-2)},
		{name: "out of range string", data: two("99999999999")},
		{
			name: "huge count with one row present",
			data: map[string]any{
				"client_testimonials":                 json.Number("3000000"),
				"client_testimonials_0_reviewer_name": "A",
			},
			want: []domain.RawRow{{"reviewer_name": "A"}},
		},
		{
			name: "count caps indexes",
			data: two(float64(1)),
			want: []domain.RawRow{{"reviewer_name": "A"}},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			src := rowsource.NewAttributeSource(map[string]any{rowsource.AttrData: tc.data}, bind)
			got, err := src.FetchRows(context.Background())
			require.NoError(t, err)
			if diff := cmp.Diff(tc.want, got, cmpopts.EquateEmpty()); diff != "" {
				t.Fatalf("rows mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFactory_Priority(t *testing.T) {
	store := &fakeFields{rows: map[string][]domain.RawRow{}}
	op := &fakeOpener{rows: map[string][]domain.RawRow{
		"option/faq_acf_repeater": {{"faq_question": "from cursor"}},
	}}
	f := rowsource.NewFactory(store, op, "option")
	bind := shared.DefaultBlocks().FAQ.Fields
	block := domain.Block{Attrs: map[string]any{
		rowsource.AttrData: map[string]any{"faq_acf_repeater": []any{map[string]any{"faq_question": "from attrs"}}},
	}}

	rows, err := f.For(block, domain.RenderContext{PageID: 3}, bind).FetchRows(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "from cursor", rows[0]["faq_question"])
	assert.Equal(t, []string{"3", "option"}, store.calls)

	rows, err = rowsource.NewFactory(nil, nil, "option").For(block, domain.RenderContext{}, bind).FetchRows(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "from attrs", rows[0]["faq_question"])

	_, err = rowsource.NewFactory(nil, nil, "option").For(domain.Block{}, domain.RenderContext{}, bind).FetchRows(context.Background())
	assert.True(t, errors.Is(err, domain.ErrSourceUnavailable))
}

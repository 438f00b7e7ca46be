package rowsource

import (
	"context"
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"

	"review_blocks/internal/domain"
	"review_blocks/internal/shared"
)

// AttrData is the block attribute the editor stores field values under.
const AttrData = "data"

// AttributeSource decodes repeater rows stored in a block's own attribute
// payload. Three shapes are understood:
//
//	{"client_testimonials": [{...}, {...}]}
//	{"field_client_testimonials": {"row-0": {...}, "row-1": {...}}}
//	{"client_testimonials": 2, "client_testimonials_0_review_body": "...", ...}
type AttributeSource struct {
	attrs   map[string]any
	binding shared.FieldBinding
}

func NewAttributeSource(attrs map[string]any, binding shared.FieldBinding) *AttributeSource {
	return &AttributeSource{attrs: attrs, binding: binding}
}

func (s *AttributeSource) FetchRows(context.Context) ([]domain.RawRow, error) {
	data, ok := s.attrs[AttrData]
	if !ok || data == nil {
		return nil, domain.ErrSourceUnavailable
	}
	if list, ok := data.([]any); ok {
		return rowList(list), nil
	}
	m, ok := asMap(data)
	if !ok {
		return nil, domain.ErrSourceUnavailable
	}

	rep := s.binding.Repeater
	for _, key := range []string{rep, s.binding.FieldKey} {
		if key == "" {
			continue
		}
		switch v := m[key].(type) {
		case []any:
			return rowList(v), nil
		case map[string]any:
			return indexedRows(v), nil
		}
	}
	if n, ok := count(m[rep]); ok {
		return flattenedRows(m, rep, n), nil
	}
	return nil, nil
}

func asMap(v any) (map[string]any, bool) {
	switch t := v.(type) {
	case map[string]any:
		return t, true
	case domain.RawRow:
		return t, true
	}
	return nil, false
}

func rowList(list []any) []domain.RawRow {
	out := make([]domain.RawRow, 0, len(list))
	for _, it := range list {
		if m, ok := asMap(it); ok {
			out = append(out, domain.RawRow(m))
		}
	}
	return out
}

// indexedRows orders "row-N" (or plain "N") keys numerically.
func indexedRows(m map[string]any) []domain.RawRow {
	type keyed struct {
		idx int
		row domain.RawRow
	}
	var rows []keyed
	for k, v := range m {
		idx, err := strconv.Atoi(strings.TrimPrefix(k, "row-"))
		if err != nil {
			continue
		}
		if r, ok := asMap(v); ok {
			rows = append(rows, keyed{idx: idx, row: r})
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].idx < rows[j].idx })
	out := make([]domain.RawRow, len(rows))
	for i, r := range rows {
		out[i] = r.row
	}
	return out
}

// flattenedRows groups "rep_N_sub" keys by N. Only indexes below the
// declared count are kept, and rows come out in index order; the count never
// sizes anything on its own.
func flattenedRows(m map[string]any, rep string, n int) []domain.RawRow {
	prefix := rep + "_"
	byIdx := map[int]domain.RawRow{}
	for k, v := range m {
		rest, ok := strings.CutPrefix(k, prefix)
		if !ok {
			continue
		}
		num, sub, ok := strings.Cut(rest, "_")
		if !ok || sub == "" {
			continue
		}
		idx, err := strconv.Atoi(num)
		if err != nil || idx < 0 || idx >= n {
			continue
		}
		row := byIdx[idx]
		if row == nil {
			row = domain.RawRow{}
			byIdx[idx] = row
		}
		row[sub] = v
	}
	idxs := make([]int, 0, len(byIdx))
	for i := range byIdx {
		idxs = append(idxs, i)
	}
	sort.Ints(idxs)
	out := make([]domain.RawRow, 0, len(idxs))
	for _, i := range idxs {
		out = append(out, byIdx[i])
	}
	return out
}

// maxRows bounds a declared row count.
const maxRows = math.MaxInt32

func count(v any) (int, bool) {
	switch t := v.(type) {
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) || t != math.Trunc(t) || t < 0 || t > maxRows {
			return 0, false
		}
		return int(t), true
	case int:
		return t, t >= 0 && t <= maxRows
	case int64:
		return int(t), t >= 0 && t <= maxRows
	case json.Number:
		n, err := t.Int64()
		return int(n), err == nil && n >= 0 && n <= maxRows
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		return int(n), err == nil && n >= 0 && n <= maxRows
	}
	return 0, false
}

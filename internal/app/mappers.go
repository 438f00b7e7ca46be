package app

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"review_blocks/internal/domain"
)

/********** row lookup helpers **********/

// lookupAny: safe nested lookup with dot paths on maps.
func lookupAny(m map[string]any, path string) any {
	if v, ok := m[path]; ok {
		return v
	}
	cur := any(m)
	for _, part := range strings.Split(path, ".") {
		obj, ok := asMap(cur)
		if !ok {
			return nil
		}
		v, ok := obj[part]
		if !ok {
			return nil
		}
		cur = v
	}
	return cur
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

// stringish renders scalar row values as text. Editors type numbers into
// text fields and some sources deliver them unquoted.
func stringish(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		if t {
			return "1"
		}
		return ""
	}
	return ""
}

// firstString: first non-empty trimmed string among the aliases.
func firstString(row domain.RawRow, aliases []string) string {
	for _, a := range aliases {
		if s := strings.TrimSpace(stringish(lookupAny(row, a))); s != "" {
			return s
		}
	}
	return ""
}

// firstValue: first alias present with a non-nil value.
func firstValue(row domain.RawRow, aliases []string) any {
	for _, a := range aliases {
		if v := lookupAny(row, a); v != nil {
			if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
				continue
			}
			return v
		}
	}
	return nil
}

// getFloatFlexible: number from several aliases (float64/int/json.Number/string like "4,5").
// Non-numeric values are treated as absent.
func getFloatFlexible(row domain.RawRow, aliases ...string) *float64 {
	for _, k := range aliases {
		var f float64
		switch v := lookupAny(row, k).(type) {
		case float64:
			f = v
		case float32:
			f = float64(v)
		case int:
			f = float64(v)
		case int64:
			f = float64(v)
		case json.Number:
			n, err := v.Float64()
			if err != nil {
				continue
			}
			f = n
		case string:
			s := strings.TrimSpace(strings.ReplaceAll(v, ",", "."))
			if s == "" {
				continue
			}
			n, err := strconv.ParseFloat(s, 64)
			if err != nil {
				continue
			}
			f = n
		default:
			continue
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			continue
		}
		return &f
	}
	return nil
}

func ptrStr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

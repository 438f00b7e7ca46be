package app

import "review_blocks/internal/domain"

// Filter keeps the records whose category slugs pass f. Order is preserved
// and the input slice is never modified. An empty Include is no restriction.
func Filter[T domain.Categorized](records []T, f domain.CategoryFilter) []T {
	if len(f.Include) == 0 && len(f.Exclude) == 0 {
		return append([]T(nil), records...)
	}
	inc := toSet(f.Include)
	exc := toSet(f.Exclude)

	out := make([]T, 0, len(records))
	for _, r := range records {
		slugs := r.CategorySlugs()
		if len(inc) > 0 && !intersects(slugs, inc) {
			continue
		}
		if len(exc) > 0 && intersects(slugs, exc) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func toSet(xs []string) map[string]struct{} {
	if len(xs) == 0 {
		return nil
	}
	m := make(map[string]struct{}, len(xs))
	for _, x := range xs {
		if x != "" {
			m[x] = struct{}{}
		}
	}
	return m
}

func intersects(xs []string, set map[string]struct{}) bool {
	for _, x := range xs {
		if _, ok := set[x]; ok {
			return true
		}
	}
	return false
}

package app

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"review_blocks/internal/domain"
)

var (
	shortcodePattern = regexp.MustCompile(`\[([a-zA-Z0-9_\-]+)([^\]]*)\]`)
	attrPattern      = regexp.MustCompile(`([a-zA-Z0-9_\-]+)\s*=\s*(?:"([^"]*)"|'([^']*)'|([^\s"']+))`)
)

const (
	OrderAsc  = "ASC"
	OrderDesc = "DESC"

	defaultShortcodeLimit = 5
)

// ShortcodeAtts are the sanitized attributes of a testimonials shortcode.
// Limit 0 means no limit.
type ShortcodeAtts struct {
	Limit    int
	Order    string
	Category string
}

func DefaultShortcodeAtts() ShortcodeAtts {
	return ShortcodeAtts{Limit: defaultShortcodeLimit, Order: OrderDesc}
}

// ParseShortcode finds the first [tag ...] in content and returns its
// attributes. ok is false when the tag does not occur.
func ParseShortcode(content, tag string) (ShortcodeAtts, bool) {
	for _, m := range shortcodePattern.FindAllStringSubmatch(content, -1) {
		if m[1] != tag {
			continue
		}
		return SanitizeShortcodeAtts(parseAttrs(m[2])), true
	}
	return DefaultShortcodeAtts(), false
}

func parseAttrs(raw string) map[string]string {
	out := map[string]string{}
	for _, m := range attrPattern.FindAllStringSubmatch(raw, -1) {
		v := m[2]
		if v == "" {
			v = m[3]
		}
		if v == "" {
			v = m[4]
		}
		out[strings.ToLower(m[1])] = v
	}
	return out
}

// SanitizeShortcodeAtts applies defaults and coercions to raw attribute
// values: limit is a non-negative integer, order is ASC or DESC, category
// is reduced to a slug.
func SanitizeShortcodeAtts(raw map[string]string) ShortcodeAtts {
	a := DefaultShortcodeAtts()
	if v, ok := raw["limit"]; ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			if n < 0 {
				n = -n
			}
			a.Limit = n
		}
	}
	if strings.EqualFold(strings.TrimSpace(raw["order"]), OrderAsc) {
		a.Order = OrderAsc
	}
	a.Category = Slugify(raw["category"])
	return a
}

// Apply narrows and orders testimonials. DESC puts the last authored row
// first.
func (a ShortcodeAtts) Apply(recs []domain.ReviewRecord) []domain.ReviewRecord {
	var f domain.CategoryFilter
	if a.Category != "" {
		f.Include = []string{a.Category}
	}
	out := Filter(recs, f)
	sort.SliceStable(out, func(i, j int) bool {
		if a.Order == OrderAsc {
			return out[i].Position < out[j].Position
		}
		return out[i].Position > out[j].Position
	})
	if a.Limit > 0 && len(out) > a.Limit {
		out = out[:a.Limit]
	}
	return out
}

package app

import (
	"math"
	"net/url"
	"strconv"
	"strings"

	"review_blocks/internal/domain"
	"review_blocks/internal/shared"
)

// NormalizeStats counts what the normalizer saw and what it kept.
type NormalizeStats struct {
	Seen    int
	Kept    int
	Dropped int
}

// NormalizeReviews validates raw rows into review records. Rows without a
// name or body are dropped. Ids are explicit when given, otherwise derived
// from the name and the 1-based row position, so they stay stable across
// renders as long as the rows keep their order.
func NormalizeReviews(rows []domain.RawRow, b shared.FieldBinding) ([]domain.ReviewRecord, NormalizeStats) {
	st := NormalizeStats{Seen: len(rows)}
	out := make([]domain.ReviewRecord, 0, len(rows))
	for i, row := range rows {
		pos := i + 1
		body := strings.TrimSpace(PlainText(firstString(row, b.Aliases(shared.FieldBody))))
		name := strings.TrimSpace(PlainText(firstString(row, b.Aliases(shared.FieldName))))
		if body == "" || name == "" {
			st.Dropped++
			continue
		}

		rv := domain.ReviewRecord{
			Position: pos,
			Name:     name,
			Body:     body,
			Title:    PlainText(firstString(row, b.Aliases(shared.FieldTitle))),
			Location: PlainText(firstString(row, b.Aliases(shared.FieldLocation))),
			Rating:   clampRating(getFloatFlexible(row, b.Aliases(shared.FieldRating)...)),
		}

		rv.ID = firstString(row, b.Aliases(shared.FieldID))
		if rv.ID == "" {
			rv.ID = Slugify(name + "-" + strconv.Itoa(pos))
		}
		if rv.ID == "" {
			rv.ID = fallbackID("review")
		}

		rv.SourceURL = ptrStr(cleanURL(firstString(row, b.Aliases(shared.FieldURL))))
		rv.CategoryRefs = ParseTermRefs(firstValue(row, b.Aliases(shared.FieldCategories)))

		out = append(out, rv)
	}
	st.Kept = len(out)
	return out, st
}

// NormalizeFaqs validates raw rows into FAQ records. The answer keeps its
// markup; rows whose question carries no text are dropped.
func NormalizeFaqs(rows []domain.RawRow, b shared.FieldBinding) ([]domain.FaqRecord, NormalizeStats) {
	st := NormalizeStats{Seen: len(rows)}
	out := make([]domain.FaqRecord, 0, len(rows))
	for i, row := range rows {
		q := PlainText(firstString(row, b.Aliases(shared.FieldQuestion)))
		a := strings.TrimSpace(firstString(row, b.Aliases(shared.FieldAnswer)))
		if q == "" {
			st.Dropped++
			continue
		}
		out = append(out, domain.FaqRecord{
			Position:     i + 1,
			Question:     q,
			Answer:       a,
			CategoryRefs: ParseTermRefs(firstValue(row, b.Aliases(shared.FieldCategories))),
		})
	}
	st.Kept = len(out)
	return out, st
}

// clampRating maps absent, zero and negative ratings to nil and clamps the
// rest into [1,5].
func clampRating(f *float64) *float64 {
	if f == nil || *f <= 0 {
		return nil
	}
	v := math.Max(1, math.Min(5, *f))
	return &v
}

// cleanURL keeps absolute http(s) links only.
func cleanURL(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ""
	}
	return u.String()
}

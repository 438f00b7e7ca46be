package domain

// FaqRecord is one validated FAQ row. Answer keeps the editor's markup;
// plain text is derived only when building structured data.
type FaqRecord struct {
	Position   int
	Question   string
	Answer     string
	Categories []Category

	CategoryRefs []TermRef
}

func (f FaqRecord) CategorySlugs() []string { return slugsOf(f.Categories) }

// Category is a resolved taxonomy reference.
type Category struct {
	Slug  string `json:"slug" yaml:"slug"`
	Label string `json:"label" yaml:"label"`
}

// Categorized is anything the filter engine can match against category slugs.
type Categorized interface {
	CategorySlugs() []string
}

// CategoryFilter holds include/exclude slug sets. A nil or empty Include
// places no restriction on the records.
type CategoryFilter struct {
	Include []string
	Exclude []string
}

func slugsOf(cs []Category) []string {
	if len(cs) == 0 {
		return nil
	}
	out := make([]string, 0, len(cs))
	for _, c := range cs {
		out = append(out, c.Slug)
	}
	return out
}

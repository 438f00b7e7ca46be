package domain

// ReviewRecord is one validated review/testimonial row.
// Body and Name are never empty once a record leaves the normalizer.
type ReviewRecord struct {
	ID         string
	Position   int // 1-based row index in the source
	Name       string
	Body       string
	Title      string
	Location   string
	Rating     *float64 // nil means "no rating", never zero stars
	SourceURL  *string
	Categories []Category

	// CategoryRefs are the unresolved references read from the row.
	CategoryRefs []TermRef
}

// AuthorLabel is the reviewer name with the optional location appended.
func (r ReviewRecord) AuthorLabel() string {
	if r.Location == "" {
		return r.Name
	}
	if r.Name == "" {
		return r.Location
	}
	return r.Name + " (" + r.Location + ")"
}

func (r ReviewRecord) CategorySlugs() []string { return slugsOf(r.Categories) }

package domain

// OutcomeKind is what a render pass decided to emit.
type OutcomeKind int

const (
	OutcomeEmpty OutcomeKind = iota
	OutcomePlaceholder
	OutcomeRendered
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomePlaceholder:
		return "placeholder"
	case OutcomeRendered:
		return "rendered"
	default:
		return "empty"
	}
}

// RenderOutcome is the result of one block render. Only Rendered carries
// markup and structured data; Placeholder carries a notice for editors.
type RenderOutcome struct {
	Kind    OutcomeKind
	Message string
	HTML    string
	JSONLD  []map[string]any
}

func Empty() RenderOutcome { return RenderOutcome{Kind: OutcomeEmpty} }

func Placeholder(msg string) RenderOutcome {
	return RenderOutcome{Kind: OutcomePlaceholder, Message: msg}
}

func Rendered(html string, jsonld []map[string]any) RenderOutcome {
	return RenderOutcome{Kind: OutcomeRendered, HTML: html, JSONLD: jsonld}
}

// RenderContext tells a render pass who is looking. Editor contexts get
// placeholders and empty-state notices; public contexts get nothing.
type RenderContext struct {
	Editor    bool
	Permalink string
	PageID    int64
}

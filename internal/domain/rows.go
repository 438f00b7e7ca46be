package domain

import "context"

// RawRow is a single repeater row as delivered by a row source.
// Its shape depends on the source; only the normalizer interprets it.
type RawRow map[string]any

// RowSource yields the raw rows of one repeater field.
type RowSource interface {
	FetchRows(ctx context.Context) ([]RawRow, error)
}

// RowSourceFunc adapts a function to RowSource.
type RowSourceFunc func(ctx context.Context) ([]RawRow, error)

func (f RowSourceFunc) FetchRows(ctx context.Context) ([]RawRow, error) { return f(ctx) }

// TermRefKind tags the shape a category reference arrived in.
type TermRefKind int

const (
	NumericRef TermRefKind = iota + 1
	ObjectRef
	TextRef
)

// TermRef is a category reference tagged at the input boundary.
type TermRef struct {
	Kind  TermRefKind
	ID    int64  // NumericRef
	Slug  string // ObjectRef
	Label string // ObjectRef
	Text  string // TextRef
}

// Term is a taxonomy entry as stored by the host.
type Term struct {
	ID       int64  `json:"id" yaml:"id"`
	Taxonomy string `json:"taxonomy" yaml:"taxonomy"`
	Slug     string `json:"slug" yaml:"slug"`
	Name     string `json:"name" yaml:"name"`
}

// Block is an embedded content block on a page. Blocks nest.
type Block struct {
	Name        string         `json:"name" yaml:"name"`
	ID          string         `json:"id,omitempty" yaml:"id,omitempty"`
	Anchor      string         `json:"anchor,omitempty" yaml:"anchor,omitempty"`
	Attrs       map[string]any `json:"attrs,omitempty" yaml:"attrs,omitempty"`
	InnerBlocks []Block        `json:"innerBlocks,omitempty" yaml:"innerBlocks,omitempty"`
}

// Page is the host object blocks are attached to.
type Page struct {
	ID        int64   `json:"id" yaml:"id"`
	Permalink string  `json:"permalink" yaml:"permalink"`
	Singular  bool    `json:"singular" yaml:"singular"`
	Blocks    []Block `json:"blocks" yaml:"blocks"`
}

// WalkBlocks visits blocks depth-first in document order.
func WalkBlocks(blocks []Block, fn func(Block)) {
	for _, b := range blocks {
		fn(b)
		WalkBlocks(b.InnerBlocks, fn)
	}
}

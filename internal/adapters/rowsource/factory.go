package rowsource

import (
	"strconv"

	"review_blocks/internal/domain"
	"review_blocks/internal/shared"
)

// Factory builds the priority chain for one block instance: direct field
// access, then the row cursor, then the block's attribute payload. Sources
// whose collaborator is not configured are left out.
type Factory struct {
	store         domain.FieldStore
	opener        domain.CursorOpener
	optionsObject string
}

func NewFactory(store domain.FieldStore, opener domain.CursorOpener, optionsObject string) *Factory {
	return &Factory{store: store, opener: opener, optionsObject: optionsObject}
}

func (f *Factory) For(b domain.Block, rc domain.RenderContext, fields shared.FieldBinding) domain.RowSource {
	objects := f.objects(rc)
	var chain []domain.RowSource
	if f.store != nil {
		chain = append(chain, NewDirectSource(f.store, fields.Repeater, objects...))
	}
	if f.opener != nil {
		chain = append(chain, NewCursorSource(f.opener, fields.Repeater, objects...))
	}
	chain = append(chain, NewAttributeSource(b.Attrs, fields))
	return NewChain(chain...)
}

// objects lists where a repeater is looked up: the page first, then the
// options object.
func (f *Factory) objects(rc domain.RenderContext) []string {
	var out []string
	if rc.PageID > 0 {
		out = append(out, strconv.FormatInt(rc.PageID, 10))
	}
	if f.optionsObject != "" {
		out = append(out, f.optionsObject)
	}
	return out
}

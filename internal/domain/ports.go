package domain

import (
	"context"
	"fmt"
)

// TermStore resolves numeric taxonomy ids. Unknown ids return ErrNotFound.
type TermStore interface {
	GetTerm(ctx context.Context, taxonomy string, id int64) (Term, error)
}

// FieldStore is direct field access: the full value of a repeater field
// stored on an object (a page id or the options object).
type FieldStore interface {
	GetRows(ctx context.Context, object, field string) ([]RawRow, error)
}

// RowCursor walks repeater rows one at a time, the way a have-rows loop does.
// Err reports the first failure after Next returns false.
type RowCursor interface {
	Next(ctx context.Context) bool
	Row() RawRow
	Err() error
}

// CursorOpener opens a cursor over a repeater field on an object.
type CursorOpener interface {
	OpenRows(ctx context.Context, object, field string) (RowCursor, error)
}

// PageRepository loads pages with their block trees.
type PageRepository interface {
	GetPage(ctx context.Context, id int64) (Page, error)
	ListPageIDs(ctx context.Context, limit int) ([]int64, error)
}

// ContentWriter is the write side used when importing fixtures.
type ContentWriter interface {
	UpsertTerm(ctx context.Context, t Term) error
	UpsertFieldRows(ctx context.Context, object, field string, rows []RawRow) error
	UpsertPage(ctx context.Context, p Page) error
}

// Cache keys shared by the services that fill and invalidate them.
func TermCacheKey(taxonomy string, id int64) string { return fmt.Sprintf("term:%s:%d", taxonomy, id) }
func PageCacheKey(id int64) string                  { return fmt.Sprintf("page:%d", id) }

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}

// Package rowsource adapts the places repeater rows can live (a field store,
// a paginated row cursor, a block's own attribute payload) to
// domain.RowSource.
package rowsource

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"review_blocks/internal/domain"
)

// DirectSource reads a whole repeater value per object. Objects are tried
// in order; a field missing on one object falls through to the next.
type DirectSource struct {
	store   domain.FieldStore
	objects []string
	field   string
}

func NewDirectSource(store domain.FieldStore, field string, objects ...string) *DirectSource {
	return &DirectSource{store: store, objects: objects, field: field}
}

func (s *DirectSource) FetchRows(ctx context.Context) ([]domain.RawRow, error) {
	if s.store == nil || s.field == "" {
		return nil, domain.ErrSourceUnavailable
	}
	for _, obj := range s.objects {
		rows, err := s.store.GetRows(ctx, obj, s.field)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("direct rows %s/%s: %w", obj, s.field, err)
		}
		if len(rows) > 0 {
			return rows, nil
		}
	}
	return nil, nil
}

// CursorSource drains a row cursor per object, in order.
type CursorSource struct {
	opener  domain.CursorOpener
	objects []string
	field   string
}

func NewCursorSource(opener domain.CursorOpener, field string, objects ...string) *CursorSource {
	return &CursorSource{opener: opener, objects: objects, field: field}
}

func (s *CursorSource) FetchRows(ctx context.Context) ([]domain.RawRow, error) {
	if s.opener == nil || s.field == "" {
		return nil, domain.ErrSourceUnavailable
	}
	for _, obj := range s.objects {
		cur, err := s.opener.OpenRows(ctx, obj, s.field)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("open cursor %s/%s: %w", obj, s.field, err)
		}
		var rows []domain.RawRow
		for cur.Next(ctx) {
			rows = append(rows, cur.Row())
		}
		if err := cur.Err(); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("cursor %s/%s: %w", obj, s.field, err)
		}
		if len(rows) > 0 {
			return rows, nil
		}
	}
	return nil, nil
}

// Chain tries sources in order and returns the first non-empty result.
// Sources reporting ErrSourceUnavailable are skipped; other failures are
// logged and skipped too. When no source was usable at all the chain
// itself reports ErrSourceUnavailable.
type Chain struct {
	sources []domain.RowSource
	log     zerolog.Logger
}

func NewChain(sources ...domain.RowSource) *Chain {
	return &Chain{sources: sources, log: log.Logger}
}

func (c *Chain) FetchRows(ctx context.Context) ([]domain.RawRow, error) {
	available := false
	var errs []error
	for _, src := range c.sources {
		if src == nil {
			continue
		}
		rows, err := src.FetchRows(ctx)
		switch {
		case errors.Is(err, domain.ErrSourceUnavailable):
			continue
		case err != nil:
			c.log.Warn().Err(err).Msg("row source failed, trying next")
			errs = append(errs, err)
			continue
		}
		available = true
		if len(rows) > 0 {
			return rows, nil
		}
	}
	if !available {
		if len(errs) > 0 {
			return nil, fmt.Errorf("%w: %w", domain.ErrSourceUnavailable, errors.Join(errs...))
		}
		return nil, domain.ErrSourceUnavailable
	}
	return nil, nil
}

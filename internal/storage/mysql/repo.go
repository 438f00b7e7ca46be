package mysql

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"review_blocks/internal/domain"
)

func valJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	if len(b) == 0 || string(b) == "null" {
		return "[]", nil
	}
	return string(b), nil
}

// decodeRows keeps numbers as json.Number so ids and ratings survive
// untouched until the normalizer sees them.
func decodeRows(b []byte) ([]domain.RawRow, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var rows []domain.RawRow
	if err := dec.Decode(&rows); err != nil {
		return nil, err
	}
	return rows, nil
}

type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

func (r *Repo) UpsertTerm(ctx context.Context, t domain.Term) error {
	_, err := r.db.ExecContext(ctx, upsertTermSQL, t.Taxonomy, t.ID, t.Slug, t.Name)
	if err != nil {
		return fmt.Errorf("upsert term %s/%d: %w", t.Taxonomy, t.ID, err)
	}
	return nil
}

func (r *Repo) UpsertFieldRows(ctx context.Context, object, field string, rows []domain.RawRow) error {
	payload, err := valJSON(rows)
	if err != nil {
		return fmt.Errorf("encode rows %s/%s: %w", object, field, err)
	}
	if _, err := r.db.ExecContext(ctx, upsertFieldSQL, object, field, payload); err != nil {
		return fmt.Errorf("upsert field %s/%s: %w", object, field, err)
	}
	return nil
}

func (r *Repo) UpsertPage(ctx context.Context, p domain.Page) error {
	blocks, err := valJSON(p.Blocks)
	if err != nil {
		return fmt.Errorf("encode blocks for page %d: %w", p.ID, err)
	}
	if _, err := r.db.ExecContext(ctx, upsertPageSQL, p.ID, p.Permalink, p.Singular, blocks); err != nil {
		return fmt.Errorf("upsert page %d: %w", p.ID, err)
	}
	return nil
}

func (r *Repo) GetTerm(ctx context.Context, taxonomy string, id int64) (domain.Term, error) {
	var t domain.Term
	err := r.db.QueryRowContext(ctx, getTermSQL, taxonomy, id).Scan(&t.ID, &t.Taxonomy, &t.Slug, &t.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Term{}, domain.ErrNotFound
		}
		return domain.Term{}, fmt.Errorf("get term %s/%d: %w", taxonomy, id, err)
	}
	return t, nil
}

// GetRows returns the stored repeater value. A field that was never saved
// is ErrNotFound; a saved empty repeater is an empty slice.
func (r *Repo) GetRows(ctx context.Context, object, field string) ([]domain.RawRow, error) {
	var payload []byte
	err := r.db.QueryRowContext(ctx, getFieldSQL, object, field).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get field %s/%s: %w", object, field, err)
	}
	rows, err := decodeRows(payload)
	if err != nil {
		return nil, fmt.Errorf("decode field %s/%s: %w", object, field, err)
	}
	if rows == nil {
		rows = []domain.RawRow{}
	}
	return rows, nil
}

func (r *Repo) GetPage(ctx context.Context, id int64) (domain.Page, error) {
	var (
		p      domain.Page
		blocks []byte
	)
	err := r.db.QueryRowContext(ctx, getPageSQL, id).Scan(&p.ID, &p.Permalink, &p.Singular, &blocks)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Page{}, domain.ErrNotFound
		}
		return domain.Page{}, fmt.Errorf("get page %d: %w", id, err)
	}
	if len(blocks) > 0 {
		dec := json.NewDecoder(bytes.NewReader(blocks))
		dec.UseNumber()
		if err := dec.Decode(&p.Blocks); err != nil {
			return domain.Page{}, fmt.Errorf("decode blocks for page %d: %w", id, err)
		}
	}
	return p, nil
}

func (r *Repo) ListPageIDs(ctx context.Context, limit int) ([]int64, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx, listPageIDsSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

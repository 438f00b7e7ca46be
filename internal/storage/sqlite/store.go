// Package sqlite is a single-file content store for offline rendering and
// tests. It implements the same ports as the MySQL repo.
package sqlite

import (
	"bytes"
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"review_blocks/internal/domain"
)

//go:embed schema.sql
var schema string

type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and applies the schema.
// ":memory:" gives a private in-memory database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if path == ":memory:" {
		// every pooled connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) UpsertTerm(ctx context.Context, t domain.Term) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO terms (taxonomy, id, slug, name) VALUES (?, ?, ?, ?)
ON CONFLICT (taxonomy, id) DO UPDATE SET slug = excluded.slug, name = excluded.name, updated_at = CURRENT_TIMESTAMP`,
		t.Taxonomy, t.ID, t.Slug, t.Name)
	if err != nil {
		return fmt.Errorf("upsert term %s/%d: %w", t.Taxonomy, t.ID, err)
	}
	return nil
}

func (s *Store) UpsertFieldRows(ctx context.Context, object, field string, rows []domain.RawRow) error {
	if rows == nil {
		rows = []domain.RawRow{}
	}
	b, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("encode rows %s/%s: %w", object, field, err)
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO field_values (object_key, field_name, payload) VALUES (?, ?, ?)
ON CONFLICT (object_key, field_name) DO UPDATE SET payload = excluded.payload, updated_at = CURRENT_TIMESTAMP`,
		object, field, string(b))
	if err != nil {
		return fmt.Errorf("upsert field %s/%s: %w", object, field, err)
	}
	return nil
}

func (s *Store) UpsertPage(ctx context.Context, p domain.Page) error {
	blocks := p.Blocks
	if blocks == nil {
		blocks = []domain.Block{}
	}
	b, err := json.Marshal(blocks)
	if err != nil {
		return fmt.Errorf("encode blocks for page %d: %w", p.ID, err)
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO pages (id, permalink, singular, blocks) VALUES (?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET permalink = excluded.permalink, singular = excluded.singular,
  blocks = excluded.blocks, updated_at = CURRENT_TIMESTAMP`,
		p.ID, p.Permalink, p.Singular, string(b))
	if err != nil {
		return fmt.Errorf("upsert page %d: %w", p.ID, err)
	}
	return nil
}

func (s *Store) GetTerm(ctx context.Context, taxonomy string, id int64) (domain.Term, error) {
	var t domain.Term
	err := s.db.QueryRowContext(ctx,
		`SELECT id, taxonomy, slug, name FROM terms WHERE taxonomy = ? AND id = ?`, taxonomy, id).
		Scan(&t.ID, &t.Taxonomy, &t.Slug, &t.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Term{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Term{}, fmt.Errorf("get term %s/%d: %w", taxonomy, id, err)
	}
	return t, nil
}

func (s *Store) GetRows(ctx context.Context, object, field string) ([]domain.RawRow, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM field_values WHERE object_key = ? AND field_name = ?`, object, field).
		Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get field %s/%s: %w", object, field, err)
	}
	rows := []domain.RawRow{}
	if err := decode([]byte(payload), &rows); err != nil {
		return nil, fmt.Errorf("decode field %s/%s: %w", object, field, err)
	}
	return rows, nil
}

func (s *Store) GetPage(ctx context.Context, id int64) (domain.Page, error) {
	var (
		p      domain.Page
		blocks string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, permalink, singular, blocks FROM pages WHERE id = ?`, id).
		Scan(&p.ID, &p.Permalink, &p.Singular, &blocks)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Page{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Page{}, fmt.Errorf("get page %d: %w", id, err)
	}
	if err := decode([]byte(blocks), &p.Blocks); err != nil {
		return domain.Page{}, fmt.Errorf("decode blocks for page %d: %w", id, err)
	}
	return p, nil
}

func (s *Store) ListPageIDs(ctx context.Context, limit int) ([]int64, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM pages ORDER BY id LIMIT ?`, limit)
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
	return out, rows.Err()
}

func decode(b []byte, dst any) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	return dec.Decode(dst)
}

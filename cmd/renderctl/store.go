package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	"gopkg.in/yaml.v3"

	"review_blocks/internal/app"
	"review_blocks/internal/domain"
	mysqlrepo "review_blocks/internal/storage/mysql"
	"review_blocks/internal/storage/sqlite"
)

// contentStore is everything the CLI reads and writes.
type contentStore interface {
	domain.FieldStore
	domain.TermStore
	domain.PageRepository
	domain.ContentWriter
	Close() error
}

type mysqlStore struct {
	*mysqlrepo.Repo
	db *sql.DB
}

func (s mysqlStore) Close() error { return s.db.Close() }

// openStore opens a MySQL store for "mysql://<dsn>" and a SQLite file
// otherwise.
func openStore(ctx context.Context, target string) (contentStore, error) {
	if dsn, ok := strings.CutPrefix(target, "mysql://"); ok {
		db, err := sql.Open("mysql", dsn)
		if err != nil {
			return nil, fmt.Errorf("open mysql: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("ping mysql: %w", err)
		}
		return mysqlStore{Repo: mysqlrepo.New(db), db: db}, nil
	}
	st, err := sqlite.Open(target)
	if err != nil {
		return nil, err
	}
	return st, nil
}

// loadFixture reads a YAML or JSON fixture.
func loadFixture(path string) (app.Fixture, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return app.Fixture{}, fmt.Errorf("read fixture: %w", err)
	}
	var fx app.Fixture
	// YAML is a superset of JSON, so .json files go through the same decoder.
	if err := yaml.Unmarshal(raw, &fx); err != nil {
		return app.Fixture{}, fmt.Errorf("parse fixture %s: %w", filepath.Base(path), err)
	}
	return fx, nil
}

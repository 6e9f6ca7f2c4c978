// Package store persists device configurations in SQLite. Configurations
// are stored as JSON documents keyed by device name; the store hands out
// deep copies so callers can never mutate what a concurrent run reads.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/mikem1017/macallan-rf-perf-tool/model"
)

// ErrNotFound is returned when no configuration exists under a name.
var ErrNotFound = errors.New("dut config not found")

const schema = `
CREATE TABLE IF NOT EXISTS dut_configs (
	name        TEXT PRIMARY KEY,
	part_number TEXT NOT NULL DEFAULT '',
	doc         TEXT NOT NULL
);`

// Store is a SQLite-backed configuration repository.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the SQLite database at path and ensures
// the schema exists. Use ":memory:" for an ephemeral store.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// Save validates and upserts one configuration.
func (s *Store) Save(ctx context.Context, cfg *model.DutConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	doc, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode dut config %q: %w", cfg.Name, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO dut_configs (name, part_number, doc) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET part_number = excluded.part_number, doc = excluded.doc`,
		cfg.Name, cfg.PartNumber, string(doc))
	if err != nil {
		return fmt.Errorf("save dut config %q: %w", cfg.Name, err)
	}
	return nil
}

// Get fetches one configuration by name.
func (s *Store) Get(ctx context.Context, name string) (*model.DutConfig, error) {
	var doc string
	err := s.db.QueryRowContext(ctx,
		`SELECT doc FROM dut_configs WHERE name = ?`, name).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get dut config %q: %w", name, err)
	}
	var cfg model.DutConfig
	if err := json.Unmarshal([]byte(doc), &cfg); err != nil {
		return nil, fmt.Errorf("decode dut config %q: %w", name, err)
	}
	return &cfg, nil
}

// List returns all configurations ordered by name.
func (s *Store) List(ctx context.Context) ([]*model.DutConfig, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT doc FROM dut_configs ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list dut configs: %w", err)
	}
	defer rows.Close()

	var out []*model.DutConfig
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		var cfg model.DutConfig
		if err := json.Unmarshal([]byte(doc), &cfg); err != nil {
			return nil, fmt.Errorf("decode dut config: %w", err)
		}
		out = append(out, &cfg)
	}
	return out, rows.Err()
}

// Delete removes one configuration. Deleting an absent name returns
// ErrNotFound.
func (s *Store) Delete(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM dut_configs WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("delete dut config %q: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Count reports the number of stored configurations.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM dut_configs`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count dut configs: %w", err)
	}
	return n, nil
}

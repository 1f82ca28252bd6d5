// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package library

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/tally-lookup/pkg/types"
)

// ErrEntryNotFound is returned by Store.Entry for an unknown key.
var ErrEntryNotFound = errors.New("entry not found")

// Store keeps bibliographic entries in a SQLite database. It holds entries
// only; tally lookups are never persisted.
type Store struct {
	db *sql.DB
}

// NewStore opens or creates the library database at path and creates the
// schema if it does not exist.
func NewStore(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating library directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS entries (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			key TEXT NOT NULL UNIQUE,
			type TEXT,
			doi TEXT,
			fields TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_entries_doi ON entries(doi)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Import upserts entries by key inside one transaction and returns the
// number written.
func (s *Store) Import(ctx context.Context, entries []types.Entry) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO entries (key, type, doi, fields)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET type = excluded.type, doi = excluded.doi, fields = excluded.fields`)
	if err != nil {
		return 0, fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	n := 0
	for _, e := range entries {
		if e.Key == "" {
			return n, fmt.Errorf("entry %d has no key", n+1)
		}
		fields, err := json.Marshal(e.Fields)
		if err != nil {
			return n, fmt.Errorf("encoding fields of %s: %w", e.Key, err)
		}
		doi, _ := DOI(e)
		if _, err := stmt.ExecContext(ctx, e.Key, e.Type, doi, string(fields)); err != nil {
			return n, fmt.Errorf("inserting %s: %w", e.Key, err)
		}
		n++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing import: %w", err)
	}
	return n, nil
}

// Entries returns all entries in insertion order.
func (s *Store) Entries(ctx context.Context) ([]types.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, type, fields FROM entries ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("querying entries: %w", err)
	}
	defer rows.Close()

	var entries []types.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Entry returns the entry stored under key.
func (s *Store) Entry(ctx context.Context, key string) (types.Entry, error) {
	row := s.db.QueryRowContext(ctx, `SELECT key, type, fields FROM entries WHERE key = ?`, key)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Entry{}, fmt.Errorf("%w: %s", ErrEntryNotFound, key)
	}
	return e, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (types.Entry, error) {
	var (
		e      types.Entry
		typ    sql.NullString
		fields string
	)
	if err := row.Scan(&e.Key, &typ, &fields); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Entry{}, err
		}
		return types.Entry{}, fmt.Errorf("scanning entry: %w", err)
	}
	e.Type = typ.String
	if err := json.Unmarshal([]byte(fields), &e.Fields); err != nil {
		return types.Entry{}, fmt.Errorf("decoding fields of %s: %w", e.Key, err)
	}
	return e, nil
}

// Package sqlite persists collections to an embedded SQLite file, one JSON
// payload per collection.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"rentledger/pkg/domain"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

var _ domain.CollectionBackend = (*Store)(nil)

// DefaultPath is used when no path is configured.
const DefaultPath = "rentledger.db"

// Store persists every collection as a single row of the collections table.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens (or creates) the SQLite file at path and ensures the schema
// tables exist.
func NewStore(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		path = DefaultPath
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// a single connection serialises writers inside the process
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS collections (
		name TEXT PRIMARY KEY,
		payload BLOB NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create collections table: %w", err)
	}
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create meta table: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// EnsureCollections inserts an empty list for every missing collection and
// records the schema version. Existing payloads are left untouched.
func (s *Store) EnsureCollections(ctx context.Context, names []domain.Collection) (retErr error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	for _, name := range names {
		if _, err := tx.ExecContext(ctx, `INSERT INTO collections(name,payload) VALUES(?,?) ON CONFLICT(name) DO NOTHING`, string(name), []byte("[]")); err != nil {
			return fmt.Errorf("ensure %s: %w", name, err)
		}
	}
	// the recorded version only ever rises, so an older binary cannot lower it
	if _, err := tx.ExecContext(ctx, `INSERT INTO meta(key,value) VALUES('schema_version',?) ON CONFLICT(key) DO UPDATE SET value=excluded.value WHERE CAST(meta.value AS INTEGER) < CAST(excluded.value AS INTEGER)`, strconv.Itoa(domain.SchemaVersion)); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	return tx.Commit()
}

// Load reads the payload of one collection.
func (s *Store) Load(ctx context.Context, name domain.Collection) ([]byte, bool, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM collections WHERE name = ?`, string(name)).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("select %s: %w", name, err)
	}
	return payload, true, nil
}

// Save upserts the payload of one collection.
func (s *Store) Save(ctx context.Context, name domain.Collection, payload []byte) error {
	if _, err := s.db.ExecContext(ctx, `INSERT INTO collections(name,payload) VALUES(?,?) ON CONFLICT(name) DO UPDATE SET payload=excluded.payload`, string(name), payload); err != nil {
		return fmt.Errorf("upsert %s: %w", name, err)
	}
	return nil
}

// Remove deletes the row of one collection.
func (s *Store) Remove(ctx context.Context, name domain.Collection) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM collections WHERE name = ?`, string(name)); err != nil {
		return fmt.Errorf("delete %s: %w", name, err)
	}
	return nil
}

// SchemaVersion returns the version recorded by EnsureCollections, or 0.
func (s *Store) SchemaVersion(ctx context.Context) (int, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = 'schema_version'`).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(raw)
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Path returns the configured database path.
func (s *Store) Path() string { return s.path }

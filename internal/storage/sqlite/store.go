// Package sqlite provides a durable storage backend that mirrors the
// in-memory semantics and snapshots the full state into a single SQLite
// table as JSON after every successful mutation.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"domaincore/internal/storage"
	"domaincore/internal/storage/memory"
)

var _ storage.Backend = (*Store)(nil)

// Store layers SQLite persistence over the in-memory backend.
type Store struct {
	*memory.Store
	db   *sql.DB
	mu   sync.Mutex
	path string
}

// New opens (or creates) the database at path and hydrates the in-memory
// state from any existing snapshot.
func New(path string) (*Store, error) {
	if path == "" {
		path = "domaincore.db"
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
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS state (
		bucket TEXT PRIMARY KEY,
		payload BLOB NOT NULL
	)`); err != nil {
		return nil, fmt.Errorf("create state table: %w", err)
	}
	s := &Store{Store: memory.New(), db: db, path: path}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

const objectsBucket = "objects"

func (s *Store) load() error {
	var payload []byte
	err := s.db.QueryRow(`SELECT payload FROM state WHERE bucket = ?`, objectsBucket).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("select state: %w", err)
	}
	var snap memory.Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return fmt.Errorf("decode objects: %w", err)
	}
	s.ImportState(snap)
	return nil
}

func (s *Store) persist() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	payload, err := json.Marshal(s.ExportState())
	if err != nil {
		return fmt.Errorf("encode objects: %w", err)
	}
	if _, err := s.db.Exec(
		`INSERT INTO state(bucket,payload) VALUES(?,?) ON CONFLICT(bucket) DO UPDATE SET payload=excluded.payload`,
		objectsBucket, payload,
	); err != nil {
		return fmt.Errorf("upsert %s: %w", objectsBucket, err)
	}
	return nil
}

// Create writes through the memory backend, then snapshots to SQLite.
func (s *Store) Create(ctx context.Context, rec storage.Record) error {
	if err := s.Store.Create(ctx, rec); err != nil {
		return err
	}
	return s.persist()
}

// Save writes through the memory backend, then snapshots to SQLite.
func (s *Store) Save(ctx context.Context, rec storage.Record) error {
	if err := s.Store.Save(ctx, rec); err != nil {
		return err
	}
	return s.persist()
}

// Delete writes through the memory backend, then snapshots to SQLite.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.Store.Delete(ctx, id); err != nil {
		return err
	}
	return s.persist()
}

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Path returns the configured database path.
func (s *Store) Path() string { return s.path }

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

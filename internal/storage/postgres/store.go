// Package postgres provides a Postgres-backed storage backend that
// mirrors the in-memory semantics, snapshotting state as JSON after every
// successful mutation.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver

	"domaincore/internal/storage"
	"domaincore/internal/storage/memory"
)

var _ storage.Backend = (*Store)(nil)

const (
	defaultDriver = "pgx"
	defaultDSN    = "postgres://localhost/domaincore?sslmode=disable"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// Store layers Postgres persistence over the in-memory backend.
type Store struct {
	*memory.Store
	db *sql.DB
	mu sync.Mutex
}

// New opens a Postgres-backed store using the provided DSN (falls back to
// defaultDSN), ensures the snapshot table exists, and hydrates the
// in-memory state from any existing snapshot.
func New(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS domaincore_state (
		bucket TEXT PRIMARY KEY,
		payload BYTEA NOT NULL
	)`); err != nil {
		return nil, fmt.Errorf("create state table: %w", err)
	}
	s := &Store{Store: memory.New(), db: db}
	if err := s.load(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

const objectsBucket = "objects"

func (s *Store) load(ctx context.Context) error {
	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM domaincore_state WHERE bucket = $1`, objectsBucket).Scan(&payload)
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

func (s *Store) persist(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	payload, err := json.Marshal(s.ExportState())
	if err != nil {
		return fmt.Errorf("encode objects: %w", err)
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO domaincore_state(bucket,payload) VALUES($1,$2)
		 ON CONFLICT(bucket) DO UPDATE SET payload=excluded.payload`,
		objectsBucket, payload,
	); err != nil {
		return fmt.Errorf("upsert %s: %w", objectsBucket, err)
	}
	return nil
}

// Create writes through the memory backend, then snapshots to Postgres.
func (s *Store) Create(ctx context.Context, rec storage.Record) error {
	if err := s.Store.Create(ctx, rec); err != nil {
		return err
	}
	return s.persist(ctx)
}

// Save writes through the memory backend, then snapshots to Postgres.
func (s *Store) Save(ctx context.Context, rec storage.Record) error {
	if err := s.Store.Save(ctx, rec); err != nil {
		return err
	}
	return s.persist(ctx)
}

// Delete writes through the memory backend, then snapshots to Postgres.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.Store.Delete(ctx, id); err != nil {
		return err
	}
	return s.persist(ctx)
}

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

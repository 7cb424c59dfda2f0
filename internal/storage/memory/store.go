// Package memory provides the in-memory storage backend used for tests
// and ephemeral deployments. Its semantics are the reference the durable
// backends mirror.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"domaincore/internal/storage"
	"domaincore/pkg/object"
)

var _ storage.Backend = (*Store)(nil)

// Snapshot captures a point-in-time clone of the store state for the
// durable backends layered on top.
type Snapshot struct {
	Objects map[string]storage.Record `json:"objects"`
}

// Store is a mutex-guarded map of records with a path index. Reads and
// writes clone, so callers never share field maps with the store.
type Store struct {
	mu     sync.RWMutex
	byID   map[string]storage.Record
	byPath map[string]string // path → id
	nowFn  func() time.Time
}

// New constructs an empty in-memory backend.
func New() *Store {
	return &Store{
		byID:   make(map[string]storage.Record),
		byPath: make(map[string]string),
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
}

// SetNowFunc overrides the timestamp source. Tests only.
func (s *Store) SetNowFunc(fn func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nowFn = fn
}

// Find resolves a record by id or path.
func (s *Store) Find(_ context.Context, ref object.Ref) (storage.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id := ref.ID
	if id == "" {
		var ok bool
		id, ok = s.byPath[ref.Path]
		if !ok {
			return storage.Record{}, object.NotFoundError{Ref: ref.String()}
		}
	}
	rec, ok := s.byID[id]
	if !ok {
		return storage.Record{}, object.NotFoundError{Ref: ref.String()}
	}
	return rec.Clone(), nil
}

// Create persists a new record; the path and id must both be free.
func (s *Store) Create(_ context.Context, rec storage.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byID[rec.ID]; exists {
		return object.PathExistsError{Path: rec.Path}
	}
	if _, exists := s.byPath[rec.Path]; exists {
		return object.PathExistsError{Path: rec.Path}
	}
	now := s.nowFn()
	rec.CreatedAt = now
	rec.UpdatedAt = now
	s.byID[rec.ID] = rec.Clone()
	s.byPath[rec.Path] = rec.ID
	return nil
}

// Save replaces the stored field map of an existing record.
func (s *Store) Save(_ context.Context, rec storage.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.byID[rec.ID]
	if !ok {
		return object.NotFoundError{Ref: rec.ID}
	}
	current.Object = object.CloneMap(rec.Object)
	current.UpdatedAt = s.nowFn()
	s.byID[rec.ID] = current
	return nil
}

// Delete removes a record by id. Deleting a missing id is not an error;
// delete is the terminal step of a best-effort teardown.
func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.byID[id]
	if !ok {
		return nil
	}
	delete(s.byID, id)
	delete(s.byPath, rec.Path)
	return nil
}

// FindChildren lists records whose parent id matches.
func (s *Store) FindChildren(_ context.Context, parentID string, f storage.Filter) ([]storage.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []storage.Record
	for _, rec := range s.byID {
		if rec.ParentID == parentID && f.Matches(rec) {
			out = append(out, rec.Clone())
		}
	}
	sortByPath(out)
	return out, nil
}

// FindDescendants lists records strictly below the path prefix.
func (s *Store) FindDescendants(_ context.Context, pathPrefix string, f storage.Filter) ([]storage.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []storage.Record
	for _, rec := range s.byID {
		if storage.UnderPrefix(rec.Path, pathPrefix) && f.Matches(rec) {
			out = append(out, rec.Clone())
		}
	}
	sortByPath(out)
	return out, nil
}

// ExportState clones the current state for snapshotting backends.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := Snapshot{Objects: make(map[string]storage.Record, len(s.byID))}
	for id, rec := range s.byID {
		snap.Objects[id] = rec.Clone()
	}
	return snap
}

// ImportState replaces the store state with the snapshot, rebuilding the
// path index.
func (s *Store) ImportState(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID = make(map[string]storage.Record, len(snap.Objects))
	s.byPath = make(map[string]string, len(snap.Objects))
	for id, rec := range snap.Objects {
		s.byID[id] = rec.Clone()
		s.byPath[rec.Path] = id
	}
}

func sortByPath(recs []storage.Record) {
	sort.Slice(recs, func(i, j int) bool { return recs[i].Path < recs[j].Path })
}

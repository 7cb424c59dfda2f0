// Package membership defines the narrow client contract for the external
// cluster-wide key resolver, plus an in-process implementation used for
// single-node deployments and tests. The directory consults it only on
// local cache miss.
package membership

import (
	"context"
	"sync"

	"domaincore/internal/proc"
	"domaincore/pkg/object"
)

// Entry is one published resolution of a key.
type Entry struct {
	Key      string
	Metadata map[string]any
	Handle   *proc.Proc
}

// Service is the authoritative key-to-process resolver.
type Service interface {
	Publish(ctx context.Context, key string, metadata map[string]any, handle *proc.Proc) error
	Lookup(ctx context.Context, key string) ([]Entry, error)
}

// Static is the in-process Service: a mutex-guarded table. Dead handles
// are filtered out on lookup and replaced on publish.
type Static struct {
	mu      sync.Mutex
	entries map[string][]Entry
}

var _ Service = (*Static)(nil)

// NewStatic returns an empty in-process membership table.
func NewStatic() *Static {
	return &Static{entries: make(map[string][]Entry)}
}

// Publish records key → (metadata, handle), replacing any prior entry for
// the same handle.
func (s *Static) Publish(_ context.Context, key string, metadata map[string]any, handle *proc.Proc) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.entries[key][:0]
	for _, e := range s.entries[key] {
		if e.Handle.ID() != handle.ID() && e.Handle.Alive() {
			kept = append(kept, e)
		}
	}
	kept = append(kept, Entry{Key: key, Metadata: object.CloneMap(metadata), Handle: handle})
	s.entries[key] = kept
	return nil
}

// Lookup returns the live entries published under key, or a NotFoundError.
func (s *Static) Lookup(_ context.Context, key string) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var live []Entry
	for _, e := range s.entries[key] {
		if e.Handle.Alive() {
			live = append(live, Entry{Key: e.Key, Metadata: object.CloneMap(e.Metadata), Handle: e.Handle})
		}
	}
	if len(live) == 0 {
		return nil, object.NotFoundError{Ref: key}
	}
	return live, nil
}

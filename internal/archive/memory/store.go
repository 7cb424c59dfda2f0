// Package memory provides the in-memory archive driver used in tests.
package memory

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"domaincore/internal/archive/core"
	"domaincore/pkg/object"
)

var _ core.Store = (*Store)(nil)

type entry struct {
	info core.Info
	data []byte
}

// Store holds archived objects in a mutex-guarded map.
type Store struct {
	mu      sync.RWMutex
	entries map[string]entry
	nowFn   func() time.Time
}

// New constructs an empty in-memory archive.
func New() *Store {
	return &Store{
		entries: make(map[string]entry),
		nowFn:   func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) Driver() core.Driver { return core.DriverMemory }

// Put archives the payload under key. Existing keys are refused.
func (s *Store) Put(_ context.Context, key string, r io.Reader, opts core.PutOptions) (core.Info, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return core.Info{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.entries[key]; exists {
		return core.Info{}, core.ErrExists
	}
	md := make(map[string]string, len(opts.Metadata))
	for k, v := range opts.Metadata {
		md[k] = v
	}
	info := core.Info{
		Key:          key,
		Size:         int64(len(data)),
		ContentType:  opts.ContentType,
		Metadata:     md,
		LastModified: s.nowFn(),
	}
	s.entries[key] = entry{info: info, data: data}
	return info, nil
}

// Get returns the archived object.
func (s *Store) Get(_ context.Context, key string) (core.Info, io.ReadCloser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key]
	if !ok {
		return core.Info{}, nil, object.NotFoundError{Ref: key}
	}
	return e.info, io.NopCloser(bytes.NewReader(e.data)), nil
}

// Delete removes the archived object, reporting whether it existed.
func (s *Store) Delete(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[key]
	delete(s.entries, key)
	return ok, nil
}

// List returns the archived objects under prefix, sorted by key.
func (s *Store) List(_ context.Context, prefix string) ([]core.Info, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.Info
	for key, e := range s.entries {
		if strings.HasPrefix(key, prefix) {
			out = append(out, e.info)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// Package storage defines the durable backend contract the object runtime
// persists through. Implementations live in the driver subpackages; other
// packages must depend on this interface only.
package storage

import (
	"context"
	"strings"
	"time"

	"domaincore/pkg/object"
)

// Record is the persisted form of one entity: the full field map plus the
// hierarchy bookkeeping. Runtime-only state (dirty, enabled flag, links)
// is never persisted.
type Record struct {
	ID        string         `json:"id"`
	Type      object.TypeTag `json:"type"`
	Path      string         `json:"path"`
	ParentID  string         `json:"parent_id,omitempty"`
	Object    map[string]any `json:"object"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Clone deep-copies the record's field map.
func (r Record) Clone() Record {
	cp := r
	cp.Object = object.CloneMap(r.Object)
	return cp
}

// Filter narrows child/descendant queries. A zero filter matches all.
type Filter struct {
	Type object.TypeTag
}

// Matches reports whether the record passes the filter.
func (f Filter) Matches(rec Record) bool {
	return f.Type == "" || f.Type == rec.Type
}

// Backend is the storage contract. Create fails with PathExistsError when
// the path (or id) is already occupied; Find fails with NotFoundError.
// Save errors are surfaced as-is; retrying is the caller's policy.
type Backend interface {
	Find(ctx context.Context, ref object.Ref) (Record, error)
	Create(ctx context.Context, rec Record) error
	Save(ctx context.Context, rec Record) error
	Delete(ctx context.Context, id string) error
	FindChildren(ctx context.Context, parentID string, f Filter) ([]Record, error)
	FindDescendants(ctx context.Context, pathPrefix string, f Filter) ([]Record, error)
}

// UnderPrefix reports whether path lies strictly below prefix in the tree.
func UnderPrefix(path, prefix string) bool {
	if prefix == "/" {
		return path != "/"
	}
	return strings.HasPrefix(path, prefix+"/")
}

package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"domaincore/internal/storage"
	"domaincore/pkg/object"
)

func open(t *testing.T, path string) *Store {
	t.Helper()
	s, err := New(path)
	if err != nil {
		t.Fatalf("open sqlite store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStateSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	ctx := context.Background()

	s := open(t, path)
	rec := storage.Record{ID: "1", Type: "domain", Path: "/a", Object: map[string]any{"name": "a"}}
	if err := s.Create(ctx, rec); err != nil {
		t.Fatalf("create: %v", err)
	}
	updated := rec
	updated.Object = map[string]any{"name": "a", "touched": true}
	if err := s.Save(ctx, updated); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened := open(t, path)
	got, err := reopened.Find(ctx, object.Ref{Path: "/a"})
	if err != nil {
		t.Fatalf("find after reopen: %v", err)
	}
	if got.ID != "1" || got.Object["touched"] != true {
		t.Fatalf("restored record = %v", got)
	}
}

func TestDeletePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	ctx := context.Background()

	s := open(t, path)
	if err := s.Create(ctx, storage.Record{ID: "1", Type: "domain", Path: "/a", Object: map[string]any{}}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.Delete(ctx, "1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened := open(t, path)
	var nf object.NotFoundError
	if _, err := reopened.Find(ctx, object.Ref{ID: "1"}); !errors.As(err, &nf) {
		t.Fatalf("deleted record resurrected: %v", err)
	}
}

func TestCreateConflictLeavesSnapshotConsistent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	ctx := context.Background()

	s := open(t, path)
	if err := s.Create(ctx, storage.Record{ID: "1", Type: "domain", Path: "/a", Object: map[string]any{}}); err != nil {
		t.Fatalf("create: %v", err)
	}
	var pe object.PathExistsError
	if err := s.Create(ctx, storage.Record{ID: "2", Type: "domain", Path: "/a", Object: map[string]any{}}); !errors.As(err, &pe) {
		t.Fatalf("want PathExistsError, got %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened := open(t, path)
	got, err := reopened.Find(ctx, object.Ref{Path: "/a"})
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.ID != "1" {
		t.Fatalf("winner = %v, want id 1", got)
	}
}

func TestDefaultPath(t *testing.T) {
	s := open(t, filepath.Join(t.TempDir(), "named.db"))
	if s.Path() == "" {
		t.Fatalf("path not recorded")
	}
	if s.DB() == nil {
		t.Fatalf("db handle not exposed")
	}
}

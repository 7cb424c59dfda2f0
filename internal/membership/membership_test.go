package membership

import (
	"context"
	"errors"
	"testing"

	"domaincore/internal/proc"
	"domaincore/pkg/object"
)

func TestPublishAndLookup(t *testing.T) {
	s := NewStatic()
	ctx := context.Background()
	h := proc.New("a")

	if err := s.Publish(ctx, "key", map[string]any{"path": "/a"}, h); err != nil {
		t.Fatalf("publish: %v", err)
	}
	entries, err := s.Lookup(ctx, "key")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if len(entries) != 1 || entries[0].Handle.ID() != h.ID() {
		t.Fatalf("entries = %v", entries)
	}
	if entries[0].Metadata["path"] != "/a" {
		t.Fatalf("metadata = %v", entries[0].Metadata)
	}
}

func TestLookupMissingKey(t *testing.T) {
	s := NewStatic()
	_, err := s.Lookup(context.Background(), "nope")
	var nf object.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("want NotFoundError, got %v", err)
	}
}

func TestLookupFiltersDeadHandles(t *testing.T) {
	s := NewStatic()
	ctx := context.Background()
	dead := proc.New("dead")
	if err := s.Publish(ctx, "key", nil, dead); err != nil {
		t.Fatalf("publish: %v", err)
	}
	dead.Exit("gone")

	if _, err := s.Lookup(ctx, "key"); err == nil {
		t.Fatalf("dead entry survived lookup")
	}
}

func TestPublishReplacesSameHandle(t *testing.T) {
	s := NewStatic()
	ctx := context.Background()
	h := proc.New("a")
	if err := s.Publish(ctx, "key", map[string]any{"v": 1}, h); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := s.Publish(ctx, "key", map[string]any{"v": 2}, h); err != nil {
		t.Fatalf("republish: %v", err)
	}
	entries, err := s.Lookup(ctx, "key")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if len(entries) != 1 || entries[0].Metadata["v"] != 2 {
		t.Fatalf("entries = %v", entries)
	}
}

func TestPublishKeepsDistinctLiveHandles(t *testing.T) {
	s := NewStatic()
	ctx := context.Background()
	a, b := proc.New("a"), proc.New("b")
	if err := s.Publish(ctx, "key", nil, a); err != nil {
		t.Fatalf("publish a: %v", err)
	}
	if err := s.Publish(ctx, "key", nil, b); err != nil {
		t.Fatalf("publish b: %v", err)
	}
	entries, err := s.Lookup(ctx, "key")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
}

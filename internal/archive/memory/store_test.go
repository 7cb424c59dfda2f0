package memory

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"domaincore/internal/archive/core"
	"domaincore/pkg/object"
)

func TestPutGetDelete(t *testing.T) {
	s := New()
	ctx := context.Background()

	info, err := s.Put(ctx, "k", strings.NewReader("payload"), core.PutOptions{ContentType: "text/plain"})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Size != int64(len("payload")) {
		t.Fatalf("size = %d", info.Size)
	}

	got, rc, err := s.Get(ctx, "k")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(body) != "payload" || got.ContentType != "text/plain" {
		t.Fatalf("got %q / %+v", body, got)
	}

	removed, err := s.Delete(ctx, "k")
	if err != nil || !removed {
		t.Fatalf("delete = %v, %v", removed, err)
	}
	var nf object.NotFoundError
	if _, _, err := s.Get(ctx, "k"); !errors.As(err, &nf) {
		t.Fatalf("want NotFoundError after delete, got %v", err)
	}
}

func TestPutIsCreateOnly(t *testing.T) {
	s := New()
	ctx := context.Background()
	if _, err := s.Put(ctx, "k", strings.NewReader("a"), core.PutOptions{}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, err := s.Put(ctx, "k", strings.NewReader("b"), core.PutOptions{}); !errors.Is(err, core.ErrExists) {
		t.Fatalf("want ErrExists, got %v", err)
	}
}

func TestListSortedByPrefix(t *testing.T) {
	s := New()
	ctx := context.Background()
	for _, key := range []string{"b/2", "a/1", "c/3"} {
		if _, err := s.Put(ctx, key, strings.NewReader("x"), core.PutOptions{}); err != nil {
			t.Fatalf("put %s: %v", key, err)
		}
	}
	infos, err := s.List(ctx, "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(infos) != 3 || infos[0].Key != "a/1" || infos[2].Key != "c/3" {
		t.Fatalf("list = %+v", infos)
	}
	only, err := s.List(ctx, "b/")
	if err != nil {
		t.Fatalf("list prefix: %v", err)
	}
	if len(only) != 1 || only[0].Key != "b/2" {
		t.Fatalf("prefixed list = %+v", only)
	}
	if s.Driver() != core.DriverMemory {
		t.Fatalf("driver = %v", s.Driver())
	}
}

package archive

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"

	"domaincore/internal/storage"
)

func TestKeyLayout(t *testing.T) {
	rec := storage.Record{ID: "abc", Type: "token", Path: "/r/t"}
	if got, want := Key(rec), "archive/token/abc.json"; got != want {
		t.Fatalf("Key = %q, want %q", got, want)
	}
}

func TestWriteRecordFullSnapshot(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()
	rec := storage.Record{ID: "1", Type: "domain", Path: "/a", Object: map[string]any{"name": "a"}}

	info, err := WriteRecord(ctx, store, rec, nil)
	if err != nil {
		t.Fatalf("write record: %v", err)
	}
	if info.ContentType != "application/json" {
		t.Fatalf("content type = %q", info.ContentType)
	}
	if info.Metadata["object_id"] != "1" || info.Metadata["object_type"] != "domain" {
		t.Fatalf("metadata = %v", info.Metadata)
	}

	_, rc, err := store.Get(ctx, Key(rec))
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer rc.Close()
	raw, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var stored storage.Record
	if err := json.Unmarshal(raw, &stored); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if stored.ID != "1" || stored.Object["name"] != "a" {
		t.Fatalf("stored = %v", stored)
	}
}

func TestWriteRecordShapedPayload(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()
	rec := storage.Record{ID: "1", Type: "token", Path: "/t", Object: map[string]any{"secret": "s"}}

	if _, err := WriteRecord(ctx, store, rec, map[string]any{"id": "1", "redacted": true}); err != nil {
		t.Fatalf("write record: %v", err)
	}
	_, rc, err := store.Get(ctx, Key(rec))
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer rc.Close()
	raw, _ := io.ReadAll(rc)
	if strings.Contains(string(raw), "secret") {
		t.Fatalf("shaped payload leaked record fields: %s", raw)
	}
}

func TestWriteRecordIsCreateOnly(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()
	rec := storage.Record{ID: "1", Type: "domain", Path: "/a", Object: map[string]any{}}

	if _, err := WriteRecord(ctx, store, rec, nil); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if _, err := WriteRecord(ctx, store, rec, nil); !errors.Is(err, ErrExists) {
		t.Fatalf("second write: want ErrExists, got %v", err)
	}
}

func TestNewFilesystemDriver(t *testing.T) {
	store, err := NewFilesystem(t.TempDir())
	if err != nil {
		t.Fatalf("new filesystem: %v", err)
	}
	if store.Driver() != DriverFilesystem {
		t.Fatalf("driver = %v", store.Driver())
	}
}

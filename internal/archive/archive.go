// Package archive re-exports the archive store abstractions and provides
// the driver constructors. Other packages depend on archive.Store; only
// this package imports the driver implementations.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"domaincore/internal/archive/core"
	fsstore "domaincore/internal/archive/fs"
	memorystore "domaincore/internal/archive/memory"
	s3store "domaincore/internal/archive/s3"
	"domaincore/internal/storage"
)

type (
	// Driver identifies an archive backend driver.
	Driver = core.Driver
	// PutOptions configures an archive write.
	PutOptions = core.PutOptions
	// Info describes stored archive metadata.
	Info = core.Info
	// Store is the interface for archive backends.
	Store = core.Store
)

const (
	// DriverFilesystem is the local filesystem driver.
	DriverFilesystem = core.DriverFilesystem
	// DriverS3 is the S3-compatible driver.
	DriverS3 = core.DriverS3
	// DriverMemory is the in-memory test driver.
	DriverMemory = core.DriverMemory
)

// ErrExists indicates a Put against an already-archived key.
var ErrExists = core.ErrExists

// S3Config aliases the S3 driver configuration.
type S3Config = s3store.Config

// NewMemory returns an in-memory archive suitable for tests.
func NewMemory() Store { return memorystore.New() }

// NewFilesystem returns a filesystem archive rooted at path.
func NewFilesystem(root string) (Store, error) { return fsstore.New(root) }

// NewS3 returns an S3-backed archive.
func NewS3(ctx context.Context, cfg S3Config) (Store, error) { return s3store.New(ctx, cfg) }

// Key returns the canonical archive key for an entity record.
func Key(rec storage.Record) string {
	return fmt.Sprintf("archive/%s/%s.json", rec.Type, rec.ID)
}

// WriteRecord archives the terminal snapshot of an entity as JSON. When
// payload is nil the full record is archived. Existing keys are left
// untouched: the first archived snapshot wins.
func WriteRecord(ctx context.Context, store Store, rec storage.Record, payload map[string]any) (Info, error) {
	var body any = rec
	if payload != nil {
		body = payload
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return Info{}, fmt.Errorf("encode archive payload: %w", err)
	}
	return store.Put(ctx, Key(rec), bytes.NewReader(raw), PutOptions{
		ContentType: "application/json",
		Metadata:    map[string]string{"object_id": rec.ID, "object_type": string(rec.Type), "object_path": rec.Path},
	})
}

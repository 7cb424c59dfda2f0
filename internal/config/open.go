package config

import (
	"context"
	"fmt"

	"domaincore/internal/archive"
	"domaincore/internal/storage"
	memorystore "domaincore/internal/storage/memory"
	postgresstore "domaincore/internal/storage/postgres"
	sqlitestore "domaincore/internal/storage/sqlite"
)

// OpenBackend constructs the configured storage backend. This is the only
// place the concrete driver packages are selected.
func OpenBackend(ctx context.Context, cfg StorageConfig) (storage.Backend, error) {
	switch cfg.Driver {
	case "", "memory":
		return memorystore.New(), nil
	case "sqlite":
		return sqlitestore.New(cfg.Path)
	case "postgres":
		return postgresstore.New(ctx, cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown storage driver %s", cfg.Driver)
	}
}

// OpenArchive constructs the configured archive store.
func OpenArchive(ctx context.Context, cfg ArchiveConfig) (archive.Store, error) {
	switch cfg.Driver {
	case "", "fs":
		return archive.NewFilesystem(cfg.FSRoot)
	case "s3":
		return archive.NewS3(ctx, archive.S3Config{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			PathStyle: cfg.S3PathStyle,
		})
	case "memory":
		return archive.NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown archive driver %s", cfg.Driver)
	}
}

// Package config loads the domaincore configuration from an optional TOML
// file with DOMAINCORE_* environment overrides, and opens the configured
// storage and archive backends. The core packages never read the
// environment directly; everything flows through here.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the resolved configuration.
type Config struct {
	Storage StorageConfig
	Archive ArchiveConfig
	Runtime RuntimeConfig
}

// StorageConfig selects the storage backend driver.
type StorageConfig struct {
	Driver string // memory|sqlite|postgres (default memory)
	Path   string // sqlite database path
	DSN    string // postgres connection string
}

// ArchiveConfig selects the archive store driver.
type ArchiveConfig struct {
	Driver    string // memory|fs|s3 (default fs)
	FSRoot    string
	S3Bucket  string
	S3Region  string
	S3Endpoint string
	S3PathStyle bool
}

// RuntimeConfig carries runtime tunables.
type RuntimeConfig struct {
	// SaveRetryInterval is the delay between save attempts while dirty.
	SaveRetryInterval time.Duration
	// DefaultCallTimeout bounds sync_op and wait_save when callers pass
	// no explicit timeout.
	DefaultCallTimeout time.Duration
}

// Default returns the configuration used when no file or environment
// overrides are present.
func Default() Config {
	return Config{
		Storage: StorageConfig{Driver: "memory"},
		Archive: ArchiveConfig{Driver: "fs", FSRoot: "./archivedata"},
		Runtime: RuntimeConfig{
			SaveRetryInterval:  5 * time.Second,
			DefaultCallTimeout: 5 * time.Second,
		},
	}
}

type fileConfig struct {
	Storage struct {
		Driver string `toml:"driver"`
		Path   string `toml:"path"`
		DSN    string `toml:"dsn"`
	} `toml:"storage"`
	Archive struct {
		Driver    string `toml:"driver"`
		FSRoot    string `toml:"fs_root"`
		S3Bucket  string `toml:"s3_bucket"`
		S3Region  string `toml:"s3_region"`
		S3Endpoint string `toml:"s3_endpoint"`
		S3PathStyle bool  `toml:"s3_path_style"`
	} `toml:"archive"`
	Runtime struct {
		SaveRetryInterval  string `toml:"save_retry_interval"`
		DefaultCallTimeout string `toml:"default_call_timeout"`
	} `toml:"runtime"`
}

// Load reads the TOML file at path (skipped when path is empty), applies
// environment overrides, and returns the resolved configuration.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		var raw fileConfig
		meta, err := toml.DecodeFile(path, &raw)
		if err != nil {
			return Config{}, fmt.Errorf("load config: %w", err)
		}
		if meta.IsDefined("storage", "driver") {
			cfg.Storage.Driver = strings.TrimSpace(raw.Storage.Driver)
		}
		if meta.IsDefined("storage", "path") {
			cfg.Storage.Path = raw.Storage.Path
		}
		if meta.IsDefined("storage", "dsn") {
			cfg.Storage.DSN = raw.Storage.DSN
		}
		if meta.IsDefined("archive", "driver") {
			cfg.Archive.Driver = strings.TrimSpace(raw.Archive.Driver)
		}
		if meta.IsDefined("archive", "fs_root") {
			cfg.Archive.FSRoot = raw.Archive.FSRoot
		}
		if meta.IsDefined("archive", "s3_bucket") {
			cfg.Archive.S3Bucket = raw.Archive.S3Bucket
		}
		if meta.IsDefined("archive", "s3_region") {
			cfg.Archive.S3Region = raw.Archive.S3Region
		}
		if meta.IsDefined("archive", "s3_endpoint") {
			cfg.Archive.S3Endpoint = raw.Archive.S3Endpoint
		}
		if meta.IsDefined("archive", "s3_path_style") {
			cfg.Archive.S3PathStyle = raw.Archive.S3PathStyle
		}
		if meta.IsDefined("runtime", "save_retry_interval") {
			d, err := time.ParseDuration(strings.TrimSpace(raw.Runtime.SaveRetryInterval))
			if err != nil {
				return Config{}, fmt.Errorf("parse save_retry_interval: %w", err)
			}
			cfg.Runtime.SaveRetryInterval = d
		}
		if meta.IsDefined("runtime", "default_call_timeout") {
			d, err := time.ParseDuration(strings.TrimSpace(raw.Runtime.DefaultCallTimeout))
			if err != nil {
				return Config{}, fmt.Errorf("parse default_call_timeout: %w", err)
			}
			cfg.Runtime.DefaultCallTimeout = d
		}
	}

	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("DOMAINCORE_STORAGE_DRIVER"); v != "" {
		cfg.Storage.Driver = v
	}
	if v := os.Getenv("DOMAINCORE_STORAGE_PATH"); v != "" {
		cfg.Storage.Path = v
	}
	if v := os.Getenv("DOMAINCORE_STORAGE_DSN"); v != "" {
		cfg.Storage.DSN = v
	}
	if v := os.Getenv("DOMAINCORE_ARCHIVE_DRIVER"); v != "" {
		cfg.Archive.Driver = v
	}
	if v := os.Getenv("DOMAINCORE_ARCHIVE_FS_ROOT"); v != "" {
		cfg.Archive.FSRoot = v
	}
	if v := os.Getenv("DOMAINCORE_ARCHIVE_S3_BUCKET"); v != "" {
		cfg.Archive.S3Bucket = v
	}
	if v := os.Getenv("DOMAINCORE_ARCHIVE_S3_REGION"); v != "" {
		cfg.Archive.S3Region = v
	}
	if v := os.Getenv("DOMAINCORE_ARCHIVE_S3_ENDPOINT"); v != "" {
		cfg.Archive.S3Endpoint = v
	}
	if v := os.Getenv("DOMAINCORE_ARCHIVE_S3_PATH_STYLE"); v != "" {
		cfg.Archive.S3PathStyle = strings.EqualFold(v, "true")
	}
}

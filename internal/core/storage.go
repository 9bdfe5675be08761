package core

import (
	"context"
	"fmt"

	"linkbox/internal/blob"
	"linkbox/internal/infra/persistence/blobstate"
	"linkbox/internal/infra/persistence/memory"
	"linkbox/internal/infra/persistence/postgres"
	"linkbox/internal/infra/persistence/redis"
	"linkbox/internal/infra/persistence/sqlite"
	"linkbox/pkg/domain"
)

// StorageDriver identifies a concrete state backend.
type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"   // in-memory only (tests / ephemeral)
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
	StorageRedis    StorageDriver = "redis"    // Redis server
	StorageBlob     StorageDriver = "blob"     // object in a blob store (fs, s3, memory)
)

// StorageConfig selects and configures the state backend.
type StorageConfig struct {
	Driver      StorageDriver
	SQLitePath  string
	PostgresDSN string
	RedisURL    string
	Blob        blob.Config
	// BlobPrefix is the object key prefix for the blob driver.
	BlobPrefix string
}

// OpenBackend builds the backend named by cfg.Driver. Defaults to sqlite
// when unset.
func OpenBackend(ctx context.Context, cfg StorageConfig) (domain.StateBackend, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = StorageSQLite
	}
	switch driver {
	case StorageMemory:
		return memory.NewStore(), nil
	case StorageSQLite:
		s, err := sqlite.NewStore(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return s, nil
	case StoragePostgres:
		s, err := postgres.NewStore(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		return s, nil
	case StorageRedis:
		s, err := redis.NewStore(ctx, cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		return s, nil
	case StorageBlob:
		blobs, err := blob.Open(ctx, cfg.Blob)
		if err != nil {
			return nil, fmt.Errorf("open blob store: %w", err)
		}
		return blobstate.New(blobs, cfg.BlobPrefix), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %s", driver)
	}
}

package core

import (
	"context"
	"fmt"

	"zoocore/internal/infra/persistence/memory"
	"zoocore/internal/infra/persistence/postgres"
	"zoocore/internal/infra/persistence/sqlite"
	"zoocore/pkg/domain"
)

// StorageDriver identifies a concrete persistent storage implementation.
type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"   // in-memory only (tests / ephemeral)
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
)

// StorageConfig selects and parameterises the persistent store.
type StorageConfig struct {
	Driver      StorageDriver `env:"STORAGE_DRIVER" envDefault:"memory"`
	SQLitePath  string        `env:"SQLITE_PATH" envDefault:"zoocore.db"`
	PostgresDSN string        `env:"POSTGRES_DSN"`
}

// OpenPersistentStore opens the backend named by cfg.Driver. An empty driver
// selects the in-memory store. The returned close function releases any
// database handle and is never nil.
func OpenPersistentStore(ctx context.Context, cfg StorageConfig, engine *domain.RulesEngine, opts ...memory.Option) (domain.PersistentStore, func() error, error) {
	if engine == nil {
		engine = NewDefaultRulesEngine()
	}
	switch cfg.Driver {
	case "", StorageMemory:
		return memory.NewStore(engine, opts...), func() error { return nil }, nil
	case StorageSQLite:
		store, err := sqlite.NewStore(cfg.SQLitePath, engine, opts...)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	case StoragePostgres:
		store, err := postgres.NewStore(ctx, cfg.PostgresDSN, engine, opts...)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

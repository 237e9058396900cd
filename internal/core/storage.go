package core

import (
	"context"
	"fmt"

	"rentledger/internal/config"
	"rentledger/internal/infra/persistence/memory"
	"rentledger/internal/infra/persistence/postgres"
	"rentledger/internal/infra/persistence/sqlite"
	filesession "rentledger/internal/infra/session/file"
	memsession "rentledger/internal/infra/session/memory"
	redissession "rentledger/internal/infra/session/redis"
	"rentledger/pkg/domain"
)

// StorageDriver identifies a collection backend.
type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"   // in-memory only (tests / ephemeral)
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
)

// SessionDriver identifies a session store.
type SessionDriver string

const (
	SessionMemory SessionDriver = "memory"
	SessionFile   SessionDriver = "file"
	SessionRedis  SessionDriver = "redis"
)

// OpenCollectionBackend opens the backend named by cfg.StorageDriver
// (sqlite when empty).
func OpenCollectionBackend(ctx context.Context, cfg config.Config) (domain.CollectionBackend, error) {
	driver := StorageDriver(cfg.StorageDriver)
	if driver == "" {
		driver = StorageSQLite
	}
	switch driver {
	case StorageMemory:
		return memory.NewStore(), nil
	case StorageSQLite:
		return sqlite.NewStore(ctx, cfg.SQLitePath)
	case StoragePostgres:
		return postgres.NewStore(ctx, cfg.PostgresDSN)
	default:
		return nil, fmt.Errorf("unknown storage driver %s", driver)
	}
}

// BackendOpenerFor defers OpenCollectionBackend until the store first needs it.
func BackendOpenerFor(cfg config.Config) BackendOpener {
	return func(ctx context.Context) (domain.CollectionBackend, error) {
		return OpenCollectionBackend(ctx, cfg)
	}
}

// OpenSessionStore returns the session store named by cfg.SessionDriver
// (file when empty) and a close function for any connection it opened.
func OpenSessionStore(ctx context.Context, cfg config.Config) (domain.SessionStore, func() error, error) {
	noop := func() error { return nil }
	driver := SessionDriver(cfg.SessionDriver)
	if driver == "" {
		driver = SessionFile
	}
	switch driver {
	case SessionMemory:
		return memsession.New(), noop, nil
	case SessionFile:
		return filesession.New(cfg.SessionFile), noop, nil
	case SessionRedis:
		store, client, err := redissession.Dial(ctx, redissession.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.SessionTTL,
		})
		if err != nil {
			return nil, nil, err
		}
		return store, client.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown session driver %s", driver)
	}
}

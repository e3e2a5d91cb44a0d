// Package storage provides the durable key-value slots the session store
// persists its token and user record in.
package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/me/coursebook/internal/config"
)

// Slot names used by the session store.
const (
	KeyToken = "token"
	KeyUser  = "user"
)

// Storage is a string-valued key-value store that survives restarts.
// Implementations must be safe for concurrent use. Delete of a missing key
// is not an error.
type Storage interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Open returns the backend selected by cfg.Storage.
func Open(ctx context.Context, cfg config.ClientConfig, logger *slog.Logger) (Storage, error) {
	if cfg.Storage == config.StorageMemory {
		return NewMemoryStorage(), nil
	}
	if cfg.Storage == config.StorageRedis {
		return NewRedisStorage(ctx, RedisOptions{Addr: cfg.RedisAddr}, logger)
	}

	dir := cfg.StateDir
	if dir == "" {
		d, err := config.DefaultStateDir()
		if err != nil {
			return nil, err
		}
		dir = d
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create state directory: %w", err)
	}

	switch cfg.Storage {
	case config.StorageFile:
		return NewFileStorage(filepath.Join(dir, "session.json")), nil
	case config.StorageSQLite:
		st, err := NewSQLiteStorage(filepath.Join(dir, "coursebook.db"), logger)
		if err != nil {
			return nil, err
		}
		if err := st.Migrate(ctx); err != nil {
			st.Close()
			return nil, fmt.Errorf("migrate storage: %w", err)
		}
		return st, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage)
	}
}

package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/me/coursebook/internal/logging"
)

// DefaultRedisPrefix namespaces coursebook slots inside a shared Redis.
const DefaultRedisPrefix = "coursebook:session:"

// RedisOptions configures RedisStorage.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// RedisStorage keeps slots in Redis so several terminals or machines can
// share one login.
type RedisStorage struct {
	rdb    redis.UniversalClient
	prefix string
	logger *slog.Logger
}

// NewRedisStorage connects to Redis and verifies the connection with PING.
func NewRedisStorage(ctx context.Context, opts RedisOptions, logger *slog.Logger) (*RedisStorage, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("connect redis %s: %w", opts.Addr, err)
	}
	return NewRedisStorageFromClient(rdb, opts.Prefix, logger), nil
}

// NewRedisStorageFromClient wraps an existing client.
func NewRedisStorageFromClient(rdb redis.UniversalClient, prefix string, logger *slog.Logger) *RedisStorage {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisStorage{
		rdb:    rdb,
		prefix: prefix,
		logger: logging.OrDiscard(logger).With("component", "storage"),
	}
}

func (r *RedisStorage) key(k string) string {
	return r.prefix + k
}

func (r *RedisStorage) Get(ctx context.Context, key string) (string, bool, error) {
	r.logger.Debug("redis", "op", "get", "key", key)

	v, err := r.rdb.Get(ctx, r.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get slot %s: %w", key, err)
	}
	return v, true, nil
}

func (r *RedisStorage) Set(ctx context.Context, key, value string) error {
	r.logger.Debug("redis", "op", "set", "key", key)

	if err := r.rdb.Set(ctx, r.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("set slot %s: %w", key, err)
	}
	return nil
}

func (r *RedisStorage) Delete(ctx context.Context, key string) error {
	r.logger.Debug("redis", "op", "del", "key", key)

	if err := r.rdb.Del(ctx, r.key(key)).Err(); err != nil {
		return fmt.Errorf("delete slot %s: %w", key, err)
	}
	return nil
}

func (r *RedisStorage) Close() error {
	return r.rdb.Close()
}

package kv

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/mkrupp/storefront/internal/infra/logging"
)

// RedisKVRepositoryConfig captures the redis connection options.
type RedisKVRepositoryConfig struct {
	Addr     string `env:"ADDR" default:"localhost:6379"`
	Username string `env:"USERNAME" default:""`
	Password string `env:"PASSWORD" default:""`
	DB       int    `env:"DB" default:"0"`
	// Prefix namespaces every key, so several shells can share a server
	Prefix string `env:"PREFIX" default:"storefront:"`
}

// RedisKVRepository implements Repository with redis strings. Keys never expire.
type RedisKVRepository struct {
	client *redis.Client
	prefix string
	log    logging.Logger
}

var _ Repository = (*RedisKVRepository)(nil)

// NewRedisKVRepository connects to redis and verifies the connection with a ping.
func NewRedisKVRepository(ctx context.Context, cfg RedisKVRepositoryConfig) (*RedisKVRepository, error) {
	log := logging.GetLogger("repo.kv.redis_kv_repository").With(
		logging.Group("redis", "addr", cfg.Addr, "db", cfg.DB, "prefix", cfg.Prefix),
	)

	//nolint:exhaustruct
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()

		return nil, fmt.Errorf("ping redis: %w", err)
	}

	log.DebugContext(ctx, "redis connected")

	return &RedisKVRepository{
		client: client,
		prefix: cfg.Prefix,
		log:    log,
	}, nil
}

func (r *RedisKVRepository) key(key string) string {
	return r.prefix + key
}

// Get implements Repository.Get using redis GET.
func (r *RedisKVRepository) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := checkKey(key); err != nil {
		return nil, false, err
	}

	value, err := r.client.Get(ctx, r.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}

		r.log.ErrorContext(ctx, "kv get failed", "key", key, "error", err)

		return nil, false, fmt.Errorf("redis get: %w", err)
	}

	return value, true, nil
}

// Set implements Repository.Set using redis SET without expiry.
func (r *RedisKVRepository) Set(ctx context.Context, key string, value []byte) error {
	if err := checkKey(key); err != nil {
		return err
	}

	if value == nil {
		value = []byte{}
	}

	if err := r.client.Set(ctx, r.key(key), value, 0).Err(); err != nil {
		r.log.ErrorContext(ctx, "kv set failed", "key", key, "error", err)

		return fmt.Errorf("redis set: %w", err)
	}

	r.log.DebugContext(ctx, "kv set", "key", key, "size", len(value))

	return nil
}

// Remove implements Repository.Remove using redis DEL.
func (r *RedisKVRepository) Remove(ctx context.Context, key string) error {
	if err := checkKey(key); err != nil {
		return err
	}

	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		r.log.ErrorContext(ctx, "kv remove failed", "key", key, "error", err)

		return fmt.Errorf("redis del: %w", err)
	}

	r.log.DebugContext(ctx, "kv removed", "key", key)

	return nil
}

// Close implements Repository.Close by closing the redis client.
func (r *RedisKVRepository) Close() error {
	if err := r.client.Close(); err != nil {
		return fmt.Errorf("close redis: %w", err)
	}

	return nil
}

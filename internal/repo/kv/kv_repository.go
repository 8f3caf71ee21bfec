package kv

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrEmptyKey is returned when an operation is called with an empty key.
	ErrEmptyKey = errors.New("empty key")
	// ErrUnsupportedDriver is returned by the factory for an unknown driver name.
	ErrUnsupportedDriver = errors.New("unsupported kv driver")
)

// Driver names accepted by NewRepository.
const (
	DriverMemory     = "memory"
	DriverFileSystem = "filesystem"
	DriverSQLite     = "sqlite"
	DriverRedis      = "redis"
)

// Repository is a durable key/value blob store. Values are opaque bytes;
// callers own their encoding.
type Repository interface {
	// Get returns the value stored under key.
	// Returns the value and true if found, or nil and false if the key is absent.
	// Returns an error if the operation fails.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// Remove deletes key. Removing an absent key is not an error.
	Remove(ctx context.Context, key string) error

	// Close releases any resources held by the repository.
	Close() error
}

// Config selects and configures a driver.
type Config struct {
	// Driver is one of "memory", "filesystem", "sqlite" or "redis"
	Driver string `env:"DRIVER" default:"filesystem"`

	FileSystem FileSystemKVRepositoryConfig `envPrefix:"FS_"`
	SQLite     SQLiteKVRepositoryConfig     `envPrefix:"SQLITE_"`
	Redis      RedisKVRepositoryConfig      `envPrefix:"REDIS_"`
}

// NewRepository builds the repository selected by cfg.Driver.
func NewRepository(ctx context.Context, cfg Config) (Repository, error) {
	switch cfg.Driver {
	case DriverMemory:
		return NewMemoryKVRepository(), nil
	case "", DriverFileSystem:
		return NewFileSystemKVRepository(ctx, cfg.FileSystem)
	case DriverSQLite:
		return NewSQLiteKVRepository(ctx, cfg.SQLite)
	case DriverRedis:
		return NewRedisKVRepository(ctx, cfg.Redis)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDriver, cfg.Driver)
	}
}

func checkKey(key string) error {
	if key == "" {
		return ErrEmptyKey
	}

	return nil
}

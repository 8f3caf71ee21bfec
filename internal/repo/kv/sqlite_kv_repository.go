package kv

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/mkrupp/storefront/internal/infra/logging"
)

// SQLiteKVRepositoryConfig holds configuration for the SQLite kv repository.
type SQLiteKVRepositoryConfig struct {
	// DatabasePath is the filesystem path to the SQLite database file
	DatabasePath string `env:"DATABASE_PATH" default:"var/storage/storefront.db"`
}

// SQLiteKVRepository implements Repository using a single SQLite table.
type SQLiteKVRepository struct {
	db        *sql.DB
	log       logging.Logger
	writeLock *sync.Mutex // go-sqlite does not support concurrent writes
}

var _ Repository = (*SQLiteKVRepository)(nil)

// NewSQLiteKVRepository opens the database and creates the schema if needed.
func NewSQLiteKVRepository(ctx context.Context, cfg SQLiteKVRepositoryConfig) (*SQLiteKVRepository, error) {
	log := logging.GetLogger("repo.kv.sqlite_kv_repository").With(
		logging.Group("db", "path", cfg.DatabasePath),
	)

	db, err := sql.Open("sqlite", cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("ping db: %w", err)
	}

	if err := initializeKVTable(ctx, db); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("initialize db: %w", err)
	}

	db.SetConnMaxLifetime(5 * time.Minute)

	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout = 5000"); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	log.DebugContext(ctx, "kv table ready")

	return &SQLiteKVRepository{
		db:        db,
		log:       log,
		writeLock: new(sync.Mutex),
	}, nil
}

func initializeKVTable(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS kv (
			key        TEXT    PRIMARY KEY,
			value      BLOB    NOT NULL,
			updated_at INTEGER NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	return nil
}

// Get implements Repository.Get using SQLite.
func (r *SQLiteKVRepository) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := checkKey(key); err != nil {
		return nil, false, err
	}

	var value []byte

	err := r.db.QueryRowContext(ctx, "SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}

		r.log.ErrorContext(ctx, "kv get failed", "key", key, "error", err)

		return nil, false, fmt.Errorf("query value: %w", err)
	}

	if value == nil {
		value = []byte{}
	}

	return value, true, nil
}

// Set implements Repository.Set using SQLite.
func (r *SQLiteKVRepository) Set(ctx context.Context, key string, value []byte) error {
	if err := checkKey(key); err != nil {
		return err
	}

	if value == nil {
		value = []byte{}
	}

	r.writeLock.Lock()
	defer r.writeLock.Unlock()

	if _, err := r.db.ExecContext(ctx, `
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key,
		value,
		time.Now().Unix(),
	); err != nil {
		r.log.ErrorContext(ctx, "kv set failed", "key", key, "error", err)

		return fmt.Errorf("upsert value: %w", err)
	}

	r.log.DebugContext(ctx, "kv set", "key", key, "size", len(value))

	return nil
}

// Remove implements Repository.Remove using SQLite.
func (r *SQLiteKVRepository) Remove(ctx context.Context, key string) error {
	if err := checkKey(key); err != nil {
		return err
	}

	r.writeLock.Lock()
	defer r.writeLock.Unlock()

	if _, err := r.db.ExecContext(ctx, "DELETE FROM kv WHERE key = ?", key); err != nil {
		r.log.ErrorContext(ctx, "kv remove failed", "key", key, "error", err)

		return fmt.Errorf("delete value: %w", err)
	}

	r.log.DebugContext(ctx, "kv removed", "key", key)

	return nil
}

// Close implements Repository.Close by closing the database connection.
func (r *SQLiteKVRepository) Close() error {
	if err := r.db.Close(); err != nil {
		return fmt.Errorf("close db: %w", err)
	}

	return nil
}

package kv

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"syscall"

	"github.com/mkrupp/storefront/internal/infra/logging"
)

// FileSystemKVRepositoryConfig holds configuration for the filesystem-based kv repository.
type FileSystemKVRepositoryConfig struct {
	// Basedir is the directory holding one file per key
	Basedir string `env:"BASEDIR" default:"var/storage/kv"`
}

// FileSystemKVRepository implements Repository using one file per key.
// Writes go to a temporary file that is renamed over the target, and every
// operation holds an advisory flock on a sidecar lock file.
type FileSystemKVRepository struct {
	cfg FileSystemKVRepositoryConfig
	log logging.Logger
}

var _ Repository = (*FileSystemKVRepository)(nil)

// NewFileSystemKVRepository creates the base directory if needed and returns the repository.
func NewFileSystemKVRepository(ctx context.Context, cfg FileSystemKVRepositoryConfig) (_ *FileSystemKVRepository, err error) {
	log := logging.GetLogger("repo.kv.filesystem_kv_repository").With(
		logging.Group("repo", "basedir", cfg.Basedir),
	)

	defer func() {
		if err != nil {
			log.ErrorContext(ctx, "init storage failed", "error", err)
		} else {
			log.DebugContext(ctx, "init storage")
		}
	}()

	if err := os.MkdirAll(cfg.Basedir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir all: %w", err)
	}

	return &FileSystemKVRepository{
		cfg: cfg,
		log: log,
	}, nil
}

// GetFilename returns the full filesystem path for key.
func (r *FileSystemKVRepository) GetFilename(key string) string {
	return filepath.Join(r.cfg.Basedir, url.PathEscape(key)+".kv")
}

// Get implements Repository.Get.
func (r *FileSystemKVRepository) Get(ctx context.Context, key string) (value []byte, found bool, err error) {
	if err := checkKey(key); err != nil {
		return nil, false, err
	}

	filename := r.GetFilename(key)

	defer func() {
		log := r.log.With(logging.Group("kv", "key", key, "filename", filename))
		if err != nil {
			log.ErrorContext(ctx, "kv get failed", "error", err)
		} else {
			log.DebugContext(ctx, "kv get", "found", found, "size", len(value))
		}
	}()

	release, err := r.flock(filename, syscall.LOCK_SH)
	if err != nil {
		return nil, false, fmt.Errorf("flock: %w", err)
	}
	defer release()

	value, err = os.ReadFile(filename)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}

		return nil, false, fmt.Errorf("read file: %w", err)
	}

	return value, true, nil
}

// Set implements Repository.Set.
func (r *FileSystemKVRepository) Set(ctx context.Context, key string, value []byte) (err error) {
	if err := checkKey(key); err != nil {
		return err
	}

	filename := r.GetFilename(key)

	defer func() {
		log := r.log.With(logging.Group("kv", "key", key, "filename", filename))
		if err != nil {
			log.ErrorContext(ctx, "kv set failed", "error", err)
		} else {
			log.DebugContext(ctx, "kv set", "size", len(value))
		}
	}()

	release, err := r.flock(filename, syscall.LOCK_EX)
	if err != nil {
		return fmt.Errorf("flock: %w", err)
	}
	defer release()

	file, err := os.CreateTemp(r.cfg.Basedir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}

	tmpName := file.Name()

	defer func() {
		if err != nil {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := file.Write(value); err != nil {
		_ = file.Close()

		return fmt.Errorf("write: %w", err)
	}

	if err := file.Sync(); err != nil {
		_ = file.Close()

		return fmt.Errorf("sync: %w", err)
	}

	if err := file.Close(); err != nil {
		return fmt.Errorf("close: %w", err)
	}

	if err := os.Rename(tmpName, filename); err != nil {
		return fmt.Errorf("rename: %w", err)
	}

	return nil
}

// Remove implements Repository.Remove.
func (r *FileSystemKVRepository) Remove(ctx context.Context, key string) (err error) {
	if err := checkKey(key); err != nil {
		return err
	}

	filename := r.GetFilename(key)

	defer func() {
		log := r.log.With(logging.Group("kv", "key", key, "filename", filename))
		if err != nil {
			log.ErrorContext(ctx, "kv remove failed", "error", err)
		} else {
			log.DebugContext(ctx, "kv removed")
		}
	}()

	release, err := r.flock(filename, syscall.LOCK_EX)
	if err != nil {
		return fmt.Errorf("flock: %w", err)
	}
	defer release()

	if err := os.Remove(filename); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove: %w", err)
	}

	return nil
}

// Close implements Repository.Close.
func (r *FileSystemKVRepository) Close() error {
	return nil
}

func (r *FileSystemKVRepository) flock(filename string, mode int) (func(), error) {
	file, err := os.OpenFile(filename+".lock", os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}

	if err := syscall.Flock(int(file.Fd()), mode); err != nil {
		_ = file.Close()

		return nil, fmt.Errorf("flock: %w", err)
	}

	return func() {
		_ = syscall.Flock(int(file.Fd()), syscall.LOCK_UN)
		_ = file.Close()
	}, nil
}

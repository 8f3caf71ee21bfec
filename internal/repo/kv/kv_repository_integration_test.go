//go:build integration || all

package kv_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	. "github.com/mkrupp/storefront/internal/repo/kv"
)

func TestFileSystemKVRepository(t *testing.T) {
	t.Parallel()

	repo, err := NewFileSystemKVRepository(context.Background(), FileSystemKVRepositoryConfig{
		Basedir: t.TempDir(),
	})
	if err != nil {
		t.Fatalf("NewFileSystemKVRepository() error = %v", err)
	}

	testRepositoryContract(t, repo)
}

func TestFileSystemKVRepository_EscapesKeys(t *testing.T) {
	t.Parallel()

	basedir := t.TempDir()

	repo, err := NewFileSystemKVRepository(context.Background(), FileSystemKVRepositoryConfig{Basedir: basedir})
	if err != nil {
		t.Fatalf("NewFileSystemKVRepository() error = %v", err)
	}

	if err := repo.Set(context.Background(), "../outside", []byte("x")); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	if filepath.Dir(repo.GetFilename("../outside")) != basedir {
		t.Errorf("filename escaped basedir: %s", repo.GetFilename("../outside"))
	}

	if _, err := os.Stat(filepath.Join(filepath.Dir(basedir), "outside.kv")); !os.IsNotExist(err) {
		t.Errorf("expected no file outside basedir, stat err = %v", err)
	}
}

func TestSQLiteKVRepository(t *testing.T) {
	t.Parallel()

	repo, err := NewSQLiteKVRepository(context.Background(), SQLiteKVRepositoryConfig{
		DatabasePath: filepath.Join(t.TempDir(), "kv.db"),
	})
	if err != nil {
		t.Fatalf("NewSQLiteKVRepository() error = %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })

	testRepositoryContract(t, repo)
}

func TestSQLiteKVRepository_Reopen(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cfg := SQLiteKVRepositoryConfig{DatabasePath: filepath.Join(t.TempDir(), "kv.db")}

	repo, err := NewSQLiteKVRepository(ctx, cfg)
	if err != nil {
		t.Fatalf("NewSQLiteKVRepository() error = %v", err)
	}

	if err := repo.Set(ctx, "auth_token", []byte("t")); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	_ = repo.Close()

	reopened, err := NewSQLiteKVRepository(ctx, cfg)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	t.Cleanup(func() { _ = reopened.Close() })

	value, ok, err := reopened.Get(ctx, "auth_token")
	if err != nil || !ok || string(value) != "t" {
		t.Errorf("Get() after reopen = %q, %v, %v", value, ok, err)
	}
}

package kv_test

import (
	"context"
	"errors"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"

	. "github.com/mkrupp/storefront/internal/repo/kv"
)

func testRepositoryContract(t *testing.T, repo Repository) {
	t.Helper()

	ctx := context.Background()

	t.Run("get missing key", func(t *testing.T) {
		value, ok, err := repo.Get(ctx, "missing")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if ok || value != nil {
			t.Errorf("Get() = %q, %v; want nil, false", value, ok)
		}
	})

	t.Run("set then get", func(t *testing.T) {
		want := `[{"id":1,"nombre":"Zelda","precio":1000,"cantidad":1}]`

		if err := repo.Set(ctx, "cart", []byte(want)); err != nil {
			t.Fatalf("Set() error = %v", err)
		}

		value, ok, err := repo.Get(ctx, "cart")
		if err != nil || !ok {
			t.Fatalf("Get() = %v, %v", ok, err)
		}
		if string(value) != want {
			t.Errorf("Get() = %s, want %s", value, want)
		}
	})

	t.Run("set overwrites", func(t *testing.T) {
		if err := repo.Set(ctx, "auth_token", []byte("first")); err != nil {
			t.Fatalf("Set() error = %v", err)
		}
		if err := repo.Set(ctx, "auth_token", []byte("second")); err != nil {
			t.Fatalf("Set() error = %v", err)
		}

		value, ok, err := repo.Get(ctx, "auth_token")
		if err != nil || !ok || string(value) != "second" {
			t.Errorf("Get() = %q, %v, %v; want second", value, ok, err)
		}
	})

	t.Run("empty value is stored", func(t *testing.T) {
		if err := repo.Set(ctx, "empty", []byte{}); err != nil {
			t.Fatalf("Set() error = %v", err)
		}

		value, ok, err := repo.Get(ctx, "empty")
		if err != nil || !ok || len(value) != 0 {
			t.Errorf("Get() = %q, %v, %v; want empty, true", value, ok, err)
		}
	})

	t.Run("remove", func(t *testing.T) {
		if err := repo.Set(ctx, "user_data", []byte(`{"nombre":"X"}`)); err != nil {
			t.Fatalf("Set() error = %v", err)
		}
		if err := repo.Remove(ctx, "user_data"); err != nil {
			t.Fatalf("Remove() error = %v", err)
		}

		if _, ok, err := repo.Get(ctx, "user_data"); err != nil || ok {
			t.Errorf("Get() after Remove = %v, %v; want false, nil", ok, err)
		}
	})

	t.Run("remove missing key", func(t *testing.T) {
		if err := repo.Remove(ctx, "never-set"); err != nil {
			t.Errorf("Remove() error = %v", err)
		}
	})

	t.Run("empty key", func(t *testing.T) {
		if _, _, err := repo.Get(ctx, ""); !errors.Is(err, ErrEmptyKey) {
			t.Errorf("Get() error = %v, want %v", err, ErrEmptyKey)
		}
		if err := repo.Set(ctx, "", []byte("x")); !errors.Is(err, ErrEmptyKey) {
			t.Errorf("Set() error = %v, want %v", err, ErrEmptyKey)
		}
		if err := repo.Remove(ctx, ""); !errors.Is(err, ErrEmptyKey) {
			t.Errorf("Remove() error = %v, want %v", err, ErrEmptyKey)
		}
	})
}

func TestMemoryKVRepository(t *testing.T) {
	t.Parallel()

	repo := NewMemoryKVRepository()
	t.Cleanup(func() { _ = repo.Close() })

	testRepositoryContract(t, repo)
}

func TestMemoryKVRepository_ValuesAreCopied(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewMemoryKVRepository()

	value := []byte("cart")
	if err := repo.Set(ctx, "k", value); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	value[0] = 'X'

	got, _, _ := repo.Get(ctx, "k")
	if string(got) != "cart" {
		t.Errorf("stored value aliased caller slice: %q", got)
	}
}

func TestRedisKVRepository(t *testing.T) {
	t.Parallel()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	repo, err := NewRedisKVRepository(context.Background(), RedisKVRepositoryConfig{
		Addr:   mr.Addr(),
		Prefix: "test:",
	})
	if err != nil {
		t.Fatalf("NewRedisKVRepository() error = %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })

	testRepositoryContract(t, repo)

	if !mr.Exists("test:cart") {
		t.Errorf("expected prefixed key test:cart in redis, keys = %v", mr.Keys())
	}
}

func TestNewRepository(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     Config
		wantErr error
	}{
		{
			name: "memory driver",
			cfg:  Config{Driver: DriverMemory},
		},
		{
			name: "filesystem driver",
			cfg: Config{
				Driver:     DriverFileSystem,
				FileSystem: FileSystemKVRepositoryConfig{Basedir: t.TempDir()},
			},
		},
		{
			name:    "unknown driver",
			cfg:     Config{Driver: "localstorage"},
			wantErr: ErrUnsupportedDriver,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			repo, err := NewRepository(context.Background(), tt.cfg)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("NewRepository() error = %v, wantErr %v", err, tt.wantErr)
			}

			if err == nil {
				_ = repo.Close()
			}
		})
	}
}

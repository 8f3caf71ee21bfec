package kv

import (
	"bytes"
	"context"
	"sync"
)

// MemoryKVRepository implements Repository with a process-local map.
// It is not durable and serves tests and ephemeral shells.
type MemoryKVRepository struct {
	values map[string][]byte
	m      sync.RWMutex
}

var _ Repository = (*MemoryKVRepository)(nil)

// NewMemoryKVRepository creates an empty in-memory repository.
func NewMemoryKVRepository() *MemoryKVRepository {
	return &MemoryKVRepository{
		values: make(map[string][]byte),
	}
}

// Get implements Repository.Get.
func (r *MemoryKVRepository) Get(_ context.Context, key string) ([]byte, bool, error) {
	if err := checkKey(key); err != nil {
		return nil, false, err
	}

	r.m.RLock()
	defer r.m.RUnlock()

	value, ok := r.values[key]
	if !ok {
		return nil, false, nil
	}

	return bytes.Clone(value), true, nil
}

// Set implements Repository.Set.
func (r *MemoryKVRepository) Set(_ context.Context, key string, value []byte) error {
	if err := checkKey(key); err != nil {
		return err
	}

	r.m.Lock()
	defer r.m.Unlock()

	if value == nil {
		value = []byte{}
	}

	r.values[key] = bytes.Clone(value)

	return nil
}

// Remove implements Repository.Remove.
func (r *MemoryKVRepository) Remove(_ context.Context, key string) error {
	if err := checkKey(key); err != nil {
		return err
	}

	r.m.Lock()
	defer r.m.Unlock()

	delete(r.values, key)

	return nil
}

// Close implements Repository.Close.
func (r *MemoryKVRepository) Close() error {
	return nil
}

package kvstore

import (
	"context"
	"errors"
	"sync"
)

// ErrNotFound indicates the key has no stored value.
var ErrNotFound = errors.New("key not found")

// KV is the durable key-value surface cart state is persisted through.
// Implementations must be safe for concurrent use.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// MemoryKV keeps values in a mutex-guarded map. It backs tests and
// single-node development runs; nothing survives a restart.
type MemoryKV struct {
	mx    sync.RWMutex
	store map[string][]byte
}

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{store: make(map[string][]byte)}
}

func (m *MemoryKV) Get(_ context.Context, key string) ([]byte, error) {
	m.mx.RLock()
	defer m.mx.RUnlock()

	value, ok := m.store[key]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

func (m *MemoryKV) Set(_ context.Context, key string, value []byte) error {
	m.mx.Lock()
	defer m.mx.Unlock()

	stored := make([]byte, len(value))
	copy(stored, value)
	m.store[key] = stored
	return nil
}

func (m *MemoryKV) Delete(_ context.Context, key string) error {
	m.mx.Lock()
	defer m.mx.Unlock()

	delete(m.store, key)
	return nil
}

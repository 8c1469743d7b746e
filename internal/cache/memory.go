package cache

import (
	"context"
	"sync"
)

// MemoryClient keeps values in process memory. It is used when no Redis
// URL is configured and in tests.
type MemoryClient struct {
	mu     sync.RWMutex
	data   map[string]string
	prefix string
}

func NewMemoryClient(prefix string) *MemoryClient {
	return &MemoryClient{
		data:   make(map[string]string),
		prefix: prefix,
	}
}

func (m *MemoryClient) Close() error {
	return nil
}

func (m *MemoryClient) Get(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	val, ok := m.data[m.prefix+key]
	return val, ok, nil
}

func (m *MemoryClient) Set(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[m.prefix+key] = value
	return nil
}

package store

import (
	"context"
	"sync"
)

// MemoryBackend 进程内存后端
type MemoryBackend struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewMemoryBackend 创建内存后端
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{blobs: make(map[string][]byte)}
}

// NewMemoryStore 创建内存 JSON 存储
func NewMemoryStore() *JSONStore {
	return NewJSONStore(NewMemoryBackend())
}

// Name 后端名称
func (b *MemoryBackend) Name() string {
	return "memory"
}

// Read 读取
func (b *MemoryBackend) Read(_ context.Context, key string) ([]byte, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	payload, ok := b.blobs[key]
	if !ok {
		return nil, false, nil
	}
	copied := make([]byte, len(payload))
	copy(copied, payload)
	return copied, true, nil
}

// Write 写入
func (b *MemoryBackend) Write(_ context.Context, key string, payload []byte) error {
	copied := make([]byte, len(payload))
	copy(copied, payload)
	b.mu.Lock()
	b.blobs[key] = copied
	b.mu.Unlock()
	return nil
}

// Delete 删除
func (b *MemoryBackend) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	delete(b.blobs, key)
	b.mu.Unlock()
	return nil
}

package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const blobFileExt = ".json"

// FileBackend 文件后端，每个键对应目录下一个 JSON 文件
type FileBackend struct {
	dir string
	mu  sync.Mutex
}

// NewFileBackend 创建文件后端
func NewFileBackend(dir string) (*FileBackend, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, errors.New("store dir is empty")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create store dir failed: %w", err)
	}
	return &FileBackend{dir: dir}, nil
}

// NewFileStore 创建文件 JSON 存储
func NewFileStore(dir string) (*JSONStore, error) {
	backend, err := NewFileBackend(dir)
	if err != nil {
		return nil, err
	}
	return NewJSONStore(backend), nil
}

// Name 后端名称
func (b *FileBackend) Name() string {
	return "file"
}

// Read 读取
func (b *FileBackend) Read(_ context.Context, key string) ([]byte, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	payload, err := os.ReadFile(b.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return payload, true, nil
}

// Write 先写临时文件再重命名，避免写一半的快照
func (b *FileBackend) Write(_ context.Context, key string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	tmp, err := os.CreateTemp(b.dir, "."+sanitizeFileKey(key)+"-*")
	if err != nil {
		return fmt.Errorf("create temp blob failed: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(payload); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write temp blob failed: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp blob failed: %w", err)
	}
	if err := os.Rename(tmpName, b.path(key)); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace blob failed: %w", err)
	}
	return nil
}

// Delete 删除
func (b *FileBackend) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	err := os.Remove(b.path(key))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (b *FileBackend) path(key string) string {
	return filepath.Join(b.dir, sanitizeFileKey(key)+blobFileExt)
}

func sanitizeFileKey(key string) string {
	replacer := strings.NewReplacer("/", "_", "\\", "_", "..", "_", ":", "_")
	return replacer.Replace(key)
}

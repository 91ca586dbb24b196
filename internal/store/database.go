package store

import (
	"context"

	"github.com/dujiao-next/storefront/internal/repository"
)

// DatabaseBackend 基于 GORM 表的后端
type DatabaseBackend struct {
	repo repository.BlobRepository
}

// NewDatabaseBackend 创建数据库后端
func NewDatabaseBackend(repo repository.BlobRepository) *DatabaseBackend {
	return &DatabaseBackend{repo: repo}
}

// NewDatabaseStore 创建数据库 JSON 存储
func NewDatabaseStore(repo repository.BlobRepository) *JSONStore {
	return NewJSONStore(NewDatabaseBackend(repo))
}

// Name 后端名称
func (b *DatabaseBackend) Name() string {
	return "database"
}

// Read 读取
func (b *DatabaseBackend) Read(ctx context.Context, key string) ([]byte, bool, error) {
	blob, err := b.repo.Get(ctx, key)
	if err != nil {
		return nil, false, err
	}
	if blob == nil {
		return nil, false, nil
	}
	return []byte(blob.Value), true, nil
}

// Write 写入
func (b *DatabaseBackend) Write(ctx context.Context, key string, payload []byte) error {
	return b.repo.Put(ctx, key, string(payload))
}

// Delete 删除
func (b *DatabaseBackend) Delete(ctx context.Context, key string) error {
	return b.repo.Delete(ctx, key)
}

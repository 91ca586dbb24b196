package repository

import (
	"context"
	"errors"
	"time"

	"github.com/dujiao-next/storefront/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BlobRepository 本地 JSON 快照数据访问接口
type BlobRepository interface {
	Get(ctx context.Context, key string) (*models.PersistedBlob, error)
	Put(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) ([]models.PersistedBlob, error)
}

// GormBlobRepository GORM 实现
type GormBlobRepository struct {
	db *gorm.DB
}

// NewBlobRepository 创建快照仓库
func NewBlobRepository(db *gorm.DB) *GormBlobRepository {
	return &GormBlobRepository{db: db}
}

// Get 按键读取，不存在时返回 nil
func (r *GormBlobRepository) Get(ctx context.Context, key string) (*models.PersistedBlob, error) {
	var blob models.PersistedBlob
	err := r.db.WithContext(ctx).Where("blob_key = ?", key).First(&blob).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &blob, nil
}

// Put 写入快照（整体覆盖）
func (r *GormBlobRepository) Put(ctx context.Context, key, value string) error {
	blob := models.PersistedBlob{
		Key:       key,
		Value:     value,
		UpdatedAt: time.Now(),
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "blob_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&blob).Error
}

// Delete 删除快照
func (r *GormBlobRepository) Delete(ctx context.Context, key string) error {
	return r.db.WithContext(ctx).Where("blob_key = ?", key).Delete(&models.PersistedBlob{}).Error
}

// List 列出全部快照
func (r *GormBlobRepository) List(ctx context.Context) ([]models.PersistedBlob, error) {
	var blobs []models.PersistedBlob
	if err := r.db.WithContext(ctx).Order("blob_key asc").Find(&blobs).Error; err != nil {
		return nil, err
	}
	return blobs, nil
}

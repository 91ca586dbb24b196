package models

import "time"

// PersistedBlob 本地持久化的 JSON 快照
type PersistedBlob struct {
	Key       string    `gorm:"column:blob_key;primaryKey;type:varchar(128)" json:"key"` // 存储键
	Value     string    `gorm:"type:text;not null" json:"value"`                         // JSON 内容
	UpdatedAt time.Time `gorm:"index" json:"updated_at"`                                 // 更新时间
}

// TableName 指定表名
func (PersistedBlob) TableName() string {
	return "storefront_blobs"
}

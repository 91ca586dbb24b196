// Package store 提供本地持久化的 key -> JSON 快照存储。
//
// 读取时内容缺失或损坏均视为"无历史状态"，只有底层 I/O 失败才返回错误。
// 写入为整体覆盖，不做字段级合并，也没有过期时间。
package store

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/dujiao-next/storefront/internal/logger"
)

// ErrEmptyKey 存储键为空
var ErrEmptyKey = errors.New("store key is empty")

// Store 持久化存储接口
type Store interface {
	Load(ctx context.Context, key string, dest interface{}) (bool, error)
	Save(ctx context.Context, key string, value interface{}) error
	Remove(ctx context.Context, key string) error
}

// Backend 原始字节读写
type Backend interface {
	Name() string
	Read(ctx context.Context, key string) ([]byte, bool, error)
	Write(ctx context.Context, key string, payload []byte) error
	Delete(ctx context.Context, key string) error
}

// JSONStore 基于 Backend 的 JSON 存储
type JSONStore struct {
	backend Backend
}

// NewJSONStore 创建 JSON 存储
func NewJSONStore(backend Backend) *JSONStore {
	return &JSONStore{backend: backend}
}

// Backend 返回底层后端
func (s *JSONStore) Backend() Backend {
	return s.backend
}

// Load 读取并解析快照，缺失或损坏时返回 false
func (s *JSONStore) Load(ctx context.Context, key string, dest interface{}) (bool, error) {
	key, err := normalizeKey(key)
	if err != nil {
		return false, err
	}
	payload, ok, err := s.backend.Read(ctx, key)
	if err != nil {
		return false, err
	}
	if !ok || len(payload) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(payload, dest); err != nil {
		logger.Warnw("store_blob_corrupt",
			"backend", s.backend.Name(),
			"key", key,
			"error", err,
		)
		return false, nil
	}
	return true, nil
}

// Save 序列化并覆盖写入
func (s *JSONStore) Save(ctx context.Context, key string, value interface{}) error {
	key, err := normalizeKey(key)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.backend.Write(ctx, key, payload)
}

// Remove 删除快照
func (s *JSONStore) Remove(ctx context.Context, key string) error {
	key, err := normalizeKey(key)
	if err != nil {
		return err
	}
	return s.backend.Delete(ctx, key)
}

// ReadRaw 读取原始内容（用于排查工具）
func (s *JSONStore) ReadRaw(ctx context.Context, key string) ([]byte, bool, error) {
	key, err := normalizeKey(key)
	if err != nil {
		return nil, false, err
	}
	return s.backend.Read(ctx, key)
}

func normalizeKey(key string) (string, error) {
	trimmed := strings.TrimSpace(key)
	if trimmed == "" {
		return "", ErrEmptyKey
	}
	return trimmed, nil
}

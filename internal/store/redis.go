package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dujiao-next/storefront/internal/config"

	"github.com/redis/go-redis/v9"
)

// RedisBackend Redis 后端（无 TTL）
type RedisBackend struct {
	client *redis.Client
	prefix string
}

// NewRedisClient 按配置创建 Redis 客户端
func NewRedisClient(cfg *config.RedisConfig) *redis.Client {
	addr := "127.0.0.1"
	port := 6379
	password := ""
	db := 0
	if cfg != nil {
		if host := strings.TrimSpace(cfg.Host); host != "" {
			addr = host
		}
		if cfg.Port > 0 {
			port = cfg.Port
		}
		password = cfg.Password
		db = cfg.DB
	}
	return redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", addr, port),
		Password: password,
		DB:       db,
	})
}

// NewRedisBackend 创建 Redis 后端
func NewRedisBackend(client *redis.Client, prefix string) *RedisBackend {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "sf"
	}
	return &RedisBackend{client: client, prefix: prefix}
}

// NewRedisStore 创建 Redis JSON 存储
func NewRedisStore(client *redis.Client, prefix string) *JSONStore {
	return NewJSONStore(NewRedisBackend(client, prefix))
}

// Name 后端名称
func (b *RedisBackend) Name() string {
	return "redis"
}

// Client 底层 Redis 连接（登录限流复用）
func (b *RedisBackend) Client() *redis.Client {
	return b.client
}

// Read 读取
func (b *RedisBackend) Read(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := b.client.Get(ctx, b.buildKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

// Write 写入
func (b *RedisBackend) Write(ctx context.Context, key string, payload []byte) error {
	return b.client.Set(ctx, b.buildKey(key), payload, 0).Err()
}

// Delete 删除
func (b *RedisBackend) Delete(ctx context.Context, key string) error {
	return b.client.Del(ctx, b.buildKey(key)).Err()
}

func (b *RedisBackend) buildKey(key string) string {
	return fmt.Sprintf("%s:%s", b.prefix, key)
}

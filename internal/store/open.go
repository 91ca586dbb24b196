package store

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dujiao-next/storefront/internal/config"
	"github.com/dujiao-next/storefront/internal/constants"
	"github.com/dujiao-next/storefront/internal/repository"
)

// Open 按 store.driver 创建存储，返回的 closer 用于释放底层连接
func Open(cfg *config.Config, blobRepo repository.BlobRepository) (*JSONStore, func() error, error) {
	noop := func() error { return nil }
	if cfg == nil {
		return nil, noop, errors.New("config is nil")
	}
	driver := strings.ToLower(strings.TrimSpace(cfg.Store.Driver))
	switch driver {
	case "", constants.StoreDriverFile:
		s, err := NewFileStore(cfg.Store.Dir)
		if err != nil {
			return nil, noop, err
		}
		return s, noop, nil
	case constants.StoreDriverDatabase:
		if blobRepo == nil {
			return nil, noop, errors.New("database store requires blob repository")
		}
		return NewDatabaseStore(blobRepo), noop, nil
	case constants.StoreDriverRedis:
		client := NewRedisClient(&cfg.Redis)
		return NewRedisStore(client, cfg.Redis.Prefix), client.Close, nil
	case constants.StoreDriverMemory:
		return NewMemoryStore(), noop, nil
	default:
		return nil, noop, fmt.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

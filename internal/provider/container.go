package provider

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/dujiao-next/storefront/internal/authz"
	"github.com/dujiao-next/storefront/internal/config"
	"github.com/dujiao-next/storefront/internal/constants"
	"github.com/dujiao-next/storefront/internal/logger"
	"github.com/dujiao-next/storefront/internal/models"
	"github.com/dujiao-next/storefront/internal/remote"
	"github.com/dujiao-next/storefront/internal/repository"
	"github.com/dujiao-next/storefront/internal/service"
	"github.com/dujiao-next/storefront/internal/store"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Container 依赖注入容器
type Container struct {
	Config *config.Config
	DB     *gorm.DB

	// Repositories
	BlobRepo repository.BlobRepository

	// Persistence
	Store       *store.JSONStore
	RedisClient *redis.Client
	closeStore  func() error

	// Remote
	RemoteClient *remote.Client
	CartClient   *remote.CartClient
	AuthClient   *remote.AuthClient

	// Services
	AuthzService    *authz.Service
	CartState       *service.CartState
	SessionState    *service.SessionState
	NoticeService   *service.NoticeService
	CartSyncService *service.CartSyncService
	AuthService     *service.AuthService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) (*Container, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	c := &Container{Config: cfg}
	if err := c.initDatabase(); err != nil {
		return nil, err
	}
	c.initRepositories()
	if err := c.initStore(); err != nil {
		return nil, err
	}
	c.initRemote()
	if err := c.initServices(); err != nil {
		return nil, err
	}
	return c, nil
}

// Hydrate 从存储恢复购物车与会话，进程启动时调用一次
func (c *Container) Hydrate(ctx context.Context) models.SessionIdentity {
	snapshot := c.CartState.Hydrate(ctx)
	identity := c.SessionState.Hydrate(ctx)
	logger.Infow("provider_state_hydrated",
		"store", c.Store.Backend().Name(),
		"cart_lines", len(snapshot.Items),
		"logged_in", identity.LoggedIn(),
	)
	return identity
}

// Close 释放存储与数据库连接
func (c *Container) Close() error {
	var errs []error
	if c.closeStore != nil {
		if err := c.closeStore(); err != nil {
			errs = append(errs, err)
		}
	}
	if c.DB != nil {
		if sqlDB, err := c.DB.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func (c *Container) initDatabase() error {
	cfg := c.Config.Database
	if isSQLiteDriver(cfg.Driver) {
		if dir := sqliteDir(cfg.DSN); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return err
			}
		}
	}
	db, err := models.OpenDB(cfg.Driver, cfg.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Pool.ConnMaxIdleTimeSeconds,
	}, c.Config.Server.Mode == constants.ServerModeDebug)
	if err != nil {
		return err
	}
	if err := models.AutoMigrate(db); err != nil {
		return err
	}
	c.DB = db
	return nil
}

func (c *Container) initRepositories() {
	c.BlobRepo = repository.NewBlobRepository(c.DB)
}

func (c *Container) initStore() error {
	s, closer, err := store.Open(c.Config, c.BlobRepo)
	if err != nil {
		return err
	}
	c.Store = s
	c.closeStore = closer
	if backend, ok := s.Backend().(*store.RedisBackend); ok {
		c.RedisClient = backend.Client()
	}
	return nil
}

func (c *Container) initRemote() {
	credential := func() string {
		if c.SessionState == nil {
			return ""
		}
		return c.SessionState.Credential()
	}
	c.RemoteClient = remote.NewClient(c.Config.Remote.BaseURL, c.Config.Remote.Timeout(), credential)
	c.CartClient = remote.NewCartClient(c.RemoteClient, c.Config.Remote.Locale)
	c.AuthClient = remote.NewAuthClient(c.RemoteClient)
}

func (c *Container) initServices() error {
	authzService, err := authz.NewService(c.DB)
	if err != nil {
		return err
	}
	if err := authzService.BootstrapBuiltinRoles(); err != nil {
		return err
	}
	c.AuthzService = authzService

	sessionCfg := c.Config.Session
	c.NoticeService = service.NewNoticeService(sessionCfg.NoticeTTL(), sessionCfg.NoticeCapacity)
	c.CartState = service.NewCartState(c.Store)
	c.SessionState = service.NewSessionState(c.Store, c.CartState, c.AuthzService,
		service.WithExpiryLeeway(sessionCfg.ExpiryLeeway()),
	)
	c.CartSyncService = service.NewCartSyncService(c.CartState, c.SessionState, c.CartClient, c.NoticeService)
	c.AuthService = service.NewAuthService(c.SessionState, c.AuthClient, c.CartClient, c.CartSyncService, c.NoticeService)
	return nil
}

func isSQLiteDriver(driver string) bool {
	normalized := strings.ToLower(strings.TrimSpace(driver))
	return normalized == "" || normalized == "sqlite"
}

// sqliteDir 解析文件型 DSN 的目录，内存库返回空
func sqliteDir(dsn string) string {
	path := strings.TrimPrefix(strings.TrimSpace(dsn), "file:")
	if idx := strings.Index(path, "?"); idx >= 0 {
		path = path[:idx]
	}
	if path == "" || path == ":memory:" || strings.Contains(dsn, "mode=memory") {
		return ""
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return ""
	}
	return dir
}

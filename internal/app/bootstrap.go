package app

import (
	"context"
	"errors"

	"github.com/dujiao-next/storefront/internal/config"
	"github.com/dujiao-next/storefront/internal/logger"
	"github.com/dujiao-next/storefront/internal/provider"
	"github.com/dujiao-next/storefront/internal/router"
	"github.com/dujiao-next/storefront/internal/worker"
)

// BuildRunner 构建服务运行器，调用方负责关闭返回的容器
func BuildRunner(cfg *config.Config, mode string) (*Runner, *provider.Container, error) {
	if cfg == nil {
		return nil, nil, errors.New("config is nil")
	}

	container, err := provider.NewContainer(cfg)
	if err != nil {
		return nil, nil, err
	}

	var services []Service

	// 本地 HTTP 接口
	if mode == ModeAll || mode == ModeAPI {
		engine := router.SetupRouter(cfg, container)
		services = append(services, NewHTTPService(cfg.Server.Addr(), engine))
	}

	// 会话过期巡检
	if mode == ModeAll || mode == ModeWatcher {
		services = append(services, worker.NewSessionWatcher(container.AuthService, cfg.Session.WatchInterval()))
	}

	if len(services) == 0 {
		_ = container.Close()
		return nil, nil, errors.New("no services initialized (check mode and config)")
	}

	runner := NewRunner(services...).
		BeforeStart("hydrate", func(ctx context.Context) error {
			// 水合完成前页面判定一律返回 wait
			container.Hydrate(ctx)
			return nil
		}).
		AfterStop("state_summary", func(context.Context) error {
			logger.Infow("app_state_on_shutdown",
				"store", container.Store.Backend().Name(),
				"cart_lines", len(container.CartState.Items()),
				"cart_total", container.CartState.Total().String(),
				"logged_in", container.SessionState.IsLoggedIn(),
				"pending_notices", container.NoticeService.Pending(),
			)
			return nil
		})
	return runner, container, nil
}

// Run 应用启动入口
func Run(opts Options) error {
	opts = normalizeOptions(opts)
	if opts.Config == nil {
		return errors.New("config is nil")
	}

	runner, container, err := BuildRunner(opts.Config, opts.Mode)
	if err != nil {
		return err
	}
	defer func() {
		if err := container.Close(); err != nil {
			opts.Logger.Warnw("app_container_close_failed", "error", err)
		}
	}()

	opts.Logger.Infow("app_start", "addr", opts.Config.Server.Addr(), "mode", opts.Mode, "store", opts.Config.Store.Driver)
	return RunWithOptions(runner, opts)
}

package main

import (
	"flag"
	"fmt"
	"os"
	"syscall"

	"github.com/dujiao-next/storefront/internal/app"
	"github.com/dujiao-next/storefront/internal/config"
	"github.com/dujiao-next/storefront/internal/constants"
	"github.com/dujiao-next/storefront/internal/logger"

	"github.com/gin-gonic/gin"
)

const (
	ansiReset     = "\033[0m"
	ansiBold      = "\033[1m"
	ansiDim       = "\033[2m"
	ansiBlue      = "\033[34m"
	ansiBrightMag = "\033[95m"
)

func main() {
	var mode string
	flag.StringVar(&mode, "mode", app.ModeAll, "启动模式: all (默认), api, watcher")
	flag.Parse()
	if !app.ValidMode(mode) {
		fmt.Fprintf(os.Stderr, "unknown mode %q\n", mode)
		flag.Usage()
		os.Exit(2)
	}

	cfg := config.Load()
	printStartupBanner(cfg, mode)

	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	defer logger.Sync()

	if cfg.Server.Mode == constants.ServerModeRelease {
		gin.SetMode(gin.ReleaseMode)
	}

	err := app.Run(app.Options{
		Config:  cfg,
		Logger:  logger.S(),
		Signals: []os.Signal{syscall.SIGINT, syscall.SIGTERM},
		Mode:    mode,
	})
	if err != nil {
		logger.Errorw("app_exit_with_error", "error", err)
		logger.Sync()
		os.Exit(1)
	}
}

func printStartupBanner(cfg *config.Config, mode string) {
	fmt.Println(ansiBrightMag + "╔══════════════════════════════════════════════════════╗" + ansiReset)
	fmt.Println(ansiBrightMag + "║          Dujiao-Next Storefront Agent 启动中          ║" + ansiReset)
	fmt.Println(ansiBrightMag + "╚══════════════════════════════════════════════════════╝" + ansiReset)
	fmt.Println(ansiBold + "本地购物车 / 会话状态服务" + ansiReset)
	fmt.Printf("%s• 模式:   %s%s\n", ansiBlue, mode, ansiReset)
	if mode != app.ModeWatcher {
		fmt.Printf("%s• 接口:   http://%s/api/v1%s\n", ansiBlue, cfg.Server.Addr(), ansiReset)
	}
	fmt.Printf("%s• 存储:   %s%s\n", ansiBlue, cfg.Store.Driver, ansiReset)
	fmt.Printf("%s• 主站:   %s%s\n", ansiBlue, cfg.Remote.BaseURL, ansiReset)
	fmt.Println(ansiDim + "--------------------------------------------------------" + ansiReset)
}

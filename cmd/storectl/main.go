package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dujiao-next/storefront/internal/config"
	"github.com/dujiao-next/storefront/internal/constants"
	"github.com/dujiao-next/storefront/internal/logger"
	"github.com/dujiao-next/storefront/internal/provider"
)

const usage = `storectl - 本地状态排查工具

用法:
  storectl dump [cart|auth]          打印持久化快照（默认全部）
  storectl clear [cart|auth|all]     删除持久化快照
  storectl blobs                     列出数据库快照表中的全部键
  storectl roles                     列出页面访问角色及其策略
  storectl grant <role> <view>       为角色开放页面
  storectl revoke <role> <view>      收回角色页面权限
`

func main() {
	os.Exit(run(os.Args[1:]))
}

// run 返回进程退出码，容器与日志在返回前关闭
func run(argv []string) int {
	if len(argv) < 1 {
		fmt.Print(usage)
		return 2
	}

	cfg := config.Load()
	logger.Init(logger.ModeCLI, cfg.Log.ToLoggerOptions())
	defer logger.Sync()

	container, err := provider.NewContainer(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化失败: %v\n", err)
		return 1
	}
	defer func() {
		if err := container.Close(); err != nil {
			logger.Warnw("storectl_container_close_failed", "error", err)
		}
	}()

	ctx := context.Background()
	cmd, args := argv[0], argv[1:]
	switch cmd {
	case "dump":
		err = dump(ctx, container, args)
	case "clear":
		err = clearKeys(ctx, container, args)
	case "blobs":
		err = listBlobs(ctx, container)
	case "roles":
		err = roles(container)
	case "grant", "revoke":
		err = changePolicy(container, cmd, args)
	default:
		fmt.Print(usage)
		return 2
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s 失败: %v\n", cmd, err)
		return 1
	}
	return 0
}

func resolveKeys(args []string) ([]string, error) {
	if len(args) == 0 || args[0] == "all" {
		return []string{constants.StorageKeyCart, constants.StorageKeyAuth}, nil
	}
	switch strings.ToLower(args[0]) {
	case "cart", constants.StorageKeyCart:
		return []string{constants.StorageKeyCart}, nil
	case "auth", constants.StorageKeyAuth:
		return []string{constants.StorageKeyAuth}, nil
	default:
		return nil, fmt.Errorf("unknown key %q", args[0])
	}
}

func dump(ctx context.Context, c *provider.Container, args []string) error {
	keys, err := resolveKeys(args)
	if err != nil {
		return err
	}
	fmt.Printf("store driver: %s\n", c.Store.Backend().Name())
	for _, key := range keys {
		raw, ok, err := c.Store.ReadRaw(ctx, key)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Printf("== %s: (empty)\n", key)
			continue
		}
		var pretty bytes.Buffer
		if key == constants.StorageKeyAuth {
			raw = redactCredential(raw)
		}
		if err := json.Indent(&pretty, raw, "", "  "); err != nil {
			fmt.Printf("== %s: (corrupt) %s\n", key, string(raw))
			continue
		}
		fmt.Printf("== %s:\n%s\n", key, pretty.String())
	}
	return nil
}

// redactCredential 输出时隐藏凭证
func redactCredential(raw []byte) []byte {
	var payload map[string]interface{}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return raw
	}
	if token, ok := payload["credential"].(string); ok && token != "" {
		payload["credential"] = fmt.Sprintf("<redacted %d chars>", len(token))
	}
	redacted, err := json.Marshal(payload)
	if err != nil {
		return raw
	}
	return redacted
}

func clearKeys(ctx context.Context, c *provider.Container, args []string) error {
	keys, err := resolveKeys(args)
	if err != nil {
		return err
	}
	for _, key := range keys {
		if err := c.Store.Remove(ctx, key); err != nil {
			return err
		}
		fmt.Printf("cleared %s\n", key)
	}
	return nil
}

// listBlobs 列出数据库快照表，store.driver 不是 database 时表通常为空
func listBlobs(ctx context.Context, c *provider.Container) error {
	blobs, err := c.BlobRepo.List(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("store driver: %s, %d blob(s)\n", c.Store.Backend().Name(), len(blobs))
	for _, blob := range blobs {
		fmt.Printf("  %-32s %6d bytes  %s\n", blob.Key, len(blob.Value), blob.UpdatedAt.Format(time.RFC3339))
	}
	return nil
}

func roles(c *provider.Container) error {
	matrix, err := c.AuthzService.Matrix()
	if err != nil {
		return err
	}
	for _, rv := range matrix {
		if len(rv.Inherits) > 0 {
			fmt.Printf("%s (inherits %s)\n", rv.Role, strings.Join(rv.Inherits, ", "))
		} else {
			fmt.Printf("%s\n", rv.Role)
		}
		for _, view := range rv.Views {
			fmt.Printf("  %s\n", view)
		}
	}
	return nil
}

func changePolicy(c *provider.Container, op string, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: storectl %s <role> <view>", op)
	}
	if op == "grant" {
		return c.AuthzService.Grant(args[0], args[1])
	}
	return c.AuthzService.Revoke(args[0], args[1])
}

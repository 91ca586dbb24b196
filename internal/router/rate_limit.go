package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/dujiao-next/storefront/internal/config"
	"github.com/dujiao-next/storefront/internal/http/handlers/shared"
	"github.com/dujiao-next/storefront/internal/http/response"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// LoginThrottle 登录固定窗口限流，按 邮箱+IP 计数
type LoginThrottle struct {
	client *redis.Client
	prefix string
	window time.Duration
	limit  int64
}

// NewLoginThrottle client 为空或配置非正时不限流
func NewLoginThrottle(client *redis.Client, prefix string, cfg config.RateLimitConfig) *LoginThrottle {
	return &LoginThrottle{
		client: client,
		prefix: prefix,
		window: time.Duration(cfg.WindowSeconds) * time.Second,
		limit:  int64(cfg.MaxAttempts),
	}
}

// Hit 记一次尝试，超限时返回剩余等待时间
func (t *LoginThrottle) Hit(ctx context.Context, key string) (bool, time.Duration, error) {
	full := key
	if t.prefix != "" {
		full = t.prefix + ":" + key
	}

	var count *redis.IntCmd
	var ttl *redis.DurationCmd
	if _, err := t.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		count = pipe.Incr(ctx, full)
		ttl = pipe.TTL(ctx, full)
		return nil
	}); err != nil {
		return true, 0, err
	}

	wait := ttl.Val()
	if wait < 0 {
		// 新窗口
		if err := t.client.Expire(ctx, full, t.window).Err(); err != nil {
			return true, 0, err
		}
		wait = t.window
	}
	if count.Val() > t.limit {
		return false, wait, nil
	}
	return true, 0, nil
}

func (t *LoginThrottle) enabled() bool {
	return t != nil && t.client != nil && t.window > 0 && t.limit > 0
}

// Middleware 超限返回 429 与 retry_after；Redis 异常时放行
func (t *LoginThrottle) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !t.enabled() {
			c.Next()
			return
		}
		allowed, wait, err := t.Hit(c.Request.Context(), loginThrottleKey(c))
		if err != nil {
			shared.RequestLog(c).Warnw("login_throttle_unavailable", "error", err)
			c.Next()
			return
		}
		if !allowed {
			seconds := max(int(math.Ceil(wait.Seconds())), 1)
			msg := fmt.Sprintf("%s, retry in %d seconds", shared.Message("error.rate_limited"), seconds)
			response.Error(c, response.CodeTooManyRequests, msg, gin.H{"retry_after": seconds})
			c.Abort()
			return
		}
		c.Next()
	}
}

// loginThrottleKey 小写邮箱 + 客户端 IP，读不到邮箱时只用 IP；请求体读取后复原
func loginThrottleKey(c *gin.Context) string {
	ip := c.ClientIP()
	if c.Request == nil || c.Request.Body == nil {
		return ip
	}
	body, err := io.ReadAll(c.Request.Body)
	c.Request.Body = io.NopCloser(bytes.NewReader(body))
	if err != nil {
		return ip
	}
	var payload struct {
		Email string `json:"email"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ip
	}
	email := strings.ToLower(strings.TrimSpace(payload.Email))
	if email == "" {
		return ip
	}
	return email + "|" + ip
}

// Package remote 调用商城主站 API（统一 {status_code,msg,data} 响应包）。
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dujiao-next/storefront/internal/http/response"
	"github.com/dujiao-next/storefront/internal/logger"
)

var (
	// ErrUnavailable 网络失败或服务端异常
	ErrUnavailable = errors.New("remote api unavailable")
	// ErrUnauthorized 凭证无效或过期
	ErrUnauthorized = errors.New("remote api unauthorized")
)

// APIError 业务错误（status_code != 0）
type APIError struct {
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("remote api error %d: %s", e.Code, e.Message)
}

// Unwrap 401 归为 ErrUnauthorized
func (e *APIError) Unwrap() error {
	if e.Code == response.CodeUnauthorized {
		return ErrUnauthorized
	}
	return nil
}

// CredentialSource 返回当前 Bearer 凭证
type CredentialSource func() string

type credentialKey struct{}

// WithCredential 为单次调用指定凭证（登录流程中身份尚未写入会话时使用）
func WithCredential(ctx context.Context, credential string) context.Context {
	return context.WithValue(ctx, credentialKey{}, credential)
}

// Client 远端 API 客户端
type Client struct {
	baseURL    string
	client     *http.Client
	credential CredentialSource
}

// NewClient 创建客户端
func NewClient(baseURL string, timeout time.Duration, credential CredentialSource) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		client:     &http.Client{Timeout: timeout},
		credential: credential,
	}
}

// Do 发送请求并解析响应包，out 为 nil 时忽略 data
func (c *Client) Do(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.resolveCredential(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		logger.Warnw("remote_request_failed", "method", method, "path", path, "error", err)
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	logger.Debugw("remote_request", "method", method, "path", path, "status", resp.StatusCode, "latency_ms", time.Since(start).Milliseconds())

	if resp.StatusCode == http.StatusUnauthorized {
		return &APIError{Code: response.CodeUnauthorized, Message: http.StatusText(resp.StatusCode)}
	}
	if resp.StatusCode >= http.StatusBadRequest {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: status=%d body=%s", ErrUnavailable, resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var env response.Envelope[json.RawMessage]
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("%w: decode response: %w", ErrUnavailable, err)
	}
	if !env.OK() {
		return &APIError{Code: env.StatusCode, Message: env.Msg}
	}
	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("%w: decode data: %w", ErrUnavailable, err)
	}
	return nil
}

func (c *Client) resolveCredential(ctx context.Context) string {
	if token, ok := ctx.Value(credentialKey{}).(string); ok && token != "" {
		return token
	}
	if c.credential == nil {
		return ""
	}
	return c.credential()
}

package app

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/dujiao-next/storefront/internal/logger"
)

// HTTPService 本地接口服务，只在监听成功后才算就绪
type HTTPService struct {
	server *http.Server

	mu       sync.Mutex
	bound    string
	ready    chan struct{}
	stopOnce sync.Once
}

// NewHTTPService 创建 HTTP 服务，addr 端口为 0 时由系统分配
func NewHTTPService(addr string, handler http.Handler) *HTTPService {
	return &HTTPService{
		server: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		ready: make(chan struct{}),
	}
}

func (s *HTTPService) Name() string { return "http" }

// Ready 监听成功后关闭
func (s *HTTPService) Ready() <-chan struct{} { return s.ready }

// Addr 实际监听地址，就绪前返回配置值
func (s *HTTPService) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.bound != "" {
		return s.bound
	}
	return s.server.Addr
}

// Start 监听并阻塞到 Stop
func (s *HTTPService) Start(ctx context.Context) error {
	if s == nil || s.server == nil {
		return errors.New("http server not initialized")
	}
	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", s.server.Addr)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.bound = listener.Addr().String()
	s.mu.Unlock()
	close(s.ready)

	logger.Infow("http_service_listening", "addr", s.Addr())
	if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop 优雅关闭，等待进行中的请求（含购物车同步）完成或 ctx 超时
func (s *HTTPService) Stop(ctx context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}
	var err error
	s.stopOnce.Do(func() {
		err = s.server.Shutdown(ctx)
	})
	return err
}

package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dujiao-next/storefront/internal/logger"
)

const defaultWatchInterval = 30 * time.Second

// SessionExpirer 检查并处理凭证过期
type SessionExpirer interface {
	ExpireIfNeeded(ctx context.Context) bool
}

// SessionWatcher 定时检查会话凭证是否过期，过期后自动登出
type SessionWatcher struct {
	name     string
	interval time.Duration
	expirer  SessionExpirer

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewSessionWatcher 创建会话巡检服务
func NewSessionWatcher(expirer SessionExpirer, interval time.Duration) *SessionWatcher {
	if interval <= 0 {
		interval = defaultWatchInterval
	}
	return &SessionWatcher{
		name:     "session-watcher",
		interval: interval,
		expirer:  expirer,
		stopCh:   make(chan struct{}),
	}
}

// Name 服务名称
func (s *SessionWatcher) Name() string {
	if s == nil || s.name == "" {
		return "session-watcher"
	}
	return s.name
}

// Start 启动巡检，阻塞到 ctx 结束或 Stop
func (s *SessionWatcher) Start(ctx context.Context) error {
	if s == nil || s.expirer == nil {
		return errors.New("session watcher not initialized")
	}
	log := logger.Component(s.Name())
	log.Infow("worker_session_watch_started", "interval", s.interval)
	runOnce := func() {
		if s.expirer.ExpireIfNeeded(ctx) {
			log.Infow("worker_session_expired")
		}
	}
	runOnce()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.stopCh:
			return nil
		case <-ticker.C:
			runOnce()
		}
	}
}

// Stop 停止巡检
func (s *SessionWatcher) Stop(context.Context) error {
	if s == nil {
		return nil
	}
	s.stopOnce.Do(func() { close(s.stopCh) })
	return nil
}

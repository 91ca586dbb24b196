package service

import (
	"sync"
	"time"

	"github.com/dujiao-next/storefront/internal/logger"

	"github.com/google/uuid"
)

const (
	defaultNoticeTTL      = 8 * time.Second
	defaultNoticeCapacity = 32
)

// Notice 短暂提示（相当于前端 toast）
type Notice struct {
	ID        string    `json:"id"`
	Level     string    `json:"level"`
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// NoticeService 提示队列，超出容量丢弃最旧的一条
type NoticeService struct {
	ttl      time.Duration
	capacity int
	now      func() time.Time

	mu      sync.Mutex
	notices []Notice
}

// NewNoticeService 创建提示队列
func NewNoticeService(ttl time.Duration, capacity int) *NoticeService {
	if ttl <= 0 {
		ttl = defaultNoticeTTL
	}
	if capacity <= 0 {
		capacity = defaultNoticeCapacity
	}
	return &NoticeService{ttl: ttl, capacity: capacity, now: time.Now}
}

// Push 追加提示
func (s *NoticeService) Push(level, code, message string) Notice {
	now := s.now()
	notice := Notice{
		ID:        uuid.NewString(),
		Level:     level,
		Code:      code,
		Message:   message,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}

	s.mu.Lock()
	s.notices = append(s.pruneLocked(now), notice)
	if overflow := len(s.notices) - s.capacity; overflow > 0 {
		s.notices = append([]Notice(nil), s.notices[overflow:]...)
	}
	s.mu.Unlock()

	logger.SW("notice_id", notice.ID, "code", code).Infow("notice_pushed", "level", level, "message", message)
	return notice
}

// Drain 取出所有未过期提示并清空队列
func (s *NoticeService) Drain() []Notice {
	s.mu.Lock()
	defer s.mu.Unlock()
	active := s.pruneLocked(s.now())
	s.notices = nil
	if len(active) == 0 {
		return []Notice{}
	}
	return active
}

// Pending 未过期提示数量
func (s *NoticeService) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notices = s.pruneLocked(s.now())
	return len(s.notices)
}

func (s *NoticeService) pruneLocked(now time.Time) []Notice {
	active := s.notices[:0]
	for _, notice := range s.notices {
		if now.Before(notice.ExpiresAt) {
			active = append(active, notice)
		}
	}
	return active
}

package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/dujiao-next/storefront/internal/constants"
	"github.com/dujiao-next/storefront/internal/logger"
	"github.com/dujiao-next/storefront/internal/models"
	"github.com/dujiao-next/storefront/internal/store"

	"github.com/golang-jwt/jwt/v5"
)

// ViewAuthorizer 页面访问授权
type ViewAuthorizer interface {
	CanView(role, view string) (bool, error)
}

// persistedAuth auth-storage 持久化结构
type persistedAuth struct {
	Version    int                 `json:"version"`
	User       *models.SessionUser `json:"user"`
	Credential string              `json:"credential"`
	ExpiresAt  *time.Time          `json:"expires_at,omitempty"`
}

// SessionState 会话状态容器
type SessionState struct {
	store  store.Store
	cart   *CartState
	views  ViewAuthorizer
	leeway time.Duration
	now    func() time.Time

	mu         sync.RWMutex
	user       *models.SessionUser
	credential string
	expiresAt  time.Time
	hydrated   bool

	hydrateOnce sync.Once
	hydratedCh  chan struct{}
}

// SessionOption 会话容器选项
type SessionOption func(*SessionState)

// WithExpiryLeeway 凭证提前视为过期的时间
func WithExpiryLeeway(leeway time.Duration) SessionOption {
	return func(s *SessionState) {
		if leeway > 0 {
			s.leeway = leeway
		}
	}
}

// WithClock 替换时间源（测试用）
func WithClock(now func() time.Time) SessionOption {
	return func(s *SessionState) {
		if now != nil {
			s.now = now
		}
	}
}

// LoginOption 登录选项
type LoginOption func(*loginParams)

type loginParams struct {
	expiresAt time.Time
}

// WithCredentialExpiry 远端返回的凭证过期时间，JWT 自带 exp 时以 exp 为准
func WithCredentialExpiry(expiresAt time.Time) LoginOption {
	return func(p *loginParams) {
		p.expiresAt = expiresAt
	}
}

// NewSessionState 创建会话状态容器
func NewSessionState(s store.Store, cart *CartState, views ViewAuthorizer, opts ...SessionOption) *SessionState {
	state := &SessionState{
		store:      s,
		cart:       cart,
		views:      views,
		now:        time.Now,
		hydratedCh: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(state)
	}
	return state
}

// Hydrate 读取持久化会话，只执行一次；需在购物车水合之后调用
// 损坏、半残或凭证已过期的快照按未登录处理，并与登出一样清空购物车
func (s *SessionState) Hydrate(ctx context.Context) models.SessionIdentity {
	s.hydrateOnce.Do(func() {
		var blob persistedAuth
		found, err := s.store.Load(ctx, constants.StorageKeyAuth, &blob)
		if err != nil {
			logger.Warnw("session_hydrate_failed", "error", err)
		}

		var user *models.SessionUser
		credential := ""
		var expiresAt time.Time
		if found && err == nil && blob.Version == constants.AuthStorageVersion {
			user, credential = blob.User, strings.TrimSpace(blob.Credential)
			if blob.ExpiresAt != nil {
				expiresAt = *blob.ExpiresAt
			}
		}
		dropCart := false
		switch {
		case user == nil || credential == "":
			user, credential, expiresAt = nil, "", time.Time{}
			// 服务端行只能来自已登录会话
			dropCart = s.cart != nil && s.cart.HasServerLines()
		case s.expired(credential, expiresAt, s.now()):
			logger.Infow("session_credential_expired_on_hydrate", "user_id", user.ID)
			user, credential, expiresAt = nil, "", time.Time{}
			if err := s.store.Remove(ctx, constants.StorageKeyAuth); err != nil {
				logger.Warnw("session_persist_failed", "error", err)
			}
			dropCart = true
		}
		if dropCart && s.cart != nil {
			s.cart.Clear(ctx)
		}

		s.mu.Lock()
		s.user = user
		s.credential = credential
		s.expiresAt = expiresAt
		s.hydrated = true
		s.mu.Unlock()
		close(s.hydratedCh)
		logger.Debugw("session_hydrated", "logged_in", credential != "")
	})
	return s.Identity()
}

// HydratedCh 水合完成后关闭
func (s *SessionState) HydratedCh() <-chan struct{} {
	return s.hydratedCh
}

// Hydrated 是否已完成水合
func (s *SessionState) Hydrated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hydrated
}

// Login 写入身份；服务端购物车非空时整体覆盖本地购物车
func (s *SessionState) Login(ctx context.Context, user *models.SessionUser, credential string, serverCart []models.CartLineItem, opts ...LoginOption) error {
	credential = strings.TrimSpace(credential)
	if user == nil || credential == "" {
		return ErrInvalidIdentity
	}
	var params loginParams
	for _, opt := range opts {
		opt(&params)
	}
	copied := *user
	if strings.TrimSpace(copied.Role) == "" {
		copied.Role = constants.RoleCustomer
	}

	s.mu.Lock()
	s.user = &copied
	s.credential = credential
	s.expiresAt = params.expiresAt
	s.persistLocked(ctx)
	s.mu.Unlock()

	if len(serverCart) > 0 && s.cart != nil {
		s.cart.SetCart(ctx, serverCart)
	}
	logger.Infow("session_login", "user_id", copied.ID, "server_cart_lines", len(serverCart))
	return nil
}

// Logout 清除身份并清空购物车
func (s *SessionState) Logout(ctx context.Context) {
	s.mu.Lock()
	var userID uint
	if s.user != nil {
		userID = s.user.ID
	}
	s.user = nil
	s.credential = ""
	s.expiresAt = time.Time{}
	if err := s.store.Remove(ctx, constants.StorageKeyAuth); err != nil {
		logger.Warnw("session_persist_failed", "error", err)
	}
	s.mu.Unlock()

	if s.cart != nil {
		s.cart.Clear(ctx)
	}
	logger.Infow("session_logout", "user_id", userID)
}

// IsLoggedIn 是否持有凭证
func (s *SessionState) IsLoggedIn() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.credential != ""
}

// Credential 当前凭证
func (s *SessionState) Credential() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.credential
}

// Identity 当前身份副本
func (s *SessionState) Identity() models.SessionIdentity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	identity := models.SessionIdentity{
		Credential: s.credential,
		Hydrated:   s.hydrated,
	}
	if s.user != nil {
		copied := *s.user
		identity.User = &copied
	}
	return identity
}

// CredentialExpiresAt 凭证过期时间：优先 JWT exp，其次登录时远端给出的时间
func (s *SessionState) CredentialExpiresAt() (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return credentialExpiry(s.credential, s.expiresAt)
}

// CredentialExpired 凭证是否已过期
func (s *SessionState) CredentialExpired(now time.Time) bool {
	s.mu.RLock()
	credential, expiresAt := s.credential, s.expiresAt
	s.mu.RUnlock()
	if credential == "" {
		return false
	}
	return s.expired(credential, expiresAt, now)
}

// CanView 页面访问判定，水合前一律等待
func (s *SessionState) CanView(view string) string {
	s.mu.RLock()
	hydrated := s.hydrated
	loggedIn := s.credential != ""
	role := constants.RoleGuest
	if s.user != nil && strings.TrimSpace(s.user.Role) != "" {
		role = s.user.Role
	}
	s.mu.RUnlock()

	if !hydrated {
		return constants.GateWait
	}
	allow := true
	if s.views != nil {
		var err error
		allow, err = s.views.CanView(role, view)
		if err != nil {
			logger.Warnw("session_view_check_failed", "view", view, "role", role, "error", err)
			allow = false
		}
	}
	switch {
	case allow:
		return constants.GateAllow
	case !loggedIn:
		return constants.GateLogin
	default:
		return constants.GateDeny
	}
}

func (s *SessionState) expired(credential string, fallback, now time.Time) bool {
	expiresAt, ok := credentialExpiry(credential, fallback)
	if !ok {
		return false
	}
	return !now.Add(s.leeway).Before(expiresAt)
}

// persistLocked 调用方必须持有写锁
func (s *SessionState) persistLocked(ctx context.Context) {
	blob := persistedAuth{
		Version:    constants.AuthStorageVersion,
		User:       s.user,
		Credential: s.credential,
	}
	if !s.expiresAt.IsZero() {
		expiresAt := s.expiresAt
		blob.ExpiresAt = &expiresAt
	}
	if err := s.store.Save(ctx, constants.StorageKeyAuth, blob); err != nil {
		logger.Warnw("session_persist_failed", "error", err)
	}
}

// credentialExpiry 不校验签名，仅读取 exp；签名由远端 API 负责
// 非 JWT 或不带 exp 的凭证使用 fallback，fallback 为零值表示不过期
func credentialExpiry(credential string, fallback time.Time) (time.Time, bool) {
	if credential == "" {
		return time.Time{}, false
	}
	if exp, ok := jwtExpiry(credential); ok {
		return exp, true
	}
	if fallback.IsZero() {
		return time.Time{}, false
	}
	return fallback, true
}

func jwtExpiry(credential string) (time.Time, bool) {
	if strings.Count(credential, ".") != 2 {
		return time.Time{}, false
	}
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(credential, claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dujiao-next/storefront/internal/constants"
	"github.com/dujiao-next/storefront/internal/logger"
	"github.com/dujiao-next/storefront/internal/models"
	"github.com/dujiao-next/storefront/internal/remote"
)

// RemoteAuth 远端登录接口
type RemoteAuth interface {
	Login(ctx context.Context, email, password string, rememberMe bool) (remote.LoginResult, error)
}

// CartGuard 整车互斥，登录/登出改写购物车时与进行中的同步串行
type CartGuard interface {
	RunExclusive(ctx context.Context, fn func()) error
}

// LoginInput 登录参数
type LoginInput struct {
	Email      string
	Password   string
	RememberMe bool
}

// AuthService 登录/登出流程
type AuthService struct {
	session *SessionState
	auth    RemoteAuth
	cart    RemoteCart
	guard   CartGuard
	notices *NoticeService
}

// NewAuthService 创建认证服务
func NewAuthService(session *SessionState, auth RemoteAuth, cart RemoteCart, guard CartGuard, notices *NoticeService) *AuthService {
	return &AuthService{
		session: session,
		auth:    auth,
		cart:    cart,
		guard:   guard,
		notices: notices,
	}
}

// Login 远端登录后拉取服务端购物车并写入会话
// 购物车拉取失败时保留本地购物车，仅提示
func (s *AuthService) Login(ctx context.Context, input LoginInput) (models.SessionIdentity, error) {
	email := strings.TrimSpace(input.Email)
	if email == "" || input.Password == "" {
		return s.session.Identity(), ErrInvalidIdentity
	}
	result, err := s.auth.Login(ctx, email, input.Password, input.RememberMe)
	if err != nil {
		var apiErr *remote.APIError
		switch {
		case errors.Is(err, remote.ErrUnavailable):
			return s.session.Identity(), fmt.Errorf("%w: %w", ErrRemoteUnavailable, err)
		case errors.As(err, &apiErr):
			return s.session.Identity(), fmt.Errorf("%w: %s", ErrAuthFailed, apiErr.Message)
		default:
			return s.session.Identity(), fmt.Errorf("%w: %w", ErrAuthFailed, err)
		}
	}

	var serverCart []models.CartLineItem
	if s.cart != nil {
		serverCart, err = s.cart.List(remote.WithCredential(ctx, result.Credential))
		if err != nil {
			logger.Warnw("session_login_cart_fetch_failed", "user_id", userID(result.User), "error", err)
			if s.notices != nil {
				s.notices.Push(constants.NoticeLevelError, constants.NoticeCartSyncFailed, "failed to load server cart")
			}
			serverCart = nil
		}
	}

	var loginErr error
	err = s.exclusive(ctx, func() {
		loginErr = s.session.Login(ctx, result.User, result.Credential, serverCart,
			WithCredentialExpiry(result.ExpiresAt),
		)
	})
	if err != nil {
		return s.session.Identity(), err
	}
	if loginErr != nil {
		return s.session.Identity(), loginErr
	}
	return s.session.Identity(), nil
}

// Logout 登出，等待进行中的整车同步结束后再清空
func (s *AuthService) Logout(ctx context.Context) models.SessionIdentity {
	s.logout(ctx)
	return s.session.Identity()
}

// ExpireIfNeeded 凭证过期时自动登出，返回是否执行了登出
func (s *AuthService) ExpireIfNeeded(ctx context.Context) bool {
	if !s.session.IsLoggedIn() || !s.session.CredentialExpired(s.session.now()) {
		return false
	}
	s.logout(ctx)
	if s.notices != nil {
		s.notices.Push(constants.NoticeLevelInfo, constants.NoticeSessionExpired, "session expired, please log in again")
	}
	logger.Infow("session_expired_logout")
	return true
}

// logout 不随请求取消，否则本地会残留服务端购物车
func (s *AuthService) logout(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)
	_ = s.exclusive(ctx, func() {
		s.session.Logout(ctx)
	})
}

func (s *AuthService) exclusive(ctx context.Context, fn func()) error {
	if s.guard == nil {
		fn()
		return nil
	}
	return s.guard.RunExclusive(ctx, fn)
}

func userID(user *models.SessionUser) uint {
	if user == nil {
		return 0
	}
	return user.ID
}

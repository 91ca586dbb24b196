package remote

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/dujiao-next/storefront/internal/constants"
	"github.com/dujiao-next/storefront/internal/models"
)

// AuthClient 远端用户认证
type AuthClient struct {
	client *Client
}

// NewAuthClient 创建认证客户端
func NewAuthClient(client *Client) *AuthClient {
	return &AuthClient{client: client}
}

// LoginResult 登录结果
type LoginResult struct {
	User       *models.SessionUser
	Credential string
	ExpiresAt  time.Time
}

type loginRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	RememberMe bool   `json:"remember_me"`
}

type remoteUser struct {
	ID              uint       `json:"id"`
	Email           string     `json:"email"`
	Nickname        string     `json:"nickname"`
	EmailVerifiedAt *time.Time `json:"email_verified_at"`
}

type loginResponse struct {
	User      remoteUser `json:"user"`
	Token     string     `json:"token"`
	ExpiresAt string     `json:"expires_at"`
}

// Login 邮箱密码登录
func (c *AuthClient) Login(ctx context.Context, email, password string, rememberMe bool) (LoginResult, error) {
	req := loginRequest{
		Email:      strings.TrimSpace(email),
		Password:   password,
		RememberMe: rememberMe,
	}
	var resp loginResponse
	if err := c.client.Do(ctx, http.MethodPost, "/auth/login", req, &resp); err != nil {
		return LoginResult{}, err
	}
	result := LoginResult{
		User:       resp.User.toSessionUser(),
		Credential: resp.Token,
	}
	if resp.ExpiresAt != "" {
		if expiresAt, err := time.Parse(time.RFC3339, resp.ExpiresAt); err == nil {
			result.ExpiresAt = expiresAt
		}
	}
	return result, nil
}

func (u remoteUser) toSessionUser() *models.SessionUser {
	return &models.SessionUser{
		ID:          u.ID,
		DisplayName: u.Nickname,
		Email:       u.Email,
		Role:        constants.RoleCustomer,
		Verified:    u.EmailVerifiedAt != nil,
	}
}

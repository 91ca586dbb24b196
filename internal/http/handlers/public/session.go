package public

import (
	"strings"
	"time"

	"github.com/dujiao-next/storefront/internal/http/response"
	"github.com/dujiao-next/storefront/internal/models"
	"github.com/dujiao-next/storefront/internal/service"

	"github.com/gin-gonic/gin"
)

// LoginRequest 登录请求
type LoginRequest struct {
	Email      string `json:"email" binding:"required"`
	Password   string `json:"password" binding:"required"`
	RememberMe bool   `json:"remember_me"`
}

// SessionResponse 会话响应，不返回凭证
type SessionResponse struct {
	Hydrated  bool                `json:"hydrated"`
	LoggedIn  bool                `json:"logged_in"`
	User      *models.SessionUser `json:"user"`
	ExpiresAt *time.Time          `json:"expires_at,omitempty"`
}

func (h *Handler) sessionResponse(identity models.SessionIdentity) SessionResponse {
	resp := SessionResponse{
		Hydrated: identity.Hydrated,
		LoggedIn: identity.LoggedIn(),
		User:     identity.User,
	}
	if expiresAt, ok := h.SessionState.CredentialExpiresAt(); ok && resp.LoggedIn {
		resp.ExpiresAt = &expiresAt
	}
	return resp
}

// Login 登录并同步服务端购物车
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.login_input_invalid", nil)
		return
	}
	identity, err := h.AuthService.Login(c.Request.Context(), service.LoginInput{
		Email:      req.Email,
		Password:   req.Password,
		RememberMe: req.RememberMe,
	})
	if err != nil {
		respondWithMappedError(c, err, sessionErrorRules, nil)
		return
	}
	response.Success(c, gin.H{
		"session": h.sessionResponse(identity),
		"cart":    newCartResponse(h.CartState.Snapshot()),
	})
}

// Logout 登出并清空购物车
func (h *Handler) Logout(c *gin.Context) {
	identity := h.AuthService.Logout(c.Request.Context())
	response.Success(c, gin.H{
		"session": h.sessionResponse(identity),
		"cart":    newCartResponse(h.CartState.Snapshot()),
	})
}

// GetSession 当前会话
func (h *Handler) GetSession(c *gin.Context) {
	response.Success(c, h.sessionResponse(h.SessionState.Identity()))
}

// GetGate 页面访问判定：wait / allow / login / deny
func (h *Handler) GetGate(c *gin.Context) {
	view := strings.TrimSpace(c.Query("view"))
	if view == "" {
		respondError(c, response.CodeBadRequest, "error.view_required", nil)
		return
	}
	response.Success(c, gin.H{
		"view":     view,
		"decision": h.SessionState.CanView(view),
	})
}

package public

import (
	"github.com/dujiao-next/storefront/internal/http/response"

	"github.com/gin-gonic/gin"
)

// GetState 一次性返回会话与购物车
func (h *Handler) GetState(c *gin.Context) {
	response.Success(c, gin.H{
		"hydrated": h.SessionState.Hydrated(),
		"session":  h.sessionResponse(h.SessionState.Identity()),
		"cart":     newCartResponse(h.CartState.Snapshot()),
		"notices":  h.NoticeService.Pending(),
	})
}

// DrainNotices 取出待展示提示
func (h *Handler) DrainNotices(c *gin.Context) {
	response.Success(c, gin.H{"notices": h.NoticeService.Drain()})
}

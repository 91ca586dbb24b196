package shared

import (
	"github.com/dujiao-next/storefront/internal/http/response"
	"github.com/dujiao-next/storefront/internal/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequestLog 提供携带 request_id 的日志实例。
func RequestLog(c *gin.Context) *zap.SugaredLogger {
	if c == nil {
		return logger.S()
	}
	if requestID, ok := c.Get("request_id"); ok {
		if id, ok := requestID.(string); ok && id != "" {
			return logger.SW("request_id", id)
		}
	}
	return logger.S()
}

// RespondError 按消息键返回错误响应，并在有原始错误时记录日志。
func RespondError(c *gin.Context, code int, key string, err error) {
	RespondErrorWithData(c, code, key, err, nil)
}

// RespondErrorWithData 错误响应附带数据（例如回滚后的购物车）。
func RespondErrorWithData(c *gin.Context, code int, key string, err error, data gin.H) {
	message := Message(key)
	if err != nil {
		log := RequestLog(c).With("code", code, "message_key", key)
		if code >= response.CodeInternal {
			log.Errorw("handler_error", "error", err)
		} else {
			log.Warnw("handler_error", "error", err)
		}
	}
	response.Error(c, code, message, data)
}

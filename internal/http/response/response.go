package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Envelope 统一响应包 {status_code,msg,data}
// 本地接口输出与主站 API 解析共用同一结构
type Envelope[T any] struct {
	StatusCode int    `json:"status_code"` // 业务状态码，0 为成功
	Msg        string `json:"msg"`         // 提示消息
	Data       T      `json:"data"`        // 数据内容
}

// OK 业务是否成功
func (e Envelope[T]) OK() bool {
	return e.StatusCode == CodeOK
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Envelope[interface{}]{
		StatusCode: CodeOK,
		Msg:        "success",
		Data:       data,
	})
}

// Error 错误响应，HTTP 状态恒为 200，data 中补充 request_id
func Error(c *gin.Context, statusCode int, msg string, data gin.H) {
	c.JSON(http.StatusOK, Envelope[gin.H]{
		StatusCode: statusCode,
		Msg:        msg,
		Data:       withRequestID(c, data),
	})
}

func withRequestID(c *gin.Context, data gin.H) gin.H {
	requestID := ""
	if c != nil {
		requestID = c.GetString("request_id")
	}
	if requestID == "" {
		return data
	}
	if data == nil {
		return gin.H{"request_id": requestID}
	}
	if _, ok := data["request_id"]; !ok {
		data["request_id"] = requestID
	}
	return data
}

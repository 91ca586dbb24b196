package public

import (
	"context"
	"errors"

	handlershared "github.com/dujiao-next/storefront/internal/http/handlers/shared"
	"github.com/dujiao-next/storefront/internal/http/response"
	"github.com/dujiao-next/storefront/internal/service"

	"github.com/gin-gonic/gin"
)

// mappedHandlerError 定义业务错误到接口错误响应的映射关系。
type mappedHandlerError struct {
	target error
	code   int
	key    string
}

// respondWithMappedError 按规则映射错误；data 非空时随错误一并返回（如回滚后的购物车）
func respondWithMappedError(c *gin.Context, err error, rules []mappedHandlerError, data gin.H) {
	for _, rule := range rules {
		if errors.Is(err, rule.target) {
			var cause error
			if rule.code >= response.CodeInternal {
				cause = err
			}
			handlershared.RespondErrorWithData(c, rule.code, rule.key, cause, data)
			return
		}
	}
	handlershared.RespondErrorWithData(c, response.CodeInternal, "error.internal", err, data)
}

var cartErrorRules = []mappedHandlerError{
	{target: service.ErrInvalidCartItem, code: response.CodeBadRequest, key: "error.cart_item_invalid"},
	{target: service.ErrCartLineNotFound, code: response.CodeNotFound, key: "error.cart_line_not_found"},
	{target: service.ErrRemoteMutation, code: response.CodeBadGateway, key: "error.cart_sync_failed"},
	{target: context.Canceled, code: response.CodeBadRequest, key: "error.request_canceled"},
	{target: context.DeadlineExceeded, code: response.CodeBadGateway, key: "error.remote_unavailable"},
}

var sessionErrorRules = []mappedHandlerError{
	{target: service.ErrInvalidIdentity, code: response.CodeBadRequest, key: "error.login_input_invalid"},
	{target: service.ErrAuthFailed, code: response.CodeUnauthorized, key: "error.login_invalid"},
	{target: service.ErrRemoteUnavailable, code: response.CodeBadGateway, key: "error.remote_unavailable"},
	{target: context.Canceled, code: response.CodeBadRequest, key: "error.request_canceled"},
}

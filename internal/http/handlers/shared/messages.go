package shared

var messages = map[string]string{
	"error.bad_request":         "invalid request",
	"error.request_canceled":    "request canceled",
	"error.cart_item_invalid":   "invalid cart item",
	"error.cart_line_not_found": "cart line not found",
	"error.cart_sync_failed":    "cart sync with server failed",
	"error.login_input_invalid": "email and password are required",
	"error.login_invalid":       "login failed",
	"error.remote_unavailable":  "store server unavailable",
	"error.view_required":       "view is required",
	"error.rate_limited":        "too many attempts",
	"error.internal":            "internal error",
}

// Message 消息键转提示文本，未登记的键原样返回
func Message(key string) string {
	if msg, ok := messages[key]; ok {
		return msg
	}
	return key
}

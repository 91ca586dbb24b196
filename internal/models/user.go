package models

// SessionUser 当前登录用户（由远端认证接口返回）
type SessionUser struct {
	ID          uint   `json:"id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
	Role        string `json:"role"`
	Verified    bool   `json:"verified"`
}

// SessionIdentity 会话身份
// User 与 Credential 必须同时存在或同时为空
type SessionIdentity struct {
	User       *SessionUser `json:"user"`
	Credential string       `json:"-"`
	Hydrated   bool         `json:"hydrated"`
}

// LoggedIn 是否已登录
func (s SessionIdentity) LoggedIn() bool {
	return s.Credential != ""
}

package constants

// 持久化存储键名
const (
	StorageKeyCart = "cart-storage"
	StorageKeyAuth = "auth-storage"
)

// 持久化快照版本（版本不一致视为无历史状态）
const (
	CartStorageVersion = 1
	AuthStorageVersion = 1
)

// MaxCartLineQuantity 单个购物车行的数量上限
const MaxCartLineQuantity = 9999

// 存储驱动常量
const (
	StoreDriverFile     = "file"
	StoreDriverDatabase = "database"
	StoreDriverRedis    = "redis"
	StoreDriverMemory   = "memory"
)

// 用户角色常量
const (
	RoleGuest    = "guest"
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

// 页面访问判定结果
const (
	GateWait  = "wait"
	GateAllow = "allow"
	GateLogin = "login"
	GateDeny  = "deny"
)

// 提示级别常量
const (
	NoticeLevelInfo    = "info"
	NoticeLevelSuccess = "success"
	NoticeLevelError   = "error"
)

// 提示消息 key
const (
	NoticeCartAddFailed    = "cart.add_failed"
	NoticeCartUpdateFailed = "cart.update_failed"
	NoticeCartRemoveFailed = "cart.remove_failed"
	NoticeCartClearFailed  = "cart.clear_failed"
	NoticeCartSyncFailed   = "cart.sync_failed"
	NoticeSessionExpired   = "session.expired"
)

// 服务运行模式
const (
	ServerModeDebug   = "debug"
	ServerModeRelease = "release"
)

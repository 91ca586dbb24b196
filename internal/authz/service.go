package authz

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/dujiao-next/storefront/internal/constants"

	"github.com/casbin/casbin/v3"
	"github.com/casbin/casbin/v3/model"
	"github.com/casbin/casbin/v3/util"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"gorm.io/gorm"
)

const (
	casbinTableName = "storefront_view_rule"
	rolePrefix      = "role:"
	// roleAnchor 让没有任何页面的角色也能被列出
	roleAnchor = "role:__anchor__"
)

// 页面规则只有 角色 + 路径 两列，路径支持 :param 与 * 通配
const viewModel = `
[request_definition]
r = sub, obj

[policy_definition]
p = sub, obj

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = (g(r.sub, p.sub) || r.sub == p.sub) && keyMatch2(r.obj, p.obj)
`

// ErrUnavailable 授权服务未初始化
var ErrUnavailable = errors.New("authz service unavailable")

// RoleViews 角色及其直连页面
type RoleViews struct {
	Role     string   `json:"role"`
	Inherits []string `json:"inherits"`
	Views    []string `json:"views"`
}

// Service 页面访问矩阵
// 角色继承链：guest ⊂ customer ⊂ admin
type Service struct {
	enforcer *casbin.SyncedEnforcer
}

// NewService 创建授权服务，策略保存在本地数据库
func NewService(db *gorm.DB) (*Service, error) {
	if db == nil {
		return nil, errors.New("authz db is nil")
	}
	adapter, err := gormadapter.NewAdapterByDBUseTableName(db, "", casbinTableName)
	if err != nil {
		return nil, fmt.Errorf("create authz adapter failed: %w", err)
	}
	m, err := model.NewModelFromString(viewModel)
	if err != nil {
		return nil, fmt.Errorf("load authz model failed: %w", err)
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, fmt.Errorf("init authz enforcer failed: %w", err)
	}
	enforcer.AddFunction("keyMatch2", util.KeyMatch2Func)
	enforcer.EnableAutoSave(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, fmt.Errorf("load authz policy failed: %w", err)
	}
	return &Service{enforcer: enforcer}, nil
}

// CanView 判断角色能否访问页面；空角色按游客处理
func (s *Service) CanView(role, view string) (bool, error) {
	if !s.ready() {
		return false, ErrUnavailable
	}
	if strings.TrimSpace(role) == "" {
		role = constants.RoleGuest
	}
	subject, err := roleSubject(role)
	if err != nil {
		return false, err
	}
	return s.enforcer.Enforce(subject, NormalizeView(view))
}

// Grant 为角色开放页面，角色不存在时创建
func (s *Service) Grant(role, view string) error {
	subject, err := s.ensureRole(role)
	if err != nil {
		return err
	}
	if _, err := s.enforcer.AddPolicy(subject, NormalizeView(view)); err != nil {
		return fmt.Errorf("grant view failed: %w", err)
	}
	return nil
}

// Revoke 收回角色的直连页面，继承得到的页面不受影响
func (s *Service) Revoke(role, view string) error {
	if !s.ready() {
		return ErrUnavailable
	}
	subject, err := roleSubject(role)
	if err != nil {
		return err
	}
	if _, err := s.enforcer.RemovePolicy(subject, NormalizeView(view)); err != nil {
		return fmt.Errorf("revoke view failed: %w", err)
	}
	return nil
}

// Inherit 设置角色继承，两端角色都会被创建
func (s *Service) Inherit(role, parent string) error {
	subject, err := s.ensureRole(role)
	if err != nil {
		return err
	}
	parentSubject, err := s.ensureRole(parent)
	if err != nil {
		return err
	}
	if _, err := s.enforcer.AddNamedGroupingPolicy("g", subject, parentSubject); err != nil {
		return fmt.Errorf("link role inheritance failed: %w", err)
	}
	return nil
}

// Matrix 列出全部角色、继承关系与直连页面，按角色名排序
func (s *Service) Matrix() ([]RoleViews, error) {
	if !s.ready() {
		return nil, ErrUnavailable
	}
	links, err := s.enforcer.GetFilteredNamedGroupingPolicy("g", 0)
	if err != nil {
		return nil, fmt.Errorf("list roles failed: %w", err)
	}

	byRole := make(map[string]*RoleViews)
	entry := func(subject string) *RoleViews {
		name := strings.TrimPrefix(subject, rolePrefix)
		if rv, ok := byRole[name]; ok {
			return rv
		}
		rv := &RoleViews{Role: name, Inherits: []string{}, Views: []string{}}
		byRole[name] = rv
		return rv
	}
	for _, link := range links {
		if len(link) < 2 || link[0] == roleAnchor {
			continue
		}
		rv := entry(link[0])
		if link[1] != roleAnchor {
			rv.Inherits = append(rv.Inherits, strings.TrimPrefix(link[1], rolePrefix))
		}
	}

	matrix := make([]RoleViews, 0, len(byRole))
	for name, rv := range byRole {
		rules, err := s.enforcer.GetFilteredPolicy(0, rolePrefix+name)
		if err != nil {
			return nil, fmt.Errorf("list role views failed: %w", err)
		}
		for _, rule := range rules {
			if len(rule) >= 2 {
				rv.Views = append(rv.Views, rule[1])
			}
		}
		sort.Strings(rv.Inherits)
		sort.Strings(rv.Views)
		matrix = append(matrix, *rv)
	}
	sort.Slice(matrix, func(i, j int) bool { return matrix[i].Role < matrix[j].Role })
	return matrix, nil
}

func (s *Service) ensureRole(role string) (string, error) {
	if !s.ready() {
		return "", ErrUnavailable
	}
	subject, err := roleSubject(role)
	if err != nil {
		return "", err
	}
	exists, err := s.enforcer.HasNamedGroupingPolicy("g", subject, roleAnchor)
	if err != nil {
		return "", fmt.Errorf("check role failed: %w", err)
	}
	if !exists {
		if _, err := s.enforcer.AddNamedGroupingPolicy("g", subject, roleAnchor); err != nil {
			return "", fmt.Errorf("create role failed: %w", err)
		}
	}
	return subject, nil
}

func (s *Service) ready() bool {
	return s != nil && s.enforcer != nil
}

// roleSubject 角色名转为策略主体，大小写与空格归一
func roleSubject(role string) (string, error) {
	name := strings.ToLower(strings.TrimSpace(role))
	name = strings.TrimPrefix(name, rolePrefix)
	name = strings.ReplaceAll(name, " ", "_")
	if name == "" {
		return "", errors.New("role is required")
	}
	subject := rolePrefix + name
	if subject == roleAnchor {
		return "", errors.New("reserved role is not allowed")
	}
	return subject, nil
}

// NormalizeView 统一页面路径（去掉查询串、片段与末尾斜杠）
func NormalizeView(view string) string {
	path := strings.TrimSpace(view)
	if idx := strings.IndexAny(path, "?#"); idx >= 0 {
		path = path[:idx]
	}
	path = "/" + strings.Trim(path, "/")
	return path
}

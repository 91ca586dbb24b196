package authz

import (
	"fmt"

	"github.com/dujiao-next/storefront/internal/constants"
)

// RoleSeed 预置角色定义
type RoleSeed struct {
	Role     string
	Inherits []string
	Views    []string
}

// BuiltinRoleSeeds 预置页面访问矩阵
func BuiltinRoleSeeds() []RoleSeed {
	return []RoleSeed{
		{
			Role: constants.RoleGuest,
			Views: []string{
				"/",
				"/products",
				"/products/:slug",
				"/categories/:slug",
				"/posts/:slug",
				"/cart",
				"/login",
				"/register",
				"/forgot-password",
				"/guest/orders/:order_no",
			},
		},
		{
			Role:     constants.RoleCustomer,
			Inherits: []string{constants.RoleGuest},
			Views: []string{
				"/checkout",
				"/payment/:order_no",
				"/account",
				"/account/*",
				"/orders",
				"/orders/:order_no",
				"/wishlist",
			},
		},
		{
			Role:     constants.RoleAdmin,
			Inherits: []string{constants.RoleCustomer},
			Views: []string{
				"/admin",
				"/admin/*",
			},
		},
	}
}

// BootstrapBuiltinRoles 初始化预置角色与默认页面，重复执行不会产生重复规则
func (s *Service) BootstrapBuiltinRoles() error {
	if !s.ready() {
		return ErrUnavailable
	}
	for _, seed := range BuiltinRoleSeeds() {
		if _, err := s.ensureRole(seed.Role); err != nil {
			return err
		}
		for _, parent := range seed.Inherits {
			if err := s.Inherit(seed.Role, parent); err != nil {
				return err
			}
		}
		for _, view := range seed.Views {
			if err := s.Grant(seed.Role, view); err != nil {
				return fmt.Errorf("add builtin view failed: %w", err)
			}
		}
	}
	return nil
}

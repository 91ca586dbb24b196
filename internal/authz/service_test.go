package authz

import (
	"fmt"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupAuthzServiceTest(t *testing.T) *Service {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	svc, err := NewService(db)
	if err != nil {
		t.Fatalf("new authz service failed: %v", err)
	}
	if err := svc.BootstrapBuiltinRoles(); err != nil {
		t.Fatalf("bootstrap builtin roles failed: %v", err)
	}
	return svc
}

func TestCanViewBuiltinMatrix(t *testing.T) {
	svc := setupAuthzServiceTest(t)

	cases := []struct {
		role  string
		view  string
		allow bool
	}{
		{"guest", "/products/mechanical-keyboard", true},
		{"", "/cart", true},
		{"guest", "/checkout", false},
		{"guest", "/account/orders", false},
		{"customer", "/cart", true},
		{"customer", "/checkout", true},
		{"customer", "/account/orders?page=2", true},
		{"customer", "/admin/orders", false},
		{"admin", "/admin/orders", true},
		{"admin", "/account", true},
		{"admin", "/products", true},
		{"Customer", "/orders/DJ2024001/", true},
	}
	for _, tc := range cases {
		allow, err := svc.CanView(tc.role, tc.view)
		if err != nil {
			t.Fatalf("can view %s %s failed: %v", tc.role, tc.view, err)
		}
		if allow != tc.allow {
			t.Fatalf("can view role=%q view=%s want %v got %v", tc.role, tc.view, tc.allow, allow)
		}
	}
}

func TestBootstrapIsIdempotent(t *testing.T) {
	svc := setupAuthzServiceTest(t)
	if err := svc.BootstrapBuiltinRoles(); err != nil {
		t.Fatalf("second bootstrap failed: %v", err)
	}
	matrix, err := svc.Matrix()
	if err != nil {
		t.Fatalf("matrix failed: %v", err)
	}
	if len(matrix) != 3 {
		t.Fatalf("expected 3 roles, got %+v", matrix)
	}
	admin, customer, guest := matrix[0], matrix[1], matrix[2]
	if admin.Role != "admin" || customer.Role != "customer" || guest.Role != "guest" {
		t.Fatalf("unexpected role order: %+v", matrix)
	}
	if len(admin.Views) != 2 {
		t.Fatalf("admin should keep 2 direct views, got %v", admin.Views)
	}
	if strings.Join(customer.Inherits, ",") != "guest" || len(guest.Inherits) != 0 {
		t.Fatalf("unexpected inheritance: customer=%v guest=%v", customer.Inherits, guest.Inherits)
	}
}

func TestGrantAndRevokeView(t *testing.T) {
	svc := setupAuthzServiceTest(t)
	if err := svc.Grant("Support", "/admin/orders/:id/"); err != nil {
		t.Fatalf("grant failed: %v", err)
	}
	allow, err := svc.CanView("support", "/admin/orders/42")
	if err != nil || !allow {
		t.Fatalf("support should view order detail, allow=%v err=%v", allow, err)
	}
	if err := svc.Revoke("support", "/admin/orders/:id"); err != nil {
		t.Fatalf("revoke failed: %v", err)
	}
	allow, err = svc.CanView("support", "/admin/orders/42")
	if err != nil || allow {
		t.Fatalf("support should lose access, allow=%v err=%v", allow, err)
	}

	matrix, err := svc.Matrix()
	if err != nil {
		t.Fatalf("matrix failed: %v", err)
	}
	found := false
	for _, rv := range matrix {
		if rv.Role == "support" {
			found = len(rv.Views) == 0
		}
	}
	if !found {
		t.Fatalf("support should remain listed without views: %+v", matrix)
	}
}

func TestRevokeKeepsInheritedViews(t *testing.T) {
	svc := setupAuthzServiceTest(t)
	if err := svc.Revoke("customer", "/cart"); err != nil {
		t.Fatalf("revoke failed: %v", err)
	}
	allow, err := svc.CanView("customer", "/cart")
	if err != nil || !allow {
		t.Fatalf("customer inherits /cart from guest, allow=%v err=%v", allow, err)
	}
}

func TestReservedAndEmptyRoles(t *testing.T) {
	svc := setupAuthzServiceTest(t)
	if err := svc.Grant("__anchor__", "/"); err == nil {
		t.Fatalf("reserved role should be rejected")
	}
	if err := svc.Grant("  ", "/"); err == nil {
		t.Fatalf("empty role should be rejected")
	}
	var nilSvc *Service
	if _, err := nilSvc.CanView("guest", "/"); err != ErrUnavailable {
		t.Fatalf("nil service should report unavailable, got %v", err)
	}
}

func TestNormalizeView(t *testing.T) {
	cases := map[string]string{
		"":                "/",
		"account":         "/account",
		"/account/":       "/account",
		"/cart?coupon=x":  "/cart",
		"/products/a#tab": "/products/a",
		"/":               "/",
	}
	for in, want := range cases {
		if got := NormalizeView(in); got != want {
			t.Fatalf("normalize %q want %q got %q", in, want, got)
		}
	}
}

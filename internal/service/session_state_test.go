package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dujiao-next/storefront/internal/constants"
	"github.com/dujiao-next/storefront/internal/models"
	"github.com/dujiao-next/storefront/internal/store"

	"github.com/golang-jwt/jwt/v5"
)

type fakeViewAuthorizer struct {
	allowed map[string]map[string]bool
	err     error
}

func (f fakeViewAuthorizer) CanView(role, view string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.allowed[role][view], nil
}

func newTestViews() fakeViewAuthorizer {
	return fakeViewAuthorizer{allowed: map[string]map[string]bool{
		constants.RoleGuest:    {"/cart": true},
		constants.RoleCustomer: {"/cart": true, "/checkout": true},
	}}
}

func signTestCredential(t *testing.T, expiresAt time.Time) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   "42",
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign credential failed: %v", err)
	}
	return token
}

func testUser() *models.SessionUser {
	return &models.SessionUser{ID: 42, DisplayName: "Ada", Email: "ada@example.com", Role: constants.RoleCustomer}
}

func TestSessionLoginRejectsHalfIdentity(t *testing.T) {
	ctx := context.Background()
	session := NewSessionState(store.NewMemoryStore(), nil, newTestViews())
	session.Hydrate(ctx)

	if err := session.Login(ctx, nil, "token", nil); !errors.Is(err, ErrInvalidIdentity) {
		t.Fatalf("expected ErrInvalidIdentity for nil user, got %v", err)
	}
	if err := session.Login(ctx, testUser(), "  ", nil); !errors.Is(err, ErrInvalidIdentity) {
		t.Fatalf("expected ErrInvalidIdentity for blank credential, got %v", err)
	}
	if session.IsLoggedIn() {
		t.Fatalf("rejected login must not change state")
	}
}

func TestSessionLoginReplacesGuestCartWithServerCart(t *testing.T) {
	ctx := context.Background()
	backing := store.NewMemoryStore()
	cart := NewCartState(backing)
	session := NewSessionState(backing, cart, newTestViews())
	session.Hydrate(ctx)

	cart.AddItem(ctx, newTestLine(1, 100, 2))
	serverLine := newTestLine(2, 500, 1)
	serverLine.Ref = models.Confirmed{ServerLineID: "srv-b"}

	if err := session.Login(ctx, testUser(), "opaque-token", []models.CartLineItem{serverLine}); err != nil {
		t.Fatalf("login failed: %v", err)
	}
	items := cart.Items()
	if len(items) != 1 || items[0].ProductID != 2 {
		t.Fatalf("expected only server line, got %+v", items)
	}
	if !session.IsLoggedIn() || session.Credential() != "opaque-token" {
		t.Fatalf("expected logged in session")
	}
}

func TestSessionLoginWithEmptyServerCartKeepsGuestCart(t *testing.T) {
	ctx := context.Background()
	backing := store.NewMemoryStore()
	cart := NewCartState(backing)
	session := NewSessionState(backing, cart, newTestViews())
	session.Hydrate(ctx)

	cart.AddItem(ctx, newTestLine(1, 100, 2))
	if err := session.Login(ctx, testUser(), "opaque-token", nil); err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if len(cart.Items()) != 1 {
		t.Fatalf("expected guest cart to survive empty server cart, got %+v", cart.Items())
	}
}

func TestSessionLogoutClearsIdentityAndCart(t *testing.T) {
	ctx := context.Background()
	backing := store.NewMemoryStore()
	cart := NewCartState(backing)
	session := NewSessionState(backing, cart, newTestViews())
	session.Hydrate(ctx)

	if err := session.Login(ctx, testUser(), "opaque-token", []models.CartLineItem{newTestLine(3, 100, 1)}); err != nil {
		t.Fatalf("login failed: %v", err)
	}
	session.Logout(ctx)

	if session.IsLoggedIn() || session.Identity().User != nil {
		t.Fatalf("expected identity cleared")
	}
	if len(cart.Items()) != 0 {
		t.Fatalf("expected empty cart after logout")
	}

	reloaded := NewSessionState(backing, NewCartState(backing), newTestViews())
	if identity := reloaded.Hydrate(ctx); identity.LoggedIn() {
		t.Fatalf("logout must persist")
	}
}

func TestSessionHydratePersistsAcrossRestart(t *testing.T) {
	ctx := context.Background()
	backing := store.NewMemoryStore()
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	credential := signTestCredential(t, now.Add(time.Hour))

	first := NewSessionState(backing, nil, newTestViews(), WithClock(func() time.Time { return now }))
	first.Hydrate(ctx)
	if err := first.Login(ctx, testUser(), credential, nil); err != nil {
		t.Fatalf("login failed: %v", err)
	}

	second := NewSessionState(backing, nil, newTestViews(), WithClock(func() time.Time { return now }))
	select {
	case <-second.HydratedCh():
		t.Fatalf("hydrated channel must stay open before Hydrate")
	default:
	}
	identity := second.Hydrate(ctx)
	if !identity.LoggedIn() || identity.User == nil || identity.User.ID != 42 {
		t.Fatalf("expected restored identity, got %+v", identity)
	}
	select {
	case <-second.HydratedCh():
	default:
		t.Fatalf("hydrated channel must be closed after Hydrate")
	}
	expiresAt, ok := second.CredentialExpiresAt()
	if !ok || !expiresAt.Equal(now.Add(time.Hour)) {
		t.Fatalf("expected expiry %v, got %v (%v)", now.Add(time.Hour), expiresAt, ok)
	}
}

func TestSessionHydrateDropsExpiredCredential(t *testing.T) {
	ctx := context.Background()
	backing := store.NewMemoryStore()
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	blob := persistedAuth{
		Version:    constants.AuthStorageVersion,
		User:       testUser(),
		Credential: signTestCredential(t, now.Add(-time.Minute)),
	}
	if err := backing.Save(ctx, constants.StorageKeyAuth, blob); err != nil {
		t.Fatalf("seed auth blob failed: %v", err)
	}

	session := NewSessionState(backing, nil, newTestViews(), WithClock(func() time.Time { return now }))
	if identity := session.Hydrate(ctx); identity.LoggedIn() {
		t.Fatalf("expired credential must not hydrate")
	}
	var stored persistedAuth
	if found, _ := backing.Load(ctx, constants.StorageKeyAuth, &stored); found {
		t.Fatalf("expired auth blob should be removed")
	}
}

func TestSessionHydrateDropsHalfIdentity(t *testing.T) {
	ctx := context.Background()
	backing := store.NewMemoryStore()
	blob := persistedAuth{Version: constants.AuthStorageVersion, User: testUser()}
	if err := backing.Save(ctx, constants.StorageKeyAuth, blob); err != nil {
		t.Fatalf("seed auth blob failed: %v", err)
	}

	session := NewSessionState(backing, nil, newTestViews())
	identity := session.Hydrate(ctx)
	if identity.LoggedIn() || identity.User != nil {
		t.Fatalf("user without credential must hydrate as guest, got %+v", identity)
	}
}

func TestSessionCredentialExpiredWithLeeway(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	session := NewSessionState(store.NewMemoryStore(), nil, newTestViews(), WithExpiryLeeway(time.Minute))
	session.Hydrate(ctx)
	if err := session.Login(ctx, testUser(), signTestCredential(t, now.Add(30*time.Second)), nil); err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if !session.CredentialExpired(now) {
		t.Fatalf("credential inside leeway should count as expired")
	}
	if session.CredentialExpired(now.Add(-time.Hour)) {
		t.Fatalf("credential should be valid an hour earlier")
	}
}

func TestSessionOpaqueCredentialNeverExpires(t *testing.T) {
	ctx := context.Background()
	session := NewSessionState(store.NewMemoryStore(), nil, newTestViews())
	session.Hydrate(ctx)
	if err := session.Login(ctx, testUser(), "opaque-token", nil); err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if session.CredentialExpired(time.Now().Add(24 * 365 * time.Hour)) {
		t.Fatalf("opaque credential has no expiry")
	}
	if _, ok := session.CredentialExpiresAt(); ok {
		t.Fatalf("opaque credential should report no expiry")
	}
}

func TestSessionCanViewGate(t *testing.T) {
	ctx := context.Background()
	session := NewSessionState(store.NewMemoryStore(), nil, newTestViews())

	if got := session.CanView("/cart"); got != constants.GateWait {
		t.Fatalf("expected wait before hydrate, got %s", got)
	}
	session.Hydrate(ctx)

	if got := session.CanView("/cart"); got != constants.GateAllow {
		t.Fatalf("guest should see cart, got %s", got)
	}
	if got := session.CanView("/checkout"); got != constants.GateLogin {
		t.Fatalf("guest should be sent to login, got %s", got)
	}
	if err := session.Login(ctx, testUser(), "opaque-token", nil); err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if got := session.CanView("/checkout"); got != constants.GateAllow {
		t.Fatalf("customer should see checkout, got %s", got)
	}
	if got := session.CanView("/admin"); got != constants.GateDeny {
		t.Fatalf("customer should be denied admin, got %s", got)
	}
}

func TestSessionCanViewDeniesOnAuthorizerError(t *testing.T) {
	ctx := context.Background()
	session := NewSessionState(store.NewMemoryStore(), nil, fakeViewAuthorizer{err: errors.New("boom")})
	session.Hydrate(ctx)
	if got := session.CanView("/cart"); got != constants.GateLogin {
		t.Fatalf("expected login gate on authorizer error, got %s", got)
	}
}

func TestSessionHydrateExpiredClearsServerCart(t *testing.T) {
	ctx := context.Background()
	backing := store.NewMemoryStore()
	loginAt := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	cart := NewCartState(backing)
	session := NewSessionState(backing, cart, newTestViews(), WithClock(func() time.Time { return loginAt }))
	session.Hydrate(ctx)
	serverLine := newTestLine(9, 100, 5)
	serverLine.Ref = models.Confirmed{ServerLineID: "9"}
	if err := session.Login(ctx, testUser(), signTestCredential(t, loginAt.Add(time.Hour)), []models.CartLineItem{serverLine}); err != nil {
		t.Fatalf("login failed: %v", err)
	}

	restartAt := loginAt.Add(2 * time.Hour)
	reloadedCart := NewCartState(backing)
	reloadedCart.Hydrate(ctx)
	reloaded := NewSessionState(backing, reloadedCart, newTestViews(), WithClock(func() time.Time { return restartAt }))
	if identity := reloaded.Hydrate(ctx); identity.LoggedIn() {
		t.Fatalf("expired credential must not hydrate")
	}
	if items := reloadedCart.Items(); len(items) != 0 {
		t.Fatalf("expected cart cleared with the expired session, got %+v", items)
	}
	if snapshot := NewCartState(backing).Hydrate(ctx); len(snapshot.Items) != 0 {
		t.Fatalf("cleared cart must be persisted, got %+v", snapshot.Items)
	}
}

func TestSessionHydrateUnusableAuthDropsServerLines(t *testing.T) {
	ctx := context.Background()
	backing := store.NewMemoryStore()
	serverLine := newTestLine(9, 100, 5)
	serverLine.Ref = models.Confirmed{ServerLineID: "9"}
	if err := backing.Save(ctx, constants.StorageKeyCart, persistedCart{
		Version: constants.CartStorageVersion,
		Items:   []models.CartLineItem{serverLine},
	}); err != nil {
		t.Fatalf("seed cart blob failed: %v", err)
	}
	if err := backing.Save(ctx, constants.StorageKeyAuth, persistedAuth{Version: constants.AuthStorageVersion, User: testUser()}); err != nil {
		t.Fatalf("seed auth blob failed: %v", err)
	}

	cart := NewCartState(backing)
	cart.Hydrate(ctx)
	session := NewSessionState(backing, cart, newTestViews())
	session.Hydrate(ctx)
	if len(cart.Items()) != 0 {
		t.Fatalf("server lines must not survive as a guest cart, got %+v", cart.Items())
	}
}

func TestSessionHydrateKeepsGuestCart(t *testing.T) {
	ctx := context.Background()
	backing := store.NewMemoryStore()
	cart := NewCartState(backing)
	cart.AddItem(ctx, newTestLine(3, 100, 2))

	reloadedCart := NewCartState(backing)
	reloadedCart.Hydrate(ctx)
	NewSessionState(backing, reloadedCart, newTestViews()).Hydrate(ctx)
	if len(reloadedCart.Items()) != 1 {
		t.Fatalf("guest cart must survive hydrate, got %+v", reloadedCart.Items())
	}
}

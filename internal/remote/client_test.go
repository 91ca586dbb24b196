package remote

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeEnvelope(w http.ResponseWriter, code int, msg string, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"status_code": code,
		"msg":         msg,
		"data":        data,
	})
}

func TestClientSendsBearerAndDecodesData(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer token-a", r.Header.Get("Authorization"))
		writeEnvelope(w, 0, "success", map[string]interface{}{"value": 7})
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second, func() string { return "token-a" })
	var out struct {
		Value int `json:"value"`
	}
	require.NoError(t, client.Do(context.Background(), http.MethodGet, "/ping", nil, &out))
	assert.Equal(t, 7, out.Value)
}

func TestClientCredentialFromContextWins(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer fresh", r.Header.Get("Authorization"))
		writeEnvelope(w, 0, "success", nil)
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second, func() string { return "stale" })
	require.NoError(t, client.Do(WithCredential(context.Background(), "fresh"), http.MethodGet, "/ping", nil, nil))
}

func TestClientMapsErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/business":
			writeEnvelope(w, 400, "product not available", nil)
		case "/expired":
			writeEnvelope(w, 401, "unauthorized", nil)
		case "/http401":
			w.WriteHeader(http.StatusUnauthorized)
		default:
			w.WriteHeader(http.StatusBadGateway)
		}
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second, nil)
	ctx := context.Background()

	err := client.Do(ctx, http.MethodGet, "/business", nil, nil)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 400, apiErr.Code)
	assert.False(t, errors.Is(err, ErrUnauthorized))

	assert.ErrorIs(t, client.Do(ctx, http.MethodGet, "/expired", nil, nil), ErrUnauthorized)
	assert.ErrorIs(t, client.Do(ctx, http.MethodGet, "/http401", nil, nil), ErrUnauthorized)
	assert.ErrorIs(t, client.Do(ctx, http.MethodGet, "/gateway", nil, nil), ErrUnavailable)
}

func TestClientNetworkFailureIsUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client := NewClient(url, time.Second, nil)
	assert.ErrorIs(t, client.Do(context.Background(), http.MethodGet, "/cart", nil, nil), ErrUnavailable)
}

type fakeUpstreamCart struct {
	mu    sync.Mutex
	items map[string]int
}

func (f *fakeUpstreamCart) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/cart":
		items := make([]map[string]interface{}, 0, len(f.items))
		for id, qty := range f.items {
			items = append(items, map[string]interface{}{
				"product_id": json.Number(id),
				"quantity":   qty,
				"unit_price": "12.50",
				"product": map[string]interface{}{
					"slug":   "item-" + id,
					"title":  map[string]string{"zh-CN": "商品" + id, "en-US": "Item " + id},
					"images": []string{"/img/" + id + ".png"},
				},
			})
		}
		writeEnvelope(w, 0, "success", map[string]interface{}{"items": items})
	case r.Method == http.MethodPost && r.URL.Path == "/cart/items":
		var req struct {
			ProductID json.Number `json:"product_id"`
			Quantity  int         `json:"quantity"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		f.items[req.ProductID.String()] = req.Quantity
		writeEnvelope(w, 0, "success", map[string]bool{"updated": true})
	case r.Method == http.MethodDelete && strings.HasPrefix(r.URL.Path, "/cart/items/"):
		delete(f.items, strings.TrimPrefix(r.URL.Path, "/cart/items/"))
		writeEnvelope(w, 0, "success", map[string]bool{"deleted": true})
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func TestCartClientRoundTrip(t *testing.T) {
	upstream := &fakeUpstreamCart{items: map[string]int{}}
	server := httptest.NewServer(upstream)
	defer server.Close()

	cart := NewCartClient(NewClient(server.URL, time.Second, func() string { return "t" }), "en-US")
	ctx := context.Background()

	lineID, err := cart.Add(ctx, 12, 2)
	require.NoError(t, err)
	assert.Equal(t, "12", lineID)
	require.NoError(t, cart.Update(ctx, lineID, 5))

	items, err := cart.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, uint(12), items[0].ProductID)
	assert.Equal(t, 5, items[0].Quantity)
	assert.Equal(t, "Item 12", items[0].Name)
	assert.Equal(t, "/img/12.png", items[0].ImageRef)
	serverLineID, ok := items[0].ServerLineID()
	assert.True(t, ok)
	assert.Equal(t, "12", serverLineID)

	_, err = cart.Add(ctx, 13, 1)
	require.NoError(t, err)
	require.NoError(t, cart.Remove(ctx, "12"))
	require.NoError(t, cart.Clear(ctx))
	items, err = cart.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)

	assert.Error(t, cart.Update(ctx, "not-a-number", 1))
}

func TestPickTitle(t *testing.T) {
	assert.Equal(t, "Plain", pickTitle(json.RawMessage(`"Plain"`), "en-US", "slug"))
	assert.Equal(t, "键盘", pickTitle(json.RawMessage(`{"zh-CN":"键盘","en-US":"Keyboard"}`), "ja-JP", "slug"))
	assert.Equal(t, "Tastatur", pickTitle(json.RawMessage(`{"de-DE":"Tastatur"}`), "en-US", "slug"))
	assert.Equal(t, "slug", pickTitle(nil, "en-US", "slug"))
}

func TestAuthClientLogin(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/login", r.URL.Path)
		var req loginRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req.Password != "secret" {
			writeEnvelope(w, 401, "error.login_invalid", nil)
			return
		}
		writeEnvelope(w, 0, "success", map[string]interface{}{
			"user":       map[string]interface{}{"id": 42, "email": req.Email, "nickname": "Ada", "email_verified_at": "2026-01-01T00:00:00Z"},
			"token":      "jwt-token",
			"expires_at": "2026-06-01T00:00:00Z",
		})
	}))
	defer server.Close()

	auth := NewAuthClient(NewClient(server.URL, time.Second, nil))
	result, err := auth.Login(context.Background(), " ada@example.com ", "secret", false)
	require.NoError(t, err)
	assert.Equal(t, uint(42), result.User.ID)
	assert.Equal(t, "ada@example.com", result.User.Email)
	assert.Equal(t, "customer", result.User.Role)
	assert.True(t, result.User.Verified)
	assert.Equal(t, "jwt-token", result.Credential)
	assert.Equal(t, 2026, result.ExpiresAt.Year())

	_, err = auth.Login(context.Background(), "ada@example.com", "wrong", false)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

package config

import (
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	if cfg.Store.Driver != "file" {
		t.Fatalf("store driver want file got %s", cfg.Store.Driver)
	}
	if cfg.Server.Addr() != "127.0.0.1:8790" {
		t.Fatalf("unexpected addr: %s", cfg.Server.Addr())
	}
	if cfg.Remote.Timeout() != 10*time.Second {
		t.Fatalf("unexpected remote timeout: %s", cfg.Remote.Timeout())
	}
	if cfg.Session.NoticeCapacity != 32 {
		t.Fatalf("unexpected notice capacity: %d", cfg.Session.NoticeCapacity)
	}
	if len(cfg.CORS.AllowedMethods) == 0 {
		t.Fatalf("cors methods should have defaults")
	}
}

func TestRemoteTimeoutFallback(t *testing.T) {
	if got := (RemoteConfig{}).Timeout(); got != 10*time.Second {
		t.Fatalf("zero timeout should fall back to 10s, got %s", got)
	}
	if got := (RemoteConfig{TimeoutMS: 250}).Timeout(); got != 250*time.Millisecond {
		t.Fatalf("timeout want 250ms got %s", got)
	}
}

func TestLoadReadsEnvOverride(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("REMOTE_BASE_URL", "https://shop.example.com/api/v1")

	cfg := Load()
	if cfg.Store.Driver != "memory" {
		t.Fatalf("env override for store.driver not applied: %s", cfg.Store.Driver)
	}
	if cfg.Remote.BaseURL != "https://shop.example.com/api/v1" {
		t.Fatalf("env override for remote.base_url not applied: %s", cfg.Remote.BaseURL)
	}
}

func TestSessionDurations(t *testing.T) {
	cfg := Defaults()
	if cfg.Session.WatchInterval() != 30*time.Second {
		t.Fatalf("unexpected watch interval: %s", cfg.Session.WatchInterval())
	}
	if cfg.Session.ExpiryLeeway() != 0 {
		t.Fatalf("unexpected leeway: %s", cfg.Session.ExpiryLeeway())
	}
	if (SessionConfig{}).NoticeTTL() != 8*time.Second {
		t.Fatalf("zero notice ttl should fall back to 8s")
	}
	if cfg.Remote.Locale != "zh-CN" {
		t.Fatalf("unexpected locale: %s", cfg.Remote.Locale)
	}
}

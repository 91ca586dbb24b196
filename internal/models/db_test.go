package models

import (
	"fmt"
	"testing"
	"time"
)

func TestSQLiteDSNAddsBusyTimeout(t *testing.T) {
	cases := map[string]string{
		"data/storefront.db":                   "data/storefront.db?_pragma=busy_timeout(5000)",
		"file:sf?mode=memory&cache=shared":     "file:sf?mode=memory&cache=shared&_pragma=busy_timeout(5000)",
		"data/sf.db?_pragma=journal_mode(WAL)": "data/sf.db?_pragma=journal_mode(WAL)",
	}
	for in, want := range cases {
		if got := sqliteDSN(in); got != want {
			t.Fatalf("sqliteDSN(%q) want %q got %q", in, want, got)
		}
	}
}

func TestOpenDBSQLiteKeepsConnection(t *testing.T) {
	dsn := fmt.Sprintf("file:models_db_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := OpenDB("sqlite", dsn, DBPoolConfig{}, false)
	if err != nil {
		t.Fatalf("open db failed: %v", err)
	}
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db failed: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	if got := sqlDB.Stats().MaxOpenConnections; got != 1 {
		t.Fatalf("sqlite should default to one connection, got %d", got)
	}
	// 空闲连接保留，内存库不会在两次查询之间丢失
	if err := db.Create(&PersistedBlob{Key: "cart-storage", Value: "{}", UpdatedAt: time.Now()}).Error; err != nil {
		t.Fatalf("create failed: %v", err)
	}
	var count int64
	if err := db.Model(&PersistedBlob{}).Count(&count).Error; err != nil || count != 1 {
		t.Fatalf("expected row to survive, count=%d err=%v", count, err)
	}
	if _, err := OpenDB("mysql", "", DBPoolConfig{}, false); err == nil {
		t.Fatalf("unsupported driver should fail")
	}
}

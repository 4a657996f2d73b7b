package database

import (
	"strings"
	"testing"
)

// 埋め込まれたマイグレーションファイルの検証。
// up/downが対になっていること、テーブル定義が期待どおりであることを確認する。

func TestMigrations_UpDownPairsExist(t *testing.T) {
	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		t.Fatalf("failed to read embedded migrations: %v", err)
	}

	ups := map[string]bool{}
	downs := map[string]bool{}
	for _, e := range entries {
		name := e.Name()
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups[strings.TrimSuffix(name, ".up.sql")] = true
		case strings.HasSuffix(name, ".down.sql"):
			downs[strings.TrimSuffix(name, ".down.sql")] = true
		default:
			t.Errorf("unexpected migration file: %s", name)
		}
	}

	if len(ups) == 0 {
		t.Fatal("no up migrations found")
	}
	for base := range ups {
		if !downs[base] {
			t.Errorf("missing down migration for %s", base)
		}
	}
	for base := range downs {
		if !ups[base] {
			t.Errorf("missing up migration for %s", base)
		}
	}
}

func TestMigrations_CreateExpectedTables(t *testing.T) {
	want := map[string]string{
		"users":              "000001_create_users.up.sql",
		"identities":         "000001_create_users.up.sql",
		"user_subscriptions": "000002_create_subscriptions.up.sql",
		"usage_logs":         "000003_create_usage_logs.up.sql",
	}

	for table, file := range want {
		data, err := migrationsFS.ReadFile("migrations/" + file)
		if err != nil {
			t.Fatalf("failed to read %s: %v", file, err)
		}
		if !strings.Contains(string(data), "CREATE TABLE "+table) {
			t.Errorf("%s should create table %s", file, table)
		}
	}
}

func TestMigrations_IdentityUniqueConstraint(t *testing.T) {
	data, err := migrationsFS.ReadFile("migrations/000001_create_users.up.sql")
	if err != nil {
		t.Fatalf("failed to read migration: %v", err)
	}

	// (provider, platform_id)のユニーク制約はIdentity Resolverの
	// 同時初回ログイン回復処理の前提条件
	if !strings.Contains(string(data), "UNIQUE (provider, platform_id)") {
		t.Error("identities table must have a unique constraint on (provider, platform_id)")
	}
}

func TestOpen_InvalidURL_ReturnsHandle(t *testing.T) {
	// sql.Openは接続を試行しないため、不正なURLでもハンドルは返る
	db, err := Open("postgres://invalid")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer db.Close()
}

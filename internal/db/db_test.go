package db_test

import (
	"database/sql"
	"net/url"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/murshop24/admin/internal/config"
	"github.com/murshop24/admin/internal/db"
)

func openSQLite(t *testing.T) *sql.DB {
	t.Helper()
	cfg := config.DBConfig{
		Driver:     config.DriverSQLite,
		SQLitePath: filepath.Join(t.TempDir(), "test.db"),
	}
	gdb, err := db.Open(cfg, config.PostgresConfig{}, zap.NewNop())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("get sql.DB: %v", err)
	}
	t.Cleanup(func() { sqlDB.Close() }) //nolint:errcheck
	return sqlDB
}

// TestOpen_SQLiteWAL verifies the sqlite DSN parameters enable WAL journal mode
// and foreign keys.
func TestOpen_SQLiteWAL(t *testing.T) {
	sqlDB := openSQLite(t)

	var mode string
	if err := sqlDB.QueryRow("PRAGMA journal_mode").Scan(&mode); err != nil {
		t.Fatalf("journal_mode: %v", err)
	}
	if mode != "wal" {
		t.Errorf("expected journal_mode=wal, got %q", mode)
	}

	var fk int
	if err := sqlDB.QueryRow("PRAGMA foreign_keys").Scan(&fk); err != nil {
		t.Fatalf("foreign_keys: %v", err)
	}
	if fk != 1 {
		t.Errorf("expected foreign_keys=1, got %d", fk)
	}
}

// TestOpen_MigratesSchema verifies every managed table exists after Open,
// plus the order index GORM does not create from struct tags.
func TestOpen_MigratesSchema(t *testing.T) {
	sqlDB := openSQLite(t)

	for _, table := range []string{
		"cities", "districts", "tg_operators", "tg_reviews_channels", "tg_bots",
		"tg_customers", "products", "product_units", "district_product_units",
		"banks", "bank_accounts", "qiwi_wallet_accounts", "orders", "admin_sessions",
	} {
		var name string
		err := sqlDB.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("table %q missing: %v", table, err)
		}
	}

	found := indexNames(t, sqlDB, "orders")
	if !found["idx_orders_created_at"] {
		t.Errorf("index idx_orders_created_at missing from orders table; found: %v", found)
	}
}

func TestPostgresDSN(t *testing.T) {
	got := db.PostgresDSN(config.PostgresConfig{
		User: "postgres", Password: "pw", Host: "db", Port: 5433, DB: "shop",
	})
	want := "postgres://postgres:pw@db:5433/shop?TimeZone=UTC&sslmode=disable"
	if got != want {
		t.Errorf("dsn:\n got %q\nwant %q", got, want)
	}
}

func TestPostgresDSNKeepsPasswordIntact(t *testing.T) {
	for _, pw := range []string{"s3cret pass'word", `a\b@c/d?e#f:g`, "p%40ss"} {
		dsn := db.PostgresDSN(config.PostgresConfig{
			User: "shop user", Password: pw, Host: "db", Port: 5432, DB: "shop",
		})
		u, err := url.Parse(dsn)
		if err != nil {
			t.Fatalf("parse %q: %v", dsn, err)
		}
		got, _ := u.User.Password()
		if got != pw {
			t.Errorf("password: got %q want %q (dsn %q)", got, pw, dsn)
		}
		if u.User.Username() != "shop user" {
			t.Errorf("user: got %q", u.User.Username())
		}
		if u.Hostname() != "db" || u.Port() != "5432" || u.Path != "/shop" {
			t.Errorf("host/db mangled: %q", dsn)
		}
	}
}

func indexNames(t *testing.T, sqlDB *sql.DB, table string) map[string]bool {
	t.Helper()
	rows, err := sqlDB.Query("PRAGMA index_list(" + table + ")")
	if err != nil {
		t.Fatalf("PRAGMA index_list: %v", err)
	}
	defer rows.Close()

	out := make(map[string]bool)
	for rows.Next() {
		var seq int
		var name string
		var unique bool
		var origin, partial string
		if err := rows.Scan(&seq, &name, &unique, &origin, &partial); err != nil {
			t.Fatalf("scan: %v", err)
		}
		out[name] = true
	}
	return out
}

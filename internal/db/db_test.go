package db

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"
)

func TestDetectDialectFromDSN(t *testing.T) {
	cases := map[string]string{
		"postgres://u:p@localhost:5432/app":      DialectPostgres,
		"host=localhost user=app dbname=toolbox": DialectPostgres,
		"file:data/app.db":                       DialectSQLite,
		"sqlite://data/app.db":                   DialectSQLite,
		"data/app.db":                            DialectSQLite,
		"file:mem_1?mode=memory&cache=shared":    DialectSQLite,
	}
	for dsn, want := range cases {
		got, err := detectDialectFromDSN(dsn)
		if err != nil {
			t.Fatalf("detectDialectFromDSN(%q) error: %v", dsn, err)
		}
		if got != want {
			t.Fatalf("detectDialectFromDSN(%q) = %q, want %q", dsn, got, want)
		}
	}

	if _, err := detectDialectFromDSN("mysql://root@localhost/app"); err == nil {
		t.Fatalf("expected unsupported scheme error")
	}
}

func TestEnsureSQLiteParamsKeepsMemoryDSN(t *testing.T) {
	dsn := "file:mem_2?mode=memory&cache=shared"
	if got := ensureSQLiteParams(dsn); got != dsn {
		t.Fatalf("ensureSQLiteParams changed memory dsn: %q", got)
	}
	got := ensureSQLiteParams("file:data/app.db")
	if got != "file:data/app.db?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)" {
		t.Fatalf("unexpected params: %q", got)
	}
}

func TestOpenAndMigrateSQLite(t *testing.T) {
	dsn := "file:" + filepath.Join(t.TempDir(), "nested", "toolcatalog.db")
	conn, errOpen := Open(dsn)
	if errOpen != nil {
		t.Fatalf("open: %v", errOpen)
	}
	if DialectName(conn) != DialectSQLite {
		t.Fatalf("unexpected dialect %q", DialectName(conn))
	}
	if errMigrate := Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	for _, table := range []string{"api_keys", "ads", "settings", "cache"} {
		if !conn.Migrator().HasTable(table) {
			t.Fatalf("missing table %s", table)
		}
	}
	for _, column := range []string{"request_count", "monthly_limit", "last_reset_date", "is_active"} {
		if !conn.Migrator().HasColumn("api_keys", column) {
			t.Fatalf("api_keys missing column %s", column)
		}
	}
}

func TestOpenSharedMemorySQLite(t *testing.T) {
	dsn := fmt.Sprintf("file:db_open_%d?mode=memory&cache=shared", time.Now().UnixNano())
	conn, errOpen := Open(dsn)
	if errOpen != nil {
		t.Fatalf("open: %v", errOpen)
	}
	if errMigrate := Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	if !IsSQLite(conn) {
		t.Fatalf("expected sqlite connection")
	}
}

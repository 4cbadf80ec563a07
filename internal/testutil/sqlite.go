package testutil

import (
	"database/sql"
	"fmt"
	"sync/atomic"
	"testing"

	_ "modernc.org/sqlite"
)

var sqliteSeq atomic.Int64

// SQLiteURL returns a DSN for a private in-memory SQLite database with
// foreign keys enforced. Every connection opened with the DSN sees the
// same database; different calls never share one.
func SQLiteURL(t *testing.T) string {
	t.Helper()

	return fmt.Sprintf("file:hisdb_test_%d?mode=memory&cache=shared&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)",
		sqliteSeq.Add(1))
}

// SetupSQLite creates an in-memory SQLite database for testing.
// The connection is automatically closed when the test completes.
func SetupSQLite(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", SQLiteURL(t))
	if err != nil {
		t.Fatalf("failed to open sqlite connection: %v", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		t.Fatalf("failed to ping sqlite: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

// AssertTableExists checks that a table exists in the SQLite database.
func AssertTableExists(t *testing.T, db *sql.DB, table string) {
	t.Helper()

	if !sqliteObjectExists(t, db, "table", table) {
		t.Errorf("expected table %q to exist, but it does not", table)
	}
}

// AssertTableNotExists checks that a table does not exist in the SQLite database.
func AssertTableNotExists(t *testing.T, db *sql.DB, table string) {
	t.Helper()

	if sqliteObjectExists(t, db, "table", table) {
		t.Errorf("expected table %q to not exist, but it does", table)
	}
}

// AssertIndexExists checks that an index exists in the SQLite database.
func AssertIndexExists(t *testing.T, db *sql.DB, index string) {
	t.Helper()

	if !sqliteObjectExists(t, db, "index", index) {
		t.Errorf("expected index %q to exist, but it does not", index)
	}
}

// AssertIndexNotExists checks that an index does not exist in the SQLite database.
func AssertIndexNotExists(t *testing.T, db *sql.DB, index string) {
	t.Helper()

	if sqliteObjectExists(t, db, "index", index) {
		t.Errorf("expected index %q to not exist, but it does", index)
	}
}

func sqliteObjectExists(t *testing.T, db *sql.DB, kind, name string) bool {
	t.Helper()

	var count int
	err := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = ? AND name = ?`, kind, name).Scan(&count)
	if err != nil {
		t.Fatalf("failed to look up %s %q: %v", kind, name, err)
	}
	return count > 0
}

// SQLiteColumns returns the column names of a table in declaration order.
func SQLiteColumns(t *testing.T, db *sql.DB, table string) []string {
	t.Helper()

	rows, err := db.Query(`SELECT name FROM pragma_table_info(?) ORDER BY cid`, table)
	if err != nil {
		t.Fatalf("failed to get table info: %v", err)
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			t.Fatalf("failed to scan column info: %v", err)
		}
		cols = append(cols, name)
	}
	if err := rows.Err(); err != nil {
		t.Fatalf("failed to read column info: %v", err)
	}
	return cols
}

// AssertColumnExists checks that a column exists in a SQLite table.
func AssertColumnExists(t *testing.T, db *sql.DB, table, column string) {
	t.Helper()

	for _, c := range SQLiteColumns(t, db, table) {
		if c == column {
			return
		}
	}
	t.Errorf("expected column %q to exist in table %q, but it does not", column, table)
}

// AssertColumnNotExists checks that a column does not exist in a SQLite table.
func AssertColumnNotExists(t *testing.T, db *sql.DB, table, column string) {
	t.Helper()

	for _, c := range SQLiteColumns(t, db, table) {
		if c == column {
			t.Errorf("expected column %q to not exist in table %q, but it does", column, table)
			return
		}
	}
}

// ExecSQL executes a SQL statement and fails the test on error.
func ExecSQL(t *testing.T, db *sql.DB, query string, args ...any) {
	t.Helper()

	if _, err := db.Exec(query, args...); err != nil {
		t.Fatalf("failed to execute SQL:\n%s\nerror: %v", query, err)
	}
}

// AssertRowCount checks that a table has the expected number of rows.
func AssertRowCount(t *testing.T, db *sql.DB, table string, expected int) {
	t.Helper()

	var count int
	err := db.QueryRow(`SELECT COUNT(*) FROM "` + table + `"`).Scan(&count)
	if err != nil {
		t.Fatalf("failed to count rows in %s: %v", table, err)
	}

	if count != expected {
		t.Errorf("expected %d rows in %s, got %d", expected, table, count)
	}
}

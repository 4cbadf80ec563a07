// Package testutil provides test helpers for hisdb.
//
// This package includes:
//   - In-memory SQLite databases (SetupSQLite, SQLiteURL)
//   - PostgreSQL and MySQL setup behind the integration build tag
//   - SQL assertion helpers for comparing rendered statements
//   - Error assertion helpers for checking error codes
//
// # Build Tags
//
// SQLite helpers need no tag. Server databases are only used with:
//
//	go test ./... -tags=integration
//
// Start them first:
//
//	docker-compose -f docker-compose.test.yml up -d
//
// # Environment Variables
//
//	POSTGRES_URL - PostgreSQL connection string
//	MYSQL_DSN    - MySQL DSN (go-sql-driver format, no database name)
//
// # Example Usage
//
//	func TestApply(t *testing.T) {
//	    db := testutil.SetupSQLite(t)
//	    testutil.ExecSQL(t, db, `CREATE TABLE "Patients" ("Id" TEXT PRIMARY KEY)`)
//	    testutil.AssertTableExists(t, db, "Patients")
//	}
package testutil

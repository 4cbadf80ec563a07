package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hlop3z/hisdb/internal/ast"
	"github.com/hlop3z/hisdb/internal/dialect"
	"github.com/hlop3z/hisdb/internal/store"
	"github.com/hlop3z/hisdb/internal/testutil"
)

// -----------------------------------------------------------------------------
// Stores
// -----------------------------------------------------------------------------

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newSQLiteStore returns a store over a private in-memory SQLite database.
func newSQLiteStore(t *testing.T) *store.SQL {
	t.Helper()
	return store.New(testutil.SetupSQLite(t), dialect.SQLite())
}

func newEngine(t *testing.T, s store.Store, opts ...Option) *Engine {
	t.Helper()
	opts = append([]Option{WithLogger(quietLogger())}, opts...)
	e, err := New(s, opts...)
	testutil.AssertNoError(t, err)
	return e
}

// recordingStore records every statement sent to the wrapped store,
// inside and outside transactions.
type recordingStore struct {
	store.Store

	mu    sync.Mutex
	stmts []string
}

func record(s store.Store) *recordingStore {
	return &recordingStore{Store: s}
}

func (r *recordingStore) add(q string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stmts = append(r.stmts, q)
}

func (r *recordingStore) Exec(ctx context.Context, q string, args ...any) (int64, error) {
	r.add(q)
	return r.Store.Exec(ctx, q, args...)
}

func (r *recordingStore) Begin(ctx context.Context) (store.Tx, error) {
	tx, err := r.Store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &recordingTx{Tx: tx, parent: r}, nil
}

// DDL returns the recorded schema statements, leaving out the engine's
// own history and lock tables.
func (r *recordingStore) DDL() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []string
	for _, q := range r.stmts {
		if strings.Contains(q, "__migration_") {
			continue
		}
		switch {
		case strings.HasPrefix(q, "CREATE "), strings.HasPrefix(q, "ALTER "), strings.HasPrefix(q, "DROP "):
			out = append(out, q)
		}
	}
	return out
}

type recordingTx struct {
	store.Tx
	parent *recordingStore
}

func (t *recordingTx) Exec(ctx context.Context, q string, args ...any) (int64, error) {
	t.parent.add(q)
	return t.Tx.Exec(ctx, q, args...)
}

// fakeStore stands in for stores the tests cannot open. Every statement
// succeeds and every catalog lookup reports that nothing exists.
type fakeStore struct {
	dialect dialect.Dialect

	mu    sync.Mutex
	stmts []string
}

func (f *fakeStore) Dialect() dialect.Dialect { return f.dialect }

func (f *fakeStore) Exec(_ context.Context, q string, _ ...any) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stmts = append(f.stmts, q)
	return 1, nil
}

func (f *fakeStore) Query(context.Context, string, ...any) (store.Rows, error) {
	return &countRows{}, nil
}

func (f *fakeStore) Begin(context.Context) (store.Tx, error) { return &fakeTx{f}, nil }

func (f *fakeStore) Conn(context.Context) (store.Conn, error) {
	return nil, fmt.Errorf("fake store has no sessions")
}

type fakeTx struct{ f *fakeStore }

func (t *fakeTx) Exec(ctx context.Context, q string, args ...any) (int64, error) {
	return t.f.Exec(ctx, q, args...)
}
func (t *fakeTx) Commit() error   { return nil }
func (t *fakeTx) Rollback() error { return nil }

// countRows is a single-row result holding COUNT(*) = 0.
type countRows struct{ done bool }

func (r *countRows) Next() bool {
	if r.done {
		return false
	}
	r.done = true
	return true
}

func (r *countRows) Scan(dest ...any) error {
	if p, ok := dest[0].(*int); ok {
		*p = 0
		return nil
	}
	return fmt.Errorf("countRows: unsupported scan target %T", dest[0])
}

func (r *countRows) Err() error   { return nil }
func (r *countRows) Close() error { return nil }

// nopLocker always grants the lock.
type nopLocker struct{}

func (nopLocker) Acquire(context.Context, time.Duration) error { return nil }
func (nopLocker) Release(context.Context) error                { return nil }
func (nopLocker) ForceRelease(context.Context) error           { return nil }
func (nopLocker) Info(context.Context) (*LockInfo, error)      { return &LockInfo{}, nil }

// -----------------------------------------------------------------------------
// Migrations
// -----------------------------------------------------------------------------

func guid(name string) *ast.ColumnDef {
	return &ast.ColumnDef{Name: name, Type: ast.TypeGuid}
}

func nullableGuid(name string) *ast.ColumnDef {
	return &ast.ColumnDef{Name: name, Type: ast.TypeGuid, Nullable: true}
}

func str(name string, n int) *ast.ColumnDef {
	return &ast.ColumnDef{Name: name, Type: ast.TypeString, MaxLength: n}
}

func table(name string, cols ...*ast.ColumnDef) *ast.CreateTable {
	return &ast.CreateTable{TableDef: ast.TableDef{
		Name:       name,
		Columns:    append([]*ast.ColumnDef{guid("Id")}, cols...),
		PrimaryKey: []string{"Id"},
	}}
}

func foreignKey(tbl, col, ref string, onDelete ast.ReferentialAction) *ast.CreateForeignKey {
	return &ast.CreateForeignKey{TableName: tbl, ForeignKeyDef: ast.ForeignKeyDef{
		Name:      fmt.Sprintf("FK_%s_%s_%s", tbl, ref, col),
		Column:    col,
		RefTable:  ref,
		RefColumn: "Id",
		OnDelete:  onDelete,
	}}
}

func index(tbl string, unique bool, cols ...string) *ast.CreateIndex {
	prefix := "IX"
	if unique {
		prefix = "UX"
	}
	return &ast.CreateIndex{TableName: tbl, IndexDef: ast.IndexDef{
		Name:    prefix + "_" + tbl + "_" + strings.Join(cols, "_"),
		Columns: cols,
		Unique:  unique,
	}}
}

func dropTable(name string) *ast.DropTable { return &ast.DropTable{Name: name} }

// patientsMigration creates Patients with a unique MRN.
func patientsMigration() Migration {
	return Migration{
		ID:   "20240101000000_patients",
		Name: "patients",
		Up: []ast.Operation{
			table("Patients", str("MRN", 32), str("FullName", 200)),
			index("Patients", true, "MRN"),
		},
		Down: []ast.Operation{dropTable("Patients")},
	}
}

// admissionsMigration creates Admissions referencing Patients.
func admissionsMigration() Migration {
	return Migration{
		ID:   "20240102000000_admissions",
		Name: "admissions",
		Up: []ast.Operation{
			table("Admissions",
				guid("PatientId"),
				&ast.ColumnDef{Name: "AdmittedAt", Type: ast.TypeDateTime},
			),
			foreignKey("Admissions", "PatientId", "Patients", ast.Restrict),
			index("Admissions", false, "PatientId"),
		},
		Down: []ast.Operation{dropTable("Admissions")},
	}
}

// labMigration creates LabResults and IsolationOrders, the latter with a
// filtered unique index.
func labMigration() Migration {
	filtered := index("IsolationOrders", true, "HAICaseId")
	filtered.Filter = "[HAICaseId] IS NOT NULL"
	return Migration{
		ID:   "20240103000000_lab",
		Name: "lab",
		Up: []ast.Operation{
			table("LabResults", guid("AdmissionId"), str("Code", 20)),
			foreignKey("LabResults", "AdmissionId", "Admissions", ast.Cascade),
			table("IsolationOrders", guid("PatientId"), nullableGuid("HAICaseId")),
			foreignKey("IsolationOrders", "PatientId", "Patients", ast.Restrict),
			filtered,
		},
		Down: []ast.Operation{
			dropTable("IsolationOrders"),
			dropTable("LabResults"),
		},
	}
}

func hisRegistry() []Migration {
	return []Migration{patientsMigration(), admissionsMigration(), labMigration()}
}

func ids(recs []MigrationRecord) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.ID
	}
	return out
}

func assertIDs(t *testing.T, got []MigrationRecord, want ...string) {
	t.Helper()
	g := ids(got)
	if strings.Join(g, ",") != strings.Join(want, ",") {
		t.Fatalf("migrations = %v, want %v", g, want)
	}
}

package engine

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/hlop3z/hisdb/internal/alerr"
	"github.com/hlop3z/hisdb/internal/ast"
	"github.com/hlop3z/hisdb/internal/dialect"
	"github.com/hlop3z/hisdb/internal/drift"
	"github.com/hlop3z/hisdb/internal/engine/state"
	"github.com/hlop3z/hisdb/internal/store"
	"github.com/hlop3z/hisdb/internal/testutil"
)

func errContext(t *testing.T, err error) map[string]any {
	t.Helper()
	var e *alerr.Error
	if !errors.As(err, &e) {
		t.Fatalf("expected *alerr.Error, got %T: %v", err, err)
	}
	return e.GetContext()
}

func schemaRoot(t *testing.T, e *Engine, registry []Migration) string {
	t.Helper()
	model, err := e.Schema(context.Background(), registry)
	testutil.AssertNoError(t, err)
	fp, err := drift.Fingerprint(model)
	testutil.AssertNoError(t, err)
	return fp.Root
}

// -----------------------------------------------------------------------------
// New
// -----------------------------------------------------------------------------

func TestNewOptions(t *testing.T) {
	s := newSQLiteStore(t)

	tests := []struct {
		name string
		opts []Option
	}{
		{"bad history table", []Option{WithHistoryTable("bad name")}},
		{"bad lock table", []Option{WithLockTable("drop;table")}},
		{"zero timeout", []Option{WithLockTimeout(0)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(s, tt.opts...)
			testutil.AssertError(t, err, alerr.ErrConfig)
		})
	}

	_, err := New(nil)
	testutil.AssertError(t, err, alerr.ErrConfig)

	e := newEngine(t, s, WithHistoryTable("SchemaHistory"))
	testutil.AssertEqual(t, e.History().Table(), "SchemaHistory")
}

// -----------------------------------------------------------------------------
// Apply
// -----------------------------------------------------------------------------

func TestApplyPatientsAdmissions(t *testing.T) {
	ctx := context.Background()
	base := newSQLiteStore(t)
	db := base.DB()
	e := newEngine(t, base)

	applied, err := e.Apply(ctx, hisRegistry()[:2])
	testutil.AssertNoError(t, err)
	assertIDs(t, applied, "20240101000000_patients", "20240102000000_admissions")

	testutil.AssertTableExists(t, db, "Patients")
	testutil.AssertTableExists(t, db, "Admissions")
	testutil.AssertIndexExists(t, db, "UX_Patients_MRN")
	testutil.AssertIndexExists(t, db, "IX_Admissions_PatientId")
	testutil.AssertRowCount(t, db, DefaultHistoryTable, 2)

	// restrict: an admission for an unknown patient is rejected
	_, err = db.Exec(`INSERT INTO "Admissions" ("Id", "PatientId", "AdmittedAt") VALUES ('a1', 'missing', '2024-01-01')`)
	if err == nil {
		t.Fatal("expected foreign key violation")
	}

	testutil.ExecSQL(t, db, `INSERT INTO "Patients" ("Id", "MRN", "FullName") VALUES ('p1', 'MRN-1', 'Ada')`)
	testutil.ExecSQL(t, db, `INSERT INTO "Admissions" ("Id", "PatientId", "AdmittedAt") VALUES ('a1', 'p1', '2024-01-01')`)
	if _, err := db.Exec(`DELETE FROM "Patients" WHERE "Id" = 'p1'`); err == nil {
		t.Error("expected ON DELETE RESTRICT to block the delete")
	}

	statuses, err := e.Status(ctx, hisRegistry()[:2])
	testutil.AssertNoError(t, err)
	for _, st := range statuses {
		testutil.AssertTrue(t, st.Applied, st.ID+" should be applied")
		if time.Since(st.AppliedAt) > time.Minute || st.AppliedAt.Location() != time.UTC {
			t.Errorf("%s AppliedAt = %v, want recent UTC", st.ID, st.AppliedAt)
		}
	}
}

func TestApplyIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := record(newSQLiteStore(t))
	e := newEngine(t, s)

	first, err := e.Apply(ctx, hisRegistry())
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, len(first), 3)
	ddl := len(s.DDL())

	second, err := e.Apply(ctx, hisRegistry())
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, len(second), 0)
	testutil.AssertEqual(t, len(s.DDL()), ddl)
}

func TestApplyTarget(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, newSQLiteStore(t))

	applied, err := e.Apply(ctx, hisRegistry(), To("20240102000000_admissions"))
	testutil.AssertNoError(t, err)
	assertIDs(t, applied, "20240101000000_patients", "20240102000000_admissions")

	_, err = e.Apply(ctx, hisRegistry(), To("20991231000000_nope"))
	testutil.AssertError(t, err, alerr.ErrMigrationNotFound)

	applied, err = e.Apply(ctx, hisRegistry())
	testutil.AssertNoError(t, err)
	assertIDs(t, applied, "20240103000000_lab")
}

func TestApplyFailureStopsAtOperation(t *testing.T) {
	ctx := context.Background()
	base := newSQLiteStore(t)
	db := base.DB()
	s := record(base)
	e := newEngine(t, s)

	// Wards exists outside the engine's knowledge, so the model accepts the
	// migration and the store rejects it.
	testutil.ExecSQL(t, db, `CREATE TABLE "Wards" ("Id" TEXT NOT NULL PRIMARY KEY)`)

	wards := Migration{
		ID:   "20240102000000_wards",
		Name: "wards",
		Up: []ast.Operation{
			table("Beds", str("Label", 20)),
			table("Wards", str("Name", 100)),
			index("Beds", false, "Label"),
		},
		Down: []ast.Operation{dropTable("Wards"), dropTable("Beds")},
	}
	registry := []Migration{patientsMigration(), wards}

	applied, err := e.Apply(ctx, registry)
	testutil.AssertError(t, err, alerr.ErrMigrationFailed)
	assertIDs(t, applied, "20240101000000_patients")

	c := errContext(t, err)
	testutil.AssertEqual(t, c["migration"], any("20240102000000_wards"))
	testutil.AssertEqual(t, c["operation"], any(1))
	testutil.AssertEqual(t, c["op"], any("CreateTable"))
	if !alerr.Is(errors.Unwrap(err), alerr.ErrStore) {
		t.Errorf("cause should be a store error, got %v", errors.Unwrap(err))
	}

	// The failing migration rolled back and nothing after operation 1 ran.
	testutil.AssertTableNotExists(t, db, "Beds")
	testutil.AssertTableExists(t, db, "Patients")
	ddl := s.DDL()
	last := ddl[len(ddl)-1]
	if !strings.HasPrefix(last, `CREATE TABLE "Wards"`) {
		t.Errorf("last statement = %q, want CREATE TABLE \"Wards\"", last)
	}
	for _, q := range ddl {
		if strings.Contains(q, "IX_Beds_Label") {
			t.Errorf("statement after the failing operation was sent: %q", q)
		}
	}

	statuses, err := e.Status(ctx, registry)
	testutil.AssertNoError(t, err)
	testutil.AssertTrue(t, statuses[0].Applied, "patients should stay applied")
	testutil.AssertFalse(t, statuses[1].Applied, "wards should not be recorded")
}

func TestApplyUnknownTableSendsNothing(t *testing.T) {
	ctx := context.Background()
	base := newSQLiteStore(t)
	s := record(base)
	e := newEngine(t, s)

	typo := admissionsMigration()
	typo.Up[1] = foreignKey("Admissions", "PatientId", "Patient", ast.Restrict)

	applied, err := e.Apply(ctx, []Migration{patientsMigration(), typo})
	testutil.AssertError(t, err, alerr.ErrUnknownTableReference)
	testutil.AssertEqual(t, len(applied), 0)
	testutil.AssertEqual(t, len(s.DDL()), 0)
	testutil.AssertTableNotExists(t, base.DB(), "Patients")

	c := errContext(t, err)
	testutil.AssertEqual(t, c["migration"], any(typo.ID))
	testutil.AssertEqual(t, c["operation"], any(1))
	if helps := err.(*alerr.Error).Helps(); len(helps) == 0 || !strings.Contains(helps[0], "Patients") {
		t.Errorf("expected a 'did you mean' help naming Patients, got %v", helps)
	}
}

func TestApplyFilteredIndexUnsupported(t *testing.T) {
	ctx := context.Background()
	fake := &fakeStore{dialect: dialect.MySQL()}
	e := newEngine(t, fake, WithLocker(nopLocker{}))

	applied, err := e.Apply(ctx, hisRegistry())
	testutil.AssertError(t, err, alerr.ErrUnsupportedFeature)
	testutil.AssertEqual(t, len(applied), 0)

	c := errContext(t, err)
	testutil.AssertEqual(t, c["migration"], any("20240103000000_lab"))
	testutil.AssertEqual(t, c["operation"], any(4))

	for _, q := range fake.stmts {
		if !strings.Contains(q, "__migration_history") {
			t.Errorf("unexpected statement sent: %q", q)
		}
	}
}

func TestApplyFilteredIndexPostgres(t *testing.T) {
	ctx := context.Background()
	fake := &fakeStore{dialect: dialect.Postgres()}
	e := newEngine(t, fake, WithLocker(nopLocker{}))

	applied, err := e.Apply(ctx, hisRegistry())
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, len(applied), 3)

	all := strings.Join(fake.stmts, "\n")
	testutil.AssertSQLContains(t, all, `WHERE "HAICaseId" IS NOT NULL`)
	testutil.AssertSQLContains(t, all, `ALTER TABLE "LabResults" ADD CONSTRAINT "FK_LabResults_Admissions_AdmissionId"`)
}

func TestApplySelfReference(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, newSQLiteStore(t))

	users := Migration{
		ID:   "20240101000000_users",
		Name: "users",
		Up: []ast.Operation{
			table("Users", str("Login", 64), nullableGuid("SupervisorId")),
			foreignKey("Users", "SupervisorId", "Users", ast.SetNull),
		},
		Down: []ast.Operation{dropTable("Users")},
	}

	_, err := e.Apply(ctx, []Migration{users})
	testutil.AssertError(t, err, alerr.ErrSchemaInvalid)

	users.Up[1].(*ast.CreateForeignKey).Deferred = true
	applied, err := e.Apply(ctx, []Migration{users})
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, len(applied), 1)

	reverted, err := e.Revert(ctx, []Migration{users}, 1)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, len(reverted), 1)
}

func TestApplyRequiresKnownHistory(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, newSQLiteStore(t))

	_, err := e.Apply(ctx, hisRegistry()[:2])
	testutil.AssertNoError(t, err)

	_, err = e.Apply(ctx, hisRegistry()[1:])
	testutil.AssertError(t, err, alerr.ErrMigrationNotFound)
}

func TestApplyInvalidRegistry(t *testing.T) {
	e := newEngine(t, newSQLiteStore(t))
	reg := []Migration{admissionsMigration(), patientsMigration()}

	_, err := e.Apply(context.Background(), reg)
	testutil.AssertError(t, err, alerr.ErrRegistryUnordered)
}

// -----------------------------------------------------------------------------
// Cancellation
// -----------------------------------------------------------------------------

// cancelAfterCommit cancels a context once the first transaction commits.
type cancelAfterCommit struct {
	store.Store
	cancel context.CancelFunc
}

func (c *cancelAfterCommit) Begin(ctx context.Context) (store.Tx, error) {
	tx, err := c.Store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &cancelTx{Tx: tx, cancel: c.cancel}, nil
}

type cancelTx struct {
	store.Tx
	cancel context.CancelFunc
}

func (t *cancelTx) Commit() error {
	err := t.Tx.Commit()
	t.cancel()
	return err
}

func TestApplyCancelledBetweenMigrations(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	base := newSQLiteStore(t)
	e := newEngine(t, &cancelAfterCommit{Store: base, cancel: cancel})

	applied, err := e.Apply(ctx, hisRegistry())
	testutil.AssertError(t, err, alerr.ErrCancelled)
	assertIDs(t, applied, "20240101000000_patients")
	testutil.AssertTableNotExists(t, base.DB(), "Admissions")

	// the lock was released
	info, err := e.LockInfo(context.Background())
	testutil.AssertNoError(t, err)
	testutil.AssertFalse(t, info.Locked, "lock should be released after cancellation")
}

func TestApplyCancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	base := newSQLiteStore(t)
	e := newEngine(t, base)

	_, err := e.Apply(ctx, hisRegistry())
	testutil.AssertError(t, err, alerr.ErrCancelled)
	testutil.AssertTableNotExists(t, base.DB(), DefaultHistoryTable)
}

// -----------------------------------------------------------------------------
// Revert
// -----------------------------------------------------------------------------

func TestRevertRoundTrip(t *testing.T) {
	ctx := context.Background()
	base := newSQLiteStore(t)
	db := base.DB()
	e := newEngine(t, base)
	reg := hisRegistry()

	empty := schemaRoot(t, e, reg)

	_, err := e.Apply(ctx, reg[:2])
	testutil.AssertNoError(t, err)
	twoApplied := schemaRoot(t, e, reg)
	cols := testutil.SQLiteColumns(t, db, "Admissions")

	_, err = e.Apply(ctx, reg)
	testutil.AssertNoError(t, err)
	if schemaRoot(t, e, reg) == twoApplied {
		t.Fatal("applying lab did not change the fingerprint")
	}

	reverted, err := e.Revert(ctx, reg, 1)
	testutil.AssertNoError(t, err)
	assertIDs(t, reverted, "20240103000000_lab")
	testutil.AssertEqual(t, schemaRoot(t, e, reg), twoApplied)
	testutil.AssertTableNotExists(t, db, "LabResults")
	testutil.AssertTableNotExists(t, db, "IsolationOrders")
	testutil.AssertIndexNotExists(t, db, "UX_IsolationOrders_HAICaseId")
	testutil.AssertEqual(t, strings.Join(testutil.SQLiteColumns(t, db, "Admissions"), ","), strings.Join(cols, ","))

	_, err = e.Revert(ctx, reg, 2)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, schemaRoot(t, e, reg), empty)
	testutil.AssertTableNotExists(t, db, "Patients")
	testutil.AssertRowCount(t, db, DefaultHistoryTable, 0)
}

func TestRevertExcessCount(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, newSQLiteStore(t))
	reg := hisRegistry()

	_, err := e.Apply(ctx, reg[:2])
	testutil.AssertNoError(t, err)

	reverted, err := e.Revert(ctx, reg, 5)
	testutil.AssertNoError(t, err)
	assertIDs(t, reverted, "20240102000000_admissions", "20240101000000_patients")

	reverted, err = e.Revert(ctx, reg, 1)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, len(reverted), 0)
}

func TestRevertInvalidCount(t *testing.T) {
	e := newEngine(t, newSQLiteStore(t))
	for _, n := range []int{0, -1} {
		_, err := e.Revert(context.Background(), hisRegistry(), n)
		testutil.AssertError(t, err, alerr.ErrInvalidArgument)
	}
}

func TestRevertRejectsOrphaningDrop(t *testing.T) {
	ctx := context.Background()
	s := record(newSQLiteStore(t))
	e := newEngine(t, s)

	// Down drops Patients while Admissions still references it.
	bad := patientsMigration()
	bad.Down = []ast.Operation{dropTable("Patients")}
	adm := admissionsMigration()
	adm.Down = []ast.Operation{dropTable("Patients"), dropTable("Admissions")}
	reg := []Migration{bad, adm}

	_, err := e.Apply(ctx, reg)
	testutil.AssertNoError(t, err)
	before := len(s.DDL())

	_, err = e.Revert(ctx, reg, 1)
	testutil.AssertError(t, err, alerr.ErrTableReferenced)
	testutil.AssertEqual(t, len(s.DDL()), before)
}

func TestRevertMigrationNotFound(t *testing.T) {
	tests := []struct {
		name     string
		registry func(reg []Migration) []Migration
		missing  string
		help     string
	}{
		{
			name:     "newest selected for revert",
			registry: func(reg []Migration) []Migration { return reg[:2] },
			missing:  "20240103000000_lab",
			help:     "restore the migration to the registry before reverting it",
		},
		{
			name:     "older than the revert",
			registry: func(reg []Migration) []Migration { return reg[1:] },
			missing:  "20240101000000_patients",
			help:     "20240101000000_patients is not being reverted",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			base := newSQLiteStore(t)
			s := record(base)
			e := newEngine(t, s)
			reg := hisRegistry()

			_, err := e.Apply(ctx, reg)
			testutil.AssertNoError(t, err)
			before := len(s.DDL())

			reverted, err := e.Revert(ctx, tt.registry(reg), 1)
			testutil.AssertError(t, err, alerr.ErrMigrationNotFound)
			testutil.AssertEqual(t, len(reverted), 0)
			testutil.AssertEqual(t, len(s.DDL()), before)
			testutil.AssertRowCount(t, base.DB(), DefaultHistoryTable, 3)

			ctxMap := errContext(t, err)
			if ctxMap["migration"] != tt.missing {
				t.Errorf("migration = %v, want %s", ctxMap["migration"], tt.missing)
			}
			helps, _ := ctxMap["helps"].([]string)
			if !strings.Contains(strings.Join(helps, " "), tt.help) {
				t.Errorf("help = %q, want it to mention %q", helps, tt.help)
			}
		})
	}
}

// -----------------------------------------------------------------------------
// Locking
// -----------------------------------------------------------------------------

func TestApplyLockTimeout(t *testing.T) {
	ctx := context.Background()
	base := newSQLiteStore(t)

	holder := NewLocker(base, DefaultHistoryTable, DefaultLockTable)
	testutil.AssertNoError(t, holder.Acquire(ctx, time.Second))

	e := newEngine(t, base, WithLockTimeout(250*time.Millisecond))
	start := time.Now()
	_, err := e.Apply(ctx, hisRegistry())
	testutil.AssertError(t, err, alerr.ErrLockTimeout)
	if time.Since(start) < 250*time.Millisecond {
		t.Errorf("Apply returned after %v, before the lock timeout", time.Since(start))
	}
	testutil.AssertTableNotExists(t, base.DB(), "Patients")

	info, err := e.LockInfo(ctx)
	testutil.AssertNoError(t, err)
	testutil.AssertTrue(t, info.Locked, "lock should be held")
	testutil.AssertTrue(t, info.LockedAt != nil, "lock time should be reported")

	testutil.AssertNoError(t, holder.Release(ctx))
	applied, err := e.Apply(ctx, hisRegistry())
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, len(applied), 3)
}

func TestLockTakenBeforeHistoryTable(t *testing.T) {
	tests := []struct {
		name string
		run  func(ctx context.Context, e *Engine) error
	}{
		{"apply", func(ctx context.Context, e *Engine) error {
			_, err := e.Apply(ctx, hisRegistry()[:1])
			return err
		}},
		{"revert", func(ctx context.Context, e *Engine) error {
			_, err := e.Revert(ctx, hisRegistry(), 1)
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := record(newSQLiteStore(t))
			e := newEngine(t, s)
			testutil.AssertNoError(t, tt.run(context.Background(), e))

			lockAt, historyAt := -1, -1
			for i, q := range s.stmts {
				switch {
				case lockAt < 0 && strings.HasPrefix(q, `INSERT INTO "`+DefaultLockTable+`"`):
					lockAt = i
				case historyAt < 0 && strings.Contains(q, `IF NOT EXISTS "`+DefaultHistoryTable+`"`):
					historyAt = i
				}
			}
			if lockAt < 0 || historyAt < 0 || lockAt > historyAt {
				t.Errorf("lock insert at %d, history table created at %d; want the lock first", lockAt, historyAt)
			}
		})
	}
}

func TestForceUnlock(t *testing.T) {
	ctx := context.Background()
	base := newSQLiteStore(t)

	crashed := NewLocker(base, DefaultHistoryTable, DefaultLockTable)
	testutil.AssertNoError(t, crashed.Acquire(ctx, time.Second))

	e := newEngine(t, base, WithLockTimeout(100*time.Millisecond))
	testutil.AssertNoError(t, e.ForceUnlock(ctx))

	info, err := e.LockInfo(ctx)
	testutil.AssertNoError(t, err)
	testutil.AssertFalse(t, info.Locked, "lock should be cleared")

	_, err = e.Apply(ctx, hisRegistry()[:1])
	testutil.AssertNoError(t, err)
}

// -----------------------------------------------------------------------------
// Status / Plan / Schema
// -----------------------------------------------------------------------------

func TestStatusIsReadOnly(t *testing.T) {
	base := newSQLiteStore(t)
	e := newEngine(t, base)

	statuses, err := e.Status(context.Background(), hisRegistry())
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, len(statuses), 3)
	for _, st := range statuses {
		testutil.AssertFalse(t, st.Applied, st.ID+" should be pending")
		testutil.AssertTrue(t, st.AppliedAt.IsZero(), "pending AppliedAt should be zero")
	}
	testutil.AssertTableNotExists(t, base.DB(), DefaultHistoryTable)
}

func TestStatusOrphaned(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, newSQLiteStore(t))

	_, err := e.Apply(ctx, hisRegistry())
	testutil.AssertNoError(t, err)

	statuses, err := e.Status(ctx, hisRegistry()[:2])
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, len(statuses), 3)
	last := statuses[2]
	testutil.AssertEqual(t, last.ID, "20240103000000_lab")
	testutil.AssertTrue(t, last.Orphaned, "lab should be orphaned")
	testutil.AssertFalse(t, statuses[0].Orphaned, "patients is in the registry")
}

func TestPlanUp(t *testing.T) {
	ctx := context.Background()
	base := newSQLiteStore(t)
	e := newEngine(t, base)

	steps, err := e.Plan(ctx, hisRegistry(), Up, PlanOptions{})
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, len(steps), 3)
	testutil.AssertTableNotExists(t, base.DB(), DefaultHistoryTable)

	// SQLite folds the lab foreign keys into their CREATE TABLE statements.
	lab := steps[2]
	testutil.AssertEqual(t, len(lab.Statements), 3)
	testutil.AssertSQLContains(t, lab.Statements[0].SQL, `FOREIGN KEY ("AdmissionId") REFERENCES "Admissions"`)
	testutil.AssertSQLContains(t, lab.Statements[2].SQL, `WHERE "HAICaseId" IS NOT NULL`)

	steps, err = e.Plan(ctx, hisRegistry(), Up, PlanOptions{Target: "20240101000000_patients"})
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, len(steps), 1)

	_, err = e.Plan(ctx, hisRegistry(), Up, PlanOptions{Target: "nope"})
	testutil.AssertError(t, err, alerr.ErrMigrationNotFound)
}

func TestPlanDown(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, newSQLiteStore(t))

	_, err := e.Apply(ctx, hisRegistry())
	testutil.AssertNoError(t, err)

	steps, err := e.Plan(ctx, hisRegistry(), Down, PlanOptions{})
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, len(steps), 1)
	testutil.AssertEqual(t, steps[0].Migration.ID, "20240103000000_lab")
	testutil.AssertEqual(t, steps[0].Direction, Down)

	steps, err = e.Plan(ctx, hisRegistry(), Down, PlanOptions{Count: 10})
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, len(steps), 3)
	testutil.AssertEqual(t, steps[2].Migration.ID, "20240101000000_patients")

	_, err = e.Plan(ctx, hisRegistry(), Down, PlanOptions{Count: -1})
	testutil.AssertError(t, err, alerr.ErrInvalidArgument)

	// planning reverted nothing
	statuses, err := e.Status(ctx, hisRegistry())
	testutil.AssertNoError(t, err)
	testutil.AssertTrue(t, statuses[2].Applied, "lab should still be applied")
}

func TestSchemaMatchesReplay(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, newSQLiteStore(t))

	_, err := e.Apply(ctx, hisRegistry())
	testutil.AssertNoError(t, err)

	var ops []ast.Operation
	for _, m := range hisRegistry() {
		ops = append(ops, m.Up...)
	}
	want, err := state.ReplayOperations(ops)
	testutil.AssertNoError(t, err)
	wantFP, err := drift.Fingerprint(want)
	testutil.AssertNoError(t, err)

	testutil.AssertEqual(t, schemaRoot(t, e, hisRegistry()), wantFP.Root)
}

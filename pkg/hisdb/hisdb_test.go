package hisdb

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/hlop3z/hisdb/internal/alerr"
	"github.com/hlop3z/hisdb/internal/testutil"
)

func wardsRegistry() []Migration {
	id := func() *ColumnDef { return &ColumnDef{Name: "Id", Type: TypeGuid} }
	return []Migration{
		{
			ID:   "20240301000000_wards",
			Name: "wards",
			Up: []Operation{
				&CreateTable{TableDef: TableDef{
					Name:       "Wards",
					Columns:    []*ColumnDef{id(), {Name: "Code", Type: TypeString, MaxLength: 16}},
					PrimaryKey: []string{"Id"},
				}},
				&CreateIndex{TableName: "Wards", IndexDef: IndexDef{Name: "UX_Wards_Code", Columns: []string{"Code"}, Unique: true}},
			},
			Down: []Operation{&DropTable{Name: "Wards"}},
		},
		{
			ID:   "20240302000000_beds",
			Name: "beds",
			Up: []Operation{
				&CreateTable{TableDef: TableDef{
					Name: "Beds",
					Columns: []*ColumnDef{
						id(),
						{Name: "WardId", Type: TypeGuid},
						{Name: "Label", Type: TypeString, MaxLength: 20},
					},
					PrimaryKey: []string{"Id"},
				}},
				&CreateForeignKey{TableName: "Beds", ForeignKeyDef: ForeignKeyDef{
					Name: "FK_Beds_Wards_WardId", Column: "WardId", RefTable: "Wards", RefColumn: "Id", OnDelete: Cascade,
				}},
			},
			Down: []Operation{&DropTable{Name: "Beds"}},
		},
	}
}

func openClient(t *testing.T, opts ...Option) *Client {
	t.Helper()
	url := filepath.Join(t.TempDir(), "his.db")
	opts = append([]Option{
		WithDatabaseURL(url),
		WithRegistry(wardsRegistry()),
		WithLockTimeout(2 * time.Second),
	}, opts...)

	c, err := New(opts...)
	testutil.AssertNoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestNewRequiresDatabaseURL(t *testing.T) {
	_, err := New()
	testutil.AssertError(t, err, alerr.ErrConfig)
}

func TestNewUnsupportedDialect(t *testing.T) {
	_, err := New(WithDatabaseURL("his.db"), WithDialect("oracle"))
	testutil.AssertError(t, err, alerr.ErrUnsupportedDialect)
}

func TestNewInvalidHistoryTable(t *testing.T) {
	url := filepath.Join(t.TempDir(), "his.db")
	_, err := New(WithDatabaseURL(url), WithHistoryTable("bad name"))
	testutil.AssertError(t, err, alerr.ErrConfig)
}

func TestClientDefaults(t *testing.T) {
	c := openClient(t)

	cfg := c.Config()
	testutil.AssertEqual(t, c.Dialect(), "sqlite")
	testutil.AssertEqual(t, cfg.HistoryTable, "__migration_history")
	testutil.AssertEqual(t, cfg.LockTable, "__migration_lock")
	testutil.AssertEqual(t, cfg.LockTimeout, 2*time.Second)
	testutil.AssertEqual(t, len(c.Registry()), 2)
}

func TestClientLifecycle(t *testing.T) {
	ctx := context.Background()
	c := openClient(t)

	emptyRoot, err := c.Fingerprint(ctx)
	testutil.AssertNoError(t, err)

	steps, err := c.Plan(ctx, Up, PlanOptions{})
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, len(steps), 2)

	change, err := c.PlanChange(ctx, steps)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, len(change.Added), 2)
	testutil.AssertEqual(t, change.BeforeRoot, emptyRoot)

	applied, err := c.Apply(ctx)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, len(applied), 2)

	root, err := c.Fingerprint(ctx)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, root, change.AfterRoot)

	statuses, err := c.Status(ctx)
	testutil.AssertNoError(t, err)
	for _, s := range statuses {
		testutil.AssertTrue(t, s.Applied, s.ID+" should be applied")
	}

	report, err := c.Verify(ctx)
	testutil.AssertNoError(t, err)
	testutil.AssertTrue(t, report.OK(), "history should match the registry")
	testutil.AssertEqual(t, report.SchemaFingerprint, root)

	down, err := c.Plan(ctx, Down, PlanOptions{Count: 1})
	testutil.AssertNoError(t, err)
	change, err = c.PlanChange(ctx, down)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, len(change.Removed), 1)
	testutil.AssertEqual(t, change.Removed[0], "Beds")

	reverted, err := c.Revert(ctx, 2)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, len(reverted), 2)
	testutil.AssertEqual(t, reverted[0].ID, "20240302000000_beds")

	root, err = c.Fingerprint(ctx)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, root, emptyRoot)
}

func TestClientApplyTo(t *testing.T) {
	ctx := context.Background()
	c := openClient(t)

	applied, err := c.Apply(ctx, To("20240301000000_wards"))
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, len(applied), 1)

	statuses, err := c.Status(ctx)
	testutil.AssertNoError(t, err)
	testutil.AssertTrue(t, statuses[0].Applied, "wards should be applied")
	testutil.AssertFalse(t, statuses[1].Applied, "beds should be pending")
}

func TestClientUnlock(t *testing.T) {
	ctx := context.Background()
	c := openClient(t)

	info, err := c.LockInfo(ctx)
	testutil.AssertNoError(t, err)
	testutil.AssertFalse(t, info.Locked, "fresh database should not be locked")

	prev, err := c.Unlock(ctx)
	testutil.AssertNoError(t, err)
	testutil.AssertFalse(t, prev.Locked, "nothing was held")
}

func TestIsCode(t *testing.T) {
	err := alerr.Wrap(alerr.ErrMigrationFailed, alerr.New(alerr.ErrStore, "boom"), "migration failed")
	testutil.AssertTrue(t, IsCode(err, ErrMigrationFailed), "outer code")
	testutil.AssertTrue(t, IsCode(err, ErrStore), "wrapped code")
	testutil.AssertFalse(t, IsCode(err, ErrLockTimeout), "unrelated code")
}

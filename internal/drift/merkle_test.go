package drift

import (
	"strings"
	"testing"

	"github.com/hlop3z/hisdb/internal/ast"
	"github.com/hlop3z/hisdb/internal/engine/state"
	"github.com/hlop3z/hisdb/internal/testutil"
)

func patientsOp() *ast.CreateTable {
	return &ast.CreateTable{TableDef: ast.TableDef{
		Name: "Patients",
		Columns: []*ast.ColumnDef{
			{Name: "Id", Type: ast.TypeGuid},
			{Name: "MRN", Type: ast.TypeString, MaxLength: 32},
		},
		PrimaryKey: []string{"Id"},
	}}
}

func admissionsOps() []ast.Operation {
	return []ast.Operation{
		&ast.CreateTable{TableDef: ast.TableDef{
			Name: "Admissions",
			Columns: []*ast.ColumnDef{
				{Name: "Id", Type: ast.TypeGuid},
				{Name: "PatientId", Type: ast.TypeGuid},
			},
			PrimaryKey: []string{"Id"},
		}},
		&ast.CreateForeignKey{TableName: "Admissions", ForeignKeyDef: ast.ForeignKeyDef{
			Name: "FK_Admissions_Patients_PatientId", Column: "PatientId",
			RefTable: "Patients", RefColumn: "Id", OnDelete: ast.Restrict,
		}},
		&ast.CreateIndex{TableName: "Admissions", IndexDef: ast.IndexDef{
			Name: "IX_Admissions_PatientId", Columns: []string{"PatientId"},
		}},
	}
}

func replay(t *testing.T, ops ...ast.Operation) *state.Schema {
	t.Helper()
	schema, err := state.ReplayOperations(ops)
	testutil.AssertNoError(t, err)
	return schema
}

func fingerprint(t *testing.T, schema *state.Schema) *SchemaHash {
	t.Helper()
	h, err := Fingerprint(schema)
	testutil.AssertNoError(t, err)
	return h
}

func TestFingerprintEmpty(t *testing.T) {
	empty := fingerprint(t, state.NewSchema())
	if empty.Root == "" {
		t.Fatal("expected non-empty root for empty schema")
	}
	testutil.AssertEqual(t, len(empty.Tables), 0)
	testutil.AssertEqual(t, fingerprint(t, nil).Root, empty.Root)
}

func TestFingerprintSingleTable(t *testing.T) {
	h := fingerprint(t, replay(t, patientsOp()))

	th, ok := h.Tables["Patients"]
	if !ok {
		t.Fatal("expected Patients table hash")
	}
	testutil.AssertEqual(t, len(th.Columns), 2)
	if h.Root == fingerprint(t, state.NewSchema()).Root {
		t.Error("one-table schema has the empty-schema root")
	}
}

func TestFingerprintDeterministic(t *testing.T) {
	ops := append([]ast.Operation{patientsOp()}, admissionsOps()...)
	a := fingerprint(t, replay(t, ops...))
	b := fingerprint(t, replay(t, ops...))
	testutil.AssertEqual(t, a.Root, b.Root)
}

func TestFingerprintIgnoresBuildOrder(t *testing.T) {
	adm := admissionsOps()
	first := replay(t, append([]ast.Operation{patientsOp()}, adm...)...)

	// index before foreign key
	second := replay(t, patientsOp(), adm[0], adm[2], adm[1])

	testutil.AssertEqual(t, fingerprint(t, first).Root, fingerprint(t, second).Root)
}

func TestFingerprintDetectsChanges(t *testing.T) {
	base := fingerprint(t, replay(t, patientsOp())).Root

	tests := []struct {
		name   string
		mutate func(op *ast.CreateTable)
	}{
		{"nullable", func(op *ast.CreateTable) { op.Columns[1].Nullable = true }},
		{"length", func(op *ast.CreateTable) { op.Columns[1].MaxLength = 64 }},
		{"type", func(op *ast.CreateTable) { op.Columns[1].Type = ast.TypeInt }},
		{"default", func(op *ast.CreateTable) { op.Columns[1].Default = "'unknown'" }},
		{"column order", func(op *ast.CreateTable) {
			op.Columns[0], op.Columns[1] = op.Columns[1], op.Columns[0]
		}},
		{"primary key", func(op *ast.CreateTable) { op.PrimaryKey = []string{"MRN"} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			op := patientsOp()
			tt.mutate(op)
			got := fingerprint(t, replay(t, op)).Root
			if got == base {
				t.Errorf("changing %s did not change the fingerprint", tt.name)
			}
		})
	}
}

func TestFingerprintIgnoresDeferred(t *testing.T) {
	adm := admissionsOps()
	plain := replay(t, append([]ast.Operation{patientsOp()}, adm...)...)

	deferred := admissionsOps()
	deferred[1].(*ast.CreateForeignKey).Deferred = true
	withDeferred := replay(t, append([]ast.Operation{patientsOp()}, deferred...)...)

	testutil.AssertEqual(t, fingerprint(t, plain).Root, fingerprint(t, withDeferred).Root)
}

// -----------------------------------------------------------------------------
// Compare
// -----------------------------------------------------------------------------

func TestCompareMatch(t *testing.T) {
	h := fingerprint(t, replay(t, patientsOp()))
	c := Compare(h, h)
	testutil.AssertTrue(t, c.Match, "identical fingerprints should match")
	testutil.AssertEqual(t, Summary(c), "no schema change")
}

func TestCompareTables(t *testing.T) {
	before := fingerprint(t, replay(t, patientsOp()))
	after := fingerprint(t, replay(t, append([]ast.Operation{
		patientsOp(),
		&ast.AddColumn{TableName: "Patients", Column: &ast.ColumnDef{Name: "Notes", Type: ast.TypeString, Nullable: true}},
	}, admissionsOps()...)...))

	c := Compare(before, after)
	testutil.AssertFalse(t, c.Match, "fingerprints should differ")
	if len(c.Added) != 1 || c.Added[0] != "Admissions" {
		t.Errorf("Added = %v, want [Admissions]", c.Added)
	}
	testutil.AssertEqual(t, len(c.Removed), 0)

	diff, ok := c.TableDiffs["Patients"]
	if !ok {
		t.Fatal("expected a diff for Patients")
	}
	testutil.AssertTrue(t, diff.HasDifferences(), "Patients diff should be non-empty")
	if len(diff.AddedColumns) != 1 || diff.AddedColumns[0] != "Notes" {
		t.Errorf("AddedColumns = %v, want [Notes]", diff.AddedColumns)
	}
	testutil.AssertEqual(t, Summary(c), "1 added, 1 modified")

	reverse := Compare(after, before)
	if len(reverse.Removed) != 1 || reverse.Removed[0] != "Admissions" {
		t.Errorf("Removed = %v, want [Admissions]", reverse.Removed)
	}
	testutil.AssertEqual(t, reverse.TableDiffs["Patients"].RemovedColumns[0], "Notes")
}

func TestCompareIndexAndForeignKey(t *testing.T) {
	ops := append([]ast.Operation{patientsOp()}, admissionsOps()...)
	before := fingerprint(t, replay(t, ops...))

	filtered := admissionsOps()
	filtered[2].(*ast.CreateIndex).Unique = true
	filtered[1].(*ast.CreateForeignKey).OnDelete = ast.Cascade
	after := fingerprint(t, replay(t, append([]ast.Operation{patientsOp()}, filtered...)...))

	diff := Compare(before, after).TableDiffs["Admissions"]
	if diff == nil {
		t.Fatal("expected a diff for Admissions")
	}
	testutil.AssertEqual(t, len(diff.ModifiedIndexes), 1)
	testutil.AssertEqual(t, len(diff.ModifiedFKs), 1)
	testutil.AssertEqual(t, len(diff.ModifiedColumns), 0)
}

func TestFormatComparison(t *testing.T) {
	before := fingerprint(t, replay(t, patientsOp()))
	after := fingerprint(t, replay(t, append([]ast.Operation{patientsOp()}, admissionsOps()...)...))

	out := FormatComparison(Compare(before, after))
	for _, want := range []string{"Schema change", "+ Admissions", ShortHash(before.Root)} {
		if !strings.Contains(out, want) {
			t.Errorf("FormatComparison() missing %q:\n%s", want, out)
		}
	}

	same := FormatComparison(Compare(before, before))
	testutil.AssertTrue(t, strings.HasPrefix(same, "No schema change"), same)
}

func TestShortHash(t *testing.T) {
	testutil.AssertEqual(t, ShortHash("abc"), "abc")
	testutil.AssertEqual(t, ShortHash("0123456789abcdef"), "0123456789ab")
}

// -----------------------------------------------------------------------------
// Chain
// -----------------------------------------------------------------------------

func TestChainRoot(t *testing.T) {
	a := []ChainLink{{"20240101000000_core", "core"}, {"20240201000000_lab", "lab"}}
	b := []ChainLink{{"20240201000000_lab", "lab"}, {"20240101000000_core", "core"}}

	ra, err := ChainRoot(a)
	testutil.AssertNoError(t, err)
	rb, err := ChainRoot(b)
	testutil.AssertNoError(t, err)
	if ra == rb {
		t.Error("reordered chain has the same root")
	}

	again, err := ChainRoot(a)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, again, ra)

	empty, err := ChainRoot(nil)
	testutil.AssertNoError(t, err)
	if empty == "" || empty == ra {
		t.Errorf("unexpected empty-chain root %q", empty)
	}

	renamed, err := ChainRoot([]ChainLink{{"20240101000000_core", "core_v2"}, a[1]})
	testutil.AssertNoError(t, err)
	if renamed == ra {
		t.Error("renamed link has the same root")
	}
}

// Package hisreg is the compiled-in migration registry for the hospital
// information system schema.
package hisreg

import (
	"strings"

	"github.com/hlop3z/hisdb/internal/ast"
	"github.com/hlop3z/hisdb/internal/engine"
)

// Migrations returns the HIS registry in ascending ID order. Each call
// returns fresh operations, so callers may modify the result.
func Migrations() []engine.Migration {
	return []engine.Migration{
		core(),
		laboratory(),
		infectionControl(),
		rehabilitation(),
		nutrition(),
		telemedicine(),
		patientPortal(),
		qualityIncidents(),
	}
}

// -----------------------------------------------------------------------------
// Column builders
// -----------------------------------------------------------------------------

func guid(name string) *ast.ColumnDef {
	return &ast.ColumnDef{Name: name, Type: ast.TypeGuid}
}

func optGuid(name string) *ast.ColumnDef {
	return &ast.ColumnDef{Name: name, Type: ast.TypeGuid, Nullable: true}
}

func text(name string, maxLength int) *ast.ColumnDef {
	return &ast.ColumnDef{Name: name, Type: ast.TypeString, MaxLength: maxLength}
}

func optText(name string, maxLength int) *ast.ColumnDef {
	return &ast.ColumnDef{Name: name, Type: ast.TypeString, MaxLength: maxLength, Nullable: true}
}

func integer(name string) *ast.ColumnDef {
	return &ast.ColumnDef{Name: name, Type: ast.TypeInt}
}

func decimal(name string, precision, scale int, nullable bool) *ast.ColumnDef {
	return &ast.ColumnDef{Name: name, Type: ast.TypeDecimal, Precision: precision, Scale: scale, Nullable: nullable}
}

func timestamp(name string) *ast.ColumnDef {
	return &ast.ColumnDef{Name: name, Type: ast.TypeDateTime}
}

func optTimestamp(name string) *ast.ColumnDef {
	return &ast.ColumnDef{Name: name, Type: ast.TypeDateTime, Nullable: true}
}

// createdAt is a timestamp the store fills in.
func createdAt(name string) *ast.ColumnDef {
	return &ast.ColumnDef{Name: name, Type: ast.TypeDateTime, Default: "CURRENT_TIMESTAMP"}
}

func date(name string, nullable bool) *ast.ColumnDef {
	return &ast.ColumnDef{Name: name, Type: ast.TypeDate, Nullable: nullable}
}

func flag(name string, def bool) *ast.ColumnDef {
	d := "FALSE"
	if def {
		d = "TRUE"
	}
	return &ast.ColumnDef{Name: name, Type: ast.TypeBool, Default: d}
}

func span(name string) *ast.ColumnDef {
	return &ast.ColumnDef{Name: name, Type: ast.TypeTimeSpan, Nullable: true}
}

func binary(name string, maxLength int) *ast.ColumnDef {
	return &ast.ColumnDef{Name: name, Type: ast.TypeBinary, MaxLength: maxLength}
}

// -----------------------------------------------------------------------------
// Operation builders
// -----------------------------------------------------------------------------

// table creates a table keyed by a Guid Id column.
func table(name string, cols ...*ast.ColumnDef) *ast.CreateTable {
	return &ast.CreateTable{TableDef: ast.TableDef{
		Name:       name,
		Columns:    append([]*ast.ColumnDef{guid("Id")}, cols...),
		PrimaryKey: []string{"Id"},
	}}
}

// fk references refTable.Id, named FK_<table>_<refTable>_<column>.
func fk(tbl, column, refTable string, onDelete ast.ReferentialAction) *ast.CreateForeignKey {
	return &ast.CreateForeignKey{TableName: tbl, ForeignKeyDef: ast.ForeignKeyDef{
		Name:      "FK_" + tbl + "_" + refTable + "_" + column,
		Column:    column,
		RefTable:  refTable,
		RefColumn: "Id",
		OnDelete:  onDelete,
	}}
}

func ix(tbl string, cols ...string) *ast.CreateIndex {
	return &ast.CreateIndex{TableName: tbl, IndexDef: ast.IndexDef{
		Name:    "IX_" + tbl + "_" + strings.Join(cols, "_"),
		Columns: cols,
	}}
}

func ux(tbl string, cols ...string) *ast.CreateIndex {
	return &ast.CreateIndex{TableName: tbl, IndexDef: ast.IndexDef{
		Name:    "UX_" + tbl + "_" + strings.Join(cols, "_"),
		Columns: cols,
		Unique:  true,
	}}
}

// dropTables drops tables in the order given.
func dropTables(names ...string) []ast.Operation {
	ops := make([]ast.Operation, len(names))
	for i, n := range names {
		ops[i] = &ast.DropTable{Name: n}
	}
	return ops
}

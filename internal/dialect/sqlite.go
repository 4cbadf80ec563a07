package dialect

import (
	"github.com/hlop3z/hisdb/internal/alerr"
	"github.com/hlop3z/hisdb/internal/ast"
)

// sqlite implements the Dialect interface for SQLite.
type sqlite struct {
	quote QuoteIdentFunc
}

// SQLite returns the SQLite dialect implementation.
func SQLite() Dialect {
	return &sqlite{quote: quoteWith(`"`)}
}

func (d *sqlite) Name() string {
	return "sqlite"
}

// Capabilities: partial indexes exist, but foreign keys can only be
// declared in CREATE TABLE.
func (d *sqlite) Capabilities() Capabilities {
	return Capabilities{
		FilteredIndexes:  true,
		AlterForeignKeys: false,
		TransactionalDDL: true,
	}
}

// -----------------------------------------------------------------------------
// Type mappings
// SQLite has dynamic typing with type affinities: TEXT, INTEGER, REAL, BLOB.
// -----------------------------------------------------------------------------

func (d *sqlite) GuidType() string            { return "TEXT" }
func (d *sqlite) StringType(int) string       { return "TEXT" }
func (d *sqlite) IntegerType() string         { return "INTEGER" }
func (d *sqlite) BigIntType() string          { return "INTEGER" }
func (d *sqlite) DecimalType(int, int) string { return "NUMERIC" }
func (d *sqlite) DoubleType() string          { return "REAL" }
func (d *sqlite) DateTimeType() string        { return "TEXT" }
func (d *sqlite) DateType() string            { return "TEXT" }
func (d *sqlite) BooleanType() string         { return "INTEGER" }
func (d *sqlite) TimeSpanType() string        { return "TEXT" }
func (d *sqlite) BinaryType(int) string       { return "BLOB" }

// -----------------------------------------------------------------------------
// Identifiers
// -----------------------------------------------------------------------------

func (d *sqlite) QuoteIdent(name string) string {
	return d.quote(name)
}

func (d *sqlite) Placeholder(int) string {
	return "?"
}

// -----------------------------------------------------------------------------
// SQL generation
// -----------------------------------------------------------------------------

func (d *sqlite) CreateTableSQL(op *ast.CreateTable, fks []*ast.ForeignKeyDef) (string, error) {
	return buildCreateTableSQL(op, false, d.quote, d, fks)
}

func (d *sqlite) CreateTableIfNotExistsSQL(op *ast.CreateTable) (string, error) {
	return buildCreateTableSQL(op, true, d.quote, d, nil)
}

func (d *sqlite) DropTableSQL(op *ast.DropTable) (string, error) {
	return buildDropTableSQL(op, d.quote)
}

func (d *sqlite) AddColumnSQL(op *ast.AddColumn) (string, error) {
	return buildAddColumnSQL(op, d.quote, d)
}

// DropColumnSQL requires SQLite 3.35.0+.
func (d *sqlite) DropColumnSQL(op *ast.DropColumn) (string, error) {
	return buildDropColumnSQL(op, d.quote)
}

func (d *sqlite) CreateForeignKeySQL(op *ast.CreateForeignKey) (string, error) {
	return "", sqliteUnsupported("ALTER TABLE ADD FOREIGN KEY", op.TableName, op.Name)
}

func (d *sqlite) DropForeignKeySQL(op *ast.DropForeignKey) (string, error) {
	return "", sqliteUnsupported("ALTER TABLE DROP FOREIGN KEY", op.TableName, op.Name)
}

func (d *sqlite) CreateIndexSQL(op *ast.CreateIndex) (string, error) {
	return buildCreateIndexSQL(op, d.quote)
}

func (d *sqlite) DropIndexSQL(op *ast.DropIndex) (string, error) {
	return buildDropIndexSQL(op, d.quote)
}

// sqliteUnsupported returns a standardized error for unsupported ALTER TABLE forms.
func sqliteUnsupported(feature, table, name string) *alerr.Error {
	return alerr.NewUnsupportedError("sqlite", feature).
		WithTable(table).
		With("foreign_key", name).
		WithHelp("declare the foreign key in the same migration as its CREATE TABLE")
}

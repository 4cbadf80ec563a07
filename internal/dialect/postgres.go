package dialect

import (
	"fmt"
	"strconv"

	"github.com/hlop3z/hisdb/internal/ast"
)

// postgres implements the Dialect interface for PostgreSQL.
type postgres struct {
	quote QuoteIdentFunc
}

// Postgres returns the PostgreSQL dialect implementation.
func Postgres() Dialect {
	return &postgres{quote: quoteWith(`"`)}
}

func (d *postgres) Name() string {
	return "postgres"
}

func (d *postgres) Capabilities() Capabilities {
	return Capabilities{
		FilteredIndexes:  true,
		AlterForeignKeys: true,
		TransactionalDDL: true,
	}
}

// -----------------------------------------------------------------------------
// Type mappings
// -----------------------------------------------------------------------------

func (d *postgres) GuidType() string { return "UUID" }

func (d *postgres) StringType(length int) string {
	if length <= 0 {
		return "TEXT"
	}
	return fmt.Sprintf("VARCHAR(%d)", length)
}

func (d *postgres) IntegerType() string { return "INTEGER" }
func (d *postgres) BigIntType() string  { return "BIGINT" }

func (d *postgres) DecimalType(precision, scale int) string {
	return fmt.Sprintf("NUMERIC(%d, %d)", precision, scale)
}

func (d *postgres) DoubleType() string   { return "DOUBLE PRECISION" }
func (d *postgres) DateTimeType() string { return "TIMESTAMPTZ" }
func (d *postgres) DateType() string     { return "DATE" }
func (d *postgres) BooleanType() string  { return "BOOLEAN" }
func (d *postgres) TimeSpanType() string { return "INTERVAL" }
func (d *postgres) BinaryType(int) string {
	return "BYTEA"
}

// -----------------------------------------------------------------------------
// Identifiers
// -----------------------------------------------------------------------------

func (d *postgres) QuoteIdent(name string) string {
	return d.quote(name)
}

func (d *postgres) Placeholder(index int) string {
	return "$" + strconv.Itoa(index)
}

// -----------------------------------------------------------------------------
// SQL generation
// -----------------------------------------------------------------------------

func (d *postgres) CreateTableSQL(op *ast.CreateTable, fks []*ast.ForeignKeyDef) (string, error) {
	return buildCreateTableSQL(op, false, d.quote, d, fks)
}

func (d *postgres) CreateTableIfNotExistsSQL(op *ast.CreateTable) (string, error) {
	return buildCreateTableSQL(op, true, d.quote, d, nil)
}

func (d *postgres) DropTableSQL(op *ast.DropTable) (string, error) {
	return buildDropTableSQL(op, d.quote)
}

func (d *postgres) AddColumnSQL(op *ast.AddColumn) (string, error) {
	return buildAddColumnSQL(op, d.quote, d)
}

func (d *postgres) DropColumnSQL(op *ast.DropColumn) (string, error) {
	return buildDropColumnSQL(op, d.quote)
}

func (d *postgres) CreateForeignKeySQL(op *ast.CreateForeignKey) (string, error) {
	return buildAddForeignKeySQL(op, d.quote)
}

func (d *postgres) DropForeignKeySQL(op *ast.DropForeignKey) (string, error) {
	return "ALTER TABLE " + d.quote(op.TableName) + " DROP CONSTRAINT " + d.quote(op.Name), nil
}

func (d *postgres) CreateIndexSQL(op *ast.CreateIndex) (string, error) {
	return buildCreateIndexSQL(op, d.quote)
}

func (d *postgres) DropIndexSQL(op *ast.DropIndex) (string, error) {
	return buildDropIndexSQL(op, d.quote)
}

package dialect

import (
	"fmt"

	"github.com/hlop3z/hisdb/internal/ast"
)

// mysql implements the Dialect interface for MySQL and MariaDB.
type mysql struct {
	quote QuoteIdentFunc
}

// MySQL returns the MySQL dialect implementation.
func MySQL() Dialect {
	return &mysql{quote: quoteWith("`")}
}

func (d *mysql) Name() string {
	return "mysql"
}

// Capabilities: no partial indexes, and DDL commits implicitly.
func (d *mysql) Capabilities() Capabilities {
	return Capabilities{
		FilteredIndexes:  false,
		AlterForeignKeys: true,
		TransactionalDDL: false,
	}
}

// -----------------------------------------------------------------------------
// Type mappings
// -----------------------------------------------------------------------------

func (d *mysql) GuidType() string { return "CHAR(36)" }

func (d *mysql) StringType(length int) string {
	if length <= 0 {
		return "LONGTEXT"
	}
	return fmt.Sprintf("VARCHAR(%d)", length)
}

func (d *mysql) IntegerType() string { return "INT" }
func (d *mysql) BigIntType() string  { return "BIGINT" }

func (d *mysql) DecimalType(precision, scale int) string {
	return fmt.Sprintf("DECIMAL(%d, %d)", precision, scale)
}

func (d *mysql) DoubleType() string { return "DOUBLE" }

// DateTimeType has no fractional seconds so DEFAULT CURRENT_TIMESTAMP stays valid.
func (d *mysql) DateTimeType() string { return "DATETIME" }

func (d *mysql) DateType() string     { return "DATE" }
func (d *mysql) BooleanType() string  { return "BOOLEAN" }
func (d *mysql) TimeSpanType() string { return "TIME(6)" }

func (d *mysql) BinaryType(length int) string {
	if length <= 0 {
		return "LONGBLOB"
	}
	return fmt.Sprintf("VARBINARY(%d)", length)
}

// -----------------------------------------------------------------------------
// Identifiers
// -----------------------------------------------------------------------------

func (d *mysql) QuoteIdent(name string) string {
	return d.quote(name)
}

func (d *mysql) Placeholder(int) string {
	return "?"
}

// -----------------------------------------------------------------------------
// SQL generation
// -----------------------------------------------------------------------------

func (d *mysql) CreateTableSQL(op *ast.CreateTable, fks []*ast.ForeignKeyDef) (string, error) {
	return buildCreateTableSQL(op, false, d.quote, d, fks)
}

func (d *mysql) CreateTableIfNotExistsSQL(op *ast.CreateTable) (string, error) {
	return buildCreateTableSQL(op, true, d.quote, d, nil)
}

func (d *mysql) DropTableSQL(op *ast.DropTable) (string, error) {
	return buildDropTableSQL(op, d.quote)
}

func (d *mysql) AddColumnSQL(op *ast.AddColumn) (string, error) {
	return buildAddColumnSQL(op, d.quote, d)
}

func (d *mysql) DropColumnSQL(op *ast.DropColumn) (string, error) {
	return buildDropColumnSQL(op, d.quote)
}

func (d *mysql) CreateForeignKeySQL(op *ast.CreateForeignKey) (string, error) {
	return buildAddForeignKeySQL(op, d.quote)
}

func (d *mysql) DropForeignKeySQL(op *ast.DropForeignKey) (string, error) {
	return "ALTER TABLE " + d.quote(op.TableName) + " DROP FOREIGN KEY " + d.quote(op.Name), nil
}

// CreateIndexSQL ignores Filter; the translator rejects filtered indexes first.
func (d *mysql) CreateIndexSQL(op *ast.CreateIndex) (string, error) {
	plain := *op
	plain.Filter = ""
	return buildCreateIndexSQL(&plain, d.quote)
}

// DropIndexSQL names the table; MySQL index names are per table.
func (d *mysql) DropIndexSQL(op *ast.DropIndex) (string, error) {
	return "DROP INDEX " + d.quote(op.Name) + " ON " + d.quote(op.TableName), nil
}

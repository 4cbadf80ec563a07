// Package dialect provides database-specific SQL generation.
// This file contains shared helper functions used by all dialect implementations.
package dialect

import (
	"strings"

	"github.com/hlop3z/hisdb/internal/ast"
)

// QuoteIdentFunc is a function that quotes an identifier.
type QuoteIdentFunc func(name string) string

// quoteWith returns a QuoteIdentFunc wrapping names in q and doubling any q inside.
func quoteWith(q string) QuoteIdentFunc {
	return func(name string) string {
		return q + strings.ReplaceAll(name, q, q+q) + q
	}
}

// writeQuotedList writes comma-separated quoted identifiers to the builder.
func writeQuotedList(b *strings.Builder, items []string, quote QuoteIdentFunc) {
	for i, item := range items {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(quote(item))
	}
}

// buildColumnTypeSQL returns the SQL type for a column using the type mapper.
func buildColumnTypeSQL(col *ast.ColumnDef, mapper TypeMapper) string {
	switch col.Type {
	case ast.TypeGuid:
		return mapper.GuidType()
	case ast.TypeString:
		return mapper.StringType(col.MaxLength)
	case ast.TypeInt:
		return mapper.IntegerType()
	case ast.TypeLong:
		return mapper.BigIntType()
	case ast.TypeDecimal:
		precision, scale := col.Precision, col.Scale
		if precision == 0 {
			precision, scale = 18, 2
		}
		return mapper.DecimalType(precision, scale)
	case ast.TypeDouble:
		return mapper.DoubleType()
	case ast.TypeDateTime:
		return mapper.DateTimeType()
	case ast.TypeDate:
		return mapper.DateType()
	case ast.TypeBool:
		return mapper.BooleanType()
	case ast.TypeTimeSpan:
		return mapper.TimeSpanType()
	case ast.TypeBinary:
		return mapper.BinaryType(col.MaxLength)
	default:
		return mapper.StringType(0)
	}
}

// buildColumnDefSQL renders "name TYPE [NOT NULL] [DEFAULT expr]".
func buildColumnDefSQL(col *ast.ColumnDef, quoteIdent QuoteIdentFunc, mapper TypeMapper) string {
	var b strings.Builder

	b.WriteString(quoteIdent(col.Name))
	b.WriteString(" ")
	b.WriteString(buildColumnTypeSQL(col, mapper))
	if !col.Nullable {
		b.WriteString(" NOT NULL")
	}
	if col.HasDefault() {
		b.WriteString(" DEFAULT ")
		b.WriteString(col.Default)
	}
	return b.String()
}

// buildForeignKeyConstraintSQL renders a CONSTRAINT ... FOREIGN KEY clause.
func buildForeignKeyConstraintSQL(fk *ast.ForeignKeyDef, quoteIdent QuoteIdentFunc) string {
	var b strings.Builder

	b.WriteString("CONSTRAINT ")
	b.WriteString(quoteIdent(fk.Name))
	b.WriteString(" FOREIGN KEY (")
	b.WriteString(quoteIdent(fk.Column))
	b.WriteString(") REFERENCES ")
	b.WriteString(quoteIdent(fk.RefTable))
	b.WriteString(" (")
	b.WriteString(quoteIdent(fk.RefColumn))
	b.WriteString(") ON DELETE ")
	b.WriteString(fk.OnDelete.String())

	return b.String()
}

// buildCreateTableSQL renders CREATE TABLE with columns in declared order,
// the declared primary key and any folded foreign keys.
func buildCreateTableSQL(op *ast.CreateTable, ifNotExists bool, quoteIdent QuoteIdentFunc, mapper TypeMapper, fks []*ast.ForeignKeyDef) (string, error) {
	var b strings.Builder

	b.WriteString("CREATE TABLE ")
	if ifNotExists {
		b.WriteString("IF NOT EXISTS ")
	}
	b.WriteString(quoteIdent(op.Name))
	b.WriteString(" (\n")

	for i, col := range op.Columns {
		if i > 0 {
			b.WriteString(",\n")
		}
		b.WriteString("  ")
		b.WriteString(buildColumnDefSQL(col, quoteIdent, mapper))
	}

	if len(op.PrimaryKey) > 0 {
		b.WriteString(",\n  CONSTRAINT ")
		b.WriteString(quoteIdent("PK_" + op.Name))
		b.WriteString(" PRIMARY KEY (")
		writeQuotedList(&b, op.PrimaryKey, quoteIdent)
		b.WriteString(")")
	}

	for _, fk := range fks {
		b.WriteString(",\n  ")
		b.WriteString(buildForeignKeyConstraintSQL(fk, quoteIdent))
	}

	b.WriteString("\n)")
	return b.String(), nil
}

// buildDropTableSQL renders DROP TABLE.
func buildDropTableSQL(op *ast.DropTable, quoteIdent QuoteIdentFunc) (string, error) {
	return "DROP TABLE " + quoteIdent(op.Name), nil
}

// buildAddColumnSQL renders ALTER TABLE ADD COLUMN.
func buildAddColumnSQL(op *ast.AddColumn, quoteIdent QuoteIdentFunc, mapper TypeMapper) (string, error) {
	return "ALTER TABLE " + quoteIdent(op.TableName) +
		" ADD COLUMN " + buildColumnDefSQL(op.Column, quoteIdent, mapper), nil
}

// buildDropColumnSQL renders ALTER TABLE DROP COLUMN.
func buildDropColumnSQL(op *ast.DropColumn, quoteIdent QuoteIdentFunc) (string, error) {
	return "ALTER TABLE " + quoteIdent(op.TableName) + " DROP COLUMN " + quoteIdent(op.Name), nil
}

// buildAddForeignKeySQL renders ALTER TABLE ADD CONSTRAINT ... FOREIGN KEY.
func buildAddForeignKeySQL(op *ast.CreateForeignKey, quoteIdent QuoteIdentFunc) (string, error) {
	return "ALTER TABLE " + quoteIdent(op.TableName) +
		" ADD " + buildForeignKeyConstraintSQL(&op.ForeignKeyDef, quoteIdent), nil
}

// buildCreateIndexSQL renders CREATE [UNIQUE] INDEX, with a WHERE clause
// for filtered indexes. Callers check filtered-index support first.
func buildCreateIndexSQL(op *ast.CreateIndex, quoteIdent QuoteIdentFunc) (string, error) {
	var b strings.Builder

	b.WriteString("CREATE ")
	if op.Unique {
		b.WriteString("UNIQUE ")
	}
	b.WriteString("INDEX ")
	b.WriteString(quoteIdent(op.Name))
	b.WriteString(" ON ")
	b.WriteString(quoteIdent(op.TableName))
	b.WriteString(" (")
	writeQuotedList(&b, op.Columns, quoteIdent)
	b.WriteString(")")
	if op.Filter != "" {
		b.WriteString(" WHERE ")
		b.WriteString(renderFilter(op.Filter, quoteIdent))
	}

	return b.String(), nil
}

// renderFilter replaces [Column] references with dialect-quoted identifiers.
func renderFilter(filter string, quoteIdent QuoteIdentFunc) string {
	return ast.RenderFilter(filter, quoteIdent)
}

// buildDropIndexSQL renders DROP INDEX for dialects with schema-wide index names.
func buildDropIndexSQL(op *ast.DropIndex, quoteIdent QuoteIdentFunc) (string, error) {
	return "DROP INDEX " + quoteIdent(op.Name), nil
}

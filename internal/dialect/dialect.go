// Package dialect provides database-specific SQL generation.
// Each dialect maps logical column types to SQL, quotes identifiers,
// renders DDL for every schema operation and reports what the store
// can and cannot express.
package dialect

import (
	"sort"
	"strings"

	"github.com/hlop3z/hisdb/internal/alerr"
	"github.com/hlop3z/hisdb/internal/ast"
)

// TypeMapper maps logical column types to SQL types.
type TypeMapper interface {
	GuidType() string
	StringType(length int) string // length 0 means unbounded
	IntegerType() string
	BigIntType() string
	DecimalType(precision, scale int) string
	DoubleType() string
	DateTimeType() string
	DateType() string
	BooleanType() string
	TimeSpanType() string
	BinaryType(length int) string
}

// SQLFormatter covers identifier quoting and bind parameters.
type SQLFormatter interface {
	// QuoteIdent quotes an identifier (table/column name) for the dialect.
	// PostgreSQL/SQLite: "name", MySQL: `name`
	QuoteIdent(name string) string

	// Placeholder returns a parameter placeholder for the given index (1-based).
	// PostgreSQL: $1, $2, ...; SQLite/MySQL: ?
	Placeholder(index int) string
}

// DDLGenerator renders one statement per schema operation.
type DDLGenerator interface {
	// CreateTableSQL renders CREATE TABLE. fks are folded into the statement
	// as table constraints; dialects that can alter foreign keys get none.
	CreateTableSQL(op *ast.CreateTable, fks []*ast.ForeignKeyDef) (string, error)

	// CreateTableIfNotExistsSQL renders an idempotent CREATE TABLE.
	CreateTableIfNotExistsSQL(op *ast.CreateTable) (string, error)

	DropTableSQL(op *ast.DropTable) (string, error)
	AddColumnSQL(op *ast.AddColumn) (string, error)
	DropColumnSQL(op *ast.DropColumn) (string, error)
	CreateForeignKeySQL(op *ast.CreateForeignKey) (string, error)
	DropForeignKeySQL(op *ast.DropForeignKey) (string, error)
	CreateIndexSQL(op *ast.CreateIndex) (string, error)
	DropIndexSQL(op *ast.DropIndex) (string, error)
}

// Capabilities describes optional store features the translator checks
// before rendering.
type Capabilities struct {
	// FilteredIndexes is true when CREATE INDEX ... WHERE is supported.
	FilteredIndexes bool

	// AlterForeignKeys is true when foreign keys can be added to and dropped
	// from existing tables. Without it, foreign keys must be declared in
	// CREATE TABLE.
	AlterForeignKeys bool

	// TransactionalDDL is true when DDL participates in transactions.
	// MySQL commits implicitly on DDL.
	TransactionalDDL bool
}

// Dialect defines the interface for database-specific SQL generation.
type Dialect interface {
	// Name returns the dialect name (postgres, sqlite, mysql).
	Name() string

	// Capabilities reports optional features.
	Capabilities() Capabilities

	TypeMapper
	SQLFormatter
	DDLGenerator
}

var registry = map[string]func() Dialect{
	"postgres":   Postgres,
	"postgresql": Postgres,
	"sqlite":     SQLite,
	"sqlite3":    SQLite,
	"mysql":      MySQL,
	"mariadb":    MySQL,
}

// Get returns the dialect implementation for the given name.
// Returns nil if the dialect is not supported.
func Get(name string) Dialect {
	if fn, ok := registry[strings.ToLower(name)]; ok {
		return fn()
	}
	return nil
}

// MustGet is like Get but returns an ErrUnsupportedDialect error for unknown names.
func MustGet(name string) (Dialect, error) {
	if d := Get(name); d != nil {
		return d, nil
	}
	return nil, alerr.New(alerr.ErrUnsupportedDialect, "unsupported dialect").
		With("dialect", name).
		WithHelp(alerr.SuggestSimilar(name, Names()))
}

// Names returns the canonical supported dialect names.
func Names() []string {
	names := []string{"mysql", "postgres", "sqlite"}
	sort.Strings(names)
	return names
}

package ast

import (
	"fmt"
	"regexp"
	"slices"

	"github.com/hlop3z/hisdb/internal/alerr"
)

// Validation messages shared across the descriptors and their operations.
const (
	msgTableNameRequired  = "table name is required"
	msgColumnNameRequired = "column name is required"
	msgTableNeedsColumn   = "table must have at least one column"
	msgIndexNeedsColumn   = "index must have at least one column"
	msgIndexNameRequired  = "index name is required"
	msgFKNameRequired     = "foreign key name is required"
	msgFKNeedsColumn      = "foreign key must name a column"
	msgFKNeedsRefTable    = "foreign key must reference a table"
	msgFKNeedsRefColumn   = "foreign key must reference a column"
)

// validIdentifierPattern matches identifiers that need no escaping beyond quoting.
var validIdentifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// maxIdentifierLength is the shortest limit among supported stores (MySQL).
const maxIdentifierLength = 64

// ValidateIdentifier checks that a name is a safe SQL identifier.
func ValidateIdentifier(name string) error {
	if !validIdentifierPattern.MatchString(name) {
		return alerr.New(alerr.ErrSchemaInvalid,
			fmt.Sprintf("invalid identifier %q; must match [A-Za-z_][A-Za-z0-9_]*", name))
	}
	if len(name) > maxIdentifierLength {
		return alerr.New(alerr.ErrSchemaInvalid,
			fmt.Sprintf("identifier %q exceeds %d characters", name, maxIdentifierLength))
	}
	return nil
}

// dangerousSQLPattern matches statement breaks and DDL/DML keywords in expressions.
var dangerousSQLPattern = regexp.MustCompile(
	`(?i)(;\s*|--|\b(DROP|ALTER|CREATE|GRANT|REVOKE|TRUNCATE|INSERT|UPDATE|DELETE|EXEC|EXECUTE|UNION|INTO|COPY|pg_read_file|lo_import|pg_sleep)\b)`,
)

// ValidateSQLExpression checks a raw SQL expression for dangerous patterns.
// Used for column defaults and index filters.
func ValidateSQLExpression(expr string) error {
	if expr == "" {
		return nil
	}
	if dangerousSQLPattern.MatchString(expr) {
		return alerr.New(alerr.ErrSchemaInvalid,
			"SQL expression contains potentially dangerous pattern").
			With("expression", expr).
			WithHelp("expressions must not contain ';', '--', or DDL/DML keywords (DROP, ALTER, CREATE, INSERT, UPDATE, DELETE, etc.)")
	}
	return nil
}

// -----------------------------------------------------------------------------
// TableDef - table descriptor
// -----------------------------------------------------------------------------

// TableDef describes a table: its columns in declaration order and its primary key.
type TableDef struct {
	Name       string
	Columns    []*ColumnDef
	PrimaryKey []string // Column names, in key order
}

// GetColumn returns a column by name, or nil if not found.
func (t *TableDef) GetColumn(name string) *ColumnDef {
	for _, c := range t.Columns {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// ColumnNames returns the column names in declaration order.
func (t *TableDef) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// Validate checks that the table descriptor is well-formed.
func (t *TableDef) Validate() error {
	if t.Name == "" {
		return alerr.New(alerr.ErrSchemaInvalid, msgTableNameRequired)
	}
	if err := ValidateIdentifier(t.Name); err != nil {
		return err
	}
	if len(t.Columns) == 0 {
		return alerr.New(alerr.ErrSchemaInvalid, msgTableNeedsColumn).WithTable(t.Name)
	}
	seen := make(map[string]bool, len(t.Columns))
	for _, col := range t.Columns {
		if err := col.Validate(); err != nil {
			return alerr.Wrap(alerr.ErrSchemaInvalid, err, "invalid column").
				WithTable(t.Name).
				WithColumn(col.Name)
		}
		if seen[col.Name] {
			return alerr.New(alerr.ErrSchemaDuplicate, "duplicate column").
				WithTable(t.Name).
				WithColumn(col.Name)
		}
		seen[col.Name] = true
	}
	for _, pk := range t.PrimaryKey {
		col := t.GetColumn(pk)
		if col == nil {
			return alerr.NewUnknownColumnError(t.Name, pk, t.ColumnNames()).
				With("constraint", "primary key")
		}
		if col.Nullable {
			return alerr.New(alerr.ErrSchemaInvalid, "primary key column cannot be nullable").
				WithTable(t.Name).
				WithColumn(pk)
		}
	}
	return nil
}

// Clone returns a deep copy of the table descriptor.
func (t *TableDef) Clone() *TableDef {
	out := &TableDef{
		Name:       t.Name,
		Columns:    make([]*ColumnDef, len(t.Columns)),
		PrimaryKey: slices.Clone(t.PrimaryKey),
	}
	for i, c := range t.Columns {
		cc := *c
		out.Columns[i] = &cc
	}
	return out
}

// -----------------------------------------------------------------------------
// ColumnDef - column descriptor
// -----------------------------------------------------------------------------

// ColumnDef describes a single column.
type ColumnDef struct {
	Name      string
	Type      LogicalType
	Nullable  bool
	Default   string // SQL expression; empty means no default
	MaxLength int    // String/Binary: 0 means unbounded
	Precision int    // Decimal only
	Scale     int    // Decimal only
}

// Validate checks that the column descriptor is well-formed.
func (c *ColumnDef) Validate() error {
	if c.Name == "" {
		return alerr.New(alerr.ErrSchemaInvalid, msgColumnNameRequired)
	}
	if err := ValidateIdentifier(c.Name); err != nil {
		return err
	}
	if !c.Type.Valid() {
		return alerr.New(alerr.ErrSchemaInvalid, "unknown column type").
			WithColumn(c.Name).
			With("type", int(c.Type))
	}
	if c.MaxLength < 0 {
		return alerr.New(alerr.ErrSchemaInvalid, "max length cannot be negative").WithColumn(c.Name)
	}
	if c.Type == TypeDecimal {
		if c.Precision < 0 || c.Scale < 0 || (c.Precision > 0 && c.Scale > c.Precision) {
			return alerr.New(alerr.ErrSchemaInvalid, "invalid decimal precision/scale").
				WithColumn(c.Name).
				With("precision", c.Precision).
				With("scale", c.Scale)
		}
	}
	return ValidateSQLExpression(c.Default)
}

// HasDefault returns true if the column declares a default expression.
func (c *ColumnDef) HasDefault() bool {
	return c.Default != ""
}

// -----------------------------------------------------------------------------
// IndexDef - index descriptor
// -----------------------------------------------------------------------------

// IndexDef describes an index. A non-empty Filter makes it a partial index.
type IndexDef struct {
	Name    string
	Columns []string // In key order
	Unique  bool
	Filter  string // Predicate; columns written as [Name], e.g. "[HAICaseId] IS NOT NULL"
}

// Validate checks that the index descriptor is well-formed.
func (i *IndexDef) Validate() error {
	if i.Name == "" {
		return alerr.New(alerr.ErrSchemaInvalid, msgIndexNameRequired)
	}
	if err := ValidateIdentifier(i.Name); err != nil {
		return err
	}
	if len(i.Columns) == 0 {
		return alerr.New(alerr.ErrSchemaInvalid, msgIndexNeedsColumn).With("index", i.Name)
	}
	for _, col := range i.Columns {
		if err := ValidateIdentifier(col); err != nil {
			return err
		}
	}
	return ValidateSQLExpression(i.Filter)
}

// filterColumnRef matches a [Column] reference inside a filter predicate.
var filterColumnRef = regexp.MustCompile(`\[([A-Za-z_][A-Za-z0-9_]*)\]`)

// FilterColumns returns the columns the filter references, each once, in
// order of first appearance.
func (i *IndexDef) FilterColumns() []string {
	var cols []string
	for _, m := range filterColumnRef.FindAllStringSubmatch(i.Filter, -1) {
		if !slices.Contains(cols, m[1]) {
			cols = append(cols, m[1])
		}
	}
	return cols
}

// RenderFilter replaces each [Column] reference in filter with quote(Column).
func RenderFilter(filter string, quote func(string) string) string {
	return filterColumnRef.ReplaceAllStringFunc(filter, func(m string) string {
		return quote(m[1 : len(m)-1])
	})
}

// -----------------------------------------------------------------------------
// ForeignKeyDef - foreign key descriptor
// -----------------------------------------------------------------------------

// ForeignKeyDef describes a single-column foreign key constraint.
// The owning table is carried by the operation.
type ForeignKeyDef struct {
	Name      string
	Column    string
	RefTable  string
	RefColumn string
	OnDelete  ReferentialAction

	// Deferred permits a self-reference or a reference to a table created
	// later in the same migration. The reference is checked at the end of
	// the migration and the constraint is emitted after all other statements.
	Deferred bool
}

// Validate checks that the foreign key descriptor is well-formed.
func (fk *ForeignKeyDef) Validate() error {
	if fk.Name == "" {
		return alerr.New(alerr.ErrSchemaInvalid, msgFKNameRequired)
	}
	if err := ValidateIdentifier(fk.Name); err != nil {
		return err
	}
	if fk.Column == "" {
		return alerr.New(alerr.ErrSchemaInvalid, msgFKNeedsColumn).With("foreign_key", fk.Name)
	}
	if fk.RefTable == "" {
		return alerr.New(alerr.ErrSchemaInvalid, msgFKNeedsRefTable).With("foreign_key", fk.Name)
	}
	if fk.RefColumn == "" {
		return alerr.New(alerr.ErrSchemaInvalid, msgFKNeedsRefColumn).With("foreign_key", fk.Name)
	}
	for _, id := range []string{fk.Column, fk.RefTable, fk.RefColumn} {
		if err := ValidateIdentifier(id); err != nil {
			return err
		}
	}
	if !fk.OnDelete.Valid() {
		return alerr.New(alerr.ErrSchemaInvalid, "invalid ON DELETE action").
			With("foreign_key", fk.Name).
			With("action", int(fk.OnDelete))
	}
	return nil
}

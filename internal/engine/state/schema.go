// Package state holds the in-memory schema model that migrations are
// replayed against. Every operation is checked here before any SQL is
// rendered, so reference errors surface without touching the store.
package state

import (
	"slices"
	"sort"

	"github.com/hlop3z/hisdb/internal/ast"
)

// Schema is the structural state of a database: its tables and, per table,
// the columns, foreign keys and indexes they carry.
type Schema struct {
	Tables map[string]*Table
}

// Table is one table in the model.
type Table struct {
	ast.TableDef
	ForeignKeys []*ast.ForeignKeyDef
	Indexes     []*ast.IndexDef
}

// NewSchema creates a new empty Schema.
func NewSchema() *Schema {
	return &Schema{Tables: make(map[string]*Table)}
}

// TableNames returns the table names in sorted order.
func (s *Schema) TableNames() []string {
	names := make([]string, 0, len(s.Tables))
	for name := range s.Tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Table returns a table by name, or nil.
func (s *Schema) Table(name string) *Table {
	return s.Tables[name]
}

// Clone returns a deep copy of the schema.
func (s *Schema) Clone() *Schema {
	out := NewSchema()
	for name, t := range s.Tables {
		out.Tables[name] = t.clone()
	}
	return out
}

func (t *Table) clone() *Table {
	out := &Table{
		TableDef:    *t.TableDef.Clone(),
		ForeignKeys: make([]*ast.ForeignKeyDef, len(t.ForeignKeys)),
		Indexes:     make([]*ast.IndexDef, len(t.Indexes)),
	}
	for i, fk := range t.ForeignKeys {
		c := *fk
		out.ForeignKeys[i] = &c
	}
	for i, idx := range t.Indexes {
		c := *idx
		c.Columns = slices.Clone(idx.Columns)
		out.Indexes[i] = &c
	}
	return out
}

// ForeignKey returns the named foreign key of the table, or nil.
func (t *Table) ForeignKey(name string) *ast.ForeignKeyDef {
	for _, fk := range t.ForeignKeys {
		if fk.Name == name {
			return fk
		}
	}
	return nil
}

// Index returns the named index of the table, or nil.
func (t *Table) Index(name string) *ast.IndexDef {
	for _, idx := range t.Indexes {
		if idx.Name == name {
			return idx
		}
	}
	return nil
}

// IsUniqueKey reports whether column alone identifies a row: it is the
// single-column primary key or has an unfiltered single-column unique index.
func (t *Table) IsUniqueKey(column string) bool {
	if len(t.PrimaryKey) == 1 && t.PrimaryKey[0] == column {
		return true
	}
	for _, idx := range t.Indexes {
		if idx.Unique && idx.Filter == "" && len(idx.Columns) == 1 && idx.Columns[0] == column {
			return true
		}
	}
	return false
}

// InboundForeignKeys returns the foreign keys of other tables that reference
// table, keyed by owning table name.
func (s *Schema) InboundForeignKeys(table string) map[string][]*ast.ForeignKeyDef {
	out := make(map[string][]*ast.ForeignKeyDef)
	for name, t := range s.Tables {
		if name == table {
			continue
		}
		for _, fk := range t.ForeignKeys {
			if fk.RefTable == table {
				out[name] = append(out[name], fk)
			}
		}
	}
	return out
}

// indexOwner returns the table holding an index with the given name.
func (s *Schema) indexOwner(name string) string {
	for tname, t := range s.Tables {
		if t.Index(name) != nil {
			return tname
		}
	}
	return ""
}

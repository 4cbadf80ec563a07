package state

import (
	"slices"

	"github.com/hlop3z/hisdb/internal/alerr"
	"github.com/hlop3z/hisdb/internal/ast"
)

// tableNotFoundErr creates a standard "table does not exist" error with fuzzy suggestions.
func tableNotFoundErr(schema *Schema, name string) *alerr.Error {
	return alerr.NewUnknownTableError(name, schema.TableNames())
}

// columnNotFoundErr creates a standard "column does not exist" error with fuzzy suggestions.
func columnNotFoundErr(table *Table, colName string) *alerr.Error {
	return alerr.NewUnknownColumnError(table.Name, colName, table.ColumnNames())
}

// lookupTable finds a table by name, returning a not-found error if missing.
func lookupTable(schema *Schema, name string) (*Table, error) {
	table, exists := schema.Tables[name]
	if !exists {
		return nil, tableNotFoundErr(schema, name)
	}
	return table, nil
}

// deferredRef is a foreign key whose referenced side is checked once the
// whole operation sequence has been applied.
type deferredRef struct {
	index int
	table string
	fk    *ast.ForeignKeyDef
}

// ReplayOperations applies a sequence of operations to an empty schema.
func ReplayOperations(ops []ast.Operation) (*Schema, error) {
	schema := NewSchema()
	if _, err := schema.ApplyAll(ops); err != nil {
		return nil, err
	}
	return schema, nil
}

// ApplyAll applies ops in order as one unit (one migration's Up or Down).
// Deferred foreign keys are resolved after the last operation. On error it
// returns the index of the offending operation; the schema is left in the
// state reached so far, so callers that need to roll back should Clone first.
func (s *Schema) ApplyAll(ops []ast.Operation) (int, error) {
	var deferred []deferredRef
	for i, op := range ops {
		if err := s.applyOperation(op, i, &deferred); err != nil {
			return i, err
		}
	}
	for _, d := range deferred {
		owner, ok := s.Tables[d.table]
		if !ok || owner.ForeignKey(d.fk.Name) == nil {
			// dropped again later in the same sequence
			continue
		}
		if err := s.checkReferenced(owner, d.fk); err != nil {
			return d.index, err
		}
	}
	return -1, nil
}

// Apply applies a single operation.
func (s *Schema) Apply(op ast.Operation) error {
	_, err := s.ApplyAll([]ast.Operation{op})
	return err
}

// applyOperation applies a single operation to the schema state.
func (s *Schema) applyOperation(op ast.Operation, index int, deferred *[]deferredRef) error {
	if op == nil {
		return alerr.New(alerr.ErrSchemaInvalid, "operation is nil")
	}
	if err := op.Validate(); err != nil {
		return err
	}
	switch o := op.(type) {
	case *ast.CreateTable:
		return applyCreateTable(s, o)
	case *ast.DropTable:
		return applyDropTable(s, o)
	case *ast.AddColumn:
		return applyAddColumn(s, o)
	case *ast.DropColumn:
		return applyDropColumn(s, o)
	case *ast.CreateForeignKey:
		return applyCreateForeignKey(s, o, index, deferred)
	case *ast.DropForeignKey:
		return applyDropForeignKey(s, o)
	case *ast.CreateIndex:
		return applyCreateIndex(s, o)
	case *ast.DropIndex:
		return applyDropIndex(s, o)
	default:
		return alerr.New(alerr.ErrSchemaInvalid, "unknown operation type").
			With("type", op.Type().String())
	}
}

// applyCreateTable adds a new table to the schema.
func applyCreateTable(schema *Schema, op *ast.CreateTable) error {
	if _, exists := schema.Tables[op.Name]; exists {
		return alerr.New(alerr.ErrSchemaDuplicate, "table already exists").
			WithTable(op.Name)
	}
	schema.Tables[op.Name] = &Table{TableDef: *op.TableDef.Clone()}
	return nil
}

// applyDropTable removes a table, refusing while other tables reference it.
// The table's own foreign keys and indexes go with it.
func applyDropTable(schema *Schema, op *ast.DropTable) error {
	if _, err := lookupTable(schema, op.Name); err != nil {
		return err
	}
	inbound := schema.InboundForeignKeys(op.Name)
	if len(inbound) > 0 {
		owners := make([]string, 0, len(inbound))
		for owner := range inbound {
			owners = append(owners, owner)
		}
		slices.Sort(owners)
		fk := inbound[owners[0]][0]
		return alerr.New(alerr.ErrTableReferenced, "table is still referenced by a foreign key").
			WithTable(op.Name).
			With("referenced_by", owners[0]).
			With("foreign_key", fk.Name).
			WithHelp("drop the foreign key earlier in the same migration")
	}
	delete(schema.Tables, op.Name)
	return nil
}

// applyAddColumn appends a column to an existing table.
func applyAddColumn(schema *Schema, op *ast.AddColumn) error {
	table, err := lookupTable(schema, op.TableName)
	if err != nil {
		return err
	}
	if table.GetColumn(op.Column.Name) != nil {
		return alerr.New(alerr.ErrSchemaDuplicate, "column already exists").
			WithTable(op.TableName).
			WithColumn(op.Column.Name)
	}
	col := *op.Column
	table.Columns = append(table.Columns, &col)
	return nil
}

// applyDropColumn removes a column that no key, index or foreign key uses.
func applyDropColumn(schema *Schema, op *ast.DropColumn) error {
	table, err := lookupTable(schema, op.TableName)
	if err != nil {
		return err
	}
	if table.GetColumn(op.Name) == nil {
		return columnNotFoundErr(table, op.Name)
	}
	if slices.Contains(table.PrimaryKey, op.Name) {
		return alerr.New(alerr.ErrSchemaInvalid, "cannot drop a primary key column").
			WithTable(op.TableName).
			WithColumn(op.Name)
	}
	if len(table.Columns) == 1 {
		return alerr.New(alerr.ErrSchemaInvalid, "cannot drop the last column of a table").
			WithTable(op.TableName).
			WithColumn(op.Name)
	}
	for _, fk := range table.ForeignKeys {
		if fk.Column == op.Name {
			return alerr.New(alerr.ErrTableReferenced, "column is used by a foreign key").
				WithTable(op.TableName).
				WithColumn(op.Name).
				With("foreign_key", fk.Name)
		}
	}
	for _, idx := range table.Indexes {
		if slices.Contains(idx.Columns, op.Name) {
			return alerr.New(alerr.ErrTableReferenced, "column is used by an index").
				WithTable(op.TableName).
				WithColumn(op.Name).
				With("index", idx.Name)
		}
	}
	for owner, fks := range schema.InboundForeignKeys(op.TableName) {
		for _, fk := range fks {
			if fk.RefColumn == op.Name {
				return alerr.New(alerr.ErrTableReferenced, "column is referenced by a foreign key").
					WithTable(op.TableName).
					WithColumn(op.Name).
					With("referenced_by", owner).
					With("foreign_key", fk.Name)
			}
		}
	}
	table.Columns = slices.DeleteFunc(table.Columns, func(c *ast.ColumnDef) bool {
		return c.Name == op.Name
	})
	return nil
}

// applyCreateForeignKey attaches a foreign key to its owning table. The
// referenced table must already exist unless the key is Deferred.
func applyCreateForeignKey(schema *Schema, op *ast.CreateForeignKey, index int, deferred *[]deferredRef) error {
	table, err := lookupTable(schema, op.TableName)
	if err != nil {
		return err
	}
	col := table.GetColumn(op.Column)
	if col == nil {
		return columnNotFoundErr(table, op.Column).With("foreign_key", op.Name)
	}
	if table.ForeignKey(op.Name) != nil {
		return alerr.New(alerr.ErrSchemaDuplicate, "foreign key already exists").
			WithTable(op.TableName).
			With("foreign_key", op.Name)
	}
	if op.OnDelete == ast.SetNull && !col.Nullable {
		return alerr.New(alerr.ErrSchemaInvalid, "ON DELETE SET NULL requires a nullable column").
			WithTable(op.TableName).
			WithColumn(op.Column).
			With("foreign_key", op.Name)
	}

	fk := op.ForeignKeyDef
	if op.SelfReference() && !op.Deferred {
		return alerr.New(alerr.ErrSchemaInvalid, "self-referencing foreign key must be deferred").
			WithTable(op.TableName).
			With("foreign_key", op.Name)
	}

	if _, exists := schema.Tables[op.RefTable]; !exists || op.Deferred {
		if !op.Deferred {
			return tableNotFoundErr(schema, op.RefTable).
				With("foreign_key", op.Name).
				With("owner", op.TableName)
		}
		*deferred = append(*deferred, deferredRef{index: index, table: op.TableName, fk: &fk})
	} else if err := schema.checkReferenced(table, &fk); err != nil {
		return err
	}

	table.ForeignKeys = append(table.ForeignKeys, &fk)
	return nil
}

// checkReferenced verifies the referenced side of a foreign key.
func (s *Schema) checkReferenced(owner *Table, fk *ast.ForeignKeyDef) error {
	ref, exists := s.Tables[fk.RefTable]
	if !exists {
		return tableNotFoundErr(s, fk.RefTable).
			With("foreign_key", fk.Name).
			With("owner", owner.Name)
	}
	refCol := ref.GetColumn(fk.RefColumn)
	if refCol == nil {
		return columnNotFoundErr(ref, fk.RefColumn).With("foreign_key", fk.Name)
	}
	if !ref.IsUniqueKey(fk.RefColumn) {
		return alerr.New(alerr.ErrSchemaInvalid, "referenced column is not a primary key or unique").
			WithTable(fk.RefTable).
			WithColumn(fk.RefColumn).
			With("foreign_key", fk.Name)
	}
	if col := owner.GetColumn(fk.Column); col != nil && col.Type != refCol.Type {
		return alerr.New(alerr.ErrSchemaInvalid, "foreign key column type does not match referenced column").
			WithTable(owner.Name).
			WithColumn(fk.Column).
			With("foreign_key", fk.Name).
			With("type", col.Type.String()).
			With("ref_type", refCol.Type.String())
	}
	return nil
}

// applyDropForeignKey removes a foreign key constraint from an existing table.
func applyDropForeignKey(schema *Schema, op *ast.DropForeignKey) error {
	table, err := lookupTable(schema, op.TableName)
	if err != nil {
		return err
	}
	if table.ForeignKey(op.Name) == nil {
		return alerr.New(alerr.ErrSchemaNotFound, "foreign key does not exist").
			WithTable(op.TableName).
			With("foreign_key", op.Name)
	}
	table.ForeignKeys = slices.DeleteFunc(table.ForeignKeys, func(fk *ast.ForeignKeyDef) bool {
		return fk.Name == op.Name
	})
	return nil
}

// applyCreateIndex adds an index to an existing table. Index names are
// unique across the schema.
func applyCreateIndex(schema *Schema, op *ast.CreateIndex) error {
	table, err := lookupTable(schema, op.TableName)
	if err != nil {
		return err
	}
	for _, c := range op.Columns {
		if table.GetColumn(c) == nil {
			return columnNotFoundErr(table, c).With("index", op.Name)
		}
	}
	for _, c := range op.FilterColumns() {
		if table.GetColumn(c) == nil {
			return columnNotFoundErr(table, c).
				With("index", op.Name).
				With("filter", op.Filter)
		}
	}
	if owner := schema.indexOwner(op.Name); owner != "" {
		return alerr.New(alerr.ErrSchemaDuplicate, "index already exists").
			WithTable(owner).
			With("index", op.Name)
	}
	idx := op.IndexDef
	idx.Columns = slices.Clone(op.Columns)
	table.Indexes = append(table.Indexes, &idx)
	return nil
}

// applyDropIndex removes an index from an existing table.
func applyDropIndex(schema *Schema, op *ast.DropIndex) error {
	table, err := lookupTable(schema, op.TableName)
	if err != nil {
		return err
	}
	if table.Index(op.Name) == nil {
		return alerr.New(alerr.ErrSchemaNotFound, "index does not exist").
			WithTable(op.TableName).
			With("index", op.Name)
	}
	table.Indexes = slices.DeleteFunc(table.Indexes, func(idx *ast.IndexDef) bool {
		return idx.Name == op.Name
	})
	return nil
}

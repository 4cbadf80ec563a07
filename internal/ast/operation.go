package ast

import (
	"github.com/hlop3z/hisdb/internal/alerr"
)

// Operation represents a single atomic change to the database schema.
// Operations are immutable once constructed.
type Operation interface {
	// Type returns the operation type (OpCreateTable, OpAddColumn, etc.)
	Type() OpType

	// Table returns the name of the table the operation targets.
	Table() string

	// Validate checks that the operation is well-formed on its own.
	// References to other tables are checked by the schema model.
	Validate() error
}

// -----------------------------------------------------------------------------
// CreateTable - creates a new table
// -----------------------------------------------------------------------------

// CreateTable creates a table with its columns in declared order and its
// declared primary key. Foreign keys and indexes are separate operations.
type CreateTable struct {
	TableDef
}

func (op *CreateTable) Type() OpType  { return OpCreateTable }
func (op *CreateTable) Table() string { return op.Name }

func (op *CreateTable) Validate() error {
	return op.TableDef.Validate()
}

// -----------------------------------------------------------------------------
// DropTable - removes an existing table
// -----------------------------------------------------------------------------

// DropTable represents dropping an existing table.
type DropTable struct {
	Name string
}

func (op *DropTable) Type() OpType  { return OpDropTable }
func (op *DropTable) Table() string { return op.Name }

func (op *DropTable) Validate() error {
	if op.Name == "" {
		return alerr.New(alerr.ErrSchemaInvalid, "table name is required for drop")
	}
	return nil
}

// -----------------------------------------------------------------------------
// AddColumn - adds a column to an existing table
// -----------------------------------------------------------------------------

// AddColumn represents adding a column to an existing table.
type AddColumn struct {
	TableName string
	Column    *ColumnDef
}

func (op *AddColumn) Type() OpType  { return OpAddColumn }
func (op *AddColumn) Table() string { return op.TableName }

func (op *AddColumn) Validate() error {
	if op.TableName == "" {
		return alerr.New(alerr.ErrSchemaInvalid, msgTableNameRequired)
	}
	if op.Column == nil {
		return alerr.New(alerr.ErrSchemaInvalid, "column definition is required").
			WithTable(op.TableName)
	}
	if err := op.Column.Validate(); err != nil {
		return alerr.Wrap(alerr.ErrSchemaInvalid, err, "invalid column").
			WithTable(op.TableName).
			WithColumn(op.Column.Name)
	}
	return nil
}

// -----------------------------------------------------------------------------
// DropColumn - removes a column
// -----------------------------------------------------------------------------

// DropColumn represents dropping a column from a table.
type DropColumn struct {
	TableName string
	Name      string
}

func (op *DropColumn) Type() OpType  { return OpDropColumn }
func (op *DropColumn) Table() string { return op.TableName }

func (op *DropColumn) Validate() error {
	if op.TableName == "" {
		return alerr.New(alerr.ErrSchemaInvalid, msgTableNameRequired)
	}
	if op.Name == "" {
		return alerr.New(alerr.ErrSchemaInvalid, msgColumnNameRequired).
			WithTable(op.TableName)
	}
	return nil
}

// -----------------------------------------------------------------------------
// CreateForeignKey - adds a foreign key constraint
// -----------------------------------------------------------------------------

// CreateForeignKey adds a foreign key from TableName.Column to RefTable.RefColumn.
type CreateForeignKey struct {
	TableName string
	ForeignKeyDef
}

func (op *CreateForeignKey) Type() OpType  { return OpCreateForeignKey }
func (op *CreateForeignKey) Table() string { return op.TableName }

func (op *CreateForeignKey) Validate() error {
	if op.TableName == "" {
		return alerr.New(alerr.ErrSchemaInvalid, msgTableNameRequired)
	}
	if err := op.ForeignKeyDef.Validate(); err != nil {
		return alerr.Wrap(alerr.ErrSchemaInvalid, err, "invalid foreign key").
			WithTable(op.TableName)
	}
	return nil
}

// SelfReference reports whether the key references its own table.
func (op *CreateForeignKey) SelfReference() bool {
	return op.TableName == op.RefTable
}

// -----------------------------------------------------------------------------
// DropForeignKey - removes a foreign key constraint
// -----------------------------------------------------------------------------

// DropForeignKey represents dropping a foreign key constraint.
type DropForeignKey struct {
	TableName string
	Name      string
}

func (op *DropForeignKey) Type() OpType  { return OpDropForeignKey }
func (op *DropForeignKey) Table() string { return op.TableName }

func (op *DropForeignKey) Validate() error {
	if op.TableName == "" {
		return alerr.New(alerr.ErrSchemaInvalid, msgTableNameRequired)
	}
	if op.Name == "" {
		return alerr.New(alerr.ErrSchemaInvalid, msgFKNameRequired).WithTable(op.TableName)
	}
	return nil
}

// -----------------------------------------------------------------------------
// CreateIndex - creates an index
// -----------------------------------------------------------------------------

// CreateIndex represents creating an index, optionally unique and/or filtered.
type CreateIndex struct {
	TableName string
	IndexDef
}

func (op *CreateIndex) Type() OpType  { return OpCreateIndex }
func (op *CreateIndex) Table() string { return op.TableName }

func (op *CreateIndex) Validate() error {
	if op.TableName == "" {
		return alerr.New(alerr.ErrSchemaInvalid, msgTableNameRequired)
	}
	if err := op.IndexDef.Validate(); err != nil {
		return alerr.Wrap(alerr.ErrSchemaInvalid, err, "invalid index").
			WithTable(op.TableName)
	}
	return nil
}

// -----------------------------------------------------------------------------
// DropIndex - drops an index
// -----------------------------------------------------------------------------

// DropIndex represents dropping an index.
type DropIndex struct {
	TableName string
	Name      string
}

func (op *DropIndex) Type() OpType  { return OpDropIndex }
func (op *DropIndex) Table() string { return op.TableName }

func (op *DropIndex) Validate() error {
	if op.TableName == "" {
		return alerr.New(alerr.ErrSchemaInvalid, msgTableNameRequired)
	}
	if op.Name == "" {
		return alerr.New(alerr.ErrSchemaInvalid, msgIndexNameRequired).WithTable(op.TableName)
	}
	return nil
}

// Describe returns a short human-readable label for an operation,
// e.g. "CreateIndex IX_Patients_MRN on Patients".
func Describe(op Operation) string {
	name := ""
	switch o := op.(type) {
	case *CreateForeignKey:
		name = o.Name
	case *DropForeignKey:
		name = o.Name
	case *CreateIndex:
		name = o.Name
	case *DropIndex:
		name = o.Name
	case *AddColumn:
		if o.Column != nil {
			name = o.Column.Name
		}
	case *DropColumn:
		name = o.Name
	}
	if name == "" {
		return op.Type().String() + " " + op.Table()
	}
	return op.Type().String() + " " + name + " on " + op.Table()
}

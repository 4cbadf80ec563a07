// Package ast defines the schema operations a migration is made of.
// Operations are dialect-neutral descriptors; the dialect package renders
// them to SQL and the state package replays them against an in-memory model.
package ast

// OpType represents the type of a schema operation.
type OpType int

const (
	// OpCreateTable creates a new table with its columns and primary key.
	OpCreateTable OpType = iota

	// OpDropTable removes an existing table.
	OpDropTable

	// OpAddColumn adds a new column to an existing table.
	OpAddColumn

	// OpDropColumn removes a column from an existing table.
	OpDropColumn

	// OpCreateForeignKey adds a foreign key constraint.
	OpCreateForeignKey

	// OpDropForeignKey removes a foreign key constraint.
	OpDropForeignKey

	// OpCreateIndex creates a new index on one or more columns.
	OpCreateIndex

	// OpDropIndex removes an existing index.
	OpDropIndex
)

// OpTypes lists every operation type in declaration order.
var OpTypes = []OpType{
	OpCreateTable, OpDropTable, OpAddColumn, OpDropColumn,
	OpCreateForeignKey, OpDropForeignKey, OpCreateIndex, OpDropIndex,
}

// String returns the string representation of an OpType.
func (o OpType) String() string {
	switch o {
	case OpCreateTable:
		return "CreateTable"
	case OpDropTable:
		return "DropTable"
	case OpAddColumn:
		return "AddColumn"
	case OpDropColumn:
		return "DropColumn"
	case OpCreateForeignKey:
		return "CreateForeignKey"
	case OpDropForeignKey:
		return "DropForeignKey"
	case OpCreateIndex:
		return "CreateIndex"
	case OpDropIndex:
		return "DropIndex"
	default:
		return "Unknown"
	}
}

// LogicalType is a store-independent column type. Dialects map each value
// to a concrete SQL type.
type LogicalType int

const (
	TypeGuid LogicalType = iota
	TypeString
	TypeInt
	TypeLong
	TypeDecimal
	TypeDouble
	TypeDateTime
	TypeDate
	TypeBool
	TypeTimeSpan
	TypeBinary
)

func (t LogicalType) String() string {
	switch t {
	case TypeGuid:
		return "Guid"
	case TypeString:
		return "String"
	case TypeInt:
		return "Int"
	case TypeLong:
		return "Long"
	case TypeDecimal:
		return "Decimal"
	case TypeDouble:
		return "Double"
	case TypeDateTime:
		return "DateTime"
	case TypeDate:
		return "Date"
	case TypeBool:
		return "Bool"
	case TypeTimeSpan:
		return "TimeSpan"
	case TypeBinary:
		return "Binary"
	default:
		return "Unknown"
	}
}

// Valid reports whether t is a known logical type.
func (t LogicalType) Valid() bool {
	return t >= TypeGuid && t <= TypeBinary
}

// ReferentialAction is the ON DELETE behavior of a foreign key.
// The zero value is NoAction.
type ReferentialAction int

const (
	NoAction ReferentialAction = iota
	Cascade
	Restrict
	SetNull
)

// String returns the SQL spelling of the action.
func (a ReferentialAction) String() string {
	switch a {
	case NoAction:
		return "NO ACTION"
	case Cascade:
		return "CASCADE"
	case Restrict:
		return "RESTRICT"
	case SetNull:
		return "SET NULL"
	default:
		return "UNKNOWN"
	}
}

// Valid reports whether a is a known action.
func (a ReferentialAction) Valid() bool {
	return a >= NoAction && a <= SetNull
}

package hisdb

import (
	"github.com/hlop3z/hisdb/internal/alerr"
	"github.com/hlop3z/hisdb/internal/ast"
	"github.com/hlop3z/hisdb/internal/drift"
	"github.com/hlop3z/hisdb/internal/engine"
	"github.com/hlop3z/hisdb/internal/engine/state"
)

// Migration registry types.
type (
	Migration       = engine.Migration
	MigrationRecord = engine.MigrationRecord
	MigrationStatus = engine.MigrationStatus
	Direction       = engine.Direction
	Step            = engine.Step
	PlanOptions     = engine.PlanOptions
	ApplyOption     = engine.ApplyOption
	VerifyReport    = engine.VerifyReport
	NameMismatch    = engine.NameMismatch
	LockInfo        = engine.LockInfo
	SchemaChange    = drift.Comparison
	Schema          = state.Schema
)

const (
	Up   = engine.Up
	Down = engine.Down
)

// To stops Apply after the migration with the given ID.
func To(id string) ApplyOption { return engine.To(id) }

// Schema operations.
type (
	Operation         = ast.Operation
	CreateTable       = ast.CreateTable
	DropTable         = ast.DropTable
	AddColumn         = ast.AddColumn
	DropColumn        = ast.DropColumn
	CreateForeignKey  = ast.CreateForeignKey
	DropForeignKey    = ast.DropForeignKey
	CreateIndex       = ast.CreateIndex
	DropIndex         = ast.DropIndex
	TableDef          = ast.TableDef
	ColumnDef         = ast.ColumnDef
	IndexDef          = ast.IndexDef
	ForeignKeyDef     = ast.ForeignKeyDef
	LogicalType       = ast.LogicalType
	ReferentialAction = ast.ReferentialAction
)

// Column types.
const (
	TypeGuid     = ast.TypeGuid
	TypeString   = ast.TypeString
	TypeInt      = ast.TypeInt
	TypeLong     = ast.TypeLong
	TypeDecimal  = ast.TypeDecimal
	TypeDouble   = ast.TypeDouble
	TypeDateTime = ast.TypeDateTime
	TypeDate     = ast.TypeDate
	TypeBool     = ast.TypeBool
	TypeTimeSpan = ast.TypeTimeSpan
	TypeBinary   = ast.TypeBinary
)

// ON DELETE actions.
const (
	NoAction = ast.NoAction
	Cascade  = ast.Cascade
	Restrict = ast.Restrict
	SetNull  = ast.SetNull
)

// Code identifies a class of error.
type Code = alerr.Code

// Error codes callers commonly branch on.
const (
	ErrMigrationFailed        = alerr.ErrMigrationFailed
	ErrMigrationNotFound      = alerr.ErrMigrationNotFound
	ErrDuplicateMigrationID   = alerr.ErrDuplicateMigrationID
	ErrRegistryUnordered      = alerr.ErrRegistryUnordered
	ErrCancelled              = alerr.ErrCancelled
	ErrLockTimeout            = alerr.ErrLockTimeout
	ErrInvalidArgument        = alerr.ErrInvalidArgument
	ErrUnknownTableReference  = alerr.ErrUnknownTableReference
	ErrUnknownColumnReference = alerr.ErrUnknownColumnReference
	ErrTableReferenced        = alerr.ErrTableReferenced
	ErrSchemaInvalid          = alerr.ErrSchemaInvalid
	ErrSchemaDuplicate        = alerr.ErrSchemaDuplicate
	ErrSchemaNotFound         = alerr.ErrSchemaNotFound
	ErrUnsupportedFeature     = alerr.ErrUnsupportedFeature
	ErrStore                  = alerr.ErrStore
	ErrSQLConnection          = alerr.ErrSQLConnection
	ErrSQLTransaction         = alerr.ErrSQLTransaction
	ErrConfig                 = alerr.ErrConfig
)

// IsCode reports whether err, or any error it wraps, carries code.
func IsCode(err error, code Code) bool {
	return alerr.Is(err, code)
}

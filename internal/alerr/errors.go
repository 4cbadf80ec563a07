// Package alerr provides standardized error handling for hisdb.
// All errors have stable, machine-readable codes, structured context, and proper wrapping.
package alerr

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Code represents a stable, machine-readable error code.
// Format: E{category}{number} where category is 1-9 and number is 001-999.
type Code string

// Error codes organized by category.
const (
	// Schema errors (E1xxx) - problems with operation descriptors
	ErrSchemaInvalid   Code = "E1001" // Descriptor is malformed
	ErrSchemaNotFound  Code = "E1002" // Dropped object does not exist
	ErrSchemaDuplicate Code = "E1003" // Object with same name already exists

	// Reference errors (E2xxx) - dangling references between objects
	ErrUnknownTableReference  Code = "E2009" // Operation references a table that does not exist
	ErrUnknownColumnReference Code = "E2010" // Operation references a column that does not exist
	ErrTableReferenced        Code = "E2011" // Table is still referenced by a foreign key

	// Migration errors (E3xxx) - problems with the registry or the run
	ErrMigrationFailed      Code = "E3001" // Migration execution failed
	ErrMigrationNotFound    Code = "E3002" // Migration id not present in registry
	ErrDuplicateMigrationID Code = "E3005" // Two registry entries share an id
	ErrRegistryUnordered    Code = "E3006" // Registry is not sorted by id
	ErrCancelled            Code = "E3007" // Run stopped between migrations
	ErrLockTimeout          Code = "E3008" // Migration lock not acquired in time
	ErrInvalidArgument      Code = "E3009" // Caller passed an unusable argument

	// Store errors (E4xxx) - problems reported by the relational store
	ErrStore          Code = "E4001" // Statement rejected by the store
	ErrSQLConnection  Code = "E4002" // Store connection failed
	ErrSQLTransaction Code = "E4003" // Transaction begin/commit/rollback failed

	// Dialect errors (E6xxx)
	ErrUnsupportedFeature Code = "E6003" // Store cannot express the operation
	ErrUnsupportedDialect Code = "E6004" // No dialect registered for the store

	// Configuration errors (E7xxx)
	ErrConfig Code = "E7001" // Configuration file or flag is invalid

	// Internal errors (E9xxx) - unexpected internal errors
	EInternalError Code = "E9001" // Internal error
)

var codeKinds = map[Code]string{
	ErrSchemaInvalid:          "SchemaInvalid",
	ErrSchemaNotFound:         "SchemaNotFound",
	ErrSchemaDuplicate:        "SchemaDuplicate",
	ErrUnknownTableReference:  "UnknownTableReference",
	ErrUnknownColumnReference: "UnknownColumnReference",
	ErrTableReferenced:        "TableReferenced",
	ErrMigrationFailed:        "MigrationFailed",
	ErrMigrationNotFound:      "MigrationNotFound",
	ErrDuplicateMigrationID:   "DuplicateMigrationId",
	ErrRegistryUnordered:      "RegistryUnordered",
	ErrCancelled:              "Cancelled",
	ErrLockTimeout:            "LockTimeout",
	ErrInvalidArgument:        "InvalidArgument",
	ErrStore:                  "StoreError",
	ErrSQLConnection:          "ConnectionError",
	ErrSQLTransaction:         "TransactionError",
	ErrUnsupportedFeature:     "UnsupportedFeature",
	ErrUnsupportedDialect:     "UnsupportedDialect",
	ErrConfig:                 "ConfigError",
	EInternalError:            "InternalError",
}

// Kind returns the human-readable error kind for a code, e.g. "LockTimeout".
func (c Code) Kind() string {
	if k, ok := codeKinds[c]; ok {
		return k
	}
	return string(c)
}

// Error is the standard error type for hisdb.
// It provides structured error information with codes, context, and wrapping support.
type Error struct {
	code    Code           // Machine-readable error code
	message string         // Human-readable error message
	context map[string]any // Structured context data
	cause   error          // Wrapped underlying error
}

// Error returns the formatted error string.
// Format:
//
//	[E2009] foreign key references unknown table
//	  ref_table: Patient
//	  table: Admissions
func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", e.code, e.message)

	keys := make([]string, 0, len(e.context))
	for k := range e.context {
		if k != "helps" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "\n  %s: %v", k, e.context[k])
	}

	if e.cause != nil {
		fmt.Fprintf(&b, "\n  cause: %v", e.cause)
	}
	return b.String()
}

// Unwrap returns the underlying cause error for errors.Unwrap compatibility.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports whether the target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	if target == nil {
		return false
	}

	var targetErr *Error
	if errors.As(target, &targetErr) {
		return e.code == targetErr.code
	}

	return false
}

// GetCode returns the error code.
func (e *Error) GetCode() Code {
	return e.code
}

// GetMessage returns the error message.
func (e *Error) GetMessage() string {
	return e.message
}

// GetContext returns the error context map.
func (e *Error) GetContext() map[string]any {
	return e.context
}

// GetCause returns the underlying cause error.
func (e *Error) GetCause() error {
	return e.cause
}

// With adds a key-value pair to the error context.
// Returns the error for method chaining.
func (e *Error) With(key string, value any) *Error {
	if e.context == nil {
		e.context = make(map[string]any)
	}
	e.context[key] = value
	return e
}

// WithTable adds table context to the error.
func (e *Error) WithTable(table string) *Error {
	return e.With("table", table)
}

// WithColumn adds column context to the error.
func (e *Error) WithColumn(name string) *Error {
	return e.With("column", name)
}

// WithSQL adds SQL statement context to the error.
func (e *Error) WithSQL(sql string) *Error {
	return e.With("sql", sql)
}

// WithMigration adds the migration id and, when index >= 0, the operation index.
func (e *Error) WithMigration(id string, index int) *Error {
	e.With("migration", id)
	if index >= 0 {
		e.With("operation", index)
	}
	return e
}

// WithHelp adds a help suggestion to the error (displayed as "help: ...").
func (e *Error) WithHelp(help string) *Error {
	if help == "" {
		return e
	}
	helps, _ := e.context["helps"].([]string)
	helps = append(helps, help)
	return e.With("helps", helps)
}

// Helps returns all help suggestions attached to this error.
func (e *Error) Helps() []string {
	helps, _ := e.context["helps"].([]string)
	return helps
}

// New creates a new Error with the given code and message.
func New(code Code, msg string) *Error {
	return &Error{
		code:    code,
		message: msg,
		context: make(map[string]any),
	}
}

// Newf creates a new Error with the given code and formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{
		code:    code,
		message: fmt.Sprintf(format, args...),
		context: make(map[string]any),
	}
}

// Wrap creates a new Error that wraps an existing error.
func Wrap(code Code, err error, msg string) *Error {
	if err == nil {
		return New(code, msg)
	}
	return &Error{
		code:    code,
		message: msg,
		context: make(map[string]any),
		cause:   err,
	}
}

// GetErrorCode extracts the outermost error code from an error chain.
// Returns empty string if no code is found.
func GetErrorCode(err error) Code {
	if err == nil {
		return ""
	}

	var alerr *Error
	if errors.As(err, &alerr) {
		return alerr.code
	}

	return ""
}

// Is checks if any error in the chain carries the specified code.
func Is(err error, code Code) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.code == code {
			return true
		}
		err = e.cause
	}
	return false
}

// WrapStore creates an ErrStore error with the failing statement attached.
func WrapStore(err error, stmt string) *Error {
	return Wrap(ErrStore, err, "store rejected statement").WithSQL(stmt)
}

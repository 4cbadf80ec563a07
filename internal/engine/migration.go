package engine

import (
	"time"

	"github.com/hlop3z/hisdb/internal/alerr"
	"github.com/hlop3z/hisdb/internal/ast"
	"github.com/hlop3z/hisdb/internal/dialect"
)

// Direction indicates whether migrations run up (apply) or down (revert).
type Direction int

const (
	// Up applies migrations.
	Up Direction = iota
	// Down reverts migrations.
	Down
)

// String returns the string representation of the direction.
func (d Direction) String() string {
	if d == Up {
		return "up"
	}
	return "down"
}

// Migration is one reversible schema change. Applying Up and then Down
// restores the schema the migration started from.
type Migration struct {
	// ID orders migrations byte-wise, e.g. "20240101120000_core".
	ID string

	// Name is the human-readable name (e.g., "core_patients").
	Name string

	Up   []ast.Operation
	Down []ast.Operation
}

// Operations returns the operation sequence for the given direction.
func (m Migration) Operations(dir Direction) []ast.Operation {
	if dir == Down {
		return m.Down
	}
	return m.Up
}

// MigrationRecord is a row of the history table.
type MigrationRecord struct {
	ID        string
	Name      string
	AppliedAt time.Time // UTC
}

// MigrationStatus reports where a migration stands against the history table.
type MigrationStatus struct {
	ID        string
	Name      string
	Applied   bool
	AppliedAt time.Time // zero when pending

	// Orphaned marks a history row whose migration is missing from the registry.
	Orphaned bool
}

// Step is one migration of a plan together with its rendered statements.
type Step struct {
	Migration  Migration
	Direction  Direction
	Statements []dialect.Statement
}

// ValidateRegistry checks that migration IDs are present, unique and in
// strictly ascending byte-wise order.
func ValidateRegistry(registry []Migration) error {
	seen := make(map[string]int, len(registry))
	for i, m := range registry {
		if m.ID == "" {
			return alerr.New(alerr.ErrInvalidArgument, "migration ID is required").
				With("position", i).
				With("name", m.Name)
		}
		if j, dup := seen[m.ID]; dup {
			return alerr.New(alerr.ErrDuplicateMigrationID, "duplicate migration ID").
				With("migration", m.ID).
				With("positions", []int{j, i})
		}
		seen[m.ID] = i
	}

	for i, m := range registry {
		if m.ID <= BootstrapID {
			return alerr.New(alerr.ErrRegistryUnordered, "migration ID sorts before the history bootstrap").
				With("migration", m.ID).
				WithHelp("IDs must sort after " + BootstrapID + "; use a timestamp prefix")
		}
		if i > 0 && registry[i-1].ID > m.ID {
			return alerr.New(alerr.ErrRegistryUnordered, "migrations are not sorted by ID").
				With("migration", m.ID).
				With("after", registry[i-1].ID)
		}
	}
	return nil
}

// indexOf returns the position of id in registry, or -1.
func indexOf(registry []Migration, id string) int {
	for i, m := range registry {
		if m.ID == id {
			return i
		}
	}
	return -1
}

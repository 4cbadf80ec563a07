package engine

import (
	"context"
	"time"

	"github.com/hlop3z/hisdb/internal/alerr"
	"github.com/hlop3z/hisdb/internal/dialect"
	"github.com/hlop3z/hisdb/internal/store"
)

// runStep executes one planned migration and records it in history.
// The step runs on a context detached from cancellation so a migration
// that has begun either commits or rolls back; cancellation is honoured
// between steps.
func (e *Engine) runStep(ctx context.Context, step Step) (MigrationRecord, error) {
	start := time.Now()
	m := step.Migration
	ctx = context.WithoutCancel(ctx)

	e.log.Info("running migration",
		"id", m.ID,
		"name", m.Name,
		"direction", step.Direction.String(),
		"statements", len(step.Statements))

	rec := MigrationRecord{ID: m.ID, Name: m.Name, AppliedAt: time.Now().UTC()}

	var err error
	if e.store.Dialect().Capabilities().TransactionalDDL {
		err = e.runInTransaction(ctx, step, rec)
	} else {
		err = e.runWithoutTransaction(ctx, step, rec)
	}
	if err != nil {
		e.log.Error("migration failed", "id", m.ID, "direction", step.Direction.String(), "error", err)
		return MigrationRecord{}, err
	}

	e.log.Info("migration complete",
		"id", m.ID,
		"direction", step.Direction.String(),
		"duration", time.Since(start).Round(time.Millisecond))
	return rec, nil
}

// runInTransaction executes a migration and its history change in one
// transaction. Used for PostgreSQL and SQLite which support transactional
// DDL: the migration is atomic, all statements succeed or all fail.
func (e *Engine) runInTransaction(ctx context.Context, step Step, rec MigrationRecord) error {
	tx, err := e.store.Begin(ctx)
	if err != nil {
		return failed(step, err)
	}

	committed := false
	defer func() {
		if !committed {
			if rbErr := tx.Rollback(); rbErr != nil {
				e.log.Warn("rollback failed", "id", rec.ID, "error", rbErr)
			}
		}
	}()

	if err := e.execStatements(ctx, tx, step); err != nil {
		return err
	}
	if err := e.recordHistory(ctx, tx, step, rec); err != nil {
		return failed(step, err)
	}

	if err := tx.Commit(); err != nil {
		return failed(step, alerr.Wrap(alerr.ErrSQLTransaction, err, "failed to commit transaction"))
	}
	committed = true
	return nil
}

// runWithoutTransaction executes a migration on a store whose DDL commits
// implicitly (MySQL). A failure can leave earlier statements applied; the
// history row is written only after every statement succeeded.
func (e *Engine) runWithoutTransaction(ctx context.Context, step Step, rec MigrationRecord) error {
	e.log.Warn("store commits DDL implicitly; a failed migration may be partially applied",
		"id", rec.ID,
		"dialect", e.store.Dialect().Name())

	if err := e.execStatements(ctx, e.store, step); err != nil {
		return err
	}
	if err := e.recordHistory(ctx, e.store, step, rec); err != nil {
		return failed(step, err)
	}
	return nil
}

// execStatements runs the step's statements in order and stops at the
// first failure.
func (e *Engine) execStatements(ctx context.Context, ex execer, step Step) error {
	for _, s := range step.Statements {
		e.log.Debug("executing statement", "id", step.Migration.ID, "operation", s.Index, "sql", s.SQL)
		if _, err := ex.Exec(ctx, s.SQL); err != nil {
			return failedAt(step, s, store.WrapError(err, s.SQL))
		}
	}
	return nil
}

func (e *Engine) recordHistory(ctx context.Context, ex execer, step Step, rec MigrationRecord) error {
	if step.Direction == Down {
		return e.history.Remove(ctx, ex, rec.ID)
	}
	return e.history.Record(ctx, ex, rec)
}

// failedAt reports a statement failure with the migration, operation and SQL.
func failedAt(step Step, s dialect.Statement, cause error) *alerr.Error {
	return failed(step, cause).
		With("operation", s.Index).
		With("op", s.Op.Type().String()).
		WithSQL(s.SQL)
}

func failed(step Step, cause error) *alerr.Error {
	return alerr.Wrap(alerr.ErrMigrationFailed, cause, "migration failed").
		With("migration", step.Migration.ID).
		With("name", step.Migration.Name).
		With("direction", step.Direction.String())
}

package engine

import (
	"context"
	"fmt"

	"github.com/hlop3z/hisdb/internal/alerr"
	"github.com/hlop3z/hisdb/internal/engine/state"
)

// PlanOptions select what a dry run covers.
type PlanOptions struct {
	// Target stops an Up plan after this migration ID. Empty means latest.
	Target string

	// Count is the number of migrations a Down plan reverts. 0 means 1.
	Count int
}

// Plan returns the steps Apply (Up) or Revert (Down) would run, with every
// statement rendered, without changing the store. Only history is read.
func (e *Engine) Plan(ctx context.Context, registry []Migration, dir Direction, opts PlanOptions) ([]Step, error) {
	if err := ValidateRegistry(registry); err != nil {
		return nil, err
	}

	if dir == Down {
		count := opts.Count
		if count == 0 {
			count = 1
		}
		if count < 0 {
			return nil, alerr.New(alerr.ErrInvalidArgument, "revert count must be at least 1").
				With("count", count)
		}
		return e.planDown(ctx, registry, count)
	}

	if opts.Target != "" && indexOf(registry, opts.Target) < 0 {
		return nil, alerr.New(alerr.ErrMigrationNotFound, "target migration not in registry").
			With("migration", opts.Target)
	}
	return e.planUp(ctx, registry, opts.Target)
}

// planUp replays the applied history into a model and then validates and
// renders each pending migration up to target against it.
func (e *Engine) planUp(ctx context.Context, registry []Migration, target string) ([]Step, error) {
	applied, err := e.history.Applied(ctx)
	if err != nil {
		return nil, err
	}
	model, _, err := replayApplied(registry, applied)
	if err != nil {
		return nil, err
	}

	done := make(map[string]bool, len(applied))
	for _, rec := range applied {
		done[rec.ID] = true
	}

	limit := len(registry)
	if target != "" {
		limit = indexOf(registry, target) + 1
	}

	var steps []Step
	for _, m := range registry[:limit] {
		if done[m.ID] {
			continue
		}
		step, err := e.buildStep(model, m, Up)
		if err != nil {
			return nil, err
		}
		steps = append(steps, step)
	}
	return steps, nil
}

// planDown validates and renders the Down operations of the count most
// recent applied migrations, newest first.
func (e *Engine) planDown(ctx context.Context, registry []Migration, count int) ([]Step, error) {
	applied, err := e.history.Applied(ctx)
	if err != nil {
		return nil, err
	}
	if err := checkRevertHistory(registry, applied, count); err != nil {
		return nil, err
	}
	model, migrations, err := replayApplied(registry, applied)
	if err != nil {
		return nil, err
	}

	var steps []Step
	for i := len(migrations) - 1; i >= 0 && len(steps) < count; i-- {
		step, err := e.buildStep(model, migrations[i], Down)
		if err != nil {
			return nil, err
		}
		steps = append(steps, step)
	}
	return steps, nil
}

// buildStep advances model through the migration's operations and renders
// them. Validation errors name the migration and the failing operation.
func (e *Engine) buildStep(model *state.Schema, m Migration, dir Direction) (Step, error) {
	ops := m.Operations(dir)

	if idx, err := model.ApplyAll(ops); err != nil {
		return Step{}, annotate(err, m, dir, idx)
	}

	stmts, err := e.translator.Translate(ops)
	if err != nil {
		return Step{}, annotate(err, m, dir, -1)
	}

	return Step{Migration: m, Direction: dir, Statements: stmts}, nil
}

// checkRevertHistory finds the oldest history row missing from the
// registry. The error says whether that row is one of the count newest,
// which Revert would undo, or an older one whose Up operations are still
// needed to rebuild the schema.
func checkRevertHistory(registry []Migration, applied []MigrationRecord, count int) error {
	known := make(map[string]bool, len(registry))
	for _, m := range registry {
		known[m.ID] = true
	}

	first := max(len(applied)-count, 0)
	for i, rec := range applied {
		if known[rec.ID] {
			continue
		}
		if i >= first {
			return alerr.New(alerr.ErrMigrationNotFound, "migration selected for revert is missing from the registry").
				With("migration", rec.ID).
				With("name", rec.Name).
				WithHelp("its Down operations are unknown; restore the migration to the registry before reverting it")
		}
		newest := applied[len(applied)-1].ID
		return alerr.New(alerr.ErrMigrationNotFound, "applied migration missing from registry").
			With("migration", rec.ID).
			With("name", rec.Name).
			With("revert_from", newest).
			WithHelp(fmt.Sprintf("%s is not being reverted, but its Up operations are needed to rebuild the schema before reverting %s; restore it to the registry", rec.ID, newest))
	}
	return nil
}

// replayApplied rebuilds the schema model from the Up operations of the
// applied migrations and returns them in ascending order. Every history ID
// must be present in the registry.
func replayApplied(registry []Migration, applied []MigrationRecord) (*state.Schema, []Migration, error) {
	byID := make(map[string]Migration, len(registry))
	for _, m := range registry {
		byID[m.ID] = m
	}

	model := state.NewSchema()
	migrations := make([]Migration, 0, len(applied))
	for _, rec := range applied {
		m, ok := byID[rec.ID]
		if !ok {
			return nil, nil, alerr.New(alerr.ErrMigrationNotFound, "applied migration missing from registry").
				With("migration", rec.ID).
				With("name", rec.Name).
				WithHelp("restore the migration to the registry; 'hisdb migrate verify' lists every mismatch")
		}
		if idx, err := model.ApplyAll(m.Up); err != nil {
			return nil, nil, annotate(err, m, Up, idx).
				WithHelp("the applied history no longer replays; the registry was edited after it was applied")
		}
		migrations = append(migrations, m)
	}
	return model, migrations, nil
}

// annotate attaches migration context to err, keeping its code.
func annotate(err error, m Migration, dir Direction, idx int) *alerr.Error {
	e, ok := err.(*alerr.Error)
	if !ok {
		e = alerr.Wrap(alerr.EInternalError, err, "migration validation failed")
	}
	return e.WithMigration(m.ID, idx).With("direction", dir.String())
}

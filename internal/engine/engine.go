// Package engine applies and reverts ordered, reversible schema migrations.
//
// An Engine owns a store, the history table recording applied migrations
// and the lock that keeps concurrent runs apart. Every call validates the
// whole plan against an in-memory schema model before the first statement
// reaches the store; each migration then runs in its own transaction
// together with its history row.
package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/hlop3z/hisdb/internal/alerr"
	"github.com/hlop3z/hisdb/internal/ast"
	"github.com/hlop3z/hisdb/internal/dialect"
	"github.com/hlop3z/hisdb/internal/engine/state"
	"github.com/hlop3z/hisdb/internal/store"
)

// Options configure an Engine.
type Options struct {
	// HistoryTable names the history table. Default: __migration_history
	HistoryTable string

	// LockTable names the lock-row table used where the store has no
	// session locks. Default: __migration_lock
	LockTable string

	// LockTimeout bounds the wait for the migration lock. Default: 30s
	LockTimeout time.Duration

	// Logger receives progress and warnings. Default: slog.Default()
	Logger *slog.Logger

	// Translator renders operations. Default: a translator for the store's dialect.
	Translator *dialect.Translator

	// Locker overrides the dialect's lock mechanism.
	Locker Locker
}

// Option is a functional option for configuring the Engine.
type Option func(*Options)

// WithHistoryTable sets the history table name.
func WithHistoryTable(name string) Option {
	return func(o *Options) { o.HistoryTable = name }
}

// WithLockTable sets the lock-row table name.
func WithLockTable(name string) Option {
	return func(o *Options) { o.LockTable = name }
}

// WithLockTimeout sets the maximum wait for the migration lock.
func WithLockTimeout(d time.Duration) Option {
	return func(o *Options) { o.LockTimeout = d }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Options) { o.Logger = l }
}

// WithTranslator replaces the default translator.
func WithTranslator(t *dialect.Translator) Option {
	return func(o *Options) { o.Translator = t }
}

// WithLocker replaces the dialect's lock mechanism.
func WithLocker(l Locker) Option {
	return func(o *Options) { o.Locker = l }
}

// Engine runs migrations against one store. It is not safe for concurrent
// use; separate engines and processes are serialized by the migration lock.
type Engine struct {
	store      store.Store
	translator *dialect.Translator
	history    *History
	locker     Locker
	log        *slog.Logger
	opts       Options
}

// New creates an Engine for the store.
func New(s store.Store, opts ...Option) (*Engine, error) {
	o := Options{
		HistoryTable: DefaultHistoryTable,
		LockTable:    DefaultLockTable,
		LockTimeout:  DefaultLockTimeout,
	}
	for _, opt := range opts {
		opt(&o)
	}

	if s == nil || s.Dialect() == nil {
		return nil, alerr.New(alerr.ErrConfig, "store with a dialect is required")
	}
	for _, name := range []string{o.HistoryTable, o.LockTable} {
		if err := ast.ValidateIdentifier(name); err != nil {
			return nil, alerr.Wrap(alerr.ErrConfig, err, "invalid table name").WithTable(name)
		}
	}
	if o.LockTimeout <= 0 {
		return nil, alerr.New(alerr.ErrConfig, "lock timeout must be positive").
			With("lock_timeout", o.LockTimeout.String())
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Translator == nil {
		o.Translator = dialect.NewTranslator(s.Dialect())
	}
	if o.Locker == nil {
		o.Locker = NewLocker(s, o.HistoryTable, o.LockTable)
	}

	return &Engine{
		store:      s,
		translator: o.Translator,
		history:    NewHistory(s, o.HistoryTable),
		locker:     o.Locker,
		log:        o.Logger,
		opts:       o,
	}, nil
}

// History returns the engine's history table manager.
func (e *Engine) History() *History {
	return e.history
}

// -----------------------------------------------------------------------------
// Apply / Revert
// -----------------------------------------------------------------------------

// ApplyOption narrows an Apply call.
type ApplyOption func(*applyConfig)

type applyConfig struct {
	target string
}

// To stops Apply after the migration with the given ID.
func To(id string) ApplyOption {
	return func(c *applyConfig) { c.target = id }
}

// Apply runs every pending migration of registry in ascending ID order and
// returns the ones it applied. On failure the returned list holds the
// migrations committed before the failing one.
func (e *Engine) Apply(ctx context.Context, registry []Migration, opts ...ApplyOption) ([]MigrationRecord, error) {
	var cfg applyConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	if err := ValidateRegistry(registry); err != nil {
		return nil, err
	}
	if cfg.target != "" && indexOf(registry, cfg.target) < 0 {
		return nil, alerr.New(alerr.ErrMigrationNotFound, "target migration not in registry").
			With("migration", cfg.target)
	}
	if err := ctx.Err(); err != nil {
		return nil, cancelled(err)
	}

	release, err := e.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	if err := e.history.EnsureTable(ctx); err != nil {
		return nil, err
	}

	steps, err := e.planUp(ctx, registry, cfg.target)
	if err != nil {
		return nil, err
	}
	if len(steps) == 0 {
		e.log.Info("schema is up to date")
		return nil, nil
	}

	var applied []MigrationRecord
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return applied, cancelled(err).With("applied", len(applied))
		}
		rec, err := e.runStep(ctx, step)
		if err != nil {
			return applied, err
		}
		applied = append(applied, rec)
	}
	return applied, nil
}

// Revert runs the Down operations of the count most recently applied
// migrations, newest first, and returns the ones it reverted. A count larger
// than the history reverts everything recorded.
func (e *Engine) Revert(ctx context.Context, registry []Migration, count int) ([]MigrationRecord, error) {
	if count < 1 {
		return nil, alerr.New(alerr.ErrInvalidArgument, "revert count must be at least 1").
			With("count", count)
	}
	if err := ValidateRegistry(registry); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, cancelled(err)
	}

	release, err := e.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	if err := e.history.EnsureTable(ctx); err != nil {
		return nil, err
	}

	steps, err := e.planDown(ctx, registry, count)
	if err != nil {
		return nil, err
	}
	if len(steps) == 0 {
		e.log.Info("nothing to revert")
		return nil, nil
	}

	var reverted []MigrationRecord
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return reverted, cancelled(err).With("reverted", len(reverted))
		}
		rec, err := e.runStep(ctx, step)
		if err != nil {
			return reverted, err
		}
		reverted = append(reverted, rec)
	}
	return reverted, nil
}

// lock acquires the migration lock and returns its release function.
// Release runs on a fresh context so a cancelled call still unlocks.
func (e *Engine) lock(ctx context.Context) (func(), error) {
	if err := e.locker.Acquire(ctx, e.opts.LockTimeout); err != nil {
		return nil, err
	}
	e.log.Debug("migration lock acquired")

	return func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := e.locker.Release(releaseCtx); err != nil {
			e.log.Warn("failed to release migration lock", "error", err)
		}
	}, nil
}

func cancelled(err error) *alerr.Error {
	return alerr.Wrap(alerr.ErrCancelled, err, "migration run cancelled")
}

// -----------------------------------------------------------------------------
// Status
// -----------------------------------------------------------------------------

// Status reports every registry migration as applied or pending, followed
// by history rows whose migration is missing from the registry. It only
// reads; a missing history table means nothing is applied.
func (e *Engine) Status(ctx context.Context, registry []Migration) ([]MigrationStatus, error) {
	applied, err := e.history.Applied(ctx)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]MigrationRecord, len(applied))
	for _, rec := range applied {
		byID[rec.ID] = rec
	}

	statuses := make([]MigrationStatus, 0, len(registry))
	for _, m := range registry {
		st := MigrationStatus{ID: m.ID, Name: m.Name}
		if rec, ok := byID[m.ID]; ok {
			st.Applied = true
			st.AppliedAt = rec.AppliedAt
			delete(byID, m.ID)
		}
		statuses = append(statuses, st)
	}

	for _, rec := range applied {
		if _, orphan := byID[rec.ID]; orphan {
			statuses = append(statuses, MigrationStatus{
				ID:        rec.ID,
				Name:      rec.Name,
				Applied:   true,
				AppliedAt: rec.AppliedAt,
				Orphaned:  true,
			})
		}
	}
	return statuses, nil
}

// Schema rebuilds the schema model implied by the applied history.
func (e *Engine) Schema(ctx context.Context, registry []Migration) (*state.Schema, error) {
	if err := ValidateRegistry(registry); err != nil {
		return nil, err
	}
	applied, err := e.history.Applied(ctx)
	if err != nil {
		return nil, err
	}
	model, _, err := replayApplied(registry, applied)
	return model, err
}

// -----------------------------------------------------------------------------
// Lock administration
// -----------------------------------------------------------------------------

// LockInfo reports who holds the migration lock.
func (e *Engine) LockInfo(ctx context.Context) (*LockInfo, error) {
	return e.locker.Info(ctx)
}

// ForceUnlock clears a lock left behind by a crashed run.
func (e *Engine) ForceUnlock(ctx context.Context) error {
	info, err := e.locker.Info(ctx)
	if err != nil {
		return err
	}
	if err := e.locker.ForceRelease(ctx); err != nil {
		return err
	}
	e.log.Warn("migration lock force-released", "held", info.Locked, "locked_by", info.LockedBy)
	return nil
}

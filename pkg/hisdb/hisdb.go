// Package hisdb is the public entry point of the hisdb migration engine.
// A Client connects to a database and applies, reverts, inspects and
// verifies a statically compiled registry of reversible migrations.
//
// Example:
//
//	client, err := hisdb.New(
//	    hisdb.WithDatabaseURL("postgres://localhost/his"),
//	    hisdb.WithRegistry(migrations),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	if _, err := client.Apply(ctx); err != nil {
//	    log.Fatal(err)
//	}
package hisdb

import (
	"context"
	"log/slog"
	"time"

	"github.com/hlop3z/hisdb/internal/alerr"
	"github.com/hlop3z/hisdb/internal/drift"
	"github.com/hlop3z/hisdb/internal/engine"
	"github.com/hlop3z/hisdb/internal/store"
)

// Client runs migrations of one registry against one database.
type Client struct {
	store  store.Store
	engine *engine.Engine
	config *Config
}

// New connects to the configured database. WithDatabaseURL is required;
// the dialect is detected from the URL unless WithDialect is given.
func New(opts ...Option) (*Client, error) {
	cfg := &Config{
		HistoryTable:   engine.DefaultHistoryTable,
		LockTable:      engine.DefaultLockTable,
		LockTimeout:    engine.DefaultLockTimeout,
		ConnectTimeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
	defer cancel()

	s, err := store.Open(ctx, cfg.DatabaseURL, cfg.Dialect)
	if err != nil {
		return nil, err
	}

	c, err := newClient(s, cfg)
	if err != nil {
		s.Close()
		return nil, err
	}
	return c, nil
}

func newClient(s store.Store, cfg *Config) (*Client, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	e, err := engine.New(s,
		engine.WithHistoryTable(cfg.HistoryTable),
		engine.WithLockTable(cfg.LockTable),
		engine.WithLockTimeout(cfg.LockTimeout),
		engine.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}
	return &Client{store: s, engine: e, config: cfg}, nil
}

// Close closes the database connection.
func (c *Client) Close() error {
	if closer, ok := c.store.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}

// Dialect returns the database dialect name.
func (c *Client) Dialect() string {
	return c.store.Dialect().Name()
}

// Config returns a copy of the client configuration.
func (c *Client) Config() Config {
	return *c.config
}

// Registry returns the migrations the client manages.
func (c *Client) Registry() []Migration {
	return c.config.Registry
}

// -----------------------------------------------------------------------------
// Migrations
// -----------------------------------------------------------------------------

// Apply runs pending migrations in ID order and returns those applied.
func (c *Client) Apply(ctx context.Context, opts ...ApplyOption) ([]MigrationRecord, error) {
	return c.engine.Apply(ctx, c.config.Registry, opts...)
}

// Revert reverts the count most recently applied migrations, newest first.
func (c *Client) Revert(ctx context.Context, count int) ([]MigrationRecord, error) {
	return c.engine.Revert(ctx, c.config.Registry, count)
}

// Status lists every registered migration as applied or pending, plus
// orphaned history rows.
func (c *Client) Status(ctx context.Context) ([]MigrationStatus, error) {
	return c.engine.Status(ctx, c.config.Registry)
}

// Plan renders the statements Apply (Up) or Revert (Down) would send.
func (c *Client) Plan(ctx context.Context, dir Direction, opts PlanOptions) ([]Step, error) {
	return c.engine.Plan(ctx, c.config.Registry, dir, opts)
}

// Verify checks the history table against the registry.
func (c *Client) Verify(ctx context.Context) (*VerifyReport, error) {
	return c.engine.Verify(ctx, c.config.Registry)
}

// -----------------------------------------------------------------------------
// Schema fingerprints
// -----------------------------------------------------------------------------

// Schema rebuilds the schema model implied by the applied history.
func (c *Client) Schema(ctx context.Context) (*Schema, error) {
	return c.engine.Schema(ctx, c.config.Registry)
}

// Fingerprint returns the Merkle root of the schema implied by the
// applied history.
func (c *Client) Fingerprint(ctx context.Context) (string, error) {
	model, err := c.Schema(ctx)
	if err != nil {
		return "", err
	}
	h, err := drift.Fingerprint(model)
	if err != nil {
		return "", err
	}
	return h.Root, nil
}

// PlanChange compares the applied schema with the schema steps would
// produce.
func (c *Client) PlanChange(ctx context.Context, steps []Step) (*SchemaChange, error) {
	before, err := c.Schema(ctx)
	if err != nil {
		return nil, err
	}

	after := before.Clone()
	for _, step := range steps {
		if idx, err := after.ApplyAll(step.Migration.Operations(step.Direction)); err != nil {
			return nil, alerr.Wrap(alerr.ErrSchemaInvalid, err, "plan does not replay").
				WithMigration(step.Migration.ID, idx)
		}
	}

	beforeHash, err := drift.Fingerprint(before)
	if err != nil {
		return nil, err
	}
	afterHash, err := drift.Fingerprint(after)
	if err != nil {
		return nil, err
	}
	return drift.Compare(beforeHash, afterHash), nil
}

// -----------------------------------------------------------------------------
// Lock
// -----------------------------------------------------------------------------

// LockInfo reports who holds the migration lock.
func (c *Client) LockInfo(ctx context.Context) (*LockInfo, error) {
	return c.engine.LockInfo(ctx)
}

// Unlock force-releases a stale migration lock and returns its previous
// holder.
func (c *Client) Unlock(ctx context.Context) (*LockInfo, error) {
	info, err := c.engine.LockInfo(ctx)
	if err != nil {
		return nil, err
	}
	if err := c.engine.ForceUnlock(ctx); err != nil {
		return nil, err
	}
	return info, nil
}

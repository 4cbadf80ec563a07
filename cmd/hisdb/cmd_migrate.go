package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/hlop3z/hisdb/internal/alerr"
	"github.com/hlop3z/hisdb/internal/cli"
	"github.com/hlop3z/hisdb/internal/hisreg"
	"github.com/hlop3z/hisdb/internal/ui"
	"github.com/hlop3z/hisdb/pkg/hisdb"
)

// migrateCmd groups the migration subcommands.
func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply, revert and inspect migrations",
	}

	cmd.AddCommand(
		migrateUpCmd(),
		migrateDownCmd(),
		migrateStatusCmd(),
		migratePlanCmd(),
		migrateVerifyCmd(),
		migrateUnlockCmd(),
	)
	return cmd
}

// newClient connects with the merged configuration and the HIS registry.
func newClient(cmd *cobra.Command) (*hisdb.Client, error) {
	cfg, err := loadConfig(cmd.Flags())
	if err != nil {
		return nil, err
	}

	opts := []hisdb.Option{
		hisdb.WithDatabaseURL(cfg.DatabaseURL),
		hisdb.WithDialect(cfg.Dialect),
		hisdb.WithHistoryTable(cfg.HistoryTable),
		hisdb.WithLockTimeout(cfg.LockTimeout),
		hisdb.WithRegistry(hisreg.Migrations()),
		hisdb.WithLogger(slog.Default()),
	}
	if cfg.LockTable != "" {
		opts = append(opts, hisdb.WithLockTable(cfg.LockTable))
	}
	return hisdb.New(opts...)
}

// signalContext is cancelled on SIGINT/SIGTERM. The engine finishes the
// migration in flight and stops before the next one.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}

func migrateUpCmd() *cobra.Command {
	var target string

	cmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		Long: `Apply every pending migration in ID order, each in its own transaction.

A failed migration is rolled back and not recorded; migrations applied before
it stay applied.`,
		Example: `  # Apply everything
  hisdb migrate up

  # Stop after a specific migration
  hisdb migrate up --to 20240115080000_infection_control`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext(cmd)
			defer stop()

			client, err := newClient(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			var opts []hisdb.ApplyOption
			if target != "" {
				opts = append(opts, hisdb.To(target))
			}

			start := time.Now()
			applied, err := client.Apply(ctx, opts...)
			if len(applied) > 0 || err == nil {
				fmt.Print(cli.RenderRecords("Applied", applied, time.Since(start)))
			}
			return err
		},
	}

	cmd.Flags().StringVar(&target, "to", "", "Stop after this migration ID")
	return cmd
}

func migrateDownCmd() *cobra.Command {
	var count int

	cmd := &cobra.Command{
		Use:   "down",
		Short: "Revert the most recently applied migrations",
		Example: `  # Revert the newest migration
  hisdb migrate down

  # Revert the three newest migrations
  hisdb migrate down --count 3`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext(cmd)
			defer stop()

			client, err := newClient(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			start := time.Now()
			reverted, err := client.Revert(ctx, count)
			if len(reverted) > 0 || err == nil {
				fmt.Print(cli.RenderRecords("Reverted", reverted, time.Since(start)))
			}
			return err
		},
	}

	cmd.Flags().IntVarP(&count, "count", "n", 1, "Number of migrations to revert")
	return cmd
}

func migrateStatusCmd() *cobra.Command {
	var jsonOutput, tui bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show applied/pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if jsonOutput && tui {
				return alerr.New(alerr.ErrInvalidArgument, "--json and --tui cannot be combined")
			}
			if tui && !isatty.IsTerminal(os.Stdout.Fd()) {
				return alerr.New(alerr.ErrInvalidArgument, "--tui needs an interactive terminal").
					WithHelp("use --json when piping status output")
			}

			ctx := cmd.Context()
			client, err := newClient(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			statuses, err := client.Status(ctx)
			if err != nil {
				return err
			}

			// Orphaned history rows make the applied schema unknowable.
			fingerprint, err := client.Fingerprint(ctx)
			if err != nil {
				slog.Debug("schema fingerprint unavailable", "error", err)
				fingerprint = ""
			}

			switch {
			case jsonOutput:
				return cli.WriteStatusJSON(os.Stdout, statuses, fingerprint)
			case tui:
				return showStatusTUI(ctx, client, statuses, fingerprint)
			}
			fmt.Print(cli.RenderStatus(statuses, fingerprint))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON for CI/CD")
	cmd.Flags().BoolVar(&tui, "tui", false, "Browse status and schema interactively")
	return cmd
}

func showStatusTUI(ctx context.Context, client *hisdb.Client, statuses []hisdb.MigrationStatus, fingerprint string) error {
	schema, err := client.Schema(ctx)
	if err != nil {
		slog.Debug("schema unavailable", "error", err)
		schema = nil
	}

	data := ui.NewStatusData(statuses, client.Registry(), schema)
	data.Dialect = client.Dialect()
	data.Fingerprint = fingerprint
	if info, err := client.LockInfo(ctx); err == nil && info.Locked {
		data.LockHolder = info.LockedBy
	}
	return ui.ShowStatus(data)
}

func migratePlanCmd() *cobra.Command {
	var (
		down   bool
		count  int
		target string
	)

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Print the statements a run would send, without running them",
		Example: `  # Statements of every pending migration
  hisdb migrate plan

  # Statements that would revert the two newest migrations
  hisdb migrate plan --down --count 2`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client, err := newClient(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			dir := hisdb.Up
			if down {
				dir = hisdb.Down
			}
			steps, err := client.Plan(ctx, dir, hisdb.PlanOptions{Target: target, Count: count})
			if err != nil {
				return err
			}
			change, err := client.PlanChange(ctx, steps)
			if err != nil {
				return err
			}
			fmt.Print(cli.RenderPlan(dir, steps, change))
			return nil
		},
	}

	cmd.Flags().BoolVar(&down, "down", false, "Plan a revert instead of an apply")
	cmd.Flags().IntVarP(&count, "count", "n", 1, "Number of migrations a --down plan reverts")
	cmd.Flags().StringVar(&target, "to", "", "Stop an apply plan after this migration ID")
	return cmd
}

func migrateVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Check the history table against the registry",
		Long: `Report history rows missing from the registry, renamed migrations and
pending migrations older than the newest applied one. Exits 1 when any are found.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			report, err := client.Verify(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Print(cli.RenderVerify(report))
			if !report.OK() {
				return &exitError{code: 1}
			}
			return nil
		},
	}
}

func migrateUnlockCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unlock",
		Short: "Release a migration lock left behind by a crashed run",
		Long: `Force-release the migration lock. Only use this when no other hisdb
process is running against the database.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			prev, err := client.Unlock(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Print(cli.RenderUnlock(prev))
			return nil
		},
	}
}

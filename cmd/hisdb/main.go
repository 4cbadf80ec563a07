// Package main provides the hisdb CLI, which applies and reverts the
// hospital information system schema migrations.
//
// Usage:
//
//	hisdb migrate up [--to <id>]         # Apply pending migrations
//	hisdb migrate down [--count <n>]     # Revert the newest migrations (default: 1)
//	hisdb migrate status [--json|--tui]  # Show applied/pending migrations
//	hisdb migrate plan [--down]          # Print the SQL a run would send
//	hisdb migrate verify                 # Check history against the registry
//	hisdb migrate unlock                 # Release a stale migration lock
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/hlop3z/hisdb/internal/cli"
)

// version is set via ldflags during build: -ldflags="-X main.version=v1.0.0"
var version = "dev"

// exitError ends the process with a status code after the command has
// already reported the problem itself.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

func newRootCmd() *cobra.Command {
	var verbose bool

	rootCmd := &cobra.Command{
		Use:           "hisdb",
		Short:         "Reversible schema migrations for the hospital information system",
		Long:          `hisdb applies, reverts and inspects an ordered registry of reversible schema migrations against PostgreSQL, MySQL or SQLite.`,
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging(verbose)
		},
	}

	addConfigFlags(rootCmd.PersistentFlags())
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log engine progress and every statement to stderr")

	rootCmd.AddCommand(migrateCmd())
	return rootCmd
}

// setupLogging routes slog to stderr: debug level with --verbose, warnings
// only otherwise.
func setupLogging(verbose bool) {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		var exit *exitError
		if errors.As(err, &exit) {
			os.Exit(exit.code)
		}
		fmt.Fprint(os.Stderr, cli.FormatError(err))
		os.Exit(1)
	}
}

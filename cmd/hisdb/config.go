package main

import (
	"errors"
	"io/fs"
	"os"
	"time"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/hlop3z/hisdb/internal/alerr"
	"github.com/hlop3z/hisdb/internal/engine"
)

const defaultConfigFile = "hisdb.yaml"

// Config represents the hisdb.yaml configuration file.
type Config struct {
	DatabaseURL  string        `yaml:"database_url"`
	Dialect      string        `yaml:"dialect"`
	HistoryTable string        `yaml:"history_table"`
	LockTable    string        `yaml:"lock_table"`
	LockTimeout  time.Duration `yaml:"lock_timeout"`
}

func defaultConfig() *Config {
	return &Config{
		HistoryTable: engine.DefaultHistoryTable,
		LockTable:    engine.DefaultLockTable,
		LockTimeout:  engine.DefaultLockTimeout,
	}
}

// loadConfig loads configuration from file, env vars, and CLI flags.
// Precedence: CLI flags > env vars > config file > defaults
func loadConfig(flags *pflag.FlagSet) (*Config, error) {
	cfg := defaultConfig()

	path, _ := flags.GetString("config")
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, alerr.Wrap(alerr.ErrConfig, err, "failed to parse config file").With("file", path)
		}
		cfg.DatabaseURL = expandEnvVars(cfg.DatabaseURL)
	case errors.Is(err, fs.ErrNotExist) && !flags.Changed("config"):
		// Running without a config file is fine.
	default:
		return nil, alerr.Wrap(alerr.ErrConfig, err, "failed to read config file").With("file", path)
	}

	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("HISDB_DIALECT"); v != "" {
		cfg.Dialect = v
	}
	if v := os.Getenv("HISDB_HISTORY_TABLE"); v != "" {
		cfg.HistoryTable = v
	}
	if v := os.Getenv("HISDB_LOCK_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, alerr.Wrap(alerr.ErrConfig, err, "invalid HISDB_LOCK_TIMEOUT").
				WithHelp("use a Go duration such as 30s or 2m")
		}
		cfg.LockTimeout = d
	}

	if flags.Changed("database-url") {
		cfg.DatabaseURL, _ = flags.GetString("database-url")
	}
	if flags.Changed("dialect") {
		cfg.Dialect, _ = flags.GetString("dialect")
	}
	if flags.Changed("history-table") {
		cfg.HistoryTable, _ = flags.GetString("history-table")
	}
	if flags.Changed("lock-timeout") {
		cfg.LockTimeout, _ = flags.GetDuration("lock-timeout")
	}

	if cfg.LockTimeout <= 0 {
		return nil, alerr.New(alerr.ErrConfig, "lock timeout must be positive").
			With("lock_timeout", cfg.LockTimeout.String())
	}
	return cfg, nil
}

// expandEnvVars expands ${VAR} patterns in a string.
func expandEnvVars(s string) string {
	return os.Expand(s, os.Getenv)
}

// addConfigFlags registers the flags loadConfig reads.
func addConfigFlags(flags *pflag.FlagSet) {
	flags.StringP("config", "c", defaultConfigFile, "Path to config file")
	flags.StringP("database-url", "d", "", "Database connection URL")
	flags.String("dialect", "", "Database dialect (postgres, mysql, sqlite); detected from the URL by default")
	flags.String("history-table", engine.DefaultHistoryTable, "Migration history table name")
	flags.Duration("lock-timeout", engine.DefaultLockTimeout, "How long to wait for the migration lock")
}

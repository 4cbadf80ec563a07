// Package cli renders hisdb command output: Cargo-style diagnostics for
// coded errors, migration status tables, plans and verification reports.
// Colors are used only on an interactive terminal without NO_COLOR.
package cli

import (
	"io"
	"os"

	"github.com/mattn/go-isatty"
)

// OutputMode determines how output is formatted.
type OutputMode int

const (
	// ModeTTY enables colored output for interactive terminals.
	ModeTTY OutputMode = iota
	// ModePlain outputs plain text (pipes, CI, NO_COLOR).
	ModePlain
	// ModeJSON outputs machine-readable JSON.
	ModeJSON
)

// Config holds CLI output configuration.
type Config struct {
	Mode   OutputMode
	Writer io.Writer
}

// DefaultConfig detects the output mode for stdout.
func DefaultConfig() *Config {
	fd := os.Stdout.Fd()
	tty := isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
	return &Config{
		Mode:   detectMode(tty, os.Getenv),
		Writer: os.Stdout,
	}
}

// detectMode applies the NO_COLOR (https://no-color.org/) and TERM=dumb
// conventions on top of terminal detection.
func detectMode(tty bool, getenv func(string) string) OutputMode {
	if !tty {
		return ModePlain
	}
	if getenv("NO_COLOR") != "" || getenv("TERM") == "dumb" {
		return ModePlain
	}
	return ModeTTY
}

// NewConfigWithMode creates a config with a specific output mode.
func NewConfigWithMode(mode OutputMode) *Config {
	cfg := DefaultConfig()
	cfg.Mode = mode
	return cfg
}

func (c *Config) IsTTY() bool   { return c.Mode == ModeTTY }
func (c *Config) IsPlain() bool { return c.Mode == ModePlain }
func (c *Config) IsJSON() bool  { return c.Mode == ModeJSON }

var defaultCfg *Config

// Default returns the process-wide configuration, detecting it on first use.
func Default() *Config {
	if defaultCfg == nil {
		defaultCfg = DefaultConfig()
	}
	return defaultCfg
}

// SetDefault replaces the process-wide configuration.
func SetDefault(cfg *Config) {
	defaultCfg = cfg
}

// EnableColors reports whether styled output should be emitted.
func EnableColors() bool {
	return Default().IsTTY()
}

// Package cli implements the polycache command line.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alanyoungcy/polycache/internal/app"
	"github.com/alanyoungcy/polycache/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	LogLevel   string // overrides log_level from the config when set
	Format     string // "json" | "yaml"
}

// NewRootCommand creates the root command for the polycache CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "polycache",
		Short: "polycache - a verified local cache of Polymarket data",
		Long: `polycache downloads Polymarket markets, order books and events into a
local store, admitting only records that survive an exact round trip, and
audits the stored data against a battery of invariants.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return WrapExitError(ExitCommandError, "invalid flags", err)
	})

	// Global flags
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "config.toml", "path to configuration file")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "log level (debug|info|warn|error)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", FormatJSON, "output format (json|yaml)")

	cmd.AddCommand(NewCacheCommand(opts))
	cmd.AddCommand(NewTranscodeCommand(opts))

	return cmd
}

// NewCacheCommand groups the commands that operate on the local cache.
func NewCacheCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Download, audit and inspect the local cache",
	}
	cmd.AddCommand(NewDownloadCommand(opts))
	cmd.AddCommand(NewCheckCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))
	cmd.AddCommand(newKeyspaceCommand(opts, "market-responses", "CLOB market responses"))
	cmd.AddCommand(newKeyspaceCommand(opts, "markets", "derived markets"))
	cmd.AddCommand(newKeyspaceCommand(opts, "order-book-summary-responses", "CLOB order book summaries"))
	cmd.AddCommand(NewGammaEventsCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))
	cmd.AddCommand(NewMirrorCommand(opts))
	return cmd
}

// openApp loads the configuration, applies command overrides and wires the
// application. Logs go to the command's stderr so stdout carries only
// command output.
func openApp(cmd *cobra.Command, opts *RootOptions, override func(*config.Config)) (*app.App, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "load config", err)
	}
	if opts.LogLevel != "" {
		cfg.LogLevel = opts.LogLevel
	}
	if override != nil {
		override(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid configuration", err)
	}

	logger := newLogger(cmd.ErrOrStderr(), cfg.LogLevel)
	slog.SetDefault(logger)
	logger.Debug("configuration loaded", slog.Any("config", config.RedactedConfig(cfg)))

	a, err := app.New(cmd.Context(), cfg, logger)
	if err != nil {
		return nil, WrapExitError(ExitFailure, "start", err)
	}
	return a, nil
}

// newLogger creates the JSON logger used by every command.
func newLogger(w io.Writer, level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl}))
}

// dirFlag registers --dir, which overrides cache.dir.
func dirFlag(cmd *cobra.Command, dir *string) {
	cmd.Flags().StringVar(dir, "dir", "", "cache directory (overrides cache.dir)")
}

func withDir(dir string) func(*config.Config) {
	return func(cfg *config.Config) {
		if dir != "" {
			cfg.Cache.Dir = dir
		}
	}
}

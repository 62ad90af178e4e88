// Command arcfs reads single-file compressed archives (.bz2, .gz, .zst, .lz4
// and single-entry .rar) as virtual filesystems: it can print, copy, hash and
// describe the decoded entry, or mount it with FUSE.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"syscall"

	"github.com/charmbracelet/fang"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	"github.com/yamatt/arcfs/internal/config"
	"github.com/yamatt/arcfs/internal/fusefs"
	_ "github.com/yamatt/arcfs/internal/providers"
	"github.com/yamatt/arcfs/internal/vfs"
)

var version = "dev"

var (
	cfg     *config.Config
	cfgFile string

	logLevel  string
	logFormat string
	eagerSize bool
	watch     bool
)

var rootCmd = &cobra.Command{
	Use:   "arcfs",
	Short: "Browse single-file compressed archives as filesystems",
	Long: `arcfs presents a compressed file as a read-only filesystem holding one
entry, the decoded content. Targets are either a host path such as
/tmp/a.txt.bz2 or a URI such as bz2:file:///tmp/a.txt.bz2!/a.txt.

Environment Variables:
  ARCFS_LOG_LEVEL    log level (debug, info, warn, error). Default: info
  ARCFS_LOG_FORMAT   log format (text, json). Default: text`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		if cmd.Flags().Changed("log-level") {
			cfg.LogLevel = logLevel
		}
		if cmd.Flags().Changed("log-format") {
			cfg.LogFormat = logFormat
		}
		if cmd.Flags().Changed("eager-size") {
			cfg.EagerSize = eagerSize
		}
		if cmd.Flags().Changed("watch") {
			cfg.Watch = watch
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid flags: %w", err)
		}

		logger := newLogger(cfg)
		slog.SetDefault(logger)
		vfs.SetLogger(logger)
		fusefs.SetLogger(logger)

		logger.Debug("configuration",
			"log_level", cfg.LogLevel,
			"log_format", cfg.LogFormat,
			"eager_size", cfg.EagerSize,
			"buffer_size", cfg.BufferSize,
			"watch", cfg.Watch,
			"canonicalize_timeout", cfg.CanonicalizeTimeout)
		return nil
	},
}

// newLogger builds the handler selected by the configuration
func newLogger(c *config.Config) *slog.Logger {
	var level slog.Level
	switch c.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var handler slog.Handler
	if c.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
			Level: level,
		})
	} else {
		handler = tint.NewHandler(os.Stderr, &tint.Options{
			Level: level,
		})
	}
	return slog.New(handler)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is arcfs.yaml in $HOME or pwd)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format (text, json)")
	rootCmd.PersistentFlags().BoolVar(&eagerSize, "eager-size", false, "decode the entry once to report its real size")
	rootCmd.PersistentFlags().BoolVar(&watch, "watch", false, "close the filesystem when the compressed file is removed")

	rootCmd.AddCommand(
		newCatCmd(),
		newStatCmd(),
		newLsCmd(),
		newCpCmd(),
		newSumCmd(),
		newDetectCmd(),
		newMountCmd(),
		newVersionCmd(),
	)
}

func main() {
	if err := fang.Execute(context.Background(), rootCmd,
		fang.WithVersion(version),
		fang.WithNotifySignal(os.Interrupt, syscall.SIGTERM),
	); err != nil {
		os.Exit(1)
	}
}

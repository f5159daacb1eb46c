package app

import (
	"fmt"
	"io"
	"os"

	"github.com/blackwell-systems/camwatch/internal/config"
	"github.com/blackwell-systems/camwatch/internal/logging"
	"github.com/blackwell-systems/camwatch/internal/store"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	dbPath     string
	configPath string

	// RootCmd is the root command for camwatch
	RootCmd = &cobra.Command{
		Use:   "camwatch",
		Short: "Track which application is using your camera",
		Long: `camwatch watches the camera devices on this machine and attributes each
busy period to the application that opened it. Every transition is written to
a local event log and, optionally, raised as a desktop notification.

Attribution uses, in order:
  • The last op reported by camwatch-report (or a wrapped binary)
  • The most recently focused application within the lookback window
  • "unknown"

Examples:
  # Watch in the foreground
  camwatch watch

  # Run as a background daemon
  camwatch watch --daemon

  # Show the last known state of each camera
  camwatch status

  # Show recent transitions
  camwatch log --limit 50

  # List camera nodes and their current holders
  camwatch devices`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("camwatch: camera occupancy monitor")
			fmt.Println()
			fmt.Println("Run 'camwatch watch' to start monitoring.")
			fmt.Println("Run 'camwatch --help' for the full reference.")
			return nil
		},
	}
)

func init() {
	RootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "database path (default: ~/.camwatch/camwatch.db)")
	RootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default: $XDG_CONFIG_HOME/camwatch/config.toml)")

	RootCmd.SuggestionsMinimumDistance = 2

	RootCmd.AddCommand(watchCmd)
	RootCmd.AddCommand(statusCmd)
	RootCmd.AddCommand(logCmd)
	RootCmd.AddCommand(devicesCmd)
	RootCmd.AddCommand(reportCmd)
	RootCmd.AddCommand(doctorCmd)
	RootCmd.AddCommand(wrapCmd)
}

// Execute runs the root command
func Execute() error {
	return RootCmd.Execute()
}

// loadConfig reads configuration and applies the --db override.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if dbPath != "" {
		cfg.Database = dbPath
	}
	return cfg, nil
}

// newLogger builds the zerolog logger described by cfg.
func newLogger(cfg *config.Config, w io.Writer) zerolog.Logger {
	lc := logging.DefaultConfig()
	if cfg.Logging.Level != "" {
		if level, err := logging.ParseLevel(cfg.Logging.Level); err == nil {
			lc.Level = level
		}
	}
	if cfg.Logging.Format != "" {
		lc.Format = cfg.Logging.Format
	}
	return logging.New(lc, w)
}

// openStore opens the configured database without creating the schema.
// Read-only commands use it so a missing database reports ErrNotInitialized.
func openStore(cfg *config.Config) (*store.Store, error) {
	if _, err := os.Stat(cfg.Database); os.IsNotExist(err) {
		return nil, store.ErrNotInitialized
	}
	st, err := store.New(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return st, nil
}

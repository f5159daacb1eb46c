package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/blackwell-systems/camwatch/internal/output"
	"github.com/blackwell-systems/camwatch/internal/store"
	"github.com/spf13/cobra"
)

var (
	logLimit  int
	logDevice string

	logCmd = &cobra.Command{
		Use:   "log",
		Short: "Show recent camera transitions",
		Long: `Show the most recent camera transitions recorded by the daemon, newest
first. The log is bounded by the log_size setting.`,
		Example: `  # Last 20 transitions
  camwatch log

  # Last 100 transitions of /dev/video2
  camwatch log --limit 100 --device 2`,
		Args: cobra.NoArgs,
		RunE: runLog,
	}
)

func init() {
	logCmd.Flags().IntVarP(&logLimit, "limit", "n", 20, "maximum number of events to show")
	logCmd.Flags().StringVar(&logDevice, "device", "", "only show events for this device id")
}

func runLog(cmd *cobra.Command, args []string) error {
	if logLimit <= 0 {
		return fmt.Errorf("--limit must be positive (got %d)", logLimit)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	events, err := st.ListEvents(logLimit, logDevice)
	if err != nil {
		if errors.Is(err, store.ErrNotInitialized) {
			return err
		}
		return fmt.Errorf("failed to list events: %w", err)
	}

	fmt.Print(output.RenderEventTable(events, time.Now()))
	return nil
}

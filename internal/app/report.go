package app

import (
	"fmt"
	"time"

	"github.com/blackwell-systems/camwatch/internal/occupancy"
	"github.com/blackwell-systems/camwatch/internal/signals"
	"github.com/spf13/cobra"
)

var reportCmd = &cobra.Command{
	Use:   "report [op] <package>",
	Short: "Record that an application is about to use the camera",
	Long: `Append an op line to the ops log read by the watcher. With a single
argument the op defaults to "camera".

A running watcher attributes the next camera activation to the reported
package, ahead of any focus-based guess.`,
	Example: `  # Attribute the next activation to Zoom
  camwatch report us.zoom.Zoom

  # Explicit op name
  camwatch report camera org.chromium.Chromium`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runReport,
}

func runReport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	op, pkg := occupancy.OpCamera, args[0]
	if len(args) == 2 {
		op, pkg = args[0], args[1]
	}

	if err := signals.AppendOp(cfg.OpsLog, time.Now(), op, pkg); err != nil {
		return fmt.Errorf("failed to report op: %w", err)
	}
	return nil
}

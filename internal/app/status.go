package app

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/blackwell-systems/camwatch/internal/output"
	"github.com/blackwell-systems/camwatch/internal/store"
	"github.com/blackwell-systems/camwatch/internal/watcher"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon status and the last known state of each camera",
	Long: `Display whether the camwatch daemon is running and the most recent
recorded state of every camera.

Shows:
  • Daemon running status and PID
  • Database location and size
  • Last recorded status and application per camera`,
	Example: `  # Check status
  camwatch status`,
	RunE: runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	running, err := watcher.IsDaemonRunning(cfg.PIDFile())
	if err != nil {
		return fmt.Errorf("failed to check daemon status: %w", err)
	}
	pid := 0
	if running {
		pid = watcher.DaemonPID(cfg.PIDFile())
	}

	const label = "%-10s"

	fmt.Println()
	fmt.Printf(label+"%s\n", "Daemon:", output.FormatDaemonState(pid))

	st, err := openStore(cfg)
	if errors.Is(err, store.ErrNotInitialized) {
		fmt.Printf(label+"%s (not created yet)\n", "Database:", cfg.Database)
		fmt.Println()
		fmt.Println("Run 'camwatch watch --daemon' to start monitoring.")
		return nil
	}
	if err != nil {
		return err
	}
	defer st.Close()

	size := "unknown size"
	if fi, err := os.Stat(cfg.Database); err == nil {
		size = humanize.Bytes(uint64(fi.Size()))
	}
	fmt.Printf(label+"%s (%s)\n", "Database:", cfg.Database, size)
	fmt.Println()

	latest, err := st.LatestPerDevice()
	if errors.Is(err, store.ErrNotInitialized) {
		fmt.Println("No camera state recorded yet.")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read camera state: %w", err)
	}
	fmt.Print(output.RenderStatusTable(latest, time.Now()))

	if !running {
		fmt.Println()
		fmt.Println("State above may be stale: the daemon is not running.")
	}
	return nil
}

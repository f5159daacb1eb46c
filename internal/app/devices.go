package app

import (
	"fmt"
	"os"

	"github.com/blackwell-systems/camwatch/internal/config"
	"github.com/blackwell-systems/camwatch/internal/emitter"
	"github.com/blackwell-systems/camwatch/internal/output"
	"github.com/blackwell-systems/camwatch/internal/signals"
	"github.com/prometheus/procfs"
	"github.com/spf13/cobra"
)

var (
	// procRoot is the procfs mount point read by devices and doctor.
	procRoot string

	devicesCmd = &cobra.Command{
		Use:   "devices",
		Short: "List camera devices and the processes holding them",
		Long: `Enumerate the camera nodes matched by devices.glob and show, for each, the
processes that currently hold it open.

Holders are read from /proc. Processes owned by other users are only visible
when camwatch runs with enough privilege to read their file descriptors.`,
		Example: `  camwatch devices`,
		Args:    cobra.NoArgs,
		RunE:    runDevices,
	}
)

func init() {
	for _, c := range []*cobra.Command{devicesCmd, doctorCmd} {
		c.Flags().StringVar(&procRoot, "proc-root", procfs.DefaultMountPoint, "procfs mount point")
		c.Flags().MarkHidden("proc-root")
	}
}

func runDevices(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	rows, err := deviceRows(cfg, procRoot)
	if err != nil {
		return err
	}
	fmt.Print(output.RenderDeviceTable(rows))
	return nil
}

// deviceRows scans cfg's device glob and labels each node.
func deviceRows(cfg *config.Config, procRoot string) ([]output.DeviceRow, error) {
	fs, err := procfs.NewFS(procRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to open procfs: %w", err)
	}

	var alias func(string) string
	if dir, err := config.Dir(); err == nil {
		if aliases, err := config.LoadAliases(dir); err == nil {
			alias = aliases.Resolve
		}
	}

	states, err := signals.ScanDevices(fs, cfg.Devices.Glob, os.Getpid(), alias)
	if err != nil {
		return nil, fmt.Errorf("failed to scan devices: %w", err)
	}

	rows := make([]output.DeviceRow, 0, len(states))
	for _, s := range states {
		rows = append(rows, output.DeviceRow{
			ID:      s.ID,
			Label:   emitter.DeviceLabel(s.ID),
			Path:    s.Path,
			Holders: s.Holders,
		})
	}
	return rows, nil
}

package app

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/blackwell-systems/camwatch/internal/config"
	"github.com/blackwell-systems/camwatch/internal/shim"
	"github.com/blackwell-systems/camwatch/internal/store"
	"github.com/blackwell-systems/camwatch/internal/watcher"
	"github.com/godbus/dbus/v5"
	"github.com/spf13/cobra"
)

// Bus connectors, replaced in tests.
var (
	connectSessionBus = func() (*dbus.Conn, error) { return dbus.ConnectSessionBus() }
	connectSystemBus  = func() (*dbus.Conn, error) { return dbus.ConnectSystemBus() }
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Diagnose common issues and check system health",
	Long: `Runs diagnostic checks on your camwatch installation.

Checks:
  • Configuration loads and validates
  • /proc is readable and camera nodes exist
  • Database exists and is accessible
  • The focus command is installed (when focus sampling is enabled)
  • D-Bus is reachable for notifications and unlock signals
  • Launch wrappers come first on PATH
  • Daemon is running`,
	Args: cobra.NoArgs,
	RunE: runDoctor,
}

// doctorReport counts issues while printing check lines.
type doctorReport struct {
	critical int
	warnings int
}

func (r *doctorReport) ok(format string, args ...any) {
	fmt.Printf("✓ "+format+"\n", args...)
}

func (r *doctorReport) warn(action, format string, args ...any) {
	fmt.Printf("⚠ "+format+"\n", args...)
	if action != "" {
		fmt.Println("  Action:", action)
	}
	r.warnings++
}

func (r *doctorReport) fail(action, format string, args ...any) {
	fmt.Printf("✗ "+format+"\n", args...)
	if action != "" {
		fmt.Println("  Action:", action)
	}
	r.critical++
}

func runDoctor(cmd *cobra.Command, args []string) error {
	fmt.Println("Running camwatch diagnostics...")
	fmt.Println()

	r := &doctorReport{}

	cfg, err := loadConfig()
	if err != nil {
		r.fail("Fix the configuration file or CAMWATCH_* variables", "Configuration invalid: %v", err)
		return r.finish()
	}
	if cfg.ConfigFile != "" {
		r.ok("Configuration loaded: %s", cfg.ConfigFile)
	} else {
		r.ok("Configuration: defaults (no config file)")
	}

	checkDevices(r, cfg)
	checkDatabase(r, cfg)
	checkFocus(r, cfg)
	checkBuses(r, cfg)
	checkWrappers(r, cfg)
	checkDaemon(r, cfg)

	return r.finish()
}

func checkDevices(r *doctorReport, cfg *config.Config) {
	rows, err := deviceRows(cfg, procRoot)
	if err != nil {
		r.fail("camwatch needs a readable procfs", "Cannot scan devices: %v", err)
		return
	}
	if len(rows) == 0 {
		r.warn("Check devices.glob or connect a camera", "No camera nodes match %s", cfg.Devices.Glob)
		return
	}
	busy := 0
	for _, row := range rows {
		if len(row.Holders) > 0 {
			busy++
		}
	}
	r.ok("%d camera node(s) found, %d in use", len(rows), busy)
}

func checkDatabase(r *doctorReport, cfg *config.Config) {
	st, err := openStore(cfg)
	if errors.Is(err, store.ErrNotInitialized) {
		r.warn("Run 'camwatch watch' to create it", "Database not created yet: %s", cfg.Database)
		return
	}
	if err != nil {
		r.fail("Check the --db path and its permissions", "Cannot open database: %v", err)
		return
	}
	defer st.Close()

	count, err := st.CountEvents()
	switch {
	case errors.Is(err, store.ErrNotInitialized):
		r.warn("Run 'camwatch watch' to initialize it", "Database has no schema: %s", cfg.Database)
	case err != nil:
		r.fail("Check the --db path and its permissions", "Cannot read events: %v", err)
	case count == 0:
		r.ok("Database is accessible (no events recorded yet)")
	default:
		r.ok("Database is accessible (%d events)", count)
	}
}

func checkFocus(r *doctorReport, cfg *config.Config) {
	if !cfg.Focus.Enabled {
		fmt.Println("- Focus sampling disabled; attribution relies on reported ops")
		return
	}
	argv := strings.Fields(cfg.Focus.Command)
	if len(argv) == 0 {
		r.fail("Set focus.command", "Focus command is empty")
		return
	}
	if path, err := exec.LookPath(argv[0]); err != nil {
		r.warn(fmt.Sprintf("Install %s or change focus.command", argv[0]), "Focus command not found: %s", argv[0])
	} else {
		r.ok("Focus command found: %s", path)
	}
}

func checkBuses(r *doctorReport, cfg *config.Config) {
	if cfg.Notifications.Enabled {
		if conn, err := connectSessionBus(); err != nil {
			r.warn("Notifications will be written to the log instead", "Session bus unavailable: %v", err)
		} else {
			conn.Close()
			r.ok("Session bus reachable (notifications)")
		}
	}
	if cfg.Unlock.Enabled {
		if conn, err := connectSystemBus(); err != nil {
			r.warn("Unlock re-attribution will be limited to the session bus", "System bus unavailable: %v", err)
		} else {
			conn.Close()
			r.ok("System bus reachable (unlock signals)")
		}
	}
}

func checkWrappers(r *doctorReport, cfg *config.Config) {
	dir := shim.Dir(cfg.DataDir)
	names, err := shim.List(dir)
	if err != nil {
		r.warn("", "Cannot read wrapper directory: %v", err)
		return
	}
	if len(names) == 0 {
		return
	}
	if ok, reason := shim.IsSetup(dir, os.Getenv("PATH"), names); !ok {
		r.warn(reason, "Wrappers not active for %s", strings.Join(names, ", "))
		return
	}
	r.ok("Wrappers active (%d applications)", len(names))
}

func checkDaemon(r *doctorReport, cfg *config.Config) {
	pidFile := cfg.PIDFile()
	if _, err := os.Stat(pidFile); os.IsNotExist(err) {
		r.warn("Run 'camwatch watch --daemon'", "Daemon not running (no PID file)")
		return
	}
	running, err := watcher.IsDaemonRunning(pidFile)
	switch {
	case err != nil:
		r.warn("", "Failed to check daemon status: %v", err)
	case !running:
		r.warn("Run 'camwatch watch --daemon'", "Daemon not running (stale PID file)")
	default:
		r.ok("Daemon running (PID %d)", watcher.DaemonPID(pidFile))
	}

	if _, err := os.Stat(filepath.Dir(cfg.OpsLog)); err != nil {
		r.warn("", "Ops log directory missing: %s", filepath.Dir(cfg.OpsLog))
	}
}

// finish prints the summary. Warnings alone do not fail the command.
func (r *doctorReport) finish() error {
	fmt.Println()
	if r.critical == 0 && r.warnings == 0 {
		fmt.Println("✓ All checks passed!")
		return nil
	}
	if r.critical > 0 {
		fmt.Printf("Found %d critical issue(s) and %d warning(s).\n", r.critical, r.warnings)
		return fmt.Errorf("diagnostics failed")
	}
	fmt.Printf("Found %d warning(s). camwatch is functional but not fully configured.\n", r.warnings)
	return nil
}

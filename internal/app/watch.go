package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/blackwell-systems/camwatch/internal/config"
	"github.com/blackwell-systems/camwatch/internal/emitter"
	"github.com/blackwell-systems/camwatch/internal/notify"
	"github.com/blackwell-systems/camwatch/internal/output"
	"github.com/blackwell-systems/camwatch/internal/store"
	"github.com/blackwell-systems/camwatch/internal/watcher"
	"github.com/spf13/cobra"
)

// stopTimeout bounds how long --stop waits for the daemon to exit.
const stopTimeout = 10 * time.Second

var (
	watchDaemon      bool
	watchDaemonChild bool
	watchPIDFile     string
	watchLogFile     string
	watchStop        bool
	watchQuiet       bool

	watchCmd = &cobra.Command{
		Use:   "watch",
		Short: "Monitor camera occupancy",
		Long: `Start monitoring the camera devices and attribute each busy period to an
application.

Watch modes:
  • Foreground (default): Run in current terminal with Ctrl+C to stop
  • Daemon: Run as a background process
  • Stop: Stop a running daemon

The watcher combines:
  • Device holders, polled from /proc and woken by device hotplug
  • Op lines appended by camwatch-report
  • Focused-window samples (when focus.enabled is set)
  • Session unlock signals from D-Bus

Every transition is written to the event log. When notifications are enabled
a desktop notification is raised for each one.`,
		Example: `  # Run in foreground (Ctrl+C to stop)
  camwatch watch

  # Run as background daemon
  camwatch watch --daemon

  # Stop running daemon
  camwatch watch --stop

  # Use custom PID and log files
  camwatch watch --daemon --pid-file /tmp/watch.pid --log-file /tmp/watch.log`,
		RunE: runWatch,
	}
)

func init() {
	watchCmd.Flags().BoolVar(&watchDaemon, "daemon", false, "run as background daemon")
	watchCmd.Flags().BoolVar(&watchDaemonChild, "daemon-child", false, "internal flag for daemon child process")
	watchCmd.Flags().StringVar(&watchPIDFile, "pid-file", "", "PID file path (default: ~/.camwatch/watch.pid)")
	watchCmd.Flags().StringVar(&watchLogFile, "log-file", "", "log file path (default: ~/.camwatch/watch.log)")
	watchCmd.Flags().BoolVar(&watchStop, "stop", false, "stop running daemon")
	watchCmd.Flags().BoolVarP(&watchQuiet, "quiet", "q", false, "do not print transitions to stdout")

	// Hide the internal daemon-child flag from help
	watchCmd.Flags().MarkHidden("daemon-child")
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.EnsureDataDir(); err != nil {
		return err
	}

	if watchPIDFile == "" {
		watchPIDFile = cfg.PIDFile()
	}
	if watchLogFile == "" {
		watchLogFile = cfg.LogFile()
	}

	if watchStop {
		return stopWatchDaemon()
	}
	if watchDaemon {
		return startWatchDaemon()
	}

	st, err := store.New(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer st.Close()

	if err := st.CreateSchema(); err != nil {
		return fmt.Errorf("failed to create database schema: %w", err)
	}

	session, err := newSession(cfg, st)
	if err != nil {
		return err
	}

	if watchDaemonChild {
		// stdout and stderr are redirected to the log file here
		return session.RunDaemon(context.Background(), watchPIDFile)
	}
	return runWatchForeground(session)
}

// newSession builds a monitoring session from cfg.
func newSession(cfg *config.Config, st *store.Store) (*watcher.Session, error) {
	log := newLogger(cfg, os.Stderr)

	cfgDir, err := config.Dir()
	if err != nil {
		return nil, err
	}
	aliases, err := config.LoadAliases(cfgDir)
	if err != nil {
		log.Warn().Err(err).Msg("ignoring alias file")
		aliases = nil
	}

	var n notify.Notifier
	if cfg.Notifications.Enabled {
		n = notify.New(cfg.Notifications.AppName, log)
	}

	var onPayload func(emitter.Payload)
	if !watchDaemonChild && !watchQuiet {
		onPayload = func(p emitter.Payload) {
			fmt.Println(output.FormatPayload(p))
		}
	}

	session, err := watcher.New(watcher.Options{
		Config:    cfg,
		Store:     st,
		Aliases:   aliases,
		Notifier:  n,
		OnPayload: onPayload,
		Logger:    log,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return session, nil
}

func stopWatchDaemon() error {
	running, err := watcher.IsDaemonRunning(watchPIDFile)
	if err != nil {
		return fmt.Errorf("failed to check daemon status: %w", err)
	}

	if !running {
		fmt.Println("Daemon is not running")
		return nil
	}

	spinner := output.NewSpinner("Stopping daemon...").WithTimeout(stopTimeout)
	spinner.Start()
	if err := watcher.StopDaemon(watchPIDFile, stopTimeout); err != nil {
		spinner.Stop()
		return fmt.Errorf("failed to stop daemon: %w", err)
	}
	spinner.StopWithMessage("✓ Daemon stopped")

	return nil
}

// daemonChildArgs rebuilds the command line for the daemon child.
func daemonChildArgs() []string {
	args := []string{"watch", "--daemon-child", "--pid-file", watchPIDFile}
	if configPath != "" {
		args = append(args, "--config", configPath)
	}
	if dbPath != "" {
		args = append(args, "--db", dbPath)
	}
	return args
}

func startWatchDaemon() error {
	running, err := watcher.IsDaemonRunning(watchPIDFile)
	if err != nil {
		return fmt.Errorf("failed to check daemon status: %w", err)
	}

	if running {
		return fmt.Errorf("daemon already running (PID file: %s)", watchPIDFile)
	}

	spinner := output.NewSpinner("Starting daemon...")
	spinner.Start()
	if err := watcher.StartDaemon(watchPIDFile, watchLogFile, daemonChildArgs()); err != nil {
		spinner.Stop()
		return fmt.Errorf("failed to start daemon: %w", err)
	}
	spinner.StopWithMessage("✓ Daemon started")

	fmt.Printf("\nCamera monitoring daemon started\n")
	fmt.Printf("  PID file: %s\n", watchPIDFile)
	fmt.Printf("  Log file: %s\n", watchLogFile)
	fmt.Printf("\nTo stop: camwatch watch --stop\n")

	return nil
}

func runWatchForeground(session *watcher.Session) error {
	fmt.Println("Starting camera monitoring (press Ctrl+C to stop)...")
	fmt.Println()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := session.Start(ctx); err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}

	<-session.Done()
	fmt.Println()
	fmt.Println("Camera monitoring stopped")

	return session.Wait()
}

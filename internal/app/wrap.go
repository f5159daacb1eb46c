package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/blackwell-systems/camwatch/internal/config"
	"github.com/blackwell-systems/camwatch/internal/shell"
	"github.com/blackwell-systems/camwatch/internal/shim"
	"github.com/spf13/cobra"
)

var (
	wrapRemove bool
	wrapList   bool
	wrapNoPath bool

	wrapCmd = &cobra.Command{
		Use:   "wrap [app...]",
		Short: "Report camera use whenever an application is launched",
		Long: `Create wrappers that attribute camera use to an application at launch.

Each wrapper is a symlink in ~/.camwatch/bin pointing at camwatch-report.
Launching the application through the wrapper appends a camera op to the ops
log and then starts the real binary. The wrapper directory is added to your
shell profile so it comes first on PATH.`,
		Example: `  # Wrap zoom and obs
  camwatch wrap zoom obs

  # Show wrapped applications
  camwatch wrap --list

  # Remove one wrapper, or all of them
  camwatch wrap --remove zoom
  camwatch wrap --remove`,
		RunE: runWrap,
	}
)

func init() {
	wrapCmd.Flags().BoolVar(&wrapRemove, "remove", false, "remove wrappers (all when no app is given)")
	wrapCmd.Flags().BoolVar(&wrapList, "list", false, "list wrapped applications")
	wrapCmd.Flags().BoolVar(&wrapNoPath, "no-path", false, "do not edit the shell profile")
}

func runWrap(cmd *cobra.Command, args []string) error {
	if wrapRemove && wrapList {
		return fmt.Errorf("--remove and --list are mutually exclusive")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	dir := shim.Dir(cfg.DataDir)

	switch {
	case wrapList:
		return listWrappers(dir)
	case wrapRemove:
		return removeWrappers(dir, args)
	}

	if len(args) == 0 {
		return fmt.Errorf("no application given; see 'camwatch wrap --help'")
	}

	if _, err := shim.InstallReporter(dir); err != nil {
		if errors.Is(err, shim.ErrReporterMissing) {
			return fmt.Errorf("%w: install it next to camwatch or on PATH", err)
		}
		return fmt.Errorf("failed to install reporter: %w", err)
	}

	n, err := shim.Wrap(dir, args, os.Getenv("PATH"))
	if err != nil {
		return err
	}
	fmt.Printf("✓ %d wrapper(s) created in %s\n", n, dir)

	if !wrapNoPath {
		added, profile, err := shell.EnsurePathEntry(dir)
		if err != nil {
			return fmt.Errorf("failed to update shell profile: %w", err)
		}
		if added {
			fmt.Printf("✓ Added %s to PATH in %s (restart your shell to activate)\n", dir, profile)
		}
	}

	if hint := opsLogHint(cfg); hint != "" {
		fmt.Println()
		fmt.Println(hint)
	}
	return nil
}

// opsLogHint explains how to point wrappers at a non-default ops log. The
// reporter does not read config.toml.
func opsLogHint(cfg *config.Config) string {
	def, err := config.DefaultDataDir()
	if err != nil || cfg.OpsLog == filepath.Join(def, "ops.log") || os.Getenv("CAMWATCH_OPS_LOG") == cfg.OpsLog {
		return ""
	}
	if dir := os.Getenv("CAMWATCH_DATA_DIR"); dir != "" && cfg.OpsLog == filepath.Join(dir, "ops.log") {
		return ""
	}
	return fmt.Sprintf("Note: ops_log is %s; export CAMWATCH_OPS_LOG=%q so wrappers write there.", cfg.OpsLog, cfg.OpsLog)
}

func listWrappers(dir string) error {
	names, err := shim.List(dir)
	if err != nil {
		return err
	}
	if len(names) == 0 {
		fmt.Println("No applications wrapped.")
		return nil
	}
	fmt.Println(strings.Join(names, "\n"))

	if ok, reason := shim.IsSetup(dir, os.Getenv("PATH"), names); !ok {
		fmt.Println()
		fmt.Println("⚠ Wrappers are not active in this shell:", reason)
	}
	return nil
}

func removeWrappers(dir string, names []string) error {
	n, err := shim.Unwrap(dir, names)
	if err != nil {
		return err
	}
	fmt.Printf("✓ %d wrapper(s) removed\n", n)

	remaining, err := shim.List(dir)
	if err != nil {
		return err
	}
	if len(remaining) > 0 || wrapNoPath {
		return nil
	}
	removed, profile, err := shell.RemovePathEntry()
	if err != nil {
		return fmt.Errorf("failed to update shell profile: %w", err)
	}
	if removed {
		fmt.Printf("✓ Removed %s from PATH in %s\n", dir, profile)
	}
	return nil
}

// Command camwatch-report records that an application is about to use the
// camera by appending a line to the ops log tailed by 'camwatch watch'.
//
// Direct use:
//
//	camwatch-report [op] <package>
//
// Wrapper use: symlink a camera application to camwatch-report placed ahead
// of the real binary on PATH (e.g. ~/.camwatch/bin/zoom -> camwatch-report).
// Running the symlink then:
//  1. Appends "camera,<name>" to the ops log (best-effort, never blocks the app)
//  2. Execs the next binary of the same name on PATH, replacing this process
//
// The reporter does not import any internal camwatch packages so it stays
// small and starts fast.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"
)

const selfName = "camwatch-report"

func main() {
	cmdName := filepath.Base(os.Args[0])

	if cmdName == selfName {
		if err := report(os.Args[1:]); err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", selfName, err)
			os.Exit(1)
		}
		return
	}

	// Wrapper mode: never fail the user's command because of logging.
	_ = appendOp(opsLogPath(), time.Now(), "camera", cmdName)

	self, _ := os.Executable()
	realBin := findRealBinary(cmdName, self, os.Getenv("PATH"))
	if realBin == "" {
		fmt.Fprintf(os.Stderr, "%s: cannot find real binary for %q on PATH\n", selfName, cmdName)
		os.Exit(1)
	}

	if err := syscall.Exec(realBin, os.Args, os.Environ()); err != nil {
		fmt.Fprintf(os.Stderr, "%s: exec %s failed: %v\n", selfName, realBin, err)
		os.Exit(1)
	}
}

func report(args []string) error {
	var op, pkg string
	switch len(args) {
	case 1:
		op, pkg = "camera", args[0]
	case 2:
		op, pkg = args[0], args[1]
	default:
		return fmt.Errorf("usage: %s [op] <package>", selfName)
	}
	return appendOp(opsLogPath(), time.Now(), op, pkg)
}

// opsLogPath resolves the ops log: $CAMWATCH_OPS_LOG, then
// $CAMWATCH_DATA_DIR/ops.log, then ~/.camwatch/ops.log.
func opsLogPath() string {
	if p := os.Getenv("CAMWATCH_OPS_LOG"); p != "" {
		return p
	}
	if dir := os.Getenv("CAMWATCH_DATA_DIR"); dir != "" {
		return filepath.Join(dir, "ops.log")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".camwatch", "ops.log")
}

// appendOp writes "<unix_nano>,<op>,<package>\n". O_APPEND keeps concurrent
// reporters from interleaving lines.
func appendOp(path string, ts time.Time, op, pkg string) error {
	if path == "" {
		return fmt.Errorf("cannot determine ops log path")
	}
	if op == "" || strings.ContainsAny(op, ",\n") {
		return fmt.Errorf("invalid op %q", op)
	}
	if pkg == "" || strings.ContainsRune(pkg, '\n') {
		return fmt.Errorf("invalid package %q", pkg)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = fmt.Fprintf(f, "%d,%s,%s\n", ts.UnixNano(), op, pkg)
	return err
}

// findRealBinary returns the first executable named name on path that does
// not resolve to self. Returns "" when only the reporter itself is found
// (infinite exec loop guard).
func findRealBinary(name, self, path string) string {
	if name == selfName {
		return ""
	}
	selfReal := resolve(self)
	for _, dir := range filepath.SplitList(path) {
		if dir == "" {
			continue
		}
		p := filepath.Join(dir, name)
		fi, err := os.Stat(p)
		if err != nil || fi.IsDir() || fi.Mode()&0111 == 0 {
			continue
		}
		if selfReal != "" && resolve(p) == selfReal {
			continue
		}
		return p
	}
	return ""
}

func resolve(p string) string {
	if p == "" {
		return ""
	}
	r, err := filepath.EvalSymlinks(p)
	if err != nil {
		return ""
	}
	return r
}

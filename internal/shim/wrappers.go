// Package shim manages wrapper symlinks that report camera use before
// launching an application.
//
// Layout:
//   - The camwatch-report binary is copied to <data_dir>/bin.
//   - Each wrapped application gets a symlink <data_dir>/bin/<name> pointing
//     at that binary.
//   - With <data_dir>/bin first on PATH, launching <name> appends a camera op
//     to the ops log and then execs the real <name> further down PATH.
package shim

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
)

// ReporterName is the reporter binary every wrapper links to.
const ReporterName = "camwatch-report"

// ErrReporterMissing is returned when no camwatch-report binary can be found.
var ErrReporterMissing = errors.New("camwatch-report binary not found")

// Dir returns the wrapper directory for dataDir.
func Dir(dataDir string) string {
	return filepath.Join(dataDir, "bin")
}

// FindOnPath returns the first executable named name on pathEnv outside
// skipDir, or "".
func FindOnPath(name, pathEnv, skipDir string) string {
	for _, dir := range filepath.SplitList(pathEnv) {
		if dir == "" || dir == skipDir {
			continue
		}
		p := filepath.Join(dir, name)
		fi, err := os.Stat(p)
		if err != nil || fi.IsDir() || fi.Mode()&0111 == 0 {
			continue
		}
		return p
	}
	return ""
}

// IsSetup reports whether dir is on pathEnv ahead of the real binary for
// each of names. The reason explains what needs fixing.
func IsSetup(dir, pathEnv string, names []string) (bool, string) {
	dirs := filepath.SplitList(pathEnv)
	idx := -1
	for i, d := range dirs {
		if d == dir {
			idx = i
			break
		}
	}
	if idx == -1 {
		return false, fmt.Sprintf("add the wrapper directory to PATH:\n  export PATH=%q:$PATH", dir)
	}

	ahead := strings.Join(dirs[:idx], string(filepath.ListSeparator))
	for _, name := range names {
		if p := FindOnPath(name, ahead, ""); p != "" {
			return false, fmt.Sprintf("%s shadows the %s wrapper; move %s earlier in PATH", p, name, dir)
		}
	}
	return true, ""
}

// locateReporter finds camwatch-report next to the running executable or
// on PATH.
func locateReporter() (string, error) {
	if self, err := os.Executable(); err == nil {
		candidate := filepath.Join(filepath.Dir(self), ReporterName)
		if fi, err := os.Stat(candidate); err == nil && !fi.IsDir() {
			return candidate, nil
		}
	}
	if p, err := exec.LookPath(ReporterName); err == nil {
		return p, nil
	}
	return "", ErrReporterMissing
}

// InstallReporter copies camwatch-report into dir.
func InstallReporter(dir string) (string, error) {
	src, err := locateReporter()
	if err != nil {
		return "", err
	}
	return installFrom(src, dir)
}

func installFrom(src, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("cannot create wrapper dir %s: %w", dir, err)
	}
	dst := filepath.Join(dir, ReporterName)

	srcReal, _ := filepath.EvalSymlinks(src)
	dstReal, _ := filepath.EvalSymlinks(dst)
	if srcReal != "" && srcReal == dstReal {
		return dst, nil
	}
	return dst, copyFile(src, dst)
}

// copyFile copies src to dst, making dst executable.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer in.Close()

	// Write to a temp file first so a running wrapper is never truncated.
	tmp := dst + ".tmp"
	out, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0755)
	if err != nil {
		return fmt.Errorf("open dest: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(tmp)
		return fmt.Errorf("copy: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close dest: %w", err)
	}
	return os.Rename(tmp, dst)
}

// validName rejects names that cannot be a single PATH entry.
func validName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsRune(name, filepath.Separator) {
		return fmt.Errorf("invalid application name %q", name)
	}
	if name == ReporterName {
		return fmt.Errorf("cannot wrap %s itself", ReporterName)
	}
	return nil
}

// Wrap creates wrapper symlinks in dir for names. Every name must resolve
// to a real executable on pathEnv outside dir. Returns the count of newly
// created symlinks.
func Wrap(dir string, names []string, pathEnv string) (int, error) {
	reporter := filepath.Join(dir, ReporterName)
	if _, err := os.Stat(reporter); err != nil {
		return 0, fmt.Errorf("%w in %s; install it first", ErrReporterMissing, dir)
	}

	count := 0
	for _, name := range names {
		if err := validName(name); err != nil {
			return count, err
		}
		if FindOnPath(name, pathEnv, dir) == "" {
			return count, fmt.Errorf("no %q found on PATH to wrap", name)
		}

		link := filepath.Join(dir, name)
		if existing, err := os.Readlink(link); err == nil {
			if existing == reporter {
				continue
			}
			os.Remove(link)
		} else if _, err := os.Lstat(link); err == nil {
			return count, fmt.Errorf("%s exists and is not a wrapper", link)
		}

		if err := os.Symlink(reporter, link); err != nil {
			return count, fmt.Errorf("failed to create wrapper for %s: %w", name, err)
		}
		count++
	}
	return count, nil
}

// List returns the names currently wrapped in dir, sorted.
func List(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cannot read wrapper dir %s: %w", dir, err)
	}

	reporter := filepath.Join(dir, ReporterName)
	var names []string
	for _, e := range entries {
		if e.Type()&os.ModeSymlink == 0 {
			continue
		}
		if target, err := os.Readlink(filepath.Join(dir, e.Name())); err == nil && target == reporter {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// Unwrap removes the wrappers for names, or every wrapper when names is
// empty. The reporter binary itself is left in place.
func Unwrap(dir string, names []string) (int, error) {
	wrapped, err := List(dir)
	if err != nil {
		return 0, err
	}
	if len(names) == 0 {
		names = wrapped
	}

	isWrapped := make(map[string]bool, len(wrapped))
	for _, n := range wrapped {
		isWrapped[n] = true
	}

	count := 0
	for _, name := range names {
		if !isWrapped[name] {
			continue
		}
		if err := os.Remove(filepath.Join(dir, name)); err != nil {
			return count, fmt.Errorf("failed to remove wrapper for %s: %w", name, err)
		}
		count++
	}
	return count, nil
}

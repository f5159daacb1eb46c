// Package shell edits the login shell profile so the camwatch wrapper
// directory is searched before the real application binaries.
package shell

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// marker tags the block camwatch appends to a profile.
const marker = "# camwatch wrappers"

// Profile returns the profile file for the login shell named by shellPath
// and whether it uses fish syntax.
func Profile(home, shellPath string) (path string, fish bool) {
	switch filepath.Base(shellPath) {
	case "zsh":
		return filepath.Join(home, ".zprofile"), false
	case "bash":
		return filepath.Join(home, ".bash_profile"), false
	case "fish":
		return filepath.Join(home, ".config", "fish", "conf.d", "camwatch.fish"), true
	default:
		return filepath.Join(home, ".profile"), false
	}
}

// OnPath reports whether dir is an entry of pathEnv.
func OnPath(dir, pathEnv string) bool {
	for _, entry := range filepath.SplitList(pathEnv) {
		if entry == dir {
			return true
		}
	}
	return false
}

// EnsurePathEntry prepends dir to PATH in the user's shell profile unless
// dir is already on PATH or the profile already carries the camwatch block.
// added=false means nothing was written.
func EnsurePathEntry(dir string) (added bool, configFile string, err error) {
	if OnPath(dir, os.Getenv("PATH")) {
		return false, "", nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return false, "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	configPath, fish := Profile(home, os.Getenv("SHELL"))

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return false, "", fmt.Errorf("cannot create config directory %s: %w", filepath.Dir(configPath), err)
	}

	if existing, err := os.ReadFile(configPath); err == nil && strings.Contains(string(existing), marker) {
		return false, configPath, nil
	}

	line := fmt.Sprintf("\n%s\nexport PATH=%q:$PATH\n", marker, dir)
	if fish {
		line = fmt.Sprintf("\n%s\nfish_add_path %s\n", marker, dir)
	}

	f, err := os.OpenFile(configPath, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return false, "", fmt.Errorf("cannot open config file %s: %w", configPath, err)
	}
	defer f.Close()

	if _, err := fmt.Fprint(f, line); err != nil {
		return false, "", fmt.Errorf("cannot write to config file %s: %w", configPath, err)
	}
	return true, configPath, nil
}

// RemovePathEntry deletes the camwatch block from the user's shell profile.
// It reports whether the profile changed.
func RemovePathEntry() (removed bool, configFile string, err error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return false, "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	configPath, _ := Profile(home, os.Getenv("SHELL"))

	data, err := os.ReadFile(configPath)
	if os.IsNotExist(err) {
		return false, configPath, nil
	}
	if err != nil {
		return false, "", fmt.Errorf("cannot read config file %s: %w", configPath, err)
	}

	lines := strings.Split(string(data), "\n")
	out := make([]string, 0, len(lines))
	for i := 0; i < len(lines); i++ {
		if lines[i] != marker {
			out = append(out, lines[i])
			continue
		}
		removed = true
		i++ // the PATH line that follows the marker
		if n := len(out); n > 0 && out[n-1] == "" {
			out = out[:n-1]
		}
	}
	if !removed {
		return false, configPath, nil
	}

	if err := os.WriteFile(configPath, []byte(strings.Join(out, "\n")), 0644); err != nil {
		return false, "", fmt.Errorf("cannot write config file %s: %w", configPath, err)
	}
	return true, configPath, nil
}

// Package config loads camwatch settings and the user's alias file.
package config

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

// Dir returns the camwatch config directory, respecting XDG_CONFIG_HOME.
// Defaults to ~/.config/camwatch if XDG_CONFIG_HOME is not set.
func Dir() (string, error) {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "camwatch"), nil
}

// AliasConfig holds the alias-to-package mappings declared by the user.
// Each key is a process or binary name as seen on the host and the value
// is the application identifier camwatch should attribute it to.
type AliasConfig struct {
	Aliases map[string]string
}

// Resolve returns the identifier mapped to name, or name itself.
func (a *AliasConfig) Resolve(name string) string {
	if a == nil {
		return name
	}
	if pkg, ok := a.Aliases[name]; ok {
		return pkg
	}
	return name
}

// LoadAliases reads the aliases file at {dir}/aliases and returns the parsed
// config. If the file does not exist, an empty config is returned without an
// error. Invalid or malformed lines are silently skipped.
func LoadAliases(dir string) (*AliasConfig, error) {
	cfg := &AliasConfig{
		Aliases: make(map[string]string),
	}

	path := filepath.Join(dir, "aliases")
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip blank lines and comments.
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		idx := strings.IndexByte(line, '=')
		if idx <= 0 {
			continue
		}

		alias := strings.TrimSpace(line[:idx])
		pkg := strings.TrimSpace(line[idx+1:])

		if alias == "" || pkg == "" {
			continue
		}

		cfg.Aliases[alias] = pkg
	}

	if err := scanner.Err(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

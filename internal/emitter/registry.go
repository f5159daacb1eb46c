package emitter

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

var (
	// ErrNotFound means the registry has no entry for the package.
	ErrNotFound = errors.New("application not found")
	// ErrPermissionDenied means the registry could not be read.
	ErrPermissionDenied = errors.New("permission denied")
)

// AppInfo is what the application registry knows about a package.
type AppInfo struct {
	Package     string
	DisplayName string
	SourceDir   string
}

// Registry resolves package identifiers to display information.
type Registry interface {
	Lookup(pkg string) (AppInfo, error)
}

// DesktopRegistry resolves packages from freedesktop .desktop entries.
// An entry is indexed under its desktop id, the last dotted component of the
// id, the basename of its Exec binary and its StartupWMClass, all lowercased.
type DesktopRegistry struct {
	dirs    []string
	aliases map[string]string

	mu     sync.Mutex
	index  map[string]AppInfo
	loaded bool
	denied bool
}

// NewDesktopRegistry creates a registry over the given application
// directories. aliases maps process names to package identifiers.
func NewDesktopRegistry(dirs []string, aliases map[string]string) *DesktopRegistry {
	return &DesktopRegistry{
		dirs:    dirs,
		aliases: aliases,
	}
}

// DefaultApplicationDirs returns the XDG application directories.
func DefaultApplicationDirs() []string {
	var dirs []string

	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		if home, err := os.UserHomeDir(); err == nil {
			dataHome = filepath.Join(home, ".local", "share")
		}
	}
	if dataHome != "" {
		dirs = append(dirs, filepath.Join(dataHome, "applications"))
	}

	dataDirs := os.Getenv("XDG_DATA_DIRS")
	if dataDirs == "" {
		dataDirs = "/usr/local/share:/usr/share"
	}
	for _, d := range strings.Split(dataDirs, ":") {
		if d != "" {
			dirs = append(dirs, filepath.Join(d, "applications"))
		}
	}
	return dirs
}

// Refresh rebuilds the index from disk. Missing directories are skipped;
// unreadable ones mark the registry so misses report ErrPermissionDenied.
func (r *DesktopRegistry) Refresh() error {
	index := make(map[string]AppInfo)
	denied := false

	for _, dir := range r.dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			if errors.Is(err, fs.ErrPermission) {
				denied = true
			}
			continue
		}

		for _, entry := range entries {
			if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".desktop") {
				continue
			}
			path := filepath.Join(dir, entry.Name())
			de, err := parseDesktopEntry(path)
			if err != nil {
				if errors.Is(err, fs.ErrPermission) {
					denied = true
				}
				continue
			}
			if de.name == "" {
				continue
			}

			id := strings.TrimSuffix(entry.Name(), ".desktop")
			info := AppInfo{DisplayName: de.name, SourceDir: dir}
			for _, key := range de.keys(id) {
				// earlier directories take precedence, as in XDG lookup order
				if _, exists := index[key]; !exists {
					index[key] = info
				}
			}
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.index = index
	r.denied = denied
	r.loaded = true
	return nil
}

// Lookup resolves pkg. The index is built on first use.
func (r *DesktopRegistry) Lookup(pkg string) (AppInfo, error) {
	r.mu.Lock()
	loaded := r.loaded
	r.mu.Unlock()
	if !loaded {
		if err := r.Refresh(); err != nil {
			return AppInfo{}, err
		}
	}

	key := pkg
	if alias, ok := r.aliases[pkg]; ok {
		key = alias
	}
	key = strings.ToLower(key)

	r.mu.Lock()
	defer r.mu.Unlock()

	if info, ok := r.index[key]; ok {
		info.Package = pkg
		return info, nil
	}
	if r.denied {
		return AppInfo{}, fmt.Errorf("lookup %s: %w", pkg, ErrPermissionDenied)
	}
	return AppInfo{}, fmt.Errorf("lookup %s: %w", pkg, ErrNotFound)
}

type desktopEntry struct {
	name    string
	exec    string
	wmClass string
}

func (de desktopEntry) keys(id string) []string {
	keys := []string{strings.ToLower(id)}
	if i := strings.LastIndexByte(id, '.'); i >= 0 && i < len(id)-1 {
		keys = append(keys, strings.ToLower(id[i+1:]))
	}
	if de.exec != "" {
		if fields := strings.Fields(de.exec); len(fields) > 0 {
			keys = append(keys, strings.ToLower(filepath.Base(fields[0])))
		}
	}
	if de.wmClass != "" {
		keys = append(keys, strings.ToLower(de.wmClass))
	}
	return keys
}

// parseDesktopEntry reads the [Desktop Entry] group of a .desktop file.
// Localised keys (Name[de]=...) are ignored.
func parseDesktopEntry(path string) (desktopEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return desktopEntry{}, err
	}
	defer f.Close()

	var de desktopEntry
	inMain := false

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "[") {
			inMain = line == "[Desktop Entry]"
			continue
		}
		if !inMain {
			continue
		}

		idx := strings.IndexByte(line, '=')
		if idx <= 0 {
			continue
		}
		key := strings.TrimSpace(line[:idx])
		value := strings.TrimSpace(line[idx+1:])

		switch key {
		case "Name":
			de.name = value
		case "Exec":
			de.exec = value
		case "StartupWMClass":
			de.wmClass = value
		}
	}

	if err := scanner.Err(); err != nil {
		return desktopEntry{}, err
	}
	return de, nil
}

// StaticRegistry is a fixed map of package to AppInfo.
type StaticRegistry map[string]AppInfo

// Lookup implements Registry.
func (s StaticRegistry) Lookup(pkg string) (AppInfo, error) {
	info, ok := s[pkg]
	if !ok {
		return AppInfo{}, fmt.Errorf("lookup %s: %w", pkg, ErrNotFound)
	}
	info.Package = pkg
	return info, nil
}

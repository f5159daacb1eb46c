package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeAliases(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, "aliases"), []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func TestLoadAliases_FileNotFound(t *testing.T) {
	cfg, err := LoadAliases(t.TempDir())
	if err != nil {
		t.Fatalf("LoadAliases() returned error for missing file: %v", err)
	}
	if cfg == nil {
		t.Fatal("LoadAliases() returned nil config")
	}
	if len(cfg.Aliases) != 0 {
		t.Errorf("expected empty Aliases map, got %v", cfg.Aliases)
	}
}

func TestLoadAliases_Lines(t *testing.T) {
	dir := t.TempDir()
	writeAliases(t, dir, `# camwatch aliases
# Format: process=application id

zoom=us.zoom.Zoom
chrome = com.google.Chrome
noequalssign
=missingname
 =
obs=com.obsproject.Studio
`)

	cfg, err := LoadAliases(dir)
	if err != nil {
		t.Fatalf("LoadAliases() error: %v", err)
	}

	want := map[string]string{
		"zoom":   "us.zoom.Zoom",
		"chrome": "com.google.Chrome",
		"obs":    "com.obsproject.Studio",
	}
	if len(cfg.Aliases) != len(want) {
		t.Errorf("expected %d aliases, got %d: %v", len(want), len(cfg.Aliases), cfg.Aliases)
	}
	for name, pkg := range want {
		if got := cfg.Aliases[name]; got != pkg {
			t.Errorf("Aliases[%q] = %q, want %q", name, got, pkg)
		}
	}
}

func TestAliasConfig_Resolve(t *testing.T) {
	cfg := &AliasConfig{Aliases: map[string]string{"zoom": "us.zoom.Zoom"}}

	tests := []struct {
		name string
		want string
	}{
		{"zoom", "us.zoom.Zoom"},
		{"firefox", "firefox"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := cfg.Resolve(tt.name); got != tt.want {
			t.Errorf("Resolve(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}

	var nilCfg *AliasConfig
	if got := nilCfg.Resolve("zoom"); got != "zoom" {
		t.Errorf("nil Resolve(zoom) = %q, want zoom", got)
	}
}

func TestDir_XDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	dir, err := Dir()
	if err != nil {
		t.Fatalf("Dir() error: %v", err)
	}
	if dir != filepath.Join("/tmp/xdg", "camwatch") {
		t.Errorf("Dir() = %q, want /tmp/xdg/camwatch", dir)
	}
}

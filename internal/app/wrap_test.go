package app

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/blackwell-systems/camwatch/internal/shim"
)

func resetWrapFlags() {
	wrapRemove = false
	wrapList = false
	wrapNoPath = false
}

// installFakeReporter puts a reporter binary in the wrapper dir and a real
// "zoom" on PATH.
func installFakeReporter(t *testing.T, dataDir string) string {
	t.Helper()
	dir := shim.Dir(dataDir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, shim.ReporterName), []byte("fake"), 0755); err != nil {
		t.Fatal(err)
	}

	realDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(realDir, "zoom"), []byte("#!/bin/sh\n"), 0755); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PATH", realDir)
	t.Setenv("SHELL", "/bin/sh")
	return dir
}

func TestWrapCommandFlags(t *testing.T) {
	for _, name := range []string{"remove", "list", "no-path"} {
		if wrapCmd.Flags().Lookup(name) == nil {
			t.Errorf("expected --%s flag to be registered", name)
		}
	}
}

func TestRunWrap_RequiresApp(t *testing.T) {
	setupEnv(t)
	resetWrapFlags()

	if err := runWrap(wrapCmd, nil); err == nil {
		t.Error("expected error when no application is given")
	}
}

func TestRunWrap_ConflictingFlags(t *testing.T) {
	setupEnv(t)
	resetWrapFlags()
	defer resetWrapFlags()
	wrapRemove, wrapList = true, true

	if err := runWrap(wrapCmd, nil); err == nil {
		t.Error("expected error for --remove with --list")
	}
}

func TestRunWrap_ListAndRemove(t *testing.T) {
	dataDir := setupEnv(t)
	resetWrapFlags()
	defer resetWrapFlags()
	dir := installFakeReporter(t, dataDir)

	if _, err := shim.Wrap(dir, []string{"zoom"}, os.Getenv("PATH")); err != nil {
		t.Fatalf("shim.Wrap() error = %v", err)
	}

	wrapList = true
	out := captureStdout(t, func() {
		if err := runWrap(wrapCmd, nil); err != nil {
			t.Errorf("runWrap(--list) error = %v", err)
		}
	})
	if !strings.Contains(out, "zoom") {
		t.Errorf("expected zoom in listing, got:\n%s", out)
	}
	if !strings.Contains(out, "not active") {
		t.Errorf("expected PATH warning, got:\n%s", out)
	}

	wrapList, wrapRemove = false, true
	out = captureStdout(t, func() {
		if err := runWrap(wrapCmd, nil); err != nil {
			t.Errorf("runWrap(--remove) error = %v", err)
		}
	})
	if !strings.Contains(out, "1 wrapper(s) removed") {
		t.Errorf("expected removal count, got:\n%s", out)
	}
	if names, _ := shim.List(dir); len(names) != 0 {
		t.Errorf("wrappers left after --remove: %v", names)
	}
}

func TestOpsLogHint(t *testing.T) {
	dataDir := setupEnv(t)
	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}

	// ops log under CAMWATCH_DATA_DIR is found by the reporter.
	if hint := opsLogHint(cfg); hint != "" {
		t.Errorf("opsLogHint() = %q, want empty", hint)
	}

	cfg.OpsLog = filepath.Join(dataDir, "elsewhere.log")
	if hint := opsLogHint(cfg); !strings.Contains(hint, "CAMWATCH_OPS_LOG") {
		t.Errorf("opsLogHint() = %q, want CAMWATCH_OPS_LOG hint", hint)
	}
}

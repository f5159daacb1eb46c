package app

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/blackwell-systems/camwatch/internal/store"
)

// setupEnv points HOME, XDG_CONFIG_HOME and the data dir at temp
// directories and resets the global flags. It returns the data dir.
func setupEnv(t *testing.T) string {
	t.Helper()

	home := t.TempDir()
	dataDir := filepath.Join(home, ".camwatch")
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	t.Setenv("CAMWATCH_DATA_DIR", dataDir)
	t.Setenv("CAMWATCH_DEVICES_GLOB", filepath.Join(home, "dev", "video*"))
	t.Setenv("CAMWATCH_FOCUS_ENABLED", "false")
	t.Setenv("CAMWATCH_NOTIFICATIONS_ENABLED", "false")
	t.Setenv("CAMWATCH_UNLOCK_ENABLED", "false")

	oldDB, oldConfig, oldProc := dbPath, configPath, procRoot
	dbPath, configPath = "", ""
	procRoot = t.TempDir()
	t.Cleanup(func() {
		dbPath, configPath, procRoot = oldDB, oldConfig, oldProc
	})

	return dataDir
}

// seedStore creates a database at path holding the given events.
func seedStore(t *testing.T, path string, events ...*store.OccupancyEvent) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	st, err := store.New(path)
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	defer st.Close()

	if err := st.CreateSchema(); err != nil {
		t.Fatalf("CreateSchema: %v", err)
	}
	for _, e := range events {
		if err := st.InsertEvent(e); err != nil {
			t.Fatalf("InsertEvent: %v", err)
		}
	}
}

func busyEvent(deviceID, label, pkg, name string, at time.Time) *store.OccupancyEvent {
	return &store.OccupancyEvent{
		SessionID:   "test-session",
		Timestamp:   at,
		DeviceID:    deviceID,
		DeviceLabel: label,
		InUse:       true,
		Status:      "Camera in use",
		Package:     pkg,
		DisplayName: name,
		Source:      "op-signal",
		Reason:      "transition",
	}
}

// captureStdout replaces os.Stdout with a pipe during f(), then restores it
// and returns all bytes written to stdout.
func captureStdout(t *testing.T, f func()) string {
	t.Helper()
	origStdout := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe: %v", err)
	}
	os.Stdout = w
	defer func() { os.Stdout = origStdout }()

	done := make(chan string)
	go func() {
		var buf bytes.Buffer
		buf.ReadFrom(r)
		done <- buf.String()
	}()

	f()

	w.Close()
	return <-done
}

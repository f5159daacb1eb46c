package app

import (
	"strings"
	"testing"
	"time"
)

func TestRunStatus_NoDatabase(t *testing.T) {
	setupEnv(t)

	out := captureStdout(t, func() {
		if err := runStatus(statusCmd, nil); err != nil {
			t.Errorf("runStatus() error = %v", err)
		}
	})

	if !strings.Contains(out, "not running") {
		t.Errorf("expected daemon state 'not running', got:\n%s", out)
	}
	if !strings.Contains(out, "not created yet") {
		t.Errorf("expected missing database note, got:\n%s", out)
	}
	if !strings.Contains(out, "camwatch watch --daemon") {
		t.Errorf("expected hint to start the daemon, got:\n%s", out)
	}
}

func TestRunStatus_ShowsLatestPerDevice(t *testing.T) {
	setupEnv(t)
	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}

	now := time.Now()
	seedStore(t, cfg.Database,
		busyEvent("0", "Back", "org.chromium.Chromium", "Chromium", now.Add(-time.Hour)),
		busyEvent("1", "Front", "us.zoom.Zoom", "Zoom", now.Add(-2*time.Minute)),
	)

	out := captureStdout(t, func() {
		if err := runStatus(statusCmd, nil); err != nil {
			t.Errorf("runStatus() error = %v", err)
		}
	})

	for _, want := range []string{"Back", "Front", "Zoom (us.zoom.Zoom)", "Chromium", cfg.Database, "may be stale"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected status output to contain %q, got:\n%s", want, out)
		}
	}
}

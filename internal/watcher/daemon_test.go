package watcher

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"testing"
	"time"
)

func TestIsDaemonRunning_NotRunning(t *testing.T) {
	pidFile := filepath.Join(t.TempDir(), "watch.pid")

	running, err := IsDaemonRunning(pidFile)
	if err != nil {
		t.Errorf("IsDaemonRunning() error = %v, want nil", err)
	}
	if running {
		t.Error("IsDaemonRunning() = true, want false for non-existent PID file")
	}
}

func TestIsDaemonRunning_WithCurrentProcess(t *testing.T) {
	pidFile := filepath.Join(t.TempDir(), "watch.pid")

	pid := os.Getpid()
	if err := os.WriteFile(pidFile, []byte(strconv.Itoa(pid)+"\n"), 0644); err != nil {
		t.Fatalf("failed to write PID file: %v", err)
	}

	running, err := IsDaemonRunning(pidFile)
	if err != nil {
		t.Errorf("IsDaemonRunning() error = %v, want nil", err)
	}
	if !running {
		t.Error("IsDaemonRunning() = false, want true for current process")
	}
	if got := DaemonPID(pidFile); got != pid {
		t.Errorf("DaemonPID() = %d, want %d", got, pid)
	}
}

func TestIsDaemonRunning_StalePIDRemoved(t *testing.T) {
	pidFile := filepath.Join(t.TempDir(), "watch.pid")

	// A PID far above the default pid_max.
	if err := os.WriteFile(pidFile, []byte("999999999\n"), 0644); err != nil {
		t.Fatalf("failed to write PID file: %v", err)
	}

	running, err := IsDaemonRunning(pidFile)
	if err != nil {
		t.Errorf("IsDaemonRunning() error = %v, want nil", err)
	}
	if running {
		t.Error("IsDaemonRunning() = true, want false for dead process")
	}
	if _, err := os.Stat(pidFile); !os.IsNotExist(err) {
		t.Error("stale PID file was not removed")
	}
	if got := DaemonPID(pidFile); got != 0 {
		t.Errorf("DaemonPID() = %d, want 0", got)
	}
}

func TestIsDaemonRunning_InvalidPID(t *testing.T) {
	pidFile := filepath.Join(t.TempDir(), "watch.pid")

	if err := os.WriteFile(pidFile, []byte("not-a-number\n"), 0644); err != nil {
		t.Fatalf("failed to write PID file: %v", err)
	}

	running, err := IsDaemonRunning(pidFile)
	if err != nil {
		t.Errorf("IsDaemonRunning() error = %v, want nil for invalid PID", err)
	}
	if running {
		t.Error("IsDaemonRunning() = true, want false for invalid PID")
	}
}

func TestReadPID_InvalidIsSentinel(t *testing.T) {
	pidFile := filepath.Join(t.TempDir(), "watch.pid")

	if err := os.WriteFile(pidFile, []byte("12ab\n"), 0644); err != nil {
		t.Fatalf("failed to write PID file: %v", err)
	}

	_, err := readPID(pidFile)
	if !errors.Is(err, errInvalidPID) {
		t.Errorf("readPID() error = %v, want errInvalidPID", err)
	}

	if err := os.WriteFile(pidFile, []byte(" 4242 \n"), 0644); err != nil {
		t.Fatalf("failed to write PID file: %v", err)
	}
	pid, err := readPID(pidFile)
	if err != nil || pid != 4242 {
		t.Errorf("readPID() = %d, %v, want 4242, nil", pid, err)
	}
}

func TestStopDaemon_NotRunning(t *testing.T) {
	pidFile := filepath.Join(t.TempDir(), "watch.pid")

	if err := StopDaemon(pidFile, 0); err == nil {
		t.Error("StopDaemon() expected error for non-existent daemon, got nil")
	}
}

func TestStopDaemon_InvalidPID(t *testing.T) {
	pidFile := filepath.Join(t.TempDir(), "watch.pid")

	if err := os.WriteFile(pidFile, []byte("invalid\n"), 0644); err != nil {
		t.Fatalf("failed to write PID file: %v", err)
	}

	if err := StopDaemon(pidFile, 0); err == nil {
		t.Error("StopDaemon() expected error for invalid PID, got nil")
	}
}

func TestStopDaemon_WaitsForExit(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that creates subprocess in short mode")
	}
	sleepBin, err := exec.LookPath("sleep")
	if err != nil {
		t.Skip("sleep not available")
	}

	cmd := exec.Command(sleepBin, "30")
	if err := cmd.Start(); err != nil {
		t.Fatalf("failed to start test process: %v", err)
	}
	defer cmd.Process.Kill()

	// Reap the child so it does not linger as a zombie.
	go cmd.Wait()

	pidFile := filepath.Join(t.TempDir(), "watch.pid")
	if err := os.WriteFile(pidFile, []byte(strconv.Itoa(cmd.Process.Pid)+"\n"), 0644); err != nil {
		t.Fatalf("failed to write PID file: %v", err)
	}

	if err := StopDaemon(pidFile, 5*time.Second); err != nil {
		t.Errorf("StopDaemon() error = %v, want nil", err)
	}
}

func TestStartDaemon_AlreadyRunning(t *testing.T) {
	tmpDir := t.TempDir()
	pidFile := filepath.Join(tmpDir, "watch.pid")
	logFile := filepath.Join(tmpDir, "watch.log")

	// Current process PID simulates a running daemon.
	if err := os.WriteFile(pidFile, []byte(strconv.Itoa(os.Getpid())+"\n"), 0644); err != nil {
		t.Fatalf("failed to write PID file: %v", err)
	}

	if err := StartDaemon(pidFile, logFile, []string{"watch", "--daemon-child"}); err == nil {
		t.Error("StartDaemon() expected error for already running daemon, got nil")
	}
}

func TestStartDaemon_InvalidLogFile(t *testing.T) {
	tmpDir := t.TempDir()
	pidFile := filepath.Join(tmpDir, "watch.pid")
	logFile := filepath.Join(tmpDir, "missing-dir", "watch.log")

	if err := StartDaemon(pidFile, logFile, []string{"watch", "--daemon-child"}); err == nil {
		t.Error("StartDaemon() expected error for unwritable log file, got nil")
	}
}

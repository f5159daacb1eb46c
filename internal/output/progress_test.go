package output

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestSpinner_NonTTYPrintsOnce(t *testing.T) {
	buf := &bytes.Buffer{}
	s := NewSpinner("Starting daemon")
	s.SetWriter(buf)

	s.Start()
	s.Start() // no-op while running
	time.Sleep(150 * time.Millisecond)
	s.Stop()

	if got := buf.String(); got != "Starting daemon...\n" {
		t.Errorf("output = %q, want a single message line", got)
	}
}

func TestSpinner_StartStop(t *testing.T) {
	buf := &bytes.Buffer{}
	s := NewSpinner("Test")
	s.SetWriter(buf)

	s.Start()
	if !s.running {
		t.Error("Spinner should be running after Start()")
	}

	s.Stop()
	if s.running {
		t.Error("Spinner should not be running after Stop()")
	}

	// Restart after stop works and stopping repeatedly is safe.
	s.Start()
	s.Stop()
	s.Stop()
}

func TestSpinner_StopWithoutStart(t *testing.T) {
	buf := &bytes.Buffer{}
	s := NewSpinner("Idle")
	s.SetWriter(buf)

	s.StopWithMessage("✓ Done")

	if got := buf.String(); got != "✓ Done\n" {
		t.Errorf("output = %q, want final message only", got)
	}
}

func TestSpinner_StopWithMessage(t *testing.T) {
	buf := &bytes.Buffer{}
	s := NewSpinner("Working")
	s.SetWriter(buf)

	s.Start()
	s.StopWithMessage("✓ Daemon stopped")

	if !strings.Contains(buf.String(), "✓ Daemon stopped") {
		t.Errorf("Spinner should contain final message, got: %q", buf.String())
	}
}

func TestSpinner_Line(t *testing.T) {
	tests := []struct {
		name    string
		timed   bool
		timeout time.Duration
		want    string
	}{
		{"plain", false, 0, "Stopping"},
		{"remaining", true, 10 * time.Second, "Stopping (10s remaining)"},
		{"elapsed", true, 0, "Stopping (0s elapsed)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSpinner("Stopping")
			if tt.timed {
				s.WithTimeout(tt.timeout)
			}
			// Start slightly in the future so elapsed rounds down to zero.
			s.startedAt = time.Now().Add(500 * time.Millisecond)
			if got := s.line(); got != tt.want {
				t.Errorf("line() = %q, want %q", got, tt.want)
			}
		})
	}
}

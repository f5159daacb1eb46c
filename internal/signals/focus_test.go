package signals

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/blackwell-systems/camwatch/internal/store"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memRecorder struct {
	samples []store.FocusSample
	pruned  []time.Time
}

func (m *memRecorder) InsertFocus(f *store.FocusSample) error {
	m.samples = append(m.samples, *f)
	return nil
}

func (m *memRecorder) PruneFocus(before time.Time) (int64, error) {
	m.pruned = append(m.pruned, before)
	return 0, nil
}

func staticRunner(out string, err error) CommandRunner {
	return func(context.Context, string, ...string) ([]byte, error) {
		return []byte(out), err
	}
}

func TestFocusSampler_Sample(t *testing.T) {
	host := newFakeHost(t)
	host.addProc(4242, "firefox")

	now := time.Unix(1700000000, 0)
	rec := &memRecorder{}
	var gotName string
	var gotArgs []string

	f, err := NewFocusSampler(FocusSamplerOptions{
		Command:   "xdotool getactivewindow getwindowpid",
		Interval:  time.Second,
		Retention: time.Minute,
		ProcRoot:  host.proc,
		Alias: func(name string) string {
			if name == "firefox" {
				return "org.mozilla.firefox"
			}
			return name
		},
		Recorder: rec,
		Logger:   zerolog.Nop(),
		Run: func(_ context.Context, name string, args ...string) ([]byte, error) {
			gotName, gotArgs = name, args
			return []byte("4242\n"), nil
		},
		Now: func() time.Time { return now },
	})
	require.NoError(t, err)

	f.Sample(context.Background())

	assert.Equal(t, "xdotool", gotName)
	assert.Equal(t, []string{"getactivewindow", "getwindowpid"}, gotArgs)
	require.Len(t, rec.samples, 1)
	assert.Equal(t, "org.mozilla.firefox", rec.samples[0].Package)
	assert.Equal(t, 4242, rec.samples[0].PID)
	assert.True(t, rec.samples[0].Timestamp.Equal(now))

	require.Len(t, rec.pruned, 1, "first sample prunes")
	assert.True(t, rec.pruned[0].Equal(now.Add(-time.Minute)))

	// Within the retention period no second prune happens.
	now = now.Add(time.Second)
	f.Sample(context.Background())
	assert.Len(t, rec.samples, 2)
	assert.Len(t, rec.pruned, 1)
}

func TestFocusSampler_SkipsBadOutput(t *testing.T) {
	host := newFakeHost(t)

	tests := []struct {
		name string
		run  CommandRunner
	}{
		{"command error", staticRunner("", errors.New("exit status 1"))},
		{"not a pid", staticRunner("window 0x1\n", nil)},
		{"unknown pid", staticRunner("999999\n", nil)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &memRecorder{}
			f, err := NewFocusSampler(FocusSamplerOptions{
				ProcRoot: host.proc,
				Recorder: rec,
				Logger:   zerolog.Nop(),
				Run:      tt.run,
			})
			require.NoError(t, err)

			f.Sample(context.Background())
			assert.Empty(t, rec.samples)
		})
	}
}

func TestFocusSampler_Validation(t *testing.T) {
	_, err := NewFocusSampler(FocusSamplerOptions{Logger: zerolog.Nop()})
	assert.Error(t, err, "recorder is required")

	_, err = NewFocusSampler(FocusSamplerOptions{Command: "   ", Recorder: &memRecorder{}, Logger: zerolog.Nop()})
	assert.Error(t, err)
}

func TestFocusSampler_MissingCommandUnavailable(t *testing.T) {
	host := newFakeHost(t)
	f, err := NewFocusSampler(FocusSamplerOptions{
		Command:  "camwatch-test-no-such-binary --pid",
		ProcRoot: host.proc,
		Recorder: &memRecorder{},
		Logger:   zerolog.Nop(),
	})
	require.NoError(t, err)

	err = f.Run(context.Background(), &recordingHandler{})
	assert.ErrorIs(t, err, ErrUnavailable)
}

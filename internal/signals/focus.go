package signals

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/blackwell-systems/camwatch/internal/logging"
	"github.com/blackwell-systems/camwatch/internal/store"
	"github.com/prometheus/procfs"
	"github.com/rs/zerolog"
)

// DefaultFocusCommand prints the pid of the focused X11 window.
const DefaultFocusCommand = "xdotool getactivewindow getwindowpid"

// FocusRecorder persists foreground samples. *store.Store implements it.
type FocusRecorder interface {
	InsertFocus(f *store.FocusSample) error
	PruneFocus(before time.Time) (int64, error)
}

// CommandRunner runs a command and returns its standard output.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// FocusSamplerOptions configures a FocusSampler.
type FocusSamplerOptions struct {
	Command   string
	Interval  time.Duration
	Retention time.Duration
	ProcRoot  string
	Alias     func(string) string
	Recorder  FocusRecorder
	Logger    zerolog.Logger

	// Run and Now are replaced in tests.
	Run CommandRunner
	Now func() time.Time
}

// FocusSampler periodically records which application owns the focused
// window. The samples answer the engine's foreground queries.
type FocusSampler struct {
	argv      []string
	interval  time.Duration
	retention time.Duration
	fs        procfs.FS
	alias     func(string) string
	rec       FocusRecorder
	run       CommandRunner
	now       func() time.Time
	log       zerolog.Logger

	lastPrune time.Time
}

// NewFocusSampler validates options and opens the proc filesystem.
func NewFocusSampler(opts FocusSamplerOptions) (*FocusSampler, error) {
	if opts.Recorder == nil {
		return nil, fmt.Errorf("focus recorder cannot be nil")
	}
	if opts.Command == "" {
		opts.Command = DefaultFocusCommand
	}
	argv := strings.Fields(opts.Command)
	if len(argv) == 0 {
		return nil, fmt.Errorf("focus command cannot be blank")
	}
	if opts.Interval <= 0 {
		opts.Interval = time.Second
	}
	if opts.Retention <= 0 {
		opts.Retention = 10 * time.Minute
	}
	if opts.ProcRoot == "" {
		opts.ProcRoot = procfs.DefaultMountPoint
	}
	if opts.Alias == nil {
		opts.Alias = identity
	}
	if opts.Run == nil {
		opts.Run = execRunner
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	fs, err := procfs.NewFS(opts.ProcRoot)
	if err != nil {
		return nil, fmt.Errorf("%w: proc filesystem: %v", ErrUnavailable, err)
	}

	return &FocusSampler{
		argv:      argv,
		interval:  opts.Interval,
		retention: opts.Retention,
		fs:        fs,
		alias:     opts.Alias,
		rec:       opts.Recorder,
		run:       opts.Run,
		now:       opts.Now,
		log:       logging.WithComponent(opts.Logger, "focus"),
	}, nil
}

func (f *FocusSampler) Name() string { return "focus" }

// Run samples until ctx is done. The handler is unused: samples reach the
// engine through the store.
func (f *FocusSampler) Run(ctx context.Context, _ Handler) error {
	if _, err := exec.LookPath(f.argv[0]); err != nil {
		return fmt.Errorf("%w: focus command %q: %v", ErrUnavailable, f.argv[0], err)
	}

	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		f.Sample(ctx)
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Sample records the current foreground application, if any.
func (f *FocusSampler) Sample(ctx context.Context) {
	runCtx, cancel := context.WithTimeout(ctx, f.interval)
	defer cancel()

	now := f.now()
	out, err := f.run(runCtx, f.argv[0], f.argv[1:]...)
	if err != nil {
		// No focused window (lock screen, empty desktop) exits non-zero.
		f.log.Trace().Err(err).Msg("focus command failed")
		return
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(out)))
	if err != nil || pid <= 0 {
		f.log.Debug().Str("output", strings.TrimSpace(string(out))).Msg("unexpected focus command output")
		return
	}
	if pid == os.Getpid() {
		return
	}

	proc, err := f.fs.Proc(pid)
	if err != nil {
		return
	}
	name := processName(proc)
	if name == "" {
		return
	}

	sample := &store.FocusSample{Package: f.alias(name), PID: pid, Timestamp: now}
	if err := f.rec.InsertFocus(sample); err != nil {
		f.log.Warn().Err(err).Msg("record focus sample")
		return
	}

	if now.Sub(f.lastPrune) >= f.retention {
		if n, err := f.rec.PruneFocus(now.Add(-f.retention)); err != nil {
			f.log.Warn().Err(err).Msg("prune focus samples")
		} else if n > 0 {
			f.log.Debug().Int64("removed", n).Msg("pruned focus samples")
		}
		f.lastPrune = now
	}
}

package signals

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/blackwell-systems/camwatch/internal/logging"
	"github.com/blackwell-systems/camwatch/internal/occupancy"
	"github.com/fsnotify/fsnotify"
	"github.com/prometheus/procfs"
	"github.com/rs/zerolog"
)

// DefaultDeviceGlob matches V4L2 capture nodes.
const DefaultDeviceGlob = "/dev/video*"

// DefaultPollInterval is how often holders are re-scanned without a wakeup.
const DefaultPollInterval = 2 * time.Second

// commLen is the kernel's TASK_COMM_LEN minus the terminator. A comm of
// this length may be truncated.
const commLen = 15

// DeviceState is one camera node and the processes holding it open.
type DeviceState struct {
	ID      string
	Path    string
	Holders []string
}

// InUse reports whether any process holds the device.
func (d DeviceState) InUse() bool { return len(d.Holders) > 0 }

// DeviceID derives the device id from a node path: the trailing digits of
// the base name ("/dev/video2" -> "2"), or the whole base name when it has
// none.
func DeviceID(path string) string {
	base := filepath.Base(path)
	i := len(base)
	for i > 0 && base[i-1] >= '0' && base[i-1] <= '9' {
		i--
	}
	if i == len(base) {
		return base
	}
	return base[i:]
}

// ScanDevices lists the nodes matching glob and the names of the processes
// holding each, sorted by device id. Processes whose descriptors cannot be
// read are skipped. excludePID is never reported as a holder.
func ScanDevices(fs procfs.FS, glob string, excludePID int, alias func(string) string) ([]DeviceState, error) {
	if alias == nil {
		alias = identity
	}

	paths, err := filepath.Glob(glob)
	if err != nil {
		return nil, fmt.Errorf("device glob %q: %w", glob, err)
	}

	byPath := make(map[string]*DeviceState, len(paths))
	states := make([]*DeviceState, 0, len(paths))
	for _, p := range paths {
		st := &DeviceState{ID: DeviceID(p), Path: p}
		byPath[p] = st
		states = append(states, st)
	}

	if len(states) > 0 {
		procs, err := fs.AllProcs()
		if err != nil {
			return nil, fmt.Errorf("list processes: %w", err)
		}

		for _, proc := range procs {
			if proc.PID == excludePID {
				continue
			}
			targets, err := proc.FileDescriptorTargets()
			if err != nil {
				continue
			}
			for _, target := range targets {
				st, ok := byPath[target]
				if !ok {
					continue
				}
				name := processName(proc)
				if name == "" {
					continue
				}
				st.Holders = appendUnique(st.Holders, alias(name))
			}
		}
	}

	out := make([]DeviceState, 0, len(states))
	for _, st := range states {
		sort.Strings(st.Holders)
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool { return lessID(out[i].ID, out[j].ID) })
	return out, nil
}

// processName returns the comm of proc, falling back to the executable's
// base name when comm may have been truncated.
func processName(proc procfs.Proc) string {
	comm, err := proc.Comm()
	if err != nil {
		return ""
	}
	if len(comm) >= commLen {
		if exe, err := proc.Executable(); err == nil && exe != "" {
			return filepath.Base(exe)
		}
	}
	return comm
}

func appendUnique(list []string, s string) []string {
	for _, v := range list {
		if v == s {
			return list
		}
	}
	return append(list, s)
}

// lessID orders numeric ids numerically and everything else after them.
func lessID(a, b string) bool {
	if len(a) != len(b) && isDigits(a) && isDigits(b) {
		return len(a) < len(b)
	}
	return a < b
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// DeviceWatcherOptions configures a DeviceWatcher.
type DeviceWatcherOptions struct {
	Glob         string
	PollInterval time.Duration
	// ProcRoot defaults to /proc.
	ProcRoot string
	// Alias maps process names to application identifiers.
	Alias  func(string) string
	Logger zerolog.Logger
}

// DeviceWatcher reports camera busy/free changes. Open and close of a V4L2
// node produce no inotify event fsnotify can see, so holders are re-scanned
// on a poll ticker; fsnotify events on the device directory (hotplug,
// attribute changes) trigger an immediate re-scan.
type DeviceWatcher struct {
	opts DeviceWatcherOptions
	fs   procfs.FS
	self int
	log  zerolog.Logger

	// last observed state, keyed by device id
	busy    map[string]bool
	holders map[string][]string
}

// NewDeviceWatcher opens the proc filesystem.
func NewDeviceWatcher(opts DeviceWatcherOptions) (*DeviceWatcher, error) {
	if opts.Glob == "" {
		opts.Glob = DefaultDeviceGlob
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.ProcRoot == "" {
		opts.ProcRoot = procfs.DefaultMountPoint
	}
	if opts.Alias == nil {
		opts.Alias = identity
	}

	fs, err := procfs.NewFS(opts.ProcRoot)
	if err != nil {
		return nil, fmt.Errorf("%w: proc filesystem: %v", ErrUnavailable, err)
	}

	return &DeviceWatcher{
		opts:    opts,
		fs:      fs,
		self:    os.Getpid(),
		log:     logging.WithComponent(opts.Logger, "devices"),
		busy:    make(map[string]bool),
		holders: make(map[string][]string),
	}, nil
}

func (w *DeviceWatcher) Name() string { return "devices" }

// Run scans until ctx is done.
func (w *DeviceWatcher) Run(ctx context.Context, h Handler) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		w.log.Warn().Err(err).Msg("fsnotify unavailable, polling only")
	} else {
		defer fw.Close()
		dir := filepath.Dir(w.opts.Glob)
		if err := fw.Add(dir); err != nil {
			w.log.Warn().Err(err).Str("dir", dir).Msg("cannot watch device directory, polling only")
		}
	}

	ticker := time.NewTicker(w.opts.PollInterval)
	defer ticker.Stop()

	w.Poll(ctx, h)

	var events chan fsnotify.Event
	var errs chan error
	if fw != nil {
		events = fw.Events
		errs = fw.Errors
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			w.Poll(ctx, h)
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if w.matches(ev.Name) {
				w.log.Debug().Str("path", ev.Name).Str("op", ev.Op.String()).Msg("device node event")
				w.Poll(ctx, h)
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			w.log.Warn().Err(err).Msg("fsnotify error")
		}
	}
}

func (w *DeviceWatcher) matches(path string) bool {
	ok, err := filepath.Match(w.opts.Glob, path)
	return err == nil && ok
}

// Poll scans once and reports every change since the previous scan. New
// holders are reported as camera ops before the busy signal so attribution
// sees them.
func (w *DeviceWatcher) Poll(ctx context.Context, h Handler) {
	states, err := ScanDevices(w.fs, w.opts.Glob, w.self, w.opts.Alias)
	if err != nil {
		w.log.Warn().Err(err).Msg("device scan failed")
		return
	}

	seen := make(map[string]bool, len(states))
	for _, st := range states {
		seen[st.ID] = true

		for _, name := range st.Holders {
			if !contains(w.holders[st.ID], name) {
				h.HandleOp(occupancy.OpCamera, name)
			}
		}
		w.holders[st.ID] = st.Holders

		wasBusy, known := w.busy[st.ID]
		if known && wasBusy == st.InUse() {
			continue
		}
		w.busy[st.ID] = st.InUse()
		w.log.Debug().
			Str("device", st.ID).
			Bool("in_use", st.InUse()).
			Str("holders", strings.Join(st.Holders, ",")).
			Msg("availability changed")
		h.HandleAvailability(ctx, st.ID, st.InUse())
	}

	// Unplugged while busy.
	var gone []string
	for id := range w.busy {
		if !seen[id] {
			gone = append(gone, id)
		}
	}
	sort.Slice(gone, func(i, j int) bool { return lessID(gone[i], gone[j]) })
	for _, id := range gone {
		wasBusy := w.busy[id]
		delete(w.busy, id)
		delete(w.holders, id)
		if wasBusy {
			h.HandleAvailability(ctx, id, false)
		}
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

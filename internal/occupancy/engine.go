package occupancy

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/blackwell-systems/camwatch/internal/logging"
	"github.com/rs/zerolog"
)

// Options configures an Engine.
type Options struct {
	// SelfPackage is the monitor's own identifier; op signals naming it are
	// never used for attribution.
	SelfPackage string

	// DebounceWindow of zero means DefaultDebounceWindow; a negative
	// window disables the time check.
	DebounceWindow    time.Duration
	PerDeviceDebounce bool
	Lookback          time.Duration
	QueryTimeout      time.Duration

	Foreground ForegroundResolver
	Sink       Sink

	// Clock defaults to time.Now.
	Clock  func() time.Time
	Logger zerolog.Logger
}

// Engine owns every occupancy record plus the last-op and active-device
// scalars. All access goes through mu.
type Engine struct {
	mu       sync.Mutex
	devices  map[string]*DeviceOccupancy
	lastOp   string
	active   string
	gate     *Gate
	resolver *Resolver
	sink     Sink
	now      func() time.Time
	log      zerolog.Logger
}

// New creates an Engine for one monitoring session.
func New(opts Options) (*Engine, error) {
	if opts.Sink == nil {
		return nil, fmt.Errorf("sink cannot be nil")
	}

	window := opts.DebounceWindow
	if window == 0 {
		window = DefaultDebounceWindow
	}

	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}

	log := logging.WithComponent(opts.Logger, "occupancy")

	return &Engine{
		devices:  make(map[string]*DeviceOccupancy),
		gate:     NewGate(window, opts.PerDeviceDebounce),
		resolver: NewResolver(opts.SelfPackage, opts.Foreground, opts.Lookback, opts.QueryTimeout, log),
		sink:     opts.Sink,
		now:      clock,
		log:      log,
	}, nil
}

// HandleAvailability applies a hardware busy/free signal. It reports whether
// a transition was committed.
func (e *Engine) HandleAvailability(ctx context.Context, deviceID string, inUse bool) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	dev := e.device(deviceID)

	if !e.gate.Accept(*dev, inUse, e.active, now) {
		e.log.Debug().
			Str("device", deviceID).
			Bool("in_use", inUse).
			Msg("signal dropped")
		return false
	}

	switch {
	case inUse && !dev.InUse:
		e.handoff(deviceID, now)

		owner, source := e.resolver.Resolve(ctx, e.lastOp, now)
		dev.InUse = true
		dev.Owner = owner
		e.active = deviceID
		e.emit(dev, now, source, ReasonTransition)
		return true

	case !inUse && dev.InUse:
		e.release(dev, now, ReasonTransition)
		return true
	}

	return false
}

// handoff frees the currently active device when a different one becomes
// busy. Must be called with mu held.
func (e *Engine) handoff(deviceID string, now time.Time) {
	if e.active == "" || e.active == deviceID {
		return
	}
	prev, ok := e.devices[e.active]
	if !ok || !prev.InUse {
		return
	}
	e.log.Info().
		Str("from", prev.DeviceID).
		Str("to", deviceID).
		Msg("active camera hand-off")
	e.release(prev, now, ReasonHandoff)
}

// release commits a Free transition. Must be called with mu held.
func (e *Engine) release(dev *DeviceOccupancy, now time.Time, reason Reason) {
	dev.InUse = false
	dev.Owner = ""
	if e.active == dev.DeviceID {
		e.active = ""
	}
	e.emit(dev, now, SourceNone, reason)
}

// HandleOp records a permission-op signal. Only camera ops are kept.
func (e *Engine) HandleOp(op, pkg string) {
	if op != OpCamera || pkg == "" {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.lastOp = pkg
	e.log.Debug().Str("package", pkg).Msg("camera op")
}

// Reevaluate re-runs the foreground lookup for the active device and
// updates its owner in place when the answer changed. It reports whether an
// event was emitted. With no busy device it does nothing.
func (e *Engine) Reevaluate(ctx context.Context) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.active == "" {
		return false
	}
	dev, ok := e.devices[e.active]
	if !ok || !dev.InUse {
		return false
	}

	now := e.now()
	owner, ok := e.resolver.Foreground(ctx, now)
	if !ok || owner == dev.Owner {
		return false
	}

	e.log.Info().
		Str("device", dev.DeviceID).
		Str("old_owner", dev.Owner).
		Str("new_owner", owner).
		Msg("owner re-attributed")
	dev.Owner = owner
	e.emit(dev, now, SourceForeground, ReasonReattribution)
	return true
}

// Snapshot returns a copy of every known device, sorted by id.
func (e *Engine) Snapshot() []DeviceOccupancy {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]DeviceOccupancy, 0, len(e.devices))
	for _, dev := range e.devices {
		out = append(out, *dev)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DeviceID < out[j].DeviceID })
	return out
}

// Active returns the id of the active device, or "".
func (e *Engine) Active() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active
}

// LastOp returns the most recent camera op package.
func (e *Engine) LastOp() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastOp
}

func (e *Engine) device(id string) *DeviceOccupancy {
	dev, ok := e.devices[id]
	if !ok {
		dev = &DeviceOccupancy{DeviceID: id}
		e.devices[id] = dev
	}
	return dev
}

func (e *Engine) emit(dev *DeviceOccupancy, now time.Time, source Source, reason Reason) {
	ev := Event{
		Timestamp: now,
		DeviceID:  dev.DeviceID,
		InUse:     dev.InUse,
		Owner:     dev.Owner,
		Source:    source,
		Reason:    reason,
	}
	e.log.Info().
		Str("device", ev.DeviceID).
		Bool("in_use", ev.InUse).
		Str("owner", ev.Owner).
		Str("source", string(ev.Source)).
		Str("reason", string(ev.Reason)).
		Msg("occupancy changed")
	e.sink.Emit(ev)
}

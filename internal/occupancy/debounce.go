package occupancy

import "time"

// DefaultDebounceWindow is the minimum spacing between accepted signals.
const DefaultDebounceWindow = 1000 * time.Millisecond

// Gate drops signals that arrive too soon after the last accepted one, and
// signals that would not change anything.
//
// In the default global mode one window covers all devices and directions.
// In per-device mode each device keeps its own window.
type Gate struct {
	window    time.Duration
	perDevice bool

	last     time.Time
	accepted bool
	lastBy   map[string]time.Time
}

// NewGate returns a gate with the given window. A non-positive window
// disables the time check; no-op rejection still applies.
func NewGate(window time.Duration, perDevice bool) *Gate {
	return &Gate{
		window:    window,
		perDevice: perDevice,
		lastBy:    make(map[string]time.Time),
	}
}

// Accept reports whether a proposed state for current.DeviceID should
// proceed. It records now as the last accepted time only when it returns true.
func (g *Gate) Accept(current DeviceOccupancy, proposedInUse bool, active string, now time.Time) bool {
	if g.tooSoon(current.DeviceID, now) {
		return false
	}

	if current.InUse == proposedInUse {
		if !proposedInUse {
			return false
		}
		if current.DeviceID == active {
			return false
		}
	}

	if g.perDevice {
		g.lastBy[current.DeviceID] = now
	} else {
		g.last = now
		g.accepted = true
	}
	return true
}

func (g *Gate) tooSoon(deviceID string, now time.Time) bool {
	if g.window <= 0 {
		return false
	}
	if g.perDevice {
		last, ok := g.lastBy[deviceID]
		return ok && now.Sub(last) < g.window
	}
	return g.accepted && now.Sub(g.last) < g.window
}

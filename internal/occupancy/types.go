package occupancy

import (
	"context"
	"time"
)

// OpCamera is the permission-op name that carries camera attribution.
const OpCamera = "camera"

// UnknownOwner is committed when no attribution source yields a package.
const UnknownOwner = "unknown"

// DeviceOccupancy is the engine's record for one camera device.
// Owner is empty whenever InUse is false.
type DeviceOccupancy struct {
	DeviceID string
	InUse    bool
	Owner    string
}

// Source tags how an owner was attributed.
type Source string

const (
	SourceOpSignal   Source = "op-signal"
	SourceForeground Source = "foreground"
	SourceUnknown    Source = "unknown"
	SourceNone       Source = "none" // free transitions
)

// Reason says why an event was emitted.
type Reason string

const (
	ReasonTransition    Reason = "transition"
	ReasonHandoff       Reason = "handoff"
	ReasonReattribution Reason = "reattribution"
)

// Event is emitted once per committed change.
type Event struct {
	Timestamp time.Time
	DeviceID  string
	InUse     bool
	Owner     string
	Source    Source
	Reason    Reason
}

// AppUsage is one foreground-resolver entry.
type AppUsage struct {
	Package  string
	LastUsed time.Time
}

// ForegroundResolver answers "which applications were in the foreground
// between start and end". Implementations may return an error when the
// platform denies the query; the engine treats that as an empty result.
type ForegroundResolver interface {
	RecentApps(ctx context.Context, start, end time.Time) ([]AppUsage, error)
}

// ForegroundFunc adapts a function to ForegroundResolver.
type ForegroundFunc func(ctx context.Context, start, end time.Time) ([]AppUsage, error)

// RecentApps calls f.
func (f ForegroundFunc) RecentApps(ctx context.Context, start, end time.Time) ([]AppUsage, error) {
	return f(ctx, start, end)
}

// Sink receives committed events. Emit is called with the engine lock held
// and must not call back into the engine.
type Sink interface {
	Emit(Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Event)

// Emit calls f.
func (f SinkFunc) Emit(ev Event) { f(ev) }

package signals

import (
	"context"
	"errors"
)

// ErrUnavailable reports that a signal source cannot run on this host.
var ErrUnavailable = errors.New("signal source unavailable")

// Handler receives signals. *occupancy.Engine implements it.
type Handler interface {
	HandleAvailability(ctx context.Context, deviceID string, inUse bool) bool
	HandleOp(op, pkg string)
	Reevaluate(ctx context.Context) bool
}

// Source is a long-running signal producer.
type Source interface {
	Name() string
	Run(ctx context.Context, h Handler) error
}

// identity is the default name mapper.
func identity(name string) string { return name }

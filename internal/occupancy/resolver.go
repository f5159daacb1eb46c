package occupancy

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

const (
	// DefaultLookback is how far back the foreground query reaches.
	DefaultLookback = 5 * time.Second
	// DefaultQueryTimeout bounds a single foreground query.
	DefaultQueryTimeout = 2 * time.Second
)

// Resolver picks the most likely owner of a camera that just became busy.
// It reads its inputs and the clock; it never commits state.
type Resolver struct {
	self       string
	lookback   time.Duration
	timeout    time.Duration
	foreground ForegroundResolver
	log        zerolog.Logger
}

// NewResolver builds a resolver. fg may be nil, in which case only the
// op signal and the placeholder are used.
func NewResolver(self string, fg ForegroundResolver, lookback, timeout time.Duration, log zerolog.Logger) *Resolver {
	if lookback <= 0 {
		lookback = DefaultLookback
	}
	if timeout <= 0 {
		timeout = DefaultQueryTimeout
	}
	return &Resolver{
		self:       self,
		lookback:   lookback,
		timeout:    timeout,
		foreground: fg,
		log:        log,
	}
}

// Resolve runs the fallback chain: last op signal, then the most recent
// foreground application, then UnknownOwner.
func (r *Resolver) Resolve(ctx context.Context, lastOp string, now time.Time) (string, Source) {
	if r.usable(lastOp) {
		return lastOp, SourceOpSignal
	}
	if pkg, ok := r.Foreground(ctx, now); ok {
		return pkg, SourceForeground
	}
	return UnknownOwner, SourceUnknown
}

// Foreground queries the window [now-lookback, now] and returns the entry
// with the latest LastUsed. Denied or failed queries return false.
func (r *Resolver) Foreground(ctx context.Context, now time.Time) (string, bool) {
	if r.foreground == nil {
		return "", false
	}

	qctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	apps, err := r.foreground.RecentApps(qctx, now.Add(-r.lookback), now)
	if err != nil {
		r.log.Debug().Err(err).Msg("foreground query failed")
		return "", false
	}

	var best AppUsage
	found := false
	for _, app := range apps {
		if !r.usable(app.Package) {
			continue
		}
		if !found || app.LastUsed.After(best.LastUsed) {
			best = app
			found = true
		}
	}
	return best.Package, found
}

func (r *Resolver) usable(pkg string) bool {
	return pkg != "" && pkg != r.self
}

package watcher

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/blackwell-systems/camwatch/internal/config"
	"github.com/blackwell-systems/camwatch/internal/emitter"
	"github.com/blackwell-systems/camwatch/internal/signals"
	"github.com/blackwell-systems/camwatch/internal/store"
)

// setupTestStore creates an in-memory SQLite store for tests and registers
// cleanup with t.Cleanup so callers don't need explicit defer.
func setupTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("setupTestStore: open: %v", err)
	}
	if err := st.CreateSchema(); err != nil {
		st.Close()
		t.Fatalf("setupTestStore: schema: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func testConfig() *config.Config {
	return &config.Config{
		DataDir:        "/nonexistent",
		SelfPackage:    "camwatch",
		DebounceWindow: time.Second,
		LookbackWindow: 5 * time.Second,
		QueryTimeout:   time.Second,
		LogSize:        100,
	}
}

// steppingClock advances two seconds on every read so no signal is
// debounced.
func steppingClock() func() time.Time {
	var mu sync.Mutex
	now := time.Unix(1700000000, 0)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(2 * time.Second)
		return now
	}
}

// scriptSource runs fn once, then blocks until cancelled.
type scriptSource struct {
	name string
	fn   func(ctx context.Context, h signals.Handler)
	err  error
}

func (s scriptSource) Name() string { return s.name }

func (s scriptSource) Run(ctx context.Context, h signals.Handler) error {
	if s.fn != nil {
		s.fn(ctx, h)
	}
	if s.err != nil {
		return s.err
	}
	<-ctx.Done()
	return nil
}

type captureNotifier struct {
	mu     sync.Mutex
	notes  []emitter.Notification
	closed bool
}

func (c *captureNotifier) Notify(_ context.Context, n emitter.Notification) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notes = append(c.notes, n)
	return nil
}

func (c *captureNotifier) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

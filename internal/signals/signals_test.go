package signals

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const (
	timeoutShort = 2 * time.Second
	tick         = 10 * time.Millisecond
)

// recordingHandler captures handler calls as strings in arrival order.
type recordingHandler struct {
	mu    sync.Mutex
	calls []string
}

func (r *recordingHandler) HandleAvailability(_ context.Context, id string, inUse bool) bool {
	r.add(fmt.Sprintf("avail %s %t", id, inUse))
	return true
}

func (r *recordingHandler) HandleOp(op, pkg string) {
	r.add(fmt.Sprintf("op %s %s", op, pkg))
}

func (r *recordingHandler) Reevaluate(context.Context) bool {
	r.add("reevaluate")
	return true
}

func (r *recordingHandler) add(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, s)
}

func (r *recordingHandler) take() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.calls
	r.calls = nil
	return out
}

// fakeHost is a temporary /proc and /dev pair.
type fakeHost struct {
	t    *testing.T
	proc string
	dev  string
}

func newFakeHost(t *testing.T) *fakeHost {
	t.Helper()
	root := t.TempDir()
	h := &fakeHost{
		t:    t,
		proc: filepath.Join(root, "proc"),
		dev:  filepath.Join(root, "dev"),
	}
	require.NoError(t, os.MkdirAll(h.proc, 0755))
	require.NoError(t, os.MkdirAll(h.dev, 0755))
	return h
}

func (h *fakeHost) addDevice(name string) string {
	h.t.Helper()
	path := filepath.Join(h.dev, name)
	require.NoError(h.t, os.WriteFile(path, nil, 0644))
	return path
}

func (h *fakeHost) addProc(pid int, comm string, targets ...string) {
	h.t.Helper()
	dir := filepath.Join(h.proc, strconv.Itoa(pid))
	require.NoError(h.t, os.MkdirAll(filepath.Join(dir, "fd"), 0755))
	require.NoError(h.t, os.WriteFile(filepath.Join(dir, "comm"), []byte(comm+"\n"), 0644))
	for i, target := range targets {
		require.NoError(h.t, os.Symlink(target, filepath.Join(dir, "fd", strconv.Itoa(i+3))))
	}
}

func (h *fakeHost) removeProc(pid int) {
	h.t.Helper()
	require.NoError(h.t, os.RemoveAll(filepath.Join(h.proc, strconv.Itoa(pid))))
}

func (h *fakeHost) glob() string {
	return filepath.Join(h.dev, "video*")
}

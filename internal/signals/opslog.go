package signals

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/blackwell-systems/camwatch/internal/logging"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// maxOpLinesPerRead bounds one catch-up read of the ops log.
const maxOpLinesPerRead = 10_000

// OpRecord is one parsed ops log line.
type OpRecord struct {
	Timestamp time.Time
	Op        string
	Package   string
}

// ParseOpLine parses "<unix_nano>,<op>,<package>". The package may itself
// contain commas.
func ParseOpLine(line string) (OpRecord, bool) {
	line = strings.TrimSpace(line)
	first := strings.IndexByte(line, ',')
	if first <= 0 {
		return OpRecord{}, false
	}
	rest := line[first+1:]
	second := strings.IndexByte(rest, ',')
	if second <= 0 || second >= len(rest)-1 {
		return OpRecord{}, false
	}

	ts, err := strconv.ParseInt(line[:first], 10, 64)
	if err != nil || ts <= 0 {
		return OpRecord{}, false
	}

	op := strings.TrimSpace(rest[:second])
	pkg := strings.TrimSpace(rest[second+1:])
	if op == "" || pkg == "" {
		return OpRecord{}, false
	}

	return OpRecord{Timestamp: time.Unix(0, ts), Op: op, Package: pkg}, true
}

// AppendOp appends one line to the ops log, creating it if needed.
// O_APPEND keeps concurrent single-line writers from interleaving.
func AppendOp(path string, ts time.Time, op, pkg string) error {
	if strings.ContainsAny(op, ",\n") || op == "" {
		return fmt.Errorf("invalid op %q", op)
	}
	if strings.ContainsRune(pkg, '\n') || pkg == "" {
		return fmt.Errorf("invalid package %q", pkg)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create ops log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open ops log: %w", err)
	}
	defer f.Close()

	if _, err := fmt.Fprintf(f, "%d,%s,%s\n", ts.UnixNano(), op, pkg); err != nil {
		return fmt.Errorf("write ops log: %w", err)
	}
	return nil
}

// OpsLog tails the ops log and forwards each new line as an op. Lines
// already in the file when Run starts are skipped.
type OpsLog struct {
	path   string
	alias  func(string) string
	log    zerolog.Logger
	offset int64
}

// NewOpsLog returns a tailer for path.
func NewOpsLog(path string, alias func(string) string, log zerolog.Logger) *OpsLog {
	if alias == nil {
		alias = identity
	}
	return &OpsLog{
		path:  path,
		alias: alias,
		log:   logging.WithComponent(log, "opslog"),
	}
}

func (o *OpsLog) Name() string { return "opslog" }

// Run watches the log's directory so creation and truncation are seen.
func (o *OpsLog) Run(ctx context.Context, h Handler) error {
	dir := filepath.Dir(o.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("%w: ops log directory: %v", ErrUnavailable, err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("%w: fsnotify: %v", ErrUnavailable, err)
	}
	defer fw.Close()

	if err := fw.Add(dir); err != nil {
		return fmt.Errorf("%w: watch %s: %v", ErrUnavailable, dir, err)
	}

	if info, err := os.Stat(o.path); err == nil {
		o.offset = info.Size()
	}
	o.log.Debug().Str("path", o.path).Int64("offset", o.offset).Msg("tailing ops log")

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != filepath.Clean(o.path) {
				continue
			}
			switch {
			case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
				o.offset = 0
			case ev.Has(fsnotify.Create), ev.Has(fsnotify.Write):
				if err := o.ReadNew(h); err != nil {
					o.log.Warn().Err(err).Msg("ops log read failed")
				}
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			o.log.Warn().Err(err).Msg("fsnotify error")
		}
	}
}

// ReadNew forwards the lines appended since the last read. A file shorter
// than the saved offset is treated as truncated and read from the start.
func (o *OpsLog) ReadNew(h Handler) error {
	f, err := os.Open(o.path)
	if err != nil {
		if os.IsNotExist(err) {
			o.offset = 0
			return nil
		}
		return fmt.Errorf("open ops log: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat ops log: %w", err)
	}
	if info.Size() < o.offset {
		o.log.Debug().Int64("offset", o.offset).Int64("size", info.Size()).Msg("ops log truncated, rewinding")
		o.offset = 0
	}
	if _, err := f.Seek(o.offset, io.SeekStart); err != nil {
		return fmt.Errorf("seek ops log: %w", err)
	}

	reader := bufio.NewReader(f)
	lines := 0
	for lines < maxOpLinesPerRead {
		line, err := reader.ReadString('\n')
		if err != nil {
			// Partial trailing line: leave it for the next read.
			break
		}
		o.offset += int64(len(line))
		lines++

		rec, ok := ParseOpLine(line)
		if !ok {
			o.log.Debug().Str("line", strings.TrimSpace(line)).Msg("skipping malformed ops line")
			continue
		}
		h.HandleOp(rec.Op, o.alias(rec.Package))
	}
	return nil
}

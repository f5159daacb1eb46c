// Package notify delivers occupancy notifications to the desktop.
package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/blackwell-systems/camwatch/internal/emitter"
	"github.com/blackwell-systems/camwatch/internal/logging"
	"github.com/godbus/dbus/v5"
	"github.com/rs/zerolog"
)

const (
	notificationsDest   = "org.freedesktop.Notifications"
	notificationsPath   = "/org/freedesktop/Notifications"
	notificationsMethod = "org.freedesktop.Notifications.Notify"

	notificationIcon = "camera-web"
)

// Notifier shows a notification. Successive calls update the same
// notification rather than stacking new ones.
type Notifier interface {
	Notify(ctx context.Context, n emitter.Notification) error
	Close() error
}

// Compile-time interface checks.
var (
	_ Notifier = (*DesktopNotifier)(nil)
	_ Notifier = (*LogNotifier)(nil)
)

// DesktopNotifier talks to the freedesktop notification server over the
// session bus. The id returned by the first Notify is passed back as
// replaces_id on every later call.
type DesktopNotifier struct {
	conn    *dbus.Conn
	obj     dbus.BusObject
	appName string
	log     zerolog.Logger

	mu        sync.Mutex
	replaceID uint32
}

// NewDesktopNotifier connects to the session bus.
func NewDesktopNotifier(appName string, log zerolog.Logger) (*DesktopNotifier, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("connect session bus: %w", err)
	}
	n := newDesktopNotifier(conn.Object(notificationsDest, notificationsPath), appName, log)
	n.conn = conn
	return n, nil
}

func newDesktopNotifier(obj dbus.BusObject, appName string, log zerolog.Logger) *DesktopNotifier {
	return &DesktopNotifier{
		obj:     obj,
		appName: appName,
		log:     logging.WithComponent(log, "notify"),
	}
}

// Notify shows or replaces the camera notification.
// Notify(app_name s, replaces_id u, app_icon s, summary s, body s,
// actions as, hints a{sv}, expire_timeout i) -> id u
func (d *DesktopNotifier) Notify(ctx context.Context, note emitter.Notification) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	hints := map[string]dbus.Variant{
		"category": dbus.MakeVariant("device"),
		"urgency":  dbus.MakeVariant(byte(1)),
	}

	call := d.obj.CallWithContext(ctx, notificationsMethod, 0,
		d.appName,
		d.replaceID,
		notificationIcon,
		note.Title,
		note.Body,
		[]string{},
		hints,
		int32(-1),
	)
	if call.Err != nil {
		return fmt.Errorf("notify: %w", call.Err)
	}

	var id uint32
	if err := call.Store(&id); err != nil {
		return fmt.Errorf("notify: read id: %w", err)
	}
	if d.replaceID == 0 {
		d.log.Debug().Uint32("id", id).Msg("notification created")
	}
	d.replaceID = id
	return nil
}

// Close releases the bus connection.
func (d *DesktopNotifier) Close() error {
	if d.conn != nil {
		err := d.conn.Close()
		d.conn = nil
		return err
	}
	return nil
}

// LogNotifier writes notifications to the log. It is used when no session
// bus is reachable.
type LogNotifier struct {
	log zerolog.Logger
}

// NewLogNotifier returns a LogNotifier.
func NewLogNotifier(log zerolog.Logger) *LogNotifier {
	return &LogNotifier{log: logging.WithComponent(log, "notify")}
}

func (l *LogNotifier) Notify(_ context.Context, note emitter.Notification) error {
	l.log.Info().Str("title", note.Title).Str("body", note.Body).Msg("notification")
	return nil
}

func (l *LogNotifier) Close() error { return nil }

// New returns a DesktopNotifier, or a LogNotifier when the session bus
// cannot be reached.
func New(appName string, log zerolog.Logger) Notifier {
	n, err := NewDesktopNotifier(appName, log)
	if err != nil {
		log.Warn().Err(err).Msg("desktop notifications unavailable, logging instead")
		return NewLogNotifier(log)
	}
	return n
}

// Forward delivers the notification of every payload read from payloads
// until the channel closes or ctx is done. Each delivery gets its own
// timeout when timeout is positive. Delivery failures are logged.
func Forward(ctx context.Context, payloads <-chan emitter.Payload, n Notifier, timeout time.Duration, log zerolog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case p, ok := <-payloads:
			if !ok {
				return
			}
			if err := deliver(ctx, n, p.Notification(), timeout); err != nil {
				log.Warn().Err(err).Str("device", p.DeviceID).Msg("notification failed")
			}
		}
	}
}

func deliver(ctx context.Context, n Notifier, note emitter.Notification, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return n.Notify(ctx, note)
}

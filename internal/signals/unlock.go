package signals

import (
	"context"
	"fmt"

	"github.com/blackwell-systems/camwatch/internal/logging"
	"github.com/godbus/dbus/v5"
	"github.com/rs/zerolog"
)

const (
	login1SessionIface = "org.freedesktop.login1.Session"
	screenSaverIface   = "org.freedesktop.ScreenSaver"
	gnomeScreenIface   = "org.gnome.ScreenSaver"
)

// signalConn is the part of *dbus.Conn the listener uses.
type signalConn interface {
	AddMatchSignal(options ...dbus.MatchOption) error
	Signal(ch chan<- *dbus.Signal)
	RemoveSignal(ch chan<- *dbus.Signal)
	Close() error
}

// UnlockListener triggers re-attribution when the user unlocks the screen.
// It listens for logind's Session.Unlock on the system bus and for
// ScreenSaver.ActiveChanged(false) on the session bus; either bus alone is
// enough.
type UnlockListener struct {
	log zerolog.Logger

	// connectors are replaced in tests
	system  func() (signalConn, error)
	session func() (signalConn, error)
}

// NewUnlockListener returns a listener using the real buses.
func NewUnlockListener(log zerolog.Logger) *UnlockListener {
	return &UnlockListener{
		log:     logging.WithComponent(log, "unlock"),
		system:  func() (signalConn, error) { return dbus.ConnectSystemBus() },
		session: func() (signalConn, error) { return dbus.ConnectSessionBus() },
	}
}

func (u *UnlockListener) Name() string { return "unlock" }

// Run subscribes and calls h.Reevaluate for each unlock until ctx is done.
func (u *UnlockListener) Run(ctx context.Context, h Handler) error {
	signals := make(chan *dbus.Signal, 16)
	subscribed := 0

	if conn, err := u.subscribe(u.system, signals,
		dbus.WithMatchInterface(login1SessionIface),
		dbus.WithMatchMember("Unlock"),
	); err != nil {
		u.log.Debug().Err(err).Msg("system bus unlock signal unavailable")
	} else {
		defer u.unsubscribe(conn, signals)
		subscribed++
	}

	for _, iface := range []string{screenSaverIface, gnomeScreenIface} {
		conn, err := u.subscribe(u.session, signals,
			dbus.WithMatchInterface(iface),
			dbus.WithMatchMember("ActiveChanged"),
		)
		if err != nil {
			u.log.Debug().Err(err).Str("interface", iface).Msg("session bus screensaver signal unavailable")
			continue
		}
		defer u.unsubscribe(conn, signals)
		subscribed++
	}

	if subscribed == 0 {
		return fmt.Errorf("%w: no bus delivers unlock signals", ErrUnavailable)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case sig, ok := <-signals:
			if !ok {
				return nil
			}
			if !IsUnlockSignal(sig) {
				continue
			}
			u.log.Debug().Str("signal", sig.Name).Msg("screen unlocked")
			h.Reevaluate(ctx)
		}
	}
}

func (u *UnlockListener) subscribe(connect func() (signalConn, error), ch chan *dbus.Signal, opts ...dbus.MatchOption) (signalConn, error) {
	conn, err := connect()
	if err != nil {
		return nil, err
	}
	if err := conn.AddMatchSignal(opts...); err != nil {
		conn.Close()
		return nil, fmt.Errorf("add match: %w", err)
	}
	conn.Signal(ch)
	return conn, nil
}

func (u *UnlockListener) unsubscribe(conn signalConn, ch chan *dbus.Signal) {
	conn.RemoveSignal(ch)
	conn.Close()
}

// IsUnlockSignal reports whether sig means the screen was unlocked.
func IsUnlockSignal(sig *dbus.Signal) bool {
	if sig == nil {
		return false
	}
	switch sig.Name {
	case login1SessionIface + ".Unlock":
		return true
	case screenSaverIface + ".ActiveChanged", gnomeScreenIface + ".ActiveChanged":
		if len(sig.Body) == 0 {
			return false
		}
		active, ok := sig.Body[0].(bool)
		return ok && !active
	}
	return false
}

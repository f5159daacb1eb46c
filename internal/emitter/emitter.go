package emitter

import (
	"github.com/blackwell-systems/camwatch/internal/logging"
	"github.com/blackwell-systems/camwatch/internal/occupancy"
	"github.com/rs/zerolog"
)

// Publisher accepts rendered payloads.
type Publisher interface {
	Publish(Payload)
}

// Emitter is the occupancy.Sink that renders events and publishes them.
type Emitter struct {
	registry  Registry
	pub       Publisher
	sessionID string
	log       zerolog.Logger
}

// New creates an Emitter. reg may be nil, in which case owners are shown as
// their package identifiers.
func New(reg Registry, pub Publisher, sessionID string, log zerolog.Logger) *Emitter {
	return &Emitter{
		registry:  reg,
		pub:       pub,
		sessionID: sessionID,
		log:       logging.WithComponent(log, "emitter"),
	}
}

// Emit implements occupancy.Sink.
func (e *Emitter) Emit(ev occupancy.Event) {
	p := BuildPayload(ev, e.registry)
	p.SessionID = e.sessionID

	e.log.Debug().
		Str("device", p.DeviceLabel).
		Str("status", p.Status).
		Str("package", p.Package).
		Str("app", p.DisplayName).
		Msg("publishing")
	e.pub.Publish(p)
}

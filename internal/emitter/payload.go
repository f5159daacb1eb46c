package emitter

import (
	"errors"
	"fmt"
	"time"

	"github.com/blackwell-systems/camwatch/internal/occupancy"
)

// Status texts carried in payloads.
const (
	StatusInUse = "Camera in use"
	StatusFree  = "Camera free"
)

// Placeholders substituted when a display name cannot be resolved.
const (
	PlaceholderNotInUse         = "not in use"
	PlaceholderNotFound         = "not found"
	PlaceholderPermissionDenied = "permission denied"
	PlaceholderSourceDir        = "unknown"
)

// Payload is the broadcast message for one committed event.
type Payload struct {
	Timestamp   time.Time
	SessionID   string
	DeviceID    string
	DeviceLabel string
	InUse       bool
	Status      string
	Package     string
	DisplayName string
	SourceDir   string
	Source      occupancy.Source
	Reason      occupancy.Reason
}

// Notification is a title/body pair for the notification surface.
type Notification struct {
	Title string
	Body  string
}

// BuildPayload renders ev. Registry failures become placeholders.
func BuildPayload(ev occupancy.Event, reg Registry) Payload {
	p := Payload{
		Timestamp:   ev.Timestamp,
		DeviceID:    ev.DeviceID,
		DeviceLabel: DeviceLabel(ev.DeviceID),
		InUse:       ev.InUse,
		Status:      StatusFree,
		Package:     PlaceholderNotInUse,
		DisplayName: PlaceholderNotInUse,
		SourceDir:   PlaceholderSourceDir,
		Source:      ev.Source,
		Reason:      ev.Reason,
	}
	if !ev.InUse {
		return p
	}

	p.Status = StatusInUse
	p.Package = ev.Owner
	p.DisplayName = ev.Owner

	if ev.Owner == "" || ev.Owner == occupancy.UnknownOwner {
		p.Package = occupancy.UnknownOwner
		p.DisplayName = occupancy.UnknownOwner
		return p
	}
	if reg == nil {
		return p
	}

	info, err := reg.Lookup(ev.Owner)
	switch {
	case err == nil:
		p.DisplayName = info.DisplayName
		if info.SourceDir != "" {
			p.SourceDir = info.SourceDir
		}
	case errors.Is(err, ErrPermissionDenied):
		p.DisplayName = PlaceholderPermissionDenied
	default:
		p.DisplayName = PlaceholderNotFound
	}
	return p
}

// Notification renders the notification for p.
func (p Payload) Notification() Notification {
	title := fmt.Sprintf("Camera: %s", p.DeviceLabel)
	if !p.InUse {
		return Notification{
			Title: title,
			Body:  fmt.Sprintf("Status: %s", p.Status),
		}
	}
	return Notification{
		Title: title,
		Body: fmt.Sprintf("App %q\nPackage: %s\nStatus: %s",
			p.DisplayName, p.Package, p.Status),
	}
}

package store

import "time"

// OccupancyEvent is one recorded line of the occupancy event log.
type OccupancyEvent struct {
	ID          int64
	SessionID   string
	Timestamp   time.Time
	DeviceID    string
	DeviceLabel string
	InUse       bool
	Status      string
	Package     string
	DisplayName string
	SourceDir   string
	Source      string // attribution confidence tag
	Reason      string // "transition", "handoff" or "reattribution"
}

// FocusSample records which application held the foreground at a time.
type FocusSample struct {
	Package   string
	PID       int
	Timestamp time.Time
}

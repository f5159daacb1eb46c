package store

import (
	"context"
	"fmt"
	"time"

	"github.com/blackwell-systems/camwatch/internal/occupancy"
)

// Occupancy event log

// InsertEvent appends an event to the log and sets its ID.
func (s *Store) InsertEvent(e *OccupancyEvent) error {
	query := `
		INSERT INTO occupancy_events
		(session_id, timestamp, device_id, device_label, in_use, status, package, display_name, source_dir, source, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := s.db.Exec(query,
		e.SessionID,
		e.Timestamp.UnixNano(),
		e.DeviceID,
		e.DeviceLabel,
		e.InUse,
		e.Status,
		e.Package,
		e.DisplayName,
		e.SourceDir,
		e.Source,
		e.Reason,
	)
	if err != nil {
		return wrapErr(err, "failed to insert event for device %s", e.DeviceID)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get event id: %w", err)
	}
	e.ID = id
	return nil
}

const eventColumns = `id, session_id, timestamp, device_id, device_label, in_use, status, package, display_name, source_dir, source, reason`

// ListEvents returns up to limit events, newest first. An empty deviceID
// matches all devices; a non-positive limit returns everything.
func (s *Store) ListEvents(limit int, deviceID string) ([]*OccupancyEvent, error) {
	query := `SELECT ` + eventColumns + ` FROM occupancy_events`
	var args []any
	if deviceID != "" {
		query += ` WHERE device_id = ?`
		args = append(args, deviceID)
	}
	query += ` ORDER BY id DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	return s.queryEvents(query, args...)
}

// LatestPerDevice returns the most recent event of every device, ordered
// by device id.
func (s *Store) LatestPerDevice() ([]*OccupancyEvent, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM occupancy_events
		WHERE id IN (SELECT MAX(id) FROM occupancy_events GROUP BY device_id)
		ORDER BY device_id
	`
	return s.queryEvents(query)
}

func (s *Store) queryEvents(query string, args ...any) ([]*OccupancyEvent, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, wrapErr(err, "failed to query events")
	}
	defer rows.Close()

	var events []*OccupancyEvent
	for rows.Next() {
		var e OccupancyEvent
		var ts int64
		if err := rows.Scan(
			&e.ID,
			&e.SessionID,
			&ts,
			&e.DeviceID,
			&e.DeviceLabel,
			&e.InUse,
			&e.Status,
			&e.Package,
			&e.DisplayName,
			&e.SourceDir,
			&e.Source,
			&e.Reason,
		); err != nil {
			return nil, fmt.Errorf("failed to scan event row: %w", err)
		}
		e.Timestamp = time.Unix(0, ts)
		events = append(events, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating events: %w", err)
	}

	return events, nil
}

// CountEvents returns the number of stored events.
func (s *Store) CountEvents() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM occupancy_events`).Scan(&n); err != nil {
		return 0, wrapErr(err, "failed to count events")
	}
	return n, nil
}

// TrimEvents keeps only the newest keep events and returns how many were
// removed. A non-positive keep disables trimming.
func (s *Store) TrimEvents(keep int) (int64, error) {
	if keep <= 0 {
		return 0, nil
	}

	query := `
		DELETE FROM occupancy_events
		WHERE id NOT IN (SELECT id FROM occupancy_events ORDER BY id DESC LIMIT ?)
	`
	result, err := s.db.Exec(query, keep)
	if err != nil {
		return 0, wrapErr(err, "failed to trim events")
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}

// Foreground focus samples

// InsertFocus records a foreground sample.
func (s *Store) InsertFocus(f *FocusSample) error {
	query := `INSERT INTO app_focus (package, pid, timestamp) VALUES (?, ?, ?)`
	if _, err := s.db.Exec(query, f.Package, f.PID, f.Timestamp.UnixNano()); err != nil {
		return wrapErr(err, "failed to insert focus sample for %s", f.Package)
	}
	return nil
}

// RecentApps returns, for every package sampled in [start, end], its latest
// sample time, newest first. It implements occupancy.ForegroundResolver.
func (s *Store) RecentApps(ctx context.Context, start, end time.Time) ([]occupancy.AppUsage, error) {
	query := `
		SELECT package, MAX(timestamp) AS last_used
		FROM app_focus
		WHERE timestamp >= ? AND timestamp <= ?
		GROUP BY package
		ORDER BY last_used DESC
	`

	rows, err := s.db.QueryContext(ctx, query, start.UnixNano(), end.UnixNano())
	if err != nil {
		return nil, wrapErr(err, "failed to query recent apps")
	}
	defer rows.Close()

	var apps []occupancy.AppUsage
	for rows.Next() {
		var app occupancy.AppUsage
		var ts int64
		if err := rows.Scan(&app.Package, &ts); err != nil {
			return nil, fmt.Errorf("failed to scan focus row: %w", err)
		}
		app.LastUsed = time.Unix(0, ts)
		apps = append(apps, app)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating focus samples: %w", err)
	}

	return apps, nil
}

// PruneFocus deletes focus samples older than before.
func (s *Store) PruneFocus(before time.Time) (int64, error) {
	result, err := s.db.Exec(`DELETE FROM app_focus WHERE timestamp < ?`, before.UnixNano())
	if err != nil {
		return 0, wrapErr(err, "failed to prune focus samples")
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}

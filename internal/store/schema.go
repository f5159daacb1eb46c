package store

const schema = `
CREATE TABLE IF NOT EXISTS occupancy_events (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id TEXT NOT NULL,
    timestamp INTEGER NOT NULL,
    device_id TEXT NOT NULL,
    device_label TEXT NOT NULL,
    in_use BOOLEAN NOT NULL,
    status TEXT NOT NULL,
    package TEXT NOT NULL,
    display_name TEXT NOT NULL,
    source_dir TEXT,
    source TEXT,
    reason TEXT
);

CREATE TABLE IF NOT EXISTS app_focus (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    package TEXT NOT NULL,
    pid INTEGER,
    timestamp INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_events_device ON occupancy_events(device_id);
CREATE INDEX IF NOT EXISTS idx_events_timestamp ON occupancy_events(timestamp);
CREATE INDEX IF NOT EXISTS idx_focus_timestamp ON app_focus(timestamp);
`

package store

import (
	"fmt"
)

type migration struct {
	Version     int
	Description string
	SQL         string
}

var migrations = []migration{
	{
		Version:     1,
		Description: "focus_sessions: one row per focus session",
		SQL: `
CREATE TABLE focus_sessions (
    id              INTEGER PRIMARY KEY,
    session_id      TEXT NOT NULL UNIQUE,
    title           TEXT NOT NULL DEFAULT '',
    keyword_count   INTEGER NOT NULL DEFAULT 0,
    phrase_count    INTEGER NOT NULL DEFAULT 0,
    min_score       REAL NOT NULL,
    source          TEXT NOT NULL DEFAULT 'manual' CHECK (source IN ('manual', 'generated')),
    status          TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'ended', 'expired')),
    started_at      INTEGER NOT NULL,
    ended_at        INTEGER,
    eval_count      INTEGER NOT NULL DEFAULT 0,
    drift_count     INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX idx_focus_status     ON focus_sessions(status);
CREATE INDEX idx_focus_started_at ON focus_sessions(started_at DESC);
`,
	},
	{
		Version:     2,
		Description: "evaluations: scored snapshots per session",
		SQL: `
CREATE TABLE evaluations (
    id           INTEGER PRIMARY KEY,
    session_id   TEXT NOT NULL,
    score        REAL NOT NULL,
    is_low       INTEGER NOT NULL,
    is_drifting  INTEGER NOT NULL,
    low_count    INTEGER NOT NULL,
    missing      TEXT NOT NULL DEFAULT '[]',
    created_at   INTEGER NOT NULL,
    FOREIGN KEY (session_id) REFERENCES focus_sessions(session_id) ON DELETE CASCADE
);

CREATE INDEX idx_eval_session ON evaluations(session_id, created_at);
CREATE INDEX idx_eval_created ON evaluations(created_at);
`,
	},
	{
		Version:     3,
		Description: "drift_events: resets and snoozes",
		SQL: `
CREATE TABLE drift_events (
    id          INTEGER PRIMARY KEY,
    session_id  TEXT NOT NULL,
    kind        TEXT NOT NULL CHECK (kind IN ('reset', 'snooze')),
    created_at  INTEGER NOT NULL,
    FOREIGN KEY (session_id) REFERENCES focus_sessions(session_id) ON DELETE CASCADE
);

CREATE INDEX idx_events_session ON drift_events(session_id);
`,
	},
}

func (db *DB) migrate() error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_versions (
			version     INTEGER PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at  INTEGER NOT NULL DEFAULT (strftime('%s', 'now') * 1000)
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_versions: %w", err)
	}

	for _, m := range migrations {
		var count int
		err := db.QueryRow("SELECT COUNT(*) FROM schema_versions WHERE version = ?", m.Version).Scan(&count)
		if err != nil {
			return fmt.Errorf("check migration %d: %w", m.Version, err)
		}
		if count > 0 {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.Version, err)
		}

		if _, err := tx.Exec(m.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
		}

		if _, err := tx.Exec(
			"INSERT INTO schema_versions (version, description) VALUES (?, ?)",
			m.Version, m.Description,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}

	return nil
}

// SchemaVersion returns the current schema version.
func (db *DB) SchemaVersion() (int, error) {
	var version int
	err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_versions").Scan(&version)
	return version, err
}

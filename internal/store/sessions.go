package store

import (
	"database/sql"
	"fmt"
	"time"
)

// Session statuses.
const (
	StatusActive  = "active"
	StatusEnded   = "ended"
	StatusExpired = "expired"
)

// FocusSession is the persisted record of one focus session.
type FocusSession struct {
	ID           int64
	SessionID    string
	Title        string
	KeywordCount int
	PhraseCount  int
	MinScore     float64
	Source       string
	Status       string
	StartedAt    int64
	EndedAt      *int64
	EvalCount    int
	DriftCount   int
}

const focusColumns = `id, session_id, title, keyword_count, phrase_count, min_score, source, status, started_at, ended_at, eval_count, drift_count`

func scanFocus(row interface{ Scan(...any) error }) (*FocusSession, error) {
	var s FocusSession
	err := row.Scan(&s.ID, &s.SessionID, &s.Title, &s.KeywordCount, &s.PhraseCount, &s.MinScore,
		&s.Source, &s.Status, &s.StartedAt, &s.EndedAt, &s.EvalCount, &s.DriftCount)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// CreateFocusSession inserts a new active session record. StartedAt and
// Status are filled in when zero.
func (db *DB) CreateFocusSession(s *FocusSession) error {
	if s.StartedAt == 0 {
		s.StartedAt = time.Now().UnixMilli()
	}
	if s.Source == "" {
		s.Source = "manual"
	}
	s.Status = StatusActive

	result, err := db.Exec(`
		INSERT INTO focus_sessions (session_id, title, keyword_count, phrase_count, min_score, source, status, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, s.SessionID, s.Title, s.KeywordCount, s.PhraseCount, s.MinScore, s.Source, s.Status, s.StartedAt)
	if err != nil {
		return fmt.Errorf("insert focus session: %w", err)
	}
	s.ID, _ = result.LastInsertId()
	return nil
}

// GetFocusSession returns a session by its session_id, or nil if unknown.
func (db *DB) GetFocusSession(sessionID string) (*FocusSession, error) {
	s, err := scanFocus(db.QueryRow(`SELECT `+focusColumns+` FROM focus_sessions WHERE session_id = ?`, sessionID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get focus session: %w", err)
	}
	return s, nil
}

// FinishFocusSession moves an active session to status (ended or expired).
// It reports whether a row changed; finishing a finished session is a no-op.
func (db *DB) FinishFocusSession(sessionID, status string) (bool, error) {
	if status != StatusEnded && status != StatusExpired {
		return false, fmt.Errorf("finish focus session: invalid status %q", status)
	}
	result, err := db.Exec(`
		UPDATE focus_sessions SET status = ?, ended_at = ?
		WHERE session_id = ? AND status = 'active'
	`, status, time.Now().UnixMilli(), sessionID)
	if err != nil {
		return false, fmt.Errorf("finish focus session: %w", err)
	}
	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

// RecentFocusSessions returns the most recent sessions, newest first.
func (db *DB) RecentFocusSessions(limit int) ([]FocusSession, error) {
	rows, err := db.Query(`SELECT `+focusColumns+` FROM focus_sessions ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent focus sessions: %w", err)
	}
	defer rows.Close()

	var sessions []FocusSession
	for rows.Next() {
		s, err := scanFocus(rows)
		if err != nil {
			return nil, fmt.Errorf("scan focus session: %w", err)
		}
		sessions = append(sessions, *s)
	}
	return sessions, rows.Err()
}

// ExpireActiveSessions marks every active session as expired. Used at
// startup, since live monitors do not survive a restart.
func (db *DB) ExpireActiveSessions() (int64, error) {
	result, err := db.Exec(`
		UPDATE focus_sessions SET status = 'expired', ended_at = ?
		WHERE status = 'active'
	`, time.Now().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("expire active sessions: %w", err)
	}
	return result.RowsAffected()
}

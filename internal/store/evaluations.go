package store

import (
	"encoding/json"
	"fmt"
	"time"
)

// Evaluation is one scored snapshot as recorded in the activity log.
type Evaluation struct {
	ID         int64
	SessionID  string
	Score      float64
	IsLow      bool
	IsDrifting bool
	LowCount   int
	Missing    []string
	CreatedAt  int64
}

// AddEvaluation records an evaluation and bumps the session's counters.
func (db *DB) AddEvaluation(e *Evaluation) error {
	if e.CreatedAt == 0 {
		e.CreatedAt = time.Now().UnixMilli()
	}
	missing := e.Missing
	if missing == nil {
		missing = []string{}
	}
	missingJSON, err := json.Marshal(missing)
	if err != nil {
		return fmt.Errorf("marshal missing: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin add evaluation: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(`
		INSERT INTO evaluations (session_id, score, is_low, is_drifting, low_count, missing, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, e.SessionID, e.Score, e.IsLow, e.IsDrifting, e.LowCount, string(missingJSON), e.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert evaluation: %w", err)
	}
	e.ID, _ = result.LastInsertId()

	drift := 0
	if e.IsDrifting {
		drift = 1
	}
	if _, err := tx.Exec(`
		UPDATE focus_sessions SET eval_count = eval_count + 1, drift_count = drift_count + ?
		WHERE session_id = ?
	`, drift, e.SessionID); err != nil {
		return fmt.Errorf("update session counters: %w", err)
	}
	return tx.Commit()
}

// GetEvaluations returns the most recent evaluations for a session, oldest
// first.
func (db *DB) GetEvaluations(sessionID string, limit int) ([]Evaluation, error) {
	rows, err := db.Query(`
		SELECT id, session_id, score, is_low, is_drifting, low_count, missing, created_at FROM (
			SELECT * FROM evaluations WHERE session_id = ? ORDER BY created_at DESC, id DESC LIMIT ?
		) ORDER BY created_at ASC, id ASC
	`, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("get evaluations: %w", err)
	}
	defer rows.Close()

	var evals []Evaluation
	for rows.Next() {
		var e Evaluation
		var missingJSON string
		if err := rows.Scan(&e.ID, &e.SessionID, &e.Score, &e.IsLow, &e.IsDrifting, &e.LowCount, &missingJSON, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan evaluation: %w", err)
		}
		if err := json.Unmarshal([]byte(missingJSON), &e.Missing); err != nil {
			return nil, fmt.Errorf("decode missing for evaluation %d: %w", e.ID, err)
		}
		evals = append(evals, e)
	}
	return evals, rows.Err()
}

// PruneEvaluations deletes evaluations created before the cutoff and returns
// how many were removed.
func (db *DB) PruneEvaluations(before time.Time) (int64, error) {
	result, err := db.Exec(`DELETE FROM evaluations WHERE created_at < ?`, before.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("prune evaluations: %w", err)
	}
	return result.RowsAffected()
}

// RecordEvent logs a reset or snooze for a session.
func (db *DB) RecordEvent(sessionID, kind string) error {
	_, err := db.Exec(`
		INSERT INTO drift_events (session_id, kind, created_at) VALUES (?, ?, ?)
	`, sessionID, kind, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("record %s event: %w", kind, err)
	}
	return nil
}

// CountEvents returns how many events of kind were logged for a session.
func (db *DB) CountEvents(sessionID, kind string) (int, error) {
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM drift_events WHERE session_id = ? AND kind = ?`, sessionID, kind).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count %s events: %w", kind, err)
	}
	return n, nil
}

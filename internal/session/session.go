// Package session binds a focus session's topic to its own drift monitor
// and exposes the single entry point external collaborators need.
package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/lazypower/focusdrift/internal/drift"
	"github.com/lazypower/focusdrift/internal/scoring"
	"github.com/lazypower/focusdrift/internal/topic"
)

// DefaultSnooze matches the nudge's "Snooze 5m" action.
const DefaultSnooze = 5 * time.Minute

// Options configures a Session.
type Options struct {
	Clock  func() time.Time // defaults to time.Now
	Window time.Duration    // trailing drift window, default 30s
	Lows   int              // low samples needed to drift, default 3
}

// Evaluation is what a consumer receives for one content snapshot.
type Evaluation struct {
	SessionID   string      `json:"session_id"`
	Score       float64     `json:"score"`
	Missing     []string    `json:"missing"`
	IsDrifting  bool        `json:"is_drifting"`
	State       drift.State `json:"state"`
	LowCount    int         `json:"low_count"`
	Snoozed     bool        `json:"snoozed"`
	EvaluatedAt time.Time   `json:"evaluated_at"`
}

// Session is one live focus session. Its methods are serialised by an
// internal mutex; distinct sessions share nothing.
type Session struct {
	id        string
	focus     topic.FocusSession
	rules     topic.MatchingRules
	clock     func() time.Time
	startedAt time.Time

	mu           sync.Mutex
	monitor      *drift.Monitor
	snoozedUntil time.Time
	lastEval     *Evaluation
}

// New validates fs and creates a session with an Idle monitor.
func New(id string, fs topic.FocusSession, opts Options) (*Session, error) {
	if err := topic.Validate(fs); err != nil {
		return nil, err
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	rules := fs.Rules()

	return &Session{
		id:        id,
		focus:     fs,
		rules:     rules,
		clock:     clock,
		startedAt: clock(),
		monitor: drift.NewMonitor(drift.Config{
			Window:           opts.Window,
			LowCount:         opts.Lows,
			MinWeightedScore: rules.MinWeightedScore,
		}),
	}, nil
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Focus returns the focus session as supplied.
func (s *Session) Focus() topic.FocusSession { return s.focus }

// Rules returns the effective matching rules.
func (s *Session) Rules() topic.MatchingRules { return s.rules }

// StartedAt returns the session creation time.
func (s *Session) StartedAt() time.Time { return s.startedAt }

// EvaluateSnapshot scores text against the topic and feeds the score to the
// drift monitor, stamped with the current time.
func (s *Session) EvaluateSnapshot(text string) (Evaluation, error) {
	res := scoring.Score(s.focus.Topic, s.rules, text)

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock()
	snap, err := s.monitor.Ingest(drift.Sample{
		Score:     res.Score,
		Timestamp: now,
		Missing:   res.Missing,
	})
	if err != nil {
		return Evaluation{}, fmt.Errorf("session %s: %w", s.id, err)
	}

	eval := Evaluation{
		SessionID:   s.id,
		Score:       snap.Score,
		Missing:     snap.Missing,
		IsDrifting:  snap.IsDrifting,
		State:       snap.State,
		LowCount:    snap.LowCount,
		Snoozed:     now.Before(s.snoozedUntil),
		EvaluatedAt: now,
	}
	s.lastEval = &eval
	return eval, nil
}

// Reset clears the drift window ("return" and "dismiss" actions).
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.monitor.Reset()
	s.lastEval = nil
}

// Snooze resets the drift window and marks evaluations as snoozed for d.
// The drift state is still computed while snoozed; presenting or hiding the
// nudge is the consumer's call.
func (s *Session) Snooze(d time.Duration) time.Time {
	if d <= 0 {
		d = DefaultSnooze
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.monitor.Reset()
	s.lastEval = nil
	s.snoozedUntil = s.clock().Add(d)
	return s.snoozedUntil
}

// Status is a point-in-time view of a session.
type Status struct {
	SessionID    string              `json:"session_id"`
	Topic        topic.Topic         `json:"topic"`
	Rules        topic.MatchingRules `json:"matching_rules"`
	State        drift.State         `json:"state"`
	IsDrifting   bool                `json:"is_drifting"`
	LowCount     int                 `json:"low_count"`
	WindowSize   int                 `json:"window_size"`
	Missing      []string            `json:"missing"`
	SnoozedUntil *time.Time          `json:"snoozed_until,omitempty"`
	StartedAt    time.Time           `json:"started_at"`
}

// Status reports the monitor's state as of its last recomputation.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{
		SessionID:  s.id,
		Topic:      s.focus.Topic,
		Rules:      s.rules,
		State:      s.monitor.State(),
		IsDrifting: s.monitor.IsDrifting(),
		LowCount:   s.monitor.LowCount(),
		WindowSize: s.monitor.Len(),
		Missing:    []string{},
		StartedAt:  s.startedAt,
	}
	if s.lastEval != nil {
		st.Missing = s.lastEval.Missing
	}
	if s.clock().Before(s.snoozedUntil) {
		until := s.snoozedUntil
		st.SnoozedUntil = &until
	}
	return st
}

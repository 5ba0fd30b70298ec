// Package drift turns a noisy stream of relevance scores into a debounced
// drifting signal using a trailing time window.
//
// State is only recomputed on Ingest. A Monitor that reaches Drifting stays
// there until the next Ingest or Reset; nothing expires on a timer.
package drift

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// State is the monitor's debounced signal.
type State int

const (
	Idle State = iota
	Drifting
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Drifting:
		return "drifting"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// MarshalText renders the state as its name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a state name.
func (s *State) UnmarshalText(text []byte) error {
	switch string(text) {
	case "idle":
		*s = Idle
	case "drifting":
		*s = Drifting
	default:
		return fmt.Errorf("unknown drift state %q", text)
	}
	return nil
}

var (
	ErrInvalidScore     = errors.New("invalid score")
	ErrInvalidTimestamp = errors.New("invalid timestamp")
	ErrNonMonotonic     = errors.New("timestamp earlier than previous sample")
)

// Config holds the hysteresis parameters.
type Config struct {
	Window           time.Duration // samples at least this old are pruned
	LowCount         int           // low samples in the window needed to drift
	MinWeightedScore float64       // scores below this are low
}

// DefaultConfig returns a 30 second window that drifts on 3 low samples
// below 0.6.
func DefaultConfig() Config {
	return Config{
		Window:           30 * time.Second,
		LowCount:         3,
		MinWeightedScore: 0.6,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Window <= 0 {
		c.Window = d.Window
	}
	if c.LowCount <= 0 {
		c.LowCount = d.LowCount
	}
	if c.MinWeightedScore <= 0 {
		c.MinWeightedScore = d.MinWeightedScore
	}
	return c
}

// Sample is one scored snapshot. Missing is passed through to the snapshot
// returned by Ingest.
type Sample struct {
	Score     float64
	Timestamp time.Time
	Missing   []string
}

// windowEntry is a sample tagged at ingest time. Entries are never mutated.
type windowEntry struct {
	score     float64
	isLow     bool
	timestamp time.Time
}

// Snapshot is the monitor's view after an ingest.
type Snapshot struct {
	State      State    `json:"state"`
	IsDrifting bool     `json:"is_drifting"`
	Missing    []string `json:"missing"`
	Score      float64  `json:"score"`
	LowCount   int      `json:"low_count"`
	WindowSize int      `json:"window_size"`
}

// Monitor maintains the trailing window for one focus session.
// It is not safe for concurrent use.
type Monitor struct {
	config   Config
	window   []windowEntry
	state    State
	lowCount int
	last     time.Time
}

// NewMonitor creates an Idle monitor. Zero config fields take defaults.
func NewMonitor(config Config) *Monitor {
	return &Monitor{config: config.withDefaults()}
}

// Config returns the monitor's effective configuration.
func (m *Monitor) Config() Config {
	return m.config
}

// Ingest appends a sample, prunes the window relative to the sample's
// timestamp, and recomputes the state. Invalid samples are rejected and
// leave the monitor unchanged.
func (m *Monitor) Ingest(s Sample) (Snapshot, error) {
	if math.IsNaN(s.Score) || math.IsInf(s.Score, 0) || s.Score < 0 {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrInvalidScore, s.Score)
	}
	if s.Timestamp.IsZero() {
		return Snapshot{}, fmt.Errorf("%w: zero time", ErrInvalidTimestamp)
	}
	if s.Timestamp.Before(m.last) {
		return Snapshot{}, fmt.Errorf("%w: %s < %s", ErrNonMonotonic,
			s.Timestamp.Format(time.RFC3339Nano), m.last.Format(time.RFC3339Nano))
	}
	m.last = s.Timestamp

	m.window = append(m.window, windowEntry{
		score:     s.Score,
		isLow:     s.Score < m.config.MinWeightedScore,
		timestamp: s.Timestamp,
	})
	m.prune(s.Timestamp)

	m.lowCount = 0
	for _, e := range m.window {
		if e.isLow {
			m.lowCount++
		}
	}
	if m.lowCount >= m.config.LowCount {
		m.state = Drifting
	} else {
		m.state = Idle
	}

	missing := make([]string, len(s.Missing))
	copy(missing, s.Missing)

	return Snapshot{
		State:      m.state,
		IsDrifting: m.state == Drifting,
		Missing:    missing,
		Score:      s.Score,
		LowCount:   m.lowCount,
		WindowSize: len(m.window),
	}, nil
}

// prune drops entries with now - timestamp >= Window. The window is ordered
// by timestamp, so the retained entries form a suffix.
func (m *Monitor) prune(now time.Time) {
	cut := 0
	for cut < len(m.window) && now.Sub(m.window[cut].timestamp) >= m.config.Window {
		cut++
	}
	if cut > 0 {
		m.window = append(m.window[:0:0], m.window[cut:]...)
	}
}

// Reset clears the window and forces Idle. The monotonic-timestamp guard
// survives a reset.
func (m *Monitor) Reset() {
	m.window = nil
	m.lowCount = 0
	m.state = Idle
}

// State returns the state as of the last recomputation.
func (m *Monitor) State() State {
	return m.state
}

// IsDrifting reports whether the monitor is in the Drifting state.
func (m *Monitor) IsDrifting() bool {
	return m.state == Drifting
}

// LowCount returns the low samples counted at the last recomputation.
func (m *Monitor) LowCount() int {
	return m.lowCount
}

// Len returns the number of samples retained in the window.
func (m *Monitor) Len() int {
	return len(m.window)
}

// Window returns a copy of the retained samples, oldest first.
func (m *Monitor) Window() []Sample {
	out := make([]Sample, len(m.window))
	for i, e := range m.window {
		out[i] = Sample{Score: e.score, Timestamp: e.timestamp}
	}
	return out
}

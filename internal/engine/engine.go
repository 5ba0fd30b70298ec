package engine

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lazypower/focusdrift/internal/llm"
	"github.com/lazypower/focusdrift/internal/session"
	"github.com/lazypower/focusdrift/internal/store"
	"github.com/lazypower/focusdrift/internal/topic"
)

var (
	// ErrNotFound is returned for ids with no live session.
	ErrNotFound = errors.New("session not found")
	// ErrExists is returned when a session id is already in use.
	ErrExists = errors.New("session already exists")
)

// Source labels how a session's topic was obtained.
const (
	SourceManual    = "manual"
	SourceGenerated = "generated"
)

// Options tunes the engine. Zero values take the defaults of the packages
// they are passed to.
type Options struct {
	Window    time.Duration    // drift window
	Lows      int              // low samples needed to drift
	IdleTTL   time.Duration    // live session idle expiry
	Retention time.Duration    // evaluation rows older than this are pruned; 0 keeps them
	Clock     func() time.Time // session clock, defaults to time.Now
	Logger    *zap.Logger
}

// Engine owns the live sessions, records their activity, and generates
// topics through the LLM.
type Engine struct {
	DB       *store.DB
	LLM      llm.Client
	Sessions *session.Registry

	opts     Options
	log      *zap.Logger
	stopCh   chan struct{}
	stopOnce sync.Once
}

// New creates a new Engine. db and client may be nil: without a db nothing
// is recorded, without a client topic generation is unavailable.
func New(db *store.DB, client llm.Client, opts Options) *Engine {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	e := &Engine{
		DB:       db,
		LLM:      client,
		Sessions: session.NewRegistry(opts.IdleTTL),
		opts:     opts,
		log:      log,
		stopCh:   make(chan struct{}),
	}
	e.Sessions.OnEvicted(e.onEvicted)
	return e
}

// onEvicted marks a session expired when it idles out of the registry.
// Sessions removed by End are already marked ended, so this is a no-op for them.
func (e *Engine) onEvicted(id string) {
	if e.DB == nil {
		return
	}
	changed, err := e.DB.FinishFocusSession(id, store.StatusExpired)
	if err != nil {
		e.log.Warn("expire session", zap.String("session", id), zap.Error(err))
		return
	}
	if changed {
		e.log.Info("session expired", zap.String("session", id))
	}
}

// StartSession validates fs and makes it live under id (a new UUID when id
// is empty).
func (e *Engine) StartSession(id string, fs topic.FocusSession, source string) (*session.Session, error) {
	if id == "" {
		id = uuid.NewString()
	}
	if source == "" {
		source = SourceManual
	}

	s, err := session.New(id, fs, session.Options{
		Clock:  e.opts.Clock,
		Window: e.opts.Window,
		Lows:   e.opts.Lows,
	})
	if err != nil {
		return nil, err
	}

	if e.DB != nil {
		existing, err := e.DB.GetFocusSession(id)
		if err != nil {
			return nil, fmt.Errorf("start session: %w", err)
		}
		if existing != nil {
			return nil, fmt.Errorf("%w: %s", ErrExists, id)
		}
	}

	if err := e.Sessions.Add(s); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrExists, id)
	}

	if e.DB != nil {
		rules := s.Rules()
		rec := &store.FocusSession{
			SessionID:    id,
			Title:        fs.Topic.Title,
			KeywordCount: len(fs.Topic.Keywords),
			PhraseCount:  len(fs.Topic.Phrases),
			MinScore:     rules.MinWeightedScore,
			Source:       source,
			StartedAt:    s.StartedAt().UnixMilli(),
		}
		if err := e.DB.CreateFocusSession(rec); err != nil {
			e.Sessions.Remove(id)
			return nil, fmt.Errorf("start session: %w", err)
		}
	}

	e.log.Info("session started",
		zap.String("session", id),
		zap.String("title", fs.Topic.Title),
		zap.Int("keywords", len(fs.Topic.Keywords)),
		zap.Int("phrases", len(fs.Topic.Phrases)),
		zap.String("source", source),
	)
	return s, nil
}

// Session returns a live session.
func (e *Engine) Session(id string) (*session.Session, error) {
	s, ok := e.Sessions.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s, nil
}

// Evaluate scores a snapshot for a live session and records the result.
// A failed activity-log write is logged; the evaluation is still returned.
func (e *Engine) Evaluate(id, text string) (session.Evaluation, error) {
	s, err := e.Session(id)
	if err != nil {
		return session.Evaluation{}, err
	}

	eval, err := s.EvaluateSnapshot(text)
	if err != nil {
		return session.Evaluation{}, err
	}

	if e.DB != nil {
		rec := &store.Evaluation{
			SessionID:  id,
			Score:      eval.Score,
			IsLow:      eval.Score < s.Rules().MinWeightedScore,
			IsDrifting: eval.IsDrifting,
			LowCount:   eval.LowCount,
			Missing:    eval.Missing,
			CreatedAt:  eval.EvaluatedAt.UnixMilli(),
		}
		if err := e.DB.AddEvaluation(rec); err != nil {
			e.log.Warn("record evaluation", zap.String("session", id), zap.Error(err))
		}
	}

	e.log.Debug("snapshot evaluated",
		zap.String("session", id),
		zap.Float64("score", eval.Score),
		zap.Int("lows", eval.LowCount),
		zap.Bool("drifting", eval.IsDrifting),
		zap.Strings("missing", eval.Missing),
	)
	return eval, nil
}

// Reset clears a session's drift window.
func (e *Engine) Reset(id string) error {
	s, err := e.Session(id)
	if err != nil {
		return err
	}
	s.Reset()
	e.recordEvent(id, "reset")
	e.log.Info("session reset", zap.String("session", id))
	return nil
}

// Snooze resets a session and flags its evaluations as snoozed for d.
func (e *Engine) Snooze(id string, d time.Duration) (time.Time, error) {
	s, err := e.Session(id)
	if err != nil {
		return time.Time{}, err
	}
	until := s.Snooze(d)
	e.recordEvent(id, "snooze")
	e.log.Info("session snoozed", zap.String("session", id), zap.Time("until", until))
	return until, nil
}

// End drops a live session and marks its record ended.
func (e *Engine) End(id string) error {
	if _, ok := e.Sessions.Get(id); !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if e.DB != nil {
		if _, err := e.DB.FinishFocusSession(id, store.StatusEnded); err != nil {
			return fmt.Errorf("end session: %w", err)
		}
	}
	e.Sessions.Remove(id)
	e.log.Info("session ended", zap.String("session", id))
	return nil
}

func (e *Engine) recordEvent(id, kind string) {
	if e.DB == nil {
		return
	}
	if err := e.DB.RecordEvent(id, kind); err != nil {
		e.log.Warn("record event", zap.String("session", id), zap.String("kind", kind), zap.Error(err))
	}
}

// Stop shuts down the engine's background goroutines.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() { close(e.stopCh) })
}

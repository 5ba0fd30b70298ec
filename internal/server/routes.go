package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/lazypower/focusdrift/internal/engine"
	"github.com/lazypower/focusdrift/internal/session"
	"github.com/lazypower/focusdrift/internal/store"
	"github.com/lazypower/focusdrift/internal/topic"
)

// maxBodyBytes bounds request bodies; snapshots are capped far below this
// by the scorer's character limit anyway.
const maxBodyBytes = 1 << 20

var validate = validator.New(validator.WithRequiredStructEnabled())

type createRequest struct {
	SessionID string `json:"session_id" validate:"omitempty,max=128,printascii"`
}

type generateRequest struct {
	SessionID       string `json:"session_id" validate:"omitempty,max=128,printascii"`
	TopicSourceText string `json:"topic_source_text" validate:"required"`
}

type snapshotRequest struct {
	Text string `json:"text"`
}

type snoozeRequest struct {
	Minutes int `json:"minutes" validate:"gte=0,lte=1440"`
}

// decodeBody reads a JSON body into v and validates it. An empty body leaves
// v at its zero value.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "read body failed")
		return nil, false
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, v); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json")
			return nil, false
		}
	}
	if err := validate.Struct(v); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	return body, true
}

// errorStatus maps engine and topic errors onto HTTP statuses.
func errorStatus(err error) int {
	switch {
	case topic.IsValidationError(err), errors.Is(err, engine.ErrEmptySource):
		return http.StatusBadRequest
	case errors.Is(err, engine.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrExists):
		return http.StatusConflict
	case errors.Is(err, engine.ErrNoLLM):
		return http.StatusServiceUnavailable
	case errors.Is(err, engine.ErrBadLLMOutput):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := errorStatus(err)
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Error(err),
		)
	}
	writeError(w, status, err.Error())
}

func sessionCreated(sess *session.Session) map[string]any {
	return map[string]any{
		"session_id":     sess.ID(),
		"topic":          sess.Focus().Topic,
		"matching_rules": sess.Rules(),
		"started_at":     sess.StartedAt(),
	}
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	body, ok := decodeBody(w, r, &req)
	if !ok {
		return
	}
	if len(body) == 0 {
		writeError(w, http.StatusBadRequest, "focus session body required")
		return
	}

	fs, err := topic.Parse(body)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	sess, err := s.engine.StartSession(req.SessionID, fs, engine.SourceManual)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sessionCreated(sess))
}

func (s *Server) handleGenerateSession(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if _, ok := decodeBody(w, r, &req); !ok {
		return
	}

	sess, err := s.engine.StartGenerated(r.Context(), req.SessionID, req.TopicSourceText)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sessionCreated(sess))
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 20)

	type sessionJSON struct {
		SessionID  string     `json:"session_id"`
		Title      string     `json:"title"`
		Source     string     `json:"source"`
		Status     string     `json:"status"`
		Live       bool       `json:"live"`
		StartedAt  time.Time  `json:"started_at"`
		EndedAt    *time.Time `json:"ended_at,omitempty"`
		EvalCount  int        `json:"eval_count"`
		DriftCount int        `json:"drift_count"`
	}

	out := []sessionJSON{}
	if s.db != nil {
		recs, err := s.db.RecentFocusSessions(limit)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		for _, rec := range recs {
			sj := sessionJSON{
				SessionID:  rec.SessionID,
				Title:      rec.Title,
				Source:     rec.Source,
				Status:     rec.Status,
				StartedAt:  time.UnixMilli(rec.StartedAt),
				EvalCount:  rec.EvalCount,
				DriftCount: rec.DriftCount,
			}
			if rec.EndedAt != nil {
				ended := time.UnixMilli(*rec.EndedAt)
				sj.EndedAt = &ended
			}
			if rec.Status == store.StatusActive {
				sj.Live = s.engine.Sessions.Live(rec.SessionID)
			}
			out = append(out, sj)
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"count":    len(out),
		"sessions": out,
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.engine.Session(chi.URLParam(r, "sessionID"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.Status())
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	var req snapshotRequest
	if _, ok := decodeBody(w, r, &req); !ok {
		return
	}

	eval, err := s.engine.Evaluate(chi.URLParam(r, "sessionID"), req.Text)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, eval)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	if err := s.engine.Reset(id); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"session_id":  id,
		"is_drifting": false,
	})
}

func (s *Server) handleSnooze(w http.ResponseWriter, r *http.Request) {
	var req snoozeRequest
	if _, ok := decodeBody(w, r, &req); !ok {
		return
	}

	id := chi.URLParam(r, "sessionID")
	until, err := s.engine.Snooze(id, time.Duration(req.Minutes)*time.Minute)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"session_id":    id,
		"is_drifting":   false,
		"snoozed_until": until,
	})
}

func (s *Server) handleEnd(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	if err := s.engine.End(id); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"session_id": id,
		"status":     store.StatusEnded,
	})
}

func (s *Server) handleEvaluations(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	if s.db == nil {
		writeError(w, http.StatusServiceUnavailable, "activity log not configured")
		return
	}

	rec, err := s.db.GetFocusSession(id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if rec == nil {
		writeError(w, http.StatusNotFound, "session not found: "+id)
		return
	}

	evals, err := s.db.GetEvaluations(id, queryInt(r, "limit", 100))
	if err != nil {
		s.fail(w, r, err)
		return
	}

	type evalJSON struct {
		Score      float64   `json:"score"`
		IsLow      bool      `json:"is_low"`
		IsDrifting bool      `json:"is_drifting"`
		LowCount   int       `json:"low_count"`
		Missing    []string  `json:"missing"`
		CreatedAt  time.Time `json:"created_at"`
	}
	out := make([]evalJSON, len(evals))
	for i, e := range evals {
		out[i] = evalJSON{
			Score:      e.Score,
			IsLow:      e.IsLow,
			IsDrifting: e.IsDrifting,
			LowCount:   e.LowCount,
			Missing:    e.Missing,
			CreatedAt:  time.UnixMilli(e.CreatedAt),
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"session_id":  id,
		"count":       len(out),
		"evaluations": out,
	})
}

func queryInt(r *http.Request, key string, def int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

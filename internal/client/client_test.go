package client

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/lazypower/focusdrift/internal/drift"
	"github.com/lazypower/focusdrift/internal/engine"
	"github.com/lazypower/focusdrift/internal/server"
	"github.com/lazypower/focusdrift/internal/store"
	"github.com/lazypower/focusdrift/internal/topic"
)

func testClient(t *testing.T) *Client {
	t.Helper()
	db, err := store.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	eng := engine.New(db, nil, engine.Options{})
	t.Cleanup(eng.Stop)

	ts := httptest.NewServer(server.New(db, eng, "test", nil))
	t.Cleanup(ts.Close)
	return New(ts.URL + "/")
}

func rustSession() topic.FocusSession {
	return topic.FocusSession{
		Topic: topic.Topic{
			Title: "Learning Rust Ownership",
			Keywords: []topic.Keyword{
				{Term: "rust", Weight: 0.6},
				{Term: "ownership", Weight: 0.4},
			},
			Phrases: []string{"borrow checker"},
		},
	}
}

func TestHealthy(t *testing.T) {
	c := testClient(t)
	if !c.Healthy() {
		t.Error("Healthy = false, want true")
	}

	if New("http://127.0.0.1:1").Healthy() {
		t.Error("Healthy = true for unreachable server")
	}
}

func TestSessionRoundTrip(t *testing.T) {
	c := testClient(t)

	created, err := c.StartSession("s-1", rustSession())
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	if created.SessionID != "s-1" {
		t.Errorf("SessionID = %q, want s-1", created.SessionID)
	}
	if created.MatchingRules.TitleBoost != 1.3 {
		t.Errorf("TitleBoost = %v, want default 1.3", created.MatchingRules.TitleBoost)
	}

	for i := 0; i < 3; i++ {
		ev, err := c.Snapshot("s-1", "Cooking recipes for pasta dinner.")
		if err != nil {
			t.Fatalf("Snapshot: %v", err)
		}
		if i == 2 {
			if !ev.IsDrifting || ev.State != drift.Drifting {
				t.Errorf("evaluation = %+v, want drifting", ev)
			}
			if len(ev.Missing) != 3 {
				t.Errorf("Missing = %v, want 3 terms", ev.Missing)
			}
		}
	}

	st, err := c.Status("s-1")
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !st.IsDrifting || st.WindowSize != 3 {
		t.Errorf("status = %+v, want drifting with 3 samples", st)
	}

	until, err := c.Snooze("s-1", 0)
	if err != nil {
		t.Fatalf("Snooze: %v", err)
	}
	if until.IsZero() {
		t.Error("snoozed_until should be set")
	}

	if err := c.Reset("s-1"); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if err := c.End("s-1"); err != nil {
		t.Fatalf("End: %v", err)
	}
}

func TestAPIError(t *testing.T) {
	c := testClient(t)

	_, err := c.Snapshot("missing", "text")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *APIError", err)
	}
	if apiErr.Status != http.StatusNotFound {
		t.Errorf("Status = %d, want 404", apiErr.Status)
	}
	if !strings.Contains(apiErr.Message, "session not found") {
		t.Errorf("Message = %q, want session not found", apiErr.Message)
	}
}

func TestAPIErrorPlainBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer ts.Close()

	_, err := New(ts.URL).Get("/api/health")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *APIError", err)
	}
	if apiErr.Message != "upstream down" {
		t.Errorf("Message = %q, want upstream down", apiErr.Message)
	}
}

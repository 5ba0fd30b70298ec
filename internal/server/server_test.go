package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lazypower/focusdrift/internal/engine"
	"github.com/lazypower/focusdrift/internal/llm"
	"github.com/lazypower/focusdrift/internal/store"
)

func testServerWithLLM(t *testing.T, client llm.Client) *Server {
	t.Helper()
	db, err := store.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	eng := engine.New(db, client, engine.Options{})
	t.Cleanup(eng.Stop)
	return New(db, eng, "test-version", nil)
}

func testServer(t *testing.T) *Server {
	return testServerWithLLM(t, nil)
}

func TestHealthEndpoint(t *testing.T) {
	srv := testServer(t)

	req := httptest.NewRequest("GET", "/api/health", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}

	if body["status"] != "ok" {
		t.Errorf("status = %v, want ok", body["status"])
	}
	if body["version"] != "test-version" {
		t.Errorf("version = %v, want test-version", body["version"])
	}
	if body["db"] != true {
		t.Errorf("db = %v, want true", body["db"])
	}
	if body["llm"] != false {
		t.Errorf("llm = %v, want false", body["llm"])
	}
	if body["sessions"] != float64(0) {
		t.Errorf("sessions = %v, want 0", body["sessions"])
	}
}

func TestUnknownRoute(t *testing.T) {
	srv := testServer(t)

	req := httptest.NewRequest("GET", "/api/nope", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

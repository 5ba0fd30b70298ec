package store

import (
	"testing"
	"time"
)

func TestAddEvaluation(t *testing.T) {
	db, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer db.Close()

	db.CreateFocusSession(newFocus("sess-001", 1000))

	evals := []Evaluation{
		{SessionID: "sess-001", Score: 1, CreatedAt: 1000},
		{SessionID: "sess-001", Score: 0, IsLow: true, LowCount: 1, Missing: []string{"rust", "ownership"}, CreatedAt: 2000},
		{SessionID: "sess-001", Score: 0, IsLow: true, IsDrifting: true, LowCount: 3, Missing: []string{"rust"}, CreatedAt: 3000},
	}
	for i := range evals {
		if err := db.AddEvaluation(&evals[i]); err != nil {
			t.Fatalf("AddEvaluation %d: %v", i, err)
		}
		if evals[i].ID == 0 {
			t.Errorf("evaluation %d: ID should be set", i)
		}
	}

	s, _ := db.GetFocusSession("sess-001")
	if s.EvalCount != 3 {
		t.Errorf("EvalCount = %d, want 3", s.EvalCount)
	}
	if s.DriftCount != 1 {
		t.Errorf("DriftCount = %d, want 1", s.DriftCount)
	}

	got, err := db.GetEvaluations("sess-001", 10)
	if err != nil {
		t.Fatalf("GetEvaluations: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d evaluations, want 3", len(got))
	}
	if got[0].CreatedAt != 1000 || got[2].CreatedAt != 3000 {
		t.Errorf("evaluations not oldest-first: %d..%d", got[0].CreatedAt, got[2].CreatedAt)
	}
	if len(got[0].Missing) != 0 {
		t.Errorf("Missing = %v, want empty", got[0].Missing)
	}
	if len(got[1].Missing) != 2 || got[1].Missing[0] != "rust" {
		t.Errorf("Missing = %v, want [rust ownership]", got[1].Missing)
	}
	if !got[2].IsDrifting || !got[2].IsLow || got[2].LowCount != 3 {
		t.Errorf("last evaluation = %+v, want drifting low with count 3", got[2])
	}
}

func TestGetEvaluationsLimitKeepsNewest(t *testing.T) {
	db, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer db.Close()

	db.CreateFocusSession(newFocus("sess-001", 1000))
	for i := int64(1); i <= 5; i++ {
		db.AddEvaluation(&Evaluation{SessionID: "sess-001", Score: 0.5, CreatedAt: i * 1000})
	}

	got, err := db.GetEvaluations("sess-001", 2)
	if err != nil {
		t.Fatalf("GetEvaluations: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d evaluations, want 2", len(got))
	}
	if got[0].CreatedAt != 4000 || got[1].CreatedAt != 5000 {
		t.Errorf("got %d,%d, want 4000,5000", got[0].CreatedAt, got[1].CreatedAt)
	}
}

func TestPruneEvaluations(t *testing.T) {
	db, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer db.Close()

	db.CreateFocusSession(newFocus("sess-001", 1000))
	old := time.Now().Add(-48 * time.Hour).UnixMilli()
	db.AddEvaluation(&Evaluation{SessionID: "sess-001", Score: 0.2, CreatedAt: old})
	db.AddEvaluation(&Evaluation{SessionID: "sess-001", Score: 0.9})

	n, err := db.PruneEvaluations(time.Now().Add(-24 * time.Hour))
	if err != nil {
		t.Fatalf("PruneEvaluations: %v", err)
	}
	if n != 1 {
		t.Errorf("pruned = %d, want 1", n)
	}

	got, _ := db.GetEvaluations("sess-001", 10)
	if len(got) != 1 || got[0].Score != 0.9 {
		t.Errorf("remaining = %+v, want the recent evaluation", got)
	}
}

func TestRecordEvent(t *testing.T) {
	db, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer db.Close()

	db.CreateFocusSession(newFocus("sess-001", 1000))
	for i := 0; i < 2; i++ {
		if err := db.RecordEvent("sess-001", "reset"); err != nil {
			t.Fatalf("RecordEvent: %v", err)
		}
	}
	if err := db.RecordEvent("sess-001", "snooze"); err != nil {
		t.Fatalf("RecordEvent: %v", err)
	}
	if err := db.RecordEvent("sess-001", "nap"); err == nil {
		t.Error("expected error for unknown event kind")
	}

	n, err := db.CountEvents("sess-001", "reset")
	if err != nil {
		t.Fatalf("CountEvents: %v", err)
	}
	if n != 2 {
		t.Errorf("resets = %d, want 2", n)
	}
}

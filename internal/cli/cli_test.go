package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"

	"github.com/lazypower/focusdrift/internal/client"
	"github.com/lazypower/focusdrift/internal/engine"
	"github.com/lazypower/focusdrift/internal/scoring"
	"github.com/lazypower/focusdrift/internal/server"
	"github.com/lazypower/focusdrift/internal/store"
	"github.com/lazypower/focusdrift/internal/topic"
)

const rustTopic = `
topic:
  title: Learning Rust Ownership
  keywords:
    - term: rust
      weight: 0.6
    - term: ownership
      weight: 0.4
  phrases:
    - borrow checker
matchingRules:
  minWeightedScore: 0.6
`

const (
	onTopic  = "This page discusses Rust ownership and the borrow checker rules."
	offTopic = "Cooking recipes for pasta dinner."
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

// run executes the root command with args and returns its stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	scoreTopic, scoreJSON = "", false
	replayTopic, replayWindow, replayLows = "", 0, 0

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func TestScoreCommand(t *testing.T) {
	topicPath := writeFile(t, "topic.yaml", rustTopic)
	page := writeFile(t, "page.txt", onTopic)

	out, err := run(t, "score", "--topic", topicPath, page)
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if !strings.Contains(out, "score:   1.000") {
		t.Errorf("output missing score line:\n%s", out)
	}
	if !strings.Contains(out, "missing: -") {
		t.Errorf("output missing empty missing list:\n%s", out)
	}
	if strings.Contains(out, "below threshold") {
		t.Errorf("on-topic page reported below threshold:\n%s", out)
	}
}

func TestScoreCommandJSON(t *testing.T) {
	topicPath := writeFile(t, "topic.yaml", rustTopic)
	page := writeFile(t, "page.txt", offTopic)

	out, err := run(t, "score", "--topic", topicPath, "--json", page)
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	var res scoring.Result
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if res.Score != 0 {
		t.Errorf("Score = %v, want 0", res.Score)
	}
	want := []string{"rust", "ownership", "borrow checker"}
	if strings.Join(res.Missing, "|") != strings.Join(want, "|") {
		t.Errorf("Missing = %v, want %v", res.Missing, want)
	}
	if !res.ShortContent {
		t.Error("ShortContent = false, want true")
	}
}

func TestScoreCommandRequiresTopic(t *testing.T) {
	page := writeFile(t, "page.txt", onTopic)
	if _, err := run(t, "score", page); err == nil {
		t.Fatal("expected error without --topic")
	}
}

func TestReplayCommand(t *testing.T) {
	topicPath := writeFile(t, "topic.yaml", rustTopic)
	pasta := writeFile(t, "pasta.txt", offTopic)
	script := writeFile(t, "script.yaml", `
steps:
  - at: 0s
    text: "`+onTopic+`"
  - at: 3s
    file: `+pasta+`
  - at: 6s
    file: `+pasta+`
  - at: 9s
    file: `+pasta+`
  - at: 10s
    action: reset
  - at: 12s
    file: `+pasta+`
`)

	out, err := run(t, "replay", "--topic", topicPath, script)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out), "\n")
	if !strings.Contains(lines[0], "1.00  lows=0  idle") {
		t.Errorf("first line = %q, want on-topic idle", lines[0])
	}
	if n := strings.Count(out, "You seem to have drifted off-topic."); n != 1 {
		t.Errorf("nudges = %d, want 1\n%s", n, out)
	}
	if !strings.Contains(out, "lows=3  drifting") {
		t.Errorf("no drifting evaluation:\n%s", out)
	}
	if !strings.Contains(out, "reset") {
		t.Errorf("reset step not printed:\n%s", out)
	}
	last := lines[len(lines)-1]
	if !strings.Contains(last, "lows=1  idle") {
		t.Errorf("last line = %q, want a fresh window after reset", last)
	}
}

func TestReplayCommandWindowFlag(t *testing.T) {
	topicPath := writeFile(t, "topic.yaml", rustTopic)
	script := writeFile(t, "script.yaml", `
steps:
  - at: 0s
    text: pasta
  - at: 1s
    text: pasta
`)

	out, err := run(t, "replay", "--topic", topicPath, "--lows", "2", script)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if !strings.Contains(out, "lows=2  drifting") {
		t.Errorf("--lows 2 did not drift on the second low:\n%s", out)
	}
}

func TestLoadReplayScriptErrors(t *testing.T) {
	tests := []struct {
		name   string
		script string
	}{
		{"backwards", "steps:\n  - at: 5s\n    text: a\n  - at: 1s\n    text: b\n"},
		{"unknown action", "steps:\n  - at: 0s\n    action: dismiss\n"},
		{"bad duration", "steps:\n  - at: soon\n    text: a\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, "script.yaml", tt.script)
			if _, err := loadReplayScript(path); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestFormatSessionLine(t *testing.T) {
	line := formatSessionLine(store.FocusSession{
		SessionID:  "s-1",
		Title:      "Learning Rust Ownership",
		Source:     "manual",
		Status:     store.StatusEnded,
		StartedAt:  time.Now().Add(-2 * time.Hour).UnixMilli(),
		EvalCount:  1200,
		DriftCount: 2,
	})
	for _, want := range []string{"s-1", "ended", "1,200 evals", "2 drifts", "2 hours ago", "Learning Rust Ownership"} {
		if !strings.Contains(line, want) {
			t.Errorf("line %q missing %q", line, want)
		}
	}
}

func testAPI(t *testing.T) *client.Client {
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
	return client.New(ts.URL)
}

func TestCheckUsesSessionThreshold(t *testing.T) {
	c := testAPI(t)
	fs := topic.FocusSession{
		Topic: topic.Topic{
			Keywords: []topic.Keyword{
				{Term: "rust", Weight: 0.6},
				{Term: "ownership", Weight: 0.4},
			},
		},
		MatchingRules: topic.MatchingRules{MinWeightedScore: 0.4},
	}
	if _, err := c.StartSession("lenient", fs); err != nil {
		t.Fatalf("StartSession: %v", err)
	}

	color.NoColor = false
	t.Cleanup(func() { color.NoColor = true })

	var out bytes.Buffer
	if err := checkSnapshot(&out, c, "lenient", "ownership"); err != nil {
		t.Fatalf("checkSnapshot: %v", err)
	}

	// 0.50 clears the session's 0.4 threshold, so it prints green rather
	// than the yellow a 0.6 threshold would give.
	if !strings.Contains(out.String(), "\x1b[32m0.50") {
		t.Errorf("score not coloured as passing: %q", out.String())
	}
	if strings.Contains(out.String(), "\x1b[33m0.50") {
		t.Errorf("score coloured as low: %q", out.String())
	}
}

func TestCheckUnknownSession(t *testing.T) {
	c := testAPI(t)
	var out bytes.Buffer
	err := checkSnapshot(&out, c, "missing", "text")
	if err == nil {
		t.Fatal("expected error for unknown session")
	}
	var apiErr *client.APIError
	if !errors.As(err, &apiErr) || apiErr.Status != 404 {
		t.Errorf("err = %v, want 404 APIError", err)
	}
}

func TestVersionCommand(t *testing.T) {
	oldVersion, oldCommit := Version, Commit
	Version, Commit = "v1.2.3", "abc123"
	t.Cleanup(func() { Version, Commit = oldVersion, oldCommit })

	out, err := run(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.HasPrefix(out, "focusdrift v1.2.3\n") {
		t.Errorf("output = %q", out)
	}
	if !strings.Contains(out, "commit: abc123") {
		t.Errorf("output missing commit: %q", out)
	}
	if got := VersionString(); got != "v1.2.3+abc123" {
		t.Errorf("VersionString = %q, want v1.2.3+abc123", got)
	}
}

package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/lazypower/focusdrift/internal/llm"
	"github.com/lazypower/focusdrift/internal/session"
	"github.com/lazypower/focusdrift/internal/topic"
)

var (
	// ErrNoLLM is returned by topic generation when no client is configured.
	ErrNoLLM = errors.New("LLM not configured")
	// ErrBadLLMOutput is returned when the model's reply is not a usable
	// focus session.
	ErrBadLLMOutput = errors.New("unusable LLM output")
	// ErrEmptySource is returned for a blank topic description.
	ErrEmptySource = errors.New("topic source text required")
)

// GenerateTopic asks the LLM to turn a free-text description into a focus
// session. The description is capped at llm.MaxTopicSourceChars characters.
func (e *Engine) GenerateTopic(ctx context.Context, source string) (topic.FocusSession, error) {
	if e.LLM == nil {
		return topic.FocusSession{}, ErrNoLLM
	}
	source = strings.TrimSpace(truncateRunes(source, llm.MaxTopicSourceChars))
	if source == "" {
		return topic.FocusSession{}, ErrEmptySource
	}

	resp, err := e.LLM.Complete(ctx, llm.TopicPrompt(source))
	if err != nil {
		return topic.FocusSession{}, fmt.Errorf("topic generation LLM: %w", err)
	}

	fs, err := parseTopicResponse(resp.Content)
	if err != nil {
		e.log.Warn("unusable topic response",
			zap.String("provider", resp.Provider),
			zap.String("raw", truncateRunes(resp.Content, 500)),
			zap.Error(err),
		)
		return topic.FocusSession{}, fmt.Errorf("%w: %v", ErrBadLLMOutput, err)
	}

	e.log.Info("topic generated",
		zap.String("provider", resp.Provider),
		zap.String("title", fs.Topic.Title),
		zap.Int("tokens", resp.TokensUsed),
	)
	return fs, nil
}

// StartGenerated generates a topic from source and starts a session with it.
func (e *Engine) StartGenerated(ctx context.Context, id, source string) (*session.Session, error) {
	fs, err := e.GenerateTopic(ctx, source)
	if err != nil {
		return nil, err
	}
	return e.StartSession(id, fs, SourceGenerated)
}

// parseTopicResponse extracts a focus session from the LLM response.
// The response might contain markdown code fences or other wrapper text.
func parseTopicResponse(content string) (topic.FocusSession, error) {
	content = strings.TrimSpace(content)

	// Strip markdown code fences if present
	if strings.HasPrefix(content, "```") {
		lines := strings.Split(content, "\n")
		if len(lines) > 2 {
			content = strings.Join(lines[1:len(lines)-1], "\n")
		}
	}

	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end < 0 || end <= start {
		return topic.FocusSession{}, fmt.Errorf("no JSON object found in response")
	}

	var fs topic.FocusSession
	if err := json.Unmarshal([]byte(content[start:end+1]), &fs); err != nil {
		return topic.FocusSession{}, fmt.Errorf("unmarshal focus session: %w", err)
	}

	fs = sanitizeGenerated(fs)
	if len(fs.Topic.Keywords) == 0 && len(fs.Topic.Phrases) == 0 {
		return topic.FocusSession{}, fmt.Errorf("generated topic has no keywords or phrases")
	}
	if err := topic.Validate(fs); err != nil {
		return topic.FocusSession{}, err
	}
	return fs, nil
}

// sanitizeGenerated normalises model output before validation: terms are
// trimmed and lower-cased, blanks and duplicates dropped, weights clamped to
// [0,1], and out-of-range rules reset to their defaults.
func sanitizeGenerated(fs topic.FocusSession) topic.FocusSession {
	fs.Topic.Title = strings.TrimSpace(fs.Topic.Title)

	seen := make(map[string]bool)
	keywords := make([]topic.Keyword, 0, len(fs.Topic.Keywords))
	for _, kw := range fs.Topic.Keywords {
		term := strings.ToLower(strings.TrimSpace(kw.Term))
		if term == "" || seen[term] {
			continue
		}
		seen[term] = true
		w := kw.Weight
		switch {
		case math.IsNaN(w):
			w = topic.DefaultKeywordWeight
		case w < 0:
			w = 0
		case w > 1:
			w = 1
		}
		keywords = append(keywords, topic.Keyword{Term: term, Weight: w})
	}
	fs.Topic.Keywords = keywords

	phrases := make([]string, 0, len(fs.Topic.Phrases))
	seenPhrase := make(map[string]bool)
	for _, p := range fs.Topic.Phrases {
		p = strings.TrimSpace(p)
		key := strings.ToLower(p)
		if p == "" || seenPhrase[key] {
			continue
		}
		seenPhrase[key] = true
		phrases = append(phrases, p)
	}
	fs.Topic.Phrases = phrases

	r := &fs.MatchingRules
	if r.TitleBoost < 0 || math.IsNaN(r.TitleBoost) || math.IsInf(r.TitleBoost, 0) {
		r.TitleBoost = 0
	}
	if r.MinWeightedScore < 0 || r.MinWeightedScore > 1 || math.IsNaN(r.MinWeightedScore) {
		r.MinWeightedScore = 0
	}
	if r.MaxPageTextCharsToEmbed < 0 {
		r.MaxPageTextCharsToEmbed = 0
	}
	return fs
}

func truncateRunes(s string, n int) string {
	if n <= 0 {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

// Package topic defines the focus-session contracts consumed by the scoring
// engine and drift monitor: the weighted topic model and its matching rules.
package topic

import "strings"

// PhraseWeight is the fixed weight a phrase contributes to both sides of the
// relevance ratio, independent of keyword weights.
const PhraseWeight = 0.3

// DefaultKeywordWeight applies when an external topic source omits a weight.
const DefaultKeywordWeight = 0.5

// Rule defaults.
const (
	DefaultTitleBoost              = 1.3
	DefaultMinWeightedScore        = 0.6
	DefaultMaxPageTextCharsToEmbed = 2000
)

// Keyword is a weighted term. Terms may contain spaces and are compared
// case-insensitively.
type Keyword struct {
	Term   string  `json:"term" yaml:"term" validate:"notblank"`
	Weight float64 `json:"weight" yaml:"weight" validate:"gte=0,lte=1"`
}

// MatchingRules tunes scoring and drift thresholds for one session.
// A zero field means "use the default".
type MatchingRules struct {
	TitleBoost              float64 `json:"titleBoost" yaml:"titleBoost" validate:"gte=0"`
	MinWeightedScore        float64 `json:"minWeightedScore" yaml:"minWeightedScore" validate:"gte=0,lte=1"`
	MaxPageTextCharsToEmbed int     `json:"maxPageTextCharsToEmbed" yaml:"maxPageTextCharsToEmbed" validate:"gte=0"`
}

// DefaultRules returns the rules used when a topic source supplies none.
func DefaultRules() MatchingRules {
	return MatchingRules{
		TitleBoost:              DefaultTitleBoost,
		MinWeightedScore:        DefaultMinWeightedScore,
		MaxPageTextCharsToEmbed: DefaultMaxPageTextCharsToEmbed,
	}
}

// WithDefaults fills zero fields with their defaults.
func (r MatchingRules) WithDefaults() MatchingRules {
	if r.TitleBoost == 0 {
		r.TitleBoost = DefaultTitleBoost
	}
	if r.MinWeightedScore == 0 {
		r.MinWeightedScore = DefaultMinWeightedScore
	}
	if r.MaxPageTextCharsToEmbed == 0 {
		r.MaxPageTextCharsToEmbed = DefaultMaxPageTextCharsToEmbed
	}
	return r
}

// Topic is the immutable description of what counts as on-topic.
type Topic struct {
	Title    string    `json:"title" yaml:"title"`
	Keywords []Keyword `json:"keywords" yaml:"keywords" validate:"dive"`
	Phrases  []string  `json:"phrases" yaml:"phrases" validate:"dive,notblank"`
}

// IsDegenerate reports whether the topic has nothing to match against.
// Degenerate topics always score 0.
func (t Topic) IsDegenerate() bool {
	return len(t.Keywords) == 0 && len(t.Phrases) == 0
}

// Terms returns the lower-cased keyword terms in declaration order.
func (t Topic) Terms() []string {
	terms := make([]string, len(t.Keywords))
	for i, kw := range t.Keywords {
		terms[i] = strings.ToLower(kw.Term)
	}
	return terms
}

// FocusSession binds a topic to its matching rules for one focus session.
type FocusSession struct {
	Topic         Topic         `json:"topic" yaml:"topic"`
	MatchingRules MatchingRules `json:"matchingRules" yaml:"matchingRules"`
}

// Rules returns the session's matching rules with defaults applied.
func (fs FocusSession) Rules() MatchingRules {
	return fs.MatchingRules.WithDefaults()
}

package topic

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseGeneratorShape(t *testing.T) {
	data := []byte(`{
		"topic": {
			"title": "Learning Rust Ownership",
			"keywords": [{"kw": "Rust", "weight": 0.6}, {"term": "ownership"}],
			"phrases": ["borrow checker"]
		},
		"localMatchingRules": {"minWeightedScore": 0.5, "titleBoost": 1.2},
		"recommendations": {"maxPageTextCharsToEmbed": 1500}
	}`)

	fs, err := Parse(data)
	require.NoError(t, err)

	assert.Equal(t, "Learning Rust Ownership", fs.Topic.Title)
	require.Len(t, fs.Topic.Keywords, 2)
	assert.Equal(t, Keyword{Term: "Rust", Weight: 0.6}, fs.Topic.Keywords[0])
	assert.Equal(t, Keyword{Term: "ownership", Weight: DefaultKeywordWeight}, fs.Topic.Keywords[1])
	assert.Equal(t, []string{"borrow checker"}, fs.Topic.Phrases)
	assert.Equal(t, MatchingRules{TitleBoost: 1.2, MinWeightedScore: 0.5, MaxPageTextCharsToEmbed: 1500}, fs.MatchingRules)
	assert.Equal(t, []string{"rust", "ownership"}, fs.Topic.Terms())
}

func TestParseAbsentFieldsDefault(t *testing.T) {
	fs, err := Parse([]byte(`{"topic": {"title": "Empty"}}`))
	require.NoError(t, err)

	assert.Empty(t, fs.Topic.Keywords)
	assert.Empty(t, fs.Topic.Phrases)
	assert.True(t, fs.Topic.IsDegenerate())
	assert.Equal(t, DefaultRules(), fs.Rules())
}

func TestMatchingRulesPreferCamelCase(t *testing.T) {
	fs, err := Parse([]byte(`{
		"topic": {"title": "x"},
		"matchingRules": {"minWeightedScore": 0.7},
		"localMatchingRules": {"minWeightedScore": 0.2}
	}`))
	require.NoError(t, err)
	assert.Equal(t, 0.7, fs.MatchingRules.MinWeightedScore)
}

func TestWithDefaultsKeepsExplicitValues(t *testing.T) {
	r := MatchingRules{TitleBoost: 2, MaxPageTextCharsToEmbed: 100}.WithDefaults()
	assert.Equal(t, 2.0, r.TitleBoost)
	assert.Equal(t, DefaultMinWeightedScore, r.MinWeightedScore)
	assert.Equal(t, 100, r.MaxPageTextCharsToEmbed)
}

func TestValidateRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		fs   FocusSession
		want string
	}{
		{
			name: "weight above one",
			fs:   FocusSession{Topic: Topic{Keywords: []Keyword{{Term: "go", Weight: 1.5}}}},
			want: "topic.keywords[0].weight: must be <= 1",
		},
		{
			name: "negative weight",
			fs:   FocusSession{Topic: Topic{Keywords: []Keyword{{Term: "go", Weight: -0.1}}}},
			want: "topic.keywords[0].weight: must be >= 0",
		},
		{
			name: "blank term",
			fs:   FocusSession{Topic: Topic{Keywords: []Keyword{{Term: "  ", Weight: 0.5}}}},
			want: "topic.keywords[0].term: must not be blank",
		},
		{
			name: "blank phrase",
			fs:   FocusSession{Topic: Topic{Phrases: []string{""}}},
			want: "topic.phrases[0]: must not be blank",
		},
		{
			name: "negative char cap",
			fs:   FocusSession{MatchingRules: MatchingRules{MaxPageTextCharsToEmbed: -1}},
			want: "matchingRules.maxPageTextCharsToEmbed: must be >= 0",
		},
		{
			name: "infinite title boost",
			fs:   FocusSession{MatchingRules: MatchingRules{TitleBoost: math.Inf(1)}},
			want: "matchingRules.titleBoost: must be a finite number",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.fs)
			require.Error(t, err)
			assert.True(t, IsValidationError(err))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidateAcceptsWellFormedTopic(t *testing.T) {
	fs := FocusSession{
		Topic: Topic{
			Title:    "Learning Rust Ownership",
			Keywords: []Keyword{{Term: "rust", Weight: 0.6}},
			Phrases:  []string{"borrow checker"},
		},
	}
	require.NotPanics(t, func() {
		assert.NoError(t, Validate(fs))
	})

	parsed, err := Parse([]byte(`{"topic": {"keywords": [{"term": "rust"}], "phrases": ["borrow checker"]}}`))
	require.NoError(t, err)
	assert.Equal(t, 0.5, parsed.Topic.Keywords[0].Weight)
}

func TestParseRejectsNonNumericWeight(t *testing.T) {
	_, err := Parse([]byte(`{"topic": {"keywords": [{"term": "go", "weight": "heavy"}]}}`))
	require.Error(t, err)
	assert.True(t, IsValidationError(err))
}

func TestLoadFileYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "topic.yaml")
	doc := `
topic:
  title: Learning Rust Ownership
  keywords:
    - term: rust
      weight: 0.6
    - kw: ownership
      weight: 0.4
  phrases:
    - borrow checker
matchingRules:
  minWeightedScore: 0.6
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	fs, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []Keyword{{Term: "rust", Weight: 0.6}, {Term: "ownership", Weight: 0.4}}, fs.Topic.Keywords)
	assert.Equal(t, 0.6, fs.Rules().MinWeightedScore)
	assert.Equal(t, DefaultTitleBoost, fs.Rules().TitleBoost)
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.False(t, IsValidationError(err))
}

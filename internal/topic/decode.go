package topic

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// UnmarshalJSON accepts both "term" and the generator's "kw" field, and
// defaults an absent weight to DefaultKeywordWeight.
func (k *Keyword) UnmarshalJSON(data []byte) error {
	var raw struct {
		Term   string   `json:"term"`
		KW     string   `json:"kw"`
		Weight *float64 `json:"weight"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	k.Term = raw.Term
	if k.Term == "" {
		k.Term = raw.KW
	}
	k.Weight = DefaultKeywordWeight
	if raw.Weight != nil {
		k.Weight = *raw.Weight
	}
	return nil
}

// UnmarshalJSON decodes a focus session as produced by any topic source.
// Rules may arrive as "matchingRules", "localMatchingRules" or
// "local_matching_rules"; the character cap may also arrive under
// "recommendations". Absent keywords, phrases and rules decode as empty or
// default.
func (fs *FocusSession) UnmarshalJSON(data []byte) error {
	var raw struct {
		Topic                   Topic          `json:"topic"`
		MatchingRules           *MatchingRules `json:"matchingRules"`
		LocalMatchingRules      *MatchingRules `json:"localMatchingRules"`
		LocalMatchingRulesSnake *MatchingRules `json:"local_matching_rules"`
		Recommendations         struct {
			MaxPageTextCharsToEmbed int `json:"maxPageTextCharsToEmbed"`
		} `json:"recommendations"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var rules MatchingRules
	switch {
	case raw.MatchingRules != nil:
		rules = *raw.MatchingRules
	case raw.LocalMatchingRules != nil:
		rules = *raw.LocalMatchingRules
	case raw.LocalMatchingRulesSnake != nil:
		rules = *raw.LocalMatchingRulesSnake
	}
	if rules.MaxPageTextCharsToEmbed == 0 {
		rules.MaxPageTextCharsToEmbed = raw.Recommendations.MaxPageTextCharsToEmbed
	}

	fs.Topic = raw.Topic
	fs.MatchingRules = rules
	return nil
}

// Parse decodes and validates a JSON focus session.
func Parse(data []byte) (FocusSession, error) {
	var fs FocusSession
	if err := json.Unmarshal(data, &fs); err != nil {
		return FocusSession{}, &ValidationError{Problems: []string{fmt.Sprintf("decode: %v", err)}}
	}
	if err := Validate(fs); err != nil {
		return FocusSession{}, err
	}
	return fs, nil
}

// ParseYAML decodes and validates a YAML (or JSON) focus session. The
// document is normalised through JSON so both formats share one decoder.
func ParseYAML(data []byte) (FocusSession, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return FocusSession{}, &ValidationError{Problems: []string{fmt.Sprintf("decode yaml: %v", err)}}
	}
	if doc == nil {
		doc = map[string]any{}
	}
	js, err := json.Marshal(doc)
	if err != nil {
		return FocusSession{}, &ValidationError{Problems: []string{fmt.Sprintf("normalise yaml: %v", err)}}
	}
	return Parse(js)
}

// LoadFile reads a focus session from a .json, .yaml or .yml file.
func LoadFile(path string) (FocusSession, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return FocusSession{}, fmt.Errorf("read topic file: %w", err)
	}
	if strings.HasSuffix(strings.ToLower(path), ".json") {
		return Parse(data)
	}
	return ParseYAML(data)
}

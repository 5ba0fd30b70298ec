// Package scoring maps a topic and a page-content snapshot to a relevance
// score in [0,1] plus the topic terms the content is missing.
//
// Score is pure: identical inputs always produce identical results.
package scoring

import (
	"strings"
	"unicode"

	"github.com/lazypower/focusdrift/internal/topic"
)

// shortContentChars is the length below which the keyword-overlap fallback
// may lift the score.
const shortContentChars = 500

// maxMissing caps the explanatory terms returned with a score.
const maxMissing = 3

// Result is the outcome of scoring one snapshot.
type Result struct {
	Score   float64  `json:"score"`
	Missing []string `json:"missing"`

	MatchedWeight float64 `json:"matched_weight"`
	TotalWeight   float64 `json:"total_weight"`
	TitleBoosted  bool    `json:"title_boosted"`
	ShortContent  bool    `json:"short_content"`
}

// Score computes the relevance of text to t under rules. Zero rule fields
// take their defaults. A topic with no keywords and no phrases scores 0.
func Score(t topic.Topic, rules topic.MatchingRules, text string) Result {
	rules = rules.WithDefaults()

	content := strings.ToLower(truncateRunes(text, rules.MaxPageTextCharsToEmbed))
	tokens := tokenSet(content)

	var res Result
	missing := make([]string, 0, len(t.Keywords)+len(t.Phrases))

	for _, kw := range t.Keywords {
		term := strings.ToLower(kw.Term)
		res.TotalWeight += kw.Weight
		if _, ok := tokens[term]; ok || strings.Contains(content, term) {
			res.MatchedWeight += kw.Weight
		} else {
			missing = append(missing, term)
		}
	}

	for _, phrase := range t.Phrases {
		res.TotalWeight += topic.PhraseWeight
		if strings.Contains(content, strings.ToLower(phrase)) {
			res.MatchedWeight += topic.PhraseWeight
		} else {
			missing = append(missing, phrase)
		}
	}

	var score float64
	if res.TotalWeight > 0 {
		score = res.MatchedWeight / res.TotalWeight
	}

	// The boost looks at the topic's own title, not the page being viewed.
	title := strings.ToLower(t.Title)
	for _, kw := range t.Keywords {
		if strings.Contains(title, strings.ToLower(kw.Term)) {
			score *= rules.TitleBoost
			res.TitleBoosted = true
			break
		}
	}

	if len([]rune(content)) < shortContentChars && len(t.Keywords) > 0 {
		res.ShortContent = true
		if overlap := keywordOverlap(t.Terms(), tokens); overlap > score {
			score = overlap
		}
	}

	if score > 1 {
		score = 1
	}
	res.Score = score

	if len(missing) > maxMissing {
		missing = missing[:maxMissing]
	}
	res.Missing = missing
	return res
}

// keywordOverlap is the Jaccard-style overlap between the keyword set and the
// token set, normalised by the size of the keyword set.
func keywordOverlap(terms []string, tokens map[string]struct{}) float64 {
	set := make(map[string]struct{}, len(terms))
	for _, term := range terms {
		set[term] = struct{}{}
	}
	if len(set) == 0 {
		return 0
	}
	var hits int
	for term := range set {
		if _, ok := tokens[term]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(set))
}

// tokenSet replaces non-word characters with spaces and returns the unique
// whitespace-separated tokens.
func tokenSet(content string) map[string]struct{} {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || unicode.IsSpace(r) {
			return r
		}
		return ' '
	}, content)

	fields := strings.Fields(cleaned)
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

// truncateRunes returns the first n characters of s.
func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

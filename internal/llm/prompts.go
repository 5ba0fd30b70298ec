package llm

import "fmt"

// MaxTopicSourceChars caps the description sent to the model.
const MaxTopicSourceChars = 2000

// TopicPrompt builds the prompt that turns a free-text description of what
// the user wants to focus on into a focus session document. source should
// already be truncated to MaxTopicSourceChars.
func TopicPrompt(source string) string {
	return fmt.Sprintf(`You are the topic generator for a focus assistant. Read the description of what the user wants to work on and return ONLY valid JSON (no markdown, no backticks) with this exact structure:

{
  "topic": {
    "title": "concise title",
    "keywords": [{"kw": "keyword1", "weight": 0.8}, {"kw": "keyword2", "weight": 0.6}],
    "phrases": ["important phrase 1", "important phrase 2"]
  },
  "localMatchingRules": {
    "minWeightedScore": 0.60,
    "titleBoost": 1.3
  },
  "recommendations": {
    "maxPageTextCharsToEmbed": 2000
  }
}

Rules:
- 3 to 8 keywords, single words or short terms, lowercase
- weights between 0 and 1; the most central terms weigh the most
- 0 to 4 phrases that would appear verbatim on a relevant page
- the title should contain at least one of the keywords

Description: %s

Remember: Return ONLY the JSON object, no other text.`, source)
}

// Package intent classifies user messages with a fixed priority cascade of
// lexical rules. The first rule that matches decides the label.
package intent

import (
	"strings"

	"github.com/couchcryptid/weather-chat-service/internal/domain"
	"github.com/couchcryptid/weather-chat-service/internal/nlp"
)

// CityFinder finds a known place name in text.
type CityFinder interface {
	ExtractCity(text string) (string, bool)
}

// DayFinder resolves a day-offset from text (0 when absent).
type DayFinder interface {
	ExtractDays(text string) int
}

// Input is a message prepared once for all rules.
type Input struct {
	Canonical string
	Tokens    []string
	words     map[string]bool
}

// NewInput tokenizes text.
func NewInput(text string) *Input {
	tokens := nlp.Tokenize(text)
	words := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		words[t] = true
	}
	return &Input{Canonical: strings.Join(tokens, " "), Tokens: tokens, words: words}
}

// Has reports whether word appears as a token.
func (in *Input) Has(word string) bool { return in.words[word] }

// HasAny reports whether any of words appears as a token.
func (in *Input) HasAny(words []string) bool {
	for _, w := range words {
		if in.words[w] {
			return true
		}
	}
	return false
}

// HasPhrase reports whether a canonical phrase appears on word boundaries.
func (in *Input) HasPhrase(phrase string) bool {
	return strings.Contains(" "+in.Canonical+" ", " "+phrase+" ")
}

// index returns the position of the first token equal to word, or -1.
func (in *Input) index(word string, from int) int {
	for i := from; i < len(in.Tokens); i++ {
		if in.Tokens[i] == word {
			return i
		}
	}
	return -1
}

// Rule is one stage of the cascade.
type Rule struct {
	Name  string
	Match func(in *Input) (domain.Intent, bool)
}

// Classifier assigns one intent per message.
type Classifier struct {
	rules   []Rule
	weather func(*Input) (domain.Intent, bool)
}

// New builds the cascade: report, configured patterns, conversation question,
// short affirmative/negative, weather, unknown. A nil patterns slice uses
// DefaultPatterns.
func New(patterns []PatternSet, cities CityFinder, days DayFinder) *Classifier {
	if patterns == nil {
		patterns = DefaultPatterns()
	}
	table := compile(patterns)
	weather := weatherRule(cities, days)
	return &Classifier{
		weather: weather,
		rules: []Rule{
			{Name: "report", Match: matchReport},
			{Name: "patterns", Match: func(in *Input) (domain.Intent, bool) { return matchTable(table, in) }},
			{Name: "conversation_question", Match: matchConversationQuestion},
			{Name: "short_answer", Match: matchShortAnswer},
			{Name: "weather", Match: weather},
		},
	}
}

// Detect returns the intent of text. Text may be raw or normalized.
func (c *Classifier) Detect(text string) domain.Intent {
	label, _ := c.Explain(text)
	return label
}

// Explain returns the intent and the name of the rule that produced it
// ("fallback" when no rule matched).
func (c *Classifier) Explain(text string) (domain.Intent, string) {
	in := NewInput(text)
	for _, r := range c.rules {
		if label, ok := r.Match(in); ok {
			return label, r.Name
		}
	}
	return domain.IntentUnknown, "fallback"
}

// HasWeatherIntent evaluates only the weather rule, ignoring the stages that
// precede it in the cascade.
func (c *Classifier) HasWeatherIntent(text string) bool {
	_, ok := c.weather(NewInput(text))
	return ok
}

// RuleNames lists the cascade in evaluation order.
func (c *Classifier) RuleNames() []string {
	names := make([]string, len(c.rules))
	for i, r := range c.rules {
		names[i] = r.Name
	}
	return names
}

// TopicChanged reports whether the conversation moved to a new subject:
// there was a previous intent, it differs, and the current one carries a
// subject of its own (not a bare yes/no or an unknown message).
func TopicChanged(current, previous domain.Intent) bool {
	if previous == "" || previous == current {
		return false
	}
	switch current {
	case domain.IntentAffirmative, domain.IntentNegative, domain.IntentUnknown:
		return false
	}
	return true
}

func matchTable(table []compiled, in *Input) (domain.Intent, bool) {
	for _, set := range table {
		for _, p := range set.phrases {
			if in.HasPhrase(p) {
				return set.intent, true
			}
		}
	}
	return "", false
}

// Package query turns a raw user utterance into a structured ProcessedQuery:
// cleaned text, intent, extracted entities, ranked scenario candidates and
// follow-up anchoring.
package query

import (
	"regexp"
	"strings"
)

// Intent types
const (
	IntentQuestion      = "question"
	IntentGreeting      = "greeting"
	IntentProblem       = "problem"
	IntentFeedback      = "feedback"
	IntentClarification = "clarification"
	IntentFollowup      = "followup"
)

// Intent is a classified utterance category with a confidence in [0,1].
type Intent struct {
	Type       string
	Confidence float64
}

// History is the slice of conversation state the query pipeline reads.
// Implemented by convo.Context; kept as an interface so the pipeline is
// testable without a context store.
type History interface {
	// TurnCount returns the number of stored question/answer pairs.
	TurnCount() int
	// LastAnswer returns the most recent bot answer, ok=false when empty.
	LastAnswer() (string, bool)
}

// IntentStrategy classifies a single utterance. The rule-based classifier
// below is intentionally approximate; a learned classifier can be swapped in
// without touching the processor.
type IntentStrategy interface {
	Classify(query string, history History) Intent
}

// RuleIntentClassifier scores each intent category by counting compiled
// pattern matches.
type RuleIntentClassifier struct {
	patterns map[string][]*regexp.Regexp
}

var referentialPronouns = map[string]bool{
	"it": true, "they": true, "them": true, "that": true, "those": true, "these": true,
}

// Categories are scored in this fixed order; a tie goes to the earlier
// category, so classification is deterministic.
var intentOrder = []string{
	IntentFollowup,
	IntentGreeting,
	IntentProblem,
	IntentClarification,
	IntentFeedback,
	IntentQuestion,
}

// NewRuleIntentClassifier compiles the predefined pattern rules.
func NewRuleIntentClassifier() *RuleIntentClassifier {
	raw := map[string][]string{
		IntentGreeting: {
			`^hi\b`, `^hello\b`, `^hey\b`, `^greetings`, `^howdy\b`,
			`^good morning`, `^good afternoon`, `^good evening`,
		},
		IntentQuestion: {
			`^how do i`, `^how can i`, `^how to`, `^what is`, `^where is`,
			`^when`, `^why`, `^which`, `^who`, `^can i`, `^is there`,
			`^tell me about`, `\?$`,
		},
		IntentProblem: {
			`not working`, `issue`, `problem`, `error`, `can't`, `cannot`,
			`doesn't work`, `failed`, `stuck`, `not able to`, `trouble`,
			`having difficulty`, `not showing`, `bug`, `broken`,
		},
		IntentFeedback: {
			`feedback`, `suggest`, `opinion`, `review`, `thoughts`,
			`what do you think`, `rate`, `evaluate`,
		},
		IntentClarification: {
			`what do you mean`, `don't understand`, `unclear`, `confused`,
			`explain`, `clarify`, `elaborate`, `more detail`,
		},
		IntentFollowup: {
			`^but `, `^and `, `^so `, `^what about`, `^how about`,
			`^then `, `^also `, `^what if`, `^actually`, `^now `,
			`^ok(ay)? but`, `^no, i meant`,
		},
	}

	compiled := make(map[string][]*regexp.Regexp, len(raw))
	for intent, patterns := range raw {
		for _, p := range patterns {
			compiled[intent] = append(compiled[intent], regexp.MustCompile(`(?i)`+p))
		}
	}

	return &RuleIntentClassifier{patterns: compiled}
}

// Classify scores each category as min(1, matches/(rules*0.3)) and returns
// the best. With prior conversation turns, a short utterance or one carrying
// a referential pronoun boosts the followup score to at least 0.7. A best
// score below 0.2 defaults to question at confidence 0.5, so intent is never
// undefined.
func (c *RuleIntentClassifier) Classify(query string, history History) Intent {
	likelyFollowup := false
	if history != nil && history.TurnCount() > 0 {
		words := strings.Fields(strings.ToLower(query))
		if len(words) <= 5 {
			likelyFollowup = true
		} else {
			for _, w := range words {
				if referentialPronouns[strings.Trim(w, ".,!?")] {
					likelyFollowup = true
					break
				}
			}
		}
	}

	var best Intent
	for _, intent := range intentOrder {
		patterns := c.patterns[intent]
		matches := 0
		for _, re := range patterns {
			if re.MatchString(query) {
				matches++
			}
		}

		score := float64(matches) / (float64(len(patterns)) * 0.3)
		if score > 1.0 {
			score = 1.0
		}

		if intent == IntentFollowup && likelyFollowup && score < 0.7 {
			score = 0.7
		}

		if score > best.Confidence {
			best = Intent{Type: intent, Confidence: score}
		}
	}

	if best.Confidence < 0.2 {
		return Intent{Type: IntentQuestion, Confidence: 0.5}
	}

	return best
}

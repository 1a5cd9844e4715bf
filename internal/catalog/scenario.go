// Package catalog holds the scenario knowledge base: predefined support
// topics with example phrasings, regex patterns, keywords and answer
// templates. The catalog is loaded once at startup, read-only at request
// time, and owns every scenario record; cross-references between scenarios
// are plain id strings resolved through the catalog index.
package catalog

import (
	"encoding/json"
	"fmt"
	"regexp"
)

// AnswerComponents holds the structured pieces of a scenario answer.
type AnswerComponents struct {
	Steps        []string `json:"steps,omitempty"`
	Notes        string   `json:"notes,omitempty"`
	CommonIssues string   `json:"common_issues,omitempty"`
}

// Scenario is one predefined support topic. Immutable after load.
type Scenario struct {
	ScenarioID         string           `json:"scenario_id"`
	Title              string           `json:"title"`
	CanonicalQuestions []string         `json:"canonical_questions"`
	QuestionPatterns   []string         `json:"question_patterns,omitempty"`
	Keywords           []string         `json:"keywords,omitempty"`
	AnswerTemplate     string           `json:"answer_template,omitempty"`
	AnswerComponents   AnswerComponents `json:"answer_components,omitempty"`
	RelatedScenarios   []string         `json:"related_scenarios,omitempty"`
	Source             string           `json:"source,omitempty"`

	// compiled holds the compiled question patterns. Never serialized;
	// rebuilt on load.
	compiled []*regexp.Regexp
}

// Compile builds the regex cache for QuestionPatterns. Invalid patterns are
// rejected so a bad catalog fails at load, not at query time.
func (s *Scenario) Compile() error {
	s.compiled = s.compiled[:0]
	for _, p := range s.QuestionPatterns {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return fmt.Errorf("scenario %q: pattern %q: %w", s.ScenarioID, p, err)
		}
		s.compiled = append(s.compiled, re)
	}
	return nil
}

// MatchesPattern reports whether any compiled question pattern matches the
// query.
func (s *Scenario) MatchesPattern(query string) bool {
	for _, re := range s.compiled {
		if re.MatchString(query) {
			return true
		}
	}
	return false
}

// HasSteps reports whether the scenario carries procedural steps.
func (s *Scenario) HasSteps() bool {
	return len(s.AnswerComponents.Steps) > 0
}

// ParseScenarios decodes a JSON array of scenario records and compiles their
// patterns. Records missing required fields are rejected.
func ParseScenarios(data []byte) ([]Scenario, error) {
	var scenarios []Scenario
	if err := json.Unmarshal(data, &scenarios); err != nil {
		return nil, fmt.Errorf("failed to parse scenarios: %w", err)
	}

	seen := make(map[string]bool, len(scenarios))
	for i := range scenarios {
		s := &scenarios[i]
		if s.ScenarioID == "" {
			return nil, fmt.Errorf("scenario at index %d: missing scenario_id", i)
		}
		if s.Title == "" {
			return nil, fmt.Errorf("scenario %q: missing title", s.ScenarioID)
		}
		if len(s.CanonicalQuestions) == 0 {
			return nil, fmt.Errorf("scenario %q: missing canonical_questions", s.ScenarioID)
		}
		if seen[s.ScenarioID] {
			return nil, fmt.Errorf("duplicate scenario_id %q", s.ScenarioID)
		}
		seen[s.ScenarioID] = true

		if err := s.Compile(); err != nil {
			return nil, err
		}
	}

	return scenarios, nil
}

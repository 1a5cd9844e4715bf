// Package respond assembles and repairs the final reply text: template
// resolution and variable substitution, then a post-hoc validation/repair
// pass.
package respond

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"

	"askbot/internal/catalog"
	"askbot/internal/logging"
)

// =============================================================================
// TEMPLATE ENGINE
// =============================================================================

// Triple is one resolved response template: an opening line, the answer body
// and a closing line.
type Triple struct {
	Greeting   string `json:"greeting"`
	Body       string `json:"body"`
	Conclusion string `json:"conclusion"`
}

// Engine resolves a (scenario, intent) pair to a template triple through a
// fallback chain and performs literal {name} substitution. Read-only after
// construction.
type Engine struct {
	byScenario map[string]map[string]Triple // scenario id -> intent -> triple
	defaults   map[string]Triple            // intent -> triple
	minimal    Triple
}

// GenericIntent is the catch-all intent key in the template tables.
const GenericIntent = "generic"

// NewEngine builds an engine with the built-in default templates.
func NewEngine() *Engine {
	return &Engine{
		byScenario: make(map[string]map[string]Triple),
		defaults: map[string]Triple{
			"question": {
				Greeting:   "Great question!",
				Body:       "{answer}",
				Conclusion: "Let me know if you need anything else.",
			},
			"problem": {
				Greeting:   "I understand you're running into an issue. Let's sort it out.",
				Body:       "{answer}",
				Conclusion: "If this doesn't resolve it, please share more details and I'll dig deeper.",
			},
			"clarification": {
				Greeting:   "Happy to clarify!",
				Body:       "{answer}",
				Conclusion: "Does that make it clearer?",
			},
			"followup": {
				Greeting:   "Following up on that:",
				Body:       "{answer}",
				Conclusion: "Anything else about this topic?",
			},
			GenericIntent: {
				Greeting:   "Here's what I found:",
				Body:       "{answer}",
				Conclusion: "Hope that helps!",
			},
		},
		minimal: Triple{Body: "{answer}"},
	}
}

// templateFile is the on-disk override format: scenario id (or "default")
// mapping intent to triple.
type templateFile map[string]map[string]Triple

// LoadOverrides merges per-scenario template overrides from a JSON file.
// A missing file is not an error.
func (e *Engine) LoadOverrides(path string) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read templates file: %w", err)
	}

	var parsed templateFile
	if err := json.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("failed to parse templates file: %w", err)
	}

	for scenarioID, byIntent := range parsed {
		if scenarioID == "default" {
			for intent, t := range byIntent {
				e.defaults[intent] = t
			}
			continue
		}
		if e.byScenario[scenarioID] == nil {
			e.byScenario[scenarioID] = make(map[string]Triple)
		}
		for intent, t := range byIntent {
			e.byScenario[scenarioID][intent] = t
		}
	}

	logging.Template("loaded template overrides for %d scenarios from %s", len(parsed), path)
	return nil
}

// Resolve walks the fallback chain: scenario+intent, scenario+generic,
// default+intent, default+generic, then a hardcoded minimal triple. It never
// fails.
func (e *Engine) Resolve(scenarioID, intent string) Triple {
	if byIntent, ok := e.byScenario[scenarioID]; ok {
		if t, ok := byIntent[intent]; ok {
			return t
		}
		if t, ok := byIntent[GenericIntent]; ok {
			return t
		}
	}
	if t, ok := e.defaults[intent]; ok {
		return t
	}
	if t, ok := e.defaults[GenericIntent]; ok {
		return t
	}
	logging.Get(logging.CategoryTemplate).Warn("no template for scenario=%s intent=%s, using minimal", scenarioID, intent)
	return e.minimal
}

var placeholderRe = regexp.MustCompile(`\{([a-zA-Z_][a-zA-Z0-9_]*)\}`)

// Substitute replaces every {name} token with its value from vars. Unresolved
// tokens become empty strings and are logged, never errors.
func Substitute(template string, vars map[string]string) string {
	return placeholderRe.ReplaceAllStringFunc(template, func(tok string) string {
		name := tok[1 : len(tok)-1]
		if v, ok := vars[name]; ok {
			return v
		}
		logging.Get(logging.CategoryTemplate).Warn("unresolved template variable: %s", name)
		return ""
	})
}

// DefaultEventName substitutes for a missing named-event entity.
const DefaultEventName = "your hackathon"

// BuildVars assembles the substitution map for a scenario: extracted entities
// plus the scenario's answer components. The hackathon_name variable always
// resolves, falling back to a generic phrase.
func BuildVars(s catalog.Scenario, entities map[string]string) map[string]string {
	vars := make(map[string]string, len(entities)+4)
	for k, v := range entities {
		vars[k] = v
	}
	if vars["hackathon_name"] == "" {
		vars["hackathon_name"] = DefaultEventName
	}
	vars["steps"] = NumberSteps(s.AnswerComponents.Steps)
	vars["notes"] = s.AnswerComponents.Notes
	vars["common_issues"] = s.AnswerComponents.CommonIssues
	return vars
}

// NumberSteps formats an ordered step list as "1. ..." lines.
func NumberSteps(steps []string) string {
	if len(steps) == 0 {
		return ""
	}
	var b strings.Builder
	for i, step := range steps {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%d. %s", i+1, step)
	}
	return b.String()
}

// RenderScenario produces the full response text for a scenario: the resolved
// triple with the scenario's answer template substituted into the body slot.
// A non-empty greetingOverride replaces the triple's opening line, which is
// how follow-up answers swap in a continuation opener.
func (e *Engine) RenderScenario(s catalog.Scenario, intent string, entities map[string]string, greetingOverride string) string {
	vars := BuildVars(s, entities)

	answer := s.AnswerTemplate
	if answer == "" {
		// No template: compose from components directly.
		var parts []string
		if steps := NumberSteps(s.AnswerComponents.Steps); steps != "" {
			parts = append(parts, steps)
		}
		if s.AnswerComponents.Notes != "" {
			parts = append(parts, s.AnswerComponents.Notes)
		}
		answer = strings.Join(parts, "\n\n")
	}
	vars["answer"] = Substitute(answer, vars)

	triple := e.Resolve(s.ScenarioID, intent)
	greeting := triple.Greeting
	if greetingOverride != "" {
		greeting = greetingOverride
	}

	var sections []string
	for _, part := range []string{greeting, triple.Body, triple.Conclusion} {
		if rendered := strings.TrimSpace(Substitute(part, vars)); rendered != "" {
			sections = append(sections, rendered)
		}
	}

	return strings.Join(sections, "\n\n")
}

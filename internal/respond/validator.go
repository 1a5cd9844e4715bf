package respond

import (
	"fmt"
	"regexp"
	"strings"

	"askbot/internal/catalog"
	"askbot/internal/logging"
)

// =============================================================================
// RESPONSE VALIDATOR
// =============================================================================

// ValidationResult reports what the repair pass found. Acceptable means at
// most one minor issue remained after repair; it never blocks delivery.
type ValidationResult struct {
	Issues     []string
	Acceptable bool
}

// ValidatorConfig holds the structural thresholds and the per-scenario
// required disclaimer phrases.
type ValidatorConfig struct {
	MinLength   int
	MaxLength   int
	Disclaimers map[string][]string // scenario id -> required phrases
}

// DefaultValidatorConfig returns the standard thresholds.
func DefaultValidatorConfig() ValidatorConfig {
	return ValidatorConfig{
		MinLength:   50,
		MaxLength:   1000,
		Disclaimers: map[string][]string{},
	}
}

// Validator is the post-generation repair pass.
type Validator struct {
	cfg ValidatorConfig
}

// NewValidator creates a validator; zero thresholds fall back to defaults.
func NewValidator(cfg ValidatorConfig) *Validator {
	def := DefaultValidatorConfig()
	if cfg.MinLength <= 0 {
		cfg.MinLength = def.MinLength
	}
	if cfg.MaxLength <= 0 {
		cfg.MaxLength = def.MaxLength
	}
	return &Validator{cfg: cfg}
}

var numberedLineRe = regexp.MustCompile(`(?m)^\s*\d+\.`)

var intentOpenings = map[string][]string{
	"problem":       {"i understand", "sorry", "let's sort", "let me help"},
	"question":      {"great question", "good question", "here's", "to "},
	"clarification": {"happy to clarify", "to clarify", "in other words"},
}

var intentRepairPrefix = map[string]string{
	"problem":       "I understand you're running into an issue.",
	"clarification": "Happy to clarify!",
}

// Validate repairs text in place where it can and flags what it cannot.
// scenario may be nil when the response did not come from the catalog.
func (v *Validator) Validate(text string, scenario *catalog.Scenario, intent string, entities map[string]string) (string, ValidationResult) {
	var issues []string

	// Personalization: swap the generic event phrase for a known name.
	if name := entities["hackathon_name"]; name != "" {
		text = strings.ReplaceAll(text, DefaultEventName, name)
	}

	// Procedure check: a scenario with steps should show a numbered list.
	if scenario != nil && len(scenario.AnswerComponents.Steps) >= 2 {
		if len(numberedLineRe.FindAllString(text, -1)) < 2 {
			text = text + "\n\nHere are the steps:\n" + NumberSteps(scenario.AnswerComponents.Steps)
			logging.Validator("inserted numbered steps for scenario %s", scenario.ScenarioID)
		}
	}

	// Structure: a long single block gets re-split at sentence boundaries.
	if len(text) > 200 && strings.Count(text, "\n\n") < 2 {
		if split := splitParagraphs(text); split != text {
			text = split
			logging.Validator("re-split response into paragraphs")
		} else {
			issues = append(issues, "single paragraph block")
		}
	}

	// Opening phrase appropriate to the intent.
	if accepted, ok := intentOpenings[intent]; ok && !hasOpening(text, accepted) {
		if prefix, ok := intentRepairPrefix[intent]; ok {
			text = prefix + "\n\n" + text
		} else {
			issues = append(issues, "missing intent opening")
		}
	}

	// Scenario-specific disclaimers, matched by term overlap rather than
	// exact text.
	if scenario != nil {
		for _, phrase := range v.cfg.Disclaimers[scenario.ScenarioID] {
			if termOverlap(phrase, text) < 0.6 {
				issues = append(issues, fmt.Sprintf("missing disclaimer: %s", phrase))
			}
		}
	}

	// Length checks last, after repairs may have grown the text.
	if len(text) < v.cfg.MinLength {
		issues = append(issues, "response too short")
	}
	if len(text) > v.cfg.MaxLength {
		// Flag only, never truncate.
		issues = append(issues, "response exceeds preferred length")
	}

	result := ValidationResult{Issues: issues, Acceptable: len(issues) <= 1}
	if !result.Acceptable {
		logging.Get(logging.CategoryValidator).Warn("response flagged with %d issues: %v", len(issues), issues)
	}
	return text, result
}

func hasOpening(text string, accepted []string) bool {
	head := strings.ToLower(text)
	if len(head) > 80 {
		head = head[:80]
	}
	for _, phrase := range accepted {
		if strings.Contains(head, phrase) {
			return true
		}
	}
	return false
}

var sentenceEndRe = regexp.MustCompile(`([.!?])\s+`)

// splitParagraphs regroups a single text block into paragraphs of roughly
// two sentences each. Existing paragraph breaks are preserved.
func splitParagraphs(text string) string {
	if strings.Contains(text, "\n\n") {
		return text
	}
	sentences := sentenceEndRe.Split(text, -1)
	marks := sentenceEndRe.FindAllStringSubmatch(text, -1)
	if len(sentences) < 3 {
		return text
	}

	var b strings.Builder
	for i, s := range sentences {
		b.WriteString(strings.TrimSpace(s))
		if i < len(marks) {
			b.WriteString(marks[i][1])
		}
		if i == len(sentences)-1 {
			break
		}
		if (i+1)%2 == 0 {
			b.WriteString("\n\n")
		} else {
			b.WriteString(" ")
		}
	}
	return b.String()
}

// termOverlap returns the fraction of significant terms in phrase that appear
// in text (case-insensitive).
func termOverlap(phrase, text string) float64 {
	textLower := strings.ToLower(text)
	terms := strings.Fields(strings.ToLower(phrase))

	significant, found := 0, 0
	for _, term := range terms {
		term = strings.Trim(term, ".,!?;:")
		if len(term) < 4 {
			continue
		}
		significant++
		if strings.Contains(textLower, term) {
			found++
		}
	}
	if significant == 0 {
		return 1.0
	}
	return float64(found) / float64(significant)
}

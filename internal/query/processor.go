package query

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"askbot/internal/catalog"
	"askbot/internal/logging"
)

// ProcessedQuery is the structured result of one pipeline turn. Created per
// turn and discarded after it.
type ProcessedQuery struct {
	OriginalQuery     string
	CleanedQuery      string
	Intent            Intent
	Entities          map[string]string
	RelevantScenarios []catalog.ScoredScenario // score descending, unique ids
	IsFollowup        bool
	PreviousScenario  *catalog.Scenario
}

// SemanticMatcher is the matcher surface the processor needs.
type SemanticMatcher interface {
	Match(ctx context.Context, query string, topK int, threshold float64) ([]catalog.ScoredScenario, error)
}

// Config holds the processor's tunables.
type Config struct {
	SemanticTopK      int
	SemanticThreshold float64
}

// Processor orchestrates normalization, intent classification, entity
// extraction, scenario matching and follow-up resolution.
type Processor struct {
	catalog    *catalog.Catalog
	scorer     *catalog.Scorer
	matcher    SemanticMatcher
	classifier IntentStrategy
	cfg        Config
}

// NewProcessor wires the pipeline components. matcher may be nil (lexical
// scoring only); classifier defaults to the rule-based one.
func NewProcessor(cat *catalog.Catalog, scorer *catalog.Scorer, matcher SemanticMatcher, classifier IntentStrategy, cfg Config) *Processor {
	if classifier == nil {
		classifier = NewRuleIntentClassifier()
	}
	if cfg.SemanticTopK <= 0 {
		cfg.SemanticTopK = 3
	}
	if cfg.SemanticThreshold <= 0 {
		cfg.SemanticThreshold = 0.5
	}
	return &Processor{
		catalog:    cat,
		scorer:     scorer,
		matcher:    matcher,
		classifier: classifier,
		cfg:        cfg,
	}
}

var (
	mentionRe    = regexp.MustCompile(`@\w+`)
	whitespaceRe = regexp.MustCompile(`\s+`)

	// Common typos and abbreviations observed in real traffic.
	replacements = []struct{ re *regexp.Regexp; with string }{
		{regexp.MustCompile(`(?i)\bjudgement\b`), "judging"},
		{regexp.MustCompile(`(?i)\bhackaton\b`), "hackathon"},
		{regexp.MustCompile(`(?i)\bcant\b`), "can't"},
		{regexp.MustCompile(`(?i)\bdoesnt\b`), "doesn't"},
		{regexp.MustCompile(`(?i)\bisnt\b`), "isn't"},
		{regexp.MustCompile(`(?i)\bim\b`), "I'm"},
	}
)

// Clean normalizes a raw query: strips mention tokens, collapses whitespace
// and applies the typo substitution table.
func Clean(raw string) string {
	q := mentionRe.ReplaceAllString(raw, "")
	q = strings.TrimSpace(whitespaceRe.ReplaceAllString(q, " "))
	for _, r := range replacements {
		q = r.re.ReplaceAllString(q, r.with)
	}
	return q
}

// Process runs the full per-turn pipeline.
func (p *Processor) Process(ctx context.Context, raw string, history History) (*ProcessedQuery, error) {
	timer := logging.StartTimer(logging.CategoryPipeline, "process query")
	defer timer.Stop()

	cleaned := Clean(raw)
	intent := p.classifier.Classify(cleaned, history)
	logging.Pipeline("classified intent: %s (confidence: %.2f)", intent.Type, intent.Confidence)

	entities := ExtractEntities(cleaned)

	// Scenario matching is pointless for greetings.
	var relevant []catalog.ScoredScenario
	if intent.Type != IntentGreeting {
		var err error
		relevant, err = p.rankScenarios(ctx, cleaned)
		if err != nil {
			// Semantic failure degrades to lexical-only results, never
			// fails the turn.
			logging.Get(logging.CategoryPipeline).Warn("semantic matching failed, lexical only: %v", err)
		}
	}

	result := &ProcessedQuery{
		OriginalQuery:     raw,
		CleanedQuery:      cleaned,
		Intent:            intent,
		Entities:          entities,
		RelevantScenarios: relevant,
		IsFollowup:        intent.Type == IntentFollowup,
	}

	if result.IsFollowup && history != nil {
		if prev, ok := p.findPreviousScenario(history); ok {
			result.PreviousScenario = &prev
			logging.Pipeline("follow-up anchored to scenario %s", prev.ScenarioID)
		}
	}

	return result, nil
}

// rankScenarios merges the lexical scorer and the semantic matcher into one
// ranked, deduplicated list.
func (p *Processor) rankScenarios(ctx context.Context, cleaned string) ([]catalog.ScoredScenario, error) {
	match := p.scorer.Score(cleaned)

	best := make(map[string]catalog.ScoredScenario)
	add := func(s catalog.ScoredScenario) {
		if prev, ok := best[s.Scenario.ScenarioID]; !ok || s.Score > prev.Score {
			best[s.Scenario.ScenarioID] = s
		}
	}

	if match.Best != nil {
		add(catalog.ScoredScenario{Scenario: *match.Best, Score: match.Confidence})
	}
	for _, alt := range match.Alternates {
		add(alt)
	}

	var semErr error
	if p.matcher != nil {
		semantic, err := p.matcher.Match(ctx, cleaned, p.cfg.SemanticTopK, p.cfg.SemanticThreshold)
		if err != nil {
			semErr = err
		}
		for _, s := range semantic {
			add(s)
		}
	}

	merged := make([]catalog.ScoredScenario, 0, len(best))
	for _, s := range best {
		merged = append(merged, s)
	}
	sort.SliceStable(merged, func(i, j int) bool { return merged[i].Score > merged[j].Score })

	if len(merged) > p.cfg.SemanticTopK {
		merged = merged[:p.cfg.SemanticTopK]
	}

	return merged, semErr
}

// findPreviousScenario scans the most recent stored bot answer for a
// case-insensitive occurrence of any catalog scenario title.
func (p *Processor) findPreviousScenario(history History) (catalog.Scenario, bool) {
	last, ok := history.LastAnswer()
	if !ok {
		return catalog.Scenario{}, false
	}
	return p.catalog.FindByTitleIn(last)
}

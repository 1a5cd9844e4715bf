package catalog

import (
	"sort"
	"strings"

	"askbot/internal/logging"
)

// ScorerConfig holds the scorer thresholds and weights. Defaults reproduce
// the original hand-tuned values; they are configuration, not truths.
type ScorerConfig struct {
	NearDuplicateRatio float64 // tier 2: canonical text-similarity cutoff
	KeywordWeight      float64 // tier 3: weight per keyword hit
	SemanticWeight     float64 // tier 3: weight of max canonical similarity
	MinBlendedScore    float64 // below this the best match is discarded
	AlternateFloor     float64 // alternates must exceed this
	MaxAlternates      int
}

// DefaultScorerConfig returns the original system's thresholds.
func DefaultScorerConfig() ScorerConfig {
	return ScorerConfig{
		NearDuplicateRatio: 0.85,
		KeywordWeight:      0.1,
		SemanticWeight:     0.9,
		MinBlendedScore:    0.4,
		AlternateFloor:     0.3,
		MaxAlternates:      3,
	}
}

// ScoredScenario pairs a scenario with its match score.
type ScoredScenario struct {
	Scenario Scenario
	Score    float64
}

// MatchResult is the scorer output. Best is nil when no scenario reached the
// confidence floor; Alternates may still be populated for the caller's
// discretion.
type MatchResult struct {
	Best       *Scenario
	Confidence float64
	Alternates []ScoredScenario
}

// Scorer ranks catalog scenarios against a query using three escalating
// tiers: exact regex pattern, near-duplicate canonical text, then a blended
// keyword/similarity score.
type Scorer struct {
	catalog *Catalog
	cfg     ScorerConfig
}

// NewScorer creates a scorer over the given catalog.
func NewScorer(c *Catalog, cfg ScorerConfig) *Scorer {
	if cfg.MaxAlternates <= 0 {
		cfg.MaxAlternates = 3
	}
	return &Scorer{catalog: c, cfg: cfg}
}

// Score finds the most relevant scenario for a query.
//
// Tier 1: any compiled question pattern matches -> confidence 1.0, no
// alternates. Tier 2: any canonical phrasing within the near-duplicate ratio
// -> confidence 0.95, no alternates. Tier 3: blended keyword+similarity score
// over every scenario; below the floor the best is discarded but alternates
// survive.
func (sc *Scorer) Score(query string) MatchResult {
	timer := logging.StartTimer(logging.CategoryScorer, "score query")
	defer timer.Stop()

	queryLower := strings.ToLower(query)
	scenarios := sc.catalog.All()

	// Tier 1 + 2: short-circuit on the first hit.
	for i := range scenarios {
		s := &scenarios[i]
		if s.MatchesPattern(queryLower) {
			logging.Scorer("pattern match: %s", s.Title)
			return MatchResult{Best: s, Confidence: 1.0}
		}
		for _, q := range s.CanonicalQuestions {
			if SimilarityRatio(strings.ToLower(q), queryLower) > sc.cfg.NearDuplicateRatio {
				logging.Scorer("canonical question match: %s", s.Title)
				return MatchResult{Best: s, Confidence: 0.95}
			}
		}
	}

	// Tier 3: blended keyword + text similarity.
	var (
		best      *Scenario
		bestScore float64
		others    []ScoredScenario
	)

	for i := range scenarios {
		s := &scenarios[i]

		hits := 0
		for _, kw := range s.Keywords {
			if strings.Contains(queryLower, strings.ToLower(kw)) {
				hits++
			}
		}

		maxSim := 0.0
		for _, q := range s.CanonicalQuestions {
			if sim := SimilarityRatio(strings.ToLower(q), queryLower); sim > maxSim {
				maxSim = sim
			}
		}

		score := float64(hits)*sc.cfg.KeywordWeight + maxSim*sc.cfg.SemanticWeight
		if score > 1.0 {
			score = 1.0
		}
		logging.ScorerDebug("blended score %.3f for %s (keyword hits=%d, max sim=%.3f)",
			score, s.ScenarioID, hits, maxSim)

		if score > bestScore {
			if best != nil && bestScore > sc.cfg.AlternateFloor {
				others = append(others, ScoredScenario{Scenario: *best, Score: bestScore})
			}
			best = s
			bestScore = score
		} else if score > sc.cfg.AlternateFloor {
			others = append(others, ScoredScenario{Scenario: *s, Score: score})
		}
	}

	sort.SliceStable(others, func(i, j int) bool { return others[i].Score > others[j].Score })
	if len(others) > sc.cfg.MaxAlternates {
		others = others[:sc.cfg.MaxAlternates]
	}

	if bestScore < sc.cfg.MinBlendedScore {
		logging.Get(logging.CategoryScorer).Warn("no confident scenario match (best=%.3f)", bestScore)
		return MatchResult{Best: nil, Confidence: bestScore, Alternates: others}
	}

	logging.Scorer("best scenario match: %s (score=%.3f)", best.Title, bestScore)
	return MatchResult{Best: best, Confidence: bestScore, Alternates: others}
}
